package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/oauth2"

	"github.com/jrsteele09/callscreen-client/credentials"
	"github.com/jrsteele09/callscreen-client/internal/logging"
	"github.com/jrsteele09/callscreen-client/users"
)

const (
	defaultTimeout = 15 * time.Second
	maxErrorBody   = 512
)

// statusErrors maps HTTP statuses to the classified errors of one operation.
// Any status not listed is transient.
type statusErrors map[int]error

var (
	bearerStatusErrors = statusErrors{
		http.StatusUnauthorized: ErrCredentialInvalid,
	}
	sendCodeStatusErrors = statusErrors{
		http.StatusBadRequest:          ErrPhoneRejected,
		http.StatusUnprocessableEntity: ErrPhoneRejected,
	}
	verifyCodeStatusErrors = statusErrors{
		http.StatusBadRequest:          ErrCodeRejected,
		http.StatusUnauthorized:        ErrCodeRejected,
		http.StatusUnprocessableEntity: ErrCodeRejected,
	}
)

// Client talks to the remote session API. It is safe for concurrent use.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     zerolog.Logger
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = d
	}
}

func WithLogger(logger zerolog.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// New creates a Client for the API at baseURL (e.g., "https://api.example.com").
func New(baseURL string, options ...ClientOption) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: defaultTimeout},
		logger:     logging.Component("gateway"),
	}
	for _, opt := range options {
		opt(c)
	}
	return c
}

// Me fetches the authoritative identity, tenant and privilege of the credential's owner.
func (c *Client) Me(ctx context.Context, cred credentials.Credential) (*Profile, error) {
	var profile Profile
	if err := c.do(ctx, "me", http.MethodGet, RouteMe, &cred, nil, &profile, bearerStatusErrors); err != nil {
		return nil, err
	}
	if profile.User.ID == "" {
		return nil, &TransientError{Op: "me", StatusCode: http.StatusOK, Err: errors.New("response has no user")}
	}
	return &profile, nil
}

// SendCode asks the server to text a verification code to phone.
// The phone number is validated before any request is made.
func (c *Client) SendCode(ctx context.Context, phone string) error {
	if err := users.ValidatePhone(phone); err != nil {
		return err
	}

	var resp sendCodeResponse
	req := sendCodeRequest{Phone: users.NormalizePhone(phone)}
	if err := c.do(ctx, "send-code", http.MethodPost, RouteSendCode, nil, req, &resp, sendCodeStatusErrors); err != nil {
		return err
	}
	if !resp.Success {
		return fmt.Errorf("send-code: %w", ErrCodeNotSent)
	}
	return nil
}

// VerifyCode exchanges a verification code for a credential.
func (c *Client) VerifyCode(ctx context.Context, phone, code string) (*Grant, error) {
	if err := users.ValidatePhone(phone); err != nil {
		return nil, err
	}
	if err := users.ValidateCode(code); err != nil {
		return nil, err
	}

	req := verifyCodeRequest{Phone: users.NormalizePhone(phone), Code: strings.TrimSpace(code)}
	return c.grant(ctx, "verify-code", RouteVerifyCode, nil, req, verifyCodeStatusErrors)
}

// Refresh exchanges a still valid credential for a new one.
func (c *Client) Refresh(ctx context.Context, cred credentials.Credential) (*Grant, error) {
	return c.grant(ctx, "refresh", RouteRefresh, &cred, nil, bearerStatusErrors)
}

// Logout tells the server to revoke the credential. The response body is ignored.
func (c *Client) Logout(ctx context.Context, cred credentials.Credential) error {
	return c.do(ctx, "logout", http.MethodPost, RouteLogout, &cred, nil, nil, bearerStatusErrors)
}

func (c *Client) grant(ctx context.Context, op, path string, cred *credentials.Credential, body any, errs statusErrors) (*Grant, error) {
	var g Grant
	if err := c.do(ctx, op, http.MethodPost, path, cred, body, &g, errs); err != nil {
		return nil, err
	}
	if g.Token == "" {
		return nil, &TransientError{Op: op, StatusCode: http.StatusOK, Err: errors.New("response has no token")}
	}
	if g.ExpiresAt.IsZero() {
		g.ExpiresAt = tokenExpiry(g.Token)
	}
	return &g, nil
}

// authorized returns an HTTP client that attaches cred as a bearer token.
func (c *Client) authorized(cred credentials.Credential) *http.Client {
	base := c.httpClient.Transport
	if base == nil {
		base = http.DefaultTransport
	}
	hc := *c.httpClient
	hc.Transport = &oauth2.Transport{
		Source: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cred.Token, TokenType: "Bearer"}),
		Base:   base,
	}
	return &hc
}

func (c *Client) do(ctx context.Context, op, method, path string, cred *credentials.Credential, in, out any, errs statusErrors) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("%s: encode request: %w", op, err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("%s: build request: %w", op, err)
	}
	requestID := uuid.New().String()
	req.Header.Set(HeaderRequestID, requestID)
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	hc := c.httpClient
	if cred != nil {
		hc = c.authorized(*cred)
	}

	start := time.Now()
	resp, err := hc.Do(req)
	if err != nil {
		c.logger.Debug().Err(err).Str("op", op).Str("request_id", requestID).Msg("request failed")
		return &TransientError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	c.logger.Debug().
		Str("op", op).
		Str("request_id", requestID).
		Int("status", resp.StatusCode).
		Dur("elapsed", time.Since(start)).
		Msg("gateway call")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		if classified, ok := errs[resp.StatusCode]; ok {
			return fmt.Errorf("%s: %w", op, classified)
		}
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &TransientError{Op: op, StatusCode: resp.StatusCode, Err: errorBody(snippet)}
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &TransientError{Op: op, StatusCode: resp.StatusCode, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}

func errorBody(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "" {
		return nil
	}
	return errors.New(s)
}
