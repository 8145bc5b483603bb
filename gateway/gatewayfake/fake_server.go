// Package gatewayfake is an in-process stand-in for the remote session API. It
// issues real signed tokens, texts nobody and keeps everything in memory. Tests
// wrap it with httptest; cmd/fakegateway serves it for local development.
package gatewayfake

import (
	"crypto/rand"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/jrsteele09/callscreen-client/gateway"
	"github.com/jrsteele09/callscreen-client/internal/utils"
	"github.com/jrsteele09/callscreen-client/tenants"
	"github.com/jrsteele09/callscreen-client/users"
)

const codeDigits = 6

var _ http.Handler = (*Server)(nil)

type account struct {
	identity users.Identity
	tenant   *tenants.Tenant
	isAdmin  bool
}

// Server fakes the remote API. Failure knobs force a status code on a route
// until reset with 0.
type Server struct {
	router   *mux.Router
	secret   []byte
	tokenTTL time.Duration
	nowFunc  func() time.Time
	logger   zerolog.Logger

	accounts  map[string]*account // phone -> account
	codes     map[string]string   // phone -> bcrypt hash of the pending code
	lastCodes map[string]string   // phone -> plaintext, for tests and dev output
	revoked   map[string]struct{} // token ids

	failures map[string]int // route -> forced status
	gates    map[string]chan struct{}
	calls    map[string]int

	lock sync.Mutex
}

type Option func(*Server)

func WithTokenTTL(d time.Duration) Option {
	return func(s *Server) {
		s.tokenTTL = d
	}
}

func WithNowFunc(now func() time.Time) Option {
	return func(s *Server) {
		s.nowFunc = now
	}
}

func WithSecret(secret []byte) Option {
	return func(s *Server) {
		s.secret = secret
	}
}

func WithLogger(logger zerolog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

func New(options ...Option) *Server {
	s := &Server{
		secret:    []byte(uuid.New().String()),
		tokenTTL:  30 * 24 * time.Hour,
		nowFunc:   time.Now,
		logger:    zerolog.Nop(),
		accounts:  make(map[string]*account),
		codes:     make(map[string]string),
		lastCodes: make(map[string]string),
		revoked:   make(map[string]struct{}),
		failures:  make(map[string]int),
		gates:     make(map[string]chan struct{}),
		calls:     make(map[string]int),
	}
	for _, opt := range options {
		opt(s)
	}

	r := mux.NewRouter()
	r.HandleFunc(gateway.RouteMe, s.handle(gateway.RouteMe, s.authenticated(s.meHandler))).Methods(http.MethodGet)
	r.HandleFunc(gateway.RouteSendCode, s.handle(gateway.RouteSendCode, s.sendCodeHandler)).Methods(http.MethodPost)
	r.HandleFunc(gateway.RouteVerifyCode, s.handle(gateway.RouteVerifyCode, s.verifyCodeHandler)).Methods(http.MethodPost)
	r.HandleFunc(gateway.RouteRefresh, s.handle(gateway.RouteRefresh, s.authenticated(s.refreshHandler))).Methods(http.MethodPost)
	r.HandleFunc(gateway.RouteLogout, s.handle(gateway.RouteLogout, s.authenticated(s.logoutHandler))).Methods(http.MethodPost)
	s.router = r
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// AddAccount registers a phone number and returns its identity.
func (s *Server) AddAccount(phone string, tenant *tenants.Tenant, isAdmin bool) users.Identity {
	s.lock.Lock()
	defer s.lock.Unlock()
	a := s.accountLocked(users.NormalizePhone(phone))
	a.tenant = tenant
	a.isAdmin = isAdmin
	a.identity.TenantID = utils.Value(tenant).ID
	return a.identity
}

// SetTenant assigns (or with nil removes) the tenant of an account, as the
// backend does once onboarding provisioning finishes.
func (s *Server) SetTenant(phone string, tenant *tenants.Tenant) {
	s.lock.Lock()
	defer s.lock.Unlock()
	a := s.accountLocked(users.NormalizePhone(phone))
	a.tenant = tenant
	a.identity.TenantID = utils.Value(tenant).ID
}

// IssueToken mints a credential for an existing or new account without the
// code exchange.
func (s *Server) IssueToken(phone string) (string, time.Time, error) {
	s.lock.Lock()
	a := s.accountLocked(users.NormalizePhone(phone))
	userID := a.identity.ID
	s.lock.Unlock()
	return s.issue(userID)
}

// Revoke makes every later request with token fail with 401.
func (s *Server) Revoke(token string) {
	claims, err := s.parse(token)
	if err != nil {
		return
	}
	s.lock.Lock()
	defer s.lock.Unlock()
	s.revoked[claims.ID] = struct{}{}
}

// Fail forces route to answer with status; 0 restores normal behaviour.
func (s *Server) Fail(route string, status int) {
	s.lock.Lock()
	defer s.lock.Unlock()
	if status == 0 {
		delete(s.failures, route)
		return
	}
	s.failures[route] = status
}

// Hold blocks requests to route until the returned release func is called.
func (s *Server) Hold(route string) (release func()) {
	gate := make(chan struct{})
	s.lock.Lock()
	s.gates[route] = gate
	s.lock.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.lock.Lock()
			if s.gates[route] == gate {
				delete(s.gates, route)
			}
			s.lock.Unlock()
			close(gate)
		})
	}
}

// Calls returns how many requests reached route.
func (s *Server) Calls(route string) int {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.calls[route]
}

// LastCode returns the most recent verification code sent to phone.
func (s *Server) LastCode(phone string) string {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.lastCodes[users.NormalizePhone(phone)]
}

func (s *Server) accountLocked(phone string) *account {
	a, ok := s.accounts[phone]
	if !ok {
		a = &account{identity: users.Identity{ID: uuid.New().String(), Phone: phone}}
		s.accounts[phone] = a
	}
	return a
}

func (s *Server) accountByID(userID string) (*account, bool) {
	for _, a := range s.accounts {
		if a.identity.ID == userID {
			return a, true
		}
	}
	return nil, false
}

// handle counts the call, waits on any gate and applies forced failures.
func (s *Server) handle(route string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.lock.Lock()
		s.calls[route]++
		gate := s.gates[route]
		s.lock.Unlock()

		if gate != nil {
			select {
			case <-gate:
			case <-r.Context().Done():
				return
			}
		}

		s.lock.Lock()
		status := s.failures[route]
		s.lock.Unlock()
		if status != 0 {
			writeJSON(w, status, map[string]string{"error": http.StatusText(status)})
			return
		}
		next(w, r)
	}
}

type authedHandler func(w http.ResponseWriter, r *http.Request, a *account, token string)

func (s *Server) authenticated(next authedHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "missing bearer token"})
			return
		}

		claims, err := s.parse(token)
		if err != nil {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid token"})
			return
		}

		s.lock.Lock()
		_, revoked := s.revoked[claims.ID]
		a, found := s.accountByID(claims.Subject)
		var snapshot account
		if found {
			snapshot = *a
		}
		s.lock.Unlock()

		if revoked || !found {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "token revoked"})
			return
		}
		next(w, r, &snapshot, token)
	}
}

func (s *Server) meHandler(w http.ResponseWriter, _ *http.Request, a *account, _ string) {
	writeJSON(w, http.StatusOK, gateway.Profile{User: a.identity, Tenant: a.tenant, IsAdmin: a.isAdmin})
}

func (s *Server) sendCodeHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Phone string `json:"phone"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || users.ValidatePhone(req.Phone) != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid phone"})
		return
	}
	phone := users.NormalizePhone(req.Phone)

	code, err := randomCode()
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "code generation failed"})
		return
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.MinCost)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "code generation failed"})
		return
	}

	s.lock.Lock()
	s.accountLocked(phone)
	s.codes[phone] = string(hash)
	s.lastCodes[phone] = code
	s.lock.Unlock()

	s.logger.Info().Str("phone", phone).Str("code", code).Msg("verification code issued")
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (s *Server) verifyCodeHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Phone string `json:"phone"`
		Code  string `json:"code"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request"})
		return
	}
	phone := users.NormalizePhone(req.Phone)

	s.lock.Lock()
	hash, ok := s.codes[phone]
	s.lock.Unlock()
	if !ok || bcrypt.CompareHashAndPassword([]byte(hash), []byte(req.Code)) != nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid code"})
		return
	}

	s.lock.Lock()
	delete(s.codes, phone)
	identity := s.accountLocked(phone).identity
	s.lock.Unlock()

	s.writeGrant(w, identity)
}

func (s *Server) refreshHandler(w http.ResponseWriter, _ *http.Request, a *account, _ string) {
	s.writeGrant(w, a.identity)
}

func (s *Server) logoutHandler(w http.ResponseWriter, _ *http.Request, _ *account, token string) {
	s.Revoke(token)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) writeGrant(w http.ResponseWriter, identity users.Identity) {
	token, expiresAt, err := s.issue(identity.ID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "token signing failed"})
		return
	}
	writeJSON(w, http.StatusOK, gateway.Grant{Token: token, ExpiresAt: expiresAt, User: identity})
}

func (s *Server) issue(userID string) (string, time.Time, error) {
	now := s.nowFunc()
	exp := now.Add(s.tokenTTL)
	claims := jwt.RegisteredClaims{
		Subject:   userID,
		ID:        uuid.New().String(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(exp),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, exp.Truncate(time.Second), nil
}

func (s *Server) parse(token string) (*jwt.RegisteredClaims, error) {
	var claims jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(s.nowFunc))
	if err != nil {
		return nil, err
	}
	return &claims, nil
}

func randomCode() (string, error) {
	limit := big.NewInt(1)
	for range codeDigits {
		limit.Mul(limit, big.NewInt(10))
	}
	n, err := rand.Int(rand.Reader, limit)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%0*d", codeDigits, n), nil
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
