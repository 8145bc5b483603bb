package gateway

import (
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/jrsteele09/callscreen-client/credentials"
	"github.com/jrsteele09/callscreen-client/tenants"
	"github.com/jrsteele09/callscreen-client/users"
)

// Profile is the response of GET /api/me.
// Tenant is nil until the user has been onboarded into an organization.
type Profile struct {
	User    users.Identity  `json:"user"`
	Tenant  *tenants.Tenant `json:"tenant,omitempty"`
	IsAdmin bool            `json:"is_admin,omitempty"`
}

// Grant is the response of POST /auth/verify-code and POST /auth/refresh.
type Grant struct {
	// Token is the opaque bearer credential.
	Token string `json:"token"`

	// ExpiresAt is the server declared expiry (RFC 3339). When the server omits
	// it the client falls back to the token's "exp" claim, if it has one.
	ExpiresAt time.Time `json:"expires_at"`

	// User is the identity as known at the moment the grant was issued. It may
	// lack tenant details that only the profile lookup returns.
	User users.Identity `json:"user"`
}

// Credential returns the bearer credential carried by the grant.
func (g *Grant) Credential() credentials.Credential {
	return credentials.Credential{Token: g.Token, ExpiresAt: g.ExpiresAt}
}

type sendCodeRequest struct {
	Phone string `json:"phone"`
}

type sendCodeResponse struct {
	Success bool `json:"success"`
}

type verifyCodeRequest struct {
	Phone string `json:"phone"`
	Code  string `json:"code"`
}

// tokenExpiry reads the "exp" claim without verifying the signature. The
// client has no key to verify with and only uses the value as a hint.
func tokenExpiry(token string) time.Time {
	var claims jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil || claims.ExpiresAt == nil {
		return time.Time{}
	}
	return claims.ExpiresAt.Time
}
