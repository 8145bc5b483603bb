package credentials

import "time"

// Credential is an opaque bearer token together with the expiry the server
// declared for it. Nothing in the client looks inside Token.
type Credential struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at,omitempty"`
}

// IsZero reports whether the credential carries no token.
func (c Credential) IsZero() bool {
	return c.Token == ""
}

// Expired reports whether the declared expiry has passed. Credentials without
// an expiry never report expired; the server remains the authority.
func (c Credential) Expired(now time.Time) bool {
	return !c.ExpiresAt.IsZero() && !now.Before(c.ExpiresAt)
}

// Store holds at most one credential. Get is answered from memory so it can be
// called synchronously during start-up; Set and Clear write through to durable
// storage.
type Store interface {
	Get() (Credential, bool)
	Set(cred Credential) error
	Clear() error
}
