package gateway

import (
	"errors"
	"fmt"
)

var (
	// ErrCredentialInvalid means the server explicitly rejected the bearer
	// credential as expired or revoked. It is the only failure that ends a session.
	ErrCredentialInvalid = errors.New("credential rejected by server")

	// ErrCodeRejected means the verification code was wrong or has expired.
	ErrCodeRejected = errors.New("verification code rejected")

	// ErrPhoneRejected means the server refused to send a code to the number.
	ErrPhoneRejected = errors.New("phone number rejected")

	// ErrCodeNotSent means the server accepted the request but reported failure.
	ErrCodeNotSent = errors.New("verification code not sent")
)

// TransientError is any failure that does not prove the credential invalid:
// network errors, timeouts, 5xx responses and malformed payloads.
type TransientError struct {
	Op         string // Operation, e.g. "me" or "refresh"
	StatusCode int    // HTTP status if a response was received
	Err        error  // Underlying cause, if any
}

func (e *TransientError) Error() string {
	switch {
	case e.Err != nil && e.StatusCode != 0:
		return fmt.Sprintf("%s: transient failure (status %d): %v", e.Op, e.StatusCode, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("%s: transient failure: %v", e.Op, e.Err)
	default:
		return fmt.Sprintf("%s: transient failure (status %d)", e.Op, e.StatusCode)
	}
}

func (e *TransientError) Unwrap() error {
	return e.Err
}

// IsTransient reports whether err is a transient gateway failure.
func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}

// IsCredentialInvalid reports whether err proves the credential invalid.
func IsCredentialInvalid(err error) bool {
	return errors.Is(err, ErrCredentialInvalid)
}
