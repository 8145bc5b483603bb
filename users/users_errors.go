package users

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidPhone = errors.New("invalid phone number")
	ErrInvalidCode  = errors.New("invalid verification code")
)

// ValidationError is returned for input rejected before any network call is made.
type ValidationError struct {
	Field   string
	Message string
	err     error
}

func newValidationError(field string, err error, msg string) *ValidationError {
	return &ValidationError{Field: field, Message: msg, err: err}
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error {
	return e.err
}

// IsValidationError reports whether err was produced by input validation.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
