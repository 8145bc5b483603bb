package session

import "errors"

var (
	// ErrNotAuthenticated is a precondition violation: the operation is only
	// legal while the session is authenticated.
	ErrNotAuthenticated = errors.New("session is not authenticated")

	// ErrInvalidLogin means Login was called without a credential or identity.
	ErrInvalidLogin = errors.New("login requires a credential and an identity")

	// ErrClosed is returned by operations on a closed controller.
	ErrClosed = errors.New("session controller closed")
)
