package shared

import "errors"

var (
	// ErrNotFound indicates a resource the account does not own or that does not exist.
	ErrNotFound = errors.New("not found")
	// ErrInvalidCredentials indicates login failure.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrUnauthenticated indicates a request without a valid session.
	ErrUnauthenticated = errors.New("not authenticated")
)
