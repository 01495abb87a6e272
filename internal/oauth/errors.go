package oauth

import (
	"errors"
	"fmt"
)

// ErrRegistrationNotFound is returned when an operation references a client
// name that has no stored registration.
var ErrRegistrationNotFound = errors.New("client registration not found")

// TokenExchangeError indicates a failed call against the provider's token
// endpoint: a non-success HTTP response, an unreachable endpoint, or a
// response missing a required field. The response body is preserved for
// logging; no retry is attempted.
type TokenExchangeError struct {
	// Op is the exchange that failed: "authorization_code" or "refresh_token".
	Op string

	// StatusCode is the HTTP status of the provider response, or 0 when the
	// request never completed.
	StatusCode int

	// Body is the raw error response body, if any.
	Body string

	// Err is the underlying transport or parse error, if any.
	Err error
}

// Error implements the error interface.
func (e *TokenExchangeError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s exchange failed with status %d", e.Op, e.StatusCode)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s exchange failed: %v", e.Op, e.Err)
	}
	return e.Op + " exchange failed"
}

// Unwrap returns the underlying error for error chain inspection.
func (e *TokenExchangeError) Unwrap() error {
	return e.Err
}

// ListenerStartError indicates the local callback listener could not bind its
// port.
type ListenerStartError struct {
	Port int
	Err  error
}

// Error implements the error interface.
func (e *ListenerStartError) Error() string {
	return fmt.Sprintf("could not start callback listener on port %d: %v", e.Port, e.Err)
}

// Unwrap returns the underlying error for error chain inspection.
func (e *ListenerStartError) Unwrap() error {
	return e.Err
}
