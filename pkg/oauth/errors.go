package oauth

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidCallback indicates a callback with a missing code or a
	// missing/mismatched state parameter.
	ErrInvalidCallback = errors.New("invalid authorization callback")

	// ErrAuthorizationTimeout indicates no callback arrived within the
	// setup flow's wait window.
	ErrAuthorizationTimeout = errors.New("authorization timed out")

	// ErrSetupInProgress indicates a second setup run was attempted while
	// one is already live.
	ErrSetupInProgress = errors.New("an authorization attempt is already in progress")
)

// PersistenceError indicates a token store I/O fault.
type PersistenceError struct {
	Op   string // "save", "load", "clear"
	Path string
	Err  error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("token store: %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// ExchangeError indicates the provider rejected a code or refresh token.
// A rejected refresh token is never retried; the caller must re-run the
// full authorization flow.
type ExchangeError struct {
	Op  string // "exchange", "refresh"
	Err error
}

func (e *ExchangeError) Error() string {
	return fmt.Sprintf("token %s failed: %v", e.Op, e.Err)
}

func (e *ExchangeError) Unwrap() error {
	return e.Err
}

// AuthorizationDeniedError indicates the provider returned an error on the
// authorization callback, typically because the user declined consent.
type AuthorizationDeniedError struct {
	Reason string
}

func (e *AuthorizationDeniedError) Error() string {
	if e.Reason == "" {
		return "authorization denied"
	}
	return "authorization denied: " + e.Reason
}
