package externalauth

import (
	"errors"
	"fmt"
)

// Common errors
var (
	// ErrMissingCode is returned when the callback carries no authorization code
	ErrMissingCode = errors.New("no authorization code provided in callback")

	// ErrInvalidState is returned when the callback state is missing, unknown,
	// already used, or expired
	ErrInvalidState = errors.New("invalid or expired state")

	// ErrInvalidIDToken is returned when the provider's identity token cannot be
	// parsed or does not resolve to a usable identity
	ErrInvalidIDToken = errors.New("invalid identity token")

	// ErrStateNotFound is returned by state repositories for unknown state values
	ErrStateNotFound = errors.New("state not found")
)

// TokenExchangeError is returned when the authorization-code exchange with the
// provider's token endpoint fails. It carries the provider's message so the
// caller can surface it.
type TokenExchangeError struct {
	StatusCode int
	Message    string
	Err        error
}

func (e *TokenExchangeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("token exchange failed: %v", e.Err)
	}
	return fmt.Sprintf("token exchange failed with status %d: %s", e.StatusCode, e.Message)
}

func (e *TokenExchangeError) Unwrap() error {
	return e.Err
}
