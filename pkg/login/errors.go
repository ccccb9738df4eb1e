package login

import "errors"

// Common errors
var (
	// ErrMissingFields is returned when a required registration or login field is empty
	ErrMissingFields = errors.New("missing required fields")

	// ErrInvalidCredentials is returned for both an unknown email and a wrong
	// password, so a caller cannot tell registered accounts apart from
	// unregistered ones.
	ErrInvalidCredentials = errors.New("invalid email or password")
)
