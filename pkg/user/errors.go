package user

import (
	"errors"
	"fmt"
)

// Common errors
var (
	ErrUserNotFound = errors.New("user not found")
)

// ErrUserAlreadyExists is returned when attempting to create a user with an email that already exists
type ErrUserAlreadyExists struct {
	Email string
}

func (e ErrUserAlreadyExists) Error() string {
	return fmt.Sprintf("user already exists: %s", e.Email)
}
