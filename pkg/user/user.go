package user

import (
	"context"
	"time"
)

// User is a credential store record. Users created through the OpenID flow
// carry an empty PasswordHash and can only sign in federated.
type User struct {
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Name         string    `json:"name"`
	CreatedAt    time.Time `json:"createdAt"`
}

// UserRepository defines storage operations for user records.
// Registration uses Create so a duplicate email fails atomically;
// the OpenID flow uses Upsert since a federated login may repeat.
type UserRepository interface {
	// Get retrieves a user by email
	Get(ctx context.Context, email string) (User, error)

	// Create inserts a new user, failing with ErrUserAlreadyExists if the email is taken
	Create(ctx context.Context, u User) (User, error)

	// Upsert inserts or overwrites a user, preserving CreatedAt for existing records
	Upsert(ctx context.Context, u User) (User, error)

	// Exists reports whether a user with the given email exists
	Exists(ctx context.Context, email string) (bool, error)
}
