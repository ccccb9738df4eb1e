package user

import (
	"context"
	"strings"
	"sync"
	"time"
)

// InMemoryUserRepository implements UserRepository using in-memory storage.
// All data is lost when the process stops.
type InMemoryUserRepository struct {
	mu    sync.RWMutex
	users map[string]User
}

// NewInMemoryUserRepository creates a new in-memory user repository
func NewInMemoryUserRepository() *InMemoryUserRepository {
	return &InMemoryUserRepository{
		users: make(map[string]User),
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Get retrieves a user by email
func (r *InMemoryUserRepository) Get(ctx context.Context, email string) (User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.users[normalizeEmail(email)]
	if !ok {
		return User{}, ErrUserNotFound
	}
	return u, nil
}

// Create inserts a new user. Check-and-insert happens under one lock so two
// concurrent registrations for the same email cannot both succeed.
func (r *InMemoryUserRepository) Create(ctx context.Context, u User) (User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := normalizeEmail(u.Email)
	if _, ok := r.users[key]; ok {
		return User{}, ErrUserAlreadyExists{Email: u.Email}
	}

	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}
	r.users[key] = u
	return u, nil
}

// Upsert inserts or overwrites a user, keeping the original CreatedAt when the
// record already exists.
func (r *InMemoryUserRepository) Upsert(ctx context.Context, u User) (User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := normalizeEmail(u.Email)
	if existing, ok := r.users[key]; ok {
		u.CreatedAt = existing.CreatedAt
	} else if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}

	r.users[key] = u
	return u, nil
}

// Exists reports whether a user with the given email exists
func (r *InMemoryUserRepository) Exists(ctx context.Context, email string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.users[normalizeEmail(email)]
	return ok, nil
}

// Count returns the number of stored users
func (r *InMemoryUserRepository) Count(ctx context.Context) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return int64(len(r.users)), nil
}

// SeedUser adds a user directly (for testing/initialization)
func (r *InMemoryUserRepository) SeedUser(u User) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}
	r.users[normalizeEmail(u.Email)] = u
}
