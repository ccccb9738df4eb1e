package externalauth

import (
	"context"
	"sync"
	"time"
)

// InMemoryStateRepository implements StateRepository using in-memory storage
type InMemoryStateRepository struct {
	mu     sync.Mutex
	states map[string]*OAuth2State
}

// NewInMemoryStateRepository creates a new in-memory state repository
func NewInMemoryStateRepository() *InMemoryStateRepository {
	return &InMemoryStateRepository{
		states: make(map[string]*OAuth2State),
	}
}

// StoreState records a pending state
func (r *InMemoryStateRepository) StoreState(ctx context.Context, state *OAuth2State) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.states[state.State] = state
	return nil
}

// ConsumeState validates and removes a state
func (r *InMemoryStateRepository) ConsumeState(ctx context.Context, state string) (*OAuth2State, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.states[state]
	if !ok {
		return nil, ErrStateNotFound
	}

	delete(r.states, state)

	if time.Now().After(s.ExpiresAt) {
		return nil, ErrStateNotFound
	}
	return s, nil
}

// CleanupExpiredStates removes states past their expiry
func (r *InMemoryStateRepository) CleanupExpiredStates(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	for key, s := range r.states {
		if now.After(s.ExpiresAt) {
			delete(r.states, key)
		}
	}
	return nil
}
