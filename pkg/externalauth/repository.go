package externalauth

import (
	"context"
	"time"
)

// OAuth2State represents the per-attempt state nonce sent to the external
// authorization endpoint and expected back on callback.
type OAuth2State struct {
	State     string    `json:"state"`
	ExpiresAt time.Time `json:"expires_at"`
}

// StateRepository stores pending OAuth2 states. States are single use: a
// successful Consume removes the state so a replayed callback fails.
type StateRepository interface {
	// StoreState records a pending state
	StoreState(ctx context.Context, state *OAuth2State) error

	// ConsumeState validates and removes a state, failing with ErrStateNotFound
	// for unknown, already-used, or expired states
	ConsumeState(ctx context.Context, state string) (*OAuth2State, error)

	// CleanupExpiredStates removes states past their expiry
	CleanupExpiredStates(ctx context.Context) error
}
