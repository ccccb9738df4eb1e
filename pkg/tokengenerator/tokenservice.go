package tokengenerator

import (
	"time"
)

// DefaultTokenExpiry is the session token lifetime used when none is configured.
const DefaultTokenExpiry = 24 * time.Hour

// TokenService issues and verifies session tokens with a fixed expiry window.
// Sessions are stateless: validity is determined purely by signature and expiry
// at verification time, so there is no revocation short of natural expiry.
type TokenService struct {
	generator TokenGenerator
	expiry    time.Duration
}

// TokenServiceOption is a function that configures a TokenService
type TokenServiceOption func(*TokenService)

// WithTokenExpiry sets the session token expiry duration
func WithTokenExpiry(expiry time.Duration) TokenServiceOption {
	return func(s *TokenService) {
		s.expiry = expiry
	}
}

// NewTokenService creates a new TokenService around a generator
func NewTokenService(generator TokenGenerator, options ...TokenServiceOption) *TokenService {
	s := &TokenService{
		generator: generator,
		expiry:    DefaultTokenExpiry,
	}

	for _, option := range options {
		option(s)
	}

	return s
}

// Issue creates a session token for the given identity
func (s *TokenService) Issue(email, name string) (string, time.Time, error) {
	return s.generator.GenerateToken(email, name, s.expiry)
}

// Verify parses a session token and returns its claims
func (s *TokenService) Verify(tokenStr string) (*Claims, error) {
	return s.generator.ParseToken(tokenStr)
}

// Expiry returns the configured token lifetime
func (s *TokenService) Expiry() time.Duration {
	return s.expiry
}
