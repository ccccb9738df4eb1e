package tokengenerator

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateToken(t *testing.T) {
	gen := NewJwtTokenGenerator("test-secret", "simple-auth", "http://localhost:3000")

	token, expiry, err := gen.GenerateToken("a@b.com", "A", time.Hour)
	assert.NoError(t, err, "GenerateToken should not return an error")
	assert.NotEmpty(t, token, "Token should not be empty")
	assert.WithinDuration(t, time.Now().UTC().Add(time.Hour), expiry, time.Second, "Token expiry should be 1 hour from now")
}

func TestParseTokenRoundTrip(t *testing.T) {
	gen := NewJwtTokenGenerator("test-secret", "simple-auth", "http://localhost:3000")

	token, _, err := gen.GenerateToken("a@b.com", "A", time.Hour)
	require.NoError(t, err)

	claims, err := gen.ParseToken(token)
	assert.NoError(t, err, "ParseToken should not return an error")
	assert.Equal(t, "a@b.com", claims.Email, "Email should round-trip")
	assert.Equal(t, "A", claims.Name, "Name should round-trip")
	assert.Equal(t, "simple-auth", claims.Issuer)
}

func TestParseExpiredToken(t *testing.T) {
	gen := NewJwtTokenGenerator("test-secret", "simple-auth", "http://localhost:3000")

	// Expiry in the past, signature still valid
	token, _, err := gen.GenerateToken("a@b.com", "A", -time.Minute)
	require.NoError(t, err)

	_, err = gen.ParseToken(token)
	assert.Error(t, err, "ParseToken should fail for expired token")
	assert.ErrorIs(t, err, jwt.ErrTokenExpired, "Failure reason should be expiry")
}

func TestParseTamperedToken(t *testing.T) {
	gen := NewJwtTokenGenerator("test-secret", "simple-auth", "http://localhost:3000")

	token, _, err := gen.GenerateToken("a@b.com", "A", time.Hour)
	require.NoError(t, err)

	tampered := token[:len(token)-2] + "xx"
	_, err = gen.ParseToken(tampered)
	assert.Error(t, err, "ParseToken should fail for tampered token")
}

func TestParseTokenWrongSecret(t *testing.T) {
	gen := NewJwtTokenGenerator("test-secret", "simple-auth", "http://localhost:3000")
	other := NewJwtTokenGenerator("other-secret", "simple-auth", "http://localhost:3000")

	token, _, err := gen.GenerateToken("a@b.com", "A", time.Hour)
	require.NoError(t, err)

	_, err = other.ParseToken(token)
	assert.Error(t, err, "Token signed with a different secret should not verify")
}

func TestTokenService(t *testing.T) {
	gen := NewJwtTokenGenerator("test-secret", "simple-auth", "http://localhost:3000")

	t.Run("DefaultExpiry", func(t *testing.T) {
		svc := NewTokenService(gen)
		assert.Equal(t, DefaultTokenExpiry, svc.Expiry())

		token, expiry, err := svc.Issue("a@b.com", "A")
		require.NoError(t, err)
		assert.WithinDuration(t, time.Now().UTC().Add(24*time.Hour), expiry, time.Second)

		claims, err := svc.Verify(token)
		require.NoError(t, err)
		assert.Equal(t, "a@b.com", claims.Email)
		assert.Equal(t, "A", claims.Name)
	})

	t.Run("ConfiguredExpiry", func(t *testing.T) {
		svc := NewTokenService(gen, WithTokenExpiry(15*time.Minute))

		_, expiry, err := svc.Issue("a@b.com", "A")
		require.NoError(t, err)
		assert.WithinDuration(t, time.Now().UTC().Add(15*time.Minute), expiry, time.Second)
	})
}
