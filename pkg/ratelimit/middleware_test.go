package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLimiterAllow(t *testing.T) {
	now := time.Now()
	l := NewLimiter(3, 1.0, 0)
	l.now = func() time.Time { return now }

	for i := 0; i < 3; i++ {
		allowed, _ := l.Allow("client")
		assert.True(t, allowed, "request %d within burst should be allowed", i+1)
	}

	allowed, remaining := l.Allow("client")
	assert.False(t, allowed)
	assert.Zero(t, remaining)

	// an exhausted client does not affect others
	allowed, _ = l.Allow("other")
	assert.True(t, allowed)

	// after two seconds two tokens have refilled
	now = now.Add(2 * time.Second)
	allowed, _ = l.Allow("client")
	assert.True(t, allowed)
	allowed, _ = l.Allow("client")
	assert.True(t, allowed)
	allowed, _ = l.Allow("client")
	assert.False(t, allowed)
}

func TestLimiterReset(t *testing.T) {
	l := NewLimiter(1, 0.001, 0)

	allowed, _ := l.Allow("client")
	require.True(t, allowed)
	allowed, _ = l.Allow("client")
	require.False(t, allowed)

	l.Reset("client")
	allowed, _ = l.Allow("client")
	assert.True(t, allowed)
}

func TestMiddleware(t *testing.T) {
	okHandler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	t.Run("limits after burst and sets headers", func(t *testing.T) {
		m := NewMiddleware(&Config{Capacity: 2, RefillRate: 0.001, BucketTTL: 0})
		h := m.Handler(okHandler)

		do := func() *httptest.ResponseRecorder {
			req := httptest.NewRequest(http.MethodPost, "/auth/login", nil)
			req.RemoteAddr = "203.0.113.7:51234"
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			return rec
		}

		rec := do()
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "2", rec.Header().Get("X-RateLimit-Limit"))
		assert.Equal(t, "1", rec.Header().Get("X-RateLimit-Remaining"))

		rec = do()
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "0", rec.Header().Get("X-RateLimit-Remaining"))

		rec = do()
		require.Equal(t, http.StatusTooManyRequests, rec.Code)
		assert.Equal(t, "60", rec.Header().Get("Retry-After"))
		assert.Contains(t, rec.Body.String(), "Too many requests")
	})

	t.Run("clients are limited independently", func(t *testing.T) {
		m := NewMiddleware(&Config{Capacity: 1, RefillRate: 0.001, BucketTTL: 0})
		h := m.Handler(okHandler)

		do := func(addr string) *httptest.ResponseRecorder {
			req := httptest.NewRequest(http.MethodPost, "/auth/login", nil)
			req.RemoteAddr = addr
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			return rec
		}

		require.Equal(t, http.StatusOK, do("203.0.113.7:1000").Code)
		require.Equal(t, http.StatusTooManyRequests, do("203.0.113.7:2000").Code)
		assert.Equal(t, http.StatusOK, do("198.51.100.9:3000").Code)
	})
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.0.2.1:4242"
	assert.Equal(t, "192.0.2.1", clientIP(req))

	req.Header.Set("X-Real-IP", "198.51.100.2")
	assert.Equal(t, "198.51.100.2", clientIP(req))

	req.Header.Set("X-Forwarded-For", "203.0.113.5, 198.51.100.2")
	assert.Equal(t, "203.0.113.5", clientIP(req))
}
