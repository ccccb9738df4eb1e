package ratelimit

import (
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// Config holds rate limiting settings for the auth endpoints
type Config struct {
	// Capacity is the burst of requests allowed per client
	Capacity int

	// RefillRate is how many requests per second each client regains
	RefillRate float64

	// BucketTTL is how long idle client buckets stay in memory
	BucketTTL time.Duration
}

// DefaultConfig allows each client 10 auth attempts per minute with a burst
// of 10, which is generous for humans and hostile to credential stuffing.
func DefaultConfig() *Config {
	return &Config{
		Capacity:   10,
		RefillRate: 10.0 / 60.0,
		BucketTTL:  time.Hour,
	}
}

// Middleware limits requests per client IP
type Middleware struct {
	config  *Config
	limiter *Limiter
}

// NewMiddleware creates a rate limiting middleware
func NewMiddleware(config *Config) *Middleware {
	if config == nil {
		config = DefaultConfig()
	}
	return &Middleware{
		config:  config,
		limiter: NewLimiter(config.Capacity, config.RefillRate, config.BucketTTL),
	}
}

// Handler enforces the per-client limit, exposing the allowance through
// X-RateLimit headers and answering exhausted clients with 429.
func (m *Middleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := clientIP(r)

		allowed, remaining := m.limiter.Allow(key)
		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(m.config.Capacity))
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))

		if !allowed {
			slog.Warn("Rate limit exceeded", "ip", key, "path", r.URL.Path, "method", r.Method)

			w.Header().Set("Retry-After", "60")
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			_ = json.NewEncoder(w).Encode(map[string]string{
				"error":   "Too many requests",
				"message": "Rate limit exceeded. Please try again later.",
			})
			return
		}

		next.ServeHTTP(w, r)
	})
}

// Reset restores the full allowance for a client IP
func (m *Middleware) Reset(ip string) {
	m.limiter.Reset(ip)
}

// clientIP extracts the client address, honoring proxy headers
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
