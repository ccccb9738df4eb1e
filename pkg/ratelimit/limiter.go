package ratelimit

import (
	"sync"
	"time"
)

// bucket is a token bucket tracking remaining allowance for one client
type bucket struct {
	tokens     float64
	lastRefill time.Time
}

// Limiter applies a token-bucket limit per client key. Each key gets a burst
// of Capacity requests, refilled at RefillRate tokens per second. Buckets for
// idle clients are dropped after the TTL.
type Limiter struct {
	capacity   int
	refillRate float64
	ttl        time.Duration

	mu      sync.Mutex
	buckets map[string]*bucket

	// now is swappable for tests
	now func() time.Time
}

// NewLimiter creates a per-key limiter allowing a burst of capacity requests
// refilled at refillRate per second. A ttl of 0 keeps idle buckets forever.
func NewLimiter(capacity int, refillRate float64, ttl time.Duration) *Limiter {
	l := &Limiter{
		capacity:   capacity,
		refillRate: refillRate,
		ttl:        ttl,
		buckets:    make(map[string]*bucket),
		now:        time.Now,
	}

	if ttl > 0 {
		go l.cleanup()
	}

	return l
}

// Allow reports whether a request for the key is within the limit, and the
// number of requests still available afterwards.
func (l *Limiter) Allow(key string) (allowed bool, remaining int) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	b, ok := l.buckets[key]
	if !ok {
		b = &bucket{tokens: float64(l.capacity), lastRefill: now}
		l.buckets[key] = b
	} else {
		elapsed := now.Sub(b.lastRefill).Seconds()
		b.tokens = min(float64(l.capacity), b.tokens+elapsed*l.refillRate)
		b.lastRefill = now
	}

	if b.tokens >= 1.0 {
		b.tokens -= 1.0
		return true, int(b.tokens)
	}
	return false, 0
}

// Capacity returns the configured burst size
func (l *Limiter) Capacity() int {
	return l.capacity
}

// Reset restores the full allowance for a key
func (l *Limiter) Reset(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.buckets, key)
}

// ActiveKeys returns the number of tracked client buckets
func (l *Limiter) ActiveKeys() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.buckets)
}

// cleanup periodically drops buckets idle longer than the TTL
func (l *Limiter) cleanup() {
	ticker := time.NewTicker(l.ttl)
	defer ticker.Stop()

	for range ticker.C {
		l.mu.Lock()
		cutoff := l.now().Add(-l.ttl)
		for key, b := range l.buckets {
			if b.lastRefill.Before(cutoff) {
				delete(l.buckets, key)
			}
		}
		l.mu.Unlock()
	}
}
