// Package ratelimit throttles outbound tracking events per event kind.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Limiter is the interface for rate limiting
type Limiter interface {
	// Allow checks if one event is allowed for the given key
	Allow(ctx context.Context, key string) bool
}

// Config holds rate limiter configuration
type Config struct {
	// EventsPerSecond is the sustained rate allowed per key
	EventsPerSecond float64

	// Burst is the maximum burst size
	Burst int

	// Enabled indicates whether rate limiting is enabled
	Enabled bool

	// Now returns the current time (default: time.Now)
	Now func() time.Time
}

// DefaultConfig returns a default rate limiter configuration
func DefaultConfig() *Config {
	return &Config{
		EventsPerSecond: 50,
		Burst:           100,
		Enabled:         true,
		Now:             time.Now,
	}
}

// tokenBucket implements the token bucket rate limiting algorithm
type tokenBucket struct {
	mu     sync.Mutex
	config *Config
	now    func() time.Time

	// buckets maps keys to their token buckets
	buckets map[string]*bucket

	// cleanupInterval is how often to drop idle buckets
	cleanupInterval time.Duration
	lastCleanup     time.Time
}

// bucket represents a single token bucket
type bucket struct {
	tokens         float64
	lastRefillTime time.Time
}

// NewTokenBucket creates a new token bucket rate limiter
func NewTokenBucket(config *Config) Limiter {
	if config == nil {
		config = DefaultConfig()
	}
	now := config.Now
	if now == nil {
		now = time.Now
	}

	return &tokenBucket{
		config:          config,
		now:             now,
		buckets:         make(map[string]*bucket),
		cleanupInterval: 5 * time.Minute,
		lastCleanup:     now(),
	}
}

// Allow checks if an event is allowed and takes a token if so
func (tb *tokenBucket) Allow(ctx context.Context, key string) bool {
	if !tb.config.Enabled {
		return true
	}

	tb.mu.Lock()
	defer tb.mu.Unlock()

	now := tb.now()

	if now.Sub(tb.lastCleanup) > tb.cleanupInterval {
		tb.cleanup(now)
	}

	b, exists := tb.buckets[key]
	if !exists {
		b = &bucket{
			tokens:         float64(tb.config.Burst),
			lastRefillTime: now,
		}
		tb.buckets[key] = b
	}

	elapsed := now.Sub(b.lastRefillTime).Seconds()
	b.tokens = min(b.tokens+elapsed*tb.config.EventsPerSecond, float64(tb.config.Burst))
	b.lastRefillTime = now

	if b.tokens >= 1 {
		b.tokens--
		return true
	}

	return false
}

// cleanup removes buckets that haven't been used recently
func (tb *tokenBucket) cleanup(now time.Time) {
	threshold := 10 * time.Minute

	for key, b := range tb.buckets {
		if now.Sub(b.lastRefillTime) > threshold {
			delete(tb.buckets, key)
		}
	}

	tb.lastCleanup = now
}
