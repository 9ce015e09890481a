// Package cache holds the recommendation client's response cache.
//
// Entries are keyed by a structural Key rather than an ad hoc string, so two
// logically identical queries always collide and two different ones never do.
// Expiry is lazy: a stale entry is treated as absent on lookup and removed
// then, not at the exact moment its TTL elapses.
package cache

import (
	"context"
	"time"
)

// DefaultTTL is how long a cached response stays valid
const DefaultTTL = 5 * time.Minute

// Cache is the interface for response caching
type Cache interface {
	// Get retrieves a value from the cache
	Get(ctx context.Context, key Key) ([]byte, bool)

	// Set stores a value in the cache, stamping it with the current time
	Set(ctx context.Context, key Key, value []byte) error

	// Delete removes a value from the cache
	Delete(ctx context.Context, key Key) error

	// Clear removes all values from the cache
	Clear(ctx context.Context) error

	// Stats returns cache statistics
	Stats() CacheStats
}

// CacheStats represents cache statistics
type CacheStats struct {
	Hits   uint64
	Misses uint64
	Items  uint64
}

// HitRate returns hits / (hits + misses), or 0 when nothing was looked up
func (s CacheStats) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}

// Config holds cache configuration
type Config struct {
	// TTL is how long an entry stays valid after it is stored (default: 5 minutes)
	TTL time.Duration

	// MaxItems bounds the number of entries; 0 means unbounded
	MaxItems int

	// Now returns the current time (default: time.Now)
	Now func() time.Time
}

// DefaultConfig returns a default cache configuration
func DefaultConfig() *Config {
	return &Config{
		TTL:      DefaultTTL,
		MaxItems: 0,
		Now:      time.Now,
	}
}
