// Package plancache provides bounded caching for request-derived narrowed
// load plans. Full plans are keyed by the finite startup-known schema set and
// live elsewhere; this cache is keyed by caller-supplied field paths and must
// therefore be bounded and eviction-governed.
package plancache

import (
	"context"
	"time"
)

// Cache defines the interface for narrowed-plan cache backends.
type Cache interface {
	// Get retrieves a value from the cache.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores a value in the cache with a TTL. A zero TTL means the
	// backend's default; a negative TTL means no expiry.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes a value from the cache.
	Delete(ctx context.Context, key string) error

	// Clear removes all values from the cache.
	Clear(ctx context.Context) error

	// Exists checks if a key exists in the cache.
	Exists(ctx context.Context, key string) (bool, error)
}

// Config holds common configuration for cache backends.
type Config struct {
	// Capacity bounds the number of cached entries (memory backend only).
	Capacity int
	// DefaultTTL is the default time-to-live for cached items.
	DefaultTTL time.Duration
	// Prefix is prepended to all cache keys.
	Prefix string
}

// DefaultConfig returns a default cache configuration.
func DefaultConfig() Config {
	return Config{
		Capacity:   1024,
		DefaultTTL: 5 * time.Minute,
		Prefix:     "fieldlens:",
	}
}

// ErrCacheMiss is returned when a key is not found in the cache.
type ErrCacheMiss struct {
	Key string
}

func (e ErrCacheMiss) Error() string {
	return "cache miss: " + e.Key
}

// IsCacheMiss checks if an error is a cache miss.
func IsCacheMiss(err error) bool {
	_, ok := err.(ErrCacheMiss)
	return ok
}
