package plancache

import (
	"context"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Memory implements an in-process, LRU-bounded cache. Once the configured
// capacity is reached the least-recently-used entry is evicted. The
// underlying LRU is safe for concurrent use; duplicate concurrent stores for
// the same key simply last-write-win.
type Memory struct {
	entries *lru.Cache[string, memoryItem]
	config  Config
}

// memoryItem is an entry stored in the memory cache.
type memoryItem struct {
	value      []byte
	expiration time.Time
}

// NewMemory creates a memory cache with the default configuration.
func NewMemory() *Memory {
	return NewMemoryWithConfig(DefaultConfig())
}

// NewMemoryWithConfig creates a memory cache with custom configuration.
func NewMemoryWithConfig(config Config) *Memory {
	if config.Capacity <= 0 {
		config.Capacity = DefaultConfig().Capacity
	}
	// lru.New only fails on a non-positive size, which is guarded above.
	entries, _ := lru.New[string, memoryItem](config.Capacity)
	return &Memory{
		entries: entries,
		config:  config,
	}
}

// Get retrieves a value from the cache.
func (m *Memory) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	fullKey := m.config.Prefix + key
	item, ok := m.entries.Get(fullKey)
	if !ok {
		return nil, ErrCacheMiss{Key: key}
	}

	if !item.expiration.IsZero() && time.Now().After(item.expiration) {
		m.entries.Remove(fullKey)
		return nil, ErrCacheMiss{Key: key}
	}

	return item.value, nil
}

// Set stores a value in the cache with a TTL.
func (m *Memory) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if ttl == 0 {
		ttl = m.config.DefaultTTL
	}

	item := memoryItem{value: value}
	if ttl > 0 {
		item.expiration = time.Now().Add(ttl)
	}

	m.entries.Add(m.config.Prefix+key, item)
	return nil
}

// Delete removes a value from the cache.
func (m *Memory) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.entries.Remove(m.config.Prefix + key)
	return nil
}

// Clear removes all values from the cache.
func (m *Memory) Clear(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.entries.Purge()
	return nil
}

// Exists checks if a key exists in the cache.
func (m *Memory) Exists(ctx context.Context, key string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	_, err := m.Get(ctx, key)
	if err != nil {
		if IsCacheMiss(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Len returns the number of live entries.
func (m *Memory) Len() int {
	return m.entries.Len()
}
