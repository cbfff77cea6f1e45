package cache

import (
	"context"
	"sync"
	"time"
)

// CacheEntry is a cached value with its absolute expiry
type CacheEntry struct {
	Value     []byte
	ExpiresAt time.Time
}

func (e CacheEntry) expired(now time.Time) bool {
	return !now.Before(e.ExpiresAt)
}

// MemoryCache is a thread-safe in-memory Store. Expiry is checked lazily on read;
// CleanExpired reclaims memory held by entries nobody reads again.
type MemoryCache struct {
	entries map[string]CacheEntry
	mutex   sync.RWMutex
	now     func() time.Time
}

// NewMemoryCache creates an empty memory cache
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{
		entries: make(map[string]CacheEntry),
		now:     time.Now,
	}
}

// SetClock replaces the time source, for tests
func (c *MemoryCache) SetClock(now func() time.Time) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.now = now
}

// Get returns the value for key if present and not expired
func (c *MemoryCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	entry, exists := c.entries[key]
	if !exists || entry.expired(c.now()) {
		return nil, false, nil
	}

	return entry.Value, true, nil
}

// Set stores value under key until ttl has elapsed
func (c *MemoryCache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	stored := make([]byte, len(value))
	copy(stored, value)

	c.entries[key] = CacheEntry{
		Value:     stored,
		ExpiresAt: c.now().Add(ttl),
	}
	return nil
}

// Clear clears all entries from the cache
func (c *MemoryCache) Clear() {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.entries = make(map[string]CacheEntry)
}

// Size returns the number of items in the cache, expired ones included
func (c *MemoryCache) Size() int {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	return len(c.entries)
}

// CleanExpired removes expired entries from the cache
func (c *MemoryCache) CleanExpired() int {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	count := 0
	now := c.now()

	for key, entry := range c.entries {
		if entry.expired(now) {
			delete(c.entries, key)
			count++
		}
	}

	return count
}
