package marketdata

import (
	"sync"
	"time"
)

// cacheEntry pairs a value with its creation time.
type cacheEntry[T any] struct {
	value     T
	createdAt time.Time
}

// Cache is a mutex-guarded in-memory TTL cache. An entry is valid while
// now - createdAt < ttl; expired entries are evicted on read. The clock is
// injectable so tests can control expiry.
type Cache[T any] struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[string]cacheEntry[T]
	now     func() time.Time
}

// NewCache creates an empty cache with the given TTL.
func NewCache[T any](ttl time.Duration) *Cache[T] {
	return &Cache[T]{
		ttl:     ttl,
		entries: make(map[string]cacheEntry[T]),
		now:     time.Now,
	}
}

// WithClock replaces the cache's time source. Test hook.
func (c *Cache[T]) WithClock(now func() time.Time) *Cache[T] {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = now
	return c
}

// Get returns the value for key if present and unexpired. An expired entry
// is removed before reporting a miss.
func (c *Cache[T]) Get(key string) (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		var zero T
		return zero, false
	}

	if c.now().Sub(e.createdAt) >= c.ttl {
		delete(c.entries, key)
		var zero T
		return zero, false
	}

	return e.value, true
}

// Put stores value under key, replacing any previous entry.
func (c *Cache[T]) Put(key string, value T) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = cacheEntry[T]{value: value, createdAt: c.now()}
}

// Delete removes key from the cache.
func (c *Cache[T]) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.entries, key)
}

// Clear removes all entries.
func (c *Cache[T]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]cacheEntry[T])
}

// Len returns the number of stored entries, expired ones included.
func (c *Cache[T]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.entries)
}

// Sweep removes every expired entry and returns how many were dropped.
// Called periodically by the maintenance scheduler.
func (c *Cache[T]) Sweep() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	count := 0
	for key, e := range c.entries {
		if now.Sub(e.createdAt) >= c.ttl {
			delete(c.entries, key)
			count++
		}
	}
	return count
}
