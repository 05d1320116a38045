// Package cache provides the time-bounded memoization layer the calling
// layer wraps around the enrich→filter pipeline. The core engines are pure
// and cache-free; this cache is keyed by (table fingerprint, config
// fingerprint) and supports an explicit TTL and manual invalidation.
package cache

import (
	"sync"
	"time"
)

// Entry is one cached value with its expiry.
type entry[V any] struct {
	value   V
	expires time.Time
}

// TTLCache is a fingerprint-keyed cache with a fixed time-to-live.
type TTLCache[V any] struct {
	mu      sync.RWMutex
	ttl     time.Duration
	now     func() time.Time
	entries map[string]entry[V]
}

// New creates a cache with the given TTL. A non-positive TTL disables
// caching entirely: Get always misses.
func New[V any](ttl time.Duration) *TTLCache[V] {
	return &TTLCache[V]{
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]entry[V]),
	}
}

// WithClock sets a custom clock for deterministic tests.
func (c *TTLCache[V]) WithClock(now func() time.Time) *TTLCache[V] {
	c.now = now
	return c
}

// Get returns the cached value for key if present and unexpired.
func (c *TTLCache[V]) Get(key string) (V, bool) {
	var zero V
	if c.ttl <= 0 {
		return zero, false
	}

	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok || c.now().After(e.expires) {
		return zero, false
	}
	return e.value, true
}

// Put stores value under key with the configured TTL.
func (c *TTLCache[V]) Put(key string, value V) {
	if c.ttl <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = entry[V]{value: value, expires: c.now().Add(c.ttl)}
}

// GetOrCompute returns the cached value for key, computing and storing it on
// a miss. compute runs outside the lock; concurrent misses may compute more
// than once, which is safe because the pipeline is idempotent.
func (c *TTLCache[V]) GetOrCompute(key string, compute func() V) V {
	if v, ok := c.Get(key); ok {
		return v
	}
	v := compute()
	c.Put(key, v)
	return v
}

// Invalidate drops one key, forcing the next Get to miss.
func (c *TTLCache[V]) Invalidate(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

// InvalidateAll drops every entry, e.g. after a data refresh.
func (c *TTLCache[V]) InvalidateAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]entry[V])
}

// Len reports the number of stored entries, expired ones included.
func (c *TTLCache[V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
