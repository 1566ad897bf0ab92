// Package cache provides a small bounded TTL cache for hot-path lookups.
package cache

import (
	"sync"
	"time"
)

// TTLCache is a bounded in-memory cache with per-entry expiry. When full it
// evicts the entry closest to expiry. Safe for concurrent use.
type TTLCache[K comparable, V any] struct {
	mu         sync.Mutex
	entries    map[K]entry[V]
	maxEntries int
	now        func() time.Time
}

type entry[V any] struct {
	value     V
	expiresAt time.Time
}

type Option[K comparable, V any] func(*TTLCache[K, V])

// WithNow injects the time source, for tests.
func WithNow[K comparable, V any](now func() time.Time) Option[K, V] {
	return func(c *TTLCache[K, V]) { c.now = now }
}

func NewTTLCache[K comparable, V any](maxEntries int, opts ...Option[K, V]) *TTLCache[K, V] {
	if maxEntries <= 0 {
		maxEntries = 1024
	}
	c := &TTLCache[K, V]{
		entries:    make(map[K]entry[V]),
		maxEntries: maxEntries,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *TTLCache[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero V
	e, ok := c.entries[key]
	if !ok {
		return zero, false
	}
	if c.now().After(e.expiresAt) {
		delete(c.entries, key)
		return zero, false
	}
	return e.value, true
}

func (c *TTLCache[K, V]) Set(key K, value V, ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[key]; !exists && len(c.entries) >= c.maxEntries {
		c.evictSoonest()
	}
	c.entries[key] = entry[V]{value: value, expiresAt: c.now().Add(ttl)}
}

// Invalidate drops one key.
func (c *TTLCache[K, V]) Invalidate(key K) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

// Len reports the number of stored entries, expired or not.
func (c *TTLCache[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *TTLCache[K, V]) evictSoonest() {
	var victim K
	var victimExpiry time.Time
	first := true
	for k, e := range c.entries {
		if first || e.expiresAt.Before(victimExpiry) {
			victim = k
			victimExpiry = e.expiresAt
			first = false
		}
	}
	if !first {
		delete(c.entries, victim)
	}
}
