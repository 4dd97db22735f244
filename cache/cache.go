// Package cache provides a small in-memory TTL cache shared by the reputation
// aggregator and the external intel clients.
//
// Expired entries are dropped lazily when read; there is no background sweeper.
// Concurrent writers for the same key simply overwrite each other.
package cache

import (
	"sync"
	"time"
)

type entry[V any] struct {
	value     V
	createdAt time.Time
	expiresAt time.Time
}

// Stats reports the cache population at the time of the call.
type Stats struct {
	Active  int    `json:"active_items"`
	Expired int    `json:"expired_items"`
	Total   int    `json:"total_items"`
	Hits    int64  `json:"hits"`
	Misses  int64  `json:"misses"`
	TTL     string `json:"default_ttl"`
}

// Cache maps keys to values that expire after a TTL.
type Cache[K comparable, V any] struct {
	mu     sync.Mutex
	items  map[K]entry[V]
	ttl    time.Duration
	hits   int64
	misses int64

	now func() time.Time
}

// New creates a cache whose entries live for ttl unless SetTTL says otherwise.
func New[K comparable, V any](ttl time.Duration) *Cache[K, V] {
	return &Cache[K, V]{
		items: make(map[K]entry[V]),
		ttl:   ttl,
		now:   time.Now,
	}
}

// WithClock replaces the time source. Meant for tests.
func (c *Cache[K, V]) WithClock(now func() time.Time) *Cache[K, V] {
	c.mu.Lock()
	c.now = now
	c.mu.Unlock()
	return c
}

// Get returns the value for key. An expired entry counts as a miss and is removed.
func (c *Cache[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.items[key]
	if !ok {
		c.misses++
		var zero V
		return zero, false
	}
	if !c.now().Before(e.expiresAt) {
		delete(c.items, key)
		c.misses++
		var zero V
		return zero, false
	}
	c.hits++
	return e.value, true
}

// Set stores value under key with the default TTL.
func (c *Cache[K, V]) Set(key K, value V) {
	c.SetTTL(key, value, c.ttl)
}

// SetTTL stores value under key for ttl. A non-positive ttl falls back to the default.
func (c *Cache[K, V]) SetTTL(key K, value V, ttl time.Duration) {
	if ttl <= 0 {
		ttl = c.ttl
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	c.items[key] = entry[V]{
		value:     value,
		createdAt: now,
		expiresAt: now.Add(ttl),
	}
}

func (c *Cache[K, V]) Delete(key K) {
	c.mu.Lock()
	delete(c.items, key)
	c.mu.Unlock()
}

// Clear drops every entry and resets the hit counters.
func (c *Cache[K, V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items = make(map[K]entry[V])
	c.hits = 0
	c.misses = 0
}

// Stats counts active and expired entries without evicting anything.
func (c *Cache[K, V]) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	s := Stats{
		Total:  len(c.items),
		Hits:   c.hits,
		Misses: c.misses,
		TTL:    c.ttl.String(),
	}
	for _, e := range c.items {
		if now.Before(e.expiresAt) {
			s.Active++
		} else {
			s.Expired++
		}
	}
	return s
}
