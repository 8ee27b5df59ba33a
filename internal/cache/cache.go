// Package cache provides the in-process result cache used to memoize
// expensive retrieval calls.
package cache

import (
	"container/list"
	"sync"
	"time"
)

// Options configures a TTL cache.
type Options struct {
	// Capacity bounds the number of live entries. Zero or negative means unbounded.
	Capacity int
	// Now overrides the clock, mainly for tests.
	Now func() time.Time
}

type entry[V any] struct {
	key       string
	value     V
	expiresAt time.Time
	elem      *list.Element
}

// TTL is a string-keyed cache whose entries expire at an absolute instant.
// Expired entries are never returned and are purged lazily on lookup.
// When a capacity is set, the least recently used entry is evicted on overflow.
type TTL[V any] struct {
	mu       sync.Mutex
	items    map[string]*entry[V]
	order    *list.List // front = most recently used
	capacity int
	now      func() time.Time
}

// New creates an empty cache.
func New[V any](opts Options) *TTL[V] {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &TTL[V]{
		items:    make(map[string]*entry[V]),
		order:    list.New(),
		capacity: opts.Capacity,
		now:      now,
	}
}

// Get returns the value stored under key if it has not expired.
func (c *TTL[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero V
	e, ok := c.items[key]
	if !ok {
		return zero, false
	}
	if c.now().After(e.expiresAt) {
		c.remove(e)
		return zero, false
	}
	c.order.MoveToFront(e.elem)
	return e.value, true
}

// Set stores value under key for ttl. A non-positive ttl stores nothing.
func (c *TTL[V]) Set(key string, value V, ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	expiresAt := c.now().Add(ttl)
	if e, ok := c.items[key]; ok {
		e.value = value
		e.expiresAt = expiresAt
		c.order.MoveToFront(e.elem)
		return
	}

	e := &entry[V]{key: key, value: value, expiresAt: expiresAt}
	e.elem = c.order.PushFront(e)
	c.items[key] = e

	if c.capacity > 0 && len(c.items) > c.capacity {
		if oldest := c.order.Back(); oldest != nil {
			c.remove(oldest.Value.(*entry[V]))
		}
	}
}

// Delete drops key from the cache.
func (c *TTL[V]) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.items[key]; ok {
		c.remove(e)
	}
}

// Len reports the number of stored entries, including expired ones that
// have not been looked up yet.
func (c *TTL[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

func (c *TTL[V]) remove(e *entry[V]) {
	c.order.Remove(e.elem)
	delete(c.items, e.key)
}
