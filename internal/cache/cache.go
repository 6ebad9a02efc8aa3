// Package cache is a small in-process TTL cache for read-heavy endpoints.
package cache

import (
	"sync"
	"time"
)

// Cache defines a minimal key-value cache API with a TTL per entry.
type Cache[K comparable, V any] interface {
	// Get returns the value and whether it was present and not expired.
	Get(key K) (V, bool)

	// Set stores the value. If ttl <= 0, the entry does not expire.
	Set(key K, value V, ttl time.Duration)

	// Delete removes a key if present.
	Delete(key K)

	// Len returns the number of non-expired items currently stored.
	Len() int
}

type entry[V any] struct {
	value     V
	expiresAt time.Time // zero means no expiration
}

func (e entry[V]) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && now.After(e.expiresAt)
}

// TTLCache is a map-backed Cache safe for concurrent use. Expired entries
// are dropped lazily on access or by PurgeExpired.
type TTLCache[K comparable, V any] struct {
	mu    sync.RWMutex
	items map[K]entry[V]
	now   func() time.Time

	loadMu sync.Mutex
}

// New returns an empty cache.
func New[K comparable, V any]() *TTLCache[K, V] {
	return &TTLCache[K, V]{items: make(map[K]entry[V]), now: time.Now}
}

// Get implements Cache.Get.
func (c *TTLCache[K, V]) Get(key K) (V, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var zero V
	e, ok := c.items[key]
	if !ok || e.expired(c.now()) {
		return zero, false
	}
	return e.value, true
}

// Set implements Cache.Set.
func (c *TTLCache[K, V]) Set(key K, value V, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var exp time.Time
	if ttl > 0 {
		exp = c.now().Add(ttl)
	}
	c.items[key] = entry[V]{value: value, expiresAt: exp}
}

// Delete implements Cache.Delete.
func (c *TTLCache[K, V]) Delete(key K) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.items, key)
}

// Len implements Cache.Len.
func (c *TTLCache[K, V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	now := c.now()
	count := 0
	for _, e := range c.items {
		if !e.expired(now) {
			count++
		}
	}
	return count
}

// Clear removes all entries.
func (c *TTLCache[K, V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = make(map[K]entry[V])
}

// PurgeExpired removes expired entries.
func (c *TTLCache[K, V]) PurgeExpired() {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	for k, e := range c.items {
		if e.expired(now) {
			delete(c.items, k)
		}
	}
}

// GetOrLoad returns the cached value for key, calling load on a miss and
// caching its result for ttl. Loads are serialized so concurrent misses
// call load once. A load error is returned and nothing is cached.
func (c *TTLCache[K, V]) GetOrLoad(key K, ttl time.Duration, load func() (V, error)) (V, error) {
	if v, ok := c.Get(key); ok {
		return v, nil
	}

	c.loadMu.Lock()
	defer c.loadMu.Unlock()
	if v, ok := c.Get(key); ok {
		return v, nil
	}

	v, err := load()
	if err != nil {
		var zero V
		return zero, err
	}
	c.Set(key, v, ttl)
	return v, nil
}

var _ Cache[string, any] = (*TTLCache[string, any])(nil)
