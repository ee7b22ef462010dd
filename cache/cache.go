// Package cache implements a memoizing, single-flighted key/value cache:
// concurrent Get calls for the same absent key invoke compute at most
// once and share its result, built on golang.org/x/sync/singleflight.
package cache

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/singleflight"
)

// ComputeFunc produces the value for a cache miss on key.
type ComputeFunc[K comparable, V any] func(ctx context.Context, key K) (V, error)

// Cache memoizes values of type V keyed by K.
type Cache[K comparable, V any] struct {
	mu    sync.RWMutex
	items map[K]V
	group singleflight.Group
}

// New constructs an empty Cache.
func New[K comparable, V any]() *Cache[K, V] {
	return &Cache[K, V]{items: make(map[K]V)}
}

// Get returns the cached value for key, computing and caching it via
// compute if absent. Concurrent Get calls for the same key never invoke
// compute more than once.
func (c *Cache[K, V]) Get(ctx context.Context, key K, compute ComputeFunc[K, V]) (V, error) {
	c.mu.RLock()
	if v, ok := c.items[key]; ok {
		c.mu.RUnlock()
		return v, nil
	}
	c.mu.RUnlock()

	groupKey := fmt.Sprint(key)
	v, err, _ := c.group.Do(groupKey, func() (any, error) {
		// Re-check under exclusive access: another writer may have
		// inserted this key while we were waiting to become the
		// single-flight leader.
		c.mu.Lock()
		if v, ok := c.items[key]; ok {
			c.mu.Unlock()
			return v, nil
		}
		c.mu.Unlock()

		computed, err := compute(ctx, key)
		if err != nil {
			var zero V
			return zero, err
		}

		c.mu.Lock()
		c.items[key] = computed
		c.mu.Unlock()
		return computed, nil
	})
	if err != nil {
		var zero V
		return zero, err
	}
	return v.(V), nil
}

// Delete removes key from the cache, if present.
func (c *Cache[K, V]) Delete(key K) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.items, key)
}

// Len reports the number of cached entries.
func (c *Cache[K, V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}
