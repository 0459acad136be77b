// Package dedup provides a bounded, insertion-ordered set of recently seen
// identifiers. When full, inserting evicts the oldest identifier. Lookups
// never refresh an entry, so eviction order is strict FIFO.
package dedup

import (
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultCapacity is the number of identifiers held by default.
const DefaultCapacity = 100000

// Cache is a FIFO set of identifiers. It is safe for concurrent use.
type Cache[K comparable] struct {
	set *lru.Cache[K, struct{}]
}

// New creates a cache holding at most capacity identifiers.
func New[K comparable](capacity int) (*Cache[K], error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("dedup capacity must be positive, got %d", capacity)
	}
	set, err := lru.New[K, struct{}](capacity)
	if err != nil {
		return nil, fmt.Errorf("dedup: %w", err)
	}
	return &Cache[K]{set: set}, nil
}

// Contains reports whether id is held. It does not affect eviction order.
func (c *Cache[K]) Contains(id K) bool {
	return c.set.Contains(id)
}

// Insert records id, evicting the oldest entry when over capacity.
// Inserting an id that is already held is a no-op.
func (c *Cache[K]) Insert(id K) {
	c.set.ContainsOrAdd(id, struct{}{})
}

// Seen records id and reports whether it was already held, as one step.
func (c *Cache[K]) Seen(id K) bool {
	held, _ := c.set.ContainsOrAdd(id, struct{}{})
	return held
}

// Len returns the number of held identifiers.
func (c *Cache[K]) Len() int {
	return c.set.Len()
}

// Purge drops every identifier.
func (c *Cache[K]) Purge() {
	c.set.Purge()
}
