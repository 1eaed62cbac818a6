package ecsruntime

import "fmt"

// Cache is a capacity-bounded, string-keyed registry returning dense
// integer indices, for callers that resolve string keys once and index
// thereafter (cached queries, named storages).
type Cache[T any] struct {
	items       []T
	itemIndices map[string]int
	maxCapacity int
}

// NewCache returns an empty Cache bounded to cap entries.
func NewCache[T any](cap int) *Cache[T] {
	return &Cache[T]{
		itemIndices: make(map[string]int),
		maxCapacity: cap,
	}
}

// GetIndex returns key's dense index and whether it is registered.
func (c *Cache[T]) GetIndex(key string) (int, bool) {
	idx, ok := c.itemIndices[key]
	return idx, ok
}

// GetItem returns a pointer to the item at idx.
func (c *Cache[T]) GetItem(idx int) *T {
	return &c.items[idx]
}

// GetItem32 is GetItem for a uint32 index.
func (c *Cache[T]) GetItem32(idx uint32) *T {
	return &c.items[idx]
}

// Register inserts item under key, or reports the capacity error if the
// cache is full.
func (c *Cache[T]) Register(key string, item T) (int, error) {
	if existing, ok := c.itemIndices[key]; ok {
		c.items[existing] = item
		return existing, nil
	}
	if len(c.itemIndices) >= c.maxCapacity {
		return -1, fmt.Errorf("ecsruntime: cache at maximum capacity (%d)", c.maxCapacity)
	}
	idx := len(c.items)
	c.itemIndices[key] = idx
	c.items = append(c.items, item)
	return idx, nil
}

// Clear empties the cache.
func (c *Cache[T]) Clear() {
	c.items = nil
	c.itemIndices = make(map[string]int)
}

// Len returns the number of registered items.
func (c *Cache[T]) Len() int {
	return len(c.items)
}
