package cache

import "container/list"

// DefaultCapacity is used when a cache is created with a non-positive capacity.
const DefaultCapacity = 100

// LRU is a capacity-bounded map that evicts the least recently used entry.
//
// LRU is not safe for concurrent use. Index readers and the indexing driver
// share caches from a single goroutine; callers that need concurrent access
// must wrap it.
type LRU[K comparable, V any] struct {
	capacity int
	items    map[K]*list.Element
	order    *list.List
}

type entry[K comparable, V any] struct {
	key   K
	value V
}

// NewLRU creates a cache holding at most capacity entries.
func NewLRU[K comparable, V any](capacity int) *LRU[K, V] {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &LRU[K, V]{
		capacity: capacity,
		items:    make(map[K]*list.Element, capacity),
		order:    list.New(),
	}
}

// Get returns the value for key and marks it most recently used.
func (c *LRU[K, V]) Get(key K) (V, bool) {
	if elem, ok := c.items[key]; ok {
		c.order.MoveToFront(elem)
		return elem.Value.(*entry[K, V]).value, true
	}
	var zero V
	return zero, false
}

// Peek returns the value for key without touching its recency.
func (c *LRU[K, V]) Peek(key K) (V, bool) {
	if elem, ok := c.items[key]; ok {
		return elem.Value.(*entry[K, V]).value, true
	}
	var zero V
	return zero, false
}

// Put inserts or replaces the value for key. The entry becomes the most
// recently used one; when the cache is full the least recently used entry
// is evicted first.
func (c *LRU[K, V]) Put(key K, value V) {
	if elem, ok := c.items[key]; ok {
		c.order.MoveToFront(elem)
		elem.Value.(*entry[K, V]).value = value
		return
	}

	if c.order.Len() >= c.capacity {
		if oldest := c.order.Back(); oldest != nil {
			c.order.Remove(oldest)
			delete(c.items, oldest.Value.(*entry[K, V]).key)
		}
	}

	c.items[key] = c.order.PushFront(&entry[K, V]{key: key, value: value})
}

// Remove drops key from the cache. It reports whether the key was present.
func (c *LRU[K, V]) Remove(key K) bool {
	elem, ok := c.items[key]
	if !ok {
		return false
	}
	c.order.Remove(elem)
	delete(c.items, key)
	return true
}

// Clear removes all entries.
func (c *LRU[K, V]) Clear() {
	c.items = make(map[K]*list.Element, c.capacity)
	c.order.Init()
}

// Len returns the number of cached entries.
func (c *LRU[K, V]) Len() int {
	return c.order.Len()
}

// Capacity returns the maximum number of entries.
func (c *LRU[K, V]) Capacity() int {
	return c.capacity
}
