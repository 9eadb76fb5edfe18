package core

import (
	"github.com/opensquiggly/spinach-sub000/internal/cache"
	"github.com/opensquiggly/spinach-sub000/internal/metrics"
	"github.com/opensquiggly/spinach-sub000/internal/store"
	"github.com/opensquiggly/spinach-sub000/internal/types"
)

// cacheEntry keeps the stored block, the tree node it was read from and the
// materialized object. The node lets a refresh re-read the block without
// another tree descent.
type cacheEntry[K any, B any, O any] struct {
	block  B
	node   *store.Cursor[K, B]
	object O
}

// EntityCache resolves keys to materialized domain objects through a
// bounded recency cache in front of an ordered map. A missing key yields
// the invalid sentinel and false, never an error.
//
// EntityCache is not safe for concurrent use.
type EntityCache[K comparable, B any, O any] struct {
	name        string
	lru         *cache.LRU[K, cacheEntry[K, B, O]]
	tree        *store.OrderedMap[K, B]
	materialize func(B) O
	invalid     O
	metrics     *metrics.Metrics
}

// UserCache, RepositoryCache and DocumentCache are the three entity caches
// of an Index.
type (
	UserCache       = EntityCache[types.UserKey, UserBlock, *types.User]
	RepositoryCache = EntityCache[types.RepoKey, RepoBlock, *types.Repository]
	DocumentCache   = EntityCache[types.DocKey, DocBlock, *types.Document]
)

func newEntityCache[K comparable, B any, O any](
	name string,
	capacity int,
	tree *store.OrderedMap[K, B],
	materialize func(B) O,
	invalid O,
	m *metrics.Metrics,
) *EntityCache[K, B, O] {
	return &EntityCache[K, B, O]{
		name:        name,
		lru:         cache.NewLRU[K, cacheEntry[K, B, O]](capacity),
		tree:        tree,
		materialize: materialize,
		invalid:     invalid,
		metrics:     m,
	}
}

// TryFind returns the object stored under key. On a miss it reads the
// backing tree; an absent key returns the invalid sentinel and false.
func (c *EntityCache[K, B, O]) TryFind(key K) (O, bool) {
	if e, ok := c.lru.Get(key); ok {
		c.metrics.CacheHit(c.name)
		return e.object, true
	}

	node := c.tree.FindCursor(key)
	if !node.Valid() {
		c.metrics.CacheAbsent(c.name)
		return c.invalid, false
	}
	c.metrics.CacheMiss(c.name)

	e := cacheEntry[K, B, O]{block: node.Value(), node: node}
	e.object = c.materialize(e.block)
	c.lru.Put(key, e)
	return e.object, true
}

// Block returns the raw stored block for key.
func (c *EntityCache[K, B, O]) Block(key K) (B, bool) {
	if e, ok := c.lru.Peek(key); ok {
		return e.block, true
	}
	return c.tree.Find(key)
}

// Refresh re-materializes a cached entry from its tree node after the block
// was replaced in place. Uncached keys are left alone.
func (c *EntityCache[K, B, O]) Refresh(key K) {
	e, ok := c.lru.Peek(key)
	if !ok {
		return
	}
	e.block = e.node.Value()
	e.object = c.materialize(e.block)
	c.lru.Put(key, e)
}

// Invalidate drops key from the cache.
func (c *EntityCache[K, B, O]) Invalidate(key K) {
	c.lru.Remove(key)
}

// Clear drops every cached entry.
func (c *EntityCache[K, B, O]) Clear() {
	c.lru.Clear()
}

// Len returns the number of cached entries.
func (c *EntityCache[K, B, O]) Len() int {
	return c.lru.Len()
}
