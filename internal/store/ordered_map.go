package store

import (
	rbt "github.com/emirpasic/gods/trees/redblacktree"
)

// Compare orders two keys, returning -1, 0 or 1.
type Compare[K any] func(a, b K) int

// OrderedMap is an ordered key/value map addressed by a Handle. Lookups and
// seeks are logarithmic; cursor steps walk the tree nodes directly.
//
// OrderedMap is not safe for concurrent use.
type OrderedMap[K any, V any] struct {
	handle  Handle
	tree    *rbt.Tree
	compare Compare[K]
}

func newOrderedMap[K any, V any](h Handle, cmp Compare[K]) *OrderedMap[K, V] {
	return &OrderedMap[K, V]{
		handle: h,
		tree: rbt.NewWith(func(a, b interface{}) int {
			return cmp(a.(K), b.(K))
		}),
		compare: cmp,
	}
}

// Handle returns the handle this map is registered under.
func (m *OrderedMap[K, V]) Handle() Handle {
	return m.handle
}

// Len returns the number of entries.
func (m *OrderedMap[K, V]) Len() int {
	return m.tree.Size()
}

// Find returns the value stored under key.
func (m *OrderedMap[K, V]) Find(key K) (V, bool) {
	v, found := m.tree.Get(key)
	if !found {
		var zero V
		return zero, false
	}
	return v.(V), true
}

// Put inserts or replaces the value stored under key.
func (m *OrderedMap[K, V]) Put(key K, value V) {
	m.tree.Put(key, value)
}

// Delete removes key if present.
func (m *OrderedMap[K, V]) Delete(key K) {
	m.tree.Remove(key)
}

// First returns a cursor on the smallest key.
func (m *OrderedMap[K, V]) First() *Cursor[K, V] {
	return &Cursor[K, V]{m: m, node: m.tree.Left()}
}

// Last returns a cursor on the largest key.
func (m *OrderedMap[K, V]) Last() *Cursor[K, V] {
	return &Cursor[K, V]{m: m, node: m.tree.Right()}
}

// FindCursor returns a cursor on key, or an invalid cursor when key is absent.
func (m *OrderedMap[K, V]) FindCursor(key K) *Cursor[K, V] {
	node, found := m.tree.Ceiling(key)
	if !found || m.compare(node.Key.(K), key) != 0 {
		node = nil
	}
	return &Cursor[K, V]{m: m, node: node}
}

// Seek returns a cursor on the least key >= key.
func (m *OrderedMap[K, V]) Seek(key K) *Cursor[K, V] {
	node, _ := m.tree.Ceiling(key)
	return &Cursor[K, V]{m: m, node: node}
}

// SeekFloor returns a cursor on the greatest key <= key.
func (m *OrderedMap[K, V]) SeekFloor(key K) *Cursor[K, V] {
	node, _ := m.tree.Floor(key)
	return &Cursor[K, V]{m: m, node: node}
}

// Cursor is a position inside an OrderedMap. A cursor stays usable across
// value replacement but must not be used after keys are inserted or removed.
type Cursor[K any, V any] struct {
	m    *OrderedMap[K, V]
	node *rbt.Node
}

// Valid reports whether the cursor is positioned on an entry.
func (c *Cursor[K, V]) Valid() bool {
	return c != nil && c.node != nil
}

// Key returns the key at the cursor.
func (c *Cursor[K, V]) Key() K {
	return c.node.Key.(K)
}

// Value returns the value at the cursor.
func (c *Cursor[K, V]) Value() V {
	return c.node.Value.(V)
}

// Replace overwrites the value at the cursor in place.
func (c *Cursor[K, V]) Replace(value V) {
	c.node.Value = value
}

// Next moves to the next larger key.
func (c *Cursor[K, V]) Next() bool {
	if c.node == nil {
		return false
	}
	c.node = successor(c.node)
	return c.node != nil
}

// Prev moves to the next smaller key.
func (c *Cursor[K, V]) Prev() bool {
	if c.node == nil {
		return false
	}
	c.node = predecessor(c.node)
	return c.node != nil
}

// Seek moves to the least key >= key. The search restarts from the root, so
// it may move the cursor backwards.
func (c *Cursor[K, V]) Seek(key K) bool {
	c.node, _ = c.m.tree.Ceiling(key)
	return c.node != nil
}

func successor(n *rbt.Node) *rbt.Node {
	if n.Right != nil {
		n = n.Right
		for n.Left != nil {
			n = n.Left
		}
		return n
	}
	p := n.Parent
	for p != nil && n == p.Right {
		n = p
		p = p.Parent
	}
	return p
}

func predecessor(n *rbt.Node) *rbt.Node {
	if n.Left != nil {
		n = n.Left
		for n.Right != nil {
			n = n.Right
		}
		return n
	}
	p := n.Parent
	for p != nil && n == p.Left {
		n = p
		p = p.Parent
	}
	return p
}
