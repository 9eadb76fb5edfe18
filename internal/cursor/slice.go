package cursor

import "sort"

// SliceCursor walks a sorted in-memory slice. Seeks use binary search.
type SliceCursor[K any, V any] struct {
	keys    []K
	values  []V
	compare func(a, b K) int
	pos     int // -1 before first
}

// NewSliceCursor wraps keys, which must be sorted by compare, and their
// values. values may be nil, in which case Value returns the zero V.
func NewSliceCursor[K any, V any](keys []K, values []V, compare func(a, b K) int) *SliceCursor[K, V] {
	return &SliceCursor[K, V]{keys: keys, values: values, compare: compare, pos: -1}
}

func (c *SliceCursor[K, V]) IsValid() bool {
	return c.pos >= 0 && c.pos < len(c.keys)
}

func (c *SliceCursor[K, V]) Key() K { return c.keys[c.pos] }

func (c *SliceCursor[K, V]) Value() V {
	if c.values == nil {
		var zero V
		return zero
	}
	return c.values[c.pos]
}

func (c *SliceCursor[K, V]) MoveNext() bool {
	if c.pos < len(c.keys) {
		c.pos++
	}
	return c.IsValid()
}

func (c *SliceCursor[K, V]) MoveUntilGreaterThanOrEqual(target K) bool {
	if c.IsValid() && c.compare(c.keys[c.pos], target) >= 0 {
		return true
	}
	from := c.pos + 1
	if from < 0 {
		from = 0
	}
	if from > len(c.keys) {
		return false
	}
	c.pos = from + sort.Search(len(c.keys)-from, func(i int) bool {
		return c.compare(c.keys[from+i], target) >= 0
	})
	return c.IsValid()
}
