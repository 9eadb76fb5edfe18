package cursor

// IntersectCursor yields the elements of left whose identity also occurs in
// right.
type IntersectCursor[K any, V any] struct {
	left, right Cursor[K, V]
	compare     Comparer[K, V]
	lower       LowerBound[K, V]
	started     bool
	valid       bool
}

// Intersect merges left and right by identity. The behind side seeks to the
// lower bound of the side ahead.
func Intersect[K any, V any](left, right Cursor[K, V], compare Comparer[K, V], lower LowerBound[K, V]) *IntersectCursor[K, V] {
	return &IntersectCursor[K, V]{left: left, right: right, compare: compare, lower: lower}
}

func (c *IntersectCursor[K, V]) IsValid() bool { return c.valid }
func (c *IntersectCursor[K, V]) Key() K        { return c.left.Key() }
func (c *IntersectCursor[K, V]) Value() V      { return c.left.Value() }

// MoveNext advances the left side and realigns.
func (c *IntersectCursor[K, V]) MoveNext() bool {
	if !c.started {
		c.started = true
		c.left.MoveNext()
		c.right.MoveNext()
		return c.align()
	}
	if !c.valid {
		return false
	}
	c.left.MoveNext()
	return c.align()
}

// MoveUntilGreaterThanOrEqual seeks the left side and realigns. The right
// side only ever moves to catch up with the left.
func (c *IntersectCursor[K, V]) MoveUntilGreaterThanOrEqual(target K) bool {
	if !c.started {
		c.started = true
		c.right.MoveNext()
	} else if !c.valid {
		return false
	}
	c.left.MoveUntilGreaterThanOrEqual(target)
	return c.align()
}

func (c *IntersectCursor[K, V]) align() bool {
	for {
		if !c.left.IsValid() || !c.right.IsValid() {
			c.valid = false
			return false
		}
		lk, lv := c.left.Key(), c.left.Value()
		rk, rv := c.right.Key(), c.right.Value()
		switch cmp := c.compare(lk, lv, rk, rv); {
		case cmp < 0:
			c.left.MoveUntilGreaterThanOrEqual(c.lower(rk, rv))
		case cmp > 0:
			c.right.MoveUntilGreaterThanOrEqual(c.lower(lk, lv))
		default:
			c.valid = true
			return true
		}
	}
}

// UnionCursor yields the elements of both children in identity order. When
// both sides hold the same identity the left element is yielded and both
// sides advance past it.
type UnionCursor[K any, V any] struct {
	left, right Cursor[K, V]
	compare     Comparer[K, V]
	current     Cursor[K, V]
	tie         bool
	started     bool
}

// Union merges left and right by identity.
func Union[K any, V any](left, right Cursor[K, V], compare Comparer[K, V]) *UnionCursor[K, V] {
	return &UnionCursor[K, V]{left: left, right: right, compare: compare}
}

func (c *UnionCursor[K, V]) IsValid() bool { return c.current != nil }
func (c *UnionCursor[K, V]) Key() K        { return c.current.Key() }
func (c *UnionCursor[K, V]) Value() V      { return c.current.Value() }

// MoveNext advances the side(s) that produced the current element.
func (c *UnionCursor[K, V]) MoveNext() bool {
	switch {
	case !c.started:
		c.started = true
		c.left.MoveNext()
		c.right.MoveNext()
	case c.current == nil:
		return false
	case c.tie:
		c.left.MoveNext()
		c.right.MoveNext()
	default:
		c.current.MoveNext()
	}
	return c.pick()
}

// MoveUntilGreaterThanOrEqual seeks both sides. Each side ignores a target
// it already satisfies.
func (c *UnionCursor[K, V]) MoveUntilGreaterThanOrEqual(target K) bool {
	if c.started && c.current == nil {
		return false
	}
	c.started = true
	c.left.MoveUntilGreaterThanOrEqual(target)
	c.right.MoveUntilGreaterThanOrEqual(target)
	return c.pick()
}

func (c *UnionCursor[K, V]) pick() bool {
	c.tie = false
	lv, rv := c.left.IsValid(), c.right.IsValid()
	switch {
	case lv && rv:
		cmp := c.compare(c.left.Key(), c.left.Value(), c.right.Key(), c.right.Value())
		switch {
		case cmp < 0:
			c.current = c.left
		case cmp > 0:
			c.current = c.right
		default:
			c.current = c.left
			c.tie = true
		}
	case lv:
		c.current = c.left
	case rv:
		c.current = c.right
	default:
		c.current = nil
	}
	return c.current != nil
}
