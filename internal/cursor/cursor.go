// Package cursor defines the ordered advance/seek cursor contract shared by
// posting cursors and query trees, and the generic combinators that merge
// two cursors.
package cursor

// Cursor walks an ordered sequence of (key, value) elements. A new cursor is
// positioned before the first element; MoveNext or
// MoveUntilGreaterThanOrEqual must be called before Key or Value.
//
// MoveUntilGreaterThanOrEqual positions on the least element whose key is
// >= target. It never moves backwards: when the current element already
// satisfies the target the call is a no-op. Both moves return IsValid.
//
// Cursors are not safe for concurrent use.
type Cursor[K any, V any] interface {
	IsValid() bool
	Key() K
	Value() V
	MoveNext() bool
	MoveUntilGreaterThanOrEqual(target K) bool
}

// Comparer orders two elements by logical identity, ignoring whatever the
// keys' position fields mean for the cursors that produced them.
type Comparer[K any, V any] func(k1 K, v1 V, k2 K, v2 V) int

// LowerBound returns the least key sharing the identity of (k, v). A cursor
// that is behind seeks to the lower bound of the one ahead so no element of
// that identity is skipped.
type LowerBound[K any, V any] func(k K, v V) K

// Collect drains up to limit keys from c (limit < 0 means all).
func Collect[K any, V any](c Cursor[K, V], limit int) []K {
	var out []K
	for c.MoveNext() {
		if limit >= 0 && len(out) >= limit {
			break
		}
		out = append(out, c.Key())
	}
	return out
}
