package query

import (
	"fmt"

	"github.com/opensquiggly/spinach-sub000/internal/core"
	"github.com/opensquiggly/spinach-sub000/internal/cursor"
	"github.com/opensquiggly/spinach-sub000/internal/errors"
	"github.com/opensquiggly/spinach-sub000/internal/posting"
	"github.com/opensquiggly/spinach-sub000/internal/types"
)

// Compile turns n into a cursor over ix. Literals become literal cursors;
// unions and intersections become the identity-ordered combinators over
// their compiled children. A tree that is All anywhere it matters cannot be
// compiled and yields ErrFullScanRequired.
func Compile(ix *core.Index, n *Node, opts posting.LiteralOptions) (posting.Cursor, error) {
	if n.IsAll() {
		return nil, fmt.Errorf("compile %s: %w", n, errors.ErrFullScanRequired)
	}

	switch n.Kind {
	case KindLiteral:
		lo := opts
		if n.FoldCase {
			lo.CaseSensitive = false
		}
		return posting.NewLiteralCursor(ix, n.Literal, lo)

	case KindUnion, KindIntersect:
		acc, err := Compile(ix, n.Children[0], opts)
		if err != nil {
			return nil, err
		}
		for _, child := range n.Children[1:] {
			next, err := Compile(ix, child, opts)
			if err != nil {
				return nil, err
			}
			if n.Kind == KindUnion {
				acc = cursor.Union[types.MatchKey, *types.MatchData](acc, next, posting.CompareIdentity)
			} else {
				acc = cursor.Intersect[types.MatchKey, *types.MatchData](acc, next, posting.CompareIdentity, posting.DocumentStart)
			}
		}
		return acc, nil

	default:
		return nil, fmt.Errorf("compile: unknown node kind %s", n.Kind)
	}
}
