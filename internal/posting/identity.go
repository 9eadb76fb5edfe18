package posting

import (
	"cmp"

	"github.com/opensquiggly/spinach-sub000/internal/cursor"
	"github.com/opensquiggly/spinach-sub000/internal/types"
)

// Cursor is the cursor shape shared by posting cursors and query trees.
type Cursor = cursor.Cursor[types.MatchKey, *types.MatchData]

// CompareIdentity orders two positions by (user, repository, document),
// ignoring where inside the document each position lies.
func CompareIdentity(k1 types.MatchKey, d1 *types.MatchData, k2 types.MatchKey, d2 *types.MatchData) int {
	if c := k1.RepoKey.Compare(k2.RepoKey); c != 0 {
		return c
	}
	return cmp.Compare(d1.Document.Key.DocID, d2.Document.Key.DocID)
}

// DocumentStart is the least key inside the document of (k, d).
func DocumentStart(k types.MatchKey, d *types.MatchData) types.MatchKey {
	if !d.IsDocValid {
		return k
	}
	return types.MatchKey{RepoKey: k.RepoKey, Offset: d.Document.StartingOffset}
}

// DocumentEnd is the least key past the document of (k, d).
func DocumentEnd(k types.MatchKey, d *types.MatchData) types.MatchKey {
	if !d.IsDocValid {
		return types.MatchKey{RepoKey: k.RepoKey, Offset: k.EffectiveOffset() + 1}
	}
	return types.MatchKey{RepoKey: k.RepoKey, Offset: d.Document.EndOffset()}
}
