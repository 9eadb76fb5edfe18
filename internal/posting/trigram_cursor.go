// Package posting implements the cursors that walk trigram posting lists
// and confirm literal matches against document content.
package posting

import (
	"fmt"

	"github.com/opensquiggly/spinach-sub000/internal/core"
	"github.com/opensquiggly/spinach-sub000/internal/metrics"
	"github.com/opensquiggly/spinach-sub000/internal/store"
	"github.com/opensquiggly/spinach-sub000/internal/types"
)

// Options configures a TrigramCursor.
type Options struct {
	// MaxDocSize skips documents longer than this many bytes (0 disables).
	MaxDocSize int64
	// AdjustedOffset is added to every raw offset to form the cursor's
	// effective offsets. A literal's trailing trigram uses 3 - len(literal).
	AdjustedOffset int64
}

type resolution int

const (
	resolved resolution = iota
	unresolved
	skipDocument
	skipRepository
)

// TrigramCursor walks every position of one trigram across all
// repositories in (user, repository, offset) order and resolves each
// position to its user, repository and document.
//
// TrigramCursor is not safe for concurrent use.
type TrigramCursor struct {
	index      *core.Index
	trigram    uint32
	adjusted   int64
	maxDocSize int64
	metrics    *metrics.Metrics

	matches  *core.MatchTree // nil when the trigram never occurs
	repos    *store.Cursor[types.RepoKey, store.Handle]
	postings *store.Cursor[int64, core.Posting]

	started bool
	valid   bool
	key     types.MatchKey
	data    types.MatchData

	haveUser, haveRepo, haveDoc bool
	lastUser                    types.UserKey
	lastRepo                    types.RepoKey
	lastDoc                     types.DocKey
}

// NewTrigramCursor opens a cursor over trigram, which must be exactly three
// bytes. A trigram that never occurs yields an empty cursor.
func NewTrigramCursor(ix *core.Index, trigram string, opts Options) (*TrigramCursor, error) {
	t, err := core.TrigramKey(trigram)
	if err != nil {
		return nil, fmt.Errorf("trigram cursor: %w", err)
	}
	c := &TrigramCursor{
		index:      ix,
		trigram:    t,
		adjusted:   opts.AdjustedOffset,
		maxDocSize: opts.MaxDocSize,
		metrics:    ix.Metrics(),
	}
	c.data.Reset()
	if m, ok := ix.MatchTree(t); ok {
		c.matches = m
	}
	return c, nil
}

// Trigram returns the packed trigram the cursor walks.
func (c *TrigramCursor) Trigram() uint32 { return c.trigram }

func (c *TrigramCursor) IsValid() bool { return c.valid }

// Key returns the current match key. Only meaningful while IsValid.
func (c *TrigramCursor) Key() types.MatchKey { return c.key }

// Value returns the cursor's MatchData. The pointer stays the same for the
// cursor's lifetime; its contents change on every move.
func (c *TrigramCursor) Value() *types.MatchData { return &c.data }

// MoveNext advances to the next surfaced position.
func (c *TrigramCursor) MoveNext() bool {
	if !c.started {
		c.started = true
		if c.matches == nil {
			return c.exhaust()
		}
		c.repos = c.matches.First()
		if !c.enterRepository(0, false) {
			return c.exhaust()
		}
		return c.settle()
	}
	if !c.valid {
		return false
	}
	c.postings.Next()
	return c.settle()
}

// MoveUntilGreaterThanOrEqual seeks to the first surfaced position whose
// key is >= target. The repository and the offset are both located with
// tree seeks.
func (c *TrigramCursor) MoveUntilGreaterThanOrEqual(target types.MatchKey) bool {
	if c.started {
		if !c.valid {
			return false
		}
		if c.key.Compare(target) >= 0 {
			return true
		}
	}
	c.started = true
	if c.matches == nil {
		return c.exhaust()
	}

	c.repos = c.matches.Seek(target.RepoKey)
	if !c.repos.Valid() {
		return c.exhaust()
	}
	raw := target.EffectiveOffset() - c.adjusted
	if !c.enterRepository(raw, c.repos.Key() == target.RepoKey) {
		return c.exhaust()
	}
	return c.settle()
}

// enterRepository opens the posting list under the repository cursor,
// moving past repositories whose list is absent or exhausted. When seek is
// set the first list is positioned at from; later lists start at their
// beginning.
func (c *TrigramCursor) enterRepository(from int64, seek bool) bool {
	for ; c.repos.Valid(); c.repos.Next() {
		list, ok := c.index.PostingList(c.repos.Value())
		if ok {
			if seek {
				c.postings = list.Seek(from)
			} else {
				c.postings = list.First()
			}
			if c.postings.Valid() {
				return true
			}
		}
		seek = false
	}
	c.postings = nil
	return false
}

// settle resolves the posting under the cursor, applying the skip policy
// until a position can be surfaced or every repository is exhausted.
func (c *TrigramCursor) settle() bool {
	for {
		if !c.postings.Valid() {
			c.repos.Next()
			if !c.enterRepository(0, false) {
				return c.exhaust()
			}
		}

		repo := c.repos.Key()
		raw := c.postings.Key()
		switch c.resolve(repo, raw) {
		case resolved:
			c.key = types.MatchKey{RepoKey: repo, Offset: raw, AdjustedOffset: c.adjusted}
			c.valid = true
			return true
		case unresolved:
			c.postings.Next()
		case skipDocument:
			c.postings.Seek(c.data.Document.EndOffset())
		case skipRepository:
			c.metrics.Skipped(metrics.SkipInvalid)
			c.repos.Next()
			if !c.enterRepository(0, false) {
				return c.exhaust()
			}
		}
	}
}

// resolve fills c.data for the raw offset, re-resolving only the parts of
// the identity that changed since the previous position.
func (c *TrigramCursor) resolve(repo types.RepoKey, raw int64) resolution {
	if user := repo.User(); !c.haveUser || user != c.lastUser {
		c.data.User, c.data.IsUserValid = c.index.Users.TryFind(user)
		c.lastUser, c.haveUser = user, true
	}
	if !c.haveRepo || repo != c.lastRepo {
		c.data.Repository, c.data.IsRepoValid = c.index.Repositories.TryFind(repo)
		c.lastRepo, c.haveRepo = repo, true
		c.haveDoc = false
	}
	if !c.data.IsUserValid || !c.data.IsRepoValid {
		return skipRepository
	}

	docKey, ok := c.index.DocumentAt(repo, raw)
	if !ok {
		c.invalidateDocument()
		return unresolved
	}
	if !c.haveDoc || docKey != c.lastDoc {
		c.data.Document, c.data.IsDocValid = c.index.Documents.TryFind(docKey)
		c.lastDoc, c.haveDoc = docKey, true
	}
	doc := c.data.Document
	if !c.data.IsDocValid || !doc.Contains(raw) {
		return unresolved
	}

	c.data.MatchPosition = raw + c.adjusted - doc.StartingOffset

	switch {
	case doc.Status != types.DocStatusNormal:
		c.metrics.Skipped(metrics.SkipDeleted)
		return skipDocument
	case c.maxDocSize > 0 && doc.CurrentLength > c.maxDocSize:
		c.metrics.Skipped(metrics.SkipOversized)
		return skipDocument
	}
	return resolved
}

func (c *TrigramCursor) invalidateDocument() {
	c.data.Document = types.InvalidDocument
	c.data.IsDocValid = false
	c.haveDoc = false
}

func (c *TrigramCursor) exhaust() bool {
	c.valid = false
	c.data.Reset()
	c.haveUser, c.haveRepo, c.haveDoc = false, false, false
	return false
}
