package posting

import (
	"bytes"
	"fmt"

	"github.com/opensquiggly/spinach-sub000/internal/core"
	"github.com/opensquiggly/spinach-sub000/internal/debug"
	"github.com/opensquiggly/spinach-sub000/internal/errors"
	"github.com/opensquiggly/spinach-sub000/internal/types"
)

// LiteralOptions configures a LiteralCursor.
type LiteralOptions struct {
	CaseSensitive bool
	DocMatchType  types.DocMatchType
	MaxDocSize    int64
}

// LiteralCursor yields the confirmed occurrences of a literal of at least
// three bytes. It merges the cursors of the literal's leading and trailing
// trigrams on effective offset and checks every aligned candidate against
// the document content.
//
// LiteralCursor is not safe for concurrent use.
type LiteralCursor struct {
	literal  []byte
	opts     LiteralOptions
	leading  *TrigramCursor
	trailing *TrigramCursor

	started   bool
	valid     bool
	haveYield bool
	lastYield types.DocKey

	// resident is the document whose content confirm last loaded. Its
	// content is dropped once the merge moves to another document.
	resident *types.Document
}

// NewLiteralCursor opens a cursor over literal.
func NewLiteralCursor(ix *core.Index, literal string, opts LiteralOptions) (*LiteralCursor, error) {
	if len(literal) < 3 {
		return nil, fmt.Errorf("literal %q is shorter than a trigram: %w", literal, errors.ErrMalformedTrigram)
	}
	leading, err := NewTrigramCursor(ix, literal[:3], Options{MaxDocSize: opts.MaxDocSize})
	if err != nil {
		return nil, err
	}
	trailing, err := NewTrigramCursor(ix, literal[len(literal)-3:], Options{
		MaxDocSize:     opts.MaxDocSize,
		AdjustedOffset: int64(3 - len(literal)),
	})
	if err != nil {
		return nil, err
	}
	return &LiteralCursor{
		literal:  []byte(literal),
		opts:     opts,
		leading:  leading,
		trailing: trailing,
	}, nil
}

// Literal returns the literal the cursor confirms.
func (c *LiteralCursor) Literal() string { return string(c.literal) }

func (c *LiteralCursor) IsValid() bool { return c.valid }

// Key returns the key of the match start.
func (c *LiteralCursor) Key() types.MatchKey { return c.leading.Key() }

// Value returns the resolved data of the match start; MatchPosition is the
// match's offset inside the document.
func (c *LiteralCursor) Value() *types.MatchData { return c.leading.Value() }

func (c *LiteralCursor) MoveNext() bool {
	switch {
	case !c.started:
		c.started = true
		c.leading.MoveNext()
		c.trailing.MoveNext()
	case !c.valid:
		return false
	case c.opts.DocMatchType == types.FirstMatchOnly:
		c.skipPast(DocumentEnd(c.Key(), c.Value()))
	default:
		c.leading.MoveNext()
		c.trailing.MoveNext()
	}
	return c.merge()
}

func (c *LiteralCursor) MoveUntilGreaterThanOrEqual(target types.MatchKey) bool {
	if c.started {
		if !c.valid {
			return false
		}
		if c.Key().Compare(target) >= 0 {
			return true
		}
	}
	c.started = true
	c.skipPast(target)
	return c.merge()
}

func (c *LiteralCursor) skipPast(target types.MatchKey) {
	c.leading.MoveUntilGreaterThanOrEqual(target)
	c.trailing.MoveUntilGreaterThanOrEqual(target)
}

func (c *LiteralCursor) merge() bool {
	for {
		if !c.leading.IsValid() || !c.trailing.IsValid() {
			c.valid = false
			c.release()
			return false
		}
		lk, tk := c.leading.Key(), c.trailing.Key()
		switch cmp := lk.Compare(tk); {
		case cmp < 0:
			c.leading.MoveUntilGreaterThanOrEqual(tk)
		case cmp > 0:
			c.trailing.MoveUntilGreaterThanOrEqual(lk)
		default:
			data := c.leading.Value()
			if c.opts.DocMatchType == types.FirstMatchOnly && c.haveYield && data.Document.Key == c.lastYield {
				c.skipPast(DocumentEnd(lk, data))
				continue
			}
			if c.confirm() {
				c.valid = true
				c.haveYield = true
				c.lastYield = data.Document.Key
				return true
			}
			c.leading.MoveNext()
			c.trailing.MoveNext()
		}
	}
}

// confirm compares the document content at the aligned position with the
// literal. Both boundary trigrams must resolve to the same document.
func (c *LiteralCursor) confirm() bool {
	lead, trail := c.leading.Value(), c.trailing.Value()
	if lead.Document.Key != trail.Document.Key {
		return false
	}
	if c.resident != lead.Document {
		c.release()
		c.resident = lead.Document
	}
	content := lead.Document.Content()
	start := lead.MatchPosition
	end := start + int64(len(c.literal))
	if start < 0 || end > int64(len(content)) {
		if err := lead.Document.ContentErr(); err != nil {
			debug.LogSearch("literal %q: %s unreadable, skipping candidate", c.literal, lead.Document.Path)
		}
		return false
	}
	window := content[start:end]
	if c.opts.CaseSensitive {
		return bytes.Equal(window, c.literal)
	}
	return equalFoldASCII(window, c.literal)
}

func (c *LiteralCursor) release() {
	if c.resident != nil {
		c.resident.DropContent()
		c.resident = nil
	}
}

func equalFoldASCII(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if lowerASCII(a[i]) != lowerASCII(b[i]) {
			return false
		}
	}
	return true
}

func lowerASCII(b byte) byte {
	if 'A' <= b && b <= 'Z' {
		return b + 'a' - 'A'
	}
	return b
}
