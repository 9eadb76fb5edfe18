package posting

import (
	"bytes"
	"fmt"
	"math/rand"
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opensquiggly/spinach-sub000/internal/errors"
	"github.com/opensquiggly/spinach-sub000/internal/types"
	"github.com/opensquiggly/spinach-sub000/testhelpers"
)

type hit struct {
	path string
	pos  int64
}

func collectHits(t *testing.T, c *LiteralCursor) []hit {
	t.Helper()
	var hits []hit
	for c.MoveNext() {
		data := c.Value()
		require.True(t, data.IsValid())
		hits = append(hits, hit{path: data.Document.Path, pos: data.MatchPosition})
		require.Less(t, len(hits), 100000, "cursor does not terminate")
	}
	return hits
}

// TestLiteralCursor_FoobarAtOffset100 tests the canonical leading/trailing alignment.
func TestLiteralCursor_FoobarAtOffset100(t *testing.T) {
	fx := testhelpers.NewIndexBuilder().
		AddPadding(100).
		AddFile("foo.txt", "foobar").
		Build(t)
	require.Equal(t, int64(100), fx.Doc(t, "foo.txt").StartingOffset)

	c, err := NewLiteralCursor(fx.Index, "foobar", LiteralOptions{CaseSensitive: true, DocMatchType: types.AllMatchesInDocument})
	require.NoError(t, err)

	require.True(t, c.MoveNext())
	assert.Equal(t, int64(100), c.Key().Offset)
	assert.Equal(t, int64(0), c.Value().MatchPosition)
	assert.Equal(t, "foo.txt", c.Value().Document.Path)
	assert.False(t, c.MoveNext())
}

// TestLiteralCursor_TooShort tests that literals below trigram size are rejected.
func TestLiteralCursor_TooShort(t *testing.T) {
	fx := testhelpers.NewIndexBuilder().AddFile("a.txt", "abc").Build(t)
	_, err := NewLiteralCursor(fx.Index, "ab", LiteralOptions{})
	assert.True(t, errors.Is(err, errors.ErrMalformedTrigram))
}

// TestLiteralCursor_RejectsBoundaryOnlyCandidates tests confirmation when only the boundary trigrams agree.
func TestLiteralCursor_RejectsBoundaryOnlyCandidates(t *testing.T) {
	fx := testhelpers.NewIndexBuilder().
		AddFile("near.txt", "abcXYZghi").
		AddFile("split.txt", "abcdef").
		AddFile("tail.txt", "ghixx").
		AddFile("real.txt", "abcdefghi").
		Build(t)

	c, err := NewLiteralCursor(fx.Index, "abcdefghi", LiteralOptions{CaseSensitive: true, DocMatchType: types.AllMatchesInDocument})
	require.NoError(t, err)
	assert.Equal(t, []hit{{"real.txt", 0}}, collectHits(t, c))
}

// TestLiteralCursor_CaseSensitivity tests both confirmation modes.
func TestLiteralCursor_CaseSensitivity(t *testing.T) {
	fx := testhelpers.NewIndexBuilder().
		AddFile("a.go", "func Open() {}\nfunc open() {}\n").
		Build(t)

	c, err := NewLiteralCursor(fx.Index, "Open", LiteralOptions{CaseSensitive: true, DocMatchType: types.AllMatchesInDocument})
	require.NoError(t, err)
	assert.Equal(t, []hit{{"a.go", 5}}, collectHits(t, c))

	c, err = NewLiteralCursor(fx.Index, "Open", LiteralOptions{DocMatchType: types.AllMatchesInDocument})
	require.NoError(t, err)
	assert.Equal(t, []hit{{"a.go", 5}, {"a.go", 20}}, collectHits(t, c))
}

// TestLiteralCursor_FirstMatchOnly tests one match per document.
func TestLiteralCursor_FirstMatchOnly(t *testing.T) {
	fx := testhelpers.NewIndexBuilder().
		AddFile("many.txt", "foo foo foo foo").
		AddFile("one.txt", "xx foo").
		AddFile("late.txt", "fo ofoo").
		Build(t)

	c, err := NewLiteralCursor(fx.Index, "foo", LiteralOptions{CaseSensitive: true, DocMatchType: types.FirstMatchOnly})
	require.NoError(t, err)
	assert.Equal(t, []hit{{"many.txt", 0}, {"one.txt", 3}, {"late.txt", 4}}, collectHits(t, c))

	c, err = NewLiteralCursor(fx.Index, "foo", LiteralOptions{CaseSensitive: true, DocMatchType: types.AllMatchesInDocument})
	require.NoError(t, err)
	assert.Len(t, collectHits(t, c), 6)
}

// TestLiteralCursor_UnreadableContent tests that a failed read skips the document only.
func TestLiteralCursor_UnreadableContent(t *testing.T) {
	fx := testhelpers.NewIndexBuilder().
		AddUnreadableFile("locked.txt", "needle").
		AddFile("open.txt", "needle").
		Build(t)

	c, err := NewLiteralCursor(fx.Index, "needle", LiteralOptions{CaseSensitive: true, DocMatchType: types.AllMatchesInDocument})
	require.NoError(t, err)
	assert.Equal(t, []hit{{"open.txt", 0}}, collectHits(t, c))
}

// TestLiteralCursor_ContentReadOncePerDocument tests that confirmation reuses loaded content.
func TestLiteralCursor_ContentReadOncePerDocument(t *testing.T) {
	fx := testhelpers.NewIndexBuilder().
		AddFile("a.txt", strings.Repeat("abc ", 50)).
		Build(t)

	c, err := NewLiteralCursor(fx.Index, "abc ", LiteralOptions{CaseSensitive: true, DocMatchType: types.AllMatchesInDocument})
	require.NoError(t, err)
	assert.Len(t, collectHits(t, c), 50)
	assert.Equal(t, 1, fx.Reads["/mem/1/1/1/1/a.txt"])
}

// TestLiteralCursor_ReleasesPassedContent tests that only the current
// document's content stays loaded.
func TestLiteralCursor_ReleasesPassedContent(t *testing.T) {
	fx := testhelpers.NewIndexBuilder().
		AddFile("a.txt", "needle").
		AddFile("b.txt", "needle needle").
		Build(t)
	const pathA = "/mem/1/1/1/1/a.txt"

	c, err := NewLiteralCursor(fx.Index, "needle", LiteralOptions{CaseSensitive: true, DocMatchType: types.AllMatchesInDocument})
	require.NoError(t, err)

	require.True(t, c.MoveNext())
	assert.Equal(t, "a.txt", c.Value().Document.Path)
	require.True(t, c.MoveNext())
	assert.Equal(t, "b.txt", c.Value().Document.Path)
	require.Equal(t, 1, fx.Reads[pathA])

	docA, ok := fx.Index.Documents.TryFind(fx.Doc(t, "a.txt").Key)
	require.True(t, ok)
	assert.Equal(t, []byte("needle"), docA.Content())
	assert.Equal(t, 2, fx.Reads[pathA], "a.txt content should have been released")

	require.True(t, c.MoveNext())
	assert.False(t, c.MoveNext())
	docB, ok := fx.Index.Documents.TryFind(fx.Doc(t, "b.txt").Key)
	require.True(t, ok)
	docB.Content()
	assert.Equal(t, 2, fx.Reads["/mem/1/1/1/1/b.txt"])
}

// TestLiteralCursor_Seek tests seeking into the middle of the match stream.
func TestLiteralCursor_Seek(t *testing.T) {
	fx := testhelpers.NewIndexBuilder().
		AddFile("a.txt", "needle....needle").
		AddFile("b.txt", "..needle").
		Build(t)

	c, err := NewLiteralCursor(fx.Index, "needle", LiteralOptions{CaseSensitive: true, DocMatchType: types.AllMatchesInDocument})
	require.NoError(t, err)
	require.True(t, c.MoveUntilGreaterThanOrEqual(types.MatchKey{RepoKey: testhelpers.DefaultRepo, Offset: 1}))
	assert.Equal(t, int64(10), c.Key().Offset)
	require.True(t, c.MoveNext())
	assert.Equal(t, "b.txt", c.Value().Document.Path)
	assert.Equal(t, int64(2), c.Value().MatchPosition)
	assert.False(t, c.MoveNext())
}

// TestLiteralCursor_Soundness compares the cursor with a brute-force scan.
func TestLiteralCursor_Soundness(t *testing.T) {
	r := rand.New(rand.NewSource(42))
	const alphabet = "abAB "

	b := testhelpers.NewIndexBuilder()
	contents := map[string]string{}
	for i := 0; i < 12; i++ {
		name := fmt.Sprintf("f%02d.txt", i)
		content := randomContent(r, alphabet, 20+r.Intn(60))
		contents[name] = content
		b.AddFile(name, content)
	}
	b.AddDeletedFile("deleted.txt", randomContent(r, alphabet, 60))
	fx := b.Build(t)

	for round := 0; round < 60; round++ {
		literal := randomContent(r, alphabet, 3+r.Intn(5))
		caseSensitive := round%2 == 0

		var want []hit
		names := make([]string, 0, len(contents))
		for name := range contents {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			content := []byte(contents[name])
			for p := 0; p+len(literal) <= len(content); p++ {
				window := content[p : p+len(literal)]
				if (caseSensitive && bytes.Equal(window, []byte(literal))) ||
					(!caseSensitive && bytes.EqualFold(window, []byte(literal))) {
					want = append(want, hit{name, int64(p)})
				}
			}
		}

		c, err := NewLiteralCursor(fx.Index, literal, LiteralOptions{CaseSensitive: caseSensitive, DocMatchType: types.AllMatchesInDocument})
		require.NoError(t, err)
		assert.Equal(t, want, collectHits(t, c), "literal %q case-sensitive=%v", literal, caseSensitive)
	}
}
