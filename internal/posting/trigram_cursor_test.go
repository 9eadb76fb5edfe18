package posting

import (
	"fmt"
	"math/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opensquiggly/spinach-sub000/internal/errors"
	"github.com/opensquiggly/spinach-sub000/internal/metrics"
	"github.com/opensquiggly/spinach-sub000/internal/types"
	"github.com/opensquiggly/spinach-sub000/testhelpers"
)

var otherRepo = types.RepoKey{UserType: 1, UserID: 2, RepoType: 1, RepoID: 9}

func collectKeys(t *testing.T, c Cursor) []types.MatchKey {
	t.Helper()
	var keys []types.MatchKey
	for c.MoveNext() {
		keys = append(keys, c.Key())
		require.Less(t, len(keys), 100000, "cursor does not terminate")
	}
	return keys
}

func randomContent(r *rand.Rand, alphabet string, n int) string {
	var sb strings.Builder
	for i := 0; i < n; i++ {
		sb.WriteByte(alphabet[r.Intn(len(alphabet))])
	}
	return sb.String()
}

// TestTrigramCursor_Malformed tests construction-time rejection of bad trigrams.
func TestTrigramCursor_Malformed(t *testing.T) {
	fx := testhelpers.NewIndexBuilder().AddFile("a.txt", "abc").Build(t)

	for _, bad := range []string{"", "ab", "abcd"} {
		_, err := NewTrigramCursor(fx.Index, bad, Options{})
		assert.True(t, errors.Is(err, errors.ErrMalformedTrigram), "%q", bad)
	}
}

// TestTrigramCursor_AbsentTrigram tests that an unknown trigram is simply empty.
func TestTrigramCursor_AbsentTrigram(t *testing.T) {
	fx := testhelpers.NewIndexBuilder().AddFile("a.txt", "abc").Build(t)

	c, err := NewTrigramCursor(fx.Index, "zzz", Options{})
	require.NoError(t, err)
	assert.False(t, c.MoveNext())
	assert.False(t, c.IsValid())
	assert.False(t, c.Value().IsValid())

	c, err = NewTrigramCursor(fx.Index, "zzz", Options{})
	require.NoError(t, err)
	assert.False(t, c.MoveUntilGreaterThanOrEqual(types.MatchKey{RepoKey: testhelpers.DefaultRepo}))
}

// TestTrigramCursor_ResolvesOwningDocument tests offset 75 landing in the second document.
func TestTrigramCursor_ResolvesOwningDocument(t *testing.T) {
	a := strings.Repeat("-", 50)
	b := strings.Repeat(".", 25) + "xyz" + strings.Repeat(".", 42)
	fx := testhelpers.NewIndexBuilder().
		AddFile("a.txt", a).
		AddFile("b.txt", b).
		Build(t)

	c, err := NewTrigramCursor(fx.Index, "xyz", Options{})
	require.NoError(t, err)
	require.True(t, c.MoveNext())

	assert.Equal(t, int64(75), c.Key().Offset)
	data := c.Value()
	require.True(t, data.IsValid())
	assert.Equal(t, "b.txt", data.Document.Path)
	assert.Equal(t, int64(50), data.Document.StartingOffset)
	assert.Equal(t, int64(25), data.MatchPosition)
	assert.Equal(t, testhelpers.DefaultRepo, data.Repository.Key)
	assert.Equal(t, testhelpers.DefaultRepo.User(), data.User.Key)
	assert.False(t, c.MoveNext())
}

// TestTrigramCursor_AdjustedOffset tests the effective offset of a trailing trigram.
func TestTrigramCursor_AdjustedOffset(t *testing.T) {
	fx := testhelpers.NewIndexBuilder().
		AddPadding(100).
		AddFile("foo.txt", "foobar").
		Build(t)

	c, err := NewTrigramCursor(fx.Index, "bar", Options{AdjustedOffset: -3})
	require.NoError(t, err)
	require.True(t, c.MoveNext())

	assert.Equal(t, int64(103), c.Key().Offset)
	assert.Equal(t, int64(100), c.Key().EffectiveOffset())
	assert.Equal(t, int64(0), c.Value().MatchPosition)
}

// TestTrigramCursor_Ordering tests strictly increasing keys across repositories.
func TestTrigramCursor_Ordering(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	b := testhelpers.NewIndexBuilder()
	for i := 0; i < 6; i++ {
		b.AddFile(fmt.Sprintf("a%d.txt", i), randomContent(r, "ab", 40))
	}
	b.InRepository(otherRepo)
	for i := 0; i < 4; i++ {
		b.AddFile(fmt.Sprintf("b%d.txt", i), randomContent(r, "ab", 40))
	}
	fx := b.Build(t)

	c, err := NewTrigramCursor(fx.Index, "aba", Options{})
	require.NoError(t, err)
	keys := collectKeys(t, c)
	require.NotEmpty(t, keys)

	sawOther := false
	for i := 1; i < len(keys); i++ {
		assert.Negative(t, keys[i-1].Compare(keys[i]), "keys %v then %v", keys[i-1], keys[i])
		sawOther = sawOther || keys[i].RepoKey == otherRepo
	}
	assert.True(t, sawOther)
}

// TestTrigramCursor_SeekMatchesLinearScan tests that seeking equals discarding smaller elements.
func TestTrigramCursor_SeekMatchesLinearScan(t *testing.T) {
	r := rand.New(rand.NewSource(11))
	b := testhelpers.NewIndexBuilder()
	for i := 0; i < 5; i++ {
		b.AddFile(fmt.Sprintf("a%d.txt", i), randomContent(r, "ab", 30))
	}
	b.AddDeletedFile("deleted.txt", randomContent(r, "ab", 30))
	b.InRepository(otherRepo)
	for i := 0; i < 5; i++ {
		b.AddFile(fmt.Sprintf("b%d.txt", i), randomContent(r, "ab", 30))
	}
	fx := b.Build(t)

	all, err := NewTrigramCursor(fx.Index, "bab", Options{})
	require.NoError(t, err)
	keys := collectKeys(t, all)
	require.NotEmpty(t, keys)

	repos := []types.RepoKey{testhelpers.DefaultRepo, otherRepo}
	for i := 0; i < 200; i++ {
		target := types.MatchKey{RepoKey: repos[r.Intn(len(repos))], Offset: int64(r.Intn(200))}

		var want *types.MatchKey
		for j := range keys {
			if keys[j].Compare(target) >= 0 {
				want = &keys[j]
				break
			}
		}

		c, err := NewTrigramCursor(fx.Index, "bab", Options{})
		require.NoError(t, err)
		ok := c.MoveUntilGreaterThanOrEqual(target)
		if want == nil {
			assert.False(t, ok, "target %v", target)
			continue
		}
		require.True(t, ok, "target %v", target)
		assert.Equal(t, *want, c.Key(), "target %v", target)
	}
}

// TestTrigramCursor_SeekNeverMovesBackwards tests the no-op seek.
func TestTrigramCursor_SeekNeverMovesBackwards(t *testing.T) {
	fx := testhelpers.NewIndexBuilder().AddFile("a.txt", "abc abc abc").Build(t)

	c, err := NewTrigramCursor(fx.Index, "abc", Options{})
	require.NoError(t, err)
	require.True(t, c.MoveNext())
	require.True(t, c.MoveNext())
	current := c.Key()

	assert.True(t, c.MoveUntilGreaterThanOrEqual(types.MatchKey{RepoKey: testhelpers.DefaultRepo}))
	assert.Equal(t, current, c.Key())

	assert.True(t, c.MoveUntilGreaterThanOrEqual(types.MatchKey{RepoKey: testhelpers.DefaultRepo, Offset: 5}))
	assert.Equal(t, int64(8), c.Key().Offset)
	assert.False(t, c.MoveNext())
	assert.False(t, c.MoveUntilGreaterThanOrEqual(types.MatchKey{RepoKey: testhelpers.DefaultRepo}))
}

// TestTrigramCursor_SkipPolicy tests that deleted and oversized documents are never surfaced.
func TestTrigramCursor_SkipPolicy(t *testing.T) {
	m := metrics.New()
	fx := testhelpers.NewIndexBuilder().
		WithMetrics(m).
		AddFile("first.txt", "needle").
		AddDeletedFile("gone.txt", "needle needle").
		AddFile("big.txt", "needle"+strings.Repeat("x", 100)).
		AddFile("last.txt", "needle").
		Build(t)

	c, err := NewTrigramCursor(fx.Index, "nee", Options{MaxDocSize: 50})
	require.NoError(t, err)

	var paths []string
	for c.MoveNext() {
		paths = append(paths, c.Value().Document.Path)
	}
	assert.Equal(t, []string{"first.txt", "last.txt"}, paths)
}
