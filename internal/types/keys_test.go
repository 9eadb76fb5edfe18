package types

import (
	"errors"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRepoKey_CompareOrdersByEveryField(t *testing.T) {
	keys := []RepoKey{
		{UserType: 2, UserID: 1, RepoType: 1, RepoID: 1},
		{UserType: 1, UserID: 2, RepoType: 1, RepoID: 1},
		{UserType: 1, UserID: 1, RepoType: 2, RepoID: 1},
		{UserType: 1, UserID: 1, RepoType: 1, RepoID: 2},
		{UserType: 1, UserID: 1, RepoType: 1, RepoID: 1},
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].Compare(keys[j]) < 0 })

	assert.Equal(t, RepoKey{1, 1, 1, 1}, keys[0])
	assert.Equal(t, RepoKey{1, 1, 1, 2}, keys[1])
	assert.Equal(t, RepoKey{1, 1, 2, 1}, keys[2])
	assert.Equal(t, RepoKey{1, 2, 1, 1}, keys[3])
	assert.Equal(t, RepoKey{2, 1, 1, 1}, keys[4])
}

func TestDocKey_RepositoryPrefixIsContiguous(t *testing.T) {
	r1 := RepoKey{1, 1, 1, 1}
	r2 := RepoKey{1, 1, 1, 2}
	assert.Negative(t, DocKey{r1, 999}.Compare(DocKey{r2, 0}))
	assert.Negative(t, DocKey{r1, 1}.Compare(DocKey{r1, 2}))
	assert.Zero(t, DocKey{r2, 3}.Compare(DocKey{r2, 3}))
}

func TestMatchKey_ComparesEffectiveOffsets(t *testing.T) {
	repo := RepoKey{1, 1, 1, 1}
	leading := MatchKey{RepoKey: repo, Offset: 100}
	trailing := MatchKey{RepoKey: repo, Offset: 103, AdjustedOffset: -3}

	assert.Equal(t, int64(100), trailing.EffectiveOffset())
	assert.True(t, leading.Equal(trailing))
	assert.Zero(t, leading.Compare(trailing))

	later := MatchKey{RepoKey: repo, Offset: 104, AdjustedOffset: -3}
	assert.Negative(t, leading.Compare(later))

	otherRepo := MatchKey{RepoKey: RepoKey{1, 1, 1, 0}, Offset: 5000}
	assert.Positive(t, leading.Compare(otherRepo))
}

func TestKeyStrings(t *testing.T) {
	repo := RepoKey{1, 7, 2, 9}
	assert.Equal(t, "1/7", repo.User().String())
	assert.Equal(t, "1/7:2/9", repo.String())
	assert.Equal(t, "1/7:2/9#4", DocKey{repo, 4}.String())
	assert.Equal(t, "1/7:2/9@103-3", MatchKey{repo, 103, -3}.String())
}

func TestDocument_ContentLoadsOnceAndDegrades(t *testing.T) {
	calls := 0
	doc := NewDocument(DocKey{}, func() ([]byte, error) {
		calls++
		return []byte("hello"), nil
	})
	assert.Equal(t, []byte("hello"), doc.Content())
	assert.Equal(t, []byte("hello"), doc.Content())
	assert.Equal(t, 1, calls)

	broken := NewDocument(DocKey{}, func() ([]byte, error) {
		return []byte("partial"), errors.New("disk on fire")
	})
	assert.Empty(t, broken.Content())
	require.Error(t, broken.ContentErr())

	broken.SetContent([]byte("fixed"))
	assert.Equal(t, []byte("fixed"), broken.Content())
	assert.NoError(t, broken.ContentErr())
}

func TestDocument_Range(t *testing.T) {
	doc := NewDocument(DocKey{}, nil)
	doc.StartingOffset = 50
	doc.CurrentLength = 70

	assert.Equal(t, int64(120), doc.EndOffset())
	assert.True(t, doc.Contains(50))
	assert.True(t, doc.Contains(119))
	assert.False(t, doc.Contains(120))
	assert.False(t, doc.Contains(49))
}

func TestSentinels(t *testing.T) {
	assert.False(t, InvalidUser.IsValid())
	assert.False(t, InvalidRepository.IsValid())
	assert.False(t, InvalidDocument.IsValid())

	var md MatchData
	md.Reset()
	assert.False(t, md.IsValid())
	assert.Same(t, InvalidDocument, md.Document)
}

func TestParseDocMatchType(t *testing.T) {
	mt, ok := ParseDocMatchType("all")
	require.True(t, ok)
	assert.Equal(t, AllMatchesInDocument, mt)
	assert.Equal(t, "all", mt.String())

	_, ok = ParseDocMatchType("some")
	assert.False(t, ok)
}
