package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestReductionLaws tests All as absorbing under Or and identity under And.
func TestReductionLaws(t *testing.T) {
	foo, bar := Lit("foo"), Lit("bar")

	assert.True(t, Or(All(), foo).IsAll())
	assert.True(t, Or(foo, All(), bar).IsAll())
	assert.True(t, Or().IsAll())
	assert.Same(t, foo, Or(foo))

	assert.Same(t, foo, And(All(), foo))
	assert.Same(t, foo, And(foo, All()))
	assert.True(t, And().IsAll())
	assert.True(t, And(All(), All()).IsAll())
	assert.Equal(t, "AND(LIT(\"foo\"), LIT(\"bar\"))", And(foo, All(), bar).String())

	assert.True(t, Lit("ab").IsAll())
	assert.True(t, Lit("").IsAll())
	assert.Equal(t, KindLiteral, Lit("abc").Kind)
}

// TestOrAndFlatten tests that nested nodes of the same kind merge.
func TestOrAndFlatten(t *testing.T) {
	n := Or(Lit("aaa"), Or(Lit("bbb"), Lit("ccc")))
	assert.Equal(t, `OR(LIT("aaa"), LIT("bbb"), LIT("ccc"))`, n.String())

	n = And(Lit("aaa"), And(Lit("bbb"), Lit("ccc")))
	assert.Equal(t, `AND(LIT("aaa"), LIT("bbb"), LIT("ccc"))`, n.String())
}

// TestBuildQuery tests reduction of parsed patterns.
func TestBuildQuery(t *testing.T) {
	tests := []struct {
		pattern string
		want    string
	}{
		{"foobar", `LIT("foobar")`},
		{"fo", "ALL"},
		{"", "ALL"},
		{"foo.*bar", `AND(LIT("foo"), LIT("bar"))`},
		{"foo|bar", `OR(LIT("foo"), LIT("bar"))`},
		{"foo|ba", "ALL"},
		{"(foo|bar)qux", `AND(OR(LIT("foo"), LIT("bar")), LIT("qux"))`},
		{"a+bcd", `LIT("bcd")`},
		{"^func main", `LIT("func main")`},
		{`[a-z]+_test`, `LIT("_test")`},
		{`ab\.cd`, `LIT("ab.cd")`},
		{`foo\d+bar`, `AND(LIT("foo"), LIT("bar"))`},
		{"f[o]o", `LIT("foo")`},
		{"ab.cd", "ALL"},
		{"[abc]+", "ALL"},
		{"héllo", `LIT("héllo")`},
	}

	for _, tt := range tests {
		t.Run(tt.pattern, func(t *testing.T) {
			n, err := BuildQuery(tt.pattern, true)
			require.NoError(t, err)
			assert.Equal(t, tt.want, n.String())
		})
	}
}

// TestBuildQuery_CaseInsensitive tests folded literals.
func TestBuildQuery_CaseInsensitive(t *testing.T) {
	n, err := BuildQuery("Foo", false)
	require.NoError(t, err)
	assert.Equal(t, `LIT("foo"/i)`, n.String())
	assert.True(t, n.FoldCase)

	n, err = BuildQuery("(?i)Foo", true)
	require.NoError(t, err)
	assert.True(t, n.FoldCase)

	// Only ASCII is folded by the index; the é splits the literal.
	n, err = BuildQuery("héllo", false)
	require.NoError(t, err)
	assert.Equal(t, `LIT("llo"/i)`, n.String())

	// k and s fold to non-ASCII runes too, so they split literals as well.
	tests := []struct {
		pattern string
		want    string
	}{
		{"kkk", "ALL"},
		{"sss", "ALL"},
		{"block", `LIT("bloc"/i)`},
		{"classic", `LIT("cla"/i)`},
		{"(?i)kkk", "ALL"},
	}
	for _, tt := range tests {
		n, err := BuildQuery(tt.pattern, false)
		require.NoError(t, err)
		assert.Equal(t, tt.want, n.String(), tt.pattern)
	}

	n, err = BuildQuery("kkk", true)
	require.NoError(t, err)
	assert.Equal(t, `LIT("kkk")`, n.String())
}

// TestBuildQuery_InvalidPattern tests parse errors.
func TestBuildQuery_InvalidPattern(t *testing.T) {
	_, err := BuildQuery("foo(", true)
	assert.Error(t, err)
}

// TestLiterals tests literal collection.
func TestLiterals(t *testing.T) {
	n, err := BuildQuery("(foo|bar)qux", true)
	require.NoError(t, err)
	assert.Equal(t, []string{"foo", "bar", "qux"}, n.Literals())
	assert.Nil(t, All().Literals())
}
