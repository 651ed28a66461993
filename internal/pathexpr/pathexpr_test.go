package pathexpr

import (
	"testing"

	"github.com/cayleygraph/quad"
	"github.com/stretchr/testify/require"
)

func TestParseAndSPARQLExpr(t *testing.T) {
	p, err := Parse([]string{"http://ex.org/knows", "^http://ex.org/memberOf"})
	require.NoError(t, err)
	require.Equal(t, Path{
		{Predicate: quad.IRI("http://ex.org/knows"), Inverse: false},
		{Predicate: quad.IRI("http://ex.org/memberOf"), Inverse: true},
	}, p)
	require.Equal(t, "<http://ex.org/knows>/^<http://ex.org/memberOf>", p.SPARQLExpr())
}

func TestReversed(t *testing.T) {
	p, err := Parse([]string{"a", "^b", "c"})
	require.NoError(t, err)
	rev := p.Reversed()
	require.Equal(t, Path{
		{Predicate: "c", Inverse: true},
		{Predicate: "b", Inverse: false},
		{Predicate: "a", Inverse: true},
	}, rev)
}

func TestPrefixSuffix(t *testing.T) {
	p, err := Parse([]string{"a", "b", "c"})
	require.NoError(t, err)
	require.Equal(t, Path{{Predicate: "a", Inverse: false}}, p.Prefix(1))
	require.Nil(t, p.Prefix(0))
	require.Equal(t, Path{{Predicate: "c", Inverse: false}}, p.Suffix(1))
	require.Nil(t, p.Suffix(2))
}

func TestPositions(t *testing.T) {
	p, err := Parse([]string{"a", "b", "a"})
	require.NoError(t, err)
	require.Equal(t, []int{0, 2}, p.Positions("a", false))
	require.Empty(t, p.Positions("a", true))
}

func TestIndexLookup(t *testing.T) {
	p1, _ := Parse([]string{"a", "b"})
	p2, _ := Parse([]string{"^b"})
	idx := NewIndex([]Ref{
		{TypeName: "person", PropertyName: "name", Path: p1},
		{TypeName: "org", PropertyName: "member", Path: p2},
	})
	refs := idx.Lookup("b")
	require.Len(t, refs, 2)
	require.Empty(t, idx.Lookup("z"))
}
