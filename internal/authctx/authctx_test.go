package authctx

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCanonicalizeOrderIndependent(t *testing.T) {
	a := Context{{Name: "b"}, {Name: "a", Variables: []string{"y", "x"}}}
	b := Context{{Name: "a", Variables: []string{"x", "y"}}, {Name: "b"}}
	require.True(t, a.Equal(b))
	require.Equal(t, a.Key(), b.Key())
}

func TestSubset(t *testing.T) {
	a := Context{{Name: "a"}}
	b := Context{{Name: "a"}, {Name: "b"}}
	require.True(t, a.Subset(b))
	require.False(t, b.Subset(a))
}

func TestCovers(t *testing.T) {
	target := Context{{Name: "a"}, {Name: "b"}}
	parts := []Context{{{Name: "a"}}, {{Name: "b"}}}
	require.True(t, Covers(parts, target))
	require.False(t, Covers(parts[:1], target))
}

func TestMinimalCover(t *testing.T) {
	small := Context{{Name: "a"}}
	big := Context{{Name: "a"}, {Name: "b"}}
	other := Context{{Name: "c"}}
	out := MinimalCover([]Context{small, big, other})
	require.Len(t, out, 2)
	found := map[string]bool{}
	for _, c := range out {
		found[c.Key()] = true
	}
	require.True(t, found[big.Key()])
	require.True(t, found[other.Key()])
	require.False(t, found[small.Key()])
}
