package docbuilder

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSmartMergeNullAbsorbs(t *testing.T) {
	a := Document{"name": nil, "uri": "u"}
	b := Document{"name": "Ada"}
	merged, err := smartMerge(a, b)
	require.NoError(t, err)
	require.Equal(t, "Ada", merged["name"])
}

func TestSmartMergeArraysConcatDedup(t *testing.T) {
	a := Document{"tags": []interface{}{"x", "y"}}
	b := Document{"tags": []interface{}{"y", "z"}}
	merged, err := smartMerge(a, b)
	require.NoError(t, err)
	require.ElementsMatch(t, []interface{}{"x", "y", "z"}, merged["tags"])
}

func TestSmartMergeScalarsCombine(t *testing.T) {
	a := Document{"role": "admin"}
	b := Document{"role": "editor"}
	merged, err := smartMerge(a, b)
	require.NoError(t, err)
	require.ElementsMatch(t, []interface{}{"admin", "editor"}, merged["role"])
}

func TestSmartMergeIncompatibleFails(t *testing.T) {
	a := Document{"role": "admin"}
	b := Document{"role": Document{"nested": true}}
	_, err := smartMerge(a, b)
	require.Error(t, err)
}
