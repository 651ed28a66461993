package esbackend

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFakeLifecycle(t *testing.T) {
	f := NewFake()
	ctx := context.Background()
	require.NoError(t, f.CreateIndex(ctx, "people", nil, nil))
	exists, err := f.IndexExists(ctx, "people")
	require.NoError(t, err)
	require.True(t, exists)

	require.NoError(t, f.UpsertDocument(ctx, "people", "1", map[string]interface{}{"name": "Ada"}))
	count, err := f.Count(ctx, "people", "")
	require.NoError(t, err)
	require.Equal(t, int64(1), count)

	require.NoError(t, f.Bulk(ctx, "people", []Op{{Delete: true, ID: "1"}}))
	count, err = f.Count(ctx, "people", "")
	require.NoError(t, err)
	require.Equal(t, int64(0), count)

	require.NoError(t, f.DeleteIndex(ctx, "people"))
	exists, err = f.IndexExists(ctx, "people")
	require.NoError(t, err)
	require.False(t, exists)
}
