package sparql

import (
	"context"
	"testing"

	"github.com/musearch/bridge/internal/authctx"
	"github.com/stretchr/testify/require"
)

func TestFakeScopesAuthorization(t *testing.T) {
	f := NewFake()
	var seen authctx.Context
	f.QueryFunc = func(groups authctx.Context, query string) ([]Row, error) {
		seen = groups
		return []Row{{"s": Term{Value: "http://ex.org/a", Type: TermURI}}}, nil
	}

	groups := authctx.Context{{Name: "public"}}
	err := f.WithAuthorization(context.Background(), groups, func(c Client) error {
		rows, err := c.Query(context.Background(), "SELECT * WHERE {}")
		require.NoError(t, err)
		require.Len(t, rows, 1)
		return nil
	})
	require.NoError(t, err)
	require.True(t, seen.Equal(groups))
}

func TestFakeSudoQuery(t *testing.T) {
	f := NewFake()
	var seen authctx.Context
	f.QueryFunc = func(groups authctx.Context, query string) ([]Row, error) {
		seen = groups
		return nil, nil
	}
	_, err := f.SudoQuery(context.Background(), "SELECT * WHERE {}")
	require.NoError(t, err)
	require.True(t, seen.Equal(f.Sudo))
}
