package indexmanager

import (
	"context"
	"testing"

	"github.com/musearch/bridge/internal/authctx"
	"github.com/musearch/bridge/internal/config"
	"github.com/musearch/bridge/internal/docbuilder"
	"github.com/musearch/bridge/internal/esbackend"
	"github.com/musearch/bridge/internal/indexbuilder"
	"github.com/musearch/bridge/internal/registry"
	"github.com/musearch/bridge/internal/sparql"
	"github.com/stretchr/testify/require"
)

const doc = `{
	"types": [
		{
			"name": "person",
			"rdf_types": ["http://ex.org/Person"],
			"properties": [{"name": "name", "path": ["http://ex.org/name"]}]
		}
	]
}`

func newManager(t *testing.T) (*Manager, *esbackend.Fake, *config.Config) {
	cfg, err := config.Load([]byte(doc))
	require.NoError(t, err)

	f := sparql.NewFake()
	f.QueryFunc = func(groups authctx.Context, query string) ([]sparql.Row, error) {
		return nil, nil
	}

	backend := esbackend.NewFake()
	reg := registry.New(f)
	ib := &indexbuilder.Builder{
		DocBuilder:      &docbuilder.Builder{Pool: f},
		Backend:         backend,
		Pool:            f,
		BatchSize:       10,
		NumberOfThreads: 1,
	}
	m := &Manager{Config: cfg, Registry: reg, Backend: backend, IndexBuilder: ib, Pool: f}
	return m, backend, cfg
}

func TestEnsureCreatesBackendIndexOnce(t *testing.T) {
	m, backend, _ := newManager(t)
	groups := authctx.Context{{Name: "public"}}

	idx1, err := m.Ensure(context.Background(), "person", groups, groups, true)
	require.NoError(t, err)
	require.True(t, backend.Created[idx1.Name])

	idx2, err := m.Ensure(context.Background(), "person", groups, groups, true)
	require.NoError(t, err)
	require.Same(t, idx1, idx2)
}

func TestFetchIndexesReusesEagerSubset(t *testing.T) {
	m, _, _ := newManager(t)
	ctx := context.Background()
	public := authctx.Context{{Name: "public"}}
	staff := authctx.Context{{Name: "staff"}}

	publicIdx, err := m.Ensure(ctx, "person", public, public, true)
	require.NoError(t, err)
	publicIdx.Mu.Lock()
	publicIdx.Status = registry.StatusValid
	publicIdx.Mu.Unlock()

	staffIdx, err := m.Ensure(ctx, "person", staff, staff, true)
	require.NoError(t, err)
	staffIdx.Mu.Lock()
	staffIdx.Status = registry.StatusValid
	staffIdx.Mu.Unlock()

	caller := authctx.Context{{Name: "public"}, {Name: "staff"}}
	selected, err := m.FetchIndexes(ctx, "person", &caller, false)
	require.NoError(t, err)
	require.Len(t, selected, 2)
	names := map[string]bool{selected[0].Name: true, selected[1].Name: true}
	require.True(t, names[publicIdx.Name])
	require.True(t, names[staffIdx.Name])
}

func TestFetchIndexesEnsuresNewIndexWhenNoCover(t *testing.T) {
	m, _, _ := newManager(t)
	ctx := context.Background()
	groups := authctx.Context{{Name: "finance"}}

	selected, err := m.FetchIndexes(ctx, "person", &groups, false)
	require.NoError(t, err)
	require.Len(t, selected, 1)
	require.Equal(t, groups.Key(), selected[0].AllowedGroups.Key())
}

func TestRemoveDeletesBackendIndexAndMetadata(t *testing.T) {
	m, backend, _ := newManager(t)
	ctx := context.Background()
	groups := authctx.Context{{Name: "public"}}

	idx, err := m.Ensure(ctx, "person", groups, groups, true)
	require.NoError(t, err)
	require.NoError(t, m.Remove(ctx, idx))
	require.False(t, backend.Created[idx.Name])

	_, ok := m.Registry.FindByName(idx.Name)
	require.False(t, ok)
}
