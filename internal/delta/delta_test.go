package delta

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/musearch/bridge/internal/authctx"
	"github.com/musearch/bridge/internal/config"
	"github.com/musearch/bridge/internal/docbuilder"
	"github.com/musearch/bridge/internal/esbackend"
	"github.com/musearch/bridge/internal/registry"
	"github.com/musearch/bridge/internal/sparql"
	"github.com/musearch/bridge/internal/updatehandler"
	"github.com/stretchr/testify/require"
)

const doc = `{
	"types": [
		{
			"name": "person",
			"rdf_types": ["http://ex.org/Person"],
			"properties": [
				{"name": "employer", "path": ["http://ex.org/worksFor"]},
				{"name": "name", "path": ["http://ex.org/name"]}
			]
		}
	]
}`

func newProcessor(t *testing.T) (*Processor, *updatehandler.Handler, *esbackend.Fake, *registry.Registry) {
	cfg, err := config.Load([]byte(doc))
	require.NoError(t, err)

	f := sparql.NewFake()
	f.QueryFunc = func(groups authctx.Context, query string) ([]sparql.Row, error) {
		return []sparql.Row{{"name": sparql.Term{Value: "Ada", Type: sparql.TermLiteral}}}, nil
	}
	f.AskFunc = func(groups authctx.Context, query string) (bool, error) { return true, nil }

	backend := esbackend.NewFake()
	reg := registry.New(f)
	groups := authctx.Context{{Name: "public"}}
	idx, err := reg.Create(context.Background(), "person", groups, groups, true)
	require.NoError(t, err)
	backend.CreateIndex(context.Background(), idx.Name, nil, nil)

	h := updatehandler.New(&docbuilder.Builder{Pool: f}, backend, reg, cfg, f, 16)
	p := New(cfg, f, h)
	return p, h, backend, reg
}

func TestDispatchTypeChangeEnqueuesSubject(t *testing.T) {
	p, h, backend, reg := newProcessor(t)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	go h.Run(ctx, 1)

	p.ProcessChangesets([]Changeset{{
		Inserts: []Triple{{
			Subject:   Term{Value: "http://ex.org/ada", Type: "uri"},
			Predicate: Term{Value: rdfType, Type: "uri"},
			Object:    Term{Value: "http://ex.org/Person", Type: "uri"},
		}},
	}})
	go p.Run(ctx)

	idx := reg.FindForType("person")[0]
	require.Eventually(t, func() bool {
		idx.Mu.Lock()
		defer idx.Mu.Unlock()
		_, ok := backend.Indexes[idx.Name][updatehandler.DocID("http://ex.org/ada")]
		return ok
	}, time.Second, 10*time.Millisecond)
}

func TestDispatchPropertyChangeWalksPathBackwards(t *testing.T) {
	cfg, err := config.Load([]byte(doc))
	require.NoError(t, err)

	var gotQuery string
	f := sparql.NewFake()
	f.QueryFunc = func(groups authctx.Context, query string) ([]sparql.Row, error) {
		gotQuery = query
		return []sparql.Row{{"s": sparql.Term{Value: "http://ex.org/ada", Type: sparql.TermURI}}}, nil
	}

	backend := esbackend.NewFake()
	reg := registry.New(f)
	h := updatehandler.New(&docbuilder.Builder{Pool: f}, backend, reg, cfg, f, 16)
	p := New(cfg, f, h)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, p.apply(ctx, Changeset{Inserts: []Triple{{
		Subject:   Term{Value: "http://ex.org/ada", Type: "uri"},
		Predicate: Term{Value: "http://ex.org/worksFor", Type: "uri"},
		Object:    Term{Value: "http://ex.org/acme", Type: "uri"},
	}}}))

	require.Contains(t, gotQuery, "http://ex.org/worksFor")
	require.True(t, strings.Contains(gotQuery, "FILTER(?s = <http://ex.org/ada>)"))
}

func TestProcedureString(t *testing.T) {
	require.Equal(t, "add", Add.String())
	require.Equal(t, "delete", Delete.String())
	require.Equal(t, "invalid", Procedure(0).String())
}
