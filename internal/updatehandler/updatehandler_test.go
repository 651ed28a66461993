package updatehandler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/musearch/bridge/internal/authctx"
	"github.com/musearch/bridge/internal/config"
	"github.com/musearch/bridge/internal/docbuilder"
	"github.com/musearch/bridge/internal/esbackend"
	"github.com/musearch/bridge/internal/registry"
	"github.com/musearch/bridge/internal/sparql"
	"github.com/stretchr/testify/require"
)

const doc = `{
	"types": [
		{
			"name": "person",
			"rdf_types": ["http://ex.org/Person"],
			"properties": [
				{"name": "name", "path": ["http://ex.org/name"]}
			]
		}
	]
}`

func newHandler(t *testing.T, exists bool) (*Handler, *esbackend.Fake, *registry.Registry, authctx.Context) {
	cfg, err := config.Load([]byte(doc))
	require.NoError(t, err)

	f := sparql.NewFake()
	f.AskFunc = func(groups authctx.Context, query string) (bool, error) { return exists, nil }
	f.QueryFunc = func(groups authctx.Context, query string) ([]sparql.Row, error) {
		return []sparql.Row{{"name": sparql.Term{Value: "Ada", Type: sparql.TermLiteral}}}, nil
	}

	backend := esbackend.NewFake()
	reg := registry.New(f)
	groups := authctx.Context{{Name: "public"}}
	idx, err := reg.Create(context.Background(), "person", groups, groups, true)
	require.NoError(t, err)
	backend.CreateIndex(context.Background(), idx.Name, nil, nil)

	builder := &docbuilder.Builder{Pool: f}
	h := New(builder, backend, reg, cfg, f, 16)
	return h, backend, reg, groups
}

func TestApplyUpsertsWhenResourceExists(t *testing.T) {
	h, backend, reg, _ := newHandler(t, true)
	ctx := context.Background()
	h.Enqueue(Task{Subject: "http://ex.org/ada", TypeName: "person"})

	runCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	go h.Run(runCtx, 2)
	defer cancel()

	idx := reg.FindForType("person")[0]
	require.Eventually(t, func() bool {
		idx.Mu.Lock()
		defer idx.Mu.Unlock()
		_, ok := backend.Indexes[idx.Name][DocID("http://ex.org/ada")]
		return ok
	}, time.Second, 10*time.Millisecond)
}

func TestApplyDeletesWhenResourceGone(t *testing.T) {
	h, backend, reg, _ := newHandler(t, false)
	idx := reg.FindForType("person")[0]
	backend.UpsertDocument(context.Background(), idx.Name, DocID("http://ex.org/ada"), map[string]interface{}{"name": "Ada"})

	runCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	go h.Run(runCtx, 2)
	defer cancel()
	h.Enqueue(Task{Subject: "http://ex.org/ada", TypeName: "person"})

	require.Eventually(t, func() bool {
		_, ok := backend.Indexes[idx.Name][DocID("http://ex.org/ada")]
		return !ok
	}, time.Second, 10*time.Millisecond)
}

func TestEnqueueCoalescesSameKey(t *testing.T) {
	h, _, _, _ := newHandler(t, true)
	var applyCount int32
	done := make(chan struct{})

	h.Enqueue(Task{Subject: "http://ex.org/ada", TypeName: "person"})
	h.Enqueue(Task{Subject: "http://ex.org/ada", TypeName: "person"})
	require.Len(t, h.signal, 1, "the second enqueue for the same key should not signal again")

	runCtx, cancel := context.WithCancel(context.Background())
	go func() {
		h.drainKey(runCtx, Task{Subject: "http://ex.org/ada", TypeName: "person"}.key())
		atomic.AddInt32(&applyCount, 1)
		close(done)
	}()
	<-done
	cancel()
	require.Equal(t, int32(1), applyCount)
}
