// Package updatehandler is the Update Handler (§4.8): a keyed async
// queue that coalesces pending (subject, type) work so at most one
// task per key is ever in flight, and applies it against every
// Search Index of that type.
package updatehandler

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"sync"

	"github.com/musearch/bridge/clog"
	"github.com/musearch/bridge/internal/authctx"
	"github.com/musearch/bridge/internal/config"
	"github.com/musearch/bridge/internal/docbuilder"
	"github.com/musearch/bridge/internal/esbackend"
	"github.com/musearch/bridge/internal/registry"
	"github.com/musearch/bridge/internal/sparql"
)

// Task is one unit of coalesced work: re-derive (or retire) the
// projection of subject for every Search Index of type TypeName.
type Task struct {
	Subject  string
	TypeName string
}

func (t Task) key() string { return t.TypeName + "\x00" + t.Subject }

// DocID returns the stable search-backend document id for a subject
// URI: the MD5 of the URI, so arbitrarily long or special-character
// IRIs are always valid Elasticsearch document ids.
func DocID(subject string) string {
	sum := md5.Sum([]byte(subject))
	return hex.EncodeToString(sum[:])
}

// Handler owns the coalescing queue and the collaborators needed to
// apply a task: the Document Builder, the search backend, the
// registry of live indexes, and the configuration defining each
// type's related RDF classes.
type Handler struct {
	Builder  *docbuilder.Builder
	Backend  esbackend.Backend
	Registry *registry.Registry
	Config   *config.Config
	Pool     sparql.Pool

	mu      sync.Mutex
	pending map[string]Task
	active  map[string]bool
	signal  chan string
}

// New returns a Handler with a queue sized for signalSize in-flight
// distinct keys before Enqueue blocks.
func New(builder *docbuilder.Builder, backend esbackend.Backend, reg *registry.Registry, cfg *config.Config, pool sparql.Pool, signalSize int) *Handler {
	return &Handler{
		Builder:  builder,
		Backend:  backend,
		Registry: reg,
		Config:   cfg,
		Pool:     pool,
		pending:  make(map[string]Task),
		active:   make(map[string]bool),
		signal:   make(chan string, signalSize),
	}
}

// Enqueue coalesces t into the queue: if a task for the same key is
// already pending (queued but not yet started), it is replaced
// in-place rather than duplicated; if one is in flight, the new
// payload is picked up automatically when the in-flight task
// finishes.
func (h *Handler) Enqueue(t Task) {
	k := t.key()
	h.mu.Lock()
	_, alreadyPending := h.pending[k]
	isActive := h.active[k]
	h.pending[k] = t
	h.mu.Unlock()

	if !alreadyPending && !isActive {
		h.signal <- k
	}
}

// Run starts workers workers draining the queue until ctx is
// cancelled.
func (h *Handler) Run(ctx context.Context, workers int) {
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case k := <-h.signal:
					h.drainKey(ctx, k)
				}
			}
		}()
	}
	wg.Wait()
}

// drainKey processes the most recently enqueued task for k, and loops
// if another task for k arrived while it was processing, so that a
// key is never dropped even without a fresh signal for it.
func (h *Handler) drainKey(ctx context.Context, k string) {
	for {
		h.mu.Lock()
		task, ok := h.pending[k]
		if !ok {
			h.mu.Unlock()
			return
		}
		delete(h.pending, k)
		h.active[k] = true
		h.mu.Unlock()

		if err := h.apply(ctx, task); err != nil {
			clog.Warningf("UPDATE HANDLER: applying update for %q (%q): %v", task.Subject, task.TypeName, err)
		}

		h.mu.Lock()
		delete(h.active, k)
		_, more := h.pending[k]
		h.mu.Unlock()
		if !more {
			return
		}
	}
}

func (h *Handler) apply(ctx context.Context, task Task) error {
	def, ok := h.Config.TypeByName(task.TypeName)
	if !ok {
		return fmt.Errorf("no configuration for type %q", task.TypeName)
	}
	indexes := h.Registry.FindForType(task.TypeName)
	docID := DocID(task.Subject)

	for _, idx := range indexes {
		idx.Mu.Lock()
		err := h.applyToIndex(ctx, idx, docID, task.Subject, def)
		idx.Mu.Unlock()
		if err != nil {
			clog.Warningf("UPDATE HANDLER: index %q: %v", idx.Name, err)
		}
	}
	return nil
}

// applyToIndex re-derives subject's projection for one index: if the
// subject no longer exists with one of the type's related RDF classes
// under that index's authorization, its document is retired; missing
// documents are not an error (§4.8).
func (h *Handler) applyToIndex(ctx context.Context, idx *registry.SearchIndex, docID, subject string, def config.IndexDefinition) error {
	exists, err := h.existsUnderAuthorization(ctx, idx.AllowedGroups, subject, def.RelatedRDFTypes())
	if err != nil {
		return fmt.Errorf("checking existence of %q: %w", subject, err)
	}
	if !exists {
		if err := h.Backend.DeleteDocument(ctx, idx.Name, docID); err != nil {
			return fmt.Errorf("deleting document %q: %w", docID, err)
		}
		return nil
	}

	doc, err := h.Builder.Build(ctx, idx.AllowedGroups, subject, def)
	if err != nil {
		return fmt.Errorf("building document for %q: %w", subject, err)
	}
	if err := h.Backend.UpsertDocument(ctx, idx.Name, docID, map[string]interface{}(doc)); err != nil {
		return fmt.Errorf("upserting document %q: %w", docID, err)
	}
	return nil
}

func (h *Handler) existsUnderAuthorization(ctx context.Context, groups authctx.Context, subject string, relatedTypes []string) (bool, error) {
	if len(relatedTypes) == 0 {
		return false, nil
	}
	values := make([]string, len(relatedTypes))
	for i, t := range relatedTypes {
		values[i] = "<" + t + ">"
	}
	query := fmt.Sprintf(`ASK { <%s> a ?type . FILTER(?type IN (%s)) }`, subject, joinComma(values))

	var exists bool
	err := h.Pool.WithAuthorization(ctx, groups, func(c sparql.Client) error {
		var err error
		exists, err = c.Ask(ctx, query)
		return err
	})
	return exists, err
}

func joinComma(values []string) string {
	out := ""
	for i, v := range values {
		if i > 0 {
			out += ", "
		}
		out += v
	}
	return out
}
