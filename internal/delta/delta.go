// Package delta is the Delta Processor (§4.7): it consumes delta
// changesets describing inserted/deleted triples, decides which
// configured index types each changed triple affects, resolves the
// root subjects whose projected documents must be recomputed, and
// enqueues them with the Update Handler.
package delta

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/cayleygraph/quad"

	"github.com/musearch/bridge/clog"
	"github.com/musearch/bridge/internal/config"
	"github.com/musearch/bridge/internal/pathexpr"
	"github.com/musearch/bridge/internal/sparql"
	"github.com/musearch/bridge/internal/updatehandler"
	"github.com/musearch/bridge/voc/rdf"
)

// rdfType is the full rdf:type predicate IRI.
const rdfType = rdf.NS + "type"

// Procedure names the operation a Delta applies, mirroring the
// insert/delete tagging carried by a delta v0.0.1 changeset.
type Procedure int8

const (
	Delete Procedure = -1
	Add    Procedure = +1
)

func (p Procedure) String() string {
	switch p {
	case Add:
		return "add"
	case Delete:
		return "delete"
	default:
		return "invalid"
	}
}

// Delta is one changed triple tagged with the procedure that produced
// it.
type Delta struct {
	Quad   quad.Quad
	Action Procedure
}

// Term is a single JSON-encoded triple term, matching the delta
// v0.0.1 wire format.
type Term struct {
	Value    string `json:"value"`
	Type     string `json:"type,omitempty"`
	Datatype string `json:"datatype,omitempty"`
	Lang     string `json:"xml:lang,omitempty"`
}

// Triple is one triple in a delta v0.0.1 changeset.
type Triple struct {
	Subject   Term `json:"subject"`
	Predicate Term `json:"predicate"`
	Object    Term `json:"object"`
}

// Changeset is one element of a delta v0.0.1 payload.
type Changeset struct {
	Inserts []Triple `json:"inserts"`
	Deletes []Triple `json:"deletes"`
}

// Processor dispatches changesets against the configured index types
// and feeds the resulting (subject, type) work into the Update
// Handler. A single goroutine drains the FIFO so changesets are
// applied in arrival order; producers (ProcessChangesets callers) only
// ever append under mu.
type Processor struct {
	Config  *config.Config
	Pool    sparql.Pool
	Handler *updatehandler.Handler

	mu     sync.Mutex
	queue  []Changeset
	notify chan struct{}
}

// New returns a Processor ready to have changesets fed into it via
// ProcessChangesets and drained via Run.
func New(cfg *config.Config, pool sparql.Pool, handler *updatehandler.Handler) *Processor {
	return &Processor{
		Config:  cfg,
		Pool:    pool,
		Handler: handler,
		notify:  make(chan struct{}, 1),
	}
}

// ProcessChangesets appends changesets to the FIFO and wakes the
// consumer.
func (p *Processor) ProcessChangesets(changesets []Changeset) {
	p.mu.Lock()
	p.queue = append(p.queue, changesets...)
	p.mu.Unlock()

	select {
	case p.notify <- struct{}{}:
	default:
	}
}

// Run drains the FIFO until ctx is cancelled. Each changeset is
// processed in isolation: a failure logs and moves on to the next one
// rather than blocking the consumer.
func (p *Processor) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-p.notify:
		}
		for {
			cs, ok := p.pop()
			if !ok {
				break
			}
			if err := p.apply(ctx, cs); err != nil {
				clog.Warningf("DELTA: processing changeset failed: %v", err)
			}
		}
	}
}

func (p *Processor) pop() (Changeset, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.queue) == 0 {
		return Changeset{}, false
	}
	cs := p.queue[0]
	p.queue = p.queue[1:]
	return cs, true
}

// apply flattens one changeset into tagged Deltas and dispatches each.
func (p *Processor) apply(ctx context.Context, cs Changeset) error {
	var errs []string
	for _, t := range cs.Inserts {
		if err := p.dispatch(ctx, t, Add); err != nil {
			errs = append(errs, err.Error())
		}
	}
	for _, t := range cs.Deletes {
		if err := p.dispatch(ctx, t, Delete); err != nil {
			errs = append(errs, err.Error())
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("%d triple(s) failed: %s", len(errs), strings.Join(errs, "; "))
	}
	return nil
}

// dispatch finds every index type affected by triple and resolves the
// subjects whose documents must be refreshed.
func (p *Processor) dispatch(ctx context.Context, t Triple, action Procedure) error {
	pred := quad.IRI(t.Predicate.Value)

	if string(pred) == rdfType {
		return p.dispatchTypeChange(ctx, t, action)
	}
	return p.dispatchPropertyChange(ctx, t, pred, action)
}

// dispatchTypeChange handles rdf:type triples: the subject of the
// triple is itself the root whose document is affected, for every
// configured type whose related RDF classes include the object value.
func (p *Processor) dispatchTypeChange(ctx context.Context, t Triple, action Procedure) error {
	for _, def := range p.Config.Types {
		affected := false
		for _, rdfType := range def.RelatedRDFTypes() {
			if rdfType == t.Object.Value {
				affected = true
				break
			}
		}
		if !affected {
			continue
		}
		p.Handler.Enqueue(updatehandler.Task{Subject: t.Subject.Value, TypeName: def.Name})
	}
	return nil
}

// dispatchPropertyChange handles non-type-predicate triples: every
// configured property path mentioning the predicate (forward or
// inverse) is walked backwards from the triple to find the resources
// whose documents depend on it.
func (p *Processor) dispatchPropertyChange(ctx context.Context, t Triple, pred quad.IRI, action Procedure) error {
	idx := p.Config.PathIndex()
	refs := idx.Lookup(pred)
	if len(refs) == 0 {
		return nil
	}

	seen := make(map[string]bool)
	for _, ref := range refs {
		var positions []int
		positions = append(positions, ref.Path.Positions(pred, false)...)
		positions = append(positions, ref.Path.Positions(pred, true)...)
		for _, i := range positions {
			subjects, err := p.resolveRootSubjects(ctx, ref, i, action, t)
			if err != nil {
				return fmt.Errorf("resolving roots for type %q property %q: %w", ref.TypeName, ref.PropertyName, err)
			}
			for _, s := range subjects {
				key := ref.TypeName + "\x00" + s
				if seen[key] {
					continue
				}
				seen[key] = true
				p.Handler.Enqueue(updatehandler.Task{Subject: s, TypeName: ref.TypeName})
			}
		}
	}
	return nil
}

// resolveRootSubjects executes the reversed-path walk query described
// in §4.7: for a triple bound at position i of ref's path (in the
// given direction), find every resource of ref's related RDF types
// reachable from the triple's endpoint by the path's prefix, with the
// triple itself and the path's suffix checked only for insertions
// (deletions under-approximate by skipping both, since the triple no
// longer exists to re-traverse).
func (p *Processor) resolveRootSubjects(ctx context.Context, ref pathexpr.Ref, i int, action Procedure, t Triple) ([]string, error) {
	step := ref.Path[i]
	isTerminal := i == len(ref.Path)-1

	// Literal-object paths whose predicate is not terminal and not
	// inverse cannot be walked past the object (a literal has no
	// outgoing edges), so such positions are pruned.
	if t.Object.Type == "literal" && !isTerminal && !step.Inverse {
		return nil, nil
	}

	// prior is the point reached by walking the path's prefix from
	// ?s; after is where the path's suffix continues from. A forward
	// step reads subject->predicate->object in that direction; an
	// inverse step reads the same triple the other way around.
	prior, after := subjectTerm(t), objectTerm(t)
	if step.Inverse {
		prior, after = after, prior
	}

	var b strings.Builder
	fmt.Fprintf(&b, "SELECT DISTINCT ?s WHERE {\n")
	fmt.Fprintf(&b, "  ?s a ?type .\n")
	fmt.Fprintf(&b, "  FILTER(?type IN (%s)) .\n", typesFilter(relatedTypesOf(p.Config, ref.TypeName)))

	if prefix := ref.Path.Prefix(i); len(prefix) > 0 {
		fmt.Fprintf(&b, "  ?s %s %s .\n", prefix.SPARQLExpr(), prior)
	} else {
		fmt.Fprintf(&b, "  FILTER(?s = %s) .\n", prior)
	}

	if action == Add {
		fmt.Fprintf(&b, "  %s %s %s .\n", subjectTerm(t), predicateTerm(t), objectTerm(t))
		if suffix := ref.Path.Suffix(i); len(suffix) > 0 {
			fmt.Fprintf(&b, "  %s %s ?end .\n", after, suffix.SPARQLExpr())
		}
	}
	b.WriteString("}")

	rows, err := p.Pool.SudoQuery(ctx, b.String())
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(rows))
	for _, row := range rows {
		out = append(out, row["s"].Value)
	}
	return out, nil
}

func relatedTypesOf(cfg *config.Config, typeName string) []string {
	def, ok := cfg.TypeByName(typeName)
	if !ok {
		return nil
	}
	return def.RelatedRDFTypes()
}

func typesFilter(types []string) string {
	out := make([]string, len(types))
	for i, t := range types {
		out[i] = "<" + t + ">"
	}
	return strings.Join(out, ", ")
}

func subjectTerm(t Triple) string {
	return "<" + t.Subject.Value + ">"
}

func predicateTerm(t Triple) string {
	return "<" + t.Predicate.Value + ">"
}

func objectTerm(t Triple) string {
	if t.Object.Type == "literal" {
		escaped := strings.ReplaceAll(t.Object.Value, `"`, `\"`)
		term := `"` + escaped + `"`
		if t.Object.Datatype != "" {
			term += "^^<" + t.Object.Datatype + ">"
		} else if t.Object.Lang != "" {
			term += "@" + t.Object.Lang
		}
		return term
	}
	return "<" + t.Object.Value + ">"
}
