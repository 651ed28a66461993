// Package registry is the Search Index Registry (§4.4): the
// in-memory map of live Search Indexes, keyed by type and
// authorization context, persisted to a metadata graph in the
// triplestore.
package registry

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/musearch/bridge/internal/authctx"
	"github.com/musearch/bridge/internal/sparql"
)

// Status is a Search Index's lifecycle state (§3).
type Status string

const (
	StatusValid    Status = "valid"
	StatusInvalid  Status = "invalid"
	StatusUpdating Status = "updating"
	StatusDeleted  Status = "deleted"
)

// SearchIndex is a live, named projection instance. Mutations to a
// SearchIndex's own fields must hold Mu; the Registry's own mutex
// guards the map that holds SearchIndexes, not their contents.
type SearchIndex struct {
	Mu sync.Mutex

	URI           string
	Name          string
	TypeName      string
	AllowedGroups authctx.Context
	UsedGroups    authctx.Context
	IsEager       bool
	Status        Status
}

// IndexName computes the deterministic search-index name (§6): the
// MD5 of the type name and the canonical allowed-groups, so that
// recomputing it for a structurally equal authorization context
// always yields the same value (I2).
func IndexName(typeName string, allowedGroups authctx.Context) string {
	canon := allowedGroups.Canonicalize()
	parts := make([]string, len(canon))
	for i, g := range canon {
		parts[i] = g.Key()
	}
	sum := md5.Sum([]byte(typeName + "-" + strings.Join(parts, "-")))
	return hex.EncodeToString(sum[:])
}

const metadataGraph = "http://mu.semte.ch/graphs/search"

// Registry owns the map of live SearchIndexes, keyed by their
// deterministic name (itself a function of type and canonical allowed
// groups), and its triplestore-backed persistence.
type Registry struct {
	mu   sync.RWMutex
	byID map[string]*SearchIndex // name -> index
	pool sparql.Pool
}

func New(pool sparql.Pool) *Registry {
	return &Registry{byID: make(map[string]*SearchIndex), pool: pool}
}

// Create registers a new SearchIndex and persists its metadata. If
// one with the same name is already registered, it is returned
// unchanged (I1) except for backfilling group/eager fields a
// metadata reload left empty (see LoadAll).
func (r *Registry) Create(ctx context.Context, typeName string, allowed, used authctx.Context, isEager bool) (*SearchIndex, error) {
	name := IndexName(typeName, allowed)

	r.mu.Lock()
	if existing, ok := r.byID[name]; ok {
		r.mu.Unlock()
		existing.Mu.Lock()
		if len(existing.AllowedGroups) == 0 && len(allowed) > 0 {
			existing.AllowedGroups = allowed
		}
		if len(existing.UsedGroups) == 0 && len(used) > 0 {
			existing.UsedGroups = used
		}
		if isEager {
			existing.IsEager = true
		}
		existing.Mu.Unlock()
		return existing, nil
	}
	idx := &SearchIndex{
		URI:           metadataGraph + "/" + name,
		Name:          name,
		TypeName:      typeName,
		AllowedGroups: allowed,
		UsedGroups:    used,
		IsEager:       isEager,
		Status:        StatusInvalid,
	}
	r.byID[name] = idx
	r.mu.Unlock()

	if err := r.persist(ctx, idx); err != nil {
		return nil, err
	}
	return idx, nil
}

func (r *Registry) persist(ctx context.Context, idx *SearchIndex) error {
	var groups strings.Builder
	for _, g := range idx.AllowedGroups.Canonicalize() {
		fmt.Fprintf(&groups, "    search:hasAllowedGroup %q ;\n", g.Key())
	}
	for _, g := range idx.UsedGroups.Canonicalize() {
		fmt.Fprintf(&groups, "    search:hasUsedGroup %q ;\n", g.Key())
	}
	update := fmt.Sprintf(`
PREFIX search: <http://mu.semte.ch/vocabularies/search/>
PREFIX mu: <http://mu.semte.ch/vocabularies/core/>
INSERT DATA {
  <%s> a search:ElasticsearchIndex ;
    mu:uuid %q ;
    search:objectType %q ;
%s    search:indexName %q .
}`, idx.URI, uuid.New().String(), idx.TypeName, groups.String(), idx.Name)

	if err := r.pool.SudoUpdate(ctx, update); err != nil {
		return fmt.Errorf("registry: persisting index %q: %w", idx.Name, err)
	}
	return nil
}

// FindByName returns the SearchIndex with the given deterministic
// name, if registered.
func (r *Registry) FindByName(name string) (*SearchIndex, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	idx, ok := r.byID[name]
	return idx, ok
}

// FindForType returns every registered SearchIndex of the given type.
func (r *Registry) FindForType(typeName string) []*SearchIndex {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*SearchIndex
	for _, idx := range r.byID {
		if idx.TypeName == typeName {
			out = append(out, idx)
		}
	}
	return out
}

// All returns every registered SearchIndex regardless of type.
func (r *Registry) All() []*SearchIndex {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*SearchIndex, 0, len(r.byID))
	for _, idx := range r.byID {
		out = append(out, idx)
	}
	return out
}

// RemoveByName deletes an index's metadata and its in-memory entry.
func (r *Registry) RemoveByName(ctx context.Context, name string) error {
	r.mu.Lock()
	idx, ok := r.byID[name]
	if ok {
		delete(r.byID, name)
	}
	r.mu.Unlock()
	if !ok {
		return nil
	}
	update := fmt.Sprintf(`
PREFIX search: <http://mu.semte.ch/vocabularies/search/>
DELETE WHERE { <%s> ?p ?o . }`, idx.URI)
	if err := r.pool.SudoUpdate(ctx, update); err != nil {
		return fmt.Errorf("registry: removing index %q: %w", name, err)
	}
	return nil
}

// LoadAll populates the registry from persisted metadata for the
// given configured types, e.g. at process startup when
// persist_indexes is enabled. eagerGroups is the configured set of
// eager-indexing group tuples, used to re-derive IsEager (§4.4's
// metadata layout does not carry that flag itself).
func (r *Registry) LoadAll(ctx context.Context, typeNames []string, eagerGroups []authctx.Context) error {
	allowed := make(map[string]bool, len(typeNames))
	for _, t := range typeNames {
		allowed[t] = true
	}

	query := `
PREFIX search: <http://mu.semte.ch/vocabularies/search/>
SELECT ?index ?objectType ?indexName WHERE {
  ?index a search:ElasticsearchIndex ;
    search:objectType ?objectType ;
    search:indexName ?indexName .
}`
	rows, err := r.pool.SudoQuery(ctx, query)
	if err != nil {
		return fmt.Errorf("registry: loading metadata: %w", err)
	}

	loaded := make(map[string]*SearchIndex)
	var order []string
	for _, row := range rows {
		typeName := row["objectType"].Value
		if !allowed[typeName] {
			continue
		}
		name := row["indexName"].Value
		if _, exists := loaded[name]; exists {
			continue
		}
		loaded[name] = &SearchIndex{
			URI:      row["index"].Value,
			Name:     name,
			TypeName: typeName,
			Status:   StatusValid,
		}
		order = append(order, name)
	}
	if len(loaded) == 0 {
		return nil
	}

	if err := r.loadGroups(ctx, loaded, "hasAllowedGroup", func(idx *SearchIndex, g authctx.Group) {
		idx.AllowedGroups = append(idx.AllowedGroups, g)
	}); err != nil {
		return err
	}
	if err := r.loadGroups(ctx, loaded, "hasUsedGroup", func(idx *SearchIndex, g authctx.Group) {
		idx.UsedGroups = append(idx.UsedGroups, g)
	}); err != nil {
		return err
	}
	for _, idx := range loaded {
		idx.IsEager = isEagerTuple(idx.AllowedGroups, eagerGroups)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for _, name := range order {
		if _, exists := r.byID[name]; exists {
			continue
		}
		r.byID[name] = loaded[name]
	}
	return nil
}

// loadGroups runs a single-predicate group query against every
// loaded index and applies each decoded group via add.
func (r *Registry) loadGroups(ctx context.Context, loaded map[string]*SearchIndex, predicate string, add func(*SearchIndex, authctx.Group)) error {
	query := fmt.Sprintf(`
PREFIX search: <http://mu.semte.ch/vocabularies/search/>
SELECT ?indexName ?group WHERE {
  ?index a search:ElasticsearchIndex ;
    search:indexName ?indexName ;
    search:%s ?group .
}`, predicate)
	rows, err := r.pool.SudoQuery(ctx, query)
	if err != nil {
		return fmt.Errorf("registry: loading %s: %w", predicate, err)
	}
	for _, row := range rows {
		idx, ok := loaded[row["indexName"].Value]
		if !ok {
			continue
		}
		var g authctx.Group
		if err := json.Unmarshal([]byte(row["group"].Value), &g); err != nil {
			continue
		}
		add(idx, g)
	}
	return nil
}

func isEagerTuple(groups authctx.Context, eagerGroups []authctx.Context) bool {
	key := groups.Canonicalize().Key()
	for _, e := range eagerGroups {
		if e.Canonicalize().Key() == key {
			return true
		}
	}
	return false
}
