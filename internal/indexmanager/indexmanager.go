// Package indexmanager is the Index Manager (§4.5): the central
// coordination point that ensures, combines, updates, invalidates and
// removes Search Indexes.
package indexmanager

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/musearch/bridge/clog"
	"github.com/musearch/bridge/internal/authctx"
	"github.com/musearch/bridge/internal/config"
	"github.com/musearch/bridge/internal/esbackend"
	"github.com/musearch/bridge/internal/indexbuilder"
	"github.com/musearch/bridge/internal/registry"
	"github.com/musearch/bridge/internal/sparql"
)

// Manager coordinates the registry, the search backend and the Index
// Builder. masterMu serialises registry-shaping operations (ensure,
// fetch's fallback ensure, remove); a Search Index's own Mu serialises
// writes against that one index (update, apply).
type Manager struct {
	Config       *config.Config
	Registry     *registry.Registry
	Backend      esbackend.Backend
	IndexBuilder *indexbuilder.Builder
	Pool         sparql.Pool

	masterMu sync.Mutex
}

// Init performs startup reconciliation (§4.5): reloading or
// discarding persisted indexes, then ensuring and eagerly building
// every configured (eager group, type) combination.
func (m *Manager) Init(ctx context.Context) error {
	typeNames := make([]string, len(m.Config.Types))
	for i, d := range m.Config.Types {
		typeNames[i] = d.Name
	}

	if m.Config.PersistIndexes {
		if err := m.Registry.LoadAll(ctx, typeNames, m.Config.EagerIndexingGroups); err != nil {
			return fmt.Errorf("indexmanager: loading persisted indexes: %w", err)
		}
	} else {
		if err := m.discardPersistedIndexes(ctx, typeNames); err != nil {
			return err
		}
	}

	for _, group := range m.Config.EagerIndexingGroups {
		for _, d := range m.Config.Types {
			idx, err := m.ensure(ctx, d.Name, group, group, true)
			if err != nil {
				return fmt.Errorf("indexmanager: ensuring eager index %q: %w", d.Name, err)
			}
			idx.Mu.Lock()
			needsBuild := idx.Status == registry.StatusInvalid
			idx.Mu.Unlock()
			if needsBuild {
				if err := m.update(ctx, idx); err != nil {
					clog.Warningf("INDEX MGMT: eager build of %q failed: %v", idx.Name, err)
				}
			}
		}
	}
	return nil
}

func (m *Manager) discardPersistedIndexes(ctx context.Context, typeNames []string) error {
	if err := m.Registry.LoadAll(ctx, typeNames, nil); err != nil {
		return fmt.Errorf("indexmanager: loading indexes to discard: %w", err)
	}
	for _, idx := range m.Registry.All() {
		if err := m.remove(ctx, idx); err != nil {
			clog.Warningf("INDEX MGMT: discarding index %q: %v", idx.Name, err)
		}
	}
	return nil
}

// Ensure registers (or returns the existing) Search Index for
// (typeName, allowed, used) and makes sure its backend index exists.
func (m *Manager) Ensure(ctx context.Context, typeName string, allowed, used authctx.Context, isEager bool) (*registry.SearchIndex, error) {
	return m.ensure(ctx, typeName, allowed, used, isEager)
}

func (m *Manager) ensure(ctx context.Context, typeName string, allowed, used authctx.Context, isEager bool) (*registry.SearchIndex, error) {
	m.masterMu.Lock()
	defer m.masterMu.Unlock()

	idx, err := m.Registry.Create(ctx, typeName, allowed, used, isEager)
	if err != nil {
		return nil, fmt.Errorf("indexmanager: registering index for type %q: %w", typeName, err)
	}

	exists, err := m.Backend.IndexExists(ctx, idx.Name)
	if err != nil {
		return nil, fmt.Errorf("indexmanager: checking backend index %q: %w", idx.Name, err)
	}
	if !exists {
		def, ok := m.Config.TypeByName(typeName)
		if !ok {
			return nil, fmt.Errorf("indexmanager: no configuration for type %q", typeName)
		}
		mappings, settings := buildMappings(def)
		if err := m.Backend.CreateIndex(ctx, idx.Name, mappings, settings); err != nil {
			return nil, fmt.Errorf("indexmanager: creating backend index %q: %w", idx.Name, err)
		}
		idx.Mu.Lock()
		idx.Status = registry.StatusInvalid
		idx.Mu.Unlock()
	}
	return idx, nil
}

// buildMappings merges the index definition's configured mappings
// with the forced uuid/uri keyword fields every document carries.
func buildMappings(def config.IndexDefinition) (mappings, settings map[string]interface{}) {
	properties := map[string]interface{}{
		"uuid": map[string]interface{}{"type": "keyword"},
		"uri":  map[string]interface{}{"type": "keyword"},
	}
	if len(def.Mappings) > 0 {
		var configured map[string]interface{}
		if err := json.Unmarshal(def.Mappings, &configured); err == nil {
			for k, v := range configured {
				properties[k] = v
			}
		}
	}
	mappings = map[string]interface{}{"properties": properties}

	if len(def.Settings) > 0 {
		var s map[string]interface{}
		if err := json.Unmarshal(def.Settings, &s); err == nil {
			settings = s
		}
	}
	return mappings, settings
}

// FetchIndexes returns the set of Search Indexes that together cover
// allowedGroups for typeName (§4.5). A nil allowedGroups returns every
// registered index of the type regardless of authorization, for
// privileged management paths (e.g. reindex).
func (m *Manager) FetchIndexes(ctx context.Context, typeName string, allowedGroups *authctx.Context, forceUpdate bool) ([]*registry.SearchIndex, error) {
	if allowedGroups == nil {
		all := m.Registry.FindForType(typeName)
		if forceUpdate {
			m.invalidateAll(all)
		}
		return m.updateInvalid(ctx, all)
	}

	candidates := m.Registry.FindForType(typeName)
	var eagerSubsets []*registry.SearchIndex
	for _, idx := range candidates {
		if idx.IsEager && idx.AllowedGroups.Subset(*allowedGroups) {
			eagerSubsets = append(eagerSubsets, idx)
		}
	}

	byKey := make(map[string]*registry.SearchIndex, len(eagerSubsets))
	contexts := make([]authctx.Context, 0, len(eagerSubsets))
	for _, idx := range eagerSubsets {
		byKey[idx.AllowedGroups.Key()] = idx
		contexts = append(contexts, idx.AllowedGroups)
	}
	minimal := authctx.MinimalCover(contexts)

	var selected []*registry.SearchIndex
	if len(minimal) > 0 && authctx.Covers(minimal, *allowedGroups) {
		for _, c := range minimal {
			selected = append(selected, byKey[c.Key()])
		}
	} else {
		idx, err := m.ensure(ctx, typeName, *allowedGroups, *allowedGroups, false)
		if err != nil {
			return nil, err
		}
		selected = []*registry.SearchIndex{idx}
	}

	if forceUpdate {
		m.invalidateAll(selected)
	}
	return m.updateInvalid(ctx, selected)
}

func (m *Manager) invalidateAll(indexes []*registry.SearchIndex) {
	for _, idx := range indexes {
		m.invalidate(idx)
	}
}

func (m *Manager) updateInvalid(ctx context.Context, indexes []*registry.SearchIndex) ([]*registry.SearchIndex, error) {
	for _, idx := range indexes {
		idx.Mu.Lock()
		invalid := idx.Status == registry.StatusInvalid
		idx.Mu.Unlock()
		if !invalid {
			continue
		}
		if err := m.update(ctx, idx); err != nil {
			clog.Warningf("INDEX MGMT: updating %q left it invalid: %v", idx.Name, err)
		}
	}
	return indexes, nil
}

// update rebuilds idx from scratch: clear, bulk-build, refresh.
func (m *Manager) update(ctx context.Context, idx *registry.SearchIndex) error {
	idx.Mu.Lock()
	defer idx.Mu.Unlock()

	idx.Status = registry.StatusUpdating
	def, ok := m.Config.TypeByName(idx.TypeName)
	if !ok {
		idx.Status = registry.StatusInvalid
		return fmt.Errorf("indexmanager: no configuration for type %q", idx.TypeName)
	}

	if err := m.Backend.ClearIndex(ctx, idx.Name); err != nil {
		idx.Status = registry.StatusInvalid
		return fmt.Errorf("clearing %q: %w", idx.Name, err)
	}
	if err := m.IndexBuilder.Build(ctx, idx.AllowedGroups, idx.Name, def); err != nil {
		idx.Status = registry.StatusInvalid
		return fmt.Errorf("building %q: %w", idx.Name, err)
	}
	if err := m.Backend.RefreshIndex(ctx, idx.Name); err != nil {
		idx.Status = registry.StatusInvalid
		return fmt.Errorf("refreshing %q: %w", idx.Name, err)
	}
	idx.Status = registry.StatusValid
	return nil
}

// Invalidate marks idx stale without rebuilding it; the next
// FetchIndexes call will rebuild it.
func (m *Manager) Invalidate(idx *registry.SearchIndex) {
	m.invalidate(idx)
}

func (m *Manager) invalidate(idx *registry.SearchIndex) {
	idx.Mu.Lock()
	defer idx.Mu.Unlock()
	if idx.Status != registry.StatusDeleted {
		idx.Status = registry.StatusInvalid
	}
}

// Remove deletes idx's backend index, metadata and registry entry.
func (m *Manager) Remove(ctx context.Context, idx *registry.SearchIndex) error {
	m.masterMu.Lock()
	defer m.masterMu.Unlock()
	return m.remove(ctx, idx)
}

func (m *Manager) remove(ctx context.Context, idx *registry.SearchIndex) error {
	idx.Mu.Lock()
	idx.Status = registry.StatusDeleted
	idx.Mu.Unlock()

	if err := m.Backend.DeleteIndex(ctx, idx.Name); err != nil {
		return fmt.Errorf("indexmanager: deleting backend index %q: %w", idx.Name, err)
	}
	if err := m.Registry.RemoveByName(ctx, idx.Name); err != nil {
		return fmt.Errorf("indexmanager: removing index metadata %q: %w", idx.Name, err)
	}
	return nil
}
