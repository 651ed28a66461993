// Package authctx represents the authorization context a caller
// carries: the set of group/variable pairs a SPARQL request is
// scoped to, and the subset and minimal-cover operations the Index
// Manager needs to reuse eager indexes for a caller.
package authctx

import (
	"encoding/json"
	"sort"

	mset "github.com/musearch/bridge/internal/mapset"
)

// Group is one allowed-groups entry: a named permission group,
// optionally parameterised by variables bound from the request.
type Group struct {
	Name      string   `json:"group"`
	Variables []string `json:"variables,omitempty"`
}

// Key returns the group's JSON encoding with variables sorted, so
// that two structurally equal groups always serialise identically
// regardless of how their variables were ordered.
func (g Group) Key() string {
	sorted := append([]string(nil), g.Variables...)
	sort.Strings(sorted)
	cg := struct {
		Name      string   `json:"group"`
		Variables []string `json:"variables,omitempty"`
	}{g.Name, sorted}
	b, _ := json.Marshal(cg)
	return string(b)
}

// Context is an authorization context: an unordered collection of
// allowed groups.
type Context []Group

// Canonicalize returns the context in canonical form: each member
// serialised with sorted keys/variables, then the members sorted by
// that serialisation. Canonical contexts compare equal with Equal
// and hash identically via Key.
func (c Context) Canonicalize() Context {
	keys := make([]string, len(c))
	byKey := make(map[string]Group, len(c))
	for i, g := range c {
		k := g.Key()
		keys[i] = k
		byKey[k] = g
	}
	sort.Strings(keys)
	out := make(Context, len(keys))
	for i, k := range keys {
		out[i] = byKey[k]
	}
	return out
}

// Key returns a stable cache key for the context's canonical form.
func (c Context) Key() string {
	canon := c.Canonicalize()
	parts := make([]string, len(canon))
	for i, g := range canon {
		parts[i] = g.Key()
	}
	b, _ := json.Marshal(parts)
	return string(b)
}

// Equal reports whether two contexts are structurally equal once
// canonicalized.
func (c Context) Equal(other Context) bool {
	return c.Key() == other.Key()
}

func (c Context) set() mset.Set {
	s := mset.NewThreadUnsafeSet()
	for _, g := range c.Canonicalize() {
		s.Add(g.Key())
	}
	return s
}

// Subset reports whether every group in c is also present in other.
func (c Context) Subset(other Context) bool {
	cs, os := c.set(), other.set()
	subset := true
	cs.Each(func(v interface{}) bool {
		if !os.Contains(v) {
			subset = false
			return true
		}
		return false
	})
	return subset
}

// Covers reports whether the union of the given contexts' groups
// includes every group in target.
func Covers(parts []Context, target Context) bool {
	union := mset.NewThreadUnsafeSet()
	for _, p := range parts {
		for _, g := range p.Canonicalize() {
			union.Add(g.Key())
		}
	}
	covers := true
	target.set().Each(func(v interface{}) bool {
		if !union.Contains(v) {
			covers = false
			return true
		}
		return false
	})
	return covers
}

// MinimalCover discards any context in candidates that is a subset
// of another retained candidate, keeping the maximal elements under
// the Subset partial order. Used by the Index Manager to pick the
// smallest set of eager indexes that still covers a caller's groups.
func MinimalCover(candidates []Context) []Context {
	keep := make([]bool, len(candidates))
	for i := range candidates {
		keep[i] = true
	}
	for i, a := range candidates {
		if !keep[i] {
			continue
		}
		for j, b := range candidates {
			if i == j || !keep[j] {
				continue
			}
			if a.Subset(b) && !a.Equal(b) {
				keep[i] = false
				break
			}
		}
	}
	var out []Context
	for i, c := range candidates {
		if keep[i] {
			out = append(out, c)
		}
	}
	return out
}
