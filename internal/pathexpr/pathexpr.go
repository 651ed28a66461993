// Package pathexpr models RDF property paths: ordered chains of
// directional predicate steps used to locate the values that feed a
// document property, and to walk such chains backwards when deciding
// which resources a changed triple affects.
package pathexpr

import (
	"fmt"
	"strings"

	"github.com/cayleygraph/quad"
)

// Step is one predicate hop in a property path.
type Step struct {
	Predicate quad.IRI
	Inverse   bool
}

func (s Step) String() string {
	if s.Inverse {
		return "^<" + string(s.Predicate) + ">"
	}
	return "<" + string(s.Predicate) + ">"
}

// Path is an ordered list of steps, read left to right starting from
// the document's root resource.
type Path []Step

// Parse turns a list of raw path elements (each an IRI, optionally
// prefixed with "^" for the inverse direction) into a Path.
func Parse(raw []string) (Path, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("pathexpr: empty path")
	}
	p := make(Path, 0, len(raw))
	for _, r := range raw {
		inverse := strings.HasPrefix(r, "^")
		iri := strings.TrimPrefix(r, "^")
		if iri == "" {
			return nil, fmt.Errorf("pathexpr: empty predicate in path element %q", r)
		}
		p = append(p, Step{Predicate: quad.IRI(iri), Inverse: inverse})
	}
	return p, nil
}

// SPARQLExpr renders the path as a SPARQL 1.1 property path expression,
// e.g. "<p1>/^<p2>".
func (p Path) SPARQLExpr() string {
	parts := make([]string, len(p))
	for i, s := range p {
		parts[i] = s.String()
	}
	return strings.Join(parts, "/")
}

// Reversed returns the path walked in the opposite direction, with
// every step's direction flipped. Used to resolve, from an object,
// the subjects reachable by walking a path backwards.
func (p Path) Reversed() Path {
	r := make(Path, len(p))
	for i, s := range p {
		r[len(p)-1-i] = Step{Predicate: s.Predicate, Inverse: !s.Inverse}
	}
	return r
}

// Prefix returns the sub-path strictly before position i (0-based).
func (p Path) Prefix(i int) Path {
	if i <= 0 {
		return nil
	}
	if i > len(p) {
		i = len(p)
	}
	return p[:i]
}

// Suffix returns the sub-path strictly after position i (0-based).
func (p Path) Suffix(i int) Path {
	if i+1 >= len(p) {
		return nil
	}
	return p[i+1:]
}

// Positions returns every position at which the path uses the given
// predicate in the given direction (empty if it never does).
func (p Path) Positions(pred quad.IRI, inverse bool) []int {
	var out []int
	for i, s := range p {
		if s.Predicate == pred && s.Inverse == inverse {
			out = append(out, i)
		}
	}
	return out
}

// Ref ties a path back to the property and index type that declared
// it, for the reverse predicate index built by internal/config.
type Ref struct {
	TypeName     string
	PropertyName string
	Path         Path
}

// Index maps a predicate to every Ref whose path mentions it, so the
// delta processor can find affected index types/properties in O(1)
// per triple instead of scanning every configured path.
type Index struct {
	byPredicate map[quad.IRI][]Ref
}

// NewIndex builds an Index from a flat list of refs.
func NewIndex(refs []Ref) *Index {
	idx := &Index{byPredicate: make(map[quad.IRI][]Ref)}
	for _, r := range refs {
		seen := make(map[quad.IRI]bool)
		for _, s := range r.Path {
			if seen[s.Predicate] {
				continue
			}
			seen[s.Predicate] = true
			idx.byPredicate[s.Predicate] = append(idx.byPredicate[s.Predicate], r)
		}
	}
	return idx
}

// Lookup returns every Ref whose path mentions the given predicate
// (in either direction).
func (idx *Index) Lookup(pred quad.IRI) []Ref {
	return idx.byPredicate[pred]
}
