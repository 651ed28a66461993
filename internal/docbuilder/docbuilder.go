// Package docbuilder turns a resource URI and an index definition
// into the document that gets indexed: it issues the SPARQL queries
// for every configured property, applies the per-type projection and
// denumeration rules, and merges composite sub-documents.
package docbuilder

import (
	"context"
	"fmt"

	"github.com/musearch/bridge/clog"
	"github.com/musearch/bridge/internal/authctx"
	"github.com/musearch/bridge/internal/config"
	"github.com/musearch/bridge/internal/sparql"
	"github.com/musearch/bridge/internal/tika"
)

// Document is a projected resource, ready for the search backend.
type Document map[string]interface{}

// Builder materialises documents against a SPARQL pool, extracting
// attachment text through an Extractor.
type Builder struct {
	Pool      sparql.Pool
	Extractor tika.Extractor
}

// errSkip marks a per-document build failure that should be logged
// and skipped rather than aborting the surrounding batch (§7).
type errSkip struct{ err error }

func (e errSkip) Error() string { return e.err.Error() }
func (e errSkip) Unwrap() error { return e.err }

// Build materialises the document for uri under def, scoped to
// groups. For a composite definition it resolves the resource's
// actual RDF types, builds each matching sub-document and smart-merges
// them.
func (b *Builder) Build(ctx context.Context, groups authctx.Context, uri string, def config.IndexDefinition) (Document, error) {
	if !def.IsComposite() {
		return b.buildFlat(ctx, groups, uri, def.Properties)
	}
	return b.buildComposite(ctx, groups, uri, def)
}

func (b *Builder) buildComposite(ctx context.Context, groups authctx.Context, uri string, def config.IndexDefinition) (Document, error) {
	types, err := b.resourceTypes(ctx, groups, uri)
	if err != nil {
		return nil, fmt.Errorf("docbuilder: resolving rdf:type of %q: %w", uri, err)
	}
	typeSet := make(map[string]bool, len(types))
	for _, t := range types {
		typeSet[t] = true
	}

	merged := Document{}
	matched := false
	for _, sub := range def.SubIndexes {
		if !anyIn(sub.RDFTypes, typeSet) {
			continue
		}
		matched = true
		doc, err := b.buildFlat(ctx, groups, uri, sub.Properties)
		if err != nil {
			clog.Warningf("INDEXING: building sub-document for %q (%q): %v", uri, sub.Name, err)
			continue
		}
		var mergeErr error
		merged, mergeErr = smartMerge(merged, Document(doc))
		if mergeErr != nil {
			return nil, fmt.Errorf("docbuilder: merging %q into composite %q: %w", sub.Name, def.Name, mergeErr)
		}
	}
	if !matched {
		return nil, errSkip{fmt.Errorf("resource %q matches no sub-index of composite %q", uri, def.Name)}
	}
	merged["uri"] = uri
	return merged, nil
}

func anyIn(types []string, set map[string]bool) bool {
	for _, t := range types {
		if set[t] {
			return true
		}
	}
	return false
}

func (b *Builder) resourceTypes(ctx context.Context, groups authctx.Context, uri string) ([]string, error) {
	q := fmt.Sprintf(`SELECT DISTINCT ?type WHERE { <%s> a ?type . }`, uri)
	var rows []sparql.Row
	err := b.Pool.WithAuthorization(ctx, groups, func(c sparql.Client) error {
		r, err := c.Query(ctx, q)
		rows = r
		return err
	})
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(rows))
	for _, row := range rows {
		if t, ok := row["type"]; ok {
			out = append(out, t.Value)
		}
	}
	return out, nil
}

// buildFlat materialises every non-nested property with a single
// query, then recurses for nested properties.
func (b *Builder) buildFlat(ctx context.Context, groups authctx.Context, uri string, props []config.PropertyDefinition) (Document, error) {
	doc := Document{"uri": uri}

	simple := make([]config.PropertyDefinition, 0, len(props))
	var nested []config.PropertyDefinition
	for _, p := range props {
		if p.EffectiveType() == config.TypeNested {
			nested = append(nested, p)
		} else {
			simple = append(simple, p)
		}
	}

	values, err := b.queryProperties(ctx, groups, uri, simple)
	if err != nil {
		return nil, err
	}
	for _, p := range simple {
		rendered, err := b.render(ctx, groups, p, values[p.Name])
		if err != nil {
			return nil, fmt.Errorf("property %q: %w", p.Name, err)
		}
		doc[p.Name] = rendered
	}

	for _, p := range nested {
		rendered, err := b.buildNested(ctx, groups, uri, p)
		if err != nil {
			return nil, fmt.Errorf("property %q: %w", p.Name, err)
		}
		doc[p.Name] = rendered
	}

	return doc, nil
}

// queryProperties runs one SPARQL SELECT with an OPTIONAL clause per
// property, each binding a variable named after the property, and
// collects the distinct bound values per property across all result
// rows (a property may be multi-valued, producing several rows).
func (b *Builder) queryProperties(ctx context.Context, groups authctx.Context, uri string, props []config.PropertyDefinition) (map[string][]sparql.Term, error) {
	values := make(map[string][]sparql.Term)
	if len(props) == 0 {
		return values, nil
	}

	query := buildSelectQuery(uri, props)
	var rows []sparql.Row
	err := b.Pool.WithAuthorization(ctx, groups, func(c sparql.Client) error {
		r, err := c.Query(ctx, query)
		rows = r
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("querying properties of %q: %w", uri, err)
	}

	seen := make(map[string]map[string]bool)
	for _, row := range rows {
		for _, p := range props {
			term, ok := row[p.Name]
			if !ok || term.Value == "" {
				continue
			}
			if seen[p.Name] == nil {
				seen[p.Name] = make(map[string]bool)
			}
			dedupKey := string(term.Type) + "|" + term.Datatype + "|" + term.Lang + "|" + term.Value
			if seen[p.Name][dedupKey] {
				continue
			}
			seen[p.Name][dedupKey] = true
			values[p.Name] = append(values[p.Name], term)
		}
	}
	return values, nil
}

func buildSelectQuery(uri string, props []config.PropertyDefinition) string {
	q := "SELECT * WHERE {\n"
	for _, p := range props {
		if len(p.Path) == 0 {
			continue
		}
		q += fmt.Sprintf("  OPTIONAL { <%s> %s ?%s . }\n", uri, p.Path.SPARQLExpr(), p.Name)
	}
	q += "}"
	return q
}

func (b *Builder) buildNested(ctx context.Context, groups authctx.Context, uri string, p config.PropertyDefinition) ([]Document, error) {
	if len(p.Path) == 0 {
		return nil, nil
	}
	q := fmt.Sprintf(`SELECT DISTINCT ?related WHERE { <%s> %s ?related . }`, uri, p.Path.SPARQLExpr())
	var rows []sparql.Row
	err := b.Pool.WithAuthorization(ctx, groups, func(c sparql.Client) error {
		r, err := c.Query(ctx, q)
		rows = r
		return err
	})
	if err != nil {
		return nil, err
	}
	docs := make([]Document, 0, len(rows))
	for _, row := range rows {
		related, ok := row["related"]
		if !ok {
			continue
		}
		sub, err := b.buildFlat(ctx, groups, related.Value, p.SubProps)
		if err != nil {
			clog.Warningf("INDEXING: building nested %q for %q: %v", p.Name, related.Value, err)
			continue
		}
		docs = append(docs, sub)
	}
	return docs, nil
}
