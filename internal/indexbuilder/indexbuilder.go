// Package indexbuilder is the Index Builder (§4.6): bulk-indexes one
// Search Index by paging resources of the configured RDF types and
// building their documents in parallel batches.
package indexbuilder

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/musearch/bridge/clog"
	"github.com/musearch/bridge/internal/authctx"
	"github.com/musearch/bridge/internal/config"
	"github.com/musearch/bridge/internal/docbuilder"
	"github.com/musearch/bridge/internal/esbackend"
	"github.com/musearch/bridge/internal/sparql"
	"github.com/musearch/bridge/internal/updatehandler"
)

// Builder bulk-populates one index from the triplestore.
type Builder struct {
	DocBuilder      *docbuilder.Builder
	Backend         esbackend.Backend
	Pool            sparql.Pool
	BatchSize       int
	MaxBatches      int
	NumberOfThreads int
}

type batch struct {
	offset, limit int
}

// partition splits count resources into fixed-size batches, the last
// one shortened to the remainder. When maxBatches is nonzero at most
// that many batches are returned, and resources past the last of them
// are not included in any batch.
func partition(count, size, maxBatches int) []batch {
	if size <= 0 {
		size = 1
	}
	var batches []batch
	for offset := 0; offset < count; offset += size {
		if maxBatches > 0 && len(batches) >= maxBatches {
			break
		}
		limit := size
		if offset+limit > count {
			limit = count - offset
		}
		batches = append(batches, batch{offset: offset, limit: limit})
	}
	return batches
}

// Build counts, partitions and indexes every resource of def's
// related RDF types into idxName, scoped to groups.
func (b *Builder) Build(ctx context.Context, groups authctx.Context, idxName string, def config.IndexDefinition) error {
	types := def.RelatedRDFTypes()
	if len(types) == 0 {
		return fmt.Errorf("indexbuilder: type %q declares no related rdf types", def.Name)
	}

	count, err := b.countResources(ctx, groups, types)
	if err != nil {
		return fmt.Errorf("indexbuilder: counting resources for %q: %w", def.Name, err)
	}
	batches := partition(count, b.BatchSize, b.MaxBatches)
	clog.Infof("INDEXING: building %q: %d resources in %d batches", idxName, count, len(batches))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, b.NumberOfThreads))
	for _, batch := range batches {
		batch := batch
		g.Go(func() error {
			return b.buildBatch(gctx, groups, idxName, def, types, batch)
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	clog.Infof("INDEXING: finished building %q", idxName)
	return nil
}

func (b *Builder) buildBatch(ctx context.Context, groups authctx.Context, idxName string, def config.IndexDefinition, types []string, batch batch) error {
	uris, err := b.pageResources(ctx, groups, types, batch)
	if err != nil {
		return fmt.Errorf("paging resources: %w", err)
	}

	ops := make([]esbackend.Op, 0, len(uris))
	for _, uri := range uris {
		doc, err := b.DocBuilder.Build(ctx, groups, uri, def)
		if err != nil {
			clog.Warningf("INDEXING: skipping %q: %v", uri, err)
			continue
		}
		ops = append(ops, esbackend.Op{ID: updatehandler.DocID(uri), Doc: map[string]interface{}(doc)})
	}
	if err := b.Backend.Bulk(ctx, idxName, ops); err != nil {
		return fmt.Errorf("bulk indexing batch: %w", err)
	}
	return nil
}

func (b *Builder) countResources(ctx context.Context, groups authctx.Context, types []string) (int, error) {
	q := fmt.Sprintf(`SELECT (COUNT(DISTINCT ?s) AS ?count) WHERE { ?s a ?type . FILTER(?type IN (%s)) . }`, typesFilter(types))
	var rows []sparql.Row
	err := b.Pool.WithAuthorization(ctx, groups, func(c sparql.Client) error {
		r, err := c.Query(ctx, q)
		rows = r
		return err
	})
	if err != nil {
		return 0, err
	}
	if len(rows) == 0 {
		return 0, nil
	}
	var count int
	fmt.Sscanf(rows[0]["count"].Value, "%d", &count)
	return count, nil
}

func (b *Builder) pageResources(ctx context.Context, groups authctx.Context, types []string, batch batch) ([]string, error) {
	q := fmt.Sprintf(`SELECT DISTINCT ?s WHERE { ?s a ?type . FILTER(?type IN (%s)) . } ORDER BY ?s OFFSET %d LIMIT %d`,
		typesFilter(types), batch.offset, batch.limit)
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
		out = append(out, row["s"].Value)
	}
	return out, nil
}

func typesFilter(types []string) string {
	out := ""
	for i, t := range types {
		if i > 0 {
			out += ", "
		}
		out += "<" + t + ">"
	}
	return out
}
