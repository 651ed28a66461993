// Package esbackend is the search backend collaborator (§6): an
// Elasticsearch-compatible store of documents keyed by index name and
// document id.
package esbackend

import "context"

// Op is one operation in a Bulk request.
type Op struct {
	Delete bool
	ID     string
	Doc    map[string]interface{} // nil for Delete
}

// Backend is the full set of operations the Index Manager, Index
// Builder and Update Handler need from the search store.
type Backend interface {
	CreateIndex(ctx context.Context, name string, mappings, settings map[string]interface{}) error
	IndexExists(ctx context.Context, name string) (bool, error)
	DeleteIndex(ctx context.Context, name string) error
	ClearIndex(ctx context.Context, name string) error
	RefreshIndex(ctx context.Context, name string) error

	InsertDocument(ctx context.Context, index, id string, doc map[string]interface{}) error
	UpsertDocument(ctx context.Context, index, id string, doc map[string]interface{}) error
	DeleteDocument(ctx context.Context, index, id string) error
	Bulk(ctx context.Context, index string, ops []Op) error

	Search(ctx context.Context, index, query string) ([]string, error)
	Count(ctx context.Context, index, query string) (int64, error)
	UploadAttachment(ctx context.Context, index, id, pipeline string, doc map[string]interface{}) error
}
