package esbackend

import (
	"context"
	"strings"
)

// Fake is an in-memory Backend used by package tests.
type Fake struct {
	Indexes map[string]map[string]map[string]interface{} // index -> id -> doc
	Created map[string]bool
}

func NewFake() *Fake {
	return &Fake{
		Indexes: make(map[string]map[string]map[string]interface{}),
		Created: make(map[string]bool),
	}
}

func (f *Fake) CreateIndex(ctx context.Context, name string, mappings, settings map[string]interface{}) error {
	f.Created[name] = true
	if f.Indexes[name] == nil {
		f.Indexes[name] = make(map[string]map[string]interface{})
	}
	return nil
}

func (f *Fake) IndexExists(ctx context.Context, name string) (bool, error) {
	return f.Created[name], nil
}

func (f *Fake) DeleteIndex(ctx context.Context, name string) error {
	delete(f.Created, name)
	delete(f.Indexes, name)
	return nil
}

func (f *Fake) ClearIndex(ctx context.Context, name string) error {
	f.Indexes[name] = make(map[string]map[string]interface{})
	return nil
}

func (f *Fake) RefreshIndex(ctx context.Context, name string) error { return nil }

func (f *Fake) InsertDocument(ctx context.Context, index, id string, doc map[string]interface{}) error {
	return f.UpsertDocument(ctx, index, id, doc)
}

func (f *Fake) UpsertDocument(ctx context.Context, index, id string, doc map[string]interface{}) error {
	if f.Indexes[index] == nil {
		f.Indexes[index] = make(map[string]map[string]interface{})
	}
	f.Indexes[index][id] = doc
	return nil
}

func (f *Fake) DeleteDocument(ctx context.Context, index, id string) error {
	if f.Indexes[index] != nil {
		delete(f.Indexes[index], id)
	}
	return nil
}

func (f *Fake) Bulk(ctx context.Context, index string, ops []Op) error {
	for _, op := range ops {
		if op.Delete {
			if err := f.DeleteDocument(ctx, index, op.ID); err != nil {
				return err
			}
			continue
		}
		if err := f.UpsertDocument(ctx, index, op.ID, op.Doc); err != nil {
			return err
		}
	}
	return nil
}

// Search mirrors ElasticClient.Search's acceptance of a comma-joined
// list of index names.
func (f *Fake) Search(ctx context.Context, index, query string) ([]string, error) {
	var ids []string
	for _, name := range strings.Split(index, ",") {
		for id := range f.Indexes[name] {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (f *Fake) Count(ctx context.Context, index, query string) (int64, error) {
	return int64(len(f.Indexes[index])), nil
}

func (f *Fake) UploadAttachment(ctx context.Context, index, id, pipeline string, doc map[string]interface{}) error {
	return f.UpsertDocument(ctx, index, id, doc)
}
