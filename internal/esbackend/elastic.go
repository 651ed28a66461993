package esbackend

import (
	"context"
	"fmt"

	elastic "gopkg.in/olivere/elastic.v5"

	"github.com/musearch/bridge/clog"
)

// ElasticClient implements Backend on top of a real Elasticsearch
// cluster: dial, create-index, index, delete, search.
type ElasticClient struct {
	client *elastic.Client
}

// Dial connects to the Elasticsearch cluster at addr.
func Dial(addr string) (*ElasticClient, error) {
	client, err := elastic.NewClient(elastic.SetURL(addr), elastic.SetSniff(false))
	if err != nil {
		return nil, fmt.Errorf("esbackend: dialing %q: %w", addr, err)
	}
	return &ElasticClient{client: client}, nil
}

func (e *ElasticClient) CreateIndex(ctx context.Context, name string, mappings, settings map[string]interface{}) error {
	body := map[string]interface{}{}
	if settings != nil {
		body["settings"] = settings
	}
	if mappings != nil {
		body["mappings"] = mappings
	}
	_, err := e.client.CreateIndex(name).BodyJson(body).Do(ctx)
	if err != nil {
		return fmt.Errorf("esbackend: creating index %q: %w", name, err)
	}
	clog.Infof("INDEXING: created index %q", name)
	return nil
}

func (e *ElasticClient) IndexExists(ctx context.Context, name string) (bool, error) {
	ok, err := e.client.IndexExists(name).Do(ctx)
	if err != nil {
		return false, fmt.Errorf("esbackend: checking index %q: %w", name, err)
	}
	return ok, nil
}

func (e *ElasticClient) DeleteIndex(ctx context.Context, name string) error {
	exists, err := e.IndexExists(ctx, name)
	if err != nil {
		return err
	}
	if !exists {
		return nil
	}
	_, err = e.client.DeleteIndex(name).Do(ctx)
	if err != nil {
		return fmt.Errorf("esbackend: deleting index %q: %w", name, err)
	}
	return nil
}

func (e *ElasticClient) ClearIndex(ctx context.Context, name string) error {
	_, err := e.client.DeleteByQuery(name).Query(elastic.NewMatchAllQuery()).Do(ctx)
	if err != nil {
		return fmt.Errorf("esbackend: clearing index %q: %w", name, err)
	}
	return nil
}

func (e *ElasticClient) RefreshIndex(ctx context.Context, name string) error {
	_, err := e.client.Refresh(name).Do(ctx)
	if err != nil {
		return fmt.Errorf("esbackend: refreshing index %q: %w", name, err)
	}
	return nil
}

func (e *ElasticClient) InsertDocument(ctx context.Context, index, id string, doc map[string]interface{}) error {
	_, err := e.client.Index().Index(index).Type("_doc").Id(id).BodyJson(doc).Do(ctx)
	if err != nil {
		return fmt.Errorf("esbackend: inserting %q/%q: %w", index, id, err)
	}
	return nil
}

func (e *ElasticClient) UpsertDocument(ctx context.Context, index, id string, doc map[string]interface{}) error {
	_, err := e.client.Update().Index(index).Type("_doc").Id(id).
		Doc(doc).DocAsUpsert(true).Do(ctx)
	if err != nil {
		return fmt.Errorf("esbackend: upserting %q/%q: %w", index, id, err)
	}
	return nil
}

func (e *ElasticClient) DeleteDocument(ctx context.Context, index, id string) error {
	_, err := e.client.Delete().Index(index).Type("_doc").Id(id).Do(ctx)
	if elastic.IsNotFound(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("esbackend: deleting %q/%q: %w", index, id, err)
	}
	return nil
}

func (e *ElasticClient) Bulk(ctx context.Context, index string, ops []Op) error {
	if len(ops) == 0 {
		return nil
	}
	bulk := e.client.Bulk()
	for _, op := range ops {
		if op.Delete {
			bulk = bulk.Add(elastic.NewBulkDeleteRequest().Index(index).Type("_doc").Id(op.ID))
			continue
		}
		bulk = bulk.Add(elastic.NewBulkIndexRequest().Index(index).Type("_doc").Id(op.ID).Doc(op.Doc))
	}
	resp, err := bulk.Do(ctx)
	if err != nil {
		return fmt.Errorf("esbackend: bulk request against %q: %w", index, err)
	}
	if resp.Errors {
		for _, item := range resp.Failed() {
			clog.Warningf("INDEXING: bulk op failed for %q/%q: %v", index, item.Id, item.Error)
		}
	}
	return nil
}

func (e *ElasticClient) Search(ctx context.Context, index, query string) ([]string, error) {
	q := elastic.NewQueryStringQuery(query)
	result, err := e.client.Search().Index(index).Query(q).Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("esbackend: searching %q: %w", index, err)
	}
	ids := make([]string, 0, len(result.Hits.Hits))
	for _, hit := range result.Hits.Hits {
		ids = append(ids, hit.Id)
	}
	return ids, nil
}

func (e *ElasticClient) Count(ctx context.Context, index, query string) (int64, error) {
	q := elastic.NewQueryStringQuery(query)
	count, err := e.client.Count(index).Query(q).Do(ctx)
	if err != nil {
		return 0, fmt.Errorf("esbackend: counting %q: %w", index, err)
	}
	return count, nil
}

func (e *ElasticClient) UploadAttachment(ctx context.Context, index, id, pipeline string, doc map[string]interface{}) error {
	_, err := e.client.Index().Index(index).Type("_doc").Id(id).
		Pipeline(pipeline).BodyJson(doc).Do(ctx)
	if err != nil {
		return fmt.Errorf("esbackend: uploading attachment %q/%q: %w", index, id, err)
	}
	return nil
}
