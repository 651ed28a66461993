package sparql

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/musearch/bridge/clog"
	"github.com/musearch/bridge/internal/authctx"
)

// AllowedGroupsHeader carries the caller's canonical authorization
// context on every request, following the row-level access-control
// convention this bridge's triplestore endpoint expects.
const AllowedGroupsHeader = "mu-auth-allowed-groups"

// HTTPPool dials a SPARQL 1.1 Protocol endpoint over HTTP, attaching
// the allowed-groups header for every scoped acquisition.
type HTTPPool struct {
	Endpoint   string
	HTTPClient *http.Client
	Sudo       authctx.Context
}

// NewHTTPPool returns a Pool backed by a single SPARQL endpoint URL.
func NewHTTPPool(endpoint string, timeout time.Duration) *HTTPPool {
	return &HTTPPool{
		Endpoint:   endpoint,
		HTTPClient: &http.Client{Timeout: timeout},
		Sudo:       authctx.Context{{Name: "sudo"}},
	}
}

func (p *HTTPPool) WithAuthorization(ctx context.Context, groups authctx.Context, fn func(Client) error) error {
	c := &httpClient{pool: p, groups: groups}
	return fn(c)
}

func (p *HTTPPool) SudoQuery(ctx context.Context, query string) ([]Row, error) {
	c := &httpClient{pool: p, groups: p.Sudo}
	return c.Query(ctx, query)
}

func (p *HTTPPool) SudoUpdate(ctx context.Context, update string) error {
	c := &httpClient{pool: p, groups: p.Sudo}
	return c.Update(ctx, update)
}

type httpClient struct {
	pool   *HTTPPool
	groups authctx.Context
}

func (c *httpClient) do(ctx context.Context, body []byte, contentType string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.pool.Endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/sparql-results+json")
	req.Header.Set(AllowedGroupsHeader, c.groups.Key())
	resp, err := c.pool.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sparql: request failed: %w", err)
	}
	if resp.StatusCode >= 400 {
		defer resp.Body.Close()
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("sparql: endpoint returned %d: %s", resp.StatusCode, string(b))
	}
	return resp, nil
}

func (c *httpClient) Query(ctx context.Context, query string) ([]Row, error) {
	resp, err := c.do(ctx, []byte(query), "application/sparql-query")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var results struct {
		Head struct {
			Vars []string `json:"vars"`
		} `json:"head"`
		Results struct {
			Bindings []map[string]struct {
				Type     string `json:"type"`
				Value    string `json:"value"`
				Lang     string `json:"xml:lang"`
				LangAlt  string `json:"lang"`
				Datatype string `json:"datatype"`
			} `json:"bindings"`
		} `json:"results"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return nil, fmt.Errorf("sparql: decoding results: %w", err)
	}
	rows := make([]Row, 0, len(results.Results.Bindings))
	for _, binding := range results.Results.Bindings {
		row := make(Row, len(binding))
		for k, v := range binding {
			lang := v.Lang
			if lang == "" {
				lang = v.LangAlt
			}
			row[k] = Term{Value: v.Value, Type: TermType(v.Type), Lang: lang, Datatype: v.Datatype}
		}
		rows = append(rows, row)
	}
	if clog.V(2) {
		clog.Infof("DELTA: query returned %d rows", len(rows))
	}
	return rows, nil
}

func (c *httpClient) Ask(ctx context.Context, query string) (bool, error) {
	resp, err := c.do(ctx, []byte(query), "application/sparql-query")
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()
	var result struct {
		Boolean bool `json:"boolean"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return false, fmt.Errorf("sparql: decoding ask result: %w", err)
	}
	return result.Boolean, nil
}

func (c *httpClient) Update(ctx context.Context, update string) error {
	resp, err := c.do(ctx, []byte(update), "application/sparql-update")
	if err != nil {
		return err
	}
	return resp.Body.Close()
}
