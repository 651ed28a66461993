package sparql

import (
	"context"

	"github.com/musearch/bridge/internal/authctx"
)

// Fake is an in-memory Pool used by package tests: queries are
// answered from a caller-supplied function rather than a live
// endpoint, so the hard-core packages can be exercised without a
// triplestore.
type Fake struct {
	QueryFunc  func(groups authctx.Context, query string) ([]Row, error)
	AskFunc    func(groups authctx.Context, query string) (bool, error)
	UpdateFunc func(groups authctx.Context, update string) error
	Sudo       authctx.Context
}

func NewFake() *Fake {
	return &Fake{Sudo: authctx.Context{{Name: "sudo"}}}
}

func (f *Fake) WithAuthorization(ctx context.Context, groups authctx.Context, fn func(Client) error) error {
	return fn(&fakeClient{f, groups})
}

func (f *Fake) SudoQuery(ctx context.Context, query string) ([]Row, error) {
	return f.query(f.Sudo, query)
}

func (f *Fake) SudoUpdate(ctx context.Context, update string) error {
	return f.update(f.Sudo, update)
}

func (f *Fake) query(groups authctx.Context, query string) ([]Row, error) {
	if f.QueryFunc == nil {
		return nil, nil
	}
	return f.QueryFunc(groups, query)
}

func (f *Fake) ask(groups authctx.Context, query string) (bool, error) {
	if f.AskFunc == nil {
		return false, nil
	}
	return f.AskFunc(groups, query)
}

func (f *Fake) update(groups authctx.Context, update string) error {
	if f.UpdateFunc == nil {
		return nil
	}
	return f.UpdateFunc(groups, update)
}

type fakeClient struct {
	f      *Fake
	groups authctx.Context
}

func (c *fakeClient) Query(ctx context.Context, query string) ([]Row, error) {
	return c.f.query(c.groups, query)
}

func (c *fakeClient) Ask(ctx context.Context, query string) (bool, error) {
	return c.f.ask(c.groups, query)
}

func (c *fakeClient) Update(ctx context.Context, update string) error {
	return c.f.update(c.groups, update)
}
