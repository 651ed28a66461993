// Package sparql is the SPARQL collaborator (§6): query/update access
// to the triplestore, scoped to a caller's authorization context via
// a request header carrying its canonical allowed-groups.
package sparql

import (
	"context"

	"github.com/musearch/bridge/internal/authctx"
)

// TermType names the SPARQL JSON results binding kind.
type TermType string

const (
	TermURI          TermType = "uri"
	TermBNode        TermType = "bnode"
	TermLiteral      TermType = "literal"
	TermTypedLiteral TermType = "typed-literal"
)

// Term is one bound RDF term in a query result row.
type Term struct {
	Value    string
	Type     TermType
	Lang     string // xml:lang (or lang), literals only
	Datatype string // literal datatype IRI, if any
}

// Row is one solution binding, keyed by SPARQL variable name (without
// the leading '?').
type Row map[string]Term

// Client issues queries and updates scoped to one authorization
// context for the lifetime of the closure that acquired it.
type Client interface {
	// Query runs a SELECT query and returns its solution bindings.
	// Results are read in the SPARQL JSON results format; CONSTRUCT
	// graph results are not converted into rows.
	Query(ctx context.Context, query string) ([]Row, error)
	// Ask runs an ASK query.
	Ask(ctx context.Context, query string) (bool, error)
	// Update runs a SPARQL 1.1 Update request.
	Update(ctx context.Context, update string) error
}

// Pool hands out authorization-scoped Clients and privileged
// ("sudo") access to the metadata graph.
type Pool interface {
	// WithAuthorization acquires a Client scoped to groups for the
	// duration of fn, releasing it on return even on error.
	WithAuthorization(ctx context.Context, groups authctx.Context, fn func(Client) error) error
	// SudoQuery/SudoUpdate run with a privileged authorization context
	// that bypasses row-level filtering, for registry metadata (§4.4).
	SudoQuery(ctx context.Context, query string) ([]Row, error)
	SudoUpdate(ctx context.Context, update string) error
}
