package docbuilder

import (
	"testing"

	"github.com/musearch/bridge/internal/sparql"
	"github.com/stretchr/testify/require"
)

func TestNativeValueTypedLiteral(t *testing.T) {
	t.Parallel()

	v := nativeValue(sparql.Term{
		Value:    "42",
		Type:     sparql.TermTypedLiteral,
		Datatype: "http://www.w3.org/2001/XMLSchema#integer",
	})
	require.Equal(t, int64(42), v)

	v = nativeValue(sparql.Term{
		Value:    "true",
		Type:     sparql.TermTypedLiteral,
		Datatype: "http://www.w3.org/2001/XMLSchema#boolean",
	})
	require.Equal(t, true, v)

	v = nativeValue(sparql.Term{Value: "http://ex.org/a", Type: sparql.TermURI})
	require.Equal(t, "http://ex.org/a", v)
}
