package docbuilder

import (
	"context"
	"strings"
	"testing"

	"github.com/musearch/bridge/internal/authctx"
	"github.com/musearch/bridge/internal/config"
	"github.com/musearch/bridge/internal/sparql"
	"github.com/stretchr/testify/require"
)

const doc = `{
	"types": [
		{
			"name": "person",
			"rdf_types": ["http://ex.org/Person"],
			"properties": [
				{"name": "name", "path": ["http://ex.org/name"]},
				{"name": "nickname", "path": ["http://ex.org/nickname"]}
			]
		}
	]
}`

func TestBuildFlatDenumerates(t *testing.T) {
	cfg, err := config.Load([]byte(doc))
	require.NoError(t, err)
	person, _ := cfg.TypeByName("person")

	f := sparql.NewFake()
	f.QueryFunc = func(groups authctx.Context, query string) ([]sparql.Row, error) {
		if strings.Contains(query, "?name") {
			return []sparql.Row{
				{"name": sparql.Term{Value: "Ada", Type: sparql.TermLiteral}},
			}, nil
		}
		return nil, nil
	}

	b := &Builder{Pool: f}
	result, err := b.Build(context.Background(), authctx.Context{{Name: "public"}}, "http://ex.org/ada", person)
	require.NoError(t, err)
	require.Equal(t, "Ada", result["name"])
	require.Nil(t, result["nickname"])
}

func TestBuildFlatMultiValue(t *testing.T) {
	cfg, err := config.Load([]byte(doc))
	require.NoError(t, err)
	person, _ := cfg.TypeByName("person")

	f := sparql.NewFake()
	f.QueryFunc = func(groups authctx.Context, query string) ([]sparql.Row, error) {
		return []sparql.Row{
			{"name": sparql.Term{Value: "Ada", Type: sparql.TermLiteral}},
			{"name": sparql.Term{Value: "Lovelace", Type: sparql.TermLiteral}},
		}, nil
	}
	b := &Builder{Pool: f}
	result, err := b.Build(context.Background(), authctx.Context{{Name: "public"}}, "http://ex.org/ada", person)
	require.NoError(t, err)
	require.ElementsMatch(t, []interface{}{"Ada", "Lovelace"}, result["name"])
}
