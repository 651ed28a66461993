package config

import (
	"testing"

	"github.com/stretchr/testify/require"
)

const sampleDoc = `{
	"batch_size": 50,
	"eager_indexing_groups": [[{"group": "public"}]],
	"types": [
		{
			"name": "person",
			"rdf_types": ["http://ex.org/Person"],
			"properties": [
				{"name": "name", "path": ["http://ex.org/name"]},
				{"name": "org", "path": ["^http://ex.org/member"], "type": "nested",
				 "rdf_type": "http://ex.org/Org",
				 "properties": [{"name": "label", "path": ["http://ex.org/label"]}]}
			]
		},
		{
			"name": "org",
			"rdf_types": ["http://ex.org/Org"],
			"properties": [
				{"name": "label", "path": ["http://ex.org/label"]}
			]
		},
		{
			"name": "agent",
			"composite_types": ["person", "org"],
			"properties": [
				{"name": "display_name", "mappings": {"person": "name", "org": "label"}}
			]
		}
	]
}`

func TestLoadValid(t *testing.T) {
	cfg, err := Load([]byte(sampleDoc))
	require.NoError(t, err)
	require.Equal(t, 50, cfg.BatchSize)
	require.Equal(t, defaultNumberOfThreads, cfg.NumberOfThreads)

	person, ok := cfg.TypeByName("person")
	require.True(t, ok)
	names := make([]string, 0)
	for _, p := range person.Properties {
		names = append(names, p.Name)
	}
	require.Contains(t, names, "uuid")

	agent, ok := cfg.TypeByName("agent")
	require.True(t, ok)
	require.True(t, agent.IsComposite())
	require.Len(t, agent.SubIndexes, 2)
	for _, sub := range agent.SubIndexes {
		require.Len(t, sub.Properties, 2)
		require.Equal(t, "display_name", sub.Properties[0].Name)
		require.Equal(t, "uuid", sub.Properties[1].Name)
	}
}

func TestLoadDuplicateName(t *testing.T) {
	doc := `{"types": [
		{"name": "a", "rdf_types": ["x"], "properties": []},
		{"name": "a", "rdf_types": ["y"], "properties": []}
	]}`
	_, err := Load([]byte(doc))
	require.Error(t, err)
	require.Contains(t, err.Error(), "duplicate type name")
}

func TestLoadBadCompositeReference(t *testing.T) {
	doc := `{"types": [
		{"name": "agent", "composite_types": ["missing"], "properties": []}
	]}`
	_, err := Load([]byte(doc))
	require.Error(t, err)
	require.Contains(t, err.Error(), "unknown type")
}

func TestLoadMustDeclareExactlyOne(t *testing.T) {
	doc := `{"types": [
		{"name": "bad", "rdf_types": ["x"], "composite_types": ["y"], "properties": []}
	]}`
	_, err := Load([]byte(doc))
	require.Error(t, err)
}

func TestPathIndex(t *testing.T) {
	cfg, err := Load([]byte(sampleDoc))
	require.NoError(t, err)
	idx := cfg.PathIndex()
	refs := idx.Lookup("http://ex.org/name")
	require.Len(t, refs, 2)
	require.Equal(t, "person", refs[0].TypeName)
	require.Equal(t, "agent", refs[1].TypeName)
}

func TestLoadCompositePropertyMustBeNameMappingsOnly(t *testing.T) {
	doc := `{"types": [
		{"name": "person", "rdf_types": ["http://ex.org/Person"],
		 "properties": [{"name": "name", "path": ["http://ex.org/name"]}]},
		{"name": "org", "rdf_types": ["http://ex.org/Org"],
		 "properties": [{"name": "label", "path": ["http://ex.org/label"]}]},
		{"name": "agent", "composite_types": ["person", "org"],
		 "properties": [
			{"name": "display_name", "path": ["http://ex.org/name"],
			 "mappings": {"person": "name", "org": "label"}}
		 ]}
	]}`
	_, err := Load([]byte(doc))
	require.Error(t, err)
	require.Contains(t, err.Error(), "must be a {name, mappings} object")
}

func TestEagerIndexingGroupWildcardMix(t *testing.T) {
	doc := `{"types": [], "eager_indexing_groups": [[{"group": "*"}, {"group": "other"}]]}`
	_, err := Load([]byte(doc))
	require.Error(t, err)
	require.Contains(t, err.Error(), "wildcard")
}
