// Command musearch bridges an RDF triplestore to an
// Elasticsearch-compatible search index: it builds and refreshes
// authorization-scoped Search Indexes and keeps them current as the
// triplestore changes.
package main

import "github.com/musearch/bridge/cmd/musearch/command"

func main() {
	command.Execute()
}
