// Package command implements the musearch CLI: serve, reindex,
// validate-config and health, as subcommands of a single cobra tree.
package command

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/musearch/bridge/clog"
	clogrus "github.com/musearch/bridge/clog/logrus"
)

const (
	keyConfigFile   = "config"
	keySparqlURL    = "sparql.endpoint"
	keySparqlTO     = "sparql.timeout"
	keyElasticURL   = "elasticsearch.endpoint"
	keyTikaURL      = "tika.endpoint"
	keyTikaBaseDir  = "tika.base-dir"
	keyTikaMaxSize  = "tika.max-file-size"
	keyTikaCache    = "tika.cache-size"
	keyHTTPAddress  = "http.address"
	keyWorkers      = "workers"
	keyLogLevel     = "log.level"
	keyLogFormat    = "log.format"
)

// NewRootCmd builds the root musearch command and registers every
// subcommand.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "musearch",
		Short: "Bridges an RDF triplestore to an Elasticsearch-compatible search index.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			clogrus.Install(viper.GetString(keyLogLevel), viper.GetString(keyLogFormat))
			return nil
		},
	}

	cmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	cmd.PersistentFlags().String("log-format", "text", "log format (text, json)")
	viper.BindPFlag(keyLogLevel, cmd.PersistentFlags().Lookup("log-level"))
	viper.BindPFlag(keyLogFormat, cmd.PersistentFlags().Lookup("log-format"))

	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewReindexCmd())
	cmd.AddCommand(NewValidateConfigCmd())
	cmd.AddCommand(NewHealthCmd())
	return cmd
}

// Execute runs the musearch CLI, exiting the process on error the way
// cobra.Command.Execute's callers conventionally do.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		clog.Errorf("%v", err)
		os.Exit(1)
	}
}

func registerCollaboratorFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("config", "c", "/config/config.json", "path to the index-definition configuration document")
	cmd.Flags().String("sparql-endpoint", "http://database:8890/sparql", "SPARQL 1.1 protocol endpoint")
	cmd.Flags().Duration("sparql-timeout", 0, "SPARQL request timeout (0 = no timeout)")
	cmd.Flags().String("elasticsearch-endpoint", "http://elasticsearch:9200", "Elasticsearch-compatible endpoint")
	cmd.Flags().String("tika-endpoint", "http://tika:9998", "text-extraction (Tika-compatible) endpoint")
	cmd.Flags().String("tika-base-dir", "/share", "base directory attachment paths are resolved against")
	cmd.Flags().Int64("tika-max-file-size", 20*1024*1024, "largest file size submitted for text extraction")
	cmd.Flags().Int("tika-cache-size", 1024, "number of extracted-text results cached by SHA-256")
	cmd.Flags().Int("workers", 4, "number of concurrent Update Handler workers")
	viper.BindPFlag(keyConfigFile, cmd.Flags().Lookup("config"))
	viper.BindPFlag(keySparqlURL, cmd.Flags().Lookup("sparql-endpoint"))
	viper.BindPFlag(keySparqlTO, cmd.Flags().Lookup("sparql-timeout"))
	viper.BindPFlag(keyElasticURL, cmd.Flags().Lookup("elasticsearch-endpoint"))
	viper.BindPFlag(keyTikaURL, cmd.Flags().Lookup("tika-endpoint"))
	viper.BindPFlag(keyTikaBaseDir, cmd.Flags().Lookup("tika-base-dir"))
	viper.BindPFlag(keyTikaMaxSize, cmd.Flags().Lookup("tika-max-file-size"))
	viper.BindPFlag(keyTikaCache, cmd.Flags().Lookup("tika-cache-size"))
	viper.BindPFlag(keyWorkers, cmd.Flags().Lookup("workers"))
}

func readConfigFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading configuration document %q: %w", path, err)
	}
	return data, nil
}
