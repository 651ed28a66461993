package command

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/musearch/bridge/clog"
	"github.com/musearch/bridge/internal/config"
	"github.com/musearch/bridge/internal/docbuilder"
	"github.com/musearch/bridge/internal/esbackend"
	"github.com/musearch/bridge/internal/indexbuilder"
	"github.com/musearch/bridge/internal/indexmanager"
	"github.com/musearch/bridge/internal/registry"
	"github.com/musearch/bridge/internal/sparql"
	"github.com/musearch/bridge/internal/tika"
)

// NewReindexCmd forces a synchronous rebuild of every Search Index
// registered for a configured type after Index Manager initialisation.
// When persist_indexes is off, initialisation first discards the
// persisted indexes, so only the eager indexes are rebuilt.
func NewReindexCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reindex <type>",
		Short: "Force a synchronous rebuild of every Search Index of a configured type.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReindex(cmd, args[0])
		},
	}
	registerCollaboratorFlags(cmd)
	return cmd
}

func runReindex(cmd *cobra.Command, typeName string) error {
	ctx := cmd.Context()

	data, err := readConfigFile(viper.GetString(keyConfigFile))
	if err != nil {
		return err
	}
	cfg, err := config.Load(data)
	if err != nil {
		return err
	}
	if _, ok := cfg.TypeByName(typeName); !ok {
		return fmt.Errorf("no configured type named %q", typeName)
	}

	pool := sparql.NewHTTPPool(viper.GetString(keySparqlURL), viper.GetDuration(keySparqlTO))
	backend, err := esbackend.Dial(viper.GetString(keyElasticURL))
	if err != nil {
		return err
	}
	extractor := tika.NewClient(
		viper.GetString(keyTikaURL),
		viper.GetString(keyTikaBaseDir),
		viper.GetInt64(keyTikaMaxSize),
		viper.GetInt(keyTikaCache),
	)
	builder := &docbuilder.Builder{Pool: pool, Extractor: extractor}
	reg := registry.New(pool)
	ib := &indexbuilder.Builder{
		DocBuilder:      builder,
		Backend:         backend,
		Pool:            pool,
		BatchSize:       cfg.BatchSize,
		MaxBatches:      cfg.MaxBatches,
		NumberOfThreads: cfg.NumberOfThreads,
	}
	mgr := &indexmanager.Manager{Config: cfg, Registry: reg, Backend: backend, IndexBuilder: ib, Pool: pool}

	if err := mgr.Init(ctx); err != nil {
		return err
	}

	indexes, err := mgr.FetchIndexes(ctx, typeName, nil, true)
	if err != nil {
		return err
	}
	clog.Infof("REINDEX: rebuilt %d index(es) for type %q", len(indexes), typeName)
	return nil
}
