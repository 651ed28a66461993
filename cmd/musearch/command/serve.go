package command

import (
	"context"
	"encoding/json"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/musearch/bridge/clog"
	"github.com/musearch/bridge/internal/authctx"
	"github.com/musearch/bridge/internal/config"
	"github.com/musearch/bridge/internal/delta"
	"github.com/musearch/bridge/internal/docbuilder"
	"github.com/musearch/bridge/internal/esbackend"
	"github.com/musearch/bridge/internal/indexbuilder"
	"github.com/musearch/bridge/internal/indexmanager"
	"github.com/musearch/bridge/internal/registry"
	"github.com/musearch/bridge/internal/sparql"
	"github.com/musearch/bridge/internal/tika"
	"github.com/musearch/bridge/internal/updatehandler"
)

// NewServeCmd wires every collaborator together, runs Index Manager
// initialisation, starts the Delta Processor and Update Handler, and
// exposes the internal HTTP surface (health check, delta ingestion,
// authorized search passthrough).
func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the bridge: index management, delta processing, and the internal HTTP surface.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context())
		},
	}
	registerCollaboratorFlags(cmd)
	cmd.Flags().String("listen", "0.0.0.0:80", "address the internal HTTP surface listens on")
	viper.BindPFlag(keyHTTPAddress, cmd.Flags().Lookup("listen"))
	return cmd
}

func runServe(ctx context.Context) error {
	data, err := readConfigFile(viper.GetString(keyConfigFile))
	if err != nil {
		return err
	}
	cfg, err := config.Load(data)
	if err != nil {
		return err
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

	workers := viper.GetInt(keyWorkers)
	if workers <= 0 {
		workers = 1
	}
	handler := updatehandler.New(builder, backend, reg, cfg, pool, workers*4)
	processor := delta.New(cfg, pool, handler)

	runCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	clog.Infof("SERVE: initializing index manager")
	if err := mgr.Init(runCtx); err != nil {
		return err
	}

	go handler.Run(runCtx, workers)
	go processor.Run(runCtx)

	mux := http.NewServeMux()
	mux.HandleFunc("/health", healthHandler)
	mux.HandleFunc("/delta", deltaHandler(processor))
	mux.HandleFunc("/search", searchHandler(mgr, backend))

	srv := &http.Server{Addr: viper.GetString(keyHTTPAddress), Handler: mux}
	go func() {
		<-runCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	clog.Infof("SERVE: listening on %s", srv.Addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusNoContent)
}

// deltaHandler accepts a delta v0.0.1 changeset array and enqueues
// the affected subjects via the Delta Processor.
func deltaHandler(p *delta.Processor) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		var changesets []delta.Changeset
		if err := json.NewDecoder(r.Body).Decode(&changesets); err != nil {
			http.Error(w, "invalid delta payload: "+err.Error(), http.StatusBadRequest)
			return
		}
		p.ProcessChangesets(changesets)
		w.WriteHeader(http.StatusOK)
	}
}

// searchHandler proxies a raw search query against the set of Search
// Indexes that together cover the caller's allowed groups for the
// requested type.
func searchHandler(mgr *indexmanager.Manager, backend esbackend.Backend) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		typeName := r.URL.Query().Get("type")
		query := r.URL.Query().Get("q")
		if typeName == "" || query == "" {
			http.Error(w, "type and q query parameters are required", http.StatusBadRequest)
			return
		}

		var groups authctx.Context
		if raw := r.Header.Get(sparql.AllowedGroupsHeader); raw != "" {
			if err := json.Unmarshal([]byte(raw), &groups); err != nil {
				http.Error(w, "invalid "+sparql.AllowedGroupsHeader+" header", http.StatusBadRequest)
				return
			}
		}

		indexes, err := mgr.FetchIndexes(r.Context(), typeName, &groups, false)
		if err != nil || len(indexes) == 0 {
			http.Error(w, "no search index available for type", http.StatusServiceUnavailable)
			return
		}

		names := make([]string, len(indexes))
		for i, idx := range indexes {
			names[i] = idx.Name
		}
		ids, err := backend.Search(r.Context(), strings.Join(names, ","), query)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadGateway)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{"ids": ids})
	}
}
