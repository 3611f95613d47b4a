package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Suhaibinator/SChangelog/internal/config"
	"github.com/Suhaibinator/SChangelog/internal/ingest"
	"github.com/Suhaibinator/SChangelog/internal/normalize"
	"github.com/Suhaibinator/SChangelog/internal/source"
	"github.com/Suhaibinator/SChangelog/internal/storage"
	"github.com/Suhaibinator/SChangelog/internal/translate"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	ingestInterval    time.Duration
	ingestMetricsAddr string
)

// ingestCmd represents the ingest command
var ingestCmd = &cobra.Command{
	Use:   "ingest [name...]",
	Short: "Ingest release notes of the configured projects",
	Long: `Fetches the release entries of every configured source (or only the named ones),
normalizes and translates them, and upserts one row per (project, version).

With --interval the run repeats until interrupted.

Examples:
  changelog ingest
  changelog ingest "Next.js" "Visual Studio Code"
  changelog ingest --interval 6h --metrics-addr :9100`,
	Run: func(cmd *cobra.Command, args []string) {
		log := GetLogger()
		cfg := mustLoadConfig(log)

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		orchestrator, jobs, closeStore := setupIngest(ctx, cfg, args, log)
		defer closeStore()

		if ingestMetricsAddr != "" {
			go serveMetrics(ingestMetricsAddr, log)
		}

		runOnce := func(ctx context.Context) {
			for _, summary := range orchestrator.RunAll(ctx, jobs) {
				fmt.Println(summary.String())
			}
		}

		if ingestInterval <= 0 {
			runOnce(ctx)
			return
		}
		log.Info("Scheduling ingestion", zap.Duration("interval", ingestInterval), zap.Int("projects", len(jobs)))
		if err := ingest.Schedule(ctx, ingestInterval, runOnce); err != nil && !errors.Is(err, context.Canceled) {
			log.Error("Scheduler stopped", zap.Error(err))
		}
	},
}

// setupIngest opens the store and builds the orchestrator and its jobs. Failing to
// open the store terminates the process.
func setupIngest(ctx context.Context, cfg config.Config, names []string, log *zap.Logger) (*ingest.Orchestrator, []ingest.Job, func()) {
	store := mustOpenStore(cfg, log)
	closeStore := func() {
		if err := store.Close(); err != nil {
			log.Warn("Failed to close database", zap.Error(err))
		}
	}

	jobs, err := ingest.BuildJobs(cfg, names, source.OptionsFromConfig(cfg, log))
	if err != nil {
		closeStore()
		log.Fatal("Failed to build ingestion jobs", zap.Error(err))
	}
	return newOrchestrator(ctx, cfg, store, cfg.ArchiveEnabled, log), jobs, closeStore
}

// newOrchestrator wires enrichment, translation and, when archive is set, the
// snapshot archive around store.
func newOrchestrator(ctx context.Context, cfg config.Config, store ingest.Store, archive bool, log *zap.Logger) *ingest.Orchestrator {
	opts := ingest.Options{
		BatchSize:     cfg.BatchSize,
		BatchDelay:    cfg.BatchDelay,
		Enricher:      normalize.NewEnricher(cfg.FetchTimeout, nil, log),
		EnrichHeading: cfg.EnrichHeading,
	}
	if archive {
		opts.Archiver = snapshotArchiver(ctx, cfg, log)
	}
	translator := translate.ServiceFromConfig(ctx, cfg, log)
	return ingest.New(store, translator, opts, log)
}

// snapshotArchiver connects the snapshot storage. Archiving is best effort, so an
// unavailable backend disables it for this process instead of stopping ingestion.
func snapshotArchiver(ctx context.Context, cfg config.Config, log *zap.Logger) ingest.Archiver {
	provider, err := storage.NewProvider(ctx, cfg, log)
	if err != nil {
		log.Warn("Snapshot storage unavailable, archiving disabled", zap.Error(err))
		return nil
	}
	return storage.NewSnapshotArchiver(provider)
}

func serveMetrics(addr string, log *zap.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	log.Info("Serving metrics", zap.String("addr", addr))
	server := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error("Metrics server failed", zap.Error(err))
	}
}

func init() {
	rootCmd.AddCommand(ingestCmd)

	ingestCmd.Flags().DurationVar(&ingestInterval, "interval", 0, "Repeat the ingestion at this interval (e.g. 6h); 0 runs once")
	ingestCmd.Flags().StringVar(&ingestMetricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address while running")
}
