package cli

import (
	"context"
	"fmt"

	"github.com/Suhaibinator/SChangelog/internal/config"
	"github.com/Suhaibinator/SChangelog/internal/ingest"
	"github.com/Suhaibinator/SChangelog/internal/models"
	"github.com/Suhaibinator/SChangelog/internal/release"
	"github.com/Suhaibinator/SChangelog/internal/source"
	"github.com/Suhaibinator/SChangelog/internal/storage"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var replayDiscard bool

// replayCmd represents the replay command
var replayCmd = &cobra.Command{
	Use:   "replay <name> <run-id>",
	Short: "Re-ingest the archived entries of an earlier run",
	Long: `Loads the raw snapshot archived by an earlier ingestion run and feeds it through
normalization, translation and the writer again, without contacting the upstream
source. Useful after changing the translator or fixing content cleanup.

The run id is printed in the snapshot object name: snapshots/<slug>/<run-id>.json.

Example:
  changelog replay "Next.js" 1f0c2a9e-4d7b-4c55-a1f3-0b6f3a1e2d44 --discard`,
	Args: cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		log := GetLogger()
		cfg := mustLoadConfig(log)
		ctx := cmd.Context()

		store := mustOpenStore(cfg, log)
		defer store.Close()

		project, err := store.FindProjectByName(ctx, args[0])
		if err != nil {
			log.Fatal("Failed to find project", zap.String("project", args[0]), zap.Error(err))
		}

		provider, err := storage.NewProvider(ctx, cfg, log)
		if err != nil {
			log.Fatal("Failed to initialize snapshot storage", zap.Error(err))
		}
		archiver := storage.NewSnapshotArchiver(provider)

		sc, ok := cfg.Source(project.Name)
		if !ok {
			sc = config.SourceConfig{Name: project.Name}
		}
		sc.BatchSize = cfg.EffectiveBatchSize(sc)

		// Replayed entries are already archived.
		orchestrator := newOrchestrator(ctx, cfg, store, false, log)
		summary, err := replaySnapshot(ctx, orchestrator, archiver, sc, project, args[1], replayDiscard, log)
		if err != nil {
			log.Fatal("Replay failed", zap.Error(err))
		}
		fmt.Println(summary.String())
	},
}

// replaySnapshot runs the entries of one archived run through the orchestrator. With
// discard set, the snapshot is deleted after a completed run.
func replaySnapshot(ctx context.Context, o *ingest.Orchestrator, archiver *storage.SnapshotArchiver, sc config.SourceConfig, project models.Project, runID string, discard bool, log *zap.Logger) (release.Summary, error) {
	snap, err := archiver.Load(ctx, project.Slug, runID)
	if err != nil {
		return release.Summary{}, err
	}
	log.Info("Replaying snapshot",
		zap.String("project", project.Name),
		zap.String("run_id", snap.RunID),
		zap.Time("fetched_at", snap.FetchedAt),
		zap.Int("entries", len(snap.Entries)))

	summary := o.Run(ctx, ingest.Job{Config: sc, Source: source.NewReplay(project.Name, snap.Entries)})
	if discard && summary.State == release.StateCompleted {
		if err := archiver.Delete(ctx, project.Slug, runID); err != nil {
			log.Warn("Failed to delete snapshot", zap.String("run_id", runID), zap.Error(err))
		}
	}
	return summary, nil
}

func init() {
	rootCmd.AddCommand(replayCmd)

	replayCmd.Flags().BoolVar(&replayDiscard, "discard", false, "Delete the snapshot after a completed replay")
}
