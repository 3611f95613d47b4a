package cli

import (
	"context"
	"fmt"

	"github.com/Suhaibinator/SChangelog/internal/config"
	"github.com/Suhaibinator/SChangelog/internal/db"
	"github.com/Suhaibinator/SChangelog/internal/models"
	"github.com/Suhaibinator/SChangelog/internal/writer"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var pruneDryRun bool

// repairLatestCmd represents the repair-latest command
var repairLatestCmd = &cobra.Command{
	Use:   "repair-latest [name...]",
	Short: "Rebuild the latest version pointer of projects",
	Long: `Ingestion moves a project's latest version only forward and concurrent writers can
leave it stale. This command recomputes it from the stored versions (most recent
release date wins) for the named projects, or for every project.`,
	Run: func(cmd *cobra.Command, args []string) {
		log := GetLogger()
		store := mustOpenStore(mustLoadConfig(log), log)
		defer store.Close()

		projects, err := selectProjects(cmd.Context(), store, args)
		if err != nil {
			log.Fatal("Failed to select projects", zap.Error(err))
		}
		for _, line := range repairLatest(cmd.Context(), store, projects, log) {
			fmt.Println(line)
		}
	},
}

// prunePrereleasesCmd represents the prune-prereleases command
var prunePrereleasesCmd = &cobra.Command{
	Use:   "prune-prereleases [name...]",
	Short: "Delete stored canary, alpha, beta and rc versions",
	Long: `Deletes stored versions whose version string matches a pre-release pattern
(-canary., -alpha., -beta., -rc., .aN, .bN, .rcN) and rebuilds the latest version
pointer of every project that lost a version.`,
	Run: func(cmd *cobra.Command, args []string) {
		log := GetLogger()
		store := mustOpenStore(mustLoadConfig(log), log)
		defer store.Close()

		projects, err := selectProjects(cmd.Context(), store, args)
		if err != nil {
			log.Fatal("Failed to select projects", zap.Error(err))
		}
		for _, line := range prunePrereleases(cmd.Context(), store, projects, pruneDryRun, log) {
			fmt.Println(line)
		}
	},
}

func mustOpenStore(cfg config.Config, log *zap.Logger) *db.Store {
	gormDB, err := db.Open(cfg, log)
	if err != nil {
		log.Fatal("Failed to open database", zap.Error(err))
	}
	return db.NewStore(gormDB)
}

// selectProjects returns the named projects, or every project when names is empty.
func selectProjects(ctx context.Context, store *db.Store, names []string) ([]models.Project, error) {
	if len(names) == 0 {
		return store.ListProjects(ctx)
	}
	projects := make([]models.Project, 0, len(names))
	for _, name := range names {
		p, err := store.FindProjectByName(ctx, name)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		projects = append(projects, p)
	}
	return projects, nil
}

func repairLatest(ctx context.Context, store *db.Store, projects []models.Project, log *zap.Logger) []string {
	lines := make([]string, 0, len(projects))
	for _, p := range projects {
		latest, err := store.RecomputeLatest(ctx, p.ID)
		if err != nil {
			log.Error("Failed to repair latest version", zap.String("project", p.Name), zap.Error(err))
			lines = append(lines, fmt.Sprintf("%s: failed (%v)", p.Name, err))
			continue
		}
		if latest == p.LatestVersion {
			lines = append(lines, fmt.Sprintf("%s: %s (unchanged)", p.Name, display(latest)))
			continue
		}
		lines = append(lines, fmt.Sprintf("%s: %s -> %s", p.Name, display(p.LatestVersion), display(latest)))
	}
	return lines
}

func prunePrereleases(ctx context.Context, store *db.Store, projects []models.Project, dryRun bool, log *zap.Logger) []string {
	var lines []string
	for _, p := range projects {
		if dryRun {
			found, err := store.MatchingVersions(ctx, p.ID, writer.IsPrerelease)
			if err != nil {
				log.Error("Failed to list versions", zap.String("project", p.Name), zap.Error(err))
				continue
			}
			if len(found) > 0 {
				names := make([]string, len(found))
				for i, v := range found {
					names[i] = v.Version
				}
				lines = append(lines, fmt.Sprintf("%s: would delete %d pre-release versions %v", p.Name, len(names), names))
			}
			continue
		}

		deleted, err := store.DeleteVersionsMatching(ctx, p.ID, writer.IsPrerelease)
		if err != nil {
			log.Error("Failed to prune pre-releases", zap.String("project", p.Name), zap.Strings("deleted", deleted), zap.Error(err))
		}
		if len(deleted) == 0 {
			continue
		}
		lines = append(lines, fmt.Sprintf("%s: deleted %d pre-release versions %v", p.Name, len(deleted), deleted))
		if _, err := store.RecomputeLatest(ctx, p.ID); err != nil {
			log.Error("Failed to repair latest version after pruning", zap.String("project", p.Name), zap.Error(err))
		}
	}
	if len(lines) == 0 {
		lines = append(lines, "No pre-release versions found.")
	}
	return lines
}

func display(version string) string {
	if version == "" {
		return "(none)"
	}
	return version
}

func init() {
	rootCmd.AddCommand(repairLatestCmd)
	rootCmd.AddCommand(prunePrereleasesCmd)

	prunePrereleasesCmd.Flags().BoolVar(&pruneDryRun, "dry-run", false, "Only print the versions that would be deleted")
}
