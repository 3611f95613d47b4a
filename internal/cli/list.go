package cli

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/Masterminds/semver/v3"
	"github.com/Suhaibinator/SChangelog/internal/models"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// listCmd represents the list command
var listCmd = &cobra.Command{
	Use:   "list [project-id]",
	Short: "List projects or the versions of one project",
	Long: `Lists all tracked projects with their latest version, or lists the stored
versions of one project, newest semantic version first.

Examples:
  changelog list      # List all projects
  changelog list 3    # List versions of project 3`,
	Args: cobra.MaximumNArgs(1), // 0 or 1 argument
	Run: func(cmd *cobra.Command, args []string) {
		log := GetLogger()
		baseURL := viper.GetString("API_URL")
		if baseURL == "" {
			log.Fatal("API URL is not configured. Use --api-url flag, CHANGELOG_API_URL env var, or 'changelog configure'.")
		}
		client := newAPIClient(baseURL, "", log)

		if len(args) == 0 {
			projects, err := client.ListProjects(cmd.Context())
			if err != nil {
				log.Fatal("Failed to list projects", zap.Error(err))
			}
			printProjects(projects)
			return
		}

		id, err := strconv.ParseUint(args[0], 10, 64)
		if err != nil || id == 0 {
			log.Fatal("Invalid project id", zap.String("id", args[0]))
		}
		project, err := client.GetProject(cmd.Context(), uint(id))
		if err != nil {
			log.Fatal("Failed to get project", zap.Uint64("id", id), zap.Error(err))
		}
		printVersions(project)
	},
}

func printProjects(projects []models.Project) {
	if len(projects) == 0 {
		fmt.Println("No projects found.")
		return
	}
	fmt.Println("Projects:")
	for _, p := range projects {
		if p.LatestVersion != "" {
			fmt.Printf("  [%d] %s %s (latest: %s)\n", p.ID, p.Icon, p.Name, p.LatestVersion)
		} else {
			fmt.Printf("  [%d] %s %s (no versions stored)\n", p.ID, p.Icon, p.Name)
		}
	}
}

func printVersions(project models.Project) {
	if len(project.Versions) == 0 {
		fmt.Printf("No versions found for project %s.\n", project.Name)
		return
	}
	sortVersionsDesc(project.Versions)
	fmt.Printf("Versions for %s:\n", project.Name)
	for _, v := range project.Versions {
		fmt.Printf("  %-24s %s\n", v.Version, v.UpdateTime.Format("2006-01-02"))
	}
}

// sortVersionsDesc orders versions by semantic version, newest first. Versions that
// do not parse keep their relative order after the parsed ones.
func sortVersionsDesc(versions []models.Version) {
	parsed := make(map[string]*semver.Version, len(versions))
	for _, v := range versions {
		if sv, err := semver.NewVersion(v.Version); err == nil {
			parsed[v.Version] = sv
		}
	}
	sort.SliceStable(versions, func(i, j int) bool {
		a, aok := parsed[versions[i].Version]
		b, bok := parsed[versions[j].Version]
		switch {
		case aok && bok:
			return a.GreaterThan(b)
		case aok:
			return true
		default:
			return false
		}
	})
}

func init() {
	rootCmd.AddCommand(listCmd)
}
