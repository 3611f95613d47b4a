package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/Suhaibinator/SChangelog/internal/models"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

var fetchOutput string

// fetchCmd represents the fetch command
var fetchCmd = &cobra.Command{
	Use:   "fetch <project-id> <version>",
	Short: "Fetch the release notes of one version",
	Long: `Downloads the stored release notes of a version from the query API and prints
them, or writes them to a markdown file when --output is given.

Example:
  changelog fetch 3 v15.0.0 --output ./notes/next-15.md`,
	Args: cobra.ExactArgs(2), // Requires project id and version
	Run: func(cmd *cobra.Command, args []string) {
		log := GetLogger()
		baseURL := viper.GetString("API_URL")
		if baseURL == "" {
			log.Fatal("API URL is not configured. Use --api-url flag, CHANGELOG_API_URL env var, or 'changelog configure'.")
		}

		id, err := strconv.ParseUint(args[0], 10, 64)
		if err != nil || id == 0 {
			log.Fatal("Invalid project id", zap.String("id", args[0]))
		}

		project, err := newAPIClient(baseURL, "", log).GetProject(cmd.Context(), uint(id))
		if err != nil {
			log.Fatal("Failed to get project", zap.Uint64("id", id), zap.Error(err))
		}
		version, ok := findVersion(project, args[1])
		if !ok {
			log.Fatal("Version not found", zap.String("project", project.Name), zap.String("version", args[1]))
		}

		notes := renderNotes(project, version)
		if fetchOutput == "" {
			fmt.Print(notes)
			return
		}
		if err := os.MkdirAll(filepath.Dir(fetchOutput), 0755); err != nil {
			log.Fatal("Failed to create output directory", zap.String("path", fetchOutput), zap.Error(err))
		}
		if err := os.WriteFile(fetchOutput, []byte(notes), 0644); err != nil {
			log.Fatal("Failed to write release notes", zap.String("path", fetchOutput), zap.Error(err))
		}
		log.Info("Release notes written", zap.String("path", fetchOutput))
		fmt.Printf("Successfully fetched %s %s to %s\n", project.Name, version.Version, fetchOutput)
	},
}

// findVersion looks up a version of the project, accepting the tag with or without
// its "v" prefix.
func findVersion(project models.Project, want string) (models.Version, bool) {
	for _, v := range project.Versions {
		if v.Version == want || v.Version == "v"+want {
			return v, true
		}
	}
	return models.Version{}, false
}

// renderNotes formats a version as a standalone markdown document.
func renderNotes(project models.Project, version models.Version) string {
	notes := fmt.Sprintf("# %s %s\n\n_%s_\n\n", project.Name, version.Version, version.UpdateTime.Format("2006-01-02"))
	if version.DownloadURL != "" {
		notes += fmt.Sprintf("Download: %s\n\n", version.DownloadURL)
	}
	return notes + version.Content + "\n"
}

func init() {
	rootCmd.AddCommand(fetchCmd)

	fetchCmd.Flags().StringVarP(&fetchOutput, "output", "o", "", "Markdown file to write the notes to (default stdout)")
}
