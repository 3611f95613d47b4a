package cli

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/Suhaibinator/SChangelog/internal/api"
	"github.com/Suhaibinator/SChangelog/internal/normalize"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

var (
	publishDate        string
	publishDownloadURL string
)

// publishCmd represents the publish command
var publishCmd = &cobra.Command{
	Use:   "publish <project-id> <version> <notes-file>",
	Short: "Publish a version by hand",
	Long: `Reads release notes from a file (markdown or HTML), cleans them the same way
ingestion does, and creates the version through the query API. The project's latest
version moves only when the new version is newer.

Authentication via API token is required.

Example:
  changelog publish 3 v15.0.1 ./notes.md --date 2025-02-01`,
	Args: cobra.ExactArgs(3),
	Run: func(cmd *cobra.Command, args []string) {
		log := GetLogger()
		baseURL := viper.GetString("API_URL")
		token := viper.GetString("AUTH_TOKEN")
		if baseURL == "" {
			log.Fatal("API URL is not configured.")
		}
		if token == "" {
			log.Fatal("API token is required for publishing. Use --api-token flag, CHANGELOG_AUTH_TOKEN env var, or 'changelog configure'.")
		}

		id, err := strconv.ParseUint(args[0], 10, 64)
		if err != nil || id == 0 {
			log.Fatal("Invalid project id", zap.String("id", args[0]))
		}
		version, err := canonicalVersion(args[1])
		if err != nil {
			log.Fatal("Invalid version", zap.String("version", args[1]), zap.Error(err))
		}

		raw, err := os.ReadFile(args[2])
		if err != nil {
			log.Fatal("Failed to read notes file", zap.String("path", args[2]), zap.Error(err))
		}
		content := normalize.CleanContent(string(raw))

		req := api.VersionRequest{
			ProjectID:  uint(id),
			Version:    version,
			UpdateTime: publishDate,
			Content:    &content,
		}
		if publishDownloadURL != "" {
			req.DownloadURL = &publishDownloadURL
		}

		log.Info("Publishing version", zap.Uint64("project_id", id), zap.String("version", version))
		created, err := newAPIClient(baseURL, token, log).CreateVersion(cmd.Context(), req)
		if err != nil {
			log.Fatal("Publish request failed", zap.Error(err))
		}
		fmt.Printf("Successfully published %s (id %d, %s)\n", created.Version, created.ID, created.UpdateTime.Format("2006-01-02"))
	},
}

// canonicalVersion checks that v is a version number and returns it with a "v" prefix.
func canonicalVersion(v string) (string, error) {
	v = strings.TrimSpace(v)
	if _, err := semver.NewVersion(v); err != nil {
		return "", err
	}
	return "v" + strings.TrimPrefix(v, "v"), nil
}

func init() {
	rootCmd.AddCommand(publishCmd)

	publishCmd.Flags().StringVar(&publishDate, "date", "", "Release date (YYYY-MM-DD, default today)")
	publishCmd.Flags().StringVar(&publishDownloadURL, "download-url", "", "Download URL of the release")
}
