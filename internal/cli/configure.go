package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

var (
	configureApiURL   string
	configureApiToken string
)

// configureCmd represents the configure command
var configureCmd = &cobra.Command{
	Use:   "configure",
	Short: "Configure query API URL and API token",
	Long: `Saves the query API URL and API token to the configuration file.
Configuration is stored in ~/.config/changelog/config.yaml by default.

Precedence order for configuration values:
1. Command-line flags (--api-url, --api-token)
2. Environment variables (CHANGELOG_API_URL, CHANGELOG_AUTH_TOKEN)
3. Configuration file (~/.config/changelog/config.yaml)
4. Default values

This command updates the configuration file directly.`,
	Run: func(cmd *cobra.Command, args []string) {
		log := GetLogger()

		urlFlagSet := cmd.Flags().Changed("api-url")
		tokenFlagSet := cmd.Flags().Changed("api-token")
		if !urlFlagSet && !tokenFlagSet {
			log.Error("At least one flag (--api-url or --api-token) must be provided")
			cmd.Usage()
			os.Exit(1)
		}

		configFilePath := cfgFile
		if configFilePath == "" {
			path, err := defaultConfigPath()
			if err != nil {
				log.Fatal("Failed to get home directory", zap.Error(err))
			}
			configFilePath = path
		}
		configDir := filepath.Dir(configFilePath)
		if err := os.MkdirAll(configDir, 0750); err != nil {
			log.Fatal("Failed to create config directory", zap.String("path", configDir), zap.Error(err))
		}

		if urlFlagSet {
			viper.Set("API_URL", configureApiURL)
			log.Info("Setting API_URL in config", zap.String("value", configureApiURL))
		}
		if tokenFlagSet {
			viper.Set("AUTH_TOKEN", configureApiToken)
			log.Info("Setting AUTH_TOKEN in config") // Don't log the token itself
		}

		log.Info("Writing configuration", zap.String("path", configFilePath))
		if err := viper.WriteConfigAs(configFilePath); err != nil {
			log.Fatal("Failed to write config file", zap.String("path", configFilePath), zap.Error(err))
		}
		fmt.Printf("Configuration successfully saved to %s\n", configFilePath)
	},
}

func init() {
	rootCmd.AddCommand(configureCmd)

	// Local flags shadow the persistent ones of the same name.
	configureCmd.Flags().StringVar(&configureApiURL, "api-url", "", "Query API URL to save")
	configureCmd.Flags().StringVar(&configureApiToken, "api-token", "", "API token to save")
}
