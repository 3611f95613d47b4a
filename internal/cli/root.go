package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Suhaibinator/SChangelog/internal/config"
	"github.com/Suhaibinator/SChangelog/internal/logging"
	"github.com/joho/godotenv"
	"github.com/mitchellh/go-homedir"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

var (
	cfgFile  string // Path to config file (passed via flag)
	apiURL   string
	apiToken string
	logLevel string // Flag for log level
	logger   *zap.Logger
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "changelog",
	Short: "Release changelog aggregator",
	Long: `changelog collects the release notes of the configured projects, normalizes and
translates them, and stores one row per (project, version).

It also talks to the query API to list projects and manage versions by hand.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		initLogger(logLevel)
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	cobra.CheckErr(rootCmd.Execute())
}

func init() {
	cobra.OnInitialize(initConfig) // Called after flags are parsed

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.config/changelog/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&apiURL, "api-url", "", "Query API URL (overrides config/env)")
	rootCmd.PersistentFlags().StringVar(&apiToken, "api-token", "", "API token for write routes (overrides config/env)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Set logging level (debug, info, warn, error)")

	// Flags share the keys of the server configuration.
	viper.BindPFlag("API_URL", rootCmd.PersistentFlags().Lookup("api-url"))
	viper.BindPFlag("AUTH_TOKEN", rootCmd.PersistentFlags().Lookup("api-token"))
}

// defaultConfigPath is ~/.config/changelog/config.yaml.
func defaultConfigPath() (string, error) {
	home, err := homedir.Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "changelog", "config.yaml"), nil
}

// initConfig reads in .env, the config file and ENV variables if set.
func initConfig() {
	// A missing .env is the normal case.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		fmt.Fprintln(os.Stderr, "Error reading .env file:", err)
	}

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		path, err := defaultConfigPath()
		cobra.CheckErr(err)
		viper.AddConfigPath(filepath.Dir(path))
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}

	// e.g. CHANGELOG_API_URL, CHANGELOG_AUTH_TOKEN
	viper.SetEnvPrefix("CHANGELOG")
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	} else {
		// Only show file not found error if a specific file was requested
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !(os.IsNotExist(err) || errors.As(err, &notFound)) {
			fmt.Fprintln(os.Stderr, "Error reading config file:", err)
		}
	}
}

// initLogger builds the process logger. The --log-level flag wins over LOG_LEVEL.
func initLogger(level string) {
	if level == "" {
		level = viper.GetString("LOG_LEVEL")
	}
	var err error
	logger, err = logging.New(level)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing logger: %v\n", err)
		os.Exit(1)
	}
}

// GetLogger returns the initialized logger instance.
func GetLogger() *zap.Logger {
	if logger == nil {
		initLogger("info")
	}
	return logger
}

// mustLoadConfig loads and validates the full configuration or exits.
func mustLoadConfig(log *zap.Logger) config.Config {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("Failed to load configuration", zap.Error(err))
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal("Invalid configuration", zap.Error(err))
	}
	return cfg
}
