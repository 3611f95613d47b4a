package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// SourceConfig describes one project whose release history is ingested.
type SourceConfig struct {
	Name string `mapstructure:"name"` // Project display name, also the lookup key
	Kind string `mapstructure:"kind"` // "rss" or "github"
	Icon string `mapstructure:"icon"`

	// RSS sources
	FeedURL             string `mapstructure:"feed_url"`
	Category            string `mapstructure:"category"`              // Release category term, "" means "release", "*" keeps every item
	DownloadURLTemplate string `mapstructure:"download_url_template"` // "{version}" is replaced by the bare version number

	// GitHub sources
	Owner string `mapstructure:"owner"`
	Repo  string `mapstructure:"repo"`

	BatchSize int  `mapstructure:"batch_size"` // 0 falls back to Config.BatchSize
	Enrich    bool `mapstructure:"enrich"`     // Fetch the linked article and append it
}

// Config holds all configuration for the server, the ingestion pipeline and the CLI.
type Config struct {
	// Server specific configuration
	ServerPort string `mapstructure:"SERVER_PORT"`

	// Database configuration
	DbType     string `mapstructure:"DB_TYPE"`     // "postgres", "sqlite" or "mysql"
	DbDsn      string `mapstructure:"DB_DSN"`      // Data Source Name for Postgres/MySQL
	SqlitePath string `mapstructure:"SQLITE_PATH"` // Path for SQLite database file

	// Raw snapshot archive
	ArchiveEnabled   bool   `mapstructure:"ARCHIVE_ENABLED"`
	StorageType      string `mapstructure:"STORAGE_TYPE"`       // "minio" or "local"
	LocalStoragePath string `mapstructure:"LOCAL_STORAGE_PATH"` // Path for local file storage

	// MinIO specific configuration (only used if StorageType is "minio")
	MinioEndpoint  string `mapstructure:"MINIO_ENDPOINT"`
	MinioAccessKey string `mapstructure:"MINIO_ACCESS_KEY"`
	MinioSecretKey string `mapstructure:"MINIO_SECRET_KEY"`
	MinioBucket    string `mapstructure:"MINIO_BUCKET"`
	MinioUseSSL    bool   `mapstructure:"MINIO_USE_SSL"`

	// Authentication for write routes of the query API
	AuthToken string `mapstructure:"AUTH_TOKEN"`
	// URL of the query API, used by the CLI
	ApiURL string `mapstructure:"API_URL"`

	// GitHub source
	GithubToken  string `mapstructure:"GITHUB_TOKEN"`
	GithubApiURL string `mapstructure:"GITHUB_API_URL"` // Empty means api.github.com

	// Translation
	Translator       string        `mapstructure:"TRANSLATOR"` // "tencent", "openai", "gemini" or "none"
	SourceLang       string        `mapstructure:"SOURCE_LANG"`
	TargetLang       string        `mapstructure:"TARGET_LANG"`
	TencentSecretID  string        `mapstructure:"TENCENT_SECRET_ID"`
	TencentSecretKey string        `mapstructure:"TENCENT_SECRET_KEY"`
	TencentRegion    string        `mapstructure:"TENCENT_REGION"`
	TencentProjectID int64         `mapstructure:"TENCENT_PROJECT_ID"`
	OpenAIKey        string        `mapstructure:"OPENAI_API_KEY"`
	OpenAIModel      string        `mapstructure:"OPENAI_MODEL"`
	OpenAIBaseURL    string        `mapstructure:"OPENAI_BASE_URL"`
	GeminiKey        string        `mapstructure:"GEMINI_API_KEY"`
	GeminiModel      string        `mapstructure:"GEMINI_MODEL"`
	ChunkSize        int           `mapstructure:"CHUNK_SIZE"`
	ChunkDelay       time.Duration `mapstructure:"CHUNK_DELAY"`
	TranslateTimeout time.Duration `mapstructure:"TRANSLATE_TIMEOUT"`
	TranslateRetries int           `mapstructure:"TRANSLATE_RETRIES"`

	// Pipeline pacing
	BatchSize     int           `mapstructure:"BATCH_SIZE"`
	BatchDelay    time.Duration `mapstructure:"BATCH_DELAY"`
	PageDelay     time.Duration `mapstructure:"PAGE_DELAY"`
	FetchTimeout  time.Duration `mapstructure:"FETCH_TIMEOUT"`
	EnrichHeading string        `mapstructure:"ENRICH_HEADING"`

	LogLevel string `mapstructure:"LOG_LEVEL"`

	Sources []SourceConfig `mapstructure:"SOURCES"`
}

// SetDefaults registers the default value of every key on the global viper instance.
func SetDefaults() {
	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("DB_TYPE", "postgres") // Default to postgres
	viper.SetDefault("DB_DSN", "host=localhost user=postgres password=postgres dbname=changelog port=5432 sslmode=disable")
	viper.SetDefault("SQLITE_PATH", "changelog.db")
	viper.SetDefault("ARCHIVE_ENABLED", false)
	viper.SetDefault("STORAGE_TYPE", "local")
	viper.SetDefault("LOCAL_STORAGE_PATH", "./changelog-snapshots")
	viper.SetDefault("MINIO_ENDPOINT", "localhost:9000")
	viper.SetDefault("MINIO_ACCESS_KEY", "minioadmin")
	viper.SetDefault("MINIO_SECRET_KEY", "minioadmin")
	viper.SetDefault("MINIO_BUCKET", "changelog-snapshots")
	viper.SetDefault("MINIO_USE_SSL", false)
	viper.SetDefault("AUTH_TOKEN", "")
	viper.SetDefault("API_URL", "http://localhost:8080")
	viper.SetDefault("GITHUB_TOKEN", "")
	viper.SetDefault("GITHUB_API_URL", "")
	viper.SetDefault("TRANSLATOR", "tencent")
	viper.SetDefault("SOURCE_LANG", "en")
	viper.SetDefault("TARGET_LANG", "zh")
	viper.SetDefault("TENCENT_REGION", "ap-beijing")
	viper.SetDefault("TENCENT_PROJECT_ID", 0)
	viper.SetDefault("OPENAI_MODEL", "gpt-4o-mini")
	viper.SetDefault("GEMINI_MODEL", "gemini-2.0-flash")
	viper.SetDefault("CHUNK_SIZE", 5000)
	viper.SetDefault("CHUNK_DELAY", 100*time.Millisecond)
	viper.SetDefault("TRANSLATE_TIMEOUT", 30*time.Second)
	viper.SetDefault("TRANSLATE_RETRIES", 1)
	viper.SetDefault("BATCH_SIZE", 5)
	viper.SetDefault("BATCH_DELAY", 2*time.Second)
	viper.SetDefault("PAGE_DELAY", 500*time.Millisecond)
	viper.SetDefault("FETCH_TIMEOUT", 30*time.Second)
	viper.SetDefault("ENRICH_HEADING", "详细内容")
	viper.SetDefault("LOG_LEVEL", "info")
}

// LoadConfig loads configuration from the config file (if the caller configured one),
// environment variables and defaults.
func LoadConfig() (config Config, err error) {
	SetDefaults()

	// e.g., CHANGELOG_DB_DSN, CHANGELOG_GITHUB_TOKEN
	viper.SetEnvPrefix("CHANGELOG")
	viper.AutomaticEnv()

	err = viper.Unmarshal(&config)
	return
}

// Validate checks the database settings and every source definition.
func (c Config) Validate() error {
	switch strings.ToLower(c.DbType) {
	case "postgres", "mysql":
		if c.DbDsn == "" {
			return fmt.Errorf("DB_DSN must be set for %s database type", c.DbType)
		}
	case "sqlite":
		if c.SqlitePath == "" {
			return fmt.Errorf("SQLITE_PATH must be set for sqlite database type")
		}
	default:
		return fmt.Errorf("invalid DB_TYPE: %s. Must be 'postgres', 'mysql' or 'sqlite'", c.DbType)
	}

	seen := make(map[string]bool, len(c.Sources))
	for i, s := range c.Sources {
		if s.Name == "" {
			return fmt.Errorf("source #%d has no name", i)
		}
		if seen[s.Name] {
			return fmt.Errorf("source %q is defined twice", s.Name)
		}
		seen[s.Name] = true

		switch strings.ToLower(s.Kind) {
		case "rss":
			if s.FeedURL == "" {
				return fmt.Errorf("source %q: feed_url is required for rss sources", s.Name)
			}
		case "github":
			if s.Owner == "" || s.Repo == "" {
				return fmt.Errorf("source %q: owner and repo are required for github sources", s.Name)
			}
		default:
			return fmt.Errorf("source %q: invalid kind %q. Must be 'rss' or 'github'", s.Name, s.Kind)
		}
	}
	return nil
}

// Source returns the source definition with the given name.
func (c Config) Source(name string) (SourceConfig, bool) {
	for _, s := range c.Sources {
		if s.Name == name {
			return s, true
		}
	}
	return SourceConfig{}, false
}

// EffectiveBatchSize returns the batch size for a source, falling back to the global one.
func (c Config) EffectiveBatchSize(s SourceConfig) int {
	if s.BatchSize > 0 {
		return s.BatchSize
	}
	if c.BatchSize > 0 {
		return c.BatchSize
	}
	return 5
}
