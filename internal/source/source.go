// Package source adapts external release feeds into release.RawEntry slices.
package source

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/Suhaibinator/SChangelog/internal/config"
	"github.com/Suhaibinator/SChangelog/internal/release"
	"go.uber.org/zap"
)

// ErrUnreachable is returned when a source produced nothing at all.
var ErrUnreachable = errors.New("source unreachable")

// DefaultCategory is the RSS category kept when a source does not name one.
const DefaultCategory = "release"

// AllCategories disables RSS category filtering when used as the configured category.
const AllCategories = "*"

// DefaultIcon is used for projects whose source cannot tell us anything better.
const DefaultIcon = "📦"

// Source yields the release entries of one project, newest first.
type Source interface {
	Name() string
	// Fetch returns an error only when nothing could be retrieved.
	Fetch(ctx context.Context) ([]release.RawEntry, error)
}

// IconSource is implemented by sources that can derive a project icon.
type IconSource interface {
	Icon(ctx context.Context) string
}

// Options carries the settings shared by every source.
type Options struct {
	HTTPClient   *http.Client
	Timeout      time.Duration // Per request
	PageDelay    time.Duration // Minimum spacing of paginated requests
	GithubToken  string
	GithubAPIURL string
	Logger       *zap.Logger
}

func (o Options) logger() *zap.Logger {
	if o.Logger == nil {
		return zap.NewNop()
	}
	return o.Logger
}

func (o Options) timeout() time.Duration {
	if o.Timeout <= 0 {
		return 30 * time.Second
	}
	return o.Timeout
}

// OptionsFromConfig builds source options from the global configuration.
func OptionsFromConfig(cfg config.Config, log *zap.Logger) Options {
	return Options{
		Timeout:      cfg.FetchTimeout,
		PageDelay:    cfg.PageDelay,
		GithubToken:  cfg.GithubToken,
		GithubAPIURL: cfg.GithubApiURL,
		Logger:       log,
	}
}

// New builds the source described by cfg.
func New(cfg config.SourceConfig, opts Options) (Source, error) {
	switch strings.ToLower(cfg.Kind) {
	case "rss":
		if cfg.FeedURL == "" {
			return nil, fmt.Errorf("source %q: feed_url is required", cfg.Name)
		}
		category := cfg.Category
		switch category {
		case "":
			category = DefaultCategory
		case AllCategories:
			category = ""
		}
		return NewRSS(cfg.Name, cfg.FeedURL, category, cfg.DownloadURLTemplate, opts), nil
	case "github":
		return NewGitHub(cfg.Name, cfg.Owner, cfg.Repo, opts)
	default:
		return nil, fmt.Errorf("source %q: invalid kind %q", cfg.Name, cfg.Kind)
	}
}
