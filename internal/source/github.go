package source

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/Suhaibinator/SChangelog/internal/release"
	"github.com/google/go-github/v62/github"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const githubPerPage = 100

var languageIcons = map[string]string{
	"JavaScript": "JS",
	"TypeScript": "TS",
	"Python":     "PY",
	"Java":       "JV",
	"Go":         "GO",
	"Rust":       "RS",
}

// FallbackLanguageIcon is the icon of repositories in any other language.
const FallbackLanguageIcon = "PKG"

// GitHub pages through the releases of one repository.
type GitHub struct {
	name    string
	owner   string
	repo    string
	perPage int
	timeout time.Duration
	client  *github.Client
	limiter *rate.Limiter
	log     *zap.Logger
}

// NewGitHub creates a releases source for owner/repo.
func NewGitHub(name, owner, repo string, opts Options) (*GitHub, error) {
	if owner == "" || repo == "" {
		return nil, fmt.Errorf("source %q: owner and repo are required", name)
	}

	client := github.NewClient(opts.HTTPClient)
	if opts.GithubToken != "" {
		client = client.WithAuthToken(opts.GithubToken)
	}
	if opts.GithubAPIURL != "" {
		base := opts.GithubAPIURL
		if !strings.HasSuffix(base, "/") {
			base += "/"
		}
		u, err := url.Parse(base)
		if err != nil {
			return nil, fmt.Errorf("invalid GitHub API URL %q: %w", opts.GithubAPIURL, err)
		}
		client.BaseURL = u
	}

	limit := rate.Inf
	if opts.PageDelay > 0 {
		limit = rate.Every(opts.PageDelay)
	}

	return &GitHub{
		name:    name,
		owner:   owner,
		repo:    repo,
		perPage: githubPerPage,
		timeout: opts.timeout(),
		client:  client,
		limiter: rate.NewLimiter(limit, 1),
		log:     opts.logger().Named("github").With(zap.String("repo", owner+"/"+repo)),
	}, nil
}

func (g *GitHub) Name() string { return g.name }

// Fetch requests pages until one comes back short. A failure after the first page
// ends pagination and returns what was collected so far.
func (g *GitHub) Fetch(ctx context.Context) ([]release.RawEntry, error) {
	var entries []release.RawEntry
	requests := 0

	for page := 1; ; page++ {
		if err := g.limiter.Wait(ctx); err != nil {
			if page == 1 {
				return nil, fmt.Errorf("%w: %w", ErrUnreachable, err)
			}
			g.log.Warn("Stopped paginating", zap.Int("page", page), zap.Error(err))
			break
		}

		releases, err := g.listPage(ctx, page)
		requests++
		if err != nil {
			if page == 1 {
				return nil, fmt.Errorf("%w: %s/%s: %w", ErrUnreachable, g.owner, g.repo, err)
			}
			g.log.Warn("Failed to fetch releases page, keeping partial results",
				zap.Int("page", page), zap.Int("collected", len(entries)), zap.Error(err))
			break
		}

		for _, r := range releases {
			if r.GetDraft() || r.GetPrerelease() {
				continue
			}
			entry, err := g.toEntry(r)
			if err != nil {
				g.log.Debug("Skipping release", zap.Int64("id", r.GetID()), zap.Error(err))
				continue
			}
			entries = append(entries, entry)
		}

		if len(releases) < g.perPage {
			break
		}
	}

	g.log.Info("Fetched releases", zap.Int("requests", requests), zap.Int("releases", len(entries)))
	return entries, nil
}

func (g *GitHub) listPage(ctx context.Context, page int) ([]*github.RepositoryRelease, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	releases, _, err := g.client.Repositories.ListReleases(ctx, g.owner, g.repo, &github.ListOptions{
		Page:    page,
		PerPage: g.perPage,
	})
	return releases, err
}

func (g *GitHub) toEntry(r *github.RepositoryRelease) (release.RawEntry, error) {
	tag := r.GetTagName()
	title := r.GetName()
	if title == "" {
		title = tag
	}
	body := r.GetBody()
	if strings.TrimSpace(body) == "" {
		body = "Release " + tag
	}
	archive := r.GetZipballURL()
	if archive == "" && tag != "" {
		archive = fmt.Sprintf("https://github.com/%s/%s/archive/refs/tags/%s.zip", g.owner, g.repo, tag)
	}
	return release.NewRawEntry(title, tag, r.PublishedAt.GetTime(), body, r.GetHTMLURL(), archive)
}

// Icon derives the project icon from the repository language.
func (g *GitHub) Icon(ctx context.Context) string {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	repo, _, err := g.client.Repositories.Get(ctx, g.owner, g.repo)
	if err != nil {
		g.log.Warn("Failed to load repository language", zap.Error(err))
		return FallbackLanguageIcon
	}
	if icon, ok := languageIcons[repo.GetLanguage()]; ok {
		return icon
	}
	return FallbackLanguageIcon
}
