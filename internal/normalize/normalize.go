// Package normalize turns raw release entries into versioned, dated markdown.
package normalize

import (
	"context"
	"strings"
	"time"

	"github.com/Suhaibinator/SChangelog/internal/release"
	"go.uber.org/zap"
)

// Normalizer extracts version and date, cleans the body and optionally appends
// the linked article.
type Normalizer struct {
	enricher *Enricher
	heading  string
	now      func() time.Time
	log      *zap.Logger
}

// Option configures a Normalizer.
type Option func(*Normalizer)

// WithEnricher appends the linked article of every entry under heading.
func WithEnricher(e *Enricher, heading string) Option {
	return func(n *Normalizer) {
		n.enricher = e
		if heading != "" {
			n.heading = heading
		}
	}
}

// WithClock replaces time.Now, used for entries without any date.
func WithClock(now func() time.Time) Option {
	return func(n *Normalizer) { n.now = now }
}

func WithLogger(log *zap.Logger) Option {
	return func(n *Normalizer) { n.log = log.Named("normalize") }
}

func New(opts ...Option) *Normalizer {
	n := &Normalizer{
		heading: DefaultEnrichHeading,
		now:     time.Now,
		log:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Normalize never fails on missing data: version and date fall back to defaults.
func (n *Normalizer) Normalize(ctx context.Context, raw release.RawEntry) (release.NormalizedEntry, error) {
	version := ExtractVersion(raw.Title, raw.Tag)
	date := ExtractDate(raw.Published, raw.Title, n.now())
	content := CleanContent(raw.Body)

	if n.enricher != nil && raw.Link != "" {
		article, err := n.enricher.Fetch(ctx, raw.Link)
		if err != nil {
			n.log.Debug("Skipping article enrichment", zap.String("link", raw.Link), zap.Error(err))
		} else {
			content += "\n\n## " + n.heading + "\n\n" + article
		}
	}

	return release.NewNormalizedEntry(version, date, content, DownloadURL(raw, version))
}

// DownloadURL resolves the archive URL of an entry, substituting "{version}" with
// the bare version number. Entries without an archive URL use their link.
func DownloadURL(raw release.RawEntry, version string) string {
	if raw.ArchiveURL == "" {
		return raw.Link
	}
	return strings.ReplaceAll(raw.ArchiveURL, "{version}", BareVersion(version))
}
