package source

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Suhaibinator/SChangelog/internal/release"
	"github.com/mmcdole/gofeed"
	"go.uber.org/zap"
)

// RSS reads an RSS or Atom feed and keeps the items of the release category.
type RSS struct {
	name             string
	feedURL          string
	category         string
	downloadTemplate string
	timeout          time.Duration
	parser           *gofeed.Parser
	log              *zap.Logger
}

// NewRSS creates a feed source. An empty category keeps every item.
func NewRSS(name, feedURL, category, downloadTemplate string, opts Options) *RSS {
	parser := gofeed.NewParser()
	if opts.HTTPClient != nil {
		parser.Client = opts.HTTPClient
	}
	return &RSS{
		name:             name,
		feedURL:          feedURL,
		category:         category,
		downloadTemplate: downloadTemplate,
		timeout:          opts.timeout(),
		parser:           parser,
		log:              opts.logger().Named("rss").With(zap.String("source", name)),
	}
}

func (r *RSS) Name() string { return r.name }

func (r *RSS) Fetch(ctx context.Context) ([]release.RawEntry, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	feed, err := r.parser.ParseURLWithContext(r.feedURL, ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrUnreachable, r.feedURL, err)
	}

	entries := make([]release.RawEntry, 0, len(feed.Items))
	for _, item := range feed.Items {
		if !r.keep(item) {
			continue
		}
		entry, err := r.toEntry(item)
		if err != nil {
			r.log.Debug("Skipping feed item", zap.String("link", item.Link), zap.Error(err))
			continue
		}
		entries = append(entries, entry)
	}
	r.log.Info("Fetched feed", zap.Int("items", len(feed.Items)), zap.Int("releases", len(entries)))
	return entries, nil
}

func (r *RSS) keep(item *gofeed.Item) bool {
	if r.category == "" {
		return true
	}
	for _, c := range item.Categories {
		if strings.EqualFold(strings.TrimSpace(c), r.category) {
			return true
		}
	}
	return false
}

func (r *RSS) toEntry(item *gofeed.Item) (release.RawEntry, error) {
	body := item.Content
	if strings.TrimSpace(body) == "" {
		body = item.Description
	}
	if strings.TrimSpace(body) == "" {
		body = item.Title
	}

	published := item.PublishedParsed
	if published == nil {
		published = item.UpdatedParsed
	}

	archive := r.downloadTemplate
	if archive == "" {
		archive = item.Link
	}
	return release.NewRawEntry(item.Title, "", published, body, item.Link, archive)
}
