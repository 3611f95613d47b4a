package normalize

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"
)

// MaxArticleChars caps the extracted article markup.
const MaxArticleChars = 5000

// DefaultEnrichHeading titles the appended article section.
const DefaultEnrichHeading = "详细内容"

var articleSelectors = []string{
	"article",
	".content",
	".main-content",
	".post-content",
	".entry-content",
	"main",
	".article-content",
}

var errNoArticle = errors.New("no article text found")

// Enricher downloads the page an entry links to and extracts its main text.
type Enricher struct {
	client *http.Client
	log    *zap.Logger
}

// NewEnricher builds an enricher with a response cache in front of base.
// A nil base uses http.DefaultTransport.
func NewEnricher(timeout time.Duration, base http.RoundTripper, log *zap.Logger) *Enricher {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if log == nil {
		log = zap.NewNop()
	}
	log = log.Named("enrich")
	cache := newCacheTransport(256, time.Hour, log)
	return &Enricher{
		client: &http.Client{Timeout: timeout, Transport: cache.wrap(base)},
		log:    log,
	}
}

// Fetch returns the cleaned main text of the page at link.
func (e *Enricher) Fetch(ctx context.Context, link string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, link, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; changelog-ingest)")

	resp, err := e.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to fetch article %s: %w", link, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("failed to fetch article %s: %s", link, resp.Status)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to parse article %s: %w", link, err)
	}

	markup, err := extractArticle(doc)
	if err != nil {
		return "", err
	}
	text := CleanContent(truncateRunes(markup, MaxArticleChars))
	if text == "" {
		return "", errNoArticle
	}
	return text, nil
}

func extractArticle(doc *goquery.Document) (string, error) {
	doc.Find("script, style").Remove()

	for _, selector := range articleSelectors {
		sel := doc.Find(selector).First()
		if sel.Length() == 0 {
			continue
		}
		markup, err := sel.Html()
		if err != nil {
			return "", err
		}
		if strings.TrimSpace(markup) != "" {
			return markup, nil
		}
	}

	body := doc.Find("body")
	if body.Length() == 0 {
		return "", errNoArticle
	}
	body.Find("header, footer, nav, aside").Remove()
	return body.Html()
}

func truncateRunes(s string, max int) string {
	if max <= 0 {
		return s
	}
	count := 0
	for i := range s {
		if count == max {
			return s[:i]
		}
		count++
	}
	return s
}
