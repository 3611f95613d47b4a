package normalize

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Suhaibinator/SChangelog/internal/release"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCleanContent(t *testing.T) {
	t.Run("html becomes markdown", func(t *testing.T) {
		out := CleanContent("<h2>Features</h2>\n<ul><li>Fast</li><li>Small</li></ul>")
		assert.Contains(t, out, "## Features")
		assert.Contains(t, out, "- Fast")
		assert.NotContains(t, out, "<")
	})

	t.Run("markdown passes through", func(t *testing.T) {
		in := "## What's Changed\n\n* fix: thing by @someone\n\n**Full Changelog**: v1...v2"
		assert.Equal(t, in, CleanContent(in))
	})

	t.Run("blank lines collapse", func(t *testing.T) {
		assert.Equal(t, "a\n\nb", CleanContent("\n\na\n  \n\t\n\n\nb\n\n"))
	})

	t.Run("crlf", func(t *testing.T) {
		assert.Equal(t, "a\n\nb", CleanContent("a\r\n\r\n\r\nb"))
	})
}

func TestStripTags(t *testing.T) {
	assert.Equal(t, "Hello & bye", stripTags("<p>Hello &amp; <b>bye</b></p>"))
}

func TestDownloadURL(t *testing.T) {
	raw := release.RawEntry{Link: "https://example.com/post", ArchiveURL: "https://dl.example.com/{version}/x.zip"}
	assert.Equal(t, "https://dl.example.com/1.103/x.zip", DownloadURL(raw, "v1.103"))

	raw.ArchiveURL = "https://example.com/zip"
	assert.Equal(t, "https://example.com/zip", DownloadURL(raw, "v1"))

	raw.ArchiveURL = ""
	assert.Equal(t, "https://example.com/post", DownloadURL(raw, "v1"))
}

func TestNormalize(t *testing.T) {
	clock := func() time.Time { return time.Date(2025, 8, 20, 10, 0, 0, 0, time.UTC) }
	n := New(WithClock(clock))

	raw, err := release.NewRawEntry("Version 1.103 release", "", nil, "<p>Notes</p>", "https://example.com/v1_103", "")
	require.NoError(t, err)

	entry, err := n.Normalize(context.Background(), raw)
	require.NoError(t, err)
	assert.Equal(t, "v1.103", entry.Version)
	assert.Equal(t, time.Date(2025, 8, 20, 0, 0, 0, 0, time.UTC), entry.Date)
	assert.Equal(t, "Notes", entry.Content)
	assert.Equal(t, "https://example.com/v1_103", entry.DownloadURL)
}

const articlePage = `<html><head><style>p{}</style></head><body>
<header>Site header</header>
<nav>Menu</nav>
<div class="content"><h2>Highlights</h2><script>track()</script><p>New editor features.</p></div>
<footer>Footer</footer>
</body></html>`

func TestNormalize_Enrichment(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		if r.URL.Path == "/missing" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(articlePage))
	}))
	defer srv.Close()

	n := New(WithEnricher(NewEnricher(5*time.Second, nil, nil), ""))
	published := time.Date(2025, 7, 10, 0, 0, 0, 0, time.UTC)

	raw, err := release.NewRawEntry("Version 1.103", "", &published, "Short notes", srv.URL+"/post", "")
	require.NoError(t, err)

	entry, err := n.Normalize(context.Background(), raw)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(entry.Content, "Short notes\n\n## 详细内容\n\n"), entry.Content)
	assert.Contains(t, entry.Content, "New editor features.")
	assert.NotContains(t, entry.Content, "track()")
	assert.NotContains(t, entry.Content, "Site header")

	// cached
	_, err = n.Normalize(context.Background(), raw)
	require.NoError(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))

	raw.Link = srv.URL + "/missing"
	entry, err = n.Normalize(context.Background(), raw)
	require.NoError(t, err)
	assert.Equal(t, "Short notes", entry.Content)
}

func TestExtractArticle_BodyFallback(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html><body><nav>Menu</nav><p>Only body text</p><aside>Ads</aside></body></html>`))
	}))
	defer srv.Close()

	text, err := NewEnricher(time.Second, nil, nil).Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "Only body text", text)
}

func TestTruncateRunes(t *testing.T) {
	assert.Equal(t, "详细", truncateRunes("详细内容", 2))
	assert.Equal(t, "abc", truncateRunes("abc", 5))
}
