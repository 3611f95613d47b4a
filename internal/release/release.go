// Package release holds the typed records that flow between the stages of the
// ingestion pipeline: what a source produced, what the normalizer made of it,
// what gets written, and how a run ended.
package release

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrMissingTitle   = errors.New("release entry has neither title nor tag")
	ErrMissingVersion = errors.New("normalized entry has no version")
	ErrMissingDate    = errors.New("normalized entry has no date")
)

// RawEntry is one release as a source returned it.
type RawEntry struct {
	Title      string     `json:"title"`
	Tag        string     `json:"tag,omitempty"`
	Published  *time.Time `json:"published,omitempty"` // nil when the source carries no timestamp
	Body       string     `json:"body"`                // Markup or plain text
	Link       string     `json:"link,omitempty"`      // Canonical page, used for enrichment
	ArchiveURL string     `json:"archive_url,omitempty"`
}

// NewRawEntry builds a RawEntry, rejecting entries that cannot be identified.
func NewRawEntry(title, tag string, published *time.Time, body, link, archiveURL string) (RawEntry, error) {
	title = strings.TrimSpace(title)
	tag = strings.TrimSpace(tag)
	if title == "" && tag == "" {
		return RawEntry{}, ErrMissingTitle
	}
	return RawEntry{
		Title:      title,
		Tag:        tag,
		Published:  published,
		Body:       body,
		Link:       strings.TrimSpace(link),
		ArchiveURL: strings.TrimSpace(archiveURL),
	}, nil
}

// Label is a human readable identifier for logging.
func (e RawEntry) Label() string {
	if e.Title != "" {
		return e.Title
	}
	return e.Tag
}

// NormalizedEntry is a RawEntry after version/date extraction and content cleaning.
type NormalizedEntry struct {
	Version     string
	Date        time.Time
	Content     string
	DownloadURL string
}

// NewNormalizedEntry validates the required fields of a normalized entry.
func NewNormalizedEntry(version string, date time.Time, content, downloadURL string) (NormalizedEntry, error) {
	if version == "" {
		return NormalizedEntry{}, ErrMissingVersion
	}
	if date.IsZero() {
		return NormalizedEntry{}, ErrMissingDate
	}
	return NormalizedEntry{Version: version, Date: date, Content: content, DownloadURL: downloadURL}, nil
}

// Record is a translated entry ready to be persisted for a project.
type Record struct {
	ProjectID   uint
	Version     string
	Date        time.Time
	Content     string
	DownloadURL string
	Translated  bool // false when the content fell back to the untranslated text
}

// State is the terminal state of a project ingestion run.
type State string

const (
	StateCompleted State = "completed"
	StateAborted   State = "aborted"
)

// Summary reports what one project ingestion run did.
type Summary struct {
	Project   string
	State     State
	Reason    string // Why the run aborted
	Fetched   int    // Entries returned by the source
	Processed int    // Entries that produced a record
	Skipped   int    // Entries that produced no record
	Inserted  int
	Updated   int
	Failed    int // Statements that failed
	Duration  time.Duration
}

func (s Summary) String() string {
	if s.State == StateAborted {
		return fmt.Sprintf("%s: aborted (%s)", s.Project, s.Reason)
	}
	return fmt.Sprintf("%s: fetched=%d inserted=%d updated=%d skipped=%d failed=%d",
		s.Project, s.Fetched, s.Inserted, s.Updated, s.Skipped, s.Failed)
}
