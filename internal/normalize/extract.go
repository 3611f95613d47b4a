package normalize

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// DefaultVersion is assigned to entries whose title and tag carry no version.
// Two such entries of one project collide on the same row.
const DefaultVersion = "v1.0.0"

var (
	titleVersionRe = regexp.MustCompile(`(?i)version\s+(\d+\.\d+(?:\.\d+)?)`)
	titleOnlyRe    = regexp.MustCompile(`^[vV]?(\d+(?:\.\d+)+\S*)$`)
	monthYearRe    = regexp.MustCompile(`(?i)\b(January|February|March|April|May|June|July|August|September|October|November|December)\s+(\d{4})\b`)
)

// ExtractVersion returns the canonical version of an entry: "Version X.Y" in the
// title, else the tag itself with exactly one leading "v", else a title that is
// nothing but a dotted version number. Everything else gets DefaultVersion.
func ExtractVersion(title, tag string) string {
	if m := titleVersionRe.FindStringSubmatch(title); m != nil {
		return "v" + m[1]
	}
	if tag = strings.TrimSpace(tag); tag != "" {
		if bare := strings.TrimLeft(tag, "vV"); bare != "" {
			return "v" + bare
		}
	}
	if m := titleOnlyRe.FindStringSubmatch(strings.TrimSpace(title)); m != nil {
		return "v" + m[1]
	}
	return DefaultVersion
}

// ExtractDate returns the calendar date (UTC midnight) of an entry: the explicit
// timestamp when present, else the first day of a "Month YYYY" found in the title,
// else the date of now.
func ExtractDate(published *time.Time, title string, now time.Time) time.Time {
	if published != nil && !published.IsZero() {
		return truncateDay(published.UTC())
	}
	if m := monthYearRe.FindStringSubmatch(title); m != nil {
		year, err := strconv.Atoi(m[2])
		if err == nil {
			if month, ok := parseMonth(m[1]); ok {
				return time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
			}
		}
	}
	return truncateDay(now.UTC())
}

func parseMonth(name string) (time.Month, bool) {
	for m := time.January; m <= time.December; m++ {
		if strings.EqualFold(m.String(), name) {
			return m, true
		}
	}
	return 0, false
}

func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// BareVersion strips the canonical "v" prefix.
func BareVersion(version string) string {
	return strings.TrimPrefix(version, "v")
}
