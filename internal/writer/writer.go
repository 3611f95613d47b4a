// Package writer decides which versions are new and persists them one statement
// at a time.
package writer

import (
	"context"
	"regexp"
	"time"

	"github.com/Masterminds/semver/v3"
	"github.com/Suhaibinator/SChangelog/internal/models"
	"github.com/Suhaibinator/SChangelog/internal/release"
	"go.uber.org/zap"
)

// Store is the subset of db.Store the writer needs.
type Store interface {
	InsertVersion(ctx context.Context, rec release.Record) error
	UpdateVersion(ctx context.Context, rec release.Record) error
	UpdateLatest(ctx context.Context, projectID uint, version string, date time.Time) error
}

// Reconcile splits records by whether their version is already stored. A version
// seen twice in one run is inserted once and updated afterwards.
func Reconcile(records []release.Record, existing map[string]struct{}) (toInsert, toUpdate []release.Record) {
	seen := make(map[string]struct{}, len(existing)+len(records))
	for v := range existing {
		seen[v] = struct{}{}
	}
	for _, rec := range records {
		if _, ok := seen[rec.Version]; ok {
			toUpdate = append(toUpdate, rec)
			continue
		}
		seen[rec.Version] = struct{}{}
		toInsert = append(toInsert, rec)
	}
	return toInsert, toUpdate
}

// PersistResult counts the statements of one Persist call.
type PersistResult struct {
	Attempted int
	Inserted  int
	Updated   int
	Failed    int
}

type Writer struct {
	store Store
	log   *zap.Logger
}

func New(store Store, log *zap.Logger) *Writer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Writer{store: store, log: log.Named("writer")}
}

// Persist runs the inserts, then the updates. A failing statement is logged and
// counted; the remaining ones still run.
func (w *Writer) Persist(ctx context.Context, toInsert, toUpdate []release.Record) PersistResult {
	var res PersistResult
	for _, rec := range toInsert {
		res.Attempted++
		if err := w.store.InsertVersion(ctx, rec); err != nil {
			w.log.Error("Failed to insert version", zap.Uint("project_id", rec.ProjectID), zap.String("version", rec.Version), zap.Error(err))
			res.Failed++
			continue
		}
		res.Inserted++
	}
	for _, rec := range toUpdate {
		res.Attempted++
		if err := w.store.UpdateVersion(ctx, rec); err != nil {
			w.log.Error("Failed to update version", zap.Uint("project_id", rec.ProjectID), zap.String("version", rec.Version), zap.Error(err))
			res.Failed++
			continue
		}
		res.Updated++
	}
	return res
}

// UpdateLatest moves the latest pointer of project to candidate when candidate is
// newer. Failures are logged only. Returns whether the pointer was written.
func (w *Writer) UpdateLatest(ctx context.Context, project models.Project, candidate release.Record) bool {
	if !IsNewer(candidate.Version, candidate.Date, project.LatestVersion, project.LatestUpdateTime) {
		return false
	}
	if err := w.store.UpdateLatest(ctx, project.ID, candidate.Version, candidate.Date); err != nil {
		w.log.Warn("Failed to update latest version", zap.String("project", project.Name), zap.String("version", candidate.Version), zap.Error(err))
		return false
	}
	w.log.Info("Updated latest version", zap.String("project", project.Name), zap.String("version", candidate.Version))
	return true
}

// IsNewer compares a candidate against the cached latest pointer. An empty cache is
// always older. Versions that both parse as semver compare by precedence; anything
// else compares by date, where a different version on the same date counts as newer.
func IsNewer(version string, date time.Time, cachedVersion string, cachedDate *time.Time) bool {
	if cachedVersion == "" {
		return true
	}
	if version == cachedVersion {
		return false
	}

	candidate, errA := semver.NewVersion(version)
	cached, errB := semver.NewVersion(cachedVersion)
	if errA == nil && errB == nil {
		return candidate.GreaterThan(cached)
	}

	if cachedDate == nil {
		return true
	}
	return !date.Before(*cachedDate)
}

var prereleasePattern = regexp.MustCompile(`(?i)-(canary|alpha|beta|rc)\.|\.(a|b|rc)\d+`)

// IsPrerelease reports whether a stored version string looks like a canary, alpha,
// beta or release candidate build.
func IsPrerelease(version string) bool {
	return prereleasePattern.MatchString(version)
}
