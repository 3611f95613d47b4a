// Package ingest runs the per-project pipeline: resolve the project, fetch its
// releases, normalize and translate them in batches, then persist.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Suhaibinator/SChangelog/internal/config"
	"github.com/Suhaibinator/SChangelog/internal/db"
	"github.com/Suhaibinator/SChangelog/internal/models"
	"github.com/Suhaibinator/SChangelog/internal/monitoring"
	"github.com/Suhaibinator/SChangelog/internal/normalize"
	"github.com/Suhaibinator/SChangelog/internal/release"
	"github.com/Suhaibinator/SChangelog/internal/source"
	"github.com/Suhaibinator/SChangelog/internal/storage"
	"github.com/Suhaibinator/SChangelog/internal/translate"
	"github.com/Suhaibinator/SChangelog/internal/writer"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Store is what a run needs from the database.
type Store interface {
	writer.Store
	FindProjectByName(ctx context.Context, name string) (models.Project, error)
	ResolveProject(ctx context.Context, name, icon string) (models.Project, bool, error)
	ExistingVersions(ctx context.Context, projectID uint) (map[string]struct{}, error)
}

// Archiver keeps the raw entries of a run.
type Archiver interface {
	Archive(ctx context.Context, projectSlug string, snap storage.Snapshot) (string, error)
}

// Job is one project to ingest.
type Job struct {
	Config config.SourceConfig
	Source source.Source
}

type Options struct {
	BatchSize     int           // Entries processed concurrently, default 5
	BatchDelay    time.Duration // Pause between batches
	Enricher      *normalize.Enricher
	EnrichHeading string
	Archiver      Archiver // nil disables snapshots
	Clock         func() time.Time
}

type Orchestrator struct {
	store      Store
	writer     *writer.Writer
	translator *translate.Service
	opts       Options
	log        *zap.Logger
}

func New(store Store, translator *translate.Service, opts Options, log *zap.Logger) *Orchestrator {
	if opts.BatchSize <= 0 {
		opts.BatchSize = 5
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if log == nil {
		log = zap.NewNop()
	}
	if translator == nil {
		translator = translate.NewDisabled()
	}
	return &Orchestrator{
		store:      store,
		writer:     writer.New(store, log),
		translator: translator,
		opts:       opts,
		log:        log.Named("ingest"),
	}
}

// RunAll runs the jobs one after another. An aborted project does not stop the others.
func (o *Orchestrator) RunAll(ctx context.Context, jobs []Job) []release.Summary {
	summaries := make([]release.Summary, 0, len(jobs))
	for _, job := range jobs {
		if ctx.Err() != nil {
			break
		}
		summaries = append(summaries, o.Run(ctx, job))
	}
	return summaries
}

// Run ingests one project and always returns a summary.
func (o *Orchestrator) Run(ctx context.Context, job Job) (summary release.Summary) {
	start := time.Now()
	name := job.Config.Name
	log := o.log.With(zap.String("project", name))
	summary = release.Summary{Project: name}

	defer func() {
		summary.Duration = time.Since(start)
		monitoring.IngestRunAmount.WithLabelValues(name, string(summary.State)).Inc()
		monitoring.IngestRunDuration.WithLabelValues(name).Observe(summary.Duration.Seconds())
		if summary.State == release.StateAborted {
			log.Error("Ingestion aborted", zap.String("reason", summary.Reason))
			return
		}
		log.Info("Ingestion completed",
			zap.Int("fetched", summary.Fetched),
			zap.Int("inserted", summary.Inserted),
			zap.Int("updated", summary.Updated),
			zap.Int("skipped", summary.Skipped),
			zap.Int("failed", summary.Failed),
			zap.Duration("duration", time.Since(start)))
	}()
	abort := func(step string, err error) release.Summary {
		summary.State = release.StateAborted
		summary.Reason = fmt.Sprintf("%s: %v", step, err)
		return summary
	}

	project, err := o.resolveProject(ctx, job)
	if err != nil {
		return abort("resolve project", err)
	}

	existing, err := o.store.ExistingVersions(ctx, project.ID)
	if err != nil {
		return abort("load existing versions", err)
	}

	entries, err := job.Source.Fetch(ctx)
	if err != nil {
		return abort("fetch", err)
	}
	summary.Fetched = len(entries)
	monitoring.EntriesFetched.WithLabelValues(name).Add(float64(len(entries)))
	log.Info("Fetched entries", zap.Int("entries", len(entries)), zap.Int("known_versions", len(existing)))

	o.archive(ctx, project, entries, log)

	results := o.process(ctx, project.ID, o.normalizer(job), o.batchSize(job), entries, log)

	records := make([]release.Record, 0, len(results))
	for _, r := range results {
		if r != nil {
			records = append(records, *r)
		}
	}
	summary.Processed = len(records)
	summary.Skipped = len(entries) - len(records)
	monitoring.EntriesSkipped.WithLabelValues(name).Add(float64(summary.Skipped))

	toInsert, toUpdate := writer.Reconcile(records, existing)
	persisted := o.writer.Persist(ctx, toInsert, toUpdate)
	summary.Inserted = persisted.Inserted
	summary.Updated = persisted.Updated
	summary.Failed = persisted.Failed
	monitoring.VersionsInserted.WithLabelValues(name).Add(float64(persisted.Inserted))
	monitoring.VersionsUpdated.WithLabelValues(name).Add(float64(persisted.Updated))
	monitoring.WriteFailures.WithLabelValues(name).Add(float64(persisted.Failed))

	// newest entry first
	if len(records) > 0 {
		o.writer.UpdateLatest(ctx, project, records[0])
	}

	summary.State = release.StateCompleted
	return summary
}

func (o *Orchestrator) resolveProject(ctx context.Context, job Job) (models.Project, error) {
	project, err := o.store.FindProjectByName(ctx, job.Config.Name)
	if err == nil {
		return project, nil
	}
	if !errors.Is(err, db.ErrProjectNotFound) {
		return models.Project{}, err
	}

	icon := job.Config.Icon
	if icon == "" {
		icon = source.DefaultIcon
		if is, ok := job.Source.(source.IconSource); ok {
			icon = is.Icon(ctx)
		}
	}
	project, created, err := o.store.ResolveProject(ctx, job.Config.Name, icon)
	if err != nil {
		return models.Project{}, err
	}
	if created {
		o.log.Info("Created project", zap.String("project", project.Name), zap.String("slug", project.Slug), zap.String("icon", icon))
	}
	return project, nil
}

func (o *Orchestrator) normalizer(job Job) *normalize.Normalizer {
	opts := []normalize.Option{normalize.WithClock(o.opts.Clock), normalize.WithLogger(o.log)}
	if job.Config.Enrich && o.opts.Enricher != nil {
		opts = append(opts, normalize.WithEnricher(o.opts.Enricher, o.opts.EnrichHeading))
	}
	return normalize.New(opts...)
}

func (o *Orchestrator) batchSize(job Job) int {
	if job.Config.BatchSize > 0 {
		return job.Config.BatchSize
	}
	return o.opts.BatchSize
}

func (o *Orchestrator) archive(ctx context.Context, project models.Project, entries []release.RawEntry, log *zap.Logger) {
	if o.opts.Archiver == nil || len(entries) == 0 {
		return
	}
	snap := storage.Snapshot{
		RunID:     uuid.NewString(),
		Project:   project.Name,
		FetchedAt: o.opts.Clock().UTC(),
		Entries:   entries,
	}
	objectName, err := o.opts.Archiver.Archive(ctx, project.Slug, snap)
	if err != nil {
		log.Warn("Failed to archive snapshot", zap.Error(err))
		return
	}
	log.Debug("Archived snapshot", zap.String("object", objectName))
}

// process normalizes and translates entries in batches. Entries of one batch run
// concurrently; the next batch starts after the previous one finished and the
// batch delay elapsed. A nil result means the entry produced no record.
func (o *Orchestrator) process(ctx context.Context, projectID uint, n *normalize.Normalizer, size int, entries []release.RawEntry, log *zap.Logger) []*release.Record {
	results := make([]*release.Record, len(entries))

	for start := 0; start < len(entries); start += size {
		if start > 0 && o.opts.BatchDelay > 0 {
			if err := sleep(ctx, o.opts.BatchDelay); err != nil {
				log.Warn("Stopped processing batches", zap.Int("processed", start), zap.Error(err))
				break
			}
		}
		end := min(start+size, len(entries))

		var g errgroup.Group
		g.SetLimit(size)
		for i := start; i < end; i++ {
			g.Go(func() error {
				defer func() {
					if r := recover(); r != nil {
						log.Error("Recovered from panic while processing entry",
							zap.String("entry", entries[i].Label()), zap.Any("panic", r))
					}
				}()

				rec, err := o.processEntry(ctx, projectID, n, entries[i])
				if err != nil {
					log.Warn("Skipping entry", zap.String("entry", entries[i].Label()), zap.Error(err))
					return nil
				}
				results[i] = &rec
				return nil
			})
		}
		_ = g.Wait()
		log.Debug("Processed batch", zap.Int("from", start), zap.Int("to", end))
	}
	return results
}

func (o *Orchestrator) processEntry(ctx context.Context, projectID uint, n *normalize.Normalizer, raw release.RawEntry) (release.Record, error) {
	entry, err := n.Normalize(ctx, raw)
	if err != nil {
		return release.Record{}, err
	}
	translated := o.translator.Translate(ctx, entry.Content)
	return release.Record{
		ProjectID:   projectID,
		Version:     entry.Version,
		Date:        entry.Date,
		Content:     translated.Text,
		DownloadURL: entry.DownloadURL,
		Translated:  !translated.UsedFallback,
	}, nil
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
