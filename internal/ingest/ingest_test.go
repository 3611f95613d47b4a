package ingest

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Suhaibinator/SChangelog/internal/config"
	"github.com/Suhaibinator/SChangelog/internal/db"
	"github.com/Suhaibinator/SChangelog/internal/models"
	"github.com/Suhaibinator/SChangelog/internal/release"
	"github.com/Suhaibinator/SChangelog/internal/source"
	"github.com/Suhaibinator/SChangelog/internal/storage"
	"github.com/Suhaibinator/SChangelog/internal/translate"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeSource struct {
	name    string
	entries []release.RawEntry
	err     error
	icon    string
}

func (f *fakeSource) Name() string { return f.name }

func (f *fakeSource) Fetch(ctx context.Context) ([]release.RawEntry, error) {
	return f.entries, f.err
}

type iconSource struct {
	fakeSource
}

func (i *iconSource) Icon(ctx context.Context) string { return i.icon }

// zhBackend "translates" by prefixing 译, and panics on entries containing PANIC.
type zhBackend struct {
	calls int32
}

func (b *zhBackend) Name() string { return "zh" }

func (b *zhBackend) Translate(ctx context.Context, text, source, target string) (string, error) {
	atomic.AddInt32(&b.calls, 1)
	if strings.Contains(text, "PANIC") {
		panic("backend exploded")
	}
	return "译 " + text, nil
}

func newStore(t *testing.T) *db.Store {
	gormDB, err := db.Open(config.Config{DbType: "sqlite", SqlitePath: ":memory:"}, zap.NewNop())
	require.NoError(t, err)
	store := db.NewStore(gormDB)
	t.Cleanup(func() { store.Close() })
	return store
}

func entry(t *testing.T, tag, body string, published time.Time) release.RawEntry {
	e, err := release.NewRawEntry(tag, tag, &published, body, "", "")
	require.NoError(t, err)
	return e
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func versions(t *testing.T, store *db.Store, projectID uint) []models.Version {
	var rows []models.Version
	require.NoError(t, store.DB().Where("project_id = ?", projectID).Order("id").Find(&rows).Error)
	return rows
}

func TestRun_EndToEnd(t *testing.T) {
	store := newStore(t)
	svc := translate.NewService(&zhBackend{}, translate.Config{Target: "zh"}, zap.NewNop())
	o := New(store, svc, Options{}, zap.NewNop())

	src := &fakeSource{name: "example", entries: []release.RawEntry{entry(t, "v2.0", "Big release", day(2025, 1, 1))}}
	summary := o.Run(context.Background(), Job{Config: config.SourceConfig{Name: "Example", Icon: "EX"}, Source: src})

	assert.Equal(t, release.StateCompleted, summary.State)
	assert.Equal(t, 1, summary.Fetched)
	assert.Equal(t, 1, summary.Inserted)
	assert.Equal(t, 0, summary.Skipped)

	project, err := store.FindProjectByName(context.Background(), "Example")
	require.NoError(t, err)
	assert.Equal(t, "EX", project.Icon)
	assert.Equal(t, "v2.0", project.LatestVersion)
	require.NotNil(t, project.LatestUpdateTime)
	assert.Equal(t, "2025-01-01", project.LatestUpdateTime.Format("2006-01-02"))

	rows := versions(t, store, project.ID)
	require.Len(t, rows, 1)
	assert.Equal(t, "v2.0", rows[0].Version)
	assert.Equal(t, "译 Big release", rows[0].Content)
}

func TestRun_IdempotentUpsert(t *testing.T) {
	store := newStore(t)
	o := New(store, nil, Options{}, zap.NewNop())
	job := func(body string) Job {
		return Job{
			Config: config.SourceConfig{Name: "p"},
			Source: &fakeSource{entries: []release.RawEntry{entry(t, "v1.0.0", body, day(2025, 3, 1))}},
		}
	}

	first := o.Run(context.Background(), job("first"))
	second := o.Run(context.Background(), job("second"))
	assert.Equal(t, 1, first.Inserted)
	assert.Equal(t, 0, second.Inserted)
	assert.Equal(t, 1, second.Updated)

	project, err := store.FindProjectByName(context.Background(), "p")
	require.NoError(t, err)
	assert.Equal(t, source.DefaultIcon, project.Icon)
	rows := versions(t, store, project.ID)
	require.Len(t, rows, 1)
	assert.Equal(t, "second", rows[0].Content)
}

func TestRun_NonNumericTagsStayDistinct(t *testing.T) {
	store := newStore(t)
	o := New(store, nil, Options{}, zap.NewNop())
	src := &fakeSource{entries: []release.RawEntry{
		entry(t, "jq-1.7", "notes for 1.7", day(2023, 9, 6)),
		entry(t, "jq-1.6", "notes for 1.6", day(2018, 11, 1)),
	}}

	summary := o.Run(context.Background(), Job{Config: config.SourceConfig{Name: "jq"}, Source: src})
	assert.Equal(t, 2, summary.Inserted)
	assert.Equal(t, 0, summary.Updated)

	project, err := store.FindProjectByName(context.Background(), "jq")
	require.NoError(t, err)
	assert.Equal(t, "vjq-1.7", project.LatestVersion)

	rows := versions(t, store, project.ID)
	require.Len(t, rows, 2)
	assert.Equal(t, "vjq-1.7", rows[0].Version)
	assert.Equal(t, "notes for 1.7", rows[0].Content)
	assert.Equal(t, "vjq-1.6", rows[1].Version)
	assert.Equal(t, "notes for 1.6", rows[1].Content)
}

func TestRun_KeepsSourceOrderAcrossBatches(t *testing.T) {
	store := newStore(t)
	o := New(store, nil, Options{BatchSize: 3, BatchDelay: 10 * time.Millisecond}, zap.NewNop())

	var entries []release.RawEntry
	for i := 12; i > 0; i-- {
		entries = append(entries, entry(t, fmt.Sprintf("v1.%d.0", i), "notes", day(2025, 1, i)))
	}
	start := time.Now()
	summary := o.Run(context.Background(), Job{Config: config.SourceConfig{Name: "p"}, Source: &fakeSource{entries: entries}})
	assert.GreaterOrEqual(t, time.Since(start), 30*time.Millisecond)
	assert.Equal(t, 12, summary.Inserted)

	project, err := store.FindProjectByName(context.Background(), "p")
	require.NoError(t, err)
	assert.Equal(t, "v1.12.0", project.LatestVersion)

	rows := versions(t, store, project.ID)
	require.Len(t, rows, 12)
	for i, row := range rows {
		assert.Equal(t, fmt.Sprintf("v1.%d.0", 12-i), row.Version)
	}
}

func TestRun_PanicBecomesSkippedEntry(t *testing.T) {
	store := newStore(t)
	svc := translate.NewService(&zhBackend{}, translate.Config{Target: "zh"}, zap.NewNop())
	o := New(store, svc, Options{}, zap.NewNop())

	src := &fakeSource{entries: []release.RawEntry{
		entry(t, "v3.0.0", "PANIC", day(2025, 3, 1)),
		entry(t, "v2.0.0", "fine", day(2025, 2, 1)),
	}}
	summary := o.Run(context.Background(), Job{Config: config.SourceConfig{Name: "p"}, Source: src})

	assert.Equal(t, release.StateCompleted, summary.State)
	assert.Equal(t, 1, summary.Skipped)
	assert.Equal(t, 1, summary.Processed)
	assert.Equal(t, 1, summary.Inserted)

	project, err := store.FindProjectByName(context.Background(), "p")
	require.NoError(t, err)
	assert.Equal(t, "v2.0.0", project.LatestVersion)
}

func TestRun_FetchFailureAborts(t *testing.T) {
	store := newStore(t)
	o := New(store, nil, Options{}, zap.NewNop())

	summary := o.Run(context.Background(), Job{
		Config: config.SourceConfig{Name: "p"},
		Source: &fakeSource{err: fmt.Errorf("%w: timeout", source.ErrUnreachable)},
	})
	assert.Equal(t, release.StateAborted, summary.State)
	assert.Contains(t, summary.Reason, "fetch")
	assert.Contains(t, summary.String(), "aborted")
}

type brokenStore struct {
	*db.Store
}

func (b brokenStore) FindProjectByName(ctx context.Context, name string) (models.Project, error) {
	return models.Project{}, errors.New("connection reset")
}

func TestRun_ResolveFailureAborts(t *testing.T) {
	o := New(brokenStore{newStore(t)}, nil, Options{}, zap.NewNop())
	summary := o.Run(context.Background(), Job{Config: config.SourceConfig{Name: "p"}, Source: &fakeSource{}})
	assert.Equal(t, release.StateAborted, summary.State)
	assert.Contains(t, summary.Reason, "resolve project")
}

func TestRun_IconFromSource(t *testing.T) {
	store := newStore(t)
	o := New(store, nil, Options{}, zap.NewNop())

	src := &iconSource{fakeSource{icon: "GO"}}
	o.Run(context.Background(), Job{Config: config.SourceConfig{Name: "golang/go"}, Source: src})

	project, err := store.FindProjectByName(context.Background(), "golang/go")
	require.NoError(t, err)
	assert.Equal(t, "GO", project.Icon)
	assert.Equal(t, "golang-go", project.Slug)
}

func TestRun_ArchivesSnapshot(t *testing.T) {
	store := newStore(t)
	local, err := storage.NewLocalStorage(config.Config{LocalStoragePath: t.TempDir()}, zap.NewNop())
	require.NoError(t, err)
	archiver := &recordingArchiver{inner: storage.NewSnapshotArchiver(local)}
	o := New(store, nil, Options{Archiver: archiver}, zap.NewNop())

	src := &fakeSource{entries: []release.RawEntry{entry(t, "v1.0.0", "notes", day(2025, 1, 1))}}
	o.Run(context.Background(), Job{Config: config.SourceConfig{Name: "My Project"}, Source: src})

	require.Len(t, archiver.names, 1)
	assert.True(t, strings.HasPrefix(archiver.names[0], "snapshots/my-project/"))
	exists, err := local.FileExists(context.Background(), archiver.names[0])
	require.NoError(t, err)
	assert.True(t, exists)
}

type recordingArchiver struct {
	inner *storage.SnapshotArchiver
	names []string
}

func (r *recordingArchiver) Archive(ctx context.Context, slug string, snap storage.Snapshot) (string, error) {
	name, err := r.inner.Archive(ctx, slug, snap)
	if err == nil {
		r.names = append(r.names, name)
	}
	return name, err
}

func TestRunAll_IsolatesProjects(t *testing.T) {
	store := newStore(t)
	o := New(store, nil, Options{}, zap.NewNop())

	summaries := o.RunAll(context.Background(), []Job{
		{Config: config.SourceConfig{Name: "broken"}, Source: &fakeSource{err: source.ErrUnreachable}},
		{Config: config.SourceConfig{Name: "ok"}, Source: &fakeSource{entries: []release.RawEntry{entry(t, "v1.0.0", "x", day(2025, 1, 1))}}},
	})
	require.Len(t, summaries, 2)
	assert.Equal(t, release.StateAborted, summaries[0].State)
	assert.Equal(t, release.StateCompleted, summaries[1].State)
	assert.Equal(t, 1, summaries[1].Inserted)
}

func TestSchedule(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var runs int32
	err := Schedule(ctx, 5*time.Millisecond, func(ctx context.Context) {
		if atomic.AddInt32(&runs, 1) == 3 {
			cancel()
		}
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, int32(3), atomic.LoadInt32(&runs))

	assert.Error(t, Schedule(context.Background(), 0, func(context.Context) {}))
}

func TestBuildJobs(t *testing.T) {
	cfg := config.Config{
		BatchSize: 7,
		Sources: []config.SourceConfig{
			{Name: "code", Kind: "rss", FeedURL: "https://example.com/feed"},
			{Name: "next", Kind: "github", Owner: "vercel", Repo: "next.js", BatchSize: 3},
		},
	}

	jobs, err := BuildJobs(cfg, nil, source.Options{})
	require.NoError(t, err)
	require.Len(t, jobs, 2)
	assert.Equal(t, 7, jobs[0].Config.BatchSize)
	assert.Equal(t, 3, jobs[1].Config.BatchSize)

	jobs, err = BuildJobs(cfg, []string{"next"}, source.Options{})
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, "next", jobs[0].Source.Name())

	_, err = BuildJobs(cfg, []string{"missing"}, source.Options{})
	assert.ErrorContains(t, err, "missing")
}
