package writer

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Suhaibinator/SChangelog/internal/config"
	"github.com/Suhaibinator/SChangelog/internal/db"
	"github.com/Suhaibinator/SChangelog/internal/models"
	"github.com/Suhaibinator/SChangelog/internal/release"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func rec(version string) release.Record {
	return release.Record{ProjectID: 1, Version: version, Date: day(2025, 1, 1), Content: version}
}

func TestReconcile(t *testing.T) {
	existing := map[string]struct{}{"v1.0.0": {}}
	toInsert, toUpdate := Reconcile([]release.Record{rec("v2.0.0"), rec("v1.0.0"), rec("v2.0.0"), rec("v3.0.0")}, existing)

	assert.Equal(t, []release.Record{rec("v2.0.0"), rec("v3.0.0")}, toInsert)
	assert.Equal(t, []release.Record{rec("v1.0.0"), rec("v2.0.0")}, toUpdate)
	// caller's set is untouched
	assert.Len(t, existing, 1)
}

func TestReconcile_Empty(t *testing.T) {
	toInsert, toUpdate := Reconcile(nil, nil)
	assert.Empty(t, toInsert)
	assert.Empty(t, toUpdate)
}

type fakeStore struct {
	failInsert map[string]bool
	failUpdate map[string]bool
	failLatest bool
	inserted   []string
	updated    []string
	latest     []string
}

func (f *fakeStore) InsertVersion(ctx context.Context, r release.Record) error {
	if f.failInsert[r.Version] {
		return errors.New("duplicate key")
	}
	f.inserted = append(f.inserted, r.Version)
	return nil
}

func (f *fakeStore) UpdateVersion(ctx context.Context, r release.Record) error {
	if f.failUpdate[r.Version] {
		return errors.New("deadlock")
	}
	f.updated = append(f.updated, r.Version)
	return nil
}

func (f *fakeStore) UpdateLatest(ctx context.Context, projectID uint, version string, date time.Time) error {
	if f.failLatest {
		return errors.New("read only")
	}
	f.latest = append(f.latest, version)
	return nil
}

func TestPersist_SkipsFailedStatements(t *testing.T) {
	store := &fakeStore{failInsert: map[string]bool{"v2": true}, failUpdate: map[string]bool{"v9": true}}
	w := New(store, zap.NewNop())

	res := w.Persist(context.Background(),
		[]release.Record{rec("v1"), rec("v2"), rec("v3")},
		[]release.Record{rec("v8"), rec("v9")})

	assert.Equal(t, PersistResult{Attempted: 5, Inserted: 2, Updated: 1, Failed: 2}, res)
	assert.Equal(t, []string{"v1", "v3"}, store.inserted)
	assert.Equal(t, []string{"v8"}, store.updated)
}

func TestIsNewer(t *testing.T) {
	jan := day(2025, 1, 1)
	feb := day(2025, 2, 1)

	tests := []struct {
		name          string
		version       string
		date          time.Time
		cachedVersion string
		cachedDate    *time.Time
		want          bool
	}{
		{"empty cache", "v1.0.0", jan, "", nil, true},
		{"same version", "v1.0.0", feb, "v1.0.0", &jan, false},
		{"semver greater", "v1.10.0", jan, "v1.9.0", &feb, true},
		{"semver smaller", "v1.9.0", feb, "v1.10.0", &jan, false},
		{"semver prerelease", "v2.0.0-rc.1", feb, "v2.0.0", &jan, false},
		{"date later", "stable-2025", feb, "stable-2024", &jan, true},
		{"date earlier", "stable-2025", jan, "stable-2024", &feb, false},
		{"same date different version", "nightly-b", jan, "nightly-a", &jan, true},
		{"no cached date", "nightly-b", jan, "nightly-a", nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsNewer(tt.version, tt.date, tt.cachedVersion, tt.cachedDate))
		})
	}
}

func TestUpdateLatest(t *testing.T) {
	jan := day(2025, 1, 1)
	project := models.Project{ID: 1, Name: "p", LatestVersion: "v1.0.0", LatestUpdateTime: &jan}

	store := &fakeStore{}
	w := New(store, zap.NewNop())
	assert.False(t, w.UpdateLatest(context.Background(), project, rec("v0.9.0")))
	assert.True(t, w.UpdateLatest(context.Background(), project, rec("v1.1.0")))
	assert.Equal(t, []string{"v1.1.0"}, store.latest)

	failing := New(&fakeStore{failLatest: true}, zap.NewNop())
	assert.False(t, failing.UpdateLatest(context.Background(), project, rec("v2.0.0")))
}

func TestWriter_IdempotentUpsertSQLite(t *testing.T) {
	gormDB, err := db.Open(config.Config{DbType: "sqlite", SqlitePath: ":memory:"}, zap.NewNop())
	require.NoError(t, err)
	store := db.NewStore(gormDB)
	defer store.Close()
	ctx := context.Background()

	project, _, err := store.ResolveProject(ctx, "p", "")
	require.NoError(t, err)
	w := New(store, zap.NewNop())

	first := release.Record{ProjectID: project.ID, Version: "v1.0", Date: day(2025, 1, 1), Content: "one"}
	existing, err := store.ExistingVersions(ctx, project.ID)
	require.NoError(t, err)
	ins, upd := Reconcile([]release.Record{first}, existing)
	res := w.Persist(ctx, ins, upd)
	assert.Equal(t, 1, res.Inserted)

	second := first
	second.Content = "two"
	existing, err = store.ExistingVersions(ctx, project.ID)
	require.NoError(t, err)
	ins, upd = Reconcile([]release.Record{second, second}, existing)
	res = w.Persist(ctx, ins, upd)
	assert.Equal(t, PersistResult{Attempted: 2, Updated: 2}, res)

	var rows []models.Version
	require.NoError(t, store.DB().Where("project_id = ?", project.ID).Find(&rows).Error)
	require.Len(t, rows, 1)
	assert.Equal(t, "two", rows[0].Content)
}

func TestIsPrerelease(t *testing.T) {
	for _, v := range []string{"v15.1.0-canary.3", "v2.0.0-alpha.1", "v2.0.0-BETA.2", "v1.0.0-rc.1", "v3.13.0.a1", "v3.13.0.b2", "v3.13.0.rc1"} {
		assert.True(t, IsPrerelease(v), v)
	}
	for _, v := range []string{"v15.0.0", "v1.103", "v2.0.0-rc1", "v1.0.0-beta", "v1.0.alpha"} {
		assert.False(t, IsPrerelease(v), v)
	}
}
