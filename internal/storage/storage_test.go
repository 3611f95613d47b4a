package storage

import (
	"context"
	"io"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/Suhaibinator/SChangelog/internal/config"
	"github.com/Suhaibinator/SChangelog/internal/release"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newLocal(t *testing.T) *LocalStorage {
	t.Helper()
	local, err := NewLocalStorage(config.Config{LocalStoragePath: t.TempDir()}, zap.NewNop())
	require.NoError(t, err)
	return local
}

func TestLocalStorage_RoundTrip(t *testing.T) {
	local := newLocal(t)
	ctx := context.Background()

	exists, err := local.FileExists(ctx, "a/b.txt")
	require.NoError(t, err)
	assert.False(t, exists)

	require.NoError(t, local.UploadFile(ctx, "a/b.txt", strings.NewReader("hello"), 5, "text/plain"))

	exists, err = local.FileExists(ctx, "a/b.txt")
	require.NoError(t, err)
	assert.True(t, exists)

	rc, err := local.DownloadFile(ctx, "a/b.txt")
	require.NoError(t, err)
	data, err := io.ReadAll(rc)
	rc.Close()
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))

	require.NoError(t, local.DeleteFile(ctx, "a/b.txt"))
	require.NoError(t, local.DeleteFile(ctx, "a/b.txt"))

	_, err = local.DownloadFile(ctx, "a/b.txt")
	assert.ErrorContains(t, err, "not found")
}

func TestLocalStorage_RejectsBadNames(t *testing.T) {
	local := newLocal(t)
	ctx := context.Background()

	for _, name := range []string{"", ".", "/etc/passwd", "../escape.txt", filepath.Join("..", "..", "x")} {
		err := local.UploadFile(ctx, name, strings.NewReader("x"), 1, "")
		assert.Error(t, err, name)
	}
}

func TestNewProvider(t *testing.T) {
	ctx := context.Background()

	p, err := NewProvider(ctx, config.Config{StorageType: "LOCAL", LocalStoragePath: t.TempDir()}, zap.NewNop())
	require.NoError(t, err)
	assert.IsType(t, &LocalStorage{}, p)

	_, err = NewProvider(ctx, config.Config{StorageType: "s3"}, zap.NewNop())
	assert.ErrorContains(t, err, "invalid STORAGE_TYPE")

	_, err = NewProvider(ctx, config.Config{StorageType: "local"}, zap.NewNop())
	assert.ErrorContains(t, err, "path cannot be empty")
}

func TestSnapshotArchiver(t *testing.T) {
	local := newLocal(t)
	archiver := NewSnapshotArchiver(local)
	ctx := context.Background()

	published := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	entry, err := release.NewRawEntry("v2.0", "v2.0", &published, "body", "https://example.com", "")
	require.NoError(t, err)

	snap := Snapshot{RunID: "run-1", Project: "Example", FetchedAt: published, Entries: []release.RawEntry{entry}}
	name, err := archiver.Archive(ctx, "example", snap)
	require.NoError(t, err)
	assert.Equal(t, "snapshots/example/run-1.json", name)

	exists, err := local.FileExists(ctx, name)
	require.NoError(t, err)
	assert.True(t, exists)

	loaded, err := archiver.Load(ctx, "example", "run-1")
	require.NoError(t, err)
	assert.Equal(t, "Example", loaded.Project)
	require.Len(t, loaded.Entries, 1)
	assert.Equal(t, "v2.0", loaded.Entries[0].Tag)
	assert.True(t, published.Equal(*loaded.Entries[0].Published))
}

func TestSnapshotArchiver_MissingAndDelete(t *testing.T) {
	local := newLocal(t)
	archiver := NewSnapshotArchiver(local)
	ctx := context.Background()

	_, err := archiver.Load(ctx, "example", "nope")
	assert.ErrorIs(t, err, ErrSnapshotNotFound)

	_, err = archiver.Archive(ctx, "example", Snapshot{RunID: "run-2", Project: "Example"})
	require.NoError(t, err)
	require.NoError(t, archiver.Delete(ctx, "example", "run-2"))

	_, err = archiver.Load(ctx, "example", "run-2")
	assert.ErrorIs(t, err, ErrSnapshotNotFound)

	// deleting twice is fine
	assert.NoError(t, archiver.Delete(ctx, "example", "run-2"))
}
