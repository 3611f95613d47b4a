package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"time"

	"github.com/Suhaibinator/SChangelog/internal/release"
)

// ErrSnapshotNotFound is returned by Load for an unknown run.
var ErrSnapshotNotFound = errors.New("snapshot not found")

// Snapshot is the archived form of what a source returned in one run.
type Snapshot struct {
	RunID     string             `json:"run_id"`
	Project   string             `json:"project"`
	FetchedAt time.Time          `json:"fetched_at"`
	Entries   []release.RawEntry `json:"entries"`
}

// SnapshotArchiver writes raw fetch results to a StorageProvider.
type SnapshotArchiver struct {
	provider StorageProvider
}

// NewSnapshotArchiver wraps a storage provider.
func NewSnapshotArchiver(provider StorageProvider) *SnapshotArchiver {
	return &SnapshotArchiver{provider: provider}
}

// SnapshotObjectName returns the object key of a run snapshot.
func SnapshotObjectName(projectSlug, runID string) string {
	return path.Join("snapshots", projectSlug, runID+".json")
}

// Archive uploads the entries of one run and returns the object name.
func (a *SnapshotArchiver) Archive(ctx context.Context, projectSlug string, snap Snapshot) (string, error) {
	data, err := json.Marshal(snap)
	if err != nil {
		return "", fmt.Errorf("failed to encode snapshot: %w", err)
	}
	objectName := SnapshotObjectName(projectSlug, snap.RunID)
	if err := a.provider.UploadFile(ctx, objectName, bytes.NewReader(data), int64(len(data)), "application/json"); err != nil {
		return "", err
	}
	return objectName, nil
}

// Load reads a previously archived snapshot back.
func (a *SnapshotArchiver) Load(ctx context.Context, projectSlug, runID string) (Snapshot, error) {
	objectName := SnapshotObjectName(projectSlug, runID)
	exists, err := a.provider.FileExists(ctx, objectName)
	if err != nil {
		return Snapshot{}, err
	}
	if !exists {
		return Snapshot{}, fmt.Errorf("%w: %s", ErrSnapshotNotFound, objectName)
	}

	reader, err := a.provider.DownloadFile(ctx, objectName)
	if err != nil {
		return Snapshot{}, err
	}
	defer reader.Close()

	var snap Snapshot
	if err := json.NewDecoder(reader).Decode(&snap); err != nil {
		return Snapshot{}, fmt.Errorf("failed to decode snapshot: %w", err)
	}
	return snap, nil
}

// Delete removes the snapshot of a run.
func (a *SnapshotArchiver) Delete(ctx context.Context, projectSlug, runID string) error {
	return a.provider.DeleteFile(ctx, SnapshotObjectName(projectSlug, runID))
}
