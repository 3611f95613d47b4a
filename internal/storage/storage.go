package storage

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/Suhaibinator/SChangelog/internal/config"
	"go.uber.org/zap"
)

// StorageProvider defines the interface for interacting with the snapshot storage backend.
// This allows swapping between Minio and the local filesystem.
type StorageProvider interface {
	// UploadFile uploads data from a reader to the storage backend.
	// size is the total size of the data, required by MinIO.
	UploadFile(ctx context.Context, objectName string, reader io.Reader, size int64, contentType string) error

	// DownloadFile retrieves a file. The returned io.ReadCloser must be closed by the caller.
	DownloadFile(ctx context.Context, objectName string) (io.ReadCloser, error)

	// DeleteFile removes a file from the storage backend.
	DeleteFile(ctx context.Context, objectName string) error

	// FileExists checks if a file exists in the storage backend.
	FileExists(ctx context.Context, objectName string) (bool, error)
}

// NewProvider initializes the storage provider selected by STORAGE_TYPE.
func NewProvider(ctx context.Context, cfg config.Config, log *zap.Logger) (StorageProvider, error) {
	storageType := strings.ToLower(cfg.StorageType)
	log.Info("Initializing storage provider", zap.String("type", storageType))

	var (
		provider StorageProvider
		err      error
	)
	switch storageType {
	case "minio":
		provider, err = NewMinioStorage(ctx, cfg, log)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize Minio storage: %w", err)
		}
	case "local":
		provider, err = NewLocalStorage(cfg, log)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize local storage: %w", err)
		}
	default:
		return nil, fmt.Errorf("invalid STORAGE_TYPE: %s. Must be 'minio' or 'local'", cfg.StorageType)
	}

	log.Info("Storage provider initialized", zap.String("type", storageType))
	return provider, nil
}
