package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/Suhaibinator/SChangelog/internal/config"
	"go.uber.org/zap"
)

// LocalStorage keeps snapshots under a directory on the local filesystem.
type LocalStorage struct {
	basePath string
}

// NewLocalStorage creates the base directory if needed.
func NewLocalStorage(cfg config.Config, log *zap.Logger) (*LocalStorage, error) {
	basePath := cfg.LocalStoragePath
	if basePath == "" {
		return nil, fmt.Errorf("local storage path cannot be empty")
	}
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create local storage directory: %w", err)
	}
	log.Info("Local storage initialized", zap.String("path", basePath))
	return &LocalStorage{basePath: basePath}, nil
}

// getFullPath resolves objectName inside basePath, rejecting traversal and absolute
// names, and creates the parent directories.
func (l *LocalStorage) getFullPath(objectName string) (string, error) {
	clean := filepath.Clean(objectName)
	if clean == "." || clean == "/" || clean == "" {
		return "", fmt.Errorf("invalid object name: %s", objectName)
	}
	if filepath.IsAbs(clean) {
		return "", fmt.Errorf("object name cannot be an absolute path: %s", objectName)
	}
	if clean == ".." || len(clean) > 2 && clean[:3] == ".."+string(os.PathSeparator) {
		return "", fmt.Errorf("object name escapes the storage directory: %s", objectName)
	}

	fullPath := filepath.Join(l.basePath, clean)
	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return "", fmt.Errorf("failed to create directory structure for %s: %w", fullPath, err)
	}
	return fullPath, nil
}

// UploadFile writes data to a local file. size and contentType are ignored.
func (l *LocalStorage) UploadFile(ctx context.Context, objectName string, reader io.Reader, size int64, contentType string) error {
	fullPath, err := l.getFullPath(objectName)
	if err != nil {
		return err
	}

	file, err := os.Create(fullPath)
	if err != nil {
		return fmt.Errorf("failed to create local file %s: %w", fullPath, err)
	}
	defer file.Close()

	if _, err := io.Copy(file, reader); err != nil {
		_ = os.Remove(fullPath)
		return fmt.Errorf("failed to write data to local file %s: %w", fullPath, err)
	}
	return nil
}

// DownloadFile opens a local file. The caller closes it.
func (l *LocalStorage) DownloadFile(ctx context.Context, objectName string) (io.ReadCloser, error) {
	fullPath, err := l.getFullPath(objectName)
	if err != nil {
		return nil, err
	}
	file, err := os.Open(fullPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("object %s not found locally: %w", objectName, err)
		}
		return nil, fmt.Errorf("failed to open local file %s: %w", fullPath, err)
	}
	return file, nil
}

// DeleteFile removes a local file. Missing files are not an error.
func (l *LocalStorage) DeleteFile(ctx context.Context, objectName string) error {
	fullPath, err := l.getFullPath(objectName)
	if err != nil {
		return err
	}
	if err := os.Remove(fullPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove local file %s: %w", fullPath, err)
	}
	return nil
}

// FileExists checks if a local file exists.
func (l *LocalStorage) FileExists(ctx context.Context, objectName string) (bool, error) {
	fullPath, err := l.getFullPath(objectName)
	if err != nil {
		return false, err
	}
	_, err = os.Stat(fullPath)
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, fmt.Errorf("failed to stat local file %s: %w", fullPath, err)
}
