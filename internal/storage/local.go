package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// ErrS3NotConfigured is returned when S3 operations are attempted
// without proper configuration.
var ErrS3NotConfigured = errors.New("S3 storage is not configured")

const (
	dirPerm  = 0750
	filePerm = 0640
)

// Verify interface implementation at compile time.
var _ Storage = (*LocalStorage)(nil)

// LocalStorage implements the Storage interface using local disk.
// It does not support S3 operations unless wrapped with S3Storage.
type LocalStorage struct{}

// NewLocalStorage creates a new LocalStorage instance.
func NewLocalStorage() *LocalStorage {
	return &LocalStorage{}
}

// EnsureDir creates dir, including parents, if it does not exist.
func (s *LocalStorage) EnsureDir(ctx context.Context, dir string) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("context cancelled: %w", ctx.Err())
	default:
	}

	if err := os.MkdirAll(dir, dirPerm); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}
	return nil
}

// WriteFile writes data to a temporary file next to path and renames it into
// place once fully written.
func (s *LocalStorage) WriteFile(ctx context.Context, path string, data io.Reader) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("context cancelled: %w", ctx.Err())
	default:
	}

	f, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+"_*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := f.Name()

	if _, err := io.Copy(f, data); err != nil {
		_ = f.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("write temp file: %w", err)
	}

	if err := f.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("close temp file: %w", err)
	}

	if err := os.Chmod(tmpName, filePerm); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("chmod temp file: %w", err)
	}

	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("rename %s: %w", path, err)
	}

	return nil
}

// UploadDir is not supported by LocalStorage and returns ErrS3NotConfigured.
func (s *LocalStorage) UploadDir(_ context.Context, _, _ string) (int, error) {
	return 0, ErrS3NotConfigured
}

// listFiles returns the regular files directly inside dir, sorted by name.
func listFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read directory: %w", err)
	}

	var files []string
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		files = append(files, filepath.Join(dir, entry.Name()))
	}
	return files, nil
}
