// Package storage provides frame file persistence.
// It defines the Storage interface (port) and implementations for local disk
// and for local disk mirrored to S3.
package storage

import (
	"context"
	"io"
)

// Storage defines the interface for writing extracted frames and optionally
// mirroring a finished output folder to object storage.
type Storage interface {
	// EnsureDir creates dir and any missing parents. It is a no-op when the
	// directory already exists.
	EnsureDir(ctx context.Context, dir string) error

	// WriteFile writes data to path, replacing any existing file. A failed
	// write never leaves a partial file at path.
	WriteFile(ctx context.Context, path string, data io.Reader) error

	// UploadDir uploads the regular files directly inside dir under
	// keyPrefix and returns how many were uploaded.
	// Returns ErrS3NotConfigured if S3 is not configured.
	UploadDir(ctx context.Context, dir, keyPrefix string) (int, error)
}
