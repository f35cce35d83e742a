// Package storage is the filesystem abstraction product photos and uploaded
// rate lists are written through.
//
// Two drivers are available:
//   - "local": local filesystem (default), served back on /storage
//   - "s3":    S3-compatible object storage (AWS S3, MinIO, R2, Spaces)
//
//	storage.Connect(ctx)
//	storage.Default().Put(ctx, "products/1/a.jpg", r, "image/jpeg")
//	url := storage.Default().URL("products/1/a.jpg")
package storage

import (
	"context"
	"errors"
	"io"
)

// ErrNotFound is returned by Get when path does not exist.
var ErrNotFound = errors.New("storage: file not found")

// Disk is the filesystem driver interface.
type Disk interface {
	// Put writes r to path, creating parent directories as needed.
	Put(ctx context.Context, path string, r io.Reader, contentType string) error

	// Get opens the file at path. Callers must close it.
	Get(ctx context.Context, path string) (io.ReadCloser, error)

	// Exists reports whether a file exists at path.
	Exists(ctx context.Context, path string) (bool, error)

	// Delete removes a file. Missing files are not an error.
	Delete(ctx context.Context, path string) error

	// Move renames src to dst.
	Move(ctx context.Context, src, dst string) error

	// Files lists every file below directory, recursively, as slash paths.
	Files(ctx context.Context, directory string) ([]string, error)

	// URL returns the public URL for path.
	URL(path string) string
}
