// Package storage persists session artifacts: raw PCM takes and
// transcript files produced by the session recorder. The FileStore
// interface abstracts the backend so archives can live on local disk
// during development and in an S3-compatible object store in
// deployment.
package storage

import (
	"context"
	"io"
)

// FileStore is a file-oriented archive backend.
//
// Paths are forward-slash separated and relative to the store root.
// Implementations must be safe for concurrent use.
type FileStore interface {
	// Read opens the named file for reading. The caller closes the
	// returned ReadCloser. A missing file yields an error wrapping
	// os.ErrNotExist.
	Read(ctx context.Context, path string) (io.ReadCloser, error)

	// Write opens the named file for writing, truncating any previous
	// content and creating parents as needed. The caller must close the
	// returned WriteCloser to flush.
	Write(ctx context.Context, path string) (io.WriteCloser, error)

	// Delete removes the named file. Deleting a missing file is not an
	// error.
	Delete(ctx context.Context, path string) error

	// Exists reports whether the named file exists.
	Exists(ctx context.Context, path string) (bool, error)

	// List returns the paths under prefix, in lexical order.
	List(ctx context.Context, prefix string) ([]string, error)
}
