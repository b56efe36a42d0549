// Package blobstore abstracts where final result reports are archived.
//
// The merge engine only needs write-then-read-back semantics: the master
// archives the drained, globally sorted hit report under a name, and
// tooling fetches it later. Implementations cover in-memory (tests),
// the local file system, MinIO and S3.
package blobstore

import (
	"context"
	"io"
	"os"
)

// ErrNotFound is returned when a blob does not exist.
//
// Implementations should return an error that satisfies
// `errors.Is(err, ErrNotFound)`. The default maps to `os.ErrNotExist`.
var ErrNotFound = os.ErrNotExist

// BlobStore is an abstraction for archiving and retrieving immutable
// result blobs.
type BlobStore interface {
	// Put stores size bytes from r under name, replacing any previous
	// blob of that name. A size of -1 means unknown.
	Put(ctx context.Context, name string, r io.Reader, size int64) error

	// Open opens a blob for reading.
	Open(ctx context.Context, name string) (io.ReadCloser, error)
}
