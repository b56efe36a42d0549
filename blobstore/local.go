package blobstore

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Local implements BlobStore on the local file system. Writes go
// through a temp file and rename, so readers never observe a partially
// written report.
type Local struct {
	root string
}

// NewLocal creates a store rooted at the given directory, creating it
// if needed.
func NewLocal(root string) (*Local, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("blobstore: create root %s: %w", root, err)
	}
	return &Local{root: root}, nil
}

// Put implements BlobStore.
func (s *Local) Put(_ context.Context, name string, r io.Reader, _ int64) error {
	dst := filepath.Join(s.root, name)
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(dst), ".blob-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), dst)
}

// Open implements BlobStore.
func (s *Local) Open(_ context.Context, name string) (io.ReadCloser, error) {
	f, err := os.Open(filepath.Join(s.root, name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return f, nil
}
