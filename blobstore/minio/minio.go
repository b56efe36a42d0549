// Package minio implements blobstore.BlobStore for MinIO and other
// S3-compatible object stores.
package minio

import (
	"context"
	"io"
	"path"

	"github.com/minio/minio-go/v7"

	"github.com/hupe1980/hitmerge/blobstore"
)

// Store archives result blobs in a MinIO bucket.
type Store struct {
	client *minio.Client
	bucket string
	prefix string
}

// Option configures a Store.
type Option func(*Store)

// WithPrefix prepends a key prefix to every blob name (e.g. "results/").
func WithPrefix(prefix string) Option {
	return func(s *Store) {
		s.prefix = prefix
	}
}

// New creates a store on an existing MinIO client.
func New(client *minio.Client, bucket string, optFns ...Option) *Store {
	s := &Store{client: client, bucket: bucket}
	for _, fn := range optFns {
		fn(s)
	}
	return s
}

func (s *Store) key(name string) string {
	return path.Join(s.prefix, name)
}

// Put implements blobstore.BlobStore.
func (s *Store) Put(ctx context.Context, name string, r io.Reader, size int64) error {
	_, err := s.client.PutObject(ctx, s.bucket, s.key(name), r, size, minio.PutObjectOptions{})
	return err
}

// Open implements blobstore.BlobStore.
func (s *Store) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	key := s.key(name)

	// Stat first: GetObject defers existence errors to the first read.
	if _, err := s.client.StatObject(ctx, s.bucket, key, minio.StatObjectOptions{}); err != nil {
		errResp := minio.ToErrorResponse(err)
		if errResp.Code == "NoSuchKey" || errResp.Code == "NotFound" {
			return nil, blobstore.ErrNotFound
		}
		return nil, err
	}

	obj, err := s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, err
	}
	return obj, nil
}
