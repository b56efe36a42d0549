// Package s3 implements blobstore.BlobStore on AWS S3. Uploads go
// through the SDK's multipart manager so large result reports stream
// without buffering in memory.
package s3

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/hupe1980/hitmerge/blobstore"
)

// Store archives result blobs in an S3 bucket.
type Store struct {
	client   *s3.Client
	uploader *manager.Uploader
	bucket   string
	prefix   string
}

// Option configures a Store.
type Option func(*Store)

// WithPrefix prepends a key prefix to every blob name.
func WithPrefix(prefix string) Option {
	return func(s *Store) {
		s.prefix = prefix
	}
}

// WithClient supplies a pre-built S3 client instead of loading the
// default AWS config.
func WithClient(client *s3.Client) Option {
	return func(s *Store) {
		s.client = client
	}
}

// New creates a store for bucket. Without WithClient it loads the
// default AWS configuration from the environment.
func New(ctx context.Context, bucket string, optFns ...Option) (*Store, error) {
	s := &Store{bucket: bucket}
	for _, fn := range optFns {
		fn(s)
	}

	if s.client == nil {
		cfg, err := awsconfig.LoadDefaultConfig(ctx)
		if err != nil {
			return nil, fmt.Errorf("s3: load aws config: %w", err)
		}
		s.client = s3.NewFromConfig(cfg)
	}
	s.uploader = manager.NewUploader(s.client)

	return s, nil
}

func (s *Store) key(name string) string {
	return path.Join(s.prefix, name)
}

// Put implements blobstore.BlobStore.
func (s *Store) Put(ctx context.Context, name string, r io.Reader, _ int64) error {
	_, err := s.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(name)),
		Body:   r,
	})
	return err
}

// Open implements blobstore.BlobStore.
func (s *Store) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(name)),
	})
	if err != nil {
		var noKey *types.NoSuchKey
		if errors.As(err, &noKey) {
			return nil, blobstore.ErrNotFound
		}
		return nil, err
	}
	return out.Body, nil
}
