// Package storage keeps task artifacts and restoration metadata in a gocloud.dev/blob
// bucket. Key files are never stored.
package storage

import (
	"context"
	"fmt"
	"net/url"
	"os"

	"github.com/google/uuid"
	"gocloud.dev/blob"
	_ "gocloud.dev/blob/fileblob"
	_ "gocloud.dev/blob/memblob"
	"gocloud.dev/gcerrors"

	"github.com/allisson/piimask/internal/errors"
)

// ErrObjectNotFound indicates a missing artifact or metadata object.
var ErrObjectNotFound = errors.Wrap(errors.ErrNotFound, "stored object not found")

// Store is the object storage used by the task use case.
type Store interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
	Close() error
}

// BlobStore implements Store on a gocloud.dev bucket.
type BlobStore struct {
	bucket *blob.Bucket
}

// NewBlobStore wraps an open bucket.
func NewBlobStore(bucket *blob.Bucket) *BlobStore {
	return &BlobStore{bucket: bucket}
}

// OpenBlobStore opens a bucket URL such as file:///var/lib/piimask or mem://.
// Local directories are created when missing.
func OpenBlobStore(ctx context.Context, bucketURL string) (*BlobStore, error) {
	u, err := url.Parse(bucketURL)
	if err != nil {
		return nil, fmt.Errorf("invalid bucket url: %w", err)
	}
	if u.Scheme == "file" {
		if err := os.MkdirAll(u.Path, 0o750); err != nil {
			return nil, fmt.Errorf("failed to create bucket directory: %w", err)
		}
	}

	bucket, err := blob.OpenBucket(ctx, bucketURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open bucket: %w", err)
	}
	return NewBlobStore(bucket), nil
}

// Put writes data under key, replacing any previous object.
func (s *BlobStore) Put(ctx context.Context, key string, data []byte, contentType string) error {
	opts := &blob.WriterOptions{ContentType: contentType}
	if err := s.bucket.WriteAll(ctx, key, data, opts); err != nil {
		return errors.Wrapf(err, "failed to write %s", key)
	}
	return nil
}

// Get reads the object under key.
func (s *BlobStore) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := s.bucket.ReadAll(ctx, key)
	if err != nil {
		if gcerrors.Code(err) == gcerrors.NotFound {
			return nil, errors.Wrapf(ErrObjectNotFound, "%s", key)
		}
		return nil, errors.Wrapf(err, "failed to read %s", key)
	}
	return data, nil
}

// Delete removes the object under key. Missing objects are not an error.
func (s *BlobStore) Delete(ctx context.Context, key string) error {
	if err := s.bucket.Delete(ctx, key); err != nil && gcerrors.Code(err) != gcerrors.NotFound {
		return errors.Wrapf(err, "failed to delete %s", key)
	}
	return nil
}

// Close releases the bucket.
func (s *BlobStore) Close() error {
	return s.bucket.Close()
}

// ArtifactKey is where a task's masked artifact lives.
func ArtifactKey(taskID uuid.UUID, ext string) string {
	return fmt.Sprintf("tasks/%s/artifact%s", taskID, ext)
}

// MetadataKey is where a task's restoration record lives.
func MetadataKey(taskID uuid.UUID) string {
	return fmt.Sprintf("tasks/%s/metadata.json", taskID)
}
