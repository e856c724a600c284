// Package storage wraps the blob bucket used for object payloads.
// The bucket is addressed by URL, so local disk, in-memory, and s3
// backends are interchangeable through configuration.
package storage

import (
	"context"

	"gocloud.dev/blob"
	_ "gocloud.dev/blob/fileblob"
	_ "gocloud.dev/blob/memblob"
	_ "gocloud.dev/blob/s3blob"
	"gocloud.dev/gcerrors"

	apperrors "github.com/allisson/registry/internal/errors"
	"github.com/allisson/registry/internal/registry/domain"
)

// BlobStore stores object payloads in a gocloud.dev bucket.
type BlobStore struct {
	bucket *blob.Bucket
}

// NewBlobStore opens the bucket at the given URL.
func NewBlobStore(ctx context.Context, bucketURL string) (*BlobStore, error) {
	bucket, err := blob.OpenBucket(ctx, bucketURL)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to open blob bucket")
	}
	return &BlobStore{bucket: bucket}, nil
}

// NewBlobStoreFromBucket wraps an already opened bucket. Used by tests.
func NewBlobStoreFromBucket(bucket *blob.Bucket) *BlobStore {
	return &BlobStore{bucket: bucket}
}

// Write stores the payload under the given key.
func (b *BlobStore) Write(ctx context.Context, key string, payload []byte, contentType string) error {
	options := &blob.WriterOptions{ContentType: contentType}
	if err := b.bucket.WriteAll(ctx, key, payload, options); err != nil {
		return apperrors.Wrap(err, "failed to write blob")
	}
	return nil
}

// Read returns the payload stored under the given key.
func (b *BlobStore) Read(ctx context.Context, key string) ([]byte, error) {
	payload, err := b.bucket.ReadAll(ctx, key)
	if err != nil {
		if gcerrors.Code(err) == gcerrors.NotFound {
			return nil, domain.ErrObjectNotFound
		}
		return nil, apperrors.Wrap(err, "failed to read blob")
	}
	return payload, nil
}

// Delete removes the payload stored under the given key. Deleting a key
// that does not exist is not an error, the metadata row is authoritative.
func (b *BlobStore) Delete(ctx context.Context, key string) error {
	if err := b.bucket.Delete(ctx, key); err != nil {
		if gcerrors.Code(err) == gcerrors.NotFound {
			return nil
		}
		return apperrors.Wrap(err, "failed to delete blob")
	}
	return nil
}

// Close releases the underlying bucket.
func (b *BlobStore) Close() error {
	return b.bucket.Close()
}
