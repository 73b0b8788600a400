package storage

import (
	"context"
	"fmt"
	"io"

	log "github.com/sirupsen/logrus"
	"gocloud.dev/blob"
	_ "gocloud.dev/blob/fileblob"
	_ "gocloud.dev/blob/gcsblob"
	_ "gocloud.dev/blob/memblob"
	_ "gocloud.dev/blob/s3blob"
	"gocloud.dev/gcerrors"
)

// Cache-Control values for published objects
const (
	Cacheable    = "max-age=86400"
	NonCacheable = "no-store"
)

const jsonContentType = "application/json"

// Store reads and writes JSON objects in a bucket
type Store struct {
	bucket *blob.Bucket
}

// Open opens the bucket behind url (s3://, gs://, file:// or mem://) scoped to prefix
func Open(ctx context.Context, url, prefix string) (*Store, error) {
	bucket, err := blob.OpenBucket(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("failed to open bucket %s: %w", url, err)
	}

	log.WithFields(log.Fields{
		"url":    url,
		"prefix": prefix,
	}).Info("Opened object store")

	return New(bucket, prefix), nil
}

// New wraps an already opened bucket
func New(bucket *blob.Bucket, prefix string) *Store {
	if prefix != "" {
		bucket = blob.PrefixedBucket(bucket, prefix)
	}
	return &Store{bucket: bucket}
}

// WriteJSON writes payload at key with the given Cache-Control
func (s *Store) WriteJSON(ctx context.Context, key string, payload []byte, cacheControl string) error {
	w, err := s.bucket.NewWriter(ctx, key, &blob.WriterOptions{
		ContentType:  jsonContentType,
		CacheControl: cacheControl,
	})
	if err != nil {
		return fmt.Errorf("failed to open writer for %s: %w", key, err)
	}

	if _, err := w.Write(payload); err != nil {
		w.Close()
		return fmt.Errorf("failed to write %s: %w", key, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to commit %s: %w", key, err)
	}
	return nil
}

// Read returns the object at key, or nil when it does not exist
func (s *Store) Read(ctx context.Context, key string) ([]byte, error) {
	r, err := s.bucket.NewReader(ctx, key, nil)
	if gcerrors.Code(err) == gcerrors.NotFound {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", key, err)
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", key, err)
	}
	return data, nil
}

// Attributes returns an object's metadata, or nil when it does not exist
func (s *Store) Attributes(ctx context.Context, key string) (*blob.Attributes, error) {
	attrs, err := s.bucket.Attributes(ctx, key)
	if gcerrors.Code(err) == gcerrors.NotFound {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to stat %s: %w", key, err)
	}
	return attrs, nil
}

// Close releases the bucket
func (s *Store) Close() error {
	return s.bucket.Close()
}
