package store

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"gocloud.dev/blob"

	// Import GCS driver for production use
	_ "gocloud.dev/blob/gcsblob"
)

// Blob adapts a gocloud.dev blob bucket as a backend store. A snapshot
// materializes every object under the store's staging subdirectory, one file
// per key; a restore replaces the whole bucket content with the snapshot.
// This supports GCS, S3, Azure, and other cloud storage providers.
type Blob struct {
	name   string
	bucket *blob.Bucket
}

// ------------------------------------------------------------------------------------------------
// ~ Constructor
// ------------------------------------------------------------------------------------------------

// NewBlob creates a new bucket backed store.
// bucketURL should be in the format "gs://bucket-name" for GCS.
func NewBlob(ctx context.Context, name, bucketURL string) (*Blob, error) {
	bucket, err := blob.OpenBucket(ctx, bucketURL)
	if err != nil {
		return nil, err
	}
	return &Blob{
		name:   name,
		bucket: bucket,
	}, nil
}

// NewBlobFromBucket creates a new bucket backed store from an existing
// bucket. This is useful for testing with memblob.
func NewBlobFromBucket(name string, bucket *blob.Bucket) *Blob {
	return &Blob{
		name:   name,
		bucket: bucket,
	}
}

// ------------------------------------------------------------------------------------------------
// ~ Public methods
// ------------------------------------------------------------------------------------------------

func (s *Blob) Name() string {
	return s.name
}

// WriteSnapshot copies every bucket object into the given directory.
func (s *Blob) WriteSnapshot(path string) error {
	ctx := context.Background()
	if err := os.MkdirAll(path, 0700); err != nil {
		return errors.Wrap(err, "failed to create store snapshot directory")
	}

	keys, err := s.keys(ctx)
	if err != nil {
		return err
	}
	for _, key := range keys {
		data, err := s.bucket.ReadAll(ctx, key)
		if err != nil {
			return errors.Wrapf(err, "failed to read object %q", key)
		}
		target, err := s.keyTarget(path, key)
		if err != nil {
			return err
		}
		if err := os.MkdirAll(filepath.Dir(target), 0700); err != nil {
			return errors.Wrap(err, "failed to create object directory")
		}
		if err := os.WriteFile(target, data, 0600); err != nil {
			return errors.Wrapf(err, "failed to write object %q", key)
		}
	}
	return nil
}

// ReadSnapshot replaces the bucket content with the files in the given
// directory.
func (s *Blob) ReadSnapshot(path string) error {
	ctx := context.Background()

	// stale objects must not survive a restore
	keys, err := s.keys(ctx)
	if err != nil {
		return err
	}
	for _, key := range keys {
		if err := s.bucket.Delete(ctx, key); err != nil {
			return errors.Wrapf(err, "failed to delete object %q", key)
		}
	}

	return filepath.Walk(path, func(file string, info os.FileInfo, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if info.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(path, file)
		if err != nil {
			return err
		}
		data, err := os.ReadFile(file)
		if err != nil {
			return errors.Wrapf(err, "failed to read snapshot file %q", rel)
		}
		key := filepath.ToSlash(rel)
		if err := s.bucket.WriteAll(ctx, key, data, nil); err != nil {
			return errors.Wrapf(err, "failed to write object %q", key)
		}
		return nil
	})
}

func (s *Blob) Close() error {
	return s.bucket.Close()
}

// ------------------------------------------------------------------------------------------------
// ~ Private methods
// ------------------------------------------------------------------------------------------------

func (s *Blob) keys(ctx context.Context) ([]string, error) {
	iter := s.bucket.List(nil)
	var keys []string
	for {
		obj, err := iter.Next(ctx)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrap(err, "failed to list bucket")
		}
		keys = append(keys, obj.Key)
	}
	return keys, nil
}

func (s *Blob) keyTarget(path, key string) (string, error) {
	target := filepath.Join(path, filepath.FromSlash(key))
	if !strings.HasPrefix(target, filepath.Clean(path)+string(os.PathSeparator)) {
		return "", errors.Errorf("object key %q escapes snapshot directory", key)
	}
	return target, nil
}
