package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocloud.dev/blob"
	_ "gocloud.dev/blob/memblob"
)

func testBucket(t *testing.T) *blob.Bucket {
	t.Helper()
	bucket, err := blob.OpenBucket(context.Background(), "mem://")
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = bucket.Close()
	})
	return bucket
}

func TestBlobSnapshotRoundTrip(t *testing.T) {
	ctx := context.Background()
	bucket := testBucket(t)
	require.NoError(t, bucket.WriteAll(ctx, "alpha", []byte("1"), nil))
	require.NoError(t, bucket.WriteAll(ctx, "nested/beta", []byte("2"), nil))

	store := NewBlobFromBucket("blob", bucket)
	assert.Equal(t, "blob", store.Name())

	path := filepath.Join(t.TempDir(), "blob")
	require.NoError(t, store.WriteSnapshot(path))

	data, err := os.ReadFile(filepath.Join(path, "alpha"))
	require.NoError(t, err)
	assert.Equal(t, []byte("1"), data)
	data, err = os.ReadFile(filepath.Join(path, "nested", "beta"))
	require.NoError(t, err)
	assert.Equal(t, []byte("2"), data)

	// mutate the bucket, then restore
	require.NoError(t, bucket.WriteAll(ctx, "stale", []byte("x"), nil))
	require.NoError(t, bucket.Delete(ctx, "alpha"))

	require.NoError(t, store.ReadSnapshot(path))

	data, err = bucket.ReadAll(ctx, "alpha")
	require.NoError(t, err)
	assert.Equal(t, []byte("1"), data)
	data, err = bucket.ReadAll(ctx, "nested/beta")
	require.NoError(t, err)
	assert.Equal(t, []byte("2"), data)

	exists, err := bucket.Exists(ctx, "stale")
	require.NoError(t, err)
	assert.False(t, exists, "stale objects must not survive a restore")
}

func TestBlobSnapshotEmptyBucket(t *testing.T) {
	ctx := context.Background()
	bucket := testBucket(t)
	store := NewBlobFromBucket("blob", bucket)

	path := filepath.Join(t.TempDir(), "blob")
	require.NoError(t, store.WriteSnapshot(path))

	require.NoError(t, bucket.WriteAll(ctx, "stale", []byte("x"), nil))
	require.NoError(t, store.ReadSnapshot(path))

	exists, err := bucket.Exists(ctx, "stale")
	require.NoError(t, err)
	assert.False(t, exists)
}
