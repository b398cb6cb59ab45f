package archive

import (
	"archive/tar"
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTestTree(t *testing.T, root string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "ss", "alpha", "nested"), 0700))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "ss", "beta"), 0700))
	require.NoError(t, os.WriteFile(filepath.Join(root, "ss", "alpha", "data.json"), []byte(`{"a":1}`), 0600))
	require.NoError(t, os.WriteFile(filepath.Join(root, "ss", "alpha", "nested", "blob.bin"), bytes.Repeat([]byte{0xbe, 0xef}, 512), 0600))
	require.NoError(t, os.WriteFile(filepath.Join(root, "ss", "beta", "empty"), nil, 0600))
}

func TestCompressDecompressRoundTrip(t *testing.T) {
	root := t.TempDir()
	writeTestTree(t, root)

	archiveFile := filepath.Join(root, "ss.zip")
	compressChecksum, err := Compress(root, "ss", archiveFile)
	require.NoError(t, err)
	require.NotEmpty(t, compressChecksum)

	dest := t.TempDir()
	decompressChecksum, err := Decompress(archiveFile, dest)
	require.NoError(t, err)
	assert.Equal(t, compressChecksum, decompressChecksum)

	data, err := os.ReadFile(filepath.Join(dest, "ss", "alpha", "data.json"))
	require.NoError(t, err)
	assert.Equal(t, `{"a":1}`, string(data))

	data, err = os.ReadFile(filepath.Join(dest, "ss", "alpha", "nested", "blob.bin"))
	require.NoError(t, err)
	assert.Equal(t, bytes.Repeat([]byte{0xbe, 0xef}, 512), data)

	data, err = os.ReadFile(filepath.Join(dest, "ss", "beta", "empty"))
	require.NoError(t, err)
	assert.Empty(t, data)
}

func TestCompressEmptyDirectory(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "ss"), 0700))

	archiveFile := filepath.Join(root, "ss.zip")
	checksum, err := Compress(root, "ss", archiveFile)
	require.NoError(t, err)
	require.NotEmpty(t, checksum)

	dest := t.TempDir()
	restored, err := Decompress(archiveFile, dest)
	require.NoError(t, err)
	assert.Equal(t, checksum, restored)

	info, err := os.Stat(filepath.Join(dest, "ss"))
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestCompressMissingSource(t *testing.T) {
	root := t.TempDir()
	_, err := Compress(root, "ss", filepath.Join(root, "ss.zip"))
	require.Error(t, err)
}

func TestDecompressChecksumChangesOnCorruption(t *testing.T) {
	root := t.TempDir()
	writeTestTree(t, root)

	archiveFile := filepath.Join(root, "ss.zip")
	checksum, err := Compress(root, "ss", archiveFile)
	require.NoError(t, err)

	data, err := os.ReadFile(archiveFile)
	require.NoError(t, err)
	data[len(data)/2] ^= 0x01
	require.NoError(t, os.WriteFile(archiveFile, data, 0600))

	restored, restoreErr := Decompress(archiveFile, t.TempDir())
	if restoreErr == nil {
		assert.NotEqual(t, checksum, restored)
	}
}

func TestDecompressRejectsEscapingEntries(t *testing.T) {
	dir := t.TempDir()
	archiveFile := filepath.Join(dir, "evil.zip")

	out, err := os.Create(archiveFile)
	require.NoError(t, err)
	gz := gzip.NewWriter(out)
	tw := tar.NewWriter(gz)
	require.NoError(t, tw.WriteHeader(&tar.Header{
		Name:     "../evil",
		Typeflag: tar.TypeReg,
		Mode:     0600,
		Size:     4,
	}))
	_, err = tw.Write([]byte("evil"))
	require.NoError(t, err)
	require.NoError(t, tw.Close())
	require.NoError(t, gz.Close())
	require.NoError(t, out.Close())

	dest := filepath.Join(dir, "dest")
	require.NoError(t, os.MkdirAll(dest, 0700))
	_, err = Decompress(archiveFile, dest)
	require.Error(t, err)
	_, err = os.Stat(filepath.Join(dir, "evil"))
	assert.True(t, os.IsNotExist(err))
}

func TestDecompressMissingArchive(t *testing.T) {
	_, err := Decompress(filepath.Join(t.TempDir(), "missing.zip"), t.TempDir())
	require.Error(t, err)
}
