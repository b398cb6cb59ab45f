package archive

import (
	"archive/tar"
	"hash/crc64"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
)

// the checksum covers the archive bytes on disk, not the uncompressed payload
var crcTable = crc64.MakeTable(crc64.ECMA)

// Compress packs <root>/<dir> into a gzipped tar archive at outFile and
// returns the CRC-64 checksum of the written archive bytes as lowercase hex.
// Entry names inside the archive are relative to root, so the archive
// re-creates <dir>/... on extraction.
func Compress(root, dir, outFile string) (checksum string, err error) {
	source := filepath.Join(root, dir)
	info, err := os.Stat(source)
	if err != nil {
		return "", errors.Wrap(err, "failed to stat compression source")
	}
	if !info.IsDir() {
		return "", errors.Errorf("compression source %q is not a directory", source)
	}

	out, err := os.Create(outFile)
	if err != nil {
		return "", errors.Wrap(err, "failed to create archive file")
	}

	crc := crc64.New(crcTable)
	gz := gzip.NewWriter(io.MultiWriter(out, crc))
	tw := tar.NewWriter(gz)

	defer func() {
		err = multierr.Combine(err, tw.Close(), gz.Close(), out.Close())
		if err == nil {
			checksum = strconv.FormatUint(crc.Sum64(), 16)
		}
	}()

	err = filepath.Walk(source, func(path string, info os.FileInfo, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			return relErr
		}
		header, headerErr := tar.FileInfoHeader(info, "")
		if headerErr != nil {
			return headerErr
		}
		header.Name = filepath.ToSlash(rel)
		if info.IsDir() {
			header.Name += "/"
		}
		if writeErr := tw.WriteHeader(header); writeErr != nil {
			return writeErr
		}
		if info.IsDir() || !info.Mode().IsRegular() {
			return nil
		}
		file, openErr := os.Open(path)
		if openErr != nil {
			return openErr
		}
		_, copyErr := io.Copy(tw, file)
		return multierr.Combine(copyErr, file.Close())
	})
	if err != nil {
		err = errors.Wrap(err, "failed to compress directory")
	}
	return checksum, err
}

// Decompress extracts the gzipped tar archive at srcFile into destDir and
// returns the CRC-64 checksum of the archive bytes as read, as lowercase hex.
// Entries resolving outside destDir are rejected.
func Decompress(srcFile, destDir string) (checksum string, err error) {
	in, err := os.Open(srcFile)
	if err != nil {
		return "", errors.Wrap(err, "failed to open archive file")
	}
	defer func() {
		err = multierr.Append(err, in.Close())
	}()

	crc := crc64.New(crcTable)
	gz, err := gzip.NewReader(io.TeeReader(in, crc))
	if err != nil {
		return "", errors.Wrap(err, "failed to read archive header")
	}
	defer func() {
		err = multierr.Append(err, gz.Close())
	}()

	tr := tar.NewReader(gz)
	for {
		header, nextErr := tr.Next()
		if nextErr == io.EOF {
			break
		}
		if nextErr != nil {
			return "", errors.Wrap(nextErr, "failed to read archive entry")
		}
		target, targetErr := entryTarget(destDir, header.Name)
		if targetErr != nil {
			return "", targetErr
		}
		switch header.Typeflag {
		case tar.TypeDir:
			if mkdirErr := os.MkdirAll(target, header.FileInfo().Mode().Perm()); mkdirErr != nil {
				return "", errors.Wrap(mkdirErr, "failed to create directory")
			}
		case tar.TypeReg:
			if extractErr := extractFile(tr, target, header.FileInfo().Mode().Perm()); extractErr != nil {
				return "", extractErr
			}
		default:
			return "", errors.Errorf("unsupported archive entry type %q for %q", header.Typeflag, header.Name)
		}
	}

	// drain trailing gzip bytes so the checksum covers the whole file
	if _, drainErr := io.Copy(io.Discard, io.TeeReader(in, crc)); drainErr != nil {
		return "", errors.Wrap(drainErr, "failed to drain archive")
	}

	return strconv.FormatUint(crc.Sum64(), 16), nil
}

func entryTarget(destDir, name string) (string, error) {
	target := filepath.Join(destDir, filepath.FromSlash(name))
	if target != filepath.Clean(destDir) &&
		!strings.HasPrefix(target, filepath.Clean(destDir)+string(os.PathSeparator)) {
		return "", errors.Errorf("archive entry %q escapes destination directory", name)
	}
	return target, nil
}

func extractFile(r io.Reader, target string, mode os.FileMode) (err error) {
	if mkdirErr := os.MkdirAll(filepath.Dir(target), 0700); mkdirErr != nil {
		return errors.Wrap(mkdirErr, "failed to create parent directory")
	}
	file, err := os.OpenFile(target, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, mode)
	if err != nil {
		return errors.Wrap(err, "failed to create file")
	}
	defer func() {
		err = multierr.Append(err, file.Close())
	}()
	if _, copyErr := io.Copy(file, r); copyErr != nil {
		return errors.Wrap(copyErr, "failed to extract file")
	}
	return nil
}
