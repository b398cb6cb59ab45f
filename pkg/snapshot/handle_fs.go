package snapshot

import (
	"os"
	"path/filepath"
	"sort"
	"sync"

	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// ManifestName is the manifest file inside a filesystem handle
const ManifestName = "manifest.json"

// FSHandle is a directory backed snapshot handle. It implements both Writer
// and Reader; the manifest lives next to the snapshot files as
// manifest.json.
type FSHandle struct {
	dir      string
	mu       sync.RWMutex
	manifest map[string]Meta
}

// NewFSHandle creates the handle directory if needed and loads an existing
// manifest.
func NewFSHandle(dir string) (*FSHandle, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, errors.Wrap(err, "failed to create handle directory")
	}
	inst := &FSHandle{
		dir:      dir,
		manifest: map[string]Meta{},
	}
	if err := inst.loadManifest(); err != nil {
		return nil, err
	}
	return inst, nil
}

// OpenFSHandle opens an existing handle directory for reading.
func OpenFSHandle(dir string) (*FSHandle, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open handle directory")
	}
	if !info.IsDir() {
		return nil, errors.Errorf("handle path %q is not a directory", dir)
	}
	inst := &FSHandle{
		dir:      dir,
		manifest: map[string]Meta{},
	}
	if err := inst.loadManifest(); err != nil {
		return nil, err
	}
	return inst, nil
}

func (h *FSHandle) Path() string {
	return h.dir
}

func (h *FSHandle) AddFile(name string, meta Meta) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.manifest[name] = meta
	if err := h.writeManifest(); err != nil {
		delete(h.manifest, name)
		return false
	}
	return true
}

func (h *FSHandle) FileMeta(name string) (Meta, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	meta, ok := h.manifest[name]
	return meta, ok
}

// ListFiles returns the names of the files currently present in the handle
// directory.
func (h *FSHandle) ListFiles() []string {
	entries, err := os.ReadDir(h.dir)
	if err != nil {
		return nil
	}
	files := make([]string, 0, len(entries))
	for _, entry := range entries {
		files = append(files, entry.Name())
	}
	sort.Strings(files)
	return files
}

func (h *FSHandle) loadManifest() error {
	data, err := os.ReadFile(filepath.Join(h.dir, ManifestName))
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return errors.Wrap(err, "failed to read handle manifest")
	}
	if err := json.Unmarshal(data, &h.manifest); err != nil {
		return errors.Wrap(err, "failed to parse handle manifest")
	}
	return nil
}

func (h *FSHandle) writeManifest() error {
	data, err := json.Marshal(h.manifest)
	if err != nil {
		return errors.Wrap(err, "failed to serialize handle manifest")
	}
	return os.WriteFile(filepath.Join(h.dir, ManifestName), data, 0600)
}
