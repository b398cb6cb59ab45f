package snapshot

import (
	"os"
	"path/filepath"
	"sync"

	"github.com/pkg/errors"
	"github.com/storewise/snapvault/pkg/archive"
	"github.com/storewise/snapvault/pkg/metrics"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	// StagingDir is the uncompressed staging directory inside a handle
	StagingDir = "ss"
	// ArchiveName is the fixed name of the packaged snapshot archive
	ArchiveName = "ss.zip"
)

type (
	// Coordinator materializes and restores snapshots across a fixed set of
	// backend stores. It owns the staging layout inside a handle and is the
	// only component talking to the handle and the completion callback.
	Coordinator struct {
		l         *zap.Logger
		stores    []Store
		removeAll func(path string) error
	}
	CoordinatorOption func(*Coordinator)
)

// ------------------------------------------------------------------------------------------------
// ~ Constructor
// ------------------------------------------------------------------------------------------------

func NewCoordinator(l *zap.Logger, stores []Store, opts ...CoordinatorOption) (*Coordinator, error) {
	inst := &Coordinator{
		l:         l.Named("coordinator"),
		stores:    stores,
		removeAll: os.RemoveAll,
	}

	for _, opt := range opts {
		opt(inst)
	}

	names := map[string]bool{}
	for _, store := range stores {
		if store.Name() == "" {
			return nil, errors.New("store name must not be empty")
		}
		if names[store.Name()] {
			return nil, errors.Errorf("duplicate store name %q", store.Name())
		}
		names[store.Name()] = true
	}

	return inst, nil
}

// ------------------------------------------------------------------------------------------------
// ~ Public methods
// ------------------------------------------------------------------------------------------------

// Save materializes a snapshot into the given handle. It returns once the
// work is scheduled; the terminal outcome is signaled through done, which is
// invoked exactly once. All stores write into their own subdirectory of
// <root>/ss first, then the compression stage runs on the executor and
// packs the staging directory into <root>/ss.zip, registering the archive
// with its checksum in the handle manifest.
func (c *Coordinator) Save(w Writer, done Done, executor Executor) {
	done = onceDone(done)
	root := w.Path()
	staging := filepath.Join(root, StagingDir)

	go func() {
		defer c.recoverSave(w, done)
		if err := c.writeStores(staging); err != nil {
			c.failSave(w, done, err)
			return
		}
		executor.Execute(func() {
			defer c.recoverSave(w, done)
			c.compress(w, done)
		})
	}()
}

// Load restores all stores from the snapshot in the given handle. It returns
// true only on a fully verified restoration, including the removal of the
// decompressed staging directory.
func (c *Coordinator) Load(r Reader) bool {
	root := r.Path()
	meta, ok := r.FileMeta(ArchiveName)
	if !ok {
		c.l.Error("cannot find snapshot archive in manifest", zap.String("path", root))
		metrics.SnapshotLoadFailedCounter.WithLabelValues().Inc()
		return false
	}
	if err := c.restore(r, meta); err != nil {
		c.l.Error("failed to load snapshot",
			zap.String("path", root),
			zap.Strings("files", r.ListFiles()),
			zap.Error(err),
		)
		metrics.SnapshotLoadFailedCounter.WithLabelValues().Inc()
		return false
	}
	metrics.SnapshotLoadCompletedCounter.WithLabelValues().Inc()
	return true
}

// ------------------------------------------------------------------------------------------------
// ~ Private methods
// ------------------------------------------------------------------------------------------------

// writeStores delegates the state of every store into its subdirectory of
// the staging directory. Stores write concurrently; the compression stage
// must not start before all of them have finished.
func (c *Coordinator) writeStores(staging string) error {
	var g errgroup.Group
	for _, store := range c.stores {
		g.Go(func() error {
			path := filepath.Join(staging, store.Name())
			if err := store.WriteSnapshot(path); err != nil {
				return errors.Wrapf(err, "store %q failed to write snapshot", store.Name())
			}
			return nil
		})
	}
	return g.Wait()
}

func (c *Coordinator) compress(w Writer, done Done) {
	root := w.Path()
	outFile := filepath.Join(root, ArchiveName)

	checksum, err := archive.Compress(root, StagingDir, outFile)
	if err != nil {
		c.l.Error("failed to compress snapshot",
			zap.String("path", root),
			zap.Strings("files", w.ListFiles()),
			zap.Error(err),
		)
		metrics.SnapshotSaveFailedCounter.WithLabelValues().Inc()
		done(IOErrorf("failed to compress snapshot at %s, error is %s", root, err))
		return
	}

	if info, statErr := os.Stat(outFile); statErr == nil {
		metrics.ArchiveSizeGauge.WithLabelValues().Set(float64(info.Size()))
	}

	if !w.AddFile(ArchiveName, Meta{Checksum: checksum}) {
		c.l.Error("failed to add snapshot archive to manifest",
			zap.String("path", root),
			zap.Strings("files", w.ListFiles()),
		)
		metrics.SnapshotSaveFailedCounter.WithLabelValues().Inc()
		done(IOErrorf("failed to add snapshot file: %s", root))
		return
	}

	metrics.SnapshotSaveCompletedCounter.WithLabelValues().Inc()
	done(OK())
}

func (c *Coordinator) restore(r Reader, meta Meta) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = errors.Errorf("panic while loading snapshot: %v", rec)
		}
	}()

	root := r.Path()
	staging := filepath.Join(root, StagingDir)

	checksum, err := archive.Decompress(filepath.Join(root, ArchiveName), root)
	if err != nil {
		return errors.Wrap(err, "failed to decompress snapshot archive")
	}

	if meta.Checksum == "" {
		c.l.Debug("snapshot archive carries no checksum, skipping verification", zap.String("path", root))
	} else if meta.Checksum != checksum {
		return errors.Errorf("snapshot checksum mismatch: recorded %s, computed %s", meta.Checksum, checksum)
	}

	for _, store := range c.stores {
		path := filepath.Join(staging, store.Name())
		if err := store.ReadSnapshot(path); err != nil {
			return errors.Wrapf(err, "store %q failed to read snapshot", store.Name())
		}
	}

	// A leftover staging directory could corrupt the next snapshot
	// operation, so a failed removal fails the whole load even though the
	// stores have already been restored.
	if err := c.removeAll(staging); err != nil {
		return errors.Wrap(err, "failed to remove staging directory")
	}

	return nil
}

func (c *Coordinator) failSave(w Writer, done Done, err error) {
	root := w.Path()
	c.l.Error("failed to save snapshot",
		zap.String("path", root),
		zap.Strings("files", w.ListFiles()),
		zap.Error(err),
	)
	metrics.SnapshotSaveFailedCounter.WithLabelValues().Inc()
	done(IOErrorf("failed to save snapshot at %s, error is %s", root, err))
}

func (c *Coordinator) recoverSave(w Writer, done Done) {
	if rec := recover(); rec != nil {
		c.failSave(w, done, errors.Errorf("panic while saving snapshot: %v", rec))
	}
}

// onceDone makes the completion callback single use. The exactly once
// contract holds no matter where in the pipeline a failure surfaces.
func onceDone(done Done) Done {
	var once sync.Once
	return func(status Status) {
		once.Do(func() {
			done(status)
		})
	}
}
