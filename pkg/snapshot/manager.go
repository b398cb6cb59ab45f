package snapshot

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/storewise/snapvault/pkg/metrics"
	"go.uber.org/zap"
)

const (
	// SnapshotPrefix prefixes every snapshot handle directory
	SnapshotPrefix = "snapshot-"
	// CurrentName is the pointer file naming the current snapshot
	CurrentName = "current"
)

type (
	// Manager owns the snapshot directory of a node. It creates handle
	// directories for the coordinator to work against, tracks which
	// snapshot is current and prunes old snapshots beyond the configured
	// limit.
	Manager struct {
		l           *zap.Logger
		dir         string
		limit       int
		coordinator *Coordinator
		executor    Executor
		mu          sync.Mutex
	}
	ManagerOption func(*Manager)
)

// ------------------------------------------------------------------------------------------------
// ~ Options
// ------------------------------------------------------------------------------------------------

func ManagerWithLimit(v int) ManagerOption {
	return func(o *Manager) {
		o.limit = v
	}
}

// ------------------------------------------------------------------------------------------------
// ~ Constructor
// ------------------------------------------------------------------------------------------------

func NewManager(l *zap.Logger, dir string, coordinator *Coordinator, executor Executor, opts ...ManagerOption) (*Manager, error) {
	inst := &Manager{
		l:           l.Named("manager"),
		dir:         dir,
		limit:       2,
		coordinator: coordinator,
		executor:    executor,
	}

	for _, opt := range opts {
		opt(inst)
	}

	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, errors.Wrap(err, "failed to create snapshot directory")
	}

	return inst, nil
}

// ------------------------------------------------------------------------------------------------
// ~ Public methods
// ------------------------------------------------------------------------------------------------

// Save takes a new snapshot and marks it current. It blocks until the
// coordinator signals the terminal status or the context is done. The handle
// directory of a failed save is removed.
func (m *Manager) Save(ctx context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var (
		start = time.Now()
		id    = SnapshotPrefix + time.Now().UTC().Format(time.RFC3339Nano)
		l     = m.l.With(zap.String("run_id", uuid.New().String()), zap.String("snapshot", id))
	)
	l.Info("snapshot save started")

	handle, err := NewFSHandle(filepath.Join(m.dir, id))
	if err != nil {
		return "", errors.Wrap(err, "failed to create snapshot handle")
	}

	statusChan := make(chan Status, 1)
	m.coordinator.Save(handle, func(status Status) {
		statusChan <- status
	}, m.executor)

	var status Status
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case status = <-statusChan:
	}
	metrics.SaveDuration.WithLabelValues().Observe(time.Since(start).Seconds())

	if !status.OK() {
		if removeErr := os.RemoveAll(handle.Path()); removeErr != nil {
			l.Warn("could not remove handle of failed save", zap.Error(removeErr))
		}
		return "", errors.New(status.Message)
	}

	if err := m.setCurrent(id); err != nil {
		return "", err
	}
	if err := m.cleanup(id); err != nil {
		l.Warn("could not clean up old snapshots", zap.Error(err))
	}

	l.Info("snapshot save completed")
	return id, nil
}

// Load restores the node from the current snapshot.
func (m *Manager) Load(ctx context.Context) error {
	current, err := m.Current()
	if err != nil {
		return err
	}
	return m.LoadFrom(ctx, current)
}

// LoadFrom restores the node from a named snapshot.
func (m *Manager) LoadFrom(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	start := time.Now()
	handle, err := OpenFSHandle(filepath.Join(m.dir, id))
	if err != nil {
		return errors.Wrapf(err, "failed to open snapshot %q", id)
	}
	if !m.coordinator.Load(handle) {
		return errors.Errorf("failed to load snapshot %q", id)
	}
	metrics.LoadDuration.WithLabelValues().Observe(time.Since(start).Seconds())
	m.l.Info("snapshot load completed", zap.String("snapshot", id))
	return nil
}

// List returns the snapshot ids sorted descending (newest first).
func (m *Manager) List() ([]string, error) {
	entries, err := os.ReadDir(m.dir)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list snapshot directory")
	}
	var ids []string
	for _, entry := range entries {
		if entry.IsDir() && strings.HasPrefix(entry.Name(), SnapshotPrefix) {
			ids = append(ids, entry.Name())
		}
	}
	sort.Sort(sort.Reverse(sort.StringSlice(ids)))
	return ids, nil
}

// Current returns the id of the current snapshot. Returns os.ErrNotExist
// wrapped if no snapshot has been taken yet.
func (m *Manager) Current() (string, error) {
	data, err := os.ReadFile(filepath.Join(m.dir, CurrentName))
	if err != nil {
		return "", errors.Wrap(err, "failed to read current snapshot pointer")
	}
	return strings.TrimSpace(string(data)), nil
}

// ------------------------------------------------------------------------------------------------
// ~ Private methods
// ------------------------------------------------------------------------------------------------

func (m *Manager) setCurrent(id string) error {
	if err := os.WriteFile(filepath.Join(m.dir, CurrentName), []byte(id), 0600); err != nil {
		return errors.Wrap(err, "failed to write current snapshot pointer")
	}
	return nil
}

func (m *Manager) cleanup(current string) error {
	ids, err := m.List()
	if err != nil {
		return err
	}
	if len(ids) <= m.limit {
		return nil
	}
	for _, id := range ids[m.limit:] {
		if id == current {
			continue
		}
		m.l.Debug("removing outdated snapshot", zap.String("snapshot", id))
		if err := os.RemoveAll(filepath.Join(m.dir, id)); err != nil {
			return errors.Wrapf(err, "could not remove snapshot %q", id)
		}
	}
	return nil
}
