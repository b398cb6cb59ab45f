package store

import (
	"os"
	"path/filepath"
	"sync"

	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// kvStateFile is the single state file a KV store writes into its staging
// subdirectory
const kvStateFile = "data.json"

// KV is an in-memory key value store participating in snapshots. The whole
// state serializes into one JSON file inside the store's staging
// subdirectory.
type KV struct {
	l    *zap.Logger
	name string
	mu   sync.RWMutex
	data map[string]string
}

// ------------------------------------------------------------------------------------------------
// ~ Constructor
// ------------------------------------------------------------------------------------------------

func NewKV(l *zap.Logger, name string) *KV {
	return &KV{
		l:    l.Named("store." + name),
		name: name,
		data: map[string]string{},
	}
}

// ------------------------------------------------------------------------------------------------
// ~ Public methods
// ------------------------------------------------------------------------------------------------

func (s *KV) Name() string {
	return s.name
}

func (s *KV) Set(key, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = value
}

func (s *KV) Get(key string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	value, ok := s.data[key]
	return value, ok
}

func (s *KV) Delete(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, key)
}

func (s *KV) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}

// WriteSnapshot serializes the store state into the given directory.
func (s *KV) WriteSnapshot(path string) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := os.MkdirAll(path, 0700); err != nil {
		return errors.Wrap(err, "failed to create store snapshot directory")
	}
	data, err := json.Marshal(s.data)
	if err != nil {
		return errors.Wrap(err, "failed to serialize store state")
	}
	if err := os.WriteFile(filepath.Join(path, kvStateFile), data, 0600); err != nil {
		return errors.Wrap(err, "failed to write store state")
	}
	s.l.Debug("wrote snapshot", zap.String("path", path), zap.Int("keys", len(s.data)))
	return nil
}

// ReadSnapshot replaces the store state with the one in the given directory.
func (s *KV) ReadSnapshot(path string) error {
	data, err := os.ReadFile(filepath.Join(path, kvStateFile))
	if err != nil {
		return errors.Wrap(err, "failed to read store state")
	}
	newData := map[string]string{}
	if err := json.Unmarshal(data, &newData); err != nil {
		return errors.Wrap(err, "failed to parse store state")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = newData
	s.l.Debug("read snapshot", zap.String("path", path), zap.Int("keys", len(s.data)))
	return nil
}
