// Package localstore persists demo-mode records as one JSON file per key.
package localstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/zap"
)

// Keys used by demo mode
const (
	KeyDemoBoards         = "demo-boards"
	KeyDemoAuthUserPrefix = "demo-auth-user:"
	keyDemoProfilePrefix  = "demo-profile:"
)

// DemoAuthUserKey returns the key of a demo user's persisted session
func DemoAuthUserKey(userID string) string {
	return KeyDemoAuthUserPrefix + userID
}

// DemoProfileKey returns the key of a demo user's profile record
func DemoProfileKey(userID string) string {
	return keyDemoProfilePrefix + userID
}

var fileNameReplacer = strings.NewReplacer(":", "_", "/", "_", "\\", "_", "..", "_")

// Store is a JSON file key-value store. Writes are atomic (temp file + rename).
type Store struct {
	dir    string
	mu     sync.RWMutex
	logger *zap.Logger
}

// New opens a store rooted at dir. If dir cannot be created (read-only file
// systems) a directory under os.TempDir is used instead.
func New(dir string, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		fallback := filepath.Join(os.TempDir(), "iverse-data")
		logger.Warn("Failed to create data directory, using temp directory",
			zap.String("dir", dir),
			zap.String("fallback", fallback),
			zap.Error(err),
		)
		if err := os.MkdirAll(fallback, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
		dir = fallback
	}

	return &Store{dir: dir, logger: logger}, nil
}

// Dir returns the directory records are stored in
func (s *Store) Dir() string {
	return s.dir
}

func (s *Store) path(key string) string {
	return filepath.Join(s.dir, fileNameReplacer.Replace(key)+".json")
}

// Get decodes the record stored under key into dest. found is false when no
// record exists.
func (s *Store) Get(key string, dest interface{}) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.read(key, dest)
}

// Set replaces the record stored under key
func (s *Store) Set(key string, value interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.write(key, value)
}

// Delete removes the record stored under key. Missing records are not an error.
func (s *Store) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path(key)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to delete %s: %w", key, err)
	}
	return nil
}

// Each calls fn for every record whose key starts with prefix. decode
// unmarshals the record; records that fail to decode are for fn to skip.
func (s *Store) Each(prefix string, fn func(decode func(dest interface{}) error) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	paths, err := filepath.Glob(filepath.Join(s.dir, fileNameReplacer.Replace(prefix)+"*.json"))
	if err != nil {
		return fmt.Errorf("failed to list %s records: %w", prefix, err)
	}
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", filepath.Base(p), err)
		}
		if err := fn(func(dest interface{}) error { return json.Unmarshal(data, dest) }); err != nil {
			return err
		}
	}
	return nil
}

// Mutate loads key into dest, lets fn modify it and writes the result back,
// all under the store lock. Returning an error from fn skips the write.
func (s *Store) Mutate(key string, dest interface{}, fn func(found bool) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	found, err := s.read(key, dest)
	if err != nil {
		return err
	}
	if err := fn(found); err != nil {
		return err
	}
	return s.write(key, dest)
}

func (s *Store) read(key string, dest interface{}) (bool, error) {
	data, err := os.ReadFile(s.path(key))
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read %s: %w", key, err)
	}

	if err := json.Unmarshal(data, dest); err != nil {
		// a corrupt record is treated as absent so demo mode can recover
		s.logger.Warn("Discarding unreadable local record", zap.String("key", key), zap.Error(err))
		return false, nil
	}
	return true, nil
}

func (s *Store) write(key string, value interface{}) error {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", key, err)
	}

	tmp, err := os.CreateTemp(s.dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write %s: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if err := os.Rename(tmpName, s.path(key)); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to persist %s: %w", key, err)
	}
	return nil
}
