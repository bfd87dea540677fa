package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/hammamikhairi/tomato/internal/domain"
	"github.com/hammamikhairi/tomato/internal/logger"
)

// Compile-time interface check.
var _ domain.KVStore = (*FileKV)(nil)

// FileKV keeps every key in a single YAML document. Each Set rewrites the
// file through a temp file and rename so a crash never leaves it half written.
type FileKV struct {
	mu   sync.Mutex
	path string
	log  *logger.Logger
}

// NewFileKV returns a store backed by the YAML file at path. The file and
// its directory are created on the first Set.
func NewFileKV(path string, log *logger.Logger) *FileKV {
	return &FileKV{path: path, log: log}
}

// Path returns the backing file path.
func (s *FileKV) Path() string { return s.path }

// Get reads key from the file.
func (s *FileKV) Get(ctx context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	values, err := s.readLocked()
	if err != nil {
		return nil, err
	}
	v, ok := values[key]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return []byte(v), nil
}

// Set writes key to the file, keeping all other keys.
func (s *FileKV) Set(ctx context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	values, err := s.readLocked()
	if err != nil {
		// An unreadable file is replaced rather than blocking every write.
		s.log.Warn("discarding unreadable store %s: %v", s.path, err)
		values = make(map[string]string)
	}
	values[key] = string(value)

	serialized, err := yaml.Marshal(values)
	if err != nil {
		return fmt.Errorf("marshal store yaml: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create store directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".tomato-*.yaml")
	if err != nil {
		return fmt.Errorf("create temp store: %w", err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(serialized); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write temp store: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp store: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("replace store file: %w", err)
	}

	s.log.Debug("wrote %s to %s", key, s.path)
	return nil
}

func (s *FileKV) readLocked() (map[string]string, error) {
	values := make(map[string]string)

	raw, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return values, nil
		}
		return nil, fmt.Errorf("read store file: %w", err)
	}

	if err := yaml.Unmarshal(raw, &values); err != nil {
		return nil, fmt.Errorf("parse store yaml: %w", err)
	}
	if values == nil {
		values = make(map[string]string)
	}
	return values, nil
}
