// Package storage provides key-value persistence implementations and the
// timer state repository built on top of them.
package storage

import (
	"context"
	"sync"

	"github.com/hammamikhairi/tomato/internal/domain"
	"github.com/hammamikhairi/tomato/internal/logger"
)

// Compile-time interface check.
var _ domain.KVStore = (*MemoryKV)(nil)

// MemoryKV is an in-memory key-value store. Safe for concurrent access.
// Nothing survives a restart; used in tests and with state_backend=memory.
type MemoryKV struct {
	mu     sync.RWMutex
	values map[string][]byte
	log    *logger.Logger
}

// NewMemoryKV creates an empty in-memory store.
func NewMemoryKV(log *logger.Logger) *MemoryKV {
	return &MemoryKV{
		values: make(map[string][]byte),
		log:    log,
	}
}

// Set stores a copy of value. Overwrites if the key already exists.
func (s *MemoryKV) Set(ctx context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.log.Debug("set %s (%d bytes)", key, len(value))
	s.values[key] = append([]byte(nil), value...)
	return nil
}

// Get returns a copy of the value stored under key.
func (s *MemoryKV) Get(ctx context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.values[key]
	if !ok {
		s.log.Debug("key not found: %s", key)
		return nil, domain.ErrNotFound
	}
	return append([]byte(nil), v...), nil
}
