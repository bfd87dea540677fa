package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/hammamikhairi/tomato/internal/domain"
	"github.com/hammamikhairi/tomato/internal/logger"
)

// kvBackends returns one fresh instance of every KVStore implementation.
func kvBackends(t *testing.T) map[string]domain.KVStore {
	t.Helper()
	log := logger.New(logger.LevelOff, nil)
	dir := t.TempDir()

	sqlite, err := OpenSQLite(context.Background(), filepath.Join(dir, "state.db"), log)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() {
		if err := sqlite.Close(); err != nil {
			t.Logf("sqlite close failed: %v", err)
		}
	})

	return map[string]domain.KVStore{
		"memory": NewMemoryKV(log),
		"yaml":   NewFileKV(filepath.Join(dir, "nested", "state.yaml"), log),
		"sqlite": sqlite,
	}
}

func TestKVStoreGetSet(t *testing.T) {
	for name, kv := range kvBackends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			// Get missing.
			if _, err := kv.Get(ctx, "timerData"); !errors.Is(err, domain.ErrNotFound) {
				t.Fatalf("expected ErrNotFound, got %v", err)
			}

			// Set then Get.
			if err := kv.Set(ctx, "timerData", []byte(`{"a":1}`)); err != nil {
				t.Fatalf("set: %v", err)
			}
			got, err := kv.Get(ctx, "timerData")
			if err != nil {
				t.Fatalf("get: %v", err)
			}
			if string(got) != `{"a":1}` {
				t.Fatalf("got %q", got)
			}

			// Overwrite, other keys untouched.
			if err := kv.Set(ctx, "other", []byte("x")); err != nil {
				t.Fatalf("set other: %v", err)
			}
			if err := kv.Set(ctx, "timerData", []byte(`{"a":2}`)); err != nil {
				t.Fatalf("overwrite: %v", err)
			}
			got, _ = kv.Get(ctx, "timerData")
			if string(got) != `{"a":2}` {
				t.Fatalf("after overwrite got %q", got)
			}
			other, err := kv.Get(ctx, "other")
			if err != nil || string(other) != "x" {
				t.Fatalf("other = %q, %v", other, err)
			}
		})
	}
}

func TestMemoryKVCopiesValues(t *testing.T) {
	kv := NewMemoryKV(logger.New(logger.LevelOff, nil))
	ctx := context.Background()

	buf := []byte("abc")
	if err := kv.Set(ctx, "k", buf); err != nil {
		t.Fatalf("set: %v", err)
	}
	buf[0] = 'z'

	got, _ := kv.Get(ctx, "k")
	if string(got) != "abc" {
		t.Fatalf("stored value aliased caller buffer: %q", got)
	}
}
