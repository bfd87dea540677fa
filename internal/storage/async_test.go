package storage

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/hammamikhairi/tomato/internal/domain"
	"github.com/hammamikhairi/tomato/internal/logger"
)

type recordingWriter struct {
	mu    sync.Mutex
	saved []domain.TimerState
	err   error
}

func (w *recordingWriter) Save(_ context.Context, s domain.TimerState) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.saved = append(w.saved, s)
	return w.err
}

func (w *recordingWriter) last() (domain.TimerState, int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if len(w.saved) == 0 {
		return domain.TimerState{}, 0
	}
	return w.saved[len(w.saved)-1], len(w.saved)
}

func TestAsyncSaverWritesLatestOnClose(t *testing.T) {
	w := &recordingWriter{}
	saver := NewAsyncSaver(w, logger.New(logger.LevelOff, nil))
	ctx := context.Background()

	for i := 1; i <= 50; i++ {
		s := domain.DefaultState()
		s.RemainingMinutes = i
		if err := saver.Save(ctx, s); err != nil {
			t.Fatalf("save %d: %v", i, err)
		}
	}
	saver.Close()

	last, n := w.last()
	if n == 0 {
		t.Fatal("nothing was written")
	}
	if n > 50 {
		t.Fatalf("wrote %d states for 50 saves", n)
	}
	if last.RemainingMinutes != 50 {
		t.Fatalf("last written minutes = %d, want 50", last.RemainingMinutes)
	}
}

func TestAsyncSaverAfterClose(t *testing.T) {
	saver := NewAsyncSaver(&recordingWriter{}, logger.New(logger.LevelOff, nil))
	saver.Close()
	saver.Close() // idempotent

	if err := saver.Save(context.Background(), domain.DefaultState()); !errors.Is(err, domain.ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
}

func TestAsyncSaverSurvivesWriteErrors(t *testing.T) {
	w := &recordingWriter{err: errors.New("read-only filesystem")}
	saver := NewAsyncSaver(w, logger.New(logger.LevelOff, nil))

	if err := saver.Save(context.Background(), domain.DefaultState()); err != nil {
		t.Fatalf("save should not surface write errors: %v", err)
	}
	saver.Close()

	if _, n := w.last(); n != 1 {
		t.Fatalf("expected one attempted write, got %d", n)
	}
}
