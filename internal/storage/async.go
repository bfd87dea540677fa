package storage

import (
	"context"
	"sync"
	"time"

	"github.com/hammamikhairi/tomato/internal/domain"
	"github.com/hammamikhairi/tomato/internal/logger"
)

const saveTimeout = 5 * time.Second

// stateWriter is the subset of StateRepository the saver needs.
type stateWriter interface {
	Save(ctx context.Context, state domain.TimerState) error
}

// AsyncSaver persists timer states on a background goroutine so callers
// never wait on disk. Only the latest pending state is kept; writes happen
// in the order states were handed in. Failures are logged and dropped, the
// next Save retries implicitly.
type AsyncSaver struct {
	inner stateWriter
	log   *logger.Logger

	mu      sync.Mutex
	pending *domain.TimerState
	closed  bool
	wake    chan struct{}
	done    chan struct{}
}

// NewAsyncSaver starts the writer goroutine. Call Close to drain it.
func NewAsyncSaver(inner stateWriter, log *logger.Logger) *AsyncSaver {
	a := &AsyncSaver{
		inner: inner,
		log:   log,
		wake:  make(chan struct{}, 1),
		done:  make(chan struct{}),
	}
	go a.run()
	return a
}

// Save queues state for writing and returns immediately.
func (a *AsyncSaver) Save(_ context.Context, state domain.TimerState) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed {
		return domain.ErrClosed
	}
	s := state.Clone()
	a.pending = &s
	select {
	case a.wake <- struct{}{}:
	default:
	}
	return nil
}

// Close writes any pending state and stops the writer.
func (a *AsyncSaver) Close() {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return
	}
	a.closed = true
	close(a.wake)
	a.mu.Unlock()

	<-a.done
}

func (a *AsyncSaver) run() {
	defer close(a.done)
	for range a.wake {
		a.flush()
	}
	a.flush()
}

func (a *AsyncSaver) flush() {
	a.mu.Lock()
	state := a.pending
	a.pending = nil
	a.mu.Unlock()

	if state == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), saveTimeout)
	defer cancel()
	if err := a.inner.Save(ctx, *state); err != nil {
		a.log.Error("persisting timer state: %v", err)
	}
}
