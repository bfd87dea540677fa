// Package scheduler implements the wake-up service the timer relies on.
// Entries are due at a wall-clock instant, so an entry whose time passed
// while the machine was asleep fires on the first check after resume.
package scheduler

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/hammamikhairi/tomato/internal/domain"
	"github.com/hammamikhairi/tomato/internal/logger"
)

// Compile-time interface check.
var _ domain.Scheduler = (*Scheduler)(nil)

// Option configures the scheduler.
type Option func(*Scheduler)

// WithResolution sets how often due entries are checked.
func WithResolution(d time.Duration) Option {
	return func(s *Scheduler) {
		if d > 0 {
			s.resolution = d
		}
	}
}

// WithClock replaces the wall clock. Used by tests.
func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) {
		s.now = now
	}
}

type entry struct {
	due time.Time
	fn  func()
}

// Scheduler runs armed callbacks from a single background loop. Callbacks
// run one at a time on that loop and may re-arm themselves.
type Scheduler struct {
	log        *logger.Logger
	resolution time.Duration
	now        func() time.Time

	mu      sync.Mutex
	entries map[string]entry
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// New creates a scheduler. Call Start to begin firing entries.
func New(log *logger.Logger, opts ...Option) *Scheduler {
	s := &Scheduler{
		log:        log,
		resolution: 200 * time.Millisecond,
		// Round(0) strips the monotonic reading; the monotonic clock stops
		// while the host is suspended and would hide that time.
		now:     func() time.Time { return time.Now().Round(0) },
		entries: make(map[string]entry),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start begins the background loop. Non-blocking.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		s.log.Warn("scheduler already running")
		return
	}

	childCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.running = true
	s.done = make(chan struct{})

	go s.loop(childCtx, s.done)

	s.log.Info("scheduler started (resolution=%s)", s.resolution)
}

// Stop shuts the loop down and waits for an in-flight callback to return.
// Armed entries are kept and fire after the next Start.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.cancel()
	s.running = false
	done := s.done
	s.mu.Unlock()

	<-done
	s.log.Info("scheduler stopped")
}

// Schedule arms fn to run once, delay from now. An existing entry under id
// is replaced, so at most one callback per id is ever armed.
func (s *Scheduler) Schedule(id string, delay time.Duration, fn func()) error {
	if fn == nil {
		return errors.New("scheduler: nil callback")
	}
	if delay < 0 {
		delay = 0
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[id] = entry{due: s.now().Add(delay), fn: fn}
	s.log.Debug("armed %s in %s", id, delay)
	return nil
}

// Cancel disarms id.
func (s *Scheduler) Cancel(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.entries[id]; ok {
		delete(s.entries, id)
		s.log.Debug("cancelled %s", id)
	}
}

// Armed reports whether id currently has a pending callback.
func (s *Scheduler) Armed(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.entries[id]
	return ok
}

// loop is the main check loop.
func (s *Scheduler) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(s.resolution)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.fireDue()
		}
	}
}

// fireDue runs every entry whose due time has passed, earliest first.
func (s *Scheduler) fireDue() {
	now := s.now()

	s.mu.Lock()
	var due []entry
	for id, e := range s.entries {
		if !e.due.After(now) {
			due = append(due, e)
			delete(s.entries, id)
		}
	}
	s.mu.Unlock()

	sort.Slice(due, func(i, j int) bool { return due[i].due.Before(due[j].due) })

	for _, e := range due {
		if late := now.Sub(e.due); late > time.Second {
			s.log.Debug("firing wake-up %s late", late.Round(time.Second))
		}
		e.fn()
	}
}
