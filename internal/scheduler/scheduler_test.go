package scheduler

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/hammamikhairi/tomato/internal/logger"
)

func newTestScheduler(t *testing.T, opts ...Option) *Scheduler {
	t.Helper()
	log := logger.New(logger.LevelOff, nil)
	s := New(log, append([]Option{WithResolution(5 * time.Millisecond)}, opts...)...)
	s.Start(context.Background())
	t.Cleanup(s.Stop)
	return s
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}

func TestScheduleFiresOnce(t *testing.T) {
	s := newTestScheduler(t)
	var fired atomic.Int32

	if err := s.Schedule("tick", 20*time.Millisecond, func() { fired.Add(1) }); err != nil {
		t.Fatalf("schedule: %v", err)
	}

	waitFor(t, func() bool { return fired.Load() == 1 })
	time.Sleep(50 * time.Millisecond)

	if n := fired.Load(); n != 1 {
		t.Fatalf("fired %d times, want 1", n)
	}
	if s.Armed("tick") {
		t.Fatal("entry still armed after firing")
	}
}

func TestCancelDisarms(t *testing.T) {
	s := newTestScheduler(t)
	var fired atomic.Int32

	_ = s.Schedule("tick", 30*time.Millisecond, func() { fired.Add(1) })
	s.Cancel("tick")
	s.Cancel("never-armed")

	time.Sleep(80 * time.Millisecond)
	if n := fired.Load(); n != 0 {
		t.Fatalf("cancelled entry fired %d times", n)
	}
}

func TestScheduleReplacesExisting(t *testing.T) {
	s := newTestScheduler(t)
	var first, second atomic.Int32

	_ = s.Schedule("tick", 20*time.Millisecond, func() { first.Add(1) })
	_ = s.Schedule("tick", 20*time.Millisecond, func() { second.Add(1) })

	waitFor(t, func() bool { return second.Load() == 1 })
	time.Sleep(40 * time.Millisecond)

	if n := first.Load(); n != 0 {
		t.Fatalf("replaced callback fired %d times", n)
	}
}

func TestCallbackCanRearm(t *testing.T) {
	s := newTestScheduler(t)
	var count atomic.Int32

	var fn func()
	fn = func() {
		if count.Add(1) < 3 {
			_ = s.Schedule("tick", time.Millisecond, fn)
		}
	}
	_ = s.Schedule("tick", time.Millisecond, fn)

	waitFor(t, func() bool { return count.Load() == 3 })
}

func TestWallClockJumpFiresLateEntry(t *testing.T) {
	var mu sync.Mutex
	now := time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)
	clock := func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return now
	}

	s := newTestScheduler(t, WithClock(clock))
	var fired atomic.Int32
	_ = s.Schedule("tick", time.Hour, func() { fired.Add(1) })

	time.Sleep(30 * time.Millisecond)
	if fired.Load() != 0 {
		t.Fatal("fired before due")
	}

	// Simulate the host waking up two hours later.
	mu.Lock()
	now = now.Add(2 * time.Hour)
	mu.Unlock()

	waitFor(t, func() bool { return fired.Load() == 1 })
}

func TestNilCallbackRejected(t *testing.T) {
	s := New(logger.New(logger.LevelOff, nil))
	if err := s.Schedule("tick", time.Second, nil); err == nil {
		t.Fatal("expected error for nil callback")
	}
}

func TestStopKeepsEntries(t *testing.T) {
	log := logger.New(logger.LevelOff, nil)
	s := New(log, WithResolution(5*time.Millisecond))
	s.Start(context.Background())
	s.Stop()
	s.Stop()

	var fired atomic.Int32
	_ = s.Schedule("tick", time.Millisecond, func() { fired.Add(1) })
	time.Sleep(30 * time.Millisecond)
	if fired.Load() != 0 {
		t.Fatal("stopped scheduler fired an entry")
	}

	s.Start(context.Background())
	defer s.Stop()
	waitFor(t, func() bool { return fired.Load() == 1 })
}
