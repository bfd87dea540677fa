package timer

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/golang/mock/gomock"

	"github.com/hammamikhairi/tomato/internal/broadcast"
	"github.com/hammamikhairi/tomato/internal/domain"
	"github.com/hammamikhairi/tomato/internal/domain/mocks"
	"github.com/hammamikhairi/tomato/internal/logger"
	"github.com/hammamikhairi/tomato/internal/storage"
)

// fakeClock is a manually advanced clock.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// fakeScheduler records armed callbacks; tests fire them by hand.
type fakeScheduler struct {
	mu        sync.Mutex
	armed     map[string]func()
	delays    []time.Duration
	schedules int
	cancels   int
}

func newFakeScheduler() *fakeScheduler {
	return &fakeScheduler{armed: make(map[string]func())}
}

func (s *fakeScheduler) Schedule(id string, delay time.Duration, fn func()) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.armed[id] = fn
	s.delays = append(s.delays, delay)
	s.schedules++
	return nil
}

func (s *fakeScheduler) Cancel(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.armed, id)
	s.cancels++
}

func (s *fakeScheduler) isArmed(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.armed[id]
	return ok
}

func (s *fakeScheduler) scheduleCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.schedules
}

// fire runs the armed callback for id, as a real scheduler would: the
// entry is consumed before the callback runs.
func (s *fakeScheduler) fire(id string) bool {
	s.mu.Lock()
	fn, ok := s.armed[id]
	delete(s.armed, id)
	s.mu.Unlock()
	if ok {
		fn()
	}
	return ok
}

type fixture struct {
	machine  *Machine
	clock    *fakeClock
	sched    *fakeScheduler
	notifier *mocks.MockNotifier
	hub      *broadcast.Hub
	kv       *storage.MemoryKV
	repo     *storage.StateRepository
	ctx      context.Context
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	log := logger.New(logger.LevelOff, nil)
	ctrl := gomock.NewController(t)

	f := &fixture{
		clock:    newFakeClock(),
		sched:    newFakeScheduler(),
		notifier: mocks.NewMockNotifier(ctrl),
		hub:      broadcast.NewHub(log),
		kv:       storage.NewMemoryKV(log),
		ctx:      context.Background(),
	}
	f.repo = storage.NewStateRepository(f.kv, log)
	f.machine = New(f.repo, f.sched, f.notifier, f.hub, log, WithClock(f.clock))
	return f
}

// seed writes state to the store as if a previous process had saved it.
func (f *fixture) seed(t *testing.T, state domain.TimerState) {
	t.Helper()
	if err := f.repo.Save(f.ctx, state); err != nil {
		t.Fatalf("seed: %v", err)
	}
}

func (f *fixture) saved(t *testing.T) domain.TimerState {
	t.Helper()
	s, err := f.repo.Load(f.ctx)
	if err != nil {
		t.Fatalf("load saved state: %v", err)
	}
	return s
}

// tick advances the clock by d and fires the pending wake-up.
func (f *fixture) tick(d time.Duration) bool {
	f.clock.Advance(d)
	return f.sched.fire(WakeID)
}

func (f *fixture) expectDone(times int) {
	f.notifier.EXPECT().Notify(gomock.Any(), doneNotification{}).Return(nil).Times(times)
}

// doneNotification matches the completion alert regardless of its id.
type doneNotification struct{}

func (doneNotification) Matches(x interface{}) bool {
	n, ok := x.(domain.Notification)
	return ok && n.Title == DoneTitle && n.Body == DoneBody && n.ID != ""
}

func (doneNotification) String() string { return "completion notification" }

func drain(sub *broadcast.Subscription) []domain.TimerState {
	var out []domain.TimerState
	for {
		select {
		case s, ok := <-sub.C():
			if !ok {
				return out
			}
			out = append(out, s)
		default:
			return out
		}
	}
}
