// Package timer implements the authoritative countdown: a state machine
// that keeps remaining time as an absolute deadline, persists every change,
// and pushes it to attached observers.
package timer

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/hammamikhairi/tomato/internal/broadcast"
	"github.com/hammamikhairi/tomato/internal/domain"
	"github.com/hammamikhairi/tomato/internal/logger"
)

// WakeID is the scheduler id of the machine's single wake-up entry.
const WakeID = "tick"

// Completion notification text.
const (
	DoneTitle = "Pomodoro Timer"
	DoneBody  = "TIME'S UP!"
)

var _ domain.ActivationHandler = (*Machine)(nil)

// Clock tells the machine what time it is.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

// Now strips the monotonic reading so deadlines persisted across a
// suspend or restart compare against wall-clock time.
func (systemClock) Now() time.Time { return time.Now().Round(0) }

// StateStore loads and saves the persisted TimerState.
type StateStore interface {
	Load(ctx context.Context) (domain.TimerState, error)
	Save(ctx context.Context, state domain.TimerState) error
}

// StateSaver persists a state. The machine does not wait for durability;
// a saver may queue the write.
type StateSaver interface {
	Save(ctx context.Context, state domain.TimerState) error
}

// Option configures the machine.
type Option func(*Machine)

// WithClock replaces the wall clock.
func WithClock(c Clock) Option {
	return func(m *Machine) {
		m.clock = c
	}
}

// WithTickInterval sets the wake-up period while running.
func WithTickInterval(d time.Duration) Option {
	return func(m *Machine) {
		if d > 0 {
			m.tickInterval = d
		}
	}
}

// WithSaver routes writes through s instead of the store, e.g. an
// asynchronous saver. Loads still go to the store.
func WithSaver(s StateSaver) Option {
	return func(m *Machine) {
		m.saver = s
	}
}

// Machine owns the single TimerState. Every transition, wake-up, query and
// observer attach is serialized on one mutex and applied in arrival order.
type Machine struct {
	store     StateStore
	saver     StateSaver
	scheduler domain.Scheduler
	notifier  domain.Notifier
	hub       *broadcast.Hub
	log       *logger.Logger

	clock        Clock
	tickInterval time.Duration

	mu    sync.Mutex
	state domain.TimerState
	// lastSent is the remaining total seconds most recently persisted and
	// broadcast; wake-ups that would repeat it are suppressed.
	lastSent int
}

// New creates a machine in the default state. Call Restore before serving
// requests to load and reconcile the persisted state.
func New(store StateStore, scheduler domain.Scheduler, notifier domain.Notifier, hub *broadcast.Hub, log *logger.Logger, opts ...Option) *Machine {
	m := &Machine{
		store:        store,
		saver:        store,
		scheduler:    scheduler,
		notifier:     notifier,
		hub:          hub,
		log:          log,
		clock:        systemClock{},
		tickInterval: time.Second,
		state:        domain.DefaultState(),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.lastSent = m.state.TotalSeconds()
	return m
}

// Start begins counting down from the current remaining time. Starting a
// running timer is a no-op.
func (m *Machine) Start(ctx context.Context) domain.TimerState {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state.Running {
		m.log.Debug("start ignored: already running")
		return m.state.Clone()
	}

	remaining := m.state.Remaining()
	if remaining <= 0 {
		m.log.Info("start with nothing left, finishing")
		m.finishLocked(ctx)
		return m.state.Clone()
	}

	now := m.clock.Now()
	end := now.Add(remaining)
	m.state.StartTime = &now
	m.state.EndTime = &end
	m.state.Running = true

	m.armLocked(remaining)
	m.commitLocked(ctx)

	m.log.Info("started %s, %s until %s", m.state.ActiveType, m.state.Clock(), end.Format(time.TimeOnly))
	return m.state.Clone()
}

// Pause freezes the countdown at what is left of the deadline. Pausing an
// idle timer is a no-op.
func (m *Machine) Pause(ctx context.Context) domain.TimerState {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.state.Running {
		m.log.Debug("pause ignored: not running")
		return m.state.Clone()
	}

	m.scheduler.Cancel(WakeID)
	m.state.SetRemaining(m.state.Left(m.clock.Now()))
	m.state.Running = false
	m.state.ClearRun()
	m.commitLocked(ctx)

	m.log.Info("paused at %s", m.state.Clock())
	return m.state.Clone()
}

// Reset stops the timer and restores the active preset's default length.
func (m *Machine) Reset(ctx context.Context) domain.TimerState {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.idleLocked(m.state.ActiveType.DefaultDuration())
	m.commitLocked(ctx)

	m.log.Info("reset %s to %s", m.state.ActiveType, m.state.Clock())
	return m.state.Clone()
}

// SetType switches preset. A running countdown is always discarded.
func (m *Machine) SetType(ctx context.Context, t domain.TimerType) (domain.TimerState, error) {
	if !t.Valid() {
		return domain.TimerState{}, fmt.Errorf("%w: %q", domain.ErrInvalidTimerType, t)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.state.ActiveType = t
	m.idleLocked(t.DefaultDuration())
	m.commitLocked(ctx)

	m.log.Info("switched to %s (%s)", t, m.state.Clock())
	return m.state.Clone(), nil
}

// SetCustomTime stops the timer and sets the remaining time to
// minutes:seconds, optionally switching preset first. An empty t keeps the
// current preset. Range checking belongs to the caller; seconds beyond 59
// carry into minutes.
func (m *Machine) SetCustomTime(ctx context.Context, minutes, seconds int, t domain.TimerType) (domain.TimerState, error) {
	if t != "" && !t.Valid() {
		return domain.TimerState{}, fmt.Errorf("%w: %q", domain.ErrInvalidTimerType, t)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if t != "" {
		m.state.ActiveType = t
	}
	custom := time.Duration(minutes)*time.Minute + time.Duration(seconds)*time.Second
	m.idleLocked(custom)
	m.commitLocked(ctx)

	m.log.Info("custom time %s (%s)", m.state.Clock(), m.state.ActiveType)
	return m.state.Clone(), nil
}

// OnWake is the scheduler callback. It recomputes the remaining time from
// the deadline, finishes the run once it has passed, and re-arms itself.
// A wake-up arriving after the timer stopped is ignored.
func (m *Machine) OnWake(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.state.Running {
		m.log.Debug("stale wake-up ignored")
		return
	}
	if left := m.refreshLocked(ctx); left > 0 {
		m.armLocked(left)
	}
}

// Snapshot returns the current state. While running, the remaining time is
// recomputed from the deadline first, so pollers never see a stale value.
func (m *Machine) Snapshot(ctx context.Context) domain.TimerState {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state.Running {
		m.refreshLocked(ctx)
	}
	return m.state.Clone()
}

// Subscribe attaches an observer and hands it the current state before any
// later broadcast.
func (m *Machine) Subscribe(ctx context.Context, buffer int) *broadcast.Subscription {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state.Running {
		m.refreshLocked(ctx)
	}
	return m.hub.Attach(buffer, m.state)
}

// ActivateNotification handles the user interacting with a completion
// alert: observers are re-sent the current state so an open client
// refreshes.
func (m *Machine) ActivateNotification(ctx context.Context, id string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.log.Info("notification %s activated", id)
	m.hub.Broadcast(m.state.Clone())
}

// refreshLocked re-derives the display from the deadline. It finishes the
// run when nothing is left and returns the time left otherwise.
func (m *Machine) refreshLocked(ctx context.Context) time.Duration {
	left := m.state.Left(m.clock.Now())
	total := domain.CeilSeconds(left)
	if total <= 0 {
		m.finishLocked(ctx)
		return 0
	}
	if total != m.lastSent {
		m.state.SetRemaining(left)
		m.commitLocked(ctx)
	}
	return left
}

// finishLocked ends the run: the timer goes idle at the preset default and
// the user is notified. Callers have checked the timer was running, and the
// state leaves Running before the notification so it fires once per run.
func (m *Machine) finishLocked(ctx context.Context) {
	m.idleLocked(m.state.ActiveType.DefaultDuration())
	m.log.Info("%s finished", m.state.ActiveType)

	n := domain.Notification{
		ID:    notificationID(m.clock.Now()),
		Title: DoneTitle,
		Body:  DoneBody,
	}
	if err := m.notifier.Notify(ctx, n); err != nil {
		m.log.Error("completion notification: %v", err)
	}

	m.commitLocked(ctx)
}

// idleLocked cancels the wake-up and leaves the timer stopped with d left.
func (m *Machine) idleLocked(d time.Duration) {
	m.scheduler.Cancel(WakeID)
	m.state.Running = false
	m.state.ClearRun()
	m.state.SetRemaining(d)
}

// armLocked schedules the next wake-up one tick ahead, or at the deadline
// if that comes sooner.
func (m *Machine) armLocked(left time.Duration) {
	delay := m.tickInterval
	if left < delay {
		delay = left
	}
	if err := m.scheduler.Schedule(WakeID, delay, m.wake); err != nil {
		m.log.Error("arming wake-up: %v", err)
	}
}

func (m *Machine) wake() {
	m.OnWake(context.Background())
}

// commitLocked persists and broadcasts the current state. A failed write is
// logged; the in-memory state stays authoritative.
func (m *Machine) commitLocked(ctx context.Context) {
	snap := m.state.Clone()
	m.lastSent = snap.TotalSeconds()

	if err := m.saver.Save(ctx, snap); err != nil {
		m.log.Error("persisting state: %v", err)
	}
	m.hub.Broadcast(snap)
}
