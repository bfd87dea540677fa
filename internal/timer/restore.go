package timer

import (
	"context"
	"errors"

	"github.com/hammamikhairi/tomato/internal/domain"
)

// Restore loads the persisted state and reconciles it with the time that
// passed while the process was not running. It must be called once, before
// the machine serves requests.
//
// Missing or malformed records fall back to defaults, which are written
// back. A running record whose deadline is still ahead resumes with its
// original start and end; one whose deadline passed finishes immediately.
func (m *Machine) Restore(ctx context.Context) domain.TimerState {
	m.mu.Lock()
	defer m.mu.Unlock()

	loaded, err := m.store.Load(ctx)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		m.log.Info("no saved state, starting from defaults")
		m.resetToDefaultsLocked(ctx)
		return m.state.Clone()
	case err != nil:
		m.log.Warn("saved state unusable, starting from defaults: %v", err)
		m.resetToDefaultsLocked(ctx)
		return m.state.Clone()
	}

	m.state = loaded
	m.lastSent = loaded.TotalSeconds()

	if !loaded.Running {
		if loaded.StartTime != nil || loaded.EndTime != nil {
			m.state.ClearRun()
			m.commitLocked(ctx)
		}
		m.log.Info("restored idle %s at %s", loaded.ActiveType, loaded.Clock())
		return m.state.Clone()
	}

	if loaded.EndTime == nil {
		m.log.Warn("saved run has no deadline, keeping %s paused", loaded.Clock())
		m.state.Running = false
		m.state.ClearRun()
		m.commitLocked(ctx)
		return m.state.Clone()
	}

	left := m.state.Left(m.clock.Now())
	if domain.CeilSeconds(left) <= 0 {
		m.log.Info("deadline passed while away (%s)", loaded.EndTime.Format("15:04:05"))
		m.finishLocked(ctx)
		return m.state.Clone()
	}

	m.state.SetRemaining(left)
	m.armLocked(left)
	m.commitLocked(ctx)
	m.log.Info("resumed %s with %s left", m.state.ActiveType, m.state.Clock())
	return m.state.Clone()
}

func (m *Machine) resetToDefaultsLocked(ctx context.Context) {
	m.scheduler.Cancel(WakeID)
	m.state = domain.DefaultState()
	m.commitLocked(ctx)
}
