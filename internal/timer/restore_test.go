package timer

import (
	"testing"
	"time"

	"github.com/hammamikhairi/tomato/internal/domain"
	"github.com/hammamikhairi/tomato/internal/storage"
)

func ptr(t time.Time) *time.Time { return &t }

func TestRestoreWithoutRecordPersistsDefaults(t *testing.T) {
	f := newFixture(t)

	got := f.machine.Restore(f.ctx)
	if got.Running || got.Clock() != "25:00" || got.ActiveType != domain.TypeFocus {
		t.Fatalf("restored %+v, want focus 25:00 stopped", got)
	}
	if saved := f.saved(t); saved.Clock() != "25:00" || saved.ActiveType != domain.TypeFocus {
		t.Fatalf("defaults not written back: %+v", saved)
	}
}

func TestRestoreMalformedRecordFallsBack(t *testing.T) {
	f := newFixture(t)
	if err := f.kv.Set(f.ctx, storage.StateKey, []byte(`{"remainingMinutes":"soon"}`)); err != nil {
		t.Fatal(err)
	}

	got := f.machine.Restore(f.ctx)
	if got.Running || got.Clock() != "25:00" {
		t.Fatalf("restored %+v, want defaults", got)
	}
	if saved := f.saved(t); saved.Clock() != "25:00" {
		t.Fatalf("defaults not written back: %+v", saved)
	}
	if f.sched.isArmed(WakeID) {
		t.Fatal("wake-up armed for default state")
	}
}

func TestRestoreOversizedRecordStartsDefaults(t *testing.T) {
	f := newFixture(t)
	raw := `{"remainingMinutes":200000000,"remainingSeconds":0,"running":false,"activeType":"focus"}`
	if err := f.kv.Set(f.ctx, storage.StateKey, []byte(raw)); err != nil {
		t.Fatal(err)
	}

	if got := f.machine.Restore(f.ctx); got.Clock() != "25:00" {
		t.Fatalf("restored %+v, want defaults", got)
	}

	// No Notify expected: starting must run, not finish.
	got := f.machine.Start(f.ctx)
	if !got.Running || got.Clock() != "25:00" {
		t.Fatalf("start after restore = %+v", got)
	}
}

func TestRestorePassedDeadlineFinishesOnce(t *testing.T) {
	f := newFixture(t)
	f.expectDone(1)

	now := f.clock.Now()
	f.seed(t, domain.TimerState{
		RemainingMinutes: 12,
		Running:          true,
		ActiveType:       domain.TypeFocus,
		StartTime:        ptr(now.Add(-25*time.Minute - 5*time.Second)),
		EndTime:          ptr(now.Add(-5 * time.Second)),
	})

	got := f.machine.Restore(f.ctx)
	if got.Running || got.Clock() != "25:00" || got.ActiveType != domain.TypeFocus {
		t.Fatalf("restored %+v, want finished focus 25:00", got)
	}
	if got.EndTime != nil {
		t.Fatal("endTime kept after finish")
	}
	if f.sched.isArmed(WakeID) {
		t.Fatal("wake-up armed after finish")
	}
	if saved := f.saved(t); saved.Running {
		t.Fatal("saved state still running")
	}

	// Polling afterwards must not notify again.
	f.machine.Snapshot(f.ctx)
}

func TestRestoreResumesRunningTimer(t *testing.T) {
	f := newFixture(t)

	now := f.clock.Now()
	start := now.Add(-4*time.Minute - 30*time.Second)
	end := now.Add(30 * time.Second)
	f.seed(t, domain.TimerState{
		RemainingMinutes: 0,
		RemainingSeconds: 40,
		Running:          true,
		ActiveType:       domain.TypeShort,
		StartTime:        &start,
		EndTime:          &end,
	})

	got := f.machine.Restore(f.ctx)
	if !got.Running || got.Clock() != "0:30" || got.ActiveType != domain.TypeShort {
		t.Fatalf("restored %+v, want running short 0:30", got)
	}
	if !got.StartTime.Equal(start) || !got.EndTime.Equal(end) {
		t.Fatalf("run timestamps changed: %v -> %v", got.StartTime, got.EndTime)
	}
	if !f.sched.isArmed(WakeID) {
		t.Fatal("wake-up not armed after resume")
	}
	if saved := f.saved(t); saved.Clock() != "0:30" {
		t.Fatalf("saved clock = %s, want 0:30", saved.Clock())
	}
}

func TestRestoredRunCompletesOnSchedule(t *testing.T) {
	f := newFixture(t)
	f.expectDone(1)

	now := f.clock.Now()
	f.seed(t, domain.TimerState{
		RemainingSeconds: 3,
		Running:          true,
		ActiveType:       domain.TypeLong,
		StartTime:        ptr(now.Add(-15 * time.Minute)),
		EndTime:          ptr(now.Add(3 * time.Second)),
	})
	f.machine.Restore(f.ctx)

	for i := 0; i < 5; i++ {
		f.tick(time.Second)
	}
	if got := f.machine.Snapshot(f.ctx); got.Running || got.Clock() != "15:00" {
		t.Fatalf("state %+v, want long 15:00 stopped", got)
	}
}

func TestRestoreRunningWithoutDeadlineStaysPaused(t *testing.T) {
	f := newFixture(t)
	f.seed(t, domain.TimerState{
		RemainingMinutes: 7,
		RemainingSeconds: 5,
		Running:          true,
		ActiveType:       domain.TypeFocus,
	})

	got := f.machine.Restore(f.ctx)
	if got.Running || got.Clock() != "7:05" {
		t.Fatalf("restored %+v, want paused 7:05", got)
	}
	if f.sched.isArmed(WakeID) {
		t.Fatal("wake-up armed without a deadline")
	}
	if saved := f.saved(t); saved.Running {
		t.Fatal("saved state still running")
	}
}

func TestRestoreIdleDropsStaleTimestamps(t *testing.T) {
	f := newFixture(t)
	now := f.clock.Now()
	f.seed(t, domain.TimerState{
		RemainingMinutes: 3,
		ActiveType:       domain.TypeShort,
		StartTime:        ptr(now.Add(-time.Hour)),
		EndTime:          ptr(now.Add(-time.Minute)),
	})

	got := f.machine.Restore(f.ctx)
	if got.Running || got.Clock() != "3:00" || got.ActiveType != domain.TypeShort {
		t.Fatalf("restored %+v, want idle short 3:00", got)
	}
	if got.StartTime != nil || got.EndTime != nil {
		t.Fatal("stale timestamps kept")
	}
	if saved := f.saved(t); saved.EndTime != nil {
		t.Fatal("stale timestamps persisted")
	}
}
