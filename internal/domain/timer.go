// Package domain defines the core types and interfaces for the timer.
// All other packages depend on domain; domain depends on nothing.
package domain

import (
	"fmt"
	"strings"
	"time"
)

// TimerType is one of the three duration presets.
type TimerType string

const (
	TypeFocus TimerType = "focus"
	TypeShort TimerType = "short"
	TypeLong  TimerType = "long"
)

// Preset default lengths.
const (
	FocusDuration = 25 * time.Minute
	ShortDuration = 5 * time.Minute
	LongDuration  = 15 * time.Minute
)

// Bounds accepted for a custom time, in seconds.
const (
	MinCustomSeconds = 1
	MaxCustomSeconds = 3 * 60 * 60
)

// TimerTypes lists the presets in display order.
var TimerTypes = []TimerType{TypeFocus, TypeShort, TypeLong}

// Valid reports whether t names a known preset.
func (t TimerType) Valid() bool {
	switch t {
	case TypeFocus, TypeShort, TypeLong:
		return true
	default:
		return false
	}
}

// String returns a human-readable preset name.
func (t TimerType) String() string {
	switch t {
	case TypeFocus:
		return "focus"
	case TypeShort:
		return "short break"
	case TypeLong:
		return "long break"
	default:
		return "unknown"
	}
}

// DefaultDuration returns the canonical reset length for the preset.
// Unknown presets get the focus length.
func (t TimerType) DefaultDuration() time.Duration {
	switch t {
	case TypeShort:
		return ShortDuration
	case TypeLong:
		return LongDuration
	default:
		return FocusDuration
	}
}

// ParseTimerType accepts the wire names plus a few common aliases.
func ParseTimerType(s string) (TimerType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "focus", "work", "pomodoro":
		return TypeFocus, nil
	case "short", "short_break", "break":
		return TypeShort, nil
	case "long", "long_break":
		return TypeLong, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidTimerType, s)
	}
}

// ValidateCustomTime checks that minutes:seconds is within [1s, 3h].
func ValidateCustomTime(minutes, seconds int) error {
	if minutes < 0 || seconds < 0 {
		return ErrInvalidCustomTime
	}
	// Bounded first so the sum below cannot overflow.
	if minutes > MaxCustomSeconds/60 || seconds > MaxCustomSeconds {
		return ErrInvalidCustomTime
	}
	total := minutes*60 + seconds
	if total < MinCustomSeconds || total > MaxCustomSeconds {
		return ErrInvalidCustomTime
	}
	return nil
}

// TimerState is the single persisted record describing the timer.
// While Running, the remaining fields are display values derived from EndTime.
type TimerState struct {
	RemainingMinutes int        `json:"remainingMinutes"`
	RemainingSeconds int        `json:"remainingSeconds"`
	Running          bool       `json:"running"`
	ActiveType       TimerType  `json:"activeType"`
	StartTime        *time.Time `json:"startTime,omitempty"`
	EndTime          *time.Time `json:"endTime,omitempty"`
}

// DefaultState is the state of a freshly installed timer.
func DefaultState() TimerState {
	s := TimerState{ActiveType: TypeFocus}
	s.SetRemaining(TypeFocus.DefaultDuration())
	return s
}

// Remaining returns the displayed remaining time.
func (s TimerState) Remaining() time.Duration {
	return time.Duration(s.RemainingMinutes)*time.Minute + time.Duration(s.RemainingSeconds)*time.Second
}

// TotalSeconds returns the displayed remaining time in whole seconds.
func (s TimerState) TotalSeconds() int {
	return s.RemainingMinutes*60 + s.RemainingSeconds
}

// SetRemaining stores d, rounded up to the whole second and clamped at zero,
// as minutes and seconds.
func (s *TimerState) SetRemaining(d time.Duration) {
	s.setTotalSeconds(CeilSeconds(d))
}

func (s *TimerState) setTotalSeconds(total int) {
	s.RemainingMinutes = total / 60
	s.RemainingSeconds = total % 60
}

// Left returns max(0, EndTime - now). Zero when no deadline is set.
func (s TimerState) Left(now time.Time) time.Duration {
	if s.EndTime == nil {
		return 0
	}
	d := s.EndTime.Sub(now)
	if d < 0 {
		return 0
	}
	return d
}

// ClearRun drops the start and end timestamps.
func (s *TimerState) ClearRun() {
	s.StartTime = nil
	s.EndTime = nil
}

// Clock formats the displayed remaining time as m:ss.
func (s TimerState) Clock() string {
	return fmt.Sprintf("%d:%02d", s.RemainingMinutes, s.RemainingSeconds)
}

// Clone returns a copy that shares no pointers with s.
func (s TimerState) Clone() TimerState {
	out := s
	if s.StartTime != nil {
		t := *s.StartTime
		out.StartTime = &t
	}
	if s.EndTime != nil {
		t := *s.EndTime
		out.EndTime = &t
	}
	return out
}

// CeilSeconds converts d to whole seconds, rounding up. Negative is zero.
func CeilSeconds(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	return int((d + time.Second - 1) / time.Second)
}

// Notification is a user-visible alert.
type Notification struct {
	ID    string
	Title string
	Body  string
}
