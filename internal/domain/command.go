package domain

import "fmt"

// Action names a request on the request/response channel.
type Action string

const (
	ActionStart         Action = "start"
	ActionPause         Action = "pause"
	ActionReset         Action = "reset"
	ActionSetType       Action = "setType"
	ActionSetCustomTime Action = "setCustomTime"
	ActionGetTime       Action = "getTime"
)

// Command is a one-shot request from a client.
type Command struct {
	Action  Action    `json:"action"`
	Type    TimerType `json:"type,omitempty"`
	Minutes int       `json:"minutes,omitempty"`
	Seconds int       `json:"seconds,omitempty"`
}

// Validate rejects commands the timer must never see: unknown actions,
// unknown presets, and custom times outside [1s, 3h].
func (c Command) Validate() error {
	switch c.Action {
	case ActionStart, ActionPause, ActionReset, ActionGetTime:
		return nil
	case ActionSetType:
		if !c.Type.Valid() {
			return fmt.Errorf("%w: %q", ErrInvalidTimerType, c.Type)
		}
		return nil
	case ActionSetCustomTime:
		if c.Type != "" && !c.Type.Valid() {
			return fmt.Errorf("%w: %q", ErrInvalidTimerType, c.Type)
		}
		return ValidateCustomTime(c.Minutes, c.Seconds)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownAction, c.Action)
	}
}

// Mutates reports whether the command changes the timer state.
func (c Command) Mutates() bool {
	return c.Action != ActionGetTime
}
