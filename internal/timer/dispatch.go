package timer

import (
	"context"

	"github.com/hammamikhairi/tomato/internal/domain"
)

// Handle validates cmd and applies it. Invalid commands are rejected here
// and never reach a transition. getTime returns a fresh snapshot; every
// other action returns the state after the transition.
func (m *Machine) Handle(ctx context.Context, cmd domain.Command) (domain.TimerState, error) {
	if err := cmd.Validate(); err != nil {
		return domain.TimerState{}, err
	}

	switch cmd.Action {
	case domain.ActionStart:
		return m.Start(ctx), nil
	case domain.ActionPause:
		return m.Pause(ctx), nil
	case domain.ActionReset:
		return m.Reset(ctx), nil
	case domain.ActionSetType:
		return m.SetType(ctx, cmd.Type)
	case domain.ActionSetCustomTime:
		return m.SetCustomTime(ctx, cmd.Minutes, cmd.Seconds, cmd.Type)
	default:
		return m.Snapshot(ctx), nil
	}
}
