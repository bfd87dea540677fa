// Package popup is the interactive terminal client: it follows the
// daemon's state stream and sends commands on key presses.
package popup

import (
	"context"
	"errors"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/hammamikhairi/tomato/internal/command"
	"github.com/hammamikhairi/tomato/internal/domain"
	"github.com/hammamikhairi/tomato/internal/logger"
)

const (
	retryMin = 500 * time.Millisecond
	retryMax = 5 * time.Second
)

// Controller is the daemon as seen by the popup.
type Controller interface {
	Do(ctx context.Context, cmd domain.Command) (domain.TimerState, error)
	Stream(ctx context.Context, fn func(domain.TimerState)) error
}

// UI runs the popup. Call Run (blocking).
type UI struct {
	ctrl   Controller
	parser *command.Parser
	log    *logger.Logger
}

// New creates the popup.
func New(ctrl Controller, parser *command.Parser, log *logger.Logger) *UI {
	return &UI{ctrl: ctrl, parser: parser, log: log}
}

// Run starts the Bubble Tea event loop and the stream follower. Blocks
// until the user quits or ctx is cancelled.
func (u *UI) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	program := tea.NewProgram(newModel(ctx, u.ctrl, u.parser), tea.WithContext(ctx))

	go u.follow(ctx, program)

	_, err := program.Run()
	if ctx.Err() != nil && errors.Is(err, tea.ErrProgramKilled) {
		return nil
	}
	return err
}

// follow keeps a stream open, reconnecting with backoff whenever the
// daemon goes away. Every reconnect starts with a fresh initial push, so
// the view resynchronizes without a separate query.
func (u *UI) follow(ctx context.Context, program *tea.Program) {
	delay := retryMin
	for {
		connected := false
		err := u.ctrl.Stream(ctx, func(s domain.TimerState) {
			connected = true
			program.Send(stateMsg(s))
		})
		if ctx.Err() != nil {
			return
		}

		u.log.Warn("stream: %v", err)
		program.Send(disconnectedMsg{err: err})

		if connected {
			delay = retryMin
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(delay):
		}
		delay *= 2
		if delay > retryMax {
			delay = retryMax
		}
	}
}
