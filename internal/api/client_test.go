package api

import (
	"context"
	"errors"
	"net/http"
	"path/filepath"
	"testing"
	"time"

	"github.com/hammamikhairi/tomato/internal/domain"
)

func TestClientOverUnixSocket(t *testing.T) {
	env := newTestEnv(t)
	sock := filepath.Join(t.TempDir(), "tomato.sock")

	ln, err := Listen(sock)
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	if _, err := Listen(sock); err == nil {
		t.Fatal("second Listen on a live socket succeeded")
	}

	ctx, cancel := context.WithCancel(context.Background())
	served := make(chan error, 1)
	go func() { served <- env.server.Serve(ctx, ln) }()
	t.Cleanup(func() {
		cancel()
		select {
		case err := <-served:
			if err != nil {
				t.Errorf("Serve: %v", err)
			}
		case <-time.After(5 * time.Second):
			t.Error("Serve did not return after cancel")
		}
	})

	c := NewClient(sock)
	reqCtx, reqCancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer reqCancel()

	state, err := c.Do(reqCtx, domain.Command{Action: domain.ActionSetCustomTime, Minutes: 1, Seconds: 30, Type: domain.TypeLong})
	if err != nil {
		t.Fatalf("setCustomTime: %v", err)
	}
	if state.Clock() != "1:30" || state.ActiveType != domain.TypeLong {
		t.Fatalf("setCustomTime = %+v", state)
	}

	state, err = c.Do(reqCtx, domain.Command{Action: domain.ActionGetTime})
	if err != nil || state.Clock() != "1:30" {
		t.Fatalf("getTime = %+v, %v", state, err)
	}
	if state, err = c.State(reqCtx); err != nil || state.ActiveType != domain.TypeLong {
		t.Fatalf("State = %+v, %v", state, err)
	}

	_, err = c.Do(reqCtx, domain.Command{Action: domain.ActionSetCustomTime, Minutes: 200})
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusBadRequest {
		t.Fatalf("invalid custom time error = %v", err)
	}

	if err := c.ActivateNotification(reqCtx, "tomato-1"); err != nil {
		t.Fatalf("ActivateNotification: %v", err)
	}

	streamCtx, streamCancel := context.WithCancel(context.Background())
	states := make(chan domain.TimerState, 4)
	streamErr := make(chan error, 1)
	go func() {
		streamErr <- c.Stream(streamCtx, func(s domain.TimerState) { states <- s })
	}()

	select {
	case s := <-states:
		if s.Clock() != "1:30" {
			t.Fatalf("stream initial = %+v", s)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no initial state on stream")
	}

	streamCancel()
	select {
	case err := <-streamErr:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("Stream returned %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Stream did not return after cancel")
	}
}

func TestClientDaemonDown(t *testing.T) {
	c := NewClient(filepath.Join(t.TempDir(), "nobody.sock"))
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	if _, err := c.State(ctx); err == nil {
		t.Fatal("expected error with no daemon")
	}
	if err := c.Stream(ctx, func(domain.TimerState) {}); err == nil {
		t.Fatal("expected stream error with no daemon")
	}
}
