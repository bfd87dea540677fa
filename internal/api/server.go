// Package api exposes the timer over HTTP on a unix domain socket: a
// request/response command endpoint and a newline-delimited JSON stream of
// state updates for observers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/hammamikhairi/tomato/internal/broadcast"
	"github.com/hammamikhairi/tomato/internal/domain"
	"github.com/hammamikhairi/tomato/internal/logger"
)

const (
	maxCommandBytes = 4 << 10
	streamBuffer    = 8
	shutdownTimeout = 5 * time.Second
)

// Timer is the state machine the server drives.
type Timer interface {
	Handle(ctx context.Context, cmd domain.Command) (domain.TimerState, error)
	Snapshot(ctx context.Context) domain.TimerState
	Subscribe(ctx context.Context, buffer int) *broadcast.Subscription
	domain.ActivationHandler
}

// Server serves the timer API.
type Server struct {
	timer Timer
	log   *logger.Logger
	mux   *http.ServeMux
}

// NewServer builds the route table.
func NewServer(t Timer, log *logger.Logger) *Server {
	s := &Server{timer: t, log: log, mux: http.NewServeMux()}
	s.mux.HandleFunc("POST "+PathCommand, s.handleCommand)
	s.mux.HandleFunc("GET "+PathState, s.handleState)
	s.mux.HandleFunc("GET "+PathStream, s.handleStream)
	s.mux.HandleFunc("POST "+PathActivate, s.handleActivate)
	return s
}

// Handler returns the HTTP handler, for tests and custom listeners.
func (s *Server) Handler() http.Handler { return s.mux }

// Listen opens the unix socket at path. A stale socket left by a crashed
// daemon is removed; one a live daemon still answers on is an error.
func Listen(path string) (net.Listener, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("create socket dir: %w", err)
	}
	if _, err := os.Stat(path); err == nil {
		if conn, err := net.DialTimeout("unix", path, time.Second); err == nil {
			conn.Close()
			return nil, fmt.Errorf("another daemon is listening on %s", path)
		}
		if err := os.Remove(path); err != nil {
			return nil, fmt.Errorf("remove stale socket: %w", err)
		}
	}

	ln, err := net.Listen("unix", path)
	if err != nil {
		return nil, fmt.Errorf("listen on %s: %w", path, err)
	}
	if err := os.Chmod(path, 0o600); err != nil {
		ln.Close()
		return nil, fmt.Errorf("chmod socket: %w", err)
	}
	return ln, nil
}

// Serve handles requests on ln until ctx is cancelled. Open streams end
// with ctx, then the server shuts down gracefully.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.mux,
		ReadHeaderTimeout: 5 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("listening on %s", ln.Addr())
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) handleCommand(w http.ResponseWriter, r *http.Request) {
	var cmd domain.Command
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxCommandBytes))
	if err := dec.Decode(&cmd); err != nil {
		writeJSON(w, http.StatusBadRequest, CommandResponse{Error: fmt.Sprintf("decode command: %v", err)})
		return
	}

	if cmd.Mutates() {
		s.log.Info("command %s", cmd.Action)
	} else {
		s.log.Debug("command %s", cmd.Action)
	}
	state, err := s.timer.Handle(r.Context(), cmd)
	if err != nil {
		s.log.Warn("rejected %s: %v", cmd.Action, err)
		writeJSON(w, statusFor(err), CommandResponse{Error: err.Error()})
		return
	}

	// Queries answer with the bare record.
	if !cmd.Mutates() {
		writeJSON(w, http.StatusOK, state)
		return
	}
	writeJSON(w, http.StatusOK, CommandResponse{Success: true, State: &state})
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.timer.Snapshot(r.Context()))
}

func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	sub := s.timer.Subscribe(r.Context(), streamBuffer)
	defer sub.Close()
	s.log.Debug("stream %d opened", sub.ID())

	w.Header().Set("Content-Type", "application/x-ndjson")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)

	enc := json.NewEncoder(w)
	for {
		select {
		case <-r.Context().Done():
			s.log.Debug("stream %d closed by client", sub.ID())
			return
		case state, ok := <-sub.C():
			if !ok {
				return
			}
			if err := enc.Encode(state); err != nil {
				s.log.Debug("stream %d write: %v", sub.ID(), err)
				return
			}
			flusher.Flush()
		}
	}
}

func (s *Server) handleActivate(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("id")
	if id == "" {
		writeJSON(w, http.StatusBadRequest, CommandResponse{Error: "missing notification id"})
		return
	}
	s.timer.ActivateNotification(r.Context(), id)
	w.WriteHeader(http.StatusNoContent)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidCustomTime),
		errors.Is(err, domain.ErrInvalidTimerType),
		errors.Is(err, domain.ErrUnknownAction):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
