package api

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/hammamikhairi/tomato/internal/domain"
)

const (
	defaultUserAgent = "tomato/0.1"
	requestTimeout   = 5 * time.Second
	maxStreamLine    = 64 << 10
)

// ErrStreamClosed is returned by Stream when the daemon ends the stream.
var ErrStreamClosed = errors.New("stream closed by daemon")

// APIError is a non-2xx answer from the daemon.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("daemon returned status %d", e.Status)
	}
	return fmt.Sprintf("daemon returned status %d: %s", e.Status, e.Message)
}

// Client talks to tomatod over its unix socket.
type Client struct {
	baseURL   *url.URL
	http      *http.Client
	stream    *http.Client
	userAgent string
}

// NewClient builds a Client that dials socketPath for every request.
func NewClient(socketPath string) *Client {
	transport := &http.Transport{
		DialContext: func(ctx context.Context, _, _ string) (net.Conn, error) {
			var d net.Dialer
			return d.DialContext(ctx, "unix", socketPath)
		},
		MaxIdleConns:    2,
		IdleConnTimeout: 30 * time.Second,
	}
	return &Client{
		baseURL: &url.URL{Scheme: "http", Host: "tomato"},
		http: &http.Client{
			Transport: transport,
			Timeout:   requestTimeout,
		},
		// Streams stay open indefinitely; the caller's context ends them.
		stream:    &http.Client{Transport: transport},
		userAgent: defaultUserAgent,
	}
}

// Do sends cmd and returns the resulting state.
func (c *Client) Do(ctx context.Context, cmd domain.Command) (domain.TimerState, error) {
	body, err := json.Marshal(cmd)
	if err != nil {
		return domain.TimerState{}, fmt.Errorf("encode command: %w", err)
	}

	if cmd.Action == domain.ActionGetTime {
		var state domain.TimerState
		if err := c.doURL(ctx, http.MethodPost, PathCommand, body, &state); err != nil {
			return domain.TimerState{}, err
		}
		return state, nil
	}

	var resp CommandResponse
	if err := c.doURL(ctx, http.MethodPost, PathCommand, body, &resp); err != nil {
		return domain.TimerState{}, err
	}
	if !resp.Success || resp.State == nil {
		return domain.TimerState{}, &APIError{Status: http.StatusOK, Message: resp.Error}
	}
	return *resp.State, nil
}

// State fetches the current state.
func (c *Client) State(ctx context.Context) (domain.TimerState, error) {
	var state domain.TimerState
	if err := c.doURL(ctx, http.MethodGet, PathState, nil, &state); err != nil {
		return domain.TimerState{}, err
	}
	return state, nil
}

// ActivateNotification reports that the user clicked notification id.
func (c *Client) ActivateNotification(ctx context.Context, id string) error {
	rel := PathActivate + "?" + url.Values{"id": {id}}.Encode()
	return c.doURL(ctx, http.MethodPost, rel, nil, nil)
}

// Stream attaches as an observer and calls fn with every state, starting
// with the current one. It blocks until ctx is cancelled (returning
// ctx.Err()) or the connection ends.
func (c *Client) Stream(ctx context.Context, fn func(domain.TimerState)) error {
	req, err := c.newRequest(ctx, http.MethodGet, PathStream, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/x-ndjson")

	resp, err := c.stream.Do(req)
	if err != nil {
		return fmt.Errorf("open stream: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 400 {
		return &APIError{Status: resp.StatusCode}
	}

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 1024), maxStreamLine)
	for scanner.Scan() {
		var state domain.TimerState
		if err := json.Unmarshal(scanner.Bytes(), &state); err != nil {
			return fmt.Errorf("decode stream: %w", err)
		}
		fn(state)
	}

	if ctx.Err() != nil {
		return ctx.Err()
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read stream: %w", err)
	}
	return ErrStreamClosed
}

func (c *Client) newRequest(ctx context.Context, method, rel string, body []byte) (*http.Request, error) {
	ref, err := url.Parse(rel)
	if err != nil {
		return nil, fmt.Errorf("parse path: %w", err)
	}
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL.ResolveReference(ref).String(), reader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}

func (c *Client) doURL(ctx context.Context, method, rel string, body []byte, dest any) error {
	req, err := c.newRequest(ctx, method, rel, body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 400 {
		apiErr := &APIError{Status: resp.StatusCode}
		var payload CommandResponse
		if json.NewDecoder(resp.Body).Decode(&payload) == nil {
			apiErr.Message = payload.Error
		}
		return apiErr
	}
	if dest == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
