package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/matzehuels/algoviz/pkg/controller"
	apperrors "github.com/matzehuels/algoviz/pkg/errors"
	"github.com/matzehuels/algoviz/pkg/history"
	"github.com/matzehuels/algoviz/pkg/layout"
	"github.com/matzehuels/algoviz/pkg/state"
)

// Client drives a remote Server.
type Client struct {
	base     string
	http     *http.Client
	attempts int
	delay    time.Duration
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient sets the underlying HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.http = hc }
}

// WithRetry sets the number of attempts and the initial backoff for reads.
func WithRetry(attempts int, delay time.Duration) ClientOption {
	return func(c *Client) { c.attempts, c.delay = attempts, delay }
}

// NewClient creates a client for the server at baseURL
// (for example "http://localhost:8080").
func NewClient(baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		base:     strings.TrimRight(baseURL, "/"),
		http:     &http.Client{Timeout: 10 * time.Second},
		attempts: 3,
		delay:    200 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// State returns the current cells snapshot.
func (c *Client) State(ctx context.Context) (state.Snapshot, error) {
	var snap state.Snapshot
	err := c.do(ctx, http.MethodGet, "/state", nil, &snap)
	return snap, err
}

// Send applies a command. Commands are not retried: a retried start after a
// lost response would be refused as an invalid transition.
func (c *Client) Send(ctx context.Context, cmd controller.Command) (state.Snapshot, error) {
	var snap state.Snapshot
	err := c.do(ctx, http.MethodPost, "/commands/"+url.PathEscape(string(cmd)), nil, &snap)
	return snap, err
}

// SetSpeed sets the playback speed multiplier.
func (c *Client) SetSpeed(ctx context.Context, speed float64) (state.Snapshot, error) {
	var snap state.Snapshot
	err := c.do(ctx, http.MethodPut, "/speed", SpeedRequest{Speed: speed}, &snap)
	return snap, err
}

// Layout returns the current tree drawing.
func (c *Client) Layout(ctx context.Context) (layout.Layout[int], error) {
	var l layout.Layout[int]
	err := c.do(ctx, http.MethodGet, "/layout", nil, &l)
	return l, err
}

// Runs lists recorded runs, newest first.
func (c *Client) Runs(ctx context.Context, limit int) ([]*history.Run, error) {
	var runs []*history.Run
	err := c.do(ctx, http.MethodGet, "/runs?limit="+strconv.Itoa(limit), nil, &runs)
	return runs, err
}

// Run returns one recorded run.
func (c *Client) Run(ctx context.Context, id string) (*history.Run, error) {
	var run history.Run
	if err := c.do(ctx, http.MethodGet, "/runs/"+url.PathEscape(id), nil, &run); err != nil {
		return nil, err
	}
	return &run, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var payload []byte
	if body != nil {
		var err error
		if payload, err = json.Marshal(body); err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
	}

	attempts := c.attempts
	if method == http.MethodPost {
		attempts = 1
	}
	return Retry(ctx, attempts, c.delay, func() error {
		return c.once(ctx, method, path, payload, out)
	})
}

func (c *Client) once(ctx context.Context, method, path string, payload []byte, out any) error {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return &RetryableError{Err: fmt.Errorf("%s %s: %w", method, path, err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return decodeError(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}

// decodeError turns an error response back into a coded error.
func decodeError(resp *http.Response) error {
	var eb errorBody
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if json.Unmarshal(data, &eb) != nil || eb.Code == "" {
		eb = errorBody{Code: string(apperrors.ErrCodeInternal), Error: strings.TrimSpace(string(data))}
		if eb.Error == "" {
			eb.Error = resp.Status
		}
	}
	err := apperrors.New(apperrors.Code(eb.Code), "%s", eb.Error)
	if resp.StatusCode >= 500 {
		return &RetryableError{Err: err}
	}
	return err
}
