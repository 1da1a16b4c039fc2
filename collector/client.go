package collector

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ftahirops/circuittop/model"
)

// ErrBadStatus is returned when the server answers with a non-2xx status.
var ErrBadStatus = errors.New("unexpected HTTP status")

// maxBodyBytes caps how much of a poll response is read.
const maxBodyBytes = 8 << 20

// HTTPDoer is the subset of *http.Client the client needs.
type HTTPDoer interface {
	Do(*http.Request) (*http.Response, error)
}

// ClientOptions configures a Client. Zero values pick the defaults used by
// the Ficsit Remote Monitoring web server.
type ClientOptions struct {
	BaseURL   string
	PollPath  string
	ResetPath string
	Timeout   time.Duration
	HTTP      HTTPDoer
}

// Client talks to the remote monitoring web server.
type Client struct {
	baseURL   string
	pollPath  string
	resetPath string
	http      HTTPDoer
}

// NewClient builds a client. A zero Timeout means no client-side timeout.
func NewClient(opts ClientOptions) *Client {
	c := &Client{
		baseURL:   strings.TrimRight(opts.BaseURL, "/"),
		pollPath:  normalizePath(opts.PollPath, "/getPower"),
		resetPath: normalizePath(opts.ResetPath, "/setCircuit"),
		http:      opts.HTTP,
	}
	if c.http == nil {
		c.http = &http.Client{Timeout: opts.Timeout}
	}
	return c
}

func normalizePath(p, def string) string {
	if p == "" {
		return def
	}
	if !strings.HasPrefix(p, "/") {
		return "/" + p
	}
	return p
}

// Name implements Source.
func (c *Client) Name() string { return "http" }

// Collect fetches and decodes the power circuits.
func (c *Client) Collect(ctx context.Context) (model.Dataset, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+c.pollPath, nil)
	if err != nil {
		return nil, fmt.Errorf("build poll request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("poll %s: %w", c.pollPath, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))
		return nil, fmt.Errorf("poll %s: %w: %s", c.pollPath, ErrBadStatus, resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read poll body: %w", err)
	}
	ds, err := model.ParseDataset(body)
	if err != nil {
		return nil, fmt.Errorf("poll %s: %w", c.pollPath, err)
	}
	return ds, nil
}

// ResetCircuit sends the reset action for one circuit. The response body is
// discarded.
func (c *Client) ResetCircuit(ctx context.Context, id model.CircuitID) error {
	q := url.Values{}
	q.Set("circuit", string(id))
	q.Set("action", "reset")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+c.resetPath+"?"+q.Encode(), nil)
	if err != nil {
		return fmt.Errorf("build reset request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("reset circuit %s: %w", id, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("reset circuit %s: %w: %s", id, ErrBadStatus, resp.Status)
	}
	return nil
}
