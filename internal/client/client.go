// Package client reads evaluation results from a running platewatch server.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	service "github.com/okian/platewatch/internal/app"
	"github.com/okian/platewatch/internal/domain/report"
)

const (
	defaultTimeout = 10 * time.Second
	maxErrorBody   = 1 << 10
)

// Client is a thin JSON client over the report API.
type Client struct {
	baseURL string
	http    *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// New returns a client for the server at baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Report returns the latest report.
func (c *Client) Report(ctx context.Context) (*report.Report, error) {
	var r report.Report
	if err := c.get(ctx, "/report", &r); err != nil {
		return nil, err
	}
	return &r, nil
}

// Category returns one category of the latest report.
func (c *Client) Category(ctx context.Context, id int) (*report.Category, error) {
	var cat report.Category
	if err := c.get(ctx, "/categories/"+strconv.Itoa(id), &cat); err != nil {
		return nil, err
	}
	return &cat, nil
}

// AthleteFlags is the server's answer for one athlete.
type AthleteFlags struct {
	AthleteID  string                   `json:"athlete_id" yaml:"athlete_id"`
	RunID      string                   `json:"run_id" yaml:"run_id"`
	Categories []report.AthleteCategory `json:"categories" yaml:"categories"`
}

// Athlete returns the categories an athlete is flagged in.
func (c *Client) Athlete(ctx context.Context, id string) (*AthleteFlags, error) {
	var a AthleteFlags
	if err := c.get(ctx, "/athletes/"+url.PathEscape(id), &a); err != nil {
		return nil, err
	}
	return &a, nil
}

// Stats returns the server's service statistics.
func (c *Client) Stats(ctx context.Context) (*service.Stats, error) {
	var st service.Stats
	if err := c.get(ctx, "/stats", &st); err != nil {
		return nil, err
	}
	return &st, nil
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, http.NoBody)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: GET %s: %w", ErrRequest, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return statusError(resp)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: GET %s: %w", ErrDecode, path, err)
	}
	return nil
}

// statusError maps a non-200 answer to a sentinel, keeping the server's
// error message.
func statusError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	var e struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	}
	msg := strings.TrimSpace(string(body))
	if json.Unmarshal(body, &e) == nil && e.Message != "" {
		msg = e.Message
	}

	var sentinel error
	switch resp.StatusCode {
	case http.StatusNotFound:
		sentinel = ErrNotFound
	case http.StatusServiceUnavailable:
		sentinel = ErrNoReport
	default:
		sentinel = ErrUnexpectedStatus
	}
	return fmt.Errorf("%w: %d %s", sentinel, resp.StatusCode, msg)
}
