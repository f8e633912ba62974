// Package client provides a REST client for the anikama backend API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/anikama/anikama-cli/internal/metrics"
)

// TokenSource returns the current bearer token, or "" when no session exists.
type TokenSource func() string

// Client is a REST client for the anikama backend.
type Client struct {
	baseURL    string
	httpClient *http.Client
	token      TokenSource
	logger     *slog.Logger
	metrics    *metrics.Collector
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client. Its transport is
// wrapped with request logging.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithTimeout sets the HTTP client timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.httpClient.Timeout = d }
}

// WithTokenSource sets where bearer tokens come from.
func WithTokenSource(ts TokenSource) Option {
	return func(c *Client) { c.token = ts }
}

// WithLogger sets the request logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// WithMetrics records request timings into the collector.
func WithMetrics(m *metrics.Collector) Option {
	return func(c *Client) { c.metrics = m }
}

// New creates a new REST client.
// If baseURL is empty, uses ANIKAMA_API_URL env var or defaults to localhost:8080.
func New(baseURL string, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = os.Getenv("ANIKAMA_API_URL")
	}
	if baseURL == "" {
		baseURL = "http://localhost:8080"
	}

	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
		token:      func() string { return "" },
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}

	base := c.httpClient.Transport
	if base == nil {
		base = http.DefaultTransport
	}
	hc := *c.httpClient
	hc.Transport = &loggingTransport{base: base, logger: c.logger, metrics: c.metrics}
	c.httpClient = &hc

	return c
}

// BaseURL returns the API base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// authMode controls how a request is authenticated.
type authMode int

const (
	// authNone sends no Authorization header.
	authNone authMode = iota
	// authOptional attaches the bearer token when a session exists.
	authOptional
	// authRequired fails with ErrUnauthenticated before sending when no session exists.
	authRequired
)

// call describes one API request.
type call struct {
	method   string
	route    string // route template used for logs and metrics
	path     string
	auth     authMode
	body     any
	fallback string // message used when the backend gives none
}

// do sends a request and decodes a JSON response into result.
func (c *Client) do(ctx context.Context, rc call, result any) error {
	token := c.token()
	if rc.auth == authRequired && token == "" {
		return ErrUnauthenticated
	}

	var body io.Reader
	if rc.body != nil {
		reqBody, err := json.Marshal(rc.body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(reqBody)
	}

	ctx = withRoute(ctx, rc.method+" "+rc.route)
	req, err := http.NewRequestWithContext(ctx, rc.method, c.baseURL+rc.path, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if token != "" && rc.auth != authNone {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return newAPIError(resp.StatusCode, respBody, rc.fallback)
	}

	if result != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("unmarshal response: %w", err)
		}
	}

	return nil
}
