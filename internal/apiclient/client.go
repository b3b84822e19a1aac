package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/me/rtodash/internal/metrics"
	"github.com/me/rtodash/pkg/model"
)

// TokenSource supplies the bearer token for a request. Implementations must
// only return unexpired tokens.
type TokenSource interface {
	ValidToken(ctx context.Context) (string, bool)
}

// ResponseHook is called for every API response before its body is read.
type ResponseHook func(ctx context.Context, resp *http.Response)

// UnauthorizedHook returns a hook that calls fn on any 401 response.
func UnauthorizedHook(fn func(ctx context.Context)) ResponseHook {
	return func(ctx context.Context, resp *http.Response) {
		if resp.StatusCode == http.StatusUnauthorized {
			fn(ctx)
		}
	}
}

// Client is an HTTP client for the reminder REST API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	tokens     TokenSource
	hooks      []ResponseHook
	metrics    *metrics.Metrics
	logger     *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default pooled HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithResponseHook appends a response hook.
func WithResponseHook(h ResponseHook) Option {
	return func(c *Client) { c.hooks = append(c.hooks, h) }
}

// WithMetrics records request counts and latency.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

// DefaultHTTPClient is shared by all clients that do not bring their own,
// so every dashboard client reuses one connection pool.
var DefaultHTTPClient = &http.Client{
	Timeout: 30 * time.Second,
	Transport: &http.Transport{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 20,
		IdleConnTimeout:     90 * time.Second,
	},
}

// New creates an API client. baseURL includes the version prefix,
// e.g. "https://api.example.com/api/v1".
func New(baseURL string, tokens TokenSource, logger *slog.Logger, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: DefaultHTTPClient,
		tokens:     tokens,
		logger:     logger.With("component", "apiclient"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// do performs a request and decodes the envelope. When out is non-nil the
// envelope's data is decoded into it.
func (c *Client) do(ctx context.Context, method, path string, body, out any) (*model.Envelope, error) {
	route := method + " " + path
	url := c.baseURL + path

	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.tokens != nil {
		if tok, ok := c.tokens.ValidToken(ctx); ok {
			req.Header.Set("Authorization", "Bearer "+tok)
		}
	}

	c.logger.Debug("HTTP request", "route", route)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.metrics.ObserveAPI(route, 0, time.Since(start))
		return nil, fmt.Errorf("%s: %w", route, err)
	}
	defer resp.Body.Close()
	c.metrics.ObserveAPI(route, resp.StatusCode, time.Since(start))

	for _, h := range c.hooks {
		h(ctx, resp)
	}

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%s: read response: %w", route, err)
	}

	c.logger.Debug("HTTP response", "route", route, "status", resp.StatusCode)

	var env model.Envelope
	if len(bytes.TrimSpace(respBody)) > 0 {
		if err := json.Unmarshal(respBody, &env); err != nil && resp.StatusCode < 300 {
			return nil, fmt.Errorf("%s: parse response (status %d): %w", route, resp.StatusCode, err)
		}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &env, &model.APIError{Status: resp.StatusCode, Message: env.Message}
	}

	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return &env, fmt.Errorf("%s: decode data: %w", route, err)
		}
	}
	return &env, nil
}
