// Package remote implements the HTTP client for the remote document-store
// API, the authoritative source of truth for events, groups and series.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"github.com/dkhoury/meetsync/internal/config"
	"github.com/dkhoury/meetsync/internal/ratelimit"
)

// APIError is a non-2xx response from the remote API.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("remote API returned status %d: %s", e.StatusCode, e.Message)
}

// IsNotFound reports whether err is an authoritative 404 from the remote API.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

// IsConflict reports whether err is a 409 from the remote API.
func IsConflict(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusConflict
}

// Client talks to the remote document-store API.
type Client struct {
	baseURL    string
	healthURL  string
	httpClient *http.Client
	limiter    *ratelimit.Limiter
	logger     *zap.Logger
}

// NewClient creates a remote API client authenticated with the configured
// bearer token.
func NewClient(cfg *config.RemoteConfig, logger *zap.Logger) *Client {
	tokenSource := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.APIToken})
	httpClient := oauth2.NewClient(context.Background(), tokenSource)

	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		healthURL:  cfg.HealthURL,
		httpClient: httpClient,
		// Default pacing: 10 requests per second with small bursts.
		limiter: ratelimit.New(10, 5, logger),
		logger:  logger,
	}
}

// SetBaseURL overrides the API base URL (used for testing).
func (c *Client) SetBaseURL(base string) {
	c.baseURL = strings.TrimRight(base, "/")
	c.healthURL = c.baseURL + "/healthz"
}

// NewDocumentID returns a fresh identifier for a new document. Ids are
// generated client-side and never reused or looked up.
func (c *Client) NewDocumentID() string {
	return uuid.NewString()
}

// Health checks whether the remote API is reachable.
func (c *Client) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.healthURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create health request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("remote health check failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("remote health check returned status %d", resp.StatusCode)
	}

	return nil
}

// do performs a rate-limited request against the API. Path is relative to
// the base URL; body (if non-nil) is sent as JSON.
func (c *Client) do(ctx context.Context, method, path string, body any) (*http.Response, error) {
	endpoint := bucketKey(method, path)
	if err := c.limiter.Wait(ctx, endpoint); err != nil {
		return nil, fmt.Errorf("rate limit wait failed: %w", err)
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to make request: %w", err)
	}

	c.limiter.Observe(endpoint, resp)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		defer func() { _ = resp.Body.Close() }()
		data, _ := io.ReadAll(resp.Body)
		return nil, &APIError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(data))}
	}

	return resp, nil
}

// getJSON performs a GET and decodes the response body into T.
func getJSON[T any](ctx context.Context, c *Client, path string) (T, error) {
	var out T

	resp, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return out, err
	}
	defer func() { _ = resp.Body.Close() }()

	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return out, fmt.Errorf("failed to decode response: %w", err)
	}

	return out, nil
}

// send performs a request with a JSON body and discards the response body.
func (c *Client) send(ctx context.Context, method, path string, body any) error {
	resp, err := c.do(ctx, method, path, body)
	if err != nil {
		return err
	}
	_ = resp.Body.Close()
	return nil
}

// bucketKey collapses paths with identifiers into one rate-limit bucket per
// collection and method.
func bucketKey(method, path string) string {
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) > 2 {
		parts = parts[:2]
	}
	return method + " /" + strings.Join(parts, "/")
}

// listQuery builds the query string shared by collection fetches.
func listQuery(params map[string]string) string {
	values := url.Values{}
	for k, v := range params {
		if v != "" {
			values.Set(k, v)
		}
	}
	if len(values) == 0 {
		return ""
	}
	return "?" + values.Encode()
}
