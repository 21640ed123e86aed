// Package api is the HTTP client for the remote cash count API.
//
// Every call carries basic-auth credentials supplied by the caller. Failed
// requests are reported once; there is no retry or backoff.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"cashcount/internal/core"
	"cashcount/internal/ports"
)

var (
	ErrNotAuthenticated = errors.New("not authenticated")
	ErrUnauthorized     = errors.New("credentials rejected by API")
	ErrRequestFailed    = errors.New("failed to fetch")
)

// Client talks to the remote API.
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
}

// Ensure interface conformance
var (
	_ ports.Authenticator   = (*Client)(nil)
	_ ports.RegistryReader  = (*Client)(nil)
	_ ports.RegistryWriter  = (*Client)(nil)
	_ ports.CashCountReader = (*Client)(nil)
	_ ports.CashCountWriter = (*Client)(nil)
)

// NewClient creates a client for baseURL (e.g. "http://localhost:8080").
// A nil httpClient gets a default client bounded by timeout.
func NewClient(baseURL string, httpClient *http.Client, timeout time.Duration) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(strings.TrimSpace(baseURL), "/"))
	if err != nil {
		return nil, fmt.Errorf("parse API base URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("API base URL must be http or https, got %q", baseURL)
	}
	if httpClient == nil {
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	return &Client{baseURL: u, httpClient: httpClient}, nil
}

// BaseURL returns the configured API root.
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

// Login checks the credentials against GET /api/login. Only the status matters.
func (c *Client) Login(ctx context.Context, creds core.Credentials) error {
	return c.do(ctx, creds, http.MethodGet, "/api/login", nil, nil)
}

func (c *Client) ListRegistries(ctx context.Context, creds core.Credentials) ([]core.Registry, error) {
	var out []registryDTO
	if err := c.do(ctx, creds, http.MethodGet, "/api/registries", nil, &out); err != nil {
		return nil, fmt.Errorf("list registries: %w", err)
	}
	regs := make([]core.Registry, len(out))
	for i, r := range out {
		regs[i] = r.toCore()
	}
	return regs, nil
}

func (c *Client) CreateRegistry(ctx context.Context, creds core.Credentials, name string) (core.Registry, error) {
	var out registryDTO
	body := map[string]string{"name": strings.TrimSpace(name)}
	if err := c.do(ctx, creds, http.MethodPost, "/api/registries", body, &out); err != nil {
		return core.Registry{}, fmt.Errorf("create registry: %w", err)
	}
	return out.toCore(), nil
}

func (c *Client) ListCashCounts(ctx context.Context, creds core.Credentials) ([]core.CashCount, error) {
	var out []cashCountDTO
	if err := c.do(ctx, creds, http.MethodGet, "/api/cash_counts", nil, &out); err != nil {
		return nil, fmt.Errorf("list cash counts: %w", err)
	}
	counts := make([]core.CashCount, len(out))
	for i, cc := range out {
		counts[i] = cc.toCore()
	}
	return counts, nil
}

func (c *Client) CreateCashCount(ctx context.Context, creds core.Credentials, cc core.CashCount) (int64, error) {
	var out struct {
		ID int64 `json:"id"`
	}
	if err := c.do(ctx, creds, http.MethodPost, "/api/cash_counts", cashCountFromCore(cc), &out); err != nil {
		return 0, fmt.Errorf("create cash count: %w", err)
	}
	return out.ID, nil
}

func (c *Client) do(ctx context.Context, creds core.Credentials, method, path string, body, out any) error {
	if creds.IsZero() {
		return ErrNotAuthenticated
	}

	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL.String()+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.SetBasicAuth(creds.Username, creds.Password)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		slog.ErrorContext(ctx, "API request failed", "method", method, "path", path, "error", err)
		return fmt.Errorf("%w: %s %s: %v", ErrRequestFailed, method, path, err)
	}
	defer resp.Body.Close()

	slog.DebugContext(ctx, "API request completed",
		"method", method,
		"path", path,
		"status_code", resp.StatusCode,
		"duration_ms", time.Since(start).Milliseconds())

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return ErrUnauthorized
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return fmt.Errorf("%w: %s %s: status %d", ErrRequestFailed, method, path, resp.StatusCode)
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s response: %w", method, path, err)
	}
	return nil
}
