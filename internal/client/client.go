// Package client is the console's REST client: JSON in and out, a bearer
// token on every request when one is present, and a hook for 401s so the
// session layer can drop a dead token.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sajagmathur/mlconsole/internal/metrics"
)

// Options configures a Client.
type Options struct {
	Timeout time.Duration
	// TokenSource returns the current bearer token, or "" when logged out.
	TokenSource func() string
	// OnUnauthorized runs when any request comes back 401, before the error
	// is returned. The stored token is already useless at that point.
	OnUnauthorized func()
	Metrics        *metrics.Metrics
}

// Client issues authenticated JSON requests against the console backend.
type Client struct {
	base           string
	http           *http.Client
	tokenSource    func() string
	onUnauthorized func()
	metrics        *metrics.Metrics
}

// New creates a Client for the given base URL.
func New(baseURL string, opts Options) *Client {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		base:           strings.TrimRight(baseURL, "/"),
		http:           &http.Client{Timeout: timeout},
		tokenSource:    opts.TokenSource,
		onUnauthorized: opts.OnUnauthorized,
		metrics:        opts.Metrics,
	}
}

// Get issues a GET and decodes the response into out (out may be nil).
func (c *Client) Get(ctx context.Context, path string, out any) error {
	return c.do(ctx, http.MethodGet, path, nil, out)
}

// Post issues a POST with a JSON body and decodes the response into out.
func (c *Client) Post(ctx context.Context, path string, body, out any) error {
	return c.do(ctx, http.MethodPost, path, body, out)
}

// Put issues a PUT with a JSON body and decodes the response into out.
func (c *Client) Put(ctx context.Context, path string, body, out any) error {
	return c.do(ctx, http.MethodPut, path, body, out)
}

// Delete issues a DELETE. Response bodies are discarded.
func (c *Client) Delete(ctx context.Context, path string) error {
	return c.do(ctx, http.MethodDelete, path, nil, nil)
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, reader)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.tokenSource != nil {
		if token := c.tokenSource(); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if c.metrics != nil {
			c.metrics.IncAPIRequest(method, path, 0)
		}
		return fmt.Errorf("sending %s %s: %w", method, path, err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
	}()

	if c.metrics != nil {
		c.metrics.IncAPIRequest(method, path, resp.StatusCode)
	}

	if resp.StatusCode == http.StatusUnauthorized {
		if c.onUnauthorized != nil {
			c.onUnauthorized()
		}
		return &HTTPError{Status: resp.StatusCode, StatusText: resp.Status}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// The body is deliberately not parsed on error.
		return &HTTPError{Status: resp.StatusCode, StatusText: resp.Status}
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decoding response: %w", err)
		}
	}
	return nil
}
