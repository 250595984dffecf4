// Package analysis implements the request orchestrator: the analysis HTTP
// client, the retry/fallback state machine, and the pipeline that ties the
// rate limiter, compressor, normalizer and upload sidecar together.
package analysis

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/styleglow/analyzer/internal/domain"
	"github.com/styleglow/analyzer/internal/wire"
)

const defaultBaseURL = "https://api.styleglow.app"

// ClientOption configures the client.
type ClientOption func(*Client)

// WithBaseURL sets a custom base URL.
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.baseURL = strings.TrimSuffix(baseURL, "/")
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// Client is the HTTP client for the analysis backend.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a new analysis backend client.
func NewClient(apiKey string, opts ...ClientOption) *Client {
	c := &Client{
		apiKey:     apiKey,
		baseURL:    defaultBaseURL,
		httpClient: http.DefaultClient,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Analyze sends one analysis attempt and returns the raw response body.
// Outcomes map onto the retry state machine's vocabulary: HTTP 503 becomes
// an overloaded error, a context deadline becomes a timeout error, and any
// other failure is a network error.
func (c *Client) Analyze(ctx context.Context, req *wire.Request) ([]byte, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/analyze", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	httpReq.Header.Set("User-Agent", "styleglow-analyzer/1.0")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, domain.ErrTimeout("analysis request deadline exceeded")
		}
		return nil, domain.ErrNetwork(fmt.Sprintf("request failed: %v", err))
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, domain.ErrNetwork(fmt.Sprintf("failed to read response: %v", err))
	}

	switch {
	case resp.StatusCode == http.StatusServiceUnavailable:
		return nil, domain.ErrOverloaded(fmt.Sprintf("model overloaded (model %s)", req.Model))
	case resp.StatusCode != http.StatusOK:
		return nil, domain.ErrNetwork(fmt.Sprintf("API error (status %d): %s", resp.StatusCode, truncate(respBody, 256)))
	}

	return respBody, nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
