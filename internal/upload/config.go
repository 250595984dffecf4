// Package upload implements the background upload sidecar: a best-effort,
// fire-and-forget archival copy of the original photo. Nothing in this
// package ever propagates an error to the analysis flow.
package upload

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
)

// Config is the remote upload configuration, fetched once per process.
type Config struct {
	CloudName    string `json:"cloudName"`
	UploadPreset string `json:"uploadPreset"`
	ClientIP     string `json:"clientIp,omitempty"`
	AnonID       string `json:"anonID,omitempty"`
	UserAgent    string `json:"userAgent,omitempty"`
	Language     string `json:"language,omitempty"`
	BrowserName  string `json:"browserName,omitempty"`
}

// ConfigClient fetches the upload configuration and memoizes the first
// outcome for the process lifetime. Fetched config is immutable, so a
// single fetch is enough; concurrent first callers share one request.
type ConfigClient struct {
	url        string
	httpClient *http.Client

	once sync.Once
	cfg  *Config
	err  error
}

// ConfigClientOption configures the config client.
type ConfigClientOption func(*ConfigClient)

// WithConfigHTTPClient sets a custom HTTP client.
func WithConfigHTTPClient(httpClient *http.Client) ConfigClientOption {
	return func(c *ConfigClient) {
		c.httpClient = httpClient
	}
}

// NewConfigClient creates a client for the upload-config endpoint.
func NewConfigClient(url string, opts ...ConfigClientOption) *ConfigClient {
	c := &ConfigClient{
		url:        url,
		httpClient: http.DefaultClient,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Fetch returns the upload configuration, performing the network call at
// most once per process.
func (c *ConfigClient) Fetch(ctx context.Context) (*Config, error) {
	c.once.Do(func() {
		c.cfg, c.err = c.fetch(ctx)
	})
	return c.cfg, c.err
}

func (c *ConfigClient) fetch(ctx context.Context) (*Config, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("config fetch failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("config fetch failed: status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := json.Unmarshal(body, &cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if cfg.CloudName == "" || cfg.UploadPreset == "" {
		return nil, fmt.Errorf("config missing cloudName or uploadPreset")
	}

	return &cfg, nil
}
