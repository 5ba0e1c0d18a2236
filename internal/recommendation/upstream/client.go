// Package upstream implements recommendation.Provider against the external
// trail ranking service.
package upstream

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/trailhub/trailhub/internal/provider/resilience"
	"github.com/trailhub/trailhub/internal/recommendation"
)

const (
	// ProviderName identifies this recommendation provider.
	ProviderName = "recommendation-service"

	// DefaultBaseURL is used when no base URL is configured.
	DefaultBaseURL = "http://localhost:8090"

	// MaxResponseBytes caps the body read from the service.
	MaxResponseBytes = 4 << 20
)

// ClientConfig holds configuration for the recommendation-service client.
type ClientConfig struct {
	// BaseURL is the service base URL (optional).
	BaseURL string

	// APIKey is sent as X-API-Key when set.
	APIKey string

	// HTTPClient is the HTTP client to use (optional).
	// If nil, uses a resilient client with defaults.
	HTTPClient *resilience.Client

	// Logger for client operations.
	Logger zerolog.Logger
}

// Client is a recommendation-service API client.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *resilience.Client
	logger     zerolog.Logger
}

// NewClient creates a new recommendation-service client.
func NewClient(cfg ClientConfig) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = resilience.NewClient(resilience.DefaultClientConfig(ProviderName))
	}

	return &Client{
		baseURL:    baseURL,
		apiKey:     cfg.APIKey,
		httpClient: httpClient,
		logger:     cfg.Logger,
	}
}

// Name returns the provider name.
func (c *Client) Name() string {
	return ProviderName
}

// Fetch returns the raw ranking payload for q.
func (c *Client) Fetch(ctx context.Context, q recommendation.Query) ([]byte, error) {
	params := url.Values{}
	params.Set("location", q.Location)
	if q.Limit > 0 {
		params.Set("limit", strconv.Itoa(q.Limit))
	}
	endpoint := c.baseURL + "/recommendations?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxResponseBytes+1))
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}
	if len(body) > MaxResponseBytes {
		return nil, fmt.Errorf("response exceeds %d bytes", MaxResponseBytes)
	}

	c.logger.Debug().
		Str("location", q.Location).
		Int("bytes", len(body)).
		Msg("fetched recommendations")

	return body, nil
}
