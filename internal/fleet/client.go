// Package fleet fetches truck states from the fleet backend, either by
// polling its HTTP API or by subscribing to its WebSocket stream.
package fleet

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/fleetfeast/pogicity/internal/parser"
	"github.com/fleetfeast/pogicity/pkg/core"
	"golang.org/x/time/rate"
)

// TrucksPath is the fleet backend endpoint listing all trucks.
const TrucksPath = "/api/v1/trucks"

// maxBody caps the size of a truck listing.
const maxBody = 8 << 20

// Client handles communication with the fleet backend.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// New creates a new API client. requestsPerSecond <= 0 disables rate limiting.
func New(baseURL, apiKey string, requestsPerSecond float64) *Client {
	limit := rate.Inf
	if requestsPerSecond > 0 {
		limit = rate.Limit(requestsPerSecond)
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		limiter:    rate.NewLimiter(limit, 1),
	}
}

func (c *Client) get(ctx context.Context, path string) (*http.Response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	req.Header.Set("Accept", "application/json")
	return c.httpClient.Do(req)
}

// Healthcheck checks if the fleet backend is reachable.
func (c *Client) Healthcheck(ctx context.Context) error {
	resp, err := c.get(ctx, "/healthcheck")
	if err != nil {
		return fmt.Errorf("healthcheck request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("healthcheck returned status %d", resp.StatusCode)
	}
	return nil
}

// FetchTrucks returns the current state of every truck.
func (c *Client) FetchTrucks(ctx context.Context) (core.TruckSnapshot, error) {
	resp, err := c.get(ctx, TrucksPath)
	if err != nil {
		return core.TruckSnapshot{}, fmt.Errorf("trucks request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return core.TruckSnapshot{}, fmt.Errorf("trucks request returned status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return core.TruckSnapshot{}, fmt.Errorf("failed to read trucks: %w", err)
	}
	return parser.DecodeTrucks(body, time.Now().UTC())
}
