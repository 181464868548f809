// Package traffic queries a distance-matrix routing API for live crossing
// durations and blends them with historical baselines into a single traffic
// multiplier.
package traffic

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/causewaylabs/crossingd/internal/border"
	"github.com/causewaylabs/crossingd/internal/config"
	"github.com/causewaylabs/crossingd/pkg/logger"
	"github.com/tidwall/gjson"
)

// Client fetches live durations from a Google Distance-Matrix-style API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	logger     *logger.Logger
}

// NewClient creates a live-traffic client from configuration
func NewClient(cfg config.TrafficConfig, timeout time.Duration, log *logger.Logger) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    cfg.APIBaseURL,
		apiKey:     cfg.APIKey,
		logger:     log.Named("traffic-client"),
	}
}

// LiveDuration returns the current crossing duration with and without
// traffic. Returns ErrUnavailable when credentials are missing; transport
// and payload errors are wrapped so callers can log the cause.
func (c *Client) LiveDuration(ctx context.Context, checkpoint border.Checkpoint, direction border.Direction) (*LiveDuration, error) {
	if c.apiKey == "" {
		return nil, ErrUnavailable
	}

	origin, destination := routeCoords(checkpoint, direction)

	params := url.Values{}
	params.Set("origins", origin)
	params.Set("destinations", destination)
	params.Set("departure_time", "now")
	params.Set("traffic_model", "best_guess")
	params.Set("key", c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	c.logger.Debug("Fetching live traffic duration",
		logger.String("checkpoint", string(checkpoint)),
		logger.String("direction", string(direction)),
	)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if status := gjson.GetBytes(body, "status").String(); status != "OK" {
		return nil, fmt.Errorf("routing API error: %s", status)
	}

	element := gjson.GetBytes(body, "rows.0.elements.0")
	if !element.Exists() {
		return nil, fmt.Errorf("response missing route element")
	}
	if status := element.Get("status").String(); status != "OK" {
		return nil, fmt.Errorf("route not found: %s", status)
	}

	durationSec := element.Get("duration.value").Float()
	if durationSec <= 0 {
		return nil, fmt.Errorf("response has non-positive duration")
	}

	// duration_in_traffic is only present with a departure_time; fall back
	// to the plain duration so the multiplier degrades to 1.0
	inTrafficSec := element.Get("duration_in_traffic.value").Float()
	if inTrafficSec <= 0 {
		inTrafficSec = durationSec
	}

	return &LiveDuration{
		DurationMinutes:          durationSec / 60,
		DurationInTrafficMinutes: inTrafficSec / 60,
		DistanceMeters:           element.Get("distance.value").Float(),
		Raw:                      string(body),
	}, nil
}
