// Package weather fetches current conditions near the border crossing from an
// OpenWeatherMap-style API, degrading to documented defaults whenever the
// provider is unavailable.
package weather

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/causewaylabs/crossingd/internal/config"
	"github.com/causewaylabs/crossingd/pkg/logger"
	"github.com/tidwall/gjson"
)

// Provider returns the current weather observation. Implementations never
// fail: when live data cannot be fetched they return the default observation
// tagged SourceDefault.
type Provider interface {
	Current(ctx context.Context) Observation
}

// Client fetches weather from the configured API with a short-lived cache
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	lat        float64
	lon        float64
	cacheTTL   time.Duration
	cache      cache
	logger     *logger.Logger
}

// NewClient creates a weather client from configuration
func NewClient(cfg config.WeatherConfig, timeout time.Duration, log *logger.Logger) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    cfg.APIBaseURL,
		apiKey:     cfg.APIKey,
		lat:        cfg.Latitude,
		lon:        cfg.Longitude,
		cacheTTL:   time.Duration(cfg.CacheExpiryMinutes) * time.Minute,
		logger:     log.Named("weather-client"),
	}
}

// Current returns the latest observation, serving from cache when fresh.
// Any failure (missing key, timeout, bad payload) yields the default
// observation; the request itself never fails.
func (c *Client) Current(ctx context.Context) Observation {
	now := time.Now().UTC()

	if obs, ok := c.cache.get(now); ok {
		return obs
	}

	if c.apiKey == "" {
		c.logger.Debug("Weather API key not configured, using default observation")
		return DefaultObservation(now)
	}

	obs, err := c.fetch(ctx, now)
	if err != nil {
		c.logger.Warn("Failed to fetch weather, using default observation", logger.Error(err))
		return DefaultObservation(now)
	}

	c.cache.set(obs, c.cacheTTL)
	return obs
}

func (c *Client) fetch(ctx context.Context, now time.Time) (Observation, error) {
	params := url.Values{}
	params.Set("lat", fmt.Sprintf("%.4f", c.lat))
	params.Set("lon", fmt.Sprintf("%.4f", c.lon))
	params.Set("appid", c.apiKey)
	params.Set("units", "metric")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return Observation{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Observation{}, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Observation{}, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Observation{}, fmt.Errorf("failed to read response body: %w", err)
	}

	temp := gjson.GetBytes(body, "main.temp")
	if !temp.Exists() {
		return Observation{}, fmt.Errorf("response missing main.temp")
	}

	obs := Observation{
		// rain.1h is absent entirely when it is not raining
		RainMM:    gjson.GetBytes(body, "rain.1h").Float(),
		TempC:     temp.Float(),
		Source:    SourceLive,
		FetchedAt: now,
	}

	c.logger.Debug("Fetched weather observation",
		logger.Float64("rain_mm", obs.RainMM),
		logger.Float64("temp_c", obs.TempC),
	)

	return obs, nil
}
