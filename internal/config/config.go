// Package config loads service configuration from a TOML file, applying
// defaults for anything not set.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

// Config is the root configuration for the service
type Config struct {
	Server     ServerConfig     `toml:"server"`
	Logging    LoggingConfig    `toml:"logging"`
	Storage    StorageConfig    `toml:"storage"`
	Model      ModelConfig      `toml:"model"`
	Weather    WeatherConfig    `toml:"weather"`
	Traffic    TrafficConfig    `toml:"traffic"`
	Calendar   CalendarConfig   `toml:"calendar"`
	Patterns   PatternsConfig   `toml:"patterns"`
	Prediction PredictionConfig `toml:"prediction"`
}

// ServerConfig holds the HTTP server settings
type ServerConfig struct {
	Host               string   `toml:"host"`
	Port               int      `toml:"port"`
	CORSAllowedOrigins []string `toml:"cors_allowed_origins"`
}

// LoggingConfig holds logging settings
type LoggingConfig struct {
	Level  string `toml:"level"`  // debug, info, warn, error
	Format string `toml:"format"` // json, console
}

// StorageConfig holds the SQLite store settings
type StorageConfig struct {
	SQLitePath string `toml:"sqlite_path"`
}

// ModelConfig holds the trained model artifact settings
type ModelConfig struct {
	Path string `toml:"path"`
}

// WeatherConfig holds the weather provider settings
type WeatherConfig struct {
	APIBaseURL            string  `toml:"api_base_url"`
	APIKey                string  `toml:"api_key"`
	Latitude              float64 `toml:"latitude"`
	Longitude             float64 `toml:"longitude"`
	RequestTimeoutSeconds int     `toml:"request_timeout_seconds"`
	CacheExpiryMinutes    int     `toml:"cache_expiry_minutes"`
}

// TrafficConfig holds the live-traffic provider settings
type TrafficConfig struct {
	APIBaseURL            string `toml:"api_base_url"`
	APIKey                string `toml:"api_key"`
	RequestTimeoutSeconds int    `toml:"request_timeout_seconds"`
}

// CalendarConfig carries the school-holiday date ranges. These need annual
// updates, so they are configuration rather than code.
type CalendarConfig struct {
	SchoolHolidays []SchoolHolidayRange `toml:"school_holidays"`
}

// SchoolHolidayRange is one school-holiday period for one country.
// Start and End are inclusive dates in YYYY-MM-DD form.
type SchoolHolidayRange struct {
	Country string `toml:"country"` // "SG" or "MY"
	Start   string `toml:"start"`
	End     string `toml:"end"`
}

// PatternsConfig tunes the checkpoint wait-time estimator
type PatternsConfig struct {
	HolidayMultiplier     float64 `toml:"holiday_multiplier"`
	BandLowFactor         float64 `toml:"band_low_factor"`
	BandHighFactor        float64 `toml:"band_high_factor"`
	MinWaitFloorMinutes   float64 `toml:"min_wait_floor_minutes"`
	HighConfidenceCount   int     `toml:"high_confidence_count"`
	MediumConfidenceCount int     `toml:"medium_confidence_count"`
	ShrinkagePriorCount   float64 `toml:"shrinkage_prior_count"`
}

// PredictionConfig tunes the prediction engine
type PredictionConfig struct {
	RelativeBand        float64 `toml:"relative_band"`        // CI half-width when the model has no variance
	ScenarioConcurrency int     `toml:"scenario_concurrency"` // parallel variants in a scenario run
}

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:               "0.0.0.0",
			Port:               8080,
			CORSAllowedOrigins: []string{"*"},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Storage: StorageConfig{
			SQLitePath: "./data/crossings.db",
		},
		Model: ModelConfig{
			Path: "./models/travel_time_model.json",
		},
		Weather: WeatherConfig{
			APIBaseURL: "https://api.openweathermap.org/data/2.5/weather",
			// Johor Bahru causeway area
			Latitude:              1.4655,
			Longitude:             103.7578,
			RequestTimeoutSeconds: 5,
			CacheExpiryMinutes:    10,
		},
		Traffic: TrafficConfig{
			APIBaseURL:            "https://maps.googleapis.com/maps/api/distancematrix/json",
			RequestTimeoutSeconds: 10,
		},
		Calendar: CalendarConfig{
			SchoolHolidays: defaultSchoolHolidays(),
		},
		Patterns: PatternsConfig{
			HolidayMultiplier:     1.5,
			BandLowFactor:         0.7,
			BandHighFactor:        1.3,
			MinWaitFloorMinutes:   2.0,
			HighConfidenceCount:   30,
			MediumConfidenceCount: 8,
			ShrinkagePriorCount:   10.0,
		},
		Prediction: PredictionConfig{
			RelativeBand:        0.13,
			ScenarioConcurrency: 4,
		},
	}
}

// Load reads configuration from the given TOML file over the defaults.
// An empty path returns the defaults unchanged.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("config file not accessible: %w", err)
	}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration for values that would break at runtime
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Patterns.BandLowFactor <= 0 || c.Patterns.BandLowFactor > 1 {
		return fmt.Errorf("invalid band_low_factor: %g", c.Patterns.BandLowFactor)
	}
	if c.Patterns.BandHighFactor < 1 {
		return fmt.Errorf("invalid band_high_factor: %g", c.Patterns.BandHighFactor)
	}
	if c.Prediction.RelativeBand <= 0 || c.Prediction.RelativeBand >= 1 {
		return fmt.Errorf("invalid relative_band: %g", c.Prediction.RelativeBand)
	}
	if c.Prediction.ScenarioConcurrency < 1 {
		return fmt.Errorf("invalid scenario_concurrency: %d", c.Prediction.ScenarioConcurrency)
	}
	for _, r := range c.Calendar.SchoolHolidays {
		if r.Country != "SG" && r.Country != "MY" {
			return fmt.Errorf("school holiday range has unknown country %q", r.Country)
		}
		for _, d := range []string{r.Start, r.End} {
			if _, err := time.Parse("2006-01-02", d); err != nil {
				return fmt.Errorf("school holiday range has bad date %q: %w", d, err)
			}
		}
	}
	return nil
}

// WeatherTimeout returns the weather request timeout as a duration
func (c *Config) WeatherTimeout() time.Duration {
	return time.Duration(c.Weather.RequestTimeoutSeconds) * time.Second
}

// TrafficTimeout returns the live-traffic request timeout as a duration
func (c *Config) TrafficTimeout() time.Duration {
	return time.Duration(c.Traffic.RequestTimeoutSeconds) * time.Second
}

// defaultSchoolHolidays covers the 2025 and 2026 school years for both
// countries. Update alongside the ministry calendars each November.
func defaultSchoolHolidays() []SchoolHolidayRange {
	return []SchoolHolidayRange{
		// Singapore 2025
		{Country: "SG", Start: "2025-03-15", End: "2025-03-23"},
		{Country: "SG", Start: "2025-05-31", End: "2025-06-29"},
		{Country: "SG", Start: "2025-09-06", End: "2025-09-14"},
		{Country: "SG", Start: "2025-11-22", End: "2025-12-31"},
		// Singapore 2026
		{Country: "SG", Start: "2026-03-14", End: "2026-03-22"},
		{Country: "SG", Start: "2026-05-30", End: "2026-06-28"},
		{Country: "SG", Start: "2026-09-05", End: "2026-09-13"},
		{Country: "SG", Start: "2026-11-21", End: "2026-12-31"},
		// Malaysia 2025
		{Country: "MY", Start: "2025-03-20", End: "2025-03-30"},
		{Country: "MY", Start: "2025-05-29", End: "2025-06-09"},
		{Country: "MY", Start: "2025-09-12", End: "2025-09-20"},
		{Country: "MY", Start: "2025-11-21", End: "2025-12-31"},
		// Malaysia 2026
		{Country: "MY", Start: "2026-03-19", End: "2026-03-29"},
		{Country: "MY", Start: "2026-05-28", End: "2026-06-08"},
		{Country: "MY", Start: "2026-09-11", End: "2026-09-19"},
		{Country: "MY", Start: "2026-11-20", End: "2026-12-31"},
	}
}
