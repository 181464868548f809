package weather

import (
	"sync"
	"time"
)

// Source tags recorded on every observation so callers can tell live data
// from the documented fallback.
const (
	SourceLive    = "live"
	SourceDefault = "default"
)

// Default observation used whenever the provider is unavailable:
// no rain, a typical tropical afternoon temperature.
const (
	DefaultRainMM = 0.0
	DefaultTempC  = 30.0
)

// Observation is a point-in-time weather reading near the border
type Observation struct {
	RainMM    float64   `json:"rain_mm"`
	TempC     float64   `json:"temp_c"`
	Source    string    `json:"source"`
	FetchedAt time.Time `json:"fetched_at"`
}

// DefaultObservation returns the documented fallback observation
func DefaultObservation(now time.Time) Observation {
	return Observation{
		RainMM:    DefaultRainMM,
		TempC:     DefaultTempC,
		Source:    SourceDefault,
		FetchedAt: now,
	}
}

// cache holds the last live observation with an expiry (thread-safe)
type cache struct {
	mu        sync.RWMutex
	obs       Observation
	expiresAt time.Time
}

func (c *cache) get(now time.Time) (Observation, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.obs.Source == "" || now.After(c.expiresAt) {
		return Observation{}, false
	}
	return c.obs, true
}

func (c *cache) set(obs Observation, expiry time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.obs = obs
	c.expiresAt = obs.FetchedAt.Add(expiry)
}
