// Package patterns estimates checkpoint wait times and historical travel
// baselines from static time-of-day tables blended with accumulated crossing
// records.
package patterns

import (
	"math"
	"time"

	"github.com/causewaylabs/crossingd/internal/border"
	"github.com/causewaylabs/crossingd/internal/calendar"
	"github.com/causewaylabs/crossingd/internal/config"
	"github.com/causewaylabs/crossingd/internal/storage/sqlite"
	"github.com/causewaylabs/crossingd/pkg/logger"
)

// Confidence tags on a wait-time estimate.
const (
	ConfidenceLow    = "low"
	ConfidenceMedium = "medium"
	ConfidenceHigh   = "high"
)

// WaitTimeEstimate is a checkpoint wait estimate with an uncertainty band.
type WaitTimeEstimate struct {
	EstimateMinutes float64           `json:"estimated_wait_minutes"`
	MinMinutes      float64           `json:"min_wait_minutes"`
	MaxMinutes      float64           `json:"max_wait_minutes"`
	Confidence      string            `json:"confidence"`
	Checkpoint      border.Checkpoint `json:"checkpoint"`
	Direction       border.Direction  `json:"direction"`
}

// BucketReader is the slice of the store the estimator reads.
type BucketReader interface {
	BucketStats(checkpoint border.Checkpoint, direction border.Direction, hour int, isWeekend bool) (sqlite.BucketStats, error)
}

// Estimator computes wait-time and historical-average estimates.
type Estimator struct {
	store    BucketReader
	calendar calendar.Provider
	cfg      config.PatternsConfig
	logger   *logger.Logger
}

// NewEstimator creates a pattern estimator
func NewEstimator(store BucketReader, cal calendar.Provider, cfg config.PatternsConfig, log *logger.Logger) *Estimator {
	return &Estimator{
		store:    store,
		calendar: cal,
		cfg:      cfg,
		logger:   log.Named("pattern-estimator"),
	}
}

// EstimateWait estimates the checkpoint wait for a target instant. The static
// table value is raised by the holiday multiplier when either country has a
// public holiday, then widened into a [min, max] band. Confidence reflects
// how many matching crossing records back the bucket.
func (e *Estimator) EstimateWait(checkpoint border.Checkpoint, direction border.Direction, target time.Time) WaitTimeEstimate {
	target = target.In(border.Location)
	hour := target.Hour()
	isWeekend := border.IsWeekend(target)

	wait := baselineWait(checkpoint, direction, hour, isWeekend)

	if e.isHoliday(target) {
		wait *= e.cfg.HolidayMultiplier
	}

	minWait := math.Max(e.cfg.MinWaitFloorMinutes, wait*e.cfg.BandLowFactor)
	maxWait := wait * e.cfg.BandHighFactor

	return WaitTimeEstimate{
		EstimateMinutes: round1(wait),
		MinMinutes:      round1(minWait),
		MaxMinutes:      round1(maxWait),
		Confidence:      e.confidence(checkpoint, direction, hour, isWeekend),
		Checkpoint:      checkpoint,
		Direction:       direction,
	}
}

// HistoricalAverage returns the expected door-to-door minutes for a bucket,
// blending the static peak-shaped baseline with the empirical bucket mean.
// The empirical weight is n/(n+k): the baseline acts as a prior that observed
// data gradually overrides as samples accumulate.
func (e *Estimator) HistoricalAverage(checkpoint border.Checkpoint, direction border.Direction, hour int, isWeekend bool) float64 {
	baseline := border.FreeFlowMinutes(checkpoint) * peakTravelMultiplier(hour, isWeekend)

	stats, err := e.store.BucketStats(checkpoint, direction, hour, isWeekend)
	if err != nil {
		e.logger.Warn("Failed to read crossing bucket, using static baseline", logger.Error(err))
		return baseline
	}
	if stats.Count == 0 {
		return baseline
	}

	n := float64(stats.Count)
	w := n / (n + e.cfg.ShrinkagePriorCount)
	return w*stats.MeanTotalMinutes + (1-w)*baseline
}

// confidence grades a bucket by its sample count.
func (e *Estimator) confidence(checkpoint border.Checkpoint, direction border.Direction, hour int, isWeekend bool) string {
	stats, err := e.store.BucketStats(checkpoint, direction, hour, isWeekend)
	if err != nil {
		e.logger.Warn("Failed to count crossing bucket", logger.Error(err))
		return ConfidenceLow
	}
	switch {
	case stats.Count >= e.cfg.HighConfidenceCount:
		return ConfidenceHigh
	case stats.Count >= e.cfg.MediumConfidenceCount:
		return ConfidenceMedium
	default:
		return ConfidenceLow
	}
}

// isHoliday reports whether either country has a public holiday on the
// target date, failing open to false.
func (e *Estimator) isHoliday(target time.Time) bool {
	for _, country := range []string{border.CountrySG, border.CountryMY} {
		holiday, err := e.calendar.IsPublicHoliday(country, target)
		if err != nil {
			e.logger.Warn("Holiday lookup failed, assuming non-holiday",
				logger.String("country", country), logger.Error(err))
			continue
		}
		if holiday {
			return true
		}
	}
	return false
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
