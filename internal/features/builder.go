// Package features assembles the fixed-schema numeric vector the prediction
// model consumes from request parameters, pattern estimates, live traffic
// signals and the external holiday/weather providers.
package features

import (
	"context"
	"time"

	"github.com/causewaylabs/crossingd/internal/border"
	"github.com/causewaylabs/crossingd/internal/calendar"
	"github.com/causewaylabs/crossingd/internal/patterns"
	"github.com/causewaylabs/crossingd/internal/weather"
	"github.com/causewaylabs/crossingd/pkg/logger"
)

// Request is a validated prediction request. Construction goes through the
// service layer, which rejects malformed input before any feature work runs.
type Request struct {
	Checkpoint  border.Checkpoint
	Direction   border.Direction
	Mode        border.Mode
	Origin      string
	Destination string
	Target      time.Time
}

// Features is a built vector plus metadata that is not part of the model
// input but matters to callers (which weather source fed the vector).
type Features struct {
	Vector        Vector
	WeatherSource string
}

// WaitEstimator is the slice of the pattern estimator the builder uses.
type WaitEstimator interface {
	EstimateWait(checkpoint border.Checkpoint, direction border.Direction, target time.Time) patterns.WaitTimeEstimate
	HistoricalAverage(checkpoint border.Checkpoint, direction border.Direction, hour int, isWeekend bool) float64
}

// TrafficBlender produces the live traffic multiplier.
type TrafficBlender interface {
	Blend(ctx context.Context, checkpoint border.Checkpoint, direction border.Direction, now time.Time) float64
}

// Builder assembles feature vectors. It is a pure read path: it never writes
// to the store (snapshot persistence happens inside the blender, and only for
// same-day targets where the blender runs at all).
type Builder struct {
	estimator WaitEstimator
	blender   TrafficBlender
	weather   weather.Provider
	calendar  calendar.Provider
	logger    *logger.Logger
}

// NewBuilder creates a feature builder
func NewBuilder(estimator WaitEstimator, blender TrafficBlender, wx weather.Provider, cal calendar.Provider, log *logger.Logger) *Builder {
	return &Builder{
		estimator: estimator,
		blender:   blender,
		weather:   wx,
		calendar:  cal,
		logger:    log.Named("feature-builder"),
	}
}

// Build assembles the feature vector for a request. now is the evaluation
// instant: live signals (traffic multiplier, current weather) only apply when
// the target falls on the same calendar day; future bookings get neutral
// values and pattern baselines instead.
func (b *Builder) Build(ctx context.Context, req Request, now time.Time) Features {
	target := req.Target.In(border.Location)
	var v Vector

	// Time features derive purely from the target instant
	v[IdxHourOfDay] = float64(target.Hour())
	v[IdxMinuteOfHour] = float64(target.Minute())
	v[IdxDayOfWeek] = float64(border.WeekdayIndex(target))
	v[IdxDayOfMonth] = float64(target.Day())
	v[IdxMonth] = float64(int(target.Month()))
	v[IdxIsWeekend] = boolFeature(border.IsWeekend(target))

	hour := target.Hour()
	morningPeak := hour >= 7 && hour <= 9
	eveningPeak := hour >= 17 && hour <= 19
	v[IdxIsMorningPeak] = boolFeature(morningPeak)
	v[IdxIsEveningPeak] = boolFeature(eveningPeak)
	v[IdxIsPeakHour] = boolFeature(morningPeak || eveningPeak)

	// Holiday flags fail open: a calendar outage must not fail the request
	v[IdxIsSGHoliday] = boolFeature(b.holidayFlag(border.CountrySG, target, false))
	v[IdxIsMYHoliday] = boolFeature(b.holidayFlag(border.CountryMY, target, false))
	v[IdxIsSGSchoolHoliday] = boolFeature(b.holidayFlag(border.CountrySG, target, true))
	v[IdxIsMYSchoolHoliday] = boolFeature(b.holidayFlag(border.CountryMY, target, true))
	if v[IdxIsSGHoliday] == 1 || v[IdxIsMYHoliday] == 1 || v[IdxIsSGSchoolHoliday] == 1 || v[IdxIsMYSchoolHoliday] == 1 {
		v[IdxIsAnyHoliday] = 1
	}

	v[IdxDirectionSGToJB] = boolFeature(req.Direction == border.DirectionSGToJB)
	v[IdxCheckpointTuas] = boolFeature(req.Checkpoint == border.CheckpointTuas)
	v[IdxModeCar] = boolFeature(req.Mode == border.ModeCar)
	v[IdxModeTaxi] = boolFeature(req.Mode == border.ModeTaxi)
	v[IdxModeBus] = boolFeature(req.Mode == border.ModeBus)

	sameDay := border.SameDay(target, now)

	// Current weather only describes same-day targets; future bookings get
	// the documented defaults, and the source tag records which was used.
	obs := weather.DefaultObservation(now)
	if sameDay {
		obs = b.weather.Current(ctx)
	}
	v[IdxRainMM] = obs.RainMM
	v[IdxTempC] = obs.TempC

	v[IdxHistoricalAvgTime] = b.estimator.HistoricalAverage(
		req.Checkpoint, req.Direction, hour, border.IsWeekend(target))

	// Live traffic multiplier applies inside the same-day horizon only
	if sameDay {
		v[IdxLiveTrafficMultiplier] = b.blender.Blend(ctx, req.Checkpoint, req.Direction, now)
	} else {
		v[IdxLiveTrafficMultiplier] = 1.0
	}

	v[IdxCheckpointWaitMinutes] = b.estimator.EstimateWait(
		req.Checkpoint, req.Direction, target).EstimateMinutes

	return Features{
		Vector:        v,
		WeatherSource: obs.Source,
	}
}

// holidayFlag queries the calendar provider, failing open to false.
func (b *Builder) holidayFlag(country string, date time.Time, school bool) bool {
	var (
		flag bool
		err  error
	)
	if school {
		flag, err = b.calendar.IsSchoolHoliday(country, date)
	} else {
		flag, err = b.calendar.IsPublicHoliday(country, date)
	}
	if err != nil {
		b.logger.Warn("Calendar lookup failed, treating as non-holiday",
			logger.String("country", country),
			logger.Bool("school", school),
			logger.Error(err),
		)
		return false
	}
	return flag
}

func boolFeature(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
