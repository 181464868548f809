package prediction

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/causewaylabs/crossingd/internal/border"
	"github.com/causewaylabs/crossingd/internal/calendar"
	"github.com/causewaylabs/crossingd/internal/features"
	"github.com/causewaylabs/crossingd/internal/patterns"
	"github.com/causewaylabs/crossingd/internal/storage/sqlite"
	"github.com/causewaylabs/crossingd/pkg/logger"
)

// ValidationError marks malformed caller input: unknown checkpoint, mode or
// location, or an unparsable date/time. The input is rejected before any
// feature work runs.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

// IsValidation reports whether err is a caller-input validation failure.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

func validationf(format string, args ...interface{}) error {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

// PredictRequest is the raw prediction request as submitted by a caller.
type PredictRequest struct {
	Origin      string `json:"origin"`
	Destination string `json:"destination"`
	Checkpoint  string `json:"checkpoint"`
	Mode        string `json:"mode"`
	TravelDate  string `json:"travel_date"` // YYYY-MM-DD
	TravelTime  string `json:"travel_time"` // HH:MM, 24-hour
}

// Variant is one alternative departure time for a scenario run.
type Variant struct {
	TravelDate string `json:"travel_date"`
	TravelTime string `json:"travel_time"`
}

// SubmitRequest is a user-reported actual crossing.
type SubmitRequest struct {
	Timestamp            time.Time `json:"timestamp"`
	Checkpoint           string    `json:"checkpoint"`
	Origin               string    `json:"origin"`
	Destination          string    `json:"destination"`
	Mode                 string    `json:"mode"`
	TravelTimeMinutes    float64   `json:"travel_time_minutes"`
	WaitTimeMinutes      *float64  `json:"wait_time_minutes,omitempty"`
	TemperatureC         *float64  `json:"temperature_c,omitempty"`
	RainMM               *float64  `json:"rain_mm,omitempty"`
	PredictionID         string    `json:"prediction_id,omitempty"`
	PredictedTimeMinutes *float64  `json:"predicted_time_minutes,omitempty"`
}

// Store is the persistence surface the service uses.
type Store interface {
	AppendCrossing(record *sqlite.CrossingRecord) (int64, error)
	QueryCrossings(filters sqlite.CrossingFilters) ([]*sqlite.CrossingRecord, error)
	Stats() (*sqlite.Stats, error)
}

// Service is the facade the request-handling layer calls. Prediction and
// read paths work without write access to the store; only SubmitCrossing
// requires it.
type Service struct {
	builder   *features.Builder
	engine    *Engine
	runner    *Runner
	estimator *patterns.Estimator
	store     Store
	calendar  calendar.Provider
	logger    *logger.Logger

	// now is swappable for tests
	now func() time.Time
}

// NewService wires the prediction pipeline facade.
func NewService(builder *features.Builder, engine *Engine, runner *Runner, estimator *patterns.Estimator, store Store, cal calendar.Provider, log *logger.Logger) *Service {
	return &Service{
		builder:   builder,
		engine:    engine,
		runner:    runner,
		estimator: estimator,
		store:     store,
		calendar:  cal,
		logger:    log.Named("prediction-service"),
		now:       func() time.Time { return time.Now().In(border.Location) },
	}
}

// ModelLoaded reports whether the trained artifact is active.
func (s *Service) ModelLoaded() bool {
	return s.engine.ModelLoaded()
}

// PredictOne validates the request and runs the full feature-build and
// prediction path for a single departure time.
func (s *Service) PredictOne(ctx context.Context, raw PredictRequest) (*Result, error) {
	req, err := s.parseRequest(raw)
	if err != nil {
		return nil, err
	}

	now := s.now()
	f := s.builder.Build(ctx, req, now)
	result, err := s.engine.Predict(req, f)
	if err != nil {
		return nil, err
	}

	s.logger.Info("Prediction served",
		logger.String("checkpoint", string(req.Checkpoint)),
		logger.String("direction", string(req.Direction)),
		logger.Time("target", req.Target),
		logger.Float64("predicted_minutes", result.PredictedMinutes),
		logger.String("congestion", result.CongestionLevel),
	)

	return result, nil
}

// PredictMany evaluates the base request across departure-time variants,
// returning results in the variants' order.
func (s *Service) PredictMany(ctx context.Context, raw PredictRequest, variants []Variant) ([]ScenarioResult, error) {
	if len(variants) == 0 {
		return nil, validationf("at least one scenario variant is required")
	}

	base := raw
	if base.TravelDate == "" && len(variants) > 0 {
		base.TravelDate = variants[0].TravelDate
	}
	if base.TravelTime == "" {
		base.TravelTime = "00:00"
	}
	req, err := s.parseRequest(base)
	if err != nil {
		return nil, err
	}

	targets := make([]time.Time, len(variants))
	for i, v := range variants {
		t, err := parseTarget(v.TravelDate, v.TravelTime)
		if err != nil {
			return nil, validationf("variant %d: %v", i, err)
		}
		targets[i] = t
	}

	return s.runner.Run(ctx, req, targets, s.now())
}

// WaitTime estimates the checkpoint wait for a direction and instant.
// A zero time means "now".
func (s *Service) WaitTime(checkpoint, origin, destination string, at time.Time) (patterns.WaitTimeEstimate, error) {
	cp, err := border.ParseCheckpoint(checkpoint)
	if err != nil {
		return patterns.WaitTimeEstimate{}, validationf("%v", err)
	}
	dir, err := border.ParseDirection(origin, destination)
	if err != nil {
		return patterns.WaitTimeEstimate{}, validationf("%v", err)
	}
	if at.IsZero() {
		at = s.now()
	}
	return s.estimator.EstimateWait(cp, dir, at), nil
}

// SubmitCrossing validates and stores an actual crossing, deriving the
// aggregate fields later pattern queries rely on. Returns the stored record's
// identifier. Storage failures fail this operation only; prediction paths do
// not depend on write access.
func (s *Service) SubmitCrossing(sub SubmitRequest) (int64, error) {
	cp, err := border.ParseCheckpoint(sub.Checkpoint)
	if err != nil {
		return 0, validationf("%v", err)
	}
	dir, err := border.ParseDirection(sub.Origin, sub.Destination)
	if err != nil {
		return 0, validationf("%v", err)
	}
	mode, err := border.ParseMode(sub.Mode)
	if err != nil {
		return 0, validationf("%v", err)
	}
	if sub.TravelTimeMinutes <= 0 {
		return 0, validationf("travel_time_minutes must be positive")
	}

	ts := sub.Timestamp
	if ts.IsZero() {
		ts = s.now()
	}
	local := ts.In(border.Location)

	total := sub.TravelTimeMinutes
	if sub.WaitTimeMinutes != nil {
		total += *sub.WaitTimeMinutes
	}

	record := &sqlite.CrossingRecord{
		Timestamp:         ts.UTC(),
		Checkpoint:        cp,
		Direction:         dir,
		Origin:            sub.Origin,
		Destination:       sub.Destination,
		Mode:              mode,
		TravelTimeMinutes: sub.TravelTimeMinutes,
		WaitTimeMinutes:   sub.WaitTimeMinutes,
		TotalTimeMinutes:  total,
		TemperatureC:      sub.TemperatureC,
		RainMM:            sub.RainMM,
		IsHoliday:         s.holidayFlag(local),
		DayOfWeek:         border.WeekdayIndex(local),
		HourOfDay:         local.Hour(),
		CongestionLevel:   ClassifyCongestion(total, cp),
		PredictionID:      sub.PredictionID,
	}

	if sub.PredictedTimeMinutes != nil {
		record.PredictedTimeMinutes = sub.PredictedTimeMinutes
		predErr := total - *sub.PredictedTimeMinutes
		record.PredictionErrorMinutes = &predErr
	}

	id, err := s.store.AppendCrossing(record)
	if err != nil {
		return 0, fmt.Errorf("failed to store crossing: %w", err)
	}

	s.logger.Info("Crossing recorded",
		logger.Int64("id", id),
		logger.String("checkpoint", string(cp)),
		logger.String("direction", string(dir)),
		logger.Float64("total_minutes", total),
	)

	return id, nil
}

// RecentCrossings returns stored crossings matching the filters. The
// since-hours window is anchored to the service clock so it lines up with the
// timestamps SubmitCrossing writes.
func (s *Service) RecentCrossings(checkpoint string, sinceHours, limit int) ([]*sqlite.CrossingRecord, error) {
	filters := sqlite.CrossingFilters{SinceHours: sinceHours, Limit: limit, Reference: s.now()}
	if checkpoint != "" {
		cp, err := border.ParseCheckpoint(checkpoint)
		if err != nil {
			return nil, validationf("%v", err)
		}
		filters.Checkpoint = cp
	}
	return s.store.QueryCrossings(filters)
}

// StoreStats returns aggregate store counts and time bounds.
func (s *Service) StoreStats() (*sqlite.Stats, error) {
	return s.store.Stats()
}

// parseRequest validates raw caller input into a typed request.
func (s *Service) parseRequest(raw PredictRequest) (features.Request, error) {
	cp, err := border.ParseCheckpoint(raw.Checkpoint)
	if err != nil {
		return features.Request{}, validationf("%v", err)
	}
	dir, err := border.ParseDirection(raw.Origin, raw.Destination)
	if err != nil {
		return features.Request{}, validationf("%v", err)
	}
	mode, err := border.ParseMode(raw.Mode)
	if err != nil {
		return features.Request{}, validationf("%v", err)
	}
	target, err := parseTarget(raw.TravelDate, raw.TravelTime)
	if err != nil {
		return features.Request{}, validationf("%v", err)
	}

	return features.Request{
		Checkpoint:  cp,
		Direction:   dir,
		Mode:        mode,
		Origin:      raw.Origin,
		Destination: raw.Destination,
		Target:      target,
	}, nil
}

// holidayFlag reports a public holiday in either country, failing open.
func (s *Service) holidayFlag(date time.Time) bool {
	for _, country := range []string{border.CountrySG, border.CountryMY} {
		holiday, err := s.calendar.IsPublicHoliday(country, date)
		if err != nil {
			continue
		}
		if holiday {
			return true
		}
	}
	return false
}

// parseTarget combines a date and a 24-hour clock time in the border
// timezone.
func parseTarget(date, clock string) (time.Time, error) {
	if date == "" {
		return time.Time{}, fmt.Errorf("travel_date is required (YYYY-MM-DD)")
	}
	if clock == "" {
		return time.Time{}, fmt.Errorf("travel_time is required (HH:MM)")
	}
	t, err := time.ParseInLocation("2006-01-02 15:04", date+" "+clock, border.Location)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid travel date/time %q %q: must be YYYY-MM-DD and HH:MM", date, clock)
	}
	return t, nil
}
