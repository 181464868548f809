// Package prediction wraps the trained model into the prediction pipeline:
// inference with uncertainty bounds, congestion classification, alerting,
// scenario fan-out, and the service facade the request layer calls.
package prediction

import (
	"math"
	"strings"

	"github.com/causewaylabs/crossingd/internal/features"
	"github.com/causewaylabs/crossingd/internal/model"
	"github.com/causewaylabs/crossingd/pkg/logger"
	"github.com/google/uuid"
)

// zCI95 converts an ensemble standard deviation into a 95% interval.
const zCI95 = 1.96

// Fallback bands when no variance estimate is available.
const (
	fallbackRelativeBand  = 0.15 // heuristic path (no model loaded)
	fallbackHolidayUplift = 1.15
)

// Engine converts feature vectors into prediction results. The artifact is
// optional: with none loaded the engine serves a deterministic heuristic so
// the API never hard-fails just because the model did not load.
type Engine struct {
	artifact     *model.Artifact
	relativeBand float64
	logger       *logger.Logger
}

// NewEngine creates a prediction engine. artifact may be nil. relativeBand is
// the CI half-width used when the model provides no variance estimate.
func NewEngine(artifact *model.Artifact, relativeBand float64, log *logger.Logger) (*Engine, error) {
	if artifact != nil {
		// Schema drift between the artifact and the feature builder is a
		// deployment bug; refuse to start rather than mispredict.
		if err := artifact.CheckSchema(features.SchemaNames()); err != nil {
			return nil, err
		}
	}
	return &Engine{
		artifact:     artifact,
		relativeBand: relativeBand,
		logger:       log.Named("prediction-engine"),
	}, nil
}

// ModelLoaded reports whether a trained artifact is serving predictions.
func (e *Engine) ModelLoaded() bool {
	return e.artifact != nil
}

// Predict produces a prediction result for a built feature set.
// A feature/schema mismatch returns model.ErrSchemaMismatch, which callers
// must surface as an internal fault rather than a degraded answer.
func (e *Engine) Predict(req features.Request, f features.Features) (*Result, error) {
	var point, lower, upper float64

	if e.artifact != nil {
		p, stddev, hasVariance, err := e.artifact.Infer(f.Vector[:])
		if err != nil {
			return nil, err
		}
		point = math.Max(0, p)
		if hasVariance {
			lower = math.Max(0, point-zCI95*stddev)
			upper = point + zCI95*stddev
		} else {
			lower = point * (1 - e.relativeBand)
			upper = point * (1 + e.relativeBand)
		}
	} else {
		// Heuristic fallback: the historical average feature is already
		// shaped by peak/weekend patterns; holidays push it further up.
		point = f.Vector[features.IdxHistoricalAvgTime]
		if f.Vector[features.IdxIsAnyHoliday] == 1 {
			point *= fallbackHolidayUplift
		}
		lower = point * (1 - fallbackRelativeBand)
		upper = point * (1 + fallbackRelativeBand)
	}

	level := ClassifyCongestion(point, req.Checkpoint)

	result := &Result{
		PredictionID:      uuid.NewString(),
		PredictedMinutes:  round1(point),
		LowerBoundMinutes: round1(lower),
		UpperBoundMinutes: round1(upper),
		CongestionLevel:   level,
		FeaturesUsed:      f.Vector.Map(),
		WeatherSource:     f.WeatherSource,
		ModelUsed:         e.artifact != nil,
	}
	result.Alert = buildAlert(level, f.Vector)

	return result, nil
}

// buildAlert composes the deterministic alert string. Alerts fire for severe
// congestion, for high congestion during peak hours, and whenever a holiday
// flag is set, always in that order.
func buildAlert(level string, v features.Vector) string {
	var parts []string

	switch level {
	case CongestionSevere:
		parts = append(parts, "Severe congestion expected. Consider alternative timing.")
	case CongestionHigh:
		if v[features.IdxIsPeakHour] == 1 {
			parts = append(parts, "Heavy traffic during peak hours. Plan extra time.")
		}
	}

	if v[features.IdxIsAnyHoliday] == 1 {
		parts = append(parts, "Holiday period - expect increased traffic at the border.")
	}

	return strings.Join(parts, " ")
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
