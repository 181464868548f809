package prediction

import (
	"time"

	"github.com/causewaylabs/crossingd/internal/border"
)

// Congestion levels, ordered by severity.
const (
	CongestionLow      = "low"
	CongestionModerate = "moderate"
	CongestionHigh     = "high"
	CongestionSevere   = "severe"
)

// Result is one travel-time prediction with its uncertainty interval,
// congestion classification and the features that produced it.
// Invariant: LowerBoundMinutes <= PredictedMinutes <= UpperBoundMinutes.
type Result struct {
	PredictionID      string             `json:"prediction_id"`
	PredictedMinutes  float64            `json:"predicted_time_minutes"`
	LowerBoundMinutes float64            `json:"lower_bound_minutes"`
	UpperBoundMinutes float64            `json:"upper_bound_minutes"`
	CongestionLevel   string             `json:"congestion_level"`
	FeaturesUsed      map[string]float64 `json:"features_used"`
	WeatherSource     string             `json:"weather_source"`
	ModelUsed         bool               `json:"model_used"`
	Alert             string             `json:"alert,omitempty"`
}

// ScenarioResult pairs a prediction with the departure-time variant that
// produced it. Results keep the caller's variant order.
type ScenarioResult struct {
	Target time.Time `json:"target"`
	Result *Result   `json:"result"`
}

// ClassifyCongestion maps predicted minutes against a checkpoint's free-flow
// baseline into a discrete level. Band edges are inclusive on the lower side:
// ratio 1.2 is moderate, 1.5 high, 2.0 severe.
func ClassifyCongestion(predictedMinutes float64, checkpoint border.Checkpoint) string {
	ratio := predictedMinutes / border.FreeFlowMinutes(checkpoint)
	switch {
	case ratio >= 2.0:
		return CongestionSevere
	case ratio >= 1.5:
		return CongestionHigh
	case ratio >= 1.2:
		return CongestionModerate
	default:
		return CongestionLow
	}
}
