package sqlite

import (
	"time"

	"github.com/causewaylabs/crossingd/internal/border"
)

// CrossingRecord is one user-submitted actual crossing. Records are
// append-only: written once, never updated or deleted.
type CrossingRecord struct {
	ID                     int64             `json:"id"`
	Timestamp              time.Time         `json:"timestamp"`
	Checkpoint             border.Checkpoint `json:"checkpoint"`
	Direction              border.Direction  `json:"direction"`
	Origin                 string            `json:"origin"`
	Destination            string            `json:"destination"`
	Mode                   border.Mode       `json:"mode"`
	TravelTimeMinutes      float64           `json:"travel_time_minutes"`
	WaitTimeMinutes        *float64          `json:"wait_time_minutes,omitempty"`
	TotalTimeMinutes       float64           `json:"total_time_minutes"`
	TemperatureC           *float64          `json:"temperature_c,omitempty"`
	RainMM                 *float64          `json:"rain_mm,omitempty"`
	IsHoliday              bool              `json:"is_holiday"`
	DayOfWeek              int               `json:"day_of_week"` // Monday=0 ... Sunday=6
	HourOfDay              int               `json:"hour_of_day"`
	CongestionLevel        string            `json:"congestion_level,omitempty"`
	PredictionID           string            `json:"prediction_id,omitempty"`
	PredictedTimeMinutes   *float64          `json:"predicted_time_minutes,omitempty"`
	PredictionErrorMinutes *float64          `json:"prediction_error_minutes,omitempty"`
	CreatedAt              time.Time         `json:"created_at"`
}

// TrafficSnapshot is one successful live-traffic lookup, kept as an
// append-only audit trail including the provider's raw payload.
type TrafficSnapshot struct {
	ID                     int64             `json:"id"`
	Timestamp              time.Time         `json:"timestamp"`
	Checkpoint             border.Checkpoint `json:"checkpoint"`
	Direction              border.Direction  `json:"direction"`
	TrafficDurationMinutes float64           `json:"traffic_duration_minutes"`
	WaitTimeMinutes        *float64          `json:"wait_time_minutes,omitempty"`
	CongestionMultiplier   float64           `json:"congestion_multiplier"`
	Source                 string            `json:"source"`
	RawData                string            `json:"raw_data,omitempty"`
	CreatedAt              time.Time         `json:"created_at"`
}

// CrossingFilters narrows QueryCrossings results. Zero values mean "any".
// Reference anchors the SinceHours window so callers with an injected clock
// query against the same time source they write with; zero means wall clock.
type CrossingFilters struct {
	Checkpoint border.Checkpoint
	Direction  border.Direction
	SinceHours int
	Limit      int
	Reference  time.Time
}

// Stats summarizes the store contents
type Stats struct {
	TotalCrossings   int64      `json:"total_crossings"`
	TotalSnapshots   int64      `json:"total_snapshots"`
	EarliestCrossing *time.Time `json:"earliest_crossing,omitempty"`
	LatestCrossing   *time.Time `json:"latest_crossing,omitempty"`
}

// BucketStats is the aggregate over crossings matching one
// checkpoint/direction/hour/day-type bucket.
type BucketStats struct {
	MeanTotalMinutes float64
	Count            int
}
