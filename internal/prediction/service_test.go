package prediction

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/causewaylabs/crossingd/internal/border"
	"github.com/causewaylabs/crossingd/internal/config"
	"github.com/causewaylabs/crossingd/internal/features"
	"github.com/causewaylabs/crossingd/internal/patterns"
	"github.com/causewaylabs/crossingd/internal/storage/sqlite"
	"github.com/causewaylabs/crossingd/internal/weather"
	"github.com/causewaylabs/crossingd/pkg/logger"
)

type stubWeather struct{}

func (stubWeather) Current(context.Context) weather.Observation {
	return weather.DefaultObservation(time.Now())
}

type stubBlender struct{}

func (stubBlender) Blend(context.Context, border.Checkpoint, border.Direction, time.Time) float64 {
	// Live routing unavailable in tests
	return 1.0
}

type stubCalendar struct {
	holidays map[string]bool // "YYYY-MM-DD"
}

func (s stubCalendar) IsPublicHoliday(_ string, date time.Time) (bool, error) {
	return s.holidays[date.Format("2006-01-02")], nil
}

func (s stubCalendar) IsSchoolHoliday(string, time.Time) (bool, error) {
	return false, nil
}

// newTestService wires the full pipeline against a throwaway sqlite store,
// stub live providers, and the heuristic engine (no artifact). The clock is
// pinned to Monday 2026-01-05 07:30 SGT.
func newTestService(t *testing.T, cal stubCalendar) (*Service, *sqlite.Store) {
	t.Helper()
	log := logger.NewNop()

	store, err := sqlite.Open(filepath.Join(t.TempDir(), "crossings.db"), log)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	cfg := config.Default()
	estimator := patterns.NewEstimator(store, cal, cfg.Patterns, log)
	builder := features.NewBuilder(estimator, stubBlender{}, stubWeather{}, cal, log)

	engine, err := NewEngine(nil, cfg.Prediction.RelativeBand, log)
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	runner := NewRunner(builder, engine, cfg.Prediction.ScenarioConcurrency, log)

	svc := NewService(builder, engine, runner, estimator, store, cal, log)
	svc.now = func() time.Time {
		return time.Date(2026, 1, 5, 7, 30, 0, 0, border.Location)
	}
	return svc, store
}

func basePredictRequest() PredictRequest {
	return PredictRequest{
		Origin:      "singapore",
		Destination: "jb",
		Checkpoint:  "woodlands",
		Mode:        "car",
		TravelDate:  "2026-01-05",
		TravelTime:  "08:00",
	}
}

func TestPredictOnePeakMorning(t *testing.T) {
	svc, _ := newTestService(t, stubCalendar{})

	result, err := svc.PredictOne(context.Background(), basePredictRequest())
	if err != nil {
		t.Fatalf("PredictOne() error = %v", err)
	}

	// Empty store: the heuristic serves the peak-shaped baseline 30 * 2.5
	if result.PredictedMinutes != 75 {
		t.Errorf("PredictedMinutes = %g, want 75", result.PredictedMinutes)
	}
	if result.CongestionLevel != CongestionSevere {
		t.Errorf("CongestionLevel = %q, want severe at ratio 2.5", result.CongestionLevel)
	}
	if result.Alert != "Severe congestion expected. Consider alternative timing." {
		t.Errorf("Alert = %q", result.Alert)
	}
	if result.ModelUsed {
		t.Error("no artifact loaded, ModelUsed should be false")
	}
	if result.LowerBoundMinutes > result.PredictedMinutes || result.PredictedMinutes > result.UpperBoundMinutes {
		t.Errorf("interval [%g, %g, %g] out of order",
			result.LowerBoundMinutes, result.PredictedMinutes, result.UpperBoundMinutes)
	}
	if len(result.FeaturesUsed) != features.NumFeatures {
		t.Errorf("FeaturesUsed has %d entries, want %d", len(result.FeaturesUsed), features.NumFeatures)
	}
}

func TestPredictOneQuietNight(t *testing.T) {
	svc, _ := newTestService(t, stubCalendar{})

	req := basePredictRequest()
	req.TravelTime = "02:00"
	result, err := svc.PredictOne(context.Background(), req)
	if err != nil {
		t.Fatal(err)
	}

	if result.PredictedMinutes != 30 {
		t.Errorf("PredictedMinutes = %g, want free-flow 30", result.PredictedMinutes)
	}
	if result.CongestionLevel != CongestionLow {
		t.Errorf("CongestionLevel = %q, want low", result.CongestionLevel)
	}
	if result.Alert != "" {
		t.Errorf("quiet night should carry no alert, got %q", result.Alert)
	}
}

func TestPredictOneHoliday(t *testing.T) {
	svc, _ := newTestService(t, stubCalendar{holidays: map[string]bool{"2026-01-05": true}})

	req := basePredictRequest()
	req.TravelTime = "02:00"
	result, err := svc.PredictOne(context.Background(), req)
	if err != nil {
		t.Fatal(err)
	}

	if want := round1(30 * 1.15); result.PredictedMinutes != want {
		t.Errorf("holiday PredictedMinutes = %g, want %g", result.PredictedMinutes, want)
	}
	if result.Alert != "Holiday period - expect increased traffic at the border." {
		t.Errorf("Alert = %q", result.Alert)
	}
}

func TestPredictOneValidation(t *testing.T) {
	svc, _ := newTestService(t, stubCalendar{})

	tests := []struct {
		name   string
		mutate func(*PredictRequest)
	}{
		{"unknown checkpoint", func(r *PredictRequest) { r.Checkpoint = "changi" }},
		{"unknown mode", func(r *PredictRequest) { r.Mode = "bicycle" }},
		{"same side", func(r *PredictRequest) { r.Destination = "singapore" }},
		{"missing date", func(r *PredictRequest) { r.TravelDate = "" }},
		{"bad time", func(r *PredictRequest) { r.TravelTime = "25:99" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := basePredictRequest()
			tt.mutate(&req)
			_, err := svc.PredictOne(context.Background(), req)
			if err == nil {
				t.Fatal("PredictOne() should fail")
			}
			if !IsValidation(err) {
				t.Errorf("error %v should be a validation error", err)
			}
		})
	}
}

func TestPredictManyPreservesOrder(t *testing.T) {
	svc, _ := newTestService(t, stubCalendar{})

	variants := []Variant{
		{TravelDate: "2026-01-05", TravelTime: "05:00"},
		{TravelDate: "2026-01-05", TravelTime: "08:00"},
		{TravelDate: "2026-01-05", TravelTime: "23:00"},
	}
	results, err := svc.PredictMany(context.Background(), basePredictRequest(), variants)
	if err != nil {
		t.Fatalf("PredictMany() error = %v", err)
	}
	if len(results) != len(variants) {
		t.Fatalf("got %d results, want %d", len(results), len(variants))
	}

	for i, v := range variants {
		want, _ := time.ParseInLocation("2006-01-02 15:04", v.TravelDate+" "+v.TravelTime, border.Location)
		if !results[i].Target.Equal(want) {
			t.Errorf("result %d target = %v, want %v", i, results[i].Target, want)
		}
		if results[i].Result == nil {
			t.Fatalf("result %d has no prediction", i)
		}
	}

	// The 08:00 peak slot must cost more than the off-peak ones
	peak := results[1].Result.PredictedMinutes
	if peak <= results[0].Result.PredictedMinutes || peak <= results[2].Result.PredictedMinutes {
		t.Errorf("peak slot %g should exceed off-peak %g and %g",
			peak, results[0].Result.PredictedMinutes, results[2].Result.PredictedMinutes)
	}
}

func TestPredictManyRequiresVariants(t *testing.T) {
	svc, _ := newTestService(t, stubCalendar{})

	_, err := svc.PredictMany(context.Background(), basePredictRequest(), nil)
	if !IsValidation(err) {
		t.Errorf("empty variants = %v, want validation error", err)
	}

	_, err = svc.PredictMany(context.Background(), basePredictRequest(), []Variant{
		{TravelDate: "2026-01-05", TravelTime: "nope"},
	})
	if !IsValidation(err) {
		t.Errorf("bad variant = %v, want validation error", err)
	}
}

func TestWaitTime(t *testing.T) {
	svc, _ := newTestService(t, stubCalendar{})

	// Zero time means "now": Monday 07:30, SG->JB woodlands table says 25
	estimate, err := svc.WaitTime("woodlands", "singapore", "jb", time.Time{})
	if err != nil {
		t.Fatalf("WaitTime() error = %v", err)
	}
	if estimate.EstimateMinutes != 25 {
		t.Errorf("EstimateMinutes = %g, want 25", estimate.EstimateMinutes)
	}
	if estimate.Checkpoint != border.CheckpointWoodlands || estimate.Direction != border.DirectionSGToJB {
		t.Errorf("estimate scoped to %s/%s", estimate.Checkpoint, estimate.Direction)
	}

	if _, err := svc.WaitTime("changi", "singapore", "jb", time.Time{}); !IsValidation(err) {
		t.Errorf("bad checkpoint = %v, want validation error", err)
	}
}

func TestSubmitCrossingRoundTrip(t *testing.T) {
	svc, _ := newTestService(t, stubCalendar{})

	wait := 20.0
	predicted := 60.0
	id, err := svc.SubmitCrossing(SubmitRequest{
		Checkpoint:           "woodlands",
		Origin:               "singapore",
		Destination:          "jb",
		Mode:                 "car",
		TravelTimeMinutes:    45,
		WaitTimeMinutes:      &wait,
		PredictionID:         "pred-abc",
		PredictedTimeMinutes: &predicted,
	})
	if err != nil {
		t.Fatalf("SubmitCrossing() error = %v", err)
	}
	if id <= 0 {
		t.Fatalf("id = %d, want positive", id)
	}

	records, err := svc.RecentCrossings("woodlands", 24, 10)
	if err != nil {
		t.Fatalf("RecentCrossings() error = %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("got %d records, want 1", len(records))
	}

	got := records[0]
	if got.TotalTimeMinutes != 65 {
		t.Errorf("TotalTimeMinutes = %g, want 45+20", got.TotalTimeMinutes)
	}
	if got.Direction != border.DirectionSGToJB {
		t.Errorf("Direction = %s", got.Direction)
	}
	// 65 / 30 free-flow minutes = severe
	if got.CongestionLevel != CongestionSevere {
		t.Errorf("CongestionLevel = %q, want severe", got.CongestionLevel)
	}
	// Timestamp defaulted to the pinned clock: Monday 07:30
	if got.DayOfWeek != 0 || got.HourOfDay != 7 {
		t.Errorf("bucket = day %d hour %d, want Monday 07", got.DayOfWeek, got.HourOfDay)
	}
	if got.PredictionID != "pred-abc" {
		t.Errorf("PredictionID = %q", got.PredictionID)
	}
	if got.PredictionErrorMinutes == nil || *got.PredictionErrorMinutes != 5 {
		t.Errorf("PredictionErrorMinutes = %v, want 5", got.PredictionErrorMinutes)
	}
}

func TestSubmitCrossingValidation(t *testing.T) {
	svc, _ := newTestService(t, stubCalendar{})

	_, err := svc.SubmitCrossing(SubmitRequest{
		Checkpoint:        "woodlands",
		Origin:            "singapore",
		Destination:       "jb",
		TravelTimeMinutes: 0,
	})
	if !IsValidation(err) {
		t.Errorf("zero travel time = %v, want validation error", err)
	}
}

func TestSubmittedCrossingsFeedHistoricalAverage(t *testing.T) {
	svc, _ := newTestService(t, stubCalendar{})

	// Seed the Monday 08:00 bucket with consistently slow crossings
	for i := 0; i < 40; i++ {
		_, err := svc.SubmitCrossing(SubmitRequest{
			Timestamp:         time.Date(2026, 1, 5, 8, 0, 0, 0, border.Location),
			Checkpoint:        "woodlands",
			Origin:            "singapore",
			Destination:       "jb",
			Mode:              "car",
			TravelTimeMinutes: 100,
		})
		if err != nil {
			t.Fatal(err)
		}
	}

	result, err := svc.PredictOne(context.Background(), basePredictRequest())
	if err != nil {
		t.Fatal(err)
	}
	// With 40 samples at 100 min the shrunken average sits well above the
	// 75-minute static baseline
	if result.PredictedMinutes <= 75 {
		t.Errorf("PredictedMinutes = %g, want > 75 after slow submissions", result.PredictedMinutes)
	}

	estimate, err := svc.WaitTime("woodlands", "singapore", "jb", time.Date(2026, 1, 5, 8, 0, 0, 0, border.Location))
	if err != nil {
		t.Fatal(err)
	}
	if estimate.Confidence != patterns.ConfidenceHigh {
		t.Errorf("Confidence = %q, want high with 40 samples", estimate.Confidence)
	}
}

func TestStoreStats(t *testing.T) {
	svc, _ := newTestService(t, stubCalendar{})

	stats, err := svc.StoreStats()
	if err != nil {
		t.Fatalf("StoreStats() error = %v", err)
	}
	if stats.TotalCrossings != 0 {
		t.Errorf("TotalCrossings = %d, want 0", stats.TotalCrossings)
	}
}
