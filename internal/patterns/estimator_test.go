package patterns

import (
	"fmt"
	"testing"
	"time"

	"github.com/causewaylabs/crossingd/internal/border"
	"github.com/causewaylabs/crossingd/internal/config"
	"github.com/causewaylabs/crossingd/internal/storage/sqlite"
	"github.com/causewaylabs/crossingd/pkg/logger"
)

type fakeBuckets struct {
	mean  float64
	count int
	err   error
}

func (f *fakeBuckets) BucketStats(border.Checkpoint, border.Direction, int, bool) (sqlite.BucketStats, error) {
	if f.err != nil {
		return sqlite.BucketStats{}, f.err
	}
	return sqlite.BucketStats{MeanTotalMinutes: f.mean, Count: f.count}, nil
}

type fakeCalendar struct {
	public map[string]bool // "YYYY-MM-DD" -> holiday
	err    error
}

func (f *fakeCalendar) IsPublicHoliday(country string, date time.Time) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	return f.public[date.Format("2006-01-02")], nil
}

func (f *fakeCalendar) IsSchoolHoliday(string, time.Time) (bool, error) {
	return false, f.err
}

func newTestEstimator(store BucketReader, cal *fakeCalendar) *Estimator {
	return NewEstimator(store, cal, config.Default().Patterns, logger.NewNop())
}

// Monday 2026-01-05
var weekdayMorning = time.Date(2026, 1, 5, 8, 0, 0, 0, border.Location)

func TestEstimateWaitBandOrdering(t *testing.T) {
	est := newTestEstimator(&fakeBuckets{}, &fakeCalendar{})

	for _, cp := range []border.Checkpoint{border.CheckpointWoodlands, border.CheckpointTuas} {
		for _, dir := range []border.Direction{border.DirectionSGToJB, border.DirectionJBToSG} {
			for hour := 0; hour < 24; hour++ {
				target := time.Date(2026, 1, 5, hour, 0, 0, 0, border.Location)
				w := est.EstimateWait(cp, dir, target)
				if w.MinMinutes > w.EstimateMinutes || w.EstimateMinutes > w.MaxMinutes {
					t.Errorf("%s/%s h%d: band [%g, %g, %g] out of order",
						cp, dir, hour, w.MinMinutes, w.EstimateMinutes, w.MaxMinutes)
				}
			}
		}
	}
}

func TestEstimateWaitBaselineValues(t *testing.T) {
	est := newTestEstimator(&fakeBuckets{}, &fakeCalendar{})

	// Weekday 08:00 JB->SG at woodlands peaks at 50 minutes
	w := est.EstimateWait(border.CheckpointWoodlands, border.DirectionJBToSG, weekdayMorning)
	if w.EstimateMinutes != 50 {
		t.Errorf("estimate = %g, want 50", w.EstimateMinutes)
	}
	if w.MinMinutes != 35 || w.MaxMinutes != 65 {
		t.Errorf("band = [%g, %g], want [35, 65]", w.MinMinutes, w.MaxMinutes)
	}

	// Weekend table differs from weekday
	saturday := time.Date(2026, 1, 10, 8, 0, 0, 0, border.Location)
	ww := est.EstimateWait(border.CheckpointWoodlands, border.DirectionJBToSG, saturday)
	if ww.EstimateMinutes != 35 {
		t.Errorf("weekend estimate = %g, want 35", ww.EstimateMinutes)
	}
}

func TestEstimateWaitHolidayMonotonicity(t *testing.T) {
	plain := newTestEstimator(&fakeBuckets{}, &fakeCalendar{})
	holiday := newTestEstimator(&fakeBuckets{}, &fakeCalendar{
		public: map[string]bool{"2026-01-05": true},
	})

	for hour := 0; hour < 24; hour++ {
		target := time.Date(2026, 1, 5, hour, 0, 0, 0, border.Location)
		base := plain.EstimateWait(border.CheckpointWoodlands, border.DirectionSGToJB, target)
		lifted := holiday.EstimateWait(border.CheckpointWoodlands, border.DirectionSGToJB, target)
		if lifted.EstimateMinutes < base.EstimateMinutes {
			t.Errorf("h%d: holiday estimate %g < base %g", hour, lifted.EstimateMinutes, base.EstimateMinutes)
		}
		if want := round1(base.EstimateMinutes * 1.5); lifted.EstimateMinutes != want {
			t.Errorf("h%d: holiday estimate = %g, want %g", hour, lifted.EstimateMinutes, want)
		}
	}
}

func TestEstimateWaitCalendarFailsOpen(t *testing.T) {
	broken := newTestEstimator(&fakeBuckets{}, &fakeCalendar{err: fmt.Errorf("calendar down")})
	plain := newTestEstimator(&fakeBuckets{}, &fakeCalendar{})

	got := broken.EstimateWait(border.CheckpointWoodlands, border.DirectionSGToJB, weekdayMorning)
	want := plain.EstimateWait(border.CheckpointWoodlands, border.DirectionSGToJB, weekdayMorning)
	if got.EstimateMinutes != want.EstimateMinutes {
		t.Errorf("calendar failure changed estimate: %g != %g", got.EstimateMinutes, want.EstimateMinutes)
	}
}

func TestConfidenceTags(t *testing.T) {
	tests := []struct {
		count int
		want  string
	}{
		{0, ConfidenceLow},
		{7, ConfidenceLow},
		{8, ConfidenceMedium},
		{29, ConfidenceMedium},
		{30, ConfidenceHigh},
		{500, ConfidenceHigh},
	}
	for _, tt := range tests {
		est := newTestEstimator(&fakeBuckets{mean: 60, count: tt.count}, &fakeCalendar{})
		w := est.EstimateWait(border.CheckpointWoodlands, border.DirectionSGToJB, weekdayMorning)
		if w.Confidence != tt.want {
			t.Errorf("count %d: confidence = %q, want %q", tt.count, w.Confidence, tt.want)
		}
	}
}

func TestHistoricalAverageShrinkage(t *testing.T) {
	// Weekday 08:00 baseline: 30 * 2.5 = 75
	const baseline = 75.0
	const empirical = 100.0

	tests := []struct {
		count int
		want  float64
	}{
		{0, baseline},
		{10, (10.0/20.0)*empirical + (10.0/20.0)*baseline}, // halfway at n = prior
		{1000, (1000.0/1010.0)*empirical + (10.0/1010.0)*baseline},
	}
	for _, tt := range tests {
		est := newTestEstimator(&fakeBuckets{mean: empirical, count: tt.count}, &fakeCalendar{})
		got := est.HistoricalAverage(border.CheckpointWoodlands, border.DirectionSGToJB, 8, false)
		if diff := got - tt.want; diff > 1e-9 || diff < -1e-9 {
			t.Errorf("count %d: average = %g, want %g", tt.count, got, tt.want)
		}
	}
}

func TestHistoricalAverageStoreFailureFallsBack(t *testing.T) {
	est := newTestEstimator(&fakeBuckets{err: fmt.Errorf("db locked")}, &fakeCalendar{})
	got := est.HistoricalAverage(border.CheckpointWoodlands, border.DirectionSGToJB, 8, false)
	if got != 75 {
		t.Errorf("average = %g, want static baseline 75", got)
	}
}

func TestHistoricalAverageOffPeak(t *testing.T) {
	est := newTestEstimator(&fakeBuckets{}, &fakeCalendar{})
	got := est.HistoricalAverage(border.CheckpointWoodlands, border.DirectionSGToJB, 2, false)
	if got != 30 {
		t.Errorf("off-peak average = %g, want 30", got)
	}

	// Weekend dampening applies to the shaped baseline
	weekend := est.HistoricalAverage(border.CheckpointWoodlands, border.DirectionSGToJB, 8, true)
	if want := 30 * 2.5 * 0.7; weekend != want {
		t.Errorf("weekend peak average = %g, want %g", weekend, want)
	}
}
