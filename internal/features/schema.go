package features

// The feature schema is a contract with the trained model artifact: the
// vector length and field order below are fixed. Any change here invalidates
// previously trained artifacts and must bump the artifact schema version.

// Feature indexes, in vector order.
const (
	IdxHourOfDay = iota
	IdxMinuteOfHour
	IdxDayOfWeek
	IdxDayOfMonth
	IdxMonth
	IdxIsWeekend
	IdxIsMorningPeak
	IdxIsEveningPeak
	IdxIsPeakHour
	IdxIsSGHoliday
	IdxIsMYHoliday
	IdxIsSGSchoolHoliday
	IdxIsMYSchoolHoliday
	IdxIsAnyHoliday
	IdxDirectionSGToJB
	IdxCheckpointTuas
	IdxModeCar
	IdxModeTaxi
	IdxModeBus
	IdxRainMM
	IdxTempC
	IdxHistoricalAvgTime
	IdxLiveTrafficMultiplier
	IdxCheckpointWaitMinutes

	// NumFeatures is the fixed vector length
	NumFeatures
)

// Names lists the feature names in vector order; trained artifacts carry the
// same list and inference verifies they match.
var Names = [NumFeatures]string{
	IdxHourOfDay:             "hour_of_day",
	IdxMinuteOfHour:          "minute_of_hour",
	IdxDayOfWeek:             "day_of_week",
	IdxDayOfMonth:            "day_of_month",
	IdxMonth:                 "month",
	IdxIsWeekend:             "is_weekend",
	IdxIsMorningPeak:         "is_morning_peak",
	IdxIsEveningPeak:         "is_evening_peak",
	IdxIsPeakHour:            "is_peak_hour",
	IdxIsSGHoliday:           "is_sg_holiday",
	IdxIsMYHoliday:           "is_my_holiday",
	IdxIsSGSchoolHoliday:     "is_sg_school_holiday",
	IdxIsMYSchoolHoliday:     "is_my_school_holiday",
	IdxIsAnyHoliday:          "is_any_holiday",
	IdxDirectionSGToJB:       "direction_sg_to_jb",
	IdxCheckpointTuas:        "checkpoint_tuas",
	IdxModeCar:               "mode_car",
	IdxModeTaxi:              "mode_taxi",
	IdxModeBus:               "mode_bus",
	IdxRainMM:                "rain_mm",
	IdxTempC:                 "temp_c",
	IdxHistoricalAvgTime:     "historical_avg_time",
	IdxLiveTrafficMultiplier: "live_traffic_multiplier",
	IdxCheckpointWaitMinutes: "checkpoint_wait_minutes",
}

// Vector is one fixed-order numeric feature vector.
type Vector [NumFeatures]float64

// Map renders the vector as name->value pairs for API responses and logs.
func (v Vector) Map() map[string]float64 {
	m := make(map[string]float64, NumFeatures)
	for i, name := range Names {
		m[name] = v[i]
	}
	return m
}

// SchemaNames returns the feature names as a slice in vector order.
func SchemaNames() []string {
	return Names[:]
}
