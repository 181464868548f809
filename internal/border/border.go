// Package border defines the shared vocabulary of the Singapore-Johor
// crossing domain: checkpoints, travel directions, transport modes, and the
// free-flow baselines congestion is measured against.
package border

import (
	"fmt"
	"strings"
	"time"
)

// Checkpoint identifies a border-crossing facility.
type Checkpoint string

const (
	// CheckpointWoodlands is the Causeway crossing.
	CheckpointWoodlands Checkpoint = "woodlands"
	// CheckpointTuas is the Second Link crossing.
	CheckpointTuas Checkpoint = "tuas"
)

// Direction identifies which way a trip crosses the border.
type Direction string

const (
	DirectionSGToJB Direction = "singapore_to_jb"
	DirectionJBToSG Direction = "jb_to_singapore"
)

// Mode is the transport mode of a trip.
type Mode string

const (
	ModeCar  Mode = "car"
	ModeTaxi Mode = "taxi"
	ModeBus  Mode = "bus"
)

// Country codes used by the calendar provider.
const (
	CountrySG = "SG"
	CountryMY = "MY"
)

// Location is Singapore and Johor Bahru share a timezone; all time-of-day
// features and the same-day horizon are evaluated in it.
var Location = mustLoadLocation("Asia/Singapore")

func mustLoadLocation(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		panic(fmt.Sprintf("load timezone %s: %v", name, err))
	}
	return loc
}

// ParseCheckpoint validates a checkpoint name.
func ParseCheckpoint(s string) (Checkpoint, error) {
	switch Checkpoint(strings.ToLower(strings.TrimSpace(s))) {
	case CheckpointWoodlands:
		return CheckpointWoodlands, nil
	case CheckpointTuas:
		return CheckpointTuas, nil
	}
	return "", fmt.Errorf("unknown checkpoint: %q (must be woodlands or tuas)", s)
}

// ParseMode validates a transport mode, defaulting to car when empty.
func ParseMode(s string) (Mode, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return ModeCar, nil
	}
	switch Mode(s) {
	case ModeCar, ModeTaxi, ModeBus:
		return Mode(s), nil
	}
	return "", fmt.Errorf("unknown mode: %q (must be car, taxi or bus)", s)
}

// ParseDirection resolves origin/destination names into a crossing direction.
// Accepted location names: "singapore", "sg", "jb", "johor bahru".
func ParseDirection(origin, destination string) (Direction, error) {
	o, err := normalizeLocation(origin)
	if err != nil {
		return "", fmt.Errorf("origin: %w", err)
	}
	d, err := normalizeLocation(destination)
	if err != nil {
		return "", fmt.Errorf("destination: %w", err)
	}
	if o == d {
		return "", fmt.Errorf("origin and destination are both %s", o)
	}
	if o == "singapore" {
		return DirectionSGToJB, nil
	}
	return DirectionJBToSG, nil
}

func normalizeLocation(s string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "singapore", "sg":
		return "singapore", nil
	case "jb", "johor bahru", "johor":
		return "jb", nil
	}
	return "", fmt.Errorf("unknown location: %q (must be singapore or jb)", s)
}

// Opposite returns the reverse crossing direction.
func (d Direction) Opposite() Direction {
	if d == DirectionSGToJB {
		return DirectionJBToSG
	}
	return DirectionSGToJB
}

// FreeFlowMinutes is the uncongested door-to-door travel time per checkpoint,
// the denominator of the congestion ratio.
func FreeFlowMinutes(cp Checkpoint) float64 {
	switch cp {
	case CheckpointTuas:
		return 35.0
	default:
		return 30.0
	}
}

// IsWeekend reports whether t falls on Saturday or Sunday.
func IsWeekend(t time.Time) bool {
	wd := t.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

// WeekdayIndex returns the day of week with Monday=0 ... Sunday=6, the
// encoding the feature schema and trained models use.
func WeekdayIndex(t time.Time) int {
	return (int(t.Weekday()) + 6) % 7
}

// SameDay reports whether a and b fall on the same calendar day in the
// border timezone. Live traffic signals only apply to same-day targets.
func SameDay(a, b time.Time) bool {
	a, b = a.In(Location), b.In(Location)
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
