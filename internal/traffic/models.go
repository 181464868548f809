package traffic

import (
	"context"
	"errors"

	"github.com/causewaylabs/crossingd/internal/border"
)

// ErrUnavailable is returned when live traffic data cannot be obtained,
// whether from missing credentials, transport failure, or a bad payload.
// Callers degrade to a neutral multiplier.
var ErrUnavailable = errors.New("live traffic data unavailable")

// LiveDuration is a live routing result across one checkpoint.
type LiveDuration struct {
	DurationMinutes          float64
	DurationInTrafficMinutes float64
	DistanceMeters           float64
	// Raw is the provider's JSON payload, preserved in snapshots for audit.
	Raw string
}

// Provider fetches current crossing durations from a routing service.
type Provider interface {
	LiveDuration(ctx context.Context, checkpoint border.Checkpoint, direction border.Direction) (*LiveDuration, error)
}

// endpoint coordinates on each side of the two crossings
var routePoints = map[border.Checkpoint]map[string]string{
	border.CheckpointWoodlands: {
		"singapore": "1.4437,103.7854", // Woodlands Checkpoint
		"jb":        "1.4655,103.7578", // JB side of the Causeway
	},
	border.CheckpointTuas: {
		"singapore": "1.3480,103.6369", // Tuas Checkpoint
		"jb":        "1.3539,103.6360", // JB side of the Second Link
	},
}

// routeCoords returns the origin and destination coordinates for a crossing.
func routeCoords(checkpoint border.Checkpoint, direction border.Direction) (origin, destination string) {
	points := routePoints[checkpoint]
	if direction == border.DirectionSGToJB {
		return points["singapore"], points["jb"]
	}
	return points["jb"], points["singapore"]
}
