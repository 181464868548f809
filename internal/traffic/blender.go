package traffic

import (
	"context"
	"errors"
	"time"

	"github.com/causewaylabs/crossingd/internal/border"
	"github.com/causewaylabs/crossingd/internal/storage/sqlite"
	"github.com/causewaylabs/crossingd/pkg/logger"
)

// SnapshotAppender is the slice of the store the blender needs.
type SnapshotAppender interface {
	AppendSnapshot(snapshot *sqlite.TrafficSnapshot) (int64, error)
}

// Blender reconciles live routing data into a single traffic multiplier.
// On any provider failure it returns the neutral multiplier 1.0 and writes
// nothing: the absence of a snapshot is itself diagnostic.
type Blender struct {
	provider Provider
	store    SnapshotAppender
	timeout  time.Duration
	logger   *logger.Logger
}

// NewBlender creates a signal blender
func NewBlender(provider Provider, store SnapshotAppender, timeout time.Duration, log *logger.Logger) *Blender {
	return &Blender{
		provider: provider,
		store:    store,
		timeout:  timeout,
		logger:   log.Named("signal-blender"),
	}
}

// Blend queries the live provider with a bounded timeout and returns
// duration_in_traffic / duration. A successful lookup is persisted as a
// traffic snapshot tagged "live". Failure and timeout both yield 1.0.
func (b *Blender) Blend(ctx context.Context, checkpoint border.Checkpoint, direction border.Direction, now time.Time) float64 {
	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	live, err := b.provider.LiveDuration(ctx, checkpoint, direction)
	if err != nil {
		if errors.Is(err, ErrUnavailable) {
			b.logger.Debug("Live traffic provider unavailable, using neutral multiplier")
		} else {
			b.logger.Warn("Live traffic lookup failed, using neutral multiplier", logger.Error(err))
		}
		return 1.0
	}

	multiplier := live.DurationInTrafficMinutes / live.DurationMinutes

	snapshot := &sqlite.TrafficSnapshot{
		Timestamp:              now.UTC(),
		Checkpoint:             checkpoint,
		Direction:              direction,
		TrafficDurationMinutes: live.DurationInTrafficMinutes,
		CongestionMultiplier:   multiplier,
		Source:                 "live",
		RawData:                live.Raw,
	}
	if _, err := b.store.AppendSnapshot(snapshot); err != nil {
		// A full audit trail is not worth failing the prediction path
		b.logger.Error("Failed to persist traffic snapshot", logger.Error(err))
	}

	b.logger.Debug("Blended live traffic signal",
		logger.String("checkpoint", string(checkpoint)),
		logger.String("direction", string(direction)),
		logger.Float64("multiplier", multiplier),
	)

	return multiplier
}
