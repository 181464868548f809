package prediction

import (
	"context"
	"time"

	"github.com/causewaylabs/crossingd/internal/features"
	"github.com/causewaylabs/crossingd/pkg/logger"
	"golang.org/x/sync/errgroup"
)

// Runner evaluates a base request across a set of departure-time variants so
// callers can compare and pick the best slot. Ranking is the caller's
// concern; the runner only guarantees that results line up 1:1 with the
// input variants.
type Runner struct {
	builder     *features.Builder
	engine      *Engine
	concurrency int
	logger      *logger.Logger
}

// NewRunner creates a scenario runner with bounded parallelism.
func NewRunner(builder *features.Builder, engine *Engine, concurrency int, log *logger.Logger) *Runner {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Runner{
		builder:     builder,
		engine:      engine,
		concurrency: concurrency,
		logger:      log.Named("scenario-runner"),
	}
}

// Run predicts every variant through the full build-then-predict path.
// Variants are independent (no shared mutable state), so they run in
// parallel; results are written by index to preserve input order.
func (r *Runner) Run(ctx context.Context, base features.Request, variants []time.Time, now time.Time) ([]ScenarioResult, error) {
	results := make([]ScenarioResult, len(variants))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)

	for i, target := range variants {
		i, target := i, target
		g.Go(func() error {
			req := base
			req.Target = target

			f := r.builder.Build(gctx, req, now)
			result, err := r.engine.Predict(req, f)
			if err != nil {
				return err
			}
			results[i] = ScenarioResult{Target: target, Result: result}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
