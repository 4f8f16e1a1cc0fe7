package experiment

import (
	"context"
	"log/slog"

	"github.com/elektrokombinacija/taxi-htn/internal/acting"
	"github.com/elektrokombinacija/taxi-htn/internal/config"
	"github.com/elektrokombinacija/taxi-htn/internal/core"
	"github.com/elektrokombinacija/taxi-htn/internal/sim"
)

// Record runs one episode of strategy on a fresh simulator and returns the
// recorded trace together with the simulated map.
func Record(ctx context.Context, cfg config.Config, strategy string, seed int64, logger *slog.Logger) (acting.Trace, *core.Grid, error) {
	env, err := sim.NewSimulator(cfg.SimulationConfig())
	if err != nil {
		return acting.Trace{}, nil, err
	}
	rec := acting.NewRecorder()
	s, err := acting.NewStrategy(strategy,
		cfg.StrategyPlanner(),
		acting.WithMaxSteps(cfg.MaxSteps),
		acting.WithFailureThreshold(cfg.ThresholdFor(strategy)),
		acting.WithObserver(acting.Observers(rec, acting.NewLogObserver(logger))),
	)
	if err != nil {
		return acting.Trace{}, nil, err
	}
	s.Run(ctx, env, seed)
	trace, _ := rec.Trace()
	return trace, env.Grid(), nil
}
