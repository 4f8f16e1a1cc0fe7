package experiment

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elektrokombinacija/taxi-htn/internal/acting"
	"github.com/elektrokombinacija/taxi-htn/internal/config"
	"github.com/elektrokombinacija/taxi-htn/internal/core"
)

func TestRecord(t *testing.T) {
	trace, world, err := Record(context.Background(), config.Default(), acting.StrategyLookahead, 3, nil)
	require.NoError(t, err)
	assert.Equal(t, core.TaxiV3Walls().Walls().Edges(), world.Walls().Edges())
	assert.Equal(t, acting.OutcomeDelivered, trace.Metrics.Outcome)
	require.Len(t, trace.Frames, trace.Metrics.Steps)
	assert.Equal(t, core.Dropoff, trace.Frames[len(trace.Frames)-1].Action)
}

func TestRecord_ApproximateWalls(t *testing.T) {
	cfg := config.Default()
	cfg.Planner.Walls = core.WallsApproximate

	trace, _, err := Record(context.Background(), cfg, acting.StrategyLazyLookahead, 11, nil)
	require.NoError(t, err)
	assert.Len(t, trace.Frames, trace.Metrics.Steps)
	assert.Len(t, trace.Replans, trace.Metrics.FailureReplans)
}

func TestRecord_UnknownStrategy(t *testing.T) {
	_, _, err := Record(context.Background(), config.Default(), "greedy", 0, nil)
	assert.ErrorIs(t, err, acting.ErrUnknownStrategy)
}
