package acting

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/elektrokombinacija/taxi-htn/internal/algo"
	"github.com/elektrokombinacija/taxi-htn/internal/core"
	"github.com/elektrokombinacija/taxi-htn/internal/sim"
)

// fixedEnv starts every episode from the same observation. `stuck` move
// actions from move number `from` on are swallowed without changing the
// world.
type fixedEnv struct {
	sim     *sim.Simulator
	start   core.Observation
	current core.Observation
	from    int // index of the first swallowed move
	moves   int
	stuck   int
}

func newFixedEnv(t *testing.T, start core.Observation, stuck int) *fixedEnv {
	t.Helper()
	s, err := sim.NewSimulator(sim.DefaultConfig())
	require.NoError(t, err)
	return &fixedEnv{sim: s, start: start, stuck: stuck}
}

// newStuckEnv swallows n moves starting with move number from.
func newStuckEnv(t *testing.T, start core.Observation, from, n int) *fixedEnv {
	f := newFixedEnv(t, start, n)
	f.from = from
	return f
}

func (f *fixedEnv) Reset(seed int64) core.Observation {
	if err := f.sim.ResetTo(f.start, seed); err != nil {
		panic(err)
	}
	f.current = f.start
	f.moves = 0
	return f.start
}

func (f *fixedEnv) Step(a core.Action) (sim.StepResult, error) {
	if a.IsMove() {
		f.moves++
	}
	if a.IsMove() && f.moves > f.from && f.stuck > 0 {
		f.stuck--
		return sim.StepResult{Observation: f.current, Reward: sim.StepReward}, nil
	}
	res, err := f.sim.Step(a)
	if err == nil {
		f.current = res.Observation
	}
	return res, err
}

// brokenEnv rejects every step.
type brokenEnv struct{ obs core.Observation }

func (b brokenEnv) Reset(int64) core.Observation { return b.obs }
func (b brokenEnv) Step(core.Action) (sim.StepResult, error) {
	return sim.StepResult{}, errors.New("connection lost")
}

// taxi at (2,2), passenger at R, destination B
var startObs = core.Encode(core.Decoded{TaxiRow: 2, TaxiCol: 2, PassengerIndex: int(core.Red), DestinationIndex: int(core.Blue)})

func baselinePlanLength(t *testing.T) int {
	t.Helper()
	s, err := core.StateFromObservation(startObs, core.TaxiV3Walls())
	require.NoError(t, err)
	p, err := algo.NewHTNPlanner().Plan(context.Background(), s)
	require.NoError(t, err)
	return len(p)
}

func TestLookahead_Delivers(t *testing.T) {
	l, err := NewLookahead(algo.NewHTNPlanner(), core.TaxiV3Walls())
	require.NoError(t, err)
	assert.Equal(t, "lookahead", l.Name())

	m := l.Run(context.Background(), newFixedEnv(t, startObs, 0), 1)

	assert.True(t, m.Success)
	assert.Equal(t, OutcomeDelivered, m.Outcome)
	assert.Equal(t, baselinePlanLength(t), m.Steps)
	assert.Equal(t, m.Steps, m.DecompositionCalls)
	assert.Equal(t, m.Steps, m.CommittedActions)
	assert.Equal(t, 1.0, m.Fidelity)
	assert.NotEmpty(t, m.ID)
	assert.Equal(t, int64(1), m.Seed)
	// -1 per move and pickup, +20 for the delivery
	assert.Equal(t, float64(-(m.Steps-1)+sim.DeliverReward), m.TotalReward)
}

func TestLookahead_ToleratesNoEffectActions(t *testing.T) {
	l, err := NewLookahead(algo.NewHTNPlanner(), core.TaxiV3Walls())
	require.NoError(t, err)

	m := l.Run(context.Background(), newFixedEnv(t, startObs, 2), 1)

	assert.True(t, m.Success)
	assert.Equal(t, baselinePlanLength(t)+2, m.Steps)
	assert.Equal(t, m.Steps, m.DecompositionCalls)
	assert.Equal(t, 2, m.NoEffectActions)
	assert.Zero(t, m.FailureReplans)
	assert.Equal(t, 1.0, m.Fidelity)
}

func TestLazyLookahead_SinglePlan(t *testing.T) {
	l, err := NewLazyLookahead(algo.NewHTNPlanner(), core.TaxiV3Walls())
	require.NoError(t, err)
	assert.Equal(t, DefaultFailureThreshold, l.FailureThreshold())

	m := l.Run(context.Background(), newFixedEnv(t, startObs, 0), 1)

	n := baselinePlanLength(t)
	assert.True(t, m.Success)
	assert.Equal(t, 1, m.DecompositionCalls)
	assert.Equal(t, n, m.Steps)
	assert.Equal(t, n, m.GeneratedActions)
	assert.Equal(t, 1.0, m.Fidelity)
}

func TestLazyLookahead_ReplansAfterConsecutiveNoEffect(t *testing.T) {
	l, err := NewLazyLookahead(algo.NewHTNPlanner(), core.TaxiV3Walls())
	require.NoError(t, err)

	baseline := l.Run(context.Background(), newFixedEnv(t, startObs, 0), 1)
	m := l.Run(context.Background(), newFixedEnv(t, startObs, 2), 1)

	n := baselinePlanLength(t)
	assert.True(t, m.Success)
	assert.Equal(t, baseline.DecompositionCalls+1, m.DecompositionCalls)
	assert.Equal(t, 2, m.NoEffectActions)
	assert.Equal(t, 1, m.FailureReplans)
	assert.Equal(t, n+2, m.Steps)
	assert.Equal(t, 2*n, m.CommittedActions)
	assert.Less(t, m.Fidelity, 1.0)
	assert.InDelta(t, float64(n+2)/float64(2*n), m.Fidelity, 1e-9)
}

// The last move is swallowed, so the dropoff that ends the plan is illegal
// too. The threshold is reached with nothing left to discard.
func TestLazyLookahead_NoEffectAtPlanEnd(t *testing.T) {
	rec := NewRecorder()
	l, err := NewLazyLookahead(algo.NewHTNPlanner(), core.TaxiV3Walls(), WithObserver(rec))
	require.NoError(t, err)

	n := baselinePlanLength(t)
	moves := n - 2 // all but pickup and dropoff
	m := l.Run(context.Background(), newStuckEnv(t, startObs, moves-1, 1), 1)

	assert.True(t, m.Success)
	assert.Equal(t, 2, m.NoEffectActions)
	assert.Zero(t, m.FailureReplans)
	assert.Equal(t, 2, m.DecompositionCalls)
	assert.Equal(t, n+2, m.Steps)
	assert.Equal(t, n+2, m.CommittedActions)
	assert.Equal(t, 1.0, m.Fidelity)

	tr, done := rec.Trace()
	require.True(t, done)
	assert.Empty(t, tr.Replans)
}

func TestLazyLookahead_ThresholdOption(t *testing.T) {
	l, err := NewLazyLookahead(algo.NewHTNPlanner(), core.TaxiV3Walls(), WithFailureThreshold(3))
	require.NoError(t, err)

	m := l.Run(context.Background(), newFixedEnv(t, startObs, 3), 1)
	assert.True(t, m.Success)
	assert.Equal(t, 2, m.DecompositionCalls)
	assert.Equal(t, 1, m.FailureReplans)
}

// The planner believes in walls that shut R off, so no plan exists.
func TestStrategies_NoPlan(t *testing.T) {
	belief := core.NewGrid(core.GridSize,
		core.Edge{From: core.Pos(0, 0), To: core.Pos(0, 1)},
		core.Edge{From: core.Pos(0, 0), To: core.Pos(1, 0)},
	)
	for _, name := range []string{StrategyLookahead, StrategyLazyLookahead, StrategyClassicalLookahead, StrategyClassicalLazyLookahead} {
		t.Run(name, func(t *testing.T) {
			s, err := NewStrategy(name, PlannerConfig{Grid: belief})
			require.NoError(t, err)

			m := s.Run(context.Background(), newFixedEnv(t, startObs, 0), 1)
			assert.False(t, m.Success)
			assert.Equal(t, OutcomeNoPlan, m.Outcome)
			assert.Equal(t, 1, m.DecompositionCalls)
			assert.Zero(t, m.Steps)
			assert.Zero(t, m.Fidelity)
			assert.NotEmpty(t, m.Error)
		})
	}
}

func TestStrategies_StepBudget(t *testing.T) {
	l, err := NewLazyLookahead(algo.NewHTNPlanner(), core.TaxiV3Walls(), WithMaxSteps(3))
	require.NoError(t, err)

	m := l.Run(context.Background(), newFixedEnv(t, startObs, 0), 1)
	assert.Equal(t, OutcomeStepBudget, m.Outcome)
	assert.Equal(t, 3, m.Steps)
	assert.False(t, m.Success)
}

func TestStrategies_Truncated(t *testing.T) {
	cfg := sim.DefaultConfig()
	cfg.TimeLimit = 4
	s, err := sim.NewSimulator(cfg)
	require.NoError(t, err)
	env := &fixedEnv{sim: s, start: startObs}

	l, err := NewLookahead(algo.NewHTNPlanner(), core.TaxiV3Walls())
	require.NoError(t, err)
	m := l.Run(context.Background(), env, 1)
	assert.Equal(t, OutcomeTruncated, m.Outcome)
	assert.Equal(t, 4, m.Steps)
	assert.False(t, m.Success)
}

func TestStrategies_EnvError(t *testing.T) {
	l, err := NewLookahead(algo.NewHTNPlanner(), core.TaxiV3Walls())
	require.NoError(t, err)

	m := l.Run(context.Background(), brokenEnv{obs: startObs}, 1)
	assert.Equal(t, OutcomeEnvError, m.Outcome)
	assert.Equal(t, "connection lost", m.Error)
	assert.Zero(t, m.Steps)
}

func TestStrategies_RealSimulatorSeeds(t *testing.T) {
	for _, name := range StrategyNames() {
		t.Run(name, func(t *testing.T) {
			s, err := NewStrategy(name, PlannerConfig{Grid: core.TaxiV3Walls()})
			require.NoError(t, err)
			assert.Equal(t, name, s.Name())

			for seed := int64(0); seed < 20; seed++ {
				env, err := sim.NewSimulator(sim.DefaultConfig())
				require.NoError(t, err)
				m := s.Run(context.Background(), env, seed)
				assert.True(t, m.Success, "seed %d: %s", seed, m.Outcome)
			}
		})
	}
}

// Planning against a wall-free belief: the plan drives into a real wall,
// and Lazy-Lookahead keeps detecting the ignored moves.
func TestLazyLookahead_WrongWallModel(t *testing.T) {
	// passenger aboard at (0,1), bound for G; the real map walls (0,1)->(0,2).
	start := core.Encode(core.Decoded{TaxiRow: 0, TaxiCol: 1, PassengerIndex: core.InTaxiIndex, DestinationIndex: int(core.Green)})
	l, err := NewLazyLookahead(algo.NewHTNPlanner(), core.OpenGrid(core.GridSize), WithMaxSteps(20))
	require.NoError(t, err)

	m := l.Run(context.Background(), newFixedEnv(t, start, 0), 1)
	assert.False(t, m.Success)
	assert.Equal(t, OutcomeStepBudget, m.Outcome)
	assert.Equal(t, 20, m.NoEffectActions)
	assert.Equal(t, 10, m.FailureReplans)
	assert.Equal(t, 10, m.DecompositionCalls)
}

func TestNewStrategy_Unknown(t *testing.T) {
	_, err := NewStrategy("greedy", PlannerConfig{})
	assert.ErrorIs(t, err, ErrUnknownStrategy)
}

func TestNewStrategy_ClassicalSearch(t *testing.T) {
	s, err := NewStrategy(StrategyClassicalLookahead, PlannerConfig{Grid: core.TaxiV3Walls(), Search: "astar"})
	require.NoError(t, err)
	m := s.Run(context.Background(), newFixedEnv(t, startObs, 0), 1)
	assert.Equal(t, OutcomeDelivered, m.Outcome)

	_, err = NewStrategy(StrategyClassicalLazyLookahead, PlannerConfig{Search: "dijkstra"})
	assert.Error(t, err)
}

func TestNewStrategy_Validation(t *testing.T) {
	_, err := NewLookahead(nil, nil)
	assert.Error(t, err)
	_, err = NewLazyLookahead(algo.NewHTNPlanner(), nil, WithFailureThreshold(0))
	assert.Error(t, err)
	_, err = NewLookahead(algo.NewHTNPlanner(), nil, WithMaxSteps(-1))
	assert.Error(t, err)
}

func TestRecorder_CapturesTrace(t *testing.T) {
	rec := NewRecorder()
	l, err := NewLazyLookahead(algo.NewHTNPlanner(), core.TaxiV3Walls(), WithObserver(rec))
	require.NoError(t, err)

	m := l.Run(context.Background(), newFixedEnv(t, startObs, 2), 1)

	tr, done := rec.Trace()
	require.True(t, done)
	assert.Equal(t, startObs, tr.Initial)
	assert.Len(t, tr.Frames, m.Steps)
	assert.Equal(t, []int{2}, tr.Replans)
	assert.True(t, tr.Frames[0].NoEffect)
	assert.Equal(t, m.ID, tr.Metrics.ID)
	assert.Equal(t, core.Dropoff, tr.Frames[len(tr.Frames)-1].Action)
	assert.Empty(t, tr.Frames[len(tr.Frames)-1].Pending)

	assert.Equal(t, startObs, tr.Observation(0))
	assert.Equal(t, tr.Frames[len(tr.Frames)-1].Observation, tr.Observation(1000))
}

func TestLogObserver(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	l, err := NewLazyLookahead(algo.NewHTNPlanner(), core.TaxiV3Walls(),
		WithObserver(Observers(NopObserver{}, NewLogObserver(logger))))
	require.NoError(t, err)

	l.Run(context.Background(), newFixedEnv(t, startObs, 2), 1)

	out := buf.String()
	assert.Contains(t, out, `"component":"acting"`)
	assert.Contains(t, out, "replanning after no-effect actions")
	assert.Contains(t, out, `"outcome":"delivered"`)
}

func TestTelemetry(t *testing.T) {
	ctx := context.Background()
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	defer tp.Shutdown(ctx)
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	defer mp.Shutdown(ctx)

	l, err := NewLazyLookahead(algo.NewHTNPlanner(), core.TaxiV3Walls(),
		WithTracer(tp.Tracer("test")), WithMeter(mp.Meter("test")))
	require.NoError(t, err)

	m := l.Run(ctx, newFixedEnv(t, startObs, 2), 1)

	var episodes, plans int
	for _, s := range sr.Ended() {
		switch s.Name() {
		case "acting.episode":
			episodes++
		case "acting.plan":
			plans++
		}
	}
	assert.Equal(t, 1, episodes)
	assert.Equal(t, m.DecompositionCalls, plans)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(ctx, &rm))
	sums := map[string]int64{}
	for _, sm := range rm.ScopeMetrics {
		for _, mt := range sm.Metrics {
			if data, ok := mt.Data.(metricdata.Sum[int64]); ok {
				for _, dp := range data.DataPoints {
					sums[mt.Name] += dp.Value
				}
			}
		}
	}
	assert.Equal(t, int64(m.DecompositionCalls), sums["taxi.decompositions"])
	assert.Equal(t, int64(m.Steps), sums["taxi.steps"])
	assert.Equal(t, int64(2), sums["taxi.no_effect_actions"])
	assert.Equal(t, int64(1), sums["taxi.failure_replans"])
	assert.Equal(t, int64(1), sums["taxi.episodes"])
}
