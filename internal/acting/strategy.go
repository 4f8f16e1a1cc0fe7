// Package acting runs planners against a live simulator.
//
// Two strategies are provided. Lookahead replans before every action and
// executes only the first action of each plan. LazyLookahead executes whole
// plans and only replans when a plan runs out or when consecutive actions
// leave the observation unchanged.
package acting

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/elektrokombinacija/taxi-htn/internal/algo"
	"github.com/elektrokombinacija/taxi-htn/internal/core"
	"github.com/elektrokombinacija/taxi-htn/internal/sim"
)

// DefaultMaxSteps is the per-episode step budget.
const DefaultMaxSteps = 200

// DefaultFailureThreshold is the number of consecutive no-effect actions
// after which LazyLookahead discards its plan.
const DefaultFailureThreshold = 2

// Environment is the simulator contract the strategies consume.
type Environment interface {
	Reset(seed int64) core.Observation
	Step(a core.Action) (sim.StepResult, error)
}

// Strategy runs one episode per call and reports its metrics. Episode
// failures are part of the metrics, never a Go error.
type Strategy interface {
	Name() string
	Run(ctx context.Context, env Environment, seed int64) Metrics
}

type options struct {
	name             string
	maxSteps         int
	failureThreshold int
	observer         Observer
	tracer           trace.Tracer
	meter            metric.Meter
}

// Option configures a strategy.
type Option func(*options)

// WithName overrides the strategy name reported in metrics.
func WithName(name string) Option {
	return func(o *options) { o.name = name }
}

// WithMaxSteps sets the step budget.
func WithMaxSteps(n int) Option {
	return func(o *options) { o.maxSteps = n }
}

// WithFailureThreshold sets the LazyLookahead no-effect threshold.
// Lookahead ignores it.
func WithFailureThreshold(n int) Option {
	return func(o *options) { o.failureThreshold = n }
}

// WithObserver sets the event observer.
func WithObserver(obs Observer) Option {
	return func(o *options) { o.observer = obs }
}

// WithTracer enables episode and planning spans.
func WithTracer(t trace.Tracer) Option {
	return func(o *options) { o.tracer = t }
}

// WithMeter enables OpenTelemetry metrics.
func WithMeter(m metric.Meter) Option {
	return func(o *options) { o.meter = m }
}

// base is the state shared by both strategies.
type base struct {
	planner algo.Planner
	grid    *core.Grid
	opts    options
	tel     *telemetry
}

func newBase(kind string, planner algo.Planner, grid *core.Grid, opts []Option) (base, error) {
	if planner == nil {
		return base{}, errors.New("acting: nil planner")
	}
	if grid == nil {
		grid = core.TaxiV3Walls()
	}
	o := options{
		maxSteps:         DefaultMaxSteps,
		failureThreshold: DefaultFailureThreshold,
		observer:         NopObserver{},
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.name == "" {
		o.name = kind
		if pn := planner.Name(); pn != "htn" {
			o.name = pn + "-" + kind
		}
	}
	if o.maxSteps <= 0 {
		return base{}, fmt.Errorf("acting: max steps must be positive, got %d", o.maxSteps)
	}
	if o.failureThreshold <= 0 {
		return base{}, fmt.Errorf("acting: failure threshold must be positive, got %d", o.failureThreshold)
	}
	if o.observer == nil {
		o.observer = NopObserver{}
	}
	tel, err := newTelemetry(o.tracer, o.meter)
	if err != nil {
		return base{}, err
	}
	return base{planner: planner, grid: grid, opts: o, tel: tel}, nil
}

// Name returns the strategy name.
func (b *base) Name() string { return b.opts.name }

// episode is the bookkeeping of one Run call.
type episode struct {
	b    *base
	ctx  context.Context
	span trace.Span
	env  Environment
	info EpisodeInfo
	m    Metrics

	obs        core.Observation
	executed   int
	planning   time.Duration
	lastReward float64
	terminated bool
	truncated  bool
	outcome    Outcome
}

func (b *base) start(ctx context.Context, env Environment, seed int64) *episode {
	info := EpisodeInfo{ID: uuid.NewString(), Strategy: b.opts.name, Seed: seed}
	ctx, span := b.tel.tracer.Start(ctx, "acting.episode", trace.WithAttributes(
		attribute.String("episode.id", info.ID),
		attribute.String("strategy", info.Strategy),
		attribute.Int64("seed", seed),
	))
	e := &episode{
		b:    b,
		ctx:  ctx,
		span: span,
		env:  env,
		info: info,
		m: Metrics{
			ID:        info.ID,
			Strategy:  info.Strategy,
			Seed:      seed,
			StartedAt: time.Now(),
		},
	}
	e.obs = env.Reset(seed)
	b.opts.observer.OnEpisodeStart(info, e.obs)
	return e
}

// running reports whether the episode may take another step.
func (e *episode) running() bool {
	return e.outcome == "" && e.m.Steps < e.b.opts.maxSteps
}

func (e *episode) fail(o Outcome, err error) {
	e.outcome = o
	if err != nil {
		e.m.Error = err.Error()
	}
}

// state decodes the current observation into the planner's view.
func (e *episode) state() (core.WorldState, bool) {
	s, err := core.StateFromObservation(e.obs, e.b.grid)
	if err != nil {
		e.fail(OutcomeEnvError, err)
		return core.WorldState{}, false
	}
	return s, true
}

// plan calls the planner from the current observation. A rejection or an
// empty plan ends the episode.
func (e *episode) plan() (algo.Plan, bool) {
	s, ok := e.state()
	if !ok {
		return nil, false
	}

	ctx, span := e.b.tel.tracer.Start(e.ctx, "acting.plan", trace.WithAttributes(
		attribute.String("planner", e.b.planner.Name()),
		attribute.Int("step", e.m.Steps),
	))
	started := time.Now()
	p, err := e.b.planner.Plan(ctx, s)
	elapsed := time.Since(started)

	e.planning += elapsed
	e.m.DecompositionCalls++
	e.m.GeneratedActions += len(p)
	e.b.tel.decompositions.Add(ctx, 1, strategyAttr(e.info.Strategy))
	e.b.tel.planDuration.Record(ctx, float64(elapsed.Microseconds())/1000, strategyAttr(e.info.Strategy))

	span.SetAttributes(attribute.Int("plan.length", len(p)))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "planning rejected")
	}
	span.End()

	e.b.opts.observer.OnPlan(PlanEvent{Episode: e.info, State: s, Plan: p, Err: err, Elapsed: elapsed})

	switch {
	case err != nil:
		e.fail(OutcomeNoPlan, err)
		return nil, false
	case len(p) == 0:
		e.fail(OutcomeNoPlan, nil)
		return nil, false
	}
	return p, true
}

// commit records actions the strategy intends to execute.
func (e *episode) commit(n int) {
	e.m.CommittedActions += n
}

// act executes a against the simulator. It returns false when the episode
// ended. noEffect reports an unchanged observation on a running episode.
func (e *episode) act(a core.Action, pending algo.Plan) (noEffect, ok bool) {
	before := e.obs
	res, err := e.env.Step(a)
	if err != nil {
		e.fail(OutcomeEnvError, err)
		return false, false
	}

	e.m.Steps++
	e.executed++
	e.m.TotalReward += res.Reward
	e.lastReward = res.Reward
	e.obs = res.Observation
	e.b.tel.steps.Add(e.ctx, 1, strategyAttr(e.info.Strategy))

	noEffect = res.Observation == before && !res.Done()
	if noEffect {
		e.m.NoEffectActions++
		e.b.tel.noEffect.Add(e.ctx, 1, strategyAttr(e.info.Strategy))
	}

	e.b.opts.observer.OnStep(StepEvent{
		Episode:  e.info,
		Step:     e.m.Steps,
		Before:   before,
		Action:   a,
		Result:   res,
		NoEffect: noEffect,
		Pending:  pending,
	})

	if res.Done() {
		e.terminated = res.Terminated
		e.truncated = res.Truncated
		switch {
		case res.Terminated && res.Reward > 0:
			e.outcome = OutcomeDelivered
		case res.Terminated:
			e.outcome = OutcomeTerminated
		default:
			e.outcome = OutcomeTruncated
		}
		return noEffect, false
	}
	return noEffect, true
}

func (e *episode) failureReplan(failures int) {
	e.m.FailureReplans++
	e.b.tel.failureReplans.Add(e.ctx, 1, strategyAttr(e.info.Strategy))
	e.span.AddEvent("failure replan", trace.WithAttributes(attribute.Int("failures", failures)))
	e.b.opts.observer.OnFailureReplan(e.info, failures)
}

func (e *episode) finish() Metrics {
	if e.outcome == "" {
		e.outcome = OutcomeStepBudget
	}
	e.m.Outcome = e.outcome
	e.m.Success = e.terminated && e.lastReward > 0
	e.m.TotalPlanningTime = e.planning.Seconds()
	e.m.Fidelity = fidelity(e.executed, e.m.CommittedActions)

	e.span.SetAttributes(
		attribute.String("outcome", string(e.m.Outcome)),
		attribute.Int("steps", e.m.Steps),
		attribute.Int("decompositions", e.m.DecompositionCalls),
		attribute.Float64("reward", e.m.TotalReward),
		attribute.Float64("fidelity", e.m.Fidelity),
	)
	if e.m.Success {
		e.span.SetStatus(codes.Ok, "delivered")
	} else {
		e.span.SetStatus(codes.Error, string(e.m.Outcome))
	}
	e.span.End()

	e.b.tel.recordEpisode(e.ctx, e.m)
	e.b.opts.observer.OnEpisodeEnd(e.m)
	return e.m
}

// Lookahead replans from the observed state before every action and
// executes only the first action of each plan.
type Lookahead struct {
	base
}

// NewLookahead creates a Lookahead strategy planning over grid, the
// planner's belief about the walls.
func NewLookahead(planner algo.Planner, grid *core.Grid, opts ...Option) (*Lookahead, error) {
	b, err := newBase("lookahead", planner, grid, opts)
	if err != nil {
		return nil, err
	}
	return &Lookahead{base: b}, nil
}

// Run plays one episode.
func (l *Lookahead) Run(ctx context.Context, env Environment, seed int64) Metrics {
	e := l.start(ctx, env, seed)
	for e.running() {
		p, ok := e.plan()
		if !ok {
			break
		}
		e.commit(1)
		if _, ok := e.act(p[0], p[1:]); !ok {
			break
		}
	}
	return e.finish()
}

// LazyLookahead executes each plan to the end and replans when it runs out
// or when FailureThreshold consecutive actions have no observable effect.
type LazyLookahead struct {
	base
}

// NewLazyLookahead creates a LazyLookahead strategy planning over grid.
func NewLazyLookahead(planner algo.Planner, grid *core.Grid, opts ...Option) (*LazyLookahead, error) {
	b, err := newBase("lazy-lookahead", planner, grid, opts)
	if err != nil {
		return nil, err
	}
	return &LazyLookahead{base: b}, nil
}

// FailureThreshold returns the consecutive no-effect limit.
func (l *LazyLookahead) FailureThreshold() int {
	return l.opts.failureThreshold
}

// Run plays one episode.
func (l *LazyLookahead) Run(ctx context.Context, env Environment, seed int64) Metrics {
	e := l.start(ctx, env, seed)

	var current algo.Plan
	failures := 0

	for e.running() {
		if len(current) == 0 {
			p, ok := e.plan()
			if !ok {
				break
			}
			current = p
			e.commit(len(p))
			failures = 0
		}

		a := current[0]
		current = current[1:]

		noEffect, ok := e.act(a, current)
		if !ok {
			break
		}
		if !noEffect {
			failures = 0
			continue
		}
		failures++
		if failures < l.opts.failureThreshold {
			continue
		}
		// An exhausted plan replans anyway; nothing is discarded.
		if len(current) > 0 {
			e.failureReplan(failures)
			current = nil
		}
		failures = 0
	}
	return e.finish()
}
