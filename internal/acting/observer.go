package acting

import (
	"log/slog"
	"sync"
	"time"

	"github.com/elektrokombinacija/taxi-htn/internal/algo"
	"github.com/elektrokombinacija/taxi-htn/internal/core"
	"github.com/elektrokombinacija/taxi-htn/internal/sim"
)

// EpisodeInfo identifies a running episode.
type EpisodeInfo struct {
	ID       string
	Strategy string
	Seed     int64
}

// PlanEvent reports one planner call.
type PlanEvent struct {
	Episode EpisodeInfo
	State   core.WorldState
	Plan    algo.Plan
	Err     error
	Elapsed time.Duration
}

// StepEvent reports one executed action.
type StepEvent struct {
	Episode  EpisodeInfo
	Step     int // 1-based
	Before   core.Observation
	Action   core.Action
	Result   sim.StepResult
	NoEffect bool
	Pending  algo.Plan // actions still queued after this one
}

// Observer is the interface for watching strategy execution. Calls happen
// on the episode's goroutine.
type Observer interface {
	// OnEpisodeStart is called after the simulator is reset.
	OnEpisodeStart(info EpisodeInfo, obs core.Observation)

	// OnPlan is called after every planner call.
	OnPlan(e PlanEvent)

	// OnStep is called after every simulator step.
	OnStep(e StepEvent)

	// OnFailureReplan is called when repeated no-effect actions discard
	// the current plan.
	OnFailureReplan(info EpisodeInfo, failures int)

	// OnEpisodeEnd is called with the final metrics.
	OnEpisodeEnd(m Metrics)
}

// NopObserver ignores every event.
type NopObserver struct{}

func (NopObserver) OnEpisodeStart(EpisodeInfo, core.Observation) {}
func (NopObserver) OnPlan(PlanEvent)                             {}
func (NopObserver) OnStep(StepEvent)                             {}
func (NopObserver) OnFailureReplan(EpisodeInfo, int)             {}
func (NopObserver) OnEpisodeEnd(Metrics)                         {}

type multiObserver []Observer

// Observers fans events out to several observers in order.
func Observers(obs ...Observer) Observer {
	return multiObserver(obs)
}

func (m multiObserver) OnEpisodeStart(info EpisodeInfo, o core.Observation) {
	for _, ob := range m {
		ob.OnEpisodeStart(info, o)
	}
}

func (m multiObserver) OnPlan(e PlanEvent) {
	for _, ob := range m {
		ob.OnPlan(e)
	}
}

func (m multiObserver) OnStep(e StepEvent) {
	for _, ob := range m {
		ob.OnStep(e)
	}
}

func (m multiObserver) OnFailureReplan(info EpisodeInfo, failures int) {
	for _, ob := range m {
		ob.OnFailureReplan(info, failures)
	}
}

func (m multiObserver) OnEpisodeEnd(mt Metrics) {
	for _, ob := range m {
		ob.OnEpisodeEnd(mt)
	}
}

// LogObserver writes events to a structured logger. Steps and plans are
// logged at debug level.
type LogObserver struct {
	logger *slog.Logger
}

// NewLogObserver creates a LogObserver; slog.Default() when logger is nil.
func NewLogObserver(logger *slog.Logger) *LogObserver {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogObserver{logger: logger.With("component", "acting")}
}

func (o *LogObserver) OnEpisodeStart(info EpisodeInfo, obs core.Observation) {
	o.logger.Debug("episode started", "episode", info.ID, "strategy", info.Strategy, "seed", info.Seed, "observation", obs.String())
}

func (o *LogObserver) OnPlan(e PlanEvent) {
	if e.Err != nil {
		o.logger.Info("planning rejected", "episode", e.Episode.ID, "strategy", e.Episode.Strategy, "state", e.State.String(), "error", e.Err)
		return
	}
	o.logger.Debug("plan", "episode", e.Episode.ID, "length", len(e.Plan), "plan", e.Plan.String(), "elapsed", e.Elapsed)
}

func (o *LogObserver) OnStep(e StepEvent) {
	o.logger.Debug("step",
		"episode", e.Episode.ID,
		"step", e.Step,
		"action", e.Action.String(),
		"reward", e.Result.Reward,
		"observation", e.Result.Observation.String(),
		"no_effect", e.NoEffect,
	)
}

func (o *LogObserver) OnFailureReplan(info EpisodeInfo, failures int) {
	o.logger.Info("replanning after no-effect actions", "episode", info.ID, "strategy", info.Strategy, "failures", failures)
}

func (o *LogObserver) OnEpisodeEnd(m Metrics) {
	o.logger.Info("episode finished",
		"episode", m.ID,
		"strategy", m.Strategy,
		"seed", m.Seed,
		"outcome", string(m.Outcome),
		"steps", m.Steps,
		"decompositions", m.DecompositionCalls,
		"reward", m.TotalReward,
		"fidelity", m.Fidelity,
	)
}

// Frame is one recorded step.
type Frame struct {
	Step        int
	Observation core.Observation // after the action
	Action      core.Action
	Reward      float64
	NoEffect    bool
	Pending     algo.Plan
}

// Recorder keeps the trace of the most recent episode for replay.
type Recorder struct {
	mu       sync.Mutex
	initial  core.Observation
	frames   []Frame
	replans  []int
	metrics  Metrics
	finished bool
}

// NewRecorder creates an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) OnEpisodeStart(_ EpisodeInfo, obs core.Observation) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.initial = obs
	r.frames = r.frames[:0]
	r.replans = r.replans[:0]
	r.finished = false
}

func (r *Recorder) OnPlan(PlanEvent) {}

func (r *Recorder) OnStep(e StepEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frames = append(r.frames, Frame{
		Step:        e.Step,
		Observation: e.Result.Observation,
		Action:      e.Action,
		Reward:      e.Result.Reward,
		NoEffect:    e.NoEffect,
		Pending:     append(algo.Plan(nil), e.Pending...),
	})
}

func (r *Recorder) OnFailureReplan(EpisodeInfo, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.replans = append(r.replans, len(r.frames))
}

func (r *Recorder) OnEpisodeEnd(m Metrics) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.metrics = m
	r.finished = true
}

// Trace is a recorded episode.
type Trace struct {
	Initial core.Observation
	Frames  []Frame
	Replans []int // frame counts at which a failure replan happened
	Metrics Metrics
}

// Trace returns a copy of the recorded episode and whether it finished.
func (r *Recorder) Trace() (Trace, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return Trace{
		Initial: r.initial,
		Frames:  append([]Frame(nil), r.frames...),
		Replans: append([]int(nil), r.replans...),
		Metrics: r.metrics,
	}, r.finished
}

// Observation returns the observation shown at frame i, where 0 is the
// initial observation and i is clamped to the trace.
func (t Trace) Observation(i int) core.Observation {
	if i <= 0 || len(t.Frames) == 0 {
		return t.Initial
	}
	if i > len(t.Frames) {
		i = len(t.Frames)
	}
	return t.Frames[i-1].Observation
}
