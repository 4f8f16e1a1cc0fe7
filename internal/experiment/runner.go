// Package experiment runs seeded episodes of every configured strategy and
// collects their metrics.
package experiment

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/elektrokombinacija/taxi-htn/internal/acting"
	"github.com/elektrokombinacija/taxi-htn/internal/config"
	"github.com/elektrokombinacija/taxi-htn/internal/results"
	"github.com/elektrokombinacija/taxi-htn/internal/sim"
)

// EnvFactory creates the environment for one episode.
type EnvFactory func(cfg sim.SimulationConfig) (acting.Environment, error)

// NewSimulator is the default EnvFactory.
func NewSimulator(cfg sim.SimulationConfig) (acting.Environment, error) {
	s, err := sim.NewSimulator(cfg)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// Job is one episode of one strategy.
type Job struct {
	Index    int
	Strategy acting.Strategy
	Seed     int64
}

// Runner executes the episodes described by a Config.
type Runner struct {
	cfg        config.Config
	strategies []acting.Strategy
	newEnv     EnvFactory
	sink       results.Sink
	out        io.Writer
	color      bool
	logger     *slog.Logger
	actingOpts []acting.Option
}

// Option configures a Runner.
type Option func(*Runner)

// WithSink sends every finished episode to s.
func WithSink(s results.Sink) Option {
	return func(r *Runner) { r.sink = s }
}

// WithOutput prints one line per finished episode to w.
func WithOutput(w io.Writer, color bool) Option {
	return func(r *Runner) {
		r.out = w
		r.color = color
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Runner) { r.logger = l }
}

// WithEnvFactory replaces the simulator.
func WithEnvFactory(f EnvFactory) Option {
	return func(r *Runner) { r.newEnv = f }
}

// WithActingOptions passes extra options (observers, telemetry) to every
// strategy.
func WithActingOptions(opts ...acting.Option) Option {
	return func(r *Runner) { r.actingOpts = append(r.actingOpts, opts...) }
}

// New validates cfg and builds its strategies.
func New(cfg config.Config, opts ...Option) (*Runner, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	r := &Runner{
		cfg:    cfg,
		newEnv: NewSimulator,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = r.logger.With("component", "experiment")

	pc := cfg.StrategyPlanner()
	for _, name := range cfg.Strategies {
		stratOpts := append([]acting.Option{
			acting.WithMaxSteps(cfg.MaxSteps),
			acting.WithFailureThreshold(cfg.ThresholdFor(name)),
		}, r.actingOpts...)
		s, err := acting.NewStrategy(name, pc, stratOpts...)
		if err != nil {
			return nil, fmt.Errorf("failed to build strategy %s: %w", name, err)
		}
		r.strategies = append(r.strategies, s)
	}
	return r, nil
}

// Strategies returns the strategies in configuration order.
func (r *Runner) Strategies() []acting.Strategy {
	return r.strategies
}

// Jobs lists every episode. Episode i of every strategy uses seed
// cfg.Seed+i, so strategies are compared on the same starts.
func (r *Runner) Jobs() []Job {
	jobs := make([]Job, 0, r.cfg.Episodes*len(r.strategies))
	for i := 0; i < r.cfg.Episodes; i++ {
		for _, s := range r.strategies {
			jobs = append(jobs, Job{Index: len(jobs), Strategy: s, Seed: r.cfg.Seed + int64(i)})
		}
	}
	return jobs
}

// Run executes all jobs on cfg.Parallel workers. Records are returned in
// job order. A cancelled context stops workers from taking new jobs; the
// records finished so far are returned with the context error.
func (r *Runner) Run(ctx context.Context) ([]acting.Metrics, error) {
	jobs := r.Jobs()
	r.logger.Info("experiment starting",
		"episodes", r.cfg.Episodes,
		"strategies", len(r.strategies),
		"runs", len(jobs),
		"parallel", r.cfg.Parallel,
	)

	records := make([]acting.Metrics, len(jobs))
	done := make([]bool, len(jobs))

	queue := make(chan Job)
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		sinkErr error
	)
	for w := 0; w < r.cfg.Parallel; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			for job := range queue {
				m := r.runJob(ctx, job)

				mu.Lock()
				records[job.Index] = m
				done[job.Index] = true
				if r.out != nil {
					fmt.Fprintln(r.out, results.EpisodeLine(m, r.color))
				}
				if r.sink != nil && sinkErr == nil {
					if err := r.sink.Write(ctx, m); err != nil {
						sinkErr = fmt.Errorf("failed to write episode %s: %w", m.ID, err)
						r.logger.Error("sink write failed", "worker", worker, "error", err)
					}
				}
				mu.Unlock()
			}
		}(w)
	}

	var runErr error
feed:
	for _, job := range jobs {
		if err := ctx.Err(); err != nil {
			runErr = err
			break
		}
		select {
		case <-ctx.Done():
			runErr = ctx.Err()
			break feed
		case queue <- job:
		}
	}
	close(queue)
	wg.Wait()

	out := make([]acting.Metrics, 0, len(jobs))
	for i, ok := range done {
		if ok {
			out = append(out, records[i])
		}
	}
	if runErr == nil {
		runErr = sinkErr
	}
	r.logger.Info("experiment finished", "completed", len(out), "runs", len(jobs))
	return out, runErr
}

func (r *Runner) runJob(ctx context.Context, job Job) acting.Metrics {
	env, err := r.newEnv(r.cfg.SimulationConfig())
	if err != nil {
		r.logger.Error("failed to create environment", "strategy", job.Strategy.Name(), "seed", job.Seed, "error", err)
		return acting.Metrics{
			ID:       uuid.NewString(),
			Strategy: job.Strategy.Name(),
			Seed:     job.Seed,
			Outcome:  acting.OutcomeEnvError,
			Error:    err.Error(),
		}
	}
	return job.Strategy.Run(ctx, env, job.Seed)
}
