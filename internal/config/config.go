// Package config loads experiment configuration from YAML.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/elektrokombinacija/taxi-htn/internal/acting"
	"github.com/elektrokombinacija/taxi-htn/internal/classical"
	"github.com/elektrokombinacija/taxi-htn/internal/core"
	"github.com/elektrokombinacija/taxi-htn/internal/sim"
)

// ErrInvalidConfig is returned by Validate.
var ErrInvalidConfig = errors.New("invalid config")

// Config is an experiment description.
type Config struct {
	Episodes          int            `yaml:"episodes"`
	Seed              int64          `yaml:"seed"`
	MaxSteps          int            `yaml:"max_steps"`
	FailureThreshold  int            `yaml:"failure_threshold"`
	FailureThresholds map[string]int `yaml:"failure_thresholds,omitempty"` // per-strategy override
	Strategies        []string       `yaml:"strategies"`
	Parallel          int            `yaml:"parallel"`

	Simulator SimulatorConfig `yaml:"simulator"`
	Planner   PlannerConfig   `yaml:"planner"`
	Output    OutputConfig    `yaml:"output"`
	Log       LogConfig       `yaml:"log"`
}

// SimulatorConfig configures the Taxi-v3 simulator.
type SimulatorConfig struct {
	TimeLimit       int     `yaml:"time_limit"`
	SlipProbability float64 `yaml:"slip_probability"`
}

// PlannerConfig configures what the planners believe and how hard they try.
type PlannerConfig struct {
	Walls         core.WallModel `yaml:"walls"` // taxi-v3, approximate or none
	MaxExpansions int            `yaml:"max_expansions"`
	Search        string         `yaml:"classical_search"` // bfs or astar
}

// OutputConfig names the result destinations. Empty fields are skipped.
type OutputConfig struct {
	JSONL      string `yaml:"jsonl,omitempty"`
	CSV        string `yaml:"csv,omitempty"`
	RedisURL   string `yaml:"redis_url,omitempty"`
	RedisKey   string `yaml:"redis_key,omitempty"`
	ReportHTML string `yaml:"report_html,omitempty"`
}

// LogConfig configures the slog handler.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text or json
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Episodes:         100,
		Seed:             0,
		MaxSteps:         acting.DefaultMaxSteps,
		FailureThreshold: acting.DefaultFailureThreshold,
		Strategies:       []string{acting.StrategyLookahead, acting.StrategyLazyLookahead},
		Parallel:         1,
		Simulator: SimulatorConfig{
			TimeLimit: sim.DefaultTimeLimit,
		},
		Planner: PlannerConfig{
			Walls: core.WallsTaxiV3,
		},
		Log: LogConfig{Level: "info", Format: "text"},
	}
}

// Load reads path over the defaults and validates the result.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate checks every field.
func (c Config) Validate() error {
	var errs []error
	if c.Episodes <= 0 {
		errs = append(errs, fmt.Errorf("episodes must be positive, got %d", c.Episodes))
	}
	if c.MaxSteps <= 0 {
		errs = append(errs, fmt.Errorf("max_steps must be positive, got %d", c.MaxSteps))
	}
	if c.FailureThreshold <= 0 {
		errs = append(errs, fmt.Errorf("failure_threshold must be positive, got %d", c.FailureThreshold))
	}
	if c.Parallel <= 0 {
		errs = append(errs, fmt.Errorf("parallel must be positive, got %d", c.Parallel))
	}
	for name, n := range c.FailureThresholds {
		if !slices.Contains(acting.StrategyNames(), name) {
			errs = append(errs, fmt.Errorf("failure_thresholds: unknown strategy %q", name))
		}
		if n <= 0 {
			errs = append(errs, fmt.Errorf("failure_thresholds.%s must be positive, got %d", name, n))
		}
	}
	if len(c.Strategies) == 0 {
		errs = append(errs, errors.New("no strategies"))
	}
	for _, s := range c.Strategies {
		if !slices.Contains(acting.StrategyNames(), s) {
			errs = append(errs, fmt.Errorf("unknown strategy %q (want one of %s)", s, strings.Join(acting.StrategyNames(), ", ")))
		}
	}
	if c.Simulator.TimeLimit < 0 {
		errs = append(errs, fmt.Errorf("simulator.time_limit must not be negative, got %d", c.Simulator.TimeLimit))
	}
	if p := c.Simulator.SlipProbability; p < 0 || p > 1 {
		errs = append(errs, fmt.Errorf("simulator.slip_probability %v outside [0,1]", p))
	}
	if _, ok := core.GridFor(c.Planner.Walls); !ok {
		errs = append(errs, fmt.Errorf("unknown planner.walls %q", c.Planner.Walls))
	}
	if c.Planner.MaxExpansions < 0 {
		errs = append(errs, fmt.Errorf("planner.max_expansions must not be negative, got %d", c.Planner.MaxExpansions))
	}
	if _, err := classical.NewSearch(c.Planner.Search); err != nil {
		errs = append(errs, err)
	}
	if _, err := c.Log.SlogLevel(); err != nil {
		errs = append(errs, err)
	}
	if f := c.Log.Format; f != "text" && f != "json" {
		errs = append(errs, fmt.Errorf("unknown log.format %q", f))
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
	}
	return nil
}

// PlannerGrid returns the wall model the planners use.
func (c Config) PlannerGrid() *core.Grid {
	g, ok := core.GridFor(c.Planner.Walls)
	if !ok {
		return core.TaxiV3Walls()
	}
	return g
}

// ThresholdFor returns the failure threshold of the named strategy.
func (c Config) ThresholdFor(strategy string) int {
	if n, ok := c.FailureThresholds[strategy]; ok {
		return n
	}
	return c.FailureThreshold
}

// StrategyPlanner returns the planner settings for acting.NewStrategy.
func (c Config) StrategyPlanner() acting.PlannerConfig {
	return acting.PlannerConfig{
		Grid:          c.PlannerGrid(),
		MaxExpansions: c.Planner.MaxExpansions,
		Search:        c.Planner.Search,
	}
}

// SimulationConfig returns the simulator settings.
func (c Config) SimulationConfig() sim.SimulationConfig {
	cfg := sim.DefaultConfig()
	cfg.TimeLimit = c.Simulator.TimeLimit
	cfg.SlipProbability = c.Simulator.SlipProbability
	return cfg
}

// SlogLevel parses Level.
func (l LogConfig) SlogLevel() (slog.Level, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(l.Level)); err != nil {
		return 0, fmt.Errorf("unknown log.level %q", l.Level)
	}
	return lvl, nil
}

// NewLogger builds a logger writing to stderr.
func (l LogConfig) NewLogger() *slog.Logger {
	lvl, err := l.SlogLevel()
	if err != nil {
		lvl = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: lvl}
	if l.Format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}
