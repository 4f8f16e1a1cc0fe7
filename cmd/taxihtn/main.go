// Command taxihtn runs acting-strategy experiments on the Taxi-v3 world.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/elektrokombinacija/taxi-htn/internal/acting"
	"github.com/elektrokombinacija/taxi-htn/internal/config"
	"github.com/elektrokombinacija/taxi-htn/internal/core"
	"github.com/elektrokombinacija/taxi-htn/internal/experiment"
	"github.com/elektrokombinacija/taxi-htn/internal/results"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	os.Exit(run(ctx, os.Args[1:], os.Stdout, os.Stderr))
}

// flags holds the command line. Each flag overrides the matching config
// field when set.
type flags struct {
	configPath string
	episodes   int
	seed       int64
	strategies string
	parallel   int
	maxSteps   int
	threshold  int
	walls      string
	search     string
	slip       float64
	jsonl      string
	csv        string
	redis      string
	report     string
	logLevel   string
	color      bool
	quiet      bool
	telemetry  bool
}

func parseFlags(args []string, stderr io.Writer) (*flags, map[string]bool, error) {
	f := &flags{}
	fs := flag.NewFlagSet("taxihtn", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&f.configPath, "config", "", "YAML experiment config")
	fs.IntVar(&f.episodes, "episodes", 0, "Episodes per strategy")
	fs.Int64Var(&f.seed, "seed", 0, "Seed of the first episode")
	fs.StringVar(&f.strategies, "strategies", "", "Comma-separated strategies ("+strings.Join(acting.StrategyNames(), ", ")+")")
	fs.IntVar(&f.parallel, "parallel", 0, "Episodes run concurrently")
	fs.IntVar(&f.maxSteps, "max-steps", 0, "Step budget per episode")
	fs.IntVar(&f.threshold, "threshold", 0, "Consecutive no-effect actions before lazy-lookahead replans")
	fs.StringVar(&f.walls, "walls", "", "Planner wall model (taxi-v3, approximate, none)")
	fs.StringVar(&f.search, "search", "", "Classical planner search (bfs, astar)")
	fs.Float64Var(&f.slip, "slip", 0, "Probability that a move has no effect")
	fs.StringVar(&f.jsonl, "jsonl", "", "Append episode records to this JSONL file")
	fs.StringVar(&f.csv, "csv", "", "Write episode records to this CSV file")
	fs.StringVar(&f.redis, "redis", "", "Push episode records to Redis (redis://host:port)")
	fs.StringVar(&f.report, "report", "", "Write an HTML comparison report")
	fs.StringVar(&f.logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	fs.BoolVar(&f.color, "color", true, "Colored console output")
	fs.BoolVar(&f.quiet, "quiet", false, "Skip per-episode lines")
	fs.BoolVar(&f.telemetry, "telemetry", false, "Log OpenTelemetry counters at the end")
	if err := fs.Parse(args); err != nil {
		return nil, nil, err
	}
	set := map[string]bool{}
	fs.Visit(func(fl *flag.Flag) { set[fl.Name] = true })
	return f, set, nil
}

func loadConfig(f *flags, set map[string]bool) (config.Config, error) {
	cfg := config.Default()
	if f.configPath != "" {
		var err error
		if cfg, err = config.Load(f.configPath); err != nil {
			return cfg, err
		}
	}

	if set["episodes"] {
		cfg.Episodes = f.episodes
	}
	if set["seed"] {
		cfg.Seed = f.seed
	}
	if set["strategies"] {
		cfg.Strategies = nil
		for _, s := range strings.Split(f.strategies, ",") {
			if s = strings.TrimSpace(s); s != "" {
				cfg.Strategies = append(cfg.Strategies, s)
			}
		}
	}
	if set["parallel"] {
		cfg.Parallel = f.parallel
	}
	if set["max-steps"] {
		cfg.MaxSteps = f.maxSteps
	}
	if set["threshold"] {
		cfg.FailureThreshold = f.threshold
	}
	if set["walls"] {
		cfg.Planner.Walls = core.WallModel(f.walls)
	}
	if set["search"] {
		cfg.Planner.Search = f.search
	}
	if set["slip"] {
		cfg.Simulator.SlipProbability = f.slip
	}
	if set["jsonl"] {
		cfg.Output.JSONL = f.jsonl
	}
	if set["csv"] {
		cfg.Output.CSV = f.csv
	}
	if set["redis"] {
		cfg.Output.RedisURL = f.redis
	}
	if set["report"] {
		cfg.Output.ReportHTML = f.report
	}
	if set["log-level"] {
		cfg.Log.Level = f.logLevel
	}
	return cfg, cfg.Validate()
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	f, set, err := parseFlags(args, stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	cfg, err := loadConfig(f, set)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}

	logger := cfg.Log.NewLogger()
	slog.SetDefault(logger)

	sink, err := openSinks(cfg.Output)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	defer func() {
		if err := sink.Close(); err != nil {
			logger.Error("failed to close result sinks", "error", err)
		}
	}()

	opts := []experiment.Option{
		experiment.WithSink(sink),
		experiment.WithLogger(logger),
		experiment.WithActingOptions(acting.WithObserver(acting.NewLogObserver(logger))),
	}
	if !f.quiet {
		opts = append(opts, experiment.WithOutput(stdout, f.color))
	}
	var tel *experiment.Telemetry
	if f.telemetry {
		tel = experiment.NewTelemetry()
		opts = append(opts, experiment.WithActingOptions(tel.Options()...))
	}

	runner, err := experiment.New(cfg, opts...)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}

	fmt.Fprintf(stdout, "Running %d episodes x %d strategies (parallel=%d, walls=%s)\n\n",
		cfg.Episodes, len(cfg.Strategies), cfg.Parallel, cfg.Planner.Walls)
	start := time.Now()
	records, runErr := runner.Run(ctx)
	elapsed := time.Since(start)

	summaries := results.Summarize(records)
	fmt.Fprintln(stdout)
	if err := results.WriteTable(stdout, summaries, f.color); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	fmt.Fprintf(stdout, "\n%d episodes in %v\n", len(records), elapsed.Round(time.Millisecond))

	code := 0
	if cfg.Output.CSV != "" {
		if err := writeCSVFile(cfg.Output.CSV, records); err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			code = 1
		} else {
			fmt.Fprintf(stdout, "Records written to: %s\n", cfg.Output.CSV)
		}
	}
	if cfg.Output.ReportHTML != "" {
		if err := results.WriteReportFile(cfg.Output.ReportHTML, summaries); err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			code = 1
		} else {
			fmt.Fprintf(stdout, "Report written to: %s\n", cfg.Output.ReportHTML)
		}
	}
	if tel != nil {
		if err := tel.Log(context.Background(), logger); err != nil {
			logger.Error("failed to collect telemetry", "error", err)
		}
		if err := tel.Shutdown(context.Background()); err != nil {
			logger.Error("failed to shut down telemetry", "error", err)
		}
	}
	if runErr != nil {
		fmt.Fprintf(stderr, "Error: %v\n", runErr)
		return 1
	}
	return code
}

func openSinks(out config.OutputConfig) (results.Sink, error) {
	var sinks []results.Sink
	closeAll := func() {
		for _, s := range sinks {
			s.Close()
		}
	}
	if out.JSONL != "" {
		if err := os.MkdirAll(filepath.Dir(out.JSONL), 0755); err != nil {
			return nil, fmt.Errorf("failed to create output directory: %w", err)
		}
		s, err := results.NewJSONLSink(out.JSONL)
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, s)
	}
	if out.RedisURL != "" {
		s, err := results.NewRedisSink(results.RedisOptions{URL: out.RedisURL, Key: out.RedisKey})
		if err != nil {
			closeAll()
			return nil, err
		}
		sinks = append(sinks, s)
	}
	return results.Sinks(sinks...), nil
}

func writeCSVFile(path string, records []acting.Metrics) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := results.WriteCSV(file, records); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}
