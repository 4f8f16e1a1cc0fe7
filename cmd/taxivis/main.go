// Command taxivis runs one episode and replays it in a Gio window.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"gioui.org/app"
	"gioui.org/unit"

	"github.com/elektrokombinacija/taxi-htn/internal/acting"
	"github.com/elektrokombinacija/taxi-htn/internal/config"
	"github.com/elektrokombinacija/taxi-htn/internal/core"
	"github.com/elektrokombinacija/taxi-htn/internal/experiment"
	"github.com/elektrokombinacija/taxi-htn/internal/vis"
)

func main() {
	configPath := flag.String("config", "", "YAML experiment config")
	strategy := flag.String("strategy", acting.StrategyLazyLookahead, "Strategy to replay")
	seed := flag.Int64("seed", 0, "Episode seed")
	walls := flag.String("walls", "", "Planner wall model (taxi-v3, approximate, none)")
	slip := flag.Float64("slip", -1, "Probability that a move has no effect (-1 keeps the config value)")
	flag.Parse()

	cfg := config.Default()
	if *configPath != "" {
		var err error
		if cfg, err = config.Load(*configPath); err != nil {
			log.Fatal(err)
		}
	}
	if *walls != "" {
		cfg.Planner.Walls = core.WallModel(*walls)
	}
	if *slip >= 0 {
		cfg.Simulator.SlipProbability = *slip
	}
	cfg.Strategies = []string{*strategy}
	if err := cfg.Validate(); err != nil {
		log.Fatal(err)
	}

	trace, world, err := experiment.Record(context.Background(), cfg, *strategy, *seed, cfg.Log.NewLogger())
	if err != nil {
		log.Fatal(err)
	}
	m := trace.Metrics
	fmt.Printf("%s seed=%d: %s after %d steps, reward %.0f, %d decompositions\n",
		m.Strategy, m.Seed, m.Outcome, m.Steps, m.TotalReward, m.DecompositionCalls)

	go func() {
		window := new(app.Window)
		window.Option(
			app.Title("Taxi HTN replay: "+m.Strategy),
			app.Size(unit.Dp(900), unit.Dp(900)),
		)

		application := vis.NewApp(trace, world, cfg.PlannerGrid())
		if err := application.Run(window); err != nil {
			log.Fatal(err)
		}
		os.Exit(0)
	}()
	app.Main()
}
