package acting

import (
	"errors"
	"fmt"

	"github.com/elektrokombinacija/taxi-htn/internal/algo"
	"github.com/elektrokombinacija/taxi-htn/internal/classical"
	"github.com/elektrokombinacija/taxi-htn/internal/core"
)

// ErrUnknownStrategy is returned by NewStrategy for an unregistered name.
var ErrUnknownStrategy = errors.New("unknown strategy")

// Strategy names accepted by NewStrategy.
const (
	StrategyLookahead              = "lookahead"
	StrategyLazyLookahead          = "lazy-lookahead"
	StrategyClassicalLookahead     = "classical-lookahead"
	StrategyClassicalLazyLookahead = "classical-lazy-lookahead"
)

// StrategyNames lists every name NewStrategy accepts.
func StrategyNames() []string {
	return []string{
		StrategyLookahead,
		StrategyLazyLookahead,
		StrategyClassicalLookahead,
		StrategyClassicalLazyLookahead,
	}
}

// PlannerConfig selects the planner behind a strategy.
type PlannerConfig struct {
	Grid          *core.Grid // wall model the planner believes in
	MaxExpansions int        // HTN decomposition budget, 0 for the default
	Search        string     // classical search, see classical.NewSearch
}

// NewStrategy builds a named strategy.
func NewStrategy(name string, pc PlannerConfig, opts ...Option) (Strategy, error) {
	htnOpts := []algo.DecomposerOption{}
	if pc.MaxExpansions > 0 {
		htnOpts = append(htnOpts, algo.WithMaxExpansions(pc.MaxExpansions))
	}

	var planner algo.Planner
	lazy := false
	switch name {
	case StrategyLookahead:
		planner = algo.NewHTNPlanner(htnOpts...)
	case StrategyLazyLookahead:
		planner, lazy = algo.NewHTNPlanner(htnOpts...), true
	case StrategyClassicalLookahead, StrategyClassicalLazyLookahead:
		search, err := classical.NewSearch(pc.Search)
		if err != nil {
			return nil, err
		}
		planner, lazy = classical.NewStatePlanner(search), name == StrategyClassicalLazyLookahead
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownStrategy, name)
	}

	if lazy {
		s, err := NewLazyLookahead(planner, pc.Grid, opts...)
		if err != nil {
			return nil, err
		}
		return s, nil
	}
	s, err := NewLookahead(planner, pc.Grid, opts...)
	if err != nil {
		return nil, err
	}
	return s, nil
}
