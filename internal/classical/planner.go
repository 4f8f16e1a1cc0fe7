package classical

import (
	"context"
	"errors"
	"fmt"

	"github.com/elektrokombinacija/taxi-htn/internal/algo"
	"github.com/elektrokombinacija/taxi-htn/internal/core"
)

var (
	// ErrNoPlan is returned when the goal cannot be reached.
	ErrNoPlan = errors.New("no plan found")

	// ErrUnknownAction is returned for an action name with no simulator
	// counterpart.
	ErrUnknownAction = errors.New("unknown action name")
)

// Planner solves a ground Problem into an ordered list of action names.
type Planner interface {
	Solve(ctx context.Context, p *Problem) ([]string, error)
}

// searchState is the dynamic part of a Problem.
type searchState struct {
	taxi      core.Position
	passenger core.Position // NoPosition when aboard
}

type searchNode struct {
	state  searchState
	parent *searchNode
	action string
}

// BreadthFirst is an uninformed search over (taxi, passenger) states. It
// returns a shortest plan.
type BreadthFirst struct{}

// Solve implements Planner. ctx is checked once per expanded state.
func (BreadthFirst) Solve(ctx context.Context, p *Problem) ([]string, error) {
	start := searchState{taxi: p.Taxi, passenger: p.Passenger}
	if p.InTaxi {
		start.passenger = core.NoPosition
	}
	goal := func(s searchState) bool { return s.passenger == p.Destination }

	root := &searchNode{state: start}
	if goal(start) {
		return []string{}, nil
	}

	visited := map[searchState]bool{start: true}
	queue := []*searchNode{root}

	for len(queue) > 0 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		n := queue[0]
		queue = queue[1:]

		for _, succ := range successors(p, n.state) {
			if visited[succ.state] {
				continue
			}
			visited[succ.state] = true
			child := &searchNode{state: succ.state, parent: n, action: succ.action}
			if goal(succ.state) {
				return reconstructActions(child), nil
			}
			queue = append(queue, child)
		}
	}

	return nil, ErrNoPlan
}

type successor struct {
	state  searchState
	action string
}

func successors(p *Problem, s searchState) []successor {
	out := make([]successor, 0, 6)
	aboard := s.passenger == core.NoPosition
	for _, l := range p.Links(s.taxi) {
		next := s
		next.taxi = l.To
		out = append(out, successor{
			state:  next,
			action: fmt.Sprintf("(%s taxi1 %s %s)", l.Dir, LocationName(l.From), LocationName(l.To)),
		})
	}
	if !aboard && s.taxi == s.passenger {
		out = append(out, successor{
			state:  searchState{taxi: s.taxi, passenger: core.NoPosition},
			action: fmt.Sprintf("(pick-up passenger1 taxi1 %s)", LocationName(s.taxi)),
		})
	}
	if aboard {
		out = append(out, successor{
			state:  searchState{taxi: s.taxi, passenger: s.taxi},
			action: fmt.Sprintf("(drop-off passenger1 taxi1 %s)", LocationName(s.taxi)),
		})
	}
	return out
}

func reconstructActions(n *searchNode) []string {
	var actions []string
	for ; n.parent != nil; n = n.parent {
		actions = append(actions, n.action)
	}
	for i, j := 0, len(actions)-1; i < j; i, j = i+1, j-1 {
		actions[i], actions[j] = actions[j], actions[i]
	}
	return actions
}

// StatePlanner adapts a classical Planner to algo.Planner so the acting
// strategies can drive it like the HTN planner.
type StatePlanner struct {
	solver Planner
}

// NewStatePlanner wraps solver; BreadthFirst when nil.
func NewStatePlanner(solver Planner) *StatePlanner {
	if solver == nil {
		solver = BreadthFirst{}
	}
	return &StatePlanner{solver: solver}
}

// Name returns the planner name.
func (p *StatePlanner) Name() string { return "classical" }

// Plan builds the problem for state, solves it and maps the names back to
// actions. Failures wrap algo.ErrRejected.
func (p *StatePlanner) Plan(ctx context.Context, state core.WorldState) (algo.Plan, error) {
	prob, err := NewProblem(state)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", algo.ErrRejected, err)
	}
	names, err := p.solver.Solve(ctx, prob)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", algo.ErrRejected, err)
	}
	plan := make(algo.Plan, 0, len(names))
	for _, n := range names {
		a, err := ActionFromName(n)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", algo.ErrRejected, err)
		}
		plan = append(plan, a)
	}
	return plan, nil
}
