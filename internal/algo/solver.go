// Package algo implements path search and hierarchical task decomposition
// for the taxi domain.
package algo

import (
	"context"

	"github.com/elektrokombinacija/taxi-htn/internal/core"
)

// Planner is the interface acting strategies plan through.
type Planner interface {
	// Plan returns actions that reach the planner's goal from state.
	// Returns an error wrapping ErrRejected when no plan exists.
	Plan(ctx context.Context, state core.WorldState) (Plan, error)

	// Name returns the planner name.
	Name() string
}

// HTNPlanner decomposes a fixed goal task.
type HTNPlanner struct {
	decomposer *Decomposer
	goal       Task
}

// NewHTNPlanner plans for Transport using the given decomposer options.
func NewHTNPlanner(opts ...DecomposerOption) *HTNPlanner {
	return &HTNPlanner{decomposer: NewDecomposer(opts...), goal: Transport()}
}

// Name returns the planner name.
func (p *HTNPlanner) Name() string { return "htn" }

// Plan decomposes the goal task from state. Decomposition always runs to
// completion; ctx is not consulted.
func (p *HTNPlanner) Plan(_ context.Context, state core.WorldState) (Plan, error) {
	return p.decomposer.Decompose(state, p.goal)
}

// Decomposer exposes the underlying decomposer.
func (p *HTNPlanner) Decomposer() *Decomposer { return p.decomposer }
