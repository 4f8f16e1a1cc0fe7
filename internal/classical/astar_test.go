package classical

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elektrokombinacija/taxi-htn/internal/core"
)

func TestAStar_MatchesBreadthFirstLength(t *testing.T) {
	ctx := context.Background()
	for _, g := range []*core.Grid{core.TaxiV3Walls(), core.OpenGrid(core.GridSize)} {
		for r := 0; r < core.GridSize; r++ {
			for c := 0; c < core.GridSize; c++ {
				for p := range core.Landmarks {
					for d := range core.Landmarks {
						s := core.NewWorldState(g, core.Pos(r, c), core.Landmarks[p], core.Landmarks[d])
						prob, err := NewProblem(s)
						require.NoError(t, err)

						want, err := BreadthFirst{}.Solve(ctx, prob)
						require.NoError(t, err)
						got, err := AStar{}.Solve(ctx, prob)
						require.NoError(t, err)
						assert.Len(t, got, len(want), "from %v", s)
					}
				}
			}
		}
	}
}

func TestAStar_PlanReachesGoal(t *testing.T) {
	s := core.NewWorldState(core.TaxiV3Walls(), core.Pos(2, 2), core.Landmarks[core.Red], core.Landmarks[core.Blue])
	plan, err := NewStatePlanner(AStar{}).Plan(context.Background(), s)
	require.NoError(t, err)

	end, _, ok := core.ApplyAll(s, plan)
	require.True(t, ok)
	assert.True(t, end.Delivered())
	assert.Equal(t, core.Dropoff, plan[len(plan)-1])
}

func TestAStar_Aboard(t *testing.T) {
	s := core.NewWorldState(core.TaxiV3Walls(), core.Pos(4, 3), core.Landmarks[core.Green], core.Landmarks[core.Yellow]).WithPassengerAboard()
	p, err := NewProblem(s)
	require.NoError(t, err)
	names, err := AStar{}.Solve(context.Background(), p)
	require.NoError(t, err)
	// Up to row 2 around both walls, three west, two south, drop off.
	assert.Len(t, names, 8)
}

func TestAStar_Unreachable(t *testing.T) {
	g := core.NewGrid(core.GridSize,
		core.Edge{From: core.Pos(3, 4), To: core.Pos(4, 4)},
		core.Edge{From: core.Pos(4, 3), To: core.Pos(4, 4)},
	)
	s := core.NewWorldState(g, core.Pos(0, 0), core.Pos(0, 4), core.Pos(4, 4))
	p, err := NewProblem(s)
	require.NoError(t, err)
	_, err = AStar{}.Solve(context.Background(), p)
	assert.ErrorIs(t, err, ErrNoPlan)
}

func TestAStar_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s := core.NewWorldState(core.TaxiV3Walls(), core.Pos(0, 0), core.Pos(0, 4), core.Pos(4, 0))
	p, err := NewProblem(s)
	require.NoError(t, err)
	_, err = AStar{}.Solve(ctx, p)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestTripEstimate(t *testing.T) {
	dest := core.Pos(4, 0)
	assert.Equal(t, 0, tripEstimate(searchState{taxi: core.Pos(0, 0), passenger: dest}, dest))
	assert.Equal(t, 5, tripEstimate(searchState{taxi: core.Pos(0, 0), passenger: core.NoPosition}, dest))
	assert.Equal(t, 4+1+8+1, tripEstimate(searchState{taxi: core.Pos(0, 0), passenger: core.Pos(0, 4)}, dest))
}

func TestNewSearch(t *testing.T) {
	for name, want := range map[string]Planner{"": BreadthFirst{}, SearchBreadthFirst: BreadthFirst{}, SearchAStar: AStar{}} {
		got, err := NewSearch(name)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := NewSearch("dijkstra")
	assert.Error(t, err)
}
