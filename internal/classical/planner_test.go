package classical

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elektrokombinacija/taxi-htn/internal/algo"
	"github.com/elektrokombinacija/taxi-htn/internal/core"
)

func TestNewProblem_OmitsWalledLinks(t *testing.T) {
	s := core.NewWorldState(core.TaxiV3Walls(), core.Pos(0, 0), core.Landmarks[core.Green], core.Landmarks[core.Yellow])
	p, err := NewProblem(s)
	require.NoError(t, err)

	// 80 directed links on an open 5x5 grid, minus 6 two-way walls.
	assert.Equal(t, 68, p.NumLinks())
	assert.Len(t, p.Locations, 25)

	init := p.Init()
	assert.Contains(t, init, "(taxi-at taxi1 loc-0-0)")
	assert.Contains(t, init, "(passenger-at passenger1 loc-0-4)")
	assert.Contains(t, init, "(destination passenger1 loc-4-0)")
	assert.Contains(t, init, "(east loc-0-0 loc-0-1)")
	assert.NotContains(t, init, "(east loc-0-1 loc-0-2)")
	assert.NotContains(t, init, "(west loc-0-2 loc-0-1)")
	assert.Equal(t, "(passenger-at passenger1 loc-4-0)", p.Goal())
}

func TestNewProblem_InTaxi(t *testing.T) {
	s := core.NewWorldState(core.TaxiV3Walls(), core.Pos(2, 2), core.Landmarks[core.Green], core.Landmarks[core.Yellow]).WithPassengerAboard()
	p, err := NewProblem(s)
	require.NoError(t, err)
	assert.Contains(t, p.Init(), "(in-taxi passenger1 taxi1)")
}

func TestNewProblem_Invalid(t *testing.T) {
	s := core.WorldState{Taxi: core.Pos(0, 0), Passenger: core.NoPosition, Destination: core.Pos(0, 0), Grid: core.TaxiV3Walls()}
	_, err := NewProblem(s)
	assert.ErrorIs(t, err, core.ErrInvalidState)
}

func TestBreadthFirst_MatchesHTNLength(t *testing.T) {
	g := core.TaxiV3Walls()
	htn := algo.NewHTNPlanner()
	cls := NewStatePlanner(nil)
	ctx := context.Background()

	for _, taxi := range []core.Position{core.Pos(0, 0), core.Pos(2, 2), core.Pos(4, 4), core.Pos(3, 1)} {
		for p := range core.Landmarks {
			for d := range core.Landmarks {
				if p == d {
					continue
				}
				s := core.NewWorldState(g, taxi, core.Landmarks[p], core.Landmarks[d])

				plan, err := cls.Plan(ctx, s)
				require.NoError(t, err)
				end, _, ok := core.ApplyAll(s, plan)
				require.True(t, ok, "plan %v rejected from %v", plan, s)
				assert.True(t, end.Delivered())

				hplan, err := htn.Plan(ctx, s)
				require.NoError(t, err)
				assert.Equal(t, len(hplan), len(plan), "from %v", s)
			}
		}
	}
}

func TestBreadthFirst_AlreadyDelivered(t *testing.T) {
	s := core.NewWorldState(core.TaxiV3Walls(), core.Pos(1, 1), core.Landmarks[core.Blue], core.Landmarks[core.Blue])
	p, err := NewProblem(s)
	require.NoError(t, err)
	names, err := BreadthFirst{}.Solve(context.Background(), p)
	require.NoError(t, err)
	assert.Empty(t, names)
}

func TestBreadthFirst_Unreachable(t *testing.T) {
	g := core.NewGrid(core.GridSize,
		core.Edge{From: core.Pos(3, 4), To: core.Pos(4, 4)},
		core.Edge{From: core.Pos(4, 3), To: core.Pos(4, 4)},
	)
	s := core.NewWorldState(g, core.Pos(0, 0), core.Pos(0, 4), core.Pos(4, 4))
	p, err := NewProblem(s)
	require.NoError(t, err)

	_, err = BreadthFirst{}.Solve(context.Background(), p)
	assert.ErrorIs(t, err, ErrNoPlan)

	_, err = NewStatePlanner(nil).Plan(context.Background(), s)
	assert.ErrorIs(t, err, algo.ErrRejected)
	assert.ErrorIs(t, err, ErrNoPlan)
}

func TestBreadthFirst_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s := core.NewWorldState(core.TaxiV3Walls(), core.Pos(0, 0), core.Pos(0, 4), core.Pos(4, 0))
	p, err := NewProblem(s)
	require.NoError(t, err)
	_, err = BreadthFirst{}.Solve(ctx, p)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestActionFromName(t *testing.T) {
	tests := []struct {
		name string
		want core.Action
	}{
		{"(north taxi1 loc-1-0 loc-0-0)", core.MoveNorth},
		{"south", core.MoveSouth},
		{"(EAST taxi1 loc-0-0 loc-0-1)", core.MoveEast},
		{"drive-west", core.MoveWest},
		{"(pick-up passenger1 taxi1 loc-0-0)", core.Pickup},
		{"(drop-off passenger1 taxi1 loc-4-0)", core.Dropoff},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ActionFromName(tt.name)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := ActionFromName("(refuel taxi1)")
	assert.ErrorIs(t, err, ErrUnknownAction)
}

type scriptedSolver []string

func (s scriptedSolver) Solve(context.Context, *Problem) ([]string, error) { return s, nil }

func TestStatePlanner_UnknownName(t *testing.T) {
	s := core.NewWorldState(core.TaxiV3Walls(), core.Pos(0, 0), core.Pos(0, 4), core.Pos(4, 0))
	_, err := NewStatePlanner(scriptedSolver{"north", "teleport"}).Plan(context.Background(), s)
	assert.ErrorIs(t, err, algo.ErrRejected)
	assert.ErrorIs(t, err, ErrUnknownAction)
}
