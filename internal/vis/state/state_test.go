package state

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elektrokombinacija/taxi-htn/internal/acting"
	"github.com/elektrokombinacija/taxi-htn/internal/algo"
	"github.com/elektrokombinacija/taxi-htn/internal/core"
)

func obsAt(row, col int) core.Observation {
	return core.Encode(core.Decoded{TaxiRow: row, TaxiCol: col, PassengerIndex: int(core.Red), DestinationIndex: int(core.Blue)})
}

// sampleTrace drives north, bumps twice into the wall west of (1,2), replans
// and drives north again.
func sampleTrace() acting.Trace {
	return acting.Trace{
		Initial: obsAt(2, 2),
		Frames: []acting.Frame{
			{Step: 1, Observation: obsAt(1, 2), Action: core.MoveNorth, Reward: -1,
				Pending: algo.Plan{core.MoveNorth, core.MoveWest, core.MoveWest}},
			{Step: 2, Observation: obsAt(1, 2), Action: core.MoveWest, Reward: -1, NoEffect: true,
				Pending: algo.Plan{core.MoveWest}},
			{Step: 3, Observation: obsAt(1, 2), Action: core.MoveWest, Reward: -1, NoEffect: true},
			{Step: 4, Observation: obsAt(0, 2), Action: core.MoveNorth, Reward: -1},
		},
		Replans: []int{3},
		Metrics: acting.Metrics{Strategy: "lazy-lookahead", Seed: 9, Outcome: acting.OutcomeStepBudget},
	}
}

func TestState_Frames(t *testing.T) {
	st := NewState(sampleTrace(), core.TaxiV3Walls(), nil)
	assert.Equal(t, 4.0, st.Playback.MaxTime)
	assert.Same(t, st.Map, st.Belief)

	assert.Equal(t, 0, st.Frame())
	assert.Equal(t, core.Pos(2, 2), st.World().Taxi)
	_, ok := st.LastFrame()
	assert.False(t, ok)
	assert.Contains(t, st.Status(), "start")
	assert.Nil(t, st.PendingRoute())

	st.Playback.SetTime(3.5)
	assert.Equal(t, 3, st.Frame())
	last, ok := st.LastFrame()
	require.True(t, ok)
	assert.True(t, last.NoEffect)
	assert.Contains(t, st.Status(), "(no effect)")
	assert.True(t, st.ReplannedAt(3))
	assert.False(t, st.ReplannedAt(2))
	assert.Equal(t, -3.0, st.Reward())

	st.Playback.SetTime(4)
	assert.Equal(t, core.Pos(0, 2), st.World().Taxi)
	assert.Equal(t, []core.Position{core.Pos(2, 2), core.Pos(1, 2), core.Pos(0, 2)}, st.History())
	assert.Contains(t, st.Status(), string(acting.OutcomeStepBudget))
}

func TestState_PendingRouteFollowsBelief(t *testing.T) {
	actual := NewState(sampleTrace(), core.TaxiV3Walls(), nil)
	actual.Playback.SetTime(1)
	assert.Equal(t, []core.Position{core.Pos(1, 2), core.Pos(0, 2)}, actual.PendingRoute(),
		"the real map walls (0,1)-(0,2)")

	open := NewState(sampleTrace(), core.TaxiV3Walls(), core.OpenGrid(core.GridSize))
	open.Playback.SetTime(1)
	assert.Equal(t, []core.Position{core.Pos(1, 2), core.Pos(0, 2), core.Pos(0, 1), core.Pos(0, 0)}, open.PendingRoute())
}

func TestPlayback(t *testing.T) {
	p := NewPlaybackState(10)
	p.AdvanceBy(time.Second)
	assert.Zero(t, p.CurrentTime, "paused playback does not move")

	p.Play()
	p.SetSpeed(4)
	p.AdvanceBy(time.Second)
	assert.InDelta(t, 4.0, p.CurrentTime, 1e-9)
	assert.Equal(t, 4, p.Frame())
	assert.InDelta(t, 0.4, p.Progress(), 1e-9)

	p.AdvanceBy(10 * time.Second)
	assert.Equal(t, 10.0, p.CurrentTime)
	assert.False(t, p.Playing)

	p.TogglePlay()
	assert.True(t, p.Playing)
	assert.Zero(t, p.CurrentTime, "play at the end rewinds")

	p.SetTime(2.5)
	p.StepForward()
	assert.False(t, p.Playing)
	assert.Equal(t, 3.0, p.CurrentTime)
	p.StepBack()
	assert.Equal(t, 2.0, p.CurrentTime)
	p.SetTime(2.5)
	p.StepBack()
	assert.Equal(t, 2.0, p.CurrentTime)

	p.SetTime(-3)
	assert.Zero(t, p.CurrentTime)
	p.SetTime(99)
	assert.Equal(t, 10.0, p.CurrentTime)

	p.SetSpeed(1000)
	assert.Equal(t, 32.0, p.Speed)
	p.SetSpeed(0)
	assert.Equal(t, 0.25, p.Speed)

	p.Reset()
	assert.Zero(t, p.CurrentTime)
	assert.Zero(t, NewPlaybackState(0).Progress())
}
