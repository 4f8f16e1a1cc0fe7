// Package state holds what the replay viewer shows.
package state

import (
	"fmt"
	"slices"

	"github.com/elektrokombinacija/taxi-htn/internal/acting"
	"github.com/elektrokombinacija/taxi-htn/internal/core"
)

// State holds a recorded episode and the playback position.
type State struct {
	Trace    acting.Trace
	Map      *core.Grid // walls of the simulated map
	Belief   *core.Grid // walls the planner assumed
	Playback *PlaybackState
}

// NewState creates a replay over trace. A nil belief means the planner
// knew the real map.
func NewState(trace acting.Trace, world, belief *core.Grid) *State {
	if belief == nil {
		belief = world
	}
	return &State{
		Trace:    trace,
		Map:      world,
		Belief:   belief,
		Playback: NewPlaybackState(float64(len(trace.Frames))),
	}
}

// Frame returns the displayed frame index, 0 being the initial observation.
func (s *State) Frame() int {
	f := s.Playback.Frame()
	if f > len(s.Trace.Frames) {
		f = len(s.Trace.Frames)
	}
	return f
}

// Observation returns the displayed observation.
func (s *State) Observation() core.Observation {
	return s.Trace.Observation(s.Frame())
}

// World decodes the displayed observation over the real map.
func (s *State) World() core.WorldState {
	ws, err := core.StateFromObservation(s.Observation(), s.Map)
	if err != nil {
		return core.WorldState{Taxi: core.NoPosition, Passenger: core.NoPosition, Destination: core.NoPosition, Grid: s.Map}
	}
	return ws
}

// LastFrame returns the step that produced the displayed observation.
func (s *State) LastFrame() (acting.Frame, bool) {
	f := s.Frame()
	if f == 0 {
		return acting.Frame{}, false
	}
	return s.Trace.Frames[f-1], true
}

// History returns the taxi positions from the start up to the displayed
// frame, collapsing repeated cells.
func (s *State) History() []core.Position {
	var out []core.Position
	for i := 0; i <= s.Frame(); i++ {
		d := s.Trace.Observation(i).Decode()
		p := core.Pos(d.TaxiRow, d.TaxiCol)
		if len(out) == 0 || out[len(out)-1] != p {
			out = append(out, p)
		}
	}
	return out
}

// PendingRoute returns the cells the taxi would visit if the queued plan
// ran on the planner's map, starting at the current taxi cell. It stops
// at the first action the planner's model rejects.
func (s *State) PendingRoute() []core.Position {
	last, ok := s.LastFrame()
	if !ok || len(last.Pending) == 0 {
		return nil
	}
	ws, err := core.StateFromObservation(s.Observation(), s.Belief)
	if err != nil {
		return nil
	}
	route := []core.Position{ws.Taxi}
	for _, a := range last.Pending {
		next, ok := core.Apply(ws, a)
		if !ok {
			break
		}
		if next.Taxi != ws.Taxi {
			route = append(route, next.Taxi)
		}
		ws = next
	}
	return route
}

// ReplannedAt reports whether a failure replan happened right after frame.
func (s *State) ReplannedAt(frame int) bool {
	return slices.Contains(s.Trace.Replans, frame)
}

// Reward returns the reward accumulated up to the displayed frame.
func (s *State) Reward() float64 {
	total := 0.0
	for _, f := range s.Trace.Frames[:s.Frame()] {
		total += f.Reward
	}
	return total
}

// Status is the one-line caption for the displayed frame.
func (s *State) Status() string {
	m := s.Trace.Metrics
	head := fmt.Sprintf("%s seed=%d", m.Strategy, m.Seed)
	last, ok := s.LastFrame()
	if !ok {
		return fmt.Sprintf("%s | start | %s", head, s.Observation())
	}
	status := fmt.Sprintf("%s | step %d/%d %s reward=%.0f total=%.0f",
		head, last.Step, len(s.Trace.Frames), last.Action, last.Reward, s.Reward())
	if last.NoEffect {
		status += " (no effect)"
	}
	if s.Frame() == len(s.Trace.Frames) && m.Outcome != "" {
		status += " | " + string(m.Outcome)
	}
	return status
}
