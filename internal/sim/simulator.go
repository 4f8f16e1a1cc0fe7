// Package sim provides a Taxi-v3 compatible grid world for the acting
// strategies to run against.
//
// The simulator owns ground truth: the real wall layout, passenger
// location, rewards and episode termination. Planners only ever see it
// through encoded observations.
package sim

import (
	"errors"
	"fmt"
	"math/rand"
	"strings"

	"github.com/elektrokombinacija/taxi-htn/internal/core"
)

var (
	// ErrNotReset is returned by Step before the first Reset.
	ErrNotReset = errors.New("simulator not reset")

	// ErrEpisodeOver is returned by Step after termination or truncation.
	ErrEpisodeOver = errors.New("episode is over")

	// ErrInvalidAction is returned for an action id outside the action space.
	ErrInvalidAction = errors.New("invalid action")

	// ErrInvalidMap reports a malformed ASCII layout.
	ErrInvalidMap = errors.New("invalid map")
)

// Rewards.
const (
	StepReward    = -1
	IllegalReward = -10
	DeliverReward = 20
)

// DefaultTimeLimit is the step count after which an episode is truncated.
const DefaultTimeLimit = 200

// TaxiMap is the canonical Taxi-v3 layout. A '|' between two cells blocks
// east/west travel; ':' is open road.
var TaxiMap = []string{
	"+---------+",
	"|R: | : :G|",
	"| : | : : |",
	"| : : : : |",
	"| | : | : |",
	"|Y| : |B: |",
	"+---------+",
}

// SimulationConfig configures the simulator
type SimulationConfig struct {
	// ASCII layout, TaxiMap when empty
	Map []string

	// Steps before truncation; <= 0 disables truncation
	TimeLimit int

	// Probability that a move action has no effect
	SlipProbability float64
}

// DefaultConfig returns the Taxi-v3 configuration
func DefaultConfig() SimulationConfig {
	return SimulationConfig{
		Map:       TaxiMap,
		TimeLimit: DefaultTimeLimit,
	}
}

// StepResult is what one Step reports back.
type StepResult struct {
	Observation core.Observation
	Reward      float64
	Terminated  bool // passenger delivered
	Truncated   bool // time limit reached
}

// Done reports whether the episode has ended.
func (r StepResult) Done() bool {
	return r.Terminated || r.Truncated
}

// Simulator is a single Taxi-v3 episode runner. It is not safe for
// concurrent use; run one Simulator per episode when running in parallel.
type Simulator struct {
	config SimulationConfig
	desc   []string
	grid   *core.Grid
	rng    *rand.Rand

	taxi    core.Position
	passIdx int
	destIdx int

	steps int
	reset bool
	done  bool
}

// NewSimulator creates a simulator. It fails only on a malformed map.
func NewSimulator(config SimulationConfig) (*Simulator, error) {
	if len(config.Map) == 0 {
		config.Map = TaxiMap
	}
	if config.SlipProbability < 0 || config.SlipProbability > 1 {
		return nil, fmt.Errorf("slip probability %v outside [0,1]", config.SlipProbability)
	}
	grid, err := ParseMap(config.Map)
	if err != nil {
		return nil, err
	}
	return &Simulator{
		config: config,
		desc:   config.Map,
		grid:   grid,
		rng:    rand.New(rand.NewSource(0)),
	}, nil
}

// ParseMap extracts the wall set from an ASCII layout of GridSize rows.
func ParseMap(desc []string) (*core.Grid, error) {
	n := core.GridSize
	if len(desc) != n+2 {
		return nil, fmt.Errorf("%w: %d lines, want %d", ErrInvalidMap, len(desc), n+2)
	}
	var walls []core.Edge
	for r := 0; r < n; r++ {
		line := desc[r+1]
		if len(line) != 2*n+1 {
			return nil, fmt.Errorf("%w: line %d has width %d, want %d", ErrInvalidMap, r+1, len(line), 2*n+1)
		}
		for c := 0; c < n-1; c++ {
			if line[2*c+2] == '|' {
				walls = append(walls, core.Edge{From: core.Pos(r, c), To: core.Pos(r, c+1)})
			}
		}
	}
	return core.NewGrid(n, walls...), nil
}

// Grid returns the walls the simulator enforces.
func (s *Simulator) Grid() *core.Grid {
	return s.grid
}

// Config returns the simulator configuration.
func (s *Simulator) Config() SimulationConfig {
	return s.config
}

// Reset starts a new episode from seed: a random taxi cell, a passenger
// landmark and a different destination landmark.
func (s *Simulator) Reset(seed int64) core.Observation {
	s.rng = rand.New(rand.NewSource(seed))
	s.taxi = core.Pos(s.rng.Intn(core.GridSize), s.rng.Intn(core.GridSize))
	s.passIdx = s.rng.Intn(core.NumLandmarks)
	s.destIdx = s.rng.Intn(core.NumLandmarks - 1)
	if s.destIdx >= s.passIdx {
		s.destIdx++
	}
	s.steps = 0
	s.reset = true
	s.done = false
	return s.observe()
}

// ResetTo starts an episode from an explicit observation.
func (s *Simulator) ResetTo(o core.Observation, seed int64) error {
	if !o.Valid() {
		return fmt.Errorf("%w: observation %d out of range", core.ErrInvalidState, int(o))
	}
	d := o.Decode()
	s.rng = rand.New(rand.NewSource(seed))
	s.taxi = core.Pos(d.TaxiRow, d.TaxiCol)
	s.passIdx = d.PassengerIndex
	s.destIdx = d.DestinationIndex
	s.steps = 0
	s.reset = true
	s.done = false
	return nil
}

// Step applies one action id.
func (s *Simulator) Step(a core.Action) (StepResult, error) {
	if !s.reset {
		return StepResult{}, ErrNotReset
	}
	if s.done {
		return StepResult{}, ErrEpisodeOver
	}
	if !a.Valid() {
		return StepResult{}, fmt.Errorf("%w: %d", ErrInvalidAction, int(a))
	}

	res := StepResult{Reward: StepReward}
	if d, ok := a.Direction(); ok {
		if !s.slipped() {
			s.taxi = s.move(s.taxi, d)
		}
	}
	switch a {
	case core.Pickup:
		if s.passIdx < core.NumLandmarks && s.taxi == core.Landmarks[s.passIdx] {
			s.passIdx = core.InTaxiIndex
		} else {
			res.Reward = IllegalReward
		}
	case core.Dropoff:
		l, onLandmark := core.LandmarkAt(s.taxi)
		switch {
		case s.passIdx == core.InTaxiIndex && onLandmark && int(l) == s.destIdx:
			s.passIdx = s.destIdx
			res.Terminated = true
			res.Reward = DeliverReward
		case s.passIdx == core.InTaxiIndex && onLandmark:
			s.passIdx = int(l)
		default:
			res.Reward = IllegalReward
		}
	}

	s.steps++
	if !res.Terminated && s.config.TimeLimit > 0 && s.steps >= s.config.TimeLimit {
		res.Truncated = true
	}
	s.done = res.Done()
	res.Observation = s.observe()
	return res, nil
}

// move follows the Taxi-v3 movement rule: rows clamp at the border,
// columns also stop at '|'.
func (s *Simulator) move(p core.Position, d core.Direction) core.Position {
	next := p.Add(d)
	if !s.grid.InBounds(next) || s.grid.Walls().Blocks(p, next) {
		return p
	}
	return next
}

func (s *Simulator) slipped() bool {
	return s.config.SlipProbability > 0 && s.rng.Float64() < s.config.SlipProbability
}

// Steps returns the number of steps taken this episode.
func (s *Simulator) Steps() int {
	return s.steps
}

func (s *Simulator) observe() core.Observation {
	return core.Encode(core.Decoded{
		TaxiRow:          s.taxi.Row,
		TaxiCol:          s.taxi.Col,
		PassengerIndex:   s.passIdx,
		DestinationIndex: s.destIdx,
	})
}

// Describe renders an observation in words.
func Describe(o core.Observation) string {
	d := o.Decode()
	where := "in the taxi"
	if d.PassengerIndex < core.NumLandmarks {
		where = "waiting at " + core.Landmark(d.PassengerIndex).String()
	}
	return fmt.Sprintf("taxi at (%d,%d), passenger %s, destination %s",
		d.TaxiRow, d.TaxiCol, where, core.Landmark(d.DestinationIndex))
}

// Render draws the current frame. The taxi is 'T', or 't' with the
// passenger aboard; the destination letter is lower-cased.
func (s *Simulator) Render() string {
	rows := make([][]byte, len(s.desc))
	for i, line := range s.desc {
		rows[i] = []byte(line)
	}
	if s.reset {
		dest := core.Landmarks[s.destIdx]
		rows[dest.Row+1][2*dest.Col+1] = byte(strings.ToLower(core.Landmark(s.destIdx).String())[0])
		mark := byte('T')
		if s.passIdx == core.InTaxiIndex {
			mark = 't'
		}
		rows[s.taxi.Row+1][2*s.taxi.Col+1] = mark
	}
	var b strings.Builder
	for _, r := range rows {
		b.Write(r)
		b.WriteByte('\n')
	}
	return b.String()
}
