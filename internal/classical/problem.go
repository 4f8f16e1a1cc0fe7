// Package classical is the flat state-space planning variant: a ground
// problem built from a WorldState, a solver contract returning action
// names, and the mapping from those names back to simulator actions.
package classical

import (
	"fmt"
	"strings"

	"github.com/elektrokombinacija/taxi-htn/internal/core"
)

// Link is one directed road segment the taxi may drive.
type Link struct {
	Dir  core.Direction
	From core.Position
	To   core.Position
}

// Problem is the ground description handed to a Planner: every location,
// the open road segments per direction, the initial taxi and passenger
// facts, and the goal passenger-at Destination.
type Problem struct {
	Locations   []core.Position
	Taxi        core.Position
	Passenger   core.Position // NoPosition when InTaxi
	InTaxi      bool
	Destination core.Position

	links map[core.Position][]Link
}

// NewProblem describes s. Walled transitions are left out of the road
// network.
func NewProblem(s core.WorldState) (*Problem, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	p := &Problem{
		Locations:   s.Grid.Cells(),
		Taxi:        s.Taxi,
		Passenger:   s.Passenger,
		InTaxi:      s.InTaxi,
		Destination: s.Destination,
		links:       make(map[core.Position][]Link, s.Grid.Size*s.Grid.Size),
	}
	for _, from := range p.Locations {
		for _, d := range core.Directions {
			if s.Grid.CanMove(from, d) {
				p.links[from] = append(p.links[from], Link{Dir: d, From: from, To: from.Add(d)})
			}
		}
	}
	return p, nil
}

// Links returns the road segments leaving from.
func (p *Problem) Links(from core.Position) []Link {
	return p.links[from]
}

// NumLinks counts every directed road segment.
func (p *Problem) NumLinks() int {
	n := 0
	for _, ls := range p.links {
		n += len(ls)
	}
	return n
}

// Init lists the initial facts.
func (p *Problem) Init() []string {
	facts := []string{fmt.Sprintf("(taxi-at taxi1 %s)", LocationName(p.Taxi))}
	if p.InTaxi {
		facts = append(facts, "(in-taxi passenger1 taxi1)")
	} else {
		facts = append(facts, fmt.Sprintf("(passenger-at passenger1 %s)", LocationName(p.Passenger)))
	}
	facts = append(facts, fmt.Sprintf("(destination passenger1 %s)", LocationName(p.Destination)))
	for _, from := range p.Locations {
		for _, l := range p.links[from] {
			facts = append(facts, fmt.Sprintf("(%s %s %s)", l.Dir, LocationName(l.From), LocationName(l.To)))
		}
	}
	return facts
}

// Goal is the goal fact.
func (p *Problem) Goal() string {
	return fmt.Sprintf("(passenger-at passenger1 %s)", LocationName(p.Destination))
}

// LocationName is the object name of a cell.
func LocationName(pos core.Position) string {
	return fmt.Sprintf("loc-%d-%d", pos.Row, pos.Col)
}

// ActionFromName maps a planner action name onto a simulator action by
// keyword, so both bare and parameterised names are accepted.
func ActionFromName(name string) (core.Action, error) {
	n := strings.ToLower(name)
	switch {
	case strings.Contains(n, "north"):
		return core.MoveNorth, nil
	case strings.Contains(n, "south"):
		return core.MoveSouth, nil
	case strings.Contains(n, "east"):
		return core.MoveEast, nil
	case strings.Contains(n, "west"):
		return core.MoveWest, nil
	case strings.Contains(n, "pick"):
		return core.Pickup, nil
	case strings.Contains(n, "drop"):
		return core.Dropoff, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownAction, name)
}
