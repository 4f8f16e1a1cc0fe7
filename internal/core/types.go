// Package core defines the taxi grid-world domain model.
package core

import (
	"fmt"
	"strings"
)

// GridSize is the side length of the reference Taxi-v3 grid.
const GridSize = 5

// Position is a (row, col) cell. Row 0 is the northern edge.
type Position struct {
	Row, Col int
}

// NoPosition marks an absent position (passenger riding in the taxi).
var NoPosition = Position{Row: -1, Col: -1}

// Pos is shorthand for Position{Row: row, Col: col}.
func Pos(row, col int) Position {
	return Position{Row: row, Col: col}
}

func (p Position) String() string {
	if p == NoPosition {
		return "none"
	}
	return fmt.Sprintf("(%d,%d)", p.Row, p.Col)
}

// InBounds reports whether p lies in a size x size grid.
func (p Position) InBounds(size int) bool {
	return p.Row >= 0 && p.Row < size && p.Col >= 0 && p.Col < size
}

// Add offsets p by a direction's unit vector.
func (p Position) Add(d Direction) Position {
	dr, dc := d.Delta()
	return Position{Row: p.Row + dr, Col: p.Col + dc}
}

// Direction is one of the four grid moves.
type Direction int

const (
	North Direction = iota
	South
	East
	West
)

// Directions lists the neighbor visitation order used by path search.
var Directions = [...]Direction{North, South, East, West}

func (d Direction) String() string {
	return [...]string{"north", "south", "east", "west"}[d]
}

// Delta returns the (row, col) unit vector of d.
func (d Direction) Delta() (dr, dc int) {
	switch d {
	case North:
		return -1, 0
	case South:
		return 1, 0
	case East:
		return 0, 1
	default:
		return 0, -1
	}
}

// DirectionBetween returns the direction that moves from a to an adjacent b.
// The second result is false when b is not a unit step away from a.
func DirectionBetween(a, b Position) (Direction, bool) {
	dr, dc := b.Row-a.Row, b.Col-a.Col
	switch {
	case dr == -1 && dc == 0:
		return North, true
	case dr == 1 && dc == 0:
		return South, true
	case dr == 0 && dc == 1:
		return East, true
	case dr == 0 && dc == -1:
		return West, true
	}
	return 0, false
}

// Action is a primitive action. Its integer value is the canonical id the
// simulator expects and must not be reordered.
type Action int

const (
	MoveSouth Action = iota // 0
	MoveNorth               // 1
	MoveEast                // 2
	MoveWest                // 3
	Pickup                  // 4
	Dropoff                 // 5
)

// NumActions is the size of the action space.
const NumActions = 6

// Actions lists every primitive action in id order.
var Actions = [...]Action{MoveSouth, MoveNorth, MoveEast, MoveWest, Pickup, Dropoff}

var actionNames = [...]string{"move_south", "move_north", "move_east", "move_west", "pickup", "dropoff"}

func (a Action) String() string {
	if !a.Valid() {
		return fmt.Sprintf("action(%d)", int(a))
	}
	return actionNames[a]
}

// Valid reports whether a is one of the six canonical actions.
func (a Action) Valid() bool {
	return a >= MoveSouth && a <= Dropoff
}

// ID returns the simulator action id.
func (a Action) ID() int {
	return int(a)
}

// ActionFromID maps a simulator action id back to an Action.
func ActionFromID(id int) (Action, error) {
	a := Action(id)
	if !a.Valid() {
		return 0, fmt.Errorf("unknown action id %d", id)
	}
	return a, nil
}

// ParseAction accepts the canonical action names.
func ParseAction(name string) (Action, error) {
	n := strings.ToLower(strings.TrimSpace(name))
	for i, an := range actionNames {
		if an == n {
			return Action(i), nil
		}
	}
	return 0, fmt.Errorf("unknown action %q", name)
}

// MoveAction returns the move action for a direction.
func MoveAction(d Direction) Action {
	switch d {
	case North:
		return MoveNorth
	case South:
		return MoveSouth
	case East:
		return MoveEast
	default:
		return MoveWest
	}
}

// Direction returns the move direction of a; false for pickup/dropoff.
func (a Action) Direction() (Direction, bool) {
	switch a {
	case MoveNorth:
		return North, true
	case MoveSouth:
		return South, true
	case MoveEast:
		return East, true
	case MoveWest:
		return West, true
	}
	return 0, false
}

// IsMove reports whether a is one of the four moves.
func (a Action) IsMove() bool {
	_, ok := a.Direction()
	return ok
}
