package core

// Operator is a guarded state transition. It returns the successor state
// and true, or the input state and false when its precondition fails.
type Operator func(WorldState) (WorldState, bool)

// Operators maps each primitive action to its operator.
var Operators = map[Action]Operator{
	MoveNorth: moveOperator(North),
	MoveSouth: moveOperator(South),
	MoveEast:  moveOperator(East),
	MoveWest:  moveOperator(West),
	Pickup:    PickupPassenger,
	Dropoff:   DropoffPassenger,
}

// Apply runs the operator for a.
func Apply(s WorldState, a Action) (WorldState, bool) {
	op, ok := Operators[a]
	if !ok {
		return s, false
	}
	return op(s)
}

// ApplyAll applies actions in order and stops at the first rejection,
// returning the last reached state and the number of actions applied.
func ApplyAll(s WorldState, actions []Action) (WorldState, int, bool) {
	for i, a := range actions {
		next, ok := Apply(s, a)
		if !ok {
			return s, i, false
		}
		s = next
	}
	return s, len(actions), true
}

func moveOperator(d Direction) Operator {
	return func(s WorldState) (WorldState, bool) {
		if !s.Grid.CanMove(s.Taxi, d) {
			return s, false
		}
		s.Taxi = s.Taxi.Add(d)
		return s, true
	}
}

// PickupPassenger boards a waiting passenger standing on the taxi's cell.
func PickupPassenger(s WorldState) (WorldState, bool) {
	if s.InTaxi || s.Passenger == NoPosition || s.Taxi != s.Passenger {
		return s, false
	}
	s.InTaxi = true
	s.Passenger = NoPosition
	return s, true
}

// DropoffPassenger leaves the passenger at the destination.
func DropoffPassenger(s WorldState) (WorldState, bool) {
	if !s.InTaxi || s.Taxi != s.Destination {
		return s, false
	}
	s.InTaxi = false
	s.Passenger = s.Taxi
	return s, true
}
