package core

import (
	"errors"
	"fmt"
)

// ErrInvalidState reports a WorldState that breaks a domain invariant.
var ErrInvalidState = errors.New("invalid world state")

// WorldState is a snapshot of the taxi world. It is a value: operators
// return a new WorldState and never modify their input. Grid is shared and
// read-only.
type WorldState struct {
	Taxi        Position
	Passenger   Position // NoPosition while the passenger rides in the taxi
	Destination Position
	InTaxi      bool
	Grid        *Grid
}

// NewWorldState builds a state with the passenger waiting at passenger.
func NewWorldState(grid *Grid, taxi, passenger, destination Position) WorldState {
	return WorldState{
		Taxi:        taxi,
		Passenger:   passenger,
		Destination: destination,
		Grid:        grid,
	}
}

// WithPassengerAboard returns s with the passenger riding in the taxi.
func (s WorldState) WithPassengerAboard() WorldState {
	s.InTaxi = true
	s.Passenger = NoPosition
	return s
}

// PassengerWaiting reports whether a passenger stands somewhere on the grid
// outside the taxi.
func (s WorldState) PassengerWaiting() bool {
	return !s.InTaxi && s.Passenger != NoPosition
}

// Delivered reports whether the passenger has been dropped at the destination.
func (s WorldState) Delivered() bool {
	return !s.InTaxi && s.Passenger == s.Destination
}

// Equal compares the dynamic parts of two states. Grids are compared by
// identity.
func (s WorldState) Equal(o WorldState) bool {
	return s.Taxi == o.Taxi &&
		s.Passenger == o.Passenger &&
		s.Destination == o.Destination &&
		s.InTaxi == o.InTaxi &&
		s.Grid == o.Grid
}

// Validate checks the state invariants.
func (s WorldState) Validate() error {
	if s.Grid == nil {
		return fmt.Errorf("%w: no grid", ErrInvalidState)
	}
	if (s.Passenger == NoPosition) != s.InTaxi {
		return fmt.Errorf("%w: passenger %v with in-taxi=%v", ErrInvalidState, s.Passenger, s.InTaxi)
	}
	if !s.Grid.InBounds(s.Taxi) {
		return fmt.Errorf("%w: taxi %v out of bounds", ErrInvalidState, s.Taxi)
	}
	if !s.InTaxi && !s.Grid.InBounds(s.Passenger) {
		return fmt.Errorf("%w: passenger %v out of bounds", ErrInvalidState, s.Passenger)
	}
	if !s.Grid.InBounds(s.Destination) {
		return fmt.Errorf("%w: destination %v out of bounds", ErrInvalidState, s.Destination)
	}
	return nil
}

func (s WorldState) String() string {
	return fmt.Sprintf("taxi=%v passenger=%v dest=%v in_taxi=%v", s.Taxi, s.Passenger, s.Destination, s.InTaxi)
}
