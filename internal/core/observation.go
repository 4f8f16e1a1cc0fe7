package core

import "fmt"

// Landmark is one of the named pickup/dropoff locations.
type Landmark int

const (
	Red Landmark = iota
	Green
	Yellow
	Blue
)

// NumLandmarks is the number of named locations.
const NumLandmarks = 4

// InTaxiIndex is the passenger-location index meaning "riding in the taxi".
const InTaxiIndex = NumLandmarks

// Landmarks holds the landmark cells, indexed by Landmark.
var Landmarks = [NumLandmarks]Position{
	Red:    {Row: 0, Col: 0},
	Green:  {Row: 0, Col: 4},
	Yellow: {Row: 4, Col: 0},
	Blue:   {Row: 4, Col: 3},
}

func (l Landmark) String() string {
	return [...]string{"R", "G", "Y", "B"}[l]
}

// Position returns the landmark cell.
func (l Landmark) Position() Position {
	return Landmarks[l]
}

// LandmarkAt returns the landmark on p, if any.
func LandmarkAt(p Position) (Landmark, bool) {
	for i, lp := range Landmarks {
		if lp == p {
			return Landmark(i), true
		}
	}
	return 0, false
}

// NumObservations is the size of the observation space.
const NumObservations = GridSize * GridSize * (NumLandmarks + 1) * NumLandmarks

// Observation is the simulator's encoded state.
type Observation int

// Decoded is the unpacked form of an Observation.
type Decoded struct {
	TaxiRow, TaxiCol int
	PassengerIndex   int // 0..3 landmark, InTaxiIndex when aboard
	DestinationIndex int // 0..3 landmark
}

// Encode packs d into an Observation.
func Encode(d Decoded) Observation {
	i := d.TaxiRow
	i = i*GridSize + d.TaxiCol
	i = i*(NumLandmarks+1) + d.PassengerIndex
	i = i*NumLandmarks + d.DestinationIndex
	return Observation(i)
}

// Decode unpacks o.
func (o Observation) Decode() Decoded {
	i := int(o)
	var d Decoded
	d.DestinationIndex = i % NumLandmarks
	i /= NumLandmarks
	d.PassengerIndex = i % (NumLandmarks + 1)
	i /= NumLandmarks + 1
	d.TaxiCol = i % GridSize
	d.TaxiRow = i / GridSize
	return d
}

// Valid reports whether o lies in the observation space.
func (o Observation) Valid() bool {
	return o >= 0 && int(o) < NumObservations
}

func (o Observation) String() string {
	d := o.Decode()
	pass := "in-taxi"
	if d.PassengerIndex < NumLandmarks {
		pass = Landmark(d.PassengerIndex).String()
	}
	return fmt.Sprintf("taxi=(%d,%d) passenger=%s dest=%s", d.TaxiRow, d.TaxiCol, pass, Landmark(d.DestinationIndex))
}

// StateFromObservation builds the planner's WorldState for o over grid.
func StateFromObservation(o Observation, grid *Grid) (WorldState, error) {
	if !o.Valid() {
		return WorldState{}, fmt.Errorf("%w: observation %d out of range", ErrInvalidState, int(o))
	}
	d := o.Decode()
	if d.DestinationIndex >= NumLandmarks {
		return WorldState{}, fmt.Errorf("%w: destination index %d", ErrInvalidState, d.DestinationIndex)
	}
	s := WorldState{
		Taxi:        Pos(d.TaxiRow, d.TaxiCol),
		Destination: Landmarks[d.DestinationIndex],
		Grid:        grid,
	}
	if d.PassengerIndex == InTaxiIndex {
		return s.WithPassengerAboard(), nil
	}
	s.Passenger = Landmarks[d.PassengerIndex]
	return s, nil
}

// ObservationFromState encodes s. The passenger, when waiting, and the
// destination must stand on landmarks.
func ObservationFromState(s WorldState) (Observation, error) {
	dest, ok := LandmarkAt(s.Destination)
	if !ok {
		return 0, fmt.Errorf("%w: destination %v is not a landmark", ErrInvalidState, s.Destination)
	}
	pass := InTaxiIndex
	if !s.InTaxi {
		l, ok := LandmarkAt(s.Passenger)
		if !ok {
			return 0, fmt.Errorf("%w: passenger %v is not on a landmark", ErrInvalidState, s.Passenger)
		}
		pass = int(l)
	}
	return Encode(Decoded{
		TaxiRow:          s.Taxi.Row,
		TaxiCol:          s.Taxi.Col,
		PassengerIndex:   pass,
		DestinationIndex: int(dest),
	}), nil
}
