package core

import "testing"

func TestMoveOperators(t *testing.T) {
	g := NewGrid(GridSize, Edge{Pos(2, 2), Pos(2, 3)})

	tests := []struct {
		name   string
		from   Position
		action Action
		want   Position
		ok     bool
	}{
		{"north", Pos(2, 2), MoveNorth, Pos(1, 2), true},
		{"south", Pos(2, 2), MoveSouth, Pos(3, 2), true},
		{"west", Pos(2, 2), MoveWest, Pos(2, 1), true},
		{"east walled", Pos(2, 2), MoveEast, Pos(2, 2), false},
		{"west walled back", Pos(2, 3), MoveWest, Pos(2, 3), false},
		{"north edge", Pos(0, 1), MoveNorth, Pos(0, 1), false},
		{"south edge", Pos(4, 1), MoveSouth, Pos(4, 1), false},
		{"east edge", Pos(1, 4), MoveEast, Pos(1, 4), false},
		{"west edge", Pos(1, 0), MoveWest, Pos(1, 0), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewWorldState(g, tt.from, Pos(0, 0), Pos(4, 4))
			next, ok := Apply(s, tt.action)
			if ok != tt.ok {
				t.Fatalf("Apply(%v) ok = %v, want %v", tt.action, ok, tt.ok)
			}
			if next.Taxi != tt.want {
				t.Errorf("taxi = %v, want %v", next.Taxi, tt.want)
			}
			if s.Taxi != tt.from {
				t.Error("operator mutated its input")
			}
		})
	}
}

func TestPickupDropoff(t *testing.T) {
	g := OpenGrid(GridSize)
	s := NewWorldState(g, Pos(0, 4), Pos(0, 4), Pos(4, 0))

	if _, ok := Apply(s, Dropoff); ok {
		t.Error("dropoff without passenger must fail")
	}

	aboard, ok := Apply(s, Pickup)
	if !ok {
		t.Fatal("pickup at passenger cell should succeed")
	}
	if !aboard.InTaxi || aboard.Passenger != NoPosition {
		t.Errorf("after pickup: %v", aboard)
	}
	if s.InTaxi {
		t.Error("pickup mutated its input")
	}
	if _, ok := Apply(aboard, Pickup); ok {
		t.Error("second pickup must fail")
	}
	if _, ok := Apply(aboard, Dropoff); ok {
		t.Error("dropoff away from destination must fail")
	}

	aboard.Taxi = Pos(4, 0)
	done, ok := Apply(aboard, Dropoff)
	if !ok {
		t.Fatal("dropoff at destination should succeed")
	}
	if done.InTaxi || done.Passenger != Pos(4, 0) || !done.Delivered() {
		t.Errorf("after dropoff: %v", done)
	}

	away := NewWorldState(g, Pos(1, 1), Pos(0, 4), Pos(4, 0))
	if _, ok := Apply(away, Pickup); ok {
		t.Error("pickup away from passenger must fail")
	}
}

// Every operator keeps "passenger absent iff in taxi".
func TestOperatorsPreserveInvariant(t *testing.T) {
	g := TaxiV3Walls()
	for _, taxi := range g.Cells() {
		for _, aboard := range []bool{false, true} {
			s := NewWorldState(g, taxi, Pos(0, 4), Pos(4, 3))
			if aboard {
				s = s.WithPassengerAboard()
				s.Destination = taxi
			}
			if err := s.Validate(); err != nil {
				t.Fatalf("seed state invalid: %v", err)
			}
			for _, a := range Actions {
				next, ok := Apply(s, a)
				if !ok {
					continue
				}
				if err := next.Validate(); err != nil {
					t.Errorf("%v from %v: %v", a, s, err)
				}
			}
		}
	}
}

func TestApplyAll(t *testing.T) {
	g := OpenGrid(GridSize)
	s := NewWorldState(g, Pos(0, 0), Pos(0, 2), Pos(2, 2))

	end, n, ok := ApplyAll(s, []Action{MoveEast, MoveEast, Pickup, MoveSouth, MoveSouth, Dropoff})
	if !ok || n != 6 {
		t.Fatalf("ApplyAll = %d, %v", n, ok)
	}
	if !end.Delivered() {
		t.Errorf("expected delivery, got %v", end)
	}

	_, n, ok = ApplyAll(s, []Action{MoveEast, Pickup})
	if ok || n != 1 {
		t.Errorf("ApplyAll stopped at %d, ok=%v; want 1, false", n, ok)
	}
}
