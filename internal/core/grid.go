package core

import "sort"

// Edge is a directed transition between two cells.
type Edge struct {
	From, To Position
}

// WallSet holds blocked directed transitions. A two-way wall is stored as
// both directions.
type WallSet map[Edge]struct{}

// Blocks reports whether moving from -> to is walled.
func (w WallSet) Blocks(from, to Position) bool {
	_, ok := w[Edge{From: from, To: to}]
	return ok
}

// Edges returns the walled transitions in a stable order.
func (w WallSet) Edges() []Edge {
	edges := make([]Edge, 0, len(w))
	for e := range w {
		edges = append(edges, e)
	}
	sort.Slice(edges, func(i, j int) bool {
		a, b := edges[i], edges[j]
		if a.From != b.From {
			return less(a.From, b.From)
		}
		return less(a.To, b.To)
	})
	return edges
}

func less(a, b Position) bool {
	if a.Row != b.Row {
		return a.Row < b.Row
	}
	return a.Col < b.Col
}

// Grid is the static part of the world: its size and walls. A Grid is built
// once per episode and shared by every WorldState derived from it.
type Grid struct {
	Size  int
	walls WallSet
}

// NewGrid creates a grid; each wall pair is added in both directions.
func NewGrid(size int, walls ...Edge) *Grid {
	ws := make(WallSet, 2*len(walls))
	for _, e := range walls {
		ws[e] = struct{}{}
		ws[Edge{From: e.To, To: e.From}] = struct{}{}
	}
	return &Grid{Size: size, walls: ws}
}

// NewDirectedGrid creates a grid whose walls block only the listed directions.
func NewDirectedGrid(size int, walls ...Edge) *Grid {
	ws := make(WallSet, len(walls))
	for _, e := range walls {
		ws[e] = struct{}{}
	}
	return &Grid{Size: size, walls: ws}
}

// OpenGrid returns a wall-free grid.
func OpenGrid(size int) *Grid {
	return NewGrid(size)
}

// Walls exposes the wall set. Callers must not mutate it.
func (g *Grid) Walls() WallSet {
	return g.walls
}

// InBounds reports whether p is a cell of g.
func (g *Grid) InBounds(p Position) bool {
	return p.InBounds(g.Size)
}

// CanMove reports whether a single step from p in direction d is legal.
func (g *Grid) CanMove(p Position, d Direction) bool {
	next := p.Add(d)
	return g.InBounds(next) && !g.walls.Blocks(p, next)
}

// Neighbors returns reachable cells from p in North, South, East, West order.
func (g *Grid) Neighbors(p Position) []Position {
	out := make([]Position, 0, 4)
	for _, d := range Directions {
		if g.CanMove(p, d) {
			out = append(out, p.Add(d))
		}
	}
	return out
}

// Cells enumerates every cell row-major.
func (g *Grid) Cells() []Position {
	cells := make([]Position, 0, g.Size*g.Size)
	for r := 0; r < g.Size; r++ {
		for c := 0; c < g.Size; c++ {
			cells = append(cells, Pos(r, c))
		}
	}
	return cells
}

// TaxiV3Walls is the wall layout of the Taxi-v3 map:
//
//	+---------+
//	|R: | : :G|
//	| : | : : |
//	| : : : : |
//	| | : | : |
//	|Y| : |B: |
//	+---------+
func TaxiV3Walls() *Grid {
	return NewGrid(GridSize,
		Edge{Pos(0, 1), Pos(0, 2)},
		Edge{Pos(1, 1), Pos(1, 2)},
		Edge{Pos(3, 0), Pos(3, 1)},
		Edge{Pos(4, 0), Pos(4, 1)},
		Edge{Pos(3, 2), Pos(3, 3)},
		Edge{Pos(4, 2), Pos(4, 3)},
	)
}

// ApproximateWalls is a hand-built planner wall model that does not match
// the Taxi-v3 map. Planning against it produces moves the simulator ignores.
func ApproximateWalls() *Grid {
	return NewGrid(GridSize,
		Edge{Pos(0, 0), Pos(0, 1)},
		Edge{Pos(1, 0), Pos(1, 1)},
		Edge{Pos(0, 3), Pos(0, 4)},
		Edge{Pos(1, 3), Pos(1, 4)},
		Edge{Pos(3, 0), Pos(4, 0)},
		Edge{Pos(3, 0), Pos(3, 1)},
		Edge{Pos(4, 0), Pos(4, 1)},
		Edge{Pos(3, 2), Pos(4, 2)},
		Edge{Pos(3, 2), Pos(3, 3)},
		Edge{Pos(4, 2), Pos(4, 3)},
	)
}

// WallModel names a planner wall layout.
type WallModel string

const (
	WallsTaxiV3      WallModel = "taxi-v3"
	WallsApproximate WallModel = "approximate"
	WallsNone        WallModel = "none"
)

// GridFor returns the grid for a wall model; ok is false for unknown names.
func GridFor(m WallModel) (*Grid, bool) {
	switch m {
	case WallsTaxiV3, "":
		return TaxiV3Walls(), true
	case WallsApproximate:
		return ApproximateWalls(), true
	case WallsNone:
		return OpenGrid(GridSize), true
	}
	return nil, false
}
