package algo

import (
	"errors"
	"fmt"

	"github.com/elektrokombinacija/taxi-htn/internal/core"
)

var (
	// ErrUnreachable is returned when no path joins two cells.
	ErrUnreachable = errors.New("target unreachable")

	// ErrMalformedPath is returned when consecutive path cells are not
	// unit steps apart.
	ErrMalformedPath = errors.New("malformed path")
)

// bfsNode links a discovered cell to the cell it was reached from.
type bfsNode struct {
	pos    core.Position
	parent *bfsNode
}

// FindPath returns a shortest path from start to goal, both included, or
// false when goal cannot be reached. Neighbors are visited north, south,
// east, west so ties always resolve the same way.
func FindPath(grid *core.Grid, start, goal core.Position) ([]core.Position, bool) {
	if !grid.InBounds(start) || !grid.InBounds(goal) {
		return nil, false
	}
	if start == goal {
		return []core.Position{start}, true
	}

	visited := map[core.Position]bool{start: true}
	queue := []*bfsNode{{pos: start}}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		for _, next := range grid.Neighbors(current.pos) {
			if visited[next] {
				continue
			}
			node := &bfsNode{pos: next, parent: current}
			if next == goal {
				return reconstructCells(node), true
			}
			visited[next] = true
			queue = append(queue, node)
		}
	}

	return nil, false
}

func reconstructCells(node *bfsNode) []core.Position {
	n := 0
	for c := node; c != nil; c = c.parent {
		n++
	}
	path := make([]core.Position, n)
	for c := node; c != nil; c = c.parent {
		n--
		path[n] = c.pos
	}
	return path
}

// PathActions converts a cell path into one move per consecutive pair.
func PathActions(path []core.Position) ([]core.Action, error) {
	if len(path) < 2 {
		return nil, nil
	}
	actions := make([]core.Action, 0, len(path)-1)
	for i := 0; i < len(path)-1; i++ {
		d, ok := core.DirectionBetween(path[i], path[i+1])
		if !ok {
			return nil, fmt.Errorf("%w: %v -> %v", ErrMalformedPath, path[i], path[i+1])
		}
		actions = append(actions, core.MoveAction(d))
	}
	return actions, nil
}

// Distance returns the shortest-path length between two cells, or -1.
func Distance(grid *core.Grid, from, to core.Position) int {
	path, ok := FindPath(grid, from, to)
	if !ok {
		return -1
	}
	return len(path) - 1
}
