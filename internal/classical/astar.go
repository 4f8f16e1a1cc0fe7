package classical

import (
	"container/heap"
	"context"
	"fmt"

	"github.com/elektrokombinacija/taxi-htn/internal/core"
)

// astarNode for priority queue.
type astarNode struct {
	searchNode
	g     int // Cost so far
	f     int // g + h
	seq   int // insertion order, breaks ties
	index int // heap index
}

// astarHeap implements heap.Interface.
type astarHeap []*astarNode

func (h astarHeap) Len() int { return len(h) }
func (h astarHeap) Less(i, j int) bool {
	if h[i].f != h[j].f {
		return h[i].f < h[j].f
	}
	return h[i].seq < h[j].seq
}
func (h astarHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}
func (h *astarHeap) Push(x any) {
	n := x.(*astarNode)
	n.index = len(*h)
	*h = append(*h, n)
}
func (h *astarHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	old[n-1] = nil
	*h = old[0 : n-1]
	return x
}

// AStar is a best-first search over (taxi, passenger) states guided by the
// wall-free Manhattan distance of the remaining trip. The heuristic is
// consistent, so the plan it returns is as short as BreadthFirst's.
type AStar struct{}

// Solve implements Planner. ctx is checked once per expanded state.
func (AStar) Solve(ctx context.Context, p *Problem) ([]string, error) {
	start := searchState{taxi: p.Taxi, passenger: p.Passenger}
	if p.InTaxi {
		start.passenger = core.NoPosition
	}
	goal := func(s searchState) bool { return s.passenger == p.Destination }
	h := func(s searchState) int { return tripEstimate(s, p.Destination) }

	seq := 0
	open := &astarHeap{}
	heap.Push(open, &astarNode{searchNode: searchNode{state: start}, f: h(start)})
	best := map[searchState]int{start: 0}
	closed := map[searchState]bool{}

	for open.Len() > 0 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		n := heap.Pop(open).(*astarNode)
		if closed[n.state] {
			continue
		}
		if goal(n.state) {
			return reconstructActions(&n.searchNode), nil
		}
		closed[n.state] = true

		for _, succ := range successors(p, n.state) {
			g := n.g + 1
			if closed[succ.state] {
				continue
			}
			if old, ok := best[succ.state]; ok && old <= g {
				continue
			}
			best[succ.state] = g
			seq++
			heap.Push(open, &astarNode{
				searchNode: searchNode{state: succ.state, parent: &n.searchNode, action: succ.action},
				g:          g,
				f:          g + h(succ.state),
				seq:        seq,
			})
		}
	}

	return nil, ErrNoPlan
}

// tripEstimate is a lower bound on the actions left: the drive to the
// passenger, the pickup, the drive to the destination and the dropoff.
func tripEstimate(s searchState, dest core.Position) int {
	if s.passenger == dest {
		return 0
	}
	if s.passenger == core.NoPosition {
		return manhattan(s.taxi, dest) + 1
	}
	return manhattan(s.taxi, s.passenger) + 1 + manhattan(s.passenger, dest) + 1
}

func manhattan(a, b core.Position) int {
	return abs(a.Row-b.Row) + abs(a.Col-b.Col)
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

// Search algorithm names accepted by NewSearch.
const (
	SearchBreadthFirst = "bfs"
	SearchAStar        = "astar"
)

// NewSearch returns the named search. An empty name selects BreadthFirst.
func NewSearch(name string) (Planner, error) {
	switch name {
	case "", SearchBreadthFirst:
		return BreadthFirst{}, nil
	case SearchAStar:
		return AStar{}, nil
	}
	return nil, fmt.Errorf("unknown classical search %q (want %s or %s)", name, SearchBreadthFirst, SearchAStar)
}
