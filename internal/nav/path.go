package nav

import "container/heap"

// PathFinder runs A* searches over a Grid. Searches are synchronous and must
// fit the tick budget, so an expansion cap bounds worst-case work; a capped
// search reports no path.
type PathFinder struct {
	grid      *Grid
	maxExpand int
}

const defaultMaxExpand = 4096

func NewPathFinder(grid *Grid, maxExpand int) *PathFinder {
	if maxExpand <= 0 {
		maxExpand = defaultMaxExpand
	}
	return &PathFinder{grid: grid, maxExpand: maxExpand}
}

// Heuristic is the Manhattan distance between two cells. With diagonal steps
// costing sqrt(2) it can overestimate the true remaining cost, so paths are
// near-optimal rather than strictly optimal in adversarial layouts. It also
// expands fewer nodes than an admissible estimate would, which matters more
// here than exact optimality.
func Heuristic(a, b Cell) float64 {
	dx := a.X - b.X
	if dx < 0 {
		dx = -dx
	}
	dy := a.Y - b.Y
	if dy < 0 {
		dy = -dy
	}
	return float64(dx + dy)
}

type frontierNode struct {
	cell     Cell
	priority float64
	seq      int // insertion sequence, breaks priority ties deterministically
}

type frontier []frontierNode

func (f frontier) Len() int { return len(f) }
func (f frontier) Less(i, j int) bool {
	if f[i].priority != f[j].priority {
		return f[i].priority < f[j].priority
	}
	return f[i].seq < f[j].seq
}
func (f frontier) Swap(i, j int)      { f[i], f[j] = f[j], f[i] }
func (f *frontier) Push(x any)        { *f = append(*f, x.(frontierNode)) }
func (f *frontier) Pop() any {
	old := *f
	n := len(old)
	node := old[n-1]
	*f = old[:n-1]
	return node
}

// FindPath returns the cell sequence from start to goal inclusive, or nil if
// either endpoint is out of bounds or impassable, or no route exists within
// the expansion budget.
func (p *PathFinder) FindPath(start, goal Cell) []Cell {
	g := p.grid
	if !g.InBounds(start) || !g.InBounds(goal) {
		return nil
	}
	if !g.Passable(start) || !g.Passable(goal) {
		return nil
	}
	if start == goal {
		return []Cell{start}
	}

	costSoFar := map[Cell]float64{start: 0}
	cameFrom := map[Cell]Cell{}

	seq := 0
	open := &frontier{{cell: start, priority: Heuristic(start, goal), seq: seq}}
	heap.Init(open)

	expanded := 0
	for open.Len() > 0 {
		current := heap.Pop(open).(frontierNode).cell
		if current == goal {
			return rebuild(cameFrom, start, goal)
		}
		expanded++
		if expanded > p.maxExpand {
			return nil
		}

		for _, next := range g.Neighbors(current) {
			newCost := costSoFar[current] + g.Cost(current, next)
			if old, seen := costSoFar[next]; seen && newCost >= old {
				continue
			}
			costSoFar[next] = newCost
			cameFrom[next] = current
			seq++
			heap.Push(open, frontierNode{
				cell:     next,
				priority: newCost + Heuristic(next, goal),
				seq:      seq,
			})
		}
	}
	return nil
}

func rebuild(cameFrom map[Cell]Cell, start, goal Cell) []Cell {
	// Walk back from goal, then reverse in place.
	path := []Cell{goal}
	for c := goal; c != start; {
		c = cameFrom[c]
		path = append(path, c)
	}
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path
}
