package nav

import "math"

// Cell addresses one tile of the arena grid.
type Cell struct {
	X int
	Y int
}

// Heading deltas, clockwise from north: N, NE, E, SE, S, SW, W, NW.
// Neighbors enumerates candidates in exactly this order.
var headingDX = [8]int{0, 1, 1, 1, 0, -1, -1, -1}
var headingDY = [8]int{-1, -1, 0, 1, 1, 1, 0, -1}

const diagonalCost = math.Sqrt2

// Grid is a bounded obstacle/weight map over discretized 2D space. It answers
// bounds, passability, neighbor and step-cost queries and owns no behavior
// beyond that. Mutated only from the game loop goroutine.
type Grid struct {
	width     int
	height    int
	obstacles map[Cell]struct{}
	blocked   map[Cell]struct{} // transient blockers (standing units), separate from terrain
	weights   map[Cell]float64
}

func NewGrid(width, height int) *Grid {
	return &Grid{
		width:     width,
		height:    height,
		obstacles: make(map[Cell]struct{}),
		blocked:   make(map[Cell]struct{}),
		weights:   make(map[Cell]float64),
	}
}

func (g *Grid) Width() int  { return g.width }
func (g *Grid) Height() int { return g.height }

// InBounds reports whether the cell lies inside [0,width) x [0,height).
func (g *Grid) InBounds(c Cell) bool {
	return c.X >= 0 && c.X < g.width && c.Y >= 0 && c.Y < g.height
}

// Passable reports whether the cell is free of obstacles and transient
// blockers. It does not imply bounds: callers must check InBounds separately.
func (g *Grid) Passable(c Cell) bool {
	if _, ok := g.obstacles[c]; ok {
		return false
	}
	_, ok := g.blocked[c]
	return !ok
}

// AddObstacle marks a cell impassable. Idempotent.
func (g *Grid) AddObstacle(c Cell) {
	g.obstacles[c] = struct{}{}
}

// RemoveObstacle clears a cell's obstacle flag. Idempotent.
func (g *Grid) RemoveObstacle(c Cell) {
	delete(g.obstacles, c)
}

// SetBlocked marks or clears a transient blocker on a cell. Blockers behave
// like obstacles for Passable and Neighbors but live in a separate layer so
// terrain is untouched when a unit moves off a cell.
func (g *Grid) SetBlocked(c Cell, blocked bool) {
	if blocked {
		g.blocked[c] = struct{}{}
	} else {
		delete(g.blocked, c)
	}
}

// SetWeight adds weight to the traversal cost of every move landing on the
// cell. Repeated calls stack; there is no way to set an absolute weight.
func (g *Grid) SetWeight(c Cell, weight float64) {
	if weight < 0 {
		weight = 0
	}
	g.weights[c] += weight
}

// ClearWeight removes all accumulated extra weight from a cell.
func (g *Grid) ClearWeight(c Cell) {
	delete(g.weights, c)
}

// Neighbors returns the in-bounds, passable cells adjacent to c, in heading
// order N, NE, E, SE, S, SW, W, NW.
func (g *Grid) Neighbors(c Cell) []Cell {
	out := make([]Cell, 0, 8)
	for h := 0; h < 8; h++ {
		n := Cell{X: c.X + headingDX[h], Y: c.Y + headingDY[h]}
		if g.InBounds(n) && g.Passable(n) {
			out = append(out, n)
		}
	}
	return out
}

// Cost returns the cost of a single step from a to b: 1 for an orthogonal
// move, sqrt(2) for a diagonal, plus any extra weight on the destination.
func (g *Grid) Cost(a, b Cell) float64 {
	base := 1.0
	if a.X != b.X && a.Y != b.Y {
		base = diagonalCost
	}
	return base + g.weights[b]
}
