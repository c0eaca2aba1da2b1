package system

import (
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/gridfire/server/internal/component"
	"github.com/gridfire/server/internal/core/ecs"
	coresys "github.com/gridfire/server/internal/core/system"
	"github.com/gridfire/server/internal/nav"
	"github.com/gridfire/server/internal/world"
)

const (
	arriveEps     = 0.05 // close enough to a destination to snap onto it
	waypointEps   = 0.2  // close enough to a path waypoint to advance
	stallSeconds  = 1.0  // no progress for this long forces a repath
	stallProgress = 0.01 // minimum distance-to-goal shrink that counts as progress
)

type moveOrder struct {
	id           ecs.EntityID
	destX, destY float64
	speed        float64 // 0 means use the unit's own move speed
	target       ecs.EntityID

	path     []nav.Cell
	pathIdx  int
	lastDist float64
	stall    float64
}

// MovementSystem integrates move orders each tick. Straight-line steps are
// taken while the next cell is open; otherwise it falls back to an A* path
// and follows waypoints. Cells under standing units are marked blocked on the
// grid so paths route around them.
type MovementSystem struct {
	state  *world.State
	grid   *nav.Grid
	finder *nav.PathFinder
	log    *zap.Logger

	orders []moveOrder
	index  map[ecs.EntityID]int
	marks  []nav.Cell
}

func NewMovementSystem(state *world.State, grid *nav.Grid, finder *nav.PathFinder, log *zap.Logger) *MovementSystem {
	return &MovementSystem{
		state:  state,
		grid:   grid,
		finder: finder,
		log:    log,
		index:  make(map[ecs.EntityID]int),
	}
}

func (m *MovementSystem) Phase() coresys.Phase { return coresys.PhasePostUpdate }

// MoveEntity records or replaces the entity's standing move order.
func (m *MovementSystem) MoveEntity(id ecs.EntityID, x, y, speed float64, targetID ecs.EntityID) {
	if i, ok := m.index[id]; ok {
		ord := &m.orders[i]
		if math.Abs(ord.destX-x) > arriveEps || math.Abs(ord.destY-y) > arriveEps {
			ord.path = nil
			ord.pathIdx = 0
			ord.stall = 0
			ord.lastDist = 0
		}
		ord.destX, ord.destY = x, y
		ord.speed = speed
		ord.target = targetID
		return
	}
	m.index[id] = len(m.orders)
	m.orders = append(m.orders, moveOrder{id: id, destX: x, destY: y, speed: speed, target: targetID})
}

func (m *MovementSystem) StopEntity(id ecs.EntityID) {
	i, ok := m.index[id]
	if !ok {
		return
	}
	m.removeOrder(i)
}

func (m *MovementSystem) removeOrder(i int) {
	last := len(m.orders) - 1
	delete(m.index, m.orders[i].id)
	if i != last {
		m.orders[i] = m.orders[last]
		m.index[m.orders[i].id] = i
	}
	m.orders = m.orders[:last]
}

func (m *MovementSystem) Update(dt time.Duration) {
	step := dt.Seconds()
	m.refreshBlockers()

	for i := 0; i < len(m.orders); i++ {
		ord := &m.orders[i]
		if !m.state.Alive(ord.id) {
			m.removeOrder(i)
			i--
			continue
		}
		tf, ok := m.state.Transforms.Get(ord.id)
		if !ok {
			m.removeOrder(i)
			i--
			continue
		}
		if m.advance(ord, tf, step) {
			m.removeOrder(i)
			i--
		}
	}
}

// advance moves one entity for one tick. It returns true when the order is
// finished and should be dropped.
func (m *MovementSystem) advance(ord *moveOrder, tf *component.Transform, step float64) bool {
	dist := math.Hypot(ord.destX-tf.X, ord.destY-tf.Y)
	if dist <= arriveEps {
		tf.X, tf.Y = ord.destX, ord.destY
		m.moveBlocker(tf)
		return true
	}

	// Stall watch: a shrinking distance to goal counts as progress.
	if ord.lastDist > 0 && ord.lastDist-dist < stallProgress {
		ord.stall += step
	} else {
		ord.stall = 0
	}
	ord.lastDist = dist
	if ord.stall >= stallSeconds {
		ord.path = nil
		ord.pathIdx = 0
		ord.stall = 0
	}

	speed := ord.speed
	if speed <= 0 {
		if unit, ok := m.state.Units.Get(ord.id); ok && unit.MoveSpeed > 0 {
			speed = unit.MoveSpeed
		} else {
			speed = 1.0
		}
	}
	travel := speed * step
	if travel > dist {
		travel = dist
	}

	// Aim point: the destination directly, or the current path waypoint.
	aimX, aimY := ord.destX, ord.destY
	if ord.path == nil {
		nx := tf.X + (ord.destX-tf.X)/dist*travel
		ny := tf.Y + (ord.destY-tf.Y)/dist*travel
		next := cellOf(nx, ny)
		if next == cellOf(tf.X, tf.Y) || (m.grid.InBounds(next) && m.grid.Passable(next)) {
			m.stepTo(tf, nx, ny)
			return false
		}
		if !m.computePath(ord, tf) {
			return true // unreachable, give up and let the agent re-decide
		}
	}

	if ord.pathIdx < len(ord.path) {
		wp := ord.path[ord.pathIdx]
		aimX, aimY = float64(wp.X)+0.5, float64(wp.Y)+0.5
		if math.Hypot(aimX-tf.X, aimY-tf.Y) <= waypointEps {
			ord.pathIdx++
			if ord.pathIdx >= len(ord.path) {
				ord.path = nil
				ord.pathIdx = 0
				return false
			}
			wp = ord.path[ord.pathIdx]
			aimX, aimY = float64(wp.X)+0.5, float64(wp.Y)+0.5
		}
	} else {
		ord.path = nil
		ord.pathIdx = 0
	}

	aimDist := math.Hypot(aimX-tf.X, aimY-tf.Y)
	if aimDist <= arriveEps {
		return false
	}
	if travel > aimDist {
		travel = aimDist
	}
	m.stepTo(tf, tf.X+(aimX-tf.X)/aimDist*travel, tf.Y+(aimY-tf.Y)/aimDist*travel)
	return false
}

// computePath runs A* from the entity's cell to the destination cell. The
// entity's own cell and the goal cell are unblocked for the search so a unit
// standing near the goal does not make it unreachable. Returns false when no
// route exists.
func (m *MovementSystem) computePath(ord *moveOrder, tf *component.Transform) bool {
	start := cellOf(tf.X, tf.Y)
	goal := cellOf(ord.destX, ord.destY)
	m.grid.SetBlocked(start, false)
	m.grid.SetBlocked(goal, false)
	path := m.finder.FindPath(start, goal)
	m.grid.SetBlocked(start, true)
	if len(path) == 0 {
		m.log.Debug("no path", zap.Uint64("entity", uint64(ord.id)),
			zap.Int("goal_x", goal.X), zap.Int("goal_y", goal.Y))
		return false
	}
	ord.path = path
	ord.pathIdx = 0
	if len(path) > 1 {
		ord.pathIdx = 1 // path[0] is the cell we already stand on
	}
	return true
}

func (m *MovementSystem) stepTo(tf *component.Transform, x, y float64) {
	tf.X, tf.Y = x, y
	m.moveBlocker(tf)
}

// refreshBlockers re-marks the cell under every placed entity. Marks from the
// previous tick are cleared first so terrain weights and static obstacles are
// never disturbed.
func (m *MovementSystem) refreshBlockers() {
	for _, c := range m.marks {
		m.grid.SetBlocked(c, false)
	}
	m.marks = m.marks[:0]
	m.state.Transforms.Each(func(_ ecs.EntityID, tf *component.Transform) {
		c := cellOf(tf.X, tf.Y)
		m.grid.SetBlocked(c, true)
		m.marks = append(m.marks, c)
	})
}

func (m *MovementSystem) moveBlocker(tf *component.Transform) {
	c := cellOf(tf.X, tf.Y)
	m.grid.SetBlocked(c, true)
	m.marks = append(m.marks, c)
}

func cellOf(x, y float64) nav.Cell {
	return nav.Cell{X: int(math.Floor(x)), Y: int(math.Floor(y))}
}
