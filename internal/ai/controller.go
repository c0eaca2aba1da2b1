package ai

import (
	"fmt"
	"math/rand"

	"github.com/gridfire/server/internal/core/ecs"
	"github.com/gridfire/server/internal/data"
	"go.uber.org/zap"
)

// State is the finite-state-machine state of one agent.
type State int

const (
	StateIdle State = iota
	StatePatrol
	StatePursue
	StateAttack
	StateRetreat
	StateSupport
)

var stateNames = [...]string{"idle", "patrol", "pursue", "attack", "retreat", "support"}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return fmt.Sprintf("state(%d)", int(s))
	}
	return stateNames[s]
}

// ParseState maps a state name back to its State, for snapshot restore.
func ParseState(name string) (State, bool) {
	for i, n := range stateNames {
		if n == name {
			return State(i), true
		}
	}
	return StateIdle, false
}

// Behavior tuning shared by every archetype.
const (
	decisionInterval = 0.5  // seconds between state re-evaluations per agent
	detectionRadius  = 15.0 // max target acquisition distance
	idleDwellMin     = 3.0  // idle seconds before patrol, lower bound
	idleDwellMax     = 5.0  // upper bound
	patrolTimeout    = 10.0
	pursueTimeout    = 15.0
	retreatTimeout   = 10.0
	arriveRadius     = 1.0
	retreatThreshold = 0.3 // health fraction that forces Retreat
	retreatRegen     = 0.3 // fraction of max health restored on retreat exit
	spacingRadius    = 5.0 // formation repulsion range between friendly agents
	retreatScanRange = 25.0
	retreatOffset    = 20.0
	supportWeight    = 10.0 // (1 - health fraction) multiplier in escort scoring
	supportCombatBon = 5.0  // escort score bonus for units under attack
)

// agentState is one agent's FSM bookkeeping. The controller owns these
// exclusively; entity data stays in the entity store.
type agentState struct {
	id             ecs.EntityID
	state          State
	targetID       ecs.EntityID
	anchorX        float64
	anchorY        float64
	patrolRadius   float64
	aggressiveness float64
	pursuitSpeed   float64
	standOff       float64
	patrolX        float64
	patrolY        float64
	hasPatrol      bool
	stateTime      float64 // seconds in current state
	decisionTimer  float64 // seconds since last re-evaluation
	idleDwell      float64 // randomized idle dwell before patrolling
}

// Controller owns one state machine per registered agent. Agents live in a
// dense slice with an index map, so the per-tick walk is allocation-free and
// slot-order deterministic. Removal swap-deletes.
type Controller struct {
	query      EntityQuery
	movement   Movement
	combat     Combat
	archetypes *data.ArchetypeTable
	rng        *rand.Rand
	log        *zap.Logger

	agents []agentState
	index  map[ecs.EntityID]int
}

// NewController wires the controller to its capabilities. A nil capability is
// a configuration error caught here, not a per-call runtime check.
func NewController(query EntityQuery, movement Movement, combat Combat, archetypes *data.ArchetypeTable, rng *rand.Rand, log *zap.Logger) (*Controller, error) {
	if query == nil {
		return nil, fmt.Errorf("ai: EntityQuery capability is required")
	}
	if movement == nil {
		return nil, fmt.Errorf("ai: Movement capability is required")
	}
	if combat == nil {
		return nil, fmt.Errorf("ai: Combat capability is required")
	}
	if archetypes == nil || archetypes.Count() == 0 {
		return nil, fmt.Errorf("ai: archetype table is required")
	}
	if rng == nil {
		return nil, fmt.Errorf("ai: random source is required")
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Controller{
		query:      query,
		movement:   movement,
		combat:     combat,
		archetypes: archetypes,
		rng:        rng,
		log:        log,
		index:      make(map[ecs.EntityID]int, 128),
	}, nil
}

// RegisterEntity starts driving an entity. The current position becomes the
// patrol/retreat anchor. Returns false if the entity is already registered or
// lacks position, health or faction.
func (c *Controller) RegisterEntity(id ecs.EntityID, archetype string) bool {
	if _, dup := c.index[id]; dup {
		return false
	}
	x, y, ok := c.query.Position(id)
	if !ok {
		return false
	}
	if _, _, ok := c.query.Health(id); !ok {
		return false
	}
	if _, ok := c.query.Faction(id); !ok {
		return false
	}

	tuning := c.archetypes.Get(archetype)
	if tuning == nil {
		// Unknown archetype is a configuration error; fall back to the first
		// table entry rather than refusing the unit.
		fallback := c.archetypes.Names()[0]
		c.log.Warn("unknown archetype, using fallback",
			zap.String("archetype", archetype),
			zap.String("fallback", fallback))
		tuning = c.archetypes.Get(fallback)
	}

	ag := agentState{
		id:             id,
		state:          StateIdle,
		anchorX:        x,
		anchorY:        y,
		patrolRadius:   tuning.PatrolRadius,
		aggressiveness: tuning.Aggressiveness,
		pursuitSpeed:   tuning.PursuitSpeed,
		standOff:       tuning.StandOff,
		idleDwell:      c.sampleIdleDwell(),
	}
	c.index[id] = len(c.agents)
	c.agents = append(c.agents, ag)
	return true
}

// UnregisterEntity drops an agent unconditionally and immediately; no
// in-flight state is preserved.
func (c *Controller) UnregisterEntity(id ecs.EntityID) bool {
	slot, ok := c.index[id]
	if !ok {
		return false
	}
	c.removeSlot(slot)
	return true
}

func (c *Controller) removeSlot(slot int) {
	delete(c.index, c.agents[slot].id)
	last := len(c.agents) - 1
	if slot != last {
		c.agents[slot] = c.agents[last]
		c.index[c.agents[slot].id] = slot
	}
	c.agents = c.agents[:last]
}

// Registered reports whether an entity is under AI control.
func (c *Controller) Registered(id ecs.EntityID) bool {
	_, ok := c.index[id]
	return ok
}

// AgentCount returns the number of registered agents.
func (c *Controller) AgentCount() int {
	return len(c.agents)
}

// StateOf returns the current FSM state of a registered agent.
func (c *Controller) StateOf(id ecs.EntityID) (State, bool) {
	slot, ok := c.index[id]
	if !ok {
		return StateIdle, false
	}
	return c.agents[slot].state, true
}

// AssignSupport explicitly places an agent in the Support state. Support is
// never entered by the FSM on its own.
func (c *Controller) AssignSupport(id ecs.EntityID) bool {
	slot, ok := c.index[id]
	if !ok {
		return false
	}
	c.setState(&c.agents[slot], StateSupport)
	return true
}

// Update advances every agent's state machine by dt seconds. Decisions are
// gated to once per decisionInterval per agent; between decision points the
// last issued intent keeps running.
func (c *Controller) Update(dt float64) {
	for i := 0; i < len(c.agents); i++ {
		ag := &c.agents[i]
		ag.stateTime += dt
		ag.decisionTimer += dt

		// Entity vanished mid-state: unregister and skip. The swap-delete
		// moves another agent into this slot, so revisit it.
		if !c.query.Alive(ag.id) {
			c.removeSlot(i)
			i--
			continue
		}
		x, y, ok := c.query.Position(ag.id)
		if !ok {
			c.removeSlot(i)
			i--
			continue
		}

		if ag.decisionTimer < decisionInterval {
			continue
		}
		ag.decisionTimer = 0

		hp, maxHP, ok := c.query.Health(ag.id)
		if !ok {
			c.removeSlot(i)
			i--
			continue
		}

		// Retreat pre-empts everything, checked every decision tick.
		if ag.state != StateRetreat && maxHP > 0 && hp/maxHP < retreatThreshold {
			c.enterRetreat(ag, x, y)
			continue
		}

		switch ag.state {
		case StateIdle:
			c.tickIdle(ag, x, y)
		case StatePatrol:
			c.tickPatrol(ag, x, y)
		case StatePursue:
			c.tickPursue(ag, x, y)
		case StateAttack:
			c.tickAttack(ag, x, y)
		case StateRetreat:
			c.tickRetreat(ag, x, y, maxHP)
		case StateSupport:
			c.tickSupport(ag, x, y)
		}
	}
}

// setState switches an agent's state, resetting the state clock and sampling
// a fresh idle dwell when landing in Idle.
func (c *Controller) setState(ag *agentState, next State) {
	ag.state = next
	ag.stateTime = 0
	if next == StateIdle {
		ag.idleDwell = c.sampleIdleDwell()
		ag.hasPatrol = false
	}
}

func (c *Controller) sampleIdleDwell() float64 {
	return idleDwellMin + c.rng.Float64()*(idleDwellMax-idleDwellMin)
}
