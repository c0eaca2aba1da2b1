package ai

import (
	"math"

	"github.com/gridfire/server/internal/core/ecs"
)

// Per-state decision handlers. Each runs at most once per decisionInterval
// for a given agent; whatever intent it issues keeps executing until the next
// decision point.

func (c *Controller) tickIdle(ag *agentState, x, y float64) {
	if target, found := c.findNearestTarget(ag.id, x, y); found {
		ag.targetID = target
		c.setState(ag, StatePursue)
		c.pursueMove(ag, x, y)
		return
	}
	if ag.stateTime >= ag.idleDwell {
		c.startPatrol(ag, x, y)
	}
}

func (c *Controller) startPatrol(ag *agentState, x, y float64) {
	// Sample a point uniformly in direction, linearly in radius, around the
	// anchor. Clustering near the anchor is acceptable patrol behavior.
	angle := c.rng.Float64() * 2 * math.Pi
	r := c.rng.Float64() * ag.patrolRadius
	ag.patrolX = ag.anchorX + math.Cos(angle)*r
	ag.patrolY = ag.anchorY + math.Sin(angle)*r
	ag.hasPatrol = true
	c.setState(ag, StatePatrol)

	dx, dy := c.formationAdjust(ag.id, x, y, ag.patrolX, ag.patrolY)
	c.movement.MoveEntity(ag.id, dx, dy, 0, 0)
}

func (c *Controller) tickPatrol(ag *agentState, x, y float64) {
	if target, found := c.findNearestTarget(ag.id, x, y); found {
		ag.targetID = target
		c.setState(ag, StatePursue)
		c.pursueMove(ag, x, y)
		return
	}
	if !ag.hasPatrol || within(x, y, ag.patrolX, ag.patrolY, arriveRadius) || ag.stateTime >= patrolTimeout {
		c.movement.StopEntity(ag.id)
		c.setState(ag, StateIdle)
		return
	}
	// Re-issue the move so formation drift keeps getting corrected.
	dx, dy := c.formationAdjust(ag.id, x, y, ag.patrolX, ag.patrolY)
	c.movement.MoveEntity(ag.id, dx, dy, 0, 0)
}

func (c *Controller) tickPursue(ag *agentState, x, y float64) {
	if !c.targetValid(ag.targetID) {
		ag.targetID = 0
		c.movement.StopEntity(ag.id)
		c.setState(ag, StateIdle)
		return
	}
	if c.combat.CanAttack(ag.id, ag.targetID) {
		c.movement.StopEntity(ag.id)
		c.combat.StartAttack(ag.id, ag.targetID)
		c.setState(ag, StateAttack)
		return
	}
	if ag.stateTime >= pursueTimeout {
		ag.targetID = 0
		c.startPatrol(ag, x, y)
		return
	}
	c.pursueMove(ag, x, y)
}

// pursueMove steers toward the target, or to the archetype's stand-off ring
// around it, with formation spacing applied.
func (c *Controller) pursueMove(ag *agentState, x, y float64) {
	tx, ty, ok := c.query.Position(ag.targetID)
	if !ok {
		return
	}
	destX, destY := tx, ty
	if ag.standOff > 0 {
		// Hold position standOff units from the target, on the agent's side.
		dx, dy := x-tx, y-ty
		if d := math.Hypot(dx, dy); d > 1e-6 {
			destX = tx + dx/d*ag.standOff
			destY = ty + dy/d*ag.standOff
		}
	}
	destX, destY = c.formationAdjust(ag.id, x, y, destX, destY)
	c.movement.MoveEntity(ag.id, destX, destY, ag.pursuitSpeed, ag.targetID)
}

func (c *Controller) tickAttack(ag *agentState, x, y float64) {
	if !c.targetValid(ag.targetID) {
		ag.targetID = 0
		c.combat.StopAttack(ag.id)
		c.setState(ag, StateIdle)
		return
	}
	if !c.combat.CanAttack(ag.id, ag.targetID) {
		c.combat.StopAttack(ag.id)
		c.setState(ag, StatePursue)
		c.pursueMove(ag, x, y)
		return
	}
	// In range with a live target: the standing attack order keeps running.
}

func (c *Controller) enterRetreat(ag *agentState, x, y float64) {
	c.combat.StopAttack(ag.id)
	ag.targetID = 0
	ag.patrolX, ag.patrolY = c.safeRetreatPoint(ag, x, y)
	ag.hasPatrol = true
	c.setState(ag, StateRetreat)
	c.movement.MoveEntity(ag.id, ag.patrolX, ag.patrolY, 0, 0)
}

func (c *Controller) tickRetreat(ag *agentState, x, y, maxHP float64) {
	if within(x, y, ag.patrolX, ag.patrolY, arriveRadius) || ag.stateTime >= retreatTimeout {
		c.combat.Heal(ag.id, retreatRegen*maxHP)
		c.movement.StopEntity(ag.id)
		c.setState(ag, StateIdle)
		return
	}
	c.movement.MoveEntity(ag.id, ag.patrolX, ag.patrolY, 0, 0)
}

func (c *Controller) tickSupport(ag *agentState, x, y float64) {
	escort, found := c.findEscortTarget(ag.id, x, y)
	if !found {
		ag.targetID = 0
		c.movement.StopEntity(ag.id)
		c.setState(ag, StateIdle)
		return
	}
	ag.targetID = escort
	ex, ey, ok := c.query.Position(escort)
	if !ok {
		return
	}
	dx, dy := c.formationAdjust(ag.id, x, y, ex, ey)
	c.movement.MoveEntity(ag.id, dx, dy, 0, escort)
}

// targetValid reports whether a target is still attackable: live entity with
// a position and positive health.
func (c *Controller) targetValid(id ecs.EntityID) bool {
	if id == 0 || !c.query.Alive(id) {
		return false
	}
	if _, _, ok := c.query.Position(id); !ok {
		return false
	}
	hp, _, ok := c.query.Health(id)
	return ok && hp > 0
}

func within(x, y, px, py, radius float64) bool {
	dx, dy := x-px, y-py
	return dx*dx+dy*dy <= radius*radius
}
