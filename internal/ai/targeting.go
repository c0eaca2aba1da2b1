package ai

import (
	"math"

	"github.com/gridfire/server/internal/core/ecs"
)

// findNearestTarget scans all perceivable units and returns the closest live
// entity of a different faction within detectionRadius. Squared-distance
// comparison; ties go to the first unit in iteration order.
func (c *Controller) findNearestTarget(id ecs.EntityID, x, y float64) (ecs.EntityID, bool) {
	faction, ok := c.query.Faction(id)
	if !ok {
		return 0, false
	}
	const r2 = detectionRadius * detectionRadius
	var (
		best   ecs.EntityID
		bestD2 float64
		found  bool
	)
	c.query.EachUnit(func(u UnitInfo) {
		if u.ID == id || u.Faction == faction || u.HP <= 0 {
			return
		}
		dx, dy := u.X-x, u.Y-y
		d2 := dx*dx + dy*dy
		if d2 > r2 {
			return
		}
		if !found || d2 < bestD2 {
			best, bestD2, found = u.ID, d2, true
		}
	})
	return best, found
}

// formationAdjust pushes a destination away from nearby friendly agents so
// pursuers fan out instead of converging on one point. Repulsion from each
// registered agent within spacingRadius is proportional to (1 - d/radius),
// summed vectorially, plus a small random jitter.
func (c *Controller) formationAdjust(id ecs.EntityID, x, y, destX, destY float64) (float64, float64) {
	var offX, offY float64
	for i := range c.agents {
		other := &c.agents[i]
		if other.id == id {
			continue
		}
		ox, oy, ok := c.query.Position(other.id)
		if !ok {
			continue
		}
		dx, dy := x-ox, y-oy
		d := math.Hypot(dx, dy)
		if d <= 1e-6 || d >= spacingRadius {
			continue
		}
		push := 1 - d/spacingRadius
		offX += dx / d * push
		offY += dy / d * push
	}
	offX += (c.rng.Float64() - 0.5) * 0.5
	offY += (c.rng.Float64() - 0.5) * 0.5
	return destX + offX, destY + offY
}

// safeRetreatPoint computes a destination biased toward the agent's anchor
// and away from nearby hostiles: the normalized anchor direction plus
// repulsion from every hostile within retreatScanRange weighted by
// 15/max(1,distance), renormalized and projected retreatOffset units out.
func (c *Controller) safeRetreatPoint(ag *agentState, x, y float64) (float64, float64) {
	var dirX, dirY float64
	if dx, dy := ag.anchorX-x, ag.anchorY-y; dx != 0 || dy != 0 {
		d := math.Hypot(dx, dy)
		dirX, dirY = dx/d, dy/d
	}

	faction, ok := c.query.Faction(ag.id)
	if !ok {
		return ag.anchorX, ag.anchorY
	}
	c.query.EachUnit(func(u UnitInfo) {
		if u.ID == ag.id || u.Faction == faction || u.HP <= 0 {
			return
		}
		dx, dy := x-u.X, y-u.Y
		d := math.Hypot(dx, dy)
		if d > retreatScanRange {
			return
		}
		w := 15.0 / math.Max(1, d)
		if d <= 1e-6 {
			return
		}
		dirX += dx / d * w
		dirY += dy / d * w
	})

	if d := math.Hypot(dirX, dirY); d > 1e-6 {
		return x + dirX/d*retreatOffset, y + dirY/d*retreatOffset
	}
	// Standing on the anchor with no hostiles around: stay put.
	return ag.anchorX, ag.anchorY
}

// findEscortTarget picks the friendly unit most worth escorting:
// score = proximity + (1 - health fraction) * supportWeight + in-combat bonus.
func (c *Controller) findEscortTarget(id ecs.EntityID, x, y float64) (ecs.EntityID, bool) {
	faction, ok := c.query.Faction(id)
	if !ok {
		return 0, false
	}
	var (
		best      ecs.EntityID
		bestScore float64
		found     bool
	)
	c.query.EachUnit(func(u UnitInfo) {
		if u.ID == id || u.Faction != faction || u.HP <= 0 {
			return
		}
		dx, dy := u.X-x, u.Y-y
		score := math.Max(0, detectionRadius-math.Hypot(dx, dy))
		if u.MaxHP > 0 {
			score += (1 - u.HP/u.MaxHP) * supportWeight
		}
		if u.InCombat {
			score += supportCombatBon
		}
		if !found || score > bestScore {
			best, bestScore, found = u.ID, score, true
		}
	})
	return best, found
}
