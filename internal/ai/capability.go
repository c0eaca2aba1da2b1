package ai

import "github.com/gridfire/server/internal/core/ecs"

// UnitInfo is the per-entity view the controller perceives through
// EntityQuery when scanning for targets or escort candidates.
type UnitInfo struct {
	ID       ecs.EntityID
	X, Y     float64
	Faction  string
	HP       float64
	MaxHP    float64
	InCombat bool
}

// EntityQuery is the read surface over the entity store. The controller
// never writes entity components; all mutation flows through Movement and
// Combat.
type EntityQuery interface {
	Alive(id ecs.EntityID) bool
	Position(id ecs.EntityID) (x, y float64, ok bool)
	Health(id ecs.EntityID) (hp, maxHP float64, ok bool)
	Faction(id ecs.EntityID) (name string, ok bool)
	// EachUnit visits every live entity that exposes position, health and
	// faction, in a deterministic order for a fixed entity set.
	EachUnit(fn func(UnitInfo))
}

// Movement accepts move intents. The implementation owns obstacle avoidance;
// the controller only picks destinations.
type Movement interface {
	// MoveEntity steers an entity toward (x, y) at the given speed. Speed 0
	// means the entity's own move speed. A nonzero targetID marks the move as
	// a pursuit so the mover may re-aim as the target shifts.
	MoveEntity(id ecs.EntityID, x, y, speed float64, targetID ecs.EntityID)
	StopEntity(id ecs.EntityID)
}

// Combat accepts attack intents and the retreat heal. Range and cooldown
// policy belong to the implementation; CanAttack is the controller's
// in-attack-range probe.
type Combat interface {
	CanAttack(id, targetID ecs.EntityID) bool
	StartAttack(id, targetID ecs.EntityID)
	StopAttack(id ecs.EntityID)
	// Heal restores health, capped at the entity's maximum. Used for the
	// retreat recovery; keeps the controller off direct component writes.
	Heal(id ecs.EntityID, amount float64)
}
