package system

import (
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/gridfire/server/internal/component"
	"github.com/gridfire/server/internal/core/ecs"
	"github.com/gridfire/server/internal/core/event"
	coresys "github.com/gridfire/server/internal/core/system"
	"github.com/gridfire/server/internal/scripting"
	"github.com/gridfire/server/internal/world"
)

// attackCooldown is the delay between strikes for every unit.
const attackCooldown = 1.2

// DamageFormula resolves a strike into hit/miss and a damage amount. The Lua
// engine implements it; a nil formula falls back to a flat armor reduction.
type DamageFormula interface {
	CalcAttack(ctx scripting.AttackContext) scripting.AttackResult
}

type attackOrder struct {
	attacker ecs.EntityID
	target   ecs.EntityID
	cooldown float64
}

// CombatSystem resolves standing attack orders each tick: range gating,
// strike cooldowns, damage via the scripted formula, and death. It also
// maintains Unit.InCombat for both sides of every active order.
type CombatSystem struct {
	state   *world.State
	bus     *event.Bus
	formula DamageFormula
	log     *zap.Logger

	orders []attackOrder
	index  map[ecs.EntityID]int
}

func NewCombatSystem(state *world.State, bus *event.Bus, formula DamageFormula, log *zap.Logger) *CombatSystem {
	return &CombatSystem{
		state:   state,
		bus:     bus,
		formula: formula,
		log:     log,
		index:   make(map[ecs.EntityID]int),
	}
}

func (c *CombatSystem) Phase() coresys.Phase { return coresys.PhasePostUpdate }

// CanAttack reports whether the attacker is alive, the target is alive, and
// the target sits within the attacker's attack range.
func (c *CombatSystem) CanAttack(id, targetID ecs.EntityID) bool {
	if !c.state.Alive(id) || !c.state.Alive(targetID) {
		return false
	}
	unit, ok := c.state.Units.Get(id)
	if !ok {
		return false
	}
	ax, ay, ok := c.state.Position(id)
	if !ok {
		return false
	}
	tx, ty, ok := c.state.Position(targetID)
	if !ok {
		return false
	}
	return math.Hypot(tx-ax, ty-ay) <= unit.AttackRange
}

// StartAttack records or retargets the entity's standing attack order. The
// first strike lands on the next combat tick; there is no wind-up.
func (c *CombatSystem) StartAttack(id, targetID ecs.EntityID) {
	if i, ok := c.index[id]; ok {
		if c.orders[i].target != targetID {
			c.orders[i].target = targetID
		}
		return
	}
	c.index[id] = len(c.orders)
	c.orders = append(c.orders, attackOrder{attacker: id, target: targetID})
}

func (c *CombatSystem) StopAttack(id ecs.EntityID) {
	i, ok := c.index[id]
	if !ok {
		return
	}
	c.removeOrder(i)
}

// Heal restores HP, capped at MaxHP. Amounts at or below zero are ignored.
func (c *CombatSystem) Heal(id ecs.EntityID, amount float64) {
	if amount <= 0 {
		return
	}
	h, ok := c.state.Healths.Get(id)
	if !ok {
		return
	}
	h.HP += amount
	if h.HP > h.MaxHP {
		h.HP = h.MaxHP
	}
}

func (c *CombatSystem) removeOrder(i int) {
	last := len(c.orders) - 1
	delete(c.index, c.orders[i].attacker)
	if i != last {
		c.orders[i] = c.orders[last]
		c.index[c.orders[i].attacker] = i
	}
	c.orders = c.orders[:last]
}

func (c *CombatSystem) Update(dt time.Duration) {
	step := dt.Seconds()

	for i := 0; i < len(c.orders); i++ {
		ord := &c.orders[i]
		if !c.state.Alive(ord.attacker) || !c.state.Alive(ord.target) {
			c.removeOrder(i)
			i--
			continue
		}
		ord.cooldown -= step
		if ord.cooldown > 0 {
			continue
		}
		// Out of range: hold the order and let the agent decide whether to
		// chase or drop it. The cooldown stays expired so the strike lands
		// the moment range is regained.
		if !c.CanAttack(ord.attacker, ord.target) {
			continue
		}
		c.strike(ord)
		ord.cooldown = attackCooldown
	}

	c.refreshCombatFlags()
}

func (c *CombatSystem) strike(ord *attackOrder) {
	atkUnit, _ := c.state.Units.Get(ord.attacker)
	atkHealth, _ := c.state.Healths.Get(ord.attacker)
	tgtHealth, ok := c.state.Healths.Get(ord.target)
	if atkUnit == nil || atkHealth == nil || !ok {
		return
	}
	ax, ay, _ := c.state.Position(ord.attacker)
	tx, ty, _ := c.state.Position(ord.target)

	ctx := scripting.AttackContext{
		AttackerArchetype: atkUnit.Archetype,
		AttackerDamage:    atkUnit.AttackDamage,
		AttackerHP:        atkHealth.HP,
		AttackerMaxHP:     atkHealth.MaxHP,
		TargetArmor:       tgtHealth.Armor,
		TargetHP:          tgtHealth.HP,
		TargetMaxHP:       tgtHealth.MaxHP,
		Distance:          math.Hypot(tx-ax, ty-ay),
	}
	if tgtUnit, ok := c.state.Units.Get(ord.target); ok {
		ctx.TargetArchetype = tgtUnit.Archetype
	}

	var res scripting.AttackResult
	if c.formula != nil {
		res = c.formula.CalcAttack(ctx)
	} else {
		res = scripting.AttackResult{IsHit: true, Damage: math.Max(1, ctx.AttackerDamage-ctx.TargetArmor*0.5)}
	}
	if !res.IsHit || res.Damage <= 0 {
		return
	}

	tgtHealth.HP -= res.Damage
	if tgtHealth.HP > 0 {
		return
	}
	tgtHealth.HP = 0

	faction, _ := c.state.Faction(ord.target)
	c.log.Debug("unit killed",
		zap.Uint64("attacker", uint64(ord.attacker)),
		zap.Uint64("target", uint64(ord.target)),
		zap.String("faction", faction))
	event.Emit(c.bus, event.AgentDied{EntityID: ord.target, Faction: faction})
	c.state.Destroy(ord.target)
}

// refreshCombatFlags recomputes Unit.InCombat from the active order set:
// attackers and their targets are in combat, everyone else is not.
func (c *CombatSystem) refreshCombatFlags() {
	c.state.Units.Each(func(_ ecs.EntityID, u *component.Unit) {
		u.InCombat = false
	})
	for i := range c.orders {
		if u, ok := c.state.Units.Get(c.orders[i].attacker); ok {
			u.InCombat = true
		}
		if u, ok := c.state.Units.Get(c.orders[i].target); ok {
			u.InCombat = true
		}
	}
}
