package ai

import (
	"math"
	"math/rand"
	"testing"

	"go.uber.org/zap"

	"github.com/gridfire/server/internal/core/ecs"
	"github.com/gridfire/server/internal/data"
)

// fakeUnit backs every capability with plain in-memory state.
type fakeUnit struct {
	x, y      float64
	hp, maxHP float64
	faction   string
	inCombat  bool
}

type moveCall struct {
	x, y, speed float64
	target      ecs.EntityID
}

type fakeWorld struct {
	units map[ecs.EntityID]*fakeUnit
	order []ecs.EntityID

	lastMove    map[ecs.EntityID]moveCall
	stops       map[ecs.EntityID]int
	attacks     map[ecs.EntityID]ecs.EntityID
	stopAttacks map[ecs.EntityID]int
	inRange     func(id, target ecs.EntityID) bool
}

func newFakeWorld() *fakeWorld {
	return &fakeWorld{
		units:       make(map[ecs.EntityID]*fakeUnit),
		lastMove:    make(map[ecs.EntityID]moveCall),
		stops:       make(map[ecs.EntityID]int),
		attacks:     make(map[ecs.EntityID]ecs.EntityID),
		stopAttacks: make(map[ecs.EntityID]int),
	}
}

func (w *fakeWorld) add(id ecs.EntityID, x, y, hp, maxHP float64, faction string) {
	w.units[id] = &fakeUnit{x: x, y: y, hp: hp, maxHP: maxHP, faction: faction}
	w.order = append(w.order, id)
}

func (w *fakeWorld) remove(id ecs.EntityID) {
	delete(w.units, id)
	for i, u := range w.order {
		if u == id {
			w.order = append(w.order[:i], w.order[i+1:]...)
			break
		}
	}
}

func (w *fakeWorld) Alive(id ecs.EntityID) bool {
	_, ok := w.units[id]
	return ok
}

func (w *fakeWorld) Position(id ecs.EntityID) (float64, float64, bool) {
	u, ok := w.units[id]
	if !ok {
		return 0, 0, false
	}
	return u.x, u.y, true
}

func (w *fakeWorld) Health(id ecs.EntityID) (float64, float64, bool) {
	u, ok := w.units[id]
	if !ok {
		return 0, 0, false
	}
	return u.hp, u.maxHP, true
}

func (w *fakeWorld) Faction(id ecs.EntityID) (string, bool) {
	u, ok := w.units[id]
	if !ok {
		return "", false
	}
	return u.faction, true
}

func (w *fakeWorld) EachUnit(fn func(UnitInfo)) {
	for _, id := range w.order {
		u := w.units[id]
		fn(UnitInfo{ID: id, X: u.x, Y: u.y, Faction: u.faction, HP: u.hp, MaxHP: u.maxHP, InCombat: u.inCombat})
	}
}

func (w *fakeWorld) MoveEntity(id ecs.EntityID, x, y, speed float64, targetID ecs.EntityID) {
	w.lastMove[id] = moveCall{x: x, y: y, speed: speed, target: targetID}
}

func (w *fakeWorld) StopEntity(id ecs.EntityID) {
	w.stops[id]++
}

func (w *fakeWorld) CanAttack(id, targetID ecs.EntityID) bool {
	if w.inRange == nil {
		return false
	}
	return w.inRange(id, targetID)
}

func (w *fakeWorld) StartAttack(id, targetID ecs.EntityID) {
	w.attacks[id] = targetID
}

func (w *fakeWorld) StopAttack(id ecs.EntityID) {
	delete(w.attacks, id)
	w.stopAttacks[id]++
}

func (w *fakeWorld) Heal(id ecs.EntityID, amount float64) {
	u, ok := w.units[id]
	if !ok {
		return
	}
	u.hp += amount
	if u.hp > u.maxHP {
		u.hp = u.maxHP
	}
}

func newTestController(t *testing.T, w *fakeWorld) *Controller {
	t.Helper()
	c, err := NewController(w, w, w, data.DefaultArchetypeTable(), rand.New(rand.NewSource(1)), zap.NewNop())
	if err != nil {
		t.Fatalf("NewController: %v", err)
	}
	return c
}

// advance runs the controller in decision-interval steps for the given
// simulated seconds.
func advance(c *Controller, seconds float64) {
	for t := 0.0; t < seconds; t += decisionInterval {
		c.Update(decisionInterval)
	}
}

func TestNewControllerRequiresCapabilities(t *testing.T) {
	w := newFakeWorld()
	table := data.DefaultArchetypeTable()
	rng := rand.New(rand.NewSource(1))

	if _, err := NewController(nil, w, w, table, rng, zap.NewNop()); err == nil {
		t.Fatalf("expected error for nil query")
	}
	if _, err := NewController(w, nil, w, table, rng, zap.NewNop()); err == nil {
		t.Fatalf("expected error for nil movement")
	}
	if _, err := NewController(w, w, nil, table, rng, zap.NewNop()); err == nil {
		t.Fatalf("expected error for nil combat")
	}
	if _, err := NewController(w, w, w, nil, rng, zap.NewNop()); err == nil {
		t.Fatalf("expected error for nil archetype table")
	}
	if _, err := NewController(w, w, w, table, nil, zap.NewNop()); err == nil {
		t.Fatalf("expected error for nil rng")
	}
}

func TestRegisterEntityAppliesArchetypeTuning(t *testing.T) {
	w := newFakeWorld()
	w.add(1, 4, 7, 60, 60, "defender")
	c := newTestController(t, w)

	if !c.RegisterEntity(1, "sniper") {
		t.Fatalf("RegisterEntity failed")
	}
	if c.RegisterEntity(1, "sniper") {
		t.Fatalf("duplicate registration should fail")
	}
	if !c.Registered(1) || c.AgentCount() != 1 {
		t.Fatalf("agent not tracked after registration")
	}
	if st, ok := c.StateOf(1); !ok || st != StateIdle {
		t.Fatalf("new agent state = %v, want idle", st)
	}

	snap := c.Snapshot()
	if len(snap) != 1 {
		t.Fatalf("snapshot length = %d, want 1", len(snap))
	}
	s := snap[0]
	if s.PatrolRadius != 20 || s.Aggressiveness != 0.3 || s.PursuitSpeed != 1.8 || s.StandOff != 12 {
		t.Fatalf("sniper tuning = (%v, %v, %v, %v), want (20, 0.3, 1.8, 12)",
			s.PatrolRadius, s.Aggressiveness, s.PursuitSpeed, s.StandOff)
	}
	if s.AnchorX != 4 || s.AnchorY != 7 {
		t.Fatalf("anchor = (%v, %v), want registration position (4, 7)", s.AnchorX, s.AnchorY)
	}
}

func TestRegisterEntityUnknownArchetypeFallsBack(t *testing.T) {
	w := newFakeWorld()
	w.add(1, 0, 0, 100, 100, "defender")
	c := newTestController(t, w)

	if !c.RegisterEntity(1, "does-not-exist") {
		t.Fatalf("unknown archetype should still register")
	}
	// Names() is sorted, so the fallback is grunt.
	snap := c.Snapshot()
	if snap[0].PatrolRadius != 12 {
		t.Fatalf("fallback patrol radius = %v, want grunt's 12", snap[0].PatrolRadius)
	}
}

func TestRegisterEntityRequiresComponents(t *testing.T) {
	w := newFakeWorld()
	c := newTestController(t, w)
	if c.RegisterEntity(99, "grunt") {
		t.Fatalf("registration of an entity without components should fail")
	}
}

func TestIdleTransitionsToPatrolAfterDwell(t *testing.T) {
	w := newFakeWorld()
	w.add(1, 10, 10, 100, 100, "defender")
	c := newTestController(t, w)
	c.RegisterEntity(1, "grunt")

	advance(c, 2.5)
	if st, _ := c.StateOf(1); st != StateIdle {
		t.Fatalf("state after 2.5s = %v, want idle (dwell is at least 3s)", st)
	}

	advance(c, 3.5)
	if st, _ := c.StateOf(1); st != StatePatrol {
		t.Fatalf("state after 6s = %v, want patrol", st)
	}
	mv, ok := w.lastMove[1]
	if !ok {
		t.Fatalf("no move issued for patrol")
	}
	if mv.speed != 0 || mv.target != 0 {
		t.Fatalf("patrol move = %+v, want default speed and no target", mv)
	}
	// The patrol point stays inside the grunt patrol radius around the
	// anchor, with at most the formation jitter on top.
	if math.Hypot(mv.x-10, mv.y-10) > 12+0.5 {
		t.Fatalf("patrol point (%v, %v) outside patrol radius of anchor", mv.x, mv.y)
	}
}

func TestIdleAcquiresTargetAndPursues(t *testing.T) {
	w := newFakeWorld()
	w.add(1, 0, 0, 100, 100, "defender")
	w.add(2, 10, 0, 100, 100, "raider")
	c := newTestController(t, w)
	c.RegisterEntity(1, "grunt")

	c.Update(decisionInterval)
	if st, _ := c.StateOf(1); st != StatePursue {
		t.Fatalf("state = %v, want pursue", st)
	}
	mv := w.lastMove[1]
	if mv.target != 2 {
		t.Fatalf("pursuit target = %d, want 2", mv.target)
	}
	if mv.speed != 3.0 {
		t.Fatalf("pursuit speed = %v, want grunt's 3.0", mv.speed)
	}
}

func TestTargetsOutsideDetectionRadiusIgnored(t *testing.T) {
	w := newFakeWorld()
	w.add(1, 0, 0, 100, 100, "defender")
	w.add(2, 20, 0, 100, 100, "raider") // beyond detectionRadius
	w.add(3, 2, 0, 100, 100, "defender")
	c := newTestController(t, w)
	c.RegisterEntity(1, "grunt")

	c.Update(decisionInterval)
	if st, _ := c.StateOf(1); st == StatePursue {
		t.Fatalf("agent pursued a target it should not perceive")
	}
}

func TestNearestHostileWins(t *testing.T) {
	w := newFakeWorld()
	w.add(1, 0, 0, 100, 100, "defender")
	w.add(2, 12, 0, 100, 100, "raider")
	w.add(3, 5, 0, 100, 100, "raider")
	c := newTestController(t, w)
	c.RegisterEntity(1, "grunt")

	c.Update(decisionInterval)
	if mv := w.lastMove[1]; mv.target != 3 {
		t.Fatalf("pursuit target = %d, want nearest hostile 3", mv.target)
	}
}

func TestPursueEntersAttackInRange(t *testing.T) {
	w := newFakeWorld()
	w.add(1, 0, 0, 100, 100, "defender")
	w.add(2, 1, 0, 100, 100, "raider")
	w.inRange = func(id, target ecs.EntityID) bool { return true }
	c := newTestController(t, w)
	c.RegisterEntity(1, "grunt")

	c.Update(decisionInterval) // idle -> pursue
	c.Update(decisionInterval) // pursue -> attack
	if st, _ := c.StateOf(1); st != StateAttack {
		t.Fatalf("state = %v, want attack", st)
	}
	if w.attacks[1] != 2 {
		t.Fatalf("attack order target = %d, want 2", w.attacks[1])
	}
	if w.stops[1] == 0 {
		t.Fatalf("movement should stop on entering attack")
	}
}

func TestAttackReturnsToIdleWhenTargetDies(t *testing.T) {
	w := newFakeWorld()
	w.add(1, 0, 0, 100, 100, "defender")
	w.add(2, 1, 0, 100, 100, "raider")
	w.inRange = func(id, target ecs.EntityID) bool { return true }
	c := newTestController(t, w)
	c.RegisterEntity(1, "grunt")

	c.Update(decisionInterval)
	c.Update(decisionInterval)
	if st, _ := c.StateOf(1); st != StateAttack {
		t.Fatalf("setup failed: state = %v, want attack", st)
	}

	w.remove(2)
	c.Update(decisionInterval)
	if st, _ := c.StateOf(1); st != StateIdle {
		t.Fatalf("state = %v, want idle after target death", st)
	}
	if w.stopAttacks[1] == 0 {
		t.Fatalf("attack order should be cancelled when the target dies")
	}
}

func TestSniperHoldsStandOffDistance(t *testing.T) {
	w := newFakeWorld()
	w.add(1, 0, 0, 60, 60, "defender")
	w.add(2, 10, 0, 100, 100, "raider")
	c := newTestController(t, w)
	c.RegisterEntity(1, "sniper")

	c.Update(decisionInterval)
	mv := w.lastMove[1]
	if mv.target != 2 {
		t.Fatalf("pursuit target = %d, want 2", mv.target)
	}
	// Stand-off ring on the agent's side of the target: 10 - 12 = -2 on the
	// x axis, with at most the 0.25-per-axis formation jitter.
	if math.Abs(mv.x-(-2)) > 0.3 || math.Abs(mv.y) > 0.3 {
		t.Fatalf("stand-off destination = (%v, %v), want about (-2, 0)", mv.x, mv.y)
	}
}

func TestRetreatPreemptsAndHealsOnTimeout(t *testing.T) {
	w := newFakeWorld()
	w.add(1, 0, 0, 20, 100, "defender")
	w.add(2, 5, 0, 100, 100, "raider")
	c := newTestController(t, w)
	c.RegisterEntity(1, "grunt")

	c.Update(decisionInterval)
	if st, _ := c.StateOf(1); st != StateRetreat {
		t.Fatalf("state = %v, want retreat below the health threshold", st)
	}

	// The agent never reaches its retreat point; the timeout path must heal
	// 30%% of max and drop back to idle.
	advance(c, retreatTimeout+decisionInterval)
	if st, _ := c.StateOf(1); st != StateIdle {
		t.Fatalf("state = %v, want idle after retreat timeout", st)
	}
	if got := w.units[1].hp; got != 50 {
		t.Fatalf("hp after retreat regen = %v, want 20 + 30 = 50", got)
	}
}

func TestRetreatHealCapsAtMax(t *testing.T) {
	w := newFakeWorld()
	w.add(1, 0, 0, 25, 30, "defender")
	c := newTestController(t, w)
	c.RegisterEntity(1, "grunt")

	// Force retreat directly through the health check.
	w.units[1].hp = 8 // below 0.3 * 30 = 9
	c.Update(decisionInterval)
	if st, _ := c.StateOf(1); st != StateRetreat {
		t.Fatalf("setup failed: state should be retreat")
	}
	w.units[1].hp = 25
	advance(c, retreatTimeout+decisionInterval)
	if got := w.units[1].hp; got != 30 {
		t.Fatalf("hp = %v, want capped at max 30", got)
	}
}

func TestSupportFollowsWoundedAlly(t *testing.T) {
	w := newFakeWorld()
	w.add(1, 0, 0, 100, 100, "defender")
	w.add(2, 6, 0, 30, 100, "defender")
	c := newTestController(t, w)
	c.RegisterEntity(1, "warden")

	if !c.AssignSupport(1) {
		t.Fatalf("AssignSupport failed")
	}
	c.Update(decisionInterval)
	if st, _ := c.StateOf(1); st != StateSupport {
		t.Fatalf("state = %v, want support", st)
	}
	mv := w.lastMove[1]
	if mv.target != 2 {
		t.Fatalf("escort target = %d, want 2", mv.target)
	}
	if math.Hypot(mv.x-6, mv.y) > 0.5 {
		t.Fatalf("escort destination = (%v, %v), want near (6, 0)", mv.x, mv.y)
	}
}

func TestVanishedEntityUnregisteredDuringUpdate(t *testing.T) {
	w := newFakeWorld()
	w.add(1, 0, 0, 100, 100, "defender")
	w.add(2, 3, 3, 100, 100, "defender")
	c := newTestController(t, w)
	c.RegisterEntity(1, "grunt")
	c.RegisterEntity(2, "grunt")

	w.remove(1)
	c.Update(decisionInterval)
	if c.Registered(1) {
		t.Fatalf("dead entity still registered")
	}
	if !c.Registered(2) || c.AgentCount() != 1 {
		t.Fatalf("surviving agent lost during swap-delete")
	}
}

func TestUnregisterEntity(t *testing.T) {
	w := newFakeWorld()
	w.add(1, 0, 0, 100, 100, "defender")
	c := newTestController(t, w)
	c.RegisterEntity(1, "grunt")

	if !c.UnregisterEntity(1) {
		t.Fatalf("UnregisterEntity failed")
	}
	if c.UnregisterEntity(1) {
		t.Fatalf("double unregister should report false")
	}
	if c.AgentCount() != 0 {
		t.Fatalf("agent count = %d, want 0", c.AgentCount())
	}
}

func TestSnapshotRestoreRoundTrip(t *testing.T) {
	w := newFakeWorld()
	w.add(1, 0, 0, 100, 100, "defender")
	w.add(2, 8, 0, 100, 100, "raider")
	c := newTestController(t, w)
	c.RegisterEntity(1, "grunt")
	c.Update(decisionInterval) // idle -> pursue

	snaps := c.Snapshot()
	if len(snaps) != 1 || snaps[0].State != "pursue" {
		t.Fatalf("snapshot = %+v, want one pursuing agent", snaps)
	}

	c2 := newTestController(t, w)
	c2.Restore(snaps)
	if c2.AgentCount() != 1 {
		t.Fatalf("restored agent count = %d, want 1", c2.AgentCount())
	}
	if st, ok := c2.StateOf(1); !ok || st != StatePursue {
		t.Fatalf("restored state = %v, want pursue", st)
	}
}

func TestRestoreDropsDeadEntities(t *testing.T) {
	w := newFakeWorld()
	w.add(1, 0, 0, 100, 100, "defender")
	c := newTestController(t, w)
	c.RegisterEntity(1, "grunt")
	snaps := c.Snapshot()

	w.remove(1)
	c2 := newTestController(t, w)
	c2.Restore(snaps)
	if c2.AgentCount() != 0 {
		t.Fatalf("restore kept an agent whose entity no longer exists")
	}
}
