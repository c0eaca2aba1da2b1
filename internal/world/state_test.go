package world

import (
	"math"
	"testing"

	"github.com/gridfire/server/internal/ai"
	"github.com/gridfire/server/internal/core/ecs"
	"github.com/gridfire/server/internal/nav"
)

func spawnUnit(s *State, faction string, x, y, hp float64) ecs.EntityID {
	id := s.CreateEntity()
	s.AddTransform(id, x, y)
	s.AddHealth(id, hp, hp, 0)
	s.AddFaction(id, faction)
	s.AddUnit(id, "grunt", 3.0, 1.5, 10)
	return id
}

func TestQueriesReflectComponents(t *testing.T) {
	s := NewState(nil)
	id := spawnUnit(s, "raider", 4, 6, 80)

	if !s.Alive(id) {
		t.Fatalf("spawned entity not alive")
	}
	x, y, ok := s.Position(id)
	if !ok || x != 4 || y != 6 {
		t.Fatalf("Position = (%v, %v, %v)", x, y, ok)
	}
	hp, maxHP, ok := s.Health(id)
	if !ok || hp != 80 || maxHP != 80 {
		t.Fatalf("Health = (%v, %v, %v)", hp, maxHP, ok)
	}
	f, ok := s.Faction(id)
	if !ok || f != "raider" {
		t.Fatalf("Faction = (%q, %v)", f, ok)
	}
}

func TestQueriesFailAfterDestroy(t *testing.T) {
	s := NewState(nil)
	id := spawnUnit(s, "raider", 1, 1, 50)

	s.Destroy(id)
	s.Entities.FlushDestroyQueue()

	if s.Alive(id) {
		t.Fatalf("destroyed entity still alive")
	}
	if _, _, ok := s.Position(id); ok {
		t.Fatalf("Position succeeded for destroyed entity")
	}
	if _, _, ok := s.Health(id); ok {
		t.Fatalf("Health succeeded for destroyed entity")
	}
	if _, ok := s.Faction(id); ok {
		t.Fatalf("Faction succeeded for destroyed entity")
	}
}

func TestEachUnitVisitsCompleteUnits(t *testing.T) {
	s := NewState(nil)
	a := spawnUnit(s, "raider", 1, 1, 50)
	b := spawnUnit(s, "defender", 2, 2, 60)

	// An entity missing a transform must not be visited.
	partial := s.CreateEntity()
	s.AddHealth(partial, 10, 10, 0)
	s.AddFaction(partial, "raider")

	seen := map[ecs.EntityID]ai.UnitInfo{}
	s.EachUnit(func(u ai.UnitInfo) { seen[u.ID] = u })

	if len(seen) != 2 {
		t.Fatalf("visited %d units, want 2", len(seen))
	}
	if seen[a].Faction != "raider" || seen[b].Faction != "defender" {
		t.Fatalf("factions = %q, %q", seen[a].Faction, seen[b].Faction)
	}
	if seen[b].HP != 60 || seen[b].X != 2 {
		t.Fatalf("unit b info = %+v", seen[b])
	}
}

func TestEachUnitReportsCombatFlag(t *testing.T) {
	s := NewState(nil)
	id := spawnUnit(s, "raider", 1, 1, 50)
	u, _ := s.Units.Get(id)
	u.InCombat = true

	found := false
	s.EachUnit(func(info ai.UnitInfo) {
		if info.ID == id {
			found = info.InCombat
		}
	})
	if !found {
		t.Fatalf("InCombat flag not surfaced")
	}
}

func TestLiveCountPerFaction(t *testing.T) {
	s := NewState(nil)
	spawnUnit(s, "raider", 1, 1, 50)
	spawnUnit(s, "raider", 2, 2, 50)
	dead := spawnUnit(s, "raider", 3, 3, 50)
	spawnUnit(s, "defender", 4, 4, 50)

	h, _ := s.Healths.Get(dead)
	h.HP = 0

	if n := s.LiveCount("raider"); n != 2 {
		t.Fatalf("raider count = %d, want 2", n)
	}
	if n := s.LiveCount("defender"); n != 1 {
		t.Fatalf("defender count = %d, want 1", n)
	}
	if n := s.LiveCount("nobody"); n != 0 {
		t.Fatalf("unknown faction count = %d, want 0", n)
	}
}

func TestAddTransformNudgesOffBlockedCell(t *testing.T) {
	g := nav.NewGrid(10, 10)
	g.AddObstacle(nav.Cell{X: 5, Y: 5})
	s := NewState(g)

	id := s.CreateEntity()
	s.AddTransform(id, 5.5, 5.5)

	x, y, _ := s.Position(id)
	cx, cy := int(math.Floor(x)), int(math.Floor(y))
	if cx == 5 && cy == 5 {
		t.Fatalf("entity placed on blocked cell")
	}
	if cx < 2 || cx > 8 || cy < 2 || cy > 8 {
		t.Fatalf("nudged too far: (%v, %v)", x, y)
	}
	if x != math.Floor(x)+0.5 || y != math.Floor(y)+0.5 {
		t.Fatalf("nudged position not cell-centered: (%v, %v)", x, y)
	}
}

func TestAddTransformNudgesOffOccupiedCell(t *testing.T) {
	g := nav.NewGrid(10, 10)
	s := NewState(g)

	first := s.CreateEntity()
	s.AddTransform(first, 5.5, 5.5)
	second := s.CreateEntity()
	s.AddTransform(second, 5.5, 5.5)

	x1, y1, _ := s.Position(first)
	x2, y2, _ := s.Position(second)
	if int(math.Floor(x1)) == int(math.Floor(x2)) && int(math.Floor(y1)) == int(math.Floor(y2)) {
		t.Fatalf("two entities share cell (%v, %v)", x2, y2)
	}
}

func TestAddTransformKeepsFreeCell(t *testing.T) {
	g := nav.NewGrid(10, 10)
	s := NewState(g)

	id := s.CreateEntity()
	s.AddTransform(id, 3.25, 4.75)
	x, y, _ := s.Position(id)
	if x != 3.25 || y != 4.75 {
		t.Fatalf("free placement moved to (%v, %v)", x, y)
	}
}
