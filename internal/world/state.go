package world

import (
	"math"

	"github.com/gridfire/server/internal/ai"
	"github.com/gridfire/server/internal/component"
	"github.com/gridfire/server/internal/core/ecs"
	"github.com/gridfire/server/internal/nav"
)

// State bundles the entity world with its component stores and implements
// the capability surfaces the simulation core consumes: ai.EntityQuery,
// wave.EntityFactory and wave.PopulationQuery. Accessed only from the game
// loop goroutine, no locks.
type State struct {
	Entities   *ecs.World
	Transforms *ecs.Store[component.Transform]
	Healths    *ecs.Store[component.Health]
	Factions   *ecs.Store[component.Faction]
	Units      *ecs.Store[component.Unit]

	grid *nav.Grid
}

// NewState builds the store set and registers every store for destroy-time
// cleanup. The grid may be nil (tests); it is only used to nudge spawns off
// blocked cells.
func NewState(grid *nav.Grid) *State {
	w := ecs.NewWorld()
	s := &State{
		Entities:   w,
		Transforms: ecs.NewStore[component.Transform](),
		Healths:    ecs.NewStore[component.Health](),
		Factions:   ecs.NewStore[component.Faction](),
		Units:      ecs.NewStore[component.Unit](),
		grid:       grid,
	}
	w.Registry().Register(s.Transforms)
	w.Registry().Register(s.Healths)
	w.Registry().Register(s.Factions)
	w.Registry().Register(s.Units)
	return s
}

// ---------- ai.EntityQuery ----------

func (s *State) Alive(id ecs.EntityID) bool {
	return s.Entities.Alive(id)
}

func (s *State) Position(id ecs.EntityID) (float64, float64, bool) {
	if !s.Entities.Alive(id) {
		return 0, 0, false
	}
	t, ok := s.Transforms.Get(id)
	if !ok {
		return 0, 0, false
	}
	return t.X, t.Y, true
}

func (s *State) Health(id ecs.EntityID) (float64, float64, bool) {
	if !s.Entities.Alive(id) {
		return 0, 0, false
	}
	h, ok := s.Healths.Get(id)
	if !ok {
		return 0, 0, false
	}
	return h.HP, h.MaxHP, true
}

func (s *State) Faction(id ecs.EntityID) (string, bool) {
	if !s.Entities.Alive(id) {
		return "", false
	}
	f, ok := s.Factions.Get(id)
	if !ok {
		return "", false
	}
	return f.Name, true
}

// EachUnit visits every live entity carrying transform, health and faction.
// Driven by the faction store's slot order, which is deterministic for a
// fixed entity set.
func (s *State) EachUnit(fn func(ai.UnitInfo)) {
	ecs.Join3(s.Factions, s.Transforms, s.Healths,
		func(id ecs.EntityID, f *component.Faction, t *component.Transform, h *component.Health) {
			if !s.Entities.Alive(id) {
				return
			}
			info := ai.UnitInfo{
				ID: id, X: t.X, Y: t.Y,
				Faction: f.Name, HP: h.HP, MaxHP: h.MaxHP,
			}
			if u, ok := s.Units.Get(id); ok {
				info.InCombat = u.InCombat
			}
			fn(info)
		})
}

// ---------- wave.PopulationQuery ----------

// LiveCount returns the number of living entities in a faction.
func (s *State) LiveCount(faction string) int {
	n := 0
	ecs.Join2(s.Factions, s.Healths,
		func(id ecs.EntityID, f *component.Faction, h *component.Health) {
			if f.Name == faction && h.HP > 0 && s.Entities.Alive(id) {
				n++
			}
		})
	return n
}

// ---------- wave.EntityFactory ----------

func (s *State) CreateEntity() ecs.EntityID {
	return s.Entities.Create()
}

// AddTransform places an entity, nudging it to a nearby free cell when the
// requested cell is blocked or occupied (spiral search, radius 1-3).
func (s *State) AddTransform(id ecs.EntityID, x, y float64) {
	x, y = s.placeAt(x, y)
	s.Transforms.Set(id, component.Transform{X: x, Y: y})
}

func (s *State) AddHealth(id ecs.EntityID, hp, maxHP, armor float64) {
	s.Healths.Set(id, component.Health{HP: hp, MaxHP: maxHP, Armor: armor})
}

func (s *State) AddFaction(id ecs.EntityID, name string) {
	s.Factions.Set(id, component.Faction{Name: name})
}

func (s *State) AddUnit(id ecs.EntityID, archetype string, moveSpeed, attackRange, attackDamage float64) {
	s.Units.Set(id, component.Unit{
		Archetype:    archetype,
		MoveSpeed:    moveSpeed,
		AttackRange:  attackRange,
		AttackDamage: attackDamage,
	})
}

func (s *State) placeAt(x, y float64) (float64, float64) {
	cell := nav.Cell{X: int(math.Floor(x)), Y: int(math.Floor(y))}
	if s.cellFree(cell) {
		return x, y
	}
	for r := 1; r <= 3; r++ {
		for dx := -r; dx <= r; dx++ {
			for dy := -r; dy <= r; dy++ {
				c := nav.Cell{X: cell.X + dx, Y: cell.Y + dy}
				if s.cellFree(c) {
					return float64(c.X) + 0.5, float64(c.Y) + 0.5
				}
			}
		}
	}
	return x, y // nowhere better, leave as requested
}

func (s *State) cellFree(c nav.Cell) bool {
	if s.grid != nil && (!s.grid.InBounds(c) || !s.grid.Passable(c)) {
		return false
	}
	occupied := false
	s.Transforms.Each(func(_ ecs.EntityID, t *component.Transform) {
		if int(math.Floor(t.X)) == c.X && int(math.Floor(t.Y)) == c.Y {
			occupied = true
		}
	})
	return !occupied
}

// Destroy queues an entity for end-of-tick removal.
func (s *State) Destroy(id ecs.EntityID) {
	s.Entities.Destroy(id)
}
