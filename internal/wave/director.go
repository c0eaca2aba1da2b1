package wave

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/gridfire/server/internal/core/ecs"
	"github.com/gridfire/server/internal/core/event"
	"github.com/gridfire/server/internal/data"
	"go.uber.org/zap"
)

// EntityFactory builds hostile units in the entity store. The implementation
// owns placement details (e.g. nudging a spawn off an occupied cell).
type EntityFactory interface {
	CreateEntity() ecs.EntityID
	AddTransform(id ecs.EntityID, x, y float64)
	AddHealth(id ecs.EntityID, hp, maxHP, armor float64)
	AddFaction(id ecs.EntityID, name string)
	AddUnit(id ecs.EntityID, archetype string, moveSpeed, attackRange, attackDamage float64)
}

// AgentRegistry is the controller entry point freshly spawned units are
// handed to.
type AgentRegistry interface {
	RegisterEntity(id ecs.EntityID, archetype string) bool
}

// PopulationQuery counts living members of a faction, used to gate wave
// progression on the previous wave being wiped out.
type PopulationQuery interface {
	LiveCount(faction string) int
}

// Hooks receives wave lifecycle callbacks (scripted extensions). Any method
// may be a no-op.
type Hooks interface {
	OnWaveStart(waveNumber int)
	OnWaveComplete(waveNumber int)
	OnAllWavesComplete(totalWaves int)
}

// SpawnPoint is a reinforcement entry location. Only the active flag mutates
// after creation.
type SpawnPoint struct {
	ID     int
	X, Y   float64
	Active bool
}

// archetypeProb is one slot of a wave's cumulative sampling distribution.
// Slice order follows the wave's enabled-archetype order, so sampling is
// deterministic for a fixed RNG.
type archetypeProb struct {
	name string
	p    float64
}

// Wave tracks one reinforcement batch from creation to completion.
type Wave struct {
	ID            int
	Number        int // 1-based creation order, drives difficulty
	SpawnPoints   []int
	Archetypes    []string
	TotalEnemies  int
	SpawnInterval float64 // seconds between spawns
	Spawned       int
	Active        bool
	Completed     bool

	elapsed float64
	dist    []archetypeProb
}

// Config is the caller-facing wave definition.
type Config struct {
	SpawnPoints   []int
	Archetypes    []string
	TotalEnemies  int
	SpawnInterval float64
	// Distribution optionally overrides the default archetype mix. Keys not
	// in Archetypes are ignored.
	Distribution map[string]float64
}

// SpawnRecord is the audit entry written for every spawned unit.
type SpawnRecord struct {
	WaveID     int
	WaveNumber int
	EntityID   uint64
	Archetype  string
	X, Y       float64
	Multiplier float64
}

// Director owns spawn points and waves: it materializes hostile units on a
// timer, scales their stats by a per-wave difficulty multiplier, and
// registers them with the agent controller.
type Director struct {
	factory    EntityFactory
	population PopulationQuery
	archetypes *data.ArchetypeTable
	bus        *event.Bus
	hooks      Hooks
	rng        *rand.Rand
	log        *zap.Logger
	faction    string

	spawnPoints []*SpawnPoint
	waves       []*Wave
	nextSpawnID int
	nextWaveID  int
	allDone     bool

	spawnLog []SpawnRecord
}

func NewDirector(factory EntityFactory, population PopulationQuery, archetypes *data.ArchetypeTable, bus *event.Bus, hooks Hooks, rng *rand.Rand, faction string, log *zap.Logger) (*Director, error) {
	if factory == nil {
		return nil, fmt.Errorf("wave: EntityFactory capability is required")
	}
	if population == nil {
		return nil, fmt.Errorf("wave: PopulationQuery capability is required")
	}
	if archetypes == nil || archetypes.Count() == 0 {
		return nil, fmt.Errorf("wave: archetype table is required")
	}
	if rng == nil {
		return nil, fmt.Errorf("wave: random source is required")
	}
	if faction == "" {
		return nil, fmt.Errorf("wave: hostile faction name is required")
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Director{
		factory:    factory,
		population: population,
		archetypes: archetypes,
		bus:        bus,
		hooks:      hooks,
		rng:        rng,
		log:        log,
		faction:    faction,
	}, nil
}

// CreateSpawnPoint registers a world-space spawn location and returns its id.
func (d *Director) CreateSpawnPoint(x, y float64) int {
	d.nextSpawnID++
	sp := &SpawnPoint{ID: d.nextSpawnID, X: x, Y: y, Active: true}
	d.spawnPoints = append(d.spawnPoints, sp)
	return sp.ID
}

// RemoveSpawnPoint deletes a spawn point. Waves referencing it simply stop
// drawing it from the pool.
func (d *Director) RemoveSpawnPoint(id int) bool {
	for i, sp := range d.spawnPoints {
		if sp.ID == id {
			d.spawnPoints = append(d.spawnPoints[:i], d.spawnPoints[i+1:]...)
			return true
		}
	}
	return false
}

// SetSpawnPointActive toggles a spawn point without removing it.
func (d *Director) SetSpawnPointActive(id int, active bool) bool {
	if sp := d.spawnPoint(id); sp != nil {
		sp.Active = active
		return true
	}
	return false
}

func (d *Director) spawnPoint(id int) *SpawnPoint {
	for _, sp := range d.spawnPoints {
		if sp.ID == id {
			return sp
		}
	}
	return nil
}

// CreateWave defines a wave and returns its id. The first wave created is
// activated immediately; later waves wait for progression. Unknown archetype
// names are logged and dropped; an unusable distribution falls back to
// uniform over the remaining archetypes.
func (d *Director) CreateWave(cfg Config) (int, error) {
	if cfg.TotalEnemies <= 0 {
		return 0, fmt.Errorf("wave: total enemies must be positive")
	}
	if cfg.SpawnInterval <= 0 {
		return 0, fmt.Errorf("wave: spawn interval must be positive")
	}
	if len(cfg.SpawnPoints) == 0 {
		return 0, fmt.Errorf("wave: at least one spawn point is required")
	}

	enabled := make([]string, 0, len(cfg.Archetypes))
	for _, name := range cfg.Archetypes {
		if d.archetypes.Get(name) == nil {
			d.log.Warn("wave config references unknown archetype", zap.String("archetype", name))
			continue
		}
		enabled = append(enabled, name)
	}
	if len(enabled) == 0 {
		return 0, fmt.Errorf("wave: no usable archetypes in config")
	}

	d.nextWaveID++
	w := &Wave{
		ID:            d.nextWaveID,
		Number:        len(d.waves) + 1,
		SpawnPoints:   append([]int(nil), cfg.SpawnPoints...),
		Archetypes:    enabled,
		TotalEnemies:  cfg.TotalEnemies,
		SpawnInterval: cfg.SpawnInterval,
		dist:          d.buildDistribution(enabled, cfg.Distribution),
	}
	if len(d.waves) == 0 {
		w.Active = true
		d.fireWaveStart(w)
	}
	d.waves = append(d.waves, w)
	return w.ID, nil
}

// buildDistribution produces the normalized archetype distribution for a
// wave, in enabled-archetype order. Custom entries win when usable; otherwise
// the default spawn weights are filtered to the enabled set; if that filtered
// mass is zero the distribution is uniform.
func (d *Director) buildDistribution(enabled []string, custom map[string]float64) []archetypeProb {
	dist := make([]archetypeProb, len(enabled))
	total := 0.0
	source := custom
	if len(source) == 0 {
		source = d.archetypes.DefaultDistribution()
	}
	for i, name := range enabled {
		p := source[name]
		if p < 0 {
			p = 0
		}
		dist[i] = archetypeProb{name: name, p: p}
		total += p
	}
	if total <= 0 {
		// Nothing usable: uniform over enabled archetypes.
		d.log.Warn("wave distribution sums to zero, using uniform", zap.Strings("archetypes", enabled))
		u := 1.0 / float64(len(enabled))
		for i := range dist {
			dist[i].p = u
		}
		return dist
	}
	for i := range dist {
		dist[i].p /= total
	}
	return dist
}

// Distribution exposes a wave's normalized archetype probabilities.
func (d *Director) Distribution(waveID int) map[string]float64 {
	w := d.wave(waveID)
	if w == nil {
		return nil
	}
	out := make(map[string]float64, len(w.dist))
	for _, ap := range w.dist {
		out[ap.name] = ap.p
	}
	return out
}

func (d *Director) wave(id int) *Wave {
	for _, w := range d.waves {
		if w.ID == id {
			return w
		}
	}
	return nil
}

// WaveState returns a copy of a wave's public state.
func (d *Director) WaveState(id int) (Wave, bool) {
	if w := d.wave(id); w != nil {
		return *w, true
	}
	return Wave{}, false
}

// AllWavesDone reports whether every wave completed and the arena is clear.
func (d *Director) AllWavesDone() bool {
	return d.allDone
}

// Update advances all active waves by dt seconds, spawning and registering
// units as their timers come due, then runs wave progression.
func (d *Director) Update(dt float64, reg AgentRegistry) {
	for _, w := range d.waves {
		if !w.Active || w.Completed {
			continue
		}
		w.elapsed += dt
		if w.elapsed >= w.SpawnInterval && w.Spawned < w.TotalEnemies {
			w.elapsed = 0
			d.spawnOne(w, reg)
		}
		if w.Spawned >= w.TotalEnemies {
			w.Completed = true
			d.log.Info("wave completed",
				zap.Int("wave", w.Number),
				zap.Int("spawned", w.Spawned))
			if d.bus != nil {
				event.Emit(d.bus, event.WaveCompleted{WaveID: w.ID, WaveNumber: w.Number})
			}
			if d.hooks != nil {
				d.hooks.OnWaveComplete(w.Number)
			}
		}
	}
	d.progress()
}

func (d *Director) spawnOne(w *Wave, reg AgentRegistry) {
	sp := d.pickSpawnPoint(w)
	if sp == nil {
		d.log.Warn("wave has no usable spawn points", zap.Int("wave", w.Number))
		return
	}
	name := d.sampleArchetype(w)
	tmpl := d.archetypes.Get(name)
	if tmpl == nil {
		return
	}

	mult := d.rollDifficulty(w.Number)
	hp := tmpl.HP * mult
	armor := tmpl.Armor * math.Sqrt(mult)

	id := d.factory.CreateEntity()
	d.factory.AddTransform(id, sp.X, sp.Y)
	d.factory.AddHealth(id, hp, hp, armor)
	d.factory.AddFaction(id, d.faction)
	d.factory.AddUnit(id, name, tmpl.MoveSpeed, tmpl.AttackRange, tmpl.AttackDamage)

	if reg != nil && !reg.RegisterEntity(id, name) {
		d.log.Warn("spawned unit rejected by controller",
			zap.Uint64("entity", uint64(id)),
			zap.String("archetype", name))
	}
	w.Spawned++
	d.spawnLog = append(d.spawnLog, SpawnRecord{
		WaveID:     w.ID,
		WaveNumber: w.Number,
		EntityID:   uint64(id),
		Archetype:  name,
		X:          sp.X,
		Y:          sp.Y,
		Multiplier: mult,
	})
}

// pickSpawnPoint draws uniformly among the wave's configured, still-existing,
// active spawn points.
func (d *Director) pickSpawnPoint(w *Wave) *SpawnPoint {
	usable := make([]*SpawnPoint, 0, len(w.SpawnPoints))
	for _, id := range w.SpawnPoints {
		if sp := d.spawnPoint(id); sp != nil && sp.Active {
			usable = append(usable, sp)
		}
	}
	if len(usable) == 0 {
		return nil
	}
	return usable[d.rng.Intn(len(usable))]
}

// sampleArchetype walks the cumulative distribution against a uniform draw.
func (d *Director) sampleArchetype(w *Wave) string {
	roll := d.rng.Float64()
	acc := 0.0
	for _, ap := range w.dist {
		acc += ap.p
		if roll < acc {
			return ap.name
		}
	}
	// Floating point slack: the tail absorbs the remainder.
	return w.dist[len(w.dist)-1].name
}

// progress activates the next pending wave once the current one is completed
// and its units are dead, and fires the all-done signal after the last.
func (d *Director) progress() {
	for _, w := range d.waves {
		if w.Active && !w.Completed {
			return // a wave is still spawning
		}
	}
	if d.population.LiveCount(d.faction) > 0 {
		return
	}
	for _, w := range d.waves {
		if !w.Active {
			w.Active = true
			d.fireWaveStart(w)
			return
		}
	}
	if !d.allDone && len(d.waves) > 0 {
		d.allDone = true
		d.log.Info("all waves completed", zap.Int("waves", len(d.waves)))
		if d.bus != nil {
			event.Emit(d.bus, event.AllWavesCompleted{TotalWaves: len(d.waves)})
		}
		if d.hooks != nil {
			d.hooks.OnAllWavesComplete(len(d.waves))
		}
	}
}

func (d *Director) fireWaveStart(w *Wave) {
	d.log.Info("wave activated",
		zap.Int("wave", w.Number),
		zap.Int("total_enemies", w.TotalEnemies))
	if d.hooks != nil {
		d.hooks.OnWaveStart(w.Number)
	}
}

// DrainSpawnLog returns and clears the pending spawn audit records. Called by
// the persistence system each tick.
func (d *Director) DrainSpawnLog() []SpawnRecord {
	out := d.spawnLog
	d.spawnLog = nil
	return out
}
