package data

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// ArchetypeTemplate holds the static tuning for one unit archetype. Values
// are configuration, not algorithm: the AI reads them verbatim at
// registration and the wave director reads them at spawn time.
type ArchetypeTemplate struct {
	Name           string  `yaml:"name"`
	PatrolRadius   float64 `yaml:"patrol_radius"`
	Aggressiveness float64 `yaml:"aggressiveness"`
	PursuitSpeed   float64 `yaml:"pursuit_speed"`
	StandOff       float64 `yaml:"stand_off"` // preferred distance to hold from a target (0 = close to melee)
	MoveSpeed      float64 `yaml:"move_speed"`
	AttackRange    float64 `yaml:"attack_range"`
	AttackDamage   float64 `yaml:"attack_damage"`
	HP             float64 `yaml:"hp"`
	Armor          float64 `yaml:"armor"`
	SpawnWeight    float64 `yaml:"spawn_weight"` // relative share in the default wave distribution
}

type archetypeListFile struct {
	Archetypes []ArchetypeTemplate `yaml:"archetypes"`
}

// ArchetypeTable holds all archetype templates indexed by name.
type ArchetypeTable struct {
	templates map[string]*ArchetypeTemplate
}

// LoadArchetypeTable loads archetype tuning from a YAML file.
func LoadArchetypeTable(path string) (*ArchetypeTable, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read archetype list: %w", err)
	}
	var f archetypeListFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse archetype list: %w", err)
	}
	if len(f.Archetypes) == 0 {
		return nil, fmt.Errorf("archetype list %s is empty", path)
	}
	return NewArchetypeTable(f.Archetypes), nil
}

func NewArchetypeTable(templates []ArchetypeTemplate) *ArchetypeTable {
	t := &ArchetypeTable{templates: make(map[string]*ArchetypeTemplate, len(templates))}
	for i := range templates {
		a := &templates[i]
		t.templates[a.Name] = a
	}
	return t
}

// DefaultArchetypes returns the built-in tuning table, used when no YAML
// override is configured. Values must stay stable: AI behavior tests and
// wave balancing depend on them.
func DefaultArchetypes() []ArchetypeTemplate {
	return []ArchetypeTemplate{
		{Name: "grunt", PatrolRadius: 12, Aggressiveness: 0.8, PursuitSpeed: 3.0, StandOff: 0, MoveSpeed: 2.2, AttackRange: 1.5, AttackDamage: 8, HP: 100, Armor: 5, SpawnWeight: 0.45},
		{Name: "skirmisher", PatrolRadius: 15, Aggressiveness: 0.7, PursuitSpeed: 3.5, StandOff: 4, MoveSpeed: 2.8, AttackRange: 6, AttackDamage: 6, HP: 70, Armor: 2, SpawnWeight: 0.25},
		{Name: "heavy", PatrolRadius: 10, Aggressiveness: 0.6, PursuitSpeed: 1.6, StandOff: 0, MoveSpeed: 1.2, AttackRange: 2, AttackDamage: 14, HP: 220, Armor: 12, SpawnWeight: 0.15},
		{Name: "sniper", PatrolRadius: 20, Aggressiveness: 0.3, PursuitSpeed: 1.8, StandOff: 12, MoveSpeed: 1.6, AttackRange: 14, AttackDamage: 18, HP: 60, Armor: 1, SpawnWeight: 0.10},
		{Name: "warden", PatrolRadius: 18, Aggressiveness: 0.4, PursuitSpeed: 2.4, StandOff: 6, MoveSpeed: 2.0, AttackRange: 8, AttackDamage: 5, HP: 120, Armor: 6, SpawnWeight: 0.05},
	}
}

// DefaultArchetypeTable wraps DefaultArchetypes in a table.
func DefaultArchetypeTable() *ArchetypeTable {
	return NewArchetypeTable(DefaultArchetypes())
}

// Get returns the template for an archetype name, or nil if unknown.
func (t *ArchetypeTable) Get(name string) *ArchetypeTemplate {
	return t.templates[name]
}

func (t *ArchetypeTable) Count() int {
	return len(t.templates)
}

// Names returns all archetype names in sorted order.
func (t *ArchetypeTable) Names() []string {
	names := make([]string, 0, len(t.templates))
	for n := range t.templates {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// DefaultDistribution returns the built-in spawn-weight distribution over all
// archetypes in the table. Weights are relative; callers renormalize over
// whatever subset a wave enables.
func (t *ArchetypeTable) DefaultDistribution() map[string]float64 {
	dist := make(map[string]float64, len(t.templates))
	for n, a := range t.templates {
		dist[n] = a.SpawnWeight
	}
	return dist
}
