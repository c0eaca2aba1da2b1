package data

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// SpawnPointDef places one reinforcement entry point in world space.
type SpawnPointDef struct {
	X float64 `yaml:"x"`
	Y float64 `yaml:"y"`
}

// WaveDef describes one reinforcement wave. SpawnPoints are indices into the
// scenario's spawn point list. Distribution is optional; when empty the
// default archetype distribution is filtered to Archetypes and renormalized.
type WaveDef struct {
	SpawnPoints   []int              `yaml:"spawn_points"`
	Archetypes    []string           `yaml:"archetypes"`
	TotalEnemies  int                `yaml:"total_enemies"`
	SpawnInterval float64            `yaml:"spawn_interval"` // seconds
	Distribution  map[string]float64 `yaml:"distribution"`
}

// DefenderDef seeds one squad of the defending faction at boot.
type DefenderDef struct {
	Archetype string  `yaml:"archetype"`
	X         float64 `yaml:"x"`
	Y         float64 `yaml:"y"`
	Count     int     `yaml:"count"`
}

// Scenario bundles the spawn layout, defender squads and wave schedule for
// one arena.
type Scenario struct {
	SpawnPoints []SpawnPointDef `yaml:"spawn_points"`
	Defenders   []DefenderDef   `yaml:"defenders"`
	Waves       []WaveDef       `yaml:"waves"`
}

// LoadScenario loads a scenario definition from a YAML file.
func LoadScenario(path string) (*Scenario, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario: %w", err)
	}
	var s Scenario
	if err := yaml.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("parse scenario: %w", err)
	}
	for i := range s.Defenders {
		if s.Defenders[i].Archetype == "" {
			return nil, fmt.Errorf("scenario defender %d: archetype is required", i)
		}
		if s.Defenders[i].Count <= 0 {
			s.Defenders[i].Count = 1
		}
	}
	for i, w := range s.Waves {
		if w.TotalEnemies <= 0 {
			return nil, fmt.Errorf("scenario wave %d: total_enemies must be positive", i)
		}
		if w.SpawnInterval <= 0 {
			return nil, fmt.Errorf("scenario wave %d: spawn_interval must be positive", i)
		}
		for _, sp := range w.SpawnPoints {
			if sp < 0 || sp >= len(s.SpawnPoints) {
				return nil, fmt.Errorf("scenario wave %d: spawn point index %d out of range", i, sp)
			}
		}
	}
	return &s, nil
}
