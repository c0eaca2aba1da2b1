package event

import "github.com/gridfire/server/internal/core/ecs"

// AgentDied fires when a hostile unit's health reaches zero.
type AgentDied struct {
	EntityID ecs.EntityID
	Faction  string
}

// WaveCompleted fires when a wave has spawned its full complement.
type WaveCompleted struct {
	WaveID     int
	WaveNumber int
}

// AllWavesCompleted fires when the last wave is done and no hostile units
// remain alive.
type AllWavesCompleted struct {
	TotalWaves int
}
