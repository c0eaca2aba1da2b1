package system

import "time"

// Phase defines execution ordering within a single tick.
type Phase int

const (
	PhasePreUpdate  Phase = iota // 0: dispatch last tick's events
	PhaseUpdate                  // 1: agent decisions, wave spawning
	PhasePostUpdate              // 2: movement integration, combat resolution
	PhasePersist                 // 3: WAL flush + periodic snapshot
	PhaseCleanup                 // 4: destroy queued entities
)

// System is the interface every tick system implements.
type System interface {
	Phase() Phase
	Update(dt time.Duration)
}
