package system

import (
	"time"

	"github.com/gridfire/server/internal/ai"
	"github.com/gridfire/server/internal/core/event"
	coresys "github.com/gridfire/server/internal/core/system"
	"github.com/gridfire/server/internal/wave"
	"github.com/gridfire/server/internal/world"
)

// EventDispatchSystem swaps the bus buffers and delivers last tick's events
// before any decision logic runs.
type EventDispatchSystem struct {
	bus *event.Bus
}

func NewEventDispatchSystem(bus *event.Bus) *EventDispatchSystem {
	return &EventDispatchSystem{bus: bus}
}

func (s *EventDispatchSystem) Phase() coresys.Phase { return coresys.PhasePreUpdate }

func (s *EventDispatchSystem) Update(time.Duration) {
	s.bus.SwapBuffers()
	s.bus.DispatchAll()
}

// AgentSystem drives the FSM controller from the tick loop.
type AgentSystem struct {
	controller *ai.Controller
}

func NewAgentSystem(controller *ai.Controller) *AgentSystem {
	return &AgentSystem{controller: controller}
}

func (s *AgentSystem) Phase() coresys.Phase { return coresys.PhaseUpdate }

func (s *AgentSystem) Update(dt time.Duration) {
	s.controller.Update(dt.Seconds())
}

// WaveSystem drives the wave director, registering each spawned enemy with
// the controller.
type WaveSystem struct {
	director   *wave.Director
	controller *ai.Controller
}

func NewWaveSystem(director *wave.Director, controller *ai.Controller) *WaveSystem {
	return &WaveSystem{director: director, controller: controller}
}

func (s *WaveSystem) Phase() coresys.Phase { return coresys.PhaseUpdate }

func (s *WaveSystem) Update(dt time.Duration) {
	s.director.Update(dt.Seconds(), s.controller)
}

// CleanupSystem flushes queued entity destruction at the end of every tick.
type CleanupSystem struct {
	state *world.State
}

func NewCleanupSystem(state *world.State) *CleanupSystem {
	return &CleanupSystem{state: state}
}

func (s *CleanupSystem) Phase() coresys.Phase { return coresys.PhaseCleanup }

func (s *CleanupSystem) Update(time.Duration) {
	s.state.Entities.FlushDestroyQueue()
}
