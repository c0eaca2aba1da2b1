package ai

import "github.com/gridfire/server/internal/core/ecs"

// AgentSnapshot is the serialized form of one agent's state, emitted in
// registry order for persistence round-trips.
type AgentSnapshot struct {
	EntityID       uint64  `json:"entity_id"`
	State          string  `json:"state"`
	TargetID       uint64  `json:"target_id,omitempty"`
	AnchorX        float64 `json:"anchor_x"`
	AnchorY        float64 `json:"anchor_y"`
	PatrolRadius   float64 `json:"patrol_radius"`
	Aggressiveness float64 `json:"aggressiveness"`
	PursuitSpeed   float64 `json:"pursuit_speed"`
	StandOff       float64 `json:"stand_off"`
	PatrolX        float64 `json:"patrol_x,omitempty"`
	PatrolY        float64 `json:"patrol_y,omitempty"`
	HasPatrol      bool    `json:"has_patrol,omitempty"`
	StateTime      float64 `json:"state_time"`
	DecisionTimer  float64 `json:"decision_timer"`
	IdleDwell      float64 `json:"idle_dwell"`
}

// Snapshot returns every agent's state as an ordered sequence of
// (entityId, state) records.
func (c *Controller) Snapshot() []AgentSnapshot {
	out := make([]AgentSnapshot, 0, len(c.agents))
	for i := range c.agents {
		ag := &c.agents[i]
		out = append(out, AgentSnapshot{
			EntityID:       uint64(ag.id),
			State:          ag.state.String(),
			TargetID:       uint64(ag.targetID),
			AnchorX:        ag.anchorX,
			AnchorY:        ag.anchorY,
			PatrolRadius:   ag.patrolRadius,
			Aggressiveness: ag.aggressiveness,
			PursuitSpeed:   ag.pursuitSpeed,
			StandOff:       ag.standOff,
			PatrolX:        ag.patrolX,
			PatrolY:        ag.patrolY,
			HasPatrol:      ag.hasPatrol,
			StateTime:      ag.stateTime,
			DecisionTimer:  ag.decisionTimer,
			IdleDwell:      ag.idleDwell,
		})
	}
	return out
}

// Restore replaces the registry with the snapshotted agents. Records whose
// entity no longer exists are dropped; unparseable states fall back to Idle.
func (c *Controller) Restore(snaps []AgentSnapshot) {
	c.agents = c.agents[:0]
	clear(c.index)
	for _, s := range snaps {
		id := ecs.EntityID(s.EntityID)
		if !c.query.Alive(id) {
			continue
		}
		state, ok := ParseState(s.State)
		if !ok {
			state = StateIdle
		}
		c.index[id] = len(c.agents)
		c.agents = append(c.agents, agentState{
			id:             id,
			state:          state,
			targetID:       ecs.EntityID(s.TargetID),
			anchorX:        s.AnchorX,
			anchorY:        s.AnchorY,
			patrolRadius:   s.PatrolRadius,
			aggressiveness: s.Aggressiveness,
			pursuitSpeed:   s.PursuitSpeed,
			standOff:       s.StandOff,
			patrolX:        s.PatrolX,
			patrolY:        s.PatrolY,
			hasPatrol:      s.HasPatrol,
			stateTime:      s.StateTime,
			decisionTimer:  s.DecisionTimer,
			idleDwell:      s.IdleDwell,
		})
	}
}
