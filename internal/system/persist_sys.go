package system

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/gridfire/server/internal/ai"
	coresys "github.com/gridfire/server/internal/core/system"
	"github.com/gridfire/server/internal/persist"
	"github.com/gridfire/server/internal/wave"
)

const saveTimeout = 5 * time.Second

// PersistSystem flushes the director's spawn audit log every tick and writes
// full agent/wave snapshots every autosaveTicks ticks. With persistence
// disabled both repos are nil and the system only drains the spawn log.
type PersistSystem struct {
	controller *ai.Controller
	director   *wave.Director
	snapshots  *persist.SnapshotRepo
	wal        *persist.SpawnWALRepo
	log        *zap.Logger

	autosaveTicks int
	ticks         int
}

func NewPersistSystem(controller *ai.Controller, director *wave.Director,
	snapshots *persist.SnapshotRepo, wal *persist.SpawnWALRepo,
	autosaveTicks int, log *zap.Logger) *PersistSystem {
	return &PersistSystem{
		controller:    controller,
		director:      director,
		snapshots:     snapshots,
		wal:           wal,
		log:           log,
		autosaveTicks: autosaveTicks,
	}
}

func (s *PersistSystem) Phase() coresys.Phase { return coresys.PhasePersist }

func (s *PersistSystem) Update(time.Duration) {
	records := s.director.DrainSpawnLog()
	if s.wal != nil && len(records) > 0 {
		ctx, cancel := context.WithTimeout(context.Background(), saveTimeout)
		if err := s.wal.WriteSpawns(ctx, records); err != nil {
			s.log.Error("spawn wal write failed", zap.Int("records", len(records)), zap.Error(err))
		}
		cancel()
	}

	if s.autosaveTicks <= 0 || s.snapshots == nil {
		return
	}
	s.ticks++
	if s.ticks < s.autosaveTicks {
		return
	}
	s.ticks = 0
	s.SaveNow()
}

// SaveNow writes agent and wave snapshots immediately. Also called on
// shutdown.
func (s *PersistSystem) SaveNow() {
	if s.snapshots == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), saveTimeout)
	defer cancel()

	start := time.Now()
	if err := s.snapshots.SaveAgents(ctx, s.controller.Snapshot()); err != nil {
		s.log.Error("agent snapshot save failed", zap.Error(err))
		return
	}
	if err := s.snapshots.SaveWaves(ctx, s.director.Snapshot()); err != nil {
		s.log.Error("wave snapshot save failed", zap.Error(err))
		return
	}
	if s.wal != nil {
		if err := s.wal.MarkProcessed(ctx); err != nil {
			s.log.Error("spawn wal mark failed", zap.Error(err))
		}
	}
	if err := s.snapshots.Prune(ctx, 5); err != nil {
		s.log.Error("snapshot prune failed", zap.Error(err))
	}
	s.log.Info("world saved",
		zap.Int("agents", s.controller.AgentCount()),
		zap.Duration("elapsed", time.Since(start)))
}
