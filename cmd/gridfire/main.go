package main

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/gridfire/server/internal/ai"
	"github.com/gridfire/server/internal/config"
	coresys "github.com/gridfire/server/internal/core/system"
	"github.com/gridfire/server/internal/core/event"
	"github.com/gridfire/server/internal/data"
	"github.com/gridfire/server/internal/nav"
	"github.com/gridfire/server/internal/persist"
	"github.com/gridfire/server/internal/scripting"
	"github.com/gridfire/server/internal/system"
	"github.com/gridfire/server/internal/wave"
	"github.com/gridfire/server/internal/world"
)

const (
	hostileFaction  = "raider"
	defenderFaction = "defender"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

// ── Startup display helpers ────────────────────────────────────────

func printBanner(serverName string, serverID int) {
	fmt.Println()
	fmt.Println("\033[36;1m  ┌───────────────────────────────────────────┐\033[0m")
	fmt.Println("\033[36;1m  │\033[0m            Gridfire  v0.1.0               \033[36;1m│\033[0m")
	fmt.Println("\033[36;1m  │\033[0m      tactical combat simulation core      \033[36;1m│\033[0m")
	fmt.Println("\033[36;1m  └───────────────────────────────────────────┘\033[0m")
	fmt.Println()
	fmt.Printf("  \033[1mserver:\033[0m %s \033[90m(id: %d)\033[0m\n\n", serverName, serverID)
}

func printSection(title string) {
	lineLen := 46 - len(title) - 1
	if lineLen < 3 {
		lineLen = 3
	}
	fmt.Printf("  \033[33m── %s %s\033[0m\n", title, strings.Repeat("─", lineLen))
}

func printStat(label string, count int) {
	numStr := fmt.Sprintf("%d", count)
	dotsLen := 42 - len(label) - len(numStr)
	if dotsLen < 3 {
		dotsLen = 3
	}
	fmt.Printf("  %s \033[90m%s\033[0m \033[32m%s\033[0m\n", label, strings.Repeat("·", dotsLen), numStr)
}

func printOK(msg string) {
	fmt.Printf("  \033[32m✓\033[0m %s\n", msg)
}

func printReady(msg string) {
	fmt.Printf("  \033[32m▶\033[0m %s\n", msg)
}

// ── Main server logic ─────────────────────────────────────────────

func run() error {
	// 1. Load config
	cfgPath := "config/server.toml"
	if p := os.Getenv("GRIDFIRE_CONFIG"); p != "" {
		cfgPath = p
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// 2. Init logger
	log, err := newLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()

	printBanner(cfg.Server.Name, cfg.Server.ID)

	// 3. Connect to PostgreSQL and run migrations
	printSection("database")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	var (
		db        *persist.DB
		snapshots *persist.SnapshotRepo
		spawnWAL  *persist.SpawnWALRepo
	)
	if cfg.Database.Disabled {
		printOK("persistence disabled")
	} else {
		db, err = persist.NewDB(ctx, cfg.Database, log)
		if err != nil {
			return fmt.Errorf("database: %w", err)
		}
		defer db.Close()
		printOK("postgres connected")

		if err := persist.RunMigrations(ctx, db.Pool); err != nil {
			return fmt.Errorf("migrations: %w", err)
		}
		printOK("migrations applied")

		snapshots = persist.NewSnapshotRepo(db, cfg.Server.ID)
		spawnWAL = persist.NewSpawnWALRepo(db, cfg.Server.ID)
	}
	fmt.Println()

	// 4. Load data tables
	printSection("data")

	archetypes, err := loadArchetypes(cfg.Data.ArchetypeFile, log)
	if err != nil {
		return fmt.Errorf("load archetypes: %w", err)
	}
	printStat("archetypes", archetypes.Count())

	scenario, err := data.LoadScenario(cfg.Data.ScenarioFile)
	if err != nil {
		return fmt.Errorf("load scenario: %w", err)
	}
	printStat("spawn points", len(scenario.SpawnPoints))
	printStat("waves", len(scenario.Waves))

	grid, err := data.LoadArena(cfg.Data.ArenaFile)
	if err != nil {
		return fmt.Errorf("load arena: %w", err)
	}
	printStat("arena width", grid.Width())
	printStat("arena height", grid.Height())

	// 5. Initialize Lua scripting engine
	luaEngine, err := scripting.NewEngine(cfg.Data.ScriptsDir, log)
	if err != nil {
		return fmt.Errorf("lua engine: %w", err)
	}
	defer luaEngine.Close()
	printOK("lua scripts loaded")
	fmt.Println()

	// 6. World state, capabilities, controller and director
	seed := cfg.Sim.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))

	worldState := world.NewState(grid)
	finder := nav.NewPathFinder(grid, cfg.Sim.MaxPathExpansion)
	bus := event.NewBus()

	movement := system.NewMovementSystem(worldState, grid, finder, log)
	combat := system.NewCombatSystem(worldState, bus, luaEngine, log)

	controller, err := ai.NewController(worldState, movement, combat, archetypes, rng, log)
	if err != nil {
		return fmt.Errorf("agent controller: %w", err)
	}

	director, err := wave.NewDirector(worldState, worldState, archetypes, bus, luaEngine, rng, hostileFaction, log)
	if err != nil {
		return fmt.Errorf("wave director: %w", err)
	}

	// 7. Seed the scenario: resume from the last wave snapshot if one exists,
	// otherwise build spawn points and waves from the scenario file.
	printSection("scenario")

	resumed := false
	if snapshots != nil {
		snap, err := snapshots.LoadWaves(ctx)
		switch {
		case err == nil:
			director.Restore(snap)
			resumed = true
			printOK("wave state resumed from snapshot")
		case errors.Is(err, persist.ErrNoSnapshot):
			// first boot
		default:
			return fmt.Errorf("load wave snapshot: %w", err)
		}
	}
	if !resumed {
		spawnIDs := make([]int, len(scenario.SpawnPoints))
		for i, sp := range scenario.SpawnPoints {
			spawnIDs[i] = director.CreateSpawnPoint(sp.X, sp.Y)
		}
		for i, w := range scenario.Waves {
			ids := make([]int, len(w.SpawnPoints))
			for j, idx := range w.SpawnPoints {
				ids[j] = spawnIDs[idx]
			}
			if _, err := director.CreateWave(wave.Config{
				SpawnPoints:   ids,
				Archetypes:    w.Archetypes,
				TotalEnemies:  w.TotalEnemies,
				SpawnInterval: w.SpawnInterval,
				Distribution:  w.Distribution,
			}); err != nil {
				return fmt.Errorf("scenario wave %d: %w", i, err)
			}
		}
	}

	defenderCount := spawnDefenders(worldState, controller, archetypes, scenario.Defenders, log)
	printStat("defenders", defenderCount)

	if snapshots != nil {
		agentSnaps, err := snapshots.LoadAgents(ctx)
		if err == nil && len(agentSnaps) > 0 {
			controller.Restore(agentSnaps)
			printOK("agent state resumed from snapshot")
		} else if err != nil && !errors.Is(err, persist.ErrNoSnapshot) {
			return fmt.Errorf("load agent snapshot: %w", err)
		}
	}
	fmt.Println()

	// 8. Event logging
	event.Subscribe(bus, func(ev event.AgentDied) {
		log.Debug("agent died", zap.Uint64("entity", uint64(ev.EntityID)), zap.String("faction", ev.Faction))
	})
	event.Subscribe(bus, func(ev event.WaveCompleted) {
		log.Info("wave completed", zap.Int("wave", ev.WaveNumber))
	})
	event.Subscribe(bus, func(ev event.AllWavesCompleted) {
		log.Info("all waves completed", zap.Int("total", ev.TotalWaves))
	})

	// 9. Create systems and register with runner
	runner := coresys.NewRunner()
	runner.Register(system.NewEventDispatchSystem(bus))
	runner.Register(system.NewAgentSystem(controller))
	runner.Register(system.NewWaveSystem(director, controller))
	runner.Register(movement)
	runner.Register(combat)
	persistSys := system.NewPersistSystem(controller, director, snapshots, spawnWAL, cfg.Sim.AutosaveTicks, log)
	runner.Register(persistSys)
	runner.Register(system.NewCleanupSystem(worldState))

	// 10. Start tick loop
	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)

	ticker := time.NewTicker(cfg.Sim.TickRate)
	defer ticker.Stop()

	printSection("simulation ready")
	printReady(fmt.Sprintf("tick loop started (tick: %s, seed: %d)", cfg.Sim.TickRate, seed))
	fmt.Println()

	for {
		select {
		case <-ticker.C:
			runner.Tick(cfg.Sim.TickRate)
			if director.AllWavesDone() && worldState.LiveCount(hostileFaction) == 0 {
				log.Info("scenario complete",
					zap.Int("defenders_left", worldState.LiveCount(defenderFaction)))
				persistSys.SaveNow()
				return nil
			}
		case sig := <-shutdownCh:
			log.Info("shutdown signal received", zap.String("signal", sig.String()))
			persistSys.SaveNow()
			log.Info("server stopped")
			return nil
		}
	}
}

// loadArchetypes reads the archetype table, falling back to the built-in
// defaults when the file is absent.
func loadArchetypes(path string, log *zap.Logger) (*data.ArchetypeTable, error) {
	table, err := data.LoadArchetypeTable(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			log.Warn("archetype file missing, using built-in defaults", zap.String("path", path))
			return data.DefaultArchetypeTable(), nil
		}
		return nil, err
	}
	return table, nil
}

// spawnDefenders creates the defending squads from the scenario and registers
// them with the agent controller.
func spawnDefenders(ws *world.State, controller *ai.Controller, archetypes *data.ArchetypeTable, defs []data.DefenderDef, log *zap.Logger) int {
	total := 0
	for _, def := range defs {
		tmpl := archetypes.Get(def.Archetype)
		if tmpl == nil {
			log.Warn("spawn: unknown defender archetype", zap.String("archetype", def.Archetype))
			continue
		}
		for i := 0; i < def.Count; i++ {
			id := ws.CreateEntity()
			ws.AddTransform(id, def.X, def.Y)
			ws.AddHealth(id, tmpl.HP, tmpl.HP, tmpl.Armor)
			ws.AddFaction(id, defenderFaction)
			ws.AddUnit(id, tmpl.Name, tmpl.MoveSpeed, tmpl.AttackRange, tmpl.AttackDamage)
			if !controller.RegisterEntity(id, tmpl.Name) {
				log.Warn("spawn: defender registration rejected", zap.Uint64("entity", uint64(id)))
			} else {
				total++
			}
		}
	}
	return total
}

func newLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = zapcore.InfoLevel
	}

	var zapCfg zap.Config
	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		zapCfg.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
		zapCfg.EncoderConfig.ConsoleSeparator = "  "
		zapCfg.DisableCaller = true
		zapCfg.DisableStacktrace = true
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)

	return zapCfg.Build()
}
