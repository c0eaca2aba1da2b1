package scripting

import (
	"fmt"
	"os"
	"path/filepath"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
)

// Engine wraps a single gopher-lua VM for tunable combat and wave logic.
// Single-goroutine access only (tick loop). Hot-reload planned via atomic swap.
type Engine struct {
	vm  *lua.LState
	log *zap.Logger
}

// NewEngine creates a Lua engine and loads all scripts from the given directory.
func NewEngine(scriptsDir string, log *zap.Logger) (*Engine, error) {
	vm := lua.NewState(lua.Options{
		SkipOpenLibs: false,
	})

	// Set API version global
	vm.SetGlobal("API_VERSION", lua.LNumber(1))

	e := &Engine{vm: vm, log: log}

	// Load core scripts first, then feature scripts
	corePath := filepath.Join(scriptsDir, "core")
	if err := e.loadDir(corePath); err != nil {
		vm.Close()
		return nil, fmt.Errorf("load core scripts: %w", err)
	}

	combatPath := filepath.Join(scriptsDir, "combat")
	if err := e.loadDir(combatPath); err != nil {
		vm.Close()
		return nil, fmt.Errorf("load combat scripts: %w", err)
	}

	wavePath := filepath.Join(scriptsDir, "wave")
	if err := e.loadDir(wavePath); err != nil {
		vm.Close()
		return nil, fmt.Errorf("load wave scripts: %w", err)
	}

	return e, nil
}

// loadDir loads all .lua files in a directory.
func (e *Engine) loadDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil // skip missing dirs
		}
		return err
	}
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".lua" {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		if err := e.vm.DoFile(path); err != nil {
			return fmt.Errorf("load %s: %w", path, err)
		}
		e.log.Debug("loaded lua script", zap.String("file", path))
	}
	return nil
}

// AttackContext holds pre-packed data for an attack damage calculation.
type AttackContext struct {
	AttackerArchetype string
	AttackerDamage    float64
	AttackerHP        float64
	AttackerMaxHP     float64
	TargetArchetype   string
	TargetArmor       float64
	TargetHP          float64
	TargetMaxHP       float64
	Distance          float64
}

// AttackResult is returned by the Lua attack function.
type AttackResult struct {
	IsHit  bool
	Damage float64
}

// neutralAttack is the fallback when the script is missing or errors out.
func neutralAttack(ctx AttackContext) AttackResult {
	dmg := ctx.AttackerDamage - ctx.TargetArmor*0.5
	if dmg < 1 {
		dmg = 1
	}
	return AttackResult{IsHit: true, Damage: dmg}
}

// CalcAttack calls the Lua calc_attack function.
func (e *Engine) CalcAttack(ctx AttackContext) AttackResult {
	fn := e.vm.GetGlobal("calc_attack")
	if fn == lua.LNil {
		e.log.Error("lua function calc_attack not found")
		return neutralAttack(ctx)
	}

	// Build context table
	t := e.vm.NewTable()

	atk := e.vm.NewTable()
	atk.RawSetString("archetype", lua.LString(ctx.AttackerArchetype))
	atk.RawSetString("damage", lua.LNumber(ctx.AttackerDamage))
	atk.RawSetString("hp", lua.LNumber(ctx.AttackerHP))
	atk.RawSetString("max_hp", lua.LNumber(ctx.AttackerMaxHP))
	t.RawSetString("attacker", atk)

	tgt := e.vm.NewTable()
	tgt.RawSetString("archetype", lua.LString(ctx.TargetArchetype))
	tgt.RawSetString("armor", lua.LNumber(ctx.TargetArmor))
	tgt.RawSetString("hp", lua.LNumber(ctx.TargetHP))
	tgt.RawSetString("max_hp", lua.LNumber(ctx.TargetMaxHP))
	t.RawSetString("target", tgt)

	t.RawSetString("distance", lua.LNumber(ctx.Distance))

	if err := e.vm.CallByParam(lua.P{
		Fn:      fn,
		NRet:    1,
		Protect: true,
	}, t); err != nil {
		e.log.Error("lua calc_attack error", zap.Error(err))
		return neutralAttack(ctx)
	}

	result := e.vm.Get(-1)
	e.vm.Pop(1)

	rt, ok := result.(*lua.LTable)
	if !ok {
		e.log.Error("lua calc_attack returned non-table")
		return neutralAttack(ctx)
	}

	return AttackResult{
		IsHit:  rt.RawGetString("is_hit") == lua.LTrue,
		Damage: float64(lua.LVAsNumber(rt.RawGetString("damage"))),
	}
}

// --- Wave Lifecycle Bridge ---

// OnWaveStart calls Lua on_wave_start(wave_number). Missing function is a no-op.
func (e *Engine) OnWaveStart(waveNumber int) {
	e.callVoidFunc("on_wave_start", waveNumber)
}

// OnWaveComplete calls Lua on_wave_complete(wave_number).
func (e *Engine) OnWaveComplete(waveNumber int) {
	e.callVoidFunc("on_wave_complete", waveNumber)
}

// OnAllWavesComplete calls Lua on_all_waves_complete(total_waves).
func (e *Engine) OnAllWavesComplete(totalWaves int) {
	e.callVoidFunc("on_all_waves_complete", totalWaves)
}

// --- Lua helpers ---

// callVoidFunc calls a Lua function with int args, discarding any result.
func (e *Engine) callVoidFunc(name string, args ...int) {
	fn := e.vm.GetGlobal(name)
	if fn == lua.LNil {
		return
	}

	lArgs := make([]lua.LValue, len(args))
	for i, a := range args {
		lArgs[i] = lua.LNumber(a)
	}

	if err := e.vm.CallByParam(lua.P{
		Fn:      fn,
		NRet:    0,
		Protect: true,
	}, lArgs...); err != nil {
		e.log.Error("lua call error", zap.String("func", name), zap.Error(err))
	}
}

// Close shuts down the Lua VM.
func (e *Engine) Close() {
	e.vm.Close()
}
