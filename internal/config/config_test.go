package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "server.toml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
[server]
name = "arena-7"
id = 7

[database]
dsn = "postgres://u:p@db:5432/sim"
conn_max_lifetime = "10m"
disabled = true

[sim]
tick_rate = "50ms"
seed = 42
autosave_ticks = 600
max_path_expansion = 1024

[logging]
level = "debug"
format = "json"
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Name != "arena-7" || cfg.Server.ID != 7 {
		t.Fatalf("server = %+v", cfg.Server)
	}
	if !cfg.Database.Disabled || cfg.Database.ConnMaxLifetime != 10*time.Minute {
		t.Fatalf("database = %+v", cfg.Database)
	}
	if cfg.Sim.TickRate != 50*time.Millisecond || cfg.Sim.Seed != 42 {
		t.Fatalf("sim = %+v", cfg.Sim)
	}
	if cfg.Sim.AutosaveTicks != 600 || cfg.Sim.MaxPathExpansion != 1024 {
		t.Fatalf("sim = %+v", cfg.Sim)
	}
	if cfg.Logging.Level != "debug" || cfg.Logging.Format != "json" {
		t.Fatalf("logging = %+v", cfg.Logging)
	}
	if cfg.Server.StartTime == 0 {
		t.Fatalf("StartTime not stamped")
	}
}

func TestLoadKeepsDefaultsForOmittedKeys(t *testing.T) {
	path := writeConfig(t, "[server]\nid = 3\n")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Name != "gridfire" {
		t.Fatalf("default name = %q", cfg.Server.Name)
	}
	if cfg.Sim.TickRate != 100*time.Millisecond || cfg.Sim.AutosaveTicks != 3000 {
		t.Fatalf("sim defaults = %+v", cfg.Sim)
	}
	if cfg.Data.ScriptsDir != "scripts" {
		t.Fatalf("data defaults = %+v", cfg.Data)
	}
	if cfg.Database.Disabled {
		t.Fatalf("persistence disabled by default")
	}
}

func TestLoadErrors(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.toml")); err == nil {
		t.Fatalf("missing file did not error")
	}
	bad := writeConfig(t, "[sim]\ntick_rate = [1, 2]\n")
	if _, err := Load(bad); err == nil {
		t.Fatalf("malformed value did not error")
	}
}
