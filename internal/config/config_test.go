package config

import (
	"testing"

	"github.com/danielpatrickdp/worldsim/internal/decay"
)

func TestFromEnvDefaults(t *testing.T) {
	e, err := FromEnv()
	if err != nil {
		t.Fatalf("FromEnv: %v", err)
	}
	if e.DBPath != "worldsim.db" {
		t.Fatalf("db default: got %q", e.DBPath)
	}

	cfg := e.BatchConfig()
	if cfg.DecayRate != decay.DefaultRate {
		t.Fatalf("decay default: got %v", cfg.DecayRate)
	}
	if !cfg.EngineConfig.GravityEnabled {
		t.Fatal("gravity should default to enabled")
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("WORLDSIM_DECAY_RATE", "0.05")
	t.Setenv("WORLDSIM_GRAVITY_OFF", "true")
	t.Setenv("WORLDSIM_SHADOW_VARS", "tension,pressure")
	t.Setenv("WORLDSIM_BATCH_WORKERS", "4")

	e, err := FromEnv()
	if err != nil {
		t.Fatalf("FromEnv: %v", err)
	}
	cfg := e.BatchConfig()

	if cfg.DecayRate != 0.05 {
		t.Fatalf("decay override: got %v", cfg.DecayRate)
	}
	if cfg.EngineConfig.GravityEnabled {
		t.Fatal("gravity off override ignored")
	}
	if len(cfg.ShadowConfig.CriticalVariables) != 2 || cfg.ShadowConfig.CriticalVariables[1] != "pressure" {
		t.Fatalf("shadow vars override: got %v", cfg.ShadowConfig.CriticalVariables)
	}
	if cfg.Workers != 4 {
		t.Fatalf("workers override: got %v", cfg.Workers)
	}
}
