// Package config loads process-level settings from the environment.
// Precedence, lowest to highest: package defaults, environment, CLI flags.
package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"

	"github.com/danielpatrickdp/worldsim/internal/batch"
	"github.com/danielpatrickdp/worldsim/internal/engine"
)

// #region env

// Env holds the environment-driven settings. Zero values mean "unset" and
// fall back to package defaults.
type Env struct {
	DecayRate float64 `env:"WORLDSIM_DECAY_RATE"`

	GravityOff          bool    `env:"WORLDSIM_GRAVITY_OFF"`
	GravityLambda       float64 `env:"WORLDSIM_GRAVITY_LAMBDA"`
	GravityLearningRate float64 `env:"WORLDSIM_GRAVITY_LEARNING_RATE"`
	GravityEWMASpan     int     `env:"WORLDSIM_GRAVITY_EWMA_SPAN"`

	ShadowOff       bool     `env:"WORLDSIM_SHADOW_OFF"`
	ShadowThreshold float64  `env:"WORLDSIM_SHADOW_THRESHOLD"`
	ShadowWindow    int      `env:"WORLDSIM_SHADOW_WINDOW"`
	ShadowVariables []string `env:"WORLDSIM_SHADOW_VARS" envSeparator:","`

	BatchWorkers int    `env:"WORLDSIM_BATCH_WORKERS"`
	DBPath       string `env:"WORLDSIM_DB" envDefault:"worldsim.db"`
	OutPath      string `env:"WORLDSIM_OUT" envDefault:"batch_results.ndjson"`
}

// FromEnv parses the environment.
func FromEnv() (Env, error) {
	var e Env
	if err := env.Parse(&e); err != nil {
		return Env{}, fmt.Errorf("parse env: %w", err)
	}
	return e, nil
}

// #endregion env

// #region batch-config

// BatchConfig folds the environment over the package defaults.
func (e Env) BatchConfig() batch.Config {
	cfg := batch.DefaultBatchConfig()
	if e.DecayRate > 0 {
		cfg.DecayRate = e.DecayRate
	}
	if e.GravityOff {
		cfg.EngineConfig.GravityEnabled = false
	}
	if e.GravityLambda > 0 {
		cfg.GravityConfig.Lambda = e.GravityLambda
	}
	if e.GravityLearningRate > 0 {
		cfg.GravityConfig.LearningRate = e.GravityLearningRate
	}
	if e.GravityEWMASpan > 0 {
		cfg.GravityConfig.EWMASpan = e.GravityEWMASpan
	}
	if e.ShadowOff {
		cfg.ShadowConfig.Enabled = false
	}
	if e.ShadowThreshold > 0 {
		cfg.ShadowConfig.Threshold = e.ShadowThreshold
	}
	if e.ShadowWindow > 0 {
		cfg.ShadowConfig.WindowSteps = e.ShadowWindow
	}
	if len(e.ShadowVariables) > 0 {
		cfg.ShadowConfig.CriticalVariables = e.ShadowVariables
	}
	if e.BatchWorkers > 0 {
		cfg.Workers = e.BatchWorkers
	}
	cfg.Mode = engine.ModeSummary
	return cfg
}

// #endregion batch-config
