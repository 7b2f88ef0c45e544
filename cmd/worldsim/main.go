package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/danielpatrickdp/worldsim/internal/batch"
	"github.com/danielpatrickdp/worldsim/internal/config"
	"github.com/danielpatrickdp/worldsim/internal/decay"
	"github.com/danielpatrickdp/worldsim/internal/engine"
	"github.com/danielpatrickdp/worldsim/internal/gravity"
	"github.com/danielpatrickdp/worldsim/internal/rules"
	"github.com/danielpatrickdp/worldsim/internal/shadow"
	"github.com/danielpatrickdp/worldsim/internal/world"
)

// #region main

func main() {
	os.Exit(run())
}

func run() int {
	mode := flag.String("mode", "forward", "forward | retro | batch")
	turns := flag.Int("turns", 10, "turns to simulate (forward)")
	steps := flag.Int("steps", 5, "steps to retrodict (retro)")
	scenariosPath := flag.String("scenarios", "", "YAML scenario file (batch)")
	outPath := flag.String("out", "", "batch output path (NDJSON)")
	detail := flag.String("detail", "summary", "per-turn detail: summary | full")

	gravityOff := flag.Bool("gravity-off", false, "disable gravity correction")
	gravityOn := flag.Bool("gravity-on", false, "force-enable gravity correction")
	gravityLambda := flag.Float64("gravity-lambda", 0, "override gravity lambda")
	gravityLR := flag.Float64("gravity-lr", 0, "override gravity learning rate")
	gravitySpan := flag.Int("gravity-ewma-span", 0, "override gravity EWMA span")

	shadowThreshold := flag.Float64("shadow-threshold", 0, "override shadow variance threshold")
	shadowWindow := flag.Int("shadow-window", 0, "override shadow window steps")
	shadowVars := flag.String("shadow-vars", "", "comma-separated critical variables")

	dbPath := flag.String("db", "", "sqlite rule registry path")
	debug := flag.Bool("debug", false, "debug logging")
	flag.Parse()

	logger := buildLogger(*debug)
	defer logger.Sync()

	envCfg, err := config.FromEnv()
	if err != nil {
		logger.Error("config", zap.Error(err))
		return 1
	}
	cfg := envCfg.BatchConfig()
	applyFlags(&cfg, *gravityOff, *gravityOn, *gravityLambda, *gravityLR, *gravitySpan,
		*shadowThreshold, *shadowWindow, *shadowVars)
	if *detail == "full" {
		cfg.Mode = engine.ModeFull
	}

	registry, store := loadRegistry(firstNonEmpty(*dbPath, envCfg.DBPath), logger)
	if store != nil {
		defer store.Close()
	}

	switch *mode {
	case "forward":
		return runForward(cfg, registry, *turns, logger)
	case "retro":
		return runRetro(cfg, *steps, logger)
	case "batch":
		out := firstNonEmpty(*outPath, envCfg.OutPath)
		return runBatch(cfg, registry, *scenariosPath, out, logger)
	default:
		fmt.Fprintf(os.Stderr, "unknown mode %q\n", *mode)
		return 2
	}
}

// #endregion main

// #region wiring

func buildLogger(debug bool) *zap.Logger {
	if debug {
		l, _ := zap.NewDevelopment()
		return l
	}
	l, _ := zap.NewProduction()
	return l
}

// applyFlags folds CLI overrides over the env-derived config. Unset flags
// (zero values) leave the config alone.
func applyFlags(cfg *batch.Config, gravityOff, gravityOn bool, lambda, lr float64, span int,
	shadowThreshold float64, shadowWindow int, shadowVars string) {
	if gravityOff {
		cfg.EngineConfig.GravityEnabled = false
	}
	if gravityOn {
		cfg.EngineConfig.GravityEnabled = true
	}
	if lambda > 0 {
		cfg.GravityConfig.Lambda = lambda
	}
	if lr > 0 {
		cfg.GravityConfig.LearningRate = lr
	}
	if span > 0 {
		cfg.GravityConfig.EWMASpan = span
	}
	if shadowThreshold > 0 {
		cfg.ShadowConfig.Threshold = shadowThreshold
	}
	if shadowWindow > 0 {
		cfg.ShadowConfig.WindowSteps = shadowWindow
	}
	if shadowVars != "" {
		cfg.ShadowConfig.CriticalVariables = strings.Split(shadowVars, ",")
	}
}

// loadRegistry reads the persisted rule pools when a DB exists; otherwise
// the run proceeds with an empty registry.
func loadRegistry(dbPath string, logger *zap.Logger) (*rules.Registry, *rules.Store) {
	if dbPath == "" {
		return rules.NewRegistry(), nil
	}
	store, err := rules.NewStore(dbPath)
	if err != nil {
		logger.Warn("rule store unavailable; continuing with empty registry",
			zap.String("db", dbPath), zap.Error(err))
		return rules.NewRegistry(), nil
	}
	registry, err := store.LoadRegistry()
	if err != nil {
		logger.Warn("rule registry load failed; continuing with empty registry", zap.Error(err))
		store.Close()
		return rules.NewRegistry(), nil
	}
	logger.Info("rule registry loaded", zap.Int("rules", registry.Len()))
	return registry, store
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// #endregion wiring

// #region modes

func runForward(cfg batch.Config, registry *rules.Registry, turns int, logger *zap.Logger) int {
	orch, st, err := buildRun(cfg, registry, logger)
	if err != nil {
		logger.Error("setup", zap.Error(err))
		return 1
	}

	results, err := orch.SimulateForward(st, turns, cfg.Mode)
	if err != nil {
		logger.Error("simulation failed", zap.Error(err))
		return 1
	}

	enc := json.NewEncoder(os.Stdout)
	for _, r := range results {
		if err := enc.Encode(r); err != nil {
			logger.Error("encode result", zap.Error(err))
			return 1
		}
	}
	logger.Info("forward run complete",
		zap.String("run_id", st.RunID), zap.Int("turns", len(results)))
	return 0
}

func runRetro(cfg batch.Config, steps int, logger *zap.Logger) int {
	orch, st, err := buildRun(cfg, rules.NewRegistry(), logger)
	if err != nil {
		logger.Error("setup", zap.Error(err))
		return 1
	}

	results, err := orch.Retrodict(st, steps)
	if err != nil {
		logger.Error("retrodiction failed", zap.Error(err))
		return 1
	}

	enc := json.NewEncoder(os.Stdout)
	for _, r := range results {
		if err := enc.Encode(r); err != nil {
			logger.Error("encode result", zap.Error(err))
			return 1
		}
	}
	return 0
}

func runBatch(cfg batch.Config, registry *rules.Registry, scenariosPath, outPath string, logger *zap.Logger) int {
	if scenariosPath == "" {
		fmt.Fprintln(os.Stderr, "batch mode requires --scenarios path/to/scenarios.yaml")
		return 2
	}
	scenarios, err := batch.LoadScenarios(scenariosPath)
	if err != nil {
		logger.Error("load scenarios", zap.Error(err))
		return 1
	}

	runner := batch.NewRunner(cfg, registry, logger)
	results := runner.Run(context.Background(), scenarios)

	if err := batch.WriteResults(outPath, results); err != nil {
		logger.Error("write results", zap.Error(err))
		return 1
	}

	var failures int
	for _, r := range results {
		if r.Error != nil {
			failures++
		}
	}
	logger.Info("batch complete",
		zap.Int("scenarios", len(results)),
		zap.Int("failures", failures),
		zap.String("out", outPath))
	return 0
}

// buildRun constructs one run's state and orchestrator from the config.
func buildRun(cfg batch.Config, registry *rules.Registry, logger *zap.Logger) (*engine.Orchestrator, *world.WorldState, error) {
	st := world.New("")

	var monitor *shadow.Monitor
	if cfg.ShadowConfig.Enabled {
		m, err := shadow.NewMonitor(cfg.ShadowConfig, logger)
		if err != nil {
			return nil, nil, err
		}
		monitor = m
	}

	var corrector gravity.Corrector
	if cfg.EngineConfig.GravityEnabled {
		corrector = gravity.NewEWMACorrector(cfg.GravityConfig)
	}

	orch := engine.New(cfg.EngineConfig, decay.NewEngine(cfg.DecayRate), registry,
		nil, corrector, monitor, logger)
	return orch, st, nil
}

// #endregion modes
