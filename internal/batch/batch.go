// Package batch drives many independent stepping runs from declarative
// scenario configurations and persists outcomes as newline-delimited
// records. Each scenario owns its own WorldState and shadow monitor; only
// the rule registry is shared across runs.
package batch

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime/debug"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"github.com/danielpatrickdp/worldsim/internal/decay"
	"github.com/danielpatrickdp/worldsim/internal/engine"
	"github.com/danielpatrickdp/worldsim/internal/gravity"
	"github.com/danielpatrickdp/worldsim/internal/rules"
	"github.com/danielpatrickdp/worldsim/internal/shadow"
	"github.com/danielpatrickdp/worldsim/internal/world"
)

// #region types

// Scenario is one declarative run configuration.
type Scenario struct {
	StateOverrides map[string]float64 `yaml:"state_overrides" json:"state_overrides"`
	Turns          int                `yaml:"turns" json:"turns"`
}

// Failure captures a per-scenario error without aborting siblings.
type Failure struct {
	Type    string `json:"type"`
	Message string `json:"message"`
	Stack   string `json:"stack,omitempty"`
}

// Result is one pipeline outcome, tagged with its originating config and
// batch index.
type Result struct {
	BatchIndex int                 `json:"batch_index"`
	Config     Scenario            `json:"config"`
	RunID      string              `json:"run_id"`
	Turns      []engine.TurnResult `json:"turns,omitempty"`
	Error      *Failure            `json:"error,omitempty"`
}

// Config bundles everything a batch needs to construct per-run pipelines.
type Config struct {
	Workers       int
	Mode          engine.Mode
	DecayRate     float64
	EngineConfig  engine.Config
	GravityConfig gravity.Config
	ShadowConfig  shadow.Config
}

// DefaultBatchConfig returns single-worker summary-mode defaults.
func DefaultBatchConfig() Config {
	return Config{
		Workers:       1,
		Mode:          engine.ModeSummary,
		DecayRate:     decay.DefaultRate,
		EngineConfig:  engine.DefaultConfig(),
		GravityConfig: gravity.DefaultConfig(),
		ShadowConfig:  shadow.DefaultConfig(),
	}
}

// #endregion types

// #region loading

// LoadScenarios reads a YAML list of scenarios.
func LoadScenarios(path string) ([]Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenarios: %w", err)
	}
	var scenarios []Scenario
	if err := yaml.Unmarshal(data, &scenarios); err != nil {
		return nil, fmt.Errorf("parse scenarios: %w", err)
	}
	return scenarios, nil
}

// #endregion loading

// #region runner

// Runner executes scenario batches against a shared rule registry.
type Runner struct {
	cfg      Config
	registry *rules.Registry
	log      *zap.Logger
}

// NewRunner wires a batch runner. A nil registry gets an empty one.
func NewRunner(cfg Config, registry *rules.Registry, log *zap.Logger) *Runner {
	if registry == nil {
		registry = rules.NewRegistry()
	}
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	return &Runner{cfg: cfg, registry: registry, log: log}
}

// Run executes every scenario, in parallel up to the worker limit, and
// returns results ordered by batch index. A failing scenario is recorded in
// its own result entry and never aborts the others.
func (r *Runner) Run(ctx context.Context, scenarios []Scenario) []Result {
	results := make([]Result, len(scenarios))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(r.cfg.Workers)

	for i, sc := range scenarios {
		i, sc := i, sc
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				results[i] = Result{BatchIndex: i, Config: sc, Error: &Failure{
					Type:    "context",
					Message: err.Error(),
				}}
				return nil
			}
			results[i] = r.runOne(i, sc)
			return nil
		})
	}
	g.Wait()
	return results
}

// runOne executes a single scenario with its own state, monitor, and
// orchestrator. Panics are recovered into the result entry.
func (r *Runner) runOne(index int, sc Scenario) (res Result) {
	res = Result{BatchIndex: index, Config: sc}

	defer func() {
		if rec := recover(); rec != nil {
			res.Error = &Failure{
				Type:    "panic",
				Message: fmt.Sprint(rec),
				Stack:   string(debug.Stack()),
			}
			r.log.Error("scenario panicked", zap.Int("batch_index", index), zap.Any("panic", rec))
		}
	}()

	st := world.New("")
	res.RunID = st.RunID
	for overlay, value := range sc.StateOverrides {
		st.Overlays.Set(overlay, value)
	}

	var monitor *shadow.Monitor
	if r.cfg.ShadowConfig.Enabled {
		m, err := shadow.NewMonitor(r.cfg.ShadowConfig, r.log)
		if err != nil {
			res.Error = &Failure{Type: "validation", Message: err.Error()}
			return res
		}
		monitor = m
	}

	var corrector gravity.Corrector
	if r.cfg.EngineConfig.GravityEnabled {
		corrector = gravity.NewEWMACorrector(r.cfg.GravityConfig)
	}

	orch := engine.New(
		r.cfg.EngineConfig,
		decay.NewEngine(r.cfg.DecayRate),
		r.registry,
		nil,
		corrector,
		monitor,
		r.log,
	)

	turns, err := orch.SimulateForward(st, sc.Turns, r.cfg.Mode)
	if err != nil {
		res.Error = &Failure{Type: "simulation", Message: err.Error()}
		return res
	}
	res.Turns = turns
	return res
}

// #endregion runner

// #region output

// WriteResults persists results as newline-delimited JSON via an atomic
// temp-file-and-rename write.
func WriteResults(path string, results []Result) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".batch-*.ndjson")
	if err != nil {
		return fmt.Errorf("create temp output: %w", err)
	}
	defer os.Remove(tmp.Name())

	enc := json.NewEncoder(tmp)
	for _, res := range results {
		if err := enc.Encode(res); err != nil {
			tmp.Close()
			return fmt.Errorf("encode result %d: %w", res.BatchIndex, err)
		}
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp output: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("move output into place: %w", err)
	}
	return nil
}

// #endregion output
