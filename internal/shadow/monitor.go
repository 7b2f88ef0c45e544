// Package shadow implements the rolling-window variance-decomposition
// safety monitor. It watches the causal and gravity delta streams for a set
// of critical variables and signals when the gravity correction is
// explaining an unsafe share of outcome variance.
package shadow

import (
	"fmt"

	"go.uber.org/zap"
)

// #region config

// Config controls the monitor.
type Config struct {
	Enabled           bool
	Threshold         float64  // variance-explained trigger, exclusive (0,1)
	WindowSteps       int      // rolling window capacity, > 0
	CriticalVariables []string // variables under watch
}

// DefaultConfig returns the standard monitor settings.
func DefaultConfig() Config {
	return Config{
		Enabled:     true,
		Threshold:   0.6,
		WindowSteps: 10,
	}
}

// #endregion config

// #region monitor

// entry is one recorded (causal, gravity) delta pair, filtered to critical
// variables.
type entry struct {
	step    int
	causal  map[string]float64
	gravity map[string]float64
}

// Monitor holds the fixed-capacity FIFO window. It is in-memory only and
// rebuilt fresh at construction; one instance belongs to one run.
type Monitor struct {
	cfg      Config
	critical map[string]bool
	window   []entry
	filled   bool // window reached capacity at least once
	log      *zap.Logger
}

// NewMonitor validates the configuration and builds an empty monitor.
// Threshold must lie strictly inside (0,1) and WindowSteps must be positive.
// An empty critical-variable list is permitted but logged as a warning.
func NewMonitor(cfg Config, log *zap.Logger) (*Monitor, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.Threshold <= 0 || cfg.Threshold >= 1 {
		return nil, fmt.Errorf("shadow: threshold %v not in (0,1)", cfg.Threshold)
	}
	if cfg.WindowSteps <= 0 {
		return nil, fmt.Errorf("shadow: window_steps %d must be positive", cfg.WindowSteps)
	}
	if len(cfg.CriticalVariables) == 0 {
		log.Warn("shadow monitor constructed with no critical variables; it will never trigger")
	}

	critical := make(map[string]bool, len(cfg.CriticalVariables))
	for _, v := range cfg.CriticalVariables {
		critical[v] = true
	}
	return &Monitor{
		cfg:      cfg,
		critical: critical,
		window:   make([]entry, 0, cfg.WindowSteps),
		log:      log,
	}, nil
}

// #endregion monitor

// #region record

// RecordStep pushes this turn's delta pair into the window, keeping only
// critical variables. The oldest entry is evicted once capacity is reached.
func (m *Monitor) RecordStep(causal, gravity map[string]float64, step int) {
	e := entry{
		step:    step,
		causal:  filter(causal, m.critical),
		gravity: filter(gravity, m.critical),
	}
	m.window = append(m.window, e)
	if len(m.window) > m.cfg.WindowSteps {
		m.window = m.window[1:]
	}
	if len(m.window) == m.cfg.WindowSteps {
		m.filled = true
	}
}

func filter(deltas map[string]float64, critical map[string]bool) map[string]float64 {
	out := make(map[string]float64, len(critical))
	for name, v := range deltas {
		if critical[name] {
			out[name] = v
		}
	}
	return out
}

// #endregion record

// #region variance

// VarianceExplained returns sumsq(gravity) / (sumsq(gravity) + sumsq(causal))
// over the current window for one critical variable. Returns 0.0 for an
// empty window or all-zero sums, and the sentinel -1.0 when the variable is
// not under watch (a caller-configuration mismatch, not a fault).
func (m *Monitor) VarianceExplained(variable string) float64 {
	if !m.critical[variable] {
		return -1.0
	}
	if len(m.window) == 0 {
		return 0.0
	}
	var causalSq, gravitySq float64
	for _, e := range m.window {
		c := e.causal[variable]
		g := e.gravity[variable]
		causalSq += c * c
		gravitySq += g * g
	}
	total := causalSq + gravitySq
	if total == 0 {
		return 0.0
	}
	return gravitySq / total
}

// #endregion variance

// #region trigger

// CheckTrigger reports whether any critical variable's variance explained
// strictly exceeds the threshold, with the offending variables in
// critical-list order. It stays silent until the window has filled to
// capacity at least once; values exactly at the threshold do not trigger.
func (m *Monitor) CheckTrigger() (bool, []string) {
	if !m.filled {
		return false, nil
	}
	var problems []string
	for _, variable := range m.cfg.CriticalVariables {
		if m.VarianceExplained(variable) > m.cfg.Threshold {
			problems = append(problems, variable)
		}
	}
	return len(problems) > 0, problems
}

// WindowLen returns the current number of recorded entries.
func (m *Monitor) WindowLen() int {
	return len(m.window)
}

// #endregion trigger
