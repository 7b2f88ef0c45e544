// Package engine sequences the per-turn pipeline: decay, rule application,
// gravity correction, shadow monitoring, symbolic tagging, and trust
// annotation, for forward multi-turn runs and backward retrodiction.
package engine

import (
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/danielpatrickdp/worldsim/internal/decay"
	"github.com/danielpatrickdp/worldsim/internal/gravity"
	"github.com/danielpatrickdp/worldsim/internal/rules"
	"github.com/danielpatrickdp/worldsim/internal/shadow"
	"github.com/danielpatrickdp/worldsim/internal/world"
)

// #region config

// Config controls which optional steps run. Gravity is disabled by this one
// flag without altering any other step.
type Config struct {
	GravityEnabled bool
	DecayVariables bool
}

// DefaultConfig enables gravity and leaves variable decay to explicit
// registration.
func DefaultConfig() Config {
	return Config{GravityEnabled: true}
}

// #endregion config

// #region orchestrator

// Orchestrator is the single-threaded, synchronous turn stepper for one
// run. State mutation is strictly sequential; the shadow monitor and
// gravity corrector depend on ordered delta history.
type Orchestrator struct {
	cfg       Config
	decay     *decay.Engine
	registry  *rules.Registry
	applier   RuleApplier
	corrector gravity.Corrector
	monitor   *shadow.Monitor
	tagger    SymbolicTagger
	annotator TrustAnnotator
	log       *zap.Logger
}

// New wires an orchestrator. Nil collaborators get defaults; a nil monitor
// disables the shadow check with a logged warning, the run continues.
func New(
	cfg Config,
	dec *decay.Engine,
	registry *rules.Registry,
	applier RuleApplier,
	corrector gravity.Corrector,
	monitor *shadow.Monitor,
	log *zap.Logger,
) *Orchestrator {
	if log == nil {
		log = zap.NewNop()
	}
	if dec == nil {
		dec = decay.NewEngine(decay.DefaultRate)
	}
	if registry == nil {
		registry = rules.NewRegistry()
	}
	if applier == nil {
		applier = ThresholdApplier{}
	}
	if cfg.GravityEnabled && corrector == nil {
		corrector = gravity.NewEWMACorrector(gravity.DefaultConfig())
	}
	if monitor == nil {
		log.Warn("shadow monitor unavailable; variance oversight disabled for this run")
	}
	return &Orchestrator{
		cfg:       cfg,
		decay:     dec,
		registry:  registry,
		applier:   applier,
		corrector: corrector,
		monitor:   monitor,
		tagger:    DefaultTagger{},
		annotator: DefaultAnnotator{},
		log:       log,
	}
}

// SetTagger replaces the symbolic tagger.
func (o *Orchestrator) SetTagger(t SymbolicTagger) {
	if t != nil {
		o.tagger = t
	}
}

// SetAnnotator replaces the trust annotator.
func (o *Orchestrator) SetAnnotator(a TrustAnnotator) {
	if a != nil {
		o.annotator = a
	}
}

// #endregion orchestrator

// #region forward

// SimulateForward advances the state turns times, mutating it in place, and
// returns the ordered per-turn records. The state is validated once at the
// boundary; no turn executes on an invalid state.
func (o *Orchestrator) SimulateForward(st *world.WorldState, turns int, mode Mode) ([]TurnResult, error) {
	if turns <= 0 {
		return nil, fmt.Errorf("engine: turns must be positive, got %d", turns)
	}
	if err := st.Validate(); err != nil {
		return nil, fmt.Errorf("engine: %w", err)
	}

	results := make([]TurnResult, 0, turns)
	for i := 0; i < turns; i++ {
		results = append(results, o.step(st, mode))
	}
	return results, nil
}

// step runs the strictly ordered per-turn pipeline.
func (o *Orchestrator) step(st *world.WorldState, mode Mode) TurnResult {
	// 1. Decay
	o.decay.ApplyToOverlays(st)
	if o.cfg.DecayVariables {
		o.decay.ApplyToVariables(st)
	}

	// 2. Rule application
	causal, fired := o.applier.Apply(st, o.registry.Active())

	// 3. Gravity correction; pass-through when disabled
	gravityDeltas := make(map[string]float64, len(causal))
	if o.cfg.GravityEnabled && o.corrector != nil {
		for _, variable := range sortedKeys(causal) {
			g := o.corrector.Correct(variable, causal[variable])
			applyDelta(st, variable, g)
			gravityDeltas[variable] = g
		}
	}

	// 4. Shadow monitor; a trigger is surfaced, never aborts the run
	var triggered bool
	var problems []string
	if o.monitor != nil {
		o.monitor.RecordStep(causal, gravityDeltas, st.Turn)
		triggered, problems = o.monitor.CheckTrigger()
		if triggered {
			st.LogEvent("shadow trigger: gravity dominates variance for %v", problems)
			o.log.Warn("shadow model trigger",
				zap.String("run_id", st.RunID),
				zap.Int("turn", st.Turn),
				zap.Strings("variables", problems))
		}
	}

	// 5. Symbolic tagging
	tag := o.tagger.Tag(st.Overlays.Snapshot())

	// 6 + 7. Trust annotation and result assembly
	res := TurnResult{
		Turn:            st.Turn,
		Timestamp:       time.Now().UTC(),
		Overlays:        st.Overlays.Snapshot(),
		CausalDeltas:    causal,
		GravityDeltas:   gravityDeltas,
		SymbolicTag:     tag,
		ShadowTriggered: triggered,
		ShadowVariables: problems,
	}
	res.Confidence, res.TrustLabel = o.annotator.Annotate(&res, st)

	if mode == ModeFull {
		res.State = st.Clone()
		res.FiredRules = fired
	}

	st.LogEvent("turn %d: regime=%s trust=%s fired=%d", st.Turn, tag, res.TrustLabel, len(fired))
	st.AdvanceTurn()
	return res
}

// #endregion forward

// #region retrodiction

// Retrodict hypothesizes prior states by inverting the decay function on
// every overlay, one step at a time, without consulting the rule engine.
// It is a linear approximation of the forward decay, not an exact inverse,
// and does not mutate the given state.
func (o *Orchestrator) Retrodict(st *world.WorldState, steps int) ([]RetroResult, error) {
	if steps <= 0 {
		return nil, fmt.Errorf("engine: steps must be positive, got %d", steps)
	}
	if err := st.Validate(); err != nil {
		return nil, fmt.Errorf("engine: %w", err)
	}

	rate := o.decay.Rate()
	current := st.Overlays.Snapshot()
	results := make([]RetroResult, 0, steps)

	for i := 1; i <= steps; i++ {
		prior := make(map[string]float64, len(current))
		deltas := make(map[string]float64, len(current))
		for name, v := range current {
			p := decay.Invert(v, rate)
			prior[name] = p
			deltas[name] = p - v
		}
		results = append(results, RetroResult{Step: i, Overlays: prior, Deltas: deltas})
		current = prior
	}
	return results, nil
}

// #endregion retrodiction

// #region helpers

func sortedKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// #endregion helpers
