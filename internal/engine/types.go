package engine

import (
	"time"

	"github.com/danielpatrickdp/worldsim/internal/rules"
	"github.com/danielpatrickdp/worldsim/internal/world"
)

// #region mode

// Mode controls how much of the per-turn state is captured in results.
type Mode string

const (
	ModeSummary Mode = "summary"
	ModeFull    Mode = "full"
)

// #endregion mode

// #region turn-result

// TurnResult is the per-turn record returned by forward simulation.
// State and FiredRules are populated only in full mode.
type TurnResult struct {
	Turn            int                `json:"turn"`
	Timestamp       time.Time          `json:"timestamp"`
	Overlays        map[string]float64 `json:"overlays"`
	CausalDeltas    map[string]float64 `json:"causal_deltas"`
	GravityDeltas   map[string]float64 `json:"gravity_deltas"`
	SymbolicTag     string             `json:"symbolic_tag"`
	TrustLabel      string             `json:"trust_label"`
	Confidence      float64            `json:"confidence"`
	ShadowTriggered bool               `json:"shadow_triggered"`
	ShadowVariables []string           `json:"shadow_variables,omitempty"`
	State           *world.WorldState  `json:"state,omitempty"`
	FiredRules      []string           `json:"fired_rules,omitempty"`
}

// RetroResult is one hypothesized prior state from backward simulation.
// Overlay values are raw inversions and may exceed 1; retrodiction is a
// diagnostic approximation, not a state the forward engine would accept.
type RetroResult struct {
	Step     int                `json:"step"`
	Overlays map[string]float64 `json:"overlays"`
	Deltas   map[string]float64 `json:"deltas"`
}

// #endregion turn-result

// #region collaborators

// RuleApplier is the external causal rule engine. It mutates the state
// based on the active rules and reports the per-variable causal deltas it
// produced plus the IDs of the rules that fired.
type RuleApplier interface {
	Apply(st *world.WorldState, active []rules.Rule) (causalDeltas map[string]float64, fired []string)
}

// SymbolicTagger classifies overlay values into a named symbolic regime.
// Must be a pure function of the overlay snapshot.
type SymbolicTagger interface {
	Tag(overlays map[string]float64) string
}

// TrustAnnotator enriches the accumulated turn artifact with a confidence
// score and trust label.
type TrustAnnotator interface {
	Annotate(res *TurnResult, st *world.WorldState) (confidence float64, label string)
}

// #endregion collaborators
