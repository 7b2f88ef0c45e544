package engine

import (
	"math"

	"github.com/danielpatrickdp/worldsim/internal/world"
)

// #region regimes

// Symbolic regimes produced by the default tagger.
const (
	RegimeHopeRising   = "Hope Rising"
	RegimeCollapseRisk = "Collapse Risk"
	RegimeRageSpiral   = "Rage Spiral"
	RegimeExhaustion   = "Exhaustion"
	RegimeStableDrift  = "Stable Drift"
)

// #endregion regimes

// #region default-tagger

// DefaultTagger classifies overlays into a named regime. Precedence runs
// from the most dangerous regime down: collapse, rage, exhaustion, hope.
type DefaultTagger struct{}

// Tag implements SymbolicTagger.
func (DefaultTagger) Tag(overlays map[string]float64) string {
	despair := overlays[world.ChannelDespair]
	rage := overlays[world.ChannelRage]
	fatigue := overlays[world.ChannelFatigue]
	hope := overlays[world.ChannelHope]

	switch {
	case despair > 0.6 && despair >= hope:
		return RegimeCollapseRisk
	case rage > 0.6:
		return RegimeRageSpiral
	case fatigue > 0.7:
		return RegimeExhaustion
	case hope > 0.5 && hope > despair:
		return RegimeHopeRising
	default:
		return RegimeStableDrift
	}
}

// #endregion default-tagger

// #region default-annotator

// DefaultAnnotator derives confidence from the trust overlay, discounted by
// this turn's total delta magnitude: volatile turns are less certain.
type DefaultAnnotator struct{}

// Annotate implements TrustAnnotator.
func (DefaultAnnotator) Annotate(res *TurnResult, st *world.WorldState) (float64, string) {
	trust, _ := st.Overlays.Get(world.ChannelTrust)

	var volatility float64
	for _, d := range res.CausalDeltas {
		volatility += math.Abs(d)
	}
	for _, d := range res.GravityDeltas {
		volatility += math.Abs(d)
	}

	confidence := 0.5 + 0.5*trust - 0.25*volatility
	if confidence < 0 {
		confidence = 0
	}
	if confidence > 1 {
		confidence = 1
	}

	label := "low"
	switch {
	case confidence >= 0.75:
		label = "high"
	case confidence >= 0.4:
		label = "moderate"
	}
	return confidence, label
}

// #endregion default-annotator
