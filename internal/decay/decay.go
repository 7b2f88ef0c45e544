// Package decay implements the deterministic per-turn erosion of overlay and
// variable magnitudes, and its linear inversion used for retrodiction.
package decay

import "github.com/danielpatrickdp/worldsim/internal/world"

// #region decay-fn

// DefaultRate applies when no rate is configured anywhere.
const DefaultRate = 0.01

// Decay erodes a value by rate, flooring at zero.
func Decay(v, rate float64) float64 {
	out := v - rate
	if out < 0 {
		return 0
	}
	return out
}

// Invert hypothesizes the prior value before one decay step. This is a
// linear approximation, not an exact inverse of Decay.
func Invert(v, rate float64) float64 {
	return v * (1 + rate)
}

// #endregion decay-fn

// #region engine

// Engine applies decay to a state's overlays and to explicitly registered
// variables, using a single configured rate unless a call-site override is
// supplied.
type Engine struct {
	rate       float64
	registered []string
}

// NewEngine creates a decay engine. A zero or negative rate falls back to
// DefaultRate.
func NewEngine(rate float64, registeredVars ...string) *Engine {
	if rate <= 0 {
		rate = DefaultRate
	}
	return &Engine{rate: rate, registered: registeredVars}
}

// Rate returns the configured decay rate.
func (e *Engine) Rate() float64 {
	return e.rate
}

// Register adds variables to the per-turn decay set.
func (e *Engine) Register(vars ...string) {
	e.registered = append(e.registered, vars...)
}

// resolve picks the call-site override when given, else the configured rate.
func (e *Engine) resolve(override []float64) float64 {
	if len(override) > 0 && override[0] > 0 {
		return override[0]
	}
	return e.rate
}

// ApplyToOverlays decays every core overlay channel in place, appending one
// audit line per channel with the before/after values.
func (e *Engine) ApplyToOverlays(st *world.WorldState, override ...float64) {
	rate := e.resolve(override)
	for _, name := range world.CoreChannels() {
		before, _ := st.Overlays.Get(name)
		after := Decay(before, rate)
		st.Overlays.Set(name, after)
		st.LogEvent("decay overlay %s: %.4f -> %.4f", name, before, after)
	}
	st.Touch()
}

// ApplyToVariables decays every registered numeric variable in place.
// Non-numeric or missing variables are skipped.
func (e *Engine) ApplyToVariables(st *world.WorldState, override ...float64) {
	rate := e.resolve(override)
	for _, name := range e.registered {
		before, ok := st.Variables.GetFloat(name)
		if !ok {
			continue
		}
		after := Decay(before, rate)
		st.Variables.Set(name, after)
		st.LogEvent("decay variable %s: %.4f -> %.4f", name, before, after)
	}
	st.Touch()
}

// #endregion engine
