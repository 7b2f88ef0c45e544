package engine

import (
	"github.com/danielpatrickdp/worldsim/internal/rules"
	"github.com/danielpatrickdp/worldsim/internal/world"
)

// #region threshold-applier

// ThresholdApplier is the default rule engine: a rule fires when the mean
// value of its tagged overlay channels reaches its threshold, and its
// numeric effect entries are added onto overlays, capital, or variables.
// Effect keys route by prefix: "capital:" targets an asset, a known overlay
// channel name targets that channel, anything else targets a variable.
type ThresholdApplier struct{}

// Apply implements RuleApplier.
func (ThresholdApplier) Apply(st *world.WorldState, active []rules.Rule) (map[string]float64, []string) {
	causal := make(map[string]float64)
	var fired []string

	for _, rule := range active {
		if !fires(st, rule) {
			continue
		}
		fired = append(fired, rule.ID)
		st.LogEvent("rule %s fired (threshold %.3f)", rule.ID, rule.Threshold)

		for key, raw := range rule.Effect {
			delta, ok := effectFloat(raw)
			if !ok {
				continue
			}
			applyDelta(st, key, delta)
			causal[key] += delta
		}
	}
	if len(fired) > 0 {
		st.Touch()
	}
	return causal, fired
}

// fires evaluates the rule's firing condition: mean of tagged overlay
// channels >= threshold. A rule with no tags never fires.
func fires(st *world.WorldState, rule rules.Rule) bool {
	if len(rule.Tags) == 0 {
		return false
	}
	var sum float64
	for _, tag := range rule.Tags {
		v, _ := st.Overlays.Get(tag)
		sum += v
	}
	return sum/float64(len(rule.Tags)) >= rule.Threshold
}

// applyDelta routes an effect delta onto the right sub-model.
func applyDelta(st *world.WorldState, key string, delta float64) {
	const capitalPrefix = "capital:"
	if len(key) > len(capitalPrefix) && key[:len(capitalPrefix)] == capitalPrefix {
		asset := key[len(capitalPrefix):]
		cur, _ := st.Capital.Get(asset)
		if warn := st.Capital.Set(asset, cur+delta); warn != "" {
			st.LogEvent("%s", warn)
		}
		return
	}
	if cur, ok := st.Overlays.Get(key); ok {
		st.Overlays.Set(key, cur+delta)
		return
	}
	cur, _ := st.Variables.GetFloat(key)
	st.Variables.Set(key, cur+delta)
}

func effectFloat(raw any) (float64, bool) {
	switch x := raw.(type) {
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case int:
		return float64(x), true
	case int64:
		return float64(x), true
	default:
		return 0, false
	}
}

// #endregion threshold-applier
