package rules

import (
	"math"
	"math/rand"
	"time"

	"go.uber.org/zap"
)

// #region engine

// VolatilityScorer ranks a rule for mutation priority. The score itself is
// computed externally (e.g. from trace variance); the engine only orders by
// it.
type VolatilityScorer func(Rule) float64

// Engine adapts rule parameters from volatility and trust signals. It runs
// on its own cadence (end of batch or on demand), independent of per-turn
// stepping. Every action is logged to the audit trail before it is applied.
type Engine struct {
	reg    *Registry
	scorer VolatilityScorer
	trail  AuditTrail
	rng    *rand.Rand
	log    *zap.Logger
}

// NewEngine wires a mutation engine. A nil scorer ranks everything equal, a
// nil trail falls back to an in-memory one, and a nil rng seeds from the
// clock.
func NewEngine(reg *Registry, scorer VolatilityScorer, trail AuditTrail, log *zap.Logger) *Engine {
	if scorer == nil {
		scorer = func(Rule) float64 { return 0 }
	}
	if trail == nil {
		trail = &MemoryTrail{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Engine{
		reg:    reg,
		scorer: scorer,
		trail:  trail,
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
		log:    log,
	}
}

// SetRand replaces the mutation RNG, for deterministic tests.
func (e *Engine) SetRand(rng *rand.Rand) {
	e.rng = rng
}

// #endregion engine

// #region propose-mutations

// ProposeMutations ranks all rules by volatility, takes the top N, and
// mutates each threshold by a uniform random factor in [0.8, 1.2], clamped
// into [0,1] and rounded to 3 decimals. Rules whose threshold is NaN or Inf
// are skipped with a log line. Each mutation is appended to the audit trail
// before the registry is touched.
func (e *Engine) ProposeMutations(topN int) []Mutation {
	ranked := e.reg.SortedByVolatility(e.scorer)
	if topN < len(ranked) {
		ranked = ranked[:topN]
	}

	var applied []Mutation
	for _, rule := range ranked {
		m, ok := e.mutate(rule, false)
		if !ok {
			continue
		}
		applied = append(applied, m)
	}
	return applied
}

// ProposeMutationForRule mutates a single rule. With dryRun the proposal is
// logged but the live rule set is untouched.
func (e *Engine) ProposeMutationForRule(id string, dryRun bool) (Mutation, bool) {
	rule, ok := e.reg.Get(id)
	if !ok {
		e.log.Warn("mutation proposed for unknown rule", zap.String("rule_id", id))
		return Mutation{}, false
	}
	return e.mutate(rule, dryRun)
}

// mutate performs one threshold rewrite: log first, then apply.
func (e *Engine) mutate(rule Rule, dryRun bool) (Mutation, bool) {
	if math.IsNaN(rule.Threshold) || math.IsInf(rule.Threshold, 0) {
		e.log.Warn("skipping rule with non-numeric threshold",
			zap.String("rule_id", rule.ID), zap.Float64("threshold", rule.Threshold))
		return Mutation{}, false
	}

	factor := 0.8 + e.rng.Float64()*0.4
	next := rule.Threshold * factor
	if next < 0 {
		next = 0
	}
	if next > 1 {
		next = 1
	}
	next = math.Round(next*1000) / 1000

	m := Mutation{
		RuleID: rule.ID,
		From:   rule.Threshold,
		To:     next,
		DryRun: dryRun,
		At:     time.Now().UTC(),
	}
	if err := e.trail.AppendMutation(m); err != nil {
		e.log.Error("audit trail append failed; mutation not applied",
			zap.String("rule_id", rule.ID), zap.Error(err))
		return Mutation{}, false
	}
	e.trail.AppendAction(ActionRecord{RuleID: rule.ID, Action: "mutate", DryRun: dryRun, At: m.At})

	if !dryRun {
		if err := e.reg.SetThreshold(rule.ID, next); err != nil {
			e.log.Warn("rule vanished between log and apply", zap.String("rule_id", rule.ID))
			return Mutation{}, false
		}
	}
	return m, true
}

// #endregion propose-mutations

// #region score

// ScoreRule assigns a scalar trust contribution for one rule against an
// observed outcome. Baseline: the forecast's own confidence. The score is
// logged; trust weight updates consume the score log on their own cadence.
func (e *Engine) ScoreRule(id string, forecast Forecast, outcome map[string]float64) float64 {
	score := forecast.Confidence
	now := time.Now().UTC()
	e.trail.AppendScore(ScoreRecord{RuleID: id, Score: score, At: now})
	e.trail.AppendAction(ActionRecord{RuleID: id, Action: "score", At: now})
	return score
}

// #endregion score

// #region lifecycle

// Deprecate soft-disables a rule in place (never deleted). Reports whether
// the rule was found.
func (e *Engine) Deprecate(id string, dryRun bool) bool {
	e.trail.AppendAction(ActionRecord{RuleID: id, Action: "deprecate", DryRun: dryRun, At: time.Now().UTC()})
	if dryRun {
		_, ok := e.reg.Get(id)
		return ok
	}
	return e.reg.SetEnabled(id, false)
}

// PromoteCandidates moves every enabled candidate into the active pool and
// returns the promoted IDs.
func (e *Engine) PromoteCandidates() []string {
	var promoted []string
	for _, c := range e.reg.Candidates() {
		if !c.Enabled {
			continue
		}
		e.trail.AppendAction(ActionRecord{RuleID: c.ID, Action: "promote", At: time.Now().UTC()})
		if e.reg.promote(c.ID) {
			promoted = append(promoted, c.ID)
		}
	}
	return promoted
}

// #endregion lifecycle
