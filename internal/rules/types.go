// Package rules owns the causal-rule model and its evolution: the tagged
// pool registry, the mutation/autoevolution engine, and the append-only
// audit trail that records every mutation, score, and lifecycle action.
package rules

import "time"

// #region origin

// Origin discriminates how a rule entered the pool.
type Origin string

const (
	OriginStatic      Origin = "static"      // hand-authored
	OriginFingerprint Origin = "fingerprint" // learned from past traces
	OriginCandidate   Origin = "candidate"   // proposed, disabled by default
	OriginPromoted    Origin = "promoted"    // candidate accepted into the active pool
)

// #endregion origin

// #region rule

// Rule is a named causal unit. Threshold drives its firing condition;
// TrustWeight accumulates regret/reward over time. Effect metadata is
// interpreted by the external rule engine, not here.
type Rule struct {
	ID          string         `json:"id"`
	Tags        []string       `json:"tags"`
	Threshold   float64        `json:"threshold"`
	TrustWeight float64        `json:"trust_weight"`
	Enabled     bool           `json:"enabled"`
	Origin      Origin         `json:"origin"`
	Effect      map[string]any `json:"effect,omitempty"`
}

// #endregion rule

// #region audit-records

// Mutation is one immutable threshold rewrite, logged before application.
type Mutation struct {
	RuleID string    `json:"rule_id"`
	From   float64   `json:"from"`
	To     float64   `json:"to"`
	DryRun bool      `json:"dry_run"`
	At     time.Time `json:"at"`
}

// ScoreRecord is one trust contribution assigned to a rule.
type ScoreRecord struct {
	RuleID string    `json:"rule_id"`
	Score  float64   `json:"score"`
	At     time.Time `json:"at"`
}

// ActionRecord is one lifecycle action (mutate / score / deprecate /
// promote) for audit and replay.
type ActionRecord struct {
	RuleID string    `json:"rule_id"`
	Action string    `json:"action"`
	DryRun bool      `json:"dry_run"`
	At     time.Time `json:"at"`
}

// #endregion audit-records

// #region forecast

// Forecast is the narrow slice of a turn artifact the scoring path consumes.
type Forecast struct {
	SymbolicTag string  `json:"symbolic_tag"`
	TrustLabel  string  `json:"trust_label"`
	Confidence  float64 `json:"confidence"`
}

// #endregion forecast

// #region audit-trail

// AuditTrail receives append-only records of every engine action. The
// caller decides how (or whether) to persist them; MemoryTrail and the
// sqlite Store both implement it.
type AuditTrail interface {
	AppendMutation(Mutation) error
	AppendScore(ScoreRecord) error
	AppendAction(ActionRecord) error
}

// MemoryTrail is the in-memory default audit trail.
type MemoryTrail struct {
	Mutations []Mutation
	Scores    []ScoreRecord
	Actions   []ActionRecord
}

// AppendMutation records a mutation.
func (m *MemoryTrail) AppendMutation(rec Mutation) error {
	m.Mutations = append(m.Mutations, rec)
	return nil
}

// AppendScore records a score.
func (m *MemoryTrail) AppendScore(rec ScoreRecord) error {
	m.Scores = append(m.Scores, rec)
	return nil
}

// AppendAction records a lifecycle action.
func (m *MemoryTrail) AppendAction(rec ActionRecord) error {
	m.Actions = append(m.Actions, rec)
	return nil
}

// #endregion audit-trail
