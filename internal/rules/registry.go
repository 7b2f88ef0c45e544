package rules

import (
	"fmt"
	"sort"
	"sync"
)

// #region registry

// Registry is the single tagged-variant rule collection shared across runs.
// All writes are serialized by one mutex so concurrent batches preserve
// log-then-apply ordering.
type Registry struct {
	mu    sync.Mutex
	rules map[string]*Rule
	order []string // insertion order, for deterministic iteration
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{rules: make(map[string]*Rule)}
}

// Add inserts or replaces a rule. Candidate rules default to disabled
// unless explicitly enabled by the caller.
func (r *Registry) Add(rule Rule) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.rules[rule.ID]; !exists {
		r.order = append(r.order, rule.ID)
	}
	c := rule
	r.rules[rule.ID] = &c
}

// Get returns a copy of a rule by ID.
func (r *Registry) Get(id string) (Rule, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rule, ok := r.rules[id]
	if !ok {
		return Rule{}, false
	}
	return *rule, true
}

// All returns copies of every rule in insertion order.
func (r *Registry) All() []Rule {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Rule, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, *r.rules[id])
	}
	return out
}

// Active returns enabled, non-candidate rules in insertion order. This is
// the set the external rule engine consumes.
func (r *Registry) Active() []Rule {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Rule
	for _, id := range r.order {
		rule := r.rules[id]
		if rule.Enabled && rule.Origin != OriginCandidate {
			out = append(out, *rule)
		}
	}
	return out
}

// Candidates returns the candidate pool in insertion order.
func (r *Registry) Candidates() []Rule {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Rule
	for _, id := range r.order {
		if r.rules[id].Origin == OriginCandidate {
			out = append(out, *r.rules[id])
		}
	}
	return out
}

// Len returns the number of rules across all pools.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.rules)
}

// #endregion registry

// #region mutators

// SetThreshold rewrites a rule's threshold in place.
func (r *Registry) SetThreshold(id string, threshold float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rule, ok := r.rules[id]
	if !ok {
		return fmt.Errorf("registry: rule %q not found", id)
	}
	rule.Threshold = threshold
	return nil
}

// SetEnabled flips a rule's enabled flag in place.
func (r *Registry) SetEnabled(id string, enabled bool) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	rule, ok := r.rules[id]
	if !ok {
		return false
	}
	rule.Enabled = enabled
	return ok
}

// AddTrust accumulates a trust contribution onto a rule's trust weight.
func (r *Registry) AddTrust(id string, delta float64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	rule, ok := r.rules[id]
	if !ok {
		return false
	}
	rule.TrustWeight += delta
	return true
}

// promote moves one candidate into the active pool. Caller holds no lock.
func (r *Registry) promote(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	rule, ok := r.rules[id]
	if !ok || rule.Origin != OriginCandidate {
		return false
	}
	rule.Origin = OriginPromoted
	return true
}

// #endregion mutators

// #region sorting

// SortedByVolatility returns copies of all rules sorted descending by the
// given score function; ties break on ID for determinism.
func (r *Registry) SortedByVolatility(score func(Rule) float64) []Rule {
	all := r.All()
	sort.Slice(all, func(i, j int) bool {
		si, sj := score(all[i]), score(all[j])
		if si != sj {
			return si > sj
		}
		return all[i].ID < all[j].ID
	})
	return all
}

// #endregion sorting
