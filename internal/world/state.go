// Package world defines the mutable per-turn snapshot of the simulation:
// symbolic overlays, capital exposure, free-form variables, and the
// append-only event log.
package world

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// #region world-state

// WorldState is the unit of simulation. It is owned exclusively by the run
// that created it; Clone produces a fully independent deep copy.
type WorldState struct {
	Turn      int               `json:"turn"`
	RunID     string            `json:"run_id"`
	Timestamp time.Time         `json:"timestamp"`
	Overlays  *SymbolicOverlays `json:"overlays"`
	Capital   *CapitalExposure  `json:"capital"`
	Variables Variables         `json:"variables"`
	EventLog  []string          `json:"event_log"`
	Meta      map[string]any    `json:"metadata,omitempty"`
}

// New creates a fresh valid state at turn 0. An empty runID gets a uuid.
func New(runID string) *WorldState {
	if runID == "" {
		runID = uuid.New().String()
	}
	return &WorldState{
		Turn:      0,
		RunID:     runID,
		Timestamp: time.Now().UTC(),
		Overlays:  NewOverlays(),
		Capital:   NewCapital(),
		Variables: NewVariables(),
		EventLog:  []string{},
		Meta:      make(map[string]any),
	}
}

// #endregion world-state

// #region validate

// Validate checks the state invariants: non-negative turn, non-empty run ID,
// and independently valid sub-models.
func (s *WorldState) Validate() error {
	if s.Turn < 0 {
		return fmt.Errorf("state: turn %d is negative", s.Turn)
	}
	if s.RunID == "" {
		return fmt.Errorf("state: run_id is empty")
	}
	if s.Overlays == nil || s.Capital == nil || s.Variables == nil {
		return fmt.Errorf("state: missing sub-model")
	}
	if err := s.Overlays.Validate(); err != nil {
		return fmt.Errorf("state: %w", err)
	}
	if err := s.Capital.Validate(); err != nil {
		return fmt.Errorf("state: %w", err)
	}
	return nil
}

// #endregion validate

// #region clone

// Clone deep-copies the state. No mutable sub-structure is shared, and the
// clone keeps the original's Timestamp.
func (s *WorldState) Clone() *WorldState {
	c := &WorldState{
		Turn:      s.Turn,
		RunID:     s.RunID,
		Timestamp: s.Timestamp,
		Overlays:  s.Overlays.Clone(),
		Capital:   s.Capital.Clone(),
		Variables: s.Variables.Clone(),
		EventLog:  append([]string(nil), s.EventLog...),
	}
	if s.Meta != nil {
		c.Meta = make(map[string]any, len(s.Meta))
		for k, v := range s.Meta {
			c.Meta[k] = deepCopyValue(v)
		}
	}
	return c
}

// #endregion clone

// #region mutators

// LogEvent appends a human-readable audit line to the event log.
func (s *WorldState) LogEvent(format string, args ...any) {
	s.EventLog = append(s.EventLog, fmt.Sprintf(format, args...))
}

// Touch records the time of the last mutation.
func (s *WorldState) Touch() {
	s.Timestamp = time.Now().UTC()
}

// AdvanceTurn increments the turn counter and touches the timestamp.
func (s *WorldState) AdvanceTurn() {
	s.Turn++
	s.Touch()
}

// #endregion mutators
