package rules

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// #region schema
const schema = `
CREATE TABLE IF NOT EXISTS rules (
	rule_id       TEXT PRIMARY KEY,
	tags_json     TEXT NOT NULL,
	threshold     REAL NOT NULL,
	trust_weight  REAL NOT NULL,
	enabled       INTEGER NOT NULL,
	origin        TEXT NOT NULL,
	effect_json   TEXT,
	position      INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS mutation_log (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	rule_id       TEXT NOT NULL,
	from_value    REAL NOT NULL,
	to_value      REAL NOT NULL,
	dry_run       INTEGER NOT NULL,
	created_at    TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS score_log (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	rule_id       TEXT NOT NULL,
	score         REAL NOT NULL,
	created_at    TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS action_log (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	rule_id       TEXT NOT NULL,
	action        TEXT NOT NULL,
	dry_run       INTEGER NOT NULL,
	created_at    TEXT NOT NULL
);
`

// #endregion schema

// #region store-struct

// Store persists rule pools and the append-only mutation/score/action logs
// in SQLite. It implements AuditTrail.
type Store struct {
	db *sql.DB
}

// NewStore opens a SQLite database and runs migrations.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return nil, fmt.Errorf("pragma: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying *sql.DB for inspection tooling.
func (s *Store) DB() *sql.DB {
	return s.db
}

// #endregion store-struct

// #region registry-persistence

// SaveRegistry replaces the persisted rule set with the registry contents.
func (s *Store) SaveRegistry(reg *Registry) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM rules`); err != nil {
		return fmt.Errorf("clear rules: %w", err)
	}

	for i, rule := range reg.All() {
		tagsJSON, err := json.Marshal(rule.Tags)
		if err != nil {
			return fmt.Errorf("marshal tags for %s: %w", rule.ID, err)
		}
		var effectJSON any
		if len(rule.Effect) > 0 {
			b, err := json.Marshal(rule.Effect)
			if err != nil {
				return fmt.Errorf("marshal effect for %s: %w", rule.ID, err)
			}
			effectJSON = string(b)
		}
		_, err = tx.Exec(
			`INSERT INTO rules (rule_id, tags_json, threshold, trust_weight, enabled, origin, effect_json, position)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			rule.ID, string(tagsJSON), rule.Threshold, rule.TrustWeight,
			boolToInt(rule.Enabled), string(rule.Origin), effectJSON, i,
		)
		if err != nil {
			return fmt.Errorf("insert rule %s: %w", rule.ID, err)
		}
	}
	return tx.Commit()
}

// LoadRegistry reads the persisted rule set into a fresh registry.
func (s *Store) LoadRegistry() (*Registry, error) {
	rows, err := s.db.Query(
		`SELECT rule_id, tags_json, threshold, trust_weight, enabled, origin, effect_json
		 FROM rules ORDER BY position ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("query rules: %w", err)
	}
	defer rows.Close()

	reg := NewRegistry()
	for rows.Next() {
		var rule Rule
		var tagsJSON, origin string
		var enabled int
		var effectJSON sql.NullString

		if err := rows.Scan(&rule.ID, &tagsJSON, &rule.Threshold, &rule.TrustWeight, &enabled, &origin, &effectJSON); err != nil {
			return nil, fmt.Errorf("scan rule: %w", err)
		}
		if err := json.Unmarshal([]byte(tagsJSON), &rule.Tags); err != nil {
			return nil, fmt.Errorf("unmarshal tags for %s: %w", rule.ID, err)
		}
		if effectJSON.Valid {
			if err := json.Unmarshal([]byte(effectJSON.String), &rule.Effect); err != nil {
				return nil, fmt.Errorf("unmarshal effect for %s: %w", rule.ID, err)
			}
		}
		rule.Enabled = enabled != 0
		rule.Origin = Origin(origin)
		reg.Add(rule)
	}
	return reg, rows.Err()
}

// #endregion registry-persistence

// #region audit-trail-impl

// AppendMutation writes one mutation record.
func (s *Store) AppendMutation(m Mutation) error {
	_, err := s.db.Exec(
		`INSERT INTO mutation_log (rule_id, from_value, to_value, dry_run, created_at) VALUES (?, ?, ?, ?, ?)`,
		m.RuleID, m.From, m.To, boolToInt(m.DryRun), m.At.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("append mutation: %w", err)
	}
	return nil
}

// AppendScore writes one score record.
func (s *Store) AppendScore(rec ScoreRecord) error {
	_, err := s.db.Exec(
		`INSERT INTO score_log (rule_id, score, created_at) VALUES (?, ?, ?)`,
		rec.RuleID, rec.Score, rec.At.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("append score: %w", err)
	}
	return nil
}

// AppendAction writes one lifecycle action record.
func (s *Store) AppendAction(rec ActionRecord) error {
	_, err := s.db.Exec(
		`INSERT INTO action_log (rule_id, action, dry_run, created_at) VALUES (?, ?, ?, ?)`,
		rec.RuleID, rec.Action, boolToInt(rec.DryRun), rec.At.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("append action: %w", err)
	}
	return nil
}

// #endregion audit-trail-impl

// #region listing

// ListMutations returns the most recent mutation records.
func (s *Store) ListMutations(limit int) ([]Mutation, error) {
	rows, err := s.db.Query(
		`SELECT rule_id, from_value, to_value, dry_run, created_at
		 FROM mutation_log ORDER BY id DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list mutations: %w", err)
	}
	defer rows.Close()

	var out []Mutation
	for rows.Next() {
		var m Mutation
		var dryRun int
		var createdStr string
		if err := rows.Scan(&m.RuleID, &m.From, &m.To, &dryRun, &createdStr); err != nil {
			return nil, fmt.Errorf("scan mutation: %w", err)
		}
		m.DryRun = dryRun != 0
		m.At, _ = time.Parse(time.RFC3339Nano, createdStr)
		out = append(out, m)
	}
	return out, rows.Err()
}

// ListActions returns the most recent lifecycle action records.
func (s *Store) ListActions(limit int) ([]ActionRecord, error) {
	rows, err := s.db.Query(
		`SELECT rule_id, action, dry_run, created_at
		 FROM action_log ORDER BY id DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list actions: %w", err)
	}
	defer rows.Close()

	var out []ActionRecord
	for rows.Next() {
		var rec ActionRecord
		var dryRun int
		var createdStr string
		if err := rows.Scan(&rec.RuleID, &rec.Action, &dryRun, &createdStr); err != nil {
			return nil, fmt.Errorf("scan action: %w", err)
		}
		rec.DryRun = dryRun != 0
		rec.At, _ = time.Parse(time.RFC3339Nano, createdStr)
		out = append(out, rec)
	}
	return out, rows.Err()
}

// ListScores returns the most recent score records.
func (s *Store) ListScores(limit int) ([]ScoreRecord, error) {
	rows, err := s.db.Query(
		`SELECT rule_id, score, created_at FROM score_log ORDER BY id DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list scores: %w", err)
	}
	defer rows.Close()

	var out []ScoreRecord
	for rows.Next() {
		var rec ScoreRecord
		var createdStr string
		if err := rows.Scan(&rec.RuleID, &rec.Score, &createdStr); err != nil {
			return nil, fmt.Errorf("scan score: %w", err)
		}
		rec.At, _ = time.Parse(time.RFC3339Nano, createdStr)
		out = append(out, rec)
	}
	return out, rows.Err()
}

// #endregion listing

// #region helpers

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// #endregion helpers
