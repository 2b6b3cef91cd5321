// Package storage provides the embedded SQLite store for plans, tracked
// recommendations, events, snapshots, and feedback.
//
// The deployment model is single-process and single-writer: database/sql
// serializes access to the one connection, and every mutating method is a
// single statement or transaction, so callers never observe partial
// writes. Events are append-only — the package deliberately exposes no
// update or delete for them.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// Store wraps the SQLite database handle.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

// Open opens or creates the database at path and ensures the schema
// exists. Use ":memory:" for an ephemeral store.
func Open(path string, logger *slog.Logger) (*Store, error) {
	dsn := path
	if path != ":memory:" {
		abs, err := filepath.Abs(path)
		if err != nil {
			return nil, fmt.Errorf("storage: resolve db path: %w", err)
		}
		if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
			return nil, fmt.Errorf("storage: ensure db dir: %w", err)
		}
		dsn = abs
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("storage: open db: %w", err)
	}
	// One writer at a time; SQLite rejects concurrent write connections.
	db.SetMaxOpenConns(1)

	s := &Store{db: db, logger: logger}
	if err := s.ensureSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks connectivity to the database.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) ensureSchema() error {
	schema := `
CREATE TABLE IF NOT EXISTS plans (
	id TEXT PRIMARY KEY,
	tenant_id TEXT NOT NULL,
	name TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	status TEXT NOT NULL,
	start_date TEXT,
	target_date TEXT,
	completed_date TEXT,
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL,
	created_by TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_plans_tenant ON plans(tenant_id);

CREATE TABLE IF NOT EXISTS plan_recommendations (
	id TEXT PRIMARY KEY,
	plan_id TEXT NOT NULL REFERENCES plans(id),
	recommendation_id TEXT NOT NULL,
	metric TEXT NOT NULL,
	scenario TEXT NOT NULL,
	recommendation TEXT NOT NULL,
	resources TEXT NOT NULL DEFAULT '',
	priority INTEGER,
	added_at TEXT NOT NULL,
	started_at TEXT,
	completed_at TEXT
);

CREATE INDEX IF NOT EXISTS idx_plan_recs_plan ON plan_recommendations(plan_id);

CREATE TABLE IF NOT EXISTS recommendation_events (
	id TEXT PRIMARY KEY,
	plan_recommendation_id TEXT NOT NULL REFERENCES plan_recommendations(id),
	event_type TEXT NOT NULL,
	event_data TEXT,
	recorded_at TEXT NOT NULL,
	recorded_by TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_events_rec ON recommendation_events(plan_recommendation_id, recorded_at);

CREATE TABLE IF NOT EXISTS metric_snapshots (
	id TEXT PRIMARY KEY,
	plan_id TEXT NOT NULL REFERENCES plans(id),
	metric TEXT NOT NULL,
	snapshot_type TEXT NOT NULL,
	value TEXT NOT NULL,
	recorded_at TEXT NOT NULL,
	notes TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_snapshots_plan ON metric_snapshots(plan_id, metric);

CREATE TABLE IF NOT EXISTS feedback (
	id TEXT PRIMARY KEY,
	plan_recommendation_id TEXT NOT NULL REFERENCES plan_recommendations(id),
	feedback_type TEXT NOT NULL,
	feedback_text TEXT NOT NULL,
	sentiment TEXT NOT NULL DEFAULT '',
	submitted_at TEXT NOT NULL,
	submitted_by TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_feedback_rec ON feedback(plan_recommendation_id);
`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("storage: create schema: %w", err)
	}
	return nil
}

// Timestamps are stored as RFC 3339 text so the rows stay readable with
// the sqlite3 CLI and survive driver changes.

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func formatTimePtr(t *time.Time) any {
	if t == nil {
		return nil
	}
	return formatTime(*t)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("storage: parse timestamp %q: %w", s, err)
	}
	return t, nil
}

func parseTimePtr(s sql.NullString) (*time.Time, error) {
	if !s.Valid || s.String == "" {
		return nil, nil
	}
	t, err := parseTime(s.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func marshalJSON(v any) (string, error) {
	if v == nil {
		return "", nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("storage: marshal json: %w", err)
	}
	return string(data), nil
}
