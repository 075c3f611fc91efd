package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/flowcore/flowengine/engine/emit"
	_ "modernc.org/sqlite"
)

// SQLiteStore is a SQLite-backed Store, grounded on the teacher's
// SQLiteStore (graph/store/sqlite.go): single-file WAL-mode database, auto
// migrated on open.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (creating if absent) a SQLite database at path and
// migrates its schema.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	ctx := context.Background()
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("pragma %q: %w", pragma, err)
		}
	}

	s := &SQLiteStore{db: db}
	if err := s.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS session_steps (
			run_id TEXT NOT NULL,
			step INTEGER NOT NULL,
			state_json TEXT NOT NULL,
			PRIMARY KEY (run_id, step)
		)`,
		`CREATE TABLE IF NOT EXISTS events_outbox (
			event_id TEXT PRIMARY KEY,
			event_json TEXT NOT NULL,
			created_at INTEGER NOT NULL
		)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

func (s *SQLiteStore) SaveStep(ctx context.Context, runID string, step int, state interface{}) error {
	blob, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO session_steps (run_id, step, state_json) VALUES (?, ?, ?)
		 ON CONFLICT(run_id, step) DO UPDATE SET state_json=excluded.state_json`,
		runID, step, string(blob))
	return err
}

func (s *SQLiteStore) LoadLatest(ctx context.Context, runID string) (interface{}, int, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT step, state_json FROM session_steps WHERE run_id = ? ORDER BY step DESC LIMIT 1`, runID)
	var step int
	var blob string
	if err := row.Scan(&step, &blob); err != nil {
		if err == sql.ErrNoRows {
			return nil, 0, ErrNotFound
		}
		return nil, 0, err
	}
	var state map[string]interface{}
	if err := json.Unmarshal([]byte(blob), &state); err != nil {
		return nil, 0, fmt.Errorf("unmarshal state: %w", err)
	}
	return state, step, nil
}

func (s *SQLiteStore) EnqueueEvent(ctx context.Context, eventID string, ev emit.Event) error {
	blob, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO events_outbox (event_id, event_json, created_at) VALUES (?, ?, unixepoch())
		 ON CONFLICT(event_id) DO NOTHING`,
		eventID, string(blob))
	return err
}

func (s *SQLiteStore) PendingEvents(ctx context.Context, limit int) ([]emit.Event, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT event_json FROM events_outbox ORDER BY created_at ASC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []emit.Event
	for rows.Next() {
		var blob string
		if err := rows.Scan(&blob); err != nil {
			return nil, err
		}
		var ev emit.Event
		if err := json.Unmarshal([]byte(blob), &ev); err != nil {
			return nil, fmt.Errorf("unmarshal event: %w", err)
		}
		out = append(out, ev)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) MarkEventsEmitted(ctx context.Context, eventIDs []string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	for _, id := range eventIDs {
		if _, err := tx.ExecContext(ctx, `DELETE FROM events_outbox WHERE event_id = ?`, id); err != nil {
			_ = tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
