package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/flowcore/flowengine/engine/emit"
	_ "github.com/go-sql-driver/mysql"
)

// MySQLStore is a MySQL/MariaDB-backed Store, grounded on the teacher's
// MySQLStore (graph/store/mysql.go): pooled connections, production use.
type MySQLStore struct {
	db *sql.DB
}

// NewMySQLStore opens a MySQL connection using dsn (see go-sql-driver/mysql
// for DSN format) and migrates its schema.
func NewMySQLStore(dsn string) (*MySQLStore, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("open mysql: %w", err)
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetConnMaxIdleTime(10 * time.Minute)

	ctx := context.Background()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping mysql: %w", err)
	}

	s := &MySQLStore{db: db}
	if err := s.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *MySQLStore) migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS session_steps (
			run_id VARCHAR(128) NOT NULL,
			step INT NOT NULL,
			state_json JSON NOT NULL,
			PRIMARY KEY (run_id, step)
		)`,
		`CREATE TABLE IF NOT EXISTS events_outbox (
			event_id VARCHAR(128) PRIMARY KEY,
			event_json JSON NOT NULL,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

func (s *MySQLStore) SaveStep(ctx context.Context, runID string, step int, state interface{}) error {
	blob, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO session_steps (run_id, step, state_json) VALUES (?, ?, ?)
		 ON DUPLICATE KEY UPDATE state_json = VALUES(state_json)`,
		runID, step, string(blob))
	return err
}

func (s *MySQLStore) LoadLatest(ctx context.Context, runID string) (interface{}, int, error) {
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

func (s *MySQLStore) EnqueueEvent(ctx context.Context, eventID string, ev emit.Event) error {
	blob, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT IGNORE INTO events_outbox (event_id, event_json) VALUES (?, ?)`,
		eventID, string(blob))
	return err
}

func (s *MySQLStore) PendingEvents(ctx context.Context, limit int) ([]emit.Event, error) {
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

func (s *MySQLStore) MarkEventsEmitted(ctx context.Context, eventIDs []string) error {
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

func (s *MySQLStore) Close() error {
	return s.db.Close()
}
