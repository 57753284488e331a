// Package history records task runs in a local SQLite database.
//
// The supervisor writes a row when a run starts and finalizes it when
// the run ends, so operators can audit what ran, for how long, and how
// it finished, independently of any connected dashboard.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"girder/internal/protocol"
)

const schema = `
CREATE TABLE IF NOT EXISTS task_runs (
	id          TEXT PRIMARY KEY,
	agent_id    TEXT NOT NULL,
	task_type   TEXT NOT NULL,
	status      TEXT NOT NULL,
	message     TEXT NOT NULL DEFAULT '',
	started_at  TIMESTAMP NOT NULL,
	finished_at TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_task_runs_agent ON task_runs(agent_id, started_at);
`

// Run is one recorded task execution.
type Run struct {
	ID         string
	AgentID    string
	TaskType   string
	Status     protocol.AgentStatus
	Message    string
	StartedAt  time.Time
	FinishedAt *time.Time
}

// Store persists task runs. Safe for concurrent use; database/sql
// handles connection serialization.
type Store struct {
	db *sql.DB
}

// Open opens (and if needed creates) the history database at path.
// Use ":memory:" for an ephemeral store.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open history %s: %w", path, err)
	}

	ctx := context.Background()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping history %s: %w", path, err)
	}
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set WAL mode on %s: %w", path, err)
	}
	if _, err := db.ExecContext(ctx, "PRAGMA busy_timeout=5000"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set busy_timeout on %s: %w", path, err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate history %s: %w", path, err)
	}

	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// RecordStart inserts a new run in the running state.
func (s *Store) RecordStart(ctx context.Context, runID, agentID, taskType string, startedAt time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO task_runs (id, agent_id, task_type, status, started_at)
		VALUES (?, ?, ?, ?, ?)`,
		runID, agentID, taskType, protocol.StatusRunning, startedAt.UTC())
	if err != nil {
		return fmt.Errorf("record run start: %w", err)
	}
	return nil
}

// RecordFinish finalizes a run with its terminal status and message.
func (s *Store) RecordFinish(ctx context.Context, runID string, status protocol.AgentStatus, message string, finishedAt time.Time) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE task_runs SET status = ?, message = ?, finished_at = ?
		WHERE id = ?`,
		status, message, finishedAt.UTC(), runID)
	if err != nil {
		return fmt.Errorf("record run finish: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("record run finish: unknown run %s", runID)
	}
	return nil
}

// Recent returns up to limit runs, newest first. An empty agentID
// returns runs for all agents.
func (s *Store) Recent(ctx context.Context, agentID string, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT id, agent_id, task_type, status, message, started_at, finished_at
		FROM task_runs`
	args := []any{}
	if agentID != "" {
		query += ` WHERE agent_id = ?`
		args = append(args, agentID)
	}
	query += ` ORDER BY started_at DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		var finished sql.NullTime
		if err := rows.Scan(&r.ID, &r.AgentID, &r.TaskType, &r.Status, &r.Message, &r.StartedAt, &finished); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		if finished.Valid {
			t := finished.Time
			r.FinishedAt = &t
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}
