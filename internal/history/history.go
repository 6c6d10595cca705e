// Package history records an observational audit log of build runs in a
// local SQLite database. It is purely diagnostic: nothing in the
// dependency graph, compile planner, or build runner reads from it, and
// a missing or corrupt history database never blocks a build.
package history

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id          TEXT PRIMARY KEY,
	started_at  INTEGER NOT NULL,
	finished_at INTEGER,
	command     TEXT NOT NULL,
	commit_hash TEXT,
	branch      TEXT,
	dirty       INTEGER NOT NULL DEFAULT 0,
	fingerprint TEXT,
	status      TEXT NOT NULL DEFAULT 'running'
);

CREATE TABLE IF NOT EXISTS run_files (
	run_id  TEXT NOT NULL REFERENCES runs(id),
	source  TEXT NOT NULL,
	target  TEXT NOT NULL,
	outcome TEXT NOT NULL
);
`

// Store wraps the build-history SQLite database.
type Store struct {
	conn *sql.DB
}

// Open opens or creates the history database at path and applies its
// schema.
func Open(path string) (*Store, error) {
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening history db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("ping history db: %w", err)
	}
	conn.Exec("PRAGMA journal_mode=WAL")
	conn.Exec("PRAGMA busy_timeout=5000")
	if _, err := conn.Exec(schema); err != nil {
		conn.Close()
		return nil, fmt.Errorf("applying history schema: %w", err)
	}
	return &Store{conn: conn}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.conn.Close()
}

// Run is one recorded build invocation.
type Run struct {
	ID          string
	Command     string
	CommitHash  string
	Branch      string
	Dirty       bool
	Fingerprint string
}

// BeginRun inserts a new run row and returns its generated ID.
func (s *Store) BeginRun(ctx context.Context, command, commitHash, branch string, dirty bool) (string, error) {
	id := uuid.NewString()
	_, err := s.conn.ExecContext(ctx, `
		INSERT INTO runs (id, started_at, command, commit_hash, branch, dirty)
		VALUES (?, unixepoch(), ?, ?, ?, ?)
	`, id, command, commitHash, branch, dirty)
	if err != nil {
		return "", fmt.Errorf("recording run start: %w", err)
	}
	return id, nil
}

// RecordFile logs one compiled or skipped source against a run.
func (s *Store) RecordFile(ctx context.Context, runID, source, target, outcome string) error {
	_, err := s.conn.ExecContext(ctx, `
		INSERT INTO run_files (run_id, source, target, outcome) VALUES (?, ?, ?, ?)
	`, runID, source, target, outcome)
	if err != nil {
		return fmt.Errorf("recording run file: %w", err)
	}
	return nil
}

// FinishRun marks a run complete with its final status and graph
// fingerprint.
func (s *Store) FinishRun(ctx context.Context, runID, status, fingerprint string) error {
	_, err := s.conn.ExecContext(ctx, `
		UPDATE runs SET finished_at = unixepoch(), status = ?, fingerprint = ? WHERE id = ?
	`, status, fingerprint, runID)
	if err != nil {
		return fmt.Errorf("recording run finish: %w", err)
	}
	return nil
}

// RecentRuns returns the n most recently started runs, newest first.
func (s *Store) RecentRuns(ctx context.Context, n int) ([]Run, error) {
	rows, err := s.conn.QueryContext(ctx, `
		SELECT id, command, coalesce(commit_hash, ''), coalesce(branch, ''), dirty, coalesce(fingerprint, '')
		FROM runs ORDER BY started_at DESC LIMIT ?
	`, n)
	if err != nil {
		return nil, fmt.Errorf("querying recent runs: %w", err)
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		var r Run
		if err := rows.Scan(&r.ID, &r.Command, &r.CommitHash, &r.Branch, &r.Dirty, &r.Fingerprint); err != nil {
			return nil, fmt.Errorf("scanning run row: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
