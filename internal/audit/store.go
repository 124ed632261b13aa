// Package audit persists finished orchestration runs to SQLite for
// read-only reporting. The store is append-only; nothing in the engine
// reads it back to resume work.
package audit

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/mosaic-agent/mosaic/internal/orchestrator"
)

// Store wraps the SQLite connection holding the run history.
type Store struct {
	conn *sql.DB
	path string
	mu   sync.Mutex
}

// Run is one persisted orchestration run.
type Run struct {
	// RequestID is the request identifier.
	RequestID string
	// PromptHash is the hex SHA-256 of the original prompt.
	PromptHash string
	// PromptExcerpt is the head of the prompt, for display only.
	PromptExcerpt string
	// Status is the terminal workflow status.
	Status string
	// DurationMillis is the workflow wall time.
	DurationMillis int64
	// Confidence is the overall aggregation confidence.
	Confidence float64
	// StepSummary lists the steps and their outcomes.
	StepSummary string
	// FinishedAt is when the run completed.
	FinishedAt time.Time
}

// DefaultPath returns the audit database location under the user data
// directory.
func DefaultPath() string {
	dataDir := os.Getenv("XDG_DATA_HOME")
	if dataDir == "" {
		home, _ := os.UserHomeDir()
		dataDir = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(dataDir, "mosaic", "audit.db")
}

// Open opens the store at the given path, creating parent directories
// and applying migrations. WAL mode is enabled for concurrent reads.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}
	if _, err := conn.Exec("PRAGMA foreign_keys=ON"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	s := &Store{conn: conn, path: path}
	if err := s.migrate(); err != nil {
		conn.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn.Close()
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}

func (s *Store) migrate() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.conn.Exec(`
		CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("create schema_version table: %w", err)
	}

	var currentVersion int
	row := s.conn.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_version")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("get schema version: %w", err)
	}

	migrations := []struct {
		version int
		sql     string
	}{
		{1, migrationV1Runs},
		{2, migrationV2Events},
	}

	for _, m := range migrations {
		if m.version <= currentVersion {
			continue
		}

		tx, err := s.conn.Begin()
		if err != nil {
			return fmt.Errorf("begin transaction: %w", err)
		}
		if _, err := tx.Exec(m.sql); err != nil {
			tx.Rollback()
			return fmt.Errorf("apply migration v%d: %w", m.version, err)
		}
		if _, err := tx.Exec("INSERT INTO schema_version (version) VALUES (?)", m.version); err != nil {
			tx.Rollback()
			return fmt.Errorf("record migration v%d: %w", m.version, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration v%d: %w", m.version, err)
		}
	}
	return nil
}

const migrationV1Runs = `
CREATE TABLE IF NOT EXISTS runs (
	request_id TEXT PRIMARY KEY,
	prompt_hash TEXT NOT NULL,
	prompt_excerpt TEXT NOT NULL DEFAULT '',
	status TEXT NOT NULL,
	duration_ms INTEGER NOT NULL DEFAULT 0,
	confidence REAL NOT NULL DEFAULT 0.0,
	step_summary TEXT NOT NULL DEFAULT '',
	finished_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_runs_finished_at ON runs(finished_at);
`

const migrationV2Events = `
CREATE TABLE IF NOT EXISTS events (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	request_id TEXT NOT NULL,
	step TEXT NOT NULL DEFAULT '',
	level TEXT NOT NULL,
	message TEXT NOT NULL,
	at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_events_request_id ON events(request_id);
`

const excerptLen = 120

// RecordRun persists one finished run and its audit events. It
// implements the orchestrator's Recorder contract.
func (s *Store) RecordRun(run orchestrator.RunRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	hash := sha256.Sum256([]byte(run.Prompt))
	excerpt := run.Prompt
	if len(excerpt) > excerptLen {
		excerpt = excerpt[:excerptLen]
	}

	tx, err := s.conn.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	_, err = tx.Exec(`
		INSERT OR REPLACE INTO runs
			(request_id, prompt_hash, prompt_excerpt, status, duration_ms, confidence, step_summary, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		run.RequestID, hex.EncodeToString(hash[:]), excerpt, string(run.Status),
		run.Duration.Milliseconds(), run.Confidence, run.StepSummary, run.At.UTC(),
	)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("insert run: %w", err)
	}

	for _, ev := range run.Events {
		if _, err := tx.Exec(`
			INSERT INTO events (request_id, step, level, message, at)
			VALUES (?, ?, ?, ?, ?)`,
			ev.RequestID, ev.Step, ev.Level, ev.Message, ev.At.UTC(),
		); err != nil {
			tx.Rollback()
			return fmt.Errorf("insert event: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit run: %w", err)
	}
	return nil
}

// Runs returns the most recent runs, newest first.
func (s *Store) Runs(limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.conn.Query(`
		SELECT request_id, prompt_hash, prompt_excerpt, status, duration_ms, confidence, step_summary, finished_at
		FROM runs ORDER BY finished_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		var r Run
		if err := rows.Scan(&r.RequestID, &r.PromptHash, &r.PromptExcerpt, &r.Status,
			&r.DurationMillis, &r.Confidence, &r.StepSummary, &r.FinishedAt); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Events returns the audit events recorded for one request, oldest
// first.
func (s *Store) Events(requestID string) ([]orchestrator.AuditEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.conn.Query(`
		SELECT request_id, step, level, message, at
		FROM events WHERE request_id = ? ORDER BY id ASC`, requestID)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	var out []orchestrator.AuditEvent
	for rows.Next() {
		var ev orchestrator.AuditEvent
		if err := rows.Scan(&ev.RequestID, &ev.Step, &ev.Level, &ev.Message, &ev.At); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		out = append(out, ev)
	}
	return out, rows.Err()
}
