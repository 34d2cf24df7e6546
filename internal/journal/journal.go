// Package journal records every evaluated commit attempt in a SQLite
// database so blocked commits can be reviewed after the session.
package journal

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS evaluations (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id        TEXT NOT NULL UNIQUE,
	session_id    TEXT,
	command       TEXT NOT NULL,
	decision      TEXT NOT NULL,
	state         TEXT NOT NULL,
	failed_check  TEXT,
	failure_kind  TEXT,
	reason        TEXT,
	scope_json    TEXT NOT NULL,
	restaged_json TEXT NOT NULL,
	tests_passed  INTEGER NOT NULL DEFAULT 0,
	tests_failed  INTEGER NOT NULL DEFAULT 0,
	duration_ms   INTEGER NOT NULL,
	created_at    TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS evaluations_created_at ON evaluations(created_at);
`

// FilePermission is the permission for the journal file (owner read/write only)
const FilePermission = 0600

// Entry is one evaluated commit attempt.
type Entry struct {
	RunID       string        `json:"run_id" yaml:"run_id"`
	SessionID   string        `json:"session_id,omitempty" yaml:"session_id,omitempty"`
	Command     string        `json:"command" yaml:"command"`
	Decision    string        `json:"decision" yaml:"decision"`
	State       string        `json:"state" yaml:"state"`
	FailedCheck string        `json:"failed_check,omitempty" yaml:"failed_check,omitempty"`
	FailureKind string        `json:"failure_kind,omitempty" yaml:"failure_kind,omitempty"`
	Reason      string        `json:"reason,omitempty" yaml:"reason,omitempty"`
	Scope       []string      `json:"scope" yaml:"scope"`
	Restaged    []string      `json:"restaged,omitempty" yaml:"restaged,omitempty"`
	TestsPassed int           `json:"tests_passed" yaml:"tests_passed"`
	TestsFailed int           `json:"tests_failed" yaml:"tests_failed"`
	Duration    time.Duration `json:"duration" yaml:"duration"`
	CreatedAt   time.Time     `json:"created_at" yaml:"created_at"`
}

// Journal is an append-only log of gate decisions.
type Journal struct {
	db *sql.DB
}

// Open opens or creates the journal at path and runs migrations. The
// special path ":memory:" keeps the journal in memory.
func Open(path string) (*Journal, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
			return nil, fmt.Errorf("create journal dir: %w", err)
		}
		f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, FilePermission)
		if err != nil {
			return nil, fmt.Errorf("create journal: %w", err)
		}
		f.Close()
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	// A single connection keeps ":memory:" databases shared across calls.
	db.SetMaxOpenConns(1)
	for _, pragma := range []string{"PRAGMA journal_mode=WAL", "PRAGMA busy_timeout=5000"} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("pragma: %w", err)
		}
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Journal{db: db}, nil
}

// Close closes the underlying database connection.
func (j *Journal) Close() error {
	return j.db.Close()
}

// Record appends e. A zero CreatedAt is set to now.
func (j *Journal) Record(ctx context.Context, e Entry) error {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	scope, err := encodeList(e.Scope)
	if err != nil {
		return err
	}
	restaged, err := encodeList(e.Restaged)
	if err != nil {
		return err
	}

	_, err = j.db.ExecContext(ctx,
		`INSERT INTO evaluations (run_id, session_id, command, decision, state, failed_check, failure_kind,
			reason, scope_json, restaged_json, tests_passed, tests_failed, duration_ms, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.RunID,
		nullIfEmpty(e.SessionID),
		e.Command,
		e.Decision,
		e.State,
		nullIfEmpty(e.FailedCheck),
		nullIfEmpty(e.FailureKind),
		nullIfEmpty(e.Reason),
		scope,
		restaged,
		e.TestsPassed,
		e.TestsFailed,
		e.Duration.Milliseconds(),
		e.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("record evaluation: %w", err)
	}
	return nil
}

// Recent returns up to limit entries, newest first.
func (j *Journal) Recent(ctx context.Context, limit int) ([]Entry, error) {
	rows, err := j.db.QueryContext(ctx,
		`SELECT run_id, session_id, command, decision, state, failed_check, failure_kind, reason,
			scope_json, restaged_json, tests_passed, tests_failed, duration_ms, created_at
		 FROM evaluations ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query evaluations: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			e                                           Entry
			sessionID, failedCheck, failureKind, reason sql.NullString
			scope, restaged, createdAt                  string
			durationMS                                  int64
		)
		if err := rows.Scan(&e.RunID, &sessionID, &e.Command, &e.Decision, &e.State, &failedCheck,
			&failureKind, &reason, &scope, &restaged, &e.TestsPassed, &e.TestsFailed, &durationMS, &createdAt); err != nil {
			return nil, fmt.Errorf("scan evaluation: %w", err)
		}
		e.SessionID = sessionID.String
		e.FailedCheck = failedCheck.String
		e.FailureKind = failureKind.String
		e.Reason = reason.String
		e.Duration = time.Duration(durationMS) * time.Millisecond
		if err := json.Unmarshal([]byte(scope), &e.Scope); err != nil {
			return nil, fmt.Errorf("decode scope: %w", err)
		}
		if err := json.Unmarshal([]byte(restaged), &e.Restaged); err != nil {
			return nil, fmt.Errorf("decode restaged: %w", err)
		}
		if len(e.Restaged) == 0 {
			e.Restaged = nil
		}
		if e.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
			return nil, fmt.Errorf("parse created_at: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func encodeList(paths []string) (string, error) {
	if paths == nil {
		paths = []string{}
	}
	data, err := json.Marshal(paths)
	if err != nil {
		return "", fmt.Errorf("encode paths: %w", err)
	}
	return string(data), nil
}

func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
