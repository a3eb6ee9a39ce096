// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package ledger records which inputs each stage has already processed, so
// unchanged documents are skipped on later runs. Records live in SQLite.
package ledger

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// Status is the outcome recorded for one input.
type Status string

const (
	StatusCompleted Status = "completed"
	StatusPartial   Status = "partial"
	StatusFailed    Status = "failed"
)

// Record describes the last processing of one input by one stage.
type Record struct {
	Stage       string    `json:"stage" yaml:"stage"`
	Input       string    `json:"input" yaml:"input"`
	Digest      string    `json:"digest" yaml:"digest"`
	Output      string    `json:"output" yaml:"output"`
	Status      Status    `json:"status" yaml:"status"`
	Chunks      int       `json:"chunks" yaml:"chunks"`
	Error       string    `json:"error,omitempty" yaml:"error,omitempty"`
	CompletedAt time.Time `json:"completed_at" yaml:"completed_at"`
}

// Ledger is a handle on the SQLite database. It is safe for concurrent use.
type Ledger struct {
	db   *sql.DB
	path string
}

// Open opens or creates the ledger at path and creates the schema if it
// does not exist.
func Open(path string) (*Ledger, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating ledger directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening ledger: %w", err)
	}

	l := &Ledger{db: db, path: path}
	if err := l.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating ledger schema: %w", err)
	}
	return l, nil
}

// Close releases the database connection.
func (l *Ledger) Close() error {
	return l.db.Close()
}

// Path returns the database file path.
func (l *Ledger) Path() string { return l.path }

func (l *Ledger) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS documents (
			stage TEXT NOT NULL,
			input TEXT NOT NULL,
			digest TEXT NOT NULL,
			output TEXT,
			status TEXT NOT NULL,
			chunks INTEGER,
			error TEXT,
			completed_at TEXT,
			PRIMARY KEY (stage, input)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_documents_status ON documents(status)`,
		`CREATE TABLE IF NOT EXISTS runs (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			source TEXT NOT NULL,
			steps TEXT,
			started_at TEXT NOT NULL,
			finished_at TEXT,
			status TEXT,
			error TEXT
		)`,
	}
	for _, stmt := range statements {
		if _, err := l.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// Digest hashes the given parts into a stable hex string. Callers pass the
// input content together with every setting that affects the output.
func Digest(parts ...string) string {
	h := sha256.New()
	for _, p := range parts {
		fmt.Fprintf(h, "%d:", len(p))
		h.Write([]byte(p))
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Put inserts or replaces the record for (r.Stage, r.Input).
func (l *Ledger) Put(ctx context.Context, r Record) error {
	if r.CompletedAt.IsZero() {
		r.CompletedAt = time.Now()
	}
	_, err := l.db.ExecContext(ctx,
		`INSERT INTO documents (stage, input, digest, output, status, chunks, error, completed_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(stage, input) DO UPDATE SET
			digest=excluded.digest, output=excluded.output, status=excluded.status,
			chunks=excluded.chunks, error=excluded.error, completed_at=excluded.completed_at`,
		r.Stage, r.Input, r.Digest, r.Output, string(r.Status), r.Chunks, r.Error,
		r.CompletedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("recording %s %s: %w", r.Stage, r.Input, err)
	}
	return nil
}

// Get returns the record for (stage, input). The boolean is false when no
// record exists.
func (l *Ledger) Get(ctx context.Context, stage, input string) (Record, bool, error) {
	row := l.db.QueryRowContext(ctx,
		`SELECT stage, input, digest, output, status, chunks, error, completed_at
		 FROM documents WHERE stage = ? AND input = ?`, stage, input)
	r, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, false, nil
	}
	if err != nil {
		return Record{}, false, fmt.Errorf("looking up %s %s: %w", stage, input, err)
	}
	return r, true, nil
}

// Done reports whether (stage, input) was completed with the same digest.
func (l *Ledger) Done(ctx context.Context, stage, input, digest string) (bool, error) {
	r, ok, err := l.Get(ctx, stage, input)
	if err != nil || !ok {
		return false, err
	}
	return r.Status == StatusCompleted && r.Digest == digest, nil
}

// List returns the records for stage, ordered by input. An empty stage lists
// every record.
func (l *Ledger) List(ctx context.Context, stage string) ([]Record, error) {
	query := `SELECT stage, input, digest, output, status, chunks, error, completed_at FROM documents`
	var args []any
	if stage != "" {
		query += ` WHERE stage = ?`
		args = append(args, stage)
	}
	query += ` ORDER BY stage, input`

	rows, err := l.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing records: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning record: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Forget removes the record for (stage, input).
func (l *Ledger) Forget(ctx context.Context, stage, input string) error {
	if _, err := l.db.ExecContext(ctx,
		`DELETE FROM documents WHERE stage = ? AND input = ?`, stage, input); err != nil {
		return fmt.Errorf("forgetting %s %s: %w", stage, input, err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(s scanner) (Record, error) {
	var (
		r                      Record
		status                 string
		output, errText, stamp sql.NullString
		chunks                 sql.NullInt64
	)
	if err := s.Scan(&r.Stage, &r.Input, &r.Digest, &output, &status, &chunks, &errText, &stamp); err != nil {
		return Record{}, err
	}
	r.Status = Status(status)
	r.Output = output.String
	r.Error = errText.String
	r.Chunks = int(chunks.Int64)
	if stamp.Valid {
		r.CompletedAt, _ = time.Parse(time.RFC3339Nano, stamp.String)
	}
	return r, nil
}
