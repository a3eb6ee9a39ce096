// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"
)

// Run is one end-to-end pipeline invocation for a source PDF.
type Run struct {
	ID         int64     `json:"id" yaml:"id"`
	Source     string    `json:"source" yaml:"source"`
	Steps      []string  `json:"steps" yaml:"steps"`
	StartedAt  time.Time `json:"started_at" yaml:"started_at"`
	FinishedAt time.Time `json:"finished_at,omitempty" yaml:"finished_at,omitempty"`
	Status     Status    `json:"status,omitempty" yaml:"status,omitempty"`
	Error      string    `json:"error,omitempty" yaml:"error,omitempty"`
}

// StartRun records the start of a pipeline run and returns its id.
func (l *Ledger) StartRun(ctx context.Context, source string, steps []string) (int64, error) {
	res, err := l.db.ExecContext(ctx,
		`INSERT INTO runs (source, steps, started_at) VALUES (?, ?, ?)`,
		source, strings.Join(steps, ","), time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return 0, fmt.Errorf("starting run for %s: %w", source, err)
	}
	return res.LastInsertId()
}

// FinishRun marks run id as completed, or failed when runErr is non-nil.
func (l *Ledger) FinishRun(ctx context.Context, id int64, runErr error) error {
	status, msg := StatusCompleted, ""
	if runErr != nil {
		status, msg = StatusFailed, runErr.Error()
	}
	_, err := l.db.ExecContext(ctx,
		`UPDATE runs SET finished_at = ?, status = ?, error = ? WHERE id = ?`,
		time.Now().UTC().Format(time.RFC3339Nano), string(status), msg, id,
	)
	if err != nil {
		return fmt.Errorf("finishing run %d: %w", id, err)
	}
	return nil
}

// Runs returns the most recent runs, newest first. A limit of zero or less
// returns all of them.
func (l *Ledger) Runs(ctx context.Context, limit int) ([]Run, error) {
	query := `SELECT id, source, steps, started_at, finished_at, status, error FROM runs ORDER BY id DESC`
	var args []any
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := l.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		var (
			r                             Run
			steps, finished, status, text sql.NullString
			started                       string
		)
		if err := rows.Scan(&r.ID, &r.Source, &steps, &started, &finished, &status, &text); err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		if steps.String != "" {
			r.Steps = strings.Split(steps.String, ",")
		}
		r.StartedAt, _ = time.Parse(time.RFC3339Nano, started)
		if finished.Valid {
			r.FinishedAt, _ = time.Parse(time.RFC3339Nano, finished.String)
		}
		r.Status = Status(status.String)
		r.Error = text.String
		out = append(out, r)
	}
	return out, rows.Err()
}
