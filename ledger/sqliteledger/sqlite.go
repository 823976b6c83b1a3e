/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package sqliteledger stores the usage ledger in a SQLite file.
package sqliteledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"chainguard.dev/smellfix/agents/llm"
	"chainguard.dev/smellfix/ledger"
)

const createTables = `
CREATE TABLE IF NOT EXISTS application_runs (
	id TEXT PRIMARY KEY,
	branch TEXT NOT NULL,
	model TEXT NOT NULL,
	start_time DATETIME NOT NULL,
	end_time DATETIME
);
CREATE TABLE IF NOT EXISTS requests (
	id TEXT PRIMARY KEY,
	run_id TEXT NOT NULL REFERENCES application_runs(id),
	request_type TEXT NOT NULL,
	status TEXT NOT NULL,
	code_smell_ref TEXT NOT NULL DEFAULT '',
	total_tokens INTEGER NOT NULL DEFAULT 0,
	cached_tokens INTEGER NOT NULL DEFAULT 0,
	prompt_tokens INTEGER NOT NULL DEFAULT 0,
	response_tokens INTEGER NOT NULL DEFAULT 0,
	retries INTEGER NOT NULL DEFAULT 0,
	start_time DATETIME NOT NULL,
	end_time DATETIME
);
CREATE INDEX IF NOT EXISTS idx_requests_run ON requests(run_id, start_time);
`

// Store implements ledger.Store on SQLite.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

var _ ledger.Store = (*Store)(nil)

// New opens (creating if needed) the database at path and migrates it.
func New(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path+"?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("open ledger db: %w", err)
	}
	// One writer at a time; the run is sequential anyway.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(createTables); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate ledger db: %w", err)
	}
	return &Store{db: db, now: func() time.Time { return time.Now().UTC() }}, nil
}

// Close releases the database handle.
func (s *Store) Close() error { return s.db.Close() }

func (s *Store) InitializeRun(ctx context.Context, run ledger.Run) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO application_runs (id, branch, model, start_time) VALUES (?, ?, ?, ?)`,
		run.ID, run.Branch, run.Model, s.now(),
	)
	if err != nil {
		return fmt.Errorf("initialize run: %w", err)
	}
	return nil
}

func (s *Store) EndRun(ctx context.Context, runID string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE application_runs SET end_time = COALESCE(end_time, ?) WHERE id = ?`,
		s.now(), runID,
	)
	if err != nil {
		return fmt.Errorf("end run: %w", err)
	}
	return affected(res, ledger.ErrRunNotFound, runID)
}

func (s *Store) InitializeRequest(ctx context.Context, runID string, typ ledger.RequestType, codeSmellRef string) (string, error) {
	var exists int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM application_runs WHERE id = ?`, runID).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("%w: %s", ledger.ErrRunNotFound, runID)
	} else if err != nil {
		return "", fmt.Errorf("initialize request: %w", err)
	}

	id := uuid.NewString()
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO requests (id, run_id, request_type, status, code_smell_ref, start_time) VALUES (?, ?, ?, ?, ?, ?)`,
		id, runID, string(typ), string(ledger.Open), codeSmellRef, s.now(),
	)
	if err != nil {
		return "", fmt.Errorf("initialize request: %w", err)
	}
	return id, nil
}

func (s *Store) IncrementRetries(ctx context.Context, requestID string, delta llm.Usage) error {
	t := ledger.TokensOf(delta)
	res, err := s.db.ExecContext(ctx,
		`UPDATE requests SET retries = retries + 1,
			total_tokens = total_tokens + ?, cached_tokens = cached_tokens + ?,
			prompt_tokens = prompt_tokens + ?, response_tokens = response_tokens + ?
		 WHERE id = ? AND status = ?`,
		t.Total, t.Cached, t.Prompt, t.Response, requestID, string(ledger.Open),
	)
	if err != nil {
		return fmt.Errorf("increment retries: %w", err)
	}
	return s.closedOrMissing(ctx, res, requestID)
}

func (s *Store) EndRequest(ctx context.Context, requestID string, status ledger.Status, delta llm.Usage) error {
	t := ledger.TokensOf(delta)
	res, err := s.db.ExecContext(ctx,
		`UPDATE requests SET status = ?, end_time = ?,
			total_tokens = total_tokens + ?, cached_tokens = cached_tokens + ?,
			prompt_tokens = prompt_tokens + ?, response_tokens = response_tokens + ?
		 WHERE id = ? AND status = ?`,
		string(status), s.now(), t.Total, t.Cached, t.Prompt, t.Response, requestID, string(ledger.Open),
	)
	if err != nil {
		return fmt.Errorf("end request: %w", err)
	}
	return s.closedOrMissing(ctx, res, requestID)
}

// closedOrMissing distinguishes an update skipped because the request is
// already closed (fine) from one skipped because it does not exist.
func (s *Store) closedOrMissing(ctx context.Context, res sql.Result, requestID string) error {
	if n, err := res.RowsAffected(); err != nil || n > 0 {
		return err
	}
	var exists int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM requests WHERE id = ?`, requestID).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %s", ledger.ErrRequestNotFound, requestID)
	}
	return err
}

func (s *Store) Requests(ctx context.Context, runID string) ([]ledger.Request, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, run_id, request_type, status, code_smell_ref, total_tokens, cached_tokens,
			prompt_tokens, response_tokens, retries, start_time, end_time
		 FROM requests WHERE run_id = ? ORDER BY start_time, rowid`,
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("list requests: %w", err)
	}
	defer rows.Close()

	var out []ledger.Request
	for rows.Next() {
		var r ledger.Request
		var typ, status string
		var end sql.NullTime
		if err := rows.Scan(&r.ID, &r.RunID, &typ, &status, &r.CodeSmellRef,
			&r.Tokens.Total, &r.Tokens.Cached, &r.Tokens.Prompt, &r.Tokens.Response,
			&r.Retries, &r.Start, &end); err != nil {
			return nil, fmt.Errorf("scan request: %w", err)
		}
		r.Type, r.Status = ledger.RequestType(typ), ledger.Status(status)
		if end.Valid {
			r.End = &end.Time
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *Store) Summaries(ctx context.Context, runID string) ([]ledger.Summary, error) {
	query := `SELECT r.id, r.branch, r.model, r.start_time, r.end_time,
			COUNT(q.id),
			COALESCE(SUM(q.status = 'Succeeded'), 0),
			COALESCE(SUM(q.status = 'Failed'), 0),
			COALESCE(SUM(q.status = 'Open'), 0),
			COALESCE(SUM(q.retries), 0),
			COALESCE(SUM(q.total_tokens), 0), COALESCE(SUM(q.cached_tokens), 0),
			COALESCE(SUM(q.prompt_tokens), 0), COALESCE(SUM(q.response_tokens), 0)
		FROM application_runs r LEFT JOIN requests q ON q.run_id = r.id`
	var args []any
	if runID != "" {
		query += ` WHERE r.id = ?`
		args = append(args, runID)
	}
	query += ` GROUP BY r.id ORDER BY r.start_time DESC, r.id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("summarize runs: %w", err)
	}
	defer rows.Close()

	var out []ledger.Summary
	for rows.Next() {
		var sum ledger.Summary
		var end sql.NullTime
		if err := rows.Scan(&sum.Run.ID, &sum.Run.Branch, &sum.Run.Model, &sum.Run.Start, &end,
			&sum.Requests, &sum.Succeeded, &sum.Failed, &sum.Open, &sum.Retries,
			&sum.Tokens.Total, &sum.Tokens.Cached, &sum.Tokens.Prompt, &sum.Tokens.Response); err != nil {
			return nil, fmt.Errorf("scan summary: %w", err)
		}
		if end.Valid {
			sum.Run.End = &end.Time
		}
		out = append(out, sum)
	}
	return out, rows.Err()
}

func affected(res sql.Result, notFound error, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", notFound, id)
	}
	return nil
}
