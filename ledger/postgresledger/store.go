/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package postgresledger stores the usage ledger in PostgreSQL.
package postgresledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"chainguard.dev/smellfix/agents/llm"
	"chainguard.dev/smellfix/ledger"
)

// Store implements ledger.Store on a pgx connection pool.
type Store struct {
	db *pgxpool.Pool
}

// Ensure Store implements ledger.Store at compile time.
var _ ledger.Store = (*Store)(nil)

// Open connects to dsn and creates the schema if missing.
func Open(ctx context.Context, dsn string) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("ledger: connect: %w", err)
	}
	s := New(pool)
	if err := s.CreateSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

// New wraps an existing pool. The caller owns the schema.
func New(pool *pgxpool.Pool) *Store {
	return &Store{db: pool}
}

// Close releases the pool.
func (s *Store) Close() error {
	s.db.Close()
	return nil
}

// CreateSchema creates the ledger tables if they do not exist.
func (s *Store) CreateSchema(ctx context.Context) error {
	_, err := s.db.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS ledger_runs (
			id         TEXT PRIMARY KEY,
			branch     TEXT NOT NULL,
			model      TEXT NOT NULL,
			start_time TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			end_time   TIMESTAMPTZ
		);
		CREATE TABLE IF NOT EXISTS ledger_requests (
			id              TEXT PRIMARY KEY,
			run_id          TEXT NOT NULL REFERENCES ledger_runs(id) ON DELETE CASCADE,
			seq             BIGSERIAL,
			request_type    TEXT NOT NULL,
			status          TEXT NOT NULL,
			code_smell_ref  TEXT NOT NULL DEFAULT '',
			total_tokens    BIGINT NOT NULL DEFAULT 0,
			cached_tokens   BIGINT NOT NULL DEFAULT 0,
			prompt_tokens   BIGINT NOT NULL DEFAULT 0,
			response_tokens BIGINT NOT NULL DEFAULT 0,
			retries         INTEGER NOT NULL DEFAULT 0,
			start_time      TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			end_time        TIMESTAMPTZ
		);
		CREATE INDEX IF NOT EXISTS idx_ledger_requests_run ON ledger_requests(run_id, seq);
	`)
	if err != nil {
		return fmt.Errorf("ledger: create schema: %w", err)
	}
	return nil
}

// DropSchema drops all ledger tables.
func (s *Store) DropSchema(ctx context.Context) error {
	_, err := s.db.Exec(ctx, `
		DROP TABLE IF EXISTS ledger_requests CASCADE;
		DROP TABLE IF EXISTS ledger_runs CASCADE;
	`)
	return err
}

// InitializeRun records the start of a run.
func (s *Store) InitializeRun(ctx context.Context, run ledger.Run) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO ledger_runs (id, branch, model) VALUES ($1, $2, $3)`,
		run.ID, run.Branch, run.Model,
	)
	if err != nil {
		return fmt.Errorf("ledger: initialize run: %w", err)
	}
	return nil
}

// EndRun stamps the end time once.
func (s *Store) EndRun(ctx context.Context, runID string) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE ledger_runs SET end_time = COALESCE(end_time, NOW()) WHERE id = $1`,
		runID,
	)
	if err != nil {
		return fmt.Errorf("ledger: end run: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", ledger.ErrRunNotFound, runID)
	}
	return nil
}

// InitializeRequest opens a request under runID.
func (s *Store) InitializeRequest(ctx context.Context, runID string, typ ledger.RequestType, codeSmellRef string) (string, error) {
	id := uuid.New().String()
	tag, err := s.db.Exec(ctx,
		`INSERT INTO ledger_requests (id, run_id, request_type, status, code_smell_ref)
		 SELECT $1, id, $3, $4, $5 FROM ledger_runs WHERE id = $2`,
		id, runID, string(typ), string(ledger.Open), codeSmellRef,
	)
	if err != nil {
		return "", fmt.Errorf("ledger: initialize request: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return "", fmt.Errorf("%w: %s", ledger.ErrRunNotFound, runID)
	}
	return id, nil
}

// IncrementRetries adds one retry and the usage of the failed attempt.
func (s *Store) IncrementRetries(ctx context.Context, requestID string, delta llm.Usage) error {
	t := ledger.TokensOf(delta)
	tag, err := s.db.Exec(ctx,
		`UPDATE ledger_requests SET retries = retries + 1,
			total_tokens = total_tokens + $2, cached_tokens = cached_tokens + $3,
			prompt_tokens = prompt_tokens + $4, response_tokens = response_tokens + $5
		 WHERE id = $1 AND status = 'Open'`,
		requestID, t.Total, t.Cached, t.Prompt, t.Response,
	)
	if err != nil {
		return fmt.Errorf("ledger: increment retries: %w", err)
	}
	return s.closedOrMissing(ctx, tag, requestID)
}

// EndRequest closes an open request.
func (s *Store) EndRequest(ctx context.Context, requestID string, status ledger.Status, delta llm.Usage) error {
	t := ledger.TokensOf(delta)
	tag, err := s.db.Exec(ctx,
		`UPDATE ledger_requests SET status = $2, end_time = NOW(),
			total_tokens = total_tokens + $3, cached_tokens = cached_tokens + $4,
			prompt_tokens = prompt_tokens + $5, response_tokens = response_tokens + $6
		 WHERE id = $1 AND status = 'Open'`,
		requestID, string(status), t.Total, t.Cached, t.Prompt, t.Response,
	)
	if err != nil {
		return fmt.Errorf("ledger: end request: %w", err)
	}
	return s.closedOrMissing(ctx, tag, requestID)
}

func (s *Store) closedOrMissing(ctx context.Context, tag pgconn.CommandTag, requestID string) error {
	if tag.RowsAffected() > 0 {
		return nil
	}
	var exists bool
	err := s.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM ledger_requests WHERE id = $1)`, requestID).Scan(&exists)
	if err != nil {
		return fmt.Errorf("ledger: lookup request: %w", err)
	}
	if !exists {
		return fmt.Errorf("%w: %s", ledger.ErrRequestNotFound, requestID)
	}
	return nil
}

// Requests lists the requests of a run in creation order.
func (s *Store) Requests(ctx context.Context, runID string) ([]ledger.Request, error) {
	rows, err := s.db.Query(ctx,
		`SELECT id, run_id, request_type, status, code_smell_ref, total_tokens, cached_tokens,
			prompt_tokens, response_tokens, retries, start_time, end_time
		 FROM ledger_requests WHERE run_id = $1 ORDER BY seq ASC`,
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("ledger: list requests: %w", err)
	}
	defer rows.Close()

	var out []ledger.Request
	for rows.Next() {
		var r ledger.Request
		var typ, status string
		var end *time.Time
		if err := rows.Scan(&r.ID, &r.RunID, &typ, &status, &r.CodeSmellRef,
			&r.Tokens.Total, &r.Tokens.Cached, &r.Tokens.Prompt, &r.Tokens.Response,
			&r.Retries, &r.Start, &end); err != nil {
			return nil, fmt.Errorf("ledger: scan request: %w", err)
		}
		r.Type, r.Status, r.End = ledger.RequestType(typ), ledger.Status(status), end
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ledger: list requests: %w", err)
	}
	return out, nil
}

// Summaries aggregates requests per run, newest run first.
func (s *Store) Summaries(ctx context.Context, runID string) ([]ledger.Summary, error) {
	rows, err := s.db.Query(ctx,
		`SELECT r.id, r.branch, r.model, r.start_time, r.end_time,
			COUNT(q.id),
			COUNT(q.id) FILTER (WHERE q.status = 'Succeeded'),
			COUNT(q.id) FILTER (WHERE q.status = 'Failed'),
			COUNT(q.id) FILTER (WHERE q.status = 'Open'),
			COALESCE(SUM(q.retries), 0)::BIGINT,
			COALESCE(SUM(q.total_tokens), 0)::BIGINT, COALESCE(SUM(q.cached_tokens), 0)::BIGINT,
			COALESCE(SUM(q.prompt_tokens), 0)::BIGINT, COALESCE(SUM(q.response_tokens), 0)::BIGINT
		 FROM ledger_runs r LEFT JOIN ledger_requests q ON q.run_id = r.id
		 WHERE $1 = '' OR r.id = $1
		 GROUP BY r.id
		 ORDER BY r.start_time DESC, r.id`,
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("ledger: summarize runs: %w", err)
	}
	defer rows.Close()

	var out []ledger.Summary
	for rows.Next() {
		var sum ledger.Summary
		var end *time.Time
		if err := rows.Scan(&sum.Run.ID, &sum.Run.Branch, &sum.Run.Model, &sum.Run.Start, &end,
			&sum.Requests, &sum.Succeeded, &sum.Failed, &sum.Open, &sum.Retries,
			&sum.Tokens.Total, &sum.Tokens.Cached, &sum.Tokens.Prompt, &sum.Tokens.Response); err != nil {
			return nil, fmt.Errorf("ledger: scan summary: %w", err)
		}
		sum.Run.End = end
		out = append(out, sum)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ledger: summarize runs: %w", err)
	}
	return out, nil
}

// Run fetches a single run.
func (s *Store) Run(ctx context.Context, runID string) (*ledger.Run, error) {
	run := &ledger.Run{ID: runID}
	err := s.db.QueryRow(ctx,
		`SELECT branch, model, start_time, end_time FROM ledger_runs WHERE id = $1`,
		runID,
	).Scan(&run.Branch, &run.Model, &run.Start, &run.End)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ledger.ErrRunNotFound, runID)
	}
	if err != nil {
		return nil, fmt.Errorf("ledger: get run: %w", err)
	}
	return run, nil
}
