/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package ledger

import (
	"context"
	"errors"
	"time"

	"chainguard.dev/smellfix/agents/llm"
)

var (
	ErrRunNotFound     = errors.New("ledger: run not found")
	ErrRequestNotFound = errors.New("ledger: request not found")
)

// Status is the lifecycle state of a request record.
type Status string

const (
	Open      Status = "Open"
	Succeeded Status = "Succeeded"
	Failed    Status = "Failed"
)

// RequestType classifies what a request was for.
type RequestType string

const (
	CacheCreation  RequestType = "CacheCreation"
	FileUpload     RequestType = "FileUpload"
	CodeGeneration RequestType = "CodeGeneration"
)

// Tokens are the counts persisted per request.
type Tokens struct {
	Total    int64 `json:"total"`
	Cached   int64 `json:"cached"`
	Prompt   int64 `json:"prompt"`
	Response int64 `json:"response"`
}

// TokensOf projects provider-neutral usage onto the persisted counts.
func TokensOf(u llm.Usage) Tokens {
	return Tokens{
		Total:    u.TotalTokens,
		Cached:   u.CachedTokens,
		Prompt:   u.ActualRequestTokens(),
		Response: u.ActualResponseTokens(),
	}
}

// Add returns the field-wise sum.
func (t Tokens) Add(o Tokens) Tokens {
	return Tokens{
		Total:    t.Total + o.Total,
		Cached:   t.Cached + o.Cached,
		Prompt:   t.Prompt + o.Prompt,
		Response: t.Response + o.Response,
	}
}

// Run is one invocation of the fixer.
type Run struct {
	ID     string
	Branch string
	Model  string
	Start  time.Time
	End    *time.Time
}

// Request is one logical model request, including all of its retries.
type Request struct {
	ID           string
	RunID        string
	Type         RequestType
	Status       Status
	CodeSmellRef string
	Tokens       Tokens
	Retries      int
	Start        time.Time
	End          *time.Time
}

// Summary aggregates the requests of one run.
type Summary struct {
	Run       Run
	Requests  int
	Succeeded int
	Failed    int
	Open      int
	Retries   int
	Tokens    Tokens
}

// Ledger persists runs and request lifecycle records.
//
// A request moves from Open to Succeeded or Failed exactly once. Updates to a
// closed request are silently ignored so that closing is idempotent.
type Ledger interface {
	InitializeRun(ctx context.Context, run Run) error
	EndRun(ctx context.Context, runID string) error

	// InitializeRequest opens a request record and returns its id.
	InitializeRequest(ctx context.Context, runID string, typ RequestType, codeSmellRef string) (string, error)
	// IncrementRetries bumps the retry counter and adds the usage of the failed attempt.
	IncrementRetries(ctx context.Context, requestID string, delta llm.Usage) error
	// EndRequest adds the usage of the last attempt and closes the record.
	EndRequest(ctx context.Context, requestID string, status Status, delta llm.Usage) error
}

// Reader exposes recorded data for reporting.
type Reader interface {
	// Summaries returns one summary per run, newest first. An empty runID selects all runs.
	Summaries(ctx context.Context, runID string) ([]Summary, error)
	// Requests returns the requests of a run in start order.
	Requests(ctx context.Context, runID string) ([]Request, error)
}

// Store is a Ledger that can also be read back and closed.
type Store interface {
	Ledger
	Reader
	Close() error
}

// Requests is the run-scoped view the connector pipeline records through.
type Requests interface {
	InitializeRequest(ctx context.Context, typ RequestType, codeSmellRef string) (string, error)
	IncrementRetries(ctx context.Context, requestID string, delta llm.Usage) error
	EndRequest(ctx context.Context, requestID string, status Status, delta llm.Usage) error
}

// ForRun binds l to a run.
func ForRun(l Ledger, runID string) Requests {
	return scoped{ledger: l, runID: runID}
}

type scoped struct {
	ledger Ledger
	runID  string
}

func (s scoped) InitializeRequest(ctx context.Context, typ RequestType, codeSmellRef string) (string, error) {
	return s.ledger.InitializeRequest(ctx, s.runID, typ, codeSmellRef)
}

func (s scoped) IncrementRetries(ctx context.Context, requestID string, delta llm.Usage) error {
	return s.ledger.IncrementRetries(ctx, requestID, delta)
}

func (s scoped) EndRequest(ctx context.Context, requestID string, status Status, delta llm.Usage) error {
	return s.ledger.EndRequest(ctx, requestID, status, delta)
}

// Discard returns a Requests that records nothing.
func Discard() Requests { return discard{} }

type discard struct{}

func (discard) InitializeRequest(context.Context, RequestType, string) (string, error) {
	return "", nil
}
func (discard) IncrementRetries(context.Context, string, llm.Usage) error { return nil }
func (discard) EndRequest(context.Context, string, Status, llm.Usage) error { return nil }
