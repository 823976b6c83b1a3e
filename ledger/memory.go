/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package ledger

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"chainguard.dev/smellfix/agents/llm"
)

// Memory is an in-process Store.
type Memory struct {
	mu       sync.Mutex
	now      func() time.Time
	runs     map[string]*Run
	requests map[string]*Request
	order    []string
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		now:      func() time.Time { return time.Now().UTC() },
		runs:     make(map[string]*Run),
		requests: make(map[string]*Request),
	}
}

var _ Store = (*Memory)(nil)

func (m *Memory) InitializeRun(_ context.Context, run Run) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if run.ID == "" {
		return fmt.Errorf("ledger: run id is required")
	}
	if _, ok := m.runs[run.ID]; ok {
		return fmt.Errorf("ledger: run %s already exists", run.ID)
	}
	run.Start = m.now()
	run.End = nil
	m.runs[run.ID] = &run
	return nil
}

func (m *Memory) EndRun(_ context.Context, runID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	run, ok := m.runs[runID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	if run.End == nil {
		end := m.now()
		run.End = &end
	}
	return nil
}

func (m *Memory) InitializeRequest(_ context.Context, runID string, typ RequestType, codeSmellRef string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.runs[runID]; !ok {
		return "", fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	req := &Request{
		ID:           uuid.NewString(),
		RunID:        runID,
		Type:         typ,
		Status:       Open,
		CodeSmellRef: codeSmellRef,
		Start:        m.now(),
	}
	m.requests[req.ID] = req
	m.order = append(m.order, req.ID)
	return req.ID, nil
}

func (m *Memory) IncrementRetries(_ context.Context, requestID string, delta llm.Usage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	req, ok := m.requests[requestID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrRequestNotFound, requestID)
	}
	if req.Status != Open {
		return nil
	}
	req.Retries++
	req.Tokens = req.Tokens.Add(TokensOf(delta))
	return nil
}

func (m *Memory) EndRequest(_ context.Context, requestID string, status Status, delta llm.Usage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	req, ok := m.requests[requestID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrRequestNotFound, requestID)
	}
	if req.Status != Open {
		return nil
	}
	end := m.now()
	req.Status = status
	req.End = &end
	req.Tokens = req.Tokens.Add(TokensOf(delta))
	return nil
}

func (m *Memory) Requests(_ context.Context, runID string) ([]Request, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Request
	for _, id := range m.order {
		if r := m.requests[id]; r.RunID == runID {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (m *Memory) Summaries(_ context.Context, runID string) ([]Summary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	byRun := make(map[string]*Summary)
	for id, run := range m.runs {
		if runID != "" && id != runID {
			continue
		}
		byRun[id] = &Summary{Run: *run}
	}
	for _, id := range m.order {
		r := m.requests[id]
		s, ok := byRun[r.RunID]
		if !ok {
			continue
		}
		s.add(*r)
	}
	out := make([]Summary, 0, len(byRun))
	for _, s := range byRun {
		out = append(out, *s)
	}
	slices.SortFunc(out, func(a, b Summary) int {
		return cmp.Or(b.Run.Start.Compare(a.Run.Start), cmp.Compare(a.Run.ID, b.Run.ID))
	})
	return out, nil
}

func (m *Memory) Close() error { return nil }

func (s *Summary) add(r Request) {
	s.Requests++
	s.Retries += r.Retries
	s.Tokens = s.Tokens.Add(r.Tokens)
	switch r.Status {
	case Succeeded:
		s.Succeeded++
	case Failed:
		s.Failed++
	default:
		s.Open++
	}
}
