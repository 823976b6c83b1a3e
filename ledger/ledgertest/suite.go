/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package ledgertest holds a conformance suite every ledger.Store backend runs.
package ledgertest

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"chainguard.dev/smellfix/agents/llm"
	"chainguard.dev/smellfix/ledger"
)

// Run exercises a Store produced fresh by open for every subtest.
func Run(t *testing.T, open func(t *testing.T) ledger.Store) {
	t.Run("retries accumulate usage", func(t *testing.T) {
		ctx := context.Background()
		s := open(t)
		require.NoError(t, s.InitializeRun(ctx, ledger.Run{ID: "run-1", Branch: "auto-fix/x", Model: "phi4"}))

		id, err := s.InitializeRequest(ctx, "run-1", ledger.CodeGeneration, "S1118")
		require.NoError(t, err)
		require.NotEmpty(t, id)

		require.NoError(t, s.IncrementRetries(ctx, id, llm.NewUsage(10, 1, 15, 5, 0)))
		require.NoError(t, s.IncrementRetries(ctx, id, llm.NewUsage(20, 0, 30, 8, 2)))
		require.NoError(t, s.EndRequest(ctx, id, ledger.Succeeded, llm.NewUsage(30, 3, 45, 15, 0)))

		reqs, err := s.Requests(ctx, "run-1")
		require.NoError(t, err)
		require.Len(t, reqs, 1)
		got := reqs[0]
		require.Equal(t, ledger.Succeeded, got.Status)
		require.Equal(t, 2, got.Retries)
		require.Equal(t, "S1118", got.CodeSmellRef)
		require.Equal(t, ledger.CodeGeneration, got.Type)
		require.Equal(t, ledger.Tokens{Total: 90, Cached: 4, Prompt: 60, Response: 30}, got.Tokens)
		require.NotNil(t, got.End)
	})

	t.Run("closing is idempotent", func(t *testing.T) {
		ctx := context.Background()
		s := open(t)
		require.NoError(t, s.InitializeRun(ctx, ledger.Run{ID: "run-2", Branch: "b", Model: "m"}))
		id, err := s.InitializeRequest(ctx, "run-2", ledger.CodeGeneration, "")
		require.NoError(t, err)

		require.NoError(t, s.EndRequest(ctx, id, ledger.Failed, llm.NewUsage(5, 0, 7, 2, 0)))
		require.NoError(t, s.EndRequest(ctx, id, ledger.Succeeded, llm.NewUsage(100, 0, 100, 0, 0)))
		require.NoError(t, s.IncrementRetries(ctx, id, llm.NewUsage(100, 0, 100, 0, 0)))

		reqs, err := s.Requests(ctx, "run-2")
		require.NoError(t, err)
		require.Len(t, reqs, 1)
		require.Equal(t, ledger.Failed, reqs[0].Status)
		require.Equal(t, 0, reqs[0].Retries)
		require.Equal(t, ledger.Tokens{Total: 7, Prompt: 5, Response: 2}, reqs[0].Tokens)
	})

	t.Run("unknown ids", func(t *testing.T) {
		ctx := context.Background()
		s := open(t)
		_, err := s.InitializeRequest(ctx, "missing", ledger.CodeGeneration, "")
		require.True(t, errors.Is(err, ledger.ErrRunNotFound), "got %v", err)
		require.True(t, errors.Is(s.EndRun(ctx, "missing"), ledger.ErrRunNotFound))

		unknown := "00000000-0000-0000-0000-000000000000"
		require.True(t, errors.Is(s.IncrementRetries(ctx, unknown, llm.Usage{}), ledger.ErrRequestNotFound))
		require.True(t, errors.Is(s.EndRequest(ctx, unknown, ledger.Failed, llm.Usage{}), ledger.ErrRequestNotFound))
	})

	t.Run("summaries", func(t *testing.T) {
		ctx := context.Background()
		s := open(t)
		require.NoError(t, s.InitializeRun(ctx, ledger.Run{ID: "run-a", Branch: "auto-fix/a", Model: "phi4"}))

		scoped := ledger.ForRun(s, "run-a")
		cache, err := scoped.InitializeRequest(ctx, ledger.CacheCreation, "")
		require.NoError(t, err)
		require.NoError(t, scoped.EndRequest(ctx, cache, ledger.Succeeded, llm.NewUsage(1000, 0, 1000, 0, 0)))

		fix, err := scoped.InitializeRequest(ctx, ledger.CodeGeneration, "S100")
		require.NoError(t, err)
		require.NoError(t, scoped.IncrementRetries(ctx, fix, llm.NewUsage(10, 0, 12, 2, 0)))
		require.NoError(t, scoped.EndRequest(ctx, fix, ledger.Failed, llm.NewUsage(10, 0, 12, 2, 0)))

		_, err = scoped.InitializeRequest(ctx, ledger.CodeGeneration, "S200")
		require.NoError(t, err)
		require.NoError(t, s.EndRun(ctx, "run-a"))

		sums, err := s.Summaries(ctx, "run-a")
		require.NoError(t, err)
		require.Len(t, sums, 1)
		got := sums[0]
		require.Equal(t, "run-a", got.Run.ID)
		require.Equal(t, "auto-fix/a", got.Run.Branch)
		require.Equal(t, "phi4", got.Run.Model)
		require.NotNil(t, got.Run.End)
		require.Equal(t, 3, got.Requests)
		require.Equal(t, 1, got.Succeeded)
		require.Equal(t, 1, got.Failed)
		require.Equal(t, 1, got.Open)
		require.Equal(t, 1, got.Retries)
		require.Equal(t, ledger.Tokens{Total: 1024, Prompt: 1020, Response: 4}, got.Tokens)

		require.NoError(t, s.InitializeRun(ctx, ledger.Run{ID: "run-b", Branch: "auto-fix/b", Model: "phi4"}))
		all, err := s.Summaries(ctx, "")
		require.NoError(t, err)
		require.Len(t, all, 2)
	})
}
