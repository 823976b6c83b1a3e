/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package ledger_test

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"

	"chainguard.dev/smellfix/agents/llm"
	"chainguard.dev/smellfix/ledger"
	"chainguard.dev/smellfix/ledger/ledgertest"
)

func TestMemory(t *testing.T) {
	ledgertest.Run(t, func(*testing.T) ledger.Store { return ledger.NewMemory() })
}

func TestTokensOf(t *testing.T) {
	got := ledger.TokensOf(llm.NewUsage(100, 40, 180, 60, 20))
	want := ledger.Tokens{Total: 180, Cached: 40, Prompt: 100, Response: 80}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("TokensOf (-want, +got):\n%s", diff)
	}
}

func TestDiscard(t *testing.T) {
	d := ledger.Discard()
	ctx := context.Background()
	id, err := d.InitializeRequest(ctx, ledger.CodeGeneration, "S1")
	if err != nil {
		t.Fatalf("InitializeRequest() = %v", err)
	}
	if err := d.IncrementRetries(ctx, id, llm.Usage{}); err != nil {
		t.Errorf("IncrementRetries() = %v", err)
	}
	if err := d.EndRequest(ctx, id, ledger.Succeeded, llm.Usage{}); err != nil {
		t.Errorf("EndRequest() = %v", err)
	}
}
