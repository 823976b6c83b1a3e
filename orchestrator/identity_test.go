/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package orchestrator

import (
	"testing"

	"chainguard.dev/smellfix/agents/llm"
)

func TestBranchName(t *testing.T) {
	tests := []struct {
		model llm.Model
		want  string
	}{
		{llm.Phi4, "auto-fix/Ollama/phi4/abc-auto-fix"},
		{llm.ClaudeHaiku3, "auto-fix/Anthropic/claude-3-haiku-20240307/abc-auto-fix"},
		{llm.GeminiFlashLite, "auto-fix/Google/gemini-2.0-flash-lite/abc-auto-fix"},
	}
	for _, tt := range tests {
		if got := BranchName(tt.model, "abc"); got != tt.want {
			t.Errorf("BranchName(%v): got = %q, wanted %q", tt.model, got, tt.want)
		}
	}
}

func TestVendorSanitizer(t *testing.T) {
	if got, want := vendorSanitizer.Replace("Azure (EU) Hosted"), "Azure-_EU_-Hosted"; got != want {
		t.Errorf("Replace(): got = %q, wanted %q", got, want)
	}
}
