/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package claudeadapter

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"chainguard.dev/smellfix/agents/llm"
)

func response(body string) *http.Response {
	return &http.Response{StatusCode: http.StatusOK, Body: io.NopCloser(strings.NewReader(body))}
}

func TestBuildRequest(t *testing.T) {
	a := New(llm.Settings{Model: llm.ClaudeHaiku3, Token: "sk-test", MaxOutputTokens: 4096})

	body, err := a.BuildRequest(context.Background(), llm.Prompt{
		Text:         "Fix S1118",
		SystemPrompt: "You are a developer.",
		Schema:       llm.ReplacementSchema,
	})
	if err != nil {
		t.Fatalf("BuildRequest() = %v", err)
	}
	raw, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("Marshal() = %v", err)
	}

	var got struct {
		Model     string `json:"model"`
		MaxTokens int64  `json:"max_tokens"`
		Messages  []struct {
			Role    string `json:"role"`
			Content []struct {
				Text string `json:"text"`
			} `json:"content"`
		} `json:"messages"`
		System []struct {
			Text string `json:"text"`
		} `json:"system"`
	}
	if err := json.Unmarshal(raw, &got); err != nil {
		t.Fatalf("Unmarshal() = %v", err)
	}

	if got.Model != "claude-3-haiku-20240307" || got.MaxTokens != 4096 {
		t.Errorf("model/max_tokens: got = %s/%d", got.Model, got.MaxTokens)
	}
	if len(got.Messages) != 2 {
		t.Fatalf("messages: got = %d, wanted 2", len(got.Messages))
	}
	if got.Messages[0].Role != "user" || got.Messages[0].Content[0].Text != "Fix S1118" {
		t.Errorf("user message: got = %+v", got.Messages[0])
	}
	if got.Messages[1].Role != "assistant" || got.Messages[1].Content[0].Text != prefill {
		t.Errorf("assistant prefill: got = %+v", got.Messages[1])
	}
	if len(got.System) != 2 {
		t.Fatalf("system blocks: got = %d, wanted 2", len(got.System))
	}
	if got.System[0].Text != "You are a developer." {
		t.Errorf("system prompt: got = %q", got.System[0].Text)
	}
	if !strings.HasPrefix(got.System[1].Text, "# Output format") || strings.Contains(got.System[1].Text, "additionalProperties") {
		t.Errorf("schema block should be the lenient rendering: got = %q", got.System[1].Text)
	}
}

func TestSetHeaders(t *testing.T) {
	h := http.Header{}
	New(llm.Settings{Token: "sk-test"}).SetHeaders(h)
	if h.Get("x-api-key") != "sk-test" || h.Get("anthropic-version") != APIVersion {
		t.Errorf("headers: got = %v", h)
	}
	if h.Get("Authorization") != "" {
		t.Errorf("unexpected Authorization header")
	}
}

func TestParseResponse(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		wantText  string
		wantErr   error
		wantUsage llm.Usage
	}{{
		name:      "continuation gets the prefix back",
		body:      `{"type":"message","role":"assistant","content":[{"type":"text","text":"src/A.cs\",\"newCode\":\"x\"}]}"}],"stop_reason":"end_turn","usage":{"input_tokens":120,"output_tokens":30}}`,
		wantText:  prefill + `src/A.cs","newCode":"x"}]}`,
		wantUsage: llm.Usage{PromptTokens: 120, TotalTokens: 150, CandidateTokens: 30},
	}, {
		name:      "full document is kept",
		body:      `{"content":[{"type":"text","text":"{ \"replacements\":[{\"filePath\": \"a\",\"newCode\":\"b\"}]}"}],"stop_reason":"end_turn","usage":{"input_tokens":1,"output_tokens":2}}`,
		wantText:  `{ "replacements":[{"filePath": "a","newCode":"b"}]}`,
		wantUsage: llm.Usage{PromptTokens: 1, TotalTokens: 3, CandidateTokens: 2},
	}, {
		name:      "max tokens is rejected with usage",
		body:      `{"content":[{"type":"text","text":"partial"}],"stop_reason":"max_tokens","usage":{"input_tokens":10,"output_tokens":4096}}`,
		wantErr:   llm.ErrEmptyOrRejected,
		wantUsage: llm.Usage{PromptTokens: 10, TotalTokens: 4106, CandidateTokens: 4096},
	}, {
		name:      "empty text",
		body:      `{"content":[{"type":"text","text":"  "}],"stop_reason":"end_turn","usage":{"input_tokens":10,"output_tokens":0}}`,
		wantErr:   llm.ErrEmptyOrRejected,
		wantUsage: llm.Usage{PromptTokens: 10, TotalTokens: 10},
	}, {
		name:    "not json",
		body:    `<html>`,
		wantErr: llm.ErrMalformed,
	}}

	a := New(llm.Settings{Model: llm.ClaudeHaiku3})
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := a.ParseResponse(context.Background(), response(tt.body))
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("ParseResponse() error: got = %v, wanted %v", err, tt.wantErr)
				}
				if diff := cmp.Diff(tt.wantUsage, llm.UsageOf(err)); diff != "" {
					t.Errorf("usage (-want, +got):\n%s", diff)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseResponse() = %v", err)
			}
			if got.Text != tt.wantText {
				t.Errorf("text: got = %q, wanted %q", got.Text, tt.wantText)
			}
			if diff := cmp.Diff(tt.wantUsage, got.Usage); diff != "" {
				t.Errorf("usage (-want, +got):\n%s", diff)
			}
		})
	}
}
