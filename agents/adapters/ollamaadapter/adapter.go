/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package ollamaadapter speaks the Ollama generate API for locally served
// models.
package ollamaadapter

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"chainguard.dev/smellfix/agents/llm"
	"chainguard.dev/smellfix/agents/schema"
)

// DefaultBaseURL is where a local Ollama daemon listens.
const DefaultBaseURL = "http://localhost:11434/"

const doneStop = "stop"

type options struct {
	NumPredict int64 `json:"num_predict,omitempty"`
}

type generateRequest struct {
	Model   string         `json:"model"`
	Prompt  string         `json:"prompt"`
	System  string         `json:"system,omitempty"`
	Format  map[string]any `json:"format,omitempty"`
	Stream  bool           `json:"stream"`
	Options options        `json:"options"`
}

type generateResponse struct {
	Model           string `json:"model"`
	Response        string `json:"response"`
	Done            bool   `json:"done"`
	DoneReason      string `json:"done_reason"`
	PromptEvalCount int64  `json:"prompt_eval_count"`
	EvalCount       int64  `json:"eval_count"`
}

// Adapter implements llm.Adapter for Ollama models.
type Adapter struct {
	settings llm.Settings
}

var (
	_ llm.Adapter      = (*Adapter)(nil)
	_ llm.HeaderSetter = (*Adapter)(nil)
)

// New returns an adapter for s.Model.
func New(s llm.Settings) *Adapter {
	return &Adapter{settings: s}
}

func (a *Adapter) SupportedModels() []llm.Model { return []llm.Model{llm.Phi4} }

func (a *Adapter) EndpointPath() string { return "api/generate" }

// SetHeaders adds a bearer token only when one is configured, for daemons
// sitting behind an authenticating proxy.
func (a *Adapter) SetHeaders(h http.Header) {
	if a.settings.Token != "" {
		h.Set("Authorization", "Bearer "+a.settings.Token)
	}
}

func (a *Adapter) BuildRequest(ctx context.Context, p llm.Prompt) (any, error) {
	text, err := a.settings.InlineFiles(ctx, p)
	if err != nil {
		return nil, err
	}
	req := generateRequest{
		Model:   a.settings.Model.Name(),
		Prompt:  text,
		System:  p.SystemPrompt,
		Options: options{NumPredict: a.settings.MaxTokens()},
	}
	if p.Schema != nil {
		m, err := p.Schema.Map(schema.Strict)
		if err != nil {
			return nil, err
		}
		req.Format = m
	}
	return req, nil
}

func (a *Adapter) ParseResponse(_ context.Context, resp *http.Response) (llm.Response, error) {
	var r generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&r); err != nil {
		return llm.Response{}, llm.Malformed(llm.Usage{}, err)
	}

	usage := llm.NewUsage(r.PromptEvalCount, 0, r.PromptEvalCount+r.EvalCount, r.EvalCount, 0)
	if !r.Done || r.DoneReason != doneStop {
		return llm.Response{}, llm.Rejected(usage, "done=%t reason %q", r.Done, r.DoneReason)
	}
	if strings.TrimSpace(r.Response) == "" {
		return llm.Response{}, llm.Rejected(usage, "empty response")
	}
	return llm.Response{Text: r.Response, Usage: usage}, nil
}
