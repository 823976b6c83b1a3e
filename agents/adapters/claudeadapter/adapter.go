/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package claudeadapter speaks the Anthropic Messages API.
package claudeadapter

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"

	"chainguard.dev/smellfix/agents/llm"
	"chainguard.dev/smellfix/agents/schema"
)

const (
	// DefaultBaseURL is the public Anthropic endpoint.
	DefaultBaseURL = "https://api.anthropic.com/"
	// APIVersion is sent as the anthropic-version header.
	APIVersion = "2023-06-01"

	// prefill starts the assistant turn so the model continues with the
	// expected JSON document instead of prose.
	prefill = `{ "replacements":[{"filePath": "`
)

// Adapter implements llm.Adapter for Claude models.
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

func (a *Adapter) SupportedModels() []llm.Model { return []llm.Model{llm.ClaudeHaiku3} }

func (a *Adapter) EndpointPath() string { return "v1/messages" }

func (a *Adapter) SetHeaders(h http.Header) {
	h.Set("x-api-key", a.settings.Token)
	h.Set("anthropic-version", APIVersion)
}

func (a *Adapter) BuildRequest(ctx context.Context, p llm.Prompt) (any, error) {
	text, err := a.settings.InlineFiles(ctx, p)
	if err != nil {
		return nil, err
	}
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(a.settings.Model.Name()),
		MaxTokens: a.settings.MaxTokens(),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(text)),
			anthropic.NewAssistantMessage(anthropic.NewTextBlock(prefill)),
		},
	}
	if p.SystemPrompt != "" {
		params.System = append(params.System, anthropic.TextBlockParam{Text: p.SystemPrompt})
	}
	if p.Schema != nil {
		format, err := llm.OutputFormatInstructions(p.Schema, schema.Lenient)
		if err != nil {
			return nil, err
		}
		params.System = append(params.System, anthropic.TextBlockParam{Text: format})
	}
	return params, nil
}

func (a *Adapter) ParseResponse(_ context.Context, resp *http.Response) (llm.Response, error) {
	var msg anthropic.Message
	if err := json.NewDecoder(resp.Body).Decode(&msg); err != nil {
		return llm.Response{}, llm.Malformed(llm.Usage{}, err)
	}

	in, out := msg.Usage.InputTokens, msg.Usage.OutputTokens
	usage := llm.NewUsage(in, msg.Usage.CacheReadInputTokens, in+out, out, 0)

	if msg.StopReason != anthropic.StopReasonEndTurn {
		return llm.Response{}, llm.Rejected(usage, "stop reason %q", msg.StopReason)
	}

	var text string
	for _, block := range msg.Content {
		if block.Type == "text" {
			text = block.Text
			break
		}
	}
	if strings.TrimSpace(text) == "" {
		return llm.Response{}, llm.Rejected(usage, "empty content")
	}

	// The reply continues the prefilled turn; put the prefix back.
	if !strings.HasPrefix(text, prefill) {
		text = prefill + text
	}
	return llm.Response{Text: text, Usage: usage}, nil
}
