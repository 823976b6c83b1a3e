/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package openaiadapter speaks the OpenAI Responses API.
package openaiadapter

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/responses"

	"chainguard.dev/smellfix/agents/llm"
	"chainguard.dev/smellfix/agents/schema"
)

// DefaultBaseURL is the public OpenAI endpoint.
const DefaultBaseURL = "https://api.openai.com/"

// Adapter implements llm.Adapter for OpenAI models.
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

func (a *Adapter) SupportedModels() []llm.Model { return []llm.Model{llm.GPT41Nano} }

func (a *Adapter) EndpointPath() string { return "v1/responses" }

func (a *Adapter) SetHeaders(h http.Header) {
	h.Set("Authorization", "Bearer "+a.settings.Token)
}

func (a *Adapter) BuildRequest(ctx context.Context, p llm.Prompt) (any, error) {
	text, err := a.settings.InlineFiles(ctx, p)
	if err != nil {
		return nil, err
	}
	params := responses.ResponseNewParams{
		Model:           a.settings.Model.Name(),
		Input:           responses.ResponseNewParamsInputUnion{OfString: openai.String(text)},
		MaxOutputTokens: openai.Int(a.settings.MaxTokens()),
		Store:           openai.Bool(false),
	}
	if p.SystemPrompt != "" {
		params.Instructions = openai.String(p.SystemPrompt)
	}
	if p.Schema != nil {
		// Structured outputs reject schemas that allow undeclared properties.
		m, err := p.Schema.Map(schema.Strict)
		if err != nil {
			return nil, err
		}
		params.Text = responses.ResponseTextConfigParam{
			Format: responses.ResponseFormatTextConfigUnionParam{
				OfJSONSchema: &responses.ResponseFormatTextJSONSchemaConfigParam{
					Name:   "response_schema",
					Schema: m,
					Strict: openai.Bool(true),
				},
			},
		}
	}
	return params, nil
}

func (a *Adapter) ParseResponse(_ context.Context, resp *http.Response) (llm.Response, error) {
	var r responses.Response
	if err := json.NewDecoder(resp.Body).Decode(&r); err != nil {
		return llm.Response{}, llm.Malformed(llm.Usage{}, err)
	}

	u := r.Usage
	usage := llm.NewUsage(u.InputTokens, u.InputTokensDetails.CachedTokens, u.TotalTokens,
		u.OutputTokens, u.OutputTokensDetails.ReasoningTokens)

	if !strings.EqualFold(string(r.Status), string(responses.ResponseStatusCompleted)) {
		return llm.Response{}, llm.Rejected(usage, "status %q", r.Status)
	}

	var text string
	for _, item := range r.Output {
		if string(item.Role) != "assistant" {
			continue
		}
		for _, c := range item.Content {
			if c.Type == "output_text" {
				text = c.Text
				break
			}
		}
		break
	}
	if strings.TrimSpace(text) == "" {
		return llm.Response{}, llm.Rejected(usage, "empty content")
	}
	return llm.Response{Text: text, Usage: usage}, nil
}
