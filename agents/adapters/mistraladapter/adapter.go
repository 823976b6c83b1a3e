/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package mistraladapter speaks the Mistral chat completions API.
package mistraladapter

import (
	"context"
	"net/http"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/shared"

	"chainguard.dev/smellfix/agents/adapters/chatcompat"
	"chainguard.dev/smellfix/agents/llm"
	"chainguard.dev/smellfix/agents/schema"
)

// DefaultBaseURL is the public Mistral endpoint.
const DefaultBaseURL = "https://api.mistral.ai/"

// Adapter implements llm.Adapter for Mistral models.
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

func (a *Adapter) SupportedModels() []llm.Model { return []llm.Model{llm.DevstralSmall} }

func (a *Adapter) EndpointPath() string { return "v1/chat/completions" }

func (a *Adapter) SetHeaders(h http.Header) { chatcompat.Bearer(h, a.settings.Token) }

func (a *Adapter) BuildRequest(ctx context.Context, p llm.Prompt) (any, error) {
	text, err := a.settings.InlineFiles(ctx, p)
	if err != nil {
		return nil, err
	}
	params := openai.ChatCompletionNewParams{
		Model:     a.settings.Model.Name(),
		MaxTokens: openai.Int(a.settings.MaxTokens()),
	}
	if p.SystemPrompt != "" {
		params.Messages = append(params.Messages, openai.SystemMessage(p.SystemPrompt))
	}
	params.Messages = append(params.Messages, openai.UserMessage(text))

	if p.Schema != nil {
		m, err := p.Schema.Map(schema.Strict)
		if err != nil {
			return nil, err
		}
		params.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONSchema: &shared.ResponseFormatJSONSchemaParam{
				JSONSchema: shared.ResponseFormatJSONSchemaJSONSchemaParam{
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
	raw, err := chatcompat.Read(resp)
	if err != nil {
		return llm.Response{}, err
	}
	c, err := chatcompat.Decode(raw)
	if err != nil {
		return llm.Response{}, err
	}
	usage := llm.NewUsage(c.Usage.PromptTokens, 0, c.Usage.TotalTokens, c.Usage.CompletionTokens, 0)
	return chatcompat.Answer(c, usage)
}
