/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package deepseekadapter speaks the DeepSeek chat completions API.
//
// DeepSeek has no server-side file cache, so every request carries the
// source files of the rule being fixed inline.
package deepseekadapter

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/shared"

	"chainguard.dev/smellfix/agents/adapters/chatcompat"
	"chainguard.dev/smellfix/agents/llm"
	"chainguard.dev/smellfix/agents/schema"
)

// DefaultBaseURL is the public DeepSeek endpoint.
const DefaultBaseURL = "https://api.deepseek.com/"

// Adapter implements llm.Adapter for DeepSeek models.
type Adapter struct {
	settings llm.Settings
}

var (
	_ llm.Adapter      = (*Adapter)(nil)
	_ llm.HeaderSetter = (*Adapter)(nil)
)

// New returns an adapter for s.Model. s.Files supplies the source files
// inlined into each prompt.
func New(s llm.Settings) *Adapter {
	return &Adapter{settings: s}
}

func (a *Adapter) SupportedModels() []llm.Model { return []llm.Model{llm.DeepSeekChat} }

func (a *Adapter) EndpointPath() string { return "chat/completions" }

func (a *Adapter) SetHeaders(h http.Header) { chatcompat.Bearer(h, a.settings.Token) }

func (a *Adapter) BuildRequest(ctx context.Context, p llm.Prompt) (any, error) {
	params := openai.ChatCompletionNewParams{
		Model:     a.settings.Model.Name(),
		MaxTokens: openai.Int(a.settings.MaxTokens()),
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{},
		},
	}
	if p.SystemPrompt != "" {
		params.Messages = append(params.Messages, openai.SystemMessage(p.SystemPrompt))
	}
	// json_object mode needs the shape spelled out in the conversation.
	if p.Schema != nil {
		format, err := llm.OutputFormatInstructions(p.Schema, schema.Lenient)
		if err != nil {
			return nil, err
		}
		params.Messages = append(params.Messages, openai.SystemMessage(format))
	}

	text, err := a.settings.InlineFiles(ctx, p)
	if err != nil {
		return nil, err
	}
	params.Messages = append(params.Messages, openai.UserMessage(text))
	return params, nil
}

// usage carries the cache counter DeepSeek adds to the OpenAI shape.
type usage struct {
	Usage struct {
		PromptCacheHitTokens int64 `json:"prompt_cache_hit_tokens"`
	} `json:"usage"`
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
	var extra usage
	if err := json.Unmarshal(raw, &extra); err != nil {
		return llm.Response{}, llm.Malformed(llm.Usage{}, err)
	}

	u := c.Usage
	return chatcompat.Answer(c, llm.NewUsage(u.PromptTokens, extra.Usage.PromptCacheHitTokens,
		u.TotalTokens, u.CompletionTokens, u.CompletionTokensDetails.ReasoningTokens))
}
