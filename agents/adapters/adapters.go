/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package adapters maps every model in the catalogue to the adapter that
// speaks its vendor's API.
package adapters

import (
	"chainguard.dev/smellfix/agents/adapters/claudeadapter"
	"chainguard.dev/smellfix/agents/adapters/deepseekadapter"
	"chainguard.dev/smellfix/agents/adapters/googleadapter"
	"chainguard.dev/smellfix/agents/adapters/mistraladapter"
	"chainguard.dev/smellfix/agents/adapters/ollamaadapter"
	"chainguard.dev/smellfix/agents/adapters/openaiadapter"
	"chainguard.dev/smellfix/agents/llm"
)

// New returns the adapter for model, configured with s. s.Model is set to
// model. A model without an adapter yields llm.ErrUnsupportedModel.
func New(model llm.Model, s llm.Settings) (llm.Adapter, error) {
	s.Model = model
	switch model.Vendor() {
	case llm.Google:
		return googleadapter.New(s), nil
	case llm.OpenAI:
		return openaiadapter.New(s), nil
	case llm.Anthropic:
		return claudeadapter.New(s), nil
	case llm.MistralAI:
		return mistraladapter.New(s), nil
	case llm.Ollama:
		return ollamaadapter.New(s), nil
	case llm.DeepSeek:
		return deepseekadapter.New(s), nil
	default:
		return nil, llm.Unsupported(model)
	}
}

// DefaultBaseURL returns the public endpoint of vendor, or "" for an
// unknown vendor.
func DefaultBaseURL(vendor llm.Vendor) string {
	switch vendor {
	case llm.Google:
		return googleadapter.DefaultBaseURL
	case llm.OpenAI:
		return openaiadapter.DefaultBaseURL
	case llm.Anthropic:
		return claudeadapter.DefaultBaseURL
	case llm.MistralAI:
		return mistraladapter.DefaultBaseURL
	case llm.Ollama:
		return ollamaadapter.DefaultBaseURL
	case llm.DeepSeek:
		return deepseekadapter.DefaultBaseURL
	default:
		return ""
	}
}
