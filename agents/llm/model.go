/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package llm

import (
	"fmt"
	"strings"
)

// Model identifies one supported language model. The set is closed: every
// value returned by Models has a wire name and a vendor.
type Model int

const (
	// ModelNone is the unset model and is never valid.
	ModelNone Model = iota
	GeminiFlashLite
	GPT41Nano
	ClaudeHaiku3
	DevstralSmall
	Phi4
	DeepSeekChat
)

// Vendor names the provider that serves a model.
type Vendor string

const (
	Google    Vendor = "Google"
	OpenAI    Vendor = "OpenAI"
	Anthropic Vendor = "Anthropic"
	MistralAI Vendor = "MistralAI"
	Ollama    Vendor = "Ollama"
	DeepSeek  Vendor = "DeepSeek"
)

type modelInfo struct {
	ident  string
	name   string
	vendor Vendor
}

var catalogue = map[Model]modelInfo{
	GeminiFlashLite: {ident: "GeminiFlashLite", name: "gemini-2.0-flash-lite", vendor: Google},
	GPT41Nano:       {ident: "GPT41Nano", name: "gpt-4.1-nano", vendor: OpenAI},
	ClaudeHaiku3:    {ident: "ClaudeHaiku3", name: "claude-3-haiku-20240307", vendor: Anthropic},
	DevstralSmall:   {ident: "DevstralSmall", name: "devstral-small-2505", vendor: MistralAI},
	Phi4:            {ident: "Phi4", name: "phi4", vendor: Ollama},
	DeepSeekChat:    {ident: "DeepSeekChat", name: "deepseek-chat", vendor: DeepSeek},
}

// Models returns every supported model in declaration order.
func Models() []Model {
	return []Model{GeminiFlashLite, GPT41Nano, ClaudeHaiku3, DevstralSmall, Phi4, DeepSeekChat}
}

// Valid reports whether m is a known model.
func (m Model) Valid() bool {
	_, ok := catalogue[m]
	return ok
}

// Name returns the identifier the vendor API expects, or "" for an unknown model.
func (m Model) Name() string {
	return catalogue[m].name
}

// Vendor returns the provider of m, or "" for an unknown model.
func (m Model) Vendor() Vendor {
	return catalogue[m].vendor
}

func (m Model) String() string {
	if info, ok := catalogue[m]; ok {
		return info.ident
	}
	if m == ModelNone {
		return "None"
	}
	return fmt.Sprintf("Model(%d)", int(m))
}

// ParseModel resolves either the enum identifier ("ClaudeHaiku3") or the
// vendor model name ("claude-3-haiku-20240307"), case-insensitively.
func ParseModel(s string) (Model, error) {
	s = strings.TrimSpace(s)
	for _, m := range Models() {
		info := catalogue[m]
		if strings.EqualFold(s, info.ident) || strings.EqualFold(s, info.name) {
			return m, nil
		}
	}
	return ModelNone, fmt.Errorf("%w: %q", ErrUnsupportedModel, s)
}

// UnmarshalText implements encoding.TextUnmarshaler so models can be read
// from the environment and from YAML settings.
func (m *Model) UnmarshalText(text []byte) error {
	if len(strings.TrimSpace(string(text))) == 0 {
		*m = ModelNone
		return nil
	}
	parsed, err := ParseModel(string(text))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (m Model) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}
