/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package chatcompat holds the pieces shared by vendors that expose an
// OpenAI-compatible chat completions endpoint.
package chatcompat

import (
	"cmp"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"slices"
	"strings"

	"github.com/openai/openai-go"

	"chainguard.dev/smellfix/agents/llm"
)

// FinishStop is the only finish reason accepted as a complete answer.
const FinishStop = "stop"

// Read returns the raw body of resp, failing with llm.Malformed when it
// cannot be read.
func Read(resp *http.Response) ([]byte, error) {
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, llm.Malformed(llm.Usage{}, fmt.Errorf("read body: %w", err))
	}
	return raw, nil
}

// Decode unmarshals a chat completion envelope.
func Decode(raw []byte) (openai.ChatCompletion, error) {
	var c openai.ChatCompletion
	if err := json.Unmarshal(raw, &c); err != nil {
		return c, llm.Malformed(llm.Usage{}, err)
	}
	return c, nil
}

// Answer picks the first assistant choice in index order and validates
// its finish reason and content.
func Answer(c openai.ChatCompletion, usage llm.Usage) (llm.Response, error) {
	if len(c.Choices) == 0 {
		return llm.Response{}, llm.Rejected(usage, "no choices")
	}
	choices := slices.Clone(c.Choices)
	slices.SortStableFunc(choices, func(a, b openai.ChatCompletionChoice) int {
		return cmp.Compare(a.Index, b.Index)
	})

	i := slices.IndexFunc(choices, func(ch openai.ChatCompletionChoice) bool {
		return string(ch.Message.Role) == "assistant"
	})
	if i < 0 {
		return llm.Response{}, llm.Rejected(usage, "no assistant choice")
	}
	ch := choices[i]
	if ch.FinishReason != FinishStop {
		return llm.Response{}, llm.Rejected(usage, "finish reason %q", ch.FinishReason)
	}
	if strings.TrimSpace(ch.Message.Content) == "" {
		return llm.Response{}, llm.Rejected(usage, "empty content")
	}
	return llm.Response{Text: ch.Message.Content, Usage: usage}, nil
}

// Bearer sets the bearer token header used by every compatible vendor.
func Bearer(h http.Header, token string) {
	if token != "" {
		h.Set("Authorization", "Bearer "+token)
	}
}
