/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package llm

// Usage is the provider-neutral token accounting for one or more requests.
// Fields are never negative; counts a vendor does not report are zero.
type Usage struct {
	PromptTokens    int64 `json:"promptTokens"`
	CachedTokens    int64 `json:"cachedTokens"`
	TotalTokens     int64 `json:"totalTokens"`
	CandidateTokens int64 `json:"candidateTokens"`
	ReasoningTokens int64 `json:"reasoningTokens"`
}

// NewUsage builds a Usage, clamping negative counts to zero.
func NewUsage(prompt, cached, total, candidates, reasoning int64) Usage {
	return Usage{
		PromptTokens:    max(prompt, 0),
		CachedTokens:    max(cached, 0),
		TotalTokens:     max(total, 0),
		CandidateTokens: max(candidates, 0),
		ReasoningTokens: max(reasoning, 0),
	}
}

// ActualRequestTokens is the number of tokens sent to the model.
func (u Usage) ActualRequestTokens() int64 { return u.PromptTokens }

// ActualResponseTokens is the number of tokens the model produced, including reasoning.
func (u Usage) ActualResponseTokens() int64 { return u.CandidateTokens + u.ReasoningTokens }

// ActualUsedTokens is ActualRequestTokens plus ActualResponseTokens.
func (u Usage) ActualUsedTokens() int64 { return u.ActualRequestTokens() + u.ActualResponseTokens() }

// Add returns the field-wise sum of u and o.
func (u Usage) Add(o Usage) Usage {
	return NewUsage(
		u.PromptTokens+o.PromptTokens,
		u.CachedTokens+o.CachedTokens,
		u.TotalTokens+o.TotalTokens,
		u.CandidateTokens+o.CandidateTokens,
		u.ReasoningTokens+o.ReasoningTokens,
	)
}

// IsZero reports whether no tokens were recorded.
func (u Usage) IsZero() bool { return u == Usage{} }
