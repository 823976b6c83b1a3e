/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package llm

import "chainguard.dev/smellfix/agents/schema"

// Prompt is the provider-neutral request for one issue.
type Prompt struct {
	// Text is the user prompt describing the issue to fix.
	Text string
	// RuleID is the short rule identifier, also used to select related source files.
	RuleID string
	// SystemPrompt is optional.
	SystemPrompt string
	// Schema is the optional response schema; adapters pick the rendering they need.
	Schema *schema.Document
}

// Response is the raw text an adapter extracted from a vendor reply,
// together with the usage the vendor reported. It is not yet validated
// as structured data.
type Response struct {
	Text  string
	Usage Usage
}

// Replacement is a proposed full-file rewrite.
type Replacement struct {
	NewCode  string `json:"newCode" jsonschema:"required" jsonschema_description:"The updated code that should replace the old code to fix the issue. Should contain the complete code for the file that should be changed"`
	FilePath string `json:"filePath" jsonschema:"required" jsonschema_description:"The path of the file that should be changed (relative to the repository root). This should be the same path as provided in the source code files in the cache."`
}

// ReplacementResponse is the structured answer every request must produce.
type ReplacementResponse struct {
	Replacements []Replacement `json:"replacements" jsonschema:"required" jsonschema_description:"A list of code replacements that should be applied to fix the issue."`
}

// IsEmpty reports whether the response proposes no replacements.
func (r ReplacementResponse) IsEmpty() bool { return len(r.Replacements) == 0 }

// ReplacementSchema is the response schema for ReplacementResponse.
var ReplacementSchema = schema.For[ReplacementResponse](
	"Replacements",
	"Contains a list of replacements that should be done in the code to fix the issue.",
)
