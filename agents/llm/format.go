/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package llm

import (
	"chainguard.dev/smellfix/agents/promptbuilder"
	"chainguard.dev/smellfix/agents/schema"
)

var outputFormat = promptbuilder.MustNewPrompt("# Output format\nRespond in json format with the following schema:\n```json\n{{schema}}\n```\n")

// OutputFormatInstructions renders doc as a system message for vendors that
// have no native structured-output parameter.
func OutputFormatInstructions(doc *schema.Document, mode schema.Mode) (string, error) {
	p, err := outputFormat.BindJSON("schema", doc.Schema(mode))
	if err != nil {
		return "", err
	}
	return p.Build()
}
