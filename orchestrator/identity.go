/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package orchestrator

import (
	"strings"

	"chainguard.dev/smellfix/agents/llm"
)

var vendorSanitizer = strings.NewReplacer("(", "_", ")", "_", " ", "-")

// BranchName is the fix branch for a run:
// auto-fix/{vendor}/{model}/{correlationID}-auto-fix.
func BranchName(model llm.Model, correlationID string) string {
	vendor := vendorSanitizer.Replace(string(model.Vendor()))
	name := strings.ReplaceAll(model.Name(), ":", "-")
	return "auto-fix/" + vendor + "/" + name + "/" + correlationID + "-auto-fix"
}
