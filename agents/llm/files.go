/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package llm

import (
	"strings"

	"chainguard.dev/smellfix/sourcecode"
)

// WithFiles appends the files to text as a "# Files" section, one fenced
// block per file, for vendors that receive source code inline.
func WithFiles(text string, files []sourcecode.SourceFile) string {
	var b strings.Builder
	b.WriteString(text)
	b.WriteString("\n\n\n# Files\n")
	for _, f := range files {
		b.WriteString("## File Path: ")
		b.WriteString(f.Path)
		b.WriteString("\nContent:\n```\n")
		b.WriteString(f.Content)
		b.WriteString("\n```\n")
	}
	return b.String()
}
