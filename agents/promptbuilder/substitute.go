/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package promptbuilder

import (
	"slices"
	"strings"
)

// Substitute replaces each "{{KEY}}" in template with values[KEY].
// It is meant for operator-supplied templates such as commit messages:
// the template is not validated, placeholders without a value are left
// untouched, and keys are matched exactly.
func Substitute(template string, values map[string]string) string {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	// Deterministic order for keys that prefix one another.
	slices.Sort(keys)

	pairs := make([]string, 0, 2*len(keys))
	for _, k := range keys {
		pairs = append(pairs, "{{"+k+"}}", values[k])
	}
	return strings.NewReplacer(pairs...).Replace(template)
}
