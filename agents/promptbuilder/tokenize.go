/*
Copyright 2025 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package promptbuilder

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
)

// resolveFunc supplies the replacement text for a placeholder name.
type resolveFunc func(name string) (string, error)

// walkTemplate performs a single left-to-right pass over template, handing
// every "{{name}}" to resolve. Replacement text is written out as-is and is
// not scanned again.
func walkTemplate(template string, resolve resolveFunc) (string, error) {
	var out strings.Builder

	for rest := template; len(rest) > 0; {
		open := strings.Index(rest, "{{")
		if open < 0 {
			out.WriteString(rest)
			break
		}
		out.WriteString(rest[:open])

		closing := strings.Index(rest[open:], "}}")
		if closing < 0 {
			return "", errors.New("unclosed binding: missing '}}'")
		}
		closing += open

		name := strings.TrimSpace(rest[open+2 : closing])
		if !isValidIdentifier(name) {
			return "", fmt.Errorf("invalid binding identifier %q", name)
		}
		replacement, err := resolve(name)
		if err != nil {
			return "", err
		}
		out.WriteString(replacement)

		rest = rest[closing+2:]
	}

	return out.String(), nil
}

// isValidIdentifier accepts a letter followed by letters, digits or underscores.
func isValidIdentifier(s string) bool {
	for i, r := range s {
		switch {
		case unicode.IsLetter(r):
		case i > 0 && (unicode.IsDigit(r) || r == '_'):
		default:
			return false
		}
	}
	return s != ""
}
