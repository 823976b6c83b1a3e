/*
Copyright 2025 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package result

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"
)

// ErrUnrecoverable is returned by Decode when neither the raw text nor its
// recovered form yields a non-empty value.
var ErrUnrecoverable = errors.New("response is not recoverable JSON")

// Emptier is implemented by result types that define their own notion of an
// empty value. Types that do not implement it are compared to their zero value.
type Emptier interface {
	IsEmpty() bool
}

// Recover applies a best-effort cleanup to near-JSON model output:
// leading prose before the first '{' and trailing prose after the last '}'
// are dropped, and raw line breaks inside string values are escaped.
// It reports false when the text contains no '{' at all.
func Recover(text string) (string, bool) {
	start := strings.IndexByte(text, '{')
	if start < 0 {
		return "", false
	}
	text = text[start:]

	if end := strings.LastIndexByte(text, '}'); end >= 0 {
		text = text[:end+1]
	}

	return escapeLineBreaks(text), true
}

// escapeLineBreaks replaces literal '\n' and '\r' characters that appear
// inside JSON string values with their two-character escapes. Whitespace
// between tokens is left alone.
func escapeLineBreaks(text string) string {
	var b strings.Builder
	b.Grow(len(text))

	inString, escaped := false, false
	for i := 0; i < len(text); i++ {
		c := text[i]
		switch {
		case escaped:
			escaped = false
		case inString && c == '\\':
			escaped = true
		case c == '"':
			inString = !inString
		case inString && c == '\n':
			b.WriteString(`\n`)
			continue
		case inString && c == '\r':
			b.WriteString(`\r`)
			continue
		}
		b.WriteByte(c)
	}
	return b.String()
}

// Decode unmarshals text into T. When the text is not valid JSON, Recover is
// applied exactly once and the cleaned text is decoded instead. A value that
// decodes but is empty counts as a failure.
func Decode[T any](text string) (T, error) {
	var out T
	err := json.Unmarshal([]byte(text), &out)
	if err == nil && !isEmpty(out) {
		return out, nil
	}

	cleaned, ok := Recover(text)
	if !ok {
		if err == nil {
			return out, fmt.Errorf("%w: decoded to an empty value", ErrUnrecoverable)
		}
		return out, fmt.Errorf("%w: %w", ErrUnrecoverable, err)
	}

	var recovered T
	if err := json.Unmarshal([]byte(cleaned), &recovered); err != nil {
		return recovered, fmt.Errorf("%w: %w", ErrUnrecoverable, err)
	}
	if isEmpty(recovered) {
		return recovered, fmt.Errorf("%w: decoded to an empty value", ErrUnrecoverable)
	}
	return recovered, nil
}

func isEmpty(v any) bool {
	if e, ok := v.(Emptier); ok {
		return e.IsEmpty()
	}
	rv := reflect.ValueOf(v)
	return !rv.IsValid() || rv.IsZero()
}
