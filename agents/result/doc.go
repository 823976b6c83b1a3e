/*
Copyright 2025 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

/*
Package result decodes structured JSON answers from language model output.

Models asked for JSON often wrap it in prose, code fences, or emit raw line
breaks inside string values. Decode first tries the text as-is and then,
exactly once, the output of Recover:

	fix, err := result.Decode[llm.ReplacementResponse](text)
	if errors.Is(err, result.ErrUnrecoverable) {
		// the caller decides whether the attempt is worth repeating
	}

# Recovery

Recover drops everything before the first '{' and after the last '}', then
escapes '\n' and '\r' characters that occur inside string literals. Text with
no '{' at all is reported as unrecoverable instead of yielding a false match.

# Empty values

A decoded value that is empty counts as a failure. Types can define
emptiness by implementing Emptier; otherwise the zero value is empty.
*/
package result
