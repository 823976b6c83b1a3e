/*
Copyright 2025 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

/*
Package promptbuilder builds prompts from "{{name}}" templates.

Templates passed to NewPrompt must be string literals, so the shape of every
prompt is fixed at compile time. Values are attached with the Bind methods,
each of which returns a new Prompt:

	var issuePrompt = promptbuilder.MustNewPrompt(`Rule {{rule}} in {{file}}`)

	p, err := issuePrompt.BindText("rule", rule.Key)
	...
	text, err := p.Build()

Substitution happens in a single pass. Bound text is written as-is and is
never scanned for placeholders, so a rule description that happens to
contain "{{x}}" cannot pull in other bindings.

# Operator templates

Templates that come from configuration, such as commit messages, go through
Substitute instead. It never fails: known "{{KEY}}" tokens are replaced and
everything else is left exactly as written.
*/
package promptbuilder
