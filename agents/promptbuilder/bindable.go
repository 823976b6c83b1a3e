/*
Copyright 2025 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package promptbuilder

// Bindable is implemented by values that know how to fill a prompt
// template with their own data.
type Bindable interface {
	// Bind returns a new prompt with the receiver's values bound.
	Bind(prompt *Prompt) (*Prompt, error)
}

// Render binds b into p and builds the final text.
func Render(p *Prompt, b Bindable) (string, error) {
	bound, err := b.Bind(p)
	if err != nil {
		return "", err
	}
	return bound.Build()
}
