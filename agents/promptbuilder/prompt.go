/*
Copyright 2025 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package promptbuilder

import (
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"strings"
)

// stringLiteral keeps runtime strings out of NewPrompt. Untyped string
// constants convert to it implicitly; string variables do not.
type stringLiteral string

// Prompt is a parsed template together with the values bound so far.
// Bind methods return a copy, so a package-level Prompt can be shared.
type Prompt struct {
	template     string
	placeholders []string
	values       map[string]string
}

// NewPrompt parses template and records its placeholders in order of first
// appearance.
func NewPrompt(template stringLiteral) (*Prompt, error) {
	var names []string
	if _, err := walkTemplate(string(template), func(name string) (string, error) {
		if !slices.Contains(names, name) {
			names = append(names, name)
		}
		return "", nil
	}); err != nil {
		return nil, err
	}
	return &Prompt{
		template:     string(template),
		placeholders: names,
		values:       map[string]string{},
	}, nil
}

// MustNewPrompt is NewPrompt for package-level templates. It panics when
// the template does not parse.
//
//	var p = promptbuilder.MustNewPrompt(`Hello {{name}}`)
func MustNewPrompt(template stringLiteral) *Prompt {
	return Must(NewPrompt(template))
}

// Must panics if err is non-nil and returns p otherwise.
func Must(p *Prompt, err error) *Prompt {
	if err != nil {
		panic(err)
	}
	return p
}

// Placeholders returns the placeholder names of the template in order of
// first appearance.
func (p *Prompt) Placeholders() []string {
	return slices.Clone(p.placeholders)
}

// BindText binds runtime text, such as a rule description fetched from the
// analysis service. The text is inserted verbatim and is never scanned for
// further placeholders.
func (p *Prompt) BindText(name, value string) (*Prompt, error) {
	return p.bind(name, value)
}

// BindJSON binds data rendered as indented JSON.
func (p *Prompt) BindJSON(name string, data any) (*Prompt, error) {
	b, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("binding %q: %w", name, err)
	}
	return p.bind(name, string(b))
}

func (p *Prompt) bind(name, value string) (*Prompt, error) {
	if !slices.Contains(p.placeholders, name) {
		return nil, fmt.Errorf("binding %q not found in template", name)
	}
	if _, ok := p.values[name]; ok {
		return nil, fmt.Errorf("binding %q already bound", name)
	}
	values := maps.Clone(p.values)
	values[name] = value
	return &Prompt{template: p.template, placeholders: p.placeholders, values: values}, nil
}

// Build renders the template. Every placeholder must be bound; the error
// names all that are not.
func (p *Prompt) Build() (string, error) {
	var unbound []string
	for _, name := range p.placeholders {
		if _, ok := p.values[name]; !ok {
			unbound = append(unbound, name)
		}
	}
	if len(unbound) > 0 {
		return "", fmt.Errorf("unbound placeholders: %s", strings.Join(unbound, ", "))
	}
	return walkTemplate(p.template, func(name string) (string, error) {
		return p.values[name], nil
	})
}
