/*
Copyright 2025 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package schema

import (
	"encoding/json"
	"fmt"

	"github.com/invopop/jsonschema"
)

// Mode selects how object schemas treat properties that are not declared.
type Mode int

const (
	// Lenient omits the additionalProperties clause entirely. Some vendors
	// reject schemas that carry it.
	Lenient Mode = iota
	// Strict emits "additionalProperties": false on every object, as
	// required by vendors that enforce strict structured output.
	Strict
)

func (m Mode) String() string {
	switch m {
	case Lenient:
		return "lenient"
	case Strict:
		return "strict"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// Generator wraps jsonschema.Reflector with project defaults.
type Generator struct {
	reflector jsonschema.Reflector
}

// NewGenerator constructs a generator for the given rendering mode.
func NewGenerator(mode Mode) *Generator {
	return &Generator{
		reflector: jsonschema.Reflector{
			RequiredFromJSONSchemaTags: true,
			ExpandedStruct:             true,
			AllowAdditionalProperties:  mode == Lenient,
			DoNotReference:             true,
			Anonymous:                  true,
		},
	}
}

// Reflect returns the JSON schema for the provided value.
func (g *Generator) Reflect(v any) *jsonschema.Schema {
	s := g.reflector.Reflect(v)
	// Vendors validate the bare document, the meta-schema URI only gets in the way.
	s.Version = ""
	return s
}

// Reflect derives the lenient JSON schema for the provided value.
func Reflect(v any) *jsonschema.Schema {
	return NewGenerator(Lenient).Reflect(v)
}

// ReflectType allocates a zero value of T and reflects it to a schema.
func ReflectType[T any](mode Mode) *jsonschema.Schema {
	var zero T
	return NewGenerator(mode).Reflect(&zero)
}

// Document is a response schema that can be rendered in either mode.
type Document struct {
	lenient *jsonschema.Schema
	strict  *jsonschema.Schema
}

// For builds a Document for T, titled and described at the top level.
func For[T any](title, description string) *Document {
	d := &Document{
		lenient: ReflectType[T](Lenient),
		strict:  ReflectType[T](Strict),
	}
	for _, s := range []*jsonschema.Schema{d.lenient, d.strict} {
		s.Title = title
		s.Description = description
	}
	return d
}

// Schema returns the rendering for mode.
func (d *Document) Schema(mode Mode) *jsonschema.Schema {
	if mode == Strict {
		return d.strict
	}
	return d.lenient
}

// Map returns the rendering for mode as a generic JSON object, the shape
// most vendor SDKs accept for inline schemas.
func (d *Document) Map(mode Mode) (map[string]any, error) {
	raw, err := json.Marshal(d.Schema(mode))
	if err != nil {
		return nil, fmt.Errorf("marshal %s schema: %w", mode, err)
	}
	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("unmarshal %s schema: %w", mode, err)
	}
	return out, nil
}

// JSON returns the rendering for mode as indented JSON text, suitable for
// embedding into a prompt.
func (d *Document) JSON(mode Mode) (string, error) {
	raw, err := json.MarshalIndent(d.Schema(mode), "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal %s schema: %w", mode, err)
	}
	return string(raw), nil
}
