/*
Copyright 2025 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package schema_test

import (
	"encoding/json"
	"strings"
	"testing"

	"chainguard.dev/smellfix/agents/schema"
)

type edit struct {
	Body string `json:"body" jsonschema:"required" jsonschema_description:"The new body, complete."`
	Path string `json:"path" jsonschema:"required" jsonschema_description:"Where the body goes."`
}

type edits struct {
	Edits []edit `json:"edits" jsonschema:"required" jsonschema_description:"All edits, in order."`
}

func TestReflect(t *testing.T) {
	s := schema.Reflect(&edits{})
	if s == nil {
		t.Fatal("expected schema")
	}
	if s.Version != "" {
		t.Errorf("Version: got = %q, wanted empty", s.Version)
	}
	if len(s.Required) != 1 || s.Required[0] != "edits" {
		t.Fatalf("unexpected required: %#v", s.Required)
	}

	prop, ok := s.Properties.Get("edits")
	if !ok {
		t.Fatal("missing edits property")
	}
	if prop.Type != "array" {
		t.Errorf("edits type: got = %q, wanted array", prop.Type)
	}
	if prop.Description != "All edits, in order." {
		t.Errorf("edits description: got = %q", prop.Description)
	}
	body, ok := prop.Items.Properties.Get("body")
	if !ok {
		t.Fatal("missing nested body property")
	}
	if body.Description != "The new body, complete." {
		t.Errorf("body description: got = %q", body.Description)
	}
}

func TestDocumentModes(t *testing.T) {
	doc := schema.For[edits]("Edits", "A set of edits.")

	tests := []struct {
		name        string
		mode        schema.Mode
		wantClauses int
	}{{
		name:        "lenient omits additionalProperties",
		mode:        schema.Lenient,
		wantClauses: 0,
	}, {
		name:        "strict closes every object",
		mode:        schema.Strict,
		wantClauses: 2,
	}}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			text, err := doc.JSON(tt.mode)
			if err != nil {
				t.Fatalf("JSON() = %v", err)
			}
			if got := strings.Count(text, `"additionalProperties": false`); got != tt.wantClauses {
				t.Errorf("additionalProperties clauses: got = %d, wanted %d\n%s", got, tt.wantClauses, text)
			}
			if strings.Contains(text, "$schema") || strings.Contains(text, "$id") {
				t.Errorf("rendering carries meta-schema identifiers:\n%s", text)
			}

			m, err := doc.Map(tt.mode)
			if err != nil {
				t.Fatalf("Map() = %v", err)
			}
			if m["title"] != "Edits" {
				t.Errorf("title: got = %v, wanted Edits", m["title"])
			}
			if m["description"] != "A set of edits." {
				t.Errorf("description: got = %v", m["description"])
			}
			if _, err := json.Marshal(m); err != nil {
				t.Errorf("Map() result does not marshal: %v", err)
			}
		})
	}
}

func TestModeString(t *testing.T) {
	for mode, want := range map[schema.Mode]string{
		schema.Lenient:  "lenient",
		schema.Strict:   "strict",
		schema.Mode(9): "Mode(9)",
	} {
		if got := mode.String(); got != want {
			t.Errorf("String(): got = %q, wanted %q", got, want)
		}
	}
}
