/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package analysis holds the types shared by static-analysis clients.
package analysis

import (
	"context"
	"strings"
)

// RuleID is a fully qualified rule key such as "csharpsquid:S1118".
type RuleID string

// Short returns the part after the repository prefix ("S1118"), or the
// whole key when there is no prefix.
func (r RuleID) Short() string {
	if _, short, ok := strings.Cut(string(r), ":"); ok {
		return short
	}
	return string(r)
}

// TextRange is the inclusive line span an issue covers.
type TextRange struct {
	StartLine int
	EndLine   int
}

// Issue is one finding reported against a file.
type Issue struct {
	Rule     RuleID
	FilePath string
	Range    TextRange
	Message  string
}

// Rule describes what a rule detects. Description may contain HTML.
type Rule struct {
	ID          RuleID
	Title       string
	Description string
}

// Project selects the issues to fetch.
type Project struct {
	Key      string
	Language string
}

// Client is implemented by analysis services.
type Client interface {
	GetIssues(ctx context.Context, project Project) ([]Issue, error)
	GetRule(ctx context.Context, id RuleID) (Rule, error)
}
