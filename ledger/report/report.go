/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package report renders ledger contents as markdown tables.
package report

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"time"

	"chainguard.dev/smellfix/ledger"
)

// Runs renders one row per run summary.
func Runs(sums []ledger.Summary) (string, error) {
	if len(sums) == 0 {
		return "No runs recorded.\n", nil
	}

	t := newTable(
		text("Run"), text("Model"), text("Branch"), text("Started"), number("Duration"),
		number("Requests"), number("Succeeded"), number("Failed"), number("Open"), number("Retries"),
		number("Prompt"), number("Cached"), number("Response"), number("Total"),
	)
	var total ledger.Tokens
	for _, s := range sums {
		total = total.Add(s.Tokens)
		t.add(
			s.Run.ID,
			s.Run.Model,
			s.Run.Branch,
			s.Run.Start.UTC().Format(time.RFC3339),
			duration(s.Run.Start, s.Run.End),
			strconv.Itoa(s.Requests),
			strconv.Itoa(s.Succeeded),
			strconv.Itoa(s.Failed),
			strconv.Itoa(s.Open),
			strconv.Itoa(s.Retries),
			count(s.Tokens.Prompt),
			count(s.Tokens.Cached),
			count(s.Tokens.Response),
			count(s.Tokens.Total),
		)
	}
	md, err := t.markdown()
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("## Runs\n\n%s\nTokens across all runs: %s\n", md, count(total.Total)), nil
}

// Requests renders the request records of a single run.
func Requests(reqs []ledger.Request) (string, error) {
	if len(reqs) == 0 {
		return "No requests recorded.\n", nil
	}

	t := newTable(
		text("Request"), text("Type"), text("Rule"), text("Status"), number("Retries"),
		number("Prompt"), number("Cached"), number("Response"), number("Total"), number("Duration"),
	)
	for _, r := range reqs {
		rule := r.CodeSmellRef
		if rule == "" {
			rule = "-"
		}
		status := string(r.Status)
		if r.Status == ledger.Failed {
			status = "❌ " + status
		}
		t.add(
			r.ID,
			string(r.Type),
			rule,
			status,
			strconv.Itoa(r.Retries),
			count(r.Tokens.Prompt),
			count(r.Tokens.Cached),
			count(r.Tokens.Response),
			count(r.Tokens.Total),
			duration(r.Start, r.End),
		)
	}
	md, err := t.markdown()
	if err != nil {
		return "", err
	}
	return "## Requests\n\n" + md, nil
}

// Write renders the run summaries from r to w. When runID is set the
// request detail of that run follows the summary.
func Write(ctx context.Context, w io.Writer, r ledger.Reader, runID string) error {
	sums, err := r.Summaries(ctx, runID)
	if err != nil {
		return fmt.Errorf("load summaries: %w", err)
	}
	if runID != "" && len(sums) == 0 {
		return fmt.Errorf("%w: %s", ledger.ErrRunNotFound, runID)
	}
	runs, err := Runs(sums)
	if err != nil {
		return err
	}
	if _, err := io.WriteString(w, runs); err != nil {
		return err
	}
	if runID == "" {
		return nil
	}

	reqs, err := r.Requests(ctx, runID)
	if err != nil {
		return fmt.Errorf("load requests: %w", err)
	}
	detail, err := Requests(reqs)
	if err != nil {
		return err
	}
	_, err = io.WriteString(w, "\n"+detail)
	return err
}

func duration(start time.Time, end *time.Time) string {
	if end == nil {
		return "running"
	}
	return end.Sub(start).Round(time.Millisecond).String()
}

func count(n int64) string {
	return strconv.FormatInt(n, 10)
}
