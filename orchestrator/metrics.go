/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package orchestrator

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Issue outcomes.
const (
	outcomeFixed     = "fixed"
	outcomeUnchanged = "unchanged"
	outcomeFailed    = "failed"
)

// Replacement outcomes.
const (
	replacementApplied    = "applied"
	replacementResolved   = "resolved"
	replacementUnresolved = "unresolved"
	replacementFailed     = "failed"
)

var (
	issuesCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "smellfix_issues_total",
			Help: "Issues worked on, by outcome",
		},
		[]string{"model", "outcome"},
	)

	replacementsCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "smellfix_replacements_total",
			Help: "Replacements returned by the model, by how they were applied",
		},
		[]string{"model", "outcome"},
	)
)

type runMetrics struct {
	model string
}

func (m runMetrics) issue(outcome string) {
	issuesCounter.With(prometheus.Labels{"model": m.model, "outcome": outcome}).Inc()
}

func (m runMetrics) replacement(outcome string) {
	replacementsCounter.With(prometheus.Labels{"model": m.model, "outcome": outcome}).Inc()
}
