/*
Copyright 2025 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package metrics

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"

	"chainguard.dev/smellfix/agents/llm"
)

// GenAI provides OpenTelemetry metrics for model requests: token usage split
// the same way the usage ledger splits it, plus request outcomes.
// Counters that fail to initialize degrade to no-ops.
type GenAI struct {
	promptTokens    metric.Int64Counter
	responseTokens  metric.Int64Counter
	cachedTokens    metric.Int64Counter
	reasoningTokens metric.Int64Counter
	requests        metric.Int64Counter
	attrEnricher    AttributeEnricher
}

// NewGenAI creates a new GenAI metrics instance with the specified meter name.
// The model and vendor are recorded as attributes, not as separate meters.
func NewGenAI(meterName string) *GenAI {
	meter := otel.Meter(meterName, metric.WithInstrumentationVersion("1.0.0"))

	counter := func(name, description, unit string) metric.Int64Counter {
		c, err := meter.Int64Counter(name, metric.WithDescription(description), metric.WithUnit(unit))
		if err != nil {
			slog.Warn("Failed to create counter, metric will be disabled", "error", err, "meter", meterName, "counter", name)
			return noop.Int64Counter{}
		}
		return c
	}

	return &GenAI{
		promptTokens:    counter("genai.token.prompt", "The number of prompt tokens sent", "{tokens}"),
		responseTokens:  counter("genai.token.completion", "The number of response tokens produced, including reasoning", "{tokens}"),
		cachedTokens:    counter("genai.token.cached", "The number of prompt tokens served from a cache", "{tokens}"),
		reasoningTokens: counter("genai.token.reasoning", "The number of reasoning tokens produced", "{tokens}"),
		requests:        counter("genai.requests", "The number of model requests by outcome", "{requests}"),
	}
}

// SetAttributeEnricher sets the attribute enricher for this metrics instance.
// The enricher is called before recording each metric to add contextual
// attributes such as the run id.
func (m *GenAI) SetAttributeEnricher(enricher AttributeEnricher) {
	m.attrEnricher = enricher
}

func (m *GenAI) attributes(ctx context.Context, model llm.Model, attrs []attribute.KeyValue) []attribute.KeyValue {
	base := []attribute.KeyValue{
		attribute.String("model", model.Name()),
		attribute.String("vendor", string(model.Vendor())),
	}
	if m.attrEnricher != nil {
		base = m.attrEnricher(ctx, base)
	}
	return append(base, attrs...)
}

// RecordUsage records the token usage of one attempt.
func (m *GenAI) RecordUsage(ctx context.Context, model llm.Model, usage llm.Usage, attrs ...attribute.KeyValue) {
	opt := metric.WithAttributes(m.attributes(ctx, model, attrs)...)
	m.promptTokens.Add(ctx, usage.ActualRequestTokens(), opt)
	m.responseTokens.Add(ctx, usage.ActualResponseTokens(), opt)
	m.cachedTokens.Add(ctx, usage.CachedTokens, opt)
	m.reasoningTokens.Add(ctx, usage.ReasoningTokens, opt)
}

// RecordRequest records the terminal outcome of a request ("succeeded", "failed").
func (m *GenAI) RecordRequest(ctx context.Context, model llm.Model, outcome string, attrs ...attribute.KeyValue) {
	attrs = append(attrs, attribute.String("outcome", outcome))
	m.requests.Add(ctx, 1, metric.WithAttributes(m.attributes(ctx, model, attrs)...))
}
