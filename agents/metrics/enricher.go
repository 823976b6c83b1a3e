/*
Copyright 2025 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package metrics

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
)

// AttributeEnricher extends the model and vendor attributes every
// measurement carries.
type AttributeEnricher func(ctx context.Context, base []attribute.KeyValue) []attribute.KeyValue

// ForRun tags measurements with the fix run they belong to.
func ForRun(runID string) AttributeEnricher {
	return func(_ context.Context, base []attribute.KeyValue) []attribute.KeyValue {
		return append(base, attribute.String("run_id", runID))
	}
}

// Chain applies enrichers in order.
func Chain(enrichers ...AttributeEnricher) AttributeEnricher {
	return func(ctx context.Context, base []attribute.KeyValue) []attribute.KeyValue {
		for _, e := range enrichers {
			base = e(ctx, base)
		}
		return base
	}
}
