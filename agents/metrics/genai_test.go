/*
Copyright 2025 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package metrics

import (
	"context"
	"testing"

	"go.opentelemetry.io/otel/attribute"

	"chainguard.dev/smellfix/agents/llm"
)

func TestGenAIRecordsWithoutProvider(t *testing.T) {
	// The global meter provider is a no-op unless one is installed; recording
	// must still be safe.
	m := NewGenAI("smellfix.test")
	m.SetAttributeEnricher(ForRun("abc"))

	ctx := context.Background()
	m.RecordUsage(ctx, llm.ClaudeHaiku3, llm.NewUsage(10, 2, 15, 5, 0))
	m.RecordRequest(ctx, llm.ClaudeHaiku3, "succeeded", attribute.String("rule", "S1234"))
}

func TestAttributes(t *testing.T) {
	m := &GenAI{}
	m.SetAttributeEnricher(ForRun("abc"))

	got := m.attributes(context.Background(), llm.Phi4, []attribute.KeyValue{attribute.String("rule", "S1")})
	want := map[attribute.Key]string{
		"model":  "phi4",
		"vendor": "Ollama",
		"run_id": "abc",
		"rule":   "S1",
	}
	if len(got) != len(want) {
		t.Fatalf("attributes: got %d, wanted %d: %v", len(got), len(want), got)
	}
	for _, kv := range got {
		if want[kv.Key] != kv.Value.AsString() {
			t.Errorf("attribute %s: got = %q, wanted %q", kv.Key, kv.Value.AsString(), want[kv.Key])
		}
	}
}

func TestChain(t *testing.T) {
	static := func(_ context.Context, base []attribute.KeyValue) []attribute.KeyValue {
		return append(base, attribute.String("project", "shop"))
	}
	got := Chain(ForRun("r1"), static)(context.Background(), nil)
	want := []attribute.KeyValue{attribute.String("run_id", "r1"), attribute.String("project", "shop")}
	if len(got) != len(want) {
		t.Fatalf("Chain(): got = %v, wanted %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Chain()[%d]: got = %v, wanted %v", i, got[i], want[i])
		}
	}
}
