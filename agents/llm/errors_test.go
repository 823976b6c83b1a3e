/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package llm_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"chainguard.dev/smellfix/agents/llm"
)

func TestErrorClassification(t *testing.T) {
	t.Parallel()
	usage := llm.NewUsage(5, 0, 7, 2, 0)
	cause := errors.New("boom")

	tests := []struct {
		name      string
		err       error
		kind      error
		retryable bool
		usage     llm.Usage
	}{{
		name: "unsupported",
		err:  llm.Unsupported(llm.ModelNone),
		kind: llm.ErrUnsupportedModel,
	}, {
		name:      "transport",
		err:       llm.Transport(503, "overloaded", nil),
		kind:      llm.ErrTransport,
		retryable: true,
	}, {
		name:      "rejected",
		err:       llm.Rejected(usage, "finish reason %q", "MAX_TOKENS"),
		kind:      llm.ErrEmptyOrRejected,
		retryable: true,
		usage:     usage,
	}, {
		name:      "malformed wrapped",
		err:       fmt.Errorf("attempt 2: %w", llm.Malformed(usage, cause)),
		kind:      llm.ErrMalformed,
		retryable: true,
		usage:     usage,
	}, {
		name: "cancelled",
		err:  llm.Cancelled(context.Canceled),
		kind: llm.ErrCancelled,
	}}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !errors.Is(tt.err, tt.kind) {
				t.Errorf("errors.Is(%v, %v) = false", tt.err, tt.kind)
			}
			if got := llm.IsRetryable(tt.err); got != tt.retryable {
				t.Errorf("IsRetryable: got = %v, wanted %v", got, tt.retryable)
			}
			if got := llm.UsageOf(tt.err); got != tt.usage {
				t.Errorf("UsageOf: got = %+v, wanted %+v", got, tt.usage)
			}
		})
	}
}

func TestErrorUnwrapsCause(t *testing.T) {
	t.Parallel()
	cause := errors.New("decode failed")
	err := llm.Malformed(llm.Usage{}, cause)
	if !errors.Is(err, cause) {
		t.Error("cause not reachable through errors.Is")
	}
	cancelled := llm.Cancelled(context.DeadlineExceeded)
	if !errors.Is(cancelled, context.DeadlineExceeded) {
		t.Error("context error not reachable through errors.Is")
	}
	if llm.IsRetryable(cancelled) {
		t.Error("cancellation must not be retryable")
	}
}

func TestTransportErrorText(t *testing.T) {
	t.Parallel()
	err := llm.Transport(429, "slow down", nil)
	if got, want := err.Error(), "transport failure (status 429)"; got != want {
		t.Errorf("Error(): got = %q, wanted %q", got, want)
	}
}
