/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package retry

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/chainguard-dev/clog"
)

// Strategy selects how the wait between attempts is computed.
type Strategy int

const (
	// Exponential waits BaseBackoff * 2^attempt, capped at MaxBackoff.
	Exponential Strategy = iota
	// Constant waits BaseBackoff between every attempt.
	Constant
	// DecorrelatedJitter waits a random duration between BaseBackoff and
	// three times the previous wait, capped at MaxBackoff.
	DecorrelatedJitter
)

// RetryConfig configures retry behavior for API calls.
// This is particularly useful for handling rate limit and transient server errors.
type RetryConfig struct {
	// MaxRetries is the maximum number of retry attempts (default: 5)
	// 0 means do not retry at all.
	MaxRetries int
	// BaseBackoff is the initial backoff duration (default: 1s)
	BaseBackoff time.Duration
	// MaxBackoff is the maximum backoff duration (default: 60s)
	MaxBackoff time.Duration
	// MaxJitter is the maximum random jitter added to backoff (default: 500ms)
	MaxJitter time.Duration
	// Strategy selects the backoff curve (default: Exponential)
	Strategy Strategy

	// Delay, when set, may override the computed wait for a given error.
	// It is consulted before every wait; returning false keeps the computed value.
	Delay func(err error) (time.Duration, bool)
	// OnRetry, when set, is invoked after a retryable failure and before the
	// wait that precedes the next attempt. attempt is 1-based.
	OnRetry func(ctx context.Context, attempt int, err error)
}

// Validate checks that the retry configuration has valid values.
func (c RetryConfig) Validate() error {
	if c.MaxRetries < 0 {
		return errors.New("max retries cannot be negative")
	}
	if c.BaseBackoff < 0 {
		return errors.New("base backoff cannot be negative")
	}
	if c.MaxBackoff < 0 {
		return errors.New("max backoff cannot be negative")
	}
	if c.MaxJitter < 0 {
		return errors.New("max jitter cannot be negative")
	}
	switch c.Strategy {
	case Exponential, Constant, DecorrelatedJitter:
	default:
		return fmt.Errorf("unknown backoff strategy %d", c.Strategy)
	}
	return nil
}

// DefaultRetryConfig returns a retry configuration suitable for quota and rate limit errors.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:  5,
		BaseBackoff: 1 * time.Second,
		MaxBackoff:  60 * time.Second,
		MaxJitter:   500 * time.Millisecond,
	}
}

// ConnectorRetryConfig is the application-level policy used around a single
// model request: three attempts in total, five seconds apart plus jitter.
func ConnectorRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:  2,
		BaseBackoff: 5 * time.Second,
		MaxBackoff:  5 * time.Second,
		MaxJitter:   time.Second,
		Strategy:    Constant,
	}
}

// TransportRetryConfig is the HTTP-level policy for rate limits and
// transient server errors.
func TransportRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:  10,
		BaseBackoff: 3 * time.Second,
		MaxBackoff:  2 * time.Minute,
		Strategy:    DecorrelatedJitter,
	}
}

// RetryWithBackoff executes the given function, retrying with the configured backoff.
// It only retries on errors that are classified as retryable by the provided isRetryable function.
func RetryWithBackoff[T any](ctx context.Context, cfg RetryConfig, operation string, isRetryable func(error) bool, fn func() (T, error)) (T, error) {
	var result T
	var lastErr error
	var prev time.Duration

	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		result, lastErr = fn()
		if lastErr == nil {
			return result, nil
		}

		if !isRetryable(lastErr) {
			return result, lastErr
		}

		if attempt >= cfg.MaxRetries {
			break
		}

		wait := cfg.backoff(attempt, prev)
		if cfg.Delay != nil {
			if d, ok := cfg.Delay(lastErr); ok {
				wait = d
			}
		}
		prev = wait

		clog.FromContext(ctx).With("operation", operation).
			With("attempt", attempt+1).
			With("max_retries", cfg.MaxRetries).
			With("backoff", wait).
			With("error", lastErr.Error()).
			Warn("Retryable failure, retrying")

		if cfg.OnRetry != nil {
			cfg.OnRetry(ctx, attempt+1, lastErr)
		}

		select {
		case <-ctx.Done():
			return result, ctx.Err()
		case <-time.After(wait):
		}
	}

	return result, fmt.Errorf("%s failed after %d retries: %w", operation, cfg.MaxRetries, lastErr)
}

func (c RetryConfig) backoff(attempt int, prev time.Duration) time.Duration {
	switch c.Strategy {
	case Constant:
		return c.BaseBackoff + randDuration(c.MaxJitter)

	case DecorrelatedJitter:
		if prev < c.BaseBackoff {
			prev = c.BaseBackoff
		}
		wait := c.BaseBackoff + randDuration(prev*3-c.BaseBackoff)
		if c.MaxBackoff > 0 {
			wait = min(wait, c.MaxBackoff)
		}
		return wait + randDuration(c.MaxJitter)

	default:
		// BaseBackoff * 2^attempt, capped at MaxBackoff
		return min(c.BaseBackoff<<attempt, c.MaxBackoff) + randDuration(c.MaxJitter)
	}
}

// randDuration returns a random duration in [0, limit).
func randDuration(limit time.Duration) time.Duration {
	if limit <= 0 {
		return 0
	}
	n, err := rand.Int(rand.Reader, big.NewInt(int64(limit)))
	if err != nil {
		return 0
	}
	return time.Duration(n.Int64())
}
