/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package connector

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"chainguard.dev/smellfix/agents/executor/retry"
	"chainguard.dev/smellfix/agents/metrics"
	"chainguard.dev/smellfix/ledger"
)

// Option is a functional option for configuring the connector
type Option func(*Connector) error

// WithHTTPClient sets the client used for vendor requests.
// Callers normally pass a client whose transport retries rate limits.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Connector) error {
		if client == nil {
			return errors.New("http client cannot be nil")
		}
		c.client = client
		return nil
	}
}

// WithBaseURL overrides the vendor base URL.
func WithBaseURL(raw string) Option {
	return func(c *Connector) error {
		if raw == "" {
			return nil
		}
		if !strings.HasSuffix(raw, "/") {
			raw += "/"
		}
		u, err := url.Parse(raw)
		if err != nil {
			return fmt.Errorf("invalid base url %q: %w", raw, err)
		}
		if u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("base url %q must be absolute", raw)
		}
		c.baseURL = u
		return nil
	}
}

// WithLedger records every request in l.
func WithLedger(l ledger.Requests) Option {
	return func(c *Connector) error {
		if l == nil {
			return errors.New("ledger cannot be nil")
		}
		c.ledger = l
		return nil
	}
}

// WithRetryConfig replaces the application-level retry policy.
func WithRetryConfig(cfg retry.RetryConfig) Option {
	return func(c *Connector) error {
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid retry config: %w", err)
		}
		c.retryConfig = cfg
		return nil
	}
}

// WithMetrics replaces the default GenAI metrics instance.
func WithMetrics(m *metrics.GenAI) Option {
	return func(c *Connector) error {
		if m == nil {
			return errors.New("metrics cannot be nil")
		}
		c.genaiMetrics = m
		return nil
	}
}
