/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package connector

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/chainguard-dev/clog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	oteltrace "go.opentelemetry.io/otel/trace"

	"chainguard.dev/smellfix/agents/executor/retry"
	"chainguard.dev/smellfix/agents/llm"
	"chainguard.dev/smellfix/agents/metrics"
	"chainguard.dev/smellfix/agents/result"
	"chainguard.dev/smellfix/ledger"
)

// maxErrorBody bounds how much of an unsuccessful response body is kept on the error.
const maxErrorBody = 64 << 10

// Connector drives one model through a vendor adapter.
type Connector struct {
	model        llm.Model
	adapter      llm.Adapter
	client       *http.Client
	baseURL      *url.URL
	ledger       ledger.Requests
	retryConfig  retry.RetryConfig
	genaiMetrics *metrics.GenAI
}

// New creates a Connector for model. The base URL must be set with
// WithBaseURL; the adapter registry supplies per-vendor defaults.
func New(model llm.Model, adapter llm.Adapter, opts ...Option) (*Connector, error) {
	if adapter == nil {
		return nil, errors.New("adapter cannot be nil")
	}
	c := &Connector{
		model:        model,
		adapter:      adapter,
		client:       http.DefaultClient,
		ledger:       ledger.Discard(),
		retryConfig:  retry.ConnectorRetryConfig(),
		genaiMetrics: metrics.NewGenAI("chainguard.smellfix.connector"),
	}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, fmt.Errorf("failed to apply option: %w", err)
		}
	}
	if c.baseURL == nil {
		return nil, errors.New("base url is required")
	}
	return c, nil
}

// Model returns the configured model.
func (c *Connector) Model() llm.Model { return c.model }

// CanHandle reports whether the adapter serves m.
func (c *Connector) CanHandle(m llm.Model) bool {
	return llm.Supports(c.adapter, m)
}

// SetupCaching prepares the vendor-side content cache when the adapter
// supports one. A failed setup is recorded and logged; the adapter keeps
// inlining content, so the error is not returned.
func (c *Connector) SetupCaching(ctx context.Context) {
	cacher, ok := c.adapter.(llm.Cacher)
	if !ok {
		return
	}
	log := clog.FromContext(ctx).With("model", c.model.Name())

	id, err := c.ledger.InitializeRequest(ctx, ledger.CacheCreation, "")
	if err != nil {
		log.With("error", err).Warn("Failed to record cache creation request")
	}

	usage, err := cacher.SetupCaching(ctx)
	status := ledger.Succeeded
	if err != nil {
		status = ledger.Failed
		log.With("error", err).Warn("Cache creation failed, file contents will be sent with every request")
	} else {
		log.With("prompt_tokens", usage.PromptTokens).Info("Created content cache")
	}
	if id != "" {
		if err := c.ledger.EndRequest(context.WithoutCancel(ctx), id, status, usage); err != nil {
			log.With("error", err).Warn("Failed to close cache creation request")
		}
	}
}

// GetResponse sends p to the model and decodes the proposed replacements.
// Every request is recorded in the ledger and the record is always closed
// before GetResponse returns.
func (c *Connector) GetResponse(ctx context.Context, p llm.Prompt) (resp llm.ReplacementResponse, err error) {
	if !c.CanHandle(c.model) {
		return resp, llm.Unsupported(c.model)
	}

	tr := otel.Tracer("chainguard.smellfix.connector", oteltrace.WithInstrumentationVersion("1.0.0"))
	ctx, span := tr.Start(ctx, "connector.get_response", oteltrace.WithAttributes(
		attribute.String("model", c.model.Name()),
		attribute.String("vendor", string(c.model.Vendor())),
		attribute.String("rule", p.RuleID),
	))
	log := clog.FromContext(ctx).With("model", c.model.Name()).With("rule", p.RuleID)
	ctx = clog.WithLogger(ctx, log)

	id, err := c.ledger.InitializeRequest(ctx, ledger.CodeGeneration, p.RuleID)
	if err != nil {
		span.End()
		return resp, fmt.Errorf("open ledger request: %w", err)
	}

	// Usage of the attempt that is still in flight; retried attempts are
	// flushed to the ledger in OnRetry.
	var pending, accumulated llm.Usage

	defer func() {
		if ctxErr := ctx.Err(); err != nil && ctxErr != nil && !errors.Is(err, llm.ErrCancelled) {
			err = llm.Cancelled(err)
		}
		status, outcome := ledger.Succeeded, "succeeded"
		if err != nil {
			status, outcome = ledger.Failed, "failed"
		}
		if lerr := c.ledger.EndRequest(context.WithoutCancel(ctx), id, status, pending); lerr != nil {
			log.With("error", lerr).Warn("Failed to close ledger request")
		}
		accumulated = accumulated.Add(pending)
		c.genaiMetrics.RecordRequest(ctx, c.model, outcome)

		span.SetAttributes(
			attribute.Int64("tokens.input", accumulated.ActualRequestTokens()),
			attribute.Int64("tokens.output", accumulated.ActualResponseTokens()),
			attribute.Int64("tokens.cached", accumulated.CachedTokens),
		)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		} else {
			span.SetStatus(codes.Ok, "")
		}
		span.End()
	}()

	cfg := c.retryConfig
	cfg.OnRetry = func(ctx context.Context, attempt int, err error) {
		if lerr := c.ledger.IncrementRetries(context.WithoutCancel(ctx), id, pending); lerr != nil {
			log.With("error", lerr).Warn("Failed to record retry")
		}
		accumulated = accumulated.Add(pending)
		pending = llm.Usage{}
	}

	resp, err = retry.RetryWithBackoff(ctx, cfg, "get_response", llm.IsRetryable, func() (llm.ReplacementResponse, error) {
		out, usage, err := c.attempt(ctx, p)
		pending = usage
		if !usage.IsZero() {
			c.genaiMetrics.RecordUsage(ctx, c.model, usage)
		}
		return out, err
	})
	if err != nil {
		return resp, err
	}
	log.With("replacements", len(resp.Replacements)).Info("Received replacements")
	return resp, nil
}

// attempt performs one request cycle and returns whatever usage the vendor
// reported, even when the attempt fails.
func (c *Connector) attempt(ctx context.Context, p llm.Prompt) (llm.ReplacementResponse, llm.Usage, error) {
	var out llm.ReplacementResponse

	body, err := c.adapter.BuildRequest(ctx, p)
	if err != nil {
		return out, llm.Usage{}, fmt.Errorf("build request: %w", err)
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return out, llm.Usage{}, fmt.Errorf("encode request: %w", err)
	}

	endpoint := c.baseURL.ResolveReference(&url.URL{Path: c.adapter.EndpointPath()})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint.String(), bytes.NewReader(payload))
	if err != nil {
		return out, llm.Usage{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if hs, ok := c.adapter.(llm.HeaderSetter); ok {
		hs.SetHeaders(req.Header)
	}

	clog.FromContext(ctx).With("endpoint", endpoint.Redacted()).With("bytes", len(payload)).Debug("Sending request")

	httpResp, err := c.client.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return out, llm.Usage{}, llm.Cancelled(ctxErr)
		}
		return out, llm.Usage{}, llm.Transport(0, "", err)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode < 200 || httpResp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(httpResp.Body, maxErrorBody))
		return out, llm.Usage{}, llm.Transport(httpResp.StatusCode, string(raw), nil)
	}

	ai, err := c.adapter.ParseResponse(ctx, httpResp)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return out, llm.UsageOf(err), llm.Cancelled(ctxErr)
		}
		return out, llm.UsageOf(err), err
	}

	out, err = result.Decode[llm.ReplacementResponse](ai.Text)
	if err != nil {
		clog.FromContext(ctx).With("response", ai.Text).Debug("Unrecoverable response text")
		return out, ai.Usage, llm.Malformed(ai.Usage, err)
	}
	return out, ai.Usage, nil
}
