/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package httpretry

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/chainguard-dev/clog"

	"chainguard.dev/smellfix/agents/executor/retry"
)

// maxLoggedBody bounds how much of a failed response body ends up in the log.
const maxLoggedBody = 4 << 10

// Transport is an http.RoundTripper that repeats requests answered with
// 408, 429 or a 5xx status, and requests that fail before any response.
// Once retries are exhausted the last response is handed to the caller
// unchanged so that status handling stays with the client.
type Transport struct {
	base   http.RoundTripper
	name   string
	config retry.RetryConfig
	now    func() time.Time
}

// Option configures a Transport.
type Option func(*Transport)

// WithRetryConfig replaces the default TransportRetryConfig.
func WithRetryConfig(cfg retry.RetryConfig) Option {
	return func(t *Transport) { t.config = cfg }
}

// WithBase sets the wrapped round tripper (default http.DefaultTransport).
func WithBase(rt http.RoundTripper) Option {
	return func(t *Transport) { t.base = rt }
}

// New returns a retrying transport. name identifies the remote service in logs.
func New(name string, opts ...Option) *Transport {
	t := &Transport{
		base:   http.DefaultTransport,
		name:   name,
		config: retry.TransportRetryConfig(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Client returns an *http.Client that uses t with the given timeout.
func (t *Transport) Client(timeout time.Duration) *http.Client {
	return &http.Client{Transport: t, Timeout: timeout}
}

// statusError carries a response whose status is worth retrying.
type statusError struct {
	resp *http.Response
	body string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("status %d", e.resp.StatusCode)
}

// RoundTrip implements http.RoundTripper.
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	ctx := req.Context()
	if req.Body != nil && req.Body != http.NoBody && req.GetBody == nil {
		// Without GetBody the body cannot be replayed.
		return t.base.RoundTrip(req)
	}

	cfg := t.config
	cfg.Delay = func(err error) (time.Duration, bool) {
		var se *statusError
		if !errors.As(err, &se) || se.resp.StatusCode != http.StatusTooManyRequests {
			return 0, false
		}
		return retryAfter(se.resp.Header.Get("Retry-After"), t.now())
	}
	cfg.OnRetry = func(ctx context.Context, attempt int, err error) {
		log := clog.FromContext(ctx).With("service", t.name).With("attempt", attempt).With("url", req.URL.Redacted())
		var se *statusError
		if errors.As(err, &se) {
			log.With("status", se.resp.StatusCode).With("body", se.body).Info("Retrying request after unsuccessful response")
			return
		}
		log.With("error", err.Error()).Info("Retrying request after transport error")
	}

	var prev *http.Response
	resp, err := retry.RetryWithBackoff(ctx, cfg, t.name+" request", isRetryable, func() (*http.Response, error) {
		if prev != nil {
			drain(prev)
			prev = nil
		}
		attemptReq, err := rewind(req)
		if err != nil {
			return nil, err
		}
		resp, err := t.base.RoundTrip(attemptReq)
		if err != nil {
			return nil, err
		}
		if !retryableStatus(resp.StatusCode) {
			return resp, nil
		}
		prev = resp
		return resp, &statusError{resp: resp, body: peek(resp)}
	})
	if err == nil {
		return resp, nil
	}
	var se *statusError
	if errors.As(err, &se) {
		// Exhausted: the caller sees the final response, not the retry error.
		return se.resp, nil
	}
	if prev != nil {
		drain(prev)
	}
	return nil, err
}

func isRetryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var se *statusError
	if errors.As(err, &se) {
		return true
	}
	var re rewindError
	return !errors.As(err, &re)
}

func retryableStatus(code int) bool {
	return code == http.StatusTooManyRequests || code == http.StatusRequestTimeout || code >= 500
}

// retryAfter parses a Retry-After value given as delta seconds or an HTTP
// date. A date in the past means no wait.
func retryAfter(v string, now time.Time) (time.Duration, bool) {
	if v == "" {
		return 0, false
	}
	if secs, err := strconv.Atoi(v); err == nil {
		if secs < 0 {
			return 0, false
		}
		return time.Duration(secs) * time.Second, true
	}
	when, err := http.ParseTime(v)
	if err != nil {
		return 0, false
	}
	if d := when.Sub(now); d > 0 {
		return d, true
	}
	return 0, true
}

type rewindError struct{ err error }

func (e rewindError) Error() string { return "rewind request body: " + e.err.Error() }
func (e rewindError) Unwrap() error { return e.err }

// rewind returns a shallow copy of req with a fresh body.
func rewind(req *http.Request) (*http.Request, error) {
	if req.GetBody == nil {
		return req, nil
	}
	body, err := req.GetBody()
	if err != nil {
		return nil, rewindError{err: err}
	}
	clone := req.Clone(req.Context())
	clone.Body = body
	return clone, nil
}

// peek reads a bounded prefix of the body for logging and restores it.
func peek(resp *http.Response) string {
	if resp.Body == nil {
		return ""
	}
	head, _ := io.ReadAll(io.LimitReader(resp.Body, maxLoggedBody))
	resp.Body = readCloser{Reader: io.MultiReader(bytes.NewReader(head), resp.Body), Closer: resp.Body}
	return string(head)
}

func drain(resp *http.Response) {
	if resp.Body == nil {
		return
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxLoggedBody))
	_ = resp.Body.Close()
}

type readCloser struct {
	io.Reader
	io.Closer
}
