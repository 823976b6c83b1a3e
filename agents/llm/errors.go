/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package llm

import (
	"context"
	"errors"
	"fmt"
)

// Failure kinds reported by the connector pipeline. Match them with errors.Is.
var (
	// ErrUnsupportedModel is a configuration error raised before any network activity.
	ErrUnsupportedModel = errors.New("unsupported model")
	// ErrTransport covers non-success HTTP statuses and failed round trips.
	ErrTransport = errors.New("transport failure")
	// ErrEmptyOrRejected covers empty content, missing candidates and unexpected finish reasons.
	ErrEmptyOrRejected = errors.New("empty or rejected response")
	// ErrMalformed is a decode failure that survived recovery.
	ErrMalformed = errors.New("malformed response")
	// ErrCancelled wraps context cancellation and deadline expiry.
	ErrCancelled = errors.New("cancelled")
)

// Error is a classified pipeline failure.
type Error struct {
	// Kind is one of the Err* sentinels above.
	Kind error
	// Retryable marks failures the connector retry policy may repeat.
	Retryable bool
	// Usage is whatever the vendor reported before the failure.
	Usage Usage
	// StatusCode and Body are set for HTTP-level failures.
	StatusCode int
	Body       string
	// Err is the underlying cause, if any.
	Err error
	msg string
}

func (e *Error) Error() string {
	msg := e.Kind.Error()
	if e.msg != "" {
		msg += ": " + e.msg
	}
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(" (status %d)", e.StatusCode)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap exposes both the kind and the cause to errors.Is and errors.As.
func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// Unsupported reports a model that no adapter serves.
func Unsupported(m Model) *Error {
	return &Error{Kind: ErrUnsupportedModel, msg: m.String()}
}

// Transport reports an HTTP failure. It is always retryable.
func Transport(status int, body string, err error) *Error {
	return &Error{Kind: ErrTransport, Retryable: true, StatusCode: status, Body: body, Err: err}
}

// Rejected reports an empty or unusable vendor reply. It is always retryable.
func Rejected(usage Usage, format string, args ...any) *Error {
	return &Error{Kind: ErrEmptyOrRejected, Retryable: true, Usage: usage, msg: fmt.Sprintf(format, args...)}
}

// Malformed reports text that could not be decoded. It is always retryable.
func Malformed(usage Usage, err error) *Error {
	return &Error{Kind: ErrMalformed, Retryable: true, Usage: usage, Err: err}
}

// Cancelled wraps a context error.
func Cancelled(err error) *Error {
	return &Error{Kind: ErrCancelled, Err: err}
}

// IsRetryable reports whether err is a pipeline failure marked retryable.
// Context cancellation is never retryable.
func IsRetryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var e *Error
	return errors.As(err, &e) && e.Retryable
}

// UsageOf returns the partial usage carried by err, or zero.
func UsageOf(err error) Usage {
	var e *Error
	if errors.As(err, &e) {
		return e.Usage
	}
	return Usage{}
}
