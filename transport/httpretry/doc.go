/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package httpretry provides an http.RoundTripper that retries rate-limited
// and transient server failures with decorrelated jitter, honouring the
// Retry-After header on 429 responses.
//
//	client := httpretry.New("anthropic").Client(10 * time.Minute)
package httpretry
