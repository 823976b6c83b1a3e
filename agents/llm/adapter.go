/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package llm

import (
	"context"
	"net/http"
	"slices"
)

// Adapter translates between the provider-neutral model and one vendor API.
type Adapter interface {
	// SupportedModels lists the models this adapter serves.
	SupportedModels() []Model
	// BuildRequest returns the JSON-encodable request body for p.
	BuildRequest(ctx context.Context, p Prompt) (any, error)
	// EndpointPath is the completion endpoint relative to the vendor base URL.
	EndpointPath() string
	// ParseResponse extracts the answer text and usage from a successful reply.
	// Empty content or an unexpected finish reason yields an ErrEmptyOrRejected error.
	ParseResponse(ctx context.Context, resp *http.Response) (Response, error)
}

// HeaderSetter is implemented by adapters that authenticate with headers.
type HeaderSetter interface {
	SetHeaders(h http.Header)
}

// Cacher is implemented by adapters that can prepare a server-side content
// cache for the run. A failed setup leaves the adapter inlining content.
type Cacher interface {
	SetupCaching(ctx context.Context) (Usage, error)
}

// Supports reports whether a serves m.
func Supports(a Adapter, m Model) bool {
	return slices.Contains(a.SupportedModels(), m)
}
