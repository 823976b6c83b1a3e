/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package llm

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"chainguard.dev/smellfix/sourcecode"
)

// DefaultMaxOutputTokens caps response length when no limit is configured.
const DefaultMaxOutputTokens = 8192

// Settings are the per-run values adapters are built from.
type Settings struct {
	Model Model
	Token string
	// BaseURL is the effective vendor base URL, ending in a slash.
	BaseURL string
	// MaxOutputTokens of zero means DefaultMaxOutputTokens.
	MaxOutputTokens int64
	// HTTPClient is used by adapters that call vendor APIs outside the
	// connector request cycle, such as cache creation.
	HTTPClient *http.Client
	// Files gives adapters that inline or cache source files access to the checkout.
	Files sourcecode.Lister
	// Extension selects which source files are sent, e.g. ".cs".
	Extension string
	// SystemPrompt is used by adapters that bake it into a cache.
	SystemPrompt string
	// CacheTTL bounds the lifetime of vendor-side caches.
	CacheTTL time.Duration
}

// MaxTokens returns the effective output token limit.
func (s Settings) MaxTokens() int64 {
	if s.MaxOutputTokens > 0 {
		return s.MaxOutputTokens
	}
	return DefaultMaxOutputTokens
}

// InlineFiles appends the source files of p's rule to p.Text. Without a
// Files lister the text is returned as is.
func (s Settings) InlineFiles(ctx context.Context, p Prompt) (string, error) {
	if s.Files == nil {
		return p.Text, nil
	}
	files, err := s.Files.GetAllFiles(ctx, s.Extension, p.RuleID)
	if err != nil {
		return "", fmt.Errorf("reading files for %s: %w", p.RuleID, err)
	}
	return WithFiles(p.Text, files), nil
}
