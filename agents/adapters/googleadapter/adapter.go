/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package googleadapter

import (
	"cmp"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/chainguard-dev/clog"
	"google.golang.org/genai"

	"chainguard.dev/smellfix/agents/llm"
	"chainguard.dev/smellfix/agents/schema"
)

const (
	// DefaultBaseURL is the public Gemini API endpoint.
	DefaultBaseURL = "https://generativelanguage.googleapis.com/"
	// APIVersion is the Gemini API version used for generation and caching.
	APIVersion = "v1beta"
	// DefaultCacheTTL is how long cached source files live when
	// llm.Settings.CacheTTL is unset.
	DefaultCacheTTL = time.Hour
)

type generateRequest struct {
	Contents          []*genai.Content        `json:"contents"`
	SystemInstruction *genai.Content          `json:"systemInstruction,omitempty"`
	GenerationConfig  *genai.GenerationConfig `json:"generationConfig,omitempty"`
	CachedContent     string                  `json:"cachedContent,omitempty"`
}

// Adapter implements llm.Adapter and llm.Cacher for Gemini models.
type Adapter struct {
	settings llm.Settings

	mu    sync.RWMutex
	cache string
}

var (
	_ llm.Adapter      = (*Adapter)(nil)
	_ llm.HeaderSetter = (*Adapter)(nil)
	_ llm.Cacher       = (*Adapter)(nil)
)

// New returns an adapter for s.Model.
func New(s llm.Settings) *Adapter {
	return &Adapter{settings: s}
}

func (a *Adapter) SupportedModels() []llm.Model { return []llm.Model{llm.GeminiFlashLite} }

func (a *Adapter) EndpointPath() string {
	return APIVersion + "/models/" + a.settings.Model.Name() + ":generateContent"
}

func (a *Adapter) SetHeaders(h http.Header) {
	h.Set("x-goog-api-key", a.settings.Token)
}

// CachedContent returns the name of the server-side cache, or "" when
// requests inline their files.
func (a *Adapter) CachedContent() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.cache
}

// SetupCaching uploads the system prompt and every source file as cached
// content. On failure the adapter keeps inlining files into each request;
// there is no second attempt.
func (a *Adapter) SetupCaching(ctx context.Context) (llm.Usage, error) {
	if a.settings.Files == nil {
		return llm.Usage{}, errors.New("no source files to cache")
	}
	files, err := a.settings.Files.GetAllFiles(ctx, a.settings.Extension, "")
	if err != nil {
		return llm.Usage{}, fmt.Errorf("reading source files: %w", err)
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:     a.settings.Token,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: a.settings.HTTPClient,
		HTTPOptions: genai.HTTPOptions{
			BaseURL:    cmp.Or(a.settings.BaseURL, DefaultBaseURL),
			APIVersion: APIVersion,
		},
	})
	if err != nil {
		return llm.Usage{}, fmt.Errorf("creating genai client: %w", err)
	}

	cfg := &genai.CreateCachedContentConfig{
		TTL:         cmp.Or(a.settings.CacheTTL, DefaultCacheTTL),
		DisplayName: "smellfix-sources",
		Contents: []*genai.Content{
			genai.NewContentFromText(llm.WithFiles("Source code of the repository.", files), genai.RoleUser),
		},
	}
	if a.settings.SystemPrompt != "" {
		cfg.SystemInstruction = genai.NewContentFromText(a.settings.SystemPrompt, genai.RoleUser)
	}

	cached, err := client.Caches.Create(ctx, a.settings.Model.Name(), cfg)
	if err != nil {
		return llm.Usage{}, fmt.Errorf("creating cached content: %w", err)
	}

	var usage llm.Usage
	if m := cached.UsageMetadata; m != nil {
		usage = llm.NewUsage(int64(m.TotalTokenCount), 0, int64(m.TotalTokenCount), 0, 0)
	}

	a.mu.Lock()
	a.cache = cached.Name
	a.mu.Unlock()

	clog.InfoContextf(ctx, "cached %d source files as %s", len(files), cached.Name)
	return usage, nil
}

func (a *Adapter) BuildRequest(ctx context.Context, p llm.Prompt) (any, error) {
	req := generateRequest{
		GenerationConfig: &genai.GenerationConfig{
			MaxOutputTokens: int32(min(a.settings.MaxTokens(), int64(1<<31-1))),
		},
	}
	if p.Schema != nil {
		m, err := p.Schema.Map(schema.Lenient)
		if err != nil {
			return nil, err
		}
		req.GenerationConfig.ResponseMIMEType = "application/json"
		req.GenerationConfig.ResponseJsonSchema = m
	}

	text := p.Text
	if cache := a.CachedContent(); cache != "" {
		// The cache carries the system instruction and the files.
		req.CachedContent = cache
	} else {
		if p.SystemPrompt != "" {
			req.SystemInstruction = genai.NewContentFromText(p.SystemPrompt, genai.RoleUser)
		}
		if a.settings.Files != nil {
			files, err := a.settings.Files.GetAllFiles(ctx, a.settings.Extension, p.RuleID)
			if err != nil {
				return nil, fmt.Errorf("reading files for %s: %w", p.RuleID, err)
			}
			text = llm.WithFiles(text, files)
		}
	}
	req.Contents = []*genai.Content{genai.NewContentFromText(text, genai.RoleUser)}
	return req, nil
}

func (a *Adapter) ParseResponse(_ context.Context, resp *http.Response) (llm.Response, error) {
	var r genai.GenerateContentResponse
	if err := json.NewDecoder(resp.Body).Decode(&r); err != nil {
		return llm.Response{}, llm.Malformed(llm.Usage{}, err)
	}

	var usage llm.Usage
	if m := r.UsageMetadata; m != nil {
		usage = llm.NewUsage(int64(m.PromptTokenCount), int64(m.CachedContentTokenCount),
			int64(m.TotalTokenCount), int64(m.CandidatesTokenCount), int64(m.ThoughtsTokenCount))
	}

	if len(r.Candidates) == 0 || r.Candidates[0] == nil {
		return llm.Response{}, llm.Rejected(usage, "no candidates")
	}
	c := r.Candidates[0]
	if c.FinishReason != genai.FinishReasonStop {
		return llm.Response{}, llm.Rejected(usage, "finish reason %q", c.FinishReason)
	}
	if c.Content == nil || len(c.Content.Parts) == 0 || c.Content.Parts[0] == nil ||
		strings.TrimSpace(c.Content.Parts[0].Text) == "" {
		return llm.Response{}, llm.Rejected(usage, "empty content")
	}
	return llm.Response{Text: c.Content.Parts[0].Text, Usage: usage}, nil
}
