/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package orchestrator

import (
	"context"
	"errors"
	"maps"
	"path"
	"slices"
	"strings"
	"sync"

	"chainguard.dev/smellfix/agents/llm"
	"chainguard.dev/smellfix/analysis"
	"chainguard.dev/smellfix/ledger"
	"chainguard.dev/smellfix/sourcecode"
	"chainguard.dev/smellfix/sourcecode/gitclient"
	"chainguard.dev/smellfix/sourcecode/pullrequest"
)

type fakeSource struct {
	files map[string]string

	cloneErr error
	pushErr  error

	branch  string
	dirty   bool
	commits []string
	pushes  int
}

func (f *fakeSource) Clone(context.Context) error { return f.cloneErr }

func (f *fakeSource) CreateBranch(_ context.Context, name string) error {
	f.branch = name
	return nil
}

func (f *fakeSource) UpdateFileContent(_ context.Context, p, content string) error {
	old, ok := f.files[p]
	if !ok {
		return sourcecode.ErrFileNotFound
	}
	if old != content {
		f.files[p] = content
		f.dirty = true
	}
	return nil
}

func (f *fakeSource) Commit(_ context.Context, msg string) error {
	if !f.dirty {
		return gitclient.ErrNothingToCommit
	}
	f.dirty = false
	f.commits = append(f.commits, msg)
	return nil
}

func (f *fakeSource) Push(context.Context) error {
	if f.pushErr != nil {
		return f.pushErr
	}
	f.pushes++
	return nil
}

func (f *fakeSource) GetAllFiles(_ context.Context, ext, folder string) ([]sourcecode.SourceFile, error) {
	var out []sourcecode.SourceFile
	for _, p := range slices.Sorted(maps.Keys(f.files)) {
		if !strings.HasSuffix(p, ext) {
			continue
		}
		if folder != "" && !slices.ContainsFunc(strings.Split(path.Dir(p), "/"), func(s string) bool {
			return strings.EqualFold(s, folder)
		}) {
			continue
		}
		out = append(out, sourcecode.SourceFile{Path: p, Content: f.files[p]})
	}
	return out, nil
}

type fakeAnalysis struct {
	issues    []analysis.Issue
	rules     map[analysis.RuleID]analysis.Rule
	issuesErr error
}

func (f *fakeAnalysis) GetIssues(context.Context, analysis.Project) ([]analysis.Issue, error) {
	return f.issues, f.issuesErr
}

func (f *fakeAnalysis) GetRule(_ context.Context, id analysis.RuleID) (analysis.Rule, error) {
	r, ok := f.rules[id]
	if !ok {
		return analysis.Rule{}, errors.New("no such rule")
	}
	return r, nil
}

// fakeConnector answers by rule id and records requests in the ledger the
// way the real connector does.
type fakeConnector struct {
	mu       sync.Mutex
	requests ledger.Requests
	answers  map[string]llm.ReplacementResponse
	cached   bool
	prompts  []llm.Prompt
	panicOn  string
}

func (f *fakeConnector) SetupCaching(context.Context) { f.cached = true }

func (f *fakeConnector) GetResponse(ctx context.Context, p llm.Prompt) (llm.ReplacementResponse, error) {
	f.mu.Lock()
	f.prompts = append(f.prompts, p)
	f.mu.Unlock()
	if p.RuleID == f.panicOn {
		panic("connector bug")
	}

	id, err := f.requests.InitializeRequest(ctx, ledger.CodeGeneration, p.RuleID)
	if err != nil {
		return llm.ReplacementResponse{}, err
	}
	usage := llm.NewUsage(100, 0, 150, 50, 0)
	resp, ok := f.answers[p.RuleID]
	if !ok {
		_ = f.requests.EndRequest(ctx, id, ledger.Failed, usage)
		return resp, llm.Rejected(usage, "no answer for %s", p.RuleID)
	}
	return resp, f.requests.EndRequest(ctx, id, ledger.Succeeded, usage)
}

type fakeOpener struct {
	got []pullrequest.Request
	err error
}

func (f *fakeOpener) Open(_ context.Context, req pullrequest.Request) (string, error) {
	f.got = append(f.got, req)
	if f.err != nil {
		return "", f.err
	}
	return "https://github.com/acme/shop/pull/7", nil
}
