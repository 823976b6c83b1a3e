/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package orchestrator

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chainguard.dev/smellfix/agents/llm"
	"chainguard.dev/smellfix/analysis"
	"chainguard.dev/smellfix/ledger"
	"chainguard.dev/smellfix/sourcecode/pullrequest"
)

func testConfig() Config {
	return Config{
		Model:          llm.Phi4,
		AnalysisType:   "SonarQube",
		ProjectKey:     "shop",
		Language:       "cs",
		Repository:     "https://github.com/acme/shop.git",
		Branch:         "main",
		CommitTemplate: "fix {{ID}}: {{TITLE}} in {{FILE_NAME}}",
		Extension:      ".cs",
	}
}

type harness struct {
	source   *fakeSource
	analysis *fakeAnalysis
	ledger   *ledger.Memory
	conn     *fakeConnector
}

func newHarness() *harness {
	return &harness{
		source: &fakeSource{files: map[string]string{
			"src/S1118/Util.cs":   "class Util {}",
			"src/S1118/Other.cs":  "class Other {}",
			"src/S3776/Big.cs":    "class Big {}",
			"src/Shared/Model.cs": "class Model {}",
		}},
		analysis: &fakeAnalysis{
			issues: []analysis.Issue{
				{Rule: "csharpsquid:S1118", FilePath: "src/S1118/Util.cs", Range: analysis.TextRange{StartLine: 1, EndLine: 1}},
				{Rule: "csharpsquid:S3776", FilePath: "src/S3776/Big.cs", Range: analysis.TextRange{StartLine: 3, EndLine: 9}},
			},
			rules: map[analysis.RuleID]analysis.Rule{
				"csharpsquid:S1118": {ID: "csharpsquid:S1118", Title: "Utility classes should not have public constructors", Description: "<p>Hide it.</p>"},
				"csharpsquid:S3776": {ID: "csharpsquid:S3776", Title: "Cognitive Complexity", Description: "<p>Split it.</p>"},
			},
		},
		ledger: ledger.NewMemory(),
		conn:   &fakeConnector{answers: map[string]llm.ReplacementResponse{}},
	}
}

func (h *harness) orchestrator(opts ...Option) *Orchestrator {
	connect := func(_ context.Context, _ string, reqs ledger.Requests) (Connector, error) {
		h.conn.requests = reqs
		return h.conn, nil
	}
	opts = append([]Option{WithCorrelationIDs(func() string { return "c0ffee" })}, opts...)
	return New(testConfig(), h.source, h.analysis, h.ledger, connect, opts...)
}

func TestRunFixesAndCommits(t *testing.T) {
	ctx := context.Background()
	h := newHarness()
	h.conn.answers["S1118"] = llm.ReplacementResponse{Replacements: []llm.Replacement{
		{FilePath: "src/S1118/Util.cs", NewCode: "static class Util {}"},
	}}
	// Wrong directory, unique base name.
	h.conn.answers["S3776"] = llm.ReplacementResponse{Replacements: []llm.Replacement{
		{FilePath: `Services\Big.cs`, NewCode: "class Big { void A() {} }"},
	}}

	fixed := testutil.ToFloat64(issuesCounter.With(prometheus.Labels{"model": "phi4", "outcome": outcomeFixed}))
	resolved := testutil.ToFloat64(replacementsCounter.With(prometheus.Labels{"model": "phi4", "outcome": replacementResolved}))

	res, err := h.orchestrator().Run(ctx)
	require.NoError(t, err)

	assert.Equal(t, Result{
		RunID:  "c0ffee",
		Branch: "auto-fix/Ollama/phi4/c0ffee-auto-fix",
		Issues: 2,
		Fixed:  2,
	}, res)
	assert.Equal(t, res.Branch, h.source.branch)
	assert.Equal(t, 1, h.source.pushes)
	assert.True(t, h.conn.cached)
	assert.Equal(t, "static class Util {}", h.source.files["src/S1118/Util.cs"])
	assert.Equal(t, "class Big { void A() {} }", h.source.files["src/S3776/Big.cs"])
	assert.Equal(t, []string{
		"fix csharpsquid:S1118: Utility classes should not have public constructors in src/S1118/Util.cs",
		"fix csharpsquid:S3776: Cognitive Complexity in src/S3776/Big.cs",
	}, h.source.commits)

	require.Len(t, h.conn.prompts, 2)
	p := h.conn.prompts[0]
	assert.Equal(t, "S1118", p.RuleID)
	assert.Equal(t, SystemPrompt, p.SystemPrompt)
	assert.Same(t, llm.ReplacementSchema, p.Schema)
	assert.Contains(t, p.Text, "**Programming Language**: C#")
	assert.Contains(t, p.Text, "**Affected Lines**: 1-1")

	assert.Equal(t, fixed+2, testutil.ToFloat64(issuesCounter.With(prometheus.Labels{"model": "phi4", "outcome": outcomeFixed})))
	assert.Equal(t, resolved+1, testutil.ToFloat64(replacementsCounter.With(prometheus.Labels{"model": "phi4", "outcome": replacementResolved})))

	sums, err := h.ledger.Summaries(ctx, "c0ffee")
	require.NoError(t, err)
	require.Len(t, sums, 1)
	assert.Equal(t, 2, sums[0].Succeeded)
	assert.NotNil(t, sums[0].Run.End)
	assert.Equal(t, "phi4", sums[0].Run.Model)
}

func TestRunIssueFailuresAreContained(t *testing.T) {
	ctx := context.Background()
	h := newHarness()
	h.analysis.issues = append(h.analysis.issues,
		analysis.Issue{Rule: "csharpsquid:S9999", FilePath: "src/S1118/Other.cs"},
		analysis.Issue{Rule: "csharpsquid:S1118", FilePath: "src/S1118/Other.cs"},
	)
	// Both S1118 answers leave Util.cs as it is. S3776 has no answer and
	// S9999 has no rule.
	h.conn.answers["S1118"] = llm.ReplacementResponse{Replacements: []llm.Replacement{
		{FilePath: "src/S1118/Util.cs", NewCode: "class Util {}"},
	}}

	res, err := h.orchestrator().Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, res.Issues)
	assert.Equal(t, 0, res.Fixed)
	assert.Equal(t, 2, res.Unchanged)
	assert.Equal(t, 2, res.Failed)
	assert.Empty(t, h.source.commits)
	assert.Equal(t, 1, h.source.pushes)

	reqs, err := h.ledger.Requests(ctx, "c0ffee")
	require.NoError(t, err)
	assert.Len(t, reqs, 3)
}

func TestRunIssuePanicIsContained(t *testing.T) {
	h := newHarness()
	h.conn.panicOn = "S1118"
	h.conn.answers["S3776"] = llm.ReplacementResponse{Replacements: []llm.Replacement{
		{FilePath: "src/S3776/Big.cs", NewCode: "class Big { void A() {} }"},
	}}

	res, err := h.orchestrator().Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, res.Issues)
	assert.Equal(t, 1, res.Failed)
	assert.Equal(t, 1, res.Fixed)
	assert.Len(t, h.source.commits, 1)
	assert.Equal(t, 1, h.source.pushes)
}

func TestRunUnresolvedReplacement(t *testing.T) {
	ctx := context.Background()
	h := newHarness()
	h.source.files["src/S1118/Nested/Util.cs"] = "class Util2 {}"
	h.analysis.issues = h.analysis.issues[:1]
	h.conn.answers["S1118"] = llm.ReplacementResponse{Replacements: []llm.Replacement{
		{FilePath: "Util.cs", NewCode: "static class Util {}"},
	}}

	before := testutil.ToFloat64(replacementsCounter.With(prometheus.Labels{"model": "phi4", "outcome": replacementUnresolved}))
	res, err := h.orchestrator().Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Unchanged)
	assert.Equal(t, "class Util {}", h.source.files["src/S1118/Util.cs"])
	assert.Equal(t, before+1, testutil.ToFloat64(replacementsCounter.With(prometheus.Labels{"model": "phi4", "outcome": replacementUnresolved})))
}

func TestRunExitCodes(t *testing.T) {
	tests := []struct {
		name  string
		setup func(h *harness, cfg *Config) ConnectFunc
		want  ExitCode
	}{{
		name: "invalid config",
		setup: func(_ *harness, cfg *Config) ConnectFunc {
			cfg.ProjectKey = ""
			return nil
		},
		want: ConfigurationError,
	}, {
		name: "clone fails",
		setup: func(h *harness, _ *Config) ConnectFunc {
			h.source.cloneErr = errors.New("auth required")
			return nil
		},
		want: SourceCodeConnectionError,
	}, {
		name: "connector fails",
		setup: func(*harness, *Config) ConnectFunc {
			return func(context.Context, string, ledger.Requests) (Connector, error) {
				return nil, llm.Unsupported(llm.ModelNone)
			}
		},
		want: AiConnectorError,
	}, {
		name: "issues fail",
		setup: func(h *harness, _ *Config) ConnectFunc {
			h.analysis.issuesErr = errors.New("status 401")
			return nil
		},
		want: CodeAnalysisError,
	}, {
		name: "push fails",
		setup: func(h *harness, _ *Config) ConnectFunc {
			h.source.pushErr = errors.New("rejected")
			return nil
		},
		want: SourceCodeConnectionError,
	}}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness()
			cfg := testConfig()
			connect := tt.setup(h, &cfg)
			if connect == nil {
				connect = func(_ context.Context, _ string, reqs ledger.Requests) (Connector, error) {
					h.conn.requests = reqs
					return h.conn, nil
				}
			}
			o := New(cfg, h.source, h.analysis, h.ledger, connect, WithCorrelationIDs(func() string { return "run" }))
			_, err := o.Run(context.Background())
			require.Error(t, err)
			assert.Equal(t, tt.want, ExitCodeOf(err))
		})
	}
}

func TestRunEndsRunOnFailure(t *testing.T) {
	ctx := context.Background()
	h := newHarness()
	h.analysis.issuesErr = errors.New("boom")

	_, err := h.orchestrator().Run(ctx)
	require.Error(t, err)

	sums, err := h.ledger.Summaries(ctx, "c0ffee")
	require.NoError(t, err)
	require.Len(t, sums, 1)
	assert.NotNil(t, sums[0].Run.End)
}

func TestRunCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	h := newHarness()
	h.analysis.issues = h.analysis.issues[:1]
	connect := func(_ context.Context, _ string, reqs ledger.Requests) (Connector, error) {
		h.conn.requests = reqs
		cancel()
		return h.conn, nil
	}

	_, err := New(testConfig(), h.source, h.analysis, h.ledger, connect).Run(ctx)
	assert.Equal(t, UnknownError, ExitCodeOf(err))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, h.source.pushes)
}

func TestRunOpensPullRequest(t *testing.T) {
	h := newHarness()
	h.analysis.issues = h.analysis.issues[:1]
	h.conn.answers["S1118"] = llm.ReplacementResponse{Replacements: []llm.Replacement{
		{FilePath: "src/S1118/Util.cs", NewCode: "static class Util {}"},
	}}
	prs := &fakeOpener{}
	repo := pullrequest.Repository{Owner: "acme", Name: "shop"}

	res, err := h.orchestrator(WithPullRequests(prs, repo)).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "https://github.com/acme/shop/pull/7", res.PullRequest)
	require.Len(t, prs.got, 1)
	assert.Equal(t, repo, prs.got[0].Repository)
	assert.Equal(t, res.Branch, prs.got[0].Head)
	assert.Equal(t, "main", prs.got[0].Base)
	assert.True(t, strings.Contains(prs.got[0].Body, "c0ffee"))
}

func TestRunPullRequestFailureIsNotFatal(t *testing.T) {
	h := newHarness()
	h.analysis.issues = h.analysis.issues[:1]
	h.conn.answers["S1118"] = llm.ReplacementResponse{Replacements: []llm.Replacement{
		{FilePath: "src/S1118/Util.cs", NewCode: "static class Util {}"},
	}}
	prs := &fakeOpener{err: errors.New("forbidden")}

	res, err := h.orchestrator(WithPullRequests(prs, pullrequest.Repository{Owner: "acme", Name: "shop"})).Run(context.Background())
	require.NoError(t, err)
	assert.Empty(t, res.PullRequest)
	assert.Equal(t, 1, res.Fixed)
}
