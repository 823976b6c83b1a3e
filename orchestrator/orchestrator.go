/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"strings"
	"time"

	"github.com/chainguard-dev/clog"
	"github.com/google/uuid"

	"chainguard.dev/smellfix/agents/llm"
	"chainguard.dev/smellfix/analysis"
	"chainguard.dev/smellfix/ledger"
	"chainguard.dev/smellfix/sourcecode"
	"chainguard.dev/smellfix/sourcecode/gitclient"
	"chainguard.dev/smellfix/sourcecode/pullrequest"
)

// SourceRepository is the working copy a run edits.
type SourceRepository interface {
	sourcecode.Lister
	Clone(ctx context.Context) error
	CreateBranch(ctx context.Context, name string) error
	UpdateFileContent(ctx context.Context, path, content string) error
	Commit(ctx context.Context, message string) error
	Push(ctx context.Context) error
}

// Connector asks a model for replacements.
type Connector interface {
	SetupCaching(ctx context.Context)
	GetResponse(ctx context.Context, p llm.Prompt) (llm.ReplacementResponse, error)
}

// ConnectFunc builds the connector for a run once the working copy exists.
// Requests are recorded against the run.
type ConnectFunc func(ctx context.Context, runID string, requests ledger.Requests) (Connector, error)

// PullRequestOpener opens a pull request for the pushed branch.
type PullRequestOpener interface {
	Open(ctx context.Context, req pullrequest.Request) (string, error)
}

// Result summarizes a finished run.
type Result struct {
	RunID       string
	Branch      string
	Issues      int
	Fixed       int
	Unchanged   int
	Failed      int
	PullRequest string
}

// Orchestrator drives one fix run.
type Orchestrator struct {
	cfg      Config
	source   SourceRepository
	analysis analysis.Client
	ledger   ledger.Ledger
	connect  ConnectFunc

	prs  PullRequestOpener
	repo pullrequest.Repository

	newID func() string
	now   func() time.Time
}

// Option customizes an Orchestrator.
type Option func(*Orchestrator)

// WithPullRequests opens a pull request against repo after the push.
func WithPullRequests(prs PullRequestOpener, repo pullrequest.Repository) Option {
	return func(o *Orchestrator) {
		o.prs, o.repo = prs, repo
	}
}

// WithCorrelationIDs replaces the run id generator.
func WithCorrelationIDs(f func() string) Option {
	return func(o *Orchestrator) { o.newID = f }
}

// New wires a run. Nothing happens until Run.
func New(cfg Config, source SourceRepository, ac analysis.Client, l ledger.Ledger, connect ConnectFunc, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		cfg:      cfg,
		source:   source,
		analysis: ac,
		ledger:   l,
		connect:  connect,
		newID:    uuid.NewString,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Run executes the whole fix pipeline. Failures of a single issue are
// logged and counted; only setup, issue retrieval and the final push end
// the run with a *RunError.
func (o *Orchestrator) Run(ctx context.Context) (Result, error) {
	if err := ValidateConfig(o.cfg); err != nil {
		return Result{}, err
	}

	model := o.cfg.Model
	res := Result{RunID: o.newID()}
	res.Branch = BranchName(model, res.RunID)

	log := clog.FromContext(ctx).With("run_id", res.RunID, "model", model.Name())
	ctx = clog.WithLogger(ctx, log)

	if err := o.ledger.InitializeRun(ctx, ledger.Run{
		ID:     res.RunID,
		Branch: res.Branch,
		Model:  model.Name(),
		Start:  o.now(),
	}); err != nil {
		return res, fail(UnknownError, "initializing run: %w", err)
	}
	defer func() {
		if err := o.ledger.EndRun(context.WithoutCancel(ctx), res.RunID); err != nil {
			log.Warnf("Failed to end run: %v", err)
		}
	}()
	log.Infof("Starting run on branch %s", res.Branch)

	if err := o.source.Clone(ctx); err != nil {
		return res, fail(SourceCodeConnectionError, "cloning: %w", err)
	}
	if err := o.source.CreateBranch(ctx, res.Branch); err != nil {
		return res, fail(SourceCodeConnectionError, "creating branch: %w", err)
	}

	conn, err := o.connect(ctx, res.RunID, ledger.ForRun(o.ledger, res.RunID))
	if err != nil {
		return res, fail(AiConnectorError, "creating connector: %w", err)
	}
	conn.SetupCaching(ctx)

	issues, err := o.analysis.GetIssues(ctx, analysis.Project{Key: o.cfg.ProjectKey, Language: o.cfg.Language})
	if err != nil {
		return res, fail(CodeAnalysisError, "fetching issues: %w", err)
	}
	res.Issues = len(issues)
	log.Infof("Working on %d issues", len(issues))

	m := runMetrics{model: model.Name()}
	for _, issue := range issues {
		if err := ctx.Err(); err != nil {
			return res, fail(UnknownError, "run cancelled: %w", err)
		}
		outcome := o.fixIssue(ctx, conn, m, issue)
		m.issue(outcome)
		switch outcome {
		case outcomeFixed:
			res.Fixed++
		case outcomeUnchanged:
			res.Unchanged++
		default:
			res.Failed++
		}
	}
	if err := ctx.Err(); err != nil {
		return res, fail(UnknownError, "run cancelled: %w", err)
	}

	if err := o.source.Push(ctx); err != nil {
		return res, fail(SourceCodeConnectionError, "pushing: %w", err)
	}
	log.Infof("Pushed %s: %d fixed, %d unchanged, %d failed", res.Branch, res.Fixed, res.Unchanged, res.Failed)

	if o.prs != nil && res.Fixed > 0 {
		url, err := o.prs.Open(ctx, pullrequest.Request{
			Repository: o.repo,
			Head:       res.Branch,
			Base:       o.cfg.Branch,
			Title:      fmt.Sprintf("Automated code smell fixes (%s)", model.Name()),
			Body:       pullRequestBody(res),
		})
		if err != nil {
			log.Warnf("Failed to open pull request: %v", err)
		} else {
			res.PullRequest = url
		}
	}
	return res, nil
}

func (o *Orchestrator) fixIssue(ctx context.Context, conn Connector, m runMetrics, issue analysis.Issue) (outcome string) {
	log := clog.FromContext(ctx).With("rule", string(issue.Rule), "file", issue.FilePath)
	ctx = clog.WithLogger(ctx, log)

	// A panic fails this issue only.
	defer func() {
		if r := recover(); r != nil {
			log.Errorf("Panic while fixing issue: %v\n%s", r, debug.Stack())
			outcome = outcomeFailed
		}
	}()

	rule, err := o.analysis.GetRule(ctx, issue.Rule)
	if err != nil {
		log.Warnf("Failed to fetch rule: %v", err)
		return outcomeFailed
	}

	text, err := IssuePrompt(o.cfg.Language, issue, rule)
	if err != nil {
		log.Warnf("Failed to build prompt: %v", err)
		return outcomeFailed
	}

	resp, err := conn.GetResponse(ctx, llm.Prompt{
		Text:         text,
		RuleID:       issue.Rule.Short(),
		SystemPrompt: SystemPrompt,
		Schema:       llm.ReplacementSchema,
	})
	if err != nil {
		log.Warnf("Failed to get a fix: %v", err)
		return outcomeFailed
	}

	if applied := o.applyReplacements(ctx, m, issue, resp.Replacements); applied == 0 {
		log.Warnf("None of %d replacements could be applied", len(resp.Replacements))
		return outcomeUnchanged
	}

	switch err := o.source.Commit(ctx, CommitMessage(o.cfg.CommitTemplate, issue, rule)); {
	case errors.Is(err, gitclient.ErrNothingToCommit):
		log.Infof("Replacements left the files unchanged")
		return outcomeUnchanged
	case err != nil:
		log.Warnf("Failed to commit: %v", err)
		return outcomeFailed
	}
	log.Infof("Fixed and committed")
	return outcomeFixed
}

// applyReplacements writes each replacement, falling back to a base-name
// search when the model's path does not exist. It returns how many were
// written.
func (o *Orchestrator) applyReplacements(ctx context.Context, m runMetrics, issue analysis.Issue, replacements []llm.Replacement) int {
	log := clog.FromContext(ctx)
	applied := 0
	for _, r := range replacements {
		err := o.source.UpdateFileContent(ctx, r.FilePath, r.NewCode)
		switch {
		case err == nil:
			m.replacement(replacementApplied)
			applied++
			continue
		case !errors.Is(err, sourcecode.ErrFileNotFound):
			log.Warnf("Failed to update %s: %v", r.FilePath, err)
			m.replacement(replacementFailed)
			continue
		}

		log.Debugf("Path %s does not exist, searching by file name", r.FilePath)
		res, err := ResolvePath(ctx, o.source, o.cfg.Extension, issue.Rule.Short(), r.FilePath)
		if err != nil {
			log.Warnf("Failed to search for %s: %v", r.FilePath, err)
			m.replacement(replacementFailed)
			continue
		}
		if !res.Found {
			log.Warnf("Could not resolve %s: %d files share its name", r.FilePath, res.Candidates)
			m.replacement(replacementUnresolved)
			continue
		}
		if err := o.source.UpdateFileContent(ctx, res.Path, r.NewCode); err != nil {
			log.Warnf("Failed to update %s: %v", res.Path, err)
			m.replacement(replacementFailed)
			continue
		}
		log.Infof("Resolved %s to %s", r.FilePath, res.Path)
		m.replacement(replacementResolved)
		applied++
	}
	return applied
}

func pullRequestBody(res Result) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Automated fixes for static analysis findings.\n\n")
	fmt.Fprintf(&b, "| Issues | Fixed | Unchanged | Failed |\n|---|---|---|---|\n")
	fmt.Fprintf(&b, "| %d | %d | %d | %d |\n\n", res.Issues, res.Fixed, res.Unchanged, res.Failed)
	fmt.Fprintf(&b, "Run `%s`.\n", res.RunID)
	return b.String()
}
