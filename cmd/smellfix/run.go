/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package main

import (
	"cmp"
	"context"
	"fmt"
	"time"

	"github.com/chainguard-dev/clog"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sethvargo/go-envconfig"
	"github.com/spf13/cobra"

	"chainguard.dev/smellfix/agents/adapters"
	"chainguard.dev/smellfix/agents/connector"
	"chainguard.dev/smellfix/agents/llm"
	"chainguard.dev/smellfix/agents/metrics"
	"chainguard.dev/smellfix/analysis/sonarqube"
	"chainguard.dev/smellfix/ledger"
	"chainguard.dev/smellfix/orchestrator"
	"chainguard.dev/smellfix/sourcecode/gitclient"
	"chainguard.dev/smellfix/sourcecode/pullrequest"
	"chainguard.dev/smellfix/transport/httpretry"
)

var _ orchestrator.SourceRepository = (*gitclient.Client)(nil)

// analysisTimeout bounds a single analysis service call including retries.
const analysisTimeout = 5 * time.Minute

func newRunCmd(root *rootOptions) *cobra.Command {
	var metricsFile string
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Fix the open issues of a project and push them to a new branch",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			cfg, err := loadConfig(ctx, root.configPath, envconfig.OsLookuper())
			if err != nil {
				return &orchestrator.RunError{Code: orchestrator.ConfigurationError, Err: err}
			}

			res, err := runFix(ctx, cfg)
			if metricsFile != "" {
				if err := prometheus.WriteToTextfile(metricsFile, prometheus.DefaultGatherer); err != nil {
					clog.WarnContextf(ctx, "Failed to write metrics to %s: %v", metricsFile, err)
				}
			}
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "run %s on %s: %d issues, %d fixed, %d unchanged, %d failed\n",
				res.RunID, res.Branch, res.Issues, res.Fixed, res.Unchanged, res.Failed)
			if res.PullRequest != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "pull request: %s\n", res.PullRequest)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&metricsFile, "metrics-textfile", "", "write run metrics in the Prometheus text format to this file")
	return cmd
}

func runFix(ctx context.Context, cfg config) (orchestrator.Result, error) {
	ocfg := cfg.orchestrator()
	if err := orchestrator.ValidateConfig(ocfg); err != nil {
		return orchestrator.Result{}, err
	}

	store, err := openLedger(ctx, cfg.Ledger)
	if err != nil {
		return orchestrator.Result{}, &orchestrator.RunError{Code: orchestrator.ConfigurationError, Err: err}
	}
	defer store.Close()

	repo, err := gitclient.New(cfg.git())
	if err != nil {
		return orchestrator.Result{}, &orchestrator.RunError{Code: orchestrator.ConfigurationError, Err: err}
	}
	defer func() {
		if err := repo.Close(); err != nil {
			clog.WarnContextf(ctx, "Failed to remove working copy: %v", err)
		}
	}()

	sonar, err := sonarqube.New(cfg.Analysis.ServerURL, cfg.Analysis.Token,
		httpretry.New("sonarqube").Client(analysisTimeout))
	if err != nil {
		return orchestrator.Result{}, &orchestrator.RunError{Code: orchestrator.ConfigurationError, Err: err}
	}

	var opts []orchestrator.Option
	if cfg.GitHub.PullRequest {
		if gh, err := pullrequest.ParseRepository(cfg.Git.Repository); err != nil {
			clog.WarnContextf(ctx, "Pull requests disabled: %v", err)
		} else {
			opener := pullrequest.NewWithToken(ctx, cmp.Or(cfg.GitHub.Token, cfg.Git.Password), httpretry.New("github"))
			opts = append(opts, orchestrator.WithPullRequests(opener, gh))
		}
	}

	return orchestrator.New(ocfg, repo, sonar, store, connectFunc(cfg.AI, cfg.Git.Extension, repo), opts...).Run(ctx)
}

// connectFunc builds the connector once the working copy is cloned, so that
// adapters that send source files can read them.
func connectFunc(cfg aiConfig, extension string, files *gitclient.Client) orchestrator.ConnectFunc {
	return func(_ context.Context, runID string, reqs ledger.Requests) (orchestrator.Connector, error) {
		vendor := cfg.Model.Vendor()
		base := cfg.baseURL(adapters.DefaultBaseURL(vendor))
		client := httpretry.New(string(vendor)).Client(cfg.Timeout)

		adapter, err := adapters.New(cfg.Model, llm.Settings{
			Token:           cfg.Token,
			BaseURL:         base,
			MaxOutputTokens: cfg.MaxOutputTokens,
			HTTPClient:      client,
			Files:           files,
			Extension:       extension,
			SystemPrompt:    orchestrator.SystemPrompt,
			CacheTTL:        cfg.CacheTTL,
		})
		if err != nil {
			return nil, err
		}
		m := metrics.NewGenAI("chainguard.smellfix.connector")
		m.SetAttributeEnricher(metrics.ForRun(runID))

		c, err := connector.New(cfg.Model, adapter,
			connector.WithBaseURL(base),
			connector.WithHTTPClient(client),
			connector.WithLedger(reqs),
			connector.WithMetrics(m),
		)
		if err != nil {
			return nil, err
		}
		return c, nil
	}
}
