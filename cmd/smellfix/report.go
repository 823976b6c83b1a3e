/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package main

import (
	"github.com/sethvargo/go-envconfig"
	"github.com/spf13/cobra"

	"chainguard.dev/smellfix/ledger/report"
	"chainguard.dev/smellfix/orchestrator"
)

func newReportCmd(root *rootOptions) *cobra.Command {
	var runID string
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Print token usage and retries recorded in the ledger",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			cfg, err := loadConfig(ctx, root.configPath, envconfig.OsLookuper())
			if err != nil {
				return &orchestrator.RunError{Code: orchestrator.ConfigurationError, Err: err}
			}
			store, err := openLedger(ctx, cfg.Ledger)
			if err != nil {
				return &orchestrator.RunError{Code: orchestrator.ConfigurationError, Err: err}
			}
			defer store.Close()
			return report.Write(ctx, cmd.OutOrStdout(), store, runID)
		},
	}
	cmd.Flags().StringVar(&runID, "run", "", "show the requests of this run")
	return cmd
}
