/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Command smellfix fixes static analysis findings with a language model and
// pushes the fixes to a branch.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/chainguard-dev/clog"
	"github.com/spf13/cobra"

	"chainguard.dev/smellfix/orchestrator"
)

var version = "dev"

type rootOptions struct {
	configPath string
	logLevel   string
	logFormat  string
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	if err != nil {
		clog.ErrorContextf(ctx, "smellfix: %v", err)
	}
	cancel()
	os.Exit(int(orchestrator.ExitCodeOf(err)))
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:           "smellfix",
		Short:         "Fix static analysis findings with a language model",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			log, err := newLogger(cmd.ErrOrStderr(), opts.logLevel, opts.logFormat)
			if err != nil {
				return &orchestrator.RunError{Code: orchestrator.ConfigurationError, Err: err}
			}
			cmd.SetContext(clog.WithLogger(cmd.Context(), log))
			return nil
		},
	}
	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "YAML settings file; the environment overrides it")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "info", "debug, info, warn or error")
	root.PersistentFlags().StringVar(&opts.logFormat, "log-format", "text", "text or json")

	root.AddCommand(
		newRunCmd(opts),
		newReportCmd(opts),
	)
	return root
}
