/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package orchestrator

import (
	"errors"
	"fmt"
	"strings"

	"chainguard.dev/smellfix/agents/llm"
)

// AnalysisSonarQube is the only supported analysis service type.
const AnalysisSonarQube = "sonarqube"

// Config is what a run needs to know beyond its collaborators.
type Config struct {
	Model llm.Model
	// Token authenticates against the model vendor. Local Ollama models
	// may run without one.
	Token string

	AnalysisType string
	ProjectKey   string
	// Language is the analysis language key, "cs" for C#.
	Language string

	Repository     string
	Branch         string
	CommitTemplate string
	Username       string
	Password       string
	// Extension selects source files for path resolution, ".cs" for C#.
	Extension string
}

// ValidateConfig checks that cfg can drive a run. Every problem is
// reported, not just the first.
func ValidateConfig(cfg Config) error {
	var errs []error
	if !cfg.Model.Valid() {
		errs = append(errs, fmt.Errorf("model %v is not supported", cfg.Model))
	} else if cfg.Model.Vendor() != llm.Ollama && strings.TrimSpace(cfg.Token) == "" {
		errs = append(errs, fmt.Errorf("a token is required for %s models", cfg.Model.Vendor()))
	}
	switch {
	case strings.TrimSpace(cfg.AnalysisType) == "":
		errs = append(errs, errors.New("analysis type must be set"))
	case !strings.EqualFold(cfg.AnalysisType, AnalysisSonarQube):
		errs = append(errs, fmt.Errorf("analysis type %q is not supported", cfg.AnalysisType))
	}
	if strings.TrimSpace(cfg.ProjectKey) == "" {
		errs = append(errs, errors.New("analysis project key must be set"))
	}
	if strings.TrimSpace(cfg.Repository) == "" {
		errs = append(errs, errors.New("git repository must be set"))
	}
	if strings.TrimSpace(cfg.Branch) == "" {
		errs = append(errs, errors.New("git branch must be set"))
	}
	if strings.TrimSpace(cfg.CommitTemplate) == "" {
		errs = append(errs, errors.New("git commit template must be set"))
	}
	if cfg.Username != "" && cfg.Password == "" {
		errs = append(errs, errors.New("git password must be set when a username is"))
	}
	if err := errors.Join(errs...); err != nil {
		return &RunError{Code: ConfigurationError, Err: err}
	}
	return nil
}
