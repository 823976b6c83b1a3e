/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/sethvargo/go-envconfig"
	"gopkg.in/yaml.v3"

	"chainguard.dev/smellfix/agents/llm"
	"chainguard.dev/smellfix/orchestrator"
	"chainguard.dev/smellfix/sourcecode/gitclient"
)

type config struct {
	AI       aiConfig       `yaml:"ai" env:", prefix=AI_"`
	Analysis analysisConfig `yaml:"analysis" env:", prefix=ANALYSIS_"`
	Git      gitConfig      `yaml:"git" env:", prefix=GIT_"`
	GitHub   githubConfig   `yaml:"github" env:", prefix=GITHUB_"`
	Ledger   ledgerConfig   `yaml:"ledger" env:", prefix=LEDGER_"`
}

type aiConfig struct {
	Model           llm.Model     `yaml:"model" env:"MODEL"`
	Token           string        `yaml:"token" env:"TOKEN"`
	BaseURL         string        `yaml:"base_url" env:"BASE_URL"`
	Timeout         time.Duration `yaml:"timeout" env:"TIMEOUT, default=10m"`
	MaxOutputTokens int64         `yaml:"max_output_tokens" env:"MAX_OUTPUT_TOKENS"`
	CacheTTL        time.Duration `yaml:"cache_ttl" env:"CACHE_TTL, default=1h"`
}

type analysisConfig struct {
	Type       string `yaml:"type" env:"TYPE, default=sonarqube"`
	ServerURL  string `yaml:"server_url" env:"SERVER_URL"`
	Token      string `yaml:"token" env:"TOKEN"`
	ProjectKey string `yaml:"project_key" env:"PROJECT_KEY"`
	Language   string `yaml:"language" env:"LANGUAGE, default=cs"`
}

type gitConfig struct {
	Repository     string `yaml:"repository" env:"REPOSITORY"`
	Branch         string `yaml:"branch" env:"BRANCH"`
	CommitTemplate string `yaml:"commit_template" env:"COMMIT_TEMPLATE"`
	Username       string `yaml:"username" env:"USERNAME"`
	Password       string `yaml:"password" env:"PASSWORD"`
	WorkDir        string `yaml:"workdir" env:"WORKDIR"`
	Extension      string `yaml:"extension" env:"EXTENSION, default=.cs"`
	AuthorName     string `yaml:"author_name" env:"AUTHOR_NAME"`
	AuthorEmail    string `yaml:"author_email" env:"AUTHOR_EMAIL"`
}

type githubConfig struct {
	Token       string `yaml:"token" env:"TOKEN"`
	PullRequest bool   `yaml:"pull_request" env:"PULL_REQUEST"`
}

type ledgerConfig struct {
	Driver string `yaml:"driver" env:"DRIVER, default=sqlite"`
	DSN    string `yaml:"dsn" env:"DSN, default=smellfix.db"`
}

// loadConfig reads the optional settings file at path and then applies the
// environment on top of it.
func loadConfig(ctx context.Context, path string, env envconfig.Lookuper) (config, error) {
	var cfg config
	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return cfg, fmt.Errorf("opening settings: %w", err)
		}
		defer f.Close()
		dec := yaml.NewDecoder(f)
		dec.KnownFields(true)
		if err := dec.Decode(&cfg); err != nil {
			return cfg, fmt.Errorf("parsing settings %s: %w", path, err)
		}
	}
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{
		Target:           &cfg,
		Lookuper:         env,
		DefaultOverwrite: true,
	}); err != nil {
		return cfg, fmt.Errorf("processing environment: %w", err)
	}
	return cfg, nil
}

func (c config) orchestrator() orchestrator.Config {
	return orchestrator.Config{
		Model:          c.AI.Model,
		Token:          c.AI.Token,
		AnalysisType:   c.Analysis.Type,
		ProjectKey:     c.Analysis.ProjectKey,
		Language:       c.Analysis.Language,
		Repository:     c.Git.Repository,
		Branch:         c.Git.Branch,
		CommitTemplate: c.Git.CommitTemplate,
		Username:       c.Git.Username,
		Password:       c.Git.Password,
		Extension:      c.Git.Extension,
	}
}

func (c config) git() gitclient.Config {
	return gitclient.Config{
		Repository:  c.Git.Repository,
		Branch:      c.Git.Branch,
		Username:    c.Git.Username,
		Password:    c.Git.Password,
		WorkDir:     c.Git.WorkDir,
		AuthorName:  c.Git.AuthorName,
		AuthorEmail: c.Git.AuthorEmail,
	}
}

// baseURL is the vendor endpoint in effect, always ending in a slash.
func (c aiConfig) baseURL(fallback string) string {
	u := c.BaseURL
	if u == "" {
		u = fallback
	}
	if u != "" && !strings.HasSuffix(u, "/") {
		u += "/"
	}
	return u
}
