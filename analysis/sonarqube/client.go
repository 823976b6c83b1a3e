/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package sonarqube reads issues and rules from the SonarQube web API.
package sonarqube

import (
	"cmp"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/chainguard-dev/clog"

	"chainguard.dev/smellfix/analysis"
)

const (
	issuesPath = "api/issues/search"
	rulesPath  = "api/rules/search"

	// PageSize is the number of issues requested per page.
	PageSize = 100
)

// ErrRuleNotFound is returned by GetRule for an unknown key.
var ErrRuleNotFound = errors.New("rule not found")

// Client talks to one SonarQube server.
type Client struct {
	base   *url.URL
	token  string
	client *http.Client
}

var _ analysis.Client = (*Client)(nil)

// New returns a client for the server at baseURL. token, when set, is sent
// as a bearer token. A nil client means http.DefaultClient.
func New(baseURL, token string, client *http.Client) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing server url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("server url %q must be absolute", baseURL)
	}
	if !strings.HasSuffix(u.Path, "/") {
		u.Path += "/"
	}
	return &Client{base: u, token: token, client: cmp.Or(client, http.DefaultClient)}, nil
}

type paging struct {
	PageIndex int `json:"pageIndex"`
	PageSize  int `json:"pageSize"`
	Total     int `json:"total"`
}

type issuesResponse struct {
	Paging paging `json:"paging"`
	Issues []struct {
		Rule      string `json:"rule"`
		Component string `json:"component"`
		Message   string `json:"message"`
		TextRange struct {
			StartLine int `json:"startLine"`
			EndLine   int `json:"endLine"`
		} `json:"textRange"`
	} `json:"issues"`
	Components []struct {
		Key  string `json:"key"`
		Path string `json:"path"`
	} `json:"components"`
}

type rulesResponse struct {
	Rules []struct {
		Key                 string `json:"key"`
		Name                string `json:"name"`
		HTMLDesc            string `json:"htmlDesc"`
		MDDesc              string `json:"mdDesc"`
		DescriptionSections []struct {
			Key     string `json:"key"`
			Content string `json:"content"`
		} `json:"descriptionSections"`
	} `json:"rules"`
}

// GetIssues reads every page of issues for project.
func (c *Client) GetIssues(ctx context.Context, project analysis.Project) ([]analysis.Issue, error) {
	var out []analysis.Issue
	for page := 1; ; page++ {
		q := url.Values{
			"components": {project.Key},
			"p":          {strconv.Itoa(page)},
			"ps":         {strconv.Itoa(PageSize)},
		}
		if project.Language != "" {
			q.Set("languages", project.Language)
		}

		var resp issuesResponse
		if err := c.get(ctx, issuesPath, q, &resp); err != nil {
			return nil, fmt.Errorf("fetching issues page %d: %w", page, err)
		}

		paths := make(map[string]string, len(resp.Components))
		for _, comp := range resp.Components {
			paths[comp.Key] = comp.Path
		}
		for _, is := range resp.Issues {
			out = append(out, analysis.Issue{
				Rule:     analysis.RuleID(is.Rule),
				FilePath: componentPath(is.Component, paths),
				Range:    analysis.TextRange{StartLine: is.TextRange.StartLine, EndLine: is.TextRange.EndLine},
				Message:  is.Message,
			})
		}

		if len(resp.Issues) == 0 || page*PageSize >= resp.Paging.Total {
			break
		}
	}
	clog.FromContext(ctx).With("project", project.Key).Infof("Retrieved %d issues", len(out))
	return out, nil
}

// GetRule looks up a rule by its full key.
func (c *Client) GetRule(ctx context.Context, id analysis.RuleID) (analysis.Rule, error) {
	var resp rulesResponse
	if err := c.get(ctx, rulesPath, url.Values{"rule_key": {string(id)}}, &resp); err != nil {
		return analysis.Rule{}, fmt.Errorf("fetching rule %s: %w", id, err)
	}
	for _, r := range resp.Rules {
		if r.Key != string(id) {
			continue
		}
		var sections []string
		for _, s := range r.DescriptionSections {
			sections = append(sections, s.Content)
		}
		return analysis.Rule{
			ID:          id,
			Title:       r.Name,
			Description: cmp.Or(r.HTMLDesc, strings.Join(sections, "\n"), r.MDDesc),
		}, nil
	}
	return analysis.Rule{}, fmt.Errorf("%s: %w", id, ErrRuleNotFound)
}

func (c *Client) get(ctx context.Context, path string, q url.Values, into any) error {
	u := c.base.ResolveReference(&url.URL{Path: path, RawQuery: q.Encode()})
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return fmt.Errorf("%s: status %d: %s", path, resp.StatusCode, strings.TrimSpace(string(body)))
	}
	if err := json.NewDecoder(resp.Body).Decode(into); err != nil {
		return fmt.Errorf("decoding %s: %w", path, err)
	}
	return nil
}

// componentPath maps a component key to its repository path. Keys have the
// form "project:path/to/File.cs" when the response omits the component.
func componentPath(key string, paths map[string]string) string {
	if p := paths[key]; p != "" {
		return p
	}
	if _, p, ok := strings.Cut(key, ":"); ok {
		return p
	}
	return key
}
