/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package pullrequest opens a GitHub pull request for a pushed fix branch.
package pullrequest

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/chainguard-dev/clog"
	"github.com/google/go-github/v84/github"
	"golang.org/x/oauth2"
)

// ErrNotGitHub is returned by ParseRepository for non-GitHub remotes.
var ErrNotGitHub = errors.New("not a github.com repository")

// Repository identifies a GitHub repository.
type Repository struct {
	Owner string
	Name  string
}

func (r Repository) String() string { return r.Owner + "/" + r.Name }

// ParseRepository extracts the owner and name from an HTTPS or SCP-style
// GitHub clone URL.
func ParseRepository(remote string) (Repository, error) {
	remote = strings.TrimSpace(remote)
	var path string
	switch {
	case strings.HasPrefix(remote, "git@github.com:"):
		path = strings.TrimPrefix(remote, "git@github.com:")
	default:
		u, err := url.Parse(remote)
		if err != nil || u.Host != "github.com" {
			return Repository{}, fmt.Errorf("%q: %w", remote, ErrNotGitHub)
		}
		path = strings.TrimPrefix(u.Path, "/")
	}
	path = strings.TrimSuffix(strings.TrimSuffix(path, "/"), ".git")
	owner, name, ok := strings.Cut(path, "/")
	if !ok || owner == "" || name == "" || strings.Contains(name, "/") {
		return Repository{}, fmt.Errorf("%q: %w", remote, ErrNotGitHub)
	}
	return Repository{Owner: owner, Name: name}, nil
}

// Request describes the pull request to open.
type Request struct {
	Repository Repository
	// Head is the pushed fix branch, Base the branch it was cut from.
	Head  string
	Base  string
	Title string
	Body  string
}

// Opener creates pull requests, reusing an open one for the same head.
type Opener struct {
	client *github.Client
}

// New wraps an authenticated go-github client.
func New(client *github.Client) *Opener {
	return &Opener{client: client}
}

// NewWithToken authenticates with a static personal or installation token.
func NewWithToken(ctx context.Context, token string, base http.RoundTripper) *Opener {
	hc := &http.Client{Transport: base}
	ctx = context.WithValue(ctx, oauth2.HTTPClient, hc)
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
	return New(github.NewClient(oauth2.NewClient(ctx, ts)))
}

// Open returns the URL of the open pull request for req.Head, creating it
// when none exists.
func (o *Opener) Open(ctx context.Context, req Request) (string, error) {
	log := clog.FromContext(ctx).With("repository", req.Repository.String(), "head", req.Head)
	owner, repo := req.Repository.Owner, req.Repository.Name

	existing, _, err := o.client.PullRequests.List(ctx, owner, repo, &github.PullRequestListOptions{
		State: "open",
		Head:  owner + ":" + req.Head,
		Base:  req.Base,
	})
	if err != nil {
		return "", fmt.Errorf("listing pull requests: %w", err)
	}
	if len(existing) > 0 {
		log.Infof("Reusing PR #%d: %s", existing[0].GetNumber(), existing[0].GetHTMLURL())
		return existing[0].GetHTMLURL(), nil
	}

	pr, _, err := o.client.PullRequests.Create(ctx, owner, repo, &github.NewPullRequest{
		Title: github.Ptr(req.Title),
		Body:  github.Ptr(req.Body),
		Head:  github.Ptr(req.Head),
		Base:  github.Ptr(req.Base),
	})
	if err != nil {
		return "", fmt.Errorf("creating pull request: %w", err)
	}
	log.Infof("Created PR #%d: %s", pr.GetNumber(), pr.GetHTMLURL())
	return pr.GetHTMLURL(), nil
}
