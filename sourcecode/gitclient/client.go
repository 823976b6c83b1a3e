/*
Copyright 2025 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package gitclient

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/chainguard-dev/clog"
	"github.com/go-git/go-git/v5"
	gitconfig "github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	githttp "github.com/go-git/go-git/v5/plumbing/transport/http"
	"golang.org/x/oauth2"
	"golang.org/x/sync/errgroup"

	"chainguard.dev/smellfix/sourcecode"
)

const (
	cloneDirPrefix = "smellfix-clone-"

	// DefaultAuthorName and DefaultAuthorEmail sign commits when the
	// configuration leaves them empty.
	DefaultAuthorName  = "smellfix bot"
	DefaultAuthorEmail = "robot@git.com"

	readConcurrency = 8
)

// ErrNothingToCommit is returned by Commit when the worktree is clean.
var ErrNothingToCommit = errors.New("nothing to commit")

// skippedDirs are build outputs that never hold source worth fixing.
var skippedDirs = map[string]struct{}{"bin": {}, "obj": {}}

// testDirMarkers exclude test projects, matched as substrings so that
// "App.UnitTests" is skipped too.
var testDirMarkers = []string{"UnitTests", "IntegrationTests"}

// Config describes the repository to work on.
type Config struct {
	// Repository is the clone URL or a local path.
	Repository string
	// Branch is checked out after cloning; the fix branch starts from it.
	Branch string
	// Username and Password enable basic auth for clone and push.
	Username string
	Password string
	// WorkDir is where the clone lives. Empty means a fresh temp dir that
	// Close removes.
	WorkDir     string
	AuthorName  string
	AuthorEmail string
}

// Option customizes a Client.
type Option func(*Client)

// WithTokenSource authenticates with an OAuth2 access token when no
// password is configured, the way GitHub installation tokens are used.
func WithTokenSource(ts oauth2.TokenSource) Option {
	return func(c *Client) { c.tokenSource = ts }
}

// Client is a single working copy driven through go-git. It is not safe
// for concurrent mutation; reads from GetAllFiles fan out internally.
type Client struct {
	cfg         Config
	tokenSource oauth2.TokenSource
	now         func() time.Time

	mu      sync.Mutex
	dir     string
	ownsDir bool
	repo    *git.Repository
}

var _ sourcecode.Lister = (*Client)(nil)

// New validates cfg and returns an unopened client. Call Clone first.
func New(cfg Config, opts ...Option) (*Client, error) {
	switch {
	case strings.TrimSpace(cfg.Repository) == "":
		return nil, errors.New("repository cannot be empty")
	case strings.TrimSpace(cfg.Branch) == "":
		return nil, errors.New("branch cannot be empty")
	case cfg.Username != "" && cfg.Password == "":
		return nil, errors.New("password is required when a username is set")
	}
	cfg.AuthorName = cmp.Or(cfg.AuthorName, DefaultAuthorName)
	cfg.AuthorEmail = cmp.Or(cfg.AuthorEmail, DefaultAuthorEmail)

	c := &Client{cfg: cfg, now: time.Now}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Dir returns the root of the working copy, or "" before Clone.
func (c *Client) Dir() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dir
}

// Clone fetches the configured branch into the working directory.
func (c *Client) Clone(ctx context.Context) error {
	dir, owns := c.cfg.WorkDir, false
	if dir == "" {
		var err error
		if dir, err = os.MkdirTemp("", cloneDirPrefix); err != nil {
			return fmt.Errorf("creating temp dir: %w", err)
		}
		owns = true
	}

	auth, err := c.auth()
	if err != nil {
		return err
	}

	clog.InfoContextf(ctx, "Cloning repository %s (branch %s) into %s", c.cfg.Repository, c.cfg.Branch, dir)
	repo, err := git.PlainCloneContext(ctx, dir, false, &git.CloneOptions{
		URL:           c.cfg.Repository,
		ReferenceName: plumbing.NewBranchReferenceName(c.cfg.Branch),
		SingleBranch:  true,
		Auth:          auth,
	})
	if err != nil {
		if owns {
			os.RemoveAll(dir)
		}
		return fmt.Errorf("cloning repository: %w", err)
	}

	c.mu.Lock()
	c.dir, c.ownsDir, c.repo = dir, owns, repo
	c.mu.Unlock()
	return nil
}

// Close removes the working copy when Clone created it.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.ownsDir || c.dir == "" {
		return nil
	}
	err := os.RemoveAll(c.dir)
	c.dir, c.repo = "", nil
	return err
}

func (c *Client) repository() (*git.Repository, string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.repo == nil {
		return nil, "", errors.New("repository is not cloned")
	}
	return c.repo, c.dir, nil
}

// CreateBranch creates name at HEAD and checks it out.
func (c *Client) CreateBranch(ctx context.Context, name string) error {
	if name == "" {
		return errors.New("branch name cannot be empty")
	}
	repo, _, err := c.repository()
	if err != nil {
		return err
	}

	head, err := repo.Head()
	if err != nil {
		return fmt.Errorf("resolving HEAD: %w", err)
	}
	refName := plumbing.NewBranchReferenceName(name)
	if err := repo.Storer.SetReference(plumbing.NewHashReference(refName, head.Hash())); err != nil {
		return fmt.Errorf("setting branch reference: %w", err)
	}

	wt, err := repo.Worktree()
	if err != nil {
		return fmt.Errorf("getting worktree: %w", err)
	}
	if err := wt.Checkout(&git.CheckoutOptions{Branch: refName}); err != nil {
		return fmt.Errorf("checking out branch: %w", err)
	}
	clog.InfoContextf(ctx, "Created and checked out branch %s at %s", name, head.Hash())
	return nil
}

// Commit stages every change in the worktree and commits it.
func (c *Client) Commit(ctx context.Context, message string) error {
	if message == "" {
		return errors.New("commit message cannot be empty")
	}
	repo, _, err := c.repository()
	if err != nil {
		return err
	}
	wt, err := repo.Worktree()
	if err != nil {
		return fmt.Errorf("getting worktree: %w", err)
	}

	if err := wt.AddWithOptions(&git.AddOptions{All: true}); err != nil {
		return fmt.Errorf("staging changes: %w", err)
	}
	status, err := wt.Status()
	if err != nil {
		return fmt.Errorf("getting worktree status: %w", err)
	}
	if status.IsClean() {
		return ErrNothingToCommit
	}

	hash, err := wt.Commit(message, &git.CommitOptions{
		Author: &object.Signature{
			Name:  c.cfg.AuthorName,
			Email: c.cfg.AuthorEmail,
			When:  c.now(),
		},
	})
	if err != nil {
		return fmt.Errorf("committing: %w", err)
	}
	clog.InfoContextf(ctx, "Committed %s", hash)
	return nil
}

// Push pushes the current branch to origin. A branch that is already up
// to date counts as success.
func (c *Client) Push(ctx context.Context) error {
	repo, _, err := c.repository()
	if err != nil {
		return err
	}
	head, err := repo.Head()
	if err != nil {
		return fmt.Errorf("resolving HEAD: %w", err)
	}
	auth, err := c.auth()
	if err != nil {
		return err
	}

	refSpec := gitconfig.RefSpec(fmt.Sprintf("%s:%s", head.Name(), head.Name()))
	clog.InfoContextf(ctx, "Pushing %s to origin", refSpec)
	if err := repo.PushContext(ctx, &git.PushOptions{
		RemoteName: "origin",
		RefSpecs:   []gitconfig.RefSpec{refSpec},
		Auth:       auth,
	}); err != nil {
		if errors.Is(err, git.NoErrAlreadyUpToDate) {
			clog.InfoContextf(ctx, "Branch already up to date")
			return nil
		}
		return fmt.Errorf("pushing: %w", err)
	}
	return nil
}

// GetFileContent reads a file relative to the repository root.
func (c *Client) GetFileContent(_ context.Context, path string) (string, error) {
	_, root, err := c.repository()
	if err != nil {
		return "", err
	}
	full, err := validatePath(root, path)
	if err != nil {
		return "", err
	}
	data, err := os.ReadFile(full)
	if errors.Is(err, fs.ErrNotExist) {
		return "", fmt.Errorf("%s: %w", path, sourcecode.ErrFileNotFound)
	}
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// UpdateFileContent overwrites an existing file. A missing path fails with
// sourcecode.ErrFileNotFound; files are never created.
func (c *Client) UpdateFileContent(ctx context.Context, path, content string) error {
	_, root, err := c.repository()
	if err != nil {
		return err
	}
	full, err := validatePath(root, path)
	if err != nil {
		return err
	}
	info, err := os.Stat(full)
	if errors.Is(err, fs.ErrNotExist) || (err == nil && info.IsDir()) {
		return fmt.Errorf("%s: %w", path, sourcecode.ErrFileNotFound)
	}
	if err != nil {
		return err
	}
	if err := os.WriteFile(full, []byte(content), info.Mode().Perm()); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	clog.InfoContextf(ctx, "Updated %s", path)
	return nil
}

// GetAllFiles returns every file ending in extension, sorted by path.
// Build outputs, hidden paths and test projects are skipped. A non-empty
// folderFilter keeps only files below a directory of that name.
func (c *Client) GetAllFiles(ctx context.Context, extension, folderFilter string) ([]sourcecode.SourceFile, error) {
	_, root, err := c.repository()
	if err != nil {
		return nil, err
	}

	var paths []string
	err = filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if p == root {
			return nil
		}
		name := d.Name()
		if d.IsDir() {
			if skipDir(name) {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasPrefix(name, ".") || !strings.HasSuffix(name, extension) {
			return nil
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if folderFilter != "" && !inFolder(rel, folderFilter) {
			return nil
		}
		paths = append(paths, rel)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking %s: %w", root, err)
	}
	slices.Sort(paths)

	files := make([]sourcecode.SourceFile, len(paths))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(readConcurrency)
	for i, p := range paths {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			data, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(p)))
			if err != nil {
				return fmt.Errorf("reading %s: %w", p, err)
			}
			files[i] = sourcecode.SourceFile{Path: p, Content: string(data)}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	clog.FromContext(ctx).With("extension", extension, "folder", folderFilter).Infof("Found %d files", len(files))
	return files, nil
}

func (c *Client) auth() (*githttp.BasicAuth, error) {
	switch {
	case c.cfg.Password != "":
		return &githttp.BasicAuth{Username: c.cfg.Username, Password: c.cfg.Password}, nil
	case c.tokenSource != nil:
		tok, err := c.tokenSource.Token()
		if err != nil {
			return nil, fmt.Errorf("getting token: %w", err)
		}
		return &githttp.BasicAuth{Username: "x-access-token", Password: tok.AccessToken}, nil
	default:
		return nil, nil
	}
}

func skipDir(name string) bool {
	if strings.HasPrefix(name, ".") {
		return true
	}
	if _, ok := skippedDirs[name]; ok {
		return true
	}
	for _, m := range testDirMarkers {
		if strings.Contains(name, m) {
			return true
		}
	}
	return false
}

func inFolder(rel, folder string) bool {
	dirs := strings.Split(rel, "/")
	return slices.ContainsFunc(dirs[:len(dirs)-1], func(d string) bool {
		return strings.EqualFold(d, folder)
	})
}

// validatePath resolves path below root, rejecting anything that escapes
// it. Backslash separators from Windows-style paths are accepted.
func validatePath(root, path string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(strings.ReplaceAll(path, `\`, "/")))
	full := filepath.Join(root, clean)
	rel, err := filepath.Rel(root, full)
	if err != nil {
		return "", fmt.Errorf("path %q: %w", path, err)
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("path %q escapes worktree", path)
	}
	return full, nil
}
