package git

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

const (
	defaultTimeout = 30 * time.Second
	networkTimeout = 2 * time.Minute
)

// Ops provides Git operations against one working copy.
type Ops struct {
	repoPath string
}

// NewOps creates a Git operations helper for the given repository path.
func NewOps(repoPath string) *Ops {
	return &Ops{repoPath: repoPath}
}

// Clone performs a full clone of url into dir. The URL may carry
// credentials; callers are responsible for scrubbing it from errors.
func Clone(ctx context.Context, url, dir string) error {
	ctx, cancel := context.WithTimeout(ctx, networkTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "git", "clone", url, dir)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("git clone: %s: %s", err, strings.TrimSpace(stderr.String()))
	}
	return nil
}

// IsGitRepo returns true if the path is a git repository.
func (g *Ops) IsGitRepo(ctx context.Context) bool {
	_, err := g.run(ctx, defaultTimeout, "rev-parse", "--git-dir")
	return err == nil
}

// HasCommits returns true if the repository has at least one commit.
func (g *Ops) HasCommits(ctx context.Context) bool {
	_, err := g.run(ctx, defaultTimeout, "rev-parse", "HEAD")
	return err == nil
}

// CurrentBranch returns the current branch name.
// Uses symbolic-ref which works on unborn branches (no commits yet).
func (g *Ops) CurrentBranch(ctx context.Context) (string, error) {
	out, err := g.run(ctx, defaultTimeout, "symbolic-ref", "--short", "HEAD")
	if err != nil {
		return "", fmt.Errorf("getting current branch: %w", err)
	}
	return strings.TrimSpace(out), nil
}

// RemoteDefaultBranch returns the branch origin/HEAD points at, if known.
func (g *Ops) RemoteDefaultBranch(ctx context.Context) (string, error) {
	out, err := g.run(ctx, defaultTimeout, "symbolic-ref", "--short", "refs/remotes/origin/HEAD")
	if err != nil {
		return "", fmt.Errorf("getting remote default branch: %w", err)
	}
	return strings.TrimPrefix(strings.TrimSpace(out), "origin/"), nil
}

// SetRemoteURL repoints origin, used when credentials rotate between runs.
func (g *Ops) SetRemoteURL(ctx context.Context, url string) error {
	if _, err := g.run(ctx, defaultTimeout, "remote", "set-url", "origin", url); err != nil {
		return fmt.Errorf("setting remote url: %w", err)
	}
	return nil
}

// Fetch updates the named remote branch.
func (g *Ops) Fetch(ctx context.Context, branch string) error {
	if _, err := g.run(ctx, networkTimeout, "fetch", "origin", branch); err != nil {
		return fmt.Errorf("fetching origin/%s: %w", branch, err)
	}
	return nil
}

// ResetHard discards the working copy and index in favor of the given ref.
func (g *Ops) ResetHard(ctx context.Context, ref string) error {
	if _, err := g.run(ctx, defaultTimeout, "reset", "--hard", ref); err != nil {
		return fmt.Errorf("resetting to %s: %w", ref, err)
	}
	return nil
}

// Stash saves uncommitted changes to the stash.
func (g *Ops) Stash(ctx context.Context) error {
	if _, err := g.run(ctx, defaultTimeout, "stash", "push", "-m", "gogogadget: auto-stash before reset"); err != nil {
		return fmt.Errorf("stashing changes: %w", err)
	}
	return nil
}

// StatusPorcelain returns the porcelain status output, one line per entry.
func (g *Ops) StatusPorcelain(ctx context.Context) ([]string, error) {
	out, err := g.run(ctx, defaultTimeout, "status", "--porcelain")
	if err != nil {
		return nil, fmt.Errorf("checking git status: %w", err)
	}
	return splitLines(out), nil
}

// IsClean returns true if the working tree has no uncommitted changes.
func (g *Ops) IsClean(ctx context.Context) (bool, error) {
	lines, err := g.StatusPorcelain(ctx)
	if err != nil {
		return false, err
	}
	return len(lines) == 0, nil
}

// SetIdentity configures the commit author for this working copy only.
func (g *Ops) SetIdentity(ctx context.Context, name, email string) error {
	if _, err := g.run(ctx, defaultTimeout, "config", "user.name", name); err != nil {
		return fmt.Errorf("setting user.name: %w", err)
	}
	if _, err := g.run(ctx, defaultTimeout, "config", "user.email", email); err != nil {
		return fmt.Errorf("setting user.email: %w", err)
	}
	return nil
}

// AddAll stages every change including untracked files.
func (g *Ops) AddAll(ctx context.Context) error {
	if _, err := g.run(ctx, defaultTimeout, "add", "-A"); err != nil {
		return fmt.Errorf("staging changes: %w", err)
	}
	return nil
}

// Commit creates a commit with the given message.
func (g *Ops) Commit(ctx context.Context, message string) error {
	if _, err := g.run(ctx, defaultTimeout, "commit", "-m", message); err != nil {
		return fmt.Errorf("committing: %w", err)
	}
	return nil
}

// UnpushedCommits lists one-line summaries of local commits not on
// origin/<branch>, newest first.
func (g *Ops) UnpushedCommits(ctx context.Context, branch string) ([]string, error) {
	out, err := g.run(ctx, defaultTimeout, "log", "origin/"+branch+"..HEAD", "--oneline")
	if err != nil {
		return nil, fmt.Errorf("listing unpushed commits: %w", err)
	}
	return splitLines(out), nil
}

// DiffStatAgainst summarizes changes between origin/<branch> and HEAD.
func (g *Ops) DiffStatAgainst(ctx context.Context, branch string) (string, error) {
	out, err := g.run(ctx, defaultTimeout, "diff", "--stat", "origin/"+branch+"..HEAD")
	if err != nil {
		return "", fmt.Errorf("getting diff stat: %w", err)
	}
	return strings.TrimSpace(out), nil
}

// Push sends HEAD to the named branch on the given (possibly
// credential-bearing) URL.
func (g *Ops) Push(ctx context.Context, url, branch string) error {
	if _, err := g.run(ctx, networkTimeout, "push", url, "HEAD:"+branch); err != nil {
		return err
	}
	return nil
}

// Log returns the last N commit messages.
func (g *Ops) Log(ctx context.Context, n int) (string, error) {
	out, err := g.run(ctx, defaultTimeout, "log", "--oneline", fmt.Sprintf("-n%d", n))
	if err != nil {
		return "", fmt.Errorf("getting log: %w", err)
	}
	return out, nil
}

func (g *Ops) run(ctx context.Context, timeout time.Duration, args ...string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = g.repoPath

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("%s: %s", err, strings.TrimSpace(stderr.String()))
	}

	return stdout.String(), nil
}

func splitLines(s string) []string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return strings.Split(s, "\n")
}
