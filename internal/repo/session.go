package repo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/TheWizardOz3/gogogadget/internal/git"
)

// Session-layer error taxonomy. Clone failures are fatal for an
// execution; an unreachable upstream is not, because local-only work must
// still be possible against stale state.
var (
	ErrCloneFailed         = errors.New("repo: clone failed")
	ErrNotARepo            = errors.New("repo: not a git repository")
	ErrUpstreamUnreachable = errors.New("repo: upstream unreachable")
)

// Manager owns one persistent working copy per project name. All
// clone/reset/commit sequences for a project run under that project's
// lock, so two executions can never race on the same working copy.
type Manager struct {
	baseDir string
	token   func() string

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewManager creates a session manager rooted at baseDir. token is
// consulted on every remote operation so rotated credentials take effect
// without a restart.
func NewManager(baseDir string, token func() string) *Manager {
	if token == nil {
		token = func() string { return "" }
	}
	return &Manager{
		baseDir: baseDir,
		token:   token,
		locks:   make(map[string]*sync.Mutex),
	}
}

// Dir returns the working directory for a project name.
func (m *Manager) Dir(project string) string {
	return filepath.Join(m.baseDir, project)
}

// Lock acquires the per-project mutex and returns its unlock func.
// Callers hold it across the full ensure/execute/commit sequence.
func (m *Manager) Lock(project string) func() {
	m.mu.Lock()
	l, ok := m.locks[project]
	if !ok {
		l = &sync.Mutex{}
		m.locks[project] = l
	}
	m.mu.Unlock()

	l.Lock()
	return l.Unlock
}

// Ops returns git operations bound to the project's working copy.
func (m *Manager) Ops(project string) *git.Ops {
	return git.NewOps(m.Dir(project))
}

// Ensure makes the project's working directory a valid checkout of
// repoURL and returns its path. The caller must hold the project lock.
//
// A fresh session discards local edits and resets to upstream; a
// continuing session leaves local state untouched so work from earlier
// executions of the same agent session survives. A directory that is not
// a valid checkout is deleted and re-cloned; it is never repaired in
// place, so the agent never sees a half-cloned tree.
func (m *Manager) Ensure(ctx context.Context, project, repoURL string, continuing bool) (string, error) {
	dir := m.Dir(project)
	token := m.token()

	authURL, err := AuthenticatedURL(repoURL, token)
	if err != nil {
		return "", err
	}

	if _, statErr := os.Stat(dir); statErr == nil {
		ops := git.NewOps(dir)
		if !ops.IsGitRepo(ctx) {
			slog.Warn("working copy invalid, re-cloning", "project", project, "dir", dir)
			if err := os.RemoveAll(dir); err != nil {
				return "", fmt.Errorf("removing corrupted working copy: %w", err)
			}
		} else {
			if err := m.reconcile(ctx, ops, project, authURL, token, continuing); err != nil {
				return "", err
			}
			return dir, nil
		}
	}

	if err := os.MkdirAll(filepath.Dir(dir), 0750); err != nil {
		return "", fmt.Errorf("creating repos dir: %w", err)
	}

	slog.Info("cloning repository", "project", project, "url", Scrub(repoURL, token))
	if err := git.Clone(ctx, authURL, dir); err != nil {
		// A failed clone may leave a partial tree behind; remove it so
		// the invariant "absent or valid" holds for the next attempt.
		_ = os.RemoveAll(dir)
		return "", fmt.Errorf("%w: %s", ErrCloneFailed, Scrub(err.Error(), token))
	}

	return dir, nil
}

// reconcile updates an existing valid checkout for the next execution.
func (m *Manager) reconcile(ctx context.Context, ops *git.Ops, project, authURL, token string, continuing bool) error {
	// Credentials may have rotated since the last run.
	if err := ops.SetRemoteURL(ctx, authURL); err != nil {
		slog.Warn("updating remote url failed", "project", project, "error", Scrub(err.Error(), token))
	}

	if continuing {
		slog.Debug("continuing session, keeping local state", "project", project)
		return nil
	}

	branch := m.defaultBranchLocal(ctx, ops)

	if err := ops.Stash(ctx); err != nil {
		slog.Debug("stash before reset failed", "project", project, "error", err)
	}

	if err := ops.Fetch(ctx, branch); err != nil {
		// Upstream unreachability must not block local-only work.
		slog.Warn("fetch failed, using existing local state",
			"project", project, "branch", branch, "error", Scrub(err.Error(), token))
		return nil
	}

	if err := ops.ResetHard(ctx, "origin/"+branch); err != nil {
		return fmt.Errorf("resetting %s to origin/%s: %w", project, branch, err)
	}
	slog.Info("reset working copy to upstream", "project", project, "branch", branch)
	return nil
}

func (m *Manager) defaultBranchLocal(ctx context.Context, ops *git.Ops) string {
	if b, err := ops.RemoteDefaultBranch(ctx); err == nil && b != "" {
		return b
	}
	if b, err := ops.CurrentBranch(ctx); err == nil && b != "" {
		return b
	}
	return "main"
}

// Exists reports whether a working directory exists for the project.
func (m *Manager) Exists(project string) bool {
	_, err := os.Stat(m.Dir(project))
	return err == nil
}
