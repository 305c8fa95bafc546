package repo

import (
	"context"
	"fmt"
	"log/slog"
)

// Commit identity used for locally-created commits.
const (
	CommitName  = "GoGoGadget Claude"
	CommitEmail = "gogogadget@claude.ai"
)

// PendingChanges describes repository modifications that exist locally
// but have not been transmitted upstream.
type PendingChanges struct {
	Exists           bool     `json:"exists"`
	HasPending       bool     `json:"hasPendingChanges"`
	UncommittedFiles []string `json:"uncommittedFiles,omitempty"`
	UnpushedCommits  []string `json:"unpushedCommits,omitempty"`
	DiffSummary      string   `json:"diffSummary,omitempty"`
}

// PushResult reports the outcome of an explicit push.
type PushResult struct {
	Pushed        bool     `json:"success"`
	Branch        string   `json:"branch,omitempty"`
	PushedCommits []string `json:"pushedCommits"`
	Message       string   `json:"message,omitempty"`
}

// Changes inspects the project's working copy without mutating it.
func (m *Manager) Changes(ctx context.Context, project string) (*PendingChanges, error) {
	unlock := m.Lock(project)
	defer unlock()

	if !m.Exists(project) {
		return &PendingChanges{Exists: false}, nil
	}

	ops := m.Ops(project)
	if !ops.IsGitRepo(ctx) {
		return nil, fmt.Errorf("%w: %s", ErrNotARepo, m.Dir(project))
	}

	uncommitted, err := ops.StatusPorcelain(ctx)
	if err != nil {
		return nil, err
	}

	branch := m.defaultBranchLocal(ctx, ops)
	unpushed, err := ops.UnpushedCommits(ctx, branch)
	if err != nil {
		slog.Debug("listing unpushed commits failed", "project", project, "error", err)
	}

	var diff string
	if len(unpushed) > 0 {
		diff, _ = ops.DiffStatAgainst(ctx, branch)
	}

	return &PendingChanges{
		Exists:           true,
		HasPending:       len(uncommitted) > 0 || len(unpushed) > 0,
		UncommittedFiles: uncommitted,
		UnpushedCommits:  unpushed,
		DiffSummary:      diff,
	}, nil
}

// Push transmits all unpushed local commits to the upstream default
// branch. This is the only path by which repository changes leave the
// system; nothing else ever pushes. With zero unpushed commits it
// returns success without touching the network.
func (m *Manager) Push(ctx context.Context, project, repoURL string) (*PushResult, error) {
	unlock := m.Lock(project)
	defer unlock()

	if !m.Exists(project) {
		return nil, fmt.Errorf("no working copy for project %q", project)
	}

	ops := m.Ops(project)
	if !ops.IsGitRepo(ctx) {
		return nil, fmt.Errorf("%w: %s", ErrNotARepo, m.Dir(project))
	}

	token := m.token()
	branch := m.resolveDefaultBranch(ctx, project, repoURL)

	commits, err := ops.UnpushedCommits(ctx, branch)
	if err != nil {
		return nil, err
	}
	if len(commits) == 0 {
		return &PushResult{
			Pushed:        true,
			Branch:        branch,
			PushedCommits: []string{},
			Message:       "no commits to push",
		}, nil
	}

	pushURL, err := AuthenticatedURL(repoURL, token)
	if err != nil {
		return nil, err
	}

	if err := ops.Push(ctx, pushURL, branch); err != nil {
		// Remote error text goes back to the caller verbatim, minus the token.
		return nil, fmt.Errorf("push failed: %s", Scrub(err.Error(), token))
	}

	slog.Info("pushed local commits", "project", project, "branch", branch, "count", len(commits))
	return &PushResult{
		Pushed:        true,
		Branch:        branch,
		PushedCommits: commits,
		Message:       fmt.Sprintf("pushed %d commit(s) to %s", len(commits), branch),
	}, nil
}
