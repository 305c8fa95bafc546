// Package coordinator drives one agent execution end to end: it prepares
// the project's working copy, invokes the executor, and performs the git
// bookkeeping afterwards. Work is committed locally only; nothing is ever
// pushed upstream from here.
package coordinator

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/TheWizardOz3/gogogadget/internal/executor"
	"github.com/TheWizardOz3/gogogadget/internal/repo"
	"github.com/TheWizardOz3/gogogadget/internal/volume"
)

// Request describes one prompt to run against a project.
type Request struct {
	JobID       string
	Prompt      string
	ProjectName string
	RepoURL     string

	// SessionID, when set, continues an existing agent conversation and
	// leaves the working copy untouched. When empty a new session id is
	// minted and the working copy is reconciled with upstream first.
	SessionID string

	Model        string
	AllowedTools []string
	Timeout      time.Duration

	OnProgress executor.ProgressFunc
}

// Result is the uniform outcome of one execution attempt. SessionID is
// always set, even on failure, so the caller can continue the
// conversation.
type Result struct {
	SessionID         string
	Success           bool
	Output            string
	Error             string
	HasPendingChanges bool
	CostUSD           float64
	Turns             int
	Duration          time.Duration
}

// Coordinator wires the repository session manager, the executor and the
// durable volumes together.
type Coordinator struct {
	Repos    *repo.Manager
	Exec     executor.Executor
	Sessions volume.Volume // agent session state; may be nil
	ReposVol volume.Volume // working copies; may be nil
}

// Execute runs one prompt to completion. The returned error covers only
// setup failures the caller misused us with (empty project, empty repo
// URL); execution and bookkeeping failures are reported inside Result so
// every attempt yields a uniform record.
func (c *Coordinator) Execute(ctx context.Context, req Request) (*Result, error) {
	if req.ProjectName == "" {
		return nil, fmt.Errorf("project name is required")
	}
	if req.RepoURL == "" {
		return nil, fmt.Errorf("repository url is required")
	}

	c.reloadVolumes(ctx)

	continuing := req.SessionID != ""
	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	res := &Result{SessionID: sessionID}

	// One execution per project at a time; held across the whole
	// ensure/execute/commit sequence.
	unlock := c.Repos.Lock(req.ProjectName)
	defer unlock()

	dir, err := c.Repos.Ensure(ctx, req.ProjectName, req.RepoURL, continuing)
	if err != nil {
		res.Error = err.Error()
		return res, nil
	}

	execResult, execErr := c.Exec.Execute(ctx, executor.Request{
		JobID:        req.JobID,
		Prompt:       req.Prompt,
		ProjectPath:  dir,
		SessionID:    sessionID,
		Resume:       continuing,
		Model:        req.Model,
		AllowedTools: req.AllowedTools,
		Timeout:      req.Timeout,
	}, req.OnProgress)

	// Session state changed even on failure; flush it regardless.
	c.commitVolume(ctx, c.Sessions, "sessions")

	if execResult != nil {
		if execResult.SessionID != "" {
			res.SessionID = execResult.SessionID
		}
		res.Output = execResult.Output
		res.CostUSD = execResult.CostUSD
		res.Turns = execResult.Turns
		res.Duration = execResult.Duration
	}

	if execErr != nil {
		res.Error = execErr.Error()
	} else {
		res.Success = true
	}

	// Bookkeeping runs for failed executions too: a partial edit left in
	// the tree is still worth recording locally.
	pending, bkErr := c.recordLocalWork(ctx, req, res.SessionID)
	if bkErr != nil {
		slog.Warn("git bookkeeping failed",
			"job_id", req.JobID, "project", req.ProjectName, "error", bkErr)
	}
	res.HasPendingChanges = pending

	c.commitVolume(ctx, c.ReposVol, "repos")

	return res, nil
}

// recordLocalWork commits whatever the agent left in the working copy and
// reports whether local commits are waiting to be pushed. The caller
// holds the project lock.
func (c *Coordinator) recordLocalWork(ctx context.Context, req Request, sessionID string) (bool, error) {
	ops := c.Repos.Ops(req.ProjectName)
	if !ops.IsGitRepo(ctx) {
		return false, nil
	}

	if err := ops.SetIdentity(ctx, repo.CommitName, repo.CommitEmail); err != nil {
		return false, fmt.Errorf("setting commit identity: %w", err)
	}

	status, err := ops.StatusPorcelain(ctx)
	if err != nil {
		return false, fmt.Errorf("reading status: %w", err)
	}

	if len(status) > 0 {
		if err := ops.AddAll(ctx); err != nil {
			return false, fmt.Errorf("staging changes: %w", err)
		}
		if err := ops.Commit(ctx, commitMessage(req.Prompt, sessionID)); err != nil {
			return false, fmt.Errorf("committing changes: %w", err)
		}
		slog.Info("committed agent changes locally",
			"job_id", req.JobID, "project", req.ProjectName, "files", len(status))
	}

	branch, err := ops.CurrentBranch(ctx)
	if err != nil || branch == "" {
		branch = "main"
	}
	unpushed, err := ops.UnpushedCommits(ctx, branch)
	if err != nil {
		// No upstream ref yet (e.g. local-only history) is not a defect.
		slog.Debug("unpushed check failed", "project", req.ProjectName, "error", err)
		return len(status) > 0, nil
	}
	return len(unpushed) > 0, nil
}

func commitMessage(prompt, sessionID string) string {
	excerpt := strings.Join(strings.Fields(prompt), " ")
	if len(excerpt) > 100 {
		excerpt = excerpt[:100] + "..."
	}
	short := sessionID
	if len(short) > 8 {
		short = short[:8]
	}
	return fmt.Sprintf("GoGoGadget: %s\n\nSession: %s", excerpt, short)
}

func (c *Coordinator) reloadVolumes(ctx context.Context) {
	for name, v := range map[string]volume.Volume{"sessions": c.Sessions, "repos": c.ReposVol} {
		if v == nil {
			continue
		}
		if err := v.Reload(ctx); err != nil {
			slog.Warn("volume reload failed", "volume", name, "error", err)
		}
	}
}

func (c *Coordinator) commitVolume(ctx context.Context, v volume.Volume, name string) {
	if v == nil {
		return
	}
	if err := v.Commit(ctx); err != nil {
		slog.Warn("volume commit failed", "volume", name, "error", err)
	}
}
