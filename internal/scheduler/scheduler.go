// Package scheduler runs the periodic cycle that fires due scheduled
// prompts. Each cycle loads the prompt set, executes everything due, and
// writes the updated set back in one versioned save so concurrent edits
// from the tool surface are never clobbered.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/TheWizardOz3/gogogadget/internal/coordinator"
	"github.com/TheWizardOz3/gogogadget/internal/notify"
	"github.com/TheWizardOz3/gogogadget/internal/schedule"
	"github.com/TheWizardOz3/gogogadget/internal/store"
)

// PromptStore is the persistence surface the scheduler needs.
type PromptStore interface {
	LoadPromptSet(ctx context.Context) (*store.PromptSet, error)
	SavePromptSet(ctx context.Context, set *store.PromptSet) error
}

// Runner executes one prompt; satisfied by coordinator.Coordinator.
type Runner interface {
	Execute(ctx context.Context, req coordinator.Request) (*coordinator.Result, error)
}

// Recorder persists finished executions; satisfied by store.Store.
type Recorder interface {
	RecordExecution(ctx context.Context, e *store.Execution) (int64, error)
}

// CycleSummary reports what one cycle did.
type CycleSummary struct {
	Checked  int `json:"checked"`
	Executed int `json:"executed"`
	Errors   int `json:"errors"`
}

// Scheduler drives the periodic check of scheduled prompts.
type Scheduler struct {
	Store    PromptStore
	Runner   Runner
	Recorder Recorder        // may be nil
	Hub      notify.Notifier // may be nil

	Interval     time.Duration
	AgentTimeout time.Duration
	Model        string
	AllowedTools []string
}

// Run executes one cycle immediately, then one per interval until the
// context is cancelled.
func (s *Scheduler) Run(ctx context.Context) {
	interval := s.Interval
	if interval <= 0 {
		interval = 30 * time.Minute
	}

	s.runAndLog(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("scheduler stopped")
			return
		case <-ticker.C:
			s.runAndLog(ctx)
		}
	}
}

func (s *Scheduler) runAndLog(ctx context.Context) {
	summary, err := s.RunCycle(ctx, time.Now().UTC())
	if err != nil {
		slog.Error("scheduler cycle failed", "error", err)
		return
	}
	slog.Info("scheduler cycle complete",
		"checked", summary.Checked, "executed", summary.Executed, "errors", summary.Errors)
}

// RunCycle checks every scheduled prompt against now and executes the due
// ones. The prompt set is written back once at the end; a version
// conflict means another writer won and this cycle's bookkeeping is
// dropped (the executions themselves already happened and were recorded).
func (s *Scheduler) RunCycle(ctx context.Context, now time.Time) (*CycleSummary, error) {
	set, err := s.Store.LoadPromptSet(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading prompt set: %w", err)
	}

	summary := &CycleSummary{}
	changed := false

	for i := range set.Prompts {
		p := &set.Prompts[i]
		summary.Checked++

		if !p.Enabled {
			continue
		}

		// A prompt that has never been scheduled gets its first NextRunAt
		// computed now; it fires on a later cycle.
		if p.NextRunAt == nil {
			next := schedule.ComputeNextRun(p, now)
			p.NextRunAt = &next
			changed = true
			slog.Info("initialized schedule", "prompt_id", p.ID, "next_run_at", next)
			continue
		}

		if !schedule.IsDue(p, now) {
			continue
		}

		if p.Misconfigured() {
			// Surfaced every cycle until fixed; NextRunAt stays put.
			summary.Errors++
			p.LastExecution = &schedule.LastExecution{
				Timestamp: now,
				Status:    schedule.StatusMisconfigured,
				Error:     "missing repository url or project name",
			}
			changed = true
			s.notifyEvent(notify.Event{
				Type:    notify.ScheduleFailure,
				Project: p.ProjectName,
				Title:   "Scheduled prompt misconfigured",
				Message: fmt.Sprintf("Prompt %s is missing its repository url or project name", p.ID),
			})
			continue
		}

		s.execute(ctx, p, now)
		if p.LastExecution != nil && p.LastExecution.Status != schedule.StatusSuccess {
			summary.Errors++
		}
		summary.Executed++
		changed = true
	}

	if changed {
		if err := s.Store.SavePromptSet(ctx, set); err != nil {
			if errors.Is(err, store.ErrVersionConflict) {
				slog.Warn("prompt set changed during cycle, dropping schedule updates")
				return summary, nil
			}
			return summary, fmt.Errorf("saving prompt set: %w", err)
		}
	}

	return summary, nil
}

// execute runs one due prompt in a fresh agent session and records the
// outcome on the prompt. NextRunAt is advanced no matter how the attempt
// ended, so a failing prompt fires once per recurrence, not once per
// cycle.
func (s *Scheduler) execute(ctx context.Context, p *schedule.Prompt, now time.Time) {
	jobID := uuid.NewString()
	slog.Info("executing scheduled prompt",
		"prompt_id", p.ID, "project", p.ProjectName, "job_id", jobID)

	started := time.Now().UTC()
	res, err := s.Runner.Execute(ctx, coordinator.Request{
		JobID:        jobID,
		Prompt:       p.Prompt,
		ProjectName:  p.ProjectName,
		RepoURL:      p.RepoURL,
		Model:        s.Model,
		AllowedTools: s.AllowedTools,
		Timeout:      s.AgentTimeout,
	})

	last := &schedule.LastExecution{Timestamp: now}
	switch {
	case err != nil:
		last.Status = schedule.StatusFailed
		last.Error = err.Error()
	case res.Success:
		last.Status = schedule.StatusSuccess
		last.SessionID = res.SessionID
	default:
		last.Status = schedule.StatusFailed
		last.SessionID = res.SessionID
		last.Error = res.Error
	}
	p.LastExecution = last

	next := schedule.ComputeNextRun(p, now)
	p.NextRunAt = &next

	s.record(p, res, err, jobID, started)

	if last.Status == schedule.StatusSuccess {
		s.notifyEvent(notify.Event{
			Type:    notify.ScheduleSuccess,
			JobID:   jobID,
			Project: p.ProjectName,
			Message: fmt.Sprintf("Scheduled prompt completed: %s", p.Excerpt(100)),
		})
	} else {
		s.notifyEvent(notify.Event{
			Type:    notify.ScheduleFailure,
			JobID:   jobID,
			Project: p.ProjectName,
			Message: fmt.Sprintf("Scheduled prompt failed: %s", last.Error),
		})
	}
}

func (s *Scheduler) record(p *schedule.Prompt, res *coordinator.Result, execErr error, jobID string, started time.Time) {
	if s.Recorder == nil {
		return
	}

	e := &store.Execution{
		JobID:       jobID,
		PromptID:    p.ID,
		Project:     p.ProjectName,
		Trigger:     "scheduled",
		StartedAt:   started,
		CompletedAt: time.Now().UTC(),
	}
	if execErr != nil {
		e.Status = schedule.StatusFailed
		e.Error = execErr.Error()
	} else {
		e.SessionID = res.SessionID
		e.Output = res.Output
		e.Error = res.Error
		e.CostUSD = res.CostUSD
		e.Turns = res.Turns
		e.Duration = res.Duration
		e.HasPendingChanges = res.HasPendingChanges
		if res.Success {
			e.Status = schedule.StatusSuccess
		} else {
			e.Status = schedule.StatusFailed
		}
	}

	if _, err := s.Recorder.RecordExecution(context.Background(), e); err != nil {
		slog.Warn("recording scheduled execution failed", "prompt_id", p.ID, "error", err)
	}
}

func (s *Scheduler) notifyEvent(e notify.Event) {
	if s.Hub == nil {
		return
	}
	s.Hub.Notify(e)
}
