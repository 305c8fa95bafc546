// Package jobs tracks asynchronous prompt executions. Dispatch returns a
// job id immediately; the execution runs in the background and its
// outcome is kept in memory for polling, recorded to the execution
// history, and announced through the notification hub.
package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/TheWizardOz3/gogogadget/internal/coordinator"
	"github.com/TheWizardOz3/gogogadget/internal/notify"
	"github.com/TheWizardOz3/gogogadget/internal/store"
)

// Job statuses.
const (
	StatusQueued    = "queued"
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// Job is one tracked execution.
type Job struct {
	ID          string
	Project     string
	Prompt      string
	Status      string
	Result      *coordinator.Result
	CreatedAt   time.Time
	StartedAt   time.Time
	CompletedAt time.Time
}

// Runner executes one prompt; satisfied by coordinator.Coordinator.
type Runner interface {
	Execute(ctx context.Context, req coordinator.Request) (*coordinator.Result, error)
}

// Recorder persists finished executions; satisfied by store.Store.
type Recorder interface {
	RecordExecution(ctx context.Context, e *store.Execution) (int64, error)
}

// Manager owns the in-memory job table.
type Manager struct {
	runner   Runner
	recorder Recorder        // may be nil
	hub      notify.Notifier // may be nil

	// OverallTimeout bounds the whole execution including git work;
	// AgentTimeout is what the agent itself gets.
	OverallTimeout time.Duration
	AgentTimeout   time.Duration

	mu   sync.Mutex
	jobs map[string]*Job
}

// NewManager creates a job manager over the given runner.
func NewManager(runner Runner, recorder Recorder, hub notify.Notifier) *Manager {
	return &Manager{
		runner:   runner,
		recorder: recorder,
		hub:      hub,
		jobs:     make(map[string]*Job),
	}
}

// Dispatch starts req in the background and returns the new job id.
func (m *Manager) Dispatch(req coordinator.Request) string {
	jobID := uuid.NewString()
	req.JobID = jobID

	job := &Job{
		ID:        jobID,
		Project:   req.ProjectName,
		Prompt:    req.Prompt,
		Status:    StatusQueued,
		CreatedAt: time.Now().UTC(),
	}

	m.mu.Lock()
	m.jobs[jobID] = job
	m.mu.Unlock()

	go m.run(req, job)
	return jobID
}

// Get returns a snapshot of the job, if known.
func (m *Manager) Get(jobID string) (Job, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[jobID]
	if !ok {
		return Job{}, false
	}
	return *job, true
}

// List returns snapshots of all jobs, newest first.
func (m *Manager) List() []Job {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]Job, 0, len(m.jobs))
	for _, job := range m.jobs {
		out = append(out, *job)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

func (m *Manager) run(req coordinator.Request, job *Job) {
	ctx := context.Background()
	var cancel context.CancelFunc
	if m.OverallTimeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, m.OverallTimeout)
		defer cancel()
	}
	if req.Timeout == 0 {
		req.Timeout = m.AgentTimeout
	}

	m.mu.Lock()
	job.Status = StatusRunning
	job.StartedAt = time.Now().UTC()
	m.mu.Unlock()
	m.notifyEvent(notify.Event{
		Type:    notify.JobStarted,
		JobID:   job.ID,
		Project: req.ProjectName,
		Message: "Execution started",
	})

	res, err := m.runner.Execute(ctx, req)

	m.mu.Lock()
	job.CompletedAt = time.Now().UTC()
	if err != nil {
		job.Status = StatusFailed
		job.Result = &coordinator.Result{Error: err.Error()}
	} else {
		job.Result = res
		if res.Success {
			job.Status = StatusCompleted
		} else {
			job.Status = StatusFailed
		}
	}
	snapshot := *job
	m.mu.Unlock()

	m.record(snapshot, req)

	eventType := notify.JobCompleted
	message := fmt.Sprintf("%s finished", req.ProjectName)
	if snapshot.Status == StatusFailed {
		eventType = notify.JobFailed
		message = fmt.Sprintf("%s failed: %s", req.ProjectName, snapshot.Result.Error)
	}
	m.notifyEvent(notify.Event{
		Type:    eventType,
		JobID:   job.ID,
		Project: req.ProjectName,
		Message: message,
	})
}

func (m *Manager) record(job Job, req coordinator.Request) {
	if m.recorder == nil || job.Result == nil {
		return
	}

	status := "success"
	if job.Status == StatusFailed {
		status = "failed"
	}
	e := &store.Execution{
		JobID:             job.ID,
		Project:           req.ProjectName,
		SessionID:         job.Result.SessionID,
		Trigger:           "manual",
		Status:            status,
		Output:            job.Result.Output,
		Error:             job.Result.Error,
		CostUSD:           job.Result.CostUSD,
		Turns:             job.Result.Turns,
		Duration:          job.Result.Duration,
		StartedAt:         job.StartedAt,
		CompletedAt:       job.CompletedAt,
		HasPendingChanges: job.Result.HasPendingChanges,
	}
	if _, err := m.recorder.RecordExecution(context.Background(), e); err != nil {
		slog.Warn("recording execution failed", "job_id", job.ID, "error", err)
	}
}

func (m *Manager) notifyEvent(e notify.Event) {
	if m.hub == nil {
		return
	}
	m.hub.Notify(e)
}
