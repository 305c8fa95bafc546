package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TheWizardOz3/gogogadget/internal/coordinator"
	"github.com/TheWizardOz3/gogogadget/internal/notify"
	"github.com/TheWizardOz3/gogogadget/internal/schedule"
	"github.com/TheWizardOz3/gogogadget/internal/store"
)

type memoryStore struct {
	mu       sync.Mutex
	version  int64
	prompts  []schedule.Prompt
	loadErr  error
	conflict bool // force version conflict on next save
	saves    int
}

func (m *memoryStore) LoadPromptSet(context.Context) (*store.PromptSet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	cp := make([]schedule.Prompt, len(m.prompts))
	copy(cp, m.prompts)
	return &store.PromptSet{Version: m.version, Prompts: cp}, nil
}

func (m *memoryStore) SavePromptSet(_ context.Context, set *store.PromptSet) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.conflict || set.Version != m.version {
		return store.ErrVersionConflict
	}
	m.prompts = make([]schedule.Prompt, len(set.Prompts))
	copy(m.prompts, set.Prompts)
	m.version++
	set.Version = m.version
	m.saves++
	return nil
}

type fakeRunner struct {
	mu       sync.Mutex
	requests []coordinator.Request
	result   *coordinator.Result
	err      error
}

func (f *fakeRunner) Execute(_ context.Context, req coordinator.Request) (*coordinator.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	if f.result == nil {
		return &coordinator.Result{SessionID: "ses_sched", Success: true}, f.err
	}
	return f.result, f.err
}

func (f *fakeRunner) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}

type captureNotifier struct {
	mu     sync.Mutex
	events []notify.Event
}

func (c *captureNotifier) Notify(e notify.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, e)
}

func (c *captureNotifier) all() []notify.Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	cp := make([]notify.Event, len(c.events))
	copy(cp, c.events)
	return cp
}

var cycleNow = time.Date(2024, 1, 15, 17, 0, 0, 0, time.UTC)

func duePrompt(id string) schedule.Prompt {
	due := cycleNow.Add(-10 * time.Minute)
	return schedule.Prompt{
		ID:          id,
		Prompt:      "update the changelog",
		ProjectName: "blog",
		RepoURL:     "https://github.com/example/blog",
		Enabled:     true,
		Schedule:    schedule.Daily,
		TimeOfDay:   "08:45",
		Timezone:    "America/Los_Angeles",
		NextRunAt:   &due,
	}
}

func TestRunCycle_ExecutesDuePromptsOnly(t *testing.T) {
	t.Parallel()

	future := cycleNow.Add(time.Hour)
	disabled := duePrompt("p-disabled")
	disabled.Enabled = false
	notDue := duePrompt("p-later")
	notDue.NextRunAt = &future

	ms := &memoryStore{prompts: []schedule.Prompt{duePrompt("p-due"), disabled, notDue}}
	runner := &fakeRunner{}
	s := &Scheduler{Store: ms, Runner: runner}

	summary, err := s.RunCycle(context.Background(), cycleNow)
	require.NoError(t, err)

	assert.Equal(t, 3, summary.Checked)
	assert.Equal(t, 1, summary.Executed)
	assert.Equal(t, 0, summary.Errors)
	assert.Equal(t, 1, runner.calls())
}

func TestRunCycle_AdvancesNextRunAndRecordsSuccess(t *testing.T) {
	t.Parallel()

	ms := &memoryStore{prompts: []schedule.Prompt{duePrompt("p1")}}
	runner := &fakeRunner{}
	s := &Scheduler{Store: ms, Runner: runner}

	_, err := s.RunCycle(context.Background(), cycleNow)
	require.NoError(t, err)

	saved := ms.prompts[0]
	require.NotNil(t, saved.LastExecution)
	assert.Equal(t, schedule.StatusSuccess, saved.LastExecution.Status)
	assert.Equal(t, "ses_sched", saved.LastExecution.SessionID)
	require.NotNil(t, saved.NextRunAt)
	assert.True(t, saved.NextRunAt.After(cycleNow), "next run must move into the future")
	// Daily at 08:45 LA = 16:45 UTC next day
	assert.Equal(t, time.Date(2024, 1, 16, 16, 45, 0, 0, time.UTC), saved.NextRunAt.UTC())
}

func TestRunCycle_FailedExecutionStillAdvancesNextRun(t *testing.T) {
	t.Parallel()

	ms := &memoryStore{prompts: []schedule.Prompt{duePrompt("p1")}}
	runner := &fakeRunner{result: &coordinator.Result{
		SessionID: "ses_f",
		Success:   false,
		Error:     "clone failed",
	}}
	s := &Scheduler{Store: ms, Runner: runner}

	summary, err := s.RunCycle(context.Background(), cycleNow)
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Executed)
	assert.Equal(t, 1, summary.Errors)

	saved := ms.prompts[0]
	require.NotNil(t, saved.LastExecution)
	assert.Equal(t, schedule.StatusFailed, saved.LastExecution.Status)
	assert.Equal(t, "clone failed", saved.LastExecution.Error)
	assert.True(t, saved.NextRunAt.After(cycleNow), "failure must not leave the prompt due")
}

func TestRunCycle_MisconfiguredPromptSurfacedWithoutAdvancing(t *testing.T) {
	t.Parallel()

	p := duePrompt("p1")
	p.RepoURL = ""
	originalNext := *p.NextRunAt
	ms := &memoryStore{prompts: []schedule.Prompt{p}}
	runner := &fakeRunner{}
	hub := &captureNotifier{}
	s := &Scheduler{Store: ms, Runner: runner, Hub: hub}

	summary, err := s.RunCycle(context.Background(), cycleNow)
	require.NoError(t, err)

	assert.Equal(t, 0, summary.Executed)
	assert.Equal(t, 1, summary.Errors)
	assert.Equal(t, 0, runner.calls())

	saved := ms.prompts[0]
	require.NotNil(t, saved.LastExecution)
	assert.Equal(t, schedule.StatusMisconfigured, saved.LastExecution.Status)
	assert.Equal(t, originalNext, *saved.NextRunAt)

	events := hub.all()
	require.Len(t, events, 1)
	assert.Equal(t, notify.ScheduleFailure, events[0].Type)
}

func TestRunCycle_InitializesMissingNextRun(t *testing.T) {
	t.Parallel()

	p := duePrompt("p1")
	p.NextRunAt = nil
	ms := &memoryStore{prompts: []schedule.Prompt{p}}
	runner := &fakeRunner{}
	s := &Scheduler{Store: ms, Runner: runner}

	summary, err := s.RunCycle(context.Background(), cycleNow)
	require.NoError(t, err)

	// First cycle schedules, does not execute
	assert.Equal(t, 0, summary.Executed)
	assert.Equal(t, 0, runner.calls())
	require.NotNil(t, ms.prompts[0].NextRunAt)
	assert.True(t, ms.prompts[0].NextRunAt.After(cycleNow))
}

func TestRunCycle_NothingDue_SkipsSave(t *testing.T) {
	t.Parallel()

	future := cycleNow.Add(time.Hour)
	p := duePrompt("p1")
	p.NextRunAt = &future
	ms := &memoryStore{prompts: []schedule.Prompt{p}}
	s := &Scheduler{Store: ms, Runner: &fakeRunner{}}

	_, err := s.RunCycle(context.Background(), cycleNow)
	require.NoError(t, err)
	assert.Equal(t, 0, ms.saves)
}

func TestRunCycle_VersionConflict_DropsUpdatesWithoutError(t *testing.T) {
	t.Parallel()

	ms := &memoryStore{prompts: []schedule.Prompt{duePrompt("p1")}, conflict: true}
	runner := &fakeRunner{}
	s := &Scheduler{Store: ms, Runner: runner}

	summary, err := s.RunCycle(context.Background(), cycleNow)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Executed)
	assert.Equal(t, 0, ms.saves)
}

func TestRunCycle_LoadFailure_ReturnsError(t *testing.T) {
	t.Parallel()

	ms := &memoryStore{loadErr: errors.New("database is locked")}
	s := &Scheduler{Store: ms, Runner: &fakeRunner{}}

	_, err := s.RunCycle(context.Background(), cycleNow)
	assert.Error(t, err)
}

func TestRunCycle_PassesSchedulerConfigToRunner(t *testing.T) {
	t.Parallel()

	ms := &memoryStore{prompts: []schedule.Prompt{duePrompt("p1")}}
	runner := &fakeRunner{}
	s := &Scheduler{
		Store:        ms,
		Runner:       runner,
		AgentTimeout: 9 * time.Minute,
		Model:        "claude-sonnet-4",
		AllowedTools: []string{"Read", "Edit"},
	}

	_, err := s.RunCycle(context.Background(), cycleNow)
	require.NoError(t, err)

	require.Equal(t, 1, runner.calls())
	req := runner.requests[0]
	assert.Equal(t, 9*time.Minute, req.Timeout)
	assert.Equal(t, "claude-sonnet-4", req.Model)
	assert.Equal(t, []string{"Read", "Edit"}, req.AllowedTools)
	assert.Empty(t, req.SessionID, "scheduled runs always start fresh sessions")
	assert.NotEmpty(t, req.JobID)
}

func TestRunCycle_RecordsScheduledExecution(t *testing.T) {
	t.Parallel()

	ms := &memoryStore{prompts: []schedule.Prompt{duePrompt("p1")}}
	runner := &fakeRunner{}
	recorder := &fakeRecorder{}
	s := &Scheduler{Store: ms, Runner: runner, Recorder: recorder}

	_, err := s.RunCycle(context.Background(), cycleNow)
	require.NoError(t, err)

	require.Len(t, recorder.recorded, 1)
	e := recorder.recorded[0]
	assert.Equal(t, "p1", e.PromptID)
	assert.Equal(t, "scheduled", e.Trigger)
	assert.Equal(t, schedule.StatusSuccess, e.Status)
}

type fakeRecorder struct {
	mu       sync.Mutex
	recorded []store.Execution
}

func (f *fakeRecorder) RecordExecution(_ context.Context, e *store.Execution) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.recorded = append(f.recorded, *e)
	return int64(len(f.recorded)), nil
}

func TestRun_StopsOnContextCancel(t *testing.T) {
	t.Parallel()

	ms := &memoryStore{}
	s := &Scheduler{Store: ms, Runner: &fakeRunner{}, Interval: 10 * time.Millisecond}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	time.Sleep(30 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not stop after cancel")
	}
}
