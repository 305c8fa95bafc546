package handlers

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TheWizardOz3/gogogadget/internal/config"
	"github.com/TheWizardOz3/gogogadget/internal/coordinator"
	"github.com/TheWizardOz3/gogogadget/internal/jobs"
)

// callRequest builds a tool call with the given arguments.
func callRequest(args map[string]any) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	req.Params.Arguments = args
	return req
}

// resultText extracts the text payload of a tool result.
func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, res.Content)
	tc, ok := res.Content[0].(mcp.TextContent)
	require.True(t, ok, "expected text content")
	return tc.Text
}

// stubRunner records the last request and returns a canned result.
type stubRunner struct {
	mu      sync.Mutex
	lastReq coordinator.Request
	result  *coordinator.Result
	calls   int
}

func (r *stubRunner) Execute(ctx context.Context, req coordinator.Request) (*coordinator.Result, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lastReq = req
	r.calls++
	res := r.result
	if res == nil {
		res = &coordinator.Result{Success: true, SessionID: "ses_test"}
	}
	return res, nil
}

func (r *stubRunner) last() coordinator.Request {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastReq
}

func waitForJob(t *testing.T, jm *jobs.Manager, jobID, status string) jobs.Job {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if j, ok := jm.Get(jobID); ok && j.Status == status {
			return j
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("job %s never reached status %s", jobID, status)
	return jobs.Job{}
}

func TestDispatchPrompt_RequiresFields(t *testing.T) {
	t.Parallel()

	jm := jobs.NewManager(&stubRunner{}, nil, nil)
	handler := DispatchPrompt(jm, config.ExecutionConfig{})

	tests := []struct {
		name string
		args map[string]any
	}{
		{"missing prompt", map[string]any{"project": "p", "repo_url": "u"}},
		{"blank prompt", map[string]any{"prompt": "  ", "project": "p", "repo_url": "u"}},
		{"missing project", map[string]any{"prompt": "do it", "repo_url": "u"}},
		{"missing repo_url", map[string]any{"prompt": "do it", "project": "p"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			res, err := handler(context.Background(), callRequest(tt.args))
			require.NoError(t, err)
			assert.True(t, res.IsError)
		})
	}
}

func TestDispatchPrompt_QueuesJobAndReturnsID(t *testing.T) {
	t.Parallel()

	runner := &stubRunner{}
	jm := jobs.NewManager(runner, nil, nil)
	handler := DispatchPrompt(jm, config.ExecutionConfig{Model: "haiku", AllowedTools: []string{"Read"}})

	res, err := handler(context.Background(), callRequest(map[string]any{
		"prompt":   "update the readme",
		"project":  "notes",
		"repo_url": "https://github.com/acme/notes.git",
	}))
	require.NoError(t, err)
	require.False(t, res.IsError)

	text := resultText(t, res)
	assert.Contains(t, text, "Job dispatched:")
	assert.Contains(t, text, "Project: notes")

	list := jm.List()
	require.Len(t, list, 1)
	waitForJob(t, jm, list[0].ID, jobs.StatusCompleted)

	last := runner.last()
	assert.Equal(t, "haiku", last.Model)
	assert.Equal(t, []string{"Read"}, last.AllowedTools)
}

func TestDispatchPrompt_OverridesDefaults(t *testing.T) {
	t.Parallel()

	runner := &stubRunner{}
	jm := jobs.NewManager(runner, nil, nil)
	handler := DispatchPrompt(jm, config.ExecutionConfig{Model: "haiku"})

	res, err := handler(context.Background(), callRequest(map[string]any{
		"prompt":          "summarize",
		"project":         "notes",
		"repo_url":        "https://github.com/acme/notes.git",
		"session_id":      "ses_prior",
		"model":           "opus",
		"allowed_tools":   []any{"Read", "Edit"},
		"timeout_minutes": float64(5),
	}))
	require.NoError(t, err)
	require.False(t, res.IsError)
	assert.Contains(t, resultText(t, res), "Continuing session: ses_prior")

	list := jm.List()
	require.Len(t, list, 1)
	waitForJob(t, jm, list[0].ID, jobs.StatusCompleted)

	last := runner.last()
	assert.Equal(t, "ses_prior", last.SessionID)
	assert.Equal(t, "opus", last.Model)
	assert.Equal(t, []string{"Read", "Edit"}, last.AllowedTools)
	assert.Equal(t, 5*time.Minute, last.Timeout)
}

func TestCheckJob_UnknownID(t *testing.T) {
	t.Parallel()

	jm := jobs.NewManager(&stubRunner{}, nil, nil)
	handler := CheckJob(jm)

	res, err := handler(context.Background(), callRequest(map[string]any{"job_id": "nope"}))
	require.NoError(t, err)
	assert.True(t, res.IsError)

	res, err = handler(context.Background(), callRequest(map[string]any{}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
}

func TestCheckJob_ReportsCompletion(t *testing.T) {
	t.Parallel()

	runner := &stubRunner{result: &coordinator.Result{
		Success:           true,
		SessionID:         "ses_done",
		Output:            "line1\nline2\nline3",
		CostUSD:           0.42,
		Turns:             3,
		HasPendingChanges: true,
	}}
	jm := jobs.NewManager(runner, nil, nil)

	jobID := jm.Dispatch(coordinator.Request{
		Prompt:      "do it",
		ProjectName: "notes",
		RepoURL:     "https://github.com/acme/notes.git",
	})
	waitForJob(t, jm, jobID, jobs.StatusCompleted)

	handler := CheckJob(jm)
	res, err := handler(context.Background(), callRequest(map[string]any{
		"job_id":         jobID,
		"include_output": true,
		"output_lines":   float64(2),
	}))
	require.NoError(t, err)
	require.False(t, res.IsError)

	text := resultText(t, res)
	assert.Contains(t, text, "Status: completed")
	assert.Contains(t, text, "Session ID: ses_done")
	assert.Contains(t, text, "Cost: $0.42")
	assert.Contains(t, text, "push_changes")
	assert.Contains(t, text, "line2\nline3")
	assert.NotContains(t, text, "line1\n")
}

func TestCheckJob_ReportsFailure(t *testing.T) {
	t.Parallel()

	runner := &stubRunner{result: &coordinator.Result{Success: false, Error: "agent exploded"}}
	jm := jobs.NewManager(runner, nil, nil)

	jobID := jm.Dispatch(coordinator.Request{
		Prompt:      "do it",
		ProjectName: "notes",
		RepoURL:     "https://github.com/acme/notes.git",
	})
	waitForJob(t, jm, jobID, jobs.StatusFailed)

	handler := CheckJob(jm)
	res, err := handler(context.Background(), callRequest(map[string]any{"job_id": jobID}))
	require.NoError(t, err)

	text := resultText(t, res)
	assert.Contains(t, text, "Status: failed")
	assert.Contains(t, text, "agent exploded")
}

func TestListJobs_FiltersByProject(t *testing.T) {
	t.Parallel()

	jm := jobs.NewManager(&stubRunner{}, nil, nil)

	a := jm.Dispatch(coordinator.Request{Prompt: "one", ProjectName: "alpha", RepoURL: "https://github.com/acme/alpha.git"})
	b := jm.Dispatch(coordinator.Request{Prompt: "two", ProjectName: "beta", RepoURL: "https://github.com/acme/beta.git"})
	waitForJob(t, jm, a, jobs.StatusCompleted)
	waitForJob(t, jm, b, jobs.StatusCompleted)

	handler := ListJobs(jm)
	res, err := handler(context.Background(), callRequest(map[string]any{"project": "alpha"}))
	require.NoError(t, err)

	text := resultText(t, res)
	assert.Contains(t, text, a)
	assert.NotContains(t, text, b)
}

func TestListJobs_EmptyResult(t *testing.T) {
	t.Parallel()

	jm := jobs.NewManager(&stubRunner{}, nil, nil)
	handler := ListJobs(jm)

	res, err := handler(context.Background(), callRequest(map[string]any{"status": "failed"}))
	require.NoError(t, err)
	assert.Contains(t, resultText(t, res), "No jobs found")
}

func TestStatus_CountsJobs(t *testing.T) {
	t.Parallel()

	jm := jobs.NewManager(&stubRunner{}, nil, nil)
	jobID := jm.Dispatch(coordinator.Request{Prompt: "one", ProjectName: "alpha", RepoURL: "https://github.com/acme/alpha.git"})
	waitForJob(t, jm, jobID, jobs.StatusCompleted)

	handler := Status(jm, nil, "1.2.3")
	res, err := handler(context.Background(), callRequest(nil))
	require.NoError(t, err)

	text := resultText(t, res)
	assert.Contains(t, text, "GoGoGadget 1.2.3")
	assert.Contains(t, text, "1 completed")
	assert.Contains(t, text, "Scheduler: disabled")
}
