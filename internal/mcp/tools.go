package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/TheWizardOz3/gogogadget/internal/mcp/handlers"
)

// registerTools wires every tool the server exposes.
func registerTools(s *server.MCPServer, deps *Deps) {
	s.AddTool(mcp.NewTool("dispatch_prompt",
		mcp.WithDescription("Dispatch a natural-language prompt against a git repository. Returns immediately with a job ID; the agent runs in the background."),
		mcp.WithString("prompt",
			mcp.Required(),
			mcp.Description("The instruction to execute"),
		),
		mcp.WithString("project",
			mcp.Required(),
			mcp.Description("Project name; working copies and transcripts are keyed by it"),
		),
		mcp.WithString("repo_url",
			mcp.Required(),
			mcp.Description("Git remote URL to clone or reconcile against"),
		),
		mcp.WithString("session_id",
			mcp.Description("Existing agent session to continue; omit to start fresh"),
		),
		mcp.WithString("model",
			mcp.Description("Model override for this job"),
		),
		mcp.WithArray("allowed_tools",
			mcp.Description("Tools the agent may use, e.g. [\"Read\",\"Edit\",\"Bash\"]"),
			mcp.Items(map[string]any{"type": "string"}),
		),
		mcp.WithNumber("timeout_minutes",
			mcp.Description("Agent timeout override in minutes"),
		),
	), handlers.DispatchPrompt(deps.Jobs, deps.Execution))

	s.AddTool(mcp.NewTool("check_job",
		mcp.WithDescription("Check the status of a dispatched job."),
		mcp.WithString("job_id",
			mcp.Required(),
			mcp.Description("Job ID returned by dispatch_prompt"),
		),
		mcp.WithBoolean("include_output",
			mcp.Description("Include the tail of the agent's output"),
		),
		mcp.WithNumber("output_lines",
			mcp.Description("How many output lines to include (default 20)"),
		),
	), handlers.CheckJob(deps.Jobs))

	s.AddTool(mcp.NewTool("list_jobs",
		mcp.WithDescription("List recent jobs, newest first."),
		mcp.WithString("status",
			mcp.Description("Filter by status: queued, running, completed, failed"),
		),
		mcp.WithString("project",
			mcp.Description("Filter by project name"),
		),
		mcp.WithNumber("limit",
			mcp.Description("Maximum jobs to return (default 20)"),
		),
	), handlers.ListJobs(deps.Jobs))

	s.AddTool(mcp.NewTool("check_changes",
		mcp.WithDescription("Inspect a project's working copy for uncommitted files and unpushed commits. Read-only."),
		mcp.WithString("project",
			mcp.Required(),
			mcp.Description("Project name"),
		),
	), handlers.CheckChanges(deps.Repos))

	s.AddTool(mcp.NewTool("push_changes",
		mcp.WithDescription("Push the project's locally committed work to its remote. This is the only operation that transmits commits upstream."),
		mcp.WithString("project",
			mcp.Required(),
			mcp.Description("Project name"),
		),
		mcp.WithString("repo_url",
			mcp.Required(),
			mcp.Description("Git remote URL to push to"),
		),
	), handlers.PushChanges(deps.Repos))

	s.AddTool(mcp.NewTool("list_scheduled_prompts",
		mcp.WithDescription("List the stored scheduled prompts with the current version of the set."),
	), handlers.ListScheduledPrompts(deps.Store))

	s.AddTool(mcp.NewTool("sync_scheduled_prompts",
		mcp.WithDescription("Replace the full scheduled prompt set. Requires the version from list_scheduled_prompts; fails on concurrent modification."),
		mcp.WithNumber("version",
			mcp.Required(),
			mcp.Description("Version the client last read"),
		),
		mcp.WithArray("prompts",
			mcp.Required(),
			mcp.Description("The complete replacement prompt set"),
			mcp.Items(map[string]any{"type": "object"}),
		),
	), handlers.SyncScheduledPrompts(deps.Store))

	s.AddTool(mcp.NewTool("run_cycle",
		mcp.WithDescription("Run one scheduler cycle immediately: execute every due prompt and recompute next run times."),
	), handlers.RunCycle(deps.Scheduler))

	s.AddTool(mcp.NewTool("list_sessions",
		mcp.WithDescription("List recorded agent sessions, newest activity first."),
		mcp.WithString("project",
			mcp.Description("Restrict to one project's sessions"),
		),
		mcp.WithNumber("limit",
			mcp.Description("Maximum sessions to return (default 20)"),
		),
	), handlers.ListSessions(deps.SessionsRoot, deps.Repos))

	s.AddTool(mcp.NewTool("get_messages",
		mcp.WithDescription("Read the conversation transcript of a recorded agent session."),
		mcp.WithString("session_id",
			mcp.Required(),
			mcp.Description("Session ID, as shown by list_sessions or check_job"),
		),
		mcp.WithString("project",
			mcp.Description("Project the session belongs to; speeds up the lookup"),
		),
		mcp.WithNumber("limit",
			mcp.Description("Maximum messages to return, newest kept (default 50)"),
		),
	), handlers.GetMessages(deps.SessionsRoot, deps.Repos))

	s.AddTool(mcp.NewTool("read_file",
		mcp.WithDescription("Read a file from a project's working copy."),
		mcp.WithString("project",
			mcp.Required(),
			mcp.Description("Project name"),
		),
		mcp.WithString("path",
			mcp.Required(),
			mcp.Description("File path relative to the project root"),
		),
	), handlers.ReadFile(deps.Repos))

	s.AddTool(mcp.NewTool("status",
		mcp.WithDescription("Report server version, job counts and scheduler state."),
	), handlers.Status(deps.Jobs, deps.Scheduler, deps.Version))
}
