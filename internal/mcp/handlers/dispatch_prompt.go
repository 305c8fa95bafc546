package handlers

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/TheWizardOz3/gogogadget/internal/config"
	"github.com/TheWizardOz3/gogogadget/internal/coordinator"
	"github.com/TheWizardOz3/gogogadget/internal/jobs"
)

// DispatchPrompt returns a handler that queues a prompt for background
// execution and replies immediately with the job id.
func DispatchPrompt(jm *jobs.Manager, exec config.ExecutionConfig) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := req.GetArguments()

		prompt, _ := args["prompt"].(string)
		if strings.TrimSpace(prompt) == "" {
			return mcp.NewToolResultError("prompt is required"), nil
		}
		project, _ := args["project"].(string)
		if project == "" {
			return mcp.NewToolResultError("project is required"), nil
		}
		repoURL, _ := args["repo_url"].(string)
		if repoURL == "" {
			return mcp.NewToolResultError("repo_url is required"), nil
		}

		r := coordinator.Request{
			Prompt:       prompt,
			ProjectName:  project,
			RepoURL:      repoURL,
			Model:        exec.Model,
			AllowedTools: exec.AllowedTools,
		}

		if sessionID, ok := args["session_id"].(string); ok {
			r.SessionID = sessionID
		}
		if model, ok := args["model"].(string); ok && model != "" {
			r.Model = model
		}
		if tools := stringSlice(args["allowed_tools"]); len(tools) > 0 {
			r.AllowedTools = tools
		}
		if mins, ok := args["timeout_minutes"].(float64); ok && mins > 0 {
			r.Timeout = time.Duration(mins * float64(time.Minute))
		}

		jobID := jm.Dispatch(r)

		var b strings.Builder
		fmt.Fprintf(&b, "Job dispatched: %s\n", jobID)
		fmt.Fprintf(&b, "Project: %s\n", project)
		if r.SessionID != "" {
			fmt.Fprintf(&b, "Continuing session: %s\n", r.SessionID)
		}
		b.WriteString("\nUse check_job to follow progress.")

		return mcp.NewToolResultText(b.String()), nil
	}
}

// stringSlice coerces a JSON array argument into []string, dropping
// non-string elements.
func stringSlice(v any) []string {
	raw, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, e := range raw {
		if s, ok := e.(string); ok && s != "" {
			out = append(out, s)
		}
	}
	return out
}
