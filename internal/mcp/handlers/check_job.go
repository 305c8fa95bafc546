package handlers

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/TheWizardOz3/gogogadget/internal/jobs"
)

// CheckJob returns a handler that reports a job's current status.
func CheckJob(jm *jobs.Manager) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := req.GetArguments()

		jobID, _ := args["job_id"].(string)
		if jobID == "" {
			return mcp.NewToolResultError("job_id is required"), nil
		}

		job, ok := jm.Get(jobID)
		if !ok {
			return mcp.NewToolResultError(fmt.Sprintf("Job not found: %s", jobID)), nil
		}

		includeOutput, _ := args["include_output"].(bool)
		outputLines := 20
		if n, ok := args["output_lines"].(float64); ok && n > 0 {
			outputLines = int(n)
		}

		var b strings.Builder

		switch job.Status {
		case jobs.StatusQueued:
			fmt.Fprintf(&b, "Status: queued\n")
			fmt.Fprintf(&b, "Project: %s\n", job.Project)

		case jobs.StatusRunning:
			fmt.Fprintf(&b, "Status: running\n")
			fmt.Fprintf(&b, "Project: %s\n", job.Project)
			fmt.Fprintf(&b, "Duration: %s\n", formatDuration(time.Since(job.StartedAt)))

		case jobs.StatusCompleted:
			fmt.Fprintf(&b, "Status: completed\n")
			fmt.Fprintf(&b, "Duration: %s\n", formatDuration(job.CompletedAt.Sub(job.StartedAt)))
			if r := job.Result; r != nil {
				if r.CostUSD > 0 {
					fmt.Fprintf(&b, "Cost: $%.2f\n", r.CostUSD)
				}
				if r.Turns > 0 {
					fmt.Fprintf(&b, "Turns: %d\n", r.Turns)
				}
				if r.SessionID != "" {
					fmt.Fprintf(&b, "Session ID: %s (use to continue this conversation)\n", r.SessionID)
				}
				if r.HasPendingChanges {
					b.WriteString("\nLocal commits are waiting; use check_changes to review and push_changes to publish them.")
				}
			}

		case jobs.StatusFailed:
			fmt.Fprintf(&b, "Status: failed\n")
			fmt.Fprintf(&b, "Duration: %s\n", formatDuration(job.CompletedAt.Sub(job.StartedAt)))
			if r := job.Result; r != nil && r.Error != "" {
				fmt.Fprintf(&b, "Error: %s\n", r.Error)
			}
		}

		if includeOutput && job.Result != nil && job.Result.Output != "" {
			lines := lastNLines(job.Result.Output, outputLines)
			fmt.Fprintf(&b, "\n--- Last output ---\n%s", lines)
		}

		return mcp.NewToolResultText(b.String()), nil
	}
}

func lastNLines(s string, n int) string {
	lines := strings.Split(s, "\n")
	if len(lines) <= n {
		return s
	}
	return strings.Join(lines[len(lines)-n:], "\n")
}

func formatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	return d.Round(time.Second).String()
}
