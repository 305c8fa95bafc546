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

// ListJobs returns a handler that lists jobs with optional filters.
func ListJobs(jm *jobs.Manager) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := req.GetArguments()

		status, _ := args["status"].(string)
		project, _ := args["project"].(string)
		limit := 20
		if n, ok := args["limit"].(float64); ok && n > 0 {
			limit = int(n)
		}

		var matched []jobs.Job
		for _, j := range jm.List() {
			if status != "" && j.Status != status {
				continue
			}
			if project != "" && j.Project != project {
				continue
			}
			matched = append(matched, j)
			if len(matched) >= limit {
				break
			}
		}

		if len(matched) == 0 {
			return mcp.NewToolResultText("No jobs found matching the given filters."), nil
		}

		var b strings.Builder
		fmt.Fprintf(&b, "📋 Jobs (%d found)\n\n", len(matched))

		for _, j := range matched {
			icon := statusIcon(j.Status)
			fmt.Fprintf(&b, "%s **%s** — %s\n", icon, j.ID, j.Status)
			fmt.Fprintf(&b, "  Project: %s | Prompt: %s\n", j.Project, excerpt(j.Prompt, 60))

			switch j.Status {
			case jobs.StatusRunning:
				fmt.Fprintf(&b, "  Duration: %s\n", formatDuration(time.Since(j.StartedAt)))
			case jobs.StatusCompleted, jobs.StatusFailed:
				fmt.Fprintf(&b, "  Duration: %s", formatDuration(j.CompletedAt.Sub(j.StartedAt)))
				if j.Result != nil && j.Result.CostUSD > 0 {
					fmt.Fprintf(&b, " | Cost: $%.2f", j.Result.CostUSD)
				}
				b.WriteString("\n")
				if j.Result != nil && j.Result.Error != "" {
					fmt.Fprintf(&b, "  Error: %s\n", j.Result.Error)
				}
			}

			b.WriteString("\n")
		}

		return mcp.NewToolResultText(b.String()), nil
	}
}

func statusIcon(s string) string {
	switch s {
	case jobs.StatusQueued:
		return "📥"
	case jobs.StatusRunning:
		return "🔄"
	case jobs.StatusCompleted:
		return "✅"
	case jobs.StatusFailed:
		return "❌"
	default:
		return "❓"
	}
}

// excerpt flattens text to one line and truncates it for list views.
func excerpt(s string, max int) string {
	s = strings.Join(strings.Fields(s), " ")
	if len(s) > max {
		return s[:max] + "..."
	}
	return s
}
