package handlers

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/TheWizardOz3/gogogadget/internal/jobs"
	"github.com/TheWizardOz3/gogogadget/internal/scheduler"
)

// Status returns a handler that reports overall server state.
func Status(jm *jobs.Manager, sched *scheduler.Scheduler, version string) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var queued, running, completed, failed int
		for _, j := range jm.List() {
			switch j.Status {
			case jobs.StatusQueued:
				queued++
			case jobs.StatusRunning:
				running++
			case jobs.StatusCompleted:
				completed++
			case jobs.StatusFailed:
				failed++
			}
		}

		var b strings.Builder
		fmt.Fprintf(&b, "GoGoGadget %s\n\n", version)
		fmt.Fprintf(&b, "Jobs: %d queued, %d running, %d completed, %d failed\n", queued, running, completed, failed)

		if sched != nil {
			fmt.Fprintf(&b, "Scheduler: running every %s\n", sched.Interval)
		} else {
			b.WriteString("Scheduler: disabled\n")
		}

		return mcp.NewToolResultText(b.String()), nil
	}
}
