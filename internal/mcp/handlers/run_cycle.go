package handlers

import (
	"context"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/TheWizardOz3/gogogadget/internal/scheduler"
)

// RunCycle returns a handler that executes one scheduler cycle on
// demand, independent of the background loop.
func RunCycle(s *scheduler.Scheduler) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		summary, err := s.RunCycle(ctx, time.Now())
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Cycle failed: %s", err)), nil
		}

		msg := fmt.Sprintf("Cycle complete: %d prompt(s) checked, %d executed, %d error(s).",
			summary.Checked, summary.Executed, summary.Errors)
		if summary.Executed == 0 && summary.Errors == 0 {
			msg += " Nothing was due."
		}
		return mcp.NewToolResultText(msg), nil
	}
}
