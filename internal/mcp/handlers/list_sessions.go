package handlers

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/TheWizardOz3/gogogadget/internal/repo"
	"github.com/TheWizardOz3/gogogadget/internal/transcript"
)

// ListSessions returns a handler that lists recorded agent sessions
// from the transcript root, optionally restricted to one project.
func ListSessions(root string, rm *repo.Manager) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := req.GetArguments()

		limit := 20
		if n, ok := args["limit"].(float64); ok && n > 0 {
			limit = int(n)
		}

		var projectPath string
		if project, ok := args["project"].(string); ok && project != "" {
			if !rm.Exists(project) {
				return mcp.NewToolResultText(fmt.Sprintf("No working copy for project %q, so no sessions recorded yet.", project)), nil
			}
			projectPath = rm.Dir(project)
		}

		sessions, err := transcript.ListSessions(root, projectPath)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Failed to list sessions: %s", err)), nil
		}

		if len(sessions) == 0 {
			return mcp.NewToolResultText("No sessions recorded yet."), nil
		}
		if len(sessions) > limit {
			sessions = sessions[:limit]
		}

		var b strings.Builder
		fmt.Fprintf(&b, "Sessions (%d shown, newest first)\n\n", len(sessions))

		for _, s := range sessions {
			fmt.Fprintf(&b, "**%s**\n", s.SessionID)
			fmt.Fprintf(&b, "  Last activity: %s | Messages: %d\n", s.LastAt.UTC().Format(time.RFC3339), s.Messages)
			if s.Preview != "" {
				fmt.Fprintf(&b, "  %s\n", s.Preview)
			}
			b.WriteString("\n")
		}

		b.WriteString("Pass a session id to dispatch_prompt to continue a conversation.")

		return mcp.NewToolResultText(b.String()), nil
	}
}
