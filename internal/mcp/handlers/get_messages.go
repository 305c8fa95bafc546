package handlers

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/TheWizardOz3/gogogadget/internal/repo"
	"github.com/TheWizardOz3/gogogadget/internal/transcript"
)

// GetMessages returns a handler that renders the conversation of one
// recorded agent session. With a project argument the transcript is
// looked up under that project's encoded directory; without one the
// session id is searched across all projects.
func GetMessages(root string, rm *repo.Manager) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := req.GetArguments()

		sessionID, _ := args["session_id"].(string)
		if sessionID == "" {
			return mcp.NewToolResultError("Missing required field: session_id"), nil
		}
		if strings.ContainsAny(sessionID, `/\`) || strings.Contains(sessionID, "..") {
			return mcp.NewToolResultError(fmt.Sprintf("Invalid session id: %q", sessionID)), nil
		}

		limit := 50
		if n, ok := args["limit"].(float64); ok && n > 0 {
			limit = int(n)
		}

		var path string
		if project, ok := args["project"].(string); ok && project != "" {
			if !rm.Exists(project) {
				return mcp.NewToolResultText(fmt.Sprintf("No working copy for project %q, so no sessions recorded yet.", project)), nil
			}
			encoded := transcript.EncodeProjectPath(rm.Dir(project))
			path = filepath.Join(root, encoded, sessionID+".jsonl")
		} else {
			matches, err := filepath.Glob(filepath.Join(root, "*", sessionID+".jsonl"))
			if err != nil || len(matches) == 0 {
				return mcp.NewToolResultText(fmt.Sprintf("No transcript found for session %s.", sessionID)), nil
			}
			path = matches[0]
		}

		messages, err := transcript.ParseFile(path)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Failed to read transcript: %s", err)), nil
		}
		if len(messages) == 0 {
			return mcp.NewToolResultText(fmt.Sprintf("No messages recorded for session %s.", sessionID)), nil
		}

		total := len(messages)
		if total > limit {
			messages = messages[total-limit:]
		}

		var b strings.Builder
		fmt.Fprintf(&b, "Session %s (%d message(s)", sessionID, total)
		if len(messages) < total {
			fmt.Fprintf(&b, ", last %d shown", len(messages))
		}
		b.WriteString(")\n\n")

		for _, m := range messages {
			fmt.Fprintf(&b, "[%s]", m.Role)
			if !m.Timestamp.IsZero() {
				fmt.Fprintf(&b, " %s", m.Timestamp.UTC().Format(time.RFC3339))
			}
			b.WriteString("\n")
			if m.Content != "" {
				fmt.Fprintf(&b, "%s\n", m.Content)
			}
			for _, u := range m.ToolUses {
				fmt.Fprintf(&b, "  (tool: %s)\n", u.Tool)
			}
			b.WriteString("\n")
		}

		return mcp.NewToolResultText(strings.TrimRight(b.String(), "\n")), nil
	}
}
