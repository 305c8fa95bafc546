package handlers

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/TheWizardOz3/gogogadget/internal/repo"
)

// CheckChanges returns a handler that inspects a project's working copy
// without mutating it.
func CheckChanges(rm *repo.Manager) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := req.GetArguments()

		project, _ := args["project"].(string)
		if project == "" {
			return mcp.NewToolResultError("project is required"), nil
		}

		changes, err := rm.Changes(ctx, project)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Failed to inspect working copy: %s", err)), nil
		}

		if !changes.Exists {
			return mcp.NewToolResultText(fmt.Sprintf("No working copy for project %q yet. Dispatch a prompt first.", project)), nil
		}

		if !changes.HasPending {
			return mcp.NewToolResultText(fmt.Sprintf("Project %q is clean: nothing uncommitted, nothing unpushed.", project)), nil
		}

		var b strings.Builder
		fmt.Fprintf(&b, "Pending changes for %s\n\n", project)

		if len(changes.UncommittedFiles) > 0 {
			fmt.Fprintf(&b, "Uncommitted files (%d):\n", len(changes.UncommittedFiles))
			for _, f := range changes.UncommittedFiles {
				fmt.Fprintf(&b, "  %s\n", f)
			}
			b.WriteString("\n")
		}

		if len(changes.UnpushedCommits) > 0 {
			fmt.Fprintf(&b, "Unpushed commits (%d):\n", len(changes.UnpushedCommits))
			for _, c := range changes.UnpushedCommits {
				fmt.Fprintf(&b, "  %s\n", c)
			}
			b.WriteString("\n")
		}

		if strings.TrimSpace(changes.DiffSummary) != "" {
			b.WriteString("```\n")
			b.WriteString(changes.DiffSummary)
			b.WriteString("\n```\n")
		}

		b.WriteString("\nUse push_changes to publish the committed work.")

		return mcp.NewToolResultText(b.String()), nil
	}
}
