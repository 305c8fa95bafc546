package handlers

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/TheWizardOz3/gogogadget/internal/repo"
)

// PushChanges returns a handler that publishes locally committed work.
// Nothing else in the server pushes; this tool is the publish gate.
func PushChanges(rm *repo.Manager) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := req.GetArguments()

		project, _ := args["project"].(string)
		if project == "" {
			return mcp.NewToolResultError("project is required"), nil
		}
		repoURL, _ := args["repo_url"].(string)
		if repoURL == "" {
			return mcp.NewToolResultError("repo_url is required"), nil
		}

		result, err := rm.Push(ctx, project, repoURL)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Push failed: %s", err)), nil
		}

		if !result.Pushed {
			msg := result.Message
			if msg == "" {
				msg = "nothing to push"
			}
			return mcp.NewToolResultText(fmt.Sprintf("No push performed for %s: %s", project, msg)), nil
		}

		var b strings.Builder
		fmt.Fprintf(&b, "✅ Pushed %s", project)
		if result.Branch != "" {
			fmt.Fprintf(&b, " (branch %s)", result.Branch)
		}
		b.WriteString("\n")

		if len(result.PushedCommits) > 0 {
			fmt.Fprintf(&b, "\nCommits (%d):\n", len(result.PushedCommits))
			for _, c := range result.PushedCommits {
				fmt.Fprintf(&b, "  %s\n", c)
			}
		}

		return mcp.NewToolResultText(b.String()), nil
	}
}
