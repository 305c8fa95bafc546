package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/TheWizardOz3/gogogadget/internal/schedule"
	"github.com/TheWizardOz3/gogogadget/internal/store"
)

// ListScheduledPrompts returns a handler that reports the stored prompt
// set together with its version for optimistic write-back.
func ListScheduledPrompts(st *store.Store) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		set, err := st.LoadPromptSet(ctx)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Failed to load prompts: %s", err)), nil
		}

		var b strings.Builder
		fmt.Fprintf(&b, "Scheduled prompts (version %d, %d prompt(s))\n\n", set.Version, len(set.Prompts))

		if len(set.Prompts) == 0 {
			b.WriteString("No prompts stored. Use sync_scheduled_prompts to add some.\n")
			return mcp.NewToolResultText(b.String()), nil
		}

		for _, p := range set.Prompts {
			state := "enabled"
			if !p.Enabled {
				state = "disabled"
			}
			fmt.Fprintf(&b, "**%s** (%s)\n", p.ID, state)
			fmt.Fprintf(&b, "  Prompt: %s\n", p.Excerpt(80))
			fmt.Fprintf(&b, "  Project: %s | Repo: %s\n", p.ProjectName, p.RepoURL)
			fmt.Fprintf(&b, "  Schedule: %s\n", describeSchedule(&p))
			if p.NextRunAt != nil {
				fmt.Fprintf(&b, "  Next run: %s\n", p.NextRunAt.UTC().Format(time.RFC3339))
			}
			if le := p.LastExecution; le != nil {
				fmt.Fprintf(&b, "  Last run: %s at %s", le.Status, le.Timestamp.UTC().Format(time.RFC3339))
				if le.Error != "" {
					fmt.Fprintf(&b, " (%s)", le.Error)
				}
				b.WriteString("\n")
			}
			b.WriteString("\n")
		}

		return mcp.NewToolResultText(b.String()), nil
	}
}

// SyncScheduledPrompts returns a handler that replaces the full prompt
// set. The caller must supply the version it last read; a concurrent
// writer wins and the caller is told to reload.
func SyncScheduledPrompts(st *store.Store) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := req.GetArguments()

		version, ok := args["version"].(float64)
		if !ok {
			return mcp.NewToolResultError("version is required"), nil
		}

		rawPrompts, ok := args["prompts"].([]any)
		if !ok {
			return mcp.NewToolResultError("prompts is required and must be an array"), nil
		}

		encoded, err := json.Marshal(rawPrompts)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Invalid prompts payload: %s", err)), nil
		}
		var prompts []schedule.Prompt
		if err := json.Unmarshal(encoded, &prompts); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Invalid prompts payload: %s", err)), nil
		}

		for i := range prompts {
			if prompts[i].ID == "" {
				return mcp.NewToolResultError(fmt.Sprintf("prompt at index %d has no id", i)), nil
			}
			if strings.TrimSpace(prompts[i].Prompt) == "" {
				return mcp.NewToolResultError(fmt.Sprintf("prompt %q has no prompt text", prompts[i].ID)), nil
			}
		}

		set := &store.PromptSet{Version: int64(version), Prompts: prompts}
		if err := st.SavePromptSet(ctx, set); err != nil {
			if errors.Is(err, store.ErrVersionConflict) {
				return mcp.NewToolResultError("Version conflict: the prompt set changed since you read it. Call list_scheduled_prompts and retry with the new version."), nil
			}
			return mcp.NewToolResultError(fmt.Sprintf("Failed to save prompts: %s", err)), nil
		}

		return mcp.NewToolResultText(fmt.Sprintf("Saved %d prompt(s). New version: %d.", len(prompts), set.Version)), nil
	}
}

func describeSchedule(p *schedule.Prompt) string {
	tod := p.TimeOfDay
	if tod == "" {
		tod = "09:00"
	}
	tz := p.Timezone
	if tz == "" {
		tz = "UTC"
	}
	switch p.Schedule {
	case schedule.Weekly:
		return fmt.Sprintf("weekly on %s at %s %s", time.Weekday(p.DayOfWeek), tod, tz)
	case schedule.Monthly:
		return fmt.Sprintf("monthly on day %d at %s %s", p.DayOfMonth, tod, tz)
	case schedule.Yearly:
		return fmt.Sprintf("yearly at %s %s", tod, tz)
	default:
		return fmt.Sprintf("daily at %s %s", tod, tz)
	}
}
