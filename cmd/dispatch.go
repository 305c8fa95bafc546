package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/TheWizardOz3/gogogadget/internal/coordinator"
	"github.com/TheWizardOz3/gogogadget/internal/executor"
	_ "github.com/TheWizardOz3/gogogadget/internal/executor/claude"
	"github.com/TheWizardOz3/gogogadget/internal/repo"
)

var dispatchCmd = &cobra.Command{
	Use:   "dispatch [prompt]",
	Short: "Run one prompt against a repository and wait for the result",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		project, _ := cmd.Flags().GetString("project")
		repoURL, _ := cmd.Flags().GetString("repo")
		sessionID, _ := cmd.Flags().GetString("session")
		model, _ := cmd.Flags().GetString("model")
		timeout, _ := cmd.Flags().GetDuration("timeout")

		if model == "" {
			model = cfg.Execution.Model
		}
		if timeout == 0 {
			timeout = cfg.Execution.AgentTimeout()
		}

		factory, ok := executor.Get(cfg.Execution.Executor)
		if !ok {
			return fmt.Errorf("unknown executor %q", cfg.Execution.Executor)
		}
		exec, err := factory(map[string]any{
			"claude_path": cfg.Execution.ClaudePath,
		})
		if err != nil {
			return err
		}

		coord := &coordinator.Coordinator{
			Repos: repo.NewManager(cfg.Repos.Dir, cfg.GitHub.Token),
			Exec:  exec,
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		res, err := coord.Execute(ctx, coordinator.Request{
			Prompt:       args[0],
			ProjectName:  project,
			RepoURL:      repoURL,
			SessionID:    sessionID,
			Model:        model,
			AllowedTools: cfg.Execution.AllowedTools,
			Timeout:      timeout,
			OnProgress: func(eventType, message string) {
				printf("[%s] %s\n", eventType, message)
			},
		})
		if err != nil {
			return err
		}

		if res.Success {
			printf("\n%s\n", res.Output)
			printf("\nsession: %s  cost: $%.2f  turns: %d  duration: %s\n",
				res.SessionID, res.CostUSD, res.Turns, res.Duration.Round(time.Second))
			if res.HasPendingChanges {
				printf("local commits pending; run `gogogadget push --project %s --repo %s` to publish\n", project, repoURL)
			}
			return nil
		}

		return fmt.Errorf("execution failed: %s", res.Error)
	},
}

func init() {
	rootCmd.AddCommand(dispatchCmd)

	dispatchCmd.Flags().String("project", "", "project name (required)")
	dispatchCmd.Flags().String("repo", "", "git remote URL (required)")
	dispatchCmd.Flags().String("session", "", "session id to continue")
	dispatchCmd.Flags().String("model", "", "model override")
	dispatchCmd.Flags().Duration("timeout", 0, "agent timeout override")
	_ = dispatchCmd.MarkFlagRequired("project")
	_ = dispatchCmd.MarkFlagRequired("repo")
}
