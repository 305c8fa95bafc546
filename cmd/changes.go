package cmd

import (
	"github.com/spf13/cobra"

	"github.com/TheWizardOz3/gogogadget/internal/repo"
)

var changesCmd = &cobra.Command{
	Use:   "changes",
	Short: "Show uncommitted files and unpushed commits for a project",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		project, _ := cmd.Flags().GetString("project")
		repos := repo.NewManager(cfg.Repos.Dir, cfg.GitHub.Token)

		changes, err := repos.Changes(cmd.Context(), project)
		if err != nil {
			return err
		}

		if !changes.Exists {
			printf("no working copy for %s\n", project)
			return nil
		}
		if !changes.HasPending {
			printf("%s is clean\n", project)
			return nil
		}

		if len(changes.UncommittedFiles) > 0 {
			printf("uncommitted files:\n")
			for _, f := range changes.UncommittedFiles {
				printf("  %s\n", f)
			}
		}
		if len(changes.UnpushedCommits) > 0 {
			printf("unpushed commits:\n")
			for _, c := range changes.UnpushedCommits {
				printf("  %s\n", c)
			}
		}
		if changes.DiffSummary != "" {
			printf("\n%s\n", changes.DiffSummary)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(changesCmd)

	changesCmd.Flags().String("project", "", "project name (required)")
	_ = changesCmd.MarkFlagRequired("project")
}
