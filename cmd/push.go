package cmd

import (
	"github.com/spf13/cobra"

	"github.com/TheWizardOz3/gogogadget/internal/repo"
)

var pushCmd = &cobra.Command{
	Use:   "push",
	Short: "Publish a project's locally committed work to its remote",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		project, _ := cmd.Flags().GetString("project")
		repoURL, _ := cmd.Flags().GetString("repo")
		repos := repo.NewManager(cfg.Repos.Dir, cfg.GitHub.Token)

		result, err := repos.Push(cmd.Context(), project, repoURL)
		if err != nil {
			return err
		}

		if !result.Pushed {
			msg := result.Message
			if msg == "" {
				msg = "nothing to push"
			}
			printf("no push performed: %s\n", msg)
			return nil
		}

		printf("pushed %d commit(s) to %s", len(result.PushedCommits), result.Branch)
		printf("\n")
		for _, c := range result.PushedCommits {
			printf("  %s\n", c)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(pushCmd)

	pushCmd.Flags().String("project", "", "project name (required)")
	pushCmd.Flags().String("repo", "", "git remote URL (required)")
	_ = pushCmd.MarkFlagRequired("project")
	_ = pushCmd.MarkFlagRequired("repo")
}
