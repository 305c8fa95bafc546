package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/TheWizardOz3/gogogadget/internal/config"
)

// Version is stamped at build time via -ldflags.
var Version = "dev"

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "gogogadget",
	Short: "Dispatch natural-language prompts against git repositories",
	Long: `GoGoGadget runs coding-agent prompts against git repositories, either
on demand over MCP or on a recurring schedule. The agent's work is
committed locally; publishing to the remote is always an explicit step.`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "~/.gogogadget/config.yaml", "config file")
	rootCmd.PersistentFlags().String("log-level", "", "log level (debug, info, warn, error); overrides config")
}

// loadConfig reads the config file and applies flag overrides.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.LoadFromFile(cfgFile)
	if err != nil {
		return nil, err
	}

	if lvl, _ := cmd.Flags().GetString("log-level"); lvl != "" {
		cfg.Server.LogLevel = lvl
	}

	setupLogger(cfg.Server.LogLevel)
	return cfg, nil
}

func setupLogger(level string) {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
	slog.SetDefault(logger)
}

func printf(format string, args ...any) {
	fmt.Fprintf(os.Stdout, format, args...)
}
