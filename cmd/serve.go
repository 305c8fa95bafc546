package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/TheWizardOz3/gogogadget/internal/coordinator"
	"github.com/TheWizardOz3/gogogadget/internal/executor"
	_ "github.com/TheWizardOz3/gogogadget/internal/executor/claude"
	"github.com/TheWizardOz3/gogogadget/internal/jobs"
	"github.com/TheWizardOz3/gogogadget/internal/mcp"
	"github.com/TheWizardOz3/gogogadget/internal/mcp/middleware"
	"github.com/TheWizardOz3/gogogadget/internal/notify"
	"github.com/TheWizardOz3/gogogadget/internal/repo"
	"github.com/TheWizardOz3/gogogadget/internal/scheduler"
	"github.com/TheWizardOz3/gogogadget/internal/store"
	"github.com/TheWizardOz3/gogogadget/internal/volume"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the MCP server and the scheduler loop",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		if err := os.MkdirAll(filepath.Dir(cfg.Store.Path), 0o755); err != nil {
			return fmt.Errorf("creating store directory: %w", err)
		}
		st, err := store.Open(cfg.Store.Path)
		if err != nil {
			return err
		}
		defer st.Close()

		reposDir, err := volume.NewLocalDir(cfg.Repos.Dir)
		if err != nil {
			return err
		}
		sessionsDir, err := volume.NewLocalDir(cfg.Sessions.Dir)
		if err != nil {
			return err
		}

		factory, ok := executor.Get(cfg.Execution.Executor)
		if !ok {
			return fmt.Errorf("unknown executor %q (available: %v)", cfg.Execution.Executor, executor.Available())
		}
		exec, err := factory(map[string]any{
			"claude_path": cfg.Execution.ClaudePath,
		})
		if err != nil {
			return fmt.Errorf("creating executor: %w", err)
		}

		repos := repo.NewManager(cfg.Repos.Dir, cfg.GitHub.Token)
		coord := &coordinator.Coordinator{
			Repos:    repos,
			Exec:     exec,
			Sessions: volume.NewRateLimited(sessionsDir, 0),
			ReposVol: volume.NewRateLimited(reposDir, 0),
		}

		var sinks []notify.Notifier
		if cfg.Notify.NtfyTopic != "" {
			sinks = append(sinks, notify.NewNtfyNotifier(cfg.Notify.NtfyServer, cfg.Notify.NtfyTopic))
		}
		hub := notify.NewHub(sinks...)

		jm := jobs.NewManager(coord, st, hub)
		jm.OverallTimeout = cfg.Execution.Timeout
		jm.AgentTimeout = cfg.Execution.AgentTimeout()

		sched := &scheduler.Scheduler{
			Store:        st,
			Runner:       coord,
			Recorder:     st,
			Hub:          hub,
			Interval:     cfg.Scheduler.CycleInterval,
			AgentTimeout: cfg.Execution.AgentTimeout(),
			Model:        cfg.Execution.Model,
			AllowedTools: cfg.Execution.AllowedTools,
		}

		mcpSrv := mcp.NewServer(&mcp.Deps{
			Jobs:         jm,
			Repos:        repos,
			Scheduler:    sched,
			Store:        st,
			SessionsRoot: cfg.Sessions.Dir,
			Execution:    cfg.Execution,
			Version:      Version,
		})
		hub.Add(notify.NewMCPNotifier(mcpSrv, 2*time.Second))

		if cfg.Scheduler.Enabled {
			go sched.Run(ctx)
		} else {
			slog.Info("scheduler disabled; prompts only run via run_cycle")
		}

		streamable := mcpserver.NewStreamableHTTPServer(mcpSrv)

		mux := http.NewServeMux()
		mux.Handle("/mcp", middleware.RateLimit(cfg.RateLimit)(
			middleware.BearerAuth(cfg.Auth.Token)(streamable)))
		mux.Handle("/healthz", middleware.IPRateLimit(60, 10)(
			http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
				_, _ = w.Write([]byte("ok"))
			})))

		handler := middleware.SecurityHeaders(mux)

		srv := &http.Server{
			Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		}

		errCh := make(chan error, 1)
		go func() {
			slog.Info("server listening", "addr", srv.Addr, "version", Version)
			if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
		}()

		select {
		case err := <-errCh:
			return err
		case <-ctx.Done():
		}

		slog.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
