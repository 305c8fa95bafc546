package claude

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/TheWizardOz3/gogogadget/internal/executor"
)

func init() {
	executor.Register("claude-code", func(cfg map[string]any) (executor.Executor, error) {
		claudePath, _ := cfg["claude_path"].(string)
		if claudePath == "" {
			claudePath = "claude"
		}
		workDir, _ := cfg["work_dir"].(string)
		env, _ := cfg["env"].(map[string]string)
		return &Executor{
			ClaudePath: claudePath,
			WorkDir:    workDir,
			Env:        env,
		}, nil
	})
}

// Executor runs prompts via the Claude Code CLI.
type Executor struct {
	ClaudePath string
	WorkDir    string
	Env        map[string]string
}

// Capabilities returns the feature set supported by Claude Code.
func (e *Executor) Capabilities() executor.Capabilities {
	return executor.Capabilities{
		SupportsSession:   true,
		SupportsModel:     true,
		SupportsToolList:  true,
		SupportsStreaming: true,
		Name:              "claude-code",
		Version:           "1.0.0",
	}
}

// Execute runs one non-interactive Claude invocation. A fresh session is
// created under the caller-minted id via --session-id; a continuation
// resumes the existing conversation via --resume. The prompt is piped on
// stdin and a wall-clock timeout from req.Timeout bounds the process.
func (e *Executor) Execute(ctx context.Context, req executor.Request, onProgress executor.ProgressFunc) (*executor.Result, error) {
	if req.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, req.Timeout)
		defer cancel()
	}

	// Write prompt to file (avoids CLI arg length limits)
	promptPath, err := executor.WritePromptFile(e.WorkDir, req.JobID, req.Prompt)
	if err != nil {
		return nil, fmt.Errorf("writing prompt: %w", err)
	}
	defer executor.CleanupPromptFile(e.WorkDir, req.JobID)

	args := []string{
		"-p",
		"--verbose",
		"--output-format", "stream-json",
	}

	if req.Model != "" {
		args = append(args, "--model", req.Model)
	}

	if req.SessionID != "" {
		if req.Resume {
			args = append(args, "--resume", req.SessionID)
		} else {
			args = append(args, "--session-id", req.SessionID)
		}
	}

	if len(req.AllowedTools) > 0 {
		args = append(args, "--allowedTools", strings.Join(req.AllowedTools, ","))
	}

	cmd := exec.CommandContext(ctx, e.ClaudePath, args...) //nolint:gosec // ClaudePath from trusted config
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		// Kill the entire process group so child processes are terminated too
		return syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
	}

	if req.ProjectPath != "" {
		cmd.Dir = req.ProjectPath
	}

	cmd.Env = os.Environ()
	for k, v := range e.Env {
		cmd.Env = append(cmd.Env, k+"="+v)
	}
	for k, v := range req.Env {
		cmd.Env = append(cmd.Env, k+"="+v)
	}

	// Pipe prompt via stdin
	promptFile, err := os.Open(promptPath) //nolint:gosec // path built internally by WritePromptFile
	if err != nil {
		return nil, fmt.Errorf("opening prompt file: %w", err)
	}
	defer func() { _ = promptFile.Close() }()
	cmd.Stdin = promptFile

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("creating stdout pipe: %w", err)
	}

	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("creating stderr pipe: %w", err)
	}

	start := time.Now()
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("starting claude: %w", err)
	}

	slog.Info("claude code started",
		"job_id", req.JobID,
		"session_id", req.SessionID,
		"resume", req.Resume,
		"pid", cmd.Process.Pid)

	if onProgress != nil {
		onProgress("started", fmt.Sprintf("PID %d", cmd.Process.Pid))
	}

	// Parse stream-json output in background goroutines.
	// All pipe readers must finish before cmd.Wait() which closes the pipes.
	var wg sync.WaitGroup
	result := &executor.Result{SessionID: req.SessionID}
	wg.Add(2)
	go func() {
		defer wg.Done()
		parseStream(req.JobID, stdout, result, onProgress)
	}()
	go func() {
		defer wg.Done()
		captureStderr(req.JobID, stderr)
	}()

	wg.Wait()
	waitErr := cmd.Wait()
	result.Duration = time.Since(start)

	if waitErr != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return result, fmt.Errorf("claude timed out after %s: %w", result.Duration.Round(time.Second), context.DeadlineExceeded)
		}
		if exitErr, ok := errors.AsType[*exec.ExitError](waitErr); ok {
			result.ExitCode = exitErr.ExitCode()
			slog.Warn("claude code exited with error",
				"job_id", req.JobID,
				"exit_code", result.ExitCode,
				"duration", result.Duration)
			return result, fmt.Errorf("claude exited with code %d: %w", result.ExitCode, waitErr)
		}
		return result, fmt.Errorf("waiting for claude: %w", waitErr)
	}

	slog.Info("claude code completed",
		"job_id", req.JobID,
		"duration", result.Duration,
		"cost_usd", result.CostUSD,
		"turns", result.Turns)

	return result, nil
}

func parseStream(jobID string, r io.Reader, result *executor.Result, onProgress executor.ProgressFunc) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 1024*1024), 10*1024*1024) // 10MB max line

	for scanner.Scan() {
		event, err := ParseStreamLine(scanner.Bytes())
		if err != nil {
			slog.Debug("stream parse error", "job_id", jobID, "error", err)
			continue
		}
		if event == nil {
			continue
		}

		switch event.Type {
		case "system":
			if event.Subtype == "init" && event.SessionID != "" {
				result.SessionID = event.SessionID
				slog.Debug("session initialized", "job_id", jobID, "session_id", event.SessionID)
			}

		case "assistant":
			output := ExtractOutput(event)
			if output != "" {
				result.Output += output
			}
			if onProgress != nil {
				if progress := ExtractProgress(event); progress != "" {
					onProgress("progress", progress)
				}
			}

		case "result":
			result.CostUSD = event.CostUSD
			result.Turns = event.NumTurns
			if event.Duration > 0 {
				result.Duration = time.Duration(event.Duration) * time.Millisecond
			}
		}
	}

	if err := scanner.Err(); err != nil {
		slog.Warn("stream scanner error", "job_id", jobID, "error", err)
	}
}

func captureStderr(jobID string, r io.Reader) {
	data, err := io.ReadAll(r)
	if err != nil {
		slog.Debug("stderr read error", "job_id", jobID, "error", err)
		return
	}
	if len(data) > 0 {
		slog.Debug("claude stderr", "job_id", jobID, "stderr", truncateStr(string(data), 500))
	}
}

func truncateStr(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
