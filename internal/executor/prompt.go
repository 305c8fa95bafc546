package executor

import (
	"fmt"
	"os"
	"path/filepath"
)

// WritePromptFile writes the prompt to a temp file and returns its path.
// Prompts are piped via stdin from this file to avoid CLI argument
// length limits (~7000 chars).
func WritePromptFile(workDir, jobID, prompt string) (string, error) {
	dir := filepath.Join(workDir, "jobs", jobID)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return "", fmt.Errorf("creating prompt directory: %w", err)
	}

	path := filepath.Join(dir, "prompt.md")
	if err := os.WriteFile(path, []byte(prompt), 0640); err != nil {
		return "", fmt.Errorf("writing prompt file: %w", err)
	}

	return path, nil
}

// CleanupPromptFile removes the prompt temp directory for a job.
func CleanupPromptFile(workDir, jobID string) {
	dir := filepath.Join(workDir, "jobs", jobID)
	_ = os.RemoveAll(dir)
}
