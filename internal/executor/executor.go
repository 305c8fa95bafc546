package executor

import (
	"context"
	"time"
)

// Result holds the outcome of one agent invocation.
type Result struct {
	SessionID string
	Output    string
	CostUSD   float64
	Turns     int
	Duration  time.Duration
	ExitCode  int
}

// Request holds parameters for one agent invocation. SessionID is always
// set by the caller; Resume says whether it names an existing agent
// conversation to continue or a fresh one to create under that id.
type Request struct {
	JobID        string
	Prompt       string
	ProjectPath  string
	SessionID    string
	Resume       bool
	Model        string
	AllowedTools []string
	Timeout      time.Duration
	Env          map[string]string
}

// ProgressFunc is called during execution to report progress.
type ProgressFunc func(eventType string, message string)

// Capabilities describes what an executor implementation supports.
type Capabilities struct {
	SupportsSession   bool
	SupportsModel     bool
	SupportsToolList  bool
	SupportsStreaming bool
	Name              string
	Version           string
}

// Executor runs coding-agent invocations.
type Executor interface {
	Execute(ctx context.Context, req Request, onProgress ProgressFunc) (*Result, error)
	Capabilities() Capabilities
}
