package mcp

import (
	"github.com/mark3labs/mcp-go/server"

	"github.com/TheWizardOz3/gogogadget/internal/config"
	"github.com/TheWizardOz3/gogogadget/internal/jobs"
	"github.com/TheWizardOz3/gogogadget/internal/repo"
	"github.com/TheWizardOz3/gogogadget/internal/scheduler"
	"github.com/TheWizardOz3/gogogadget/internal/store"
)

// Deps holds shared dependencies injected into MCP handlers.
type Deps struct {
	Jobs         *jobs.Manager
	Repos        *repo.Manager
	Scheduler    *scheduler.Scheduler
	Store        *store.Store
	SessionsRoot string
	Execution    config.ExecutionConfig
	Version      string
}

// NewServer creates and configures the MCP server with all tools registered.
func NewServer(deps *Deps) *server.MCPServer {
	s := server.NewMCPServer(
		"GoGoGadget",
		deps.Version,
		server.WithToolCapabilities(true),
		server.WithLogging(),
	)

	registerTools(s, deps)

	return s
}
