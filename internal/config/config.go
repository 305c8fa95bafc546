package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the full daemon configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Execution ExecutionConfig `yaml:"execution"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	Store     StoreConfig     `yaml:"store"`
	Repos     ReposConfig     `yaml:"repos"`
	Sessions  SessionsConfig  `yaml:"sessions"`
	GitHub    GitHubConfig    `yaml:"github"`
	Notify    NotifyConfig    `yaml:"notify"`
	Auth      AuthConfig      `yaml:"auth"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
}

// ServerConfig holds the MCP HTTP server settings.
type ServerConfig struct {
	Host      string `yaml:"host"`
	Port      int    `yaml:"port"`
	PublicURL string `yaml:"public_url"`
	LogLevel  string `yaml:"log_level"`
}

// ExecutionConfig holds agent invocation settings.
// Timeout is the coordinator's overall budget; AgentMargin is subtracted
// from it to form the agent's own wall-clock timeout so there is always
// time left for git bookkeeping after the agent returns.
type ExecutionConfig struct {
	Executor     string        `yaml:"executor"`
	ClaudePath   string        `yaml:"claude_path"`
	Model        string        `yaml:"model"`
	Timeout      time.Duration `yaml:"timeout"`
	AgentMargin  time.Duration `yaml:"agent_margin"`
	AllowedTools []string      `yaml:"allowed_tools"`
}

// AgentTimeout returns the wall-clock budget for the agent process itself.
func (e ExecutionConfig) AgentTimeout() time.Duration {
	t := e.Timeout - e.AgentMargin
	if t <= 0 {
		return e.Timeout
	}
	return t
}

// SchedulerConfig holds scheduled-prompt loop settings.
type SchedulerConfig struct {
	Enabled       bool          `yaml:"enabled"`
	CycleInterval time.Duration `yaml:"cycle_interval"`
}

// StoreConfig holds the SQLite store location.
type StoreConfig struct {
	Path string `yaml:"path"`
}

// ReposConfig holds the persistent working-copy volume location.
type ReposConfig struct {
	Dir string `yaml:"dir"`
}

// SessionsConfig holds the agent session transcript volume location.
type SessionsConfig struct {
	Dir string `yaml:"dir"`
}

// GitHubConfig controls credential injection for HTTPS remotes.
type GitHubConfig struct {
	TokenEnv string `yaml:"token_env"`
}

// Token reads the configured token from the environment.
func (g GitHubConfig) Token() string {
	return os.Getenv(g.TokenEnv)
}

// NotifyConfig holds push-notification settings.
type NotifyConfig struct {
	NtfyServer string `yaml:"ntfy_server"`
	NtfyTopic  string `yaml:"ntfy_topic"`
}

// AuthConfig holds the static bearer token protecting the MCP surface.
type AuthConfig struct {
	Token string `yaml:"token"`
}

// RateLimitConfig holds per-token request limits.
type RateLimitConfig struct {
	RequestsPerMinute int `yaml:"requests_per_minute"`
	Burst             int `yaml:"burst"`
}

// Defaults returns the configuration used when no file is present.
func Defaults() *Config {
	home, _ := os.UserHomeDir()
	return &Config{
		Server: ServerConfig{
			Host:     "127.0.0.1",
			Port:     8420,
			LogLevel: "info",
		},
		Execution: ExecutionConfig{
			Executor:    "claude-code",
			ClaudePath:  "claude",
			Timeout:     10 * time.Minute,
			AgentMargin: time.Minute,
			AllowedTools: []string{
				"Read", "Write", "Edit", "Bash",
				"Task", "WebSearch", "TodoRead", "TodoWrite",
			},
		},
		Scheduler: SchedulerConfig{
			Enabled:       true,
			CycleInterval: 30 * time.Minute,
		},
		Store: StoreConfig{
			Path: filepath.Join(home, ".gogogadget", "gogogadget.db"),
		},
		Repos: ReposConfig{
			Dir: filepath.Join(home, ".gogogadget", "repos"),
		},
		Sessions: SessionsConfig{
			Dir: filepath.Join(home, ".claude", "projects"),
		},
		GitHub: GitHubConfig{
			TokenEnv: "GITHUB_TOKEN",
		},
		Notify: NotifyConfig{
			NtfyServer: "https://ntfy.sh",
		},
		RateLimit: RateLimitConfig{
			RequestsPerMinute: 60,
			Burst:             10,
		},
	}
}

// LoadFromFile reads a YAML config file, expanding ${ENV_VAR} references.
// A missing file is not an error; defaults are returned.
func LoadFromFile(path string) (*Config, error) {
	cfg := Defaults()

	data, err := os.ReadFile(ExpandHome(path))
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	expanded := os.Expand(string(data), func(key string) string {
		return os.Getenv(key)
	})

	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	cfg.Store.Path = ExpandHome(cfg.Store.Path)
	cfg.Repos.Dir = ExpandHome(cfg.Repos.Dir)
	cfg.Sessions.Dir = ExpandHome(cfg.Sessions.Dir)

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Server.Host == "0.0.0.0" || c.Server.Host == "::" {
		return fmt.Errorf("server.host %q binds all interfaces; use a loopback or explicit address behind a reverse proxy", c.Server.Host)
	}
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	if c.Execution.Timeout <= 0 {
		return fmt.Errorf("execution.timeout must be positive")
	}
	if c.Execution.AgentMargin < 0 || c.Execution.AgentMargin >= c.Execution.Timeout {
		return fmt.Errorf("execution.agent_margin must be shorter than execution.timeout")
	}
	if c.Scheduler.CycleInterval <= 0 {
		return fmt.Errorf("scheduler.cycle_interval must be positive")
	}
	return nil
}

// ExpandHome replaces a leading ~ with the user's home directory.
func ExpandHome(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, strings.TrimPrefix(path, "~"))
	}
	return path
}
