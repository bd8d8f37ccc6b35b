package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/pocketomega/axon/internal/mcp"
	"github.com/pocketomega/axon/internal/orchestrator"
)

// TimeoutConfig collects the timeout knobs spec.md §6/§10 leaves to the
// deployer: one action's wall-clock budget and the orchestrator's own
// per-goal iteration ceiling, mirroring the teacher's mcp.json-adjacent
// "timeouts" block.
type TimeoutConfig struct {
	ActionTimeout time.Duration `yaml:"action_timeout"`
	MaxIterations int           `yaml:"max_iterations"`
}

// ServerSpec names one MCP server entry in the YAML config file, carrying
// the mcp.ServerConfig fields a YAML entry can set (transport, command,
// args, url, env, headers, lifecycle) rather than inventing a second shape.
// mcp.ServerConfig's Auth and Retry fields are not read from YAML.
type ServerSpec struct {
	Transport string            `yaml:"transport"`
	Command   string            `yaml:"command,omitempty"`
	Args      []string          `yaml:"args,omitempty"`
	URL       string            `yaml:"url,omitempty"`
	Env       []string          `yaml:"env,omitempty"`
	Headers   map[string]string `yaml:"headers,omitempty"`
	Lifecycle string            `yaml:"lifecycle,omitempty"`
}

func (s ServerSpec) toServerConfig(name string) mcp.ServerConfig {
	return mcp.ServerConfig{
		Name:      name,
		Transport: s.Transport,
		Command:   s.Command,
		Args:      s.Args,
		URL:       s.URL,
		Env:       s.Env,
		Lifecycle: s.Lifecycle,
		Headers:   s.Headers,
	}
}

// AgentConfig is the top-level configuration record for cmd/axon: the MCP
// server entries and the orchestrator's timeout budget. It decodes from
// YAML (per spec.md §6/§10). The model back-end is not part of it: cmd/axon
// builds it from environment variables, which LoadEnv loads from `.env`, so
// model credentials never need to appear in the YAML file itself.
type AgentConfig struct {
	Servers  map[string]ServerSpec `yaml:"servers"`
	Timeouts TimeoutConfig         `yaml:"timeouts"`
}

// DefaultAgentConfig returns the zero-servers, default-timeout config used
// when no YAML file is found; LoadEnv-sourced env vars still drive the
// model adapter separately.
func DefaultAgentConfig() AgentConfig {
	return AgentConfig{
		Servers: map[string]ServerSpec{},
		Timeouts: TimeoutConfig{
			ActionTimeout: 30 * time.Second,
			MaxIterations: 500,
		},
	}
}

// LoadAgentConfig reads and decodes a YAML config file at path. A missing
// file is not an error: DefaultAgentConfig is returned instead, matching
// the teacher's env.go tolerance for an absent .env.
func LoadAgentConfig(path string) (AgentConfig, error) {
	cfg := DefaultAgentConfig()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("config: read %q: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("config: parse %q: %w", path, err)
	}
	if cfg.Timeouts.ActionTimeout <= 0 {
		cfg.Timeouts.ActionTimeout = 30 * time.Second
	}
	if cfg.Timeouts.MaxIterations <= 0 {
		cfg.Timeouts.MaxIterations = 500
	}
	return cfg, nil
}

// ServerConfigs materializes the YAML server specs into mcp.ServerConfig
// values keyed by server name, ready for mcp.Manager / mcp.NewClient.
func (c AgentConfig) ServerConfigs() map[string]mcp.ServerConfig {
	out := make(map[string]mcp.ServerConfig, len(c.Servers))
	for name, spec := range c.Servers {
		out[name] = spec.toServerConfig(name)
	}
	return out
}

// OrchestratorConfig projects the timeout block onto orchestrator.Config.
func (c AgentConfig) OrchestratorConfig() orchestrator.Config {
	return orchestrator.Config{
		ActionTimeout: c.Timeouts.ActionTimeout,
		MaxIterations: c.Timeouts.MaxIterations,
	}
}
