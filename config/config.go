// Package config loads process configuration from an optional YAML file and
// AGENTGRAPH_* environment overrides.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/hupe1980/agentgraph/registry"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "AGENTGRAPH_"

// Config holds all process configuration.
type Config struct {
	Registry  RegistryConfig  `yaml:"registry"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Log       LogConfig       `yaml:"log"`
	HTTP      HTTPConfig      `yaml:"http"`
	Model     ModelConfig     `yaml:"model"`
}

// RegistryConfig locates the registry documents. A bundle File wins over
// explicit file paths, which win over discovery in Dir.
type RegistryConfig struct {
	Dir         string `yaml:"dir"`
	File        string `yaml:"file"`
	NodesFile   string `yaml:"nodes_file"`
	ToolsFile   string `yaml:"tools_file"`
	PromptsFile string `yaml:"prompts_file"`
	StrictTools bool   `yaml:"strict_tools"`
}

// TelemetryConfig names the JSONL event logs. An empty path disables that
// log; when both are equal a single file receives every event.
type TelemetryConfig struct {
	ToolLog  string `yaml:"tool_log"`
	AgentLog string `yaml:"agent_log"`
}

// LogConfig configures the process logger.
type LogConfig struct {
	Level     string `yaml:"level"`
	Format    string `yaml:"format"`
	AddSource bool   `yaml:"add_source"`
}

// HTTPConfig configures the HTTP front end.
type HTTPConfig struct {
	Addr           string   `yaml:"addr"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// ModelConfig configures model providers. API keys are read by the provider
// SDKs from their usual environment variables when left empty.
type ModelConfig struct {
	DefaultProvider string `yaml:"default_provider"`
	LogOutput       bool   `yaml:"log_output"`
	OpenAIBaseURL   string `yaml:"openai_base_url"`
	OpenAIAPIKey    string `yaml:"openai_api_key"`
	AnthropicAPIKey string `yaml:"anthropic_api_key"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Registry: RegistryConfig{Dir: "config"},
		Telemetry: TelemetryConfig{
			ToolLog:  filepath.Join("logs", "tool_logs.jsonl"),
			AgentLog: filepath.Join("logs", "agent_logs.jsonl"),
		},
		Log:   LogConfig{Level: "info", Format: "text"},
		HTTP:  HTTPConfig{Addr: "127.0.0.1:8000", AllowedOrigins: []string{"*"}},
		Model: ModelConfig{DefaultProvider: "openai", LogOutput: true},
	}
}

// Load reads path (optional; a missing file is fine when path is empty) on
// top of Default and applies environment overrides.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	cfg.applyEnv(os.LookupEnv)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration for obvious mistakes.
func (c *Config) Validate() error {
	var errs []error
	if c.Registry.Dir == "" && c.Registry.NodesFile == "" && c.Registry.File == "" {
		errs = append(errs, errors.New("registry: dir, file or nodes_file is required"))
	}
	switch strings.ToLower(c.Log.Format) {
	case "", "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log: unknown format %q", c.Log.Format))
	}
	if c.HTTP.Addr == "" {
		errs = append(errs, errors.New("http: addr is required"))
	}
	return errors.Join(errs...)
}

// LoadRegistry builds the registry described by the configuration.
func (c *Config) LoadRegistry(optFns ...func(o *registry.Options)) (*registry.Registry, error) {
	opts := append([]func(o *registry.Options){func(o *registry.Options) { o.StrictTools = c.Registry.StrictTools }}, optFns...)

	rc := c.Registry
	switch {
	case rc.File != "":
		return registry.LoadFile(rc.File, opts...)
	case rc.NodesFile == "":
		return registry.LoadDir(rc.Dir, opts...)
	}
	return registry.Load(registry.Paths{
		Nodes:   rc.NodesFile,
		Tools:   rc.ToolsFile,
		Prompts: rc.PromptsFile,
	}, opts...)
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) {
	envStr(lookup, "REGISTRY_DIR", &c.Registry.Dir)
	envStr(lookup, "REGISTRY_FILE", &c.Registry.File)
	envStr(lookup, "NODES_FILE", &c.Registry.NodesFile)
	envStr(lookup, "TOOLS_FILE", &c.Registry.ToolsFile)
	envStr(lookup, "PROMPTS_FILE", &c.Registry.PromptsFile)
	envBool(lookup, "STRICT_TOOLS", &c.Registry.StrictTools)

	envStr(lookup, "TOOL_LOG", &c.Telemetry.ToolLog)
	envStr(lookup, "AGENT_LOG", &c.Telemetry.AgentLog)

	envStr(lookup, "LOG_LEVEL", &c.Log.Level)
	envStr(lookup, "LOG_FORMAT", &c.Log.Format)
	envBool(lookup, "LOG_ADD_SOURCE", &c.Log.AddSource)

	envStr(lookup, "HTTP_ADDR", &c.HTTP.Addr)
	if v, ok := lookup(EnvPrefix + "HTTP_ALLOWED_ORIGINS"); ok && v != "" {
		c.HTTP.AllowedOrigins = splitList(v)
	}

	envStr(lookup, "DEFAULT_PROVIDER", &c.Model.DefaultProvider)
	envBool(lookup, "LOG_MODEL_OUTPUT", &c.Model.LogOutput)
	envStr(lookup, "OPENAI_BASE_URL", &c.Model.OpenAIBaseURL)
}

func envStr(lookup func(string) (string, bool), key string, dst *string) {
	if v, ok := lookup(EnvPrefix + key); ok && v != "" {
		*dst = v
	}
}

func envBool(lookup func(string) (string, bool), key string, dst *bool) {
	if v, ok := lookup(EnvPrefix + key); ok && v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func splitList(v string) []string {
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// Exists reports whether path names an existing file.
func Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil || !errors.Is(err, fs.ErrNotExist)
}
