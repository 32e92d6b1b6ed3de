package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o600))
	return p
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.Equal(t, "openai", cfg.Model.DefaultProvider)
	assert.Equal(t, filepath.Join("logs", "agent_logs.jsonl"), cfg.Telemetry.AgentLog)
}

func TestLoad_YAMLAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "agentgraph.yaml", `
registry:
  dir: ./defs
  strict_tools: true
log:
  level: debug
  format: json
http:
  addr: ":9000"
model:
  default_provider: anthropic
`)

	t.Setenv("AGENTGRAPH_HTTP_ADDR", ":9100")
	t.Setenv("AGENTGRAPH_HTTP_ALLOWED_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("AGENTGRAPH_LOG_MODEL_OUTPUT", "false")
	t.Setenv("AGENTGRAPH_STRICT_TOOLS", "not-a-bool")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "./defs", cfg.Registry.Dir)
	assert.True(t, cfg.Registry.StrictTools)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, ":9100", cfg.HTTP.Addr)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.HTTP.AllowedOrigins)
	assert.Equal(t, "anthropic", cfg.Model.DefaultProvider)
	assert.False(t, cfg.Model.LogOutput)
	// untouched defaults survive a partial file
	assert.Equal(t, filepath.Join("logs", "tool_logs.jsonl"), cfg.Telemetry.ToolLog)
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	bad := writeFile(t, t.TempDir(), "bad.yaml", "log: [")
	_, err = Load(bad)
	assert.Error(t, err)

	invalid := writeFile(t, t.TempDir(), "invalid.yaml", "log:\n  format: xml\nhttp:\n  addr: \"\"\n")
	_, err = Load(invalid)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown format "xml"`)
	assert.Contains(t, err.Error(), "addr is required")
}

func TestLoadRegistry(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "nodes.json", `{"nodes": [{"id": "planner", "type": "react_agent", "tools": ["planning"]}]}`)
	writeFile(t, dir, "tools.yaml", `
tools:
  - name: planning
    function: builtin.planning
    input_schema: [user_id, context]
    output_schema:
      structure: {output: string}
`)
	writeFile(t, dir, "openai_config.json", `{"planner": {"prompt": "Plan.", "model": "gpt-4o"}}`)

	cfg := Default()
	cfg.Registry.Dir = dir
	reg, err := cfg.LoadRegistry()
	require.NoError(t, err)

	_, ok := reg.Node("planner")
	assert.True(t, ok)
	p, ok := reg.Prompt("planner")
	require.True(t, ok)
	assert.Equal(t, "gpt-4o", p.ModelName())

	cfg.Registry = RegistryConfig{NodesFile: filepath.Join(dir, "nodes.json"), StrictTools: true}
	_, err = cfg.LoadRegistry()
	assert.Error(t, err, "planning is unknown without the tools file")

	writeFile(t, dir, "bundle.yaml", `
nodes:
  - id: solo
    type: leaf
prompts:
  solo:
    prompt: hello
`)
	cfg.Registry = RegistryConfig{File: filepath.Join(dir, "bundle.yaml"), NodesFile: filepath.Join(dir, "nodes.json")}
	reg, err = cfg.LoadRegistry()
	require.NoError(t, err)
	assert.Equal(t, []string{"solo"}, reg.DispatchableIDs())
}

func TestExists(t *testing.T) {
	assert.True(t, Exists(writeFile(t, t.TempDir(), "x", "")))
	assert.False(t, Exists(filepath.Join(t.TempDir(), "nope")))
}
