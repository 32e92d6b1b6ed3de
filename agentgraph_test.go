package agentgraph

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/agentgraph/config"
	"github.com/hupe1980/agentgraph/core"
	"github.com/hupe1980/agentgraph/internal/testutil"
	"github.com/hupe1980/agentgraph/model"
	"github.com/hupe1980/agentgraph/registry"
	"github.com/hupe1980/agentgraph/telemetry"
)

func newGraph(t *testing.T) (*AgentGraph, *model.ScriptedProvider, *telemetry.MemorySink) {
	t.Helper()

	reg := testutil.NewRegistryBuilder().
		Tool("planning", "builtin.planning", []string{"user_id", "context"},
			map[string]any{"output": "string", "explanation": "string", "summary": "string"}).
		Leaf("planner", "planning").Describe("Plans the day").
		Supervisor("coach", []string{"planner"}).
		Node(registry.NodeDefinition{ID: "router", Type: "router"}).
		Prompt("planner", "Plan for {{ identifier }}.").
		Prompt("coach", "Coach {{ user_input }}.").
		MustBuild(t)

	llm := model.NewScriptedProvider("m")
	sink := telemetry.NewMemorySink()

	g := New(registry.Static{R: reg}, func(o *Options) {
		o.Resolver = model.NewResolver().Register("openai", func(model.Settings) (model.Provider, error) { return llm, nil })
		o.Sink = sink
	})
	return g, llm, sink
}

func TestAgentGraph_Dispatch(t *testing.T) {
	g, llm, sink := newGraph(t)
	llm.
		ThenCalls(core.FunctionCall{Name: "planning", Arguments: `{"user_id":"u1","context":"Wake up. Run"}`}).
		ThenText(`{"reply":"ok"}`)

	res := g.Dispatch(context.Background(), "planner", "plan my day", core.DispatchContext{core.KeyIdentifier: "u1"})
	require.False(t, res.Failed(), res.Error)

	want := testutil.NewMessageBuilder().Name("planner").AssistantText(`{"reply":"ok"}`).Build()
	msgs := res.Output.Messages
	require.Len(t, msgs, 4)
	assert.Equal(t, want, msgs[3])
	assert.Equal(t, `{"reply":"ok"}`, res.Text())

	assert.Len(t, sink.ByType(telemetry.EventTool), 1)
	assert.Len(t, sink.ByType(telemetry.EventAgent), 1)
}

func TestAgentGraph_BuildAndAgents(t *testing.T) {
	g, _, _ := newGraph(t)

	assert.ElementsMatch(t, []string{"planner", "coach"}, g.Agents())

	a, err := g.Build(context.Background(), "coach", core.DispatchContext{core.KeyMessage: "hi", core.KeyIdentifier: "u1"})
	require.NoError(t, err)
	require.Len(t, a.SubAgents(), 1)
	assert.Equal(t, "planner", a.SubAgents()[0].Name())
	assert.Equal(t, "Plans the day", a.SubAgents()[0].Description())

	_, err = g.Build(context.Background(), "router", core.DispatchContext{})
	require.Error(t, err)
}

func TestAgentGraph_Handler(t *testing.T) {
	g, llm, _ := newGraph(t)
	llm.ThenText("Sure:\n```json\n{\"reply\":\"hello\"}\n```")

	srv := httptest.NewServer(g.Handler())
	defer srv.Close()

	body, _ := json.Marshal(map[string]any{"agent_name": "planner", "message": "hi", "identifier": "u1"})
	resp, err := http.Post(srv.URL+"/api/agent", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Equal(t, map[string]any{"reply": "hello"}, out)

	resp2, err := http.Get(srv.URL + "/api/agents")
	require.NoError(t, err)
	defer resp2.Body.Close()
	assert.Equal(t, http.StatusOK, resp2.StatusCode)
}

func TestFromConfig(t *testing.T) {
	dir := t.TempDir()
	regDir := filepath.Join(dir, "config")
	require.NoError(t, os.MkdirAll(regDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(regDir, "nodes.yaml"), []byte(`
nodes:
  - id: planner
    type: react_agent
    tools: [planning]
`), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(regDir, "tools.yaml"), []byte(`
tools:
  - name: planning
    function: builtin.planning
    input_schema: [user_id, context]
    output_schema:
      structure:
        output: string
`), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(regDir, "prompts.yaml"), []byte(`
planner:
  prompt: Plan for {{ identifier }}.
`), 0o600))

	cfg := config.Default()
	cfg.Registry.Dir = regDir
	cfg.Telemetry.ToolLog = filepath.Join(dir, "logs", "events.jsonl")
	cfg.Telemetry.AgentLog = cfg.Telemetry.ToolLog
	cfg.Model.OpenAIAPIKey = "test"

	g, store, closer, err := FromConfig(cfg, nil)
	require.NoError(t, err)

	assert.Equal(t, []string{"planner"}, g.Agents())
	require.NoError(t, store.Reload())

	res := g.Dispatch(context.Background(), "ghost", "hi", nil)
	assert.Equal(t, "Unknown agent or type for 'ghost'", res.Error)
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(cfg.Telemetry.AgentLog)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 1)
	assert.Contains(t, lines[0], `"ghost"`)
}

func TestFromConfig_MissingRegistry(t *testing.T) {
	cfg := config.Default()
	cfg.Registry.Dir = t.TempDir()

	_, _, _, err := FromConfig(cfg, nil)
	require.Error(t, err)
}

func TestOpenSinks(t *testing.T) {
	dir := t.TempDir()

	t.Run("split", func(t *testing.T) {
		sink, closer, err := openSinks(config.TelemetryConfig{
			ToolLog:  filepath.Join(dir, "tool.jsonl"),
			AgentLog: filepath.Join(dir, "agent.jsonl"),
		})
		require.NoError(t, err)
		assert.Len(t, closer.(closers), 2)

		require.NoError(t, sink.Append(context.Background(), telemetry.LogEvent{Type: telemetry.EventTool, Name: "t"}))
		require.NoError(t, sink.Append(context.Background(), telemetry.LogEvent{Type: telemetry.EventAgent, Name: "a"}))
		require.NoError(t, closer.Close())

		tool, _ := os.ReadFile(filepath.Join(dir, "tool.jsonl"))
		agent, _ := os.ReadFile(filepath.Join(dir, "agent.jsonl"))
		assert.Contains(t, string(tool), `"t"`)
		assert.NotContains(t, string(tool), `"a"`)
		assert.Contains(t, string(agent), `"a"`)
	})

	t.Run("shared", func(t *testing.T) {
		path := filepath.Join(dir, "all.jsonl")
		_, closer, err := openSinks(config.TelemetryConfig{ToolLog: path, AgentLog: path})
		require.NoError(t, err)
		assert.Len(t, closer.(closers), 1)
		require.NoError(t, closer.Close())
	})

	t.Run("disabled", func(t *testing.T) {
		sink, closer, err := openSinks(config.TelemetryConfig{})
		require.NoError(t, err)
		assert.Empty(t, closer.(closers))
		require.NoError(t, sink.Append(context.Background(), telemetry.LogEvent{Type: telemetry.EventTool}))
	})
}

func TestSampleConfiguration(t *testing.T) {
	cfg, err := config.Load("agentgraph.yaml")
	require.NoError(t, err)

	reg, err := cfg.LoadRegistry()
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"planner", "writer", "coach"}, reg.DispatchableIDs())

	llm := model.NewScriptedProvider("m")
	g := New(registry.Static{R: reg}, func(o *Options) {
		o.Resolver = model.NewResolver().Register("openai", func(model.Settings) (model.Provider, error) { return llm, nil })
	})

	for _, id := range g.Agents() {
		_, err := g.Build(context.Background(), id, core.DispatchContext{core.KeyMessage: "hi", core.KeyIdentifier: "u1"})
		require.NoError(t, err, id)
	}
}
