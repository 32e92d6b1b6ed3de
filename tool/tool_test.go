package tool

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/agentgraph/core"
	"github.com/hupe1980/agentgraph/model"
	"github.com/hupe1980/agentgraph/registry"
	"github.com/hupe1980/agentgraph/telemetry"
)

func summarizeDef() registry.ToolDefinition {
	return registry.ToolDefinition{
		Name:        "summarize",
		Function:    "builtin.summarize",
		Description: "Summarizes text",
		InputSchema: map[string]any{"text": "string"},
		OutputSchema: registry.OutputSchema{
			Structure: map[string]any{"summary": "string", "word_count": "integer"},
		},
	}
}

func bindWithSink(def registry.ToolDefinition, fn Func) (*BoundTool, *telemetry.MemorySink) {
	sink := telemetry.NewMemorySink()
	return Bind(def, fn, func(o *Options) { o.Sink = sink }), sink
}

func TestBoundTool_Success(t *testing.T) {
	bt, sink := bindWithSink(summarizeDef(), Summarize)

	res := bt.Invoke(context.Background(), map[string]any{"text": "one two three", "extra": 1}, "call_1")

	require.False(t, res.Fallback)
	assert.NoError(t, res.Err)
	assert.Equal(t, "call_1", res.CallID)
	assert.Equal(t, map[string]any{"summary": "one two three", "word_count": 3}, res.Output)

	events := sink.Events()
	require.Len(t, events, 1)
	assert.Equal(t, telemetry.EventTool, events[0].Type)
	assert.Equal(t, "summarize", events[0].Name)
	assert.False(t, events[0].EndTime.Before(events[0].StartTime))
}

func TestBoundTool_OutputCoercion(t *testing.T) {
	bt, _ := bindWithSink(summarizeDef(), func(context.Context, map[string]any) (any, error) {
		return map[string]any{"summary": "s", "word_count": "7"}, nil
	})

	res := bt.Invoke(context.Background(), map[string]any{"text": "x"}, "")
	require.False(t, res.Fallback)
	assert.Equal(t, 7, res.Output["word_count"])
}

func TestBoundTool_StructOutput(t *testing.T) {
	type out struct {
		Summary   string `json:"summary"`
		WordCount int    `json:"word_count"`
	}
	bt, _ := bindWithSink(summarizeDef(), func(context.Context, map[string]any) (any, error) {
		return out{Summary: "s", WordCount: 2}, nil
	})

	res := bt.Invoke(context.Background(), nil, "")
	require.False(t, res.Fallback)
	assert.Equal(t, map[string]any{"summary": "s", "word_count": 2}, res.Output)
}

func TestBoundTool_InvalidInputStillCalls(t *testing.T) {
	var got map[string]any
	bt, _ := bindWithSink(summarizeDef(), func(_ context.Context, in map[string]any) (any, error) {
		got = in
		return map[string]any{"summary": "", "word_count": 0}, nil
	})

	res := bt.Invoke(context.Background(), map[string]any{}, "c")
	require.False(t, res.Fallback)
	assert.Equal(t, map[string]any{"text": nil}, got)
}

func TestBoundTool_Fallbacks(t *testing.T) {
	tests := []struct {
		name string
		fn   Func
		code string
	}{
		{"error", func(context.Context, map[string]any) (any, error) { return nil, errors.New("boom") }, CodeExecution},
		{"panic", func(context.Context, map[string]any) (any, error) { panic("kaboom") }, CodePanic},
		{"missing field", func(context.Context, map[string]any) (any, error) {
			return map[string]any{"summary": "only"}, nil
		}, CodeValidation},
		{"wrong shape", func(context.Context, map[string]any) (any, error) { return "text", nil }, CodeValidation},
		{"nil result", func(context.Context, map[string]any) (any, error) { return nil, nil }, CodeValidation},
		{"uncoercible", func(context.Context, map[string]any) (any, error) {
			return map[string]any{"summary": "s", "word_count": "many"}, nil
		}, CodeValidation},
		{"tool error passthrough", func(context.Context, map[string]any) (any, error) {
			return nil, NewToolError("summarize", "quota", "QUOTA")
		}, "QUOTA"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bt, sink := bindWithSink(summarizeDef(), tt.fn)

			res := bt.Invoke(context.Background(), map[string]any{"text": "x"}, "")

			assert.True(t, res.Fallback)
			assert.Equal(t, "summarize_default_fallback", res.CallID)
			assert.Equal(t, map[string]any{"summary": nil, "word_count": nil}, res.Output)

			var toolErr *ToolError
			require.ErrorAs(t, res.Err, &toolErr)
			assert.Equal(t, tt.code, toolErr.Code)
			assert.Len(t, sink.Events(), 1)
		})
	}
}

func TestBoundTool_ValidationErrorUnwraps(t *testing.T) {
	bt, _ := bindWithSink(summarizeDef(), func(context.Context, map[string]any) (any, error) {
		return map[string]any{}, nil
	})
	res := bt.Invoke(context.Background(), nil, "")
	assert.ErrorIs(t, res.Err, core.ErrValidation)
}

func TestResult_MarshalJSON(t *testing.T) {
	data, err := json.Marshal(Result{Output: map[string]any{"a": 1}, CallID: "x"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":1}`, string(data))

	data, err = json.Marshal(Result{Output: map[string]any{"a": nil}, CallID: "x", Fallback: true})
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"function_call_output","call_id":"x","output":{"a":null}}`, string(data))
}

func TestBoundTool_ToolInterface(t *testing.T) {
	bt, _ := bindWithSink(summarizeDef(), Summarize)

	var tl Tool = bt
	assert.Equal(t, "summarize", tl.Name())
	assert.Equal(t, "Summarizes text", tl.Description())
	assert.NotContains(t, tl.Parameters(), "required")
	assert.Contains(t, tl.Parameters()["properties"], "text")

	out, err := tl.Call(WithCallID(context.Background(), "fc_9"), map[string]any{"text": "a b"})
	require.NoError(t, err)
	res := out.(Result)
	assert.Equal(t, "fc_9", res.CallID)
	assert.Equal(t, 2, res.Output["word_count"])
}

func TestBoundTool_ConcurrentCalls(t *testing.T) {
	bt, sink := bindWithSink(summarizeDef(), Summarize)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			bt.Invoke(context.Background(), map[string]any{"text": "a"}, "")
		}()
	}
	wg.Wait()

	assert.Len(t, sink.Events(), 20)
}

func TestBoundTool_Clock(t *testing.T) {
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	ticks := 0
	sink := telemetry.NewMemorySink()
	bt := Bind(summarizeDef(), Summarize, func(o *Options) {
		o.Sink = sink
		o.Now = func() time.Time {
			ticks++
			return base.Add(time.Duration(ticks) * time.Second)
		}
	})

	bt.Invoke(context.Background(), map[string]any{"text": "a"}, "")
	ev := sink.Events()[0]
	assert.InDelta(t, 1.0, ev.DurationSeconds, 1e-9)
}

func TestCatalog(t *testing.T) {
	c := Builtins()
	fn, err := c.Lookup("builtin.planning")
	require.NoError(t, err)
	assert.NotNil(t, fn)

	_, err = c.Lookup("nope")
	assert.ErrorIs(t, err, core.ErrConfig)

	merged := c.Merge(Catalog{"x.y": Echo})
	assert.Contains(t, merged.Refs(), "x.y")
	assert.NotContains(t, c.Refs(), "x.y")
}

func TestPlan(t *testing.T) {
	out, err := Plan(context.Background(), map[string]any{"user_id": "u1", "context": "Wake up. Run 5k; stretch"})
	require.NoError(t, err)
	rec := out.(map[string]any)
	assert.Equal(t, "1. Wake up\n2. Run 5k\n3. stretch", rec["output"])
	assert.Equal(t, "3 step plan", rec["summary"])

	_, err = Plan(context.Background(), map[string]any{"context": " "})
	assert.Error(t, err)
}

func TestEcho(t *testing.T) {
	out, err := Echo(context.Background(), map[string]any{"b": 2, "a": "x"})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"output": "a=x b=2"}, out)
}

func TestHandoffTool(t *testing.T) {
	h := NewHandoffTool("planner", "Plans things.")
	assert.Equal(t, "transfer_to_planner", h.Name())
	assert.Contains(t, h.Description(), "Plans things.")

	agent, ok := HandoffTarget(h.Name())
	assert.True(t, ok)
	assert.Equal(t, "planner", agent)

	_, ok = HandoffTarget("planning")
	assert.False(t, ok)
	_, ok = HandoffTarget(HandoffPrefix)
	assert.False(t, ok)

	out, err := h.Call(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"transferred": true, "agent": "planner"}, out)
}

func TestPromptFunc(t *testing.T) {
	p := model.NewScriptedProvider("m").ThenText("```json\n{\"output\": \"ok\", \"explanation\": \"because\"}\n```")

	fn := PromptFunc(p, "Help {{ user_id }}. Schema: {{ expected_output_schema }}", map[string]any{"output": "string"})
	out, err := fn(context.Background(), map[string]any{"user_id": "42", "message": "hi"})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"output": "ok", "explanation": "because"}, out)

	reqs := p.Requests()
	require.Len(t, reqs, 1)
	assert.Contains(t, reqs[0].Instructions, "Help 42.")
	assert.Contains(t, reqs[0].Instructions, `"output": "string"`)
	assert.Equal(t, "hi", reqs[0].Messages[0].Text())
}

func TestPromptFunc_Failures(t *testing.T) {
	p := model.NewScriptedProvider("m").ThenText("no json here")
	_, err := PromptFunc(p, "x", nil)(context.Background(), nil)
	assert.ErrorIs(t, err, core.ErrParse)

	_, err = PromptFunc(p, "{{ missing }}", nil)(context.Background(), nil)
	assert.Error(t, err)
}
