package model

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/agentgraph/core"
	"github.com/hupe1980/agentgraph/logging"
)

func TestScriptedProvider_Queue(t *testing.T) {
	p := NewScriptedProvider("test").
		ThenCalls(core.FunctionCall{Name: "planning", Arguments: `{}`}).
		ThenText("done")

	req := Request{Messages: []core.Message{core.NewUserMessage("hi")}}

	resp, err := p.Complete(context.Background(), req)
	require.NoError(t, err)
	calls := resp.Message.FunctionCalls()
	require.Len(t, calls, 1)
	assert.Equal(t, "planning", calls[0].Name)
	assert.NotEmpty(t, calls[0].ID)
	assert.Equal(t, "tool_calls", resp.FinishReason)

	resp, err = p.Complete(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "done", resp.Message.Text())
	assert.True(t, resp.Message.IsFinalResponse())

	assert.Equal(t, 0, p.Pending())
	assert.Len(t, p.Requests(), 2)
}

func TestScriptedProvider_Fallbacks(t *testing.T) {
	p := NewScriptedProvider("test")
	p.AddResponse("ping", "pong")

	resp, err := p.Complete(context.Background(), Request{Messages: []core.Message{core.NewUserMessage("ping")}})
	require.NoError(t, err)
	assert.Equal(t, "pong", resp.Message.Text())

	resp, err = p.Complete(context.Background(), Request{Messages: []core.Message{core.NewUserMessage("other")}})
	require.NoError(t, err)
	assert.Equal(t, "Mock response to: other", resp.Message.Text())

	_, err = p.Complete(context.Background(), Request{})
	require.Error(t, err)
}

func TestScriptedProvider_ErrorAndCancel(t *testing.T) {
	boom := errors.New("boom")
	p := NewScriptedProvider("test").ThenError(boom)

	_, err := p.Complete(context.Background(), Request{})
	require.ErrorIs(t, err, boom)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = p.Complete(ctx, Request{})
	require.ErrorIs(t, err, context.Canceled)
}

func TestResolver(t *testing.T) {
	scripted := NewScriptedProvider("gpt-test")
	var seen Settings

	r := NewResolver(func(o *ResolverOptions) {
		o.DefaultProvider = "Scripted"
	}).Register("scripted", func(s Settings) (Provider, error) {
		seen = s
		return scripted, nil
	})

	temp := 0.3
	p, err := r.Resolve(Settings{Model: "gpt-4o-mini", Temperature: &temp})
	require.NoError(t, err)
	assert.Same(t, scripted, p)
	assert.Equal(t, "gpt-4o-mini", seen.Model)
	assert.Equal(t, []string{"scripted"}, r.Providers())

	_, err = r.Resolve(Settings{Provider: "missing"})
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrConfig)
}

func TestResolver_LogOutputWraps(t *testing.T) {
	scripted := NewScriptedProvider("gpt-test")
	r := NewResolver(func(o *ResolverOptions) {
		o.DefaultProvider = "scripted"
		o.LogOutput = true
		o.Logger = logging.NoOpLogger{}
	}).Register("scripted", func(Settings) (Provider, error) { return scripted, nil })

	p, err := r.Resolve(Settings{})
	require.NoError(t, err)

	lp, ok := p.(*LoggingProvider)
	require.True(t, ok)
	assert.Same(t, scripted, lp.Unwrap())
	assert.Equal(t, "gpt-test", lp.Info().Name)
}

type recordingLogger struct {
	logging.NoOpLogger
	infos  []string
	errors []string
}

func (l *recordingLogger) Info(msg string, _ ...any)  { l.infos = append(l.infos, msg) }
func (l *recordingLogger) Error(msg string, _ ...any) { l.errors = append(l.errors, msg) }

func TestLoggingProvider(t *testing.T) {
	log := &recordingLogger{}
	inner := NewScriptedProvider("m").ThenText("out").ThenError(errors.New("down"))
	p := NewLoggingProvider(inner, log)

	resp, err := p.Complete(context.Background(), Request{})
	require.NoError(t, err)
	assert.Equal(t, "out", resp.Message.Text())

	_, err = p.Complete(context.Background(), Request{})
	require.Error(t, err)

	assert.Equal(t, []string{"model.call.completed"}, log.infos)
	assert.Equal(t, []string{"model.call.failed"}, log.errors)
}

func TestNewToolDefinition(t *testing.T) {
	def := NewToolDefinition("x", "does x", nil)
	assert.Equal(t, "function", def.Type)
	assert.Equal(t, "object", def.Function.Parameters["type"])
}
