package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/agentgraph/agent"
	"github.com/hupe1980/agentgraph/core"
	"github.com/hupe1980/agentgraph/dispatch"
)

type mockDispatcher struct{ mock.Mock }

func (m *mockDispatcher) Dispatch(ctx context.Context, agentName, message string, dctx core.DispatchContext) dispatch.Result {
	args := m.Called(agentName, message, dctx)
	return args.Get(0).(dispatch.Result)
}

func reply(text string) dispatch.Result {
	return dispatch.Result{Output: &agent.Output{Messages: []core.Message{
		core.NewUserMessage("q"),
		core.NewAssistantMessage("coach", text),
	}}}
}

func post(t *testing.T, h http.Handler, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/agent", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return rec, out
}

func TestCallAgent_ExtractsJSON(t *testing.T) {
	tests := []struct {
		name string
		text string
		want map[string]any
	}{
		{"fenced", "Sure!\n```json\n{\"plan\": \"run\"}\n```\nBye", map[string]any{"plan": "run"}},
		{"braces", "Result: {\"plan\": {\"steps\": 2}} done", map[string]any{"plan": map[string]any{"steps": float64(2)}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := &mockDispatcher{}
			d.On("Dispatch", "coach", "hi", core.DispatchContext{"identifier": "u1"}).Return(reply(tt.text))

			rec, out := post(t, New(d), `{"agent_name": "coach", "message": "hi", "identifier": "u1"}`)
			assert.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
			assert.Equal(t, tt.want, out)
			d.AssertExpectations(t)
		})
	}
}

func TestCallAgent_Unparsable(t *testing.T) {
	d := &mockDispatcher{}
	d.On("Dispatch", "coach", "hi", mock.Anything).Return(reply("no json at all"))

	rec, out := post(t, New(d), `{"agent_name": "coach", "message": "hi"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, map[string]any{"error": "Could not parse agent response"}, out)
}

func TestCallAgent_MissingIdentifierIsNull(t *testing.T) {
	d := &mockDispatcher{}
	d.On("Dispatch", "coach", "hi", core.DispatchContext{"identifier": nil}).Return(reply(`{"a": 1}`))

	_, _ = post(t, New(d), `{"agent_name": "coach", "message": "hi"}`)
	d.AssertExpectations(t)
}

func TestCallAgent_DispatchError(t *testing.T) {
	d := &mockDispatcher{}
	d.On("Dispatch", "ghost", "hi", mock.Anything).Return(dispatch.Result{Error: "Unknown agent or type for 'ghost'"})

	rec, out := post(t, New(d), `{"agent_name": "ghost", "message": "hi"}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, map[string]any{"error": "Unknown agent or type for 'ghost'"}, out)
}

func TestCallAgent_BadBody(t *testing.T) {
	d := &mockDispatcher{}
	rec, out := post(t, New(d), `{"agent_name": `)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, out["error"], "invalid request body")
	d.AssertNotCalled(t, "Dispatch", mock.Anything, mock.Anything, mock.Anything)
}

func TestHealthAndAgents(t *testing.T) {
	h := New(&mockDispatcher{}, func(o *Options) {
		o.Agents = func() []string { return []string{"coach", "planner"} }
	})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/agents", nil))
	assert.JSONEq(t, `{"agents":["coach","planner"]}`, rec.Body.String())

	rec = httptest.NewRecorder()
	New(&mockDispatcher{}).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/agents", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCORSPreflight(t *testing.T) {
	h := New(&mockDispatcher{}, func(o *Options) { o.AllowedOrigins = []string{"https://app.example"} })

	req := httptest.NewRequest(http.MethodOptions, "/api/agent", nil)
	req.Header.Set("Origin", "https://app.example")
	req.Header.Set("Access-Control-Request-Method", "POST")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, "https://app.example", rec.Header().Get("Access-Control-Allow-Origin"))
}
