package agent

import (
	"context"
	"encoding/json"
	"maps"

	"github.com/hupe1980/agentgraph/core"
)

// Agent is a constructed, callable unit. Instances are built per dispatch
// and discarded afterwards.
type Agent interface {
	Name() string
	Description() string
	Invoke(ctx context.Context, state State) (*Output, error)
	SubAgents() []Agent
}

// State is the input of one invocation: the transcript so far, the dispatch
// context values and the reasoning step budget.
type State struct {
	Messages       []core.Message
	Values         map[string]any
	RemainingSteps int
}

// NewState builds the initial state of a dispatch: a single user message
// plus every dispatch context value.
func NewState(message string, dctx core.DispatchContext) State {
	return State{
		Messages:       []core.Message{core.NewUserMessage(message)},
		Values:         dctx.Clone(),
		RemainingSteps: core.DefaultRemainingSteps,
	}
}

// Clone returns a copy whose message slice and value map can be modified
// independently.
func (s State) Clone() State {
	return State{
		Messages:       append([]core.Message(nil), s.Messages...),
		Values:         maps.Clone(s.Values),
		RemainingSteps: s.RemainingSteps,
	}
}

// Map flattens the state into a record: the values plus messages and
// remaining_steps. It is the shape validated against a state descriptor.
func (s State) Map() map[string]any {
	out := make(map[string]any, len(s.Values)+2)
	for k, v := range s.Values {
		out[k] = v
	}
	out["messages"] = s.Messages
	out["remaining_steps"] = s.RemainingSteps
	return out
}

// MarshalJSON renders the flattened state.
func (s State) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Map())
}

// Output is the result of one invocation.
type Output struct {
	Messages           []core.Message `json:"messages"`
	StructuredResponse map[string]any `json:"structured_response,omitempty"`
}

// FinalText returns the text of the last assistant message.
func (o *Output) FinalText() string {
	if o == nil {
		return ""
	}
	return core.LastText(o.Messages)
}
