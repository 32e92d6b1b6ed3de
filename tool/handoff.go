package tool

import (
	"context"
	"fmt"
	"strings"
)

// HandoffPrefix prefixes the name of every delegation tool.
const HandoffPrefix = "transfer_to_"

// HandoffBackPrefix prefixes the synthetic tool name recorded when control
// returns from a sub-agent to its supervisor.
const HandoffBackPrefix = "transfer_back_to_"

// HandoffTool lets a supervisor's model delegate the conversation to a named
// sub-agent. The supervisor intercepts calls to it; Call only acknowledges.
type HandoffTool struct {
	agent       string
	description string
}

// NewHandoffTool creates the transfer_to_<agent> tool.
func NewHandoffTool(agent, description string) *HandoffTool {
	return &HandoffTool{agent: agent, description: description}
}

// Agent returns the delegation target.
func (t *HandoffTool) Agent() string { return t.agent }

// Name implements Tool.
func (t *HandoffTool) Name() string { return HandoffPrefix + t.agent }

// Description implements Tool.
func (t *HandoffTool) Description() string {
	d := fmt.Sprintf("Transfer control to the %s agent.", t.agent)
	if t.description != "" {
		d += " " + t.description
	}
	return d
}

// Parameters implements Tool.
func (t *HandoffTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"task": map[string]any{"type": "string", "description": "What the agent should do"},
		},
	}
}

// Call implements Tool.
func (t *HandoffTool) Call(context.Context, map[string]any) (any, error) {
	return map[string]any{"transferred": true, "agent": t.agent}, nil
}

// HandoffTarget returns the agent named by a transfer_to_<agent> tool name.
func HandoffTarget(toolName string) (string, bool) {
	if !strings.HasPrefix(toolName, HandoffPrefix) {
		return "", false
	}
	agent := strings.TrimPrefix(toolName, HandoffPrefix)
	return agent, agent != ""
}

// TransferMessage is the acknowledgement recorded for a handoff.
func TransferMessage(agent string) string {
	return "Successfully transferred to " + agent
}

// TransferBackMessage is the acknowledgement recorded when control returns.
func TransferBackMessage(supervisor string) string {
	return "Successfully transferred back to " + supervisor
}
