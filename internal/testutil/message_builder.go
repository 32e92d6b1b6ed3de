package testutil

import "github.com/hupe1980/agentgraph/core"

// MessageBuilder provides a fluent helper for constructing transcript
// messages in tests. Example:
//
//	msg := NewMessageBuilder().Name("coach").AssistantText("hello").Build()
type MessageBuilder struct {
	role  string
	name  string
	parts []core.Part
}

// NewMessageBuilder creates a builder with role assistant.
func NewMessageBuilder() *MessageBuilder { return &MessageBuilder{role: core.RoleAssistant} }

// Name sets the author name (chainable).
func (b *MessageBuilder) Name(n string) *MessageBuilder { b.name = n; return b }

// UserText appends a text part and sets role to user (chainable).
func (b *MessageBuilder) UserText(t string) *MessageBuilder {
	b.role = core.RoleUser
	b.parts = append(b.parts, core.TextPart{Text: t})
	return b
}

// AssistantText appends a text part and sets role to assistant (chainable).
func (b *MessageBuilder) AssistantText(t string) *MessageBuilder {
	b.role = core.RoleAssistant
	b.parts = append(b.parts, core.TextPart{Text: t})
	return b
}

// Data appends a structured data part (chainable).
func (b *MessageBuilder) Data(d map[string]any) *MessageBuilder {
	b.parts = append(b.parts, core.DataPart{Data: d})
	return b
}

// FunctionCall adds a function call part (chainable).
func (b *MessageBuilder) FunctionCall(id, name, args string) *MessageBuilder {
	b.role = core.RoleAssistant
	b.parts = append(b.parts, core.FunctionCallPart{FunctionCall: core.FunctionCall{ID: id, Name: name, Arguments: args}})
	return b
}

// FunctionResponse adds a function response part and sets role to tool
// (chainable).
func (b *MessageBuilder) FunctionResponse(id, name string, result any, err error) *MessageBuilder {
	fr := core.FunctionResponse{ID: id, Name: name, Response: result}
	if err != nil {
		fr.Error = err.Error()
	}
	b.role = core.RoleTool
	b.parts = append(b.parts, core.FunctionResponsePart{FunctionResponse: fr})
	return b
}

// Build constructs the message.
func (b *MessageBuilder) Build() core.Message {
	return core.Message{Role: b.role, Name: b.name, Parts: append([]core.Part(nil), b.parts...)}
}
