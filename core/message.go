package core

import (
	"encoding/json"
	"strings"

	"github.com/google/uuid"
)

// Conversation roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// Message is one entry of an agent transcript: a role, an optional author
// name (the agent that produced it) and ordered heterogeneous parts.
type Message struct {
	Role  string
	Name  string
	Parts []Part
}

// NewID generates a new unique identifier (dispatch ids, tool call ids).
func NewID() string { return uuid.NewString() }

// NewUserMessage creates a user-authored text message.
func NewUserMessage(text string) Message {
	return Message{Role: RoleUser, Parts: []Part{TextPart{Text: text}}}
}

// NewAssistantMessage creates an assistant text message authored by name.
func NewAssistantMessage(name, text string) Message {
	return Message{Role: RoleAssistant, Name: name, Parts: []Part{TextPart{Text: text}}}
}

// NewFunctionCallMessage creates an assistant message requesting a single tool call.
func NewFunctionCallMessage(name string, fc FunctionCall) Message {
	return Message{Role: RoleAssistant, Name: name, Parts: []Part{FunctionCallPart{FunctionCall: fc}}}
}

// NewFunctionResponseMessage records the result (or error) of a tool call.
// If err is non-nil its message is copied into the response Error field.
func NewFunctionResponseMessage(name, id, functionName string, result any, err error) Message {
	fr := FunctionResponse{ID: id, Name: functionName, Response: result}
	if err != nil {
		fr.Error = err.Error()
	}
	return Message{Role: RoleTool, Name: name, Parts: []Part{FunctionResponsePart{FunctionResponse: fr}}}
}

// Text concatenates all text parts of the message.
func (m Message) Text() string {
	var b strings.Builder
	for _, p := range m.Parts {
		if tp, ok := p.(TextPart); ok {
			b.WriteString(tp.Text)
		}
	}
	return b.String()
}

// FunctionCalls returns the FunctionCall parts preserving their order.
func (m Message) FunctionCalls() []FunctionCall {
	var calls []FunctionCall
	for _, p := range m.Parts {
		if fc, ok := p.(FunctionCallPart); ok {
			calls = append(calls, fc.FunctionCall)
		}
	}
	return calls
}

// FunctionResponses returns the FunctionResponse parts preserving their order.
func (m Message) FunctionResponses() []FunctionResponse {
	var resps []FunctionResponse
	for _, p := range m.Parts {
		if fr, ok := p.(FunctionResponsePart); ok {
			resps = append(resps, fr.FunctionResponse)
		}
	}
	return resps
}

// IsFinalResponse reports whether the message is an assistant turn that
// requests no further tool calls.
func (m Message) IsFinalResponse() bool {
	return m.Role == RoleAssistant && len(m.FunctionCalls()) == 0
}

type messageJSON struct {
	Role    string     `json:"role"`
	Name    string     `json:"name,omitempty"`
	Content string     `json:"content,omitempty"`
	Parts   []partJSON `json:"parts,omitempty"`
}

// MarshalJSON emits role, author, the concatenated text as content and the
// tagged parts list.
func (m Message) MarshalJSON() ([]byte, error) {
	mj := messageJSON{Role: m.Role, Name: m.Name, Content: m.Text()}
	for _, p := range m.Parts {
		mj.Parts = append(mj.Parts, encodePart(p))
	}
	return json.Marshal(mj)
}

// UnmarshalJSON accepts both the tagged parts form and the plain
// {"role": ..., "content": "..."} chat shape.
func (m *Message) UnmarshalJSON(data []byte) error {
	var mj messageJSON
	if err := json.Unmarshal(data, &mj); err != nil {
		return err
	}
	m.Role = mj.Role
	m.Name = mj.Name
	m.Parts = nil
	for _, pj := range mj.Parts {
		if p, ok := decodePart(pj); ok {
			m.Parts = append(m.Parts, p)
		}
	}
	if len(m.Parts) == 0 && mj.Content != "" {
		m.Parts = []Part{TextPart{Text: mj.Content}}
	}
	return nil
}

// LastText returns the text of the last assistant message carrying text.
func LastText(messages []Message) string {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role != RoleAssistant {
			continue
		}
		if t := messages[i].Text(); t != "" {
			return t
		}
	}
	return ""
}
