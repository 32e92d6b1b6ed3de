package core

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestMessage_ConstructorsAndHelpers(t *testing.T) {
	user := NewUserMessage("hi")
	if user.Role != RoleUser || user.Text() != "hi" {
		t.Fatalf("NewUserMessage malformed: %+v", user)
	}

	call := NewFunctionCallMessage("planner", FunctionCall{ID: "c1", Name: "planning", Arguments: `{"user_id":"2"}`})
	calls := call.FunctionCalls()
	if len(calls) != 1 || calls[0].Name != "planning" || calls[0].ID != "c1" {
		t.Fatalf("FunctionCalls extraction failed: %+v", calls)
	}
	if call.IsFinalResponse() {
		t.Error("message with function call should not be final")
	}

	ok := NewFunctionResponseMessage("planner", "c1", "planning", map[string]any{"output": "x"}, nil)
	resps := ok.FunctionResponses()
	if len(resps) != 1 || resps[0].Error != "" || resps[0].ID != "c1" {
		t.Fatalf("function response extraction failed: %+v", resps)
	}

	failed := NewFunctionResponseMessage("planner", "c2", "planning", nil, errors.New("boom"))
	if failed.FunctionResponses()[0].Error != "boom" {
		t.Fatalf("expected error text in function response: %+v", failed)
	}

	if !NewAssistantMessage("planner", "done").IsFinalResponse() {
		t.Error("plain assistant text should be final")
	}
}

func TestMessage_JSONRoundTrip(t *testing.T) {
	in := Message{Role: RoleAssistant, Name: "sup", Parts: []Part{
		TextPart{Text: "thinking"},
		FunctionCallPart{FunctionCall: FunctionCall{ID: "1", Name: "transfer_to_a"}},
	}}

	data, err := json.Marshal(in)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var out Message
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if out.Name != "sup" || len(out.Parts) != 2 || out.FunctionCalls()[0].Name != "transfer_to_a" {
		t.Fatalf("round trip mismatch: %+v", out)
	}
}

func TestMessage_UnmarshalPlainChatShape(t *testing.T) {
	var m Message
	if err := json.Unmarshal([]byte(`{"role":"user","content":"hello"}`), &m); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if m.Role != RoleUser || m.Text() != "hello" {
		t.Fatalf("unexpected message: %+v", m)
	}
}

func TestLastText(t *testing.T) {
	msgs := []Message{
		NewUserMessage("q"),
		NewAssistantMessage("a", "first"),
		NewFunctionCallMessage("a", FunctionCall{Name: "x"}),
		NewAssistantMessage("a", "second"),
		NewFunctionResponseMessage("a", "1", "x", nil, nil),
	}
	if got := LastText(msgs); got != "second" {
		t.Fatalf("expected 'second', got %q", got)
	}
	if got := LastText(nil); got != "" {
		t.Fatalf("expected empty, got %q", got)
	}
}
