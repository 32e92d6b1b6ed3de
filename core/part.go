package core

// Part represents a polymorphic segment of role-based message content. Concrete
// part types implement the unexported isPart marker enabling a closed set.
type Part interface{ isPart() }

// TextPart is a plain text content segment.
type TextPart struct {
	Text string // Plain UTF-8 text
}

// isPart implements the Part interface for TextPart.
func (TextPart) isPart() {}

// DataPart is a structured data segment (e.g. a validated structured response).
type DataPart struct {
	Data map[string]any
}

// isPart implements the Part interface for DataPart.
func (DataPart) isPart() {}

// FunctionCall describes a tool/function invocation request.
type FunctionCall struct {
	ID        string `json:"id,omitempty"`        // Correlation id assigned by the model
	Name      string `json:"name"`                // Tool / function name
	Arguments string `json:"arguments,omitempty"` // Serialized JSON argument payload
}

// FunctionCallPart wraps a FunctionCall as a content part.
type FunctionCallPart struct {
	FunctionCall FunctionCall
}

// isPart implements the Part interface for FunctionCallPart.
func (FunctionCallPart) isPart() {}

// FunctionResponse describes the outcome of a function call.
type FunctionResponse struct {
	ID       string `json:"id,omitempty"`       // Matches originating FunctionCall ID
	Name     string `json:"name"`               // Function name
	Response any    `json:"response,omitempty"` // Result payload (any JSON shape)
	Error    string `json:"error,omitempty"`    // Populated on failure
}

// FunctionResponsePart wraps a FunctionResponse as a content part.
type FunctionResponsePart struct {
	FunctionResponse FunctionResponse
}

// isPart implements the Part interface for FunctionResponsePart.
func (FunctionResponsePart) isPart() {}

// partJSON is the tagged wire shape used when parts are serialized for
// telemetry and HTTP responses.
type partJSON struct {
	Type             string            `json:"type"`
	Text             string            `json:"text,omitempty"`
	Data             map[string]any    `json:"data,omitempty"`
	FunctionCall     *FunctionCall     `json:"function_call,omitempty"`
	FunctionResponse *FunctionResponse `json:"function_response,omitempty"`
}

func encodePart(p Part) partJSON {
	switch v := p.(type) {
	case TextPart:
		return partJSON{Type: "text", Text: v.Text}
	case DataPart:
		return partJSON{Type: "data", Data: v.Data}
	case FunctionCallPart:
		fc := v.FunctionCall
		return partJSON{Type: "function_call", FunctionCall: &fc}
	case FunctionResponsePart:
		fr := v.FunctionResponse
		return partJSON{Type: "function_response", FunctionResponse: &fr}
	default:
		return partJSON{Type: "unknown"}
	}
}

func decodePart(pj partJSON) (Part, bool) {
	switch pj.Type {
	case "text":
		return TextPart{Text: pj.Text}, true
	case "data":
		return DataPart{Data: pj.Data}, true
	case "function_call":
		if pj.FunctionCall == nil {
			return nil, false
		}
		return FunctionCallPart{FunctionCall: *pj.FunctionCall}, true
	case "function_response":
		if pj.FunctionResponse == nil {
			return nil, false
		}
		return FunctionResponsePart{FunctionResponse: *pj.FunctionResponse}, true
	default:
		return nil, false
	}
}
