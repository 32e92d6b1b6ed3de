// Package tool binds native Go functions to declarative tool definitions.
// A bound tool coerces its inputs, validates its outputs and degrades every
// failure into a null-valued fallback record, emitting one telemetry event
// per call.
package tool

import (
	"context"
	"fmt"
	"sort"

	"github.com/hupe1980/agentgraph/core"
)

// Tool is a capability an agent can call.
type Tool interface {
	// Name returns the unique identifier for this tool.
	Name() string

	// Description returns a human-readable description of what this tool does.
	// It is shown to the model.
	Description() string

	// Parameters returns a JSON schema describing the accepted arguments.
	Parameters() map[string]any

	// Call executes the tool. The function call id, when known, travels in
	// ctx (see WithCallID).
	Call(ctx context.Context, args map[string]any) (any, error)
}

// Func is a native tool implementation. It receives the coerced input record
// and returns a record (a map or any JSON-object-shaped value).
type Func func(ctx context.Context, inputs map[string]any) (any, error)

// Catalog maps function references (the "function" field of a tool
// definition) to native implementations.
type Catalog map[string]Func

// Lookup returns the function registered under ref.
func (c Catalog) Lookup(ref string) (Func, error) {
	fn, ok := c[ref]
	if !ok || fn == nil {
		return nil, core.NewConfigError("tool", ref, "function reference not found in catalog")
	}
	return fn, nil
}

// Refs returns the registered references, sorted.
func (c Catalog) Refs() []string {
	refs := make([]string, 0, len(c))
	for r := range c {
		refs = append(refs, r)
	}
	sort.Strings(refs)
	return refs
}

// Merge returns a new catalog holding c and every entry of others; later
// entries win.
func (c Catalog) Merge(others ...Catalog) Catalog {
	out := make(Catalog, len(c))
	for k, v := range c {
		out[k] = v
	}
	for _, o := range others {
		for k, v := range o {
			out[k] = v
		}
	}
	return out
}

// ToolError represents errors that occur during tool execution.
type ToolError struct {
	Tool    string `json:"tool"`              // Name of the tool that failed
	Message string `json:"message"`           // Error message
	Code    string `json:"code"`              // Error code for categorization
	Details any    `json:"details,omitempty"` // Additional error details
}

// Error codes used by ToolError.
const (
	CodeExecution  = "EXECUTION_ERROR"
	CodePanic      = "PANIC"
	CodeValidation = "VALIDATION_ERROR"
)

func (e *ToolError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("tool error [%s] in %s: %s", e.Code, e.Tool, e.Message)
	}
	return fmt.Sprintf("tool error in %s: %s", e.Tool, e.Message)
}

// Unwrap exposes wrapped validation errors.
func (e *ToolError) Unwrap() error {
	if err, ok := e.Details.(error); ok {
		return err
	}
	return nil
}

// NewToolError creates a new ToolError with the specified details.
func NewToolError(tool, message, code string) *ToolError {
	return &ToolError{
		Tool:    tool,
		Message: message,
		Code:    code,
	}
}

type callIDKey struct{}

// WithCallID attaches the model's function call id to ctx.
func WithCallID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, callIDKey{}, id)
}

// CallID returns the function call id carried by ctx, if any.
func CallID(ctx context.Context) string {
	id, _ := ctx.Value(callIDKey{}).(string)
	return id
}
