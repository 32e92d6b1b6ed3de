package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/hupe1980/agentgraph/logging"
	"github.com/hupe1980/agentgraph/registry"
	"github.com/hupe1980/agentgraph/schema"
	"github.com/hupe1980/agentgraph/telemetry"
)

// ResultType tags fallback records.
const ResultType = "function_call_output"

// Result is the outcome of one bound tool call. Output always carries exactly
// the fields declared by the tool's output schema.
type Result struct {
	Output   map[string]any
	CallID   string
	Fallback bool
	Err      error
}

// MarshalJSON renders a successful result as its output record and a
// fallback as {"type": "function_call_output", "call_id": ..., "output": ...}.
func (r Result) MarshalJSON() ([]byte, error) {
	if !r.Fallback {
		return json.Marshal(r.Output)
	}
	return json.Marshal(map[string]any{
		"type":    ResultType,
		"call_id": r.CallID,
		"output":  r.Output,
	})
}

// Options configure a BoundTool.
type Options struct {
	Sink   telemetry.Sink
	Logger logging.Logger
	// Now is the clock used for telemetry timestamps.
	Now func() time.Time
}

// BoundTool wraps a native Func with input coercion, output validation, a
// null fallback and telemetry. It is safe for concurrent use.
type BoundTool struct {
	def    registry.ToolDefinition
	fn     Func
	input  *schema.Descriptor
	output *schema.Descriptor
	opts   Options
}

// Bind compiles the definition's schemas and wraps fn.
func Bind(def registry.ToolDefinition, fn Func, optFns ...func(o *Options)) *BoundTool {
	opts := Options{
		Sink: telemetry.NopSink{},
		Now:  time.Now,
	}
	for _, f := range optFns {
		f(&opts)
	}
	opts.Logger = logging.OrNoOp(opts.Logger)
	if opts.Sink == nil {
		opts.Sink = telemetry.NopSink{}
	}

	return &BoundTool{
		def:    def,
		fn:     fn,
		input:  def.InputDescriptor(),
		output: def.OutputDescriptor(),
		opts:   opts,
	}
}

// Name returns the tool name.
func (t *BoundTool) Name() string { return t.def.Name }

// Description returns the configured description.
func (t *BoundTool) Description() string {
	if t.def.Description != "" {
		return t.def.Description
	}
	return fmt.Sprintf("Tool wrapper for %s", t.def.Name)
}

// Parameters returns the input schema. Nothing is marked required for the
// model because inputs are completed from the agent state before the call.
func (t *BoundTool) Parameters() map[string]any {
	params := t.input.JSONSchema()
	delete(params, "required")
	return params
}

// Definition returns the tool definition the binding was built from.
func (t *BoundTool) Definition() registry.ToolDefinition { return t.def }

// InputDescriptor returns the compiled input schema.
func (t *BoundTool) InputDescriptor() *schema.Descriptor { return t.input }

// OutputDescriptor returns the compiled output schema.
func (t *BoundTool) OutputDescriptor() *schema.Descriptor { return t.output }

// Call implements Tool. It never returns an error; failures are reported
// through the fallback Result.
func (t *BoundTool) Call(ctx context.Context, args map[string]any) (any, error) {
	return t.Invoke(ctx, args, CallID(ctx)), nil
}

// Invoke runs the wrapped function. Input validation problems are logged
// and the call proceeds with nil for the offending fields. Execution
// failures, panics and output mismatches yield the fallback record tagged
// with correlationID, which defaults to "<name>_default_fallback".
func (t *BoundTool) Invoke(ctx context.Context, rawInputs map[string]any, correlationID string) Result {
	if correlationID == "" {
		correlationID = t.def.Name + "_default_fallback"
	}
	start := t.opts.Now()

	inputs, err := t.input.Coerce(rawInputs)
	if err != nil {
		t.opts.Logger.Warn("tool.input.invalid", "tool", t.def.Name, "call_id", correlationID, "error", err)
	}

	res := Result{CallID: correlationID}
	raw, err := t.execute(ctx, inputs)
	if err == nil {
		res.Output, err = t.validateOutput(raw)
	}
	if err != nil {
		res.Output = t.output.Null()
		res.Fallback = true
		res.Err = err
		t.opts.Logger.Error("tool.call.failed", "tool", t.def.Name, "call_id", correlationID, "error", err)
	} else {
		t.opts.Logger.Debug("tool.call.completed", "tool", t.def.Name, "call_id", correlationID)
	}

	end := t.opts.Now()
	ev := telemetry.NewEvent(telemetry.EventTool, t.def.Name, start, end, inputs, res)
	if err := t.opts.Sink.Append(ctx, ev); err != nil {
		t.opts.Logger.Warn("tool.telemetry.failed", "tool", t.def.Name, "error", err)
	}

	return res
}

// execute calls fn converting panics into ToolErrors.
func (t *BoundTool) execute(ctx context.Context, inputs map[string]any) (out any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &ToolError{
				Tool:    t.def.Name,
				Message: fmt.Sprintf("panic: %v", r),
				Code:    CodePanic,
				Details: string(debug.Stack()),
			}
		}
	}()

	if t.fn == nil {
		return nil, NewToolError(t.def.Name, "no implementation bound", CodeExecution)
	}

	out, err = t.fn(ctx, inputs)
	if err != nil {
		if _, ok := err.(*ToolError); ok {
			return nil, err
		}
		return nil, &ToolError{Tool: t.def.Name, Message: err.Error(), Code: CodeExecution, Details: err}
	}
	return out, nil
}

// validateOutput shapes raw into the declared output record.
func (t *BoundTool) validateOutput(raw any) (map[string]any, error) {
	rec, err := asRecord(raw)
	if err != nil {
		return nil, &ToolError{Tool: t.def.Name, Message: err.Error(), Code: CodeValidation}
	}
	out, err := t.output.Coerce(rec)
	if err != nil {
		return nil, &ToolError{Tool: t.def.Name, Message: "output validation failed", Code: CodeValidation, Details: err}
	}
	return out, nil
}

// asRecord converts maps and JSON-object-shaped values into map[string]any.
func asRecord(v any) (map[string]any, error) {
	switch m := v.(type) {
	case map[string]any:
		return m, nil
	case nil:
		return nil, fmt.Errorf("tool returned no result")
	}

	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("tool result is not serializable: %w", err)
	}
	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil || out == nil {
		return nil, fmt.Errorf("tool result must be an object, got %T", v)
	}
	return out, nil
}
