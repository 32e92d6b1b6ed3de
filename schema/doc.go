// Package schema compiles declarative field specifications into Descriptor
// trees and validates values against them.
//
// A Descriptor is built once per configured schema (tool input, tool output,
// agent state or structured output contract) and reused for every call:
//
//	d := schema.Compile("planning_Input", map[string]any{"user_id": "string", "context": "dict"}, nil)
//	rec, err := d.Coerce(args) // rec always carries exactly d's fields
//
// Type names map onto a closed set of kinds (text, integer, float, flag,
// sequence, record, any). The mapping is total; unknown names become any.
package schema
