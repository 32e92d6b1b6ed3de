package core

import (
	"fmt"
	"maps"
)

// Well-known dispatch context keys.
const (
	KeyMessage              = "message"
	KeyIdentifier           = "identifier"
	KeyUserInput            = "user_input"
	KeyUserID               = "user_id"
	KeyCustomerID           = "customer_id"
	KeyExpectedOutputSchema = "expected_output_schema"
	KeyAgentOutputSchema    = "agent_output_schema"
)

// DispatchContext is the free-form key/value bag accompanying a dispatch. It
// supplies template variables and tool inputs. Builders never mutate the
// caller's map; they work on clones.
type DispatchContext map[string]any

// Clone returns a shallow copy. A nil receiver yields an empty context.
func (c DispatchContext) Clone() DispatchContext {
	if c == nil {
		return DispatchContext{}
	}
	return maps.Clone(c)
}

// With returns a clone with key set to value.
func (c DispatchContext) With(key string, value any) DispatchContext {
	nc := c.Clone()
	nc[key] = value
	return nc
}

// Remap copies the value of each source key to its destination key when the
// source is present. Source keys are preserved.
func (c DispatchContext) Remap(pairs ...[2]string) DispatchContext {
	nc := c.Clone()
	for _, p := range pairs {
		if v, ok := c[p[0]]; ok {
			nc[p[1]] = v
		}
	}
	return nc
}

// String returns the value at key rendered as text, or "" when absent or nil.
func (c DispatchContext) String(key string) string {
	v, ok := c[key]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}
