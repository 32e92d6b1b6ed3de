package registry

import (
	"strings"

	"github.com/hupe1980/agentgraph/schema"
)

// DefaultPrompt is used when a prompt definition carries no template text.
const DefaultPrompt = "You are a helpful assistant."

// DefaultModel is used when a prompt definition names no model.
const DefaultModel = "gpt-4o-mini"

// DefaultTemperature is used when a prompt definition sets no temperature.
const DefaultTemperature = 0.3

// OutputSchema declares a tool's result structure and its required fields.
// A nil Required list means every structure field is required.
type OutputSchema struct {
	Structure map[string]any `json:"structure" yaml:"structure"`
	Required  []string       `json:"required,omitempty" yaml:"required,omitempty"`
}

// ToolDefinition describes a native function exposed to agents.
type ToolDefinition struct {
	Name         string       `json:"name" yaml:"name"`
	Function     string       `json:"function" yaml:"function"`
	Description  string       `json:"description,omitempty" yaml:"description,omitempty"`
	InputSchema  any          `json:"input_schema,omitempty" yaml:"input_schema,omitempty"`
	OutputSchema OutputSchema `json:"output_schema" yaml:"output_schema"`
}

// InputDescriptor compiles the input schema; every input field is required.
func (t ToolDefinition) InputDescriptor() *schema.Descriptor {
	return schema.Compile(t.Name+"_Input", t.InputSchema, nil)
}

// OutputDescriptor compiles the output structure and its required list.
func (t ToolDefinition) OutputDescriptor() *schema.Descriptor {
	return schema.CompileOutput(t.Name+"_Output", t.OutputSchema.Structure, t.OutputSchema.Required)
}

// NodeKind classifies a node.
type NodeKind string

const (
	// KindLeaf is a tool-using agent that does not delegate.
	KindLeaf NodeKind = "react_agent"
	// KindSupervisor composes tools and delegates to sub-agents.
	KindSupervisor NodeKind = "supervisor"
)

// normalizeKind folds accepted aliases onto the canonical kinds.
func normalizeKind(k NodeKind) NodeKind {
	switch strings.ToLower(string(k)) {
	case "react_agent", "leaf", "react":
		return KindLeaf
	case "supervisor":
		return KindSupervisor
	default:
		return k
	}
}

// Dispatchable reports whether nodes of this kind can be built and invoked.
func (k NodeKind) Dispatchable() bool {
	return k == KindLeaf || k == KindSupervisor
}

// NodeDefinition describes one agent of the graph.
type NodeDefinition struct {
	ID           string        `json:"id" yaml:"id"`
	Type         NodeKind      `json:"type" yaml:"type"`
	Description  string        `json:"description,omitempty" yaml:"description,omitempty"`
	Tools        []string      `json:"tools,omitempty" yaml:"tools,omitempty"`
	Agents       []string      `json:"agents,omitempty" yaml:"agents,omitempty"`
	OutputSchema *OutputSchema `json:"output_schema,omitempty" yaml:"output_schema,omitempty"`
}

// PromptDefinition configures the model and instruction template of a node.
type PromptDefinition struct {
	Prompt        string   `json:"prompt,omitempty" yaml:"prompt,omitempty"`
	InputTemplate string   `json:"input_template,omitempty" yaml:"input_template,omitempty"`
	Provider      string   `json:"provider,omitempty" yaml:"provider,omitempty"`
	Model         string   `json:"model,omitempty" yaml:"model,omitempty"`
	Temperature   *float64 `json:"temperature,omitempty" yaml:"temperature,omitempty"`
	TopP          *float64 `json:"top_p,omitempty" yaml:"top_p,omitempty"`
	MaxTokens     int64    `json:"max_tokens,omitempty" yaml:"max_tokens,omitempty"`
}

// Template returns the prompt text, falling back to the input template and
// then to DefaultPrompt.
func (p PromptDefinition) Template() string {
	if p.Prompt != "" {
		return p.Prompt
	}
	if p.InputTemplate != "" {
		return p.InputTemplate
	}
	return DefaultPrompt
}

// ModelName returns the configured model or DefaultModel.
func (p PromptDefinition) ModelName() string {
	if p.Model == "" {
		return DefaultModel
	}
	return p.Model
}

// TemperatureOrDefault returns the configured temperature or DefaultTemperature.
func (p PromptDefinition) TemperatureOrDefault() float64 {
	if p.Temperature == nil {
		return DefaultTemperature
	}
	return *p.Temperature
}
