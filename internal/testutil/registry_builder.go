package testutil

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hupe1980/agentgraph/registry"
)

// RegistryBuilder provides a fluent helper for constructing registries in
// tests. Example:
//
//	reg := NewRegistryBuilder().
//		Tool("planning", "builtin.planning", []string{"user_id", "context"}, map[string]any{"output": "string"}).
//		Leaf("planner", "planning").
//		Prompt("planner", "Plan for {{ user_id }}").
//		MustBuild(t)
type RegistryBuilder struct {
	tools   []registry.ToolDefinition
	nodes   []registry.NodeDefinition
	prompts map[string]registry.PromptDefinition
}

// NewRegistryBuilder creates an empty builder.
func NewRegistryBuilder() *RegistryBuilder {
	return &RegistryBuilder{prompts: map[string]registry.PromptDefinition{}}
}

// Tool adds a tool definition (chainable). required may be empty, meaning
// every output field is required.
func (b *RegistryBuilder) Tool(name, function string, input any, output map[string]any, required ...string) *RegistryBuilder {
	def := registry.ToolDefinition{
		Name:         name,
		Function:     function,
		InputSchema:  input,
		OutputSchema: registry.OutputSchema{Structure: output},
	}
	if len(required) > 0 {
		def.OutputSchema.Required = required
	}
	b.tools = append(b.tools, def)
	return b
}

// Leaf adds a leaf node using the given tools (chainable).
func (b *RegistryBuilder) Leaf(id string, tools ...string) *RegistryBuilder {
	b.nodes = append(b.nodes, registry.NodeDefinition{ID: id, Type: registry.KindLeaf, Tools: tools})
	return b
}

// Supervisor adds a supervisor node delegating to agents (chainable).
func (b *RegistryBuilder) Supervisor(id string, agents []string, tools ...string) *RegistryBuilder {
	b.nodes = append(b.nodes, registry.NodeDefinition{ID: id, Type: registry.KindSupervisor, Agents: agents, Tools: tools})
	return b
}

// Node adds an arbitrary node definition (chainable).
func (b *RegistryBuilder) Node(n registry.NodeDefinition) *RegistryBuilder {
	b.nodes = append(b.nodes, n)
	return b
}

// Describe sets the description of the most recently added node (chainable).
func (b *RegistryBuilder) Describe(desc string) *RegistryBuilder {
	if n := len(b.nodes); n > 0 {
		b.nodes[n-1].Description = desc
	}
	return b
}

// Output declares the output schema of the most recently added node
// (chainable).
func (b *RegistryBuilder) Output(structure map[string]any, required ...string) *RegistryBuilder {
	if n := len(b.nodes); n > 0 {
		b.nodes[n-1].OutputSchema = &registry.OutputSchema{Structure: structure, Required: required}
	}
	return b
}

// Prompt sets the prompt text of id (chainable).
func (b *RegistryBuilder) Prompt(id, text string) *RegistryBuilder {
	p := b.prompts[id]
	p.Prompt = text
	b.prompts[id] = p
	return b
}

// PromptDef sets the full prompt definition of id (chainable).
func (b *RegistryBuilder) PromptDef(id string, p registry.PromptDefinition) *RegistryBuilder {
	b.prompts[id] = p
	return b
}

// Build validates and returns the registry.
func (b *RegistryBuilder) Build(optFns ...func(o *registry.Options)) (*registry.Registry, error) {
	return registry.New(b.tools, b.nodes, b.prompts, optFns...)
}

// MustBuild is Build failing the test on error.
func (b *RegistryBuilder) MustBuild(t testing.TB) *registry.Registry {
	t.Helper()
	r, err := b.Build()
	require.NoError(t, err)
	return r
}
