package builder

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hupe1980/agentgraph/agent"
	"github.com/hupe1980/agentgraph/core"
	"github.com/hupe1980/agentgraph/internal/util"
	"github.com/hupe1980/agentgraph/logging"
	"github.com/hupe1980/agentgraph/model"
	"github.com/hupe1980/agentgraph/registry"
	"github.com/hupe1980/agentgraph/schema"
	"github.com/hupe1980/agentgraph/telemetry"
	"github.com/hupe1980/agentgraph/tool"
)

// PromptFunction is the function reference of tools answered by a language
// model. The tool's prompt definition is looked up under the tool name.
const PromptFunction = "prompt"

// supervisorRemaps are the dispatch context aliases a supervisor prompt can
// rely on. Source keys are kept.
var supervisorRemaps = [][2]string{
	{core.KeyMessage, core.KeyUserInput},
	{core.KeyIdentifier, core.KeyUserID},
	{core.KeyCustomerID, core.KeyUserID},
}

// Options configures a Factory.
type Options struct {
	// Catalog resolves tool function references. Defaults to tool.Builtins().
	Catalog tool.Catalog
	// Resolver creates model providers from prompt settings.
	Resolver *model.Resolver
	// Sink receives one tool event per bound tool call.
	Sink     telemetry.Sink
	Executor agent.ExecutorConfig
	Logger   logging.Logger
}

// Factory constructs agents from registry definitions. Agents are built per
// dispatch and never cached. A Factory is safe for concurrent use.
type Factory struct {
	source   registry.Source
	catalog  tool.Catalog
	resolver *model.Resolver
	sink     telemetry.Sink
	executor agent.ExecutorConfig
	logger   logging.Logger
}

// New creates a Factory reading definitions from source.
func New(source registry.Source, optFns ...func(o *Options)) *Factory {
	opts := Options{
		Catalog: tool.Builtins(),
		Sink:    telemetry.NopSink{},
		Logger:  logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Resolver == nil {
		opts.Resolver = model.NewResolver()
	}
	if opts.Sink == nil {
		opts.Sink = telemetry.NopSink{}
	}

	return &Factory{
		source:   source,
		catalog:  opts.Catalog,
		resolver: opts.Resolver,
		sink:     opts.Sink,
		executor: opts.Executor,
		logger:   logging.OrNoOp(opts.Logger),
	}
}

// Build constructs the agent for agentID according to its node kind.
func (f *Factory) Build(ctx context.Context, agentID string, dctx core.DispatchContext) (agent.Agent, error) {
	return f.build(ctx, f.source.Current(), agentID, dctx)
}

// BuildLeaf constructs a tool-using leaf agent.
func (f *Factory) BuildLeaf(ctx context.Context, agentID string, dctx core.DispatchContext) (agent.Agent, error) {
	return f.buildLeaf(ctx, f.source.Current(), agentID, dctx)
}

// BuildSupervisor constructs a supervisor and, recursively, its sub-agents.
func (f *Factory) BuildSupervisor(ctx context.Context, agentID string, dctx core.DispatchContext) (agent.Agent, error) {
	return f.buildSupervisor(ctx, f.source.Current(), agentID, dctx)
}

func (f *Factory) build(ctx context.Context, reg *registry.Registry, agentID string, dctx core.DispatchContext) (agent.Agent, error) {
	node, ok := reg.Node(agentID)
	if !ok {
		return nil, &core.UnknownAgentError{Name: agentID}
	}

	switch node.Type {
	case registry.KindLeaf:
		return f.buildLeaf(ctx, reg, agentID, dctx)
	case registry.KindSupervisor:
		return f.buildSupervisor(ctx, reg, agentID, dctx)
	default:
		return nil, &core.UnknownAgentError{Name: agentID}
	}
}

func (f *Factory) buildLeaf(_ context.Context, reg *registry.Registry, agentID string, dctx core.DispatchContext) (agent.Agent, error) {
	node, prompt, err := lookup(reg, agentID, registry.KindLeaf)
	if err != nil {
		return nil, err
	}

	instructions, err := render(reg, node, prompt, dctx.Clone())
	if err != nil {
		return nil, err
	}

	tools, err := f.bindTools(reg, node)
	if err != nil {
		return nil, err
	}

	llm, err := f.provider(node.ID, prompt)
	if err != nil {
		return nil, err
	}

	f.logger.Debug("builder.leaf.built", "agent", node.ID, "tools", len(tools))

	return agent.NewModelAgent(node.ID, llm, func(o *agent.ModelAgentOptions) {
		o.Description = node.Description
		o.Instruction = agent.NewInstructionFromText(instructions)
		o.Tools = tools
		o.StateSchema = StateDescriptor(reg, node)
		o.Executor = f.executor
		o.Logger = f.logger
	}), nil
}

func (f *Factory) buildSupervisor(ctx context.Context, reg *registry.Registry, agentID string, dctx core.DispatchContext) (agent.Agent, error) {
	node, prompt, err := lookup(reg, agentID, registry.KindSupervisor)
	if err != nil {
		return nil, err
	}

	vars := dctx.Remap(supervisorRemaps...)

	instructions, err := render(reg, node, prompt, vars.Clone())
	if err != nil {
		return nil, err
	}

	var contract *schema.Descriptor
	if _, d, ok := reg.AgentOutputSchema(node.ID); ok {
		contract = d
	}

	subs := make([]agent.Agent, 0, len(node.Agents))
	for _, id := range node.Agents {
		sub, err := f.build(ctx, reg, id, vars)
		if err != nil {
			return nil, fmt.Errorf("build sub-agent %s of %s: %w", id, node.ID, err)
		}
		subs = append(subs, sub)
	}

	tools, err := f.bindTools(reg, node)
	if err != nil {
		return nil, err
	}

	llm, err := f.provider(node.ID, prompt)
	if err != nil {
		return nil, err
	}

	f.logger.Debug("builder.supervisor.built", "agent", node.ID, "tools", len(tools), "sub_agents", len(subs))

	return agent.NewSupervisor(node.ID, llm, func(o *agent.SupervisorOptions) {
		o.Description = node.Description
		o.Instruction = agent.NewInstructionFromText(instructions)
		o.Tools = tools
		o.Agents = subs
		o.Contract = contract
		o.Values = vars
		o.ParallelToolCalls = true
		o.Executor = f.executor
		o.Logger = f.logger
	}), nil
}

// lookup fetches the node and prompt of agentID and checks the node kind.
func lookup(reg *registry.Registry, agentID string, kind registry.NodeKind) (registry.NodeDefinition, registry.PromptDefinition, error) {
	node, ok := reg.Node(agentID)
	if !ok || node.Type != kind {
		return registry.NodeDefinition{}, registry.PromptDefinition{}, core.NewConfigError("node", agentID, "is not a valid %s", kind)
	}

	prompt, ok := reg.Prompt(agentID)
	if !ok {
		return registry.NodeDefinition{}, registry.PromptDefinition{}, core.NewConfigError("prompt", agentID, "no prompt configured")
	}

	return node, prompt, nil
}

// render injects the output schemas into vars and renders the prompt.
func render(reg *registry.Registry, node registry.NodeDefinition, prompt registry.PromptDefinition, vars core.DispatchContext) (string, error) {
	vars[core.KeyExpectedOutputSchema] = ExpectedOutputSchema(reg, node.Tools)
	vars[core.KeyAgentOutputSchema] = AgentOutputSchema(reg, node.ID)

	text, err := util.RenderTemplate(prompt.Template(), vars)
	if err != nil {
		return "", core.NewConfigError("template", node.ID, "%w", err)
	}
	return text, nil
}

// bindTools resolves the node's tool names. Names missing from the registry
// are skipped with a warning; a registered tool whose function cannot be
// resolved is an error.
func (f *Factory) bindTools(reg *registry.Registry, node registry.NodeDefinition) ([]tool.Tool, error) {
	tools := make([]tool.Tool, 0, len(node.Tools))
	for _, name := range node.Tools {
		def, ok := reg.Tool(name)
		if !ok {
			f.logger.Warn("builder.tool.unknown", "agent", node.ID, "tool", name)
			continue
		}

		fn, err := f.function(reg, def)
		if err != nil {
			return nil, err
		}

		tools = append(tools, tool.Bind(def, fn, func(o *tool.Options) {
			o.Sink = f.sink
			o.Logger = f.logger
		}))
	}
	return tools, nil
}

func (f *Factory) function(reg *registry.Registry, def registry.ToolDefinition) (tool.Func, error) {
	if def.Function != PromptFunction {
		return f.catalog.Lookup(def.Function)
	}

	prompt, ok := reg.Prompt(def.Name)
	if !ok {
		return nil, core.NewConfigError("tool", def.Name, "prompt tool has no prompt configured")
	}
	llm, err := f.provider(def.Name, prompt)
	if err != nil {
		return nil, err
	}
	return tool.PromptFunc(llm, prompt.Template(), def.OutputSchema.Structure), nil
}

func (f *Factory) provider(id string, prompt registry.PromptDefinition) (model.Provider, error) {
	temperature := prompt.TemperatureOrDefault()
	llm, err := f.resolver.Resolve(model.Settings{
		Provider:    prompt.Provider,
		Model:       prompt.ModelName(),
		Temperature: &temperature,
		TopP:        prompt.TopP,
		MaxTokens:   prompt.MaxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("model for %s: %w", id, err)
	}
	return llm, nil
}

// ExpectedOutputSchema renders the output structures of the named tools,
// keyed by tool name, as indented JSON.
func ExpectedOutputSchema(reg *registry.Registry, toolNames []string) string {
	return indentJSON(reg.OutputStructures(toolNames))
}

// AgentOutputSchema renders a node's own declared output structure, keyed by
// node id, as indented JSON. Nodes without one render as {}.
func AgentOutputSchema(reg *registry.Registry, agentID string) string {
	out := map[string]any{}
	if structure, _, ok := reg.AgentOutputSchema(agentID); ok {
		if structure == nil {
			structure = map[string]any{}
		}
		out[agentID] = structure
	}
	return indentJSON(out)
}

// StateDescriptor describes the state a leaf agent expects: the transcript,
// the step budget and every input field of its tools.
func StateDescriptor(reg *registry.Registry, node registry.NodeDefinition) *schema.Descriptor {
	d := schema.Compile(node.ID+"_State", map[string]any{
		"messages":        "sequence",
		"remaining_steps": "integer",
	}, []string{"messages"})

	for _, name := range node.Tools {
		if def, ok := reg.Tool(name); ok {
			d = d.Merge(def.InputDescriptor())
		}
	}
	return d
}

func indentJSON(v any) string {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "{}"
	}
	return string(data)
}
