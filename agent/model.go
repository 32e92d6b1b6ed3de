package agent

import (
	"context"
	"errors"
	"fmt"

	"github.com/hupe1980/agentgraph/core"
	"github.com/hupe1980/agentgraph/logging"
	"github.com/hupe1980/agentgraph/model"
	"github.com/hupe1980/agentgraph/schema"
	"github.com/hupe1980/agentgraph/tool"
)

// StepsExhaustedReply is the final answer recorded when the model still asks
// for tools after the step budget is spent.
const StepsExhaustedReply = "Sorry, need more steps to process this request."

// ModelAgentOptions configures a ModelAgent instance.
//
// Use functional options with NewModelAgent to override defaults.
type ModelAgentOptions struct {
	Description string
	Instruction Instruction
	Tools       []tool.Tool
	// StateSchema describes the state the agent expects; mismatches are
	// logged, not fatal.
	StateSchema *schema.Descriptor
	Executor    ExecutorConfig
	Logger      logging.Logger
}

// ModelAgent is a leaf agent running a ReAct loop: call the model, execute
// the requested tools, feed the results back, until the model answers
// without tool calls or the step budget runs out.
type ModelAgent struct {
	BaseAgent
	llm         model.Provider
	instruction Instruction
	tools       []tool.Tool
	toolIndex   map[string]tool.Tool
	stateSchema *schema.Descriptor
	executor    *toolExecutor
	logger      logging.Logger
}

// NewModelAgent creates a new model-based agent.
func NewModelAgent(name string, llm model.Provider, optFns ...func(o *ModelAgentOptions)) *ModelAgent {
	opts := ModelAgentOptions{
		Instruction: NewInstructionFromText(fmt.Sprintf("You are %s, a helpful AI assistant.", name)),
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	logger := logging.OrNoOp(opts.Logger)

	a := &ModelAgent{
		BaseAgent:   NewBaseAgent(name),
		llm:         llm,
		instruction: opts.Instruction,
		tools:       opts.Tools,
		toolIndex:   make(map[string]tool.Tool, len(opts.Tools)),
		stateSchema: opts.StateSchema,
		executor:    newToolExecutor(opts.Executor, logger),
		logger:      logger,
	}
	a.SetDescription(opts.Description)
	for _, t := range opts.Tools {
		a.toolIndex[t.Name()] = t
	}
	return a
}

// Provider returns the language model backend.
func (a *ModelAgent) Provider() model.Provider { return a.llm }

// Tools returns the tools the agent may call.
func (a *ModelAgent) Tools() []tool.Tool { return append([]tool.Tool(nil), a.tools...) }

// StateSchema returns the compiled state descriptor (may be nil).
func (a *ModelAgent) StateSchema() *schema.Descriptor { return a.stateSchema }

// ResolveInstructions produces the system prompt.
func (a *ModelAgent) ResolveInstructions(ctx context.Context, state State) (string, error) {
	return a.instruction.Resolve(ctx, state)
}

// Invoke implements Agent.
func (a *ModelAgent) Invoke(ctx context.Context, state State) (*Output, error) {
	a.logger.Debug("agent.run.start", "agent", a.Name(), "messages", len(state.Messages))

	if a.stateSchema != nil {
		if err := a.stateSchema.Validate(state.Map()); err != nil {
			a.logger.Warn("agent.state.invalid", "agent", a.Name(), "error", err)
		}
	}

	instructions, err := a.ResolveInstructions(ctx, state)
	if err != nil {
		return nil, fmt.Errorf("resolve instructions for %s: %w", a.Name(), err)
	}

	messages, err := runLoop(ctx, loopConfig{
		name:         a.Name(),
		llm:          a.llm,
		instructions: instructions,
		tools:        a.tools,
		budget:       core.NewStepBudget(state.RemainingSteps),
		logger:       a.logger,
		handleCalls: func(ctx context.Context, calls []core.FunctionCall, _ []core.Message) ([]core.Message, error) {
			return a.executor.Execute(ctx, a.Name(), a.toolIndex, state.Values, calls), nil
		},
	}, state.Messages)
	if err != nil {
		return nil, err
	}

	a.logger.Debug("agent.run.complete", "agent", a.Name(), "messages", len(messages))
	return &Output{Messages: messages}, nil
}

// loopConfig parameterizes the shared reasoning loop.
type loopConfig struct {
	name              string
	llm               model.Provider
	instructions      string
	tools             []tool.Tool
	parallelToolCalls bool
	budget            *core.StepBudget
	logger            logging.Logger
	// handleCalls executes one step's calls given the transcript so far and
	// returns the messages to append.
	handleCalls func(ctx context.Context, calls []core.FunctionCall, transcript []core.Message) ([]core.Message, error)
}

// runLoop drives the model until it answers without tool calls. Each model
// call takes one step; a tool request that would need a step beyond the
// budget is replaced by StepsExhaustedReply.
func runLoop(ctx context.Context, cfg loopConfig, input []core.Message) ([]core.Message, error) {
	messages := append([]core.Message(nil), input...)
	defs := toolDefinitions(cfg.tools)

	for {
		if err := cfg.budget.Take(); err != nil {
			messages = append(messages, core.NewAssistantMessage(cfg.name, StepsExhaustedReply))
			return messages, nil
		}

		resp, err := cfg.llm.Complete(ctx, model.Request{
			Instructions:      cfg.instructions,
			Messages:          messages,
			Tools:             defs,
			ParallelToolCalls: cfg.parallelToolCalls && len(defs) > 1,
		})
		if err != nil {
			return nil, asBackendError(cfg.llm, err)
		}

		msg := resp.Message
		msg.Role = core.RoleAssistant
		msg.Name = cfg.name

		calls := msg.FunctionCalls()
		if len(calls) == 0 {
			messages = append(messages, msg)
			return messages, nil
		}

		if cfg.budget.Remaining() == 0 {
			cfg.logger.Warn("agent.steps.exhausted", "agent", cfg.name, "pending_calls", len(calls))
			messages = append(messages, core.NewAssistantMessage(cfg.name, StepsExhaustedReply))
			return messages, nil
		}

		messages = append(messages, msg)
		responses, err := cfg.handleCalls(ctx, calls, messages)
		if err != nil {
			return nil, err
		}
		messages = append(messages, responses...)
	}
}

// asBackendError tags provider failures with core.ErrBackend.
func asBackendError(p model.Provider, err error) error {
	if errors.Is(err, core.ErrBackend) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return &core.BackendError{Provider: p.Info().Provider, Err: err}
}
