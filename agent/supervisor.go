package agent

import (
	"context"
	"fmt"
	"maps"
	"sync"

	"github.com/hupe1980/agentgraph/core"
	"github.com/hupe1980/agentgraph/internal/util"
	"github.com/hupe1980/agentgraph/logging"
	"github.com/hupe1980/agentgraph/model"
	"github.com/hupe1980/agentgraph/schema"
	"github.com/hupe1980/agentgraph/tool"
)

// SupervisorOptions configures a Supervisor.
type SupervisorOptions struct {
	Description string
	Instruction Instruction
	Tools       []tool.Tool
	Agents      []Agent
	// Contract is the structured output the final answer must satisfy. When
	// nil no structured response is requested.
	Contract *schema.Descriptor
	// Values are merged over the state values of every invocation, so tools
	// and sub-agents see the same variables the prompt was rendered with.
	Values map[string]any
	// ParallelToolCalls lets the model request several tools per step.
	ParallelToolCalls bool
	Executor          ExecutorConfig
	Logger            logging.Logger
}

// Supervisor is a composite agent. Its model may call its own tools (run
// concurrently within a step) or hand the conversation to one of its
// sub-agents through transfer_to_<agent> tools. At most one delegation runs
// per step; each is recorded as a handoff pair in both directions.
type Supervisor struct {
	BaseAgent
	llm         model.Provider
	instruction Instruction
	tools       []tool.Tool
	toolIndex   map[string]tool.Tool
	contract    *schema.Descriptor
	values      map[string]any
	parallel    bool
	executor    *toolExecutor
	logger      logging.Logger
	handoffMu   sync.Mutex
}

// NewSupervisor creates a supervisor.
func NewSupervisor(name string, llm model.Provider, optFns ...func(o *SupervisorOptions)) *Supervisor {
	opts := SupervisorOptions{
		Instruction:       NewInstructionFromText(fmt.Sprintf("You are %s, a supervisor coordinating other agents.", name)),
		ParallelToolCalls: true,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	logger := logging.OrNoOp(opts.Logger)

	s := &Supervisor{
		BaseAgent:   NewBaseAgent(name),
		llm:         llm,
		instruction: opts.Instruction,
		tools:       opts.Tools,
		toolIndex:   make(map[string]tool.Tool, len(opts.Tools)),
		contract:    opts.Contract,
		values:      maps.Clone(opts.Values),
		parallel:    opts.ParallelToolCalls,
		executor:    newToolExecutor(opts.Executor, logger),
		logger:      logger,
	}
	s.SetDescription(opts.Description)
	s.SetSubAgents(opts.Agents...)
	for _, t := range opts.Tools {
		s.toolIndex[t.Name()] = t
	}
	return s
}

// Provider returns the language model backend.
func (s *Supervisor) Provider() model.Provider { return s.llm }

// Tools returns the supervisor's own tools (handoff tools excluded).
func (s *Supervisor) Tools() []tool.Tool { return append([]tool.Tool(nil), s.tools...) }

// Contract returns the structured output contract (may be nil).
func (s *Supervisor) Contract() *schema.Descriptor { return s.contract }

// handoffTools builds one transfer_to_<agent> tool per sub-agent.
func (s *Supervisor) handoffTools() []tool.Tool {
	subs := s.SubAgents()
	out := make([]tool.Tool, 0, len(subs))
	for _, sub := range subs {
		out = append(out, tool.NewHandoffTool(sub.Name(), sub.Description()))
	}
	return out
}

// Invoke implements Agent.
func (s *Supervisor) Invoke(ctx context.Context, state State) (*Output, error) {
	s.logger.Debug("agent.run.start", "agent", s.Name(), "sub_agents", len(s.SubAgents()))

	if len(s.values) > 0 {
		state = state.Clone()
		if state.Values == nil {
			state.Values = make(map[string]any, len(s.values))
		}
		maps.Copy(state.Values, s.values)
	}

	instructions, err := s.instruction.Resolve(ctx, state)
	if err != nil {
		return nil, fmt.Errorf("resolve instructions for %s: %w", s.Name(), err)
	}

	allTools := append(s.Tools(), s.handoffTools()...)

	messages, err := runLoop(ctx, loopConfig{
		name:              s.Name(),
		llm:               s.llm,
		instructions:      instructions,
		tools:             allTools,
		parallelToolCalls: s.parallel,
		budget:            core.NewStepBudget(state.RemainingSteps),
		logger:            s.logger,
		handleCalls: func(ctx context.Context, calls []core.FunctionCall, transcript []core.Message) ([]core.Message, error) {
			return s.handleCalls(ctx, state, calls, transcript)
		},
	}, state.Messages)
	if err != nil {
		return nil, err
	}

	out := &Output{Messages: messages}
	if s.contract != nil {
		out.StructuredResponse, err = s.structuredResponse(ctx, instructions, messages)
		if err != nil {
			return nil, err
		}
	}

	s.logger.Debug("agent.run.complete", "agent", s.Name(), "messages", len(messages))
	return out, nil
}

// handleCalls splits one step's calls into tool calls, which fan out
// concurrently, and handoffs. Only the first handoff of a step runs; the
// others are answered with an error so every call of the step is answered
// before the delegation's messages.
func (s *Supervisor) handleCalls(
	ctx context.Context,
	state State,
	calls []core.FunctionCall,
	transcript []core.Message,
) ([]core.Message, error) {
	var toolCalls, handoffs []core.FunctionCall
	for _, fc := range calls {
		if _, ok := tool.HandoffTarget(fc.Name); ok {
			handoffs = append(handoffs, fc)
			continue
		}
		toolCalls = append(toolCalls, fc)
	}

	out := s.executor.Execute(ctx, s.Name(), s.toolIndex, state.Values, toolCalls)
	if len(handoffs) == 0 {
		return out, nil
	}

	for _, fc := range handoffs[1:] {
		s.logger.Warn("agent.handoff.skipped", "agent", s.Name(), "tool", fc.Name)
		out = append(out, core.NewFunctionResponseMessage(s.Name(), fc.ID, fc.Name, nil,
			fmt.Errorf("%s not executed: only one transfer per step", fc.Name)))
	}

	msgs, err := s.delegate(ctx, state, handoffs[0], append(append([]core.Message(nil), transcript...), out...))
	if err != nil {
		return nil, err
	}
	return append(out, msgs...), nil
}

// delegate runs one sub-agent. The returned messages are the forward
// handoff acknowledgement, the sub-agent's last message and the handoff
// back to the supervisor.
func (s *Supervisor) delegate(ctx context.Context, state State, fc core.FunctionCall, transcript []core.Message) ([]core.Message, error) {
	s.handoffMu.Lock()
	defer s.handoffMu.Unlock()

	target, _ := tool.HandoffTarget(fc.Name)
	sub, ok := s.SubAgent(target)
	if !ok {
		return []core.Message{
			core.NewFunctionResponseMessage(s.Name(), fc.ID, fc.Name, nil, fmt.Errorf("unknown agent %q", target)),
		}, nil
	}

	s.logger.Info("agent.handoff.start", "from", s.Name(), "to", target)

	forward := core.NewFunctionResponseMessage(s.Name(), fc.ID, fc.Name, tool.TransferMessage(target), nil)
	input := append(transcript, forward)

	subOut, err := sub.Invoke(ctx, State{
		Messages:       input,
		Values:         state.Values,
		RemainingSteps: core.DefaultRemainingSteps,
	})
	if err != nil {
		return nil, fmt.Errorf("sub-agent %s: %w", target, err)
	}

	msgs := []core.Message{forward}
	if n := len(subOut.Messages); n > len(input) {
		last := subOut.Messages[n-1]
		if last.Name == "" {
			last.Name = target
		}
		msgs = append(msgs, last)
	}

	back := core.FunctionCall{ID: "call_" + core.NewID(), Name: tool.HandoffBackPrefix + s.Name(), Arguments: "{}"}
	msgs = append(msgs,
		core.NewFunctionCallMessage(target, back),
		core.NewFunctionResponseMessage(target, back.ID, back.Name, tool.TransferBackMessage(s.Name()), nil),
	)

	s.logger.Info("agent.handoff.complete", "from", target, "to", s.Name())
	return msgs, nil
}

// structuredResponse asks the model for a final answer constrained by the
// contract and coerces it. An unparsable answer yields the null record.
func (s *Supervisor) structuredResponse(ctx context.Context, instructions string, messages []core.Message) (map[string]any, error) {
	resp, err := s.llm.Complete(ctx, model.Request{
		Instructions: instructions,
		Messages:     messages,
		ResponseFormat: &model.ResponseFormat{
			Name:        s.contract.Name,
			Description: fmt.Sprintf("Structured response of %s", s.Name()),
			Schema:      s.contract.JSONSchema(),
		},
	})
	if err != nil {
		return nil, asBackendError(s.llm, err)
	}

	raw, err := util.ExtractJSON(resp.Message.Text())
	if err != nil {
		s.logger.Warn("agent.structured_response.unparsable", "agent", s.Name(), "error", err)
		return s.contract.Null(), nil
	}

	structured, err := s.contract.Coerce(raw)
	if err != nil {
		s.logger.Warn("agent.structured_response.invalid", "agent", s.Name(), "error", err)
	}
	return structured, nil
}
