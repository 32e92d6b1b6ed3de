package model

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/hupe1980/agentgraph/core"
	"github.com/hupe1980/agentgraph/logging"
)

// ToolDefinition declaratively exposes a callable function to the model.
type ToolDefinition struct {
	Type     string             `json:"type"` // "function"
	Function FunctionDefinition `json:"function"`
}

// FunctionDefinition describes an individual function (tool) exposed to the model.
// Parameters is a JSON Schema object.
type FunctionDefinition struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

// NewToolDefinition builds a function ToolDefinition.
func NewToolDefinition(name, description string, parameters map[string]any) ToolDefinition {
	if parameters == nil {
		parameters = map[string]any{"type": "object", "properties": map[string]any{}}
	}
	return ToolDefinition{
		Type: "function",
		Function: FunctionDefinition{
			Name:        name,
			Description: description,
			Parameters:  parameters,
		},
	}
}

// ResponseFormat constrains the final answer to a JSON Schema.
type ResponseFormat struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Schema      map[string]any `json:"schema"`
	Strict      bool           `json:"strict,omitempty"`
}

// Request captures the normalized model input produced by agents.
type Request struct {
	Instructions      string           `json:"instructions"`
	Messages          []core.Message   `json:"messages"`
	Tools             []ToolDefinition `json:"tools,omitempty"`
	ParallelToolCalls bool             `json:"parallel_tool_calls,omitempty"`
	ResponseFormat    *ResponseFormat  `json:"response_format,omitempty"`
}

// TokenUsage captures token usage statistics for a response.
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Response is a single completed model turn.
type Response struct {
	ID           string       `json:"id"`
	Message      core.Message `json:"message"`
	FinishReason string       `json:"finish_reason"` // "stop", "length", "tool_calls", etc.
	Usage        *TokenUsage  `json:"usage,omitempty"`
}

// Info contains metadata about a provider implementation.
type Info struct {
	Name          string `json:"name"`
	Provider      string `json:"provider"` // "openai", "anthropic", "scripted"
	SupportsTools bool   `json:"supports_tools"`
}

// Provider is the minimal interface agents need to drive generation.
type Provider interface {
	Complete(ctx context.Context, req Request) (*Response, error)

	// Info returns information about the provider implementation.
	Info() Info
}

// Settings selects and tunes a provider for one agent.
type Settings struct {
	Provider    string
	Model       string
	Temperature *float64
	TopP        *float64
	MaxTokens   int64
}

// Factory creates a Provider for the given settings.
type Factory func(s Settings) (Provider, error)

// Resolver maps provider names to factories. It is safe for concurrent use.
type Resolver struct {
	mu              sync.RWMutex
	factories       map[string]Factory
	defaultProvider string
	logger          logging.Logger
}

// ResolverOptions configure a Resolver.
type ResolverOptions struct {
	// DefaultProvider is used when Settings.Provider is empty.
	DefaultProvider string
	// LogOutput wraps resolved providers in a LoggingProvider.
	LogOutput bool
	Logger    logging.Logger
}

// NewResolver creates an empty Resolver.
func NewResolver(optFns ...func(o *ResolverOptions)) *Resolver {
	opts := ResolverOptions{DefaultProvider: "openai"}
	for _, fn := range optFns {
		fn(&opts)
	}

	r := &Resolver{
		factories:       map[string]Factory{},
		defaultProvider: strings.ToLower(opts.DefaultProvider),
	}
	if opts.LogOutput {
		r.logger = logging.OrNoOp(opts.Logger)
	}
	return r
}

// Register adds or replaces the factory for name.
func (r *Resolver) Register(name string, f Factory) *Resolver {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[strings.ToLower(name)] = f
	return r
}

// Providers returns the registered provider names, sorted.
func (r *Resolver) Providers() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.factories))
	for n := range r.factories {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Resolve creates a provider for s. Unknown provider names are configuration
// errors.
func (r *Resolver) Resolve(s Settings) (Provider, error) {
	name := strings.ToLower(s.Provider)
	if name == "" {
		name = r.defaultProvider
	}

	r.mu.RLock()
	f, ok := r.factories[name]
	r.mu.RUnlock()
	if !ok {
		return nil, core.NewConfigError("provider", name, "no provider registered (have %v)", r.Providers())
	}

	p, err := f(s)
	if err != nil {
		return nil, fmt.Errorf("create %s provider: %w", name, err)
	}
	if r.logger != nil {
		p = NewLoggingProvider(p, r.logger)
	}
	return p, nil
}

// LoggingProvider logs each raw model output and then hands it back unchanged.
type LoggingProvider struct {
	next   Provider
	logger logging.Logger
}

// NewLoggingProvider wraps next.
func NewLoggingProvider(next Provider, logger logging.Logger) *LoggingProvider {
	return &LoggingProvider{next: next, logger: logging.OrNoOp(logger)}
}

// Complete implements Provider.
func (p *LoggingProvider) Complete(ctx context.Context, req Request) (*Response, error) {
	info := p.next.Info()
	start := time.Now()

	resp, err := p.next.Complete(ctx, req)
	if err != nil {
		p.logger.Error("model.call.failed",
			"provider", info.Provider,
			"model", info.Name,
			"duration_ms", time.Since(start).Milliseconds(),
			"error", err,
		)
		return nil, err
	}

	args := []any{
		"provider", info.Provider,
		"model", info.Name,
		"duration_ms", time.Since(start).Milliseconds(),
		"finish_reason", resp.FinishReason,
		"tool_calls", len(resp.Message.FunctionCalls()),
		"output", resp.Message.Text(),
	}
	if resp.Usage != nil {
		args = append(args, "tokens", resp.Usage.TotalTokens)
	}
	p.logger.Info("model.call.completed", args...)
	return resp, nil
}

// Info implements Provider.
func (p *LoggingProvider) Info() Info { return p.next.Info() }

// Unwrap returns the wrapped provider.
func (p *LoggingProvider) Unwrap() Provider { return p.next }

// ScriptedStep produces one scripted model turn.
type ScriptedStep func(req Request) (*Response, error)

// ScriptedProvider is a deterministic in-memory Provider for tests and
// examples. Queued steps are consumed in order; once the queue is empty it
// answers with canned text registered through AddResponse or with
// "Mock response to: <last user text>".
type ScriptedProvider struct {
	mu        sync.Mutex
	info      Info
	steps     []ScriptedStep
	responses map[string]string
	requests  []Request
}

// NewScriptedProvider creates an empty ScriptedProvider.
func NewScriptedProvider(name string) *ScriptedProvider {
	return &ScriptedProvider{
		info: Info{
			Name:          name,
			Provider:      "scripted",
			SupportsTools: true,
		},
		responses: map[string]string{},
	}
}

// Then queues an arbitrary step.
func (p *ScriptedProvider) Then(step ScriptedStep) *ScriptedProvider {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.steps = append(p.steps, step)
	return p
}

// ThenText queues a final assistant answer.
func (p *ScriptedProvider) ThenText(text string) *ScriptedProvider {
	return p.Then(func(Request) (*Response, error) {
		return &Response{
			ID:           core.NewID(),
			Message:      core.NewAssistantMessage("", text),
			FinishReason: "stop",
		}, nil
	})
}

// ThenCalls queues an assistant turn requesting the given tool calls. Calls
// without an ID get a generated one.
func (p *ScriptedProvider) ThenCalls(calls ...core.FunctionCall) *ScriptedProvider {
	return p.Then(func(Request) (*Response, error) {
		msg := core.Message{Role: core.RoleAssistant}
		for _, fc := range calls {
			if fc.ID == "" {
				fc.ID = "call_" + core.NewID()
			}
			msg.Parts = append(msg.Parts, core.FunctionCallPart{FunctionCall: fc})
		}
		return &Response{ID: core.NewID(), Message: msg, FinishReason: "tool_calls"}, nil
	})
}

// ThenError queues a failing turn.
func (p *ScriptedProvider) ThenError(err error) *ScriptedProvider {
	return p.Then(func(Request) (*Response, error) { return nil, err })
}

// AddResponse registers a canned completion for a user prompt.
func (p *ScriptedProvider) AddResponse(prompt, response string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.responses[prompt] = response
}

// Requests returns a copy of every request received so far.
func (p *ScriptedProvider) Requests() []Request {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]Request, len(p.requests))
	copy(out, p.requests)
	return out
}

// Pending reports how many queued steps are left.
func (p *ScriptedProvider) Pending() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.steps)
}

// Complete implements Provider.
func (p *ScriptedProvider) Complete(ctx context.Context, req Request) (*Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	p.mu.Lock()
	p.requests = append(p.requests, req)
	var step ScriptedStep
	if len(p.steps) > 0 {
		step = p.steps[0]
		p.steps = p.steps[1:]
	}
	p.mu.Unlock()

	if step != nil {
		return step(req)
	}

	if len(req.Messages) == 0 {
		return nil, fmt.Errorf("no messages provided")
	}

	var input string
	for i := len(req.Messages) - 1; i >= 0; i-- {
		if req.Messages[i].Role == core.RoleUser {
			input = req.Messages[i].Text()
			break
		}
	}

	p.mu.Lock()
	full := p.responses[input]
	p.mu.Unlock()
	if full == "" {
		full = fmt.Sprintf("Mock response to: %s", input)
	}

	return &Response{
		ID:           core.NewID(),
		Message:      core.NewAssistantMessage("", full),
		FinishReason: "stop",
	}, nil
}

// Info implements Provider.
func (p *ScriptedProvider) Info() Info { return p.info }
