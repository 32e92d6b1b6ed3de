package dispatch

import (
	"context"
	"encoding/json"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/hupe1980/agentgraph/agent"
	"github.com/hupe1980/agentgraph/builder"
	"github.com/hupe1980/agentgraph/core"
	"github.com/hupe1980/agentgraph/logging"
	"github.com/hupe1980/agentgraph/registry"
	"github.com/hupe1980/agentgraph/telemetry"
)

// Result is the outcome of one dispatch: either the agent output or an error
// message. It never carries both.
type Result struct {
	Output *agent.Output
	Error  string
}

// Failed reports whether the dispatch produced an error payload.
func (r Result) Failed() bool { return r.Error != "" }

// Text returns the final assistant text of a successful dispatch.
func (r Result) Text() string { return r.Output.FinalText() }

// MarshalJSON renders {"output": ...} or {"error": "..."}.
func (r Result) MarshalJSON() ([]byte, error) {
	if r.Failed() {
		return json.Marshal(map[string]string{"error": r.Error})
	}
	return json.Marshal(map[string]any{"output": r.Output})
}

// Options configures a Dispatcher.
type Options struct {
	// Sink receives one agent event per dispatch past the field guard.
	Sink   telemetry.Sink
	Logger logging.Logger
	// Now is the clock used for event timestamps.
	Now func() time.Time
}

// Dispatcher is the public entry point: it resolves an agent id, builds a
// fresh agent graph and runs one conversational turn. A Dispatcher is safe
// for concurrent use; dispatches share nothing but the registry and sink.
type Dispatcher struct {
	source  registry.Source
	factory *builder.Factory
	opts    Options
	logger  logging.Logger
}

// New creates a Dispatcher.
func New(source registry.Source, factory *builder.Factory, optFns ...func(o *Options)) *Dispatcher {
	opts := Options{
		Sink:   telemetry.NopSink{},
		Logger: logging.NoOpLogger{},
		Now:    time.Now,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Sink == nil {
		opts.Sink = telemetry.NopSink{}
	}

	return &Dispatcher{
		source:  source,
		factory: factory,
		opts:    opts,
		logger:  logging.OrNoOp(opts.Logger),
	}
}

// Dispatch runs agentName on message. Failures never surface as Go errors:
// they are reported through Result.Error.
func (d *Dispatcher) Dispatch(ctx context.Context, agentName, message string, dctx core.DispatchContext) Result {
	if agentName == "" || message == "" {
		return Result{Error: (&core.MissingFieldError{}).Error()}
	}

	start := d.opts.Now()

	dctx = dctx.Clone()
	dctx[core.KeyMessage] = message
	if _, ok := dctx[core.KeyIdentifier]; !ok {
		dctx[core.KeyIdentifier] = nil
	}

	logger := d.logger
	if sl, ok := logger.(*logging.StructuredLogger); ok {
		logger = sl.WithDispatch(agentName, core.NewID())
	}
	logger.Info("dispatch.start", "agent", agentName, "identifier", dctx[core.KeyIdentifier])

	state := agent.NewState(message, dctx)
	result := d.run(ctx, logger, agentName, state, dctx)

	end := d.opts.Now()
	ev := telemetry.NewEvent(telemetry.EventAgent, agentName, start, end, state, result)
	ev.Message = message
	ev.Context = telemetry.JSONSafeMap(dctx)
	if err := d.opts.Sink.Append(ctx, ev); err != nil {
		logger.Error("dispatch.telemetry.failed", "agent", agentName, "error", err)
	}

	logger.Info("dispatch.complete",
		"agent", agentName,
		"duration_ms", end.Sub(start).Milliseconds(),
		"error", result.Error,
	)
	return result
}

func (d *Dispatcher) run(ctx context.Context, logger logging.Logger, agentName string, state agent.State, dctx core.DispatchContext) (result Result) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("dispatch.panic", "agent", agentName, "recover", r, "stack", string(debug.Stack()))
			result = Result{Error: fmt.Sprintf("panic: %v", r)}
		}
	}()

	node, ok := d.source.Current().Node(agentName)
	if !ok || !node.Type.Dispatchable() {
		return Result{Error: (&core.UnknownAgentError{Name: agentName}).Error()}
	}

	a, err := d.factory.Build(ctx, agentName, dctx)
	if err != nil {
		logger.Error("dispatch.build.failed", "agent", agentName, "error", err)
		return Result{Error: err.Error()}
	}

	out, err := a.Invoke(ctx, state)
	if err != nil {
		logger.Error("dispatch.invoke.failed", "agent", agentName, "error", err)
		return Result{Error: err.Error()}
	}

	return Result{Output: out}
}
