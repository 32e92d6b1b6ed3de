// Package agentgraph builds and runs hierarchies of language model agents
// from declarative configuration. Most applications interact with this
// package by:
//  1. Loading a registry of nodes, tools and prompts (registry.LoadDir or
//     config.Config.LoadRegistry)
//  2. Creating an AgentGraph via New, optionally overriding the tool catalog,
//     model providers, telemetry sink and logger
//  3. Calling Dispatch (or mounting Handler) to run one agent turn per request
//
// The façade wires the builder and dispatcher together. Agents are built
// fresh for every dispatch, so a registry swapped through registry.Store is
// observed on the very next call.
package agentgraph

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/hupe1980/agentgraph/agent"
	"github.com/hupe1980/agentgraph/builder"
	"github.com/hupe1980/agentgraph/config"
	"github.com/hupe1980/agentgraph/core"
	"github.com/hupe1980/agentgraph/dispatch"
	"github.com/hupe1980/agentgraph/logging"
	"github.com/hupe1980/agentgraph/model"
	"github.com/hupe1980/agentgraph/model/anthropic"
	"github.com/hupe1980/agentgraph/model/openai"
	"github.com/hupe1980/agentgraph/registry"
	"github.com/hupe1980/agentgraph/server"
	"github.com/hupe1980/agentgraph/telemetry"
	"github.com/hupe1980/agentgraph/tool"
)

// Options configures the AgentGraph instance.
type Options struct {
	// Catalog resolves tool function references (defaults to tool.Builtins()).
	Catalog tool.Catalog
	// Resolver creates model providers (defaults to DefaultResolver()).
	Resolver *model.Resolver
	// Sink receives tool and agent telemetry events (defaults to NopSink).
	Sink telemetry.Sink
	// Executor bounds tool call parallelism within one reasoning step.
	Executor agent.ExecutorConfig
	// Logger (defaults to NoOp logger if nil)
	Logger logging.Logger
}

// AgentGraph is the high-level façade aggregating factory and dispatcher.
type AgentGraph struct {
	source     registry.Source
	factory    *builder.Factory
	dispatcher *dispatch.Dispatcher
	logger     logging.Logger
}

// New creates an AgentGraph reading definitions from source.
func New(source registry.Source, optFns ...func(o *Options)) *AgentGraph {
	opts := Options{
		Catalog: tool.Builtins(),
		Sink:    telemetry.NopSink{},
		Logger:  logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	logger := logging.OrNoOp(opts.Logger)
	if opts.Resolver == nil {
		opts.Resolver = DefaultResolver(func(o *model.ResolverOptions) { o.Logger = logger })
	}

	factory := builder.New(source, func(o *builder.Options) {
		o.Catalog = opts.Catalog
		o.Resolver = opts.Resolver
		o.Sink = opts.Sink
		o.Executor = opts.Executor
		o.Logger = logger
	})

	d := dispatch.New(source, factory, func(o *dispatch.Options) {
		o.Sink = opts.Sink
		o.Logger = logger
	})

	return &AgentGraph{source: source, factory: factory, dispatcher: d, logger: logger}
}

// Dispatch runs one turn of agentName for message. See dispatch.Dispatcher.
func (g *AgentGraph) Dispatch(ctx context.Context, agentName, message string, dctx core.DispatchContext) dispatch.Result {
	return g.dispatcher.Dispatch(ctx, agentName, message, dctx)
}

// Build constructs the agent graph of agentID without running it.
func (g *AgentGraph) Build(ctx context.Context, agentID string, dctx core.DispatchContext) (agent.Agent, error) {
	return g.factory.Build(ctx, agentID, dctx)
}

// Agents returns the dispatchable agent ids of the current registry.
func (g *AgentGraph) Agents() []string { return g.source.Current().DispatchableIDs() }

// Handler returns the HTTP front end for this graph.
func (g *AgentGraph) Handler(optFns ...func(o *server.Options)) http.Handler {
	return server.New(g.dispatcher, append([]func(o *server.Options){func(o *server.Options) {
		o.Agents = g.Agents
		o.Logger = g.logger
	}}, optFns...)...)
}

// DefaultResolver returns a resolver knowing the openai and anthropic
// providers. Credentials come from the SDKs' environment variables unless
// set through the provider options.
func DefaultResolver(optFns ...func(o *model.ResolverOptions)) *model.Resolver {
	return model.NewResolver(optFns...).
		Register("openai", openai.Factory()).
		Register("anthropic", anthropic.Factory())
}

// FromConfig assembles a ready AgentGraph from process configuration: a
// reloadable registry store, file telemetry sinks and the configured
// providers. The returned closer releases the sinks.
func FromConfig(cfg *config.Config, logger logging.Logger) (*AgentGraph, *registry.Store, io.Closer, error) {
	logger = logging.OrNoOp(logger)

	loadRegistry := func() (*registry.Registry, error) {
		return cfg.LoadRegistry(func(o *registry.Options) { o.Logger = logger })
	}
	reg, err := loadRegistry()
	if err != nil {
		return nil, nil, nil, fmt.Errorf("load registry: %w", err)
	}
	store := registry.NewStore(reg, loadRegistry, logger)

	sink, closer, err := openSinks(cfg.Telemetry)
	if err != nil {
		return nil, nil, nil, err
	}

	resolver := model.NewResolver(func(o *model.ResolverOptions) {
		o.DefaultProvider = cfg.Model.DefaultProvider
		o.LogOutput = cfg.Model.LogOutput
		o.Logger = logger
	}).
		Register("openai", openai.Factory(func(o *openai.Options) {
			o.APIKey = cfg.Model.OpenAIAPIKey
			o.BaseURL = cfg.Model.OpenAIBaseURL
		})).
		Register("anthropic", anthropic.Factory(func(o *anthropic.Options) {
			o.APIKey = cfg.Model.AnthropicAPIKey
		}))

	g := New(store, func(o *Options) {
		o.Resolver = resolver
		o.Sink = sink
		o.Logger = logger
	})

	logger.Info("agentgraph.ready", "registry", reg.String(), "providers", resolver.Providers())
	return g, store, closer, nil
}

type closers []io.Closer

func (c closers) Close() error {
	var errs []error
	for _, cl := range c {
		errs = append(errs, cl.Close())
	}
	return errors.Join(errs...)
}

// openSinks opens the tool and agent JSONL logs. Equal paths share one file.
func openSinks(tc config.TelemetryConfig) (telemetry.Sink, io.Closer, error) {
	var (
		router telemetry.Router
		opened closers
	)

	open := func(path string) (telemetry.Sink, error) {
		if path == "" {
			return telemetry.NopSink{}, nil
		}
		s, err := telemetry.NewFileSink(path)
		if err != nil {
			return nil, err
		}
		opened = append(opened, s)
		return s, nil
	}

	var err error
	if router.Tool, err = open(tc.ToolLog); err != nil {
		return nil, nil, err
	}
	if tc.AgentLog == tc.ToolLog {
		router.Agent = router.Tool
		return router, opened, nil
	}
	if router.Agent, err = open(tc.AgentLog); err != nil {
		_ = opened.Close()
		return nil, nil, err
	}
	return router, opened, nil
}
