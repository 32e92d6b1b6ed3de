// Package logging provides a minimal logging interface and adapters for agentgraph.
//
// The Logger interface defines the standard logging methods (Debug, Info, Warn, Error)
// that the dispatcher, builders, agents and tools use for observability. This package includes:
//
//   - Logger interface for dependency injection
//   - SlogAdapter wrapping Go's structured logging
//   - StructuredLogger with contextual helpers (component, agent, dispatch id)
//   - NoOpLogger for silent operation (testing, minimal setups)
//
// Usage:
//
//	logger := logging.NewSlogLogger(logging.LogLevelInfo, "json", false)
//	g := agentgraph.New(source, func(o *agentgraph.Options) { o.Logger = logger })
//
// The dispatcher derives a per dispatch logger through WithDispatch when it
// is handed a *StructuredLogger, so every record of one turn carries the
// agent name and dispatch id.
//
// Message keys are dotted event names such as "tool.call.failed" or
// "dispatch.complete"; attributes are slog key/value pairs.
package logging
