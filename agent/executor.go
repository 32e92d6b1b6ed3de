package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"runtime/debug"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/agentgraph/core"
	"github.com/hupe1980/agentgraph/logging"
	"github.com/hupe1980/agentgraph/model"
	"github.com/hupe1980/agentgraph/tool"
)

// ExecutorConfig configures the tool call executor.
type ExecutorConfig struct {
	MaxParallel int // 0 or <1 => no explicit limit (len(calls))
}

// toolExecutor runs the tool calls of one reasoning step concurrently and
// returns one response message per call, in call order.
type toolExecutor struct {
	cfg    ExecutorConfig
	logger logging.Logger
}

func newToolExecutor(cfg ExecutorConfig, logger logging.Logger) *toolExecutor {
	return &toolExecutor{cfg: cfg, logger: logging.OrNoOp(logger)}
}

// Execute never fails: unknown tools, malformed arguments and panics are
// reported as error responses. Tool inputs are the state values overlaid
// with the model supplied arguments.
func (e *toolExecutor) Execute(
	ctx context.Context,
	agentName string,
	tools map[string]tool.Tool,
	values map[string]any,
	calls []core.FunctionCall,
) []core.Message {
	n := len(calls)
	if n == 0 {
		return nil
	}

	results := make([]core.Message, n)

	// Fast path: single call, execute inline.
	if n == 1 {
		results[0] = e.executeOne(ctx, agentName, tools, values, calls[0])
		return results
	}

	maxPar := e.cfg.MaxParallel
	if maxPar <= 0 || maxPar > n {
		maxPar = n
	}

	batchStart := time.Now()

	var g errgroup.Group
	g.SetLimit(maxPar)
	for i, fc := range calls {
		i, fc := i, fc
		g.Go(func() error {
			results[i] = e.executeOne(ctx, agentName, tools, values, fc)
			return nil
		})
	}
	_ = g.Wait()

	e.logger.Debug(
		"agent.functions.batch.complete",
		"agent", agentName,
		"count", n,
		"parallelism", maxPar,
		"duration_ms", time.Since(batchStart).Milliseconds(),
	)

	return results
}

func (e *toolExecutor) executeOne(
	ctx context.Context,
	agentName string,
	tools map[string]tool.Tool,
	values map[string]any,
	fc core.FunctionCall,
) core.Message {
	start := time.Now()

	var (
		result any
		err    error
	)
	func() {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("panic recovered: %v", r)
				e.logger.Error("agent.function.panic", "agent", agentName, "function", fc.Name, "recover", r, "stack", string(debug.Stack()))
			}
		}()
		result, err = executeTool(ctx, tools, values, fc)
	}()

	e.logger.Info(
		"agent.function.executed",
		"agent", agentName,
		"function", fc.Name,
		"function_call_id", fc.ID,
		"duration_ms", time.Since(start).Milliseconds(),
		"error", err != nil,
	)

	return core.NewFunctionResponseMessage(agentName, fc.ID, fc.Name, result, err)
}

// executeTool centralizes tool lookup, argument decoding and execution.
func executeTool(ctx context.Context, tools map[string]tool.Tool, values map[string]any, fc core.FunctionCall) (any, error) {
	impl, ok := tools[fc.Name]
	if !ok {
		return nil, fmt.Errorf("tool %s not found", fc.Name)
	}

	args := make(map[string]any, len(values))
	for k, v := range values {
		args[k] = v
	}
	if fc.Arguments != "" {
		var modelArgs map[string]any
		if err := json.Unmarshal([]byte(fc.Arguments), &modelArgs); err != nil {
			return nil, fmt.Errorf("failed to unmarshal args: %w", err)
		}
		for k, v := range modelArgs {
			args[k] = v
		}
	}

	return impl.Call(tool.WithCallID(ctx, fc.ID), args)
}

// toolDefinitions converts tools into model tool definitions.
func toolDefinitions(tools []tool.Tool) []model.ToolDefinition {
	defs := make([]model.ToolDefinition, 0, len(tools))
	for _, t := range tools {
		defs = append(defs, model.NewToolDefinition(t.Name(), t.Description(), t.Parameters()))
	}
	return defs
}
