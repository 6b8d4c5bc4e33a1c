// Tool Invoker.
//
// Information Hiding:
// - Runtime context injection hidden from callers
// - Timeout selection and metrics recording hidden
// - Tools are executed exactly once; there is no retry or backoff

package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/richinex/agentbook/metrics"
	"github.com/richinex/agentbook/runtimectx"
)

// Call is one tool invocation requested by the model.
type Call struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
}

// Invoker executes tool calls from a registry.
type Invoker struct {
	registry *Registry
	config   ToolConfig
	metrics  *metrics.Collectors
	logger   *slog.Logger
}

// InvokerOption configures an Invoker.
type InvokerOption func(*Invoker)

// WithMetrics records every invocation in the given collectors.
func WithMetrics(m *metrics.Collectors) InvokerOption {
	return func(i *Invoker) { i.metrics = m }
}

// WithLogger sets the invoker logger.
func WithLogger(logger *slog.Logger) InvokerOption {
	return func(i *Invoker) { i.logger = logger }
}

// NewInvoker creates an invoker for the registry.
func NewInvoker(registry *Registry, config ToolConfig, opts ...InvokerOption) *Invoker {
	inv := &Invoker{registry: registry, config: config, logger: slog.Default()}
	for _, opt := range opts {
		opt(inv)
	}
	return inv
}

// Invoke runs one call. The serialized runtime context is injected under
// the reserved argument key and the call id travels on ctx.
func (i *Invoker) Invoke(ctx context.Context, call Call, runtimeContext string) (ToolResult, error) {
	tool, ok := i.registry.Get(call.Name)
	if !ok {
		return ToolResult{}, fmt.Errorf("%w: %s", ErrToolNotFound, call.Name)
	}

	args, err := json.Marshal(runtimectx.InjectArgument(call.Arguments, runtimeContext))
	if err != nil {
		return ToolResult{}, fmt.Errorf("failed to encode arguments: %w", err)
	}

	start := time.Now()
	result, err := i.run(ctx, tool, call.ID, args)
	elapsed := time.Since(start)

	status := result.Status()
	if err != nil {
		status = StatusError
	}
	i.metrics.ObserveToolCall(call.Name, status, elapsed)

	attrs := []any{"tool", call.Name, "call_id", call.ID, "status", status, "elapsed", elapsed}
	if err != nil {
		i.logger.Warn("tool call failed", append(attrs, "error", err)...)
	} else {
		i.logger.Debug("tool call finished", attrs...)
	}
	return result, err
}

func (i *Invoker) run(ctx context.Context, tool Tool, callID string, args json.RawMessage) (ToolResult, error) {
	if err := tool.Validate(args); err != nil {
		return FailureResult(fmt.Errorf("validation failed: %w", err)), nil
	}

	timeout := i.config.Timeout()
	if lr, ok := tool.(LongRunning); ok && lr.MaxDuration() > timeout {
		timeout = lr.MaxDuration()
	}
	ctx, cancel := context.WithTimeout(WithCallID(ctx, callID), timeout)
	defer cancel()

	return tool.Execute(ctx, args)
}
