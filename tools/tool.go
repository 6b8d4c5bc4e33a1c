// Package tools provides the tool system for compiled agents.
//
// Information Hiding:
// - Tool execution details hidden behind interface
// - Tool parameters and schemas hidden in implementations
// - Registry implementation details hidden from consumers
// - Runtime context decoding internalized per tool
package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/richinex/agentbook/model"
	"github.com/richinex/agentbook/runtimectx"
)

// ToolParameter defines a parameter schema for a tool.
type ToolParameter struct {
	Name        string   `json:"name"`
	ParamType   string   `json:"param_type"`
	Description string   `json:"description"`
	Required    bool     `json:"required"`
	Enum        []string `json:"enum,omitempty"`
}

// ToolMetadata describes what a tool does and how to use it.
type ToolMetadata struct {
	Name        string          `json:"name"`
	Title       string          `json:"title,omitempty"`
	Description string          `json:"description"`
	Parameters  []ToolParameter `json:"parameters"`
}

// String returns a string representation of the tool metadata.
func (m ToolMetadata) String() string {
	return fmt.Sprintf("%s: %s", m.Name, m.Description)
}

// Definition converts the metadata into the JSON-schema definition the
// model sees.
func (m ToolMetadata) Definition() model.ToolDefinition {
	properties := make(map[string]any, len(m.Parameters))
	required := []string{}
	for _, p := range m.Parameters {
		prop := map[string]any{
			"type":        p.ParamType,
			"description": p.Description,
		}
		if len(p.Enum) > 0 {
			prop["enum"] = p.Enum
		}
		if p.ParamType == "array" {
			prop["items"] = map[string]any{"type": "string"}
		}
		properties[p.Name] = prop
		if p.Required {
			required = append(required, p.Name)
		}
	}
	return model.ToolDefinition{
		Name:        m.Name,
		Description: m.Description,
		Parameters: map[string]any{
			"type":       "object",
			"properties": properties,
			"required":   required,
		},
	}
}

// ToolResult represents the result of a tool execution.
// Success is determined by whether Error is nil.
type ToolResult struct {
	Output string `json:"output"`
	Error  error  `json:"-"` // Excluded from JSON, use MarshalJSON for custom serialization
}

// MarshalJSON implements custom JSON marshaling for ToolResult.
func (t ToolResult) MarshalJSON() ([]byte, error) {
	if t.Error != nil {
		return json.Marshal(struct {
			Success bool   `json:"success"`
			Output  string `json:"output"`
			Error   string `json:"error"`
		}{
			Success: false,
			Output:  t.Output,
			Error:   t.Error.Error(),
		})
	}
	return json.Marshal(struct {
		Success bool   `json:"success"`
		Output  string `json:"output"`
	}{
		Success: true,
		Output:  t.Output,
	})
}

// Success returns true if the tool execution succeeded.
func (t ToolResult) Success() bool {
	return t.Error == nil
}

// Status returns the status field of a structured output. Plain outputs
// report "ok" and failures report "failure".
func (t ToolResult) Status() string {
	if t.Error != nil {
		return "failure"
	}
	var probe struct {
		Status string `json:"status"`
	}
	if json.Unmarshal([]byte(t.Output), &probe) == nil && probe.Status != "" {
		return probe.Status
	}
	return StatusOK
}

// SuccessResult creates a successful tool result.
func SuccessResult(output string) ToolResult {
	return ToolResult{Output: output}
}

// FailureResult creates a failed tool result.
func FailureResult(err error) ToolResult {
	return ToolResult{Error: err}
}

// FailureResultf creates a failed tool result with a formatted error message.
func FailureResultf(format string, args ...any) ToolResult {
	return ToolResult{Error: fmt.Errorf(format, args...)}
}

// JSONResult creates a successful result holding v encoded as JSON.
func JSONResult(v any) (ToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return ToolResult{}, fmt.Errorf("failed to encode tool output: %w", err)
	}
	return SuccessResult(string(data)), nil
}

// Tool is the interface that all tools must implement.
//
// Information Hiding: Tool implementations hide their internal execution logic,
// data structures, and error handling strategies behind this interface.
type Tool interface {
	// Metadata returns tool metadata (name, description, parameters).
	Metadata() ToolMetadata

	// Execute runs the tool with given arguments. Arguments may carry the
	// runtime context under runtimectx.ArgumentKey.
	Execute(ctx context.Context, args json.RawMessage) (ToolResult, error)

	// Validate validates arguments before execution (optional).
	Validate(args json.RawMessage) error
}

// LongRunning is implemented by tools that may legitimately outlive the
// invoker's default timeout.
type LongRunning interface {
	MaxDuration() time.Duration
}

// BaseTool provides a default implementation for Validate.
type BaseTool struct{}

// Validate checks that arguments, when present, are a JSON object.
func (BaseTool) Validate(args json.RawMessage) error {
	if len(args) == 0 {
		return nil
	}
	var m map[string]any
	if err := json.Unmarshal(args, &m); err != nil {
		return fmt.Errorf("arguments must be a JSON object: %w", err)
	}
	return nil
}

// decodeArgs decodes args into v (when not nil) and returns the hidden
// runtime context, or nil when none was injected. The context is returned
// even when v cannot be decoded so callers can report disabled states first.
func decodeArgs(args json.RawMessage, v any) (*runtimectx.Context, error) {
	if len(args) == 0 {
		return nil, nil
	}
	var raw map[string]any
	if err := json.Unmarshal(args, &raw); err != nil {
		return nil, fmt.Errorf("invalid arguments: %w", err)
	}
	rc := runtimectx.FromArguments(raw)
	if v != nil {
		if err := json.Unmarshal(args, v); err != nil {
			return rc, fmt.Errorf("invalid arguments: %w", err)
		}
	}
	return rc, nil
}

// ToolConfig holds tool execution configuration.
// The zero value is safe: timeout defaults to 30s.
type ToolConfig struct {
	TimeoutSecs uint64
}

// Timeout returns the configured timeout, defaulting to 30 seconds if zero.
func (c *ToolConfig) Timeout() time.Duration {
	if c == nil || c.TimeoutSecs == 0 {
		return DefaultToolTimeout * time.Second
	}
	return time.Duration(c.TimeoutSecs) * time.Second
}

// DefaultToolConfig returns the default tool configuration.
// Note: The zero value of ToolConfig is also safe and provides the same defaults.
func DefaultToolConfig() ToolConfig {
	return ToolConfig{TimeoutSecs: DefaultToolTimeout}
}

type callIDKey struct{}

// WithCallID returns a context carrying the tool call id.
func WithCallID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, callIDKey{}, id)
}

// CallIDFrom returns the tool call id carried by ctx.
func CallIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(callIDKey{}).(string)
	return id
}
