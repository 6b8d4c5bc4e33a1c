package tools

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/richinex/agentbook/metrics"
	"github.com/richinex/agentbook/model"
	"github.com/richinex/agentbook/runtimectx"
)

// echoTool returns the runtime context it received.
type echoTool struct {
	BaseTool
	name   string
	params []ToolParameter
}

func (e *echoTool) Metadata() ToolMetadata {
	return ToolMetadata{Name: e.name, Description: "echo", Parameters: e.params}
}

func (e *echoTool) Execute(ctx context.Context, args json.RawMessage) (ToolResult, error) {
	rc, err := decodeArgs(args, nil)
	if err != nil {
		return ToolResult{}, err
	}
	userID := ""
	if rc != nil && rc.Memory != nil {
		userID = rc.Memory.UserID
	}
	return JSONResult(map[string]any{"status": StatusOK, "userId": userID, "callId": CallIDFrom(ctx)})
}

func TestRegistryRejectsReservedKey(t *testing.T) {
	registry := NewRegistry()
	err := registry.Register(&echoTool{name: "leaky", params: []ToolParameter{
		{Name: model.RuntimeContextArgumentKey, ParamType: "string", Required: true},
	}})
	if err == nil {
		t.Fatal("expected registration to fail")
	}
}

func TestRegistryDuplicates(t *testing.T) {
	if _, err := NewRegistryWith(&echoTool{name: "a"}, &echoTool{name: "a"}); err == nil {
		t.Error("expected duplicate registration to fail")
	}
}

func TestDefinitionsSchema(t *testing.T) {
	registry, err := NewRegistryWith(&echoTool{name: "b"}, &echoTool{name: "a", params: []ToolParameter{
		{Name: "q", ParamType: "string", Description: "query", Required: true},
		{Name: "n", ParamType: "integer"},
	}})
	if err != nil {
		t.Fatalf("NewRegistryWith failed: %v", err)
	}

	defs := registry.Definitions()
	if len(defs) != 2 || defs[0].Name != "a" {
		t.Fatalf("expected sorted definitions, got %+v", defs)
	}
	required := defs[0].Parameters["required"].([]string)
	if len(required) != 1 || required[0] != "q" {
		t.Errorf("unexpected required list %v", required)
	}
	props := defs[0].Parameters["properties"].(map[string]any)
	if _, ok := props["n"]; !ok {
		t.Error("optional parameter missing from properties")
	}
}

func TestInvokerInjectsContext(t *testing.T) {
	registry, err := NewRegistryWith(&echoTool{name: "echo"})
	if err != nil {
		t.Fatalf("NewRegistryWith failed: %v", err)
	}
	collectors := metrics.New(nil)
	invoker := NewInvoker(registry, ToolConfig{}, WithMetrics(collectors))

	serialized, err := runtimectx.Serialize(memoryContext())
	if err != nil {
		t.Fatalf("Serialize failed: %v", err)
	}
	result, err := invoker.Invoke(context.Background(), Call{ID: "c1", Name: "echo", Arguments: map[string]any{"x": 1}}, serialized)
	if err != nil {
		t.Fatalf("Invoke failed: %v", err)
	}

	var out map[string]any
	json.Unmarshal([]byte(result.Output), &out)
	if out["userId"] != "user-1" || out["callId"] != "c1" {
		t.Errorf("context not delivered: %v", out)
	}
	if got := testutil.ToFloat64(collectors.ToolCalls.WithLabelValues("echo", StatusOK)); got != 1 {
		t.Errorf("expected 1 recorded call, got %v", got)
	}
}

func TestInvokerUnknownTool(t *testing.T) {
	invoker := NewInvoker(NewRegistry(), ToolConfig{})
	_, err := invoker.Invoke(context.Background(), Call{Name: "nope"}, "")
	if !errors.Is(err, ErrToolNotFound) {
		t.Errorf("expected ErrToolNotFound, got %v", err)
	}
}

func TestToolResultStatus(t *testing.T) {
	if s := SuccessResult("plain text").Status(); s != StatusOK {
		t.Errorf("expected ok for plain output, got %s", s)
	}
	if s := SuccessResult(`{"status":"disabled"}`).Status(); s != StatusDisabled {
		t.Errorf("expected disabled, got %s", s)
	}
	if s := FailureResultf("boom").Status(); s != "failure" {
		t.Errorf("expected failure, got %s", s)
	}
}
