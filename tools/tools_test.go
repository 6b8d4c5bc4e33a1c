package tools

import (
	"context"
	"encoding/json"
	"testing"

	"go.uber.org/goleak"

	"github.com/richinex/agentbook/runtimectx"
)

func TestMain(m *testing.M) {
	// Idle keep-alive connections of httptest clients may outlive a test.
	goleak.VerifyTestMain(m,
		goleak.IgnoreTopFunction("internal/poll.runtime_pollWait"),
		goleak.IgnoreTopFunction("net/http.(*persistConn).writeLoop"),
		goleak.IgnoreTopFunction("net/http.(*persistConn).readLoop"),
	)
}

// withContext builds tool arguments carrying rc under the reserved key.
func withContext(t *testing.T, rc runtimectx.Context, args map[string]any) json.RawMessage {
	t.Helper()
	serialized, err := runtimectx.Serialize(rc)
	if err != nil {
		t.Fatalf("Serialize failed: %v", err)
	}
	data, err := json.Marshal(runtimectx.InjectArgument(args, serialized))
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	return data
}

func rawArgs(t *testing.T, args map[string]any) json.RawMessage {
	t.Helper()
	data, err := json.Marshal(args)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	return data
}

// execute runs a tool and decodes its structured output.
func execute(t *testing.T, tool Tool, args json.RawMessage) map[string]any {
	t.Helper()
	result, err := tool.Execute(context.Background(), args)
	if err != nil {
		t.Fatalf("%s failed: %v", tool.Metadata().Name, err)
	}
	if !result.Success() {
		t.Fatalf("%s returned failure: %v", tool.Metadata().Name, result.Error)
	}
	var out map[string]any
	if err := json.Unmarshal([]byte(result.Output), &out); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, result.Output)
	}
	return out
}

func memoryContext() runtimectx.Context {
	return runtimectx.Context{Memory: &runtimectx.MemoryContext{
		Enabled:   true,
		UserID:    "user-1",
		AgentID:   "agent-1",
		AgentName: "Helper",
	}}
}

func findTool(t *testing.T, list []Tool, name string) Tool {
	t.Helper()
	for _, tool := range list {
		if tool.Metadata().Name == name {
			return tool
		}
	}
	t.Fatalf("tool %s not found", name)
	return nil
}
