package mcp

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"go.uber.org/goleak"

	"github.com/richinex/agentbook/model"
	"github.com/richinex/agentbook/runtimectx"
)

func TestParseServer(t *testing.T) {
	remote, err := ParseServer("https://mcp.example.com/sse")
	if err != nil || !remote.IsRemote() {
		t.Fatalf("expected remote server, got %+v, %v", remote, err)
	}

	local, err := ParseServer("  npx -y @modelcontextprotocol/server-filesystem /tmp ")
	if err != nil {
		t.Fatalf("ParseServer failed: %v", err)
	}
	want := ServerConfig{Command: "npx", Args: []string{"-y", "@modelcontextprotocol/server-filesystem", "/tmp"}}
	if !reflect.DeepEqual(local, want) {
		t.Errorf("got %+v, want %+v", local, want)
	}
	if local.String() != "npx -y @modelcontextprotocol/server-filesystem /tmp" {
		t.Errorf("String() = %q", local.String())
	}

	if _, err := ParseServer("   "); err == nil {
		t.Error("expected error for empty reference")
	}
	if _, err := ParseServer("https://"); err == nil {
		t.Error("expected error for url without host")
	}
}

func TestFromRequirements(t *testing.T) {
	req := model.Default().
		WithMCPServer("https://mcp.example.com/sse").
		WithMCPServer("npx -y @modelcontextprotocol/server-memory").
		WithMCPServer("uvx server-memory").
		WithMCPServer("https://")

	config, errs := FromRequirements(req)
	if len(errs) != 1 {
		t.Errorf("expected one invalid reference, got %v", errs)
	}

	wantNames := []string{"mcp-example-com", "server-memory", "server-memory-2"}
	if got := config.Names(); !reflect.DeepEqual(got, wantNames) {
		t.Fatalf("names = %v, want %v", got, wantNames)
	}
	if config.MCPServers["server-memory-2"].Command != "uvx" {
		t.Errorf("second memory server = %+v", config.MCPServers["server-memory-2"])
	}

	commands := config.ServerCommands()
	want := []string{"npx -y @modelcontextprotocol/server-memory", "uvx server-memory"}
	if !reflect.DeepEqual(commands, want) {
		t.Errorf("ServerCommands() = %v, want %v", commands, want)
	}
}

func TestLoadConfigAndMerge(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mcp.json")
	data := `{"mcpServers":{"server-memory":{"command":"docker","args":["run","memory"]},"github":{"url":"https://api.githubcopilot.com/mcp/"}}}`
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatal(err)
	}

	host, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	book, _ := FromRequirements(model.Default().WithMCPServer("npx server-memory"))
	merged := book.Merge(*host)

	if got := merged.Names(); !reflect.DeepEqual(got, []string{"github", "server-memory"}) {
		t.Fatalf("merged names = %v", got)
	}
	if merged.MCPServers["server-memory"].Command != "npx" {
		t.Error("servers from the book must win over the host file")
	}

	if _, err := LoadConfig(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestConnectRejectsRemote(t *testing.T) {
	_, err := Connect(context.Background(), ServerConfig{URL: "https://mcp.example.com"})
	if !errors.Is(err, ErrRemoteServer) {
		t.Errorf("expected ErrRemoteServer, got %v", err)
	}
}

// fakeServer answers initialize, tools/list and tools/call over pipes.
// tools/call echoes its arguments; the tool named "fail" reports an error.
func fakeServer(t *testing.T) (io.WriteCloser, io.Reader) {
	t.Helper()
	inR, inW := io.Pipe()
	outR, outW := io.Pipe()

	go func() {
		defer outW.Close()
		scanner := bufio.NewScanner(inR)
		for scanner.Scan() {
			var req struct {
				ID     *uint64 `json:"id"`
				Method string  `json:"method"`
				Params struct {
					Name      string          `json:"name"`
					Arguments json.RawMessage `json:"arguments"`
				} `json:"params"`
			}
			if err := json.Unmarshal(scanner.Bytes(), &req); err != nil || req.ID == nil {
				continue
			}

			var result any
			switch req.Method {
			case "initialize":
				result = map[string]any{"protocolVersion": ProtocolVersion}
			case "tools/list":
				// A notification before the response must be skipped.
				_, _ = outW.Write([]byte(`{"jsonrpc":"2.0","method":"notifications/progress"}` + "\n"))
				result = map[string]any{"tools": []any{
					map[string]any{
						"name":        "echo",
						"description": "Echo the arguments",
						"inputSchema": map[string]any{
							"type": "object",
							"properties": map[string]any{
								"text": map[string]any{"type": "string", "description": "Text to echo"},
								"mode": map[string]any{"type": "string", "enum": []string{"plain", "loud"}},
							},
							"required": []string{"text"},
						},
					},
					map[string]any{"name": "fail", "inputSchema": map[string]any{"type": "object"}},
				}}
			case "tools/call":
				result = map[string]any{
					"content": []any{map[string]any{"type": "text", "text": string(req.Params.Arguments)}},
					"isError": req.Params.Name == "fail",
				}
			default:
				resp, _ := json.Marshal(map[string]any{"jsonrpc": "2.0", "id": *req.ID, "error": map[string]any{"code": -32601, "message": "method not found"}})
				_, _ = outW.Write(append(resp, '\n'))
				continue
			}
			resp, _ := json.Marshal(map[string]any{"jsonrpc": "2.0", "id": *req.ID, "result": result})
			if _, err := outW.Write(append(resp, '\n')); err != nil {
				return
			}
		}
	}()

	return inW, outR
}

func TestDiscoverAndExecute(t *testing.T) {
	defer goleak.VerifyNone(t)

	ctx := context.Background()
	stdin, stdout := fakeServer(t)
	client, err := newClient(ctx, stdin, stdout, nil)
	if err != nil {
		t.Fatalf("newClient failed: %v", err)
	}
	manager, err := discover(ctx, client)
	if err != nil {
		t.Fatalf("discover failed: %v", err)
	}
	defer manager.Close()

	discovered := manager.Tools()
	if len(discovered) != 2 {
		t.Fatalf("expected 2 tools, got %d", len(discovered))
	}

	echo := discovered[0]
	meta := echo.Metadata()
	if meta.Name != "echo" || len(meta.Parameters) != 2 {
		t.Fatalf("unexpected metadata: %+v", meta)
	}
	if p := meta.Parameters[1]; p.Name != "text" || !p.Required {
		t.Errorf("text parameter = %+v", p)
	}
	if p := meta.Parameters[0]; !reflect.DeepEqual(p.Enum, []string{"plain", "loud"}) {
		t.Errorf("mode enum = %v", p.Enum)
	}

	args, _ := json.Marshal(map[string]any{"text": "hi", runtimectx.ArgumentKey: `{"memory":{"enabled":true}}`})
	result, err := echo.Execute(ctx, args)
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if !strings.Contains(result.Output, `"text":"hi"`) {
		t.Errorf("output = %q", result.Output)
	}
	if strings.Contains(result.Output, runtimectx.ArgumentKey) {
		t.Error("runtime context leaked to the MCP server")
	}

	failed, err := discovered[1].Execute(ctx, nil)
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if failed.Success() {
		t.Error("isError result must be a failure")
	}
}

func TestClientRPCError(t *testing.T) {
	defer goleak.VerifyNone(t)

	ctx := context.Background()
	stdin, stdout := fakeServer(t)
	client, err := newClient(ctx, stdin, stdout, nil)
	if err != nil {
		t.Fatalf("newClient failed: %v", err)
	}
	defer client.Close()

	if _, err := client.call(ctx, "resources/list", nil); err == nil || !strings.Contains(err.Error(), "-32601") {
		t.Errorf("expected JSON-RPC error, got %v", err)
	}
}
