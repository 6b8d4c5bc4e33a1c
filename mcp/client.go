// Package mcp derives Model Context Protocol server configuration from
// compiled agents and talks to stdio MCP servers.
//
// Information Hiding:
// - Process management hidden
// - JSON-RPC protocol details hidden
// - Request ID tracking hidden

package mcp

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sort"
	"sync"
)

// ProtocolVersion is the MCP revision announced during initialize.
const ProtocolVersion = "2024-11-05"

// ErrRemoteServer is returned when a stdio connection is requested for a
// server configured by URL.
var ErrRemoteServer = errors.New("remote MCP servers are not supported by the stdio client")

// Client communicates with an MCP server via JSON-RPC over stdin/stdout.
type Client struct {
	stdin     io.WriteCloser
	stdout    *bufio.Reader
	stop      func()
	requestID uint64
	mu        sync.Mutex
}

// mcpRequest is a JSON-RPC request to an MCP server.
type mcpRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      uint64 `json:"id"`
	Method  string `json:"method"`
	Params  any    `json:"params,omitempty"`
}

// mcpNotification is a JSON-RPC notification; it carries no id.
type mcpNotification struct {
	JSONRPC string `json:"jsonrpc"`
	Method  string `json:"method"`
}

// mcpResponse is a JSON-RPC response from an MCP server.
type mcpResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      *uint64         `json:"id,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *mcpError       `json:"error,omitempty"`
}

// mcpError is a JSON-RPC error.
type mcpError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// ToolInfo describes a tool available on the MCP server.
type ToolInfo struct {
	Name        string          `json:"name"`
	Description *string         `json:"description,omitempty"`
	InputSchema json.RawMessage `json:"inputSchema"`
}

// toolsListResult is the result of tools/list method.
type toolsListResult struct {
	Tools []ToolInfo `json:"tools"`
}

// Connect starts a stdio server and completes the initialize handshake.
func Connect(ctx context.Context, server ServerConfig) (*Client, error) {
	if server.IsRemote() {
		return nil, fmt.Errorf("%s: %w", server.URL, ErrRemoteServer)
	}

	cmd := exec.CommandContext(ctx, server.Command, server.Args...)
	if len(server.Env) > 0 {
		keys := make([]string, 0, len(server.Env))
		for k := range server.Env {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		cmd.Env = os.Environ()
		for _, k := range keys {
			cmd.Env = append(cmd.Env, k+"="+server.Env[k])
		}
	}

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to get stdin pipe: %w", err)
	}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		stdin.Close()
		return nil, fmt.Errorf("failed to get stdout pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		stdin.Close()
		return nil, fmt.Errorf("failed to start MCP server: %w", err)
	}

	return newClient(ctx, stdin, stdout, func() {
		if cmd.Process != nil {
			_ = cmd.Process.Kill()
			_ = cmd.Wait()
		}
	})
}

// newClient wraps an already running server and initializes it.
func newClient(ctx context.Context, stdin io.WriteCloser, stdout io.Reader, stop func()) (*Client, error) {
	client := &Client{
		stdin:  stdin,
		stdout: bufio.NewReader(stdout),
		stop:   stop,
	}
	if err := client.initialize(ctx); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to initialize MCP client: %w", err)
	}
	return client, nil
}

// initialize sends the initialize request followed by the initialized
// notification.
func (c *Client) initialize(ctx context.Context) error {
	params := map[string]any{
		"protocolVersion": ProtocolVersion,
		"capabilities":    map[string]any{},
		"clientInfo": map[string]any{
			"name":    "agentbook",
			"version": "0.1.0",
		},
	}

	if _, err := c.call(ctx, "initialize", params); err != nil {
		return err
	}
	return c.notify("notifications/initialized")
}

// ListTools returns all tools available on the MCP server.
func (c *Client) ListTools(ctx context.Context) ([]ToolInfo, error) {
	result, err := c.call(ctx, "tools/list", nil)
	if err != nil {
		return nil, err
	}

	var toolsResult toolsListResult
	if err := json.Unmarshal(result, &toolsResult); err != nil {
		return nil, fmt.Errorf("failed to parse tools list: %w", err)
	}

	return toolsResult.Tools, nil
}

// CallTool calls a tool on the MCP server with the given arguments.
func (c *Client) CallTool(ctx context.Context, name string, arguments json.RawMessage) (json.RawMessage, error) {
	if len(arguments) == 0 {
		arguments = json.RawMessage("{}")
	}
	params := map[string]any{
		"name":      name,
		"arguments": arguments,
	}

	return c.call(ctx, "tools/call", params)
}

func (c *Client) notify(method string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.write(mcpNotification{JSONRPC: "2.0", Method: method})
}

func (c *Client) write(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}
	if _, err := c.stdin.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("failed to write request: %w", err)
	}
	return nil
}

// call sends a JSON-RPC request and returns the result. Server
// notifications and responses to other ids are skipped.
func (c *Client) call(ctx context.Context, method string, params any) (json.RawMessage, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	c.requestID++
	id := c.requestID
	if err := c.write(mcpRequest{JSONRPC: "2.0", ID: id, Method: method, Params: params}); err != nil {
		return nil, err
	}

	for {
		line, err := c.stdout.ReadBytes('\n')
		if err != nil {
			return nil, fmt.Errorf("failed to read response: %w", err)
		}

		var response mcpResponse
		if err := json.Unmarshal(line, &response); err != nil {
			return nil, fmt.Errorf("failed to parse response: %w", err)
		}
		if response.ID == nil || *response.ID != id {
			continue
		}

		if response.Error != nil {
			return nil, fmt.Errorf("MCP error %d: %s", response.Error.Code, response.Error.Message)
		}
		return response.Result, nil
	}
}

// Close stops the MCP server process and releases resources.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.stdin != nil {
		c.stdin.Close()
	}
	if c.stop != nil {
		c.stop()
		c.stop = nil
	}
	return nil
}
