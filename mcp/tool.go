// MCP tool bridge: exposes server tools through the tools.Tool interface.
//
// Information Hiding:
// - MCP client lifecycle hidden
// - Schema parsing hidden
// - Runtime context stripped before arguments leave the process

package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/richinex/agentbook/runtimectx"
	"github.com/richinex/agentbook/tools"
)

// ToolManager manages a set of MCP tools sharing a single client.
// The caller must call Close() when done to release resources.
type ToolManager struct {
	client *Client
	tools  []tools.Tool
}

// Tools returns the discovered tools.
func (m *ToolManager) Tools() []tools.Tool {
	return m.tools
}

// Close closes the MCP client and releases resources.
func (m *ToolManager) Close() error {
	if m.client != nil {
		return m.client.Close()
	}
	return nil
}

// Discover connects to server and wraps every tool it lists.
//
//	manager, err := mcp.Discover(ctx, server)
//	if err != nil {
//	    return err
//	}
//	defer manager.Close()
func Discover(ctx context.Context, server ServerConfig) (*ToolManager, error) {
	client, err := Connect(ctx, server)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MCP server: %w", err)
	}
	return discover(ctx, client)
}

func discover(ctx context.Context, client *Client) (*ToolManager, error) {
	toolInfos, err := client.ListTools(ctx)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to list tools: %w", err)
	}

	result := make([]tools.Tool, len(toolInfos))
	for i, info := range toolInfos {
		result[i] = &remoteTool{
			client:      client,
			toolName:    info.Name,
			description: stringValue(info.Description),
			inputSchema: info.InputSchema,
		}
	}

	return &ToolManager{
		client: client,
		tools:  result,
	}, nil
}

// stringValue returns empty string for nil pointers.
func stringValue(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// remoteTool wraps one tool of a connected server.
type remoteTool struct {
	tools.BaseTool
	client      *Client
	toolName    string
	description string
	inputSchema json.RawMessage
}

// Metadata returns the tool metadata extracted from the MCP schema.
func (w *remoteTool) Metadata() tools.ToolMetadata {
	return tools.ToolMetadata{
		Name:        w.toolName,
		Title:       w.toolName,
		Description: w.description,
		Parameters:  parseParameters(w.inputSchema),
	}
}

// Execute calls the MCP tool. The hidden runtime context never reaches the
// server.
func (w *remoteTool) Execute(ctx context.Context, args json.RawMessage) (tools.ToolResult, error) {
	if len(args) > 0 {
		var raw map[string]any
		if err := json.Unmarshal(args, &raw); err != nil {
			return tools.ToolResult{}, fmt.Errorf("invalid arguments: %w", err)
		}
		stripped, err := json.Marshal(runtimectx.StripArgument(raw))
		if err != nil {
			return tools.ToolResult{}, fmt.Errorf("invalid arguments: %w", err)
		}
		args = stripped
	}

	result, err := w.client.CallTool(ctx, w.toolName, args)
	if err != nil {
		return tools.ToolResult{}, fmt.Errorf("tool call failed: %w", err)
	}

	return formatResult(result), nil
}

// callResult is the tools/call result shape.
type callResult struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	IsError bool `json:"isError"`
}

// formatResult joins the text content of a tools/call result. Results
// without text content are passed through as JSON.
func formatResult(result json.RawMessage) tools.ToolResult {
	var r callResult
	if err := json.Unmarshal(result, &r); err != nil {
		return tools.SuccessResult(string(result))
	}

	var texts []string
	for _, c := range r.Content {
		if c.Type == "text" {
			texts = append(texts, c.Text)
		}
	}
	output := strings.Join(texts, "\n")
	if len(texts) == 0 {
		output = string(result)
	}

	if r.IsError {
		return tools.ToolResult{Output: output, Error: fmt.Errorf("MCP tool reported an error: %s", output)}
	}
	return tools.SuccessResult(output)
}

// parseParameters extracts tool parameters from the JSON schema.
// Returns parameters in sorted order for deterministic output.
func parseParameters(inputSchema json.RawMessage) []tools.ToolParameter {
	var schema struct {
		Properties map[string]struct {
			Type        string   `json:"type"`
			Description string   `json:"description"`
			Enum        []string `json:"enum"`
		} `json:"properties"`
		Required []string `json:"required"`
	}

	if err := json.Unmarshal(inputSchema, &schema); err != nil {
		return nil
	}

	requiredSet := make(map[string]bool)
	for _, r := range schema.Required {
		requiredSet[r] = true
	}

	names := make([]string, 0, len(schema.Properties))
	for name := range schema.Properties {
		if name == runtimectx.ArgumentKey {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)

	params := make([]tools.ToolParameter, 0, len(names))
	for _, name := range names {
		prop := schema.Properties[name]
		paramType := prop.Type
		if paramType == "" {
			paramType = "string"
		}

		params = append(params, tools.ToolParameter{
			Name:        name,
			Description: prop.Description,
			ParamType:   paramType,
			Required:    requiredSet[name],
			Enum:        prop.Enum,
		})
	}

	return params
}
