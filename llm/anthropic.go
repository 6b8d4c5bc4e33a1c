// Anthropic request building using the official anthropic-sdk-go types.
//
// Information Hiding:
// - Request format for the Anthropic Messages API
// - System prompt carried outside the message list
// - Tool results sent back as user turns

package llm

import (
	"encoding/json"

	"github.com/anthropics/anthropic-sdk-go"

	"github.com/richinex/agentbook/model"
)

// NewAnthropicParams builds Messages API parameters for req. Anthropic
// requires a completion limit, so DefaultMaxTokens fills in when the book
// sets none.
func NewAnthropicParams(req model.Requirements, messages []ChatMessage) anthropic.MessageNewParams {
	systemPrompt, rest := splitSystem(messages)

	maxTokens := int64(DefaultMaxTokens)
	if req.MaxTokens != nil {
		maxTokens = int64(*req.MaxTokens)
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(ProviderAnthropic.ModelFor(req)),
		MaxTokens: maxTokens,
		Messages:  convertToAnthropicMessages(rest),
		Tools:     convertToAnthropicTools(req.Tools),
	}
	if systemPrompt != "" {
		params.System = []anthropic.TextBlockParam{
			{Text: systemPrompt},
		}
	}
	if req.Temperature != nil {
		params.Temperature = anthropic.Float(*req.Temperature)
	}
	if req.TopP != nil {
		params.TopP = anthropic.Float(*req.TopP)
	}
	if req.TopK != nil {
		params.TopK = anthropic.Int(int64(*req.TopK))
	}
	return params
}

// convertToAnthropicMessages handles tool calls and tool responses.
func convertToAnthropicMessages(messages []ChatMessage) []anthropic.MessageParam {
	var anthropicMessages []anthropic.MessageParam

	for _, msg := range messages {
		switch msg.Role {
		case RoleUser:
			anthropicMessages = append(anthropicMessages, anthropic.NewUserMessage(
				anthropic.NewTextBlock(msg.Content),
			))
		case RoleAssistant:
			if len(msg.ToolCalls) == 0 {
				anthropicMessages = append(anthropicMessages, anthropic.NewAssistantMessage(
					anthropic.NewTextBlock(msg.Content),
				))
				continue
			}
			content := anthropic.MessageParam{
				Role: anthropic.MessageParamRoleAssistant,
			}
			if msg.Content != "" {
				content.Content = append(content.Content, anthropic.NewTextBlock(msg.Content))
			}
			for _, tc := range msg.ToolCalls {
				var input map[string]any
				_ = json.Unmarshal(tc.Arguments, &input)
				content.Content = append(content.Content, anthropic.ContentBlockParamUnion{
					OfToolUse: &anthropic.ToolUseBlockParam{
						ID:    tc.ID,
						Name:  tc.Name,
						Input: input,
					},
				})
			}
			anthropicMessages = append(anthropicMessages, content)
		case RoleTool:
			anthropicMessages = append(anthropicMessages, anthropic.NewUserMessage(
				anthropic.NewToolResultBlock(msg.ToolCallID, msg.Content, false),
			))
		}
	}

	return anthropicMessages
}

// convertToAnthropicTools converts tool definitions to Anthropic format.
func convertToAnthropicTools(tools []model.ToolDefinition) []anthropic.ToolUnionParam {
	if len(tools) == 0 {
		return nil
	}
	result := make([]anthropic.ToolUnionParam, len(tools))
	for i, t := range tools {
		properties, _ := t.Parameters["properties"].(map[string]any)

		toolParam := anthropic.ToolParam{
			Name:        t.Name,
			Description: anthropic.String(t.Description),
			InputSchema: anthropic.ToolInputSchemaParam{
				Properties: properties,
				Required:   requiredFields(t.Parameters),
			},
		}
		result[i] = anthropic.ToolUnionParam{OfTool: &toolParam}
	}
	return result
}

// requiredFields reads the schema's required list, which is []string when
// built in code and []any after a JSON round trip.
func requiredFields(schema map[string]any) []string {
	switch v := schema["required"].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}
