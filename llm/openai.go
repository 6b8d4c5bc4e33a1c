// OpenAI request building using the go-openai types.
//
// Information Hiding:
// - Request format for the Chat Completions API
// - Tool call and tool result message shapes
// - DeepSeek reuses the same wire format

package llm

import (
	openai "github.com/sashabaranov/go-openai"

	"github.com/richinex/agentbook/model"
)

// NewOpenAIRequest builds a Chat Completions request for req. Sampling
// parameters OpenAI has no field for (top-k) are left out.
func NewOpenAIRequest(req model.Requirements, messages []ChatMessage) openai.ChatCompletionRequest {
	r := openai.ChatCompletionRequest{
		Model:    ProviderOpenAI.ModelFor(req),
		Messages: convertToOpenAIMessages(messages),
		Tools:    convertToOpenAITools(req.Tools),
	}
	if req.Temperature != nil {
		r.Temperature = float32(*req.Temperature)
	}
	if req.TopP != nil {
		r.TopP = float32(*req.TopP)
	}
	if req.MaxTokens != nil {
		r.MaxCompletionTokens = *req.MaxTokens
	}
	return r
}

// convertToOpenAIMessages handles tool calls and tool responses.
func convertToOpenAIMessages(messages []ChatMessage) []openai.ChatCompletionMessage {
	result := make([]openai.ChatCompletionMessage, len(messages))
	for i, msg := range messages {
		oaiMsg := openai.ChatCompletionMessage{
			Role:    msg.Role,
			Content: msg.Content,
		}

		for _, tc := range msg.ToolCalls {
			oaiMsg.ToolCalls = append(oaiMsg.ToolCalls, openai.ToolCall{
				ID:   tc.ID,
				Type: openai.ToolTypeFunction,
				Function: openai.FunctionCall{
					Name:      tc.Name,
					Arguments: string(tc.Arguments),
				},
			})
		}

		if msg.ToolCallID != "" {
			oaiMsg.ToolCallID = msg.ToolCallID
		}

		result[i] = oaiMsg
	}
	return result
}

// convertToOpenAITools converts tool definitions to OpenAI format.
func convertToOpenAITools(tools []model.ToolDefinition) []openai.Tool {
	if len(tools) == 0 {
		return nil
	}
	result := make([]openai.Tool, len(tools))
	for i, t := range tools {
		result[i] = openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  t.Parameters,
			},
		}
	}
	return result
}
