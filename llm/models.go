// Package llm turns compiled requirements into provider-specific requests.
package llm

import (
	"encoding/json"
	"strings"

	"github.com/richinex/agentbook/model"
)

// Chat roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// ChatMessage represents a chat message with role and content.
type ChatMessage struct {
	Role       string     `json:"role"`
	Content    string     `json:"content"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`   // For assistant messages with tool calls
	ToolCallID string     `json:"tool_call_id,omitempty"` // For tool result messages
	ToolName   string     `json:"tool_name,omitempty"`    // For tool result messages
}

// ToolCall represents a tool call from the LLM.
type ToolCall struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

// SystemMessage creates a system message.
func SystemMessage(content string) ChatMessage {
	return ChatMessage{Role: RoleSystem, Content: content}
}

// UserMessage creates a user message.
func UserMessage(content string) ChatMessage {
	return ChatMessage{Role: RoleUser, Content: content}
}

// AssistantMessage creates an assistant message.
func AssistantMessage(content string) ChatMessage {
	return ChatMessage{Role: RoleAssistant, Content: content}
}

// ToolMessage creates the result message of a tool call.
func ToolMessage(call ToolCall, content string) ChatMessage {
	return ChatMessage{Role: RoleTool, Content: content, ToolCallID: call.ID, ToolName: call.Name}
}

// Conversation builds the message list for req: the system message,
// samples with a question as example exchanges, then history. Samples
// without a question are listed at the end of the system message.
func Conversation(req model.Requirements, history ...ChatMessage) []ChatMessage {
	system := req.SystemMessage
	var answers []string
	var shots []ChatMessage
	for _, s := range req.Samples {
		if s.Question == "" {
			answers = append(answers, "- "+s.Answer)
			continue
		}
		shots = append(shots, UserMessage(s.Question))
		if s.Answer != "" {
			shots = append(shots, AssistantMessage(s.Answer))
		}
	}
	if len(answers) > 0 {
		examples := "Examples of how you answer:\n" + strings.Join(answers, "\n")
		if system != "" {
			system += "\n\n"
		}
		system += examples
	}

	var messages []ChatMessage
	if system != "" {
		messages = append(messages, SystemMessage(system))
	}
	messages = append(messages, shots...)
	return append(messages, history...)
}

// splitSystem separates the system prompt from the other messages.
func splitSystem(messages []ChatMessage) (string, []ChatMessage) {
	var system []string
	rest := make([]ChatMessage, 0, len(messages))
	for _, msg := range messages {
		if msg.Role == RoleSystem {
			system = append(system, msg.Content)
			continue
		}
		rest = append(rest, msg)
	}
	return strings.Join(system, "\n\n"), rest
}
