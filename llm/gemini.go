// Gemini request building using the official google.golang.org/genai types.
//
// Information Hiding:
// - Content and role mapping for the Gemini API
// - System instruction carried in the generation config
// - JSON schema to Gemini schema conversion

package llm

import (
	"encoding/json"

	"google.golang.org/genai"

	"github.com/richinex/agentbook/model"
)

// GeminiRequest is the argument set of Models.GenerateContent.
type GeminiRequest struct {
	Model    string                       `json:"model"`
	Contents []*genai.Content             `json:"contents"`
	Config   *genai.GenerateContentConfig `json:"config"`
}

// NewGeminiRequest builds a GenerateContent request for req.
func NewGeminiRequest(req model.Requirements, messages []ChatMessage) GeminiRequest {
	systemInstruction, rest := splitSystem(messages)

	config := &genai.GenerateContentConfig{
		Tools: convertToGeminiTools(req.Tools),
	}
	if req.Temperature != nil {
		config.Temperature = genai.Ptr(float32(*req.Temperature))
	}
	if req.TopP != nil {
		config.TopP = genai.Ptr(float32(*req.TopP))
	}
	if req.TopK != nil {
		config.TopK = genai.Ptr(float32(*req.TopK))
	}
	if req.MaxTokens != nil {
		config.MaxOutputTokens = int32(*req.MaxTokens)
	}
	if systemInstruction != "" {
		config.SystemInstruction = genai.NewContentFromText(systemInstruction, genai.RoleUser)
	}

	return GeminiRequest{
		Model:    ProviderGemini.ModelFor(req),
		Contents: convertToGeminiMessages(rest),
		Config:   config,
	}
}

// convertToGeminiMessages handles tool calls and tool responses.
func convertToGeminiMessages(messages []ChatMessage) []*genai.Content {
	var contents []*genai.Content

	for _, msg := range messages {
		switch msg.Role {
		case RoleUser:
			contents = append(contents, genai.NewContentFromText(msg.Content, genai.RoleUser))
		case RoleAssistant:
			if len(msg.ToolCalls) == 0 {
				contents = append(contents, genai.NewContentFromText(msg.Content, genai.RoleModel))
				continue
			}
			content := &genai.Content{Role: genai.RoleModel}
			if msg.Content != "" {
				content.Parts = append(content.Parts, &genai.Part{Text: msg.Content})
			}
			for _, tc := range msg.ToolCalls {
				var args map[string]any
				_ = json.Unmarshal(tc.Arguments, &args)
				content.Parts = append(content.Parts, &genai.Part{
					FunctionCall: &genai.FunctionCall{
						ID:   tc.ID,
						Name: tc.Name,
						Args: args,
					},
				})
			}
			contents = append(contents, content)
		case RoleTool:
			var result map[string]any
			_ = json.Unmarshal([]byte(msg.Content), &result)
			if result == nil {
				result = map[string]any{"result": msg.Content}
			}
			name := msg.ToolName
			if name == "" {
				name = msg.ToolCallID
			}
			// Gemini expects tool results in a user turn.
			contents = append(contents, &genai.Content{
				Role: genai.RoleUser,
				Parts: []*genai.Part{{
					FunctionResponse: &genai.FunctionResponse{
						ID:       msg.ToolCallID,
						Name:     name,
						Response: result,
					},
				}},
			})
		}
	}

	return contents
}

// convertToGeminiTools converts tool definitions to Gemini format.
func convertToGeminiTools(tools []model.ToolDefinition) []*genai.Tool {
	if len(tools) == 0 {
		return nil
	}

	declarations := make([]*genai.FunctionDeclaration, 0, len(tools))
	for _, t := range tools {
		declarations = append(declarations, &genai.FunctionDeclaration{
			Name:        t.Name,
			Description: t.Description,
			Parameters:  convertToGeminiSchema(t.Parameters),
		})
	}

	return []*genai.Tool{{FunctionDeclarations: declarations}}
}

// convertToGeminiSchema recursively converts a JSON schema to Gemini format.
// Arrays always get an items schema because Gemini rejects arrays without one.
func convertToGeminiSchema(params map[string]any) *genai.Schema {
	schema := &genai.Schema{Type: genai.TypeObject}
	if t, ok := params["type"].(string); ok {
		schema.Type = mapToGeminiType(t)
	}
	if d, ok := params["description"].(string); ok {
		schema.Description = d
	}
	schema.Required = requiredFields(params)

	switch v := params["enum"].(type) {
	case []string:
		schema.Enum = v
	case []any:
		for _, item := range v {
			if s, ok := item.(string); ok {
				schema.Enum = append(schema.Enum, s)
			}
		}
	}

	switch schema.Type {
	case genai.TypeArray:
		if items, ok := params["items"].(map[string]any); ok {
			schema.Items = convertToGeminiSchema(items)
		} else {
			schema.Items = &genai.Schema{Type: genai.TypeString}
		}
	case genai.TypeObject:
		if props, ok := params["properties"].(map[string]any); ok {
			schema.Properties = make(map[string]*genai.Schema, len(props))
			for name, prop := range props {
				if propMap, ok := prop.(map[string]any); ok {
					schema.Properties[name] = convertToGeminiSchema(propMap)
				}
			}
		}
	}

	return schema
}

// mapToGeminiType maps JSON schema type to Gemini type.
func mapToGeminiType(t string) genai.Type {
	switch t {
	case "string":
		return genai.TypeString
	case "integer":
		return genai.TypeInteger
	case "number":
		return genai.TypeNumber
	case "boolean":
		return genai.TypeBoolean
	case "array":
		return genai.TypeArray
	case "object":
		return genai.TypeObject
	default:
		return genai.TypeString
	}
}
