// Provider selection and request building.
//
// Information Hiding:
// - Provider SDK request types hidden behind BuildRequest
// - Mapping of sampling parameters per provider
// - Default model choice per provider

package llm

import (
	"fmt"
	"strings"

	"github.com/richinex/agentbook/model"
)

// ProviderType represents supported LLM providers.
type ProviderType int

const (
	// ProviderOpenAI is the OpenAI provider (GPT models).
	ProviderOpenAI ProviderType = iota
	// ProviderAnthropic is the Anthropic provider (Claude models).
	ProviderAnthropic
	// ProviderDeepSeek is the DeepSeek provider (OpenAI-compatible API).
	ProviderDeepSeek
	// ProviderGemini is the Google Gemini provider.
	ProviderGemini
)

// Default model identifiers used when a book does not name a model.
const (
	ModelOpenAIGPT41            = model.DefaultModelName
	ModelAnthropicClaudeSonnet4 = "claude-sonnet-4-20250514"
	ModelDeepSeekChat           = "deepseek-chat"
	ModelGeminiFlash25          = "gemini-2.5-flash"
)

// DefaultMaxTokens is the completion limit for providers that require one.
const DefaultMaxTokens = 4096

// String returns the string representation of the provider type.
func (p ProviderType) String() string {
	switch p {
	case ProviderOpenAI:
		return "openai"
	case ProviderAnthropic:
		return "anthropic"
	case ProviderDeepSeek:
		return "deepseek"
	case ProviderGemini:
		return "gemini"
	default:
		return "unknown"
	}
}

// DefaultModel returns the default model for this provider.
func (p ProviderType) DefaultModel() string {
	switch p {
	case ProviderOpenAI:
		return ModelOpenAIGPT41
	case ProviderAnthropic:
		return ModelAnthropicClaudeSonnet4
	case ProviderDeepSeek:
		return ModelDeepSeekChat
	case ProviderGemini:
		return ModelGeminiFlash25
	default:
		return ""
	}
}

// ParseProviderType parses a provider from string (case-insensitive).
func ParseProviderType(s string) (ProviderType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "openai", "gpt":
		return ProviderOpenAI, nil
	case "anthropic", "claude":
		return ProviderAnthropic, nil
	case "deepseek":
		return ProviderDeepSeek, nil
	case "gemini", "google":
		return ProviderGemini, nil
	default:
		return 0, fmt.Errorf("unknown provider: %s", s)
	}
}

// ModelFor returns the model to request: the one the book named, or the
// provider default when the book kept the compiler default.
func (p ProviderType) ModelFor(req model.Requirements) string {
	if req.IsExplicit(model.ParamModelName) && req.ModelName != "" {
		return req.ModelName
	}
	return p.DefaultModel()
}

// BuildRequest builds the request body p expects for a conversation with
// the compiled agent. The result marshals to the provider's JSON.
func BuildRequest(p ProviderType, req model.Requirements, messages []ChatMessage) (any, error) {
	switch p {
	case ProviderOpenAI, ProviderDeepSeek:
		r := NewOpenAIRequest(req, messages)
		r.Model = p.ModelFor(req)
		return r, nil
	case ProviderAnthropic:
		return NewAnthropicParams(req, messages), nil
	case ProviderGemini:
		return NewGeminiRequest(req, messages), nil
	default:
		return nil, fmt.Errorf("unknown provider type: %v", p)
	}
}
