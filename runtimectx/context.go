// Package runtimectx carries hidden data from the orchestrator to tool
// implementations.
//
// The model only ever sees tool schemas. Identity, credentials and location
// travel next to the call arguments under a reserved key that no schema
// declares; tools read them back with FromArguments.
package runtimectx

import (
	"encoding/json"
	"strings"

	"github.com/richinex/agentbook/model"
)

// PromptParameterName is the prompt parameter holding the serialized context.
const PromptParameterName = "toolRuntimeContext"

// ArgumentKey is the hidden tool-argument key holding the serialized context.
const ArgumentKey = model.RuntimeContextArgumentKey

// Context is the hidden side-channel available to tools.
type Context struct {
	Memory       *MemoryContext   `json:"memory,omitempty"`
	UserLocation *UserLocation    `json:"userLocation,omitempty"`
	Projects     *ProjectsContext `json:"projects,omitempty"`
	Wallet       *WalletContext   `json:"wallet,omitempty"`
}

// MemoryContext identifies who is talking to which agent.
type MemoryContext struct {
	Enabled            bool   `json:"enabled"`
	UserID             string `json:"userId,omitempty"`
	Username           string `json:"username,omitempty"`
	AgentID            string `json:"agentId,omitempty"`
	AgentName          string `json:"agentName,omitempty"`
	IsTeamConversation bool   `json:"isTeamConversation,omitempty"`
	IsPrivateMode      bool   `json:"isPrivateMode,omitempty"`
}

// ProjectsContext holds the GitHub credential and the repository allow-list.
type ProjectsContext struct {
	GitHubToken  string                   `json:"githubToken,omitempty"`
	Repositories []model.ProjectReference `json:"repositories,omitempty"`
}

// WalletContext scopes wallet tools. Identity comes from Memory when present.
type WalletContext struct {
	Enabled bool   `json:"enabled"`
	UserID  string `json:"userId,omitempty"`
	AgentID string `json:"agentId,omitempty"`
}

// Serialize encodes the context for the reserved prompt parameter.
func Serialize(c Context) (string, error) {
	data, err := json.Marshal(c)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// Parse decodes a serialized context. Missing or malformed payloads yield nil.
func Parse(raw string) *Context {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw[0] != '{' {
		return nil
	}
	var c Context
	if err := json.Unmarshal([]byte(raw), &c); err != nil {
		return nil
	}
	return &c
}

// FromArguments reads the context injected into tool arguments. The value may
// be the serialized string or an already decoded object. Anything else
// yields nil.
func FromArguments(args map[string]any) *Context {
	if args == nil {
		return nil
	}
	switch v := args[ArgumentKey].(type) {
	case string:
		return Parse(v)
	case map[string]any:
		data, err := json.Marshal(v)
		if err != nil {
			return nil
		}
		return Parse(string(data))
	case *Context:
		return v
	case Context:
		return &v
	default:
		return nil
	}
}

// InjectArgument returns a copy of args carrying the serialized context under
// the reserved key. An empty payload leaves the key absent.
func InjectArgument(args map[string]any, serialized string) map[string]any {
	out := make(map[string]any, len(args)+1)
	for k, v := range args {
		if k != ArgumentKey {
			out[k] = v
		}
	}
	if serialized != "" {
		out[ArgumentKey] = serialized
	}
	return out
}

// StripArgument returns a copy of args without the reserved key.
func StripArgument(args map[string]any) map[string]any {
	return InjectArgument(args, "")
}

// ProjectsFromRequirements builds the projects context for a compiled agent.
func ProjectsFromRequirements(req model.Requirements, githubToken string) *ProjectsContext {
	if len(req.Projects) == 0 && githubToken == "" {
		return nil
	}
	return &ProjectsContext{
		GitHubToken:  githubToken,
		Repositories: append([]model.ProjectReference(nil), req.Projects...),
	}
}
