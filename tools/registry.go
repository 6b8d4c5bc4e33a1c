// Package tools provides tool management and registration.
//
// Information Hiding:
// - Tool storage and lookup implementation hidden
// - Tool lifecycle management hidden
// - Registration and discovery mechanisms abstracted

package tools

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/richinex/agentbook/model"
)

// ErrToolNotFound is returned when a call names an unregistered tool.
var ErrToolNotFound = errors.New("tool not found")

// Default timeout and output size constants for tools.
const (
	DefaultToolTimeout = 30     // seconds
	MaxOutputChars     = 40_000 // characters returned to the model
)

// Registry manages available tools with dynamic registration.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]Tool
}

// NewRegistry creates a new empty tool registry.
func NewRegistry() *Registry {
	return &Registry{
		tools: make(map[string]Tool),
	}
}

// NewRegistryWith creates a registry holding the given tools.
func NewRegistryWith(tools ...Tool) (*Registry, error) {
	registry := NewRegistry()
	for _, t := range tools {
		if err := registry.Register(t); err != nil {
			return nil, fmt.Errorf("failed to register tools: %w", err)
		}
	}
	return registry, nil
}

// Register adds a new tool to the registry.
// Returns error if a tool with the same name already exists or if its
// schema exposes the runtime context key.
func (r *Registry) Register(tool Tool) error {
	meta := tool.Metadata()
	if meta.Definition().DeclaresReservedKey() {
		return fmt.Errorf("tool '%s' declares reserved parameter %s", meta.Name, model.RuntimeContextArgumentKey)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.tools[meta.Name]; exists {
		return fmt.Errorf("tool '%s' already registered", meta.Name)
	}
	r.tools[meta.Name] = tool
	return nil
}

// Get returns a tool by name.
func (r *Registry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tool, exists := r.tools[name]
	return tool, exists
}

// Has checks if a tool exists in the registry.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, exists := r.tools[name]
	return exists
}

// Names returns all registered tool names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// List returns metadata for all registered tools, sorted by name.
func (r *Registry) List() []ToolMetadata {
	names := r.Names()

	r.mu.RLock()
	defer r.mu.RUnlock()

	metadata := make([]ToolMetadata, 0, len(names))
	for _, name := range names {
		if tool, ok := r.tools[name]; ok {
			metadata = append(metadata, tool.Metadata())
		}
	}
	return metadata
}

// Definitions returns the model-visible definitions, sorted by name.
func (r *Registry) Definitions() []model.ToolDefinition {
	list := r.List()
	defs := make([]model.ToolDefinition, len(list))
	for i, meta := range list {
		defs[i] = meta.Definition()
	}
	return defs
}

// Description returns a formatted description of all tools for LLM prompts.
func (r *Registry) Description() string {
	var descriptions []string
	for _, meta := range r.List() {
		var params []string
		for _, p := range meta.Parameters {
			required := "optional"
			if p.Required {
				required = "required"
			}
			params = append(params, fmt.Sprintf("  - %s (%s): %s [%s]",
				p.Name, p.ParamType, p.Description, required))
		}

		paramStr := strings.Join(params, "\n")
		descriptions = append(descriptions, fmt.Sprintf(
			"Tool: %s\nDescription: %s\nParameters:\n%s",
			meta.Name, meta.Description, paramStr))
	}

	return strings.Join(descriptions, "\n\n")
}
