// Package model provides domain types shared across packages.
package model

import "strings"

// RuntimeContextArgumentKey is the reserved tool-argument key that carries the
// serialized runtime context into tool implementations. No tool schema may
// declare it.
const RuntimeContextArgumentKey = "__toolRuntimeContext"

// ToolDefinition is the part of a tool that is visible to the model.
type ToolDefinition struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"` // JSON Schema
}

// withoutReservedKey returns a copy of the definition whose schema does not
// mention the runtime context key.
func (d ToolDefinition) withoutReservedKey() ToolDefinition {
	if d.Parameters == nil {
		return d
	}
	params := make(map[string]any, len(d.Parameters))
	for k, v := range d.Parameters {
		params[k] = v
	}
	if props, ok := params["properties"].(map[string]any); ok {
		if _, exists := props[RuntimeContextArgumentKey]; exists {
			cleaned := make(map[string]any, len(props))
			for k, v := range props {
				if k != RuntimeContextArgumentKey {
					cleaned[k] = v
				}
			}
			params["properties"] = cleaned
		}
	}
	if required := requiredNames(params["required"]); required != nil {
		kept := make([]string, 0, len(required))
		for _, name := range required {
			if name != RuntimeContextArgumentKey {
				kept = append(kept, name)
			}
		}
		params["required"] = kept
	}
	d.Parameters = params
	return d
}

// DeclaresReservedKey reports whether the schema exposes the runtime context key.
func (d ToolDefinition) DeclaresReservedKey() bool {
	if props, ok := d.Parameters["properties"].(map[string]any); ok {
		if _, exists := props[RuntimeContextArgumentKey]; exists {
			return true
		}
	}
	for _, name := range requiredNames(d.Parameters["required"]) {
		if name == RuntimeContextArgumentKey {
			return true
		}
	}
	return false
}

// requiredNames reads a schema "required" list built in Go or decoded from JSON.
func requiredNames(v any) []string {
	switch list := v.(type) {
	case []string:
		return list
	case []any:
		names := make([]string, 0, len(list))
		for _, item := range list {
			if s, ok := item.(string); ok {
				names = append(names, s)
			}
		}
		return names
	default:
		return nil
	}
}

// Sample is one example exchange taught to the agent.
type Sample struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// ProjectReference is a GitHub repository an agent may touch.
type ProjectReference struct {
	URL           string `json:"url"`
	Slug          string `json:"slug"` // owner/repo
	DefaultBranch string `json:"defaultBranch,omitempty"`
}

// SameRepository reports whether two references point at the same repository.
func (p ProjectReference) SameRepository(other ProjectReference) bool {
	return strings.EqualFold(p.Slug, other.Slug)
}

// SegmentKind classifies system message segments for rendering.
type SegmentKind string

const (
	// SegmentPersona is rendered at the beginning of the system message.
	SegmentPersona SegmentKind = "persona"
	// SegmentText is rendered in source order.
	SegmentText SegmentKind = "text"
	// SegmentDictionary is rendered in a dedicated section at the end.
	SegmentDictionary SegmentKind = "dictionary"
)

// Segment is one rendered piece of the system message. Segments are numbered
// in the order they were added so that modifiers can find exactly what a
// commitment appended.
//
// Anchored sections (persona, dictionary) keep one Part per contribution
// under a shared Heading; each part carries its own Seq and Important flag.
type Segment struct {
	Seq       int         `json:"seq"`
	Kind      SegmentKind `json:"kind"`
	Source    string      `json:"source"`        // commitment type
	Key       string      `json:"key,omitempty"` // set for segments that must appear once
	Text      string      `json:"text"`
	Heading   string      `json:"heading,omitempty"`
	Parts     []Part      `json:"parts,omitempty"`
	Important bool        `json:"important,omitempty"`
}

// Part is one contribution to an anchored section.
type Part struct {
	Seq       int    `json:"seq"`
	Text      string `json:"text"`
	Important bool   `json:"important,omitempty"`
}

// Render returns the segment as it appears in the system message.
func (s Segment) Render() string {
	if len(s.Parts) > 0 {
		lines := make([]string, 0, len(s.Parts)+1)
		lines = append(lines, s.Heading)
		for _, p := range s.Parts {
			lines = append(lines, emphasize(p.Text, p.Important))
		}
		return strings.Join(lines, "\n")
	}
	return emphasize(s.Text, s.Important)
}

// LastSeq returns the highest sequence number held by the segment or its parts.
func (s Segment) LastSeq() int {
	last := s.Seq
	for _, p := range s.Parts {
		last = max(last, p.Seq)
	}
	return last
}

func emphasize(text string, important bool) string {
	if important {
		return "IMPORTANT: " + text
	}
	return text
}
