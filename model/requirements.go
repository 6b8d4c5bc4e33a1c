package model

import (
	"slices"
	"strings"
)

// Defaults seeded into every compilation.
const (
	DefaultModelName   = "gpt-4.1"
	DefaultTemperature = 0.7
	DefaultTopP        = 0.9
	DefaultTopK        = 50
)

// Model parameter names recorded when a MODEL commitment sets them.
const (
	ParamModelName   = "modelName"
	ParamTemperature = "temperature"
	ParamTopP        = "topP"
	ParamTopK        = "topK"
	ParamMaxTokens   = "maxTokens"
)

// Requirements is the compiled agent: system message, sampling parameters,
// tool definitions and metadata consumed by LLM-provider adapters.
//
// Values are never mutated in place. Every With* method returns a new value
// that shares nothing mutable with the receiver.
type Requirements struct {
	SystemMessage    string             `json:"systemMessage"`
	ModelName        string             `json:"modelName"`
	Temperature      *float64           `json:"temperature,omitempty"`
	TopP             *float64           `json:"topP,omitempty"`
	TopK             *int               `json:"topK,omitempty"`
	MaxTokens        *int               `json:"maxTokens,omitempty"`
	Tools            []ToolDefinition   `json:"tools,omitempty"`
	MCPServers       []string           `json:"mcpServers,omitempty"`
	KnowledgeSources []string           `json:"knowledgeSources,omitempty"`
	ParentAgentURL   *string            `json:"parentAgentUrl"`
	IsClosed         bool               `json:"isClosed"`
	Metadata         map[string]any     `json:"metadata"`
	Notes            []string           `json:"notes,omitempty"`
	Samples          []Sample           `json:"samples,omitempty"`
	Projects         []ProjectReference `json:"projects,omitempty"`

	// Segments are the structured source of SystemMessage.
	Segments []Segment `json:"-"`
	// ParentExplicit is true once a FROM commitment was applied, including FROM VOID.
	ParentExplicit bool `json:"-"`
	// ClosedExplicit is true once a CLOSED or OPEN commitment was applied.
	ClosedExplicit bool `json:"-"`
	// Explicit lists the model parameters set by commitments rather than defaults.
	Explicit []string `json:"-"`
}

// Default returns the requirements every compilation starts from.
func Default() Requirements {
	temperature := DefaultTemperature
	topP := DefaultTopP
	topK := DefaultTopK
	return Requirements{
		ModelName:   DefaultModelName,
		Temperature: &temperature,
		TopP:        &topP,
		TopK:        &topK,
		Metadata:    map[string]any{},
	}
}

// Clone returns a deep copy of the slices and maps held by r.
func (r Requirements) Clone() Requirements {
	c := r
	c.Temperature = clonePtr(r.Temperature)
	c.TopP = clonePtr(r.TopP)
	c.TopK = clonePtr(r.TopK)
	c.MaxTokens = clonePtr(r.MaxTokens)
	c.ParentAgentURL = clonePtr(r.ParentAgentURL)
	c.Tools = slices.Clone(r.Tools)
	c.MCPServers = slices.Clone(r.MCPServers)
	c.KnowledgeSources = slices.Clone(r.KnowledgeSources)
	c.Notes = slices.Clone(r.Notes)
	c.Samples = slices.Clone(r.Samples)
	c.Projects = slices.Clone(r.Projects)
	c.Segments = slices.Clone(r.Segments)
	for i := range c.Segments {
		c.Segments[i].Parts = slices.Clone(c.Segments[i].Parts)
	}
	c.Explicit = slices.Clone(r.Explicit)
	c.Metadata = make(map[string]any, len(r.Metadata))
	for k, v := range r.Metadata {
		if list, ok := v.([]string); ok {
			v = slices.Clone(list)
		}
		c.Metadata[k] = v
	}
	return c
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// MaxSeq returns the highest segment sequence number, or 0 when empty.
func (r Requirements) MaxSeq() int {
	maxSeq := 0
	for _, s := range r.Segments {
		maxSeq = max(maxSeq, s.LastSeq())
	}
	return maxSeq
}

// WithSegment appends a text segment produced by the given commitment.
func (r Requirements) WithSegment(source, text string) Requirements {
	text = strings.TrimSpace(text)
	if text == "" {
		return r
	}
	c := r.Clone()
	c.Segments = append(c.Segments, Segment{
		Seq:    r.MaxSeq() + 1,
		Kind:   SegmentText,
		Source: source,
		Text:   text,
	})
	return c.rendered()
}

// WithUniqueSegment appends a keyed segment, or replaces the text of the
// segment already carrying that key. A replacement that changes the text is
// renumbered so modifiers see it as newly added; its position is kept.
func (r Requirements) WithUniqueSegment(key, source, text string) Requirements {
	c := r.Clone()
	for i, s := range c.Segments {
		if s.Key == key {
			if s.Text != text {
				c.Segments[i].Text = text
				c.Segments[i].Seq = r.MaxSeq() + 1
			}
			return c.rendered()
		}
	}
	c.Segments = append(c.Segments, Segment{
		Seq:    r.MaxSeq() + 1,
		Kind:   SegmentText,
		Source: source,
		Key:    key,
		Text:   text,
	})
	return c.rendered()
}

// WithAnchored merges content into the single section of the given kind.
// The previous rendering of the section is removed and the merged section is
// re-inserted; its position in the rendered message is fixed by its kind.
// Earlier contributions keep their sequence numbers, so only content is new.
func (r Requirements) WithAnchored(kind SegmentKind, source, heading, content string) Requirements {
	content = strings.TrimSpace(content)
	if content == "" {
		return r
	}
	seq := r.MaxSeq() + 1
	var parts []Part
	c := r.Clone()
	kept := c.Segments[:0]
	for _, s := range c.Segments {
		if s.Kind == kind {
			parts = append(parts, s.Parts...)
			continue
		}
		kept = append(kept, s)
	}
	parts = append(parts, Part{Seq: seq, Text: content})
	c.Segments = append(kept, Segment{
		Seq:     seq,
		Kind:    kind,
		Source:  source,
		Heading: heading,
		Parts:   parts,
	})
	return c.rendered()
}

// WithoutSegments drops every segment matched by drop.
func (r Requirements) WithoutSegments(drop func(Segment) bool) Requirements {
	c := r.Clone()
	c.Segments = slices.DeleteFunc(c.Segments, drop)
	return c.rendered()
}

// WithImportantSince marks every segment and anchored part numbered above
// seq as important.
func (r Requirements) WithImportantSince(seq int) Requirements {
	c := r.Clone()
	for i := range c.Segments {
		s := &c.Segments[i]
		if len(s.Parts) > 0 {
			for j := range s.Parts {
				if s.Parts[j].Seq > seq {
					s.Parts[j].Important = true
				}
			}
			continue
		}
		if s.Seq > seq {
			s.Important = true
		}
	}
	return c.rendered()
}

// WithTool adds a tool definition. A definition with the same name replaces
// the earlier one, so a name never appears twice.
func (r Requirements) WithTool(def ToolDefinition) Requirements {
	def = def.withoutReservedKey()
	c := r.Clone()
	for i, existing := range c.Tools {
		if existing.Name == def.Name {
			c.Tools[i] = def
			return c
		}
	}
	c.Tools = append(c.Tools, def)
	return c
}

// HasTool reports whether a tool with the given name is defined.
func (r Requirements) HasTool(name string) bool {
	return slices.ContainsFunc(r.Tools, func(d ToolDefinition) bool { return d.Name == name })
}

// ToolNames returns the defined tool names in order.
func (r Requirements) ToolNames() []string {
	names := make([]string, len(r.Tools))
	for i, d := range r.Tools {
		names[i] = d.Name
	}
	return names
}

// WithMetadata sets one metadata key.
func (r Requirements) WithMetadata(key string, value any) Requirements {
	c := r.Clone()
	c.Metadata[key] = value
	return c
}

// WithMetadataListItem appends value to the string list stored under key,
// skipping duplicates.
func (r Requirements) WithMetadataListItem(key, value string) Requirements {
	c := r.Clone()
	list, _ := c.Metadata[key].([]string)
	if !slices.Contains(list, value) {
		list = append(list, value)
	}
	c.Metadata[key] = list
	return c
}

// WithNote appends a note that never reaches the system message.
func (r Requirements) WithNote(note string) Requirements {
	c := r.Clone()
	c.Notes = append(c.Notes, note)
	return c
}

// WithSample appends a sample exchange.
func (r Requirements) WithSample(s Sample) Requirements {
	c := r.Clone()
	c.Samples = append(c.Samples, s)
	return c
}

// WithSampleAnswer answers the last open sample, or appends an answer-only one.
func (r Requirements) WithSampleAnswer(answer string) Requirements {
	c := r.Clone()
	if n := len(c.Samples); n > 0 && c.Samples[n-1].Answer == "" {
		c.Samples[n-1].Answer = answer
		return c
	}
	c.Samples = append(c.Samples, Sample{Answer: answer})
	return c
}

// WithKnowledgeSource adds a knowledge source URL once.
func (r Requirements) WithKnowledgeSource(source string) Requirements {
	c := r.Clone()
	if !slices.Contains(c.KnowledgeSources, source) {
		c.KnowledgeSources = append(c.KnowledgeSources, source)
	}
	return c
}

// WithMCPServer adds an MCP server once.
func (r Requirements) WithMCPServer(server string) Requirements {
	c := r.Clone()
	if !slices.Contains(c.MCPServers, server) {
		c.MCPServers = append(c.MCPServers, server)
	}
	return c
}

// WithProject adds a repository reference. The list only grows; a repeated
// repository keeps its first entry but picks up a default branch it lacked.
func (r Requirements) WithProject(ref ProjectReference) Requirements {
	c := r.Clone()
	for i, existing := range c.Projects {
		if existing.SameRepository(ref) {
			if existing.DefaultBranch == "" && ref.DefaultBranch != "" {
				c.Projects[i].DefaultBranch = ref.DefaultBranch
			}
			return c
		}
	}
	c.Projects = append(c.Projects, ref)
	return c
}

// WithParent sets the parent agent reference. A nil url records an explicit
// "no parent".
func (r Requirements) WithParent(url *string) Requirements {
	c := r.Clone()
	c.ParentAgentURL = clonePtr(url)
	c.ParentExplicit = true
	return c
}

// WithClosed sets whether the agent may be modified through conversation.
func (r Requirements) WithClosed(closed bool) Requirements {
	c := r.Clone()
	c.IsClosed = closed
	c.ClosedExplicit = true
	return c
}

// WithModelName sets the model name and records it as explicit.
func (r Requirements) WithModelName(name string) Requirements {
	c := r.Clone()
	c.ModelName = name
	return c.explicit(ParamModelName)
}

// WithTemperature sets temperature and records it as explicit.
func (r Requirements) WithTemperature(v float64) Requirements {
	c := r.Clone()
	c.Temperature = &v
	return c.explicit(ParamTemperature)
}

// WithTopP sets top-p and records it as explicit.
func (r Requirements) WithTopP(v float64) Requirements {
	c := r.Clone()
	c.TopP = &v
	return c.explicit(ParamTopP)
}

// WithTopK sets top-k and records it as explicit.
func (r Requirements) WithTopK(v int) Requirements {
	c := r.Clone()
	c.TopK = &v
	return c.explicit(ParamTopK)
}

// WithMaxTokens sets the completion token limit and records it as explicit.
func (r Requirements) WithMaxTokens(v int) Requirements {
	c := r.Clone()
	c.MaxTokens = &v
	return c.explicit(ParamMaxTokens)
}

// IsExplicit reports whether a MODEL commitment set the parameter.
func (r Requirements) IsExplicit(param string) bool {
	return slices.Contains(r.Explicit, param)
}

func (r Requirements) explicit(param string) Requirements {
	if !slices.Contains(r.Explicit, param) {
		r.Explicit = append(r.Explicit, param)
	}
	return r
}

// Rendered recomputes SystemMessage from the segments.
func (r Requirements) Rendered() Requirements {
	return r.Clone().rendered()
}

// rendered rebuilds SystemMessage on a value the caller already owns.
// Persona comes first, plain segments follow in sequence order and the
// dictionary section closes the message.
func (r Requirements) rendered() Requirements {
	var head, body, tail []string
	for _, s := range r.Segments {
		switch s.Kind {
		case SegmentPersona:
			head = append(head, s.Render())
		case SegmentDictionary:
			tail = append(tail, s.Render())
		default:
			body = append(body, s.Render())
		}
	}
	parts := make([]string, 0, len(head)+len(body)+len(tail))
	parts = append(parts, head...)
	parts = append(parts, body...)
	parts = append(parts, tail...)
	r.SystemMessage = strings.Join(parts, "\n\n")
	return r
}
