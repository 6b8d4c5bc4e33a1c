// Package commitment implements the commitments of the agent source
// language and the registry that dispatches source lines to them.
//
// Information Hiding:
// - Keyword matching and alias ordering hidden behind Matcher
// - Dispatch index hidden behind Registry
// - Each commitment's effect on the requirements hidden in its Apply
package commitment

import (
	"slices"
	"strings"

	"github.com/richinex/agentbook/model"
	"github.com/richinex/agentbook/tools"
)

// Handler is one commitment type.
//
// Apply must not mutate req; it returns the requirements with the
// commitment applied. Apply is called with trimmed content, which is empty
// for standalone use.
type Handler interface {
	Type() string
	Aliases() []string
	RequiresContent() bool
	Description() string
	Matcher() *Matcher
	Apply(req model.Requirements, content string) model.Requirements
}

// ToolProvider is implemented by commitments that contribute tools.
type ToolProvider interface {
	// ToolTitles maps tool names to human-readable titles.
	ToolTitles() map[string]string
	// Tools returns the implementations, wired to deps.
	Tools(deps tools.Dependencies) []tools.Tool
}

// Rederiver is implemented by commitments whose segment is derived from
// state other commitments can also change, such as the project list.
// Rederive recomputes the segment after requirements were merged.
type Rederiver interface {
	Rederive(req model.Requirements) model.Requirements
}

// Directive is one parsed commitment occurrence.
type Directive struct {
	Type    string `json:"type"`
	Keyword string `json:"keyword"`
	Content string `json:"content"`
}

// base carries what every handler shares.
type base struct {
	typ             string
	aliases         []string
	requiresContent bool
	description     string
	matcher         *Matcher
}

func newBase(typ string, requiresContent bool, description string, aliases ...string) base {
	return base{
		typ:             typ,
		aliases:         aliases,
		requiresContent: requiresContent,
		description:     description,
		matcher:         NewMatcher(append([]string{typ}, aliases...)...),
	}
}

func (b *base) Type() string          { return b.typ }
func (b *base) Aliases() []string     { return slices.Clone(b.aliases) }
func (b *base) RequiresContent() bool { return b.requiresContent }
func (b *base) Description() string   { return b.description }
func (b *base) Matcher() *Matcher     { return b.matcher }

// textHandler appends one formatted segment per occurrence.
type textHandler struct {
	base
	format func(content string) string
}

func newText(typ, description, prefix string, aliases ...string) *textHandler {
	return &textHandler{
		base: newBase(typ, true, description, aliases...),
		format: func(content string) string {
			return prefix + content
		},
	}
}

func (h *textHandler) Apply(req model.Requirements, content string) model.Requirements {
	content = strings.TrimSpace(content)
	if content == "" {
		return req
	}
	return req.WithSegment(h.typ, h.format(content))
}

// anchoredHandler merges every occurrence into one section whose position
// in the system message is fixed by kind.
type anchoredHandler struct {
	base
	kind    model.SegmentKind
	heading string
}

func (h *anchoredHandler) Apply(req model.Requirements, content string) model.Requirements {
	return req.WithAnchored(h.kind, h.typ, h.heading, content)
}

// toolHandler registers a fixed set of tools and one usage segment. Tool
// definitions are deduplicated by name and the usage segment is keyed, so
// repeated occurrences leave a single copy of each.
type toolHandler struct {
	base
	usage string
	build func(deps tools.Dependencies) []tools.Tool
	defs  []model.ToolDefinition
	names map[string]string
}

func newToolHandler(typ string, requiresContent bool, description, usage string, build func(tools.Dependencies) []tools.Tool) *toolHandler {
	h := &toolHandler{
		base:  newBase(typ, requiresContent, description),
		usage: usage,
		build: build,
		names: map[string]string{},
	}
	for _, t := range build(tools.Dependencies{}) {
		meta := t.Metadata()
		h.defs = append(h.defs, meta.Definition())
		h.names[meta.Name] = meta.Title
	}
	return h
}

func (h *toolHandler) Apply(req model.Requirements, content string) model.Requirements {
	return h.register(req, joinNonEmpty("\n", h.usage, strings.TrimSpace(content)))
}

// register adds the tool definitions and sets the keyed usage segment.
func (h *toolHandler) register(req model.Requirements, usage string) model.Requirements {
	for _, def := range h.defs {
		req = req.WithTool(def)
	}
	if usage == "" {
		return req
	}
	return req.WithUniqueSegment(usageKey(h.typ), h.typ, usage)
}

func (h *toolHandler) ToolTitles() map[string]string {
	titles := make(map[string]string, len(h.names))
	for name, title := range h.names {
		titles[name] = title
	}
	return titles
}

func (h *toolHandler) Tools(deps tools.Dependencies) []tools.Tool {
	return h.build(deps)
}

func usageKey(typ string) string {
	return "usage:" + strings.ToLower(strings.ReplaceAll(typ, " ", "-"))
}

func joinNonEmpty(sep string, parts ...string) string {
	kept := parts[:0:0]
	for _, p := range parts {
		if p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, sep)
}
