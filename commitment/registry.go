package commitment

import (
	"fmt"
	"log/slog"

	"github.com/richinex/agentbook/internal/dsa"
	"github.com/richinex/agentbook/model"
	"github.com/richinex/agentbook/tools"
)

// Registry holds the commitment handlers in registration order and a radix
// index from every keyword to its handler.
type Registry struct {
	handlers []Handler
	index    *dsa.Trie[Handler]
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{index: dsa.NewTrie[Handler]()}
}

// Register appends a handler. Types and keywords must be unique across the
// registry.
func (r *Registry) Register(h Handler) error {
	if _, exists := r.Get(h.Type()); exists {
		return fmt.Errorf("commitment %s already registered", h.Type())
	}
	keywords := h.Matcher().Keywords()
	for _, kw := range keywords {
		if owner, taken := r.index.Search(kw); taken {
			return fmt.Errorf("keyword %s of %s already belongs to %s", kw, h.Type(), owner.Type())
		}
	}
	for _, kw := range keywords {
		r.index.Insert(kw, h)
	}
	r.handlers = append(r.handlers, h)
	return nil
}

// MustRegister is like Register but panics on error.
func (r *Registry) MustRegister(handlers ...Handler) {
	for _, h := range handlers {
		if err := r.Register(h); err != nil {
			panic(err)
		}
	}
}

// Get finds a handler by type.
func (r *Registry) Get(typ string) (Handler, bool) {
	for _, h := range r.handlers {
		if h.Type() == typ {
			return h, true
		}
	}
	return nil, false
}

// Handlers returns the handlers in registration order.
func (r *Registry) Handlers() []Handler {
	out := make([]Handler, len(r.handlers))
	copy(out, r.handlers)
	return out
}

// Keywords returns every indexed keyword in lexical order.
func (r *Registry) Keywords() []string {
	return r.index.Keys()
}

// Resolve finds the commitment a line starts with. Candidate keywords are
// the indexed keywords that prefix the line; they are tried longest first,
// so "USE BROWSER" wins over "USE" and "LANGUAGES" over "LANGUAGE".
func (r *Registry) Resolve(line string) (Directive, Handler, bool) {
	normalized := normalizeKeyword(line)
	for _, entry := range r.index.PrefixesOf(normalized) {
		keyword, content, ok := entry.Value.Matcher().Match(line)
		if !ok || keyword != entry.Key {
			continue
		}
		return Directive{Type: entry.Value.Type(), Keyword: keyword, Content: content}, entry.Value, true
	}
	return Directive{}, nil, false
}

// Apply applies one directive. Directives of unknown types leave req as is.
func (r *Registry) Apply(req model.Requirements, d Directive) model.Requirements {
	h, ok := r.Get(d.Type)
	if !ok {
		return req
	}
	return h.Apply(req, d.Content)
}

// Rederive lets every Rederiver recompute its derived segment.
func (r *Registry) Rederive(req model.Requirements) model.Requirements {
	for _, h := range r.handlers {
		if d, ok := h.(Rederiver); ok {
			req = d.Rederive(req)
		}
	}
	return req
}

// ToolTitles merges the tool titles of every tool-providing handler.
func (r *Registry) ToolTitles() map[string]string {
	titles := map[string]string{}
	for _, h := range r.handlers {
		if p, ok := h.(ToolProvider); ok {
			for name, title := range p.ToolTitles() {
				titles[name] = title
			}
		}
	}
	return titles
}

// Tools collects the tool implementations contributed by the handlers,
// wired to deps. A tool name appears once.
func (r *Registry) Tools(deps tools.Dependencies) []tools.Tool {
	var out []tools.Tool
	seen := map[string]bool{}
	for _, h := range r.handlers {
		p, ok := h.(ToolProvider)
		if !ok {
			continue
		}
		for _, t := range p.Tools(deps) {
			name := t.Metadata().Name
			if seen[name] {
				continue
			}
			seen[name] = true
			out = append(out, t)
		}
	}
	return out
}

// ToolRegistry builds a tool registry holding the tools the compiled
// requirements reference.
func (r *Registry) ToolRegistry(req model.Requirements, deps tools.Dependencies) (*tools.Registry, error) {
	var selected []tools.Tool
	for _, t := range r.Tools(deps) {
		if req.HasTool(t.Metadata().Name) {
			selected = append(selected, t)
		}
	}
	return tools.NewRegistryWith(selected...)
}

// Default builds the registry with every built-in commitment. A nil logger
// falls back to slog.Default().
func Default(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	r := NewRegistry()
	r.MustRegister(
		newPersona(),
		newText("RULE", "A rule the agent must follow", "Rule: ", "RULES"),
		newText("STYLE", "How the agent writes; later styles take precedence", "Style: ", "STYLES"),
		newText("GOAL", "What the agent tries to achieve; later goals take precedence", "Goal: ", "GOALS"),
		newText("SCENARIO", "A situation the agent operates in", "Scenario: ", "SCENARIOS"),
		newText("FORMAT", "The shape of the agent's answers", "Output format: ", "FORMATS"),
		newText("CONTEXT", "Background the agent should take into account", "Context: "),
		newKnowledge(),
		newText("EXPECT", "Behavior expected from the agent", "Expected behavior: ", "EXPECTS"),
		newText("ACTION", "Something the agent is able to do", "Capability: ", "ACTIONS"),
		newText("LANGUAGE", "Languages the agent speaks", "Language: ", "LANGUAGES"),
		newDictionary(),
		newSample(),
		newUserMessage(),
		newAgentMessage(),
		newInitialMessage(),
		newNote(),
		newMeta(),
		newMetaField("META IMAGE", "image", "Avatar image of the agent"),
		newMetaField("META LINK", "link", "Link associated with the agent"),
		newMetaField("META COLOR", "color", "Brand color of the agent"),
		newMetaField("META FONT", "font", "Font of the agent's profile"),
		newMetaField("META DESCRIPTION", "description", "Public description of the agent"),
		newModel(logger),
		newFrom(),
		newImport(),
		newTeam(),
		newClosed(),
		newOpen(),
		newDelete(),
		newUse(),
		newUseBrowser(),
		newUseSearchEngine(),
		newUseTime(),
		newUseMCP(),
		newUseEmail(),
		newUseImageGenerator(),
		newUseProject(logger),
		newUseUserLocation(),
		newMemory(),
		newWallet(),
	)
	r.MustRegister(newImportant(r, logger))
	return r
}
