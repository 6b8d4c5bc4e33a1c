package commitment

import (
	"io"
	"log/slog"
	"reflect"
	"strings"
	"testing"

	"github.com/richinex/agentbook/model"
	"github.com/richinex/agentbook/tools"
)

func newTestRegistry() *Registry {
	return Default(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestResolveLongestKeywordAcrossHandlers(t *testing.T) {
	r := newTestRegistry()

	tests := []struct {
		line    string
		typ     string
		keyword string
		content string
	}{
		{"USE BROWSER", "USE BROWSER", "USE BROWSER", ""},
		{"USE SEARCH ENGINE prefer news", "USE SEARCH ENGINE", "USE SEARCH ENGINE", "prefer news"},
		{"USE BROWSERS", "USE", "USE", "BROWSERS"},
		{"USE calculator", "USE", "USE", "calculator"},
		{"META IMAGE https://example.com/a.png", "META IMAGE", "META IMAGE", "https://example.com/a.png"},
		{"META brand-color blue", "META", "META", "brand-color blue"},
		{"LANGUAGES English", "LANGUAGE", "LANGUAGES", "English"},
		{"  RULES be brief", "RULE", "RULES", "be brief"},
		{"IMPORTANT RULE never lie", "IMPORTANT", "IMPORTANT", "RULE never lie"},
		{"COMMENT draft", "NOTE", "COMMENT", "draft"},
	}
	for _, tt := range tests {
		d, h, ok := r.Resolve(tt.line)
		if !ok {
			t.Errorf("Resolve(%q) found nothing", tt.line)
			continue
		}
		if d.Type != tt.typ || h.Type() != tt.typ || d.Keyword != tt.keyword || d.Content != tt.content {
			t.Errorf("Resolve(%q) = %+v, want type %s keyword %s content %q", tt.line, d, tt.typ, tt.keyword, tt.content)
		}
	}
}

func TestResolveUnknownText(t *testing.T) {
	r := newTestRegistry()
	for _, line := range []string{"Hello there", "RULEBOOK", "persona lowercase", ""} {
		if d, _, ok := r.Resolve(line); ok {
			t.Errorf("Resolve(%q) unexpectedly matched %+v", line, d)
		}
	}
}

func TestRegisterRejectsDuplicates(t *testing.T) {
	r := NewRegistry()
	if err := r.Register(newText("RULE", "", "Rule: ", "RULES")); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if err := r.Register(newText("RULE", "", "Rule: ")); err == nil {
		t.Error("expected duplicate type to be rejected")
	}
	if err := r.Register(newText("POLICY", "", "Policy: ", "RULES")); err == nil {
		t.Error("expected duplicate keyword to be rejected")
	}
	if len(r.Handlers()) != 1 {
		t.Errorf("expected 1 handler, got %d", len(r.Handlers()))
	}
}

func TestDefaultRegistryHandlers(t *testing.T) {
	r := newTestRegistry()
	for _, typ := range []string{
		"PERSONA", "RULE", "KNOWLEDGE", "DICTIONARY", "MODEL", "FROM", "DELETE",
		"USE PROJECT", "MEMORY", "WALLET", "IMPORTANT", "CLOSED", "OPEN",
	} {
		if _, ok := r.Get(typ); !ok {
			t.Errorf("expected %s to be registered", typ)
		}
	}
	if got := len(r.Handlers()); got != 42 {
		t.Errorf("expected 42 handlers, got %d", got)
	}
}

// Standalone use of a commitment must be safe and idempotent.
func TestContentOptionalHandlersAreIdempotent(t *testing.T) {
	r := newTestRegistry()
	for _, h := range r.Handlers() {
		if h.RequiresContent() {
			continue
		}
		once := h.Apply(model.Default(), "")
		twice := h.Apply(once, "")
		if !reflect.DeepEqual(once, twice) {
			t.Errorf("%s: second application changed the requirements\nonce:  %+v\ntwice: %+v", h.Type(), once, twice)
		}
	}
}

func TestToolCommitmentsDedupeByName(t *testing.T) {
	r := newTestRegistry()
	for _, h := range r.Handlers() {
		if _, ok := h.(ToolProvider); !ok {
			continue
		}
		req := model.Default()
		for i := 0; i < 3; i++ {
			req = h.Apply(req, "")
		}
		seen := map[string]bool{}
		for _, name := range req.ToolNames() {
			if seen[name] {
				t.Errorf("%s: tool %s defined twice", h.Type(), name)
			}
			seen[name] = true
		}
		if len(seen) == 0 {
			t.Errorf("%s: expected tool definitions", h.Type())
		}
	}
}

func TestToolSchemasNeverDeclareRuntimeKey(t *testing.T) {
	r := newTestRegistry()
	list := r.Tools(tools.Dependencies{})
	if len(list) != 19 {
		t.Errorf("expected 19 tools, got %d", len(list))
	}
	for _, tool := range list {
		if tool.Metadata().Definition().DeclaresReservedKey() {
			t.Errorf("%s declares the runtime context key", tool.Metadata().Name)
		}
	}
	titles := r.ToolTitles()
	if titles[tools.ToolProjectListFiles] == "" {
		t.Error("expected a title for project_list_files")
	}
}

func TestToolRegistryFollowsRequirements(t *testing.T) {
	r := newTestRegistry()
	h, _ := r.Get("USE TIME")
	req := h.Apply(model.Default(), "")

	registry, err := r.ToolRegistry(req, tools.Dependencies{})
	if err != nil {
		t.Fatalf("ToolRegistry failed: %v", err)
	}
	if names := registry.Names(); len(names) != 1 || names[0] != tools.ToolGetCurrentTime {
		t.Errorf("expected only %s, got %v", tools.ToolGetCurrentTime, names)
	}
}

func TestEveryKeywordIsIndexed(t *testing.T) {
	r := newTestRegistry()
	keywords := strings.Join(r.Keywords(), ",")
	for _, kw := range []string{"PERSONAS", "EXAMPLE", "NONCE", "CANCEL", "USE USER LOCATION", "META FONT"} {
		if !strings.Contains(","+keywords+",", ","+kw+",") {
			t.Errorf("expected keyword %s in index", kw)
		}
	}
}
