package compiler

import (
	"io"
	"log/slog"
	"reflect"
	"strings"
	"testing"

	"github.com/richinex/agentbook/commitment"
	"github.com/richinex/agentbook/model"
	"github.com/richinex/agentbook/tools"
)

func newTestCompiler() *Compiler {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(commitment.Default(logger), logger)
}

const travelBook = `Travel Agent

This line describes the book and is ignored.

PERSONA a travel agent
RULE Only recommend places you know.
MODEL
NAME gpt-4o
TEMPERATURE 0.3
RULE
RULE Keep answers
short and friendly.

PERSONA who loves trains
FOO not a commitment
USE TIME
DICTIONARY IC: InterCity train
`

func TestParse(t *testing.T) {
	parsed := newTestCompiler().Parse(travelBook)

	if parsed.AgentName != "Travel Agent" {
		t.Errorf("unexpected agent name %q", parsed.AgentName)
	}
	want := []commitment.Directive{
		{Type: "PERSONA", Keyword: "PERSONA", Content: "a travel agent"},
		{Type: "RULE", Keyword: "RULE", Content: "Only recommend places you know."},
		{Type: "MODEL", Keyword: "MODEL", Content: "NAME gpt-4o\nTEMPERATURE 0.3"},
		{Type: "RULE", Keyword: "RULE", Content: "Keep answers\nshort and friendly."},
		{Type: "PERSONA", Keyword: "PERSONA", Content: "who loves trains\nFOO not a commitment"},
		{Type: "USE TIME", Keyword: "USE TIME", Content: ""},
		{Type: "DICTIONARY", Keyword: "DICTIONARY", Content: "IC: InterCity train"},
	}
	if !reflect.DeepEqual(parsed.Directives, want) {
		t.Errorf("unexpected directives:\n got %+v\nwant %+v", parsed.Directives, want)
	}
}

func TestParseWithoutName(t *testing.T) {
	parsed := newTestCompiler().Parse("RULE Be kind.\r\nGOAL Help.")
	if parsed.AgentName != "" {
		t.Errorf("expected no agent name, got %q", parsed.AgentName)
	}
	if len(parsed.Directives) != 2 || parsed.Directives[0].Content != "Be kind." {
		t.Errorf("unexpected directives %+v", parsed.Directives)
	}
}

func TestCompile(t *testing.T) {
	req := newTestCompiler().Compile(travelBook)

	wantMessage := strings.Join([]string{
		"You are:\na travel agent\nwho loves trains\nFOO not a commitment",
		"Rule: Only recommend places you know.",
		"Rule: Keep answers\nshort and friendly.",
		"You can get the current date and time with the get_current_time tool. Do not guess the date.",
		"Dictionary:\nIC: InterCity train",
	}, "\n\n")
	if req.SystemMessage != wantMessage {
		t.Errorf("unexpected system message:\n%s", req.SystemMessage)
	}
	if req.ModelName != "gpt-4o" || *req.Temperature != 0.3 || *req.TopP != model.DefaultTopP {
		t.Errorf("unexpected model settings %s %v %v", req.ModelName, *req.Temperature, *req.TopP)
	}
	if req.Metadata[commitment.MetaAgentName] != "Travel Agent" {
		t.Errorf("unexpected metadata %v", req.Metadata)
	}
	if !reflect.DeepEqual(req.ToolNames(), []string{tools.ToolGetCurrentTime}) {
		t.Errorf("unexpected tools %v", req.ToolNames())
	}
}

func TestCompileDefaults(t *testing.T) {
	req := newTestCompiler().Compile("just some text\nwith no commitments")
	if req.SystemMessage != "" || req.ModelName != model.DefaultModelName || req.IsClosed {
		t.Errorf("unexpected requirements %+v", req)
	}
	if *req.Temperature != 0.7 || *req.TopP != 0.9 || *req.TopK != 50 {
		t.Errorf("unexpected defaults %v %v %v", *req.Temperature, *req.TopP, *req.TopK)
	}
}

func TestCompileIsDeterministic(t *testing.T) {
	c := newTestCompiler()
	if !reflect.DeepEqual(c.Compile(travelBook), c.Compile(travelBook)) {
		t.Error("compiling the same source twice gave different results")
	}
}

func TestCompileImportant(t *testing.T) {
	req := newTestCompiler().Compile("RULE Be kind.\nIMPORTANT RULE Never share\npasswords.\nIMPORTANT nothing to wrap")
	want := "Rule: Be kind.\n\nIMPORTANT: Rule: Never share\npasswords."
	if req.SystemMessage != want {
		t.Errorf("unexpected system message:\n%s", req.SystemMessage)
	}
}

func TestRequirementsJSONHidesRuntimeKey(t *testing.T) {
	req := newTestCompiler().Compile("MEMORY\nWALLET\nUSE PROJECT acme/site\nUSE USER LOCATION")
	for _, def := range req.Tools {
		if def.DeclaresReservedKey() {
			t.Errorf("%s exposes the runtime context key", def.Name)
		}
	}
}
