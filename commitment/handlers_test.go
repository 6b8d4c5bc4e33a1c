package commitment

import (
	"reflect"
	"strings"
	"testing"

	"github.com/richinex/agentbook/model"
	"github.com/richinex/agentbook/tools"
)

// apply runs lines through the registry the way the compiler does.
func apply(t *testing.T, r *Registry, lines ...string) model.Requirements {
	t.Helper()
	req := model.Default()
	for _, line := range lines {
		d, h, ok := r.Resolve(line)
		if !ok {
			t.Fatalf("line %q did not resolve", line)
		}
		req = h.Apply(req, d.Content)
	}
	return req
}

func TestPersonaMergesAtTop(t *testing.T) {
	req := apply(t, newTestRegistry(),
		"RULE Be brief.",
		"PERSONA a travel agent",
		"GOAL Book trips.",
		"PERSONAS who loves trains",
	)
	want := "You are:\na travel agent\nwho loves trains\n\nRule: Be brief.\n\nGoal: Book trips."
	if req.SystemMessage != want {
		t.Errorf("unexpected system message:\n%s", req.SystemMessage)
	}
}

func TestDictionaryRendersLast(t *testing.T) {
	req := apply(t, newTestRegistry(),
		"DICTIONARY PTO: paid time off",
		"RULE Use the dictionary.",
		"DICTIONARY WFH: working from home",
	)
	if !strings.HasSuffix(req.SystemMessage, "Dictionary:\nPTO: paid time off\nWFH: working from home") {
		t.Errorf("dictionary not rendered last:\n%s", req.SystemMessage)
	}
}

func TestLaterGoalsAppend(t *testing.T) {
	req := apply(t, newTestRegistry(), "GOAL first", "STYLE formal", "GOAL second")
	if req.SystemMessage != "Goal: first\n\nStyle: formal\n\nGoal: second" {
		t.Errorf("unexpected system message:\n%s", req.SystemMessage)
	}
}

func TestKnowledge(t *testing.T) {
	req := apply(t, newTestRegistry(),
		"KNOWLEDGE https://example.com/handbook.pdf",
		"KNOWLEDGE https://example.com/handbook.pdf",
		"KNOWLEDGE The office opens at 9.",
	)
	if !reflect.DeepEqual(req.KnowledgeSources, []string{"https://example.com/handbook.pdf"}) {
		t.Errorf("unexpected knowledge sources %v", req.KnowledgeSources)
	}
	if req.SystemMessage != "Knowledge: The office opens at 9." {
		t.Errorf("unexpected system message %q", req.SystemMessage)
	}
}

func TestDeleteRemovesEarlierText(t *testing.T) {
	req := apply(t, newTestRegistry(),
		"RULE Always answer in French.",
		"RULE Be polite.",
		"DELETE french",
	)
	if req.SystemMessage != "Rule: Be polite." {
		t.Errorf("unexpected system message %q", req.SystemMessage)
	}
}

func TestSamples(t *testing.T) {
	req := apply(t, newTestRegistry(),
		"SAMPLE Hi -> Hello, how can I help?",
		"USER MESSAGE What time is it?",
		"AGENT MESSAGE Let me check.",
		"AGENT MESSAGE Anything else?",
		"EXAMPLE Sure thing!",
	)
	want := []model.Sample{
		{Question: "Hi", Answer: "Hello, how can I help?"},
		{Question: "What time is it?", Answer: "Let me check."},
		{Answer: "Anything else?"},
		{Answer: "Sure thing!"},
	}
	if !reflect.DeepEqual(req.Samples, want) {
		t.Errorf("unexpected samples:\n got %+v\nwant %+v", req.Samples, want)
	}
	if req.SystemMessage != "" {
		t.Errorf("samples must not touch the system message, got %q", req.SystemMessage)
	}
}

func TestMetadataCommitments(t *testing.T) {
	req := apply(t, newTestRegistry(),
		"META IMAGE https://example.com/a.png",
		"META brand-color #ff0000",
		"INITIAL MESSAGE Hi, I am your guide.",
		"IMPORT ./shared.book",
		"IMPORT ./shared.book",
		"NOTE remember to update prices",
	)
	checks := map[string]any{
		"image":            "https://example.com/a.png",
		"brandColor":       "#ff0000",
		MetaInitialMessage: "Hi, I am your guide.",
		MetaImports:        []string{"./shared.book"},
	}
	for key, want := range checks {
		if got := req.Metadata[key]; !reflect.DeepEqual(got, want) {
			t.Errorf("metadata[%s] = %v, want %v", key, got, want)
		}
	}
	if len(req.Notes) != 1 || req.SystemMessage != "" {
		t.Errorf("notes must stay out of the system message: %+v", req)
	}
}

func TestTeamKeepsOneSegment(t *testing.T) {
	req := apply(t, newTestRegistry(), "TEAM https://agents.example.com/lawyer", "TEAM https://agents.example.com/accountant")
	want := "You can consult these teammates:\n- https://agents.example.com/lawyer\n- https://agents.example.com/accountant"
	if req.SystemMessage != want {
		t.Errorf("unexpected system message:\n%s", req.SystemMessage)
	}
}

func TestClosedAndOpen(t *testing.T) {
	r := newTestRegistry()
	if !apply(t, r, "CLOSED").IsClosed {
		t.Error("expected CLOSED to close the agent")
	}
	if apply(t, r, "CLOSED", "OPEN").IsClosed {
		t.Error("expected OPEN after CLOSED to reopen the agent")
	}
}

func TestModelLegacySyntax(t *testing.T) {
	req := apply(t, newTestRegistry(), "MODEL gpt-4o temperature=0.2 top_p=0.5 topK=20 maxTokens=512")
	if req.ModelName != "gpt-4o" || *req.Temperature != 0.2 || *req.TopP != 0.5 || *req.TopK != 20 || *req.MaxTokens != 512 {
		t.Errorf("unexpected model settings: %s %v %v %v %v", req.ModelName, *req.Temperature, *req.TopP, *req.TopK, *req.MaxTokens)
	}
	for _, p := range []string{model.ParamModelName, model.ParamTemperature, model.ParamTopP, model.ParamTopK, model.ParamMaxTokens} {
		if !req.IsExplicit(p) {
			t.Errorf("expected %s to be explicit", p)
		}
	}
}

func TestModelMultiLineSyntax(t *testing.T) {
	r := newTestRegistry()
	h, _ := r.Get("MODEL")

	if req := apply(t, r, "MODEL TEMPERATURE 0.9"); req.ModelName != model.DefaultModelName {
		t.Errorf("expected the default model, got %s", req.ModelName)
	}

	req := h.Apply(model.Default(), "NAME claude-sonnet-4\nTEMPERATURE 0.3\nTOP_K 7")
	req = h.Apply(req, "TEMPERATURE 0.9")
	if req.ModelName != "claude-sonnet-4" || *req.Temperature != 0.9 || *req.TopK != 7 {
		t.Errorf("later values must overwrite earlier ones: %s %v %v", req.ModelName, *req.Temperature, *req.TopK)
	}
	if req.IsExplicit(model.ParamTopP) {
		t.Error("topP was never set")
	}
}

func TestModelIgnoresInvalidValues(t *testing.T) {
	req := apply(t, newTestRegistry(), "MODEL TEMPERATURE hot", "MODEL TOP_P 3", "MODEL MAX_TOKENS -1")
	if *req.Temperature != model.DefaultTemperature || *req.TopP != model.DefaultTopP || req.MaxTokens != nil {
		t.Errorf("invalid values must be ignored: %+v", req)
	}
	if len(req.Explicit) != 0 {
		t.Errorf("expected no explicit parameters, got %v", req.Explicit)
	}
}

func TestFrom(t *testing.T) {
	r := newTestRegistry()

	req := apply(t, r, "PERSONA a lawyer", "FROM https://books.example.com/base.book")
	if req.ParentAgentURL == nil || *req.ParentAgentURL != "https://books.example.com/base.book" {
		t.Fatalf("unexpected parent %v", req.ParentAgentURL)
	}
	if req.SystemMessage != "You are:\na lawyer" {
		t.Errorf("FROM must not touch the system message, got %q", req.SystemMessage)
	}

	for _, void := range []string{"VOID", "{void}", "null"} {
		req := apply(t, r, "FROM https://books.example.com/base.book", "FROM "+void)
		if req.ParentAgentURL != nil || !req.ParentExplicit {
			t.Errorf("FROM %s must set an explicit null parent", void)
		}
	}
}

func TestUseCommitments(t *testing.T) {
	req := apply(t, newTestRegistry(),
		"USE MCP https://mcp.example.com/sse",
		"USE MCP https://mcp.example.com/sse",
		"USE calculator",
		"USE IMAGE GENERATOR",
		"USE TIME",
		"USE BROWSER",
	)
	if !reflect.DeepEqual(req.MCPServers, []string{"https://mcp.example.com/sse"}) {
		t.Errorf("unexpected MCP servers %v", req.MCPServers)
	}
	if !reflect.DeepEqual(req.Metadata[MetaUses], []string{"calculator"}) {
		t.Errorf("unexpected uses %v", req.Metadata[MetaUses])
	}
	if req.Metadata[MetaImageGenerator] != "default" {
		t.Errorf("unexpected image generator %v", req.Metadata[MetaImageGenerator])
	}
	if !reflect.DeepEqual(req.ToolNames(), []string{tools.ToolGetCurrentTime, tools.ToolFetchURLContent}) {
		t.Errorf("unexpected tools %v", req.ToolNames())
	}
}

func TestUseProject(t *testing.T) {
	req := apply(t, newTestRegistry(),
		"USE PROJECT https://github.com/acme/site branch=develop",
		"USE PROJECT acme/SITE, github.com/acme/docs.git",
	)
	want := []model.ProjectReference{
		{URL: "https://github.com/acme/site", Slug: "acme/site", DefaultBranch: "develop"},
		{URL: "https://github.com/acme/docs", Slug: "acme/docs"},
	}
	if !reflect.DeepEqual(req.Projects, want) {
		t.Errorf("unexpected projects:\n got %+v\nwant %+v", req.Projects, want)
	}
	if len(req.Tools) != 6 {
		t.Errorf("expected 6 project tools, got %v", req.ToolNames())
	}
	if strings.Count(req.SystemMessage, "GitHub repositories") != 1 {
		t.Errorf("expected a single usage section:\n%s", req.SystemMessage)
	}
	if !strings.Contains(req.SystemMessage, "- acme/site (default branch develop)\n- acme/docs") {
		t.Errorf("usage must list every repository:\n%s", req.SystemMessage)
	}
}

func TestParseProjectReferences(t *testing.T) {
	refs, ignored := ParseProjectReferences("acme/site for https://gitlab.com/x/y branch=main")
	if len(refs) != 1 || refs[0].Slug != "acme/site" || refs[0].DefaultBranch != "main" {
		t.Errorf("unexpected refs %+v", refs)
	}
	if !reflect.DeepEqual(ignored, []string{"for", "https://gitlab.com/x/y"}) {
		t.Errorf("unexpected ignored tokens %v", ignored)
	}
}

func TestMemoryAndWallet(t *testing.T) {
	req := apply(t, newTestRegistry(), "MEMORY", "WALLET github token", "WALLET github token", "MEMORY Remember dietary preferences.")
	if len(req.Tools) != 8 {
		t.Errorf("expected 8 tools, got %v", req.ToolNames())
	}
	if !reflect.DeepEqual(req.Metadata[MetaWallet], []string{"github token"}) {
		t.Errorf("unexpected wallet metadata %v", req.Metadata[MetaWallet])
	}
	if !strings.Contains(req.SystemMessage, "Remember dietary preferences.") {
		t.Errorf("memory instructions missing:\n%s", req.SystemMessage)
	}
	if strings.Count(req.SystemMessage, "memory tools") != 1 {
		t.Errorf("expected one memory usage segment:\n%s", req.SystemMessage)
	}
}

func TestImportantMarksOnlyTheWrappedCommitment(t *testing.T) {
	req := apply(t, newTestRegistry(),
		"RULE Be kind.",
		"IMPORTANT RULE Never share passwords.",
		"GOAL Help.",
	)
	want := "Rule: Be kind.\n\nIMPORTANT: Rule: Never share passwords.\n\nGoal: Help."
	if req.SystemMessage != want {
		t.Errorf("unexpected system message:\n%s", req.SystemMessage)
	}
}

func TestImportantPersonaMarksOnlyTheNewPart(t *testing.T) {
	req := apply(t, newTestRegistry(),
		"PERSONA a travel agent",
		"IMPORTANT PERSONA who loves trains",
		"PERSONA and speaks Czech",
	)
	want := "You are:\na travel agent\nIMPORTANT: who loves trains\nand speaks Czech"
	if req.SystemMessage != want {
		t.Errorf("unexpected system message:\n%s", req.SystemMessage)
	}
}

func TestImportantMarksReplacedToolUsage(t *testing.T) {
	req := apply(t, newTestRegistry(), "USE TIME", "RULE Be kind.", "IMPORTANT USE TIME always check the clock")

	parts := strings.Split(req.SystemMessage, "\n\n")
	if len(parts) != 2 {
		t.Fatalf("expected usage and rule segments, got:\n%s", req.SystemMessage)
	}
	if !strings.HasPrefix(parts[0], "IMPORTANT: ") || !strings.HasSuffix(parts[0], "always check the clock") {
		t.Errorf("replaced usage segment not emphasized:\n%s", parts[0])
	}
	if parts[1] != "Rule: Be kind." {
		t.Errorf("rule must stay unmarked, got %q", parts[1])
	}

	// Repeating the commitment verbatim adds nothing to emphasize.
	same := apply(t, newTestRegistry(), "USE TIME", "IMPORTANT USE TIME")
	if strings.Contains(same.SystemMessage, "IMPORTANT:") {
		t.Errorf("unchanged usage segment must not be marked:\n%s", same.SystemMessage)
	}
}

func TestImportantWithoutCommitmentIsNoop(t *testing.T) {
	r := newTestRegistry()
	before := apply(t, r, "RULE Be kind.")
	h, _ := r.Get("IMPORTANT")
	after := h.Apply(before, "remember this")
	if !reflect.DeepEqual(before, after) {
		t.Errorf("expected no change, got %+v", after)
	}
}
