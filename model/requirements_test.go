package model

import (
	"strings"
	"testing"
)

func TestDefault(t *testing.T) {
	r := Default()
	if r.ModelName != DefaultModelName {
		t.Errorf("expected model %s, got %s", DefaultModelName, r.ModelName)
	}
	if r.Temperature == nil || *r.Temperature != 0.7 {
		t.Errorf("expected temperature 0.7, got %v", r.Temperature)
	}
	if r.TopP == nil || *r.TopP != 0.9 {
		t.Errorf("expected topP 0.9, got %v", r.TopP)
	}
	if r.TopK == nil || *r.TopK != 50 {
		t.Errorf("expected topK 50, got %v", r.TopK)
	}
	if r.SystemMessage != "" || r.IsClosed {
		t.Error("expected empty system message and open agent")
	}
}

func TestWithMethodsDoNotMutateReceiver(t *testing.T) {
	base := Default().WithMetadata("a", "1").WithSegment("RULE", "first")

	next := base.
		WithMetadata("a", "2").
		WithSegment("RULE", "second").
		WithTool(ToolDefinition{Name: "t"}).
		WithTemperature(0.1)

	if base.Metadata["a"] != "1" {
		t.Errorf("metadata leaked into receiver: %v", base.Metadata["a"])
	}
	if len(base.Segments) != 1 || len(base.Tools) != 0 {
		t.Error("segments or tools leaked into receiver")
	}
	if *base.Temperature != DefaultTemperature {
		t.Error("temperature leaked into receiver")
	}
	if next.SystemMessage != "first\n\nsecond" {
		t.Errorf("unexpected system message %q", next.SystemMessage)
	}
}

func TestRenderOrder(t *testing.T) {
	r := Default().
		WithSegment("RULE", "Be brief.").
		WithAnchored(SegmentDictionary, "DICTIONARY", "Dictionary:", "foo: bar").
		WithAnchored(SegmentPersona, "PERSONA", "You are:", "a helper").
		WithSegment("GOAL", "Help.").
		WithAnchored(SegmentPersona, "PERSONA", "You are:", "friendly")

	want := "You are:\na helper\nfriendly\n\nBe brief.\n\nHelp.\n\nDictionary:\nfoo: bar"
	if r.SystemMessage != want {
		t.Errorf("unexpected system message:\n%s\nwant:\n%s", r.SystemMessage, want)
	}

	personas := 0
	for _, s := range r.Segments {
		if s.Kind == SegmentPersona {
			personas++
		}
	}
	if personas != 1 {
		t.Errorf("expected one persona segment, got %d", personas)
	}
}

func TestWithImportantSince(t *testing.T) {
	r := Default().WithSegment("RULE", "one")
	mark := r.MaxSeq()
	r = r.WithSegment("RULE", "two").WithImportantSince(mark)

	if r.SystemMessage != "one\n\nIMPORTANT: two" {
		t.Errorf("unexpected system message %q", r.SystemMessage)
	}
}

func TestWithImportantSinceAnchoredParts(t *testing.T) {
	r := Default().WithAnchored(SegmentPersona, "PERSONA", "You are:", "a travel agent")
	mark := r.MaxSeq()
	r = r.WithAnchored(SegmentPersona, "PERSONA", "You are:", "who loves trains").WithImportantSince(mark)

	if r.SystemMessage != "You are:\na travel agent\nIMPORTANT: who loves trains" {
		t.Errorf("unexpected system message %q", r.SystemMessage)
	}
	if r.MaxSeq() != mark+1 {
		t.Errorf("expected MaxSeq %d, got %d", mark+1, r.MaxSeq())
	}
}

func TestWithUniqueSegmentRenumbersChangedText(t *testing.T) {
	r := Default().
		WithUniqueSegment("tools.time", "USE TIME", "Use the clock.").
		WithSegment("RULE", "Be kind.")
	mark := r.MaxSeq()

	same := r.WithUniqueSegment("tools.time", "USE TIME", "Use the clock.")
	if same.MaxSeq() != mark {
		t.Errorf("unchanged text must keep its number, MaxSeq %d", same.MaxSeq())
	}

	changed := r.WithUniqueSegment("tools.time", "USE TIME", "Use the clock.\nAlways.").WithImportantSince(mark)
	if changed.SystemMessage != "IMPORTANT: Use the clock.\nAlways.\n\nBe kind." {
		t.Errorf("unexpected system message %q", changed.SystemMessage)
	}
}

func TestWithUniqueSegment(t *testing.T) {
	r := Default().
		WithUniqueSegment("tools.memory", "MEMORY", "Memory v1").
		WithUniqueSegment("tools.memory", "MEMORY", "Memory v2")

	if len(r.Segments) != 1 || r.SystemMessage != "Memory v2" {
		t.Errorf("expected single replaced segment, got %q", r.SystemMessage)
	}
}

func TestWithToolDedupesAndStripsReservedKey(t *testing.T) {
	def := ToolDefinition{
		Name: "lookup",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"q":                       map[string]any{"type": "string"},
				RuntimeContextArgumentKey: map[string]any{"type": "string"},
			},
			"required": []any{"q", RuntimeContextArgumentKey},
		},
	}
	if !def.DeclaresReservedKey() {
		t.Fatal("expected the raw definition to declare the reserved key")
	}

	r := Default().WithTool(def).WithTool(def)
	if len(r.Tools) != 1 {
		t.Fatalf("expected 1 tool, got %d", len(r.Tools))
	}
	if r.Tools[0].DeclaresReservedKey() {
		t.Error("reserved key survived WithTool")
	}
	if !def.DeclaresReservedKey() {
		t.Error("WithTool modified the caller's schema")
	}
}

func TestWithProjectDedupes(t *testing.T) {
	r := Default().
		WithProject(ProjectReference{URL: "https://github.com/acme/site", Slug: "acme/site"}).
		WithProject(ProjectReference{URL: "https://github.com/ACME/Site", Slug: "ACME/Site", DefaultBranch: "main"})

	if len(r.Projects) != 1 {
		t.Fatalf("expected 1 project, got %d", len(r.Projects))
	}
	if r.Projects[0].DefaultBranch != "main" {
		t.Errorf("expected default branch to be filled, got %q", r.Projects[0].DefaultBranch)
	}
}

func TestWithoutSegments(t *testing.T) {
	r := Default().
		WithSegment("RULE", "Never mention cats.").
		WithSegment("RULE", "Answer in English.").
		WithoutSegments(func(s Segment) bool { return strings.Contains(s.Text, "cats") })

	if r.SystemMessage != "Answer in English." {
		t.Errorf("unexpected system message %q", r.SystemMessage)
	}
}

func TestSamples(t *testing.T) {
	r := Default().
		WithSample(Sample{Question: "Hi?"}).
		WithSampleAnswer("Hello!").
		WithSampleAnswer("Orphan")

	if len(r.Samples) != 2 {
		t.Fatalf("expected 2 samples, got %d", len(r.Samples))
	}
	if r.Samples[0].Answer != "Hello!" || r.Samples[1].Question != "" {
		t.Errorf("unexpected samples %+v", r.Samples)
	}
}

func TestExplicitParameters(t *testing.T) {
	r := Default().WithModelName("claude").WithTopK(5).WithTopK(7)
	if !r.IsExplicit(ParamModelName) || !r.IsExplicit(ParamTopK) {
		t.Error("expected model name and topK to be explicit")
	}
	if r.IsExplicit(ParamTemperature) {
		t.Error("temperature was never set")
	}
	if len(r.Explicit) != 2 || *r.TopK != 7 {
		t.Errorf("unexpected explicit state %v topK=%d", r.Explicit, *r.TopK)
	}
}
