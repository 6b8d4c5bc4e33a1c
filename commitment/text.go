package commitment

import (
	"net/url"
	"strings"

	"github.com/richinex/agentbook/model"
)

func newPersona() *anchoredHandler {
	return &anchoredHandler{
		base:    newBase("PERSONA", true, "Who the agent is. Several personas merge into one section at the top", "PERSONAS"),
		kind:    model.SegmentPersona,
		heading: "You are:",
	}
}

func newDictionary() *anchoredHandler {
	return &anchoredHandler{
		base:    newBase("DICTIONARY", true, "Terms and their meaning, collected into one section at the end"),
		kind:    model.SegmentDictionary,
		heading: "Dictionary:",
	}
}

// knowledgeHandler records URLs as knowledge sources and inlines plain text.
type knowledgeHandler struct {
	base
}

func newKnowledge() *knowledgeHandler {
	return &knowledgeHandler{base: newBase("KNOWLEDGE", true, "Facts the agent knows, or a URL of a document to learn from")}
}

func (h *knowledgeHandler) Apply(req model.Requirements, content string) model.Requirements {
	content = strings.TrimSpace(content)
	if content == "" {
		return req
	}
	if isURL(content) {
		return req.WithKnowledgeSource(content)
	}
	return req.WithSegment(h.typ, "Knowledge: "+content)
}

func isURL(s string) bool {
	if strings.ContainsAny(s, " \t\n") {
		return false
	}
	u, err := url.Parse(s)
	return err == nil && (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// deleteHandler removes earlier text that contains its content.
type deleteHandler struct {
	base
}

func newDelete() *deleteHandler {
	return &deleteHandler{base: newBase("DELETE", true, "Remove earlier instructions containing the given text", "CANCEL", "DISCARD", "REMOVE")}
}

func (h *deleteHandler) Apply(req model.Requirements, content string) model.Requirements {
	needle := strings.ToLower(strings.TrimSpace(content))
	if needle == "" {
		return req
	}
	return req.WithoutSegments(func(s model.Segment) bool {
		return s.Kind == model.SegmentText && s.Key == "" && strings.Contains(strings.ToLower(s.Text), needle)
	})
}

// sampleHandler records an example exchange. "question -> answer" is split
// into a pair; anything else is an example answer.
type sampleHandler struct {
	base
}

func newSample() *sampleHandler {
	return &sampleHandler{base: newBase("SAMPLE", true, "An example answer, or an exchange written as question -> answer", "EXAMPLE")}
}

func (h *sampleHandler) Apply(req model.Requirements, content string) model.Requirements {
	content = strings.TrimSpace(content)
	if content == "" {
		return req
	}
	if question, answer, ok := strings.Cut(content, "->"); ok {
		return req.WithSample(model.Sample{
			Question: strings.TrimSpace(question),
			Answer:   strings.TrimSpace(answer),
		})
	}
	return req.WithSample(model.Sample{Answer: content})
}

type userMessageHandler struct {
	base
}

func newUserMessage() *userMessageHandler {
	return &userMessageHandler{base: newBase("USER MESSAGE", true, "The user side of an example exchange")}
}

func (h *userMessageHandler) Apply(req model.Requirements, content string) model.Requirements {
	content = strings.TrimSpace(content)
	if content == "" {
		return req
	}
	return req.WithSample(model.Sample{Question: content})
}

type agentMessageHandler struct {
	base
}

func newAgentMessage() *agentMessageHandler {
	return &agentMessageHandler{base: newBase("AGENT MESSAGE", true, "The agent side of an example exchange")}
}

func (h *agentMessageHandler) Apply(req model.Requirements, content string) model.Requirements {
	content = strings.TrimSpace(content)
	if content == "" {
		return req
	}
	return req.WithSampleAnswer(content)
}
