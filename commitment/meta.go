package commitment

import (
	"strings"
	"unicode"

	"github.com/richinex/agentbook/model"
)

// Metadata keys written by commitments.
const (
	MetaAgentName      = "agentName"
	MetaInitialMessage = "initialMessage"
	MetaImports        = "imports"
	MetaTeam           = "team"
	MetaUses           = "uses"
	MetaImageGenerator = "imageGenerator"
	MetaWallet         = "wallet"
)

type initialMessageHandler struct {
	base
}

func newInitialMessage() *initialMessageHandler {
	return &initialMessageHandler{base: newBase("INITIAL MESSAGE", true, "The first message the agent shows in a new conversation")}
}

func (h *initialMessageHandler) Apply(req model.Requirements, content string) model.Requirements {
	content = strings.TrimSpace(content)
	if content == "" {
		return req
	}
	return req.WithMetadata(MetaInitialMessage, content)
}

// noteHandler keeps comments for humans. They never reach the model.
type noteHandler struct {
	base
}

func newNote() *noteHandler {
	return &noteHandler{base: newBase("NOTE", false, "A comment for the author; not shown to the model", "NOTES", "COMMENT", "NONCE")}
}

func (h *noteHandler) Apply(req model.Requirements, content string) model.Requirements {
	content = strings.TrimSpace(content)
	if content == "" {
		return req
	}
	return req.WithNote(content)
}

// metaHandler stores "META <key> <value>" as metadata[key].
type metaHandler struct {
	base
}

func newMeta() *metaHandler {
	return &metaHandler{base: newBase("META", true, "Arbitrary profile metadata written as META <key> <value>")}
}

func (h *metaHandler) Apply(req model.Requirements, content string) model.Requirements {
	fields := strings.Fields(content)
	if len(fields) == 0 {
		return req
	}
	key := metaKey(fields[0])
	if key == "" {
		return req
	}
	value := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(content), fields[0]))
	return req.WithMetadata(key, value)
}

// metaKey turns IMAGE, image or Image into "image" and BRAND-COLOR into
// "brandColor".
func metaKey(raw string) string {
	parts := strings.FieldsFunc(strings.ToLower(raw), func(r rune) bool {
		return r == '-' || r == '_'
	})
	for i := 1; i < len(parts); i++ {
		r := []rune(parts[i])
		r[0] = unicode.ToUpper(r[0])
		parts[i] = string(r)
	}
	return strings.Join(parts, "")
}

// metaFieldHandler stores its content under a fixed metadata key.
type metaFieldHandler struct {
	base
	key string
}

func newMetaField(typ, key, description string) *metaFieldHandler {
	return &metaFieldHandler{base: newBase(typ, true, description), key: key}
}

func (h *metaFieldHandler) Apply(req model.Requirements, content string) model.Requirements {
	content = strings.TrimSpace(content)
	if content == "" {
		return req
	}
	return req.WithMetadata(h.key, content)
}

// fromHandler sets the parent agent. VOID, {void} and null select no parent.
type fromHandler struct {
	base
}

func newFrom() *fromHandler {
	return &fromHandler{base: newBase("FROM", true, "The parent agent to inherit from, or VOID for none")}
}

// IsVoidReference reports whether a FROM reference means "no parent".
func IsVoidReference(ref string) bool {
	switch strings.ToLower(strings.TrimSpace(ref)) {
	case "void", "{void}", "null":
		return true
	}
	return false
}

func (h *fromHandler) Apply(req model.Requirements, content string) model.Requirements {
	content = strings.TrimSpace(content)
	if content == "" {
		return req
	}
	if IsVoidReference(content) {
		return req.WithParent(nil)
	}
	return req.WithParent(&content)
}

type importHandler struct {
	base
}

func newImport() *importHandler {
	return &importHandler{base: newBase("IMPORT", true, "Another book or file imported by reference", "IMPORTS")}
}

func (h *importHandler) Apply(req model.Requirements, content string) model.Requirements {
	content = strings.TrimSpace(content)
	if content == "" {
		return req
	}
	return req.WithMetadataListItem(MetaImports, content)
}

// teamHandler lists teammates in metadata and in one keyed segment.
type teamHandler struct {
	base
}

func newTeam() *teamHandler {
	return &teamHandler{base: newBase("TEAM", true, "A teammate agent this agent may consult")}
}

func (h *teamHandler) Apply(req model.Requirements, content string) model.Requirements {
	content = strings.TrimSpace(content)
	if content == "" {
		return req
	}
	return h.Rederive(req.WithMetadataListItem(MetaTeam, content))
}

// Rederive lists every teammate in the team segment.
func (h *teamHandler) Rederive(req model.Requirements) model.Requirements {
	team, _ := req.Metadata[MetaTeam].([]string)
	if len(team) == 0 {
		return req
	}
	return req.WithUniqueSegment("team", h.typ, "You can consult these teammates:\n- "+strings.Join(team, "\n- "))
}

type closedHandler struct {
	base
	closed bool
}

func newClosed() *closedHandler {
	return &closedHandler{base: newBase("CLOSED", false, "The agent cannot be modified through conversation"), closed: true}
}

func newOpen() *closedHandler {
	return &closedHandler{base: newBase("OPEN", false, "The agent may be modified through conversation"), closed: false}
}

func (h *closedHandler) Apply(req model.Requirements, _ string) model.Requirements {
	return req.WithClosed(h.closed)
}
