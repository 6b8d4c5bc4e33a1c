package commitment

import (
	"log/slog"

	"github.com/richinex/agentbook/model"
)

// importantHandler is a co-commitment. Its content is another commitment,
// which is applied normally; every segment that application adds is then
// rendered with an IMPORTANT prefix.
type importantHandler struct {
	base
	registry *Registry
	logger   *slog.Logger
}

func newImportant(registry *Registry, logger *slog.Logger) *importantHandler {
	return &importantHandler{
		base:     newBase("IMPORTANT", true, "Emphasizes the commitment that follows it"),
		registry: registry,
		logger:   logger,
	}
}

func (h *importantHandler) Apply(req model.Requirements, content string) model.Requirements {
	d, inner, ok := h.registry.Resolve(content)
	if !ok {
		h.logger.Warn("IMPORTANT does not wrap a known commitment", "content", content)
		return req
	}
	before := req.MaxSeq()
	return inner.Apply(req, d.Content).WithImportantSince(before)
}
