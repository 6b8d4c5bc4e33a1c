// Package compiler turns agent source into compiled model requirements.
//
// Information Hiding:
// - Line scanning and multi-line block assembly hidden in Parse
// - Fold order and defaults hidden in Compile
// - Parent fetching, caching and cycle detection hidden in Resolver
package compiler

import (
	"log/slog"
	"strings"

	"github.com/richinex/agentbook/commitment"
	"github.com/richinex/agentbook/model"
)

// ParseResult is the parsed form of a book.
type ParseResult struct {
	AgentName  string                 `json:"agentName,omitempty"`
	Directives []commitment.Directive `json:"directives"`
}

// Compiler parses and compiles books with one commitment registry.
type Compiler struct {
	registry *commitment.Registry
	logger   *slog.Logger
}

// New creates a compiler. A nil logger falls back to slog.Default().
func New(registry *commitment.Registry, logger *slog.Logger) *Compiler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Compiler{registry: registry, logger: logger}
}

// Registry returns the commitment registry the compiler dispatches to.
func (c *Compiler) Registry() *commitment.Registry {
	return c.registry
}

// Parse splits source into directives in source order.
//
// A line that starts with a commitment keyword opens a directive; any other
// line continues the open directive. Before the first directive, the first
// non-empty line is the agent name and everything else is dropped.
// Directives whose commitment needs content but got none are dropped.
func (c *Compiler) Parse(source string) ParseResult {
	var result ParseResult
	var current *commitment.Directive
	var block []string
	var named bool

	flush := func() {
		if current == nil {
			return
		}
		current.Content = strings.TrimSpace(strings.Join(block, "\n"))
		h, _ := c.registry.Get(current.Type)
		if h != nil && h.RequiresContent() && current.Content == "" {
			c.logger.Debug("dropping commitment without content", "type", current.Type)
		} else {
			result.Directives = append(result.Directives, *current)
		}
		current, block = nil, nil
	}

	source = strings.ReplaceAll(source, "\r\n", "\n")
	for _, line := range strings.Split(source, "\n") {
		if d, _, ok := c.registry.Resolve(line); ok {
			flush()
			named = true
			current = &d
			block = []string{d.Content}
			continue
		}
		if current != nil {
			block = append(block, strings.TrimRight(line, " \t"))
			continue
		}
		if !named && strings.TrimSpace(line) != "" {
			result.AgentName = strings.TrimSpace(line)
			named = true
		}
	}
	flush()
	return result
}

// Compile folds the directives of source over their commitments, starting
// from model.Default(). Unknown text has no effect.
func (c *Compiler) Compile(source string) model.Requirements {
	parsed := c.Parse(source)
	req := model.Default()
	if parsed.AgentName != "" {
		req = req.WithMetadata(commitment.MetaAgentName, parsed.AgentName)
	}
	for _, d := range parsed.Directives {
		req = c.registry.Apply(req, d)
	}
	return req
}

// Parse parses source with registry.
func Parse(registry *commitment.Registry, source string) ParseResult {
	return New(registry, nil).Parse(source)
}

// Compile compiles source with registry.
func Compile(registry *commitment.Registry, source string) model.Requirements {
	return New(registry, nil).Compile(source)
}
