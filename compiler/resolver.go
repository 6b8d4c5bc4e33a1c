package compiler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/cespare/xxhash/v2"

	"github.com/richinex/agentbook/model"
)

// Inheritance errors.
var (
	ErrInheritanceCycle   = errors.New("inheritance cycle")
	ErrInheritanceTooDeep = errors.New("inheritance chain too deep")
)

// DefaultMaxDepth bounds the number of ancestors of one agent.
const DefaultMaxDepth = 8

// Resolver compiles a book together with its FROM ancestors.
type Resolver struct {
	compiler      *Compiler
	fetcher       Fetcher
	defaultParent string
	maxDepth      int
	logger        *slog.Logger

	mu    sync.Mutex
	cache map[uint64]model.Requirements
}

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

// WithDefaultParent sets the parent of books that have no FROM. It applies
// to the book being resolved only, never to its ancestors. FROM VOID opts
// out.
func WithDefaultParent(ref string) ResolverOption {
	return func(r *Resolver) {
		r.defaultParent = ref
	}
}

// WithMaxDepth sets the maximum number of ancestors.
func WithMaxDepth(n int) ResolverOption {
	return func(r *Resolver) {
		if n > 0 {
			r.maxDepth = n
		}
	}
}

// WithResolverLogger sets the logger.
func WithResolverLogger(logger *slog.Logger) ResolverOption {
	return func(r *Resolver) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// NewResolver creates a resolver that loads parents with fetcher.
func NewResolver(c *Compiler, fetcher Fetcher, opts ...ResolverOption) *Resolver {
	r := &Resolver{
		compiler: c,
		fetcher:  fetcher,
		maxDepth: DefaultMaxDepth,
		logger:   c.logger,
		cache:    make(map[uint64]model.Requirements),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve compiles source and merges it over its ancestors, parent first.
func (r *Resolver) Resolve(ctx context.Context, source string) (model.Requirements, error) {
	local := r.compiler.Compile(source)
	ref := parentOf(local)
	if ref == "" && !local.ParentExplicit {
		ref = r.defaultParent
	}
	return r.inherit(ctx, local, ref, map[string]bool{}, 0)
}

// ResolveRef fetches the book at ref and resolves it.
func (r *Resolver) ResolveRef(ctx context.Context, ref string) (model.Requirements, error) {
	local, err := r.load(ctx, ref)
	if err != nil {
		return model.Requirements{}, err
	}
	return r.inherit(ctx, local, parentOf(local), map[string]bool{ref: true}, 0)
}

// inherit merges local over the resolved book at ref. visited holds the
// references already on the chain.
func (r *Resolver) inherit(ctx context.Context, local model.Requirements, ref string, visited map[string]bool, depth int) (model.Requirements, error) {
	if ref == "" {
		return local, nil
	}
	if visited[ref] {
		return model.Requirements{}, fmt.Errorf("%w: %s", ErrInheritanceCycle, ref)
	}
	if depth >= r.maxDepth {
		return model.Requirements{}, fmt.Errorf("%w: more than %d ancestors", ErrInheritanceTooDeep, r.maxDepth)
	}
	if err := ctx.Err(); err != nil {
		return model.Requirements{}, err
	}
	visited[ref] = true

	parent, err := r.load(ctx, ref)
	if err != nil {
		return model.Requirements{}, err
	}
	resolved, err := r.inherit(ctx, parent, parentOf(parent), visited, depth+1)
	if err != nil {
		return model.Requirements{}, err
	}
	r.logger.Debug("inherited parent agent", "parent", ref, "depth", depth+1)
	return r.compiler.Merge(resolved, local), nil
}

// load fetches and compiles a book, reusing the compiled form of a source
// seen before.
func (r *Resolver) load(ctx context.Context, ref string) (model.Requirements, error) {
	if r.fetcher == nil {
		return model.Requirements{}, fmt.Errorf("cannot load parent %s: no fetcher configured", ref)
	}
	source, err := r.fetcher.Fetch(ctx, ref)
	if err != nil {
		return model.Requirements{}, fmt.Errorf("failed to load parent %s: %w", ref, err)
	}

	key := xxhash.Sum64String(source)
	r.mu.Lock()
	cached, ok := r.cache[key]
	r.mu.Unlock()
	if ok {
		return cached.Clone(), nil
	}

	compiled := r.compiler.Compile(source)
	r.mu.Lock()
	r.cache[key] = compiled
	r.mu.Unlock()
	return compiled.Clone(), nil
}

// CacheSize returns the number of compiled parents held in the cache.
func (r *Resolver) CacheSize() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.cache)
}

func parentOf(req model.Requirements) string {
	if req.ParentAgentURL == nil {
		return ""
	}
	return *req.ParentAgentURL
}
