// Command execution for CLI commands.
//
// Information Hiding:
// - Book loading and inheritance setup hidden
// - Tool dependency wiring hidden
// - Output formatting hidden

package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/richinex/agentbook/commitment"
	"github.com/richinex/agentbook/compiler"
	"github.com/richinex/agentbook/config"
	"github.com/richinex/agentbook/githubapi"
	"github.com/richinex/agentbook/llm"
	"github.com/richinex/agentbook/mcp"
	"github.com/richinex/agentbook/metrics"
	"github.com/richinex/agentbook/model"
	"github.com/richinex/agentbook/pending"
	"github.com/richinex/agentbook/runtimectx"
	"github.com/richinex/agentbook/storage"
	"github.com/richinex/agentbook/tools"
)

// App runs CLI commands against one set of settings.
type App struct {
	settings config.Settings
	logger   *slog.Logger
	registry *commitment.Registry
	compiler *compiler.Compiler
	out      io.Writer
	stdin    io.Reader
}

// NewApp creates an app writing command output to out.
func NewApp(settings config.Settings, logger *slog.Logger, out io.Writer) *App {
	if logger == nil {
		logger = slog.Default()
	}
	registry := commitment.Default(logger)
	return &App{
		settings: settings,
		logger:   logger,
		registry: registry,
		compiler: compiler.New(registry, logger),
		out:      out,
		stdin:    os.Stdin,
	}
}

// BookOptions selects how a book is compiled.
type BookOptions struct {
	// NoInherit compiles the book alone, ignoring FROM and the default parent.
	NoInherit bool
}

// readBook returns the book source and the directory relative parents are
// resolved against. "-" reads standard input.
func (a *App) readBook(path string) (string, string, error) {
	if path == "-" {
		data, err := io.ReadAll(a.stdin)
		if err != nil {
			return "", "", fmt.Errorf("failed to read book from stdin: %w", err)
		}
		wd, _ := os.Getwd()
		return string(data), wd, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", "", fmt.Errorf("failed to read book: %w", err)
	}
	return string(data), filepath.Dir(path), nil
}

// load compiles the book at path, resolving its ancestors unless disabled.
func (a *App) load(ctx context.Context, path string, opts BookOptions) (model.Requirements, error) {
	source, dir, err := a.readBook(path)
	if err != nil {
		return model.Requirements{}, err
	}

	var req model.Requirements
	if opts.NoInherit {
		req = a.compiler.Compile(source)
	} else {
		fetcher := compiler.MultiFetcher{
			HTTP: compiler.NewHTTPFetcher(a.settings.Compiler.FetchTimeout),
			File: compiler.FileFetcher{Root: dir},
		}
		resolverOpts := []compiler.ResolverOption{
			compiler.WithMaxDepth(a.settings.Compiler.MaxDepth),
			compiler.WithResolverLogger(a.logger),
		}
		if parent := a.settings.Compiler.DefaultParentURL; parent != "" {
			resolverOpts = append(resolverOpts, compiler.WithDefaultParent(parent))
		}
		req, err = compiler.NewResolver(a.compiler, fetcher, resolverOpts...).Resolve(ctx, source)
		if err != nil {
			return model.Requirements{}, fmt.Errorf("failed to resolve %s: %w", path, err)
		}
	}

	if !req.IsExplicit(model.ParamModelName) && a.settings.Compiler.DefaultModel != "" {
		req.ModelName = a.settings.Compiler.DefaultModel
	}
	a.logger.Debug("book compiled", "path", path, "tools", len(req.Tools), "segments", len(req.Segments))
	return req, nil
}

func (a *App) writeJSON(v any) error {
	enc := json.NewEncoder(a.out)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}

// Compile prints the compiled requirements as JSON, or only the system
// message when systemOnly is set.
func (a *App) Compile(ctx context.Context, path string, systemOnly bool, opts BookOptions) error {
	req, err := a.load(ctx, path, opts)
	if err != nil {
		return err
	}
	if systemOnly {
		_, err := fmt.Fprintln(a.out, req.SystemMessage)
		return err
	}
	return a.writeJSON(req)
}

// Commitments lists the registered commitment types.
func (a *App) Commitments(verbose bool) error {
	w := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	for _, h := range a.registry.Handlers() {
		content := "optional"
		if h.RequiresContent() {
			content = "required"
		}
		aliases := strings.Join(h.Aliases(), ", ")
		if verbose {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", h.Type(), content, aliases, h.Description())
		} else {
			fmt.Fprintf(w, "%s\t%s\n", h.Type(), aliases)
		}
	}
	return w.Flush()
}

// Tools lists every tool a commitment can register.
func (a *App) Tools(verbose bool) error {
	registry, err := tools.NewRegistryWith(a.registry.Tools(tools.Dependencies{})...)
	if err != nil {
		return err
	}

	fmt.Fprintln(a.out, "Available tools:")
	fmt.Fprintln(a.out)

	for _, meta := range registry.List() {
		fmt.Fprintf(a.out, "  %s\n", meta.Name)
		fmt.Fprintf(a.out, "    %s\n", meta.Description)

		if verbose && len(meta.Parameters) > 0 {
			fmt.Fprintln(a.out, "    Parameters:")
			for _, param := range meta.Parameters {
				req := ""
				if param.Required {
					req = "*"
				}
				fmt.Fprintf(a.out, "      %s%s: %s - %s\n", param.Name, req, param.ParamType, param.Description)
			}
		}
		fmt.Fprintln(a.out)
	}
	return nil
}

// Request prints the provider request body for a conversation with the
// compiled agent. Each message becomes a user turn.
func (a *App) Request(ctx context.Context, path, provider string, messages []string, opts BookOptions) error {
	p, err := llm.ParseProviderType(provider)
	if err != nil {
		return err
	}
	req, err := a.load(ctx, path, opts)
	if err != nil {
		return err
	}

	history := make([]llm.ChatMessage, len(messages))
	for i, m := range messages {
		history[i] = llm.UserMessage(m)
	}

	body, err := llm.BuildRequest(p, req, llm.Conversation(req, history...))
	if err != nil {
		return err
	}
	return a.writeJSON(body)
}

// MCPConfig prints the MCP server configuration of the compiled agent,
// merged with an optional host configuration file. With discover set, stdio
// servers are started and their tools listed instead.
func (a *App) MCPConfig(ctx context.Context, path, hostConfig string, discover bool, opts BookOptions) error {
	req, err := a.load(ctx, path, opts)
	if err != nil {
		return err
	}

	cfg, errs := mcp.FromRequirements(req)
	for _, err := range errs {
		a.logger.Warn("skipping MCP server", "error", err)
	}
	if hostConfig != "" {
		host, err := mcp.LoadConfig(hostConfig)
		if err != nil {
			return err
		}
		cfg = cfg.Merge(*host)
	}

	if !discover {
		return a.writeJSON(cfg)
	}

	for _, name := range cfg.Names() {
		server := cfg.MCPServers[name]
		if server.IsRemote() {
			a.logger.Info("skipping remote MCP server", "server", name, "url", server.URL)
			continue
		}
		manager, err := mcp.Discover(ctx, server)
		if err != nil {
			a.logger.Warn("MCP discovery failed", "server", name, "error", err)
			continue
		}
		fmt.Fprintf(a.out, "%s:\n", name)
		for _, t := range manager.Tools() {
			fmt.Fprintf(a.out, "  %s\n", t.Metadata())
		}
		manager.Close()
	}
	return nil
}

// CallOptions describes a single tool call.
type CallOptions struct {
	Tool      string
	CallID    string
	Arguments string
	// RuntimeContext is a serialized runtime context. When empty, one is
	// built from UserID and the configured GitHub token.
	RuntimeContext string
	UserID         string
	Book           BookOptions
}

// Call compiles the book, builds the tools it enables and invokes one.
func (a *App) Call(ctx context.Context, path string, opts CallOptions) error {
	req, err := a.load(ctx, path, opts.Book)
	if err != nil {
		return err
	}

	deps, cleanup, err := a.dependencies()
	if err != nil {
		return err
	}
	defer cleanup()

	registry, err := a.registry.ToolRegistry(req, deps)
	if err != nil {
		return err
	}

	collectors := metrics.New(prometheus.NewRegistry())
	deps.Locations.Correlator().OnChange(collectors.SetPending)
	invoker := tools.NewInvoker(registry, tools.ToolConfig{TimeoutSecs: a.settings.Tools.TimeoutSecs},
		tools.WithMetrics(collectors),
		tools.WithLogger(a.logger),
	)

	args := map[string]any{}
	if strings.TrimSpace(opts.Arguments) != "" {
		if err := json.Unmarshal([]byte(opts.Arguments), &args); err != nil {
			return fmt.Errorf("arguments must be a JSON object: %w", err)
		}
	}

	rc := opts.RuntimeContext
	if rc == "" {
		rc, err = a.runtimeContext(ctx, req, deps, opts.UserID)
		if err != nil {
			return err
		}
	}

	callID := opts.CallID
	if callID == "" {
		callID = fmt.Sprintf("call_%d", time.Now().UnixNano())
	}

	result, err := invoker.Invoke(ctx, tools.Call{ID: callID, Name: opts.Tool, Arguments: args}, rc)
	if err != nil {
		return err
	}
	return a.writeJSON(result)
}

// dependencies wires tool collaborators from the settings.
func (a *App) dependencies() (tools.Dependencies, func(), error) {
	httpClient := &http.Client{Timeout: tools.DefaultToolConfig().Timeout()}
	if a.settings.Tools.TimeoutSecs > 0 {
		httpClient.Timeout = time.Duration(a.settings.Tools.TimeoutSecs) * time.Second
	}

	deps := tools.Dependencies{
		GitHub: githubapi.NewClient(githubapi.Config{
			BaseURL:    a.settings.GitHub.BaseURL,
			APIVersion: a.settings.GitHub.APIVersion,
			Timeout:    a.settings.GitHub.Timeout,
		}),
		Locations:       pending.NewLocationRequests(),
		Search:          tools.NewDuckDuckGo(httpClient),
		HTTPClient:      httpClient,
		LocationTimeout: a.settings.Tools.LocationTimeout,
		Logger:          a.logger,
	}

	if a.settings.Storage.SQLitePath == "" {
		store := storage.NewInMemoryStore()
		deps.Memory, deps.Wallet = store, store
		return deps, func() {}, nil
	}

	store, err := storage.OpenSqlite(a.settings.Storage.SQLitePath)
	if err != nil {
		return tools.Dependencies{}, nil, fmt.Errorf("failed to open database: %w", err)
	}
	deps.Memory, deps.Wallet = store, store
	return deps, func() {
		if err := store.Close(); err != nil {
			a.logger.Warn("failed to close database", "error", err)
		}
	}, nil
}

// runtimeContext builds the hidden context for a call made from the CLI.
func (a *App) runtimeContext(ctx context.Context, req model.Requirements, deps tools.Dependencies, userID string) (string, error) {
	agentName, _ := req.Metadata[commitment.MetaAgentName].(string)

	var rc runtimectx.Context
	if userID != "" {
		rc.Memory = &runtimectx.MemoryContext{Enabled: true, UserID: userID, AgentName: agentName}
		rc.Wallet = &runtimectx.WalletContext{Enabled: true, UserID: userID}
	}

	token := a.settings.GitHub.Token
	if token == "" && userID != "" && len(req.Projects) > 0 {
		t, err := tools.GitHubTokenFromWallet(ctx, deps.Wallet, userID, "")
		if err != nil {
			return "", err
		}
		token = t
	}
	rc.Projects = runtimectx.ProjectsFromRequirements(req, token)

	return runtimectx.Serialize(rc)
}
