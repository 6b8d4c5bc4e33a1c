package commitment

import (
	"log/slog"
	"strings"
	"unicode"

	"github.com/richinex/agentbook/githubapi"
	"github.com/richinex/agentbook/model"
	"github.com/richinex/agentbook/tools"
)

// useHandler records capabilities that have no dedicated commitment.
type useHandler struct {
	base
}

func newUse() *useHandler {
	return &useHandler{base: newBase("USE", false, "A capability the agent relies on")}
}

func (h *useHandler) Apply(req model.Requirements, content string) model.Requirements {
	content = strings.TrimSpace(content)
	if content == "" {
		return req
	}
	return req.WithMetadataListItem(MetaUses, content)
}

func newUseBrowser() *toolHandler {
	return newToolHandler("USE BROWSER", false,
		"Lets the agent fetch and read web pages",
		"You can read web pages with the "+tools.ToolFetchURLContent+" tool. Use it when the user refers to a URL or you need current information from a known page.",
		func(deps tools.Dependencies) []tools.Tool {
			return []tools.Tool{tools.NewFetchURLTool(deps)}
		})
}

func newUseSearchEngine() *toolHandler {
	return newToolHandler("USE SEARCH ENGINE", false,
		"Lets the agent search the web",
		"You can search the web with the "+tools.ToolWebSearch+" tool. Cite the links you rely on.",
		func(deps tools.Dependencies) []tools.Tool {
			return []tools.Tool{tools.NewSearchTool(deps)}
		})
}

func newUseTime() *toolHandler {
	return newToolHandler("USE TIME", false,
		"Lets the agent read the current date and time",
		"You can get the current date and time with the "+tools.ToolGetCurrentTime+" tool. Do not guess the date.",
		func(deps tools.Dependencies) []tools.Tool {
			return []tools.Tool{tools.NewTimeTool(deps)}
		})
}

func newUseEmail() *toolHandler {
	return newToolHandler("USE EMAIL", false,
		"Lets the agent send email after the user confirms",
		"You can send email with the "+tools.ToolSendEmail+" tool. Always show the draft and wait for the user's approval before sending.",
		func(deps tools.Dependencies) []tools.Tool {
			return []tools.Tool{tools.NewEmailTool(deps)}
		})
}

func newUseUserLocation() *toolHandler {
	return newToolHandler("USE USER LOCATION", false,
		"Lets the agent ask for the user's location",
		"You can ask for the user's current location with the "+tools.ToolGetUserLocation+" tool. The user may decline.",
		func(deps tools.Dependencies) []tools.Tool {
			return []tools.Tool{tools.NewLocationTool(deps)}
		})
}

type useMCPHandler struct {
	base
}

func newUseMCP() *useMCPHandler {
	return &useMCPHandler{base: newBase("USE MCP", true, "An MCP server whose tools the agent may use")}
}

func (h *useMCPHandler) Apply(req model.Requirements, content string) model.Requirements {
	content = strings.TrimSpace(content)
	if content == "" {
		return req
	}
	return req.WithMCPServer(content)
}

type useImageGeneratorHandler struct {
	base
}

func newUseImageGenerator() *useImageGeneratorHandler {
	return &useImageGeneratorHandler{base: newBase("USE IMAGE GENERATOR", false, "Lets the agent create images")}
}

func (h *useImageGeneratorHandler) Apply(req model.Requirements, content string) model.Requirements {
	content = strings.TrimSpace(content)
	generator := content
	if generator == "" {
		generator = "default"
	}
	req = req.WithMetadata(MetaImageGenerator, generator)
	return req.WithUniqueSegment(usageKey(h.typ), h.typ, joinNonEmpty("\n",
		"You can create images. Describe the image you want in a single detailed prompt.", content))
}

// projectHandler configures GitHub repositories and the project tools.
// The first content line lists repository references, optionally followed
// by branch=<name> for the reference before it. Further lines are
// instructions for working with the repositories, kept in their own segment.
type projectHandler struct {
	*toolHandler
	logger *slog.Logger
}

func newUseProject(logger *slog.Logger) *projectHandler {
	return &projectHandler{
		toolHandler: newToolHandler("USE PROJECT", false,
			"Gives the agent access to GitHub repositories",
			"",
			tools.ProjectTools),
		logger: logger,
	}
}

func (h *projectHandler) Apply(req model.Requirements, content string) model.Requirements {
	first, rest, _ := strings.Cut(strings.TrimSpace(content), "\n")
	refs, ignored := ParseProjectReferences(first)
	if len(ignored) > 0 {
		h.logger.Debug("ignoring USE PROJECT tokens", "tokens", ignored)
	}
	for _, ref := range refs {
		req = req.WithProject(ref)
	}
	req = h.register(req, projectUsage(req.Projects))
	if rest = strings.TrimSpace(rest); rest != "" {
		req = req.WithUniqueSegment(usageKey(h.typ)+":instructions", h.typ, rest)
	}
	return req
}

// Rederive lists every configured repository in the usage segment.
func (h *projectHandler) Rederive(req model.Requirements) model.Requirements {
	if !req.HasTool(tools.ToolProjectListFiles) {
		return req
	}
	return req.WithUniqueSegment(usageKey(h.typ), h.typ, projectUsage(req.Projects))
}

// ParseProjectReferences reads repository references separated by
// whitespace or commas. Tokens that are not references are returned
// separately.
func ParseProjectReferences(line string) ([]model.ProjectReference, []string) {
	var refs []model.ProjectReference
	var ignored []string
	tokens := strings.FieldsFunc(line, func(r rune) bool {
		return r == ',' || unicode.IsSpace(r)
	})
	for _, token := range tokens {
		if key, value, ok := strings.Cut(token, "="); ok {
			switch strings.ToLower(key) {
			case "branch", "defaultbranch":
				if len(refs) > 0 && value != "" {
					refs[len(refs)-1].DefaultBranch = value
					continue
				}
			}
			ignored = append(ignored, token)
			continue
		}
		repo, err := githubapi.ParseRepository(token)
		if err != nil {
			ignored = append(ignored, token)
			continue
		}
		refs = append(refs, model.ProjectReference{
			URL:  "https://github.com/" + repo.String(),
			Slug: repo.String(),
		})
	}
	return refs, ignored
}

func projectUsage(projects []model.ProjectReference) string {
	if len(projects) == 0 {
		return "You can work with GitHub repositories through the project tools once a repository is configured."
	}
	var sb strings.Builder
	sb.WriteString("You can read and change these GitHub repositories through the project tools:")
	for _, p := range projects {
		sb.WriteString("\n- " + p.Slug)
		if p.DefaultBranch != "" {
			sb.WriteString(" (default branch " + p.DefaultBranch + ")")
		}
	}
	sb.WriteString("\nPrefer a new branch and a pull request over committing to the default branch.")
	return sb.String()
}

func newMemory() *toolHandler {
	return newToolHandler("MEMORY", false,
		"Lets the agent remember facts about the user across conversations",
		"You can remember facts about the user across conversations with the memory tools. Retrieve memories when they may help, and store only what the user would want remembered.",
		tools.MemoryTools)
}

// walletHandler registers the wallet tools and records which credentials
// the agent expects.
type walletHandler struct {
	*toolHandler
}

func newWallet() *walletHandler {
	return &walletHandler{toolHandler: newToolHandler("WALLET", false,
		"Lets the agent use credentials the user stored",
		"Credentials saved by the user are available through the wallet tools. Never repeat a secret in your answers.",
		tools.WalletTools)}
}

func (h *walletHandler) Apply(req model.Requirements, content string) model.Requirements {
	content = strings.TrimSpace(content)
	if content != "" {
		req = req.WithMetadataListItem(MetaWallet, content)
	}
	return h.register(req, h.usage)
}
