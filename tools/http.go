// URL fetching tool (USE BROWSER).
//
// Information Hiding:
// - HTTP client implementation details hidden
// - HTML to text reduction hidden
// - Domain allow-list enforcement hidden

package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"slices"
	"strings"

	"golang.org/x/net/html"
)

// ToolFetchURLContent is the name of the URL fetching tool.
const ToolFetchURLContent = "fetch_url_content"

// maxFetchBytes bounds the response body read from a page.
const maxFetchBytes = 4 << 20

// FetchURLTool downloads a page and returns its readable text.
type FetchURLTool struct {
	BaseTool
	client         *http.Client
	allowedDomains []string
}

// NewFetchURLTool creates the fetch tool.
func NewFetchURLTool(deps Dependencies) *FetchURLTool {
	return &FetchURLTool{client: deps.httpClient()}
}

// WithAllowedDomains sets the allowed domains for requests.
func (t *FetchURLTool) WithAllowedDomains(domains []string) *FetchURLTool {
	t.allowedDomains = domains
	return t
}

// Metadata returns the tool metadata.
func (t *FetchURLTool) Metadata() ToolMetadata {
	return ToolMetadata{
		Name:        ToolFetchURLContent,
		Title:       "Fetch web page",
		Description: "Fetch a web page and return its readable text content",
		Parameters: []ToolParameter{
			{Name: "url", ParamType: "string", Description: "The http or https URL to fetch", Required: true},
		},
	}
}

type fetchArgs struct {
	URL string `json:"url"`
}

// Validate validates the arguments.
func (t *FetchURLTool) Validate(args json.RawMessage) error {
	var a fetchArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return fmt.Errorf("invalid arguments: %w", err)
	}
	if a.URL == "" {
		return fmt.Errorf("URL cannot be empty")
	}
	return nil
}

// Execute fetches the page. Network failures are failed results, not
// errors; they are not retried.
func (t *FetchURLTool) Execute(ctx context.Context, args json.RawMessage) (ToolResult, error) {
	var a fetchArgs
	if _, err := decodeArgs(args, &a); err != nil {
		return ToolResult{}, err
	}

	u, err := url.Parse(a.URL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return ToolResult{}, fmt.Errorf("invalid URL %q: only http and https are supported", a.URL)
	}
	if !t.isDomainAllowed(u) {
		return FailureResultf("access to domain in '%s' is not allowed", a.URL), nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return FailureResult(fmt.Errorf("failed to create request: %w", err)), nil
	}
	req.Header.Set("User-Agent", "agentbook/1.0 (+https://github.com/richinex/agentbook)")

	resp, err := t.client.Do(req)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return FailureResultf("request timed out"), nil
		}
		return FailureResult(fmt.Errorf("request failed: %w", err)), nil
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxFetchBytes))
	if err != nil {
		return FailureResult(fmt.Errorf("failed to read response body: %w", err)), nil
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return FailureResultf("HTTP error: %s", resp.Status), nil
	}

	title, text := "", string(body)
	if strings.Contains(strings.ToLower(resp.Header.Get("Content-Type")), "html") || looksLikeHTML(text) {
		title, text, err = extractText(text)
		if err != nil {
			return FailureResult(err), nil
		}
	}
	text, truncated := truncateChars(text, MaxOutputChars)

	return JSONResult(map[string]any{
		"status":       StatusOK,
		"url":          u.String(),
		"title":        title,
		"content":      text,
		"wasTruncated": truncated,
	})
}

// isDomainAllowed checks if the URL's domain is in the allowlist.
func (t *FetchURLTool) isDomainAllowed(u *url.URL) bool {
	if len(t.allowedDomains) == 0 {
		return true
	}
	host := u.Hostname()
	for _, domain := range t.allowedDomains {
		// Exact match or subdomain match
		if host == domain || strings.HasSuffix(host, "."+domain) {
			return true
		}
	}
	return false
}

func looksLikeHTML(s string) bool {
	head := strings.ToLower(strings.TrimSpace(s[:min(len(s), 512)]))
	return strings.HasPrefix(head, "<!doctype html") || strings.HasPrefix(head, "<html")
}

var skippedTags = []string{
	"script", "style", "noscript", "svg", "iframe", "canvas", "video", "audio",
	"nav", "header", "footer", "aside", "form", "button", "input", "select", "textarea", "template",
}

var blockTags = []string{
	"div", "section", "article", "main", "p", "ul", "ol", "blockquote", "pre", "table", "tr",
}

// extractText reduces an HTML document to its title and readable text.
func extractText(raw string) (string, string, error) {
	doc, err := html.Parse(strings.NewReader(raw))
	if err != nil {
		return "", "", fmt.Errorf("failed to parse HTML: %w", err)
	}

	var title string
	var sb strings.Builder
	var walk func(*html.Node)
	walkChildren := func(n *html.Node) {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			sb.WriteString(n.Data)
			return
		case html.ElementNode:
			tag := strings.ToLower(n.Data)
			switch {
			case tag == "title":
				if title == "" && n.FirstChild != nil {
					title = strings.TrimSpace(n.FirstChild.Data)
				}
				return
			case slices.Contains(skippedTags, tag):
				return
			case len(tag) == 2 && tag[0] == 'h' && tag[1] >= '1' && tag[1] <= '6':
				sb.WriteString("\n" + strings.Repeat("#", int(tag[1]-'0')) + " ")
				walkChildren(n)
				sb.WriteString("\n")
				return
			case tag == "li":
				sb.WriteString("\n- ")
				walkChildren(n)
				return
			case tag == "br":
				sb.WriteString("\n")
				return
			case slices.Contains(blockTags, tag):
				sb.WriteString("\n")
				walkChildren(n)
				sb.WriteString("\n")
				return
			}
		}
		walkChildren(n)
	}
	walk(doc)

	return title, collapseBlankLines(sb.String()), nil
}

// collapseBlankLines trims every line and keeps at most one blank line in a row.
func collapseBlankLines(s string) string {
	var out []string
	blank := false
	for _, line := range strings.Split(s, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			if !blank && len(out) > 0 {
				out = append(out, "")
			}
			blank = true
			continue
		}
		blank = false
		out = append(out, line)
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}
