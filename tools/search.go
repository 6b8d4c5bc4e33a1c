// Web search tool (USE SEARCH ENGINE).
//
// Information Hiding:
// - Search provider hidden behind SearchEngine
// - DuckDuckGo HTML scraping details encapsulated

package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/net/html"
)

// ToolWebSearch is the name of the search tool.
const ToolWebSearch = "web_search"

const defaultSearchLimit = 10

// SearchResult is one hit returned by a SearchEngine.
type SearchResult struct {
	Position    int    `json:"position"`
	Title       string `json:"title"`
	URL         string `json:"url"`
	Description string `json:"description,omitempty"`
}

// SearchEngine runs web searches.
type SearchEngine interface {
	Search(ctx context.Context, query string, limit int) ([]SearchResult, error)
}

// DuckDuckGo searches the DuckDuckGo HTML endpoint.
type DuckDuckGo struct {
	Endpoint string
	Client   *http.Client
}

// NewDuckDuckGo creates a search engine using client.
func NewDuckDuckGo(client *http.Client) *DuckDuckGo {
	return &DuckDuckGo{Endpoint: "https://html.duckduckgo.com/html/", Client: client}
}

// Search posts the query form and parses the result page.
func (d *DuckDuckGo) Search(ctx context.Context, query string, limit int) ([]SearchResult, error) {
	form := url.Values{"q": {query}, "kp": {"-2"}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.Endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to create search request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36")

	client := d.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("search HTTP error: %s", resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxFetchBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read search results: %w", err)
	}
	return parseDuckDuckGo(string(body), limit)
}

func hasClass(n *html.Node, class string) bool {
	for _, a := range n.Attr {
		if a.Key == "class" {
			for _, c := range strings.Fields(a.Val) {
				if c == class {
					return true
				}
			}
		}
	}
	return false
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func nodeText(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return strings.Join(strings.Fields(sb.String()), " ")
}

// resultURL unwraps DuckDuckGo redirect links.
func resultURL(href string) string {
	if strings.HasPrefix(href, "http") && !strings.Contains(href, "duckduckgo.com") {
		return href
	}
	u, err := url.Parse(href)
	if err != nil {
		return ""
	}
	if target := u.Query().Get("uddg"); target != "" {
		return target
	}
	return ""
}

func parseDuckDuckGo(page string, limit int) ([]SearchResult, error) {
	doc, err := html.Parse(strings.NewReader(page))
	if err != nil {
		return nil, fmt.Errorf("failed to parse search results: %w", err)
	}

	var results []SearchResult
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if len(results) >= limit {
			return
		}
		if n.Type == html.ElementNode {
			switch {
			case hasClass(n, "result__a"):
				title, link := nodeText(n), resultURL(attr(n, "href"))
				if title != "" && link != "" {
					results = append(results, SearchResult{Position: len(results) + 1, Title: title, URL: link})
				}
				return
			case hasClass(n, "result__snippet"):
				if len(results) > 0 && results[len(results)-1].Description == "" {
					results[len(results)-1].Description = nodeText(n)
				}
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return results, nil
}

// SearchTool exposes a SearchEngine to the model.
type SearchTool struct {
	BaseTool
	engine SearchEngine
}

// NewSearchTool creates the search tool.
func NewSearchTool(deps Dependencies) *SearchTool {
	return &SearchTool{engine: deps.Search}
}

// Metadata returns the tool metadata.
func (t *SearchTool) Metadata() ToolMetadata {
	return ToolMetadata{
		Name:        ToolWebSearch,
		Title:       "Web search",
		Description: "Search the web and return result titles, links and snippets",
		Parameters: []ToolParameter{
			{Name: "query", ParamType: "string", Description: "Search query", Required: true},
			{Name: "limit", ParamType: "integer", Description: "Maximum number of results", Required: false},
		},
	}
}

// Execute runs the search.
func (t *SearchTool) Execute(ctx context.Context, args json.RawMessage) (ToolResult, error) {
	var a struct {
		Query string `json:"query"`
		Limit int    `json:"limit"`
	}
	if _, err := decodeArgs(args, &a); err != nil {
		return ToolResult{}, err
	}
	if strings.TrimSpace(a.Query) == "" {
		return ToolResult{}, fmt.Errorf("%s: query is required", ToolWebSearch)
	}
	if t.engine == nil {
		return statusOnly(StatusUnavailable, "no search engine is configured")
	}
	if a.Limit <= 0 || a.Limit > defaultSearchLimit {
		a.Limit = defaultSearchLimit
	}

	results, err := t.engine.Search(ctx, strings.TrimSpace(a.Query), a.Limit)
	if err != nil {
		return FailureResult(err), nil
	}
	return JSONResult(map[string]any{"status": StatusOK, "query": a.Query, "results": results})
}
