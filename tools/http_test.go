package tools

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
	_ "time/tzdata"
)

const samplePage = `<!DOCTYPE html>
<html><head><title>Coffee Guide</title><script>var x = 1;</script></head>
<body>
<nav>Home | About</nav>
<h1>Brewing</h1>
<p>Use <strong>fresh</strong> beans.</p>
<ul><li>Grind</li><li>Brew</li></ul>
<footer>copyright</footer>
</body></html>`

func TestFetchURLContent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte(samplePage))
	}))
	defer server.Close()

	tool := NewFetchURLTool(Dependencies{HTTPClient: server.Client()})
	out := execute(t, tool, rawArgs(t, map[string]any{"url": server.URL}))

	if out["title"] != "Coffee Guide" {
		t.Errorf("unexpected title %v", out["title"])
	}
	content := out["content"].(string)
	for _, want := range []string{"# Brewing", "Use fresh beans.", "- Grind", "- Brew"} {
		if !strings.Contains(content, want) {
			t.Errorf("expected %q in content:\n%s", want, content)
		}
	}
	for _, unwanted := range []string{"var x", "Home | About", "copyright"} {
		if strings.Contains(content, unwanted) {
			t.Errorf("unexpected %q in content", unwanted)
		}
	}
}

func TestFetchURLRejectsScheme(t *testing.T) {
	tool := NewFetchURLTool(Dependencies{})
	if _, err := tool.Execute(context.Background(), rawArgs(t, map[string]any{"url": "file:///etc/passwd"})); err == nil {
		t.Error("expected file URLs to be rejected")
	}
}

func TestFetchURLAllowedDomains(t *testing.T) {
	tool := NewFetchURLTool(Dependencies{}).WithAllowedDomains([]string{"example.com"})
	result, err := tool.Execute(context.Background(), rawArgs(t, map[string]any{"url": "https://evil.test/"}))
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if result.Success() {
		t.Error("expected domain outside the allow-list to fail")
	}
}

func TestFetchURLHTTPError(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	defer server.Close()

	result, err := NewFetchURLTool(Dependencies{HTTPClient: server.Client()}).
		Execute(context.Background(), rawArgs(t, map[string]any{"url": server.URL}))
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if result.Success() || !strings.Contains(result.Error.Error(), "404") {
		t.Errorf("expected HTTP error result, got %+v", result)
	}
}

const ddgPage = `<html><body>
<div class="result results_links results_links_deep web-result">
  <h2 class="result__title"><a rel="nofollow" class="result__a" href="//duckduckgo.com/l/?uddg=https%3A%2F%2Fgo.dev%2F&amp;rut=x">The Go <b>Programming</b> Language</a></h2>
  <a class="result__snippet" href="//duckduckgo.com/l/?uddg=https%3A%2F%2Fgo.dev%2F">Go is an open source programming language.</a>
</div>
<div class="result results_links web-result">
  <h2 class="result__title"><a class="result__a" href="https://pkg.go.dev/">Go Packages</a></h2>
</div>
</body></html>`

func TestParseDuckDuckGo(t *testing.T) {
	results, err := parseDuckDuckGo(ddgPage, 10)
	if err != nil {
		t.Fatalf("parseDuckDuckGo failed: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %+v", results)
	}
	if results[0].URL != "https://go.dev/" || results[0].Title != "The Go Programming Language" {
		t.Errorf("unexpected first result %+v", results[0])
	}
	if results[0].Description != "Go is an open source programming language." {
		t.Errorf("unexpected snippet %q", results[0].Description)
	}
	if results[1].Position != 2 || results[1].Description != "" {
		t.Errorf("unexpected second result %+v", results[1])
	}

	limited, _ := parseDuckDuckGo(ddgPage, 1)
	if len(limited) != 1 {
		t.Errorf("expected limit to apply, got %d", len(limited))
	}
}

func TestDuckDuckGoSearch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil || r.Form.Get("q") != "golang" {
			t.Errorf("unexpected form %v (%v)", r.Form, err)
		}
		w.Write([]byte(ddgPage))
	}))
	defer server.Close()

	engine := &DuckDuckGo{Endpoint: server.URL, Client: server.Client()}
	out := execute(t, NewSearchTool(Dependencies{Search: engine}), rawArgs(t, map[string]any{"query": "golang"}))
	if out["status"] != StatusOK || len(out["results"].([]any)) != 2 {
		t.Errorf("unexpected output %v", out)
	}
}

type failingSearch struct{}

func (failingSearch) Search(ctx context.Context, query string, limit int) ([]SearchResult, error) {
	return nil, errors.New("rate limited")
}

func TestSearchToolWithoutEngine(t *testing.T) {
	out := execute(t, NewSearchTool(Dependencies{}), rawArgs(t, map[string]any{"query": "x"}))
	if out["status"] != StatusUnavailable {
		t.Errorf("expected unavailable, got %v", out["status"])
	}

	result, err := NewSearchTool(Dependencies{Search: failingSearch{}}).Execute(context.Background(), rawArgs(t, map[string]any{"query": "x"}))
	if err != nil || result.Success() {
		t.Errorf("expected failed result without error, got %+v (%v)", result, err)
	}
}

type recordingSender struct{ sent []Email }

func (r *recordingSender) Send(ctx context.Context, email Email) error {
	r.sent = append(r.sent, email)
	return nil
}

func TestEmailRequiresConfirmation(t *testing.T) {
	sender := &recordingSender{}
	tool := NewEmailTool(Dependencies{Email: sender})
	args := map[string]any{"to": []string{"ana@example.com"}, "subject": "Hi", "body": "Hello"}

	out := execute(t, tool, rawArgs(t, args))
	if out["status"] != StatusConfirmationRequired || len(sender.sent) != 0 {
		t.Fatalf("expected confirmation-required without sending, got %v", out)
	}

	args["confirmed"] = true
	out = execute(t, tool, rawArgs(t, args))
	if out["status"] != StatusSent || len(sender.sent) != 1 {
		t.Fatalf("expected sent, got %v", out)
	}
}

func TestEmailValidation(t *testing.T) {
	tool := NewEmailTool(Dependencies{})
	if _, err := tool.Execute(context.Background(), rawArgs(t, map[string]any{"to": []string{"not an address"}, "subject": "s", "body": "b"})); err == nil {
		t.Error("expected invalid recipient error")
	}
	out := execute(t, tool, rawArgs(t, map[string]any{"to": []string{"a@b.c"}, "subject": "s", "body": "b"}))
	if out["status"] != StatusUnavailable {
		t.Errorf("expected unavailable without sender, got %v", out["status"])
	}
}

func TestTimeTool(t *testing.T) {
	fixed := time.Date(2026, 2, 18, 12, 0, 0, 0, time.UTC)
	tool := NewTimeTool(Dependencies{Now: func() time.Time { return fixed }})

	out := execute(t, tool, rawArgs(t, map[string]any{"timezone": "Europe/Prague"}))
	if out["iso"] != "2026-02-18T13:00:00+01:00" || out["weekday"] != "Wednesday" {
		t.Errorf("unexpected output %v", out)
	}

	if _, err := tool.Execute(context.Background(), json.RawMessage(`{"timezone":"Mars/Olympus"}`)); err == nil {
		t.Error("expected unknown time zone error")
	}
}
