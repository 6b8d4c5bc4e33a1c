package compiler

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// DefaultMaxSourceBytes bounds the size of a fetched parent book.
const DefaultMaxSourceBytes = 1 << 20

// Fetcher loads the source of a parent agent.
type Fetcher interface {
	Fetch(ctx context.Context, ref string) (string, error)
}

// FetcherFunc adapts a function to Fetcher.
type FetcherFunc func(ctx context.Context, ref string) (string, error)

// Fetch calls f.
func (f FetcherFunc) Fetch(ctx context.Context, ref string) (string, error) {
	return f(ctx, ref)
}

// HTTPFetcher loads books over http and https.
type HTTPFetcher struct {
	Client   *http.Client
	MaxBytes int64
}

// NewHTTPFetcher creates a fetcher whose requests time out after timeout.
func NewHTTPFetcher(timeout time.Duration) *HTTPFetcher {
	return &HTTPFetcher{Client: &http.Client{Timeout: timeout}}
}

// Fetch downloads ref. Non-2xx responses are errors.
func (f *HTTPFetcher) Fetch(ctx context.Context, ref string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ref, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request for %s: %w", ref, err)
	}
	req.Header.Set("Accept", "text/plain, text/markdown;q=0.9, */*;q=0.1")

	client := f.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to fetch %s: %w", ref, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("failed to fetch %s: %s", ref, resp.Status)
	}

	limit := f.MaxBytes
	if limit <= 0 {
		limit = DefaultMaxSourceBytes
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, limit+1))
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", ref, err)
	}
	if int64(len(body)) > limit {
		return "", fmt.Errorf("book at %s exceeds %d bytes", ref, limit)
	}
	return string(body), nil
}

// FileFetcher loads books from the local file system. Relative paths are
// resolved against Root.
type FileFetcher struct {
	Root string
}

// Fetch reads ref, which is a path or a file:// URL.
func (f FileFetcher) Fetch(ctx context.Context, ref string) (string, error) {
	path := ref
	if strings.HasPrefix(ref, "file://") {
		u, err := url.Parse(ref)
		if err != nil {
			return "", fmt.Errorf("invalid file reference %s: %w", ref, err)
		}
		path = u.Path
	}
	if !filepath.IsAbs(path) && f.Root != "" {
		path = filepath.Join(f.Root, path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read book: %w", err)
	}
	return string(data), nil
}

// MultiFetcher dispatches by scheme: http and https to HTTP, file:// and
// plain paths to File.
type MultiFetcher struct {
	HTTP Fetcher
	File Fetcher
}

// Fetch loads ref with the fetcher for its scheme.
func (m MultiFetcher) Fetch(ctx context.Context, ref string) (string, error) {
	u, err := url.Parse(ref)
	scheme := ""
	if err == nil {
		scheme = strings.ToLower(u.Scheme)
	}
	var f Fetcher
	switch scheme {
	case "http", "https":
		f = m.HTTP
	case "file", "":
		f = m.File
	default:
		return "", fmt.Errorf("unsupported parent reference %s", ref)
	}
	if f == nil {
		return "", fmt.Errorf("no fetcher configured for %s", ref)
	}
	return f.Fetch(ctx, ref)
}
