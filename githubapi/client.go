// Package githubapi wraps go-github for the REST endpoints used by project
// tools: Contents, Git Refs, Repos and Pulls.
//
// Information Hiding:
// - Authentication and API version headers are applied in one place
// - Base64 encoding of file bodies never leaks to callers
// - Error payloads are flattened into *Error
package githubapi

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/go-github/v66/github"
)

// Defaults for api.github.com.
const (
	DefaultBaseURL    = "https://api.github.com"
	DefaultAPIVersion = "2022-11-28"
	DefaultTimeout    = 30 * time.Second
)

// Config configures a Client. Zero values select the defaults.
type Config struct {
	BaseURL    string
	APIVersion string
	Timeout    time.Duration
	HTTPClient *http.Client
}

// Client calls the GitHub REST API with a bearer token.
type Client struct {
	gh *github.Client
}

// NewClient creates a client without credentials. An unparsable BaseURL
// falls back to DefaultBaseURL.
func NewClient(cfg Config) *Client {
	var httpClient http.Client
	if cfg.HTTPClient != nil {
		httpClient = *cfg.HTTPClient
	}
	if httpClient.Timeout == 0 {
		httpClient.Timeout = cfg.Timeout
		if httpClient.Timeout <= 0 {
			httpClient.Timeout = DefaultTimeout
		}
	}
	version := cfg.APIVersion
	if version == "" {
		version = DefaultAPIVersion
	}
	httpClient.Transport = &versionTransport{version: version, base: httpClient.Transport}

	gh := github.NewClient(&httpClient)
	if base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/") + "/"); err == nil && base.Host != "" {
		gh.BaseURL = base
	}
	return &Client{gh: gh}
}

// WithToken returns a copy of the client that authenticates with token.
func (c *Client) WithToken(token string) *Client {
	return &Client{gh: c.gh.WithAuthToken(token)}
}

// versionTransport pins the X-GitHub-Api-Version header to the configured
// version.
type versionTransport struct {
	version string
	base    http.RoundTripper
}

func (t *versionTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	req.Header.Set("X-GitHub-Api-Version", t.version)
	base := t.base
	if base == nil {
		base = http.DefaultTransport
	}
	return base.RoundTrip(req)
}

// Error is a non-2xx response from GitHub.
type Error struct {
	StatusCode       int
	Message          string
	Details          []string
	DocumentationURL string
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = http.StatusText(e.StatusCode)
	}
	if len(e.Details) > 0 {
		msg += " (" + strings.Join(e.Details, "; ") + ")"
	}
	return fmt.Sprintf("GitHub API error %d: %s", e.StatusCode, msg)
}

// IsNotFound reports whether err is a GitHub 404.
func IsNotFound(err error) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

// wrapError flattens go-github error responses into *Error. Other errors
// are returned unchanged.
func wrapError(err error) error {
	if err == nil {
		return nil
	}
	var rateErr *github.RateLimitError
	if errors.As(err, &rateErr) && rateErr.Response != nil {
		return &Error{StatusCode: rateErr.Response.StatusCode, Message: rateErr.Message}
	}
	var abuseErr *github.AbuseRateLimitError
	if errors.As(err, &abuseErr) && abuseErr.Response != nil {
		return &Error{StatusCode: abuseErr.Response.StatusCode, Message: abuseErr.Message}
	}
	var respErr *github.ErrorResponse
	if !errors.As(err, &respErr) || respErr.Response == nil {
		return err
	}
	apiErr := &Error{
		StatusCode:       respErr.Response.StatusCode,
		Message:          respErr.Message,
		DocumentationURL: respErr.DocumentationURL,
	}
	for _, d := range respErr.Errors {
		switch {
		case d.Message != "":
			apiErr.Details = append(apiErr.Details, d.Message)
		case d.Field != "" || d.Code != "":
			apiErr.Details = append(apiErr.Details, strings.TrimSpace(d.Resource+" "+d.Field+" "+d.Code))
		}
	}
	return apiErr
}
