package githubapi

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/google/go-github/v66/github"
)

// Repo identifies a repository by owner and name.
type Repo struct {
	Owner string
	Name  string
}

// String returns owner/name.
func (r Repo) String() string {
	return r.Owner + "/" + r.Name
}

// ParseRepository accepts "owner/name", "github.com/owner/name" and full
// https URLs, with or without a ".git" suffix.
func ParseRepository(s string) (Repo, error) {
	raw := strings.TrimSpace(s)
	trimmed := raw
	if u, err := url.Parse(raw); err == nil && u.Host != "" {
		if !strings.EqualFold(u.Hostname(), "github.com") && !strings.EqualFold(u.Hostname(), "www.github.com") {
			return Repo{}, fmt.Errorf("not a GitHub repository: %s", s)
		}
		trimmed = u.Path
	} else {
		lower := strings.ToLower(trimmed)
		for _, prefix := range []string{"www.github.com/", "github.com/"} {
			if strings.HasPrefix(lower, prefix) {
				trimmed = trimmed[len(prefix):]
				break
			}
		}
	}
	trimmed = strings.Trim(trimmed, "/")
	trimmed = strings.TrimSuffix(trimmed, ".git")

	parts := strings.Split(trimmed, "/")
	if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
		return Repo{}, fmt.Errorf("invalid GitHub repository reference: %q", s)
	}
	return Repo{Owner: parts[0], Name: parts[1]}, nil
}

// ContentEntry is one item of a directory listing.
type ContentEntry struct {
	Name    string `json:"name"`
	Path    string `json:"path"`
	Type    string `json:"type"` // file, dir, symlink, submodule
	Size    int64  `json:"size"`
	SHA     string `json:"sha"`
	HTMLURL string `json:"html_url,omitempty"`
}

func entryOf(c *github.RepositoryContent) ContentEntry {
	return ContentEntry{
		Name:    c.GetName(),
		Path:    c.GetPath(),
		Type:    c.GetType(),
		Size:    int64(c.GetSize()),
		SHA:     c.GetSHA(),
		HTMLURL: c.GetHTMLURL(),
	}
}

// File is a decoded file read through the Contents API.
type File struct {
	Path    string
	SHA     string
	Size    int64
	Content string
	HTMLURL string
}

func getOptions(ref string) *github.RepositoryContentGetOptions {
	if ref == "" {
		return nil
	}
	return &github.RepositoryContentGetOptions{Ref: ref}
}

// ListContents lists a directory. A file path yields a single entry.
func (c *Client) ListContents(ctx context.Context, repo Repo, path, ref string) ([]ContentEntry, error) {
	file, dir, _, err := c.gh.Repositories.GetContents(ctx, repo.Owner, repo.Name, strings.Trim(path, "/"), getOptions(ref))
	if err != nil {
		return nil, wrapError(err)
	}
	if file != nil {
		return []ContentEntry{entryOf(file)}, nil
	}
	entries := make([]ContentEntry, 0, len(dir))
	for _, item := range dir {
		entries = append(entries, entryOf(item))
	}
	return entries, nil
}

// GetFile reads and decodes one file.
func (c *Client) GetFile(ctx context.Context, repo Repo, path, ref string) (*File, error) {
	file, _, _, err := c.gh.Repositories.GetContents(ctx, repo.Owner, repo.Name, strings.Trim(path, "/"), getOptions(ref))
	if err != nil {
		return nil, wrapError(err)
	}
	if file == nil {
		return nil, fmt.Errorf("%s is a directory, not a file", path)
	}
	if t := file.GetType(); t != "" && t != "file" {
		return nil, fmt.Errorf("%s is a %s, not a file", path, t)
	}
	content, err := file.GetContent()
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return &File{
		Path:    file.GetPath(),
		SHA:     file.GetSHA(),
		Size:    int64(file.GetSize()),
		Content: content,
		HTMLURL: file.GetHTMLURL(),
	}, nil
}

// PutFileInput describes a create or update through the Contents API.
type PutFileInput struct {
	Path    string
	Content string
	Message string
	Branch  string
	// SHA of the file being replaced. Looked up when empty.
	SHA string
}

// CommitResult summarizes the commit made by a Contents write.
type CommitResult struct {
	Path      string `json:"path"`
	SHA       string `json:"sha"`
	CommitSHA string `json:"commitSha"`
	CommitURL string `json:"commitUrl,omitempty"`
	Created   bool   `json:"created"`
}

func commitResult(path string, resp *github.RepositoryContentResponse) *CommitResult {
	result := &CommitResult{Path: path}
	if resp == nil {
		return result
	}
	result.CommitSHA = resp.Commit.GetSHA()
	result.CommitURL = resp.Commit.GetHTMLURL()
	if resp.Content != nil {
		result.Path = resp.Content.GetPath()
		result.SHA = resp.Content.GetSHA()
	}
	return result
}

func fileOptions(message, branch, sha string, content []byte) *github.RepositoryContentFileOptions {
	opts := &github.RepositoryContentFileOptions{Message: github.Ptr(message), Content: content}
	if branch != "" {
		opts.Branch = github.Ptr(branch)
	}
	if sha != "" {
		opts.SHA = github.Ptr(sha)
	}
	return opts
}

// PutFile creates or replaces a file.
func (c *Client) PutFile(ctx context.Context, repo Repo, in PutFileInput) (*CommitResult, error) {
	sha := in.SHA
	if sha == "" {
		existing, err := c.GetFile(ctx, repo, in.Path, in.Branch)
		switch {
		case err == nil:
			sha = existing.SHA
		case IsNotFound(err):
		default:
			return nil, fmt.Errorf("failed to look up %s: %w", in.Path, err)
		}
	}

	path := strings.Trim(in.Path, "/")
	opts := fileOptions(in.Message, in.Branch, sha, []byte(in.Content))
	var (
		resp *github.RepositoryContentResponse
		err  error
	)
	if sha == "" {
		resp, _, err = c.gh.Repositories.CreateFile(ctx, repo.Owner, repo.Name, path, opts)
	} else {
		resp, _, err = c.gh.Repositories.UpdateFile(ctx, repo.Owner, repo.Name, path, opts)
	}
	if err != nil {
		return nil, wrapError(err)
	}
	result := commitResult(in.Path, resp)
	result.Created = sha == ""
	return result, nil
}

// DeleteFile removes a file. The blob sha is looked up when empty.
func (c *Client) DeleteFile(ctx context.Context, repo Repo, path, message, branch, sha string) (*CommitResult, error) {
	if sha == "" {
		existing, err := c.GetFile(ctx, repo, path, branch)
		if err != nil {
			return nil, fmt.Errorf("failed to look up %s: %w", path, err)
		}
		sha = existing.SHA
	}

	resp, _, err := c.gh.Repositories.DeleteFile(ctx, repo.Owner, repo.Name, strings.Trim(path, "/"), fileOptions(message, branch, sha, nil))
	if err != nil {
		return nil, wrapError(err)
	}
	return commitResult(path, resp), nil
}

// Repository is the subset of repository metadata the tools use.
type Repository struct {
	FullName      string `json:"full_name"`
	DefaultBranch string `json:"default_branch"`
	Private       bool   `json:"private"`
	HTMLURL       string `json:"html_url"`
}

// GetRepository reads repository metadata.
func (c *Client) GetRepository(ctx context.Context, repo Repo) (*Repository, error) {
	r, _, err := c.gh.Repositories.Get(ctx, repo.Owner, repo.Name)
	if err != nil {
		return nil, wrapError(err)
	}
	return &Repository{
		FullName:      r.GetFullName(),
		DefaultBranch: r.GetDefaultBranch(),
		Private:       r.GetPrivate(),
		HTMLURL:       r.GetHTMLURL(),
	}, nil
}

// Ref is a git reference.
type Ref struct {
	Ref    string `json:"ref"`
	Object struct {
		SHA  string `json:"sha"`
		Type string `json:"type"`
	} `json:"object"`
}

// CreateBranch creates branch from the head of base. An empty base selects
// the repository default branch.
func (c *Client) CreateBranch(ctx context.Context, repo Repo, branch, base string) (*Ref, error) {
	if base == "" {
		info, err := c.GetRepository(ctx, repo)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve default branch: %w", err)
		}
		base = info.DefaultBranch
	}

	baseRef, _, err := c.gh.Git.GetRef(ctx, repo.Owner, repo.Name, "heads/"+base)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve base branch %s: %w", base, wrapError(err))
	}

	created, _, err := c.gh.Git.CreateRef(ctx, repo.Owner, repo.Name, &github.Reference{
		Ref:    github.Ptr("refs/heads/" + branch),
		Object: &github.GitObject{SHA: baseRef.GetObject().SHA},
	})
	if err != nil {
		return nil, wrapError(err)
	}
	ref := &Ref{Ref: created.GetRef()}
	ref.Object.SHA = created.GetObject().GetSHA()
	ref.Object.Type = created.GetObject().GetType()
	return ref, nil
}

// PullRequestInput describes a new pull request.
type PullRequestInput struct {
	Title string `json:"title"`
	Head  string `json:"head"`
	Base  string `json:"base"`
	Body  string `json:"body,omitempty"`
	Draft bool   `json:"draft,omitempty"`
}

// PullRequest is the subset of pull request fields the tools return.
type PullRequest struct {
	Number  int    `json:"number"`
	State   string `json:"state"`
	Title   string `json:"title"`
	HTMLURL string `json:"html_url"`
}

// CreatePullRequest opens a pull request. An empty base selects the
// repository default branch.
func (c *Client) CreatePullRequest(ctx context.Context, repo Repo, in PullRequestInput) (*PullRequest, error) {
	if in.Base == "" {
		info, err := c.GetRepository(ctx, repo)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve default branch: %w", err)
		}
		in.Base = info.DefaultBranch
	}

	newPR := &github.NewPullRequest{
		Title: github.Ptr(in.Title),
		Head:  github.Ptr(in.Head),
		Base:  github.Ptr(in.Base),
		Draft: github.Ptr(in.Draft),
	}
	if in.Body != "" {
		newPR.Body = github.Ptr(in.Body)
	}
	pr, _, err := c.gh.PullRequests.Create(ctx, repo.Owner, repo.Name, newPR)
	if err != nil {
		return nil, wrapError(err)
	}
	return &PullRequest{
		Number:  pr.GetNumber(),
		State:   pr.GetState(),
		Title:   pr.GetTitle(),
		HTMLURL: pr.GetHTMLURL(),
	}, nil
}
