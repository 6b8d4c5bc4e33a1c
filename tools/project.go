// Project tools (USE PROJECT).
//
// Information Hiding:
// - Repository allow-list resolution hidden from the model
// - GitHub token read from the hidden runtime context only
// - REST details delegated to githubapi

package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/richinex/agentbook/githubapi"
	"github.com/richinex/agentbook/model"
	"github.com/richinex/agentbook/runtimectx"
)

// Project tool names.
const (
	ToolProjectListFiles         = "project_list_files"
	ToolProjectReadFile          = "project_read_file"
	ToolProjectUpsertFile        = "project_upsert_file"
	ToolProjectDeleteFile        = "project_delete_file"
	ToolProjectCreateBranch      = "project_create_branch"
	ToolProjectCreatePullRequest = "project_create_pull_request"
)

// ProjectTools returns the six project tools bound to deps.GitHub.
func ProjectTools(deps Dependencies) []Tool {
	base := projectTool{client: deps.github(), logger: deps.logger()}
	return []Tool{
		&ProjectListFilesTool{base},
		&ProjectReadFileTool{base},
		&ProjectUpsertFileTool{base},
		&ProjectDeleteFileTool{base},
		&ProjectCreateBranchTool{base},
		&ProjectCreatePullRequestTool{base},
	}
}

// credentialRequired is returned instead of failing when no token is present.
type credentialRequired struct {
	Action  string `json:"action"`
	Status  string `json:"status"`
	Service string `json:"service"`
	Key     string `json:"key"`
}

func projectCredentialRequired() (ToolResult, error) {
	return JSONResult(credentialRequired{
		Action:  "project-auth",
		Status:  StatusWalletCredentialRequired,
		Service: GitHubWalletService,
		Key:     GitHubWalletKey,
	})
}

type projectTool struct {
	BaseTool
	client *githubapi.Client
	logger *slog.Logger
}

// target is a resolved repository plus the authenticated client.
type target struct {
	client *githubapi.Client
	ref    model.ProjectReference
	repo   githubapi.Repo
}

// branch returns the requested branch or the configured default.
func (t target) branch(requested string) string {
	if b := strings.TrimSpace(requested); b != "" {
		return b
	}
	return t.ref.DefaultBranch
}

var repositoryParameter = ToolParameter{
	Name:        "repository",
	ParamType:   "string",
	Description: "Repository as owner/name or URL. Optional when exactly one repository is configured",
	Required:    false,
}

// resolve checks credentials and the allow-list. A nil target with a nil
// error means the credential-required result must be returned.
func (p projectTool) resolve(rc *runtimectx.Context, requested string) (*target, error) {
	var projects runtimectx.ProjectsContext
	if rc != nil && rc.Projects != nil {
		projects = *rc.Projects
	}
	if strings.TrimSpace(projects.GitHubToken) == "" {
		return nil, nil
	}

	ref, err := ResolveRepository(projects.Repositories, requested)
	if err != nil {
		return nil, err
	}
	repo, err := githubapi.ParseRepository(ref.Slug)
	if err != nil {
		return nil, err
	}
	return &target{client: p.client.WithToken(projects.GitHubToken), ref: ref, repo: repo}, nil
}

// ResolveRepository picks the repository a project tool operates on.
// Zero configured repositories is an error, one is selected automatically
// and several require an explicit argument that must be on the list.
func ResolveRepository(configured []model.ProjectReference, requested string) (model.ProjectReference, error) {
	requested = strings.TrimSpace(requested)
	if len(configured) == 0 {
		return model.ProjectReference{}, fmt.Errorf("no repository is configured by USE PROJECT")
	}
	if requested == "" {
		if len(configured) == 1 {
			return configured[0], nil
		}
		slugs := make([]string, len(configured))
		for i, c := range configured {
			slugs[i] = c.Slug
		}
		return model.ProjectReference{}, fmt.Errorf("repository argument is required, configured repositories: %s", strings.Join(slugs, ", "))
	}

	repo, err := githubapi.ParseRepository(requested)
	if err != nil {
		return model.ProjectReference{}, err
	}
	want := model.ProjectReference{Slug: repo.String()}
	for _, c := range configured {
		if c.SameRepository(want) {
			return c, nil
		}
	}
	return model.ProjectReference{}, fmt.Errorf("repository %s is not configured by USE PROJECT", repo)
}

// ProjectListFilesTool lists a directory of a configured repository.
type ProjectListFilesTool struct{ projectTool }

// Metadata returns the tool metadata.
func (t *ProjectListFilesTool) Metadata() ToolMetadata {
	return ToolMetadata{
		Name:        ToolProjectListFiles,
		Title:       "List project files",
		Description: "List files and directories in a configured GitHub repository",
		Parameters: []ToolParameter{
			repositoryParameter,
			{Name: "path", ParamType: "string", Description: "Directory path, empty for the repository root", Required: false},
			{Name: "branch", ParamType: "string", Description: "Branch or ref to read", Required: false},
		},
	}
}

// Execute lists files.
func (t *ProjectListFilesTool) Execute(ctx context.Context, args json.RawMessage) (ToolResult, error) {
	var a struct {
		Repository string `json:"repository"`
		Path       string `json:"path"`
		Branch     string `json:"branch"`
	}
	rc, err := decodeArgs(args, &a)
	if err != nil {
		return ToolResult{}, err
	}
	tg, err := t.resolve(rc, a.Repository)
	if err != nil {
		return ToolResult{}, err
	}
	if tg == nil {
		return projectCredentialRequired()
	}

	branch := tg.branch(a.Branch)
	entries, err := tg.client.ListContents(ctx, tg.repo, a.Path, branch)
	if err != nil {
		return ToolResult{}, err
	}
	return JSONResult(map[string]any{
		"status":     StatusOK,
		"repository": tg.repo.String(),
		"branch":     branch,
		"path":       strings.Trim(a.Path, "/"),
		"entries":    entries,
	})
}

// ProjectReadFileTool reads one file, optionally a line range of it.
type ProjectReadFileTool struct{ projectTool }

// Metadata returns the tool metadata.
func (t *ProjectReadFileTool) Metadata() ToolMetadata {
	return ToolMetadata{
		Name:        ToolProjectReadFile,
		Title:       "Read project file",
		Description: fmt.Sprintf("Read a file from a configured GitHub repository. Output is limited to %d characters", MaxOutputChars),
		Parameters: []ToolParameter{
			repositoryParameter,
			{Name: "path", ParamType: "string", Description: "File path", Required: true},
			{Name: "branch", ParamType: "string", Description: "Branch or ref to read", Required: false},
			{Name: "startLine", ParamType: "integer", Description: "First line to return, 1-based", Required: false},
			{Name: "endLine", ParamType: "integer", Description: "Last line to return, inclusive", Required: false},
		},
	}
}

// Execute reads a file.
func (t *ProjectReadFileTool) Execute(ctx context.Context, args json.RawMessage) (ToolResult, error) {
	var a struct {
		Repository string `json:"repository"`
		Path       string `json:"path"`
		Branch     string `json:"branch"`
		StartLine  int    `json:"startLine"`
		EndLine    int    `json:"endLine"`
	}
	rc, err := decodeArgs(args, &a)
	if err != nil {
		return ToolResult{}, err
	}
	tg, err := t.resolve(rc, a.Repository)
	if err != nil {
		return ToolResult{}, err
	}
	if tg == nil {
		return projectCredentialRequired()
	}
	if strings.TrimSpace(a.Path) == "" {
		return ToolResult{}, fmt.Errorf("%s: path is required", ToolProjectReadFile)
	}

	branch := tg.branch(a.Branch)
	file, err := tg.client.GetFile(ctx, tg.repo, a.Path, branch)
	if err != nil {
		return ToolResult{}, err
	}

	content, first, last, total, err := sliceLines(file.Content, a.StartLine, a.EndLine)
	if err != nil {
		return ToolResult{}, fmt.Errorf("%s: %w", ToolProjectReadFile, err)
	}
	content, truncated := truncateChars(content, MaxOutputChars)

	return JSONResult(map[string]any{
		"status":       StatusOK,
		"repository":   tg.repo.String(),
		"branch":       branch,
		"path":         file.Path,
		"sha":          file.SHA,
		"startLine":    first,
		"endLine":      last,
		"totalLines":   total,
		"content":      content,
		"wasTruncated": truncated,
	})
}

// sliceLines returns lines start..end (1-based, inclusive). Zero bounds
// select the beginning and the end of the file.
func sliceLines(content string, start, end int) (string, int, int, int, error) {
	lines := strings.Split(content, "\n")
	if strings.HasSuffix(content, "\n") {
		lines = lines[:len(lines)-1]
	}
	total := len(lines)

	if start < 0 || end < 0 {
		return "", 0, 0, total, fmt.Errorf("line numbers are 1-based")
	}
	if start == 0 {
		start = 1
	}
	if end == 0 || end > total {
		end = total
	}
	if start > end {
		if start > total {
			return "", 0, 0, total, fmt.Errorf("startLine %d is beyond the end of the file (%d lines)", start, total)
		}
		return "", 0, 0, total, fmt.Errorf("startLine %d is after endLine %d", start, end)
	}
	if start == 1 && end == total {
		return content, start, end, total, nil
	}
	return strings.Join(lines[start-1:end], "\n"), start, end, total, nil
}

// truncateChars cuts s to at most limit characters.
func truncateChars(s string, limit int) (string, bool) {
	if utf8.RuneCountInString(s) <= limit {
		return s, false
	}
	runes := []rune(s)
	return string(runes[:limit]), true
}

// ProjectUpsertFileTool creates or replaces a file.
type ProjectUpsertFileTool struct{ projectTool }

// Metadata returns the tool metadata.
func (t *ProjectUpsertFileTool) Metadata() ToolMetadata {
	return ToolMetadata{
		Name:        ToolProjectUpsertFile,
		Title:       "Write project file",
		Description: "Create or replace a file in a configured GitHub repository with a commit",
		Parameters: []ToolParameter{
			repositoryParameter,
			{Name: "path", ParamType: "string", Description: "File path", Required: true},
			{Name: "content", ParamType: "string", Description: "Full new file content", Required: true},
			{Name: "message", ParamType: "string", Description: "Commit message", Required: false},
			{Name: "branch", ParamType: "string", Description: "Branch to commit to", Required: false},
		},
	}
}

// Execute writes a file.
func (t *ProjectUpsertFileTool) Execute(ctx context.Context, args json.RawMessage) (ToolResult, error) {
	var a struct {
		Repository string  `json:"repository"`
		Path       string  `json:"path"`
		Content    *string `json:"content"`
		Message    string  `json:"message"`
		Branch     string  `json:"branch"`
	}
	rc, err := decodeArgs(args, &a)
	if err != nil {
		return ToolResult{}, err
	}
	tg, err := t.resolve(rc, a.Repository)
	if err != nil {
		return ToolResult{}, err
	}
	if tg == nil {
		return projectCredentialRequired()
	}
	if strings.TrimSpace(a.Path) == "" || a.Content == nil {
		return ToolResult{}, fmt.Errorf("%s: path and content are required", ToolProjectUpsertFile)
	}
	message := a.Message
	if message == "" {
		message = "Update " + a.Path
	}

	result, err := tg.client.PutFile(ctx, tg.repo, githubapi.PutFileInput{
		Path:    a.Path,
		Content: *a.Content,
		Message: message,
		Branch:  tg.branch(a.Branch),
	})
	if err != nil {
		return ToolResult{}, err
	}
	t.logger.Info("project file written", "repository", tg.repo.String(), "path", result.Path, "created", result.Created)
	return JSONResult(map[string]any{"status": StatusOK, "repository": tg.repo.String(), "commit": result})
}

// ProjectDeleteFileTool deletes a file.
type ProjectDeleteFileTool struct{ projectTool }

// Metadata returns the tool metadata.
func (t *ProjectDeleteFileTool) Metadata() ToolMetadata {
	return ToolMetadata{
		Name:        ToolProjectDeleteFile,
		Title:       "Delete project file",
		Description: "Delete a file from a configured GitHub repository with a commit",
		Parameters: []ToolParameter{
			repositoryParameter,
			{Name: "path", ParamType: "string", Description: "File path", Required: true},
			{Name: "message", ParamType: "string", Description: "Commit message", Required: false},
			{Name: "branch", ParamType: "string", Description: "Branch to commit to", Required: false},
		},
	}
}

// Execute deletes a file.
func (t *ProjectDeleteFileTool) Execute(ctx context.Context, args json.RawMessage) (ToolResult, error) {
	var a struct {
		Repository string `json:"repository"`
		Path       string `json:"path"`
		Message    string `json:"message"`
		Branch     string `json:"branch"`
	}
	rc, err := decodeArgs(args, &a)
	if err != nil {
		return ToolResult{}, err
	}
	tg, err := t.resolve(rc, a.Repository)
	if err != nil {
		return ToolResult{}, err
	}
	if tg == nil {
		return projectCredentialRequired()
	}
	if strings.TrimSpace(a.Path) == "" {
		return ToolResult{}, fmt.Errorf("%s: path is required", ToolProjectDeleteFile)
	}
	message := a.Message
	if message == "" {
		message = "Delete " + a.Path
	}

	result, err := tg.client.DeleteFile(ctx, tg.repo, a.Path, message, tg.branch(a.Branch), "")
	if err != nil {
		return ToolResult{}, err
	}
	return JSONResult(map[string]any{"status": StatusDeleted, "repository": tg.repo.String(), "commit": result})
}

// ProjectCreateBranchTool creates a branch.
type ProjectCreateBranchTool struct{ projectTool }

// Metadata returns the tool metadata.
func (t *ProjectCreateBranchTool) Metadata() ToolMetadata {
	return ToolMetadata{
		Name:        ToolProjectCreateBranch,
		Title:       "Create project branch",
		Description: "Create a branch in a configured GitHub repository",
		Parameters: []ToolParameter{
			repositoryParameter,
			{Name: "branch", ParamType: "string", Description: "Name of the new branch", Required: true},
			{Name: "fromBranch", ParamType: "string", Description: "Branch to start from, defaults to the default branch", Required: false},
		},
	}
}

// Execute creates a branch.
func (t *ProjectCreateBranchTool) Execute(ctx context.Context, args json.RawMessage) (ToolResult, error) {
	var a struct {
		Repository string `json:"repository"`
		Branch     string `json:"branch"`
		FromBranch string `json:"fromBranch"`
	}
	rc, err := decodeArgs(args, &a)
	if err != nil {
		return ToolResult{}, err
	}
	tg, err := t.resolve(rc, a.Repository)
	if err != nil {
		return ToolResult{}, err
	}
	if tg == nil {
		return projectCredentialRequired()
	}
	if strings.TrimSpace(a.Branch) == "" {
		return ToolResult{}, fmt.Errorf("%s: branch is required", ToolProjectCreateBranch)
	}

	ref, err := tg.client.CreateBranch(ctx, tg.repo, strings.TrimSpace(a.Branch), tg.branch(a.FromBranch))
	if err != nil {
		return ToolResult{}, err
	}
	return JSONResult(map[string]any{
		"status":     StatusOK,
		"repository": tg.repo.String(),
		"ref":        ref.Ref,
		"sha":        ref.Object.SHA,
	})
}

// ProjectCreatePullRequestTool opens a pull request.
type ProjectCreatePullRequestTool struct{ projectTool }

// Metadata returns the tool metadata.
func (t *ProjectCreatePullRequestTool) Metadata() ToolMetadata {
	return ToolMetadata{
		Name:        ToolProjectCreatePullRequest,
		Title:       "Create pull request",
		Description: "Open a pull request in a configured GitHub repository",
		Parameters: []ToolParameter{
			repositoryParameter,
			{Name: "title", ParamType: "string", Description: "Pull request title", Required: true},
			{Name: "head", ParamType: "string", Description: "Branch containing the changes", Required: true},
			{Name: "base", ParamType: "string", Description: "Branch to merge into, defaults to the default branch", Required: false},
			{Name: "body", ParamType: "string", Description: "Pull request description", Required: false},
			{Name: "draft", ParamType: "boolean", Description: "Open as draft", Required: false},
		},
	}
}

// Execute opens a pull request.
func (t *ProjectCreatePullRequestTool) Execute(ctx context.Context, args json.RawMessage) (ToolResult, error) {
	var a struct {
		Repository string `json:"repository"`
		Title      string `json:"title"`
		Head       string `json:"head"`
		Base       string `json:"base"`
		Body       string `json:"body"`
		Draft      bool   `json:"draft"`
	}
	rc, err := decodeArgs(args, &a)
	if err != nil {
		return ToolResult{}, err
	}
	tg, err := t.resolve(rc, a.Repository)
	if err != nil {
		return ToolResult{}, err
	}
	if tg == nil {
		return projectCredentialRequired()
	}
	if strings.TrimSpace(a.Title) == "" || strings.TrimSpace(a.Head) == "" {
		return ToolResult{}, fmt.Errorf("%s: title and head are required", ToolProjectCreatePullRequest)
	}

	pr, err := tg.client.CreatePullRequest(ctx, tg.repo, githubapi.PullRequestInput{
		Title: a.Title,
		Head:  a.Head,
		Base:  tg.branch(a.Base),
		Body:  a.Body,
		Draft: a.Draft,
	})
	if err != nil {
		return ToolResult{}, err
	}
	return JSONResult(map[string]any{"status": StatusOK, "repository": tg.repo.String(), "pullRequest": pr})
}
