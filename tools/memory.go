// Memory tools.
//
// Information Hiding:
// - Identity comes from the hidden runtime context, never from arguments
// - Privacy rules (private mode, team conversations) decided here
// - Storage backend hidden behind storage.MemoryAdapter

package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/richinex/agentbook/runtimectx"
	"github.com/richinex/agentbook/storage"
)

// Memory tool names.
const (
	ToolRetrieveUserMemory = "retrieve_user_memory"
	ToolStoreUserMemory    = "store_user_memory"
	ToolUpdateUserMemory   = "update_user_memory"
	ToolDeleteUserMemory   = "delete_user_memory"
)

const defaultMemoryLimit = 10

// MemoryTools returns the four memory tools bound to deps.Memory.
func MemoryTools(deps Dependencies) []Tool {
	base := memoryTool{adapter: deps.Memory, logger: deps.logger()}
	return []Tool{
		&RetrieveMemoryTool{base},
		&StoreMemoryTool{base},
		&UpdateMemoryTool{base},
		&DeleteMemoryTool{base},
	}
}

type memoryTool struct {
	BaseTool
	adapter storage.MemoryAdapter
	logger  *slog.Logger
}

// memoryScope resolves who the memory belongs to, or why memory is off.
func (t memoryTool) memoryScope(rc *runtimectx.Context) (*runtimectx.MemoryContext, string) {
	switch {
	case rc == nil || rc.Memory == nil:
		return nil, "memory is not available in this conversation"
	case !rc.Memory.Enabled:
		return nil, "memory is disabled for this conversation"
	case rc.Memory.UserID == "":
		return nil, "memory requires a signed-in user"
	case rc.Memory.IsPrivateMode:
		return nil, "memory is off in private mode"
	case rc.Memory.IsTeamConversation:
		return nil, "memory is off in team conversations"
	case t.adapter == nil:
		return nil, "memory storage is not configured"
	}
	return rc.Memory, ""
}

// memoryView is the model-visible shape of a memory record.
type memoryView struct {
	ID        string    `json:"id"`
	Content   string    `json:"content"`
	IsGlobal  bool      `json:"isGlobal"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func viewMemory(r storage.MemoryRecord) memoryView {
	return memoryView{ID: r.ID, Content: r.Content, IsGlobal: r.IsGlobal, CreatedAt: r.CreatedAt, UpdatedAt: r.UpdatedAt}
}

func (t memoryTool) adapterFailed(op string, err error) (ToolResult, error) {
	t.logger.Warn("memory adapter failed", "operation", op, "error", err)
	return statusOnly(StatusError, err.Error())
}

// RetrieveMemoryTool lists what the agent remembers about the user.
type RetrieveMemoryTool struct{ memoryTool }

// Metadata returns the tool metadata.
func (t *RetrieveMemoryTool) Metadata() ToolMetadata {
	return ToolMetadata{
		Name:        ToolRetrieveUserMemory,
		Title:       "Retrieve memory",
		Description: "Retrieve facts previously remembered about the current user",
		Parameters: []ToolParameter{
			{Name: "query", ParamType: "string", Description: "Optional text the memories must contain", Required: false},
			{Name: "limit", ParamType: "integer", Description: "Maximum number of memories to return", Required: false},
		},
	}
}

// Execute retrieves memories.
func (t *RetrieveMemoryTool) Execute(ctx context.Context, args json.RawMessage) (ToolResult, error) {
	var a struct {
		Query string `json:"query"`
		Limit int    `json:"limit"`
	}
	rc, err := decodeArgs(args, &a)
	scope, reason := t.memoryScope(rc)
	if scope == nil {
		return statusOnly(StatusDisabled, reason)
	}
	if err != nil {
		return ToolResult{}, err
	}
	if a.Limit <= 0 {
		a.Limit = defaultMemoryLimit
	}

	records, err := t.adapter.RetrieveMemories(ctx, storage.MemoryQuery{
		UserID:  scope.UserID,
		AgentID: scope.AgentID,
		Text:    strings.TrimSpace(a.Query),
		Limit:   a.Limit,
	})
	if err != nil {
		return t.adapterFailed("retrieve", err)
	}

	views := make([]memoryView, len(records))
	for i, r := range records {
		views[i] = viewMemory(r)
	}
	return JSONResult(map[string]any{"status": StatusOK, "memories": views})
}

// StoreMemoryTool remembers a new fact about the user.
type StoreMemoryTool struct{ memoryTool }

// Metadata returns the tool metadata.
func (t *StoreMemoryTool) Metadata() ToolMetadata {
	return ToolMetadata{
		Name:        ToolStoreUserMemory,
		Title:       "Store memory",
		Description: "Remember a fact about the current user for future conversations",
		Parameters: []ToolParameter{
			{Name: "content", ParamType: "string", Description: "The fact to remember", Required: true},
			{Name: "isGlobal", ParamType: "boolean", Description: "Share the memory with all of the user's agents", Required: false},
		},
	}
}

// Execute stores a memory.
func (t *StoreMemoryTool) Execute(ctx context.Context, args json.RawMessage) (ToolResult, error) {
	var a struct {
		Content  string `json:"content"`
		IsGlobal bool   `json:"isGlobal"`
	}
	rc, err := decodeArgs(args, &a)
	scope, reason := t.memoryScope(rc)
	if scope == nil {
		return statusOnly(StatusDisabled, reason)
	}
	if err != nil {
		return ToolResult{}, err
	}
	content := strings.TrimSpace(a.Content)
	if content == "" {
		return ToolResult{}, fmt.Errorf("%s: content is required", ToolStoreUserMemory)
	}

	record := storage.NewMemoryRecord(scope.UserID, scope.AgentID, content)
	record.AgentName = scope.AgentName
	record.IsGlobal = a.IsGlobal
	stored, err := t.adapter.StoreMemory(ctx, record)
	if err != nil {
		return t.adapterFailed("store", err)
	}
	return JSONResult(map[string]any{"status": StatusStored, "memory": viewMemory(stored)})
}

// UpdateMemoryTool corrects a remembered fact.
type UpdateMemoryTool struct{ memoryTool }

// Metadata returns the tool metadata.
func (t *UpdateMemoryTool) Metadata() ToolMetadata {
	return ToolMetadata{
		Name:        ToolUpdateUserMemory,
		Title:       "Update memory",
		Description: "Change the content of a previously stored memory",
		Parameters: []ToolParameter{
			{Name: "memoryId", ParamType: "string", Description: "Id of the memory to update", Required: true},
			{Name: "content", ParamType: "string", Description: "New content", Required: true},
			{Name: "isGlobal", ParamType: "boolean", Description: "Share the memory with all of the user's agents", Required: false},
		},
	}
}

// Execute updates a memory.
func (t *UpdateMemoryTool) Execute(ctx context.Context, args json.RawMessage) (ToolResult, error) {
	var a struct {
		MemoryID string `json:"memoryId"`
		Content  string `json:"content"`
		IsGlobal *bool  `json:"isGlobal"`
	}
	rc, err := decodeArgs(args, &a)
	scope, reason := t.memoryScope(rc)
	if scope == nil {
		return statusOnly(StatusDisabled, reason)
	}
	if err != nil {
		return ToolResult{}, err
	}
	if a.MemoryID == "" || strings.TrimSpace(a.Content) == "" {
		return ToolResult{}, fmt.Errorf("%s: memoryId and content are required", ToolUpdateUserMemory)
	}

	updated, err := t.adapter.UpdateMemory(ctx, scope.UserID, a.MemoryID, storage.MemoryUpdate{
		Content:  strings.TrimSpace(a.Content),
		IsGlobal: a.IsGlobal,
	})
	if err != nil {
		return t.adapterFailed("update", err)
	}
	return JSONResult(map[string]any{"status": StatusUpdated, "memory": viewMemory(updated)})
}

// DeleteMemoryTool forgets a remembered fact.
type DeleteMemoryTool struct{ memoryTool }

// Metadata returns the tool metadata.
func (t *DeleteMemoryTool) Metadata() ToolMetadata {
	return ToolMetadata{
		Name:        ToolDeleteUserMemory,
		Title:       "Delete memory",
		Description: "Forget a previously stored memory",
		Parameters: []ToolParameter{
			{Name: "memoryId", ParamType: "string", Description: "Id of the memory to delete", Required: true},
		},
	}
}

// Execute deletes a memory.
func (t *DeleteMemoryTool) Execute(ctx context.Context, args json.RawMessage) (ToolResult, error) {
	var a struct {
		MemoryID string `json:"memoryId"`
	}
	rc, err := decodeArgs(args, &a)
	scope, reason := t.memoryScope(rc)
	if scope == nil {
		return statusOnly(StatusDisabled, reason)
	}
	if err != nil {
		return ToolResult{}, err
	}
	if a.MemoryID == "" {
		return ToolResult{}, fmt.Errorf("%s: memoryId is required", ToolDeleteUserMemory)
	}

	if err := t.adapter.DeleteMemory(ctx, scope.UserID, a.MemoryID); err != nil {
		return t.adapterFailed("delete", err)
	}
	return JSONResult(map[string]any{"status": StatusDeleted, "memoryId": a.MemoryID})
}
