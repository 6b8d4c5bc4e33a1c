// Wallet tools.
//
// Information Hiding:
// - Secrets flow into storage but never back to the model
// - Identity comes from the hidden runtime context
// - Storage backend hidden behind storage.WalletAdapter

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

// Wallet tool names.
const (
	ToolRetrieveWalletRecords = "retrieve_wallet_records"
	ToolStoreWalletRecord     = "store_wallet_record"
	ToolUpdateWalletRecord    = "update_wallet_record"
	ToolDeleteWalletRecord    = "delete_wallet_record"
)

var walletRecordTypes = []string{
	storage.WalletAccessToken.String(),
	storage.WalletUsernamePassword.String(),
	storage.WalletSessionCookie.String(),
}

// WalletTools returns the four wallet tools bound to deps.Wallet.
func WalletTools(deps Dependencies) []Tool {
	base := walletTool{adapter: deps.Wallet, logger: deps.logger()}
	return []Tool{
		&RetrieveWalletTool{base},
		&StoreWalletTool{base},
		&UpdateWalletTool{base},
		&DeleteWalletTool{base},
	}
}

type walletTool struct {
	BaseTool
	adapter storage.WalletAdapter
	logger  *slog.Logger
}

type walletIdentity struct {
	userID  string
	agentID string
}

// walletScope resolves the wallet owner. The wallet context wins; the
// memory context supplies identity when no wallet context was sent.
// Private mode and team conversations switch the wallet off as they do memory.
func (t walletTool) walletScope(rc *runtimectx.Context) (*walletIdentity, string) {
	if rc == nil {
		return nil, "wallet is not available in this conversation"
	}
	id := &walletIdentity{}
	if rc.Memory != nil {
		switch {
		case rc.Memory.IsPrivateMode:
			return nil, "wallet is off in private mode"
		case rc.Memory.IsTeamConversation:
			return nil, "wallet is off in team conversations"
		}
		id.userID, id.agentID = rc.Memory.UserID, rc.Memory.AgentID
	}
	if rc.Wallet != nil {
		if !rc.Wallet.Enabled {
			return nil, "wallet is disabled for this conversation"
		}
		if rc.Wallet.UserID != "" {
			id.userID = rc.Wallet.UserID
		}
		if rc.Wallet.AgentID != "" {
			id.agentID = rc.Wallet.AgentID
		}
	}
	switch {
	case id.userID == "":
		return nil, "wallet requires a signed-in user"
	case t.adapter == nil:
		return nil, "wallet storage is not configured"
	}
	return id, ""
}

// walletView never carries credential material.
type walletView struct {
	ID         string    `json:"id"`
	RecordType string    `json:"recordType"`
	Service    string    `json:"service"`
	Key        string    `json:"key"`
	Username   string    `json:"username,omitempty"`
	IsGlobal   bool      `json:"isGlobal"`
	HasSecret  bool      `json:"hasSecret"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

func viewWallet(r storage.WalletRecord) walletView {
	return walletView{
		ID:         r.ID,
		RecordType: r.RecordType.String(),
		Service:    r.Service,
		Key:        r.Key,
		Username:   r.Username,
		IsGlobal:   r.IsGlobal,
		HasSecret:  r.HasSecret(),
		UpdatedAt:  r.UpdatedAt,
	}
}

func (t walletTool) adapterFailed(op string, err error) (ToolResult, error) {
	t.logger.Warn("wallet adapter failed", "operation", op, "error", err)
	return statusOnly(StatusError, err.Error())
}

// RetrieveWalletTool lists stored credentials without their secrets.
type RetrieveWalletTool struct{ walletTool }

// Metadata returns the tool metadata.
func (t *RetrieveWalletTool) Metadata() ToolMetadata {
	return ToolMetadata{
		Name:        ToolRetrieveWalletRecords,
		Title:       "Retrieve wallet records",
		Description: "List credentials stored in the user's wallet. Secret values are never returned",
		Parameters: []ToolParameter{
			{Name: "service", ParamType: "string", Description: "Only records for this service", Required: false},
			{Name: "key", ParamType: "string", Description: "Only records with this key", Required: false},
		},
	}
}

// Execute lists wallet records.
func (t *RetrieveWalletTool) Execute(ctx context.Context, args json.RawMessage) (ToolResult, error) {
	var a struct {
		Service string `json:"service"`
		Key     string `json:"key"`
	}
	rc, err := decodeArgs(args, &a)
	id, reason := t.walletScope(rc)
	if id == nil {
		return statusOnly(StatusDisabled, reason)
	}
	if err != nil {
		return ToolResult{}, err
	}

	records, err := t.adapter.RetrieveWalletRecords(ctx, storage.WalletQuery{
		UserID:  id.userID,
		AgentID: id.agentID,
		Service: a.Service,
		Key:     a.Key,
	})
	if err != nil {
		return t.adapterFailed("retrieve", err)
	}
	views := make([]walletView, len(records))
	for i, r := range records {
		views[i] = viewWallet(r)
	}
	return JSONResult(map[string]any{"status": StatusOK, "records": views})
}

type walletArgs struct {
	RecordID   string  `json:"recordId"`
	RecordType string  `json:"recordType"`
	Service    string  `json:"service"`
	Key        string  `json:"key"`
	Username   *string `json:"username"`
	Password   *string `json:"password"`
	Secret     *string `json:"secret"`
	Cookies    *string `json:"cookies"`
	IsGlobal   *bool   `json:"isGlobal"`
}

func credentialParameters() []ToolParameter {
	return []ToolParameter{
		{Name: "username", ParamType: "string", Description: "Login name for USERNAME_PASSWORD records", Required: false},
		{Name: "password", ParamType: "string", Description: "Password for USERNAME_PASSWORD records", Required: false},
		{Name: "secret", ParamType: "string", Description: "Token value for ACCESS_TOKEN records", Required: false},
		{Name: "cookies", ParamType: "string", Description: "Serialized cookies for SESSION_COOKIE records", Required: false},
		{Name: "isGlobal", ParamType: "boolean", Description: "Make the record available to all of the user's agents", Required: false},
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// StoreWalletTool saves a new credential.
type StoreWalletTool struct{ walletTool }

// Metadata returns the tool metadata.
func (t *StoreWalletTool) Metadata() ToolMetadata {
	params := []ToolParameter{
		{Name: "recordType", ParamType: "string", Description: "Kind of credential", Required: true, Enum: walletRecordTypes},
		{Name: "service", ParamType: "string", Description: "Service the credential belongs to, for example github", Required: true},
		{Name: "key", ParamType: "string", Description: "Name distinguishing credentials of one service", Required: true},
	}
	return ToolMetadata{
		Name:        ToolStoreWalletRecord,
		Title:       "Store wallet record",
		Description: "Save a credential into the user's wallet",
		Parameters:  append(params, credentialParameters()...),
	}
}

// Execute stores a wallet record.
func (t *StoreWalletTool) Execute(ctx context.Context, args json.RawMessage) (ToolResult, error) {
	var a walletArgs
	rc, err := decodeArgs(args, &a)
	id, reason := t.walletScope(rc)
	if id == nil {
		return statusOnly(StatusDisabled, reason)
	}
	if err != nil {
		return ToolResult{}, err
	}
	recordType, err := storage.ParseWalletRecordType(a.RecordType)
	if err != nil {
		return ToolResult{}, fmt.Errorf("%s: %w", ToolStoreWalletRecord, err)
	}
	if strings.TrimSpace(a.Service) == "" || strings.TrimSpace(a.Key) == "" {
		return ToolResult{}, fmt.Errorf("%s: service and key are required", ToolStoreWalletRecord)
	}

	record := storage.NewWalletRecord(id.userID, id.agentID, recordType, strings.TrimSpace(a.Service), strings.TrimSpace(a.Key))
	record.Username = deref(a.Username)
	record.Password = deref(a.Password)
	record.Secret = deref(a.Secret)
	record.Cookies = deref(a.Cookies)
	record.IsGlobal = a.IsGlobal != nil && *a.IsGlobal

	stored, err := t.adapter.StoreWalletRecord(ctx, record)
	if err != nil {
		return t.adapterFailed("store", err)
	}
	return JSONResult(map[string]any{"status": StatusStored, "record": viewWallet(stored)})
}

// UpdateWalletTool replaces fields of a stored credential.
type UpdateWalletTool struct{ walletTool }

// Metadata returns the tool metadata.
func (t *UpdateWalletTool) Metadata() ToolMetadata {
	params := []ToolParameter{
		{Name: "recordId", ParamType: "string", Description: "Id of the record to update", Required: true},
	}
	return ToolMetadata{
		Name:        ToolUpdateWalletRecord,
		Title:       "Update wallet record",
		Description: "Change fields of a credential stored in the user's wallet",
		Parameters:  append(params, credentialParameters()...),
	}
}

// Execute updates a wallet record.
func (t *UpdateWalletTool) Execute(ctx context.Context, args json.RawMessage) (ToolResult, error) {
	var a walletArgs
	rc, err := decodeArgs(args, &a)
	id, reason := t.walletScope(rc)
	if id == nil {
		return statusOnly(StatusDisabled, reason)
	}
	if err != nil {
		return ToolResult{}, err
	}
	if a.RecordID == "" {
		return ToolResult{}, fmt.Errorf("%s: recordId is required", ToolUpdateWalletRecord)
	}

	updated, err := t.adapter.UpdateWalletRecord(ctx, id.userID, a.RecordID, storage.WalletUpdate{
		Username: a.Username,
		Password: a.Password,
		Secret:   a.Secret,
		Cookies:  a.Cookies,
		IsGlobal: a.IsGlobal,
	})
	if err != nil {
		return t.adapterFailed("update", err)
	}
	return JSONResult(map[string]any{"status": StatusUpdated, "record": viewWallet(updated)})
}

// DeleteWalletTool removes a stored credential.
type DeleteWalletTool struct{ walletTool }

// Metadata returns the tool metadata.
func (t *DeleteWalletTool) Metadata() ToolMetadata {
	return ToolMetadata{
		Name:        ToolDeleteWalletRecord,
		Title:       "Delete wallet record",
		Description: "Remove a credential from the user's wallet",
		Parameters: []ToolParameter{
			{Name: "recordId", ParamType: "string", Description: "Id of the record to delete", Required: true},
		},
	}
}

// Execute deletes a wallet record.
func (t *DeleteWalletTool) Execute(ctx context.Context, args json.RawMessage) (ToolResult, error) {
	var a walletArgs
	rc, err := decodeArgs(args, &a)
	id, reason := t.walletScope(rc)
	if id == nil {
		return statusOnly(StatusDisabled, reason)
	}
	if err != nil {
		return ToolResult{}, err
	}
	if a.RecordID == "" {
		return ToolResult{}, fmt.Errorf("%s: recordId is required", ToolDeleteWalletRecord)
	}

	if err := t.adapter.DeleteWalletRecord(ctx, id.userID, a.RecordID); err != nil {
		return t.adapterFailed("delete", err)
	}
	return JSONResult(map[string]any{"status": StatusDeleted, "recordId": a.RecordID})
}
