package tools

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/richinex/agentbook/runtimectx"
	"github.com/richinex/agentbook/storage"
)

func walletContext() runtimectx.Context {
	return runtimectx.Context{Wallet: &runtimectx.WalletContext{Enabled: true, UserID: "user-1", AgentID: "agent-1"}}
}

func TestWalletToolsDisabledWithoutContext(t *testing.T) {
	deps := Dependencies{Wallet: storage.NewInMemoryStore()}
	for _, tool := range WalletTools(deps) {
		for _, args := range []json.RawMessage{nil, json.RawMessage(`{}`), json.RawMessage(`{"recordType":"NOPE"}`)} {
			out := execute(t, tool, args)
			if out["status"] != StatusDisabled {
				t.Errorf("%s: expected disabled, got %v", tool.Metadata().Name, out["status"])
			}
		}
	}
}

func TestWalletToolsDisabledExplicitly(t *testing.T) {
	list := WalletTools(Dependencies{Wallet: storage.NewInMemoryStore()})
	cases := map[string]runtimectx.Context{
		"wallet off": {Wallet: &runtimectx.WalletContext{Enabled: false, UserID: "u"}},
		"private mode": {
			Memory: &runtimectx.MemoryContext{Enabled: true, UserID: "u", IsPrivateMode: true},
		},
		"team conversation": {
			Memory: &runtimectx.MemoryContext{Enabled: true, UserID: "u", IsTeamConversation: true},
		},
		"private mode with wallet context": {
			Memory: &runtimectx.MemoryContext{Enabled: true, UserID: "u", IsPrivateMode: true},
			Wallet: &runtimectx.WalletContext{Enabled: true, UserID: "u"},
		},
	}
	for name, rc := range cases {
		t.Run(name, func(t *testing.T) {
			for _, toolName := range []string{ToolRetrieveWalletRecords, ToolStoreWalletRecord} {
				args := withContext(t, rc, map[string]any{"recordType": "access_token", "service": "github", "key": "k", "secret": "s"})
				if out := execute(t, findTool(t, list, toolName), args); out["status"] != StatusDisabled {
					t.Errorf("%s: expected disabled, got %v", toolName, out["status"])
				}
			}
		})
	}
}

func TestWalletToolsNeverEchoSecrets(t *testing.T) {
	list := WalletTools(Dependencies{Wallet: storage.NewInMemoryStore()})
	rc := walletContext()

	stored := execute(t, findTool(t, list, ToolStoreWalletRecord), withContext(t, rc, map[string]any{
		"recordType": "access_token",
		"service":    "github",
		"key":        GitHubWalletKey,
		"secret":     "ghp_very_secret",
	}))
	if stored["status"] != StatusStored {
		t.Fatalf("expected stored, got %v", stored)
	}

	result, err := findTool(t, list, ToolRetrieveWalletRecords).Execute(context.Background(), withContext(t, rc, nil))
	if err != nil {
		t.Fatalf("retrieve failed: %v", err)
	}
	if strings.Contains(result.Output, "ghp_very_secret") {
		t.Fatalf("secret leaked into tool output: %s", result.Output)
	}
	var out struct {
		Records []walletView `json:"records"`
	}
	if err := json.Unmarshal([]byte(result.Output), &out); err != nil {
		t.Fatalf("bad output: %v", err)
	}
	if len(out.Records) != 1 || !out.Records[0].HasSecret || out.Records[0].RecordType != "ACCESS_TOKEN" {
		t.Errorf("unexpected records %+v", out.Records)
	}
}

func TestWalletUnknownRecordType(t *testing.T) {
	tool := findTool(t, WalletTools(Dependencies{Wallet: storage.NewInMemoryStore()}), ToolStoreWalletRecord)
	_, err := tool.Execute(context.Background(), withContext(t, walletContext(), map[string]any{
		"recordType": "PIN_CODE", "service": "bank", "key": "main",
	}))
	if err == nil || !strings.Contains(err.Error(), "unknown wallet record type") {
		t.Errorf("expected unknown record type error, got %v", err)
	}
}

func TestWalletIdentityFromMemoryContext(t *testing.T) {
	store := storage.NewInMemoryStore()
	tool := findTool(t, WalletTools(Dependencies{Wallet: store}), ToolStoreWalletRecord)
	execute(t, tool, withContext(t, memoryContext(), map[string]any{
		"recordType": "USERNAME_PASSWORD", "service": "shop", "key": "login", "username": "me", "password": "pw",
	}))

	records, err := store.RetrieveWalletRecords(context.Background(), storage.WalletQuery{UserID: "user-1"})
	if err != nil || len(records) != 1 || records[0].AgentID != "agent-1" {
		t.Errorf("expected record owned by memory identity, got %+v (%v)", records, err)
	}
}

func TestGitHubTokenFromWallet(t *testing.T) {
	ctx := context.Background()
	store := storage.NewInMemoryStore()

	token, err := GitHubTokenFromWallet(ctx, store, "user-1", "agent-1")
	if err != nil || token != "" {
		t.Fatalf("expected no token, got %q (%v)", token, err)
	}

	record := storage.NewWalletRecord("user-1", "agent-1", storage.WalletAccessToken, GitHubWalletService, GitHubWalletKey)
	record.Secret = "ghp_1"
	if _, err := store.StoreWalletRecord(ctx, record); err != nil {
		t.Fatalf("StoreWalletRecord failed: %v", err)
	}

	token, err = GitHubTokenFromWallet(ctx, store, "user-1", "agent-1")
	if err != nil || token != "ghp_1" {
		t.Errorf("expected ghp_1, got %q (%v)", token, err)
	}
	if token, _ := GitHubTokenFromWallet(ctx, nil, "user-1", ""); token != "" {
		t.Error("nil wallet yields no token")
	}
}
