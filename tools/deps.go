package tools

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/richinex/agentbook/githubapi"
	"github.com/richinex/agentbook/pending"
	"github.com/richinex/agentbook/storage"
)

// Dependencies are the collaborators tool implementations use. They are
// passed explicitly so that concurrent conversations never share hidden
// global state. Nil members make the dependent tools report unavailable or
// disabled instead of failing.
type Dependencies struct {
	Memory    storage.MemoryAdapter
	Wallet    storage.WalletAdapter
	GitHub    *githubapi.Client
	Locations *pending.LocationRequests
	Search    SearchEngine
	Email     EmailSender

	HTTPClient      *http.Client
	LocationTimeout time.Duration
	Logger          *slog.Logger
	Now             func() time.Time
}

func (d Dependencies) logger() *slog.Logger {
	if d.Logger == nil {
		return slog.Default()
	}
	return d.Logger
}

func (d Dependencies) now() time.Time {
	if d.Now == nil {
		return time.Now()
	}
	return d.Now()
}

func (d Dependencies) httpClient() *http.Client {
	if d.HTTPClient == nil {
		return &http.Client{Timeout: DefaultToolTimeout * time.Second}
	}
	return d.HTTPClient
}

func (d Dependencies) github() *githubapi.Client {
	if d.GitHub == nil {
		return githubapi.NewClient(githubapi.Config{HTTPClient: d.HTTPClient})
	}
	return d.GitHub
}

// Wallet coordinates of the GitHub credential used by project tools.
const (
	GitHubWalletService = "github"
	GitHubWalletKey     = "use-project-github-token"
)

// GitHubTokenFromWallet looks up the GitHub token a host should place into
// the projects runtime context. An empty string means no credential.
func GitHubTokenFromWallet(ctx context.Context, wallet storage.WalletAdapter, userID, agentID string) (string, error) {
	if wallet == nil || userID == "" {
		return "", nil
	}
	record, err := wallet.FindCredential(ctx, storage.WalletQuery{
		UserID:  userID,
		AgentID: agentID,
		Service: GitHubWalletService,
		Key:     GitHubWalletKey,
	})
	if err != nil {
		return "", fmt.Errorf("failed to look up GitHub credential: %w", err)
	}
	if record == nil {
		return "", nil
	}
	if record.Secret != "" {
		return record.Secret, nil
	}
	return record.Password, nil
}
