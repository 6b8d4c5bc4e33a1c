// Package storage provides persistence for agent memories and wallet records.
//
// Information Hiding:
// - Tools depend on MemoryAdapter and WalletAdapter only
// - Record identity (uuid) and timestamps are assigned here, not by callers
// - Backends (in-memory map, SQLite) are interchangeable at construction time
package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a record does not exist or is not visible to
// the requesting user.
var ErrNotFound = errors.New("record not found")

// MemoryRecord is one remembered fact about a user.
type MemoryRecord struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	AgentID   string    `json:"agentId,omitempty"`
	AgentName string    `json:"agentName,omitempty"`
	Content   string    `json:"content"`
	IsGlobal  bool      `json:"isGlobal"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// NewMemoryRecord creates a memory record with a fresh id and timestamps.
func NewMemoryRecord(userID, agentID, content string) MemoryRecord {
	now := time.Now().UTC()
	return MemoryRecord{
		ID:        uuid.New().String(),
		UserID:    userID,
		AgentID:   agentID,
		Content:   content,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// MemoryQuery selects the memories visible to one user and agent. Global
// memories of the user are always included.
type MemoryQuery struct {
	UserID  string
	AgentID string
	// Text filters by case-insensitive substring when not empty.
	Text  string
	Limit int
}

// MemoryUpdate carries the fields an update may change.
type MemoryUpdate struct {
	Content  string
	IsGlobal *bool
}

// MemoryAdapter persists memory records.
type MemoryAdapter interface {
	RetrieveMemories(ctx context.Context, q MemoryQuery) ([]MemoryRecord, error)
	StoreMemory(ctx context.Context, record MemoryRecord) (MemoryRecord, error)
	UpdateMemory(ctx context.Context, userID, id string, update MemoryUpdate) (MemoryRecord, error)
	DeleteMemory(ctx context.Context, userID, id string) error
}

// WalletRecordType classifies stored credentials.
type WalletRecordType string

const (
	// WalletAccessToken is a bearer or API token.
	WalletAccessToken WalletRecordType = "ACCESS_TOKEN"
	// WalletUsernamePassword is a login pair.
	WalletUsernamePassword WalletRecordType = "USERNAME_PASSWORD"
	// WalletSessionCookie is a serialized cookie jar.
	WalletSessionCookie WalletRecordType = "SESSION_COOKIE"
)

// String returns the string representation of the record type.
func (t WalletRecordType) String() string {
	return string(t)
}

// ParseWalletRecordType parses a record type, accepting any letter case.
func ParseWalletRecordType(s string) (WalletRecordType, error) {
	switch WalletRecordType(strings.ToUpper(strings.TrimSpace(s))) {
	case WalletAccessToken:
		return WalletAccessToken, nil
	case WalletUsernamePassword:
		return WalletUsernamePassword, nil
	case WalletSessionCookie:
		return WalletSessionCookie, nil
	default:
		return "", fmt.Errorf("unknown wallet record type: %s", s)
	}
}

// WalletRecord is one stored credential.
type WalletRecord struct {
	ID         string           `json:"id"`
	UserID     string           `json:"userId"`
	AgentID    string           `json:"agentId,omitempty"`
	RecordType WalletRecordType `json:"recordType"`
	Service    string           `json:"service"`
	Key        string           `json:"key"`
	Username   string           `json:"username,omitempty"`
	Password   string           `json:"password,omitempty"`
	Secret     string           `json:"secret,omitempty"`
	Cookies    string           `json:"cookies,omitempty"`
	IsGlobal   bool             `json:"isGlobal"`
	CreatedAt  time.Time        `json:"createdAt"`
	UpdatedAt  time.Time        `json:"updatedAt"`
}

// NewWalletRecord creates a wallet record with a fresh id and timestamps.
func NewWalletRecord(userID, agentID string, recordType WalletRecordType, service, key string) WalletRecord {
	now := time.Now().UTC()
	return WalletRecord{
		ID:         uuid.New().String(),
		UserID:     userID,
		AgentID:    agentID,
		RecordType: recordType,
		Service:    service,
		Key:        key,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// HasSecret reports whether the record holds any credential material.
func (w WalletRecord) HasSecret() bool {
	return w.Secret != "" || w.Password != "" || w.Cookies != ""
}

// WalletQuery selects wallet records visible to one user and agent.
type WalletQuery struct {
	UserID  string
	AgentID string
	// Service and Key filter exactly (case-insensitive) when not empty.
	Service string
	Key     string
}

// WalletUpdate carries the fields an update may change. Nil fields are kept.
type WalletUpdate struct {
	Username *string
	Password *string
	Secret   *string
	Cookies  *string
	IsGlobal *bool
}

// WalletAdapter persists wallet records.
type WalletAdapter interface {
	RetrieveWalletRecords(ctx context.Context, q WalletQuery) ([]WalletRecord, error)
	StoreWalletRecord(ctx context.Context, record WalletRecord) (WalletRecord, error)
	UpdateWalletRecord(ctx context.Context, userID, id string, update WalletUpdate) (WalletRecord, error)
	DeleteWalletRecord(ctx context.Context, userID, id string) error
	// FindCredential returns the best matching record for service and key.
	// Agent-scoped records win over global ones.
	FindCredential(ctx context.Context, q WalletQuery) (*WalletRecord, error)
}

// visibleTo reports whether a record owned by (userID, agentID, global) is
// visible to the query's user and agent.
func visibleTo(ownerUser, ownerAgent string, global bool, userID, agentID string) bool {
	if ownerUser != userID {
		return false
	}
	return global || agentID == "" || ownerAgent == agentID
}

func (u MemoryUpdate) apply(r MemoryRecord) MemoryRecord {
	if u.Content != "" {
		r.Content = u.Content
	}
	if u.IsGlobal != nil {
		r.IsGlobal = *u.IsGlobal
	}
	r.UpdatedAt = time.Now().UTC()
	return r
}

func (u WalletUpdate) apply(r WalletRecord) WalletRecord {
	if u.Username != nil {
		r.Username = *u.Username
	}
	if u.Password != nil {
		r.Password = *u.Password
	}
	if u.Secret != nil {
		r.Secret = *u.Secret
	}
	if u.Cookies != nil {
		r.Cookies = *u.Cookies
	}
	if u.IsGlobal != nil {
		r.IsGlobal = *u.IsGlobal
	}
	r.UpdatedAt = time.Now().UTC()
	return r
}

// bestCredential picks an agent-scoped match before a global one.
func bestCredential(records []WalletRecord, agentID string) *WalletRecord {
	var fallback *WalletRecord
	for i := range records {
		r := records[i]
		if agentID != "" && r.AgentID == agentID && !r.IsGlobal {
			return &r
		}
		if fallback == nil {
			fallback = &r
		}
	}
	return fallback
}
