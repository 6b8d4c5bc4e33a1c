// Package storage provides in-memory record storage.
//
// Information Hiding:
// - Map storage structure hidden from users
// - Thread-safe access via RWMutex hidden behind interface
// - Suitable for testing and ephemeral sessions

package storage

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
)

// InMemoryStore implements MemoryAdapter and WalletAdapter using maps.
// Data is lost when process terminates.
type InMemoryStore struct {
	mu       sync.RWMutex
	memories map[string]MemoryRecord
	wallet   map[string]WalletRecord
}

// NewInMemoryStore creates a new in-memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		memories: make(map[string]MemoryRecord),
		wallet:   make(map[string]WalletRecord),
	}
}

// RetrieveMemories returns visible memories, newest first.
func (s *InMemoryStore) RetrieveMemories(ctx context.Context, q MemoryQuery) ([]MemoryRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	text := strings.ToLower(q.Text)
	out := []MemoryRecord{}
	for _, r := range s.memories {
		if !visibleTo(r.UserID, r.AgentID, r.IsGlobal, q.UserID, q.AgentID) {
			continue
		}
		if text != "" && !strings.Contains(strings.ToLower(r.Content), text) {
			continue
		}
		out = append(out, r)
	}
	slices.SortFunc(out, func(a, b MemoryRecord) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

// StoreMemory saves a record, assigning an id when missing.
func (s *InMemoryStore) StoreMemory(ctx context.Context, record MemoryRecord) (MemoryRecord, error) {
	if record.UserID == "" {
		return MemoryRecord{}, fmt.Errorf("memory record requires a user id")
	}
	if record.ID == "" {
		fresh := NewMemoryRecord(record.UserID, record.AgentID, record.Content)
		record.ID, record.CreatedAt, record.UpdatedAt = fresh.ID, fresh.CreatedAt, fresh.UpdatedAt
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.memories[record.ID] = record
	return record, nil
}

// UpdateMemory changes a memory owned by userID.
func (s *InMemoryStore) UpdateMemory(ctx context.Context, userID, id string, update MemoryUpdate) (MemoryRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.memories[id]
	if !ok || r.UserID != userID {
		return MemoryRecord{}, fmt.Errorf("memory %s: %w", id, ErrNotFound)
	}
	r = update.apply(r)
	s.memories[id] = r
	return r, nil
}

// DeleteMemory removes a memory owned by userID.
func (s *InMemoryStore) DeleteMemory(ctx context.Context, userID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.memories[id]
	if !ok || r.UserID != userID {
		return fmt.Errorf("memory %s: %w", id, ErrNotFound)
	}
	delete(s.memories, id)
	return nil
}

// RetrieveWalletRecords returns visible wallet records, newest first.
func (s *InMemoryStore) RetrieveWalletRecords(ctx context.Context, q WalletQuery) ([]WalletRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []WalletRecord{}
	for _, r := range s.wallet {
		if !visibleTo(r.UserID, r.AgentID, r.IsGlobal, q.UserID, q.AgentID) {
			continue
		}
		if q.Service != "" && !strings.EqualFold(r.Service, q.Service) {
			continue
		}
		if q.Key != "" && !strings.EqualFold(r.Key, q.Key) {
			continue
		}
		out = append(out, r)
	}
	slices.SortFunc(out, func(a, b WalletRecord) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return out, nil
}

// StoreWalletRecord saves a record, assigning an id when missing.
func (s *InMemoryStore) StoreWalletRecord(ctx context.Context, record WalletRecord) (WalletRecord, error) {
	if record.UserID == "" {
		return WalletRecord{}, fmt.Errorf("wallet record requires a user id")
	}
	if _, err := ParseWalletRecordType(record.RecordType.String()); err != nil {
		return WalletRecord{}, err
	}
	if record.ID == "" {
		fresh := NewWalletRecord(record.UserID, record.AgentID, record.RecordType, record.Service, record.Key)
		record.ID, record.CreatedAt, record.UpdatedAt = fresh.ID, fresh.CreatedAt, fresh.UpdatedAt
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.wallet[record.ID] = record
	return record, nil
}

// UpdateWalletRecord changes a wallet record owned by userID.
func (s *InMemoryStore) UpdateWalletRecord(ctx context.Context, userID, id string, update WalletUpdate) (WalletRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.wallet[id]
	if !ok || r.UserID != userID {
		return WalletRecord{}, fmt.Errorf("wallet record %s: %w", id, ErrNotFound)
	}
	r = update.apply(r)
	s.wallet[id] = r
	return r, nil
}

// DeleteWalletRecord removes a wallet record owned by userID.
func (s *InMemoryStore) DeleteWalletRecord(ctx context.Context, userID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.wallet[id]
	if !ok || r.UserID != userID {
		return fmt.Errorf("wallet record %s: %w", id, ErrNotFound)
	}
	delete(s.wallet, id)
	return nil
}

// FindCredential returns the best match for the query, or nil.
func (s *InMemoryStore) FindCredential(ctx context.Context, q WalletQuery) (*WalletRecord, error) {
	records, err := s.RetrieveWalletRecords(ctx, q)
	if err != nil {
		return nil, err
	}
	return bestCredential(records, q.AgentID), nil
}

// Verify InMemoryStore implements both adapters
var (
	_ MemoryAdapter = (*InMemoryStore)(nil)
	_ WalletAdapter = (*InMemoryStore)(nil)
)
