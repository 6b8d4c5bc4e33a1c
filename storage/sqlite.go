// Package storage provides SQLite record storage.
//
// Information Hiding:
// - SQLite connection management hidden behind interface
// - Schema and migration details encapsulated
// - Thread-safe via sql.DB's built-in connection pooling

package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// SqliteStore implements MemoryAdapter and WalletAdapter using SQLite.
// Thread-safe: sql.DB handles connection pooling and concurrent access.
type SqliteStore struct {
	db *sql.DB
}

// OpenSqlite opens or creates a SQLite database at the given path.
// Creates parent directories if they don't exist.
func OpenSqlite(path string) (*SqliteStore, error) {
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}
	return newSqliteStore(db)
}

// NewSqliteInMemory creates an in-memory database (useful for testing).
func NewSqliteInMemory() (*SqliteStore, error) {
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory SQLite: %w", err)
	}
	// Every pooled connection to :memory: is a separate database.
	db.SetMaxOpenConns(1)
	return newSqliteStore(db)
}

func newSqliteStore(db *sql.DB) (*SqliteStore, error) {
	store := &SqliteStore{db: db}
	if err := store.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return store, nil
}

// Close closes the database connection.
func (s *SqliteStore) Close() error {
	return s.db.Close()
}

func (s *SqliteStore) createSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS memories (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			agent_id TEXT,
			agent_name TEXT,
			content TEXT NOT NULL,
			is_global INTEGER NOT NULL DEFAULT 0,
			created_at INTEGER NOT NULL,
			updated_at INTEGER NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_memories_user
		ON memories(user_id, agent_id, created_at DESC);

		CREATE TABLE IF NOT EXISTS wallet_records (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			agent_id TEXT,
			record_type TEXT NOT NULL,
			service TEXT NOT NULL,
			key TEXT NOT NULL,
			username TEXT,
			password TEXT,
			secret TEXT,
			cookies TEXT,
			is_global INTEGER NOT NULL DEFAULT 0,
			created_at INTEGER NOT NULL,
			updated_at INTEGER NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_wallet_lookup
		ON wallet_records(user_id, service, key);
	`

	_, err := s.db.Exec(schema)
	if err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// nullable converts empty strings to NULL for optional columns.
func nullable(v string) any {
	if v == "" {
		return nil
	}
	return v
}

func fromNanos(n int64) time.Time {
	return time.Unix(0, n).UTC()
}

// MemoryAdapter implementation

const memoryColumns = `id, user_id, agent_id, agent_name, content, is_global, created_at, updated_at`

// RetrieveMemories returns visible memories, newest first.
func (s *SqliteStore) RetrieveMemories(ctx context.Context, q MemoryQuery) ([]MemoryRecord, error) {
	query := `SELECT ` + memoryColumns + ` FROM memories
		WHERE user_id = ? AND (is_global = 1 OR ? = '' OR agent_id = ?)`
	args := []any{q.UserID, q.AgentID, q.AgentID}
	if q.Text != "" {
		query += ` AND instr(lower(content), ?) > 0`
		args = append(args, strings.ToLower(q.Text))
	}
	query += ` ORDER BY created_at DESC, id ASC`
	if q.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, q.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query memories: %w", err)
	}
	defer rows.Close()

	memories := []MemoryRecord{} // Start with empty slice, not nil
	for rows.Next() {
		record, err := scanMemory(rows)
		if err != nil {
			return nil, err
		}
		memories = append(memories, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating memories: %w", err)
	}
	return memories, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMemory(row rowScanner) (MemoryRecord, error) {
	var r MemoryRecord
	var agentID, agentName sql.NullString
	var created, updated int64

	err := row.Scan(&r.ID, &r.UserID, &agentID, &agentName, &r.Content, &r.IsGlobal, &created, &updated)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return MemoryRecord{}, ErrNotFound
		}
		return MemoryRecord{}, fmt.Errorf("failed to scan memory: %w", err)
	}
	r.AgentID = agentID.String
	r.AgentName = agentName.String
	r.CreatedAt = fromNanos(created)
	r.UpdatedAt = fromNanos(updated)
	return r, nil
}

// StoreMemory saves a record, assigning an id when missing.
func (s *SqliteStore) StoreMemory(ctx context.Context, record MemoryRecord) (MemoryRecord, error) {
	if record.UserID == "" {
		return MemoryRecord{}, fmt.Errorf("memory record requires a user id")
	}
	if record.ID == "" {
		fresh := NewMemoryRecord(record.UserID, record.AgentID, record.Content)
		record.ID, record.CreatedAt, record.UpdatedAt = fresh.ID, fresh.CreatedAt, fresh.UpdatedAt
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO memories (`+memoryColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		record.ID,
		record.UserID,
		nullable(record.AgentID),
		nullable(record.AgentName),
		record.Content,
		record.IsGlobal,
		record.CreatedAt.UnixNano(),
		record.UpdatedAt.UnixNano(),
	)
	if err != nil {
		return MemoryRecord{}, fmt.Errorf("failed to store memory: %w", err)
	}
	return record, nil
}

func (s *SqliteStore) getMemory(ctx context.Context, userID, id string) (MemoryRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+memoryColumns+` FROM memories WHERE id = ? AND user_id = ?`, id, userID)
	r, err := scanMemory(row)
	if errors.Is(err, ErrNotFound) {
		return MemoryRecord{}, fmt.Errorf("memory %s: %w", id, ErrNotFound)
	}
	return r, err
}

// UpdateMemory changes a memory owned by userID.
func (s *SqliteStore) UpdateMemory(ctx context.Context, userID, id string, update MemoryUpdate) (MemoryRecord, error) {
	r, err := s.getMemory(ctx, userID, id)
	if err != nil {
		return MemoryRecord{}, err
	}
	r = update.apply(r)

	_, err = s.db.ExecContext(ctx,
		`UPDATE memories SET content = ?, is_global = ?, updated_at = ? WHERE id = ?`,
		r.Content, r.IsGlobal, r.UpdatedAt.UnixNano(), r.ID)
	if err != nil {
		return MemoryRecord{}, fmt.Errorf("failed to update memory: %w", err)
	}
	return r, nil
}

// DeleteMemory removes a memory owned by userID.
func (s *SqliteStore) DeleteMemory(ctx context.Context, userID, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM memories WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("failed to delete memory: %w", err)
	}
	return requireAffected(res, "memory", id)
}

func requireAffected(res sql.Result, kind, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%s %s: %w", kind, id, ErrNotFound)
	}
	return nil
}

// WalletAdapter implementation

const walletColumns = `id, user_id, agent_id, record_type, service, key, username, password, secret, cookies, is_global, created_at, updated_at`

// RetrieveWalletRecords returns visible wallet records, newest first.
func (s *SqliteStore) RetrieveWalletRecords(ctx context.Context, q WalletQuery) ([]WalletRecord, error) {
	query := `SELECT ` + walletColumns + ` FROM wallet_records
		WHERE user_id = ? AND (is_global = 1 OR ? = '' OR agent_id = ?)`
	args := []any{q.UserID, q.AgentID, q.AgentID}
	if q.Service != "" {
		query += ` AND lower(service) = lower(?)`
		args = append(args, q.Service)
	}
	if q.Key != "" {
		query += ` AND lower(key) = lower(?)`
		args = append(args, q.Key)
	}
	query += ` ORDER BY created_at DESC, id ASC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query wallet records: %w", err)
	}
	defer rows.Close()

	records := []WalletRecord{}
	for rows.Next() {
		record, err := scanWallet(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating wallet records: %w", err)
	}
	return records, nil
}

func scanWallet(row rowScanner) (WalletRecord, error) {
	var r WalletRecord
	var recordType string
	var agentID, username, password, secret, cookies sql.NullString
	var created, updated int64

	err := row.Scan(&r.ID, &r.UserID, &agentID, &recordType, &r.Service, &r.Key,
		&username, &password, &secret, &cookies, &r.IsGlobal, &created, &updated)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return WalletRecord{}, ErrNotFound
		}
		return WalletRecord{}, fmt.Errorf("failed to scan wallet record: %w", err)
	}

	rt, err := ParseWalletRecordType(recordType)
	if err != nil {
		return WalletRecord{}, fmt.Errorf("invalid record type %q in database: %w", recordType, err)
	}
	r.RecordType = rt
	r.AgentID = agentID.String
	r.Username = username.String
	r.Password = password.String
	r.Secret = secret.String
	r.Cookies = cookies.String
	r.CreatedAt = fromNanos(created)
	r.UpdatedAt = fromNanos(updated)
	return r, nil
}

// StoreWalletRecord saves a record, assigning an id when missing.
func (s *SqliteStore) StoreWalletRecord(ctx context.Context, record WalletRecord) (WalletRecord, error) {
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

	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO wallet_records (`+walletColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		record.ID,
		record.UserID,
		nullable(record.AgentID),
		record.RecordType.String(),
		record.Service,
		record.Key,
		nullable(record.Username),
		nullable(record.Password),
		nullable(record.Secret),
		nullable(record.Cookies),
		record.IsGlobal,
		record.CreatedAt.UnixNano(),
		record.UpdatedAt.UnixNano(),
	)
	if err != nil {
		return WalletRecord{}, fmt.Errorf("failed to store wallet record: %w", err)
	}
	return record, nil
}

// UpdateWalletRecord changes a wallet record owned by userID.
func (s *SqliteStore) UpdateWalletRecord(ctx context.Context, userID, id string, update WalletUpdate) (WalletRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+walletColumns+` FROM wallet_records WHERE id = ? AND user_id = ?`, id, userID)
	r, err := scanWallet(row)
	if errors.Is(err, ErrNotFound) {
		return WalletRecord{}, fmt.Errorf("wallet record %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return WalletRecord{}, err
	}
	r = update.apply(r)

	_, err = s.db.ExecContext(ctx, `
		UPDATE wallet_records
		SET username = ?, password = ?, secret = ?, cookies = ?, is_global = ?, updated_at = ?
		WHERE id = ?`,
		nullable(r.Username), nullable(r.Password), nullable(r.Secret), nullable(r.Cookies),
		r.IsGlobal, r.UpdatedAt.UnixNano(), r.ID)
	if err != nil {
		return WalletRecord{}, fmt.Errorf("failed to update wallet record: %w", err)
	}
	return r, nil
}

// DeleteWalletRecord removes a wallet record owned by userID.
func (s *SqliteStore) DeleteWalletRecord(ctx context.Context, userID, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM wallet_records WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("failed to delete wallet record: %w", err)
	}
	return requireAffected(res, "wallet record", id)
}

// FindCredential returns the best match for the query, or nil.
func (s *SqliteStore) FindCredential(ctx context.Context, q WalletQuery) (*WalletRecord, error) {
	records, err := s.RetrieveWalletRecords(ctx, q)
	if err != nil {
		return nil, err
	}
	return bestCredential(records, q.AgentID), nil
}

// Verify SqliteStore implements both adapters
var (
	_ MemoryAdapter = (*SqliteStore)(nil)
	_ WalletAdapter = (*SqliteStore)(nil)
)
