package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "github.com/glebarez/go-sqlite"
)

// SQLiteStore is a Store persisted in a SQLite database file.
type SQLiteStore struct {
	db         *sql.DB
	writeMutex sync.Mutex
	now        Clock
}

// NewSQLiteStore opens (or creates) the database at path. Use ":memory:"
// for a throwaway database.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// a single connection keeps ":memory:" databases shared
	db.SetMaxOpenConns(1)

	stmts := []string{
		"CREATE TABLE IF NOT EXISTS cache (key TEXT PRIMARY KEY, expires INTEGER NOT NULL, value BLOB)",
		"CREATE INDEX IF NOT EXISTS expires_idx ON cache (expires)",
		"PRAGMA journal_mode=WAL",
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("init sqlite schema: %w", err)
		}
	}

	return &SQLiteStore{db: db, now: time.Now}, nil
}

// Get implements Store.
func (s *SQLiteStore) Get(ctx context.Context, key string) ([]byte, error) {
	var expires int64
	var value []byte
	err := s.db.QueryRowContext(ctx, "SELECT expires, value FROM cache WHERE key = ?", key).Scan(&expires, &value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrCacheMiss
		}
		return nil, fmt.Errorf("sqlite get: %w", err)
	}

	if expires > 0 && s.now().UnixMilli() >= expires {
		if err := s.Delete(ctx, key); err != nil {
			return nil, err
		}
		return nil, ErrCacheMiss
	}
	return value, nil
}

// Set implements Store.
func (s *SQLiteStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	var expires int64
	if ttl > 0 {
		expires = s.now().Add(ttl).UnixMilli()
	}

	s.writeMutex.Lock()
	defer s.writeMutex.Unlock()
	_, err := s.db.ExecContext(ctx, "INSERT OR REPLACE INTO cache (key, expires, value) VALUES (?, ?, ?)", key, expires, value)
	if err != nil {
		return fmt.Errorf("sqlite set: %w", err)
	}
	return nil
}

// Delete implements Store.
func (s *SQLiteStore) Delete(ctx context.Context, key string) error {
	s.writeMutex.Lock()
	defer s.writeMutex.Unlock()
	if _, err := s.db.ExecContext(ctx, "DELETE FROM cache WHERE key = ?", key); err != nil {
		return fmt.Errorf("sqlite delete: %w", err)
	}
	return nil
}

// Purge removes every expired row and returns how many were deleted.
func (s *SQLiteStore) Purge(ctx context.Context) (int64, error) {
	s.writeMutex.Lock()
	defer s.writeMutex.Unlock()
	res, err := s.db.ExecContext(ctx, "DELETE FROM cache WHERE expires > 0 AND expires <= ?", s.now().UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("sqlite purge: %w", err)
	}
	return res.RowsAffected()
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
