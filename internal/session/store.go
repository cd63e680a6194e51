// Package session persists the connected user's record the way the
// browser app kept it in localStorage: a single key-value store surviving
// restarts, with the user record under "user" and the API token under
// "jwt". It is a convenience record, not a security boundary.
package session

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"billed/internal/core"

	_ "modernc.org/sqlite"
)

// Well-known item keys.
const (
	KeyUser = "user"
	KeyJWT  = "jwt"
)

// Provider is the capability handed to the pipelines: read access to the
// current session without reaching into ambient storage.
type Provider interface {
	CurrentUser(ctx context.Context) (*core.Session, error)
}

// Store is a SQLite-backed key-value session store.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the session database and applies
// pending migrations.
func Open(dbPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create session db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open session database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping session database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Store{db: db}, nil
}

// Ping reports whether the underlying database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// GetItem returns the value stored under key, or "" when absent.
func (s *Store) GetItem(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM session_items WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get session item %q: %w", key, err)
	}
	return value, nil
}

// SetItem stores value under key, replacing any previous value.
func (s *Store) SetItem(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO session_items (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP`,
		key, value)
	if err != nil {
		return fmt.Errorf("set session item %q: %w", key, err)
	}
	return nil
}

// RemoveItem deletes the value stored under key. Removing an absent key
// is not an error.
func (s *Store) RemoveItem(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM session_items WHERE key = ?`, key); err != nil {
		return fmt.Errorf("remove session item %q: %w", key, err)
	}
	return nil
}

// CurrentUser returns the connected user's record, or nil when nobody is
// logged in.
func (s *Store) CurrentUser(ctx context.Context) (*core.Session, error) {
	raw, err := s.GetItem(ctx, KeyUser)
	if err != nil {
		return nil, err
	}
	if raw == "" {
		return nil, nil
	}
	var sess core.Session
	if err := json.Unmarshal([]byte(raw), &sess); err != nil {
		return nil, fmt.Errorf("decode user record: %w", err)
	}
	return &sess, nil
}

// SetCurrentUser stores the user record under the well-known key.
func (s *Store) SetCurrentUser(ctx context.Context, sess *core.Session) error {
	raw, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("encode user record: %w", err)
	}
	return s.SetItem(ctx, KeyUser, string(raw))
}

// Token returns the stored API token, or "" when absent.
func (s *Store) Token(ctx context.Context) (string, error) {
	return s.GetItem(ctx, KeyJWT)
}

// TokenExpired reports whether the stored token carries an exp claim
// in the past. Absent or undecodable tokens report false; the API is
// the authority and rejects them on the next call anyway.
func (s *Store) TokenExpired(ctx context.Context, now time.Time) (bool, error) {
	token, err := s.Token(ctx)
	if err != nil {
		return false, err
	}
	if token == "" {
		return false, nil
	}
	claims, err := ParseClaims(token)
	if err != nil {
		return false, nil
	}
	return claims.Expired(now), nil
}

// SetToken stores the API token.
func (s *Store) SetToken(ctx context.Context, token string) error {
	return s.SetItem(ctx, KeyJWT, token)
}

// Clear removes the user record and token (logout).
func (s *Store) Clear(ctx context.Context) error {
	if err := s.RemoveItem(ctx, KeyUser); err != nil {
		return err
	}
	return s.RemoveItem(ctx, KeyJWT)
}
