// Package sqlite keeps the client's session in a local SQLite file so it
// survives restarts.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/patricktravel/portal/internal/client/session"
	"github.com/patricktravel/portal/internal/core/domain"
)

const (
	keyToken = "token"
	keyUser  = "user"
)

const schema = `
CREATE TABLE IF NOT EXISTS client_session (
  key   TEXT PRIMARY KEY,
  value BLOB NOT NULL
);`

// tokenRecord is the stored form of the cookie.
type tokenRecord struct {
	Value     string    `json:"value"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// SessionStore implements session.Store. The token and user rows are always
// written and deleted in the same transaction.
type SessionStore struct {
	db *sql.DB
}

var _ session.Store = (*SessionStore)(nil)

// Open opens (or creates) the database at dsn and ensures the schema exists.
func Open(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// one connection keeps ":memory:" databases shared and serialises writers
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create client_session: %w", err)
	}
	return db, nil
}

func NewSessionStore(db *sql.DB) *SessionStore {
	return &SessionStore{db: db}
}

func (s *SessionStore) Load(ctx context.Context) (*session.Persisted, error) {
	var rec *session.Persisted
	err := WithTx(ctx, s.db, nil, func(ctx context.Context, tx DBTX) error {
		rawToken, err := get(ctx, tx, keyToken)
		if err != nil {
			return err
		}
		rawUser, err := get(ctx, tx, keyUser)
		if err != nil {
			return err
		}
		if rawToken == nil && rawUser == nil {
			return nil
		}
		if rawToken == nil || rawUser == nil {
			return errors.New("partial session record")
		}

		var tok tokenRecord
		if err := json.Unmarshal(rawToken, &tok); err != nil {
			return fmt.Errorf("decode token: %w", err)
		}
		var user domain.User
		if err := json.Unmarshal(rawUser, &user); err != nil {
			return fmt.Errorf("decode user: %w", err)
		}
		rec = &session.Persisted{Token: tok.Value, CookieExpiresAt: tok.ExpiresAt, User: user}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	return rec, nil
}

func (s *SessionStore) Save(ctx context.Context, p session.Persisted) error {
	rawToken, err := json.Marshal(tokenRecord{Value: p.Token, ExpiresAt: p.CookieExpiresAt})
	if err != nil {
		return fmt.Errorf("encode token: %w", err)
	}
	rawUser, err := json.Marshal(p.User)
	if err != nil {
		return fmt.Errorf("encode user: %w", err)
	}

	err = WithTx(ctx, s.db, nil, func(ctx context.Context, tx DBTX) error {
		if err := set(ctx, tx, keyToken, rawToken); err != nil {
			return err
		}
		return set(ctx, tx, keyUser, rawUser)
	})
	if err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

func (s *SessionStore) Clear(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM client_session WHERE key IN (?, ?)`, keyToken, keyUser)
	if err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	return nil
}

func get(ctx context.Context, db DBTX, key string) ([]byte, error) {
	var value []byte
	err := db.QueryRowContext(ctx, `SELECT value FROM client_session WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", key, err)
	}
	return value, nil
}

func set(ctx context.Context, db DBTX, key string, value []byte) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO client_session (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	if err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	return nil
}
