package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/patricktravel/portal/internal/client/session"
	"github.com/patricktravel/portal/internal/core/domain"
)

func setupStore(t *testing.T) (*SessionStore, *sql.DB) {
	t.Helper()
	db, err := Open(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewSessionStore(db), db
}

func sample() session.Persisted {
	return session.Persisted{
		Token:           "tok",
		CookieExpiresAt: time.Date(2026, 1, 8, 0, 0, 0, 0, time.UTC),
		User: domain.User{
			ID:             "u1",
			Profile:        domain.Profile{FirstName: "Ana", Email: "ana@example.com", AccountType: domain.AccountStudent},
			EmailConfirmed: true,
			PasswordHash:   "never-stored",
		},
	}
}

func countRows(t *testing.T, db *sql.DB) int {
	t.Helper()
	var n int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM client_session`).Scan(&n))
	return n
}

func TestLoad_Empty_ReturnsNilNil(t *testing.T) {
	s, _ := setupStore(t)

	rec, err := s.Load(context.Background())
	require.NoError(t, err)
	require.Nil(t, rec)
}

func TestSaveThenLoad(t *testing.T) {
	s, db := setupStore(t)
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, sample()))
	require.Equal(t, 2, countRows(t, db))

	rec, err := s.Load(ctx)
	require.NoError(t, err)
	require.NotNil(t, rec)
	require.Equal(t, "tok", rec.Token)
	require.True(t, rec.CookieExpiresAt.Equal(sample().CookieExpiresAt))
	require.Equal(t, "u1", rec.User.ID)
	require.Equal(t, "Ana", rec.User.FirstName)
	require.True(t, rec.User.EmailConfirmed)
	require.Empty(t, rec.User.PasswordHash)
}

func TestSave_Overwrites(t *testing.T) {
	s, db := setupStore(t)
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, sample()))
	next := sample()
	next.Token = "tok2"
	next.User.ID = "u2"
	require.NoError(t, s.Save(ctx, next))

	rec, err := s.Load(ctx)
	require.NoError(t, err)
	require.Equal(t, "tok2", rec.Token)
	require.Equal(t, "u2", rec.User.ID)
	require.Equal(t, 2, countRows(t, db))
}

func TestClear_RemovesBoth(t *testing.T) {
	s, db := setupStore(t)
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, sample()))
	require.NoError(t, s.Clear(ctx))
	require.Zero(t, countRows(t, db))

	rec, err := s.Load(ctx)
	require.NoError(t, err)
	require.Nil(t, rec)

	require.NoError(t, s.Clear(ctx))
}

func TestLoad_PartialRecordIsAnError(t *testing.T) {
	s, db := setupStore(t)
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, sample()))
	_, err := db.Exec(`DELETE FROM client_session WHERE key = 'user'`)
	require.NoError(t, err)

	rec, err := s.Load(ctx)
	require.Error(t, err)
	require.Nil(t, rec)
}

func TestLoad_CorruptUserIsAnError(t *testing.T) {
	s, db := setupStore(t)
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, sample()))
	_, err := db.Exec(`UPDATE client_session SET value = ? WHERE key = 'user'`, []byte("{not json"))
	require.NoError(t, err)

	_, err = s.Load(ctx)
	require.Error(t, err)
	require.Contains(t, err.Error(), "decode user")
}

func TestWithTx_RollsBackOnError(t *testing.T) {
	_, db := setupStore(t)
	ctx := context.Background()
	boom := errors.New("boom")

	err := WithTx(ctx, db, nil, func(ctx context.Context, tx DBTX) error {
		if err := set(ctx, tx, keyToken, []byte(`{}`)); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)
	require.Zero(t, countRows(t, db))
}

func TestWithTx_RollsBackOnPanic(t *testing.T) {
	_, db := setupStore(t)
	ctx := context.Background()

	require.Panics(t, func() {
		_ = WithTx(ctx, db, nil, func(ctx context.Context, tx DBTX) error {
			_ = set(ctx, tx, keyToken, []byte(`{}`))
			panic("boom")
		})
	})
	require.Zero(t, countRows(t, db))
}

func TestManagerSurvivesRestart(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "session.db")
	ctx := context.Background()

	db, err := Open(ctx, dsn)
	require.NoError(t, err)
	auth := &staticAuth{res: &domain.AuthResult{User: &domain.User{ID: "u1"}, Token: "tok"}}
	m := session.NewManager(auth, NewSessionStore(db))
	m.Init(ctx)
	require.NoError(t, m.Login(ctx, "ana@example.com", "pw"))
	require.NoError(t, db.Close())

	db, err = Open(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	restored := session.NewManager(auth, NewSessionStore(db))
	restored.Init(ctx)
	require.NotNil(t, restored.State().User)
	require.Equal(t, "u1", restored.State().User.ID)
	require.NotNil(t, restored.Cookie())

	restored.Logout(ctx)
	rec, err := NewSessionStore(db).Load(ctx)
	require.NoError(t, err)
	require.Nil(t, rec)
}

type staticAuth struct{ res *domain.AuthResult }

func (a *staticAuth) Register(context.Context, domain.Registration) (*domain.AuthResult, error) {
	return a.res, nil
}

func (a *staticAuth) Login(context.Context, string, string) (*domain.AuthResult, error) {
	return a.res, nil
}
