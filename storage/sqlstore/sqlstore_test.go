package sqlstore_test

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/sjoshi/portfolio-api/contact"
	"github.com/sjoshi/portfolio-api/internal/database"
	"github.com/sjoshi/portfolio-api/internal/dbx"
	apperrors "github.com/sjoshi/portfolio-api/internal/errors"
	"github.com/sjoshi/portfolio-api/storage/sqlstore"
	"github.com/sjoshi/portfolio-api/token"
	"github.com/stretchr/testify/require"
)

const (
	upsertPattern = `(?s)^\s*INSERT\s+INTO\s+spotify_tokens\s+\(user_id,\s*access_token,\s*refresh_token,\s*expires_at,\s*updated_at\)\s+` +
		`VALUES\s+\(\$1,\s*\$2,\s*\$3,\s*\$4,\s*\$5\)\s+ON\s+CONFLICT\s+\(user_id\)\s+DO\s+UPDATE\s+SET.*` +
		`refresh_token\s*=\s*COALESCE\(EXCLUDED\.refresh_token,\s*spotify_tokens\.refresh_token\)`
	selectPattern = `(?s)^\s*SELECT\s+user_id,\s*access_token,\s*refresh_token,\s*expires_at,\s*updated_at\s+FROM\s+spotify_tokens\s+WHERE\s+user_id\s*=\s*\$1\s*$`
	contactPattern = `(?s)^\s*INSERT\s+INTO\s+contact_submissions\s+\(id,\s*name,\s*email,\s*reason,\s*created_at\)\s+VALUES\s+\(\$1,\s*\$2,\s*\$3,\s*\$4,\s*\$5\)\s*$`
)

func newMock(t *testing.T) (dbx.Connector, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return dbx.Static(db, "postgres"), mock
}

func newSQLite(t *testing.T) dbx.Connector {
	t.Helper()
	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "portfolio.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, database.RunMigrations(context.Background(), db, "sqlite"))
	return dbx.Static(db, "sqlite")
}

type failingConnector struct{}

func (failingConnector) Conn(context.Context) (dbx.DBTX, error) {
	return nil, apperrors.ErrNotConfigured
}

func (failingConnector) Dialect() string { return "postgres" }

func ownerToken(access, refresh string, expiresAt time.Time) *token.OwnerToken {
	return &token.OwnerToken{
		OwnerID:      token.OwnerID,
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresAt:    expiresAt,
	}
}

func TestTokenRepo_UpsertQueryShape(t *testing.T) {
	conn, mock := newMock(t)
	now := time.UnixMilli(1740830400000)
	repo := sqlstore.NewTokenRepo(conn).WithClock(func() time.Time { return now })
	expiresAt := now.Add(time.Hour)

	mock.ExpectExec(upsertPattern).
		WithArgs(token.OwnerID, "tok1", "ref1", expiresAt.UnixMilli(), now.UnixMilli()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.Upsert(context.Background(), ownerToken("tok1", "ref1", expiresAt)))

	// an empty refresh token goes out as NULL
	mock.ExpectExec(upsertPattern).
		WithArgs(token.OwnerID, "tok2", nil, expiresAt.UnixMilli(), now.UnixMilli()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.Upsert(context.Background(), ownerToken("tok2", "", expiresAt)))

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTokenRepo_UpsertError(t *testing.T) {
	conn, mock := newMock(t)
	repo := sqlstore.NewTokenRepo(conn)

	mock.ExpectExec(upsertPattern).WillReturnError(errors.New("db down"))
	err := repo.Upsert(context.Background(), ownerToken("tok1", "ref1", time.Now()))
	require.ErrorContains(t, err, "upsert owner token: db down")
}

func TestTokenRepo_Load(t *testing.T) {
	conn, mock := newMock(t)
	repo := sqlstore.NewTokenRepo(conn)

	rows := sqlmock.NewRows([]string{"user_id", "access_token", "refresh_token", "expires_at", "updated_at"}).
		AddRow(token.OwnerID, "tok1", nil, int64(1740834000000), int64(1740830400000))
	mock.ExpectQuery(selectPattern).WithArgs(token.OwnerID).WillReturnRows(rows)

	got, err := repo.Load(context.Background())
	require.NoError(t, err)
	require.Equal(t, "tok1", got.AccessToken)
	require.Empty(t, got.RefreshToken)
	require.Equal(t, int64(1740834000000), got.ExpiresAtMillis())
	require.Equal(t, int64(1740830400000), got.UpdatedAt.UnixMilli())

	mock.ExpectQuery(selectPattern).WithArgs(token.OwnerID).WillReturnError(sql.ErrNoRows)
	_, err = repo.Load(context.Background())
	require.ErrorIs(t, err, apperrors.ErrNotFound)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTokenRepo_Unreachable(t *testing.T) {
	repo := sqlstore.NewTokenRepo(failingConnector{})

	_, err := repo.Load(context.Background())
	require.ErrorIs(t, err, apperrors.ErrNotConfigured)
	require.ErrorIs(t, repo.Upsert(context.Background(), ownerToken("tok1", "", time.Now())), apperrors.ErrNotConfigured)
}

func TestTokenRepo_SQLiteUpsertIsIdempotent(t *testing.T) {
	conn := newSQLite(t)
	now := time.UnixMilli(1740830400000)
	repo := sqlstore.NewTokenRepo(conn).WithClock(func() time.Time { return now })
	ctx := context.Background()
	tok := ownerToken("tok1", "ref1", now.Add(time.Hour))

	require.NoError(t, repo.Upsert(ctx, tok))
	now = now.Add(time.Minute)
	require.NoError(t, repo.Upsert(ctx, tok))

	db, err := conn.Conn(ctx)
	require.NoError(t, err)
	var count int
	require.NoError(t, db.QueryRowContext(ctx, "SELECT COUNT(*) FROM spotify_tokens WHERE user_id = ?", token.OwnerID).Scan(&count))
	require.Equal(t, 1, count)

	got, err := repo.Load(ctx)
	require.NoError(t, err)
	require.Equal(t, "tok1", got.AccessToken)
	require.Equal(t, "ref1", got.RefreshToken)
	require.Equal(t, now.UnixMilli(), got.UpdatedAt.UnixMilli())
}

func TestTokenRepo_SQLiteKeepsRefreshToken(t *testing.T) {
	conn := newSQLite(t)
	repo := sqlstore.NewTokenRepo(conn)
	ctx := context.Background()

	_, err := repo.Load(ctx)
	require.ErrorIs(t, err, apperrors.ErrNotFound)

	require.NoError(t, repo.Upsert(ctx, ownerToken("tok1", "ref1", time.Now().Add(time.Hour))))
	require.NoError(t, repo.Upsert(ctx, ownerToken("tok2", "", time.Now().Add(2*time.Hour))))

	got, err := repo.Load(ctx)
	require.NoError(t, err)
	require.Equal(t, "tok2", got.AccessToken)
	require.Equal(t, "ref1", got.RefreshToken)
}

func TestContactRepo_Save(t *testing.T) {
	conn, mock := newMock(t)
	repo := sqlstore.NewContactRepo(conn)
	sub := &contact.Submission{
		ID:        "c0ffee00-0000-4000-8000-000000000001",
		Name:      "Ada",
		Email:     "ada@example.com",
		Reason:    "Hiring",
		CreatedAt: time.UnixMilli(1740830400000),
	}

	mock.ExpectExec(contactPattern).
		WithArgs(sub.ID, "Ada", "ada@example.com", "Hiring", int64(1740830400000)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.Save(context.Background(), sub))

	mock.ExpectExec(contactPattern).WillReturnError(errors.New("db down"))
	require.ErrorContains(t, repo.Save(context.Background(), sub), "insert contact submission")

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestContactRepo_SQLite(t *testing.T) {
	conn := newSQLite(t)
	repo := sqlstore.NewContactRepo(conn)
	ctx := context.Background()

	require.NoError(t, repo.Save(ctx, &contact.Submission{ID: "a", Name: "Ada", Email: "ada@example.com", Reason: "Hiring", CreatedAt: time.Now()}))
	require.NoError(t, repo.Save(ctx, &contact.Submission{ID: "b", Name: "Bob", Email: "bob@example.com", Reason: "Hello", CreatedAt: time.Now()}))

	db, err := conn.Conn(ctx)
	require.NoError(t, err)
	var count int
	require.NoError(t, db.QueryRowContext(ctx, "SELECT COUNT(*) FROM contact_submissions").Scan(&count))
	require.Equal(t, 2, count)
}
