// Package sqlstore holds the relational repositories. Queries are written with
// $N placeholders and rebound for the connected dialect.
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/sjoshi/portfolio-api/internal/dbx"
	apperrors "github.com/sjoshi/portfolio-api/internal/errors"
	"github.com/sjoshi/portfolio-api/token"
)

const (
	selectTokenQuery = `
		SELECT user_id, access_token, refresh_token, expires_at, updated_at
		FROM spotify_tokens
		WHERE user_id = $1`

	upsertTokenQuery = `
		INSERT INTO spotify_tokens (user_id, access_token, refresh_token, expires_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_id) DO UPDATE SET
			access_token = EXCLUDED.access_token,
			refresh_token = COALESCE(EXCLUDED.refresh_token, spotify_tokens.refresh_token),
			expires_at = EXCLUDED.expires_at,
			updated_at = EXCLUDED.updated_at`
)

var _ token.Repo = (*TokenRepo)(nil)

// TokenRepo stores the owner token in spotify_tokens.
type TokenRepo struct {
	conn    dbx.Connector
	nowFunc func() time.Time
}

func NewTokenRepo(conn dbx.Connector) *TokenRepo {
	return &TokenRepo{conn: conn, nowFunc: time.Now}
}

// WithClock replaces the clock used to stamp updated_at.
func (r *TokenRepo) WithClock(now func() time.Time) *TokenRepo {
	r.nowFunc = now
	return r
}

func (r *TokenRepo) Load(ctx context.Context) (*token.OwnerToken, error) {
	db, err := r.conn.Conn(ctx)
	if err != nil {
		return nil, err
	}

	var (
		t         token.OwnerToken
		refresh   sql.NullString
		expiresAt int64
		updatedAt int64
	)
	row := db.QueryRowContext(ctx, dbx.Rebind(r.conn.Dialect(), selectTokenQuery), token.OwnerID)
	if err := row.Scan(&t.OwnerID, &t.AccessToken, &refresh, &expiresAt, &updatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("load owner token: %w", err)
	}

	t.RefreshToken = refresh.String
	t.ExpiresAt = time.UnixMilli(expiresAt)
	t.UpdatedAt = time.UnixMilli(updatedAt)
	return &t, nil
}

// Upsert writes the token in one statement. An empty refresh token is sent as
// NULL so the stored one is kept.
func (r *TokenRepo) Upsert(ctx context.Context, t *token.OwnerToken) error {
	db, err := r.conn.Conn(ctx)
	if err != nil {
		return err
	}

	refresh := sql.NullString{String: t.RefreshToken, Valid: t.RefreshToken != ""}
	_, err = db.ExecContext(ctx, dbx.Rebind(r.conn.Dialect(), upsertTokenQuery),
		t.OwnerID, t.AccessToken, refresh, t.ExpiresAtMillis(), r.nowFunc().UnixMilli())
	if err != nil {
		return fmt.Errorf("upsert owner token: %w", err)
	}
	return nil
}
