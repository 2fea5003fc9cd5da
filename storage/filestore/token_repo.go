// Package filestore keeps repositories in local JSON files. It suits local
// development and serverless scratch space, not shared deployments.
package filestore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	apperrors "github.com/sjoshi/portfolio-api/internal/errors"
	"github.com/sjoshi/portfolio-api/token"
)

var _ token.Repo = (*TokenRepo)(nil)

type fileToken struct {
	UserID       string `json:"user_id"`
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	ExpiresAt    int64  `json:"expires_at"`
	UpdatedAt    int64  `json:"updated_at"`
}

// TokenRepo stores the owner token as a single JSON document.
type TokenRepo struct {
	path    string
	nowFunc func() time.Time
	mu      sync.Mutex
}

func NewTokenRepo(path string) *TokenRepo {
	return &TokenRepo{path: path, nowFunc: time.Now}
}

func (r *TokenRepo) Load(_ context.Context) (*token.OwnerToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	payload, err := r.read()
	if err != nil {
		return nil, err
	}
	return &token.OwnerToken{
		OwnerID:      payload.UserID,
		AccessToken:  payload.AccessToken,
		RefreshToken: payload.RefreshToken,
		ExpiresAt:    time.UnixMilli(payload.ExpiresAt),
		UpdatedAt:    time.UnixMilli(payload.UpdatedAt),
	}, nil
}

// Upsert rewrites the file, keeping the stored refresh token when t has none.
func (r *TokenRepo) Upsert(_ context.Context, t *token.OwnerToken) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	refresh := t.RefreshToken
	if refresh == "" {
		existing, err := r.read()
		if err != nil && !errors.Is(err, apperrors.ErrNotFound) {
			return err
		}
		if existing != nil {
			refresh = existing.RefreshToken
		}
	}

	data, err := json.MarshalIndent(fileToken{
		UserID:       t.OwnerID,
		AccessToken:  t.AccessToken,
		RefreshToken: refresh,
		ExpiresAt:    t.ExpiresAtMillis(),
		UpdatedAt:    r.nowFunc().UnixMilli(),
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("save owner token: encode json: %w", err)
	}
	return writeFile(r.path, data)
}

func (r *TokenRepo) read() (*fileToken, error) {
	data, err := os.ReadFile(r.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, apperrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load owner token: read file: %w", err)
	}

	var payload fileToken
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("load owner token: decode json: %w", err)
	}
	if payload.AccessToken == "" {
		return nil, apperrors.ErrNotFound
	}
	return &payload, nil
}

// writeFile replaces path through a temp file and rename so readers never see
// a partial document.
func writeFile(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Chmod(0o600); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("rename into place: %w", err)
	}
	return nil
}
