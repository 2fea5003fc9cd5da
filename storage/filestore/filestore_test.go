package filestore_test

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/sjoshi/portfolio-api/contact"
	apperrors "github.com/sjoshi/portfolio-api/internal/errors"
	"github.com/sjoshi/portfolio-api/storage/filestore"
	"github.com/sjoshi/portfolio-api/token"
	"github.com/stretchr/testify/require"
)

func TestTokenRepo_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".secrets", "spotify_tokens.json")
	repo := filestore.NewTokenRepo(path)
	ctx := context.Background()

	_, err := repo.Load(ctx)
	require.ErrorIs(t, err, apperrors.ErrNotFound)

	expiresAt := time.UnixMilli(1740834000000)
	require.NoError(t, repo.Upsert(ctx, &token.OwnerToken{
		OwnerID:      token.OwnerID,
		AccessToken:  "tok1",
		RefreshToken: "ref1",
		ExpiresAt:    expiresAt,
	}))

	got, err := repo.Load(ctx)
	require.NoError(t, err)
	require.Equal(t, token.OwnerID, got.OwnerID)
	require.Equal(t, "tok1", got.AccessToken)
	require.Equal(t, "ref1", got.RefreshToken)
	require.Equal(t, expiresAt.UnixMilli(), got.ExpiresAtMillis())

	if runtime.GOOS != "windows" {
		info, err := os.Stat(path)
		require.NoError(t, err)
		require.Equal(t, os.FileMode(0o600), info.Mode().Perm())

		dirInfo, err := os.Stat(filepath.Dir(path))
		require.NoError(t, err)
		require.Equal(t, os.FileMode(0o700), dirInfo.Mode().Perm())
	}
}

func TestTokenRepo_KeepsRefreshToken(t *testing.T) {
	repo := filestore.NewTokenRepo(filepath.Join(t.TempDir(), "tokens.json"))
	ctx := context.Background()

	require.NoError(t, repo.Upsert(ctx, &token.OwnerToken{OwnerID: token.OwnerID, AccessToken: "tok1", RefreshToken: "ref1", ExpiresAt: time.Now()}))
	require.NoError(t, repo.Upsert(ctx, &token.OwnerToken{OwnerID: token.OwnerID, AccessToken: "tok2", ExpiresAt: time.Now()}))

	got, err := repo.Load(ctx)
	require.NoError(t, err)
	require.Equal(t, "tok2", got.AccessToken)
	require.Equal(t, "ref1", got.RefreshToken)
}

func TestTokenRepo_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tokens.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	_, err := filestore.NewTokenRepo(path).Load(context.Background())
	require.Error(t, err)
	require.NotErrorIs(t, err, apperrors.ErrNotFound)
}

func TestContactRepo_CorruptFileMovedAside(t *testing.T) {
	dir := t.TempDir()
	repo := filestore.NewContactRepo(dir)
	ctx := context.Background()
	require.NoError(t, os.WriteFile(repo.Path(), []byte(`[{"id":"half`), 0o600))

	require.NoError(t, repo.Save(ctx, &contact.Submission{ID: "a", Name: "Ada", Email: "ada@example.com", Reason: "Hello"}))
	require.NoError(t, repo.Save(ctx, &contact.Submission{ID: "b", Name: "Bob", Email: "bob@example.com", Reason: "Hi"}))

	saved, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, saved, 2)
	require.Equal(t, "a", saved[0].ID)

	aside, err := filepath.Glob(filepath.Join(dir, filestore.ContactFileName+".*.corrupt"))
	require.NoError(t, err)
	require.Len(t, aside, 1)
	data, err := os.ReadFile(aside[0])
	require.NoError(t, err)
	require.Equal(t, `[{"id":"half`, string(data))
}

func TestContactRepo_Appends(t *testing.T) {
	dir := t.TempDir()
	repo := filestore.NewContactRepo(dir)
	ctx := context.Background()
	require.Equal(t, filepath.Join(dir, filestore.ContactFileName), repo.Path())

	for _, name := range []string{"Ada", "Bob", "Cy"} {
		require.NoError(t, repo.Save(ctx, &contact.Submission{
			ID:        name,
			Name:      name,
			Email:     name + "@example.com",
			Reason:    "Hello",
			CreatedAt: time.Now().UTC(),
		}))
	}

	got, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, got, 3)
	require.Equal(t, "Ada", got[0].Name)
	require.Equal(t, "Cy", got[2].Name)
}

func TestContactRepo_UnwritableDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "blocked")
	// a regular file where the directory should be
	require.NoError(t, os.WriteFile(dir, []byte("x"), 0o600))

	err := filestore.NewContactRepo(dir).Save(context.Background(), &contact.Submission{ID: "a", Name: "Ada"})
	require.Error(t, err)
}
