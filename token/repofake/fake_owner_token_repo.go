package repofake

import (
	"context"
	"sync"

	apperrors "github.com/sjoshi/portfolio-api/internal/errors"
	"github.com/sjoshi/portfolio-api/token"
)

var _ token.Repo = (*FakeOwnerTokenRepo)(nil)

// FakeOwnerTokenRepo keeps the owner token in memory with the same
// refresh-token retention rule as the SQL upsert.
type FakeOwnerTokenRepo struct {
	tokens  map[string]*token.OwnerToken
	upserts int
	lock    sync.RWMutex
}

func NewFakeOwnerTokenRepo() *FakeOwnerTokenRepo {
	return &FakeOwnerTokenRepo{
		tokens: make(map[string]*token.OwnerToken),
	}
}

func (r *FakeOwnerTokenRepo) Load(_ context.Context) (*token.OwnerToken, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()

	t, ok := r.tokens[token.OwnerID]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return t.Clone(), nil
}

func (r *FakeOwnerTokenRepo) Upsert(_ context.Context, t *token.OwnerToken) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	stored := t.Clone()
	if existing, ok := r.tokens[t.OwnerID]; ok && stored.RefreshToken == "" {
		stored.RefreshToken = existing.RefreshToken
	}
	r.tokens[t.OwnerID] = stored
	r.upserts++
	return nil
}

// Upserts returns how many writes the repo has seen.
func (r *FakeOwnerTokenRepo) Upserts() int {
	r.lock.RLock()
	defer r.lock.RUnlock()
	return r.upserts
}
