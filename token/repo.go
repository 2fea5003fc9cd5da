package token

import (
	"context"
	"time"
)

// Repo is the durable store for the owner token. Load returns
// errors.ErrNotFound when no record exists. Upsert is an insert-or-update keyed
// by owner id and must keep the stored refresh token when the given one is empty.
type Repo interface {
	Load(ctx context.Context) (*OwnerToken, error)
	Upsert(ctx context.Context, token *OwnerToken) error
}

// Grant is the provider's answer to an authorization-code or refresh-token grant.
type Grant struct {
	AccessToken  string
	RefreshToken string // empty when the provider did not rotate it
	ExpiresIn    time.Duration
}

// Provider talks to the identity provider's token endpoint.
// Exchange fails with ErrAuthExchangeFailed or ErrProviderUnavailable,
// Refresh with ErrRefreshRejected or ErrProviderUnavailable.
type Provider interface {
	Exchange(ctx context.Context, code string) (*Grant, error)
	Refresh(ctx context.Context, refreshToken string) (*Grant, error)
}
