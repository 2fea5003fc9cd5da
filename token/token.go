package token

import "time"

const (
	// OwnerID is the single logical owner. The value matches rows written by
	// earlier deployments so existing records keep loading.
	OwnerID = "default_user"

	// BufferWindow is subtracted from the provider expiry; a token inside the
	// window is treated as stale and refreshed before use.
	BufferWindow = 5 * time.Minute

	// DefaultExpiresIn applies when the provider or caller omits a lifetime.
	DefaultExpiresIn = time.Hour
)

// OwnerToken is the site owner's Spotify credential pair.
type OwnerToken struct {
	OwnerID      string
	AccessToken  string
	RefreshToken string // may be empty once rotated away by the provider
	ExpiresAt    time.Time
	UpdatedAt    time.Time
}

// IsValid reports whether the access token can be served at now without a refresh.
func (t *OwnerToken) IsValid(now time.Time) bool {
	return now.Before(t.ExpiresAt.Add(-BufferWindow))
}

// IsExpired reports whether the provider considers the access token expired.
func (t *OwnerToken) IsExpired(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}

func (t *OwnerToken) ExpiresAtMillis() int64 {
	return t.ExpiresAt.UnixMilli()
}

func (t *OwnerToken) Clone() *OwnerToken {
	c := *t
	return &c
}
