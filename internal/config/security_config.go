package config

import "time"

type SecurityConfig interface {
	GetAdminKeyHash() string
	GetOAuthStateSecret() string
	GetOAuthStateTTL() time.Duration
	GetExposeAccessToken() bool
}

type Security struct{}

var _ SecurityConfig = Security{}

// GetAdminKeyHash is a bcrypt hash; empty leaves admin endpoints open.
func (Security) GetAdminKeyHash() string {
	return GetEnv("ADMIN_KEY_HASH", "")
}

// GetOAuthStateSecret signs the OAuth state parameter. Empty means a random
// per-process key, which only works for single-instance deployments.
func (Security) GetOAuthStateSecret() string {
	return GetEnv("OAUTH_STATE_SECRET", "")
}

func (Security) GetOAuthStateTTL() time.Duration {
	return 10 * time.Minute
}

func (Security) GetExposeAccessToken() bool {
	return GetEnvBool("EXPOSE_ACCESS_TOKEN", false)
}
