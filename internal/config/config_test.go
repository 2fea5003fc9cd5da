package config_test

import (
	"testing"
	"time"

	"github.com/sjoshi/portfolio-api/internal/config"
	"github.com/stretchr/testify/require"
)

func TestEnvVars_GetPort(t *testing.T) {
	t.Setenv("PORT", "")
	require.Equal(t, ":5000", config.New().GetPort())

	t.Setenv("PORT", "8080")
	require.Equal(t, ":8080", config.New().GetPort())

	t.Setenv("PORT", ":9090")
	require.Equal(t, ":9090", config.New().GetPort())
}

func TestSpotify_RedirectURIDefaultsToPublicBase(t *testing.T) {
	t.Setenv("SPOTIFY_REDIRECT_URI", "")
	t.Setenv("FRONTEND_URL", "https://example.com/")
	require.Equal(t, "https://example.com/callback", config.New().GetSpotifyRedirectURI())

	t.Setenv("FRONTEND_URL", "")
	t.Setenv("VERCEL_URL", "site-abc.vercel.app")
	require.Equal(t, "https://site-abc.vercel.app/callback", config.New().GetSpotifyRedirectURI())

	t.Setenv("SPOTIFY_REDIRECT_URI", "http://localhost:5000/callback")
	require.Equal(t, "http://localhost:5000/callback", config.New().GetSpotifyRedirectURI())
}

func TestCors_AllowedOrigins(t *testing.T) {
	t.Setenv("FRONTEND_URL", "https://s-joshi.example")
	t.Setenv("VERCEL_URL", "")
	t.Setenv("CORS_ALLOWED_ORIGINS", " https://www.s-joshi.example/ ,https://other.example")

	origins := config.New().GetAllowedOrigins()

	tests := []struct {
		origin  string
		allowed bool
	}{
		{"http://localhost:3000", true},
		{"https://s-joshi.example", true},
		{"https://www.s-joshi.example", true},
		{"https://other.example", true},
		{"https://preview-123.vercel.app", true},
		{"https://vercel.app.evil.example", false},
		{"https://evil.example", false},
	}
	for _, tc := range tests {
		t.Run(tc.origin, func(t *testing.T) {
			require.Equal(t, tc.allowed, origins.IsAllowedOrigin(tc.origin))
		})
	}
}

func TestDatabase_Defaults(t *testing.T) {
	t.Setenv("DB_DRIVER", "")
	t.Setenv("DB_PORT", "")
	t.Setenv("DB_SSL", "")
	t.Setenv("DB_CONNECT_TIMEOUT", "")

	c := config.New()
	require.Equal(t, config.DriverPostgres, c.GetDBDriver())
	require.Equal(t, 5432, c.GetDBPort())
	require.False(t, c.GetDBSSL())
	require.Equal(t, 5*time.Second, c.GetDBConnectTimeout())
	require.True(t, c.GetDBMigrate())
}

func TestGetEnvDuration(t *testing.T) {
	t.Setenv("SPOTIFY_TIMEOUT", "3")
	require.Equal(t, 3*time.Second, config.New().GetSpotifyTimeout())

	t.Setenv("SPOTIFY_TIMEOUT", "250ms")
	require.Equal(t, 250*time.Millisecond, config.New().GetSpotifyTimeout())

	t.Setenv("SPOTIFY_TIMEOUT", "soon")
	require.Equal(t, 5*time.Second, config.New().GetSpotifyTimeout())
}
