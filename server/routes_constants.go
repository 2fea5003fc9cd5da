package server

// Route path constants
const (
	RouteRoot = "/{$}"

	// Spotify owner setup
	RouteSpotifyAuth           = "/api/spotify/auth"
	RouteCallback              = "/callback"
	RouteSpotifyCallbackDirect = "/api/spotify/callback-direct"
	RouteSpotifyToken          = "/api/spotify/token"
	RouteSpotifyStoreToken     = "/api/spotify/store-token"
	RouteSpotifyReloadTokens   = "/api/spotify/reload-tokens"
	RouteSpotifyAuthStatus     = "/api/spotify/auth-status"
	RouteAdminSetupNeeded      = "/api/admin/setup-needed"

	// Spotify data for visitors
	RouteSpotifyCurrentTrack = "/api/spotify/current-track"
	RouteSpotifyRecentTracks = "/api/spotify/recent-tracks"

	// Health
	RouteHealth   = "/api/health"
	RouteHealthDB = "/api/health/db"

	RouteContact = "/api/contact"
)
