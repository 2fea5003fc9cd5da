package server

func (s *Server) initRoutes() {
	s.RegisterRouteFunc("GET "+RouteRoot, s.IndexHandler())

	// Owner setup
	s.RegisterRouteFunc("GET "+RouteSpotifyAuth, ChainMiddleware(s.SpotifyAuthHandler(), s.RequireAdminKey))
	s.RegisterRouteFunc("GET "+RouteCallback, s.SpotifyCallbackHandler())
	s.RegisterRouteFunc("GET "+RouteSpotifyCallbackDirect, s.SpotifyCallbackHandler())
	s.RegisterRouteFunc("POST "+RouteSpotifyToken, s.SpotifyTokenHandler())
	s.RegisterRouteFunc("GET "+RouteSpotifyAuthStatus, s.AuthStatusHandler())
	s.RegisterRouteFunc("GET "+RouteAdminSetupNeeded, s.SetupNeededHandler())

	// Admin
	s.RegisterRouteFunc("POST "+RouteSpotifyStoreToken, ChainMiddleware(s.StoreTokenHandler(), s.RequireAdminKey))
	s.RegisterRouteFunc("GET "+RouteSpotifyReloadTokens, ChainMiddleware(s.ReloadTokensHandler(), s.RequireAdminKey))

	// Visitor data
	s.RegisterRouteFunc("GET "+RouteSpotifyCurrentTrack, s.CurrentTrackHandler())
	s.RegisterRouteFunc("GET "+RouteSpotifyRecentTracks, s.RecentTracksHandler())

	s.RegisterRouteFunc("GET "+RouteHealth, s.HealthHandler())
	s.RegisterRouteFunc("GET "+RouteHealthDB, s.HealthDBHandler())

	s.RegisterRouteFunc("POST "+RouteContact, s.ContactHandler())

	s.RegisterRouteFunc("/", s.NotFoundHandler())
}
