package config

import (
	"time"

	spotifyauth "github.com/zmb3/spotify/v2/auth"
)

type SpotifyConfig interface {
	GetSpotifyClientID() string
	GetSpotifyClientSecret() string
	GetSpotifyRedirectURI() string
	GetSpotifyAuthURL() string
	GetSpotifyTokenURL() string
	GetSpotifyAPIURL() string
	GetSpotifyTimeout() time.Duration
}

type Spotify struct{}

var _ SpotifyConfig = Spotify{}

func (Spotify) GetSpotifyClientID() string {
	return GetEnv("SPOTIFY_CLIENT_ID", "")
}

func (Spotify) GetSpotifyClientSecret() string {
	return GetEnv("SPOTIFY_CLIENT_SECRET", "")
}

// GetSpotifyRedirectURI defaults to <public base>/callback like the deployed site expects.
func (Spotify) GetSpotifyRedirectURI() string {
	return GetEnv("SPOTIFY_REDIRECT_URI", publicBaseURL()+"/callback")
}

func (Spotify) GetSpotifyAuthURL() string {
	return GetEnv("SPOTIFY_AUTH_URL", spotifyauth.AuthURL)
}

func (Spotify) GetSpotifyTokenURL() string {
	return GetEnv("SPOTIFY_TOKEN_URL", spotifyauth.TokenURL)
}

// GetSpotifyAPIURL is the Web API base, with trailing slash.
func (Spotify) GetSpotifyAPIURL() string {
	return GetEnv("SPOTIFY_API_URL", "https://api.spotify.com/v1/")
}

func (Spotify) GetSpotifyTimeout() time.Duration {
	return GetEnvDuration("SPOTIFY_TIMEOUT", 5*time.Second)
}
