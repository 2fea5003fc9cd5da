package spotify

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	apperrors "github.com/sjoshi/portfolio-api/internal/errors"
	"github.com/zmb3/spotify/v2"
	"golang.org/x/oauth2"
)

const (
	DefaultRecentLimit = 5
	MaxRecentLimit     = 50

	playedAtLayout = "2006-01-02T15:04:05.000Z07:00"
)

// Tokens is the slice of token.Manager the player needs.
type Tokens interface {
	TokenSource(ctx context.Context) oauth2.TokenSource
	Refresh(ctx context.Context) (string, error)
}

// Track is the JSON shape served to the portfolio front end.
type Track struct {
	Name      string `json:"name"`
	Artist    string `json:"artist"`
	Album     string `json:"album,omitempty"`
	IsPlaying bool   `json:"isPlaying"`
	AlbumArt  string `json:"albumArt,omitempty"`
	Duration  int    `json:"duration,omitempty"`
	Progress  int    `json:"progress,omitempty"`
	Status    string `json:"status,omitempty"`
	PlayedAt  string `json:"playedAt,omitempty"`
	Fallback  string `json:"fallback,omitempty"`
	Message   string `json:"message,omitempty"`
}

// Player reads the owner's listening activity from the Web API.
type Player struct {
	tokens    Tokens
	baseURL   string
	timeout   time.Duration
	transport http.RoundTripper
}

type PlayerOption func(*Player)

// WithTransport sets the round tripper under the oauth2 transport.
func WithTransport(rt http.RoundTripper) PlayerOption {
	return func(p *Player) {
		p.transport = rt
	}
}

// NewPlayer builds a Player. An empty baseURL uses the library default.
func NewPlayer(tokens Tokens, baseURL string, timeout time.Duration, opts ...PlayerOption) *Player {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	p := &Player{
		tokens:  tokens,
		baseURL: baseURL,
		timeout: timeout,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// CurrentTrack returns what the owner is playing (or has paused), falling
// back to the most recent play, then the top short-term track, then a placeholder.
func (p *Player) CurrentTrack(ctx context.Context) (*Track, error) {
	var playing *spotify.CurrentlyPlaying
	err := p.withRetry(ctx, func(c *spotify.Client) error {
		var err error
		playing, err = c.PlayerCurrentlyPlaying(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}

	if playing != nil && playing.Item != nil {
		t := trackFromFull(playing.Item)
		t.IsPlaying = playing.Playing
		t.Progress = int(playing.Progress)
		if !playing.Playing {
			t.Status = "paused"
		}
		return t, nil
	}

	recent, err := p.RecentTracks(ctx, DefaultRecentLimit)
	if err != nil {
		return nil, err
	}
	if len(recent) > 0 {
		return &recent[0], nil
	}

	var top *spotify.FullTrackPage
	err = p.withRetry(ctx, func(c *spotify.Client) error {
		var err error
		top, err = c.CurrentUsersTopTracks(ctx, spotify.Limit(1), spotify.Timerange(spotify.ShortTermRange))
		return err
	})
	if err != nil {
		log.Warn().Err(err).Msg("Top tracks fallback failed")
	} else if top != nil && len(top.Tracks) > 0 {
		t := trackFromFull(&top.Tracks[0])
		t.Fallback = "Using top track as recent track"
		return t, nil
	}

	return &Track{
		Name:    "No recent tracks",
		Artist:  "Check back later",
		Message: "Try playing a song to see your music here",
	}, nil
}

// RecentTracks returns up to limit recently played tracks, newest first.
// limit is clamped to 1..50; zero or less means the default of five.
func (p *Player) RecentTracks(ctx context.Context, limit int) ([]Track, error) {
	limit = ClampLimit(limit)

	var items []spotify.RecentlyPlayedItem
	err := p.withRetry(ctx, func(c *spotify.Client) error {
		var err error
		items, err = c.PlayerRecentlyPlayedOpt(ctx, &spotify.RecentlyPlayedOptions{Limit: spotify.Numeric(limit)})
		return err
	})
	if err != nil {
		return nil, err
	}

	tracks := make([]Track, 0, len(items))
	for _, item := range items {
		t := newTrack(item.Track.Name, item.Track.Artists, item.Track.Album, 0)
		if !item.PlayedAt.IsZero() {
			t.PlayedAt = item.PlayedAt.UTC().Format(playedAtLayout)
		}
		tracks = append(tracks, *t)
	}
	return tracks, nil
}

func ClampLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultRecentLimit
	case limit > MaxRecentLimit:
		return MaxRecentLimit
	default:
		return limit
	}
}

// withRetry runs call once, and when the Web API answers 401 forces one token
// refresh and runs it exactly once more.
func (p *Player) withRetry(ctx context.Context, call func(*spotify.Client) error) error {
	err := call(p.client(ctx))
	if !isUnauthorized(err) {
		return classifyAPIError(err)
	}

	log.Warn().Msg("Spotify rejected the owner token, refreshing once")
	if _, err := p.tokens.Refresh(ctx); err != nil {
		return err
	}
	return classifyAPIError(call(p.client(ctx)))
}

// client binds the token source to the caller's context, so it is built per call.
func (p *Player) client(ctx context.Context) *spotify.Client {
	httpClient := &http.Client{
		Timeout: p.timeout,
		Transport: &oauth2.Transport{
			Source: p.tokens.TokenSource(ctx),
			Base:   p.transport,
		},
	}

	var opts []spotify.ClientOption
	if p.baseURL != "" {
		opts = append(opts, spotify.WithBaseURL(p.baseURL))
	}
	return spotify.New(httpClient, opts...)
}

// isUnauthorized matches the decoded Web API error and the plain error the
// client returns when a 401 comes with an empty body.
func isUnauthorized(err error) bool {
	if err == nil {
		return false
	}
	var apiErr spotify.Error
	if apperrors.As(err, &apiErr) {
		return apiErr.Status == http.StatusUnauthorized
	}
	return strings.Contains(err.Error(), "HTTP 401")
}

// classifyAPIError keeps token errors as they are, turns a 401 into
// ErrNotAuthenticated and every other failure into ErrProviderUnavailable.
func classifyAPIError(err error) error {
	switch {
	case err == nil:
		return nil
	case apperrors.Is(err, apperrors.ErrNotAuthenticated),
		apperrors.Is(err, apperrors.ErrRefreshRejected),
		apperrors.Is(err, apperrors.ErrProviderUnavailable):
		return err
	case isUnauthorized(err):
		return fmt.Errorf("spotify web api: %w", apperrors.ErrNotAuthenticated)
	default:
		return fmt.Errorf("spotify web api: %w", apperrors.Join(apperrors.ErrProviderUnavailable, err))
	}
}

func trackFromFull(ft *spotify.FullTrack) *Track {
	return newTrack(ft.Name, ft.Artists, ft.Album, int(ft.Duration))
}

func newTrack(name string, artists []spotify.SimpleArtist, album spotify.SimpleAlbum, durationMs int) *Track {
	t := &Track{
		Name:     name,
		Album:    album.Name,
		Duration: durationMs,
	}
	if len(artists) > 0 {
		t.Artist = artists[0].Name
	}
	if len(album.Images) > 0 {
		t.AlbumArt = album.Images[0].URL
	}
	return t
}
