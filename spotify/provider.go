package spotify

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	apperrors "github.com/sjoshi/portfolio-api/internal/errors"
	"github.com/sjoshi/portfolio-api/token"
	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"golang.org/x/oauth2"
)

// Scopes requested during owner setup.
var Scopes = []string{
	spotifyauth.ScopeUserReadCurrentlyPlaying,
	spotifyauth.ScopeUserReadRecentlyPlayed,
	spotifyauth.ScopeUserReadPlaybackState,
	spotifyauth.ScopeUserReadPrivate,
	spotifyauth.ScopeUserReadEmail,
	spotifyauth.ScopeUserTopRead,
}

type ProviderOptions struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	AuthURL      string // defaults to spotifyauth.AuthURL
	TokenURL     string // defaults to spotifyauth.TokenURL
	Timeout      time.Duration
}

var _ token.Provider = (*Provider)(nil)

// Provider talks to the Spotify accounts service for the authorization-code
// and refresh-token grants. Client credentials go in the Basic auth header.
type Provider struct {
	oauth      *oauth2.Config
	httpClient *http.Client
	timeout    time.Duration
}

func NewProvider(opts ProviderOptions) *Provider {
	if opts.AuthURL == "" {
		opts.AuthURL = spotifyauth.AuthURL
	}
	if opts.TokenURL == "" {
		opts.TokenURL = spotifyauth.TokenURL
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 5 * time.Second
	}

	return &Provider{
		oauth: &oauth2.Config{
			ClientID:     opts.ClientID,
			ClientSecret: opts.ClientSecret,
			RedirectURL:  opts.RedirectURL,
			Scopes:       Scopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:   opts.AuthURL,
				TokenURL:  opts.TokenURL,
				AuthStyle: oauth2.AuthStyleInHeader,
			},
		},
		httpClient: &http.Client{Timeout: opts.Timeout},
		timeout:    opts.Timeout,
	}
}

// Configured reports whether client credentials are present.
func (p *Provider) Configured() bool {
	return p.oauth.ClientID != "" && p.oauth.ClientSecret != ""
}

// AuthURL builds the owner consent URL carrying state.
func (p *Provider) AuthURL(state string) string {
	return p.oauth.AuthCodeURL(state, oauth2.SetAuthURLParam("show_dialog", "false"))
}

func (p *Provider) Exchange(ctx context.Context, code string) (*token.Grant, error) {
	ctx, cancel := p.requestContext(ctx)
	defer cancel()

	tok, err := p.oauth.Exchange(ctx, code)
	if err != nil {
		return nil, classifyTokenError("exchange authorization code", err, apperrors.ErrAuthExchangeFailed)
	}
	return grantFromToken(tok), nil
}

func (p *Provider) Refresh(ctx context.Context, refreshToken string) (*token.Grant, error) {
	ctx, cancel := p.requestContext(ctx)
	defer cancel()

	// An empty access token forces the source to hit the token endpoint.
	tok, err := p.oauth.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken}).Token()
	if err != nil {
		return nil, classifyTokenError("refresh access token", err, apperrors.ErrRefreshRejected)
	}

	grant := grantFromToken(tok)
	// oauth2 copies the old refresh token forward when the response omits it;
	// report only what the provider actually sent.
	if grant.RefreshToken == refreshToken {
		grant.RefreshToken = ""
	}
	return grant, nil
}

func (p *Provider) requestContext(ctx context.Context) (context.Context, context.CancelFunc) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, p.httpClient)
	return context.WithTimeout(ctx, p.timeout)
}

// classifyTokenError maps a 4xx answer from the token endpoint to rejected
// and everything else (timeouts, transport errors, 5xx, 429) to ErrProviderUnavailable.
func classifyTokenError(op string, err error, rejected error) error {
	var re *oauth2.RetrieveError
	if apperrors.As(err, &re) && re.Response != nil {
		status := re.Response.StatusCode
		if status >= 400 && status < 500 && status != http.StatusTooManyRequests {
			code := re.ErrorCode
			if code == "" {
				code = http.StatusText(status)
			}
			return fmt.Errorf("%s: %s: %w", op, code, rejected)
		}
		return fmt.Errorf("%s: status %d: %w", op, status, apperrors.ErrProviderUnavailable)
	}
	return fmt.Errorf("%s: %w", op, apperrors.Join(apperrors.ErrProviderUnavailable, err))
}

func grantFromToken(tok *oauth2.Token) *token.Grant {
	return &token.Grant{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		ExpiresIn:    expiresIn(tok),
	}
}

// expiresIn prefers the raw expires_in field, then the library's computed
// expiry. Zero lets the manager apply its default.
func expiresIn(tok *oauth2.Token) time.Duration {
	switch v := tok.Extra("expires_in").(type) {
	case float64:
		if v > 0 {
			return time.Duration(v) * time.Second
		}
	case string:
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return time.Duration(n) * time.Second
		}
	}
	if !tok.Expiry.IsZero() {
		if d := time.Until(tok.Expiry); d > 0 {
			return d
		}
	}
	return 0
}
