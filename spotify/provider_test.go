package spotify_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	apperrors "github.com/sjoshi/portfolio-api/internal/errors"
	"github.com/sjoshi/portfolio-api/spotify"
	"github.com/stretchr/testify/require"
)

const (
	testClientID     = "client-id"
	testClientSecret = "client-secret"
	testRedirectURL  = "http://localhost:5000/callback"
)

type tokenEndpoint struct {
	t       *testing.T
	status  int
	body    map[string]interface{}
	form    url.Values
	blockCh chan struct{}
}

func (e *tokenEndpoint) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if e.blockCh != nil {
		<-e.blockCh
	}
	id, secret, ok := r.BasicAuth()
	require.True(e.t, ok, "client credentials must use basic auth")
	require.Equal(e.t, testClientID, id)
	require.Equal(e.t, testClientSecret, secret)

	require.NoError(e.t, r.ParseForm())
	e.form = r.PostForm

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(e.status)
	_ = json.NewEncoder(w).Encode(e.body)
}

func setupProvider(t *testing.T, endpoint *tokenEndpoint, timeout time.Duration) *spotify.Provider {
	t.Helper()
	endpoint.t = t
	srv := httptest.NewServer(endpoint)
	t.Cleanup(srv.Close)

	return spotify.NewProvider(spotify.ProviderOptions{
		ClientID:     testClientID,
		ClientSecret: testClientSecret,
		RedirectURL:  testRedirectURL,
		AuthURL:      srv.URL + "/authorize",
		TokenURL:     srv.URL + "/api/token",
		Timeout:      timeout,
	})
}

func TestProvider_AuthURL(t *testing.T) {
	p := spotify.NewProvider(spotify.ProviderOptions{ClientID: testClientID, ClientSecret: testClientSecret, RedirectURL: testRedirectURL})
	require.True(t, p.Configured())

	u, err := url.Parse(p.AuthURL("state-123"))
	require.NoError(t, err)
	require.Equal(t, "accounts.spotify.com", u.Host)

	q := u.Query()
	require.Equal(t, "code", q.Get("response_type"))
	require.Equal(t, testClientID, q.Get("client_id"))
	require.Equal(t, testRedirectURL, q.Get("redirect_uri"))
	require.Equal(t, "state-123", q.Get("state"))
	require.Equal(t, "false", q.Get("show_dialog"))
	require.Contains(t, q.Get("scope"), "user-read-currently-playing")
	require.Contains(t, q.Get("scope"), "user-read-recently-played")

	require.False(t, spotify.NewProvider(spotify.ProviderOptions{}).Configured())
}

func TestProvider_Exchange(t *testing.T) {
	endpoint := &tokenEndpoint{
		status: http.StatusOK,
		body: map[string]interface{}{
			"access_token":  "tok1",
			"token_type":    "Bearer",
			"expires_in":    3600,
			"refresh_token": "ref1",
			"scope":         "user-read-currently-playing",
		},
	}
	p := setupProvider(t, endpoint, time.Second)

	grant, err := p.Exchange(context.Background(), "ABC123")
	require.NoError(t, err)
	require.Equal(t, "tok1", grant.AccessToken)
	require.Equal(t, "ref1", grant.RefreshToken)
	require.Equal(t, time.Hour, grant.ExpiresIn)

	require.Equal(t, "authorization_code", endpoint.form.Get("grant_type"))
	require.Equal(t, "ABC123", endpoint.form.Get("code"))
	require.Equal(t, testRedirectURL, endpoint.form.Get("redirect_uri"))
}

func TestProvider_ExchangeRejected(t *testing.T) {
	endpoint := &tokenEndpoint{
		status: http.StatusBadRequest,
		body:   map[string]interface{}{"error": "invalid_grant", "error_description": "Invalid authorization code"},
	}
	p := setupProvider(t, endpoint, time.Second)

	_, err := p.Exchange(context.Background(), "USED")
	require.ErrorIs(t, err, apperrors.ErrAuthExchangeFailed)
	require.Contains(t, err.Error(), "invalid_grant")
	require.NotContains(t, err.Error(), testClientSecret)
}

func TestProvider_Refresh(t *testing.T) {
	t.Run("response without refresh token", func(t *testing.T) {
		endpoint := &tokenEndpoint{
			status: http.StatusOK,
			body:   map[string]interface{}{"access_token": "tok2", "token_type": "Bearer", "expires_in": 3600},
		}
		p := setupProvider(t, endpoint, time.Second)

		grant, err := p.Refresh(context.Background(), "ref1")
		require.NoError(t, err)
		require.Equal(t, "tok2", grant.AccessToken)
		require.Empty(t, grant.RefreshToken)
		require.Equal(t, time.Hour, grant.ExpiresIn)
		require.Equal(t, "refresh_token", endpoint.form.Get("grant_type"))
		require.Equal(t, "ref1", endpoint.form.Get("refresh_token"))
	})

	t.Run("rotated refresh token", func(t *testing.T) {
		endpoint := &tokenEndpoint{
			status: http.StatusOK,
			body:   map[string]interface{}{"access_token": "tok2", "token_type": "Bearer", "expires_in": 1800, "refresh_token": "ref2"},
		}
		p := setupProvider(t, endpoint, time.Second)

		grant, err := p.Refresh(context.Background(), "ref1")
		require.NoError(t, err)
		require.Equal(t, "ref2", grant.RefreshToken)
		require.Equal(t, 30*time.Minute, grant.ExpiresIn)
	})

	t.Run("invalid_grant", func(t *testing.T) {
		endpoint := &tokenEndpoint{
			status: http.StatusBadRequest,
			body:   map[string]interface{}{"error": "invalid_grant", "error_description": "Refresh token revoked"},
		}
		p := setupProvider(t, endpoint, time.Second)

		_, err := p.Refresh(context.Background(), "ref1")
		require.ErrorIs(t, err, apperrors.ErrRefreshRejected)
		require.NotErrorIs(t, err, apperrors.ErrProviderUnavailable)
	})

	t.Run("provider outage", func(t *testing.T) {
		endpoint := &tokenEndpoint{
			status: http.StatusServiceUnavailable,
			body:   map[string]interface{}{"error": "server_error"},
		}
		p := setupProvider(t, endpoint, time.Second)

		_, err := p.Refresh(context.Background(), "ref1")
		require.ErrorIs(t, err, apperrors.ErrProviderUnavailable)
		require.NotErrorIs(t, err, apperrors.ErrRefreshRejected)
	})
}

func TestProvider_Timeout(t *testing.T) {
	endpoint := &tokenEndpoint{
		status:  http.StatusOK,
		body:    map[string]interface{}{"access_token": "late", "token_type": "Bearer"},
		blockCh: make(chan struct{}),
	}
	p := setupProvider(t, endpoint, 50*time.Millisecond)
	// registered after setupProvider so it runs before srv.Close
	t.Cleanup(func() { close(endpoint.blockCh) })

	_, err := p.Refresh(context.Background(), "ref1")
	require.ErrorIs(t, err, apperrors.ErrProviderUnavailable)
}
