package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"
	apperrors "github.com/sjoshi/portfolio-api/internal/errors"
	"github.com/sjoshi/portfolio-api/spotify"
)

const maxBodyBytes = 64 << 10

// SpotifyAuthHandler returns the consent URL the owner visits once. It is the
// only source of a valid state, so it sits behind the admin key when one is set.
func (s *Server) SpotifyAuthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !s.auth.Configured() {
			writeJSON(w, http.StatusServiceUnavailable, errorBody{Error: "Spotify client credentials are not configured"})
			return
		}

		state, err := s.states.Issue()
		if err != nil {
			writeError(w, r, err)
			return
		}

		writeJSON(w, http.StatusOK, map[string]string{
			"authUrl": s.auth.AuthURL(state),
			"message": "This endpoint is for owner authentication only. After setup, visitors will see your music data automatically.",
		})
	}
}

// SpotifyCallbackHandler completes the browser redirect flow and sends the
// owner back to the site root with a result flag.
func (s *Server) SpotifyCallbackHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()

		if providerErr := q.Get("error"); providerErr != "" {
			log.Warn().Str("error", providerErr).Msg("Spotify authorization denied")
			redirectWithError(w, r, "auth_failed")
			return
		}

		code := q.Get("code")
		if code == "" {
			log.Warn().Msg("Callback without authorization code")
			redirectWithError(w, r, "no_code")
			return
		}

		if err := s.states.Verify(q.Get("state")); err != nil {
			log.Warn().Err(err).Msg("Callback state rejected")
			redirectWithError(w, r, "invalid_state")
			return
		}

		if err := s.tokens.Exchange(r.Context(), code); err != nil {
			log.Err(err).Msg("Authorization code exchange failed")
			redirectWithError(w, r, "token_exchange_failed")
			return
		}

		http.Redirect(w, r, "/?auth=success&setup=complete", http.StatusFound)
	}
}

type tokenExchangeRequest struct {
	Code  string `json:"code"`
	State string `json:"state"`
}

// SpotifyTokenHandler is the JSON variant of the callback for client-driven
// flows. It needs the state issued by /api/spotify/auth or the admin key.
func (s *Server) SpotifyTokenHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req tokenExchangeRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, err)
			return
		}
		if req.Code == "" {
			writeJSON(w, http.StatusBadRequest, errorBody{Error: "Authorization code required"})
			return
		}
		if !s.isAdmin(r) {
			if err := s.states.Verify(req.State); err != nil {
				writeError(w, r, err)
				return
			}
		}

		if err := s.tokens.Exchange(r.Context(), req.Code); err != nil {
			writeError(w, r, err)
			return
		}

		resp := map[string]interface{}{
			"success": true,
			"message": "Authentication successful",
		}
		if s.config.GetExposeAccessToken() {
			if access, err := s.tokens.AccessToken(r.Context()); err == nil {
				resp["accessToken"] = access
			}
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

type storeTokenRequest struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	ExpiresIn    int64  `json:"expiresIn"` // seconds
}

func (s *Server) StoreTokenHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req storeTokenRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, err)
			return
		}
		if req.AccessToken == "" {
			writeJSON(w, http.StatusBadRequest, errorBody{Error: "Access token required"})
			return
		}

		expiresIn := time.Duration(req.ExpiresIn) * time.Second
		if err := s.tokens.Store(r.Context(), req.AccessToken, req.RefreshToken, expiresIn); err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"success": true,
			"message": "Token stored successfully",
		})
	}
}

func (s *Server) ReloadTokensHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		found, err := s.tokens.Reload(r.Context())
		if err != nil {
			log.Err(err).Msg("Manual token reload failed")
			writeJSON(w, http.StatusInternalServerError, map[string]interface{}{
				"success": false,
				"error":   err.Error(),
			})
			return
		}

		loaded := 0
		if found {
			loaded = 1
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"success":      true,
			"tokensLoaded": loaded,
			"message":      fmt.Sprintf("Loaded %d owner token(s) from storage", loaded),
		})
	}
}

func (s *Server) AuthStatusHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := s.tokens.Status()
		if !status.Authenticated {
			message := "Owner not authenticated. Please authenticate first."
			if status.ReauthRequired {
				message = "Owner refresh token was rejected. Please authenticate again."
			}
			writeJSON(w, http.StatusOK, map[string]interface{}{
				"authenticated": false,
				"message":       message,
				"authUrl":       RouteSpotifyAuth,
				"isOwnerToken":  false,
			})
			return
		}

		message := "Owner token valid"
		if status.Expired {
			message = "Owner token expired, will refresh on next request"
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"authenticated":   true,
			"expired":         status.Expired,
			"expiresAt":       status.ExpiresAt.UTC().Format(time.RFC3339),
			"hasRefreshToken": status.HasRefreshToken,
			"message":         message,
			"isOwnerToken":    true,
		})
	}
}

func (s *Server) CurrentTrackHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		track, err := s.player.CurrentTrack(r.Context())
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, track)
	}
}

func (s *Server) RecentTracksHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := spotify.DefaultRecentLimit
		if raw := r.URL.Query().Get("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil {
				writeJSON(w, http.StatusBadRequest, errorBody{Error: "limit must be a number"})
				return
			}
			limit = n
		}

		tracks, err := s.player.RecentTracks(r.Context(), limit)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, tracks)
	}
}

func redirectWithError(w http.ResponseWriter, r *http.Request, reason string) {
	http.Redirect(w, r, "/?error="+url.QueryEscape(reason), http.StatusFound)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(dst); err != nil {
		return fmt.Errorf("malformed JSON body: %w", apperrors.ErrInvalidRequest)
	}
	return nil
}
