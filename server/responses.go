package server

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog/log"
	apperrors "github.com/sjoshi/portfolio-api/internal/errors"
)

const contentTypeJSON = "application/json"

type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	AuthURL string `json:"authUrl,omitempty"`
	Details string `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", contentTypeJSON)
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Err(err).Msg("Failed to write JSON response")
	}
}

// writeError maps the error taxonomy onto HTTP. Every 401 points at the
// authorization endpoint.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, body := errorResponse(err)
	if status >= http.StatusInternalServerError {
		log.Err(err).Str("method", r.Method).Str("path", r.URL.Path).Int("status", status).Msg("Request failed")
	} else {
		log.Warn().Err(err).Str("method", r.Method).Str("path", r.URL.Path).Int("status", status).Msg("Request rejected")
	}
	writeJSON(w, status, body)
}

func errorResponse(err error) (int, errorBody) {
	switch {
	case apperrors.Is(err, apperrors.ErrRefreshRejected):
		return http.StatusUnauthorized, errorBody{
			Error:   "Authentication failed, please login again",
			AuthURL: RouteSpotifyAuth,
			Message: "The owner must re-authenticate with Spotify",
		}
	case apperrors.Is(err, apperrors.ErrAuthExchangeFailed):
		return http.StatusUnauthorized, errorBody{
			Error:   "Failed to authenticate with Spotify",
			AuthURL: RouteSpotifyAuth,
			Message: "The authorization code was rejected, start the authorization again",
		}
	case apperrors.Is(err, apperrors.ErrNotAuthenticated):
		return http.StatusUnauthorized, errorBody{
			Error:   "Please authenticate with Spotify first",
			AuthURL: RouteSpotifyAuth,
			Message: "Visit the auth endpoint to get started",
		}
	case apperrors.Is(err, apperrors.ErrProviderUnavailable):
		return http.StatusBadGateway, errorBody{
			Error:   "Unable to reach Spotify",
			Details: err.Error(),
		}
	case apperrors.Is(err, apperrors.ErrInvalidRequest), apperrors.Is(err, apperrors.ErrInvalidState):
		return http.StatusBadRequest, errorBody{Error: err.Error()}
	case apperrors.Is(err, apperrors.ErrUnauthorized):
		return http.StatusUnauthorized, errorBody{Error: "Unauthorized"}
	default:
		return http.StatusInternalServerError, errorBody{
			Error:   "Internal server error",
			Details: err.Error(),
		}
	}
}
