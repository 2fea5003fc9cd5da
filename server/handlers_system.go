package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
)

func (s *Server) IndexHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = fmt.Fprintf(w, "%s backend is running! Try %s or %s\n", s.config.GetAppName(), RouteHealth, RouteSpotifyAuth)
	}
}

func (s *Server) NotFoundHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, errorBody{Error: "Endpoint not found"})
	}
}

func (s *Server) SetupNeededHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := s.tokens.Status()
		message := "Owner needs to authenticate first. Visit " + RouteSpotifyAuth + " to get started."
		if status.Authenticated {
			message = "Owner is authenticated and visitors can see music data"
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"setupNeeded":   !status.Authenticated,
			"hasValidToken": status.Authenticated && !status.Expired,
			"message":       message,
		})
	}
}

type databaseHealth struct {
	Connected bool   `json:"connected"`
	Mode      string `json:"mode"`
	Host      string `json:"host,omitempty"`
	Name      string `json:"name,omitempty"`
	LastError string `json:"lastError,omitempty"`
}

type spotifyHealth struct {
	ClientID      string `json:"clientId"`
	ClientSecret  string `json:"clientSecret"`
	RedirectURI   string `json:"redirectUri"`
	Authenticated bool   `json:"authenticated"`
}

type healthResponse struct {
	Status     string         `json:"status"`
	Timestamp  string         `json:"timestamp"`
	Database   databaseHealth `json:"database"`
	Spotify    spotifyHealth  `json:"spotify"`
	TokenStore string         `json:"tokenStore"`
	Durability string         `json:"durability"`
}

// HealthHandler is a liveness probe; it reports state without touching the network.
func (s *Server) HealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := s.tokens.Status()
		durability := "durable"
		if !status.Durable {
			durability = "degraded"
		}

		writeJSON(w, http.StatusOK, healthResponse{
			Status:    "OK",
			Timestamp: s.nowFunc().UTC().Format(time.RFC3339),
			Database: databaseHealth{
				Connected: s.database.Connected(),
				Mode:      s.database.Mode(),
				Host:      s.database.Host(),
				Name:      s.database.Name(),
				LastError: s.database.LastError(),
			},
			Spotify: spotifyHealth{
				ClientID:      presence(s.config.GetSpotifyClientID()),
				ClientSecret:  presence(s.config.GetSpotifyClientSecret()),
				RedirectURI:   s.config.GetSpotifyRedirectURI(),
				Authenticated: status.Authenticated,
			},
			TokenStore: status.Store,
			Durability: durability,
		})
	}
}

// HealthDBHandler connects on demand and runs SELECT 1.
func (s *Server) HealthDBHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !s.database.Configured() {
			writeJSON(w, http.StatusServiceUnavailable, map[string]interface{}{
				"ok":        false,
				"connected": false,
				"reason":    "database not configured",
			})
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
		defer cancel()
		if err := s.database.Ping(ctx); err != nil {
			log.Err(err).Msg("Database health check failed")
			writeJSON(w, http.StatusServiceUnavailable, map[string]interface{}{
				"ok":        false,
				"connected": false,
				"error":     err.Error(),
			})
			return
		}

		writeJSON(w, http.StatusOK, map[string]interface{}{
			"ok":        true,
			"connected": true,
		})
	}
}

func presence(v string) string {
	if v == "" {
		return "Missing"
	}
	return "Configured"
}
