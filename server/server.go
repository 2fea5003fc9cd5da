package server

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sjoshi/portfolio-api/contact"
	"github.com/sjoshi/portfolio-api/internal/config"
	"github.com/sjoshi/portfolio-api/spotify"
	"github.com/sjoshi/portfolio-api/token"
	"golang.org/x/crypto/bcrypt"
)

// TokenService is the owner token lifecycle, implemented by token.Manager.
type TokenService interface {
	Exchange(ctx context.Context, code string) error
	Store(ctx context.Context, accessToken, refreshToken string, expiresIn time.Duration) error
	AccessToken(ctx context.Context) (string, error)
	Reload(ctx context.Context) (bool, error)
	Status() token.Status
}

// AuthProvider builds the Spotify consent URL.
type AuthProvider interface {
	AuthURL(state string) string
	Configured() bool
}

type Player interface {
	CurrentTrack(ctx context.Context) (*spotify.Track, error)
	RecentTracks(ctx context.Context, limit int) ([]spotify.Track, error)
}

type ContactService interface {
	Submit(ctx context.Context, name, email, reason string) (*contact.Result, error)
}

// Database is the reachability view used by the health endpoints.
type Database interface {
	Configured() bool
	Connected() bool
	Mode() string
	Host() string
	Name() string
	LastError() string
	Ping(ctx context.Context) error
}

type Deps struct {
	Tokens   TokenService
	Auth     AuthProvider
	Player   Player
	Contact  ContactService
	Database Database
}

type Server struct {
	env     string
	mux     *http.ServeMux
	handler http.Handler
	routes  []string
	config  config.Config

	tokens   TokenService
	auth     AuthProvider
	player   Player
	contact  ContactService
	database Database

	states       *stateSigner
	adminKeyHash []byte
	nowFunc      func() time.Time
}

func New(cfg config.Config, deps Deps) (*Server, error) {
	if deps.Tokens == nil || deps.Auth == nil || deps.Player == nil || deps.Contact == nil || deps.Database == nil {
		return nil, fmt.Errorf("[Server New] missing dependency")
	}

	states, err := newStateSigner(cfg.GetOAuthStateSecret(), cfg.GetOAuthStateTTL())
	if err != nil {
		return nil, fmt.Errorf("[Server New] oauth state signer: %w", err)
	}

	s := &Server{
		env:      cfg.GetEnv(),
		mux:      http.NewServeMux(),
		config:   cfg,
		tokens:   deps.Tokens,
		auth:     deps.Auth,
		player:   deps.Player,
		contact:  deps.Contact,
		database: deps.Database,
		states:   states,
		nowFunc:  time.Now,
	}

	if hash := cfg.GetAdminKeyHash(); hash != "" {
		if _, err := bcrypt.Cost([]byte(hash)); err != nil {
			return nil, fmt.Errorf("[Server New] ADMIN_KEY_HASH is not a bcrypt hash: %w", err)
		}
		s.adminKeyHash = []byte(hash)
	} else {
		log.Warn().Msg("ADMIN_KEY_HASH not set, admin endpoints are open")
	}

	s.initRoutes()
	s.handler = ChainMiddleware(s.mux.ServeHTTP, s.RecoverMiddleware, s.LoggingMiddleware, s.CorsMiddleware)
	s.logRoutes()

	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

func (s *Server) RegisterRouteFunc(pattern string, handler func(http.ResponseWriter, *http.Request)) {
	s.routes = append(s.routes, pattern)
	s.mux.HandleFunc(pattern, handler)
}

func (s *Server) logRoutes() {
	if s.env != "DEV" {
		return
	}
	for _, route := range s.routes {
		parts := strings.SplitN(route, " ", 2)

		if len(parts) > 1 {
			logRoute(parts[0], parts[1])
		} else {
			logRoute("", parts[0])
		}
	}
}

func logRoute(method, path string) {
	var displayMethod string
	paddedMethod := fmt.Sprintf(" %-7s", method)
	if color, ok := methodColors[method]; ok {
		displayMethod = color + paddedMethod + ResetColor
	} else {
		displayMethod = Gray + paddedMethod + ResetColor
	}
	log.Info().Msgf("[%-19s] %s", displayMethod, path)
}

func logRequest(method, path string, status int, elapsed time.Duration) {
	color, ok := methodColors[method]
	if !ok {
		color = Gray
	}
	log.Info().Msgf("%s %-7s%s %s%d%s %s %s", color, method, ResetColor, statusColor(status), status, ResetColor, path, elapsed.Round(time.Microsecond))
}
