package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/sjoshi/portfolio-api/contact"
	"github.com/sjoshi/portfolio-api/internal/config"
	"github.com/sjoshi/portfolio-api/internal/database"
	"github.com/sjoshi/portfolio-api/server"
	"github.com/sjoshi/portfolio-api/spotify"
	"github.com/sjoshi/portfolio-api/storage/filestore"
	"github.com/sjoshi/portfolio-api/storage/sqlstore"
	"github.com/sjoshi/portfolio-api/token"
	"github.com/sjoshi/portfolio-api/token/repofake"
)

func main() {
	for {
		if err := run(); err != nil {
			log.Error().Err(err).Msg("Error running server, restarting")
			time.Sleep(1 * time.Second)
		} else {
			break
		}
	}
	log.Info().Msg("Server stopped")
}

func run() (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Bytes("stack", debug.Stack()).Msg("Recovered from panic")
			returnError = errors.New("panic recovered")
		}
	}()

	c := config.New()
	setupLogging(c)
	displayAppname(c.GetAppName())

	dbm := database.NewManager(c)
	defer func() {
		if err := dbm.Close(); err != nil {
			log.Err(err).Msg("Closing database")
		}
	}()

	provider := spotify.NewProvider(spotify.ProviderOptions{
		ClientID:     c.GetSpotifyClientID(),
		ClientSecret: c.GetSpotifyClientSecret(),
		RedirectURL:  c.GetSpotifyRedirectURI(),
		AuthURL:      c.GetSpotifyAuthURL(),
		TokenURL:     c.GetSpotifyTokenURL(),
		Timeout:      c.GetSpotifyTimeout(),
	})
	if !provider.Configured() {
		log.Warn().Msg("SPOTIFY_CLIENT_ID or SPOTIFY_CLIENT_SECRET missing, owner authentication disabled")
	}

	tokenRepo, storeName := newTokenRepo(c, dbm)
	manager := token.NewManager(tokenRepo, provider, token.WithStoreName(storeName))

	bootCtx, cancel := context.WithTimeout(context.Background(), c.GetDBConnectTimeout()+time.Second)
	if err := manager.Bootstrap(bootCtx); err != nil {
		log.Warn().Err(err).Msg("Owner token store unavailable, serving from memory")
	}
	cancel()

	var contactPrimary contact.Repo
	if dbm.Configured() {
		contactPrimary = sqlstore.NewContactRepo(dbm)
	}
	contactService := contact.NewService(contactPrimary, filestore.NewContactRepo(c.GetTmpDir()))

	handler, err := server.New(c, server.Deps{
		Tokens:   manager,
		Auth:     provider,
		Player:   spotify.NewPlayer(manager, c.GetSpotifyAPIURL(), c.GetSpotifyTimeout()),
		Contact:  contactService,
		Database: dbm,
	})
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              c.GetPort(),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		errCh <- listenAndServe(srv)
	}()

	select {
	case err := <-errCh:
		return err
	case <-waitForStopSignal():
	}
	return shutdown(srv)
}

// newTokenRepo picks the durable owner token store. A database store without
// database settings runs degraded from memory.
func newTokenRepo(c config.Config, dbm *database.Manager) (token.Repo, string) {
	switch store := c.GetTokenStore(); store {
	case config.TokenStoreFile:
		log.Info().Str("path", c.GetTokenFile()).Msg("Owner token stored in file")
		return filestore.NewTokenRepo(c.GetTokenFile()), store
	case config.TokenStoreMemory:
		log.Warn().Msg("Owner token stored in memory, it is lost on restart")
		return repofake.NewFakeOwnerTokenRepo(), store
	case config.TokenStoreDatabase:
		if !dbm.Configured() {
			log.Warn().Msg("TOKEN_STORE is database but no database is configured")
			return nil, "none"
		}
		return sqlstore.NewTokenRepo(dbm), store
	default:
		log.Warn().Str("token_store", store).Msg("Unknown TOKEN_STORE, no durable token store")
		return nil, "none"
	}
}

func setupLogging(c config.EnvConfig) {
	level, err := zerolog.ParseLevel(c.GetLogLevel())
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	if c.GetEnv() == "DEV" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	}
}

func listenAndServe(server *http.Server) error {
	log.Info().Msgf("Server listening on %s", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server.ListenAndServe %w", err)
	}
	return nil
}

func waitForStopSignal() <-chan os.Signal {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	return stop
}

func shutdown(server *http.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server.Shutdown: %w", err)
	}
	return nil
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
