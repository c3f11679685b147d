// Command server runs the realtime messaging backend: REST endpoints for
// messages, acceptations, and the user directory, plus a websocket fan-out
// of message and typing events.
//
// Configuration is environment-driven (see internal/config); a local .env
// file is honored in development. The process shuts down gracefully on
// SIGINT/SIGTERM, draining in-flight HTTP requests before exit.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/tbourn/go-messenger-backend/internal/config"
	httpapi "github.com/tbourn/go-messenger-backend/internal/http"
	"github.com/tbourn/go-messenger-backend/internal/observability"
	"github.com/tbourn/go-messenger-backend/internal/realtime"
	"github.com/tbourn/go-messenger-backend/internal/repo"
	"github.com/tbourn/go-messenger-backend/internal/storage"
	"github.com/tbourn/go-messenger-backend/internal/sysutil"
)

// version is stamped at build time via -ldflags.
var version = "dev"

func main() {
	// Best effort: a missing .env is fine outside development.
	_ = godotenv.Load()

	cfg := config.MustLoad()

	sysutil.SetLogLevel(cfg.LogLevel)
	if cfg.LogPretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}
	log.Info().Str("version", version).Str("port", cfg.Port).Msg("starting messenger backend")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Tracing (no-op unless OTEL_ENABLED).
	shutdownOTel, err := observability.SetupOTel(ctx, cfg.OTEL, version)
	if err != nil {
		log.Fatal().Err(err).Msg("otel setup failed")
	}
	defer func() {
		shCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownOTel(shCtx); err != nil {
			log.Error().Err(err).Msg("otel shutdown failed")
		}
	}()

	// Storage: SQLite and the inline-image blob store.
	db, err := repo.OpenSQLite(cfg.DBPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.DBPath).Msg("open database failed")
	}

	var blobs *storage.BlobStore
	if cfg.BlobDir != "" {
		blobs, err = storage.NewBlobStore(cfg.BlobDir, log.With().Str("component", "blobstore").Logger())
		if err != nil {
			log.Fatal().Err(err).Str("dir", cfg.BlobDir).Msg("blob store init failed")
		}
	}

	// Realtime state.
	hub := realtime.NewHub()
	typing := realtime.NewTypingRegistry()

	gin.SetMode(cfg.GinMode)
	engine := gin.New()
	httpapi.RegisterRoutes(engine, db, blobs, hub, typing, cfg)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           engine,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		log.Info().Msg("shutdown signal received")
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("http server failed")
		}
	}

	shCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
	log.Info().Msg("server stopped")
}
