// Command server runs the HTTP service: configurable error views for every
// handled status, an optional error event journal and the demo routes.
//
//	@title			go-error-views API
//	@version		1.0
//	@description	Configurable HTTP error views and the error event journal.
//	@BasePath		/api/v1
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/tbourn/go-error-views/internal/config"
	httpapi "github.com/tbourn/go-error-views/internal/http"
	"github.com/tbourn/go-error-views/internal/observability"
	"github.com/tbourn/go-error-views/internal/repo"
	"github.com/tbourn/go-error-views/internal/sysutil"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = ""

func main() {
	// .env is optional; real environment variables win.
	_ = godotenv.Load()

	cfg := config.MustLoad()
	sysutil.SetupLogger(os.Stdout, cfg.LogPretty, sysutil.IsTruthy(os.Getenv("NO_COLOR")))
	sysutil.SetLogLevel(cfg.LogLevel)
	gin.SetMode(cfg.GinMode)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	ver := sysutil.FirstNonEmpty(version, os.Getenv("APP_VERSION"), "dev")
	err := run(ctx, cfg, ver)
	stop()
	if err != nil {
		log.Fatal().Err(err).Msg("server")
	}
}

// run serves until ctx is done or the listener fails. Every resource it
// opens is released before it returns.
func run(ctx context.Context, cfg config.Config, ver string) error {
	log.Info().Str("version", ver).Str("port", cfg.Port).Msg("starting")

	shutdownOTel, err := observability.SetupOTel(ctx, cfg.OTEL, ver)
	if err != nil {
		return fmt.Errorf("otel setup: %w", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownOTel(sctx); err != nil {
			log.Warn().Err(err).Msg("otel shutdown")
		}
	}()

	views, err := httpapi.NewErrorViews(cfg)
	if err != nil {
		return fmt.Errorf("error views: %w", err)
	}

	var db *gorm.DB
	if cfg.EventsEnabled {
		db, err = repo.OpenSQLite(cfg.DBPath)
		if err != nil {
			return fmt.Errorf("open database %q: %w", cfg.DBPath, err)
		}
		if sqlDB, err := db.DB(); err == nil {
			defer sqlDB.Close()
		}
		if err := repo.AutoMigrate(db); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}

	r := gin.New()
	httpapi.RegisterRoutes(r, db, views, cfg)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Msg("listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("listen: %w", err)
		}
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown")
	}
	return nil
}
