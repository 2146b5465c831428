package app

import (
	"context"
	"fmt"
	stdhttp "net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/chilimannen/websocket-messaging-persistence-nodejs/internal/config"
	"github.com/chilimannen/websocket-messaging-persistence-nodejs/internal/core"
	"github.com/chilimannen/websocket-messaging-persistence-nodejs/internal/metrics"
	"github.com/chilimannen/websocket-messaging-persistence-nodejs/internal/store"
	"github.com/chilimannen/websocket-messaging-persistence-nodejs/internal/store/sqlite"
	"github.com/chilimannen/websocket-messaging-persistence-nodejs/internal/token"
	transporthttp "github.com/chilimannen/websocket-messaging-persistence-nodejs/internal/transport/http"
)

// App wires together the store, the action handlers and the transport.
type App struct {
	server          *stdhttp.Server
	shutdownTimeout time.Duration
	store           store.Store
	log             *zerolog.Logger
}

// New constructs the application with provided configuration.
func New(cfg config.Config, logger *zerolog.Logger) (*App, error) {
	st, err := sqlite.New(cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("init store: %w", err)
	}

	logger.Info().Str("db_path", cfg.DatabasePath).Msg("database initialized")

	issuer := token.NewIssuer(token.Config{
		Secret: []byte(cfg.TokenSecret),
		Issuer: "persistence",
		TTL:    cfg.TokenTTL,
	})

	service := core.NewService(st, issuer, logger)
	counters := metrics.New()
	server := transporthttp.NewServer(service.Router(), counters, cfg, logger)

	return &App{
		server:          server,
		shutdownTimeout: cfg.ShutdownTimeout,
		store:           st,
		log:             logger,
	}, nil
}

// Run starts the HTTP server and blocks until context cancellation or fatal error.
func (a *App) Run(ctx context.Context) error {
	serverErr := make(chan error, 1)

	go func() {
		if err := a.server.ListenAndServe(); err != nil && err != stdhttp.ErrServerClosed {
			serverErr <- err
			return
		}
		serverErr <- nil
	}()

	select {
	case err := <-serverErr:
		a.cleanup()
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.shutdownTimeout)
		defer cancel()

		a.log.Info().Msg("shutting down http server")
		if err := a.server.Shutdown(shutdownCtx); err != nil {
			a.cleanup()
			return err
		}

		a.cleanup()
		return <-serverErr
	}
}

// cleanup closes database and other resources.
func (a *App) cleanup() {
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.log.Warn().Err(err).Msg("failed to close store")
		} else {
			a.log.Info().Msg("store closed")
		}
	}
}
