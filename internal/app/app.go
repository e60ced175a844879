package app

import (
	"context"
	"fmt"
	stdhttp "net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/messenger-server/internal/config"
	"github.com/vovakirdan/messenger-server/internal/core"
	"github.com/vovakirdan/messenger-server/internal/metrics"
	"github.com/vovakirdan/messenger-server/internal/store"
	"github.com/vovakirdan/messenger-server/internal/store/memory"
	"github.com/vovakirdan/messenger-server/internal/store/mongo"
	"github.com/vovakirdan/messenger-server/internal/store/sqlite"
	transporthttp "github.com/vovakirdan/messenger-server/internal/transport/http"
)

const (
	backendMongo  = "mongodb"
	backendSQLite = "sqlite"
	backendMemory = "memory"
)

// App wires together storage, core and transport layers.
type App struct {
	server          *stdhttp.Server
	shutdownTimeout time.Duration
	hub             *core.Hub
	store           store.Store
	log             *zerolog.Logger
}

// New constructs the application with provided configuration.
func New(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) (*App, error) {
	st, backend, err := openStore(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("init store: %w", err)
	}
	logger.Info().Str("backend", backend).Msg("storage initialized")

	m := metrics.New()
	hub := core.NewHub(st,
		core.WithLogger(logger),
		core.WithMetrics(m),
		core.WithStorageTimeout(cfg.StorageTimeout),
	)
	server := transporthttp.NewServer(hub, st, cfg, logger, m)

	return &App{
		server:          server,
		shutdownTimeout: cfg.ShutdownTimeout,
		hub:             hub,
		store:           st,
		log:             logger,
	}, nil
}

// openStore picks the backend: MongoDB when configured and reachable, then
// SQLite when a database path is set, otherwise the in-memory store.
func openStore(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) (store.Store, string, error) {
	if cfg.MongoURI != "" {
		connectCtx, cancel := context.WithTimeout(ctx, cfg.StorageTimeout)
		st, err := mongo.Open(connectCtx, cfg.MongoURI, cfg.MongoDatabase, cfg.MongoCollection)
		cancel()
		if err == nil {
			logger.Info().Str("database", cfg.MongoDatabase).Str("collection", cfg.MongoCollection).Msg("connected to mongodb")
			return st, backendMongo, nil
		}
		logger.Warn().Err(err).Msg("mongodb unavailable, falling back")
	}

	if cfg.DatabasePath != "" {
		st, err := sqlite.New(cfg.DatabasePath)
		if err != nil {
			return nil, "", err
		}
		logger.Info().Str("db_path", cfg.DatabasePath).Msg("database initialized")
		return st, backendSQLite, nil
	}

	logger.Warn().Msg("no durable storage configured, messages are kept in memory")
	return memory.New(), backendMemory, nil
}

// Run starts the HTTP server and blocks until context cancellation or fatal error.
func (a *App) Run(ctx context.Context) error {
	serverErr := make(chan error, 1)

	hubCtx, stopHub := context.WithCancel(ctx)
	defer stopHub()
	go a.hub.Run(hubCtx)

	go func() {
		a.log.Info().Str("addr", a.server.Addr).Msg("http server listening")
		if err := a.server.ListenAndServe(); err != nil && err != stdhttp.ErrServerClosed {
			serverErr <- err
			return
		}
		serverErr <- nil
	}()

	select {
	case err := <-serverErr:
		stopHub()
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

// cleanup closes the store.
func (a *App) cleanup() {
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.log.Warn().Err(err).Msg("failed to close store")
		} else {
			a.log.Info().Msg("store closed")
		}
	}
}
