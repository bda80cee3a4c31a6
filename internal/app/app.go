package app

import (
	"context"
	"fmt"
	stdhttp "net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/chatdir/internal/auth"
	"github.com/vovakirdan/chatdir/internal/config"
	"github.com/vovakirdan/chatdir/internal/service/chats"
	"github.com/vovakirdan/chatdir/internal/service/messages"
	"github.com/vovakirdan/chatdir/internal/service/users"
	"github.com/vovakirdan/chatdir/internal/store"
	"github.com/vovakirdan/chatdir/internal/store/mongodb"
	"github.com/vovakirdan/chatdir/internal/store/sqlite"
	transporthttp "github.com/vovakirdan/chatdir/internal/transport/http"
)

// App wires together store, services and transport layers.
type App struct {
	server          *stdhttp.Server
	shutdownTimeout time.Duration
	store           store.Store
	log             *zerolog.Logger
}

// OpenStore opens the store selected by cfg.Store.Driver.
func OpenStore(ctx context.Context, cfg *config.Config) (store.Store, error) {
	switch cfg.Store.Driver {
	case config.DriverMongo:
		st, err := mongodb.New(ctx, cfg.Store.MongoURI, cfg.Store.MongoDatabase, cfg.Store.Timeout)
		if err != nil {
			return nil, fmt.Errorf("open mongo store: %w", err)
		}
		return st, nil
	case config.DriverSQLite:
		st, err := sqlite.New(cfg.Store.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("open sqlite store: %w", err)
		}
		return st, nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
}

// JWTConfig converts the token settings for the auth package.
func JWTConfig(cfg *config.Config) *auth.JWTConfig {
	return &auth.JWTConfig{
		Secret:   []byte(cfg.JWT.Secret),
		Issuer:   cfg.JWT.Issuer,
		Audience: cfg.JWT.Audience,
		TTL:      cfg.JWT.TTL,
	}
}

// NewServices builds the services on top of st.
func NewServices(st store.Store, cfg *config.Config) transporthttp.Services {
	chatService := chats.New(st)
	return transporthttp.Services{
		Auth:     auth.NewService(st, JWTConfig(cfg)),
		Users:    users.New(st, chatService),
		Chats:    chatService,
		Messages: messages.New(st),
	}
}

// New constructs the application with provided configuration.
func New(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) (*App, error) {
	st, err := OpenStore(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("init store: %w", err)
	}

	logger.Info().Str("driver", cfg.Store.Driver).Msg("store initialized")

	server := transporthttp.NewServer(NewServices(st, cfg), cfg, logger)

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
		a.log.Info().Str("addr", a.server.Addr).Msg("http server listening")
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
