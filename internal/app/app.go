// Package app wires configuration, stores and the HTTP server together and
// owns the process lifecycle.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/speakup/session-authority/internal/api"
	"github.com/speakup/session-authority/internal/api/handler"
	"github.com/speakup/session-authority/internal/core/domain"
	"github.com/speakup/session-authority/internal/core/ports"
	"github.com/speakup/session-authority/internal/core/service"
	"github.com/speakup/session-authority/internal/infrastructure/config"
	"github.com/speakup/session-authority/internal/infrastructure/db/memory"
	mongostore "github.com/speakup/session-authority/internal/infrastructure/db/mongo"
	pgstore "github.com/speakup/session-authority/internal/infrastructure/db/postgres"
	redisstore "github.com/speakup/session-authority/internal/infrastructure/db/redis"
	"github.com/speakup/session-authority/internal/infrastructure/queue"
)

const shutdownTimeout = 15 * time.Second

type closer func(ctx context.Context) error

// App is a fully wired session authority ready to Run.
type App struct {
	cfg        *config.Config
	log        zerolog.Logger
	echo       *echo.Echo
	dispatcher *queue.Dispatcher
	closers    []closer
}

// Options lets callers override the metrics registry; nil means the
// Prometheus defaults.
type Options struct {
	Registerer prometheus.Registerer
	Gatherer   prometheus.Gatherer
}

// New connects to every configured dependency and builds the router.
// On error, anything already opened is closed again.
func New(ctx context.Context, cfg *config.Config, log zerolog.Logger, opts Options) (_ *App, err error) {
	a := &App{cfg: cfg, log: log}
	defer func() {
		if err != nil {
			a.close(context.Background())
		}
	}()

	checks := make(map[string]handler.HealthChecker)

	users, events, err := a.openStores(ctx, checks)
	if err != nil {
		return nil, err
	}

	var throttle service.LoginThrottle
	if cfg.Auth.LoginThrottle {
		rdb, err := redisstore.Connect(ctx, redisstore.Config{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func(context.Context) error { return rdb.Close() })
		checks["redis"] = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
		throttle = redisstore.NewLoginThrottle(rdb, cfg.Auth.LoginMaxAttempts, cfg.Auth.LoginLockout)
	}

	tokens, err := service.NewTokenIssuer(service.TokenConfig{
		AccessSecret:  cfg.Auth.AccessTokenSecret,
		RefreshSecret: cfg.Auth.RefreshTokenSecret,
		AccessTTL:     cfg.Auth.AccessTokenTTL,
		RefreshTTL:    cfg.Auth.RefreshTokenTTL,
		Issuer:        cfg.Auth.Issuer,
	})
	if err != nil {
		return nil, err
	}

	delivery, err := domain.ParseDeliveryMode(cfg.Auth.RefreshTokenDelivery)
	if err != nil {
		return nil, err
	}

	a.dispatcher = queue.NewDispatcher(cfg.Audit.Workers, events, log.With().Str("component", "audit").Logger())

	authService := service.NewAuthService(users, tokens, service.AuthServiceOptions{
		BcryptCost: cfg.Auth.BcryptCost,
		Throttle:   throttle,
		Audit:      a.dispatcher,
		Log:        log.With().Str("component", "auth").Logger(),
	})

	registerer, gatherer := opts.Registerer, opts.Gatherer
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}

	a.echo = api.NewRouter(api.Deps{
		Auth: authService,
		AuthHandler: handler.AuthHandlerConfig{
			Delivery:     delivery,
			CookieName:   cfg.Auth.RefreshCookieName,
			CookieSecure: cfg.Auth.CookieSecure,
			CookieDomain: cfg.Auth.CookieDomain,
			RefreshTTL:   tokens.RefreshTTL(),
		},
		HealthChecks:     checks,
		Log:              log,
		CORSAllowOrigins: cfg.HTTP.CORSAllowOrigins,
		AuthRateLimit:    cfg.HTTP.AuthRateLimit,
		Registerer:       registerer,
		Gatherer:         gatherer,
	})

	return a, nil
}

func (a *App) openStores(ctx context.Context, checks map[string]handler.HealthChecker) (ports.AuthRepository, ports.AuthEventRepository, error) {
	switch a.cfg.Store.Driver {
	case config.DriverPostgres:
		db, err := pgstore.Connect(ctx, a.cfg.Postgres.DSN)
		if err != nil {
			return nil, nil, err
		}
		a.closers = append(a.closers, func(context.Context) error { return db.Close() })
		if err := pgstore.Migrate(ctx, db); err != nil {
			return nil, nil, err
		}
		checks["postgres"] = db.PingContext
		return pgstore.NewAuthRepository(db), pgstore.NewAuditRepository(db), nil

	case config.DriverMongo:
		client, db, err := mongostore.Connect(ctx, mongostore.Config{URI: a.cfg.Mongo.URI, Database: a.cfg.Mongo.Database})
		if err != nil {
			return nil, nil, err
		}
		a.closers = append(a.closers, client.Disconnect)
		if err := mongostore.EnsureIndexes(ctx, db); err != nil {
			return nil, nil, err
		}
		checks["mongodb"] = func(ctx context.Context) error { return client.Ping(ctx, nil) }
		return mongostore.NewAuthRepository(db), mongostore.NewAuditRepository(db), nil

	case config.DriverMemory:
		a.log.Warn().Msg("using in-memory store, data is lost on restart")
		return memory.NewAuthRepository(), memory.NewAuditRepository(), nil
	}
	return nil, nil, fmt.Errorf("unknown store driver %q", a.cfg.Store.Driver)
}

// Handler exposes the HTTP handler, mainly for tests.
func (a *App) Handler() http.Handler { return a.echo }

// Run serves HTTP until ctx is cancelled or the server fails, then shuts down:
// drain HTTP, stop audit workers, close stores.
func (a *App) Run(ctx context.Context) error {
	workerCtx, stopWorkers := context.WithCancel(context.Background())
	a.dispatcher.Start(workerCtx)

	serveErr := make(chan error, 1)
	go func() {
		a.log.Info().Str("port", a.cfg.Port).Str("store", a.cfg.Store.Driver).Msg("http server starting")
		if err := a.echo.Start(":" + a.cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	var runErr error
	select {
	case <-ctx.Done():
		a.log.Info().Msg("shutdown signal received")
	case err, ok := <-serveErr:
		if ok {
			runErr = fmt.Errorf("http server: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := a.echo.Shutdown(shutdownCtx); err != nil {
		a.log.Error().Err(err).Msg("http shutdown")
	}

	stopWorkers()
	a.dispatcher.Wait()
	a.close(shutdownCtx)

	a.log.Info().Msg("shutdown complete")
	return runErr
}

func (a *App) close(ctx context.Context) {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			a.log.Error().Err(err).Msg("close dependency")
		}
	}
	a.closers = nil
}
