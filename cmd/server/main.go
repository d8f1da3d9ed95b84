// Command server runs the session authority HTTP API.
//
//	@title						Session Authority API
//	@version					1.0
//	@description				Registration, login and JWT session lifecycle.
//	@BasePath					/
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/speakup/session-authority/internal/app"
	"github.com/speakup/session-authority/internal/infrastructure/config"
	"github.com/speakup/session-authority/pkg/logger"
)

const serviceName = "session-authority"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		// Init is a no-op when run already configured the logger.
		log := logger.Init(logger.Options{Service: serviceName})
		log.Fatal().Err(err).Msg("server exited")
	}
}

func run(ctx context.Context) error {
	cfg, err := config.Load(ctx)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log := logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  cfg.IsDevelopment(),
		Service: serviceName,
	})

	a, err := app.New(ctx, cfg, log, app.Options{
		Registerer: prometheus.DefaultRegisterer,
		Gatherer:   prometheus.DefaultGatherer,
	})
	if err != nil {
		return fmt.Errorf("startup: %w", err)
	}

	return a.Run(ctx)
}
