package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/unclebandit/cadence-backend/internal/app"
	"github.com/unclebandit/cadence-backend/internal/config"
	"github.com/unclebandit/cadence-backend/internal/logging"
	"github.com/unclebandit/cadence-backend/internal/queue"
)

// The worker runs the dispatch timer without the HTTP API. With RabbitMQ configured it
// also consumes the post event queue.
func main() {
	config.LoadEnv(logging.NewLoggerWithService("cadence-worker", "info"))
	cfg := config.Load()
	logger := logging.NewLoggerWithService("cadence-worker", cfg.LogLevel)
	if err := cfg.Validate(); err != nil {
		logger.WithError(err).Fatal("invalid configuration")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.WithError(err).Fatal("failed to start")
	}
	defer a.Close()

	if a.AMQP != nil {
		if err := queue.StartPostEventSubscriber(a.AMQP, a.EventsTopic, logger.WithField("component", "events")); err != nil {
			logger.WithError(err).Fatal("failed to consume post events")
		}
		logger.WithField("queue", a.EventsTopic).Info("Worker consuming post events")
	}

	logger.Info("Worker running, dispatching due posts...")
	a.Worker().Start(ctx)
}
