// Package app wires configuration, storage and services into a runnable scheduler.
package app

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/unclebandit/cadence-backend/internal/config"
	"github.com/unclebandit/cadence-backend/internal/db"
	"github.com/unclebandit/cadence-backend/internal/lease"
	"github.com/unclebandit/cadence-backend/internal/logging"
	"github.com/unclebandit/cadence-backend/internal/metrics"
	"github.com/unclebandit/cadence-backend/internal/model"
	"github.com/unclebandit/cadence-backend/internal/publisher"
	"github.com/unclebandit/cadence-backend/internal/queue"
	"github.com/unclebandit/cadence-backend/internal/repository"
	"github.com/unclebandit/cadence-backend/internal/service"
)

type App struct {
	Config config.Config
	Logger logging.Logger
	DB     *sql.DB

	Events      queue.Queue
	EventsTopic string
	// AMQP is set when events go to RabbitMQ rather than the in-process queue.
	AMQP *queue.AMQPQueue

	Registry *prometheus.Registry
	Metrics  *metrics.Collector

	Optimizer   *service.PostingTimeOptimizer
	Aggregator  *service.OptimalTimeAggregator
	Rescheduler *service.WorkflowRescheduler
	Dispatcher  *service.SchedulerDispatchLoop
	Posts       *service.PostService
	Workflows   *service.WorkflowService

	closers []func() error
}

// New connects to Postgres, and to Redis and RabbitMQ when configured, then builds every service.
func New(ctx context.Context, cfg config.Config, logger logging.Logger) (*App, error) {
	a := &App{Config: cfg, Logger: logger, EventsTopic: cfg.AMQPEventsQueue}
	if a.EventsTopic == "" {
		a.EventsTopic = queue.PostEventsTopic
	}

	conn, err := db.Connect(ctx, cfg.Database, logger)
	if err != nil {
		return nil, err
	}
	a.DB = conn
	a.closers = append(a.closers, conn.Close)

	if cfg.AMQPURL != "" {
		amqpQueue, err := queue.DialAMQP(cfg.AMQPURL, logger)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.AMQP = amqpQueue
		a.Events = amqpQueue
		a.closers = append(a.closers, amqpQueue.Close)
		logger.WithField("queue", a.EventsTopic).Info("✅ Connected to RabbitMQ")
	} else {
		mem := queue.NewInMemoryQueue(logger)
		if err := queue.StartPostEventSubscriber(mem, a.EventsTopic, logger); err != nil {
			a.Close()
			return nil, err
		}
		a.Events = mem
	}

	a.Registry = prometheus.NewRegistry()
	a.Metrics = metrics.NewCollector(a.Registry)

	platformRepo := &repository.PlatformRepository{DB: conn}
	workflowRepo := &repository.WorkflowRepository{DB: conn}
	postRepo := &repository.PostRepository{DB: conn}
	clock := service.SystemClock{}

	a.Optimizer = &service.PostingTimeOptimizer{
		PlatformRepo:     platformRepo,
		OptimizationRepo: &repository.TimeOptimizationRepository{DB: conn},
		EngagementRepo:   &repository.EngagementRepository{DB: conn},
		Clock:            clock,
		Config: service.OptimizerConfig{
			Staleness: cfg.Optimizer.Staleness,
			Lookback:  cfg.Optimizer.Lookback,
			TopK:      cfg.Optimizer.TopK,
		},
		Metrics: a.Metrics,
		Logger:  logger.WithField("component", "optimizer"),
	}
	a.Aggregator = &service.OptimalTimeAggregator{
		Optimizer:  a.Optimizer,
		Clock:      clock,
		SearchDays: cfg.Optimizer.SearchDays,
		Logger:     logger.WithField("component", "aggregator"),
	}
	a.Rescheduler = &service.WorkflowRescheduler{
		WorkflowRepo: workflowRepo,
		Aggregator:   a.Aggregator,
		Clock:        clock,
		Logger:       logger.WithField("component", "rescheduler"),
	}
	a.Posts = &service.PostService{
		PostRepo:     postRepo,
		WorkflowRepo: workflowRepo,
		Aggregator:   a.Aggregator,
		Clock:        clock,
	}
	a.Workflows = &service.WorkflowService{WorkflowRepo: workflowRepo, PostRepo: postRepo}

	a.Dispatcher = &service.SchedulerDispatchLoop{
		Scanner:      &service.PendingPostScanner{PostRepo: postRepo},
		PostRepo:     postRepo,
		PlatformRepo: platformRepo,
		Publisher:    newPublisher(cfg, logger),
		Rescheduler:  a.Rescheduler,
		Config: service.DispatchConfig{
			PublishTimeout: cfg.Scheduler.PublishTimeout,
			MaxInFlight:    cfg.Scheduler.MaxInFlight,
			PostWorkers:    cfg.Scheduler.PostWorkers,
			LeaseTTL:       cfg.CycleLeaseTTL,
		},
		Events:      a.Events,
		EventsTopic: a.EventsTopic,
		Metrics:     a.Metrics,
		Logger:      logger.WithField("component", "dispatcher"),
	}

	if cfg.RedisURL != "" {
		rdb, err := lease.Connect(ctx, cfg.RedisURL)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		a.closers = append(a.closers, rdb.Close)
		a.Dispatcher.Lease = lease.NewManager(rdb)
		logger.Info("✅ Connected to Redis, dispatch cycles are leased")
	}

	return a, nil
}

// newPublisher routes every platform type to the mock sender behind the timeout, rate and breaker guard.
// Real adapters register per type on the registry.
func newPublisher(cfg config.Config, logger logging.Logger) publisher.Publisher {
	mock := publisher.NewMockSender(cfg.MockPublishFailureRate, logger.WithField("component", "publisher"))
	registry := publisher.NewRegistry(mock)
	for _, t := range []model.PlatformType{model.PlatformTwitter, model.PlatformLinkedIn, model.PlatformFacebook, model.PlatformInstagram} {
		registry.Register(t, mock)
	}

	guard := publisher.DefaultGuardConfig()
	guard.Timeout = cfg.Scheduler.PublishTimeout
	guard.RatePerSec = cfg.Scheduler.PublishRatePerSec
	guard.Logger = logger.WithField("component", "publisher")
	return publisher.NewGuard(registry, guard)
}

// Worker is the timer driving dispatch cycles at the configured interval.
func (a *App) Worker() *service.Worker {
	return service.NewWorker(a.Dispatcher, a.Config.Scheduler.Interval, service.SystemClock{}, a.Logger.WithField("component", "worker"))
}

// Close releases connections in reverse order of opening.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.Logger.WithError(err).Warn("error during shutdown")
		}
	}
	a.closers = nil
}
