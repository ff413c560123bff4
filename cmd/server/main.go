// cmd/server/main.go
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/unclebandit/cadence-backend/internal/app"
	"github.com/unclebandit/cadence-backend/internal/config"
	"github.com/unclebandit/cadence-backend/internal/controller"
	"github.com/unclebandit/cadence-backend/internal/db"
	"github.com/unclebandit/cadence-backend/internal/handler"
	"github.com/unclebandit/cadence-backend/internal/logging"
)

func main() {
	// Load .env
	config.LoadEnv(logging.NewLoggerWithService("cadence-server", "info"))
	cfg := config.Load()
	logger := logging.NewLoggerWithService("cadence-server", cfg.LogLevel)
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

	if err := db.EnsureSchema(ctx, a.DB); err != nil {
		logger.WithError(err).Fatal("failed to apply schema")
	}

	if cfg.Scheduler.Enabled {
		go a.Worker().Start(ctx)
	} else {
		logger.Info("scheduler timer disabled, dispatch runs on manual trigger only")
	}

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           newRouter(a),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.WithError(err).Warn("graceful shutdown failed")
		}
	}()

	logger.Infof("🚀 Server running on :%s", cfg.HTTPPort)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.WithError(err).Fatal("server stopped")
	}
}

func newRouter(a *app.App) http.Handler {
	schedulerController := &controller.SchedulerController{
		Dispatcher: a.Dispatcher,
		Aggregator: a.Aggregator,
		Logger:     a.Logger.WithField("component", "api"),
	}
	platformController := &controller.PlatformController{Optimizer: a.Optimizer}
	postController := &controller.PostController{Posts: a.Posts}
	workflowHandler := &handler.WorkflowHandler{
		Service:     a.Workflows,
		Rescheduler: a.Rescheduler,
		Logger:      a.Logger.WithField("component", "api"),
	}
	healthHandler := &handler.HealthHandler{DB: a.DB}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", healthHandler.Healthz)
	r.Handle("/metrics", promhttp.HandlerFor(a.Registry, promhttp.HandlerOpts{}))

	// Scheduler routes
	r.Post("/scheduler/process-pending", schedulerController.ProcessPending)
	r.Post("/scheduler/optimal-times", schedulerController.OptimalTimes)
	r.Get("/scheduler/status", schedulerController.Status)

	// Platform routes
	r.Post("/platforms/{id}/optimize", platformController.Optimize)
	r.Get("/platforms/{id}/heatmap", platformController.Heatmap)

	r.Post("/posts", postController.CreatePost)

	r.Get("/workflows/{id}", workflowHandler.GetWorkflowHandlerWithStats)
	r.Post("/workflows/{id}/advance", workflowHandler.AdvanceWorkflowHandler)

	return r
}
