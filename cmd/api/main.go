package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/multierr"

	"github.com/angelmondragon/wa-returns-backend/api/routes"
	"github.com/angelmondragon/wa-returns-backend/pkg/config"
	"github.com/angelmondragon/wa-returns-backend/pkg/db"
	"github.com/angelmondragon/wa-returns-backend/pkg/instance"
	"github.com/angelmondragon/wa-returns-backend/pkg/logger"
	"github.com/angelmondragon/wa-returns-backend/pkg/metrics"
	"github.com/angelmondragon/wa-returns-backend/pkg/migrate"
	"github.com/angelmondragon/wa-returns-backend/pkg/redis"
)

const shutdownTimeout = 15 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, cfg.FeatureFlags, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	workflowMetrics := metrics.NewWorkflowMetrics(prometheus.DefaultRegisterer)
	cronMetrics := metrics.NewCronJobMetrics(prometheus.DefaultRegisterer)

	app, err := buildApp(context.Background(), cfg, logg, dbClient, redisClient, workflowMetrics)
	if err != nil {
		logg.Error(context.Background(), "failed to wire services", err)
		os.Exit(1)
	}
	defer func() {
		if err := app.Close(); err != nil {
			logg.Error(context.Background(), "error closing services", err)
		}
	}()

	schedulers, err := buildSchedulers(cfg, logg, dbClient, redisClient, app, cronMetrics)
	if err != nil {
		logg.Error(context.Background(), "failed to create cron services", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":             cfg.App.Env,
		"addr":            addr,
		"instance":        instance.ID(),
		"session_backend": cfg.Sessions.Backend,
	})

	server := &http.Server{
		Addr:              addr,
		Handler:           routes.NewRouter(cfg, logg, dbClient, redisClient, prometheus.DefaultGatherer, app.Webhooks(workflowMetrics)),
		ReadHeaderTimeout: 10 * time.Second,
	}

	cronDone := make(chan error, len(schedulers))
	for _, svc := range schedulers {
		go func() {
			cronDone <- svc.Run(ctx)
		}()
	}

	serverErr := make(chan error, 1)
	go func() {
		logg.Info(ctx, "starting api server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	var runErr error
	select {
	case <-ctx.Done():
		logg.Info(ctx, "shutdown signal received")
	case err := <-serverErr:
		if err != nil {
			runErr = err
			logg.Error(ctx, "api server stopped unexpectedly", err)
		}
		stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	runErr = multierr.Append(runErr, server.Shutdown(shutdownCtx))

	for range schedulers {
		if err := <-cronDone; err != nil && !errors.Is(err, context.Canceled) {
			runErr = multierr.Append(runErr, err)
		}
	}

	if runErr != nil {
		logg.Error(context.Background(), "api shut down with errors", runErr)
		os.Exit(1)
	}
	logg.Info(context.Background(), "api shut down gracefully")
}
