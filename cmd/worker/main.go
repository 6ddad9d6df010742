package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"golang.org/x/sync/errgroup"

	"politikk-moter/internal/app"
	"politikk-moter/internal/config"
	workerPkg "politikk-moter/internal/infra/worker"
	"politikk-moter/internal/observability/logging"
)

func main() {
	if err := run(); err != nil {
		slog.Error("worker stopped", slog.Any("error", err))
		os.Exit(1)
	}
}

func run() error {
	appConfig, err := config.LoadAppConfig()
	if err != nil {
		return fmt.Errorf("load app configuration: %w", err)
	}
	logger := logging.NewJSONLogger(os.Stdout, appConfig.Level())
	slog.SetDefault(logger)

	// Load worker configuration (fail-open strategy)
	workerMetrics := workerPkg.NewWorkerMetrics()
	workerConfig, err := workerPkg.LoadConfigFromEnv(logger, workerMetrics)
	if err != nil {
		return fmt.Errorf("load worker configuration: %w", err)
	}
	logger.Info("worker configuration loaded",
		slog.String("cron_schedule", workerConfig.CronSchedule),
		slog.String("timezone", workerConfig.Timezone),
		slog.Duration("run_timeout", workerConfig.RunTimeout),
		slog.Int("horizon_days", workerConfig.HorizonDays),
		slog.Int("health_port", workerConfig.HealthPort))

	registry, err := config.LoadRegistryFromEnv()
	if err != nil {
		return fmt.Errorf("load registry: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(appConfig, registry, app.Options{
		HorizonDays: workerConfig.HorizonDays,
	}, logger)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.Close(closeCtx); err != nil {
			logger.Error("shutdown failed", slog.Any("error", err))
		}
	}()

	healthAddr := fmt.Sprintf(":%d", workerConfig.HealthPort)
	healthServer := workerPkg.NewHealthServer(healthAddr, logger)
	job := workerPkg.NewJob(a.Runner, workerConfig, workerMetrics, healthServer, logger)

	c := cron.New(cron.WithLocation(workerConfig.Location()))
	if _, err := c.AddFunc(workerConfig.CronSchedule, func() { job.Run(ctx) }); err != nil {
		return fmt.Errorf("add cron job: %w", err)
	}

	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		return healthServer.Start(egCtx)
	})
	eg.Go(func() error {
		c.Start()
		healthServer.SetReady(true)
		logger.Info("worker started",
			slog.String("schedule", workerConfig.CronSchedule),
			slog.String("timezone", workerConfig.Timezone),
			slog.String("health_addr", healthAddr))

		if workerConfig.RunOnStart {
			job.Run(egCtx)
		}

		<-egCtx.Done()
		healthServer.SetReady(false)
		logger.Info("stopping scheduler")
		<-c.Stop().Done()
		return nil
	})
	return eg.Wait()
}
