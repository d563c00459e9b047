package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/odyssey-erp/pharma-ledger/internal/app"
	jobmetrics "github.com/odyssey-erp/pharma-ledger/internal/jobs"
	"github.com/odyssey-erp/pharma-ledger/jobs"
)

func main() {
	if app.InTestMode() {
		return
	}
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		slog.Default().Error("worker exited", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfg, err := app.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if cfg.RedisAddr == "" {
		return errors.New("worker requires REDIS_ADDR")
	}
	logger := app.NewLogger(cfg)
	slog.SetDefault(logger)
	if cfg.StoreDriver == app.StoreDriverMemory {
		logger.Warn("worker on the in-memory store only sees its own empty ledger")
	}

	rt, err := app.Open(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("open runtime: %w", err)
	}
	defer rt.Close()

	services := rt.Services(cfg, app.ServiceDeps{Logger: logger})
	metrics := jobmetrics.NewMetrics(nil)
	integrity := jobs.NewGLIntegrityJob(services.Ledger, logger, metrics)
	valuation := jobs.NewInventoryValuationJob(services.Stock, services.Ledger, rt.Backend, logger, metrics)
	bump := jobs.NewCacheBumpJob(services.Cache, logger, metrics)

	// Zero dates make each scheduled run check the day it fires.
	integrityTask, err := jobs.NewGLIntegrityTask(time.Time{})
	if err != nil {
		return err
	}
	valuationTask, err := jobs.NewInventoryValuationTask(time.Time{}, 0)
	if err != nil {
		return err
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		Redis:       asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:      logger,
		Concurrency: cfg.WorkerConcurrency,
		Handlers: map[string]asynq.HandlerFunc{
			jobs.TaskGLIntegrity:        integrity.Handle,
			jobs.TaskInventoryValuation: valuation.Handle,
			jobs.TaskLedgerCacheBump:    bump.Handle,
		},
		Schedules: []jobs.Schedule{
			{Spec: cfg.IntegrityCron, Task: integrityTask},
			{Spec: cfg.ValuationCron, Task: valuationTask},
		},
	})
	if err != nil {
		return err
	}
	return worker.Run(ctx)
}
