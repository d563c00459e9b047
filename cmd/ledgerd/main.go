package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"golang.org/x/sync/errgroup"

	"github.com/odyssey-erp/pharma-ledger/cmd/ledgerd/cli"
	"github.com/odyssey-erp/pharma-ledger/internal/app"
	"github.com/odyssey-erp/pharma-ledger/internal/observability"
	"github.com/odyssey-erp/pharma-ledger/internal/platform/db"
	"github.com/odyssey-erp/pharma-ledger/internal/shared"
	"github.com/odyssey-erp/pharma-ledger/jobs"
)

const usage = `usage: ledgerd [serve | migrate | jobs trigger <task> [-as-of YYYY-MM-DD] [-warehouse N] | jobs stats]`

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}
	logger := app.NewLogger(cfg)

	args := os.Args[1:]
	cmd := "serve"
	if len(args) > 0 {
		cmd, args = args[0], args[1:]
	}
	switch cmd {
	case "serve":
		err = serve(ctx, cfg, logger)
	case "migrate":
		err = migrate(ctx, cfg, logger)
	case "jobs":
		err = jobsCommand(ctx, cfg, args)
	default:
		err = errors.New(usage)
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Error(cmd, slog.Any("error", err))
		os.Exit(1)
	}
}

func serve(ctx context.Context, cfg *app.Config, logger *slog.Logger) error {
	rt, err := app.Open(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer rt.Close()

	metrics := observability.NewMetrics()
	services := rt.Services(cfg, app.ServiceDeps{Logger: logger, Metrics: metrics})

	var jobHandler *jobs.Handler
	if rt.Redis != nil {
		inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
		defer func() {
			if err := inspector.Close(); err != nil {
				logger.Warn("inspector close", slog.Any("error", err))
			}
		}()
		jobHandler = jobs.NewHandler(inspector, logger)
	}

	router := app.NewRouter(app.RouterParams{
		Logger:      logger,
		Config:      cfg,
		Services:    services,
		Metrics:     metrics,
		Jobs:        jobHandler,
		Idempotency: shared.NewIdempotencyStore(rt.Redis, cfg.IdempotencyTTL),
		Checks:      rt.Checks,
	})
	server := &http.Server{
		Addr:              cfg.AppAddr,
		Handler:           router,
		ReadTimeout:       cfg.AppReadTimeout,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      cfg.AppWriteTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr), slog.String("store", cfg.StoreDriver))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func migrate(ctx context.Context, cfg *app.Config, logger *slog.Logger) error {
	if cfg.StoreDriver != app.StoreDriverPostgres {
		return fmt.Errorf("migrate requires STORE_DRIVER=postgres, got %s", cfg.StoreDriver)
	}
	pool, err := db.New(ctx, cfg.PGDSN, cfg.PGMaxConns)
	if err != nil {
		return err
	}
	defer pool.Close()
	applied, err := db.RunMigrations(ctx, pool)
	if err != nil {
		return err
	}
	logger.Info("migrations applied", slog.Int("count", len(applied)), slog.Any("files", applied))
	return nil
}

func jobsCommand(ctx context.Context, cfg *app.Config, args []string) error {
	if len(args) == 0 {
		return errors.New(usage)
	}
	jc, err := cli.NewJobsCLI(cfg.RedisAddr)
	if err != nil {
		return err
	}
	defer func() { _ = jc.Close() }()

	switch args[0] {
	case "trigger":
		if len(args) < 2 {
			return errors.New(usage)
		}
		fs := flag.NewFlagSet("trigger", flag.ContinueOnError)
		asOfRaw := fs.String("as-of", "", "reporting date (YYYY-MM-DD)")
		warehouse := fs.Int64("warehouse", 0, "warehouse id for inventory:valuation")
		if err := fs.Parse(args[2:]); err != nil {
			return err
		}
		var asOf time.Time
		if *asOfRaw != "" {
			if asOf, err = shared.ParseDate(*asOfRaw); err != nil {
				return err
			}
		}
		info, err := jc.Trigger(ctx, args[1], asOf, *warehouse)
		if err != nil {
			return err
		}
		fmt.Printf("enqueued %s id=%s queue=%s\n", info.Type, info.ID, info.Queue)
	case "stats":
		queues, err := jc.InspectQueues(ctx)
		if err != nil {
			return err
		}
		for _, q := range queues {
			fmt.Printf("queue=%s paused=%t pending=%d active=%d scheduled=%d retry=%d archived=%d\n",
				q.Queue, q.Paused, q.Pending, q.Active, q.Scheduled, q.Retry, q.Archived)
		}
		archived, err := jc.ListArchived(ctx, 10)
		if err != nil {
			return err
		}
		for _, t := range archived {
			fmt.Printf("  archived %s queue=%s id=%s last_err=%q\n", t.Type, t.Queue, t.ID, t.LastErr)
		}
	default:
		return errors.New(usage)
	}
	return nil
}
