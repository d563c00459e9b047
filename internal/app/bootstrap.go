package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/odyssey-erp/pharma-ledger/internal/platform/cache"
	"github.com/odyssey-erp/pharma-ledger/internal/platform/db"
	"github.com/odyssey-erp/pharma-ledger/internal/shared"
	"github.com/odyssey-erp/pharma-ledger/internal/store/memory"
	"github.com/odyssey-erp/pharma-ledger/internal/store/postgres"
)

// Runtime owns the connections a process opens from Config.
type Runtime struct {
	Backend Backend
	Pool    *pgxpool.Pool
	Redis   *redis.Client
	Audit   shared.AuditPort
	Checks  map[string]HealthCheck

	logger *slog.Logger
}

// Open connects the configured store and, when REDIS_ADDR is set, Redis.
// Outside production an unreachable Redis is logged and skipped.
func Open(ctx context.Context, cfg *Config, logger *slog.Logger) (*Runtime, error) {
	if logger == nil {
		logger = slog.Default()
	}
	rt := &Runtime{Checks: make(map[string]HealthCheck), logger: logger}

	switch cfg.StoreDriver {
	case StoreDriverMemory:
		rt.Backend = memory.New()
		rt.Audit = shared.NewLogAuditor(logger)
		logger.Warn("using in-memory store, data is lost on exit")
	default:
		pool, err := db.New(ctx, cfg.PGDSN, cfg.PGMaxConns)
		if err != nil {
			return nil, err
		}
		rt.Pool = pool
		if cfg.MigrateOnStart {
			applied, err := db.RunMigrations(ctx, pool)
			if err != nil {
				pool.Close()
				return nil, fmt.Errorf("run migrations: %w", err)
			}
			logger.Info("migrations applied", slog.Any("files", applied))
		}
		rt.Backend = postgres.New(pool)
		rt.Audit = shared.NewAuditLogger(pool)
		rt.Checks["postgres"] = func(ctx context.Context) error { return pool.Ping(ctx) }
	}

	if cfg.RedisAddr != "" {
		client, err := cache.New(ctx, cfg.RedisAddr)
		switch {
		case err == nil:
			rt.Redis = client
			rt.Checks["redis"] = func(ctx context.Context) error { return client.Ping(ctx).Err() }
		case cfg.IsProduction():
			rt.Close()
			return nil, err
		default:
			logger.Warn("redis unavailable, report cache and year-end lock disabled", slog.Any("error", err))
		}
	}
	return rt, nil
}

// Services wires the domain services over the runtime's connections.
func (rt *Runtime) Services(cfg *Config, deps ServiceDeps) *Services {
	deps.Redis = rt.Redis
	deps.Audit = rt.Audit
	if deps.Logger == nil {
		deps.Logger = rt.logger
	}
	if cfg != nil {
		deps.CacheTTL = cfg.ReportCacheTTL
		deps.LockTTL = cfg.YearEndLockTTL
	}
	return NewServices(rt.Backend, deps)
}

// Close releases the connections.
func (rt *Runtime) Close() {
	if rt == nil {
		return
	}
	if rt.Redis != nil {
		if err := rt.Redis.Close(); err != nil {
			rt.logger.Warn("redis close", slog.Any("error", err))
		}
	}
	if rt.Pool != nil {
		rt.Pool.Close()
	}
}
