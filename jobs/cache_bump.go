package jobs

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/odyssey-erp/pharma-ledger/internal/jobs"
)

// Bumper invalidates cached reports.
type Bumper interface {
	Bump(ctx context.Context) error
}

// CacheBumpJob forces every API instance to recompute ledger reports, for
// example after rows were corrected directly in the database.
type CacheBumpJob struct {
	Cache   Bumper
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
}

// NewCacheBumpJob initialises the cache bump handler.
func NewCacheBumpJob(cache Bumper, logger *slog.Logger, metrics *jobmetrics.Metrics) *CacheBumpJob {
	if logger == nil {
		logger = slog.Default()
	}
	return &CacheBumpJob{Cache: cache, Logger: logger, Metrics: metrics}
}

// Handle bumps the cache version.
func (j *CacheBumpJob) Handle(ctx context.Context, _ *asynq.Task) (err error) {
	if j == nil || j.Cache == nil {
		return errors.New("ledger cache bump: handler not configured")
	}
	defer func(start time.Time) { err = j.Metrics.Observe(TaskLedgerCacheBump, start, err) }(time.Now())
	if err := j.Cache.Bump(ctx); err != nil {
		j.Logger.Warn("ledger cache bump failed", slog.Any("error", err))
		return err
	}
	j.Logger.Info("ledger cache bumped")
	return nil
}
