package jobs_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/pharma-ledger/internal/accounting/ledger"
	"github.com/odyssey-erp/pharma-ledger/internal/inventory/costlayer"
	jobmetrics "github.com/odyssey-erp/pharma-ledger/internal/jobs"
	"github.com/odyssey-erp/pharma-ledger/internal/shared"
	"github.com/odyssey-erp/pharma-ledger/internal/testing/ledgertest"
	"github.com/odyssey-erp/pharma-ledger/jobs"
	_ "github.com/odyssey-erp/pharma-ledger/testing"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

type brokenLedger struct{ net string }

func (b brokenLedger) VerifyTrialBalance(context.Context, time.Time) (ledger.TrialBalanceResult, error) {
	return ledger.TrialBalanceResult{Net: ledgertest.D(b.net)}, fmt.Errorf("as of today: %w", shared.ErrTrialBalanceUnbalanced)
}

type countingBumper struct {
	calls int
	err   error
}

func (c *countingBumper) Bump(context.Context) error {
	c.calls++
	return c.err
}

func TestGLIntegrityPassesOnBalancedLedger(t *testing.T) {
	f := ledgertest.New(t)
	f.Post(t, "2024-02-01", f.Dr("1110", "900"), f.Cr("3100", "900"))

	job := jobs.NewGLIntegrityJob(f.Services.Ledger, quiet, jobmetrics.NewMetrics(prometheus.NewRegistry()))
	task, err := jobs.NewGLIntegrityTask(ledgertest.Date("2024-06-30"))
	require.NoError(t, err)
	require.Equal(t, jobs.TaskGLIntegrity, task.Type())
	require.NoError(t, job.Handle(context.Background(), task))
}

func TestGLIntegrityImbalanceSkipsRetry(t *testing.T) {
	job := jobs.NewGLIntegrityJob(brokenLedger{net: "5"}, quiet, nil)
	task, err := jobs.NewGLIntegrityTask(time.Time{})
	require.NoError(t, err)

	err = job.Handle(context.Background(), task)
	require.ErrorIs(t, err, shared.ErrTrialBalanceUnbalanced)
	require.ErrorIs(t, err, asynq.SkipRetry)
}

func TestGLIntegrityRejectsBadPayload(t *testing.T) {
	f := ledgertest.New(t)
	job := jobs.NewGLIntegrityJob(f.Services.Ledger, quiet, nil)

	err := job.Handle(context.Background(), asynq.NewTask(jobs.TaskGLIntegrity, []byte("{")))
	require.ErrorIs(t, err, asynq.SkipRetry)

	err = job.Handle(context.Background(), asynq.NewTask(jobs.TaskGLIntegrity, []byte(`{"as_of":"30/06/2024"}`)))
	require.ErrorIs(t, err, asynq.SkipRetry)

	var unset *jobs.GLIntegrityJob
	require.Error(t, unset.Handle(context.Background(), asynq.NewTask(jobs.TaskGLIntegrity, nil)))
}

func TestInventoryValuationReconcilesWithLedger(t *testing.T) {
	f := ledgertest.New(t)
	ctx := context.Background()
	_, err := f.Services.Stock.Receive(ctx, costlayer.ReceiveInput{ProductID: 1, WarehouseID: 1, Qty: ledgertest.D("10"), UnitCost: ledgertest.D("5")})
	require.NoError(t, err)
	f.Post(t, "2024-03-01", f.Dr("1200", "50"), f.Cr("1110", "50"))

	job := jobs.NewInventoryValuationJob(f.Services.Stock, f.Services.Ledger, f.Store, quiet, nil)
	report, err := job.Reconcile(ctx, ledgertest.Date("2024-06-30"), 0)
	require.NoError(t, err)
	require.True(t, report.Checked)
	require.True(t, report.LotValue.Equal(ledgertest.D("50")))
	require.True(t, report.LedgerValue.Equal(ledgertest.D("50")))
	require.True(t, report.Difference.IsZero())

	_, err = f.Services.Stock.Receive(ctx, costlayer.ReceiveInput{ProductID: 2, WarehouseID: 2, Qty: ledgertest.D("4"), UnitCost: ledgertest.D("5")})
	require.NoError(t, err)
	report, err = job.Reconcile(ctx, ledgertest.Date("2024-06-30"), 0)
	require.NoError(t, err)
	require.True(t, report.Difference.Equal(ledgertest.D("20")), "difference %s", report.Difference)

	scoped, err := job.Reconcile(ctx, ledgertest.Date("2024-06-30"), 2)
	require.NoError(t, err)
	require.False(t, scoped.Checked)
	require.True(t, scoped.LotValue.Equal(ledgertest.D("20")))
}

func TestInventoryValuationHandle(t *testing.T) {
	f := ledgertest.New(t)
	job := jobs.NewInventoryValuationJob(f.Services.Stock, f.Services.Ledger, f.Store, quiet, jobmetrics.NewMetrics(prometheus.NewRegistry()))

	task, err := jobs.NewInventoryValuationTask(ledgertest.Date("2024-06-30"), 0)
	require.NoError(t, err)
	require.NoError(t, job.Handle(context.Background(), task))

	err = job.Handle(context.Background(), asynq.NewTask(jobs.TaskInventoryValuation, []byte("[]")))
	require.ErrorIs(t, err, asynq.SkipRetry)
}

func TestCacheBump(t *testing.T) {
	bumper := &countingBumper{}
	job := jobs.NewCacheBumpJob(bumper, quiet, nil)
	require.NoError(t, job.Handle(context.Background(), jobs.NewLedgerCacheBumpTask()))
	require.Equal(t, 1, bumper.calls)

	bumper.err = errors.New("redis down")
	require.Error(t, job.Handle(context.Background(), jobs.NewLedgerCacheBumpTask()))
	require.Equal(t, 2, bumper.calls)
}

func TestCacheBumpAgainstLedgerCache(t *testing.T) {
	f := ledgertest.New(t, ledgertest.WithRedis())
	cache := ledger.NewCache(f.Client, 0)
	job := jobs.NewCacheBumpJob(cache, quiet, nil)

	require.NoError(t, job.Handle(context.Background(), jobs.NewLedgerCacheBumpTask()))
	version, err := f.Redis.Get("ledger:version")
	require.NoError(t, err)
	require.Equal(t, "1", version)
}

func TestNewWorkerRejectsIncompleteConfig(t *testing.T) {
	redis := asynq.RedisClientOpt{Addr: "127.0.0.1:0"}

	_, err := jobs.NewWorker(jobs.WorkerConfig{Redis: redis, Logger: quiet})
	require.Error(t, err)

	_, err = jobs.NewWorker(jobs.WorkerConfig{
		Redis:    redis,
		Logger:   quiet,
		Handlers: map[string]asynq.HandlerFunc{jobs.TaskLedgerCacheBump: nil},
	})
	require.Error(t, err)

	integrityTask, err := jobs.NewGLIntegrityTask(time.Time{})
	require.NoError(t, err)
	bump := jobs.NewCacheBumpJob(&countingBumper{}, quiet, nil)
	_, err = jobs.NewWorker(jobs.WorkerConfig{
		Redis:     redis,
		Logger:    quiet,
		Handlers:  map[string]asynq.HandlerFunc{jobs.TaskLedgerCacheBump: bump.Handle},
		Schedules: []jobs.Schedule{{Spec: "@daily", Task: integrityTask}},
	})
	require.ErrorContains(t, err, jobs.TaskGLIntegrity)
}

func TestInspectWithoutInspectorReportsEmptyQueues(t *testing.T) {
	queues, err := jobs.Inspect(nil)
	require.NoError(t, err)
	require.Len(t, queues, len(jobs.QueueWeights))
	require.Equal(t, jobs.QueueLedger, queues[0].Queue)
	require.Equal(t, jobs.QueueMaintenance, queues[1].Queue)
	require.Zero(t, queues[0].Pending)
}
