package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/odyssey-erp/pharma-ledger/internal/accounting/ledger"
	jobmetrics "github.com/odyssey-erp/pharma-ledger/internal/jobs"
	"github.com/odyssey-erp/pharma-ledger/internal/shared"
)

// TrialBalanceVerifier is the slice of the ledger service the integrity
// check depends on.
type TrialBalanceVerifier interface {
	VerifyTrialBalance(ctx context.Context, asOf time.Time) (ledger.TrialBalanceResult, error)
}

// GLIntegrityJob verifies that posted debits and credits still agree.
type GLIntegrityJob struct {
	Ledger  TrialBalanceVerifier
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
	clock   func() time.Time
}

// NewGLIntegrityJob initialises the integrity check handler.
func NewGLIntegrityJob(verifier TrialBalanceVerifier, logger *slog.Logger, metrics *jobmetrics.Metrics) *GLIntegrityJob {
	if logger == nil {
		logger = slog.Default()
	}
	return &GLIntegrityJob{Ledger: verifier, Logger: logger, Metrics: metrics, clock: func() time.Time { return time.Now().UTC() }}
}

// Handle runs the check. An out-of-balance ledger is a data problem that a
// retry cannot fix, so it is reported with SkipRetry.
func (j *GLIntegrityJob) Handle(ctx context.Context, t *asynq.Task) (err error) {
	if j == nil || j.Ledger == nil {
		return errors.New("gl integrity: handler not configured")
	}
	var payload AsOfPayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return fmt.Errorf("gl integrity: decode payload: %v: %w", err, asynq.SkipRetry)
		}
	}
	asOf, err := payload.date(j.clock())
	if err != nil {
		return fmt.Errorf("gl integrity: %v: %w", err, asynq.SkipRetry)
	}

	defer func(start time.Time) { err = j.Metrics.Observe(TaskGLIntegrity, start, err) }(time.Now())

	logger := j.Logger.With(slog.String("job", TaskGLIntegrity), slog.String("as_of", asOf.Format(shared.DateLayout)))
	tb, err := j.Ledger.VerifyTrialBalance(ctx, asOf)
	if err != nil {
		if errors.Is(err, shared.ErrTrialBalanceUnbalanced) {
			net, _ := tb.Net.Float64()
			j.Metrics.SetImbalance("trial_balance", "ledger", net)
			logger.Error("ledger out of balance", slog.String("net", tb.Net.String()))
			return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
		}
		logger.Error("trial balance failed", slog.Any("error", err))
		return err
	}
	j.Metrics.SetImbalance("trial_balance", "ledger", 0)
	logger.Info("gl integrity ok",
		slog.Int("accounts", len(tb.Rows)),
		slog.String("total_debit", tb.TotalDebit.StringFixed(2)),
		slog.String("total_credit", tb.TotalCredit.StringFixed(2)))
	return nil
}
