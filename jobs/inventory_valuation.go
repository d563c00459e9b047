package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/pharma-ledger/internal/accounting/ledger"
	"github.com/odyssey-erp/pharma-ledger/internal/accounting/mappings"
	acctshared "github.com/odyssey-erp/pharma-ledger/internal/accounting/shared"
	"github.com/odyssey-erp/pharma-ledger/internal/inventory/costlayer"
	jobmetrics "github.com/odyssey-erp/pharma-ledger/internal/jobs"
	"github.com/odyssey-erp/pharma-ledger/internal/shared"
)

// StockValuer values open cost lots.
type StockValuer interface {
	Valuation(ctx context.Context, warehouseID int64) (costlayer.Valuation, error)
}

// AccountLedger reads the posted balance of one account.
type AccountLedger interface {
	GeneralLedger(ctx context.Context, q ledger.GLQuery) (ledger.GeneralLedgerResult, error)
}

// InventoryValuationJob compares the FIFO value of open lots with the
// balance of the mapped inventory asset account.
type InventoryValuationJob struct {
	Stock    StockValuer
	Ledger   AccountLedger
	Mappings mappings.Lookup
	Logger   *slog.Logger
	Metrics  *jobmetrics.Metrics
	clock    func() time.Time
}

// ValuationReport is the outcome of one reconciliation.
type ValuationReport struct {
	AsOf        time.Time
	WarehouseID int64
	LotValue    decimal.Decimal
	LedgerValue decimal.Decimal
	Difference  decimal.Decimal
	Checked     bool
}

// NewInventoryValuationJob initialises the valuation handler.
func NewInventoryValuationJob(stock StockValuer, gl AccountLedger, lookup mappings.Lookup, logger *slog.Logger, metrics *jobmetrics.Metrics) *InventoryValuationJob {
	if logger == nil {
		logger = slog.Default()
	}
	return &InventoryValuationJob{
		Stock:    stock,
		Ledger:   gl,
		Mappings: lookup,
		Logger:   logger,
		Metrics:  metrics,
		clock:    func() time.Time { return time.Now().UTC() },
	}
}

// Handle decodes the payload and runs Reconcile. Differences are logged and
// exported as a gauge; they do not fail the task.
func (j *InventoryValuationJob) Handle(ctx context.Context, t *asynq.Task) (err error) {
	if j == nil || j.Stock == nil {
		return errors.New("inventory valuation: handler not configured")
	}
	var payload ValuationPayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return fmt.Errorf("inventory valuation: decode payload: %v: %w", err, asynq.SkipRetry)
		}
	}
	asOf, err := payload.date(j.clock())
	if err != nil {
		return fmt.Errorf("inventory valuation: %v: %w", err, asynq.SkipRetry)
	}

	defer func(start time.Time) { err = j.Metrics.Observe(TaskInventoryValuation, start, err) }(time.Now())

	_, err = j.Reconcile(ctx, asOf, payload.WarehouseID)
	return err
}

// Reconcile values the lots and, for the all-warehouse scope, compares them
// with the ledger. Lots carry no history, so the ledger side is read as of
// asOf while the lot side is always current.
func (j *InventoryValuationJob) Reconcile(ctx context.Context, asOf time.Time, warehouseID int64) (ValuationReport, error) {
	report := ValuationReport{AsOf: asOf, WarehouseID: warehouseID, LedgerValue: decimal.Zero, Difference: decimal.Zero}
	logger := j.Logger.With(slog.String("job", TaskInventoryValuation), slog.Int64("warehouse_id", warehouseID))

	valuation, err := j.Stock.Valuation(ctx, warehouseID)
	if err != nil {
		logger.Error("valuation failed", slog.Any("error", err))
		return report, err
	}
	report.LotValue = valuation.TotalValue
	if warehouseID != 0 || j.Ledger == nil || j.Mappings == nil {
		logger.Info("inventory valued", slog.String("lot_value", report.LotValue.StringFixed(2)), slog.Int("rows", len(valuation.Rows)))
		return report, nil
	}

	accountID, err := mappings.Resolve(ctx, j.Mappings, mappings.KeyInventoryAsset)
	if err != nil {
		if errors.Is(err, shared.ErrMappingNotFound) {
			logger.Warn("inventory asset mapping missing, skipping ledger comparison")
			return report, nil
		}
		return report, err
	}
	to := asOf
	gl, err := j.Ledger.GeneralLedger(ctx, ledger.GLQuery{AccountID: accountID, To: &to})
	if err != nil {
		logger.Error("inventory ledger balance failed", slog.Any("error", err))
		return report, err
	}
	report.LedgerValue = gl.ClosingBalance
	report.Difference = report.LotValue.Sub(report.LedgerValue)
	report.Checked = true

	diff, _ := report.Difference.Float64()
	j.Metrics.SetImbalance("inventory_valuation", "all", diff)
	attrs := []any{
		slog.String("lot_value", report.LotValue.StringFixed(2)),
		slog.String("ledger_value", report.LedgerValue.StringFixed(2)),
		slog.String("difference", report.Difference.StringFixed(2)),
	}
	if report.Difference.Abs().GreaterThan(acctshared.Tolerance) {
		logger.Warn("inventory valuation differs from ledger", attrs...)
	} else {
		logger.Info("inventory valuation reconciled", attrs...)
	}
	return report, nil
}
