package jobs

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"

	"github.com/odyssey-erp/pharma-ledger/internal/shared"
)

const (
	// QueueLedger carries the integrity checks.
	QueueLedger = "ledger"
	// QueueMaintenance carries cache housekeeping.
	QueueMaintenance = "maintenance"

	// TaskGLIntegrity recomputes the trial balance and checks it nets to zero.
	TaskGLIntegrity = "gl:integrity"
	// TaskInventoryValuation reconciles open cost lots with the inventory account.
	TaskInventoryValuation = "inventory:valuation"
	// TaskLedgerCacheBump invalidates every cached ledger report.
	TaskLedgerCacheBump = "ledger:cache-bump"
)

// QueueWeights are the asynq priority weights of every queue the worker
// serves. Integrity checks win over housekeeping six to one.
var QueueWeights = map[string]int{
	QueueLedger:      6,
	QueueMaintenance: 1,
}

// Queues lists the served queue names in priority order.
func Queues() []string {
	return []string{QueueLedger, QueueMaintenance}
}

// AsOfPayload carries the reporting date of a check. An empty AsOf means
// the day the task runs.
type AsOfPayload struct {
	AsOf string `json:"as_of,omitempty"`
}

func (p AsOfPayload) date(now time.Time) (time.Time, error) {
	if p.AsOf == "" {
		return shared.DateOf(now), nil
	}
	return shared.ParseDate(p.AsOf)
}

// ValuationPayload scopes the reconciliation to one warehouse when set.
// The ledger comparison only runs for the all-warehouse scope.
type ValuationPayload struct {
	AsOfPayload
	WarehouseID int64 `json:"warehouse_id,omitempty"`
}

// NewGLIntegrityTask constructs the integrity task for asOf. A zero asOf
// checks the run date.
func NewGLIntegrityTask(asOf time.Time) (*asynq.Task, error) {
	return newTask(TaskGLIntegrity, QueueLedger, AsOfPayload{AsOf: dateString(asOf)})
}

// NewInventoryValuationTask constructs the valuation reconciliation task.
func NewInventoryValuationTask(asOf time.Time, warehouseID int64) (*asynq.Task, error) {
	return newTask(TaskInventoryValuation, QueueLedger, ValuationPayload{
		AsOfPayload: AsOfPayload{AsOf: dateString(asOf)},
		WarehouseID: warehouseID,
	})
}

// NewLedgerCacheBumpTask constructs the cache invalidation task.
func NewLedgerCacheBumpTask() *asynq.Task {
	return asynq.NewTask(TaskLedgerCacheBump, nil, asynq.Queue(QueueMaintenance), asynq.MaxRetry(5))
}

func newTask(typ, queue string, payload any) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(typ, body, asynq.Queue(queue), asynq.MaxRetry(3), asynq.Timeout(5*time.Minute)), nil
}

func dateString(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(shared.DateLayout)
}
