package mappings

import "time"

// Well-known mapping keys. KeyRoundingDifference absorbs the sub-cent gap of
// entries accepted within tolerance.
const (
	KeyInventoryAsset          = "inventory.asset"
	KeyInventoryShrinkage      = "inventory.shrinkage_expense"
	KeyInventoryAdjustmentGain = "inventory.adjustment_gain"
	KeyRetainedEarnings        = "closing.retained_earnings"
	KeyPayablesControl         = "payables.control"
	KeyRoundingDifference      = "rounding.difference"

	// PrefixCash marks cash and bank accounts, e.g. cash.main, cash.bank.
	PrefixCash = "cash."
	// PrefixInvesting marks non-cash accounts classified as investing activity.
	PrefixInvesting = "cashflow.investing."
	// PrefixFinancing marks non-cash accounts classified as financing activity.
	PrefixFinancing = "cashflow.financing."
)

// AccountMapping links integration keys to ledger accounts.
type AccountMapping struct {
	Key       string    `json:"key"`
	AccountID int64     `json:"account_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
