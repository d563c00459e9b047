package shared

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var (
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrForbidden indicates the actor may not perform the action.
	ErrForbidden = errors.New("forbidden")
	// ErrValidation indicates malformed or unbalanced input.
	ErrValidation = errors.New("validation failed")
	// ErrPeriodClosed indicates a posting date inside a closed period.
	ErrPeriodClosed = errors.New("accounting: period is closed")
	// ErrNoPeriodDefined indicates no accounting period covers the date.
	ErrNoPeriodDefined = errors.New("accounting: no period defined for date")
	// ErrPeriodOverlap indicates a new period intersects an existing one.
	ErrPeriodOverlap = errors.New("accounting: period overlaps an existing period")
	// ErrInvalidAccount indicates a header, inactive or unknown account on a line.
	ErrInvalidAccount = errors.New("accounting: account does not accept postings")
	// ErrAccountHasBalance blocks deactivating an account that still carries a posted balance.
	ErrAccountHasBalance = errors.New("accounting: account carries a posted balance")
	// ErrAlreadyPosted guards duplicate posting.
	ErrAlreadyPosted = errors.New("accounting: already posted")
	// ErrAlreadyReversed guards a second reversal.
	ErrAlreadyReversed = errors.New("accounting: entry already reversed")
	// ErrAlreadyClosed guards closing a period or fiscal year twice.
	ErrAlreadyClosed = errors.New("accounting: already closed")
	// ErrInvalidStatus indicates action can't proceed from the current state.
	ErrInvalidStatus = errors.New("invalid status transition")
	// ErrPostedImmutable indicates an edit of a posted entry.
	ErrPostedImmutable = errors.New("accounting: posted entries are immutable")
	// ErrSourceAlreadyLinked indicates idempotency conflict on a source reference.
	ErrSourceAlreadyLinked = errors.New("accounting: source already linked")
	// ErrMappingNotFound indicates account mapping missing.
	ErrMappingNotFound = errors.New("accounting: account mapping not found")
	// ErrDateOutOfRange indicates a date outside the allowed window.
	ErrDateOutOfRange = errors.New("accounting: date outside period")
	// ErrUnbalancedClosingEntry indicates the generated closing entry failed validation.
	ErrUnbalancedClosingEntry = errors.New("accounting: closing entry is unbalanced")
	// ErrTrialBalanceUnbalanced indicates the ledger no longer nets to zero.
	ErrTrialBalanceUnbalanced = errors.New("accounting: trial balance does not net to zero")
	// ErrInsufficientStock indicates FIFO lots cannot cover a consumption.
	ErrInsufficientStock = errors.New("inventory: insufficient stock")
	// ErrEmptyAdjustment indicates an adjustment without posting items.
	ErrEmptyAdjustment = errors.New("inventory: adjustment has no items")
	// ErrMissingUnitCost indicates an increase without valuation.
	ErrMissingUnitCost = errors.New("inventory: unit cost required for increases")
	// ErrStaleQuantity indicates on-hand changed after the adjustment was staged.
	ErrStaleQuantity = errors.New("inventory: on-hand quantity changed since staging")
)

// ValidationError carries every violation found in the input.
type ValidationError struct {
	Errors []string
}

func (e *ValidationError) Error() string {
	return "validation failed: " + strings.Join(e.Errors, "; ")
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// PeriodClosedError reports the closed period blocking a posting.
type PeriodClosedError struct {
	Date   time.Time
	Period string
}

func (e *PeriodClosedError) Error() string {
	return fmt.Sprintf("accounting: period %s is closed for %s", e.Period, e.Date.Format(DateLayout))
}

func (e *PeriodClosedError) Unwrap() error { return ErrPeriodClosed }

// NoPeriodDefinedError reports a date (or fiscal year) without a period.
type NoPeriodDefinedError struct {
	Date       time.Time
	FiscalYear int
}

func (e *NoPeriodDefinedError) Error() string {
	if e.FiscalYear != 0 {
		return fmt.Sprintf("accounting: no period defined for fiscal year %d", e.FiscalYear)
	}
	return fmt.Sprintf("accounting: no period defined for %s", e.Date.Format(DateLayout))
}

func (e *NoPeriodDefinedError) Unwrap() error { return ErrNoPeriodDefined }

// InvalidAccountError names the account rejected on a journal line.
type InvalidAccountError struct {
	AccountID int64
	Code      string
	Reason    string
}

func (e *InvalidAccountError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("accounting: account %d %s", e.AccountID, e.Reason)
	}
	return fmt.Sprintf("accounting: account %s %s", e.Code, e.Reason)
}

func (e *InvalidAccountError) Unwrap() error { return ErrInvalidAccount }

// AccountHasBalanceError names the account and the balance it still carries.
type AccountHasBalanceError struct {
	Code    string
	Balance decimal.Decimal
}

func (e *AccountHasBalanceError) Error() string {
	return fmt.Sprintf("accounting: account %s carries a posted balance of %s", e.Code, e.Balance.StringFixed(2))
}

func (e *AccountHasBalanceError) Unwrap() error { return ErrAccountHasBalance }

// AlreadyPostedError identifies the document that was already posted.
type AlreadyPostedError struct {
	Kind string
	Ref  string
}

func (e *AlreadyPostedError) Error() string {
	return fmt.Sprintf("%s %s is already posted", e.Kind, e.Ref)
}

func (e *AlreadyPostedError) Unwrap() error { return ErrAlreadyPosted }

// AlreadyReversedError identifies the entry that was already reversed.
type AlreadyReversedError struct {
	EntryNo int64
}

func (e *AlreadyReversedError) Error() string {
	return fmt.Sprintf("accounting: journal entry %d is already reversed", e.EntryNo)
}

func (e *AlreadyReversedError) Unwrap() error { return ErrAlreadyReversed }

// AlreadyClosedError identifies the closed period that blocks the action.
type AlreadyClosedError struct {
	Period     string
	FiscalYear int
}

func (e *AlreadyClosedError) Error() string {
	if e.FiscalYear != 0 {
		return fmt.Sprintf("accounting: fiscal year %d already has closed period %s", e.FiscalYear, e.Period)
	}
	return fmt.Sprintf("accounting: period %s is already closed", e.Period)
}

func (e *AlreadyClosedError) Unwrap() error { return ErrAlreadyClosed }

// DraftEntriesPendingError lists drafts dated inside a period being closed.
type DraftEntriesPendingError struct {
	Period   string
	EntryNos []int64
}

func (e *DraftEntriesPendingError) Error() string {
	return fmt.Sprintf("accounting: period %s has %d draft entries %v", e.Period, len(e.EntryNos), e.EntryNos)
}

func (e *DraftEntriesPendingError) Unwrap() error { return ErrInvalidStatus }

// UnbalancedClosingEntryError carries the validation errors of a closing entry.
type UnbalancedClosingEntryError struct {
	FiscalYear int
	Errors     []string
}

func (e *UnbalancedClosingEntryError) Error() string {
	return fmt.Sprintf("accounting: closing entry for %d is unbalanced: %s", e.FiscalYear, strings.Join(e.Errors, "; "))
}

func (e *UnbalancedClosingEntryError) Unwrap() error { return ErrUnbalancedClosingEntry }

// InsufficientStockError reports the shortfall of a FIFO consumption.
type InsufficientStockError struct {
	ProductID   int64
	WarehouseID int64
	BatchNumber string
	Requested   decimal.Decimal
	Available   decimal.Decimal
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("inventory: product %d in warehouse %d needs %s, only %s available",
		e.ProductID, e.WarehouseID, e.Requested.String(), e.Available.String())
}

func (e *InsufficientStockError) Unwrap() error { return ErrInsufficientStock }

// EmptyAdjustmentError names the adjustment without posting items.
type EmptyAdjustmentError struct {
	AdjustmentNumber string
}

func (e *EmptyAdjustmentError) Error() string {
	return fmt.Sprintf("inventory: adjustment %s has no items to post", e.AdjustmentNumber)
}

func (e *EmptyAdjustmentError) Unwrap() error { return ErrEmptyAdjustment }

// MissingUnitCostError names the product whose increase lacks a cost.
type MissingUnitCostError struct {
	ProductID int64
}

func (e *MissingUnitCostError) Error() string {
	return fmt.Sprintf("inventory: product %d increases stock and requires a unit cost", e.ProductID)
}

func (e *MissingUnitCostError) Unwrap() error { return ErrMissingUnitCost }

// StaleQuantityError reports an on-hand mismatch found at posting time.
type StaleQuantityError struct {
	ProductID int64
	Expected  decimal.Decimal
	Actual    decimal.Decimal
}

func (e *StaleQuantityError) Error() string {
	return fmt.Sprintf("inventory: product %d on-hand is %s, adjustment staged against %s",
		e.ProductID, e.Actual.String(), e.Expected.String())
}

func (e *StaleQuantityError) Unwrap() error { return ErrStaleQuantity }
