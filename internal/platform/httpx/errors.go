// Package httpx provides HTTP response utilities.
package httpx

import (
	"errors"
	"net/http"

	"github.com/odyssey-erp/pharma-ledger/internal/shared"
)

type classification struct {
	target error
	status int
	title  string
}

// Order matters: the first matching sentinel wins.
var classifications = []classification{
	{shared.ErrNotFound, http.StatusNotFound, "Not Found"},
	{shared.ErrMappingNotFound, http.StatusNotFound, "Account Mapping Missing"},
	{shared.ErrForbidden, http.StatusForbidden, "Forbidden"},
	{shared.ErrValidation, http.StatusUnprocessableEntity, "Validation Failed"},
	{shared.ErrPeriodClosed, http.StatusUnprocessableEntity, "Period Closed"},
	{shared.ErrNoPeriodDefined, http.StatusUnprocessableEntity, "No Period Defined"},
	{shared.ErrPeriodOverlap, http.StatusUnprocessableEntity, "Period Overlap"},
	{shared.ErrInvalidAccount, http.StatusUnprocessableEntity, "Invalid Account"},
	{shared.ErrDateOutOfRange, http.StatusUnprocessableEntity, "Date Out Of Range"},
	{shared.ErrInsufficientStock, http.StatusUnprocessableEntity, "Insufficient Stock"},
	{shared.ErrEmptyAdjustment, http.StatusUnprocessableEntity, "Empty Adjustment"},
	{shared.ErrMissingUnitCost, http.StatusUnprocessableEntity, "Missing Unit Cost"},
	{shared.ErrUnbalancedClosingEntry, http.StatusUnprocessableEntity, "Unbalanced Closing Entry"},
	{shared.ErrAccountHasBalance, http.StatusConflict, "Account Has Balance"},
	{shared.ErrAlreadyPosted, http.StatusConflict, "Already Posted"},
	{shared.ErrAlreadyReversed, http.StatusConflict, "Already Reversed"},
	{shared.ErrAlreadyClosed, http.StatusConflict, "Already Closed"},
	{shared.ErrPostedImmutable, http.StatusConflict, "Posted Entry Immutable"},
	{shared.ErrSourceAlreadyLinked, http.StatusConflict, "Duplicate Source"},
	{shared.ErrStaleQuantity, http.StatusConflict, "Stale Quantity"},
	{shared.ErrLockHeld, http.StatusConflict, "Operation In Progress"},
	{shared.ErrIdempotencyConflict, http.StatusConflict, "Duplicate Request"},
	{shared.ErrInvalidStatus, http.StatusConflict, "Invalid Status"},
	{shared.ErrTrialBalanceUnbalanced, http.StatusInternalServerError, "Ledger Out Of Balance"},
}

// StatusOf returns the HTTP status and title for an error.
func StatusOf(err error) (int, string) {
	for _, c := range classifications {
		if errors.Is(err, c.target) {
			return c.status, c.title
		}
	}
	return http.StatusInternalServerError, "Internal Error"
}

// RespondError maps domain errors to HTTP responses using RFC7807.
func RespondError(w http.ResponseWriter, err error) {
	status, title := StatusOf(err)
	if status == http.StatusInternalServerError && !errors.Is(err, shared.ErrTrialBalanceUnbalanced) {
		Problem(w, status, title, "")
		return
	}
	detail := ProblemDetail{Title: title, Status: status, Detail: err.Error()}
	var verr *shared.ValidationError
	if errors.As(err, &verr) {
		detail.Errors = verr.Errors
	}
	var cerr *shared.UnbalancedClosingEntryError
	if errors.As(err, &cerr) {
		detail.Errors = cerr.Errors
	}
	var derr *shared.DraftEntriesPendingError
	if errors.As(err, &derr) {
		detail.EntryNos = derr.EntryNos
	}
	JSON(w, status, detail)
}
