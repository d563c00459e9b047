package periods

import (
	"fmt"
	"strings"
	"time"

	"github.com/odyssey-erp/pharma-ledger/internal/shared"
)

// CreatePeriodInput captures a new accounting period.
type CreatePeriodInput struct {
	Name       string    `json:"name"`
	FiscalYear int       `json:"fiscal_year"`
	StartDate  time.Time `json:"start_date"`
	EndDate    time.Time `json:"end_date"`
}

// Validate ensures the window is coherent.
func (in CreatePeriodInput) Validate() error {
	var problems []string
	if strings.TrimSpace(in.Name) == "" {
		problems = append(problems, "name is required")
	}
	if in.FiscalYear < 1900 || in.FiscalYear > 9999 {
		problems = append(problems, fmt.Sprintf("fiscal year %d out of range", in.FiscalYear))
	}
	if in.StartDate.IsZero() || in.EndDate.IsZero() {
		problems = append(problems, "start and end dates are required")
	} else if in.EndDate.Before(in.StartDate) {
		problems = append(problems, "start date must not be after end date")
	}
	if len(problems) > 0 {
		return &shared.ValidationError{Errors: problems}
	}
	return nil
}

// CloseInput requests a period lock.
type CloseInput struct {
	PeriodID      int64
	Actor         shared.Actor
	ExcludeDrafts bool
}

// CloseResult reports drafts that stayed unposted inside the closed window.
type CloseResult struct {
	Period  Period  `json:"period"`
	Flagged []int64 `json:"flagged_draft_entry_nos,omitempty"`
}

// ReopenInput requests a period unlock.
type ReopenInput struct {
	PeriodID int64
	Reason   string
	Actor    shared.Actor
}
