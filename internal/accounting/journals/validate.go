package journals

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/pharma-ledger/internal/accounting/mappings"
	"github.com/odyssey-erp/pharma-ledger/internal/accounting/shared"
	internalShared "github.com/odyssey-erp/pharma-ledger/internal/shared"
)

// Validate checks double-entry rules and reports all violations.
func Validate(lines []LineInput) ValidationResult {
	errs := make([]string, 0)
	debit, credit := decimal.Zero, decimal.Zero
	nonZero := 0
	for idx, line := range lines {
		n := idx + 1
		if line.AccountID <= 0 {
			errs = append(errs, fmt.Sprintf("line %d: account is required", n))
		}
		if line.Debit.IsNegative() || line.Credit.IsNegative() {
			errs = append(errs, fmt.Sprintf("line %d: amounts cannot be negative", n))
		}
		switch {
		case !line.Debit.IsZero() && !line.Credit.IsZero():
			errs = append(errs, fmt.Sprintf("line %d: cannot carry both debit and credit", n))
		case line.Debit.IsZero() && line.Credit.IsZero():
			errs = append(errs, fmt.Sprintf("line %d: debit or credit is required", n))
		default:
			nonZero++
		}
		debit = debit.Add(line.Debit)
		credit = credit.Add(line.Credit)
	}
	if nonZero < 2 {
		errs = append(errs, "at least two lines with a nonzero amount are required")
	}
	if !shared.Balanced(debit, credit) {
		errs = append(errs, fmt.Sprintf("entry is unbalanced: debit %s credit %s", debit.StringFixed(2), credit.StringFixed(2)))
	}
	return ValidationResult{IsValid: len(errs) == 0, Errors: errs}
}

func linesToInput(lines []JournalLine) []LineInput {
	out := make([]LineInput, 0, len(lines))
	for _, l := range lines {
		out = append(out, LineInput{
			AccountID:   l.AccountID,
			Description: l.Description,
			Debit:       l.Debit,
			Credit:      l.Credit,
			PartnerID:   l.PartnerID,
			DueDate:     l.DueDate,
			BranchID:    l.BranchID,
			WarehouseID: l.WarehouseID,
		})
	}
	return out
}

func inputToLines(lines []LineInput) []JournalLine {
	out := make([]JournalLine, 0, len(lines))
	for idx, l := range lines {
		var due *time.Time
		if l.DueDate != nil {
			d := internalShared.DateOf(*l.DueDate)
			due = &d
		}
		out = append(out, JournalLine{
			LineNo:      idx + 1,
			AccountID:   l.AccountID,
			Description: l.Description,
			Debit:       shared.RoundMoney(l.Debit),
			Credit:      shared.RoundMoney(l.Credit),
			PartnerID:   l.PartnerID,
			DueDate:     due,
			BranchID:    l.BranchID,
			WarehouseID: l.WarehouseID,
		})
	}
	return out
}

// closeResidual makes the lines balance to the cent once rounded. A gap left
// by input accepted within tolerance is booked to the rounding account; with
// no rounding account mapped the entry is rejected.
func closeResidual(ctx context.Context, lookup mappings.Lookup, lines []LineInput) ([]LineInput, error) {
	debit, credit := decimal.Zero, decimal.Zero
	var problems []string
	for idx, l := range lines {
		dr, cr := shared.RoundMoney(l.Debit), shared.RoundMoney(l.Credit)
		if dr.IsZero() && cr.IsZero() {
			problems = append(problems, fmt.Sprintf("line %d: amount rounds to zero", idx+1))
		}
		debit = debit.Add(dr)
		credit = credit.Add(cr)
	}
	if len(problems) > 0 {
		return nil, &internalShared.ValidationError{Errors: problems}
	}
	gap := debit.Sub(credit)
	if gap.IsZero() {
		return lines, nil
	}
	accountID, err := mappings.Resolve(ctx, lookup, mappings.KeyRoundingDifference)
	if errors.Is(err, internalShared.ErrMappingNotFound) {
		return nil, &internalShared.ValidationError{Errors: []string{fmt.Sprintf(
			"entry is unbalanced by %s and no %s account is mapped", gap.Abs().StringFixed(2), mappings.KeyRoundingDifference)}}
	}
	if err != nil {
		return nil, err
	}
	fix := LineInput{AccountID: accountID, Description: "Rounding difference", Debit: decimal.Zero, Credit: decimal.Zero}
	if gap.IsPositive() {
		fix.Credit = gap
	} else {
		fix.Debit = gap.Neg()
	}
	out := make([]LineInput, 0, len(lines)+1)
	out = append(out, lines...)
	return append(out, fix), nil
}

func reverseLines(lines []JournalLine) []LineInput {
	out := linesToInput(lines)
	for i := range out {
		out[i].Debit, out[i].Credit = out[i].Credit, out[i].Debit
	}
	return out
}

func accountIDs(lines []LineInput) []int64 {
	ids := make([]int64, 0, len(lines))
	for _, l := range lines {
		ids = append(ids, l.AccountID)
	}
	return ids
}
