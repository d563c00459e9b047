package periods

import (
	"context"
	"errors"
	"time"

	"github.com/odyssey-erp/pharma-ledger/internal/shared"
)

// EnsureOpen locks the period covering date and fails closed: a date without
// a period is rejected just like a date inside a closed period. An open
// period is stamped with the posting.
func EnsureOpen(ctx context.Context, locker Locker, date time.Time) (Period, error) {
	date = shared.DateOf(date)
	p, err := locker.PeriodForDateForUpdate(ctx, date)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return Period{}, &shared.NoPeriodDefinedError{Date: date}
		}
		return Period{}, err
	}
	if p.IsClosed {
		return Period{}, &shared.PeriodClosedError{Date: date, Period: p.Name}
	}
	if err := locker.MarkPosting(ctx, p.ID); err != nil {
		return Period{}, err
	}
	return p, nil
}
