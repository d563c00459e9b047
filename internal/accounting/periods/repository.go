package periods

import (
	"context"
	"time"
)

// Repository exposes committed period state and transactional access.
type Repository interface {
	ListPeriods(ctx context.Context) ([]Period, error)
	GetPeriod(ctx context.Context, id int64) (Period, error)
	PeriodForDate(ctx context.Context, date time.Time) (Period, error)
	ListPeriodEvents(ctx context.Context, periodID int64) ([]Event, error)
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
}

// Locker finds and locks the period covering a date. Implementations return
// shared.ErrNotFound when no period covers it. MarkPosting writes the period
// row, so a transaction that read the year before the posting committed
// conflicts with it instead of missing it.
type Locker interface {
	PeriodForDateForUpdate(ctx context.Context, date time.Time) (Period, error)
	MarkPosting(ctx context.Context, periodID int64) error
}

// TxRepository exposes methods available within a transaction.
type TxRepository interface {
	Locker
	ListPeriodsForUpdate(ctx context.Context) ([]Period, error)
	GetPeriodForUpdate(ctx context.Context, id int64) (Period, error)
	ListPeriodsByYearForUpdate(ctx context.Context, fiscalYear int) ([]Period, error)
	InsertPeriod(ctx context.Context, p Period) (Period, error)
	UpdatePeriodLock(ctx context.Context, p Period) error
	InsertPeriodEvent(ctx context.Context, e Event) error
	DraftEntryNosBetween(ctx context.Context, from, to time.Time) ([]int64, error)
}
