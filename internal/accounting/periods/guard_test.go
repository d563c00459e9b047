package periods

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/odyssey-erp/pharma-ledger/internal/shared"
	_ "github.com/odyssey-erp/pharma-ledger/testing"
)

type stubLocker struct {
	period  Period
	findErr error
	markErr error
	marked  []int64
}

func (l *stubLocker) PeriodForDateForUpdate(context.Context, time.Time) (Period, error) {
	return l.period, l.findErr
}

func (l *stubLocker) MarkPosting(_ context.Context, id int64) error {
	if l.markErr != nil {
		return l.markErr
	}
	l.marked = append(l.marked, id)
	return nil
}

func TestEnsureOpenStampsOpenPeriod(t *testing.T) {
	locker := &stubLocker{period: Period{ID: 7, Name: "2024-03"}}

	p, err := EnsureOpen(context.Background(), locker, time.Date(2024, 3, 5, 13, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.ID != 7 {
		t.Fatalf("expected period 7, got %d", p.ID)
	}
	if len(locker.marked) != 1 || locker.marked[0] != 7 {
		t.Fatalf("expected period 7 stamped once, got %v", locker.marked)
	}
}

func TestEnsureOpenLeavesClosedPeriodUntouched(t *testing.T) {
	locker := &stubLocker{period: Period{ID: 7, Name: "2024-03", IsClosed: true}}

	_, err := EnsureOpen(context.Background(), locker, time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC))
	if !errors.Is(err, shared.ErrPeriodClosed) {
		t.Fatalf("expected closed period error, got %v", err)
	}
	if len(locker.marked) != 0 {
		t.Fatalf("closed period must not be stamped, got %v", locker.marked)
	}
}

func TestEnsureOpenFailsClosedWithoutPeriod(t *testing.T) {
	locker := &stubLocker{findErr: fmt.Errorf("period for 2030-01-01: %w", shared.ErrNotFound)}

	_, err := EnsureOpen(context.Background(), locker, time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC))
	if !errors.Is(err, shared.ErrNoPeriodDefined) {
		t.Fatalf("expected no period error, got %v", err)
	}
}

func TestEnsureOpenPropagatesStampFailure(t *testing.T) {
	boom := errors.New("could not serialize access")
	locker := &stubLocker{period: Period{ID: 7}, markErr: boom}

	if _, err := EnsureOpen(context.Background(), locker, time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)); !errors.Is(err, boom) {
		t.Fatalf("expected stamp error, got %v", err)
	}
}
