package periods

import "time"

// Period represents a fiscal period window.
type Period struct {
	ID            int64      `json:"id"`
	Name          string     `json:"name"`
	FiscalYear    int        `json:"fiscal_year"`
	StartDate     time.Time  `json:"start_date"`
	EndDate       time.Time  `json:"end_date"`
	IsClosed      bool       `json:"is_closed"`
	ClosedAt      *time.Time `json:"closed_at,omitempty"`
	ClosedBy      *int64     `json:"closed_by,omitempty"`
	LastPostingAt *time.Time `json:"last_posting_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// Contains reports whether date falls inside [StartDate, EndDate].
func (p Period) Contains(date time.Time) bool {
	return !date.Before(p.StartDate) && !date.After(p.EndDate)
}

// Overlaps reports whether the two windows share at least one day.
func (p Period) Overlaps(other Period) bool {
	return !p.EndDate.Before(other.StartDate) && !other.EndDate.Before(p.StartDate)
}

// Event is the audit row written on every close and reopen.
type Event struct {
	ID       int64     `json:"id"`
	PeriodID int64     `json:"period_id"`
	Action   string    `json:"action"`
	Reason   string    `json:"reason,omitempty"`
	ActorID  int64     `json:"actor_id"`
	At       time.Time `json:"at"`
}
