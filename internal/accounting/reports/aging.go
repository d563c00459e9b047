package reports

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	internalShared "github.com/odyssey-erp/pharma-ledger/internal/shared"
)

// Aging bucket labels, by days past due.
const (
	BucketCurrent = "0"
	Bucket1To30   = "1-30"
	Bucket31To60  = "31-60"
	Bucket61To90  = "61-90"
	Bucket91To120 = "91-120"
	BucketOver120 = "120+"
)

// AgingBuckets lists the labels in display order.
var AgingBuckets = []string{BucketCurrent, Bucket1To30, Bucket31To60, Bucket61To90, Bucket91To120, BucketOver120}

// BucketFor maps days past due to a bucket label. Items not yet due land in "0".
func BucketFor(daysPastDue int) string {
	switch {
	case daysPastDue <= 0:
		return BucketCurrent
	case daysPastDue <= 30:
		return Bucket1To30
	case daysPastDue <= 60:
		return Bucket31To60
	case daysPastDue <= 90:
		return Bucket61To90
	case daysPastDue <= 120:
		return Bucket91To120
	default:
		return BucketOver120
	}
}

// OpenItem is an unpaid invoice remainder.
type OpenItem struct {
	PartnerID int64
	EntryNo   int64
	DueDate   time.Time
	Amount    decimal.Decimal
}

// AgingRow is the per-supplier outcome.
type AgingRow struct {
	PartnerID int64                      `json:"partner_id"`
	Buckets   map[string]decimal.Decimal `json:"buckets"`
	Total     decimal.Decimal            `json:"total"`
	Advance   decimal.Decimal            `json:"advance"`
}

// BuildAging buckets open items by supplier as of asOf. advances carries
// unapplied payments per supplier.
func BuildAging(asOf time.Time, items []OpenItem, advances map[int64]decimal.Decimal) []AgingRow {
	rows := make(map[int64]*AgingRow)
	get := func(partner int64) *AgingRow {
		row, ok := rows[partner]
		if !ok {
			row = &AgingRow{PartnerID: partner, Buckets: make(map[string]decimal.Decimal, len(AgingBuckets))}
			for _, b := range AgingBuckets {
				row.Buckets[b] = decimal.Zero
			}
			rows[partner] = row
		}
		return row
	}
	for _, item := range items {
		if !item.Amount.IsPositive() {
			continue
		}
		days := internalShared.DaysBetween(item.DueDate, asOf)
		row := get(item.PartnerID)
		bucket := BucketFor(days)
		row.Buckets[bucket] = row.Buckets[bucket].Add(item.Amount)
		row.Total = row.Total.Add(item.Amount)
	}
	for partner, adv := range advances {
		if adv.IsPositive() {
			get(partner).Advance = adv
		}
	}
	out := make([]AgingRow, 0, len(rows))
	for _, row := range rows {
		out = append(out, *row)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PartnerID < out[j].PartnerID })
	return out
}
