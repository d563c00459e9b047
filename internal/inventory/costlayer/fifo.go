package costlayer

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/pharma-ledger/internal/accounting/shared"
)

// SortFIFO orders lots by receipt time then id.
func SortFIFO(lots []Lot) {
	sort.SliceStable(lots, func(i, j int) bool {
		if !lots[i].ReceivedAt.Equal(lots[j].ReceivedAt) {
			return lots[i].ReceivedAt.Before(lots[j].ReceivedAt)
		}
		return lots[i].ID < lots[j].ID
	})
}

// Available sums remaining quantity.
func Available(lots []Lot) decimal.Decimal {
	total := decimal.Zero
	for _, l := range lots {
		total = total.Add(l.RemainingQty)
	}
	return total
}

// plan draws qty from lots, oldest first, without touching them. ok is false
// when the lots cannot cover qty.
func plan(lots []Lot, qty decimal.Decimal) (Consumption, bool) {
	SortFIFO(lots)
	out := Consumption{Qty: qty, Cost: decimal.Zero}
	left := qty
	for _, lot := range lots {
		if !left.IsPositive() {
			break
		}
		if !lot.RemainingQty.IsPositive() {
			continue
		}
		take := decimal.Min(left, lot.RemainingQty)
		cost := shared.Round(take.Mul(lot.UnitCost))
		out.Slices = append(out.Slices, Slice{
			LotID:       lot.ID,
			BatchNumber: lot.BatchNumber,
			Qty:         take,
			UnitCost:    lot.UnitCost,
			Cost:        cost,
		})
		out.Cost = out.Cost.Add(cost)
		left = left.Sub(take)
	}
	return out, !left.IsPositive()
}
