package shared

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Tolerance is the largest debit/credit difference accepted as balanced.
var Tolerance = decimal.New(1, -2)

// AmountScale is the number of fractional digits kept for stored amounts.
const AmountScale = 4

// Round normalises an amount to the stored scale.
func Round(d decimal.Decimal) decimal.Decimal {
	return d.Round(AmountScale)
}

// MoneyScale is the scale of journal line amounts.
const MoneyScale = 2

// RoundMoney rounds a journal amount to whole cents.
func RoundMoney(d decimal.Decimal) decimal.Decimal {
	return d.Round(MoneyScale)
}

// Balanced reports whether debit and credit agree within Tolerance. It
// decides which input is accepted; stored entries balance exactly.
func Balanced(debit, credit decimal.Decimal) bool {
	return debit.Sub(credit).Abs().LessThanOrEqual(Tolerance)
}

// ParseAmount reads a decimal string, rejecting empty input.
func ParseAmount(raw string) (decimal.Decimal, error) {
	if raw == "" {
		return decimal.Zero, fmt.Errorf("accounting: amount is empty")
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("accounting: invalid amount %q: %w", raw, err)
	}
	return d, nil
}

// Sum adds amounts.
func Sum(values ...decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, v := range values {
		total = total.Add(v)
	}
	return total
}
