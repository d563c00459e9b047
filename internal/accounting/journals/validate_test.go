package journals

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	_ "github.com/odyssey-erp/pharma-ledger/testing"
)

func line(account int64, debit, credit string) LineInput {
	return LineInput{AccountID: account, Debit: decimal.RequireFromString(debit), Credit: decimal.RequireFromString(credit)}
}

func TestValidateBalanced(t *testing.T) {
	res := Validate([]LineInput{line(1, "100.00", "0"), line(2, "0", "60.00"), line(3, "0", "40.00")})
	if !res.IsValid {
		t.Fatalf("expected valid, got %v", res.Errors)
	}
}

func TestValidateReportsEveryProblem(t *testing.T) {
	res := Validate([]LineInput{
		line(0, "10", "0"),
		line(2, "5", "5"),
		line(3, "-1", "0"),
	})
	if res.IsValid {
		t.Fatal("expected invalid")
	}
	want := []string{"line 1: account is required", "line 2: cannot carry both", "line 3: amounts cannot be negative", "unbalanced"}
	joined := strings.Join(res.Errors, "\n")
	for _, w := range want {
		if !strings.Contains(joined, w) {
			t.Fatalf("missing %q in %v", w, res.Errors)
		}
	}
}

func TestValidateNeedsTwoAmounts(t *testing.T) {
	res := Validate([]LineInput{line(1, "0", "0"), line(2, "0", "0")})
	if res.IsValid {
		t.Fatal("expected invalid for zero lines")
	}
	if len(res.Errors) != 3 {
		t.Fatalf("expected 3 errors, got %v", res.Errors)
	}
}

func TestValidateToleratesSubCentRounding(t *testing.T) {
	res := Validate([]LineInput{line(1, "33.333", "0"), line(2, "0", "33.33")})
	if !res.IsValid {
		t.Fatalf("expected valid within tolerance, got %v", res.Errors)
	}
}

func TestReverseLinesSwapSides(t *testing.T) {
	lines := []JournalLine{
		{AccountID: 1, Debit: decimal.RequireFromString("25"), Credit: decimal.Zero},
		{AccountID: 2, Debit: decimal.Zero, Credit: decimal.RequireFromString("25")},
	}
	out := reverseLines(lines)
	if !out[0].Credit.Equal(lines[0].Debit) || !out[0].Debit.IsZero() {
		t.Fatalf("line 1 not swapped: %+v", out[0])
	}
	if !out[1].Debit.Equal(lines[1].Credit) || !out[1].Credit.IsZero() {
		t.Fatalf("line 2 not swapped: %+v", out[1])
	}
}
