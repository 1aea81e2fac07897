package pricing

import (
	"testing"

	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/money"
)

func TestMaxRedeemable(t *testing.T) {
	cases := []struct {
		balance  int64
		subtotal money.Cents
		want     int64
	}{
		{balance: 250, subtotal: 2500, want: 250},
		{balance: 5000, subtotal: 1299, want: 1200},
		{balance: 0, subtotal: 2500, want: 0},
		{balance: 300, subtotal: 99, want: 0},
		{balance: -5, subtotal: 2500, want: 0},
	}
	for _, tc := range cases {
		if got := MaxRedeemable(tc.balance, tc.subtotal); got != tc.want {
			t.Fatalf("MaxRedeemable(%d, %s) = %d, want %d", tc.balance, tc.subtotal, got, tc.want)
		}
	}
}

func TestClampSelectionBlockLaw(t *testing.T) {
	for balance := int64(0); balance <= 1000; balance += 37 {
		for _, subtotal := range []money.Cents{0, 450, 2500, 12000} {
			for _, requested := range []int64{100, 300, 700, 1500} {
				sel := ClampSelection(Selection{Mode: enums.RedemptionModeStandard, PointsRequested: requested}, balance, subtotal)
				if sel.Mode == enums.RedemptionModeNone {
					continue
				}
				if sel.PointsRequested%PointsBlock != 0 {
					t.Fatalf("clamped %d not a multiple of %d", sel.PointsRequested, PointsBlock)
				}
				if sel.PointsRequested > MaxRedeemable(balance, subtotal) || sel.PointsRequested > requested {
					t.Fatalf("clamped %d exceeds cap for balance=%d subtotal=%s", sel.PointsRequested, balance, subtotal)
				}
				if err := ValidateSelection(sel, balance, subtotal); err != nil {
					t.Fatalf("clamped selection should validate: %v", err)
				}
			}
		}
	}
}

func TestClampSelectionFallsBackToNone(t *testing.T) {
	sel := ClampSelection(Selection{Mode: enums.RedemptionModeStandard, PointsRequested: 200}, 80, 5000)
	if sel != None {
		t.Fatalf("expected none, got %+v", sel)
	}
}

func TestValidateSelectionRejectsPartialBlocks(t *testing.T) {
	for _, requested := range []int64{0, -100, 150} {
		err := ValidateSelection(Selection{Mode: enums.RedemptionModeStandard, PointsRequested: requested}, 1000, 5000)
		if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
			t.Fatalf("expected validation error for %d, got %v", requested, err)
		}
	}
}

func TestValidateSelectionUnknownMode(t *testing.T) {
	err := ValidateSelection(Selection{Mode: enums.RedemptionMode("double")}, 1000, 5000)
	if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestInstantEligible(t *testing.T) {
	cases := []struct {
		name     string
		balance  int64
		subtotal money.Cents
		want     bool
	}{
		{name: "crosses threshold", balance: 50, subtotal: 12000, want: true},
		{name: "subtotal below minimum", balance: 50, subtotal: 9999, want: false},
		{name: "balance already at threshold", balance: 100, subtotal: 12000, want: false},
		{name: "zero balance large order", balance: 0, subtotal: 10000, want: true},
	}
	for _, tc := range cases {
		if got := InstantEligible(tc.balance, tc.subtotal); got != tc.want {
			t.Fatalf("%s: InstantEligible = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestPointsEarnedFloorsSubtotal(t *testing.T) {
	if got := PointsEarned(2599); got != 25 {
		t.Fatalf("expected 25 points, got %d", got)
	}
	if got := PointsEarned(99); got != 0 {
		t.Fatalf("expected 0 points, got %d", got)
	}
}

func TestSelectionNormalized(t *testing.T) {
	sel := Selection{PointsRequested: 300}.Normalized()
	if sel.Mode != enums.RedemptionModeNone || sel.PointsRequested != 0 {
		t.Fatalf("unexpected normalized selection %+v", sel)
	}
	if PointsSpent(sel) != 0 {
		t.Fatalf("none selection should spend nothing")
	}
}
