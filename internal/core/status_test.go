package core

import (
	"math"
	"testing"

	"github.com/shopspring/decimal"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestPercentageUsed(t *testing.T) {
	cases := []struct {
		amount, spent string
		want          int64
	}{
		{"400", "250", 62},
		{"400", "320", 80},
		{"400", "319.99", 79},
		{"400", "400", 100},
		{"400", "450", 112},
		{"1000", "0", 0},
		{"0", "50", 0},
		{"0", "0", 0},
		{"3", "1", 33},
		{"3", "2", 66},
		{"0.01", "1000000000000000", math.MaxInt64},
		{"0.01", "92233720368547758.07", math.MaxInt64},
	}
	for _, tc := range cases {
		if got := PercentageUsed(dec(tc.amount), dec(tc.spent)); got != tc.want {
			t.Errorf("PercentageUsed(%s, %s) = %d, want %d", tc.amount, tc.spent, got, tc.want)
		}
	}
}

func TestHugeOverspendIsRose(t *testing.T) {
	b := Budget{Amount: dec("0.01"), Period: Monthly}
	st := NewBudgetStatus(b, dec("1000000000000000"), "February 2026", NewDate(2026, 2, 15))
	if !st.IsOverBudget() || st.Color != ColorRose || st.Percentage < 100 {
		t.Fatalf("status = %+v, want over budget and rose", st)
	}
}

func TestColorFor(t *testing.T) {
	cases := []struct {
		pct  int64
		want StatusColor
	}{
		{0, ColorEmerald},
		{62, ColorEmerald},
		{79, ColorEmerald},
		{80, ColorAmber},
		{99, ColorAmber},
		{100, ColorRose},
		{250, ColorRose},
	}
	for _, tc := range cases {
		if got := ColorFor(tc.pct); got != tc.want {
			t.Errorf("ColorFor(%d) = %s, want %s", tc.pct, got, tc.want)
		}
	}
}

func TestNewBudgetStatus(t *testing.T) {
	b := Budget{ID: 1, UserID: 1, Amount: dec("400"), Period: Monthly, StartDate: NewDate(2026, 1, 1)}
	on := NewDate(2026, 2, 15)

	s := NewBudgetStatus(b, dec("450"), "February 2026", on)
	if !s.Remaining.Equal(dec("-50")) {
		t.Fatalf("remaining = %s, want -50", s.Remaining)
	}
	if s.Percentage != 112 || s.Color != ColorRose {
		t.Fatalf("got %d%% %s", s.Percentage, s.Color)
	}
	if !s.IsOverBudget() {
		t.Fatal("expected over budget")
	}
	if s.Period() != Monthly || s.EvaluatedOn != on {
		t.Fatalf("unexpected period/date: %s %s", s.Period(), s.EvaluatedOn)
	}

	exact := NewBudgetStatus(b, dec("400"), "February 2026", on)
	if exact.IsOverBudget() {
		t.Fatal("spending exactly the budget must not be over budget")
	}
	if exact.Color != ColorRose || !exact.Remaining.IsZero() {
		t.Fatalf("got %s remaining %s", exact.Color, exact.Remaining)
	}
}
