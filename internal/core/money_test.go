package core

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func TestParseAmount(t *testing.T) {
	cases := []struct {
		in  string
		out string
		ok  bool
	}{
		{"1", "1", true},
		{"0", "0", true},
		{"400", "400", true},
		{"1.23", "1.23", true},
		{"1,23", "1.23", true},
		{"0.01", "0.01", true},
		{"1.005", "1.01", true}, // half-up rounding
		{" 2.50 ", "2.5", true},
		{"-1", "", false},
		{"abc", "", false},
		{"1e3", "", false},
		{"1.2.3", "", false},
		{"1.234,56", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		got, err := ParseAmount(tc.in)
		if !tc.ok {
			if !errors.Is(err, ErrInvalidAmount) {
				t.Fatalf("%q expected ErrInvalidAmount, got %v", tc.in, err)
			}
			continue
		}
		if err != nil {
			t.Fatalf("%q unexpected error: %v", tc.in, err)
		}
		if !got.Equal(decimal.RequireFromString(tc.out)) {
			t.Fatalf("%q expected %s, got %s", tc.in, tc.out, got)
		}
	}
}

func TestCentsRoundTrip(t *testing.T) {
	for _, c := range []int64{0, 1, 99, 100, 45099, 123456789} {
		if got := CentsOf(FromCents(c)); got != c {
			t.Fatalf("round trip of %d gave %d", c, got)
		}
	}
	if got := CentsOf(decimal.RequireFromString("12.345")); got != 1235 {
		t.Fatalf("expected 1235, got %d", got)
	}
}

func TestFormatAmount(t *testing.T) {
	if got := FormatAmount(decimal.NewFromInt(400)); got != "400.00" {
		t.Fatalf("expected 400.00, got %s", got)
	}
	if got := FormatAmount(decimal.RequireFromString("-50.5")); got != "-50.50" {
		t.Fatalf("expected -50.50, got %s", got)
	}
}
