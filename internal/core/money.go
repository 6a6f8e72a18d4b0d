package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

// maxAmount keeps amounts representable as int64 cents.
var maxAmount = decimal.New(1<<63-1, -2)

var hundred = decimal.NewFromInt(100)

// ParseAmount converts a user supplied decimal string to a money amount.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators and rounds
// half-up to two decimal places. Zero is a valid amount; negative values,
// empty strings and anything that is not a plain number are rejected with
// ErrInvalidAmount.
//
// Examples:
//
//	ParseAmount("12.34")  -> 12.34
//	ParseAmount("12,345") -> 12.35
//	ParseAmount("-1")     -> ErrInvalidAmount
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, ErrInvalidAmount
	}
	if strings.Contains(s, ",") {
		if strings.Contains(s, ".") {
			return decimal.Zero, ErrInvalidAmount
		}
		s = strings.ReplaceAll(s, ",", ".")
	}
	for _, r := range s {
		if (r < '0' || r > '9') && r != '.' && r != '-' && r != '+' {
			return decimal.Zero, ErrInvalidAmount
		}
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	d = d.Round(2)
	if err := ValidateAmount(d); err != nil {
		return decimal.Zero, err
	}
	return d, nil
}

// ValidateAmount rejects negative amounts and amounts that overflow cents.
func ValidateAmount(d decimal.Decimal) error {
	if d.IsNegative() || d.GreaterThan(maxAmount) {
		return ErrInvalidAmount
	}
	return nil
}

// CentsOf converts an amount to integer cents, rounding half away from zero.
func CentsOf(d decimal.Decimal) int64 {
	return d.Mul(hundred).Round(0).IntPart()
}

// FromCents is the inverse of CentsOf.
func FromCents(cents int64) decimal.Decimal {
	return decimal.New(cents, -2)
}

// FormatAmount renders an amount with exactly two decimals, e.g. "400.00".
func FormatAmount(d decimal.Decimal) string {
	return d.StringFixed(2)
}
