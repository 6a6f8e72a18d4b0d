package core

import (
	"math"

	"github.com/shopspring/decimal"
)

// StatusColor classifies how much of a budget has been used.
type StatusColor string

const (
	ColorEmerald StatusColor = "emerald"
	ColorAmber   StatusColor = "amber"
	ColorRose    StatusColor = "rose"
)

const (
	warnThreshold = 80
	overThreshold = 100
)

// BudgetStatus is the evaluated state of one budget at a given date.
type BudgetStatus struct {
	Budget      Budget
	Spent       decimal.Decimal
	Remaining   decimal.Decimal
	Percentage  int64
	PeriodLabel string
	Color       StatusColor
	EvaluatedOn Date
}

// NewBudgetStatus derives every figure from the budget and the spent amount.
// label is produced by the period strategy of the budget.
func NewBudgetStatus(b Budget, spent decimal.Decimal, label string, on Date) BudgetStatus {
	pct := PercentageUsed(b.Amount, spent)
	return BudgetStatus{
		Budget:      b,
		Spent:       spent,
		Remaining:   b.Amount.Sub(spent),
		Percentage:  pct,
		PeriodLabel: label,
		Color:       ColorFor(pct),
		EvaluatedOn: on,
	}
}

func (s BudgetStatus) Period() PeriodKind {
	return s.Budget.Period
}

// IsOverBudget is strict: spending exactly the budget is not over.
func (s BudgetStatus) IsOverBudget() bool {
	return s.Spent.GreaterThan(s.Budget.Amount)
}

// PercentageUsed returns floor(spent*100/amount), or 0 for a zero budget.
// The result is not capped at 100 but saturates at math.MaxInt64.
func PercentageUsed(amount, spent decimal.Decimal) int64 {
	if amount.IsZero() {
		return 0
	}
	q, _ := spent.Mul(hundred).QuoRem(amount, 0)
	if spent.IsNegative() && !q.Mul(amount).Equal(spent.Mul(hundred)) {
		q = q.Sub(decimal.NewFromInt(1))
	}
	if q.GreaterThan(maxPercentage) {
		return math.MaxInt64
	}
	return q.IntPart()
}

var maxPercentage = decimal.NewFromInt(math.MaxInt64)

// ColorFor maps an integer percentage to its status colour.
func ColorFor(pct int64) StatusColor {
	switch {
	case pct >= overThreshold:
		return ColorRose
	case pct >= warnThreshold:
		return ColorAmber
	default:
		return ColorEmerald
	}
}
