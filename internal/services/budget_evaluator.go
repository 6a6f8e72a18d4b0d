package services

import (
	"context"
	"fmt"

	"fintrack/internal/core"
	"fintrack/internal/ports"

	"github.com/shopspring/decimal"
)

// Evaluator computes budget figures from the transaction store. It holds no
// state and never reads the clock: the evaluation date is always passed in.
type Evaluator struct {
	store ports.TransactionStore
}

func NewEvaluator(store ports.TransactionStore) *Evaluator {
	return &Evaluator{store: store}
}

// ActiveWindow returns the date range that counts toward b on date on.
func (e *Evaluator) ActiveWindow(b core.Budget, on core.Date) (core.DateWindow, error) {
	s, err := GetPeriodStrategy(b.Period)
	if err != nil {
		return core.DateWindow{}, err
	}
	return s.Window(b, on), nil
}

// SpentAmount sums the expenses of b's user and category inside the active window.
func (e *Evaluator) SpentAmount(ctx context.Context, b core.Budget, on core.Date) (decimal.Decimal, error) {
	w, err := e.ActiveWindow(b, on)
	if err != nil {
		return decimal.Zero, err
	}
	spent, err := e.store.SumAmount(ctx, b.UserID, b.CategoryID, core.Expense, w)
	if err != nil {
		return decimal.Zero, fmt.Errorf("sum expenses for budget %d: %w", b.ID, err)
	}
	return spent, nil
}

// RemainingAmount may be negative when the budget is exceeded.
func (e *Evaluator) RemainingAmount(ctx context.Context, b core.Budget, on core.Date) (decimal.Decimal, error) {
	spent, err := e.SpentAmount(ctx, b, on)
	if err != nil {
		return decimal.Zero, err
	}
	return b.Amount.Sub(spent), nil
}

func (e *Evaluator) PercentageUsed(ctx context.Context, b core.Budget, on core.Date) (int64, error) {
	spent, err := e.SpentAmount(ctx, b, on)
	if err != nil {
		return 0, err
	}
	return core.PercentageUsed(b.Amount, spent), nil
}

func (e *Evaluator) IsOverBudget(ctx context.Context, b core.Budget, on core.Date) (bool, error) {
	spent, err := e.SpentAmount(ctx, b, on)
	if err != nil {
		return false, err
	}
	return spent.GreaterThan(b.Amount), nil
}

func (e *Evaluator) StatusColor(ctx context.Context, b core.Budget, on core.Date) (core.StatusColor, error) {
	pct, err := e.PercentageUsed(ctx, b, on)
	if err != nil {
		return "", err
	}
	return core.ColorFor(pct), nil
}

func (e *Evaluator) PeriodLabel(b core.Budget, on core.Date) (string, error) {
	s, err := GetPeriodStrategy(b.Period)
	if err != nil {
		return "", err
	}
	return s.Label(b, on), nil
}

// Evaluate computes every figure of b with a single aggregate query.
func (e *Evaluator) Evaluate(ctx context.Context, b core.Budget, on core.Date) (core.BudgetStatus, error) {
	s, err := GetPeriodStrategy(b.Period)
	if err != nil {
		return core.BudgetStatus{}, err
	}
	spent, err := e.store.SumAmount(ctx, b.UserID, b.CategoryID, core.Expense, s.Window(b, on))
	if err != nil {
		return core.BudgetStatus{}, fmt.Errorf("sum expenses for budget %d: %w", b.ID, err)
	}
	return core.NewBudgetStatus(b, spent, s.Label(b, on), on), nil
}
