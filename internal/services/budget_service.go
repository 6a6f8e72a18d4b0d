package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"fintrack/internal/core"
	"fintrack/internal/ports"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

// BudgetServiceConfig holds configuration for the budget service
type BudgetServiceConfig struct {
	// SummaryConcurrency bounds parallel budget evaluations per summary (default: 4)
	SummaryConcurrency int
}

// DefaultBudgetServiceConfig returns sensible defaults
func DefaultBudgetServiceConfig() BudgetServiceConfig {
	return BudgetServiceConfig{SummaryConcurrency: 4}
}

// BudgetInput is the payload of an upsert. A nil ID creates a new budget.
type BudgetInput struct {
	ID           *int64
	CategoryName string
	Amount       decimal.Decimal
	Period       core.PeriodKind
	// StartDate anchors one-time budgets; nil means the evaluation date.
	StartDate *core.Date
}

// BudgetService builds budget summaries and applies budget mutations.
type BudgetService struct {
	store  ports.Store
	eval   *Evaluator
	config BudgetServiceConfig
}

func NewBudgetService(store ports.Store, config BudgetServiceConfig) *BudgetService {
	if config.SummaryConcurrency <= 0 {
		config.SummaryConcurrency = DefaultBudgetServiceConfig().SummaryConcurrency
	}
	return &BudgetService{
		store:  store,
		eval:   NewEvaluator(store.Transactions()),
		config: config,
	}
}

// Evaluator exposes the evaluator bound to the service's store.
func (s *BudgetService) Evaluator() *Evaluator {
	return s.eval
}

// Summary evaluates every budget of the user at the single date on, newest
// budget first. The order of the result does not depend on evaluation order.
func (s *BudgetService) Summary(ctx context.Context, userID int64, on core.Date) ([]core.BudgetStatus, error) {
	budgets, err := s.store.Budgets().ListBudgets(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list budgets: %w", err)
	}

	out := make([]core.BudgetStatus, len(budgets))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.config.SummaryConcurrency)
	for i, b := range budgets {
		g.Go(func() error {
			st, err := s.eval.Evaluate(gctx, b, on)
			if err != nil {
				return err
			}
			out[i] = st
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("evaluate budgets: %w", err)
	}
	return out, nil
}

// Upsert creates a budget, or updates the one named by in.ID, atomically.
// Updating a budget that is missing or owned by someone else fails with
// core.ErrNotFound and writes nothing. Creating never looks for an existing
// budget on the same category.
func (s *BudgetService) Upsert(ctx context.Context, userID int64, in BudgetInput, on core.Date) (core.Budget, error) {
	if err := core.ValidateAmount(in.Amount); err != nil {
		return core.Budget{}, err
	}
	if err := in.Period.Validate(); err != nil {
		return core.Budget{}, err
	}
	if strings.TrimSpace(in.CategoryName) == "" {
		return core.Budget{}, core.ErrEmptyCategory
	}

	var saved core.Budget
	err := s.store.WithinTx(ctx, func(r ports.Repositories) error {
		var existing core.Budget
		if in.ID != nil {
			b, err := r.Budgets().GetBudget(ctx, userID, *in.ID)
			if err != nil {
				return fmt.Errorf("budget %d: %w", *in.ID, err)
			}
			existing = b
		}

		cat, err := resolveCategory(ctx, r.Categories(), userID, in.CategoryName)
		if err != nil {
			return err
		}

		if in.ID != nil {
			existing.CategoryID = cat.ID
			existing.CategoryName = cat.Name
			existing.Amount = in.Amount
			existing.Period = in.Period
			if in.StartDate != nil {
				existing.StartDate = *in.StartDate
			}
			if err := existing.Validate(); err != nil {
				return err
			}
			saved, err = r.Budgets().UpdateBudget(ctx, existing)
			return err
		}

		b := core.Budget{
			UserID:       userID,
			CategoryID:   cat.ID,
			CategoryName: cat.Name,
			Amount:       in.Amount,
			Period:       in.Period,
			StartDate:    on,
		}
		if in.StartDate != nil {
			b.StartDate = *in.StartDate
		}
		if err := b.Validate(); err != nil {
			return err
		}
		saved, err = r.Budgets().CreateBudget(ctx, b)
		return err
	})
	if err != nil {
		return core.Budget{}, err
	}

	slog.InfoContext(ctx, "Budget saved",
		"user_id", userID,
		"budget_id", saved.ID,
		"category", saved.CategoryName,
		"period", saved.Period,
		"updated", in.ID != nil)
	return saved, nil
}

// Delete removes the budget if the user owns it. Unknown or foreign ids are
// ignored; only storage failures are reported.
func (s *BudgetService) Delete(ctx context.Context, userID, id int64) error {
	ok, err := s.store.Budgets().DeleteBudget(ctx, userID, id)
	if err != nil {
		return fmt.Errorf("delete budget %d: %w", id, err)
	}
	if !ok {
		slog.DebugContext(ctx, "Budget delete ignored", "user_id", userID, "budget_id", id)
	}
	return nil
}
