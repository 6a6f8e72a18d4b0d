package services

import (
	"context"
	"errors"
	"sync"
	"testing"

	"fintrack/internal/core"
	"fintrack/internal/ports"
	"fintrack/internal/storage/memory"

	"github.com/shopspring/decimal"
)

func ptr[T any](v T) *T { return &v }

func TestUpsertCreatesCategoryAndBudget(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	svc := NewBudgetService(store, DefaultBudgetServiceConfig())
	on := core.NewDate(2026, 2, 15)

	b, err := svc.Upsert(ctx, 1, BudgetInput{CategoryName: "  Travel ", Amount: dec("250"), Period: core.OneTime}, on)
	if err != nil {
		t.Fatal(err)
	}
	if b.ID == 0 || b.CategoryName != "Travel" || b.StartDate != on {
		t.Fatalf("unexpected budget %+v", b)
	}
	cat, err := store.Categories().GetCategoryByName(ctx, 1, "Travel")
	if err != nil {
		t.Fatal(err)
	}
	if cat.Icon != DefaultCategoryIcon || cat.Color != DefaultCategoryColor {
		t.Fatalf("unexpected defaults %+v", cat)
	}

	start := core.NewDate(2026, 1, 1)
	b2, err := svc.Upsert(ctx, 1, BudgetInput{CategoryName: "Travel", Amount: dec("10"), Period: core.OneTime, StartDate: &start}, on)
	if err != nil {
		t.Fatal(err)
	}
	if b2.StartDate != start || b2.CategoryID != cat.ID {
		t.Fatalf("unexpected budget %+v", b2)
	}
}

func TestUpsertCreateIsNotIdempotent(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	svc := NewBudgetService(store, DefaultBudgetServiceConfig())
	in := BudgetInput{CategoryName: "Food", Amount: dec("100"), Period: core.Monthly}

	for i := 0; i < 2; i++ {
		if _, err := svc.Upsert(ctx, 1, in, core.NewDate(2026, 2, 1)); err != nil {
			t.Fatal(err)
		}
	}
	budgets, _ := store.Budgets().ListBudgets(ctx, 1)
	if len(budgets) != 2 {
		t.Fatalf("expected two budgets, got %d", len(budgets))
	}
	cats, _ := store.Categories().ListCategories(ctx, 1)
	if len(cats) != 1 {
		t.Fatalf("expected one category, got %d", len(cats))
	}
}

func TestUpsertUpdatesInPlace(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	svc := NewBudgetService(store, DefaultBudgetServiceConfig())
	created, err := svc.Upsert(ctx, 1, BudgetInput{CategoryName: "Food", Amount: dec("100"), Period: core.Monthly}, core.NewDate(2026, 2, 1))
	if err != nil {
		t.Fatal(err)
	}

	updated, err := svc.Upsert(ctx, 1, BudgetInput{
		ID: ptr(created.ID), CategoryName: "Groceries", Amount: dec("150.5"), Period: core.Yearly,
	}, core.NewDate(2026, 6, 1))
	if err != nil {
		t.Fatal(err)
	}
	if updated.ID != created.ID || updated.CategoryName != "Groceries" || !updated.Amount.Equal(dec("150.5")) || updated.Period != core.Yearly {
		t.Fatalf("unexpected update %+v", updated)
	}
	if updated.StartDate != created.StartDate {
		t.Fatalf("start date changed from %s to %s", created.StartDate, updated.StartDate)
	}
	budgets, _ := store.Budgets().ListBudgets(ctx, 1)
	if len(budgets) != 1 {
		t.Fatalf("expected one budget, got %d", len(budgets))
	}
}

func TestUpsertForeignBudgetIsNotFound(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	svc := NewBudgetService(store, DefaultBudgetServiceConfig())
	theirs, err := svc.Upsert(ctx, 2, BudgetInput{CategoryName: "Food", Amount: dec("100"), Period: core.Monthly}, core.NewDate(2026, 2, 1))
	if err != nil {
		t.Fatal(err)
	}

	_, err = svc.Upsert(ctx, 1, BudgetInput{ID: ptr(theirs.ID), CategoryName: "Hijack", Amount: dec("1"), Period: core.Yearly}, core.NewDate(2026, 2, 1))
	if !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	_, err = svc.Upsert(ctx, 1, BudgetInput{ID: ptr(int64(9999)), CategoryName: "Food", Amount: dec("1"), Period: core.Yearly}, core.NewDate(2026, 2, 1))
	if !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	got, err := store.Budgets().GetBudget(ctx, 2, theirs.ID)
	if err != nil || !got.Amount.Equal(dec("100")) || got.Period != core.Monthly || got.CategoryName != "Food" {
		t.Fatalf("foreign budget mutated: %+v (err=%v)", got, err)
	}
	if _, err := store.Categories().GetCategoryByName(ctx, 1, "Hijack"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("failed upsert must not create a category, got %v", err)
	}
}

func TestUpsertValidation(t *testing.T) {
	svc := NewBudgetService(memory.New(), DefaultBudgetServiceConfig())
	cases := []struct {
		name string
		in   BudgetInput
		want error
	}{
		{"negative amount", BudgetInput{CategoryName: "Food", Amount: dec("-1"), Period: core.Monthly}, core.ErrInvalidAmount},
		{"bad period", BudgetInput{CategoryName: "Food", Amount: dec("1"), Period: "weekly"}, core.ErrInvalidPeriod},
		{"empty category", BudgetInput{CategoryName: " ", Amount: dec("1"), Period: core.Monthly}, core.ErrEmptyCategory},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Upsert(context.Background(), 1, tc.in, core.NewDate(2026, 1, 1))
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestDeleteIsSilentForMissingOrForeign(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	svc := NewBudgetService(store, DefaultBudgetServiceConfig())
	b, _ := svc.Upsert(ctx, 2, BudgetInput{CategoryName: "Food", Amount: dec("1"), Period: core.Monthly}, core.NewDate(2026, 1, 1))

	if err := svc.Delete(ctx, 1, 12345); err != nil {
		t.Fatalf("missing id: %v", err)
	}
	if err := svc.Delete(ctx, 1, b.ID); err != nil {
		t.Fatalf("foreign id: %v", err)
	}
	if _, err := store.Budgets().GetBudget(ctx, 2, b.ID); err != nil {
		t.Fatalf("foreign budget deleted: %v", err)
	}
	if err := svc.Delete(ctx, 2, b.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := store.Budgets().GetBudget(ctx, 2, b.ID); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected deletion, got %v", err)
	}
}

func TestSummaryOrderAndFigures(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	svc := NewBudgetService(store, BudgetServiceConfig{SummaryConcurrency: 2})
	on := core.NewDate(2026, 2, 15)

	var ids []int64
	for _, name := range []string{"Food", "Rent", "Fun", "Car"} {
		b, err := svc.Upsert(ctx, 1, BudgetInput{CategoryName: name, Amount: dec("100"), Period: core.Monthly}, on)
		if err != nil {
			t.Fatal(err)
		}
		ids = append(ids, b.ID)
	}
	if _, err := svc.Upsert(ctx, 2, BudgetInput{CategoryName: "Other", Amount: dec("1"), Period: core.Monthly}, on); err != nil {
		t.Fatal(err)
	}
	food, _ := store.Categories().GetCategoryByName(ctx, 1, "Food")
	if _, err := store.Transactions().CreateTransaction(ctx, core.Transaction{
		UserID: 1, Type: core.Expense, Amount: dec("85"), Date: core.NewDate(2026, 2, 3), CategoryID: &food.ID,
	}); err != nil {
		t.Fatal(err)
	}

	summary, err := svc.Summary(ctx, 1, on)
	if err != nil {
		t.Fatal(err)
	}
	if len(summary) != 4 {
		t.Fatalf("expected 4 statuses, got %d", len(summary))
	}
	for i, st := range summary {
		if want := ids[len(ids)-1-i]; st.Budget.ID != want {
			t.Fatalf("position %d: got budget %d, want %d", i, st.Budget.ID, want)
		}
		if st.EvaluatedOn != on {
			t.Fatalf("budget %d evaluated on %s", st.Budget.ID, st.EvaluatedOn)
		}
	}
	last := summary[len(summary)-1]
	if last.Budget.CategoryName != "Food" || last.Percentage != 85 || last.Color != core.ColorAmber {
		t.Fatalf("unexpected food status %+v", last)
	}
}

// sharedDateStore fails the test if two evaluations see different windows.
type sharedDateStore struct {
	ports.TransactionStore
	mu    sync.Mutex
	froms map[core.Date]int
}

func (s *sharedDateStore) SumAmount(ctx context.Context, userID, categoryID int64, typ core.TransactionType, w core.DateWindow) (decimal.Decimal, error) {
	s.mu.Lock()
	s.froms[w.From]++
	s.mu.Unlock()
	return s.TransactionStore.SumAmount(ctx, userID, categoryID, typ, w)
}

func TestSummaryUsesSingleDate(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	svc := NewBudgetService(store, BudgetServiceConfig{SummaryConcurrency: 8})
	for i := 0; i < 20; i++ {
		if _, err := svc.Upsert(ctx, 1, BudgetInput{CategoryName: "Food", Amount: dec("10"), Period: core.Monthly}, core.NewDate(2026, 1, 1)); err != nil {
			t.Fatal(err)
		}
	}

	spy := &sharedDateStore{TransactionStore: store.Transactions(), froms: map[core.Date]int{}}
	svc.eval = NewEvaluator(spy)
	if _, err := svc.Summary(ctx, 1, core.NewDate(2026, 3, 31)); err != nil {
		t.Fatal(err)
	}
	if len(spy.froms) != 1 || spy.froms[core.NewDate(2026, 3, 1)] != 20 {
		t.Fatalf("expected all 20 evaluations in March 2026, got %v", spy.froms)
	}
}

func TestSummaryEmpty(t *testing.T) {
	svc := NewBudgetService(memory.New(), DefaultBudgetServiceConfig())
	summary, err := svc.Summary(context.Background(), 1, core.NewDate(2026, 1, 1))
	if err != nil || len(summary) != 0 {
		t.Fatalf("expected empty summary, got %v (err=%v)", summary, err)
	}
}
