package memory

import (
	"context"
	"errors"
	"testing"

	"fintrack/internal/core"
	"fintrack/internal/ports"

	"github.com/shopspring/decimal"
)

func TestStoreSumAndCascade(t *testing.T) {
	ctx := context.Background()
	s := New()

	food, err := s.Categories().CreateCategory(ctx, core.Category{UserID: 1, Name: "Food", Icon: "tag", Color: "#64748b"})
	if err != nil {
		t.Fatal(err)
	}
	for _, tc := range []struct {
		amount string
		date   core.Date
	}{
		{"300", core.NewDate(2026, 2, 1)},
		{"200", core.NewDate(2026, 1, 31)},
		{"100", core.NewDate(2026, 2, 10)},
	} {
		if _, err := s.Transactions().CreateTransaction(ctx, core.Transaction{
			UserID: 1, Type: core.Expense, Amount: decimal.RequireFromString(tc.amount),
			Date: tc.date, CategoryID: &food.ID,
		}); err != nil {
			t.Fatal(err)
		}
	}
	feb := core.DateWindow{From: core.NewDate(2026, 2, 1), Until: core.NewDate(2026, 3, 1)}
	sum, err := s.Transactions().SumAmount(ctx, 1, food.ID, core.Expense, feb)
	if err != nil || !sum.Equal(decimal.NewFromInt(400)) {
		t.Fatalf("sum = %s (err=%v), want 400", sum, err)
	}

	if _, err := s.Budgets().CreateBudget(ctx, core.Budget{
		UserID: 1, CategoryID: food.ID, Amount: decimal.NewFromInt(1000),
		Period: core.Monthly, StartDate: core.NewDate(2026, 1, 1),
	}); err != nil {
		t.Fatal(err)
	}
	if ok, err := s.Categories().DeleteCategory(ctx, 1, food.ID); err != nil || !ok {
		t.Fatalf("delete: ok=%v err=%v", ok, err)
	}
	budgets, _ := s.Budgets().ListBudgets(ctx, 1)
	if len(budgets) != 0 {
		t.Fatalf("expected budgets to cascade, got %d", len(budgets))
	}
	txs, _ := s.Transactions().ListTransactions(ctx, 1, 0)
	if len(txs) != 3 {
		t.Fatalf("expected transactions to survive, got %d", len(txs))
	}
	for _, tx := range txs {
		if tx.CategoryID != nil || tx.DisplayName() != core.UncategorizedName {
			t.Fatalf("expected uncategorized, got %+v", tx)
		}
	}
}

func TestWithinTxRollsBack(t *testing.T) {
	ctx := context.Background()
	s := New()
	boom := errors.New("boom")

	err := s.WithinTx(ctx, func(r ports.Repositories) error {
		if _, err := r.Categories().CreateCategory(ctx, core.Category{UserID: 1, Name: "Temp", Color: "#64748b"}); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if _, err := s.Categories().GetCategoryByName(ctx, 1, "Temp"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected rollback, got %v", err)
	}
}

func TestBudgetOwnership(t *testing.T) {
	ctx := context.Background()
	s := New()
	c, _ := s.Categories().CreateCategory(ctx, core.Category{UserID: 1, Name: "Food", Color: "#64748b"})
	b, err := s.Budgets().CreateBudget(ctx, core.Budget{
		UserID: 1, CategoryID: c.ID, Amount: decimal.NewFromInt(10),
		Period: core.Yearly, StartDate: core.NewDate(2026, 1, 1),
	})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.Budgets().GetBudget(ctx, 2, b.ID); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if ok, _ := s.Budgets().DeleteBudget(ctx, 2, b.ID); ok {
		t.Fatal("foreign delete must not succeed")
	}
	if ok, _ := s.Budgets().DeleteBudget(ctx, 1, b.ID); !ok {
		t.Fatal("own delete must succeed")
	}
}

func TestSyncQueue(t *testing.T) {
	ctx := context.Background()
	s := New()
	tx, _ := s.Transactions().CreateTransaction(ctx, core.Transaction{
		UserID: 1, Type: core.Income, Amount: decimal.NewFromInt(5), Date: core.NewDate(2026, 1, 1),
	})
	pending, _ := s.ListUnsyncedTransactions(ctx, 0)
	if len(pending) != 1 {
		t.Fatalf("expected one pending, got %d", len(pending))
	}
	if err := s.MarkTransactionSynced(ctx, tx.ID, "mem:1"); err != nil {
		t.Fatal(err)
	}
	pending, _ = s.ListUnsyncedTransactions(ctx, 0)
	if len(pending) != 0 {
		t.Fatalf("expected none pending, got %d", len(pending))
	}
}
