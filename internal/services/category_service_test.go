package services

import (
	"context"
	"errors"
	"testing"

	"fintrack/internal/core"
	"fintrack/internal/storage/memory"
)

func TestSeedDefaultsIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	svc := NewCategoryService(store)

	if _, err := store.Categories().CreateCategory(ctx, core.Category{UserID: 1, Name: "Shopping", Icon: "cart", Color: "#000000"}); err != nil {
		t.Fatal(err)
	}
	created, err := svc.SeedDefaults(ctx, 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(created) != len(DefaultCategories)-1 {
		t.Fatalf("expected %d created, got %d", len(DefaultCategories)-1, len(created))
	}
	again, err := svc.SeedDefaults(ctx, 1)
	if err != nil || len(again) != 0 {
		t.Fatalf("second seed created %d (err=%v)", len(again), err)
	}
	list, err := svc.List(ctx, 1)
	if err != nil || len(list) != len(DefaultCategories) {
		t.Fatalf("expected %d categories, got %d (err=%v)", len(DefaultCategories), len(list), err)
	}
	shop, _ := store.Categories().GetCategoryByName(ctx, 1, "Shopping")
	if shop.Icon != "cart" {
		t.Fatalf("existing category overwritten: %+v", shop)
	}
}

func TestCategoryDelete(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	svc := NewCategoryService(store)
	budgets := NewBudgetService(store, DefaultBudgetServiceConfig())
	txs := NewTransactionService(store, nil, TransactionServiceConfig{Now: fixedNow})

	b, err := budgets.Upsert(ctx, 1, BudgetInput{CategoryName: "Food", Amount: dec("100"), Period: core.Monthly}, core.NewDate(2026, 2, 1))
	if err != nil {
		t.Fatal(err)
	}
	tx, err := txs.Record(ctx, 1, TransactionInput{Type: core.Expense, Amount: dec("5"), CategoryName: "Food"})
	if err != nil {
		t.Fatal(err)
	}

	if err := svc.Delete(ctx, 2, b.CategoryID); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("foreign delete: expected ErrNotFound, got %v", err)
	}
	if err := svc.Delete(ctx, 1, b.CategoryID); err != nil {
		t.Fatal(err)
	}

	summary, err := budgets.Summary(ctx, 1, core.NewDate(2026, 2, 15))
	if err != nil || len(summary) != 0 {
		t.Fatalf("expected budgets to cascade, got %d (err=%v)", len(summary), err)
	}
	list, err := txs.List(ctx, 1, 0)
	if err != nil || len(list) != 1 || list[0].ID != tx.ID || list[0].DisplayName() != core.UncategorizedName {
		t.Fatalf("expected orphaned transaction, got %+v (err=%v)", list, err)
	}
}
