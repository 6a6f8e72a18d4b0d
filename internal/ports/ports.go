// Package ports declares the storage interfaces the services depend on.
// Both the SQLite repository and the in-memory store implement them.
package ports

import (
	"context"

	"fintrack/internal/core"

	"github.com/shopspring/decimal"
)

type (
	// TransactionStore is the read primitive used by budget evaluation.
	TransactionStore interface {
		// SumAmount totals the transactions of one user, category and type
		// whose date falls in window. It returns zero when nothing matches.
		SumAmount(ctx context.Context, userID, categoryID int64, typ core.TransactionType, window core.DateWindow) (decimal.Decimal, error)
	}

	TransactionRepository interface {
		TransactionStore
		CreateTransaction(ctx context.Context, tx core.Transaction) (core.Transaction, error)
		// GetTransaction returns core.ErrNotFound for missing or foreign rows.
		GetTransaction(ctx context.Context, userID, id int64) (core.Transaction, error)
		// ListTransactions orders by date then id, newest first. limit <= 0 means no limit.
		ListTransactions(ctx context.Context, userID int64, limit int) ([]core.Transaction, error)
		DeleteTransaction(ctx context.Context, userID, id int64) (bool, error)
	}

	BudgetRepository interface {
		// ListBudgets orders by creation time then id, newest first.
		ListBudgets(ctx context.Context, userID int64) ([]core.Budget, error)
		ListBudgetsByCategory(ctx context.Context, userID, categoryID int64) ([]core.Budget, error)
		// GetBudget returns core.ErrNotFound for missing or foreign rows.
		GetBudget(ctx context.Context, userID, id int64) (core.Budget, error)
		CreateBudget(ctx context.Context, b core.Budget) (core.Budget, error)
		UpdateBudget(ctx context.Context, b core.Budget) (core.Budget, error)
		DeleteBudget(ctx context.Context, userID, id int64) (bool, error)
	}

	CategoryRepository interface {
		// ListCategories orders by name.
		ListCategories(ctx context.Context, userID int64) ([]core.Category, error)
		// GetCategoryByName returns core.ErrNotFound when the user has no such category.
		GetCategoryByName(ctx context.Context, userID int64, name string) (core.Category, error)
		CreateCategory(ctx context.Context, c core.Category) (core.Category, error)
		// DeleteCategory removes the category and its budgets and detaches its transactions.
		DeleteCategory(ctx context.Context, userID, id int64) (bool, error)
	}

	// Repositories groups the repositories that share one unit of work.
	Repositories interface {
		Transactions() TransactionRepository
		Budgets() BudgetRepository
		Categories() CategoryRepository
	}

	// Store is a Repositories bound to the database with transactional scope.
	Store interface {
		Repositories
		// WithinTx runs fn atomically. Any error returned by fn rolls back.
		WithinTx(ctx context.Context, fn func(Repositories) error) error
		Ping(ctx context.Context) error
		Close() error
	}

	// SyncQueue tracks which transactions have been mirrored to the ledger export.
	SyncQueue interface {
		GetTransactionByID(ctx context.Context, id int64) (core.Transaction, error)
		ListUnsyncedTransactions(ctx context.Context, limit int) ([]core.Transaction, error)
		MarkTransactionSynced(ctx context.Context, id int64, rowRef string) error
	}
)
