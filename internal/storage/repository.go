package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/ports"

	_ "modernc.org/sqlite"
)

var (
	_ ports.Store     = (*SQLiteRepository)(nil)
	_ ports.SyncQueue = (*SQLiteRepository)(nil)
)

// DBTX is satisfied by both *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
}

// DSN returns the connection string used for dbPath. Foreign keys must be on
// for category deletes to cascade.
func DSN(dbPath string) string {
	return "file:" + dbPath + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	dsn := DSN(dbPath)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// SQLite allows one writer; a single connection serializes transactions
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dsn); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	slog.Info("SQLite repository ready", "path", dbPath)

	return &SQLiteRepository{
		db:      db,
		queries: New(db),
	}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *SQLiteRepository) Transactions() ports.TransactionRepository { return r.queries }
func (r *SQLiteRepository) Budgets() ports.BudgetRepository           { return r.queries }
func (r *SQLiteRepository) Categories() ports.CategoryRepository      { return r.queries }

// WithinTx runs fn inside a database transaction, rolling back on error.
func (r *SQLiteRepository) WithinTx(ctx context.Context, fn func(ports.Repositories) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(r.queries.WithTx(tx)); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			slog.ErrorContext(ctx, "Rollback failed", "error", rbErr)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// GetTransactionByID implements ports.SyncQueue. It is not scoped to a user.
func (r *SQLiteRepository) GetTransactionByID(ctx context.Context, id int64) (core.Transaction, error) {
	row := r.db.QueryRowContext(ctx, selectTransaction+` WHERE t.id = ?`, id)
	tx, err := scanTransaction(row)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("transaction %d: %w", id, err)
	}
	return tx, nil
}

// ListUnsyncedTransactions implements ports.SyncQueue, oldest first.
func (r *SQLiteRepository) ListUnsyncedTransactions(ctx context.Context, limit int) ([]core.Transaction, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := r.db.QueryContext(ctx,
		selectTransaction+` WHERE t.synced_at IS NULL ORDER BY t.id ASC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list unsynced transactions: %w", err)
	}
	return collectTransactions(rows)
}

// MarkTransactionSynced implements ports.SyncQueue.
func (r *SQLiteRepository) MarkTransactionSynced(ctx context.Context, id int64, rowRef string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE transactions SET synced_at = ?, sheets_ref = ? WHERE id = ?`,
		time.Now().UnixNano(), rowRef, id)
	if err != nil {
		return fmt.Errorf("mark transaction %d synced: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("transaction %d: %w", id, core.ErrNotFound)
	}
	slog.DebugContext(ctx, "Transaction marked as synced", "id", id, "sheets_ref", rowRef)
	return nil
}
