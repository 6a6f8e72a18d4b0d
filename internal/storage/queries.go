package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/ports"

	"github.com/shopspring/decimal"
)

// Queries implements the repository ports over any DBTX.
type Queries struct {
	db  DBTX
	now func() time.Time
}

func New(db DBTX) *Queries {
	return &Queries{db: db, now: time.Now}
}

// WithTx returns a copy of q bound to tx.
func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx, now: q.now}
}

func (q *Queries) Transactions() ports.TransactionRepository { return q }
func (q *Queries) Budgets() ports.BudgetRepository           { return q }
func (q *Queries) Categories() ports.CategoryRepository      { return q }

type scanner interface {
	Scan(dest ...any) error
}

func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return core.ErrNotFound
	}
	return err
}

// Transactions

const selectTransaction = `SELECT t.id, t.user_id, t.type, t.amount_cents, t.date,
	t.category_id, COALESCE(c.name, ''), t.description, t.created_at
	FROM transactions t LEFT JOIN categories c ON c.id = t.category_id`

func scanTransaction(s scanner) (core.Transaction, error) {
	var (
		tx         core.Transaction
		typ, date  string
		cents      int64
		categoryID sql.NullInt64
		createdAt  int64
	)
	if err := s.Scan(&tx.ID, &tx.UserID, &typ, &cents, &date,
		&categoryID, &tx.CategoryName, &tx.Description, &createdAt); err != nil {
		return core.Transaction{}, notFound(err)
	}
	d, err := core.ParseDate(date)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("scan transaction %d: %w", tx.ID, err)
	}
	tx.Type = core.TransactionType(typ)
	tx.Amount = core.FromCents(cents)
	tx.Date = d
	if categoryID.Valid {
		id := categoryID.Int64
		tx.CategoryID = &id
	}
	tx.CreatedAt = time.Unix(0, createdAt).UTC()
	return tx, nil
}

func collectTransactions(rows *sql.Rows) ([]core.Transaction, error) {
	defer rows.Close()
	var out []core.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, tx)
	}
	return out, rows.Err()
}

// SumAmount adds integer cents in SQL so the total is exact. Stored dates
// never pass core.MaxYear, so an upper bound beyond it is left off rather
// than compared as five-digit text.
func (q *Queries) SumAmount(ctx context.Context, userID, categoryID int64, typ core.TransactionType, w core.DateWindow) (decimal.Decimal, error) {
	query := `SELECT COALESCE(SUM(amount_cents), 0) FROM transactions
		WHERE user_id = ? AND category_id = ? AND type = ? AND date >= ?`
	args := []any{userID, categoryID, string(typ), w.From.String()}
	if !w.IsOpen() && w.Until.Year() <= core.MaxYear {
		query += ` AND date < ?`
		args = append(args, w.Until.String())
	}
	var cents int64
	if err := q.db.QueryRowContext(ctx, query, args...).Scan(&cents); err != nil {
		return decimal.Zero, fmt.Errorf("sum transactions: %w", err)
	}
	return core.FromCents(cents), nil
}

func (q *Queries) CreateTransaction(ctx context.Context, tx core.Transaction) (core.Transaction, error) {
	var categoryID any
	if tx.CategoryID != nil {
		categoryID = *tx.CategoryID
	}
	created := q.now().UTC()
	res, err := q.db.ExecContext(ctx,
		`INSERT INTO transactions (user_id, type, amount_cents, date, category_id, description, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		tx.UserID, string(tx.Type), core.CentsOf(tx.Amount), tx.Date.String(),
		categoryID, tx.Description, created.UnixNano())
	if err != nil {
		return core.Transaction{}, fmt.Errorf("insert transaction: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return core.Transaction{}, fmt.Errorf("insert transaction: %w", err)
	}
	return q.GetTransaction(ctx, tx.UserID, id)
}

func (q *Queries) GetTransaction(ctx context.Context, userID, id int64) (core.Transaction, error) {
	row := q.db.QueryRowContext(ctx, selectTransaction+` WHERE t.id = ? AND t.user_id = ?`, id, userID)
	return scanTransaction(row)
}

func (q *Queries) ListTransactions(ctx context.Context, userID int64, limit int) ([]core.Transaction, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := q.db.QueryContext(ctx,
		selectTransaction+` WHERE t.user_id = ? ORDER BY t.date DESC, t.id DESC LIMIT ?`,
		userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return collectTransactions(rows)
}

func (q *Queries) DeleteTransaction(ctx context.Context, userID, id int64) (bool, error) {
	res, err := q.db.ExecContext(ctx, `DELETE FROM transactions WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return false, fmt.Errorf("delete transaction: %w", err)
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// Budgets

const selectBudget = `SELECT b.id, b.user_id, b.category_id, c.name, b.amount_cents,
	b.period, b.start_date, b.created_at
	FROM budgets b JOIN categories c ON c.id = b.category_id`

func scanBudget(s scanner) (core.Budget, error) {
	var (
		b                 core.Budget
		period, startDate string
		cents, createdAt  int64
	)
	if err := s.Scan(&b.ID, &b.UserID, &b.CategoryID, &b.CategoryName, &cents,
		&period, &startDate, &createdAt); err != nil {
		return core.Budget{}, notFound(err)
	}
	d, err := core.ParseDate(startDate)
	if err != nil {
		return core.Budget{}, fmt.Errorf("scan budget %d: %w", b.ID, err)
	}
	b.Amount = core.FromCents(cents)
	b.Period = core.PeriodKind(period)
	b.StartDate = d
	b.CreatedAt = time.Unix(0, createdAt).UTC()
	return b, nil
}

func (q *Queries) listBudgets(ctx context.Context, where string, args ...any) ([]core.Budget, error) {
	rows, err := q.db.QueryContext(ctx,
		selectBudget+` WHERE `+where+` ORDER BY b.created_at DESC, b.id DESC`, args...)
	if err != nil {
		return nil, fmt.Errorf("list budgets: %w", err)
	}
	defer rows.Close()
	var out []core.Budget
	for rows.Next() {
		b, err := scanBudget(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (q *Queries) ListBudgets(ctx context.Context, userID int64) ([]core.Budget, error) {
	return q.listBudgets(ctx, `b.user_id = ?`, userID)
}

func (q *Queries) ListBudgetsByCategory(ctx context.Context, userID, categoryID int64) ([]core.Budget, error) {
	return q.listBudgets(ctx, `b.user_id = ? AND b.category_id = ?`, userID, categoryID)
}

func (q *Queries) GetBudget(ctx context.Context, userID, id int64) (core.Budget, error) {
	row := q.db.QueryRowContext(ctx, selectBudget+` WHERE b.id = ? AND b.user_id = ?`, id, userID)
	return scanBudget(row)
}

func (q *Queries) CreateBudget(ctx context.Context, b core.Budget) (core.Budget, error) {
	res, err := q.db.ExecContext(ctx,
		`INSERT INTO budgets (user_id, category_id, amount_cents, period, start_date, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		b.UserID, b.CategoryID, core.CentsOf(b.Amount), string(b.Period),
		b.StartDate.String(), q.now().UTC().UnixNano())
	if err != nil {
		return core.Budget{}, fmt.Errorf("insert budget: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return core.Budget{}, fmt.Errorf("insert budget: %w", err)
	}
	return q.GetBudget(ctx, b.UserID, id)
}

func (q *Queries) UpdateBudget(ctx context.Context, b core.Budget) (core.Budget, error) {
	res, err := q.db.ExecContext(ctx,
		`UPDATE budgets SET category_id = ?, amount_cents = ?, period = ?, start_date = ?
		WHERE id = ? AND user_id = ?`,
		b.CategoryID, core.CentsOf(b.Amount), string(b.Period), b.StartDate.String(), b.ID, b.UserID)
	if err != nil {
		return core.Budget{}, fmt.Errorf("update budget: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return core.Budget{}, core.ErrNotFound
	}
	return q.GetBudget(ctx, b.UserID, b.ID)
}

func (q *Queries) DeleteBudget(ctx context.Context, userID, id int64) (bool, error) {
	res, err := q.db.ExecContext(ctx, `DELETE FROM budgets WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return false, fmt.Errorf("delete budget: %w", err)
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// Categories

const selectCategory = `SELECT id, user_id, name, icon, color, created_at FROM categories`

func scanCategory(s scanner) (core.Category, error) {
	var (
		c         core.Category
		createdAt int64
	)
	if err := s.Scan(&c.ID, &c.UserID, &c.Name, &c.Icon, &c.Color, &createdAt); err != nil {
		return core.Category{}, notFound(err)
	}
	c.CreatedAt = time.Unix(0, createdAt).UTC()
	return c, nil
}

// ListCategories returns the user's categories and the global ones.
func (q *Queries) ListCategories(ctx context.Context, userID int64) ([]core.Category, error) {
	rows, err := q.db.QueryContext(ctx,
		selectCategory+` WHERE user_id IN (?, 0) ORDER BY name, id`, userID)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()
	var out []core.Category
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// GetCategoryByName prefers the user's own category over a global one.
func (q *Queries) GetCategoryByName(ctx context.Context, userID int64, name string) (core.Category, error) {
	row := q.db.QueryRowContext(ctx,
		selectCategory+` WHERE name = ? AND user_id IN (?, 0) ORDER BY user_id DESC LIMIT 1`,
		strings.TrimSpace(name), userID)
	return scanCategory(row)
}

func (q *Queries) CreateCategory(ctx context.Context, c core.Category) (core.Category, error) {
	c.Name = strings.TrimSpace(c.Name)
	c.CreatedAt = q.now().UTC()
	res, err := q.db.ExecContext(ctx,
		`INSERT INTO categories (user_id, name, icon, color, created_at) VALUES (?, ?, ?, ?, ?)`,
		c.UserID, c.Name, c.Icon, c.Color, c.CreatedAt.UnixNano())
	if err != nil {
		return core.Category{}, fmt.Errorf("insert category: %w", err)
	}
	if c.ID, err = res.LastInsertId(); err != nil {
		return core.Category{}, fmt.Errorf("insert category: %w", err)
	}
	return c, nil
}

// DeleteCategory relies on the foreign keys: budgets cascade and
// transactions have their category set to NULL.
func (q *Queries) DeleteCategory(ctx context.Context, userID, id int64) (bool, error) {
	res, err := q.db.ExecContext(ctx, `DELETE FROM categories WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return false, fmt.Errorf("delete category: %w", err)
	}
	n, err := res.RowsAffected()
	return n > 0, err
}
