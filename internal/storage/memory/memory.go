// Package memory is an in-process implementation of the storage ports.
// It backs tests and DATA_BACKEND=memory; nothing survives a restart.
package memory

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"sort"
	"strings"
	"sync"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/ports"

	"github.com/shopspring/decimal"
)

type txRow struct {
	tx       core.Transaction
	syncedAt time.Time
	rowRef   string
}

type state struct {
	nextID     int64
	categories map[int64]core.Category
	budgets    map[int64]core.Budget
	txs        map[int64]txRow
}

func (st *state) clone() *state {
	return &state{
		nextID:     st.nextID,
		categories: maps.Clone(st.categories),
		budgets:    maps.Clone(st.budgets),
		txs:        maps.Clone(st.txs),
	}
}

// Store keeps every table in maps guarded by one mutex.
type Store struct {
	mu  sync.Mutex
	st  *state
	now func() time.Time
}

var (
	_ ports.Store     = (*Store)(nil)
	_ ports.SyncQueue = (*Store)(nil)
)

func New() *Store {
	return &Store{
		st: &state{
			categories: map[int64]core.Category{},
			budgets:    map[int64]core.Budget{},
			txs:        map[int64]txRow{},
		},
		now: time.Now,
	}
}

// WithinTx runs fn with exclusive access. If fn fails every change it made
// is discarded.
func (s *Store) WithinTx(ctx context.Context, fn func(ports.Repositories) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	snapshot := s.st.clone()
	if err := fn(&repos{st: s.st, now: s.now}); err != nil {
		s.st = snapshot
		return err
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error { return ctx.Err() }

func (s *Store) Close() error { return nil }

func (s *Store) Transactions() ports.TransactionRepository { return locked{s} }
func (s *Store) Budgets() ports.BudgetRepository           { return locked{s} }
func (s *Store) Categories() ports.CategoryRepository      { return locked{s} }

// GetTransactionByID implements ports.SyncQueue.
func (s *Store) GetTransactionByID(_ context.Context, id int64) (core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.st.txs[id]
	if !ok {
		return core.Transaction{}, fmt.Errorf("transaction %d: %w", id, core.ErrNotFound)
	}
	return s.st.resolveTx(row.tx), nil
}

// ListUnsyncedTransactions implements ports.SyncQueue.
func (s *Store) ListUnsyncedTransactions(_ context.Context, limit int) ([]core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Transaction
	for _, row := range s.st.txs {
		if row.syncedAt.IsZero() {
			out = append(out, s.st.resolveTx(row.tx))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// MarkTransactionSynced implements ports.SyncQueue.
func (s *Store) MarkTransactionSynced(_ context.Context, id int64, rowRef string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.st.txs[id]
	if !ok {
		return fmt.Errorf("transaction %d: %w", id, core.ErrNotFound)
	}
	row.syncedAt = s.now()
	row.rowRef = rowRef
	s.st.txs[id] = row
	return nil
}

// locked runs each repository call under the store mutex.
type locked struct{ s *Store }

func (l locked) do(fn func(r *repos) error) error {
	l.s.mu.Lock()
	defer l.s.mu.Unlock()
	return fn(&repos{st: l.s.st, now: l.s.now})
}

func (l locked) SumAmount(ctx context.Context, userID, categoryID int64, typ core.TransactionType, w core.DateWindow) (sum decimal.Decimal, err error) {
	err = l.do(func(r *repos) error {
		sum, err = r.SumAmount(ctx, userID, categoryID, typ, w)
		return err
	})
	return sum, err
}

func (l locked) CreateTransaction(ctx context.Context, tx core.Transaction) (out core.Transaction, err error) {
	err = l.do(func(r *repos) error {
		out, err = r.CreateTransaction(ctx, tx)
		return err
	})
	return out, err
}

func (l locked) GetTransaction(ctx context.Context, userID, id int64) (out core.Transaction, err error) {
	err = l.do(func(r *repos) error {
		out, err = r.GetTransaction(ctx, userID, id)
		return err
	})
	return out, err
}

func (l locked) ListTransactions(ctx context.Context, userID int64, limit int) (out []core.Transaction, err error) {
	err = l.do(func(r *repos) error {
		out, err = r.ListTransactions(ctx, userID, limit)
		return err
	})
	return out, err
}

func (l locked) DeleteTransaction(ctx context.Context, userID, id int64) (ok bool, err error) {
	err = l.do(func(r *repos) error {
		ok, err = r.DeleteTransaction(ctx, userID, id)
		return err
	})
	return ok, err
}

func (l locked) ListBudgets(ctx context.Context, userID int64) (out []core.Budget, err error) {
	err = l.do(func(r *repos) error {
		out, err = r.ListBudgets(ctx, userID)
		return err
	})
	return out, err
}

func (l locked) ListBudgetsByCategory(ctx context.Context, userID, categoryID int64) (out []core.Budget, err error) {
	err = l.do(func(r *repos) error {
		out, err = r.ListBudgetsByCategory(ctx, userID, categoryID)
		return err
	})
	return out, err
}

func (l locked) GetBudget(ctx context.Context, userID, id int64) (out core.Budget, err error) {
	err = l.do(func(r *repos) error {
		out, err = r.GetBudget(ctx, userID, id)
		return err
	})
	return out, err
}

func (l locked) CreateBudget(ctx context.Context, b core.Budget) (out core.Budget, err error) {
	err = l.do(func(r *repos) error {
		out, err = r.CreateBudget(ctx, b)
		return err
	})
	return out, err
}

func (l locked) UpdateBudget(ctx context.Context, b core.Budget) (out core.Budget, err error) {
	err = l.do(func(r *repos) error {
		out, err = r.UpdateBudget(ctx, b)
		return err
	})
	return out, err
}

func (l locked) DeleteBudget(ctx context.Context, userID, id int64) (ok bool, err error) {
	err = l.do(func(r *repos) error {
		ok, err = r.DeleteBudget(ctx, userID, id)
		return err
	})
	return ok, err
}

func (l locked) ListCategories(ctx context.Context, userID int64) (out []core.Category, err error) {
	err = l.do(func(r *repos) error {
		out, err = r.ListCategories(ctx, userID)
		return err
	})
	return out, err
}

func (l locked) GetCategoryByName(ctx context.Context, userID int64, name string) (out core.Category, err error) {
	err = l.do(func(r *repos) error {
		out, err = r.GetCategoryByName(ctx, userID, name)
		return err
	})
	return out, err
}

func (l locked) CreateCategory(ctx context.Context, c core.Category) (out core.Category, err error) {
	err = l.do(func(r *repos) error {
		out, err = r.CreateCategory(ctx, c)
		return err
	})
	return out, err
}

func (l locked) DeleteCategory(ctx context.Context, userID, id int64) (ok bool, err error) {
	err = l.do(func(r *repos) error {
		ok, err = r.DeleteCategory(ctx, userID, id)
		return err
	})
	return ok, err
}

// repos operates on state without locking; callers hold the store mutex.
type repos struct {
	st  *state
	now func() time.Time
}

func (r *repos) Transactions() ports.TransactionRepository { return r }
func (r *repos) Budgets() ports.BudgetRepository           { return r }
func (r *repos) Categories() ports.CategoryRepository      { return r }

func (st *state) id() int64 {
	st.nextID++
	return st.nextID
}

func (st *state) resolveTx(tx core.Transaction) core.Transaction {
	tx.CategoryName = ""
	if tx.CategoryID != nil {
		if c, ok := st.categories[*tx.CategoryID]; ok {
			tx.CategoryName = c.Name
		}
	}
	return tx
}

func (st *state) resolveBudget(b core.Budget) core.Budget {
	if c, ok := st.categories[b.CategoryID]; ok {
		b.CategoryName = c.Name
	}
	return b
}

func (r *repos) SumAmount(_ context.Context, userID, categoryID int64, typ core.TransactionType, w core.DateWindow) (decimal.Decimal, error) {
	sum := decimal.Zero
	for _, row := range r.st.txs {
		tx := row.tx
		if tx.UserID != userID || tx.Type != typ || tx.CategoryID == nil || *tx.CategoryID != categoryID {
			continue
		}
		if w.Contains(tx.Date) {
			sum = sum.Add(tx.Amount)
		}
	}
	return sum, nil
}

func (r *repos) CreateTransaction(_ context.Context, tx core.Transaction) (core.Transaction, error) {
	if tx.CategoryID != nil {
		if _, ok := r.st.categories[*tx.CategoryID]; !ok {
			return core.Transaction{}, fmt.Errorf("category %d: %w", *tx.CategoryID, core.ErrNotFound)
		}
		id := *tx.CategoryID
		tx.CategoryID = &id
	}
	tx.ID = r.st.id()
	tx.Amount = tx.Amount.Round(2)
	tx.CreatedAt = r.now().UTC()
	r.st.txs[tx.ID] = txRow{tx: tx}
	return r.st.resolveTx(tx), nil
}

func (r *repos) GetTransaction(_ context.Context, userID, id int64) (core.Transaction, error) {
	row, ok := r.st.txs[id]
	if !ok || row.tx.UserID != userID {
		return core.Transaction{}, core.ErrNotFound
	}
	return r.st.resolveTx(row.tx), nil
}

func (r *repos) ListTransactions(_ context.Context, userID int64, limit int) ([]core.Transaction, error) {
	var out []core.Transaction
	for _, row := range r.st.txs {
		if row.tx.UserID == userID {
			out = append(out, r.st.resolveTx(row.tx))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date.Time) {
			return out[i].Date.After(out[j].Date.Time)
		}
		return out[i].ID > out[j].ID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *repos) DeleteTransaction(_ context.Context, userID, id int64) (bool, error) {
	row, ok := r.st.txs[id]
	if !ok || row.tx.UserID != userID {
		return false, nil
	}
	delete(r.st.txs, id)
	return true, nil
}

func (r *repos) ListBudgets(_ context.Context, userID int64) ([]core.Budget, error) {
	return r.budgetsWhere(func(b core.Budget) bool { return b.UserID == userID }), nil
}

func (r *repos) ListBudgetsByCategory(_ context.Context, userID, categoryID int64) ([]core.Budget, error) {
	return r.budgetsWhere(func(b core.Budget) bool {
		return b.UserID == userID && b.CategoryID == categoryID
	}), nil
}

func (r *repos) budgetsWhere(keep func(core.Budget) bool) []core.Budget {
	var out []core.Budget
	for _, b := range r.st.budgets {
		if keep(b) {
			out = append(out, r.st.resolveBudget(b))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out
}

func (r *repos) GetBudget(_ context.Context, userID, id int64) (core.Budget, error) {
	b, ok := r.st.budgets[id]
	if !ok || b.UserID != userID {
		return core.Budget{}, core.ErrNotFound
	}
	return r.st.resolveBudget(b), nil
}

func (r *repos) CreateBudget(_ context.Context, b core.Budget) (core.Budget, error) {
	if _, ok := r.st.categories[b.CategoryID]; !ok {
		return core.Budget{}, fmt.Errorf("category %d: %w", b.CategoryID, core.ErrNotFound)
	}
	b.ID = r.st.id()
	b.Amount = b.Amount.Round(2)
	b.CreatedAt = r.now().UTC()
	r.st.budgets[b.ID] = b
	return r.st.resolveBudget(b), nil
}

func (r *repos) UpdateBudget(_ context.Context, b core.Budget) (core.Budget, error) {
	cur, ok := r.st.budgets[b.ID]
	if !ok || cur.UserID != b.UserID {
		return core.Budget{}, core.ErrNotFound
	}
	if _, ok := r.st.categories[b.CategoryID]; !ok {
		return core.Budget{}, fmt.Errorf("category %d: %w", b.CategoryID, core.ErrNotFound)
	}
	b.CreatedAt = cur.CreatedAt
	b.Amount = b.Amount.Round(2)
	r.st.budgets[b.ID] = b
	return r.st.resolveBudget(b), nil
}

func (r *repos) DeleteBudget(_ context.Context, userID, id int64) (bool, error) {
	b, ok := r.st.budgets[id]
	if !ok || b.UserID != userID {
		return false, nil
	}
	delete(r.st.budgets, id)
	return true, nil
}

// ListCategories returns the user's categories and the global ones.
func (r *repos) ListCategories(_ context.Context, userID int64) ([]core.Category, error) {
	var out []core.Category
	for _, c := range r.st.categories {
		if c.UserID == userID || c.UserID == 0 {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// GetCategoryByName prefers the user's own category over a global one.
func (r *repos) GetCategoryByName(_ context.Context, userID int64, name string) (core.Category, error) {
	name = strings.TrimSpace(name)
	var global *core.Category
	for _, c := range r.st.categories {
		if c.Name != name {
			continue
		}
		if c.UserID == userID {
			return c, nil
		}
		if c.UserID == 0 {
			global = &c
		}
	}
	if global != nil {
		return *global, nil
	}
	return core.Category{}, core.ErrNotFound
}

var errDuplicateCategory = errors.New("category already exists")

func (r *repos) CreateCategory(_ context.Context, c core.Category) (core.Category, error) {
	c.Name = strings.TrimSpace(c.Name)
	for _, other := range r.st.categories {
		if other.UserID == c.UserID && other.Name == c.Name {
			return core.Category{}, fmt.Errorf("%w: %q", errDuplicateCategory, c.Name)
		}
	}
	c.ID = r.st.id()
	c.CreatedAt = r.now().UTC()
	r.st.categories[c.ID] = c
	return c, nil
}

// DeleteCategory cascades to budgets and detaches transactions.
func (r *repos) DeleteCategory(_ context.Context, userID, id int64) (bool, error) {
	c, ok := r.st.categories[id]
	if !ok || c.UserID != userID {
		return false, nil
	}
	delete(r.st.categories, id)
	for bid, b := range r.st.budgets {
		if b.CategoryID == id {
			delete(r.st.budgets, bid)
		}
	}
	for tid, row := range r.st.txs {
		if row.tx.CategoryID != nil && *row.tx.CategoryID == id {
			row.tx.CategoryID = nil
			r.st.txs[tid] = row
		}
	}
	return true, nil
}
