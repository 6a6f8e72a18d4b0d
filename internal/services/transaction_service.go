package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/ports"

	"github.com/shopspring/decimal"
)

// RecentLimit is the number of transactions shown on the dashboard.
const RecentLimit = 3

// Publisher announces ledger changes to the export worker.
type Publisher interface {
	PublishTransactionSync(ctx context.Context, id, userID int64) error
	PublishTransactionDelete(ctx context.Context, id, userID int64, date core.Date) error
	Close() error
}

// TransactionServiceConfig holds configuration for the transaction service
type TransactionServiceConfig struct {
	// BlockOverBudget refuses expenses that would push a budget over its amount
	BlockOverBudget bool

	// Now supplies the default transaction date (default: time.Now)
	Now func() time.Time
}

// TransactionInput is the payload of Record. A zero Date means today.
type TransactionInput struct {
	Type         core.TransactionType
	Amount       decimal.Decimal
	Date         core.Date
	CategoryName string
	Description  string
}

// TransactionService orchestrates ledger writes across storage and AMQP
type TransactionService struct {
	store     ports.Store
	publisher Publisher
	config    TransactionServiceConfig
}

// NewTransactionService wires the service. publisher may be nil, in which
// case no sync messages are sent.
func NewTransactionService(store ports.Store, publisher Publisher, config TransactionServiceConfig) *TransactionService {
	if config.Now == nil {
		config.Now = time.Now
	}
	return &TransactionService{
		store:     store,
		publisher: publisher,
		config:    config,
	}
}

// Record validates and stores a transaction, then publishes a sync message.
// Publishing is best effort: a failure is logged and the stored row stands.
func (s *TransactionService) Record(ctx context.Context, userID int64, in TransactionInput) (core.Transaction, error) {
	tx := core.Transaction{
		UserID:      userID,
		Type:        in.Type,
		Amount:      in.Amount,
		Date:        in.Date,
		Description: strings.TrimSpace(in.Description),
	}
	if tx.Date.IsZero() {
		tx.Date = core.DateOf(s.config.Now())
	}
	if err := tx.Validate(); err != nil {
		return core.Transaction{}, err
	}

	var saved core.Transaction
	err := s.store.WithinTx(ctx, func(r ports.Repositories) error {
		if strings.TrimSpace(in.CategoryName) != "" {
			cat, err := resolveCategory(ctx, r.Categories(), userID, in.CategoryName)
			if err != nil {
				return err
			}
			tx.CategoryID = &cat.ID
			tx.CategoryName = cat.Name

			if s.config.BlockOverBudget && tx.Type == core.Expense {
				if err := checkBudgets(ctx, r, tx); err != nil {
					return err
				}
			}
		}

		var err error
		saved, err = r.Transactions().CreateTransaction(ctx, tx)
		if err != nil {
			return fmt.Errorf("save transaction: %w", err)
		}
		return nil
	})
	if err != nil {
		return core.Transaction{}, err
	}

	if err := s.publishSync(ctx, saved); err != nil {
		slog.ErrorContext(ctx, "Failed to publish sync message",
			"id", saved.ID, "error", err)
		// Don't fail the request - transaction is saved locally
	}
	return saved, nil
}

// checkBudgets refuses tx when any budget on its category, evaluated at the
// transaction date, would end up over its amount.
func checkBudgets(ctx context.Context, r ports.Repositories, tx core.Transaction) error {
	budgets, err := r.Budgets().ListBudgetsByCategory(ctx, tx.UserID, *tx.CategoryID)
	if err != nil {
		return fmt.Errorf("list budgets: %w", err)
	}
	eval := NewEvaluator(r.Transactions())
	for _, b := range budgets {
		w, err := eval.ActiveWindow(b, tx.Date)
		if err != nil {
			return err
		}
		if !w.Contains(tx.Date) {
			continue
		}
		spent, err := eval.SpentAmount(ctx, b, tx.Date)
		if err != nil {
			return err
		}
		if spent.Add(tx.Amount).GreaterThan(b.Amount) {
			return fmt.Errorf("%w: %s budget for %s has %s left",
				core.ErrOverBudget, b.Period, b.CategoryName, core.FormatAmount(b.Amount.Sub(spent)))
		}
	}
	return nil
}

// List returns the user's transactions, newest first.
func (s *TransactionService) List(ctx context.Context, userID int64, limit int) ([]core.Transaction, error) {
	txs, err := s.store.Transactions().ListTransactions(ctx, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return txs, nil
}

// Recent returns the last few transactions for the dashboard.
func (s *TransactionService) Recent(ctx context.Context, userID int64) ([]core.Transaction, error) {
	return s.List(ctx, userID, RecentLimit)
}

// Delete removes a transaction owned by the user and publishes a delete
// message. Missing or foreign ids fail with core.ErrNotFound.
func (s *TransactionService) Delete(ctx context.Context, userID, id int64) error {
	var deleted core.Transaction
	err := s.store.WithinTx(ctx, func(r ports.Repositories) error {
		tx, err := r.Transactions().GetTransaction(ctx, userID, id)
		if err != nil {
			return fmt.Errorf("transaction %d: %w", id, err)
		}
		ok, err := r.Transactions().DeleteTransaction(ctx, userID, id)
		if err != nil {
			return fmt.Errorf("delete transaction %d: %w", id, err)
		}
		if !ok {
			return fmt.Errorf("transaction %d: %w", id, core.ErrNotFound)
		}
		deleted = tx
		return nil
	})
	if err != nil {
		return err
	}

	if err := s.publishDelete(ctx, deleted); err != nil {
		slog.ErrorContext(ctx, "Failed to publish delete message",
			"id", id, "error", err)
		// Don't fail the request - transaction is deleted locally
	}
	return nil
}

func (s *TransactionService) publishSync(ctx context.Context, tx core.Transaction) error {
	if s.publisher == nil {
		slog.DebugContext(ctx, "AMQP publisher not available, skipping sync message")
		return nil
	}
	return s.publisher.PublishTransactionSync(ctx, tx.ID, tx.UserID)
}

func (s *TransactionService) publishDelete(ctx context.Context, tx core.Transaction) error {
	if s.publisher == nil {
		slog.DebugContext(ctx, "AMQP publisher not available, skipping delete message")
		return nil
	}
	return s.publisher.PublishTransactionDelete(ctx, tx.ID, tx.UserID, tx.Date)
}

// SyncStatus reports whether sync messages are published and, when the
// publisher can tell, whether it is currently able to deliver them.
func (s *TransactionService) SyncStatus() (enabled, healthy bool) {
	if s.publisher == nil {
		return false, false
	}
	if h, ok := s.publisher.(interface{ Healthy() bool }); ok {
		return true, h.Healthy()
	}
	return true, true
}

// Close closes the publisher. The store is owned by the caller.
func (s *TransactionService) Close() error {
	if s.publisher == nil {
		return nil
	}
	if err := s.publisher.Close(); err != nil {
		return fmt.Errorf("close transaction service: amqp: %w", err)
	}
	return nil
}
