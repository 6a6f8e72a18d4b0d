package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"fintrack/internal/amqp"
	"fintrack/internal/core"
	"fintrack/internal/ports"
	"fintrack/internal/sheets"
)

// SyncWorker mirrors transactions from the database into the ledger export.
type SyncWorker struct {
	queue     ports.SyncQueue
	exporter  sheets.LedgerExporter
	batchSize int
}

func NewSyncWorker(queue ports.SyncQueue, exporter sheets.LedgerExporter, batchSize int) *SyncWorker {
	if batchSize <= 0 {
		batchSize = 50
	}
	return &SyncWorker{
		queue:     queue,
		exporter:  exporter,
		batchSize: batchSize,
	}
}

// HandleMessage dispatches an AMQP message by type. It matches amqp.Handler.
func (w *SyncWorker) HandleMessage(ctx context.Context, msg *amqp.TransactionMessage) error {
	switch msg.Type {
	case amqp.TypeTransactionSync:
		return w.HandleSyncMessage(ctx, msg)
	case amqp.TypeTransactionDelete:
		return w.HandleDeleteMessage(ctx, msg)
	}
	return fmt.Errorf("unsupported message type %q", msg.Type)
}

// HandleSyncMessage exports one new transaction.
func (w *SyncWorker) HandleSyncMessage(ctx context.Context, msg *amqp.TransactionMessage) error {
	slog.InfoContext(ctx, "Processing sync message", "id", msg.ID, "user_id", msg.UserID)

	tx, err := w.queue.GetTransactionByID(ctx, msg.ID)
	if errors.Is(err, core.ErrNotFound) {
		// deleted before it was exported; the delete message cleans up
		slog.WarnContext(ctx, "Transaction no longer exists, skipping sync", "id", msg.ID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("get transaction from storage: %w", err)
	}
	return w.export(ctx, tx)
}

// HandleDeleteMessage removes a transaction from the export.
func (w *SyncWorker) HandleDeleteMessage(ctx context.Context, msg *amqp.TransactionMessage) error {
	slog.InfoContext(ctx, "Processing delete message", "id", msg.ID, "date", msg.Date)

	if err := w.exporter.DeleteTransaction(ctx, msg.ID, msg.Date); err != nil {
		return fmt.Errorf("delete transaction from export: %w", err)
	}
	slog.InfoContext(ctx, "Deleted transaction from export", "id", msg.ID)
	return nil
}

// ProcessPending exports transactions that were never synced, which covers
// messages lost while the broker or the worker was down. It returns how many
// rows were exported.
func (w *SyncWorker) ProcessPending(ctx context.Context) (int, error) {
	pending, err := w.queue.ListUnsyncedTransactions(ctx, w.batchSize)
	if err != nil {
		return 0, fmt.Errorf("list pending transactions: %w", err)
	}
	if len(pending) == 0 {
		return 0, nil
	}

	slog.InfoContext(ctx, "Processing pending transactions", "count", len(pending))

	done := 0
	for _, tx := range pending {
		if err := ctx.Err(); err != nil {
			return done, err
		}
		if err := w.export(ctx, tx); err != nil {
			slog.ErrorContext(ctx, "Failed to export pending transaction", "id", tx.ID, "error", err)
			continue
		}
		done++
	}
	return done, nil
}

// StartupSyncCheck drains the pending backlog once before consuming.
func (w *SyncWorker) StartupSyncCheck(ctx context.Context) error {
	total := 0
	for {
		n, err := w.ProcessPending(ctx)
		if err != nil {
			return err
		}
		total += n
		if n < w.batchSize {
			break
		}
	}
	slog.InfoContext(ctx, "Startup sync check complete", "exported", total)
	return nil
}

func (w *SyncWorker) export(ctx context.Context, tx core.Transaction) error {
	ref, err := w.exporter.Append(ctx, tx)
	if err != nil {
		return fmt.Errorf("append to export: %w", err)
	}
	if err := w.queue.MarkTransactionSynced(ctx, tx.ID, ref); err != nil {
		return fmt.Errorf("mark transaction synced: %w", err)
	}
	slog.InfoContext(ctx, "Exported transaction", "id", tx.ID, "ref", ref)
	return nil
}
