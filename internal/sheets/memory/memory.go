// Package memory is an in-process ledger exporter, used when no spreadsheet
// is configured and in tests.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"fintrack/internal/core"
	ports "fintrack/internal/sheets"
)

var _ ports.LedgerExporter = (*Exporter)(nil)

type Exporter struct {
	mu   sync.Mutex
	rows map[int64]core.Transaction
}

func New() *Exporter {
	return &Exporter{rows: map[int64]core.Transaction{}}
}

// Append stores the transaction and returns a synthetic row reference.
func (e *Exporter) Append(_ context.Context, tx core.Transaction) (string, error) {
	if tx.ID <= 0 {
		return "", fmt.Errorf("invalid transaction id %d", tx.ID)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.rows[tx.ID] = tx
	return fmt.Sprintf("mem:%d", tx.ID), nil
}

func (e *Exporter) DeleteTransaction(_ context.Context, id int64, _ core.Date) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.rows, id)
	return nil
}

// Rows returns the exported transactions ordered by id.
func (e *Exporter) Rows() []core.Transaction {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]core.Transaction, 0, len(e.rows))
	for _, tx := range e.rows {
		out = append(out, tx)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
