package sheets

import (
	"context"

	"fintrack/internal/core"
)

// Ports for outbound adapters.
type (
	// LedgerWriter mirrors transactions into an external spreadsheet.
	LedgerWriter interface {
		Append(ctx context.Context, tx core.Transaction) (rowRef string, err error)
	}

	// LedgerDeleter removes a mirrored transaction by its id.
	LedgerDeleter interface {
		DeleteTransaction(ctx context.Context, id int64, date core.Date) error
	}

	LedgerExporter interface {
		LedgerWriter
		LedgerDeleter
	}
)
