// Package google mirrors the ledger into a Google Sheets spreadsheet.
//
// Each calendar year gets its own sheet named "<year> <base>", with one row
// per transaction: ID | Date | Type | Category | Description | Amount.
package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"fintrack/internal/core"
	ports "fintrack/internal/sheets"

	"google.golang.org/api/googleapi"
	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

const DefaultSheetBase = "Ledger"

// Sheets answers 400 for a range on a sheet that does not exist.
var errSheetMissing = errors.New("sheet does not exist")

var header = []any{"ID", "Date", "Type", "Category", "Description", "Amount"}

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetBase     string
}

// Ensure interface conformance
var _ ports.LedgerExporter = (*Client)(nil)

// NewFromEnv creates a Sheets client using environment variables.
// Required: GOOGLE_SPREADSHEET_ID
// Optional: GOOGLE_SHEET_NAME (default "Ledger")
// Auth: GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE or GOOGLE_APPLICATION_CREDENTIALS.
func NewFromEnv(ctx context.Context) (*Client, error) {
	spreadsheetID := strings.TrimSpace(os.Getenv("GOOGLE_SPREADSHEET_ID"))
	if spreadsheetID == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}

	svc, err := newSheetsService(ctx)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	return New(svc, spreadsheetID, os.Getenv("GOOGLE_SHEET_NAME")), nil
}

// New wraps an existing service. An empty base selects DefaultSheetBase.
func New(svc *gsheet.Service, spreadsheetID, sheetBase string) *Client {
	sheetBase = strings.TrimSpace(sheetBase)
	if sheetBase == "" {
		sheetBase = DefaultSheetBase
	}
	return &Client{svc: svc, spreadsheetID: spreadsheetID, sheetBase: sheetBase}
}

// newSheetsService initializes a Sheets Service using Service Account credentials.
func newSheetsService(ctx context.Context) (*gsheet.Service, error) {
	serviceAccountJSON := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON"))
	serviceAccountFile := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE"))
	if serviceAccountJSON == "" && serviceAccountFile == "" {
		serviceAccountFile = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	var credentialsJSON []byte
	switch {
	case serviceAccountJSON != "":
		slog.InfoContext(ctx, "Using inline JSON credentials")
		credentialsJSON = []byte(serviceAccountJSON)
	case serviceAccountFile != "":
		slog.InfoContext(ctx, "Reading credentials from file", "path", serviceAccountFile)
		b, err := os.ReadFile(serviceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		credentialsJSON = b
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}

	service, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return service, nil
}

func (c *Client) sheetName(year int) string {
	return yearPrefixedName(c.sheetBase, year)
}

// Append writes tx to its year's sheet and returns the written range.
// A transaction already present is not written twice.
func (c *Client) Append(ctx context.Context, tx core.Transaction) (string, error) {
	if c.svc == nil {
		return "", errors.New("sheets service not initialized")
	}
	if tx.ID <= 0 {
		return "", fmt.Errorf("invalid transaction id %d", tx.ID)
	}
	sheet := c.sheetName(tx.Date.Year())

	ids, rows, err := c.readIDs(ctx, sheet)
	if errors.Is(err, errSheetMissing) {
		if err := c.addSheet(ctx, sheet); err != nil {
			return "", err
		}
		ids, rows, err = map[int64]int{}, 0, nil
	}
	if err != nil {
		return "", err
	}
	if row, ok := ids[tx.ID]; ok {
		slog.DebugContext(ctx, "Transaction already exported", "id", tx.ID, "sheet", sheet, "row", row)
		return rowRange(sheet, row), nil
	}

	values := [][]any{}
	if rows == 0 {
		values = append(values, header)
	}
	values = append(values, []any{
		tx.ID,
		tx.Date.String(),
		string(tx.Type),
		tx.DisplayName(),
		tx.Description,
		core.FormatAmount(tx.Amount),
	})

	resp, err := c.svc.Spreadsheets.Values.Append(c.spreadsheetID, sheet+"!A:F", &gsheet.ValueRange{Values: values}).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("append to sheet %s: %w", sheet, err)
	}
	ref := sheet
	if resp.Updates != nil && resp.Updates.UpdatedRange != "" {
		ref = resp.Updates.UpdatedRange
	}
	return ref, nil
}

// DeleteTransaction clears the row of transaction id in the sheet for date's
// year. A missing row is not an error.
func (c *Client) DeleteTransaction(ctx context.Context, id int64, date core.Date) error {
	if c.svc == nil {
		return errors.New("sheets service not initialized")
	}
	year := date.Year()
	if date.IsZero() {
		year = time.Now().Year()
	}
	sheet := c.sheetName(year)

	ids, _, err := c.readIDs(ctx, sheet)
	if errors.Is(err, errSheetMissing) {
		return nil
	}
	if err != nil {
		return err
	}
	row, ok := ids[id]
	if !ok {
		slog.InfoContext(ctx, "Transaction not found in sheet, nothing to delete", "id", id, "sheet", sheet)
		return nil
	}
	rng := rowRange(sheet, row)
	if _, err := c.svc.Spreadsheets.Values.Clear(c.spreadsheetID, rng, &gsheet.ClearValuesRequest{}).
		Context(ctx).Do(); err != nil {
		return fmt.Errorf("clear %s: %w", rng, err)
	}
	return nil
}

// readIDs maps transaction ids in column A to their 1-based row numbers and
// reports how many rows the sheet has.
func (c *Client) readIDs(ctx context.Context, sheet string) (map[int64]int, int, error) {
	rng := sheet + "!A:A"
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		var gerr *googleapi.Error
		if errors.As(err, &gerr) && gerr.Code == http.StatusBadRequest {
			return nil, 0, fmt.Errorf("read %s: %w", rng, errSheetMissing)
		}
		return nil, 0, fmt.Errorf("read %s: %w", rng, err)
	}
	ids := make(map[int64]int, len(resp.Values))
	for i, row := range resp.Values {
		if len(row) == 0 {
			continue
		}
		id, err := strconv.ParseInt(strings.TrimSpace(fmt.Sprint(row[0])), 10, 64)
		if err != nil {
			continue
		}
		ids[id] = i + 1
	}
	return ids, len(resp.Values), nil
}

// addSheet creates the yearly sheet the first time a transaction lands in it.
func (c *Client) addSheet(ctx context.Context, sheet string) error {
	req := &gsheet.BatchUpdateSpreadsheetRequest{
		Requests: []*gsheet.Request{{
			AddSheet: &gsheet.AddSheetRequest{Properties: &gsheet.SheetProperties{Title: sheet}},
		}},
	}
	if _, err := c.svc.Spreadsheets.BatchUpdate(c.spreadsheetID, req).Context(ctx).Do(); err != nil {
		return fmt.Errorf("add sheet %s: %w", sheet, err)
	}
	slog.InfoContext(ctx, "Created yearly ledger sheet", "sheet", sheet)
	return nil
}

func rowRange(sheet string, row int) string {
	return fmt.Sprintf("%s!A%d:F%d", sheet, row, row)
}

// yearPrefixedName returns "<year> <base>" unless base already starts with a 4-digit year.
func yearPrefixedName(base string, year int) string {
	base = strings.TrimSpace(base)
	if base == "" {
		return base
	}
	if len(base) >= 5 {
		if y, err := strconv.Atoi(base[0:4]); err == nil && base[4] == ' ' && y > 1900 && y < 3000 {
			return base
		}
	}
	return fmt.Sprintf("%d %s", year, base)
}
