package core

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	Income  TransactionType = "Income"
	Expense TransactionType = "Expense"
)

const (
	Monthly PeriodKind = "monthly"
	Yearly  PeriodKind = "yearly"
	OneTime PeriodKind = "one-time"
)

// UncategorizedName is shown for transactions whose category was removed or never set.
const UncategorizedName = "Uncategorized"

// MaxYear is the last year a Date may carry. Dates are stored as
// YYYY-MM-DD text, which only sorts correctly with four-digit years.
const MaxYear = 9999

const (
	maxCategoryName = 50
	maxDescription  = 500
)

type (
	TransactionType string

	PeriodKind string

	Date struct {
		time.Time
	}

	Category struct {
		ID        int64
		UserID    int64 // 0 for global categories
		Name      string
		Icon      string
		Color     string // #rrggbb
		CreatedAt time.Time
	}

	Transaction struct {
		ID           int64
		UserID       int64
		Type         TransactionType
		Amount       decimal.Decimal
		Date         Date
		CategoryID   *int64 // weak reference, nil when uncategorized
		CategoryName string
		Description  string
		CreatedAt    time.Time
	}

	Budget struct {
		ID           int64
		UserID       int64
		CategoryID   int64
		CategoryName string
		Amount       decimal.Decimal
		Period       PeriodKind
		StartDate    Date
		CreatedAt    time.Time
	}
)

var (
	ErrNotFound        = errors.New("not found")
	ErrInvalidAmount   = errors.New("invalid amount")
	ErrInvalidPeriod   = errors.New("invalid period")
	ErrInvalidType     = errors.New("invalid transaction type")
	ErrInvalidDate     = errors.New("invalid date")
	ErrInvalidColor    = errors.New("invalid color")
	ErrInvalidUser     = errors.New("invalid user")
	ErrEmptyCategory   = errors.New("empty category name")
	ErrOverBudget      = errors.New("transaction exceeds budget")
	ErrDescriptionSize = fmt.Errorf("description too long (max %d characters)", maxDescription)
)

var hexColor = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)

// ParseTransactionType accepts the canonical names case-insensitively.
func ParseTransactionType(s string) (TransactionType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "income":
		return Income, nil
	case "expense":
		return Expense, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidType, s)
}

func (t TransactionType) Validate() error {
	switch t {
	case Income, Expense:
		return nil
	}
	return fmt.Errorf("%w: %q", ErrInvalidType, string(t))
}

// ParsePeriodKind accepts "monthly", "yearly" and "one-time" (also spelled one_time or onetime).
func ParsePeriodKind(s string) (PeriodKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "monthly":
		return Monthly, nil
	case "yearly":
		return Yearly, nil
	case "one-time", "one_time", "onetime":
		return OneTime, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidPeriod, s)
}

func (p PeriodKind) Validate() error {
	switch p {
	case Monthly, Yearly, OneTime:
		return nil
	}
	return fmt.Errorf("%w: %q", ErrInvalidPeriod, string(p))
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf keeps the calendar date of t as seen in t's own location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return NewDate(y, int(m), d)
}

// ParseDate parses a date string in YYYY-MM-DD format.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(time.DateOnly, strings.TrimSpace(s))
	if err != nil {
		return Date{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return Date{Time: t}, nil
}

func (d Date) Validate() error {
	if d.IsZero() {
		return fmt.Errorf("%w: date cannot be zero", ErrInvalidDate)
	}
	if d.Year() < 1 || d.Year() > MaxYear {
		return fmt.Errorf("%w: year %d out of range", ErrInvalidDate, d.Year())
	}
	return nil
}

// Day returns the day of the month
func (d Date) Day() int {
	return d.Time.Day()
}

// Month returns the month
func (d Date) Month() int {
	return int(d.Time.Month())
}

// Year returns the year
func (d Date) Year() int {
	return d.Time.Year()
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(time.DateOnly)
}

func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.String() + `"`), nil
}

func (d *Date) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// DisplayName returns the category label, falling back to Uncategorized.
func (t Transaction) DisplayName() string {
	if t.CategoryID == nil || strings.TrimSpace(t.CategoryName) == "" {
		return UncategorizedName
	}
	return t.CategoryName
}

func (c Category) Validate() error {
	name := strings.TrimSpace(c.Name)
	if name == "" {
		return ErrEmptyCategory
	}
	if len(name) > maxCategoryName {
		return fmt.Errorf("category name too long (max %d characters)", maxCategoryName)
	}
	if !hexColor.MatchString(c.Color) {
		return fmt.Errorf("%w: %q", ErrInvalidColor, c.Color)
	}
	return nil
}

func (t Transaction) Validate() error {
	if t.UserID <= 0 {
		return ErrInvalidUser
	}
	if err := t.Type.Validate(); err != nil {
		return err
	}
	if err := ValidateAmount(t.Amount); err != nil {
		return err
	}
	if err := t.Date.Validate(); err != nil {
		return err
	}
	if len(t.Description) > maxDescription {
		return ErrDescriptionSize
	}
	return nil
}

func (b Budget) Validate() error {
	if b.UserID <= 0 {
		return ErrInvalidUser
	}
	if err := ValidateAmount(b.Amount); err != nil {
		return err
	}
	if err := b.Period.Validate(); err != nil {
		return err
	}
	if err := b.StartDate.Validate(); err != nil {
		return fmt.Errorf("invalid start date: %w", err)
	}
	return nil
}
