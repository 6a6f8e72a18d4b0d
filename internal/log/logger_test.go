package log

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"fintrack/internal/core"

	"github.com/shopspring/decimal"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
		{"chatty", slog.LevelInfo},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var m map[string]any
	if err := json.Unmarshal(buf.Bytes(), &m); err != nil {
		t.Fatalf("log line is not json: %v (%q)", err, buf.String())
	}
	return m
}

func TestLoggerComponent(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Component: ComponentBudget, Handler: NewHandler(&buf, "json", slog.LevelInfo)})

	logger.Info("summary built", FieldUserID, int64(7))

	m := decodeLine(t, &buf)
	if m[FieldComponent] != ComponentBudget {
		t.Errorf("component = %v, want %s", m[FieldComponent], ComponentBudget)
	}
	if m[FieldUserID] != float64(7) {
		t.Errorf("user_id = %v, want 7", m[FieldUserID])
	}
}

func TestHandlerRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Component: ComponentApp, Handler: NewHandler(&buf, "text", slog.LevelWarn)})

	logger.Info("hidden")
	if buf.Len() != 0 {
		t.Fatalf("info should be filtered at warn level, got %q", buf.String())
	}
	logger.Warn("shown")
	if !strings.Contains(buf.String(), "shown") {
		t.Errorf("expected warn line, got %q", buf.String())
	}
}

func TestFieldsBuilder(t *testing.T) {
	catID := int64(3)
	tx := core.Transaction{
		ID: 11, UserID: 2, Type: core.Expense, Amount: decimal.RequireFromString("12.5"),
		Date: core.NewDate(2026, 2, 14), CategoryID: &catID, CategoryName: "Food",
	}
	f := NewFields().WithTransaction(tx).WithError(errors.New("boom")).WithError(nil)

	if f[FieldAmount] != "12.50" {
		t.Errorf("amount = %v, want 12.50", f[FieldAmount])
	}
	if f[FieldDate] != "2026-02-14" {
		t.Errorf("date = %v", f[FieldDate])
	}
	if f[FieldCategory] != "Food" {
		t.Errorf("category = %v", f[FieldCategory])
	}
	if f[FieldError] != "boom" {
		t.Errorf("error = %v", f[FieldError])
	}
	if len(f.ToSlice()) != 2*len(f) {
		t.Errorf("ToSlice length mismatch")
	}
}

func TestContextLogger(t *testing.T) {
	var buf bytes.Buffer
	base := New(Config{Component: ComponentApp, Handler: NewHandler(&buf, "json", slog.LevelInfo)})

	ctx := NewContext(context.Background(), base.WithComponent(ComponentHTTP).With(FieldRequestID, "req-1"))
	got := FromContext(ctx)
	if got.Component() != ComponentHTTP {
		t.Fatalf("component = %q, want %q", got.Component(), ComponentHTTP)
	}
	got.Logger.Info("x")
	if m := decodeLine(t, &buf); m[FieldRequestID] != "req-1" {
		t.Errorf("request_id = %v, want req-1", m[FieldRequestID])
	}

	if FromContext(context.Background()).Component() != "unknown" {
		t.Error("expected fallback logger outside a request")
	}
}
