// Package http provides the JSON API server and its handlers.
//
// This file implements a small builder for JSON responses and the mapping
// from domain errors to status codes.

package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"fintrack/internal/core"
)

// JSONResponseBuilder provides a fluent API for building JSON responses.
type JSONResponseBuilder struct {
	statusCode int
	data       interface{}
	headers    map[string]string
}

// NewJSONResponse creates a new response builder with default 200 status.
func NewJSONResponse() *JSONResponseBuilder {
	return &JSONResponseBuilder{
		statusCode: http.StatusOK,
		headers:    make(map[string]string),
	}
}

func (b *JSONResponseBuilder) Status(code int) *JSONResponseBuilder {
	b.statusCode = code
	return b
}

func (b *JSONResponseBuilder) Header(name, value string) *JSONResponseBuilder {
	b.headers[name] = value
	return b
}

// Data sets the value encoded as the response body.
func (b *JSONResponseBuilder) Data(v interface{}) *JSONResponseBuilder {
	b.data = v
	return b
}

// Write sends the built response. 204 responses carry no body.
func (b *JSONResponseBuilder) Write(w http.ResponseWriter) {
	for name, value := range b.headers {
		w.Header().Set(name, value)
	}
	if b.statusCode == http.StatusNoContent || b.data == nil {
		w.WriteHeader(b.statusCode)
		return
	}

	body, err := json.Marshal(b.data)
	if err != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"failed to encode response"}`))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(b.statusCode)
	_, _ = w.Write(append(body, '\n'))
}

type errorBody struct {
	Error string `json:"error"`
}

// ErrorResponse creates a JSON error response.
func ErrorResponse(statusCode int, message string) *JSONResponseBuilder {
	return NewJSONResponse().Status(statusCode).Data(errorBody{Error: message})
}

func BadRequestError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusBadRequest, message)
}

func NotFoundError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusNotFound, message)
}

func InternalServerError() *JSONResponseBuilder {
	return ErrorResponse(http.StatusInternalServerError, "internal error")
}

// StatusForError maps domain errors to HTTP status codes.
func StatusForError(err error) int {
	switch {
	case errors.Is(err, core.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, core.ErrOverBudget):
		return http.StatusConflict
	case errors.Is(err, core.ErrInvalidAmount),
		errors.Is(err, core.ErrInvalidPeriod),
		errors.Is(err, core.ErrInvalidType),
		errors.Is(err, core.ErrInvalidDate),
		errors.Is(err, core.ErrInvalidColor),
		errors.Is(err, core.ErrInvalidUser),
		errors.Is(err, core.ErrEmptyCategory),
		errors.Is(err, core.ErrDescriptionSize):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// DomainErrorResponse hides the message of unexpected errors.
func DomainErrorResponse(err error) *JSONResponseBuilder {
	status := StatusForError(err)
	if status == http.StatusInternalServerError {
		return InternalServerError()
	}
	return ErrorResponse(status, err.Error())
}

type categoryJSON struct {
	ID     int64  `json:"id"`
	Name   string `json:"name"`
	Icon   string `json:"icon"`
	Color  string `json:"color"`
	Global bool   `json:"global"`
}

func newCategoryJSON(c core.Category) categoryJSON {
	return categoryJSON{ID: c.ID, Name: c.Name, Icon: c.Icon, Color: c.Color, Global: c.UserID == 0}
}

type transactionJSON struct {
	ID          int64     `json:"id"`
	Type        string    `json:"type"`
	Amount      string    `json:"amount"`
	Date        core.Date `json:"date"`
	CategoryID  *int64    `json:"category_id"`
	Category    string    `json:"category"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

func newTransactionJSON(tx core.Transaction) transactionJSON {
	return transactionJSON{
		ID:          tx.ID,
		Type:        string(tx.Type),
		Amount:      core.FormatAmount(tx.Amount),
		Date:        tx.Date,
		CategoryID:  tx.CategoryID,
		Category:    tx.DisplayName(),
		Description: tx.Description,
		CreatedAt:   tx.CreatedAt,
	}
}

type budgetJSON struct {
	ID         int64     `json:"id"`
	CategoryID int64     `json:"category_id"`
	Category   string    `json:"category"`
	Amount     string    `json:"amount"`
	Period     string    `json:"period"`
	StartDate  core.Date `json:"start_date"`
	CreatedAt  time.Time `json:"created_at"`
}

func newBudgetJSON(b core.Budget) budgetJSON {
	return budgetJSON{
		ID:         b.ID,
		CategoryID: b.CategoryID,
		Category:   b.CategoryName,
		Amount:     core.FormatAmount(b.Amount),
		Period:     string(b.Period),
		StartDate:  b.StartDate,
		CreatedAt:  b.CreatedAt,
	}
}

type budgetStatusJSON struct {
	Budget       budgetJSON `json:"budget"`
	Spent        string     `json:"spent"`
	Remaining    string     `json:"remaining"`
	Percentage   int64      `json:"percentage"`
	PeriodLabel  string     `json:"period_label"`
	Color        string     `json:"color"`
	IsOverBudget bool       `json:"is_over_budget"`
}

type summaryResponse struct {
	Date    core.Date          `json:"date"`
	Budgets []budgetStatusJSON `json:"budgets"`
}

func newSummaryResponse(on core.Date, statuses []core.BudgetStatus) summaryResponse {
	resp := summaryResponse{Date: on, Budgets: make([]budgetStatusJSON, 0, len(statuses))}
	for _, st := range statuses {
		resp.Budgets = append(resp.Budgets, budgetStatusJSON{
			Budget:       newBudgetJSON(st.Budget),
			Spent:        core.FormatAmount(st.Spent),
			Remaining:    core.FormatAmount(st.Remaining),
			Percentage:   st.Percentage,
			PeriodLabel:  st.PeriodLabel,
			Color:        string(st.Color),
			IsOverBudget: st.IsOverBudget(),
		})
	}
	return resp
}
