package http

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"fintrack/internal/log"
	"fintrack/internal/services"
	"fintrack/internal/storage/memory"
)

var testNow = time.Date(2026, 2, 15, 10, 0, 0, 0, time.UTC)

func newTestServer(t *testing.T, blockOverBudget bool) *Server {
	t.Helper()
	store := memory.New()
	clock := func() time.Time { return testNow }
	svc := Services{
		Budgets: services.NewBudgetService(store, services.DefaultBudgetServiceConfig()),
		Transactions: services.NewTransactionService(store, nil, services.TransactionServiceConfig{
			BlockOverBudget: blockOverBudget,
			Now:             clock,
		}),
		Categories: services.NewCategoryService(store),
		Store:      store,
	}
	logger := log.New(log.Config{Component: log.ComponentApp, Handler: log.NewHandler(io.Discard, "text", slog.LevelError)})
	s := NewServer(ServerConfig{
		Addr:               ":0",
		SummaryCacheTTL:    time.Minute,
		SummaryCacheSize:   100,
		RateLimitPerMinute: 1000,
		Now:                clock,
	}, svc, logger)
	t.Cleanup(func() { _ = s.Shutdown(context.Background()) })
	return s
}

func do(t *testing.T, s *Server, method, target, user, body string) *httptest.ResponseRecorder {
	t.Helper()
	var rdr io.Reader
	if body != "" {
		rdr = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, rdr)
	req.RemoteAddr = "192.0.2.10:4000"
	if user != "" {
		req.Header.Set(HeaderUserID, user)
	}
	if strings.HasPrefix(body, "{") {
		req.Header.Set("Content-Type", "application/json")
	} else if body != "" {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	rec := httptest.NewRecorder()
	s.Handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return v
}

func mustStatus(t *testing.T, rec *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rec.Code != want {
		t.Fatalf("status = %d, want %d (body %s)", rec.Code, want, rec.Body.String())
	}
}

func TestAPIRequiresUser(t *testing.T) {
	s := newTestServer(t, false)
	for _, user := range []string{"", "abc", "0", "-4"} {
		rec := do(t, s, http.MethodGet, "/api/budgets", user, "")
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("user %q: status = %d, want 401", user, rec.Code)
		}
	}
	mustStatus(t, do(t, s, http.MethodGet, "/healthz", "", ""), http.StatusOK)
}

func TestBudgetSummaryFlow(t *testing.T) {
	s := newTestServer(t, false)

	mustStatus(t, do(t, s, http.MethodPost, "/api/transactions", "1",
		`{"type":"expense","amount":"300","date":"2026-02-10","category":"Food"}`), http.StatusCreated)
	// previous month, outside the window
	mustStatus(t, do(t, s, http.MethodPost, "/api/transactions", "1",
		`{"type":"expense","amount":"999","date":"2026-01-31","category":"Food"}`), http.StatusCreated)

	rec := do(t, s, http.MethodPost, "/api/budgets", "1", `{"category":"Food","amount":500,"period":"monthly"}`)
	mustStatus(t, rec, http.StatusOK)
	saved := decode[budgetJSON](t, rec)
	if saved.ID == 0 || saved.Amount != "500.00" || saved.StartDate.String() != "2026-02-15" {
		t.Fatalf("unexpected budget %+v", saved)
	}

	rec = do(t, s, http.MethodGet, "/api/budgets?date=2026-02-20", "1", "")
	mustStatus(t, rec, http.StatusOK)
	sum := decode[summaryResponse](t, rec)
	if len(sum.Budgets) != 1 {
		t.Fatalf("expected 1 budget, got %d", len(sum.Budgets))
	}
	st := sum.Budgets[0]
	if st.Spent != "300.00" || st.Remaining != "200.00" || st.Percentage != 60 ||
		st.Color != "emerald" || st.PeriodLabel != "February 2026" || st.IsOverBudget {
		t.Errorf("unexpected status %+v", st)
	}

	// a new expense must be visible despite the cached summary
	mustStatus(t, do(t, s, http.MethodPost, "/api/transactions", "1",
		"type=expense&amount=150&date=2026-02-16&category=Food"), http.StatusCreated)
	st = decode[summaryResponse](t, do(t, s, http.MethodGet, "/api/budgets?date=2026-02-20", "1", "")).Budgets[0]
	if st.Spent != "450.00" || st.Percentage != 90 || st.Color != "amber" {
		t.Errorf("stale summary after mutation: %+v", st)
	}

	// other users see nothing
	if got := decode[summaryResponse](t, do(t, s, http.MethodGet, "/api/budgets", "2", "")); len(got.Budgets) != 0 {
		t.Errorf("user 2 sees %d budgets", len(got.Budgets))
	}

	// update in place
	body := `{"id":` + jsonInt(saved.ID) + `,"category":"Food","amount":"400","period":"monthly"}`
	mustStatus(t, do(t, s, http.MethodPost, "/api/budgets", "1", body), http.StatusOK)
	st = decode[summaryResponse](t, do(t, s, http.MethodGet, "/api/budgets?date=2026-02-20", "1", "")).Budgets[0]
	if st.Percentage != 112 || st.Color != "rose" || !st.IsOverBudget || st.Remaining != "-50.00" {
		t.Errorf("after update: %+v", st)
	}
}

func jsonInt(id int64) string {
	b, _ := json.Marshal(id)
	return string(b)
}

func TestUpsertBudgetErrors(t *testing.T) {
	s := newTestServer(t, false)
	rec := do(t, s, http.MethodPost, "/api/budgets", "1", `{"category":"Food","amount":"100","period":"monthly"}`)
	mustStatus(t, rec, http.StatusOK)
	id := decode[budgetJSON](t, rec).ID

	tests := []struct {
		name string
		user string
		body string
		want int
	}{
		{"negative amount", "1", `{"category":"Food","amount":"-5","period":"monthly"}`, http.StatusUnprocessableEntity},
		{"non-numeric amount", "1", `{"category":"Food","amount":"abc","period":"monthly"}`, http.StatusUnprocessableEntity},
		{"unknown period", "1", `{"category":"Food","amount":"5","period":"weekly"}`, http.StatusUnprocessableEntity},
		{"empty category", "1", `{"category":"","amount":"5","period":"monthly"}`, http.StatusUnprocessableEntity},
		{"bad start date", "1", `{"category":"Food","amount":"5","period":"one-time","start_date":"2026-13-01"}`, http.StatusUnprocessableEntity},
		{"unknown id", "1", `{"id":9999,"category":"Food","amount":"5","period":"monthly"}`, http.StatusNotFound},
		{"foreign id", "2", `{"id":` + jsonInt(id) + `,"category":"Food","amount":"5","period":"monthly"}`, http.StatusNotFound},
		{"malformed json", "1", `{"category":`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mustStatus(t, do(t, s, http.MethodPost, "/api/budgets", tt.user, tt.body), tt.want)
		})
	}

	// the foreign update wrote nothing
	st := decode[summaryResponse](t, do(t, s, http.MethodGet, "/api/budgets", "1", "")).Budgets[0]
	if st.Budget.Amount != "100.00" {
		t.Errorf("budget changed by rejected update: %+v", st.Budget)
	}
}

func TestDeleteBudgetIsSilent(t *testing.T) {
	s := newTestServer(t, false)
	rec := do(t, s, http.MethodPost, "/api/budgets", "1", `{"category":"Fun","amount":"50","period":"yearly"}`)
	id := jsonInt(decode[budgetJSON](t, rec).ID)

	mustStatus(t, do(t, s, http.MethodDelete, "/api/budgets/"+id, "2", ""), http.StatusNoContent)
	mustStatus(t, do(t, s, http.MethodDelete, "/api/budgets/9999", "1", ""), http.StatusNoContent)
	mustStatus(t, do(t, s, http.MethodDelete, "/api/budgets/abc", "1", ""), http.StatusNoContent)
	if n := len(decode[summaryResponse](t, do(t, s, http.MethodGet, "/api/budgets", "1", "")).Budgets); n != 1 {
		t.Fatalf("budget removed by foreign delete, %d left", n)
	}

	mustStatus(t, do(t, s, http.MethodDelete, "/api/budgets/"+id, "1", ""), http.StatusNoContent)
	if n := len(decode[summaryResponse](t, do(t, s, http.MethodGet, "/api/budgets", "1", "")).Budgets); n != 0 {
		t.Fatalf("expected no budgets, got %d", n)
	}
}

func TestTransactionsAPI(t *testing.T) {
	s := newTestServer(t, false)

	bad := []string{
		`{"type":"transfer","amount":"1"}`,
		`{"type":"expense","amount":"1,2.3"}`,
		`{"type":"income","amount":"10","date":"15/02/2026"}`,
	}
	for _, body := range bad {
		mustStatus(t, do(t, s, http.MethodPost, "/api/transactions", "1", body), http.StatusUnprocessableEntity)
	}

	var ids []int64
	for i, day := range []string{"2026-02-01", "2026-02-03", "2026-02-02", "2026-02-04"} {
		rec := do(t, s, http.MethodPost, "/api/transactions", "1",
			`{"type":"income","amount":"`+jsonInt(int64(i+1))+`","date":"`+day+`"}`)
		mustStatus(t, rec, http.StatusCreated)
		tx := decode[transactionJSON](t, rec)
		if tx.Category != "Uncategorized" || tx.CategoryID != nil {
			t.Errorf("expected uncategorized, got %+v", tx)
		}
		ids = append(ids, tx.ID)
	}

	rec := do(t, s, http.MethodPost, "/api/transactions", "1", `{"type":"expense","amount":"12,5"}`)
	mustStatus(t, rec, http.StatusCreated)
	if tx := decode[transactionJSON](t, rec); tx.Date.String() != "2026-02-15" || tx.Amount != "12.50" {
		t.Errorf("default date or amount wrong: %+v", tx)
	}

	type listResp struct {
		Transactions []transactionJSON `json:"transactions"`
	}
	recent := decode[listResp](t, do(t, s, http.MethodGet, "/api/transactions/recent", "1", "")).Transactions
	if len(recent) != 3 || recent[0].Date.String() != "2026-02-15" || recent[1].Date.String() != "2026-02-04" {
		t.Errorf("unexpected recent %+v", recent)
	}
	all := decode[listResp](t, do(t, s, http.MethodGet, "/api/transactions?limit=2", "1", "")).Transactions
	if len(all) != 2 {
		t.Errorf("limit ignored, got %d", len(all))
	}
	mustStatus(t, do(t, s, http.MethodGet, "/api/transactions?limit=-1", "1", ""), http.StatusBadRequest)

	id := jsonInt(ids[0])
	mustStatus(t, do(t, s, http.MethodDelete, "/api/transactions/"+id, "2", ""), http.StatusNotFound)
	mustStatus(t, do(t, s, http.MethodDelete, "/api/transactions/"+id, "1", ""), http.StatusNoContent)
	mustStatus(t, do(t, s, http.MethodDelete, "/api/transactions/"+id, "1", ""), http.StatusNotFound)
	mustStatus(t, do(t, s, http.MethodDelete, "/api/transactions/xyz", "1", ""), http.StatusNotFound)
}

func TestOverBudgetGuard(t *testing.T) {
	s := newTestServer(t, true)
	mustStatus(t, do(t, s, http.MethodPost, "/api/budgets", "1", `{"category":"Food","amount":"100","period":"monthly"}`), http.StatusOK)
	mustStatus(t, do(t, s, http.MethodPost, "/api/transactions", "1", `{"type":"expense","amount":"100","category":"Food"}`), http.StatusCreated)
	mustStatus(t, do(t, s, http.MethodPost, "/api/transactions", "1", `{"type":"expense","amount":"0.01","category":"Food"}`), http.StatusConflict)
	// income is never refused
	mustStatus(t, do(t, s, http.MethodPost, "/api/transactions", "1", `{"type":"income","amount":"500","category":"Food"}`), http.StatusCreated)
}

func TestCategoriesAPI(t *testing.T) {
	s := newTestServer(t, false)
	type catsResp struct {
		Categories []categoryJSON `json:"categories"`
	}

	created := decode[catsResp](t, do(t, s, http.MethodPost, "/api/categories/defaults", "1", "")).Categories
	if len(created) != len(services.DefaultCategories) {
		t.Fatalf("seeded %d categories, want %d", len(created), len(services.DefaultCategories))
	}
	again := decode[catsResp](t, do(t, s, http.MethodPost, "/api/categories/defaults", "1", "")).Categories
	if len(again) != 0 {
		t.Fatalf("second seed created %d", len(again))
	}

	listed := decode[catsResp](t, do(t, s, http.MethodGet, "/api/categories", "1", "")).Categories
	if len(listed) != len(services.DefaultCategories) {
		t.Fatalf("listed %d categories", len(listed))
	}

	var foodID int64
	for _, c := range listed {
		if c.Name == "Food & Dining" {
			foodID = c.ID
		}
	}
	mustStatus(t, do(t, s, http.MethodPost, "/api/budgets", "1", `{"category":"Food & Dining","amount":"10","period":"monthly"}`), http.StatusOK)
	mustStatus(t, do(t, s, http.MethodPost, "/api/transactions", "1", `{"type":"expense","amount":"4","category":"Food & Dining"}`), http.StatusCreated)

	mustStatus(t, do(t, s, http.MethodDelete, "/api/categories/"+jsonInt(foodID), "2", ""), http.StatusNotFound)
	mustStatus(t, do(t, s, http.MethodDelete, "/api/categories/"+jsonInt(foodID), "1", ""), http.StatusNoContent)

	if n := len(decode[summaryResponse](t, do(t, s, http.MethodGet, "/api/budgets", "1", "")).Budgets); n != 0 {
		t.Errorf("budgets should cascade with their category, %d left", n)
	}
	type listResp struct {
		Transactions []transactionJSON `json:"transactions"`
	}
	txs := decode[listResp](t, do(t, s, http.MethodGet, "/api/transactions", "1", "")).Transactions
	if len(txs) != 1 || txs[0].Category != "Uncategorized" {
		t.Errorf("transaction should survive as uncategorized: %+v", txs)
	}
}

func TestOperationalEndpoints(t *testing.T) {
	s := newTestServer(t, false)

	rec := do(t, s, http.MethodGet, "/readyz", "", "")
	mustStatus(t, rec, http.StatusOK)
	ready := decode[map[string]any](t, rec)
	if ready["status"] != "ready" {
		t.Errorf("ready status = %v", ready["status"])
	}
	if checks, _ := ready["checks"].(map[string]any); checks["sync"] != "disabled" {
		t.Errorf("sync check = %v, want disabled without a publisher", checks["sync"])
	}

	do(t, s, http.MethodGet, "/api/budgets", "1", "")
	do(t, s, http.MethodGet, "/api/budgets", "1", "")
	rec = do(t, s, http.MethodGet, "/metrics", "", "")
	mustStatus(t, rec, http.StatusOK)
	for _, want := range []string{"http_requests_total", "cache_hits_total 1", "budget_summaries_built_total 1"} {
		if !strings.Contains(rec.Body.String(), want) {
			t.Errorf("metrics missing %q:\n%s", want, rec.Body.String())
		}
	}

	rec = do(t, s, http.MethodGet, "/api/budgets", "1", "")
	if rec.Header().Get("X-Request-ID") == "" || rec.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Errorf("middleware headers missing: %v", rec.Header())
	}
}

func TestRateLimitOnMutations(t *testing.T) {
	s := newTestServer(t, false)

	limited := NewServer(ServerConfig{RateLimitPerMinute: 1, Now: func() time.Time { return testNow }}, s.svc,
		log.New(log.Config{Handler: log.NewHandler(io.Discard, "text", slog.LevelError)}))
	t.Cleanup(func() { _ = limited.Shutdown(context.Background()) })

	mustStatus(t, do(t, limited, http.MethodPost, "/api/categories/defaults", "1", ""), http.StatusOK)
	rec := do(t, limited, http.MethodPost, "/api/categories/defaults", "1", "")
	mustStatus(t, rec, http.StatusTooManyRequests)
	if decode[errorBody](t, rec).Error == "" {
		t.Error("expected json error body")
	}
	mustStatus(t, do(t, limited, http.MethodGet, "/api/categories", "1", ""), http.StatusOK)
}

func TestServerLimits(t *testing.T) {
	s := newTestServer(t, false)
	if s.ReadTimeout != 30*time.Second || s.WriteTimeout != 30*time.Second || s.IdleTimeout != 2*time.Minute {
		t.Errorf("timeouts = %v/%v/%v", s.ReadTimeout, s.WriteTimeout, s.IdleTimeout)
	}
	if s.MaxHeaderBytes != 1<<16 {
		t.Errorf("MaxHeaderBytes = %d, want %d", s.MaxHeaderBytes, 1<<16)
	}
}

func TestCreateTransactionKeepsLongJSONAmount(t *testing.T) {
	s := newTestServer(t, false)
	rec := do(t, s, http.MethodPost, "/api/transactions", "1",
		`{"type":"Expense","amount":1234567890123456.78,"category":"Food"}`)
	mustStatus(t, rec, http.StatusCreated)
	if got := decode[map[string]any](t, rec)["amount"]; got != "1234567890123456.78" {
		t.Errorf("amount = %v, want 1234567890123456.78", got)
	}
}
