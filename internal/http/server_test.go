package http

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"expensed/internal/services"
	"expensed/internal/store/memory"
)

func newTestServer() *Server {
	return NewServer(":0", services.NewExpenseService(memory.New(), nil))
}

func doJSON(t *testing.T, s *Server, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.Server.Handler.ServeHTTP(rec, req)
	return rec
}

func decodeInto(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
}

func validExpenseBody() map[string]any {
	return map[string]any{
		"amount":      25.50,
		"category":    "Food",
		"description": "groceries",
		"date":        "2024-06-15",
	}
}

func TestCreateExpense(t *testing.T) {
	s := newTestServer()

	rec := doJSON(t, s, http.MethodPost, "/expenses", validExpenseBody())
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201; body %s", rec.Code, rec.Body.String())
	}

	var view services.ExpenseView
	decodeInto(t, rec, &view)
	if view.ID == "" || view.Amount != 25.50 || view.Category != "Food" {
		t.Fatalf("view: %+v", view)
	}
}

func TestCreateExpenseIdempotentReplay(t *testing.T) {
	s := newTestServer()

	body := validExpenseBody()
	body["idempotency_key"] = "req-1"

	first := doJSON(t, s, http.MethodPost, "/expenses", body)
	if first.Code != http.StatusCreated {
		t.Fatalf("first status = %d", first.Code)
	}
	var firstView services.ExpenseView
	decodeInto(t, first, &firstView)

	body["amount"] = 99.99
	second := doJSON(t, s, http.MethodPost, "/expenses", body)
	if second.Code != http.StatusOK {
		t.Fatalf("replay status = %d, want 200", second.Code)
	}
	var secondView services.ExpenseView
	decodeInto(t, second, &secondView)
	if secondView.ID != firstView.ID || secondView.Amount != 25.50 {
		t.Fatalf("replay view %+v, want stored record %+v", secondView, firstView)
	}
}

func TestCreateExpenseValidationErrors(t *testing.T) {
	s := newTestServer()

	rec := doJSON(t, s, http.MethodPost, "/expenses", map[string]any{
		"amount":   -5,
		"category": "Groceries",
		"date":     "15/06/2024",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}

	var errResp struct {
		Error   string   `json:"error"`
		Details []string `json:"details"`
	}
	decodeInto(t, rec, &errResp)
	if errResp.Error != "validation_failed" {
		t.Fatalf("error label = %s", errResp.Error)
	}
	if len(errResp.Details) != 4 {
		t.Fatalf("details = %v, want 4 messages", errResp.Details)
	}
}

func TestCreateExpenseMalformedBody(t *testing.T) {
	s := newTestServer()

	req := httptest.NewRequest(http.MethodPost, "/expenses", bytes.NewBufferString("{not json"))
	rec := httptest.NewRecorder()
	s.Server.Handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestListExpenses(t *testing.T) {
	s := newTestServer()

	for i := 0; i < 25; i++ {
		body := validExpenseBody()
		body["date"] = fmt.Sprintf("2024-06-%02d", i+1)
		if rec := doJSON(t, s, http.MethodPost, "/expenses", body); rec.Code != http.StatusCreated {
			t.Fatalf("seed %d: status %d", i, rec.Code)
		}
	}

	rec := doJSON(t, s, http.MethodGet, "/expenses?sort=date_asc&page=2&limit=10", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d; body %s", rec.Code, rec.Body.String())
	}

	var page services.PaginatedExpenses
	decodeInto(t, rec, &page)
	if page.Total != 25 || page.TotalPages != 3 || len(page.Expenses) != 10 {
		t.Fatalf("page: total=%d pages=%d len=%d", page.Total, page.TotalPages, len(page.Expenses))
	}
	if page.Expenses[0].Date != "2024-06-11" {
		t.Fatalf("first date = %s, want 2024-06-11", page.Expenses[0].Date)
	}
}

func TestListExpensesBadQuery(t *testing.T) {
	s := newTestServer()

	cases := []string{
		"/expenses?page=zero",
		"/expenses?page=0",
		"/expenses?limit=-1",
		"/expenses?sort=amount_asc",
		"/expenses?category=Groceries",
	}
	for _, target := range cases {
		rec := doJSON(t, s, http.MethodGet, target, nil)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("%s: status = %d, want 400", target, rec.Code)
		}
	}
}

func TestGetExpense(t *testing.T) {
	s := newTestServer()

	created := doJSON(t, s, http.MethodPost, "/expenses", validExpenseBody())
	var view services.ExpenseView
	decodeInto(t, created, &view)

	rec := doJSON(t, s, http.MethodGet, "/expenses/"+view.ID, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	missing := doJSON(t, s, http.MethodGet, "/expenses/does-not-exist", nil)
	if missing.Code != http.StatusNotFound {
		t.Fatalf("missing status = %d, want 404", missing.Code)
	}
}

func TestUpdateExpense(t *testing.T) {
	s := newTestServer()

	created := doJSON(t, s, http.MethodPost, "/expenses", validExpenseBody())
	var view services.ExpenseView
	decodeInto(t, created, &view)

	rec := doJSON(t, s, http.MethodPut, "/expenses/"+view.ID, map[string]any{
		"amount":   30.00,
		"category": "Bills",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d; body %s", rec.Code, rec.Body.String())
	}
	var updated services.ExpenseView
	decodeInto(t, rec, &updated)
	if updated.Amount != 30 || updated.Category != "Bills" || updated.Description != "groceries" {
		t.Fatalf("updated: %+v", updated)
	}

	empty := doJSON(t, s, http.MethodPut, "/expenses/"+view.ID, map[string]any{})
	if empty.Code != http.StatusBadRequest {
		t.Fatalf("empty update status = %d, want 400", empty.Code)
	}

	missing := doJSON(t, s, http.MethodPut, "/expenses/nope", map[string]any{"amount": 1})
	if missing.Code != http.StatusNotFound {
		t.Fatalf("missing status = %d, want 404", missing.Code)
	}
}

func TestDeleteExpense(t *testing.T) {
	s := newTestServer()

	created := doJSON(t, s, http.MethodPost, "/expenses", validExpenseBody())
	var view services.ExpenseView
	decodeInto(t, created, &view)

	rec := doJSON(t, s, http.MethodDelete, "/expenses/"+view.ID, nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", rec.Code)
	}

	again := doJSON(t, s, http.MethodDelete, "/expenses/"+view.ID, nil)
	if again.Code != http.StatusNotFound {
		t.Fatalf("second delete status = %d, want 404", again.Code)
	}
}

func TestStats(t *testing.T) {
	s := newTestServer()

	seeds := []map[string]any{
		{"amount": 10.0, "category": "Food", "description": "a", "date": "2024-01-05"},
		{"amount": 5.0, "category": "Food", "description": "b", "date": "2024-01-20"},
		{"amount": 7.5, "category": "Transport", "description": "c", "date": "2024-02-01"},
	}
	for i, body := range seeds {
		if rec := doJSON(t, s, http.MethodPost, "/expenses", body); rec.Code != http.StatusCreated {
			t.Fatalf("seed %d: status %d", i, rec.Code)
		}
	}

	rec := doJSON(t, s, http.MethodGet, "/stats", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var stats services.StatsView
	decodeInto(t, rec, &stats)
	if len(stats.Monthly) != 2 || stats.Monthly[0].Month != "2024-02" {
		t.Fatalf("monthly: %+v", stats.Monthly)
	}
	if len(stats.Categories) != 2 || stats.Categories[0].Category != "Food" || stats.Categories[0].Total != 15 {
		t.Fatalf("categories: %+v", stats.Categories)
	}
}

func TestCategories(t *testing.T) {
	s := newTestServer()

	rec := doJSON(t, s, http.MethodGet, "/categories", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var resp struct {
		Categories []string `json:"categories"`
	}
	decodeInto(t, rec, &resp)
	if len(resp.Categories) != 8 || resp.Categories[0] != "Food" || resp.Categories[7] != "Other" {
		t.Fatalf("categories: %v", resp.Categories)
	}
}

func TestUsedCategories(t *testing.T) {
	s := newTestServer()

	for _, body := range []map[string]any{
		{"amount": 1.0, "category": "Transport", "description": "x", "date": "2024-06-01"},
		{"amount": 2.0, "category": "Food", "description": "y", "date": "2024-06-02"},
	} {
		if rec := doJSON(t, s, http.MethodPost, "/expenses", body); rec.Code != http.StatusCreated {
			t.Fatalf("seed: status %d", rec.Code)
		}
	}

	rec := doJSON(t, s, http.MethodGet, "/categories?used=true", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var resp struct {
		Categories []string `json:"categories"`
	}
	decodeInto(t, rec, &resp)
	if len(resp.Categories) != 2 || resp.Categories[0] != "Food" || resp.Categories[1] != "Transport" {
		t.Fatalf("used categories: %v, want [Food Transport]", resp.Categories)
	}
}

func TestRateLimitCoversAllWriteMethods(t *testing.T) {
	s := newTestServer()

	// Burn the per-client budget with write requests.
	for i := 0; i < maxRequestsPerMinute; i++ {
		rec := doJSON(t, s, http.MethodDelete, "/expenses/nope", nil)
		if rec.Code == http.StatusTooManyRequests {
			t.Fatalf("request %d limited before budget exhausted", i)
		}
	}

	writes := []struct {
		method string
		target string
	}{
		{http.MethodPost, "/expenses"},
		{http.MethodPut, "/expenses/nope"},
		{http.MethodDelete, "/expenses/nope"},
	}
	for _, w := range writes {
		rec := doJSON(t, s, w.method, w.target, nil)
		if rec.Code != http.StatusTooManyRequests {
			t.Errorf("%s: status = %d, want 429", w.method, rec.Code)
		}
		if rec.Header().Get("Retry-After") != "60" {
			t.Errorf("%s: Retry-After = %q", w.method, rec.Header().Get("Retry-After"))
		}
	}

	// Reads stay unthrottled.
	if rec := doJSON(t, s, http.MethodGet, "/expenses", nil); rec.Code != http.StatusOK {
		t.Fatalf("read status = %d, want 200", rec.Code)
	}
}

func TestHealthEndpoints(t *testing.T) {
	s := newTestServer()

	for _, target := range []string{"/healthz", "/readyz"} {
		rec := doJSON(t, s, http.MethodGet, target, nil)
		if rec.Code != http.StatusOK {
			t.Errorf("%s: status = %d", target, rec.Code)
		}
	}
}

func TestSecurityHeaders(t *testing.T) {
	s := newTestServer()

	rec := doJSON(t, s, http.MethodGet, "/expenses", nil)
	if got := rec.Header().Get("X-Content-Type-Options"); got != "nosniff" {
		t.Errorf("X-Content-Type-Options = %q", got)
	}
	if got := rec.Header().Get("X-Frame-Options"); got != "DENY" {
		t.Errorf("X-Frame-Options = %q", got)
	}
}
