package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/ledgerkit/statement-ingest/internal/dates"
	"github.com/ledgerkit/statement-ingest/internal/ingest"
	"github.com/ledgerkit/statement-ingest/internal/models"
)

const citiStatement = `Citibank Australia
Statement Period April 18 - May 17, 2024

Your Transactions
April 19 WOOLWORTHS 1234 SYDNEY 86.20 5521XXXXXXXX1234
April 23 SPOTIFY P2B4A8 11.99
May 3 BUNNINGS 472 ALEXANDRIA 156.40
`

// memStore is an in-memory Store for handler tests.
type memStore struct {
	transactions []models.Transaction
	overrides    map[string]*models.CategoryOverride
	income       []models.IncomeRecord
	rules        []models.CategoryRule
	keywords     map[string][]string
	nextRuleID   int64
}

func newMemStore() *memStore {
	return &memStore{
		overrides:  make(map[string]*models.CategoryOverride),
		keywords:   make(map[string][]string),
		nextRuleID: 1,
	}
}

func (m *memStore) InsertTransaction(_ context.Context, t *models.Transaction) (bool, error) {
	for _, existing := range m.transactions {
		if existing.ContentHash == t.ContentHash {
			return false, nil
		}
	}
	m.transactions = append(m.transactions, *t)
	return true, nil
}

func (m *memStore) InsertIncome(_ context.Context, r *models.IncomeRecord) (bool, error) {
	for _, existing := range m.income {
		if existing.PeriodStart.Equal(r.PeriodStart) &&
			existing.PeriodEnd.Equal(r.PeriodEnd) &&
			existing.GrossPay == r.GrossPay {
			return false, nil
		}
	}
	m.income = append(m.income, *r)
	return true, nil
}

func (m *memStore) ListRules(_ context.Context) ([]models.CategoryRule, error) {
	return m.rules, nil
}

func (m *memStore) ListKeywords(_ context.Context) (map[string][]string, error) {
	return m.keywords, nil
}

func (m *memStore) InvalidateSummaries() {}

func (m *memStore) ListTransactions(_ context.Context, start, end time.Time) ([]models.Transaction, error) {
	var out []models.Transaction
	for _, t := range m.transactions {
		if t.Date.Before(start) || !t.Date.Before(end) {
			continue
		}
		if o, ok := m.overrides[t.ContentHash]; ok {
			t.Category = o.OverrideCategory
		}
		out = append(out, t)
	}
	return out, nil
}

func (m *memStore) GetTransaction(_ context.Context, hash string) (*models.Transaction, error) {
	for _, t := range m.transactions {
		if t.ContentHash == hash {
			if o, ok := m.overrides[hash]; ok {
				t.Category = o.OverrideCategory
			}
			return &t, nil
		}
	}
	return nil, nil
}

func (m *memStore) SetOverride(_ context.Context, o *models.CategoryOverride) error {
	m.overrides[o.ContentHash] = o
	return nil
}

func (m *memStore) CreateRule(_ context.Context, rule *models.CategoryRule) (*models.CategoryRule, error) {
	r := *rule
	r.ID = m.nextRuleID
	m.nextRuleID++
	m.rules = append(m.rules, r)
	return &r, nil
}

func (m *memStore) UpdateRule(_ context.Context, rule *models.CategoryRule) (bool, error) {
	for i := range m.rules {
		if m.rules[i].ID == rule.ID {
			m.rules[i] = *rule
			return true, nil
		}
	}
	return false, nil
}

func (m *memStore) DeleteRule(_ context.Context, id int64) (bool, error) {
	for i := range m.rules {
		if m.rules[i].ID == id {
			m.rules = append(m.rules[:i], m.rules[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

func (m *memStore) PutKeywords(_ context.Context, category string, keywords []string) error {
	m.keywords[category] = keywords
	return nil
}

func (m *memStore) MonthlySummary(_ context.Context, month string, start, end time.Time) (*models.MonthlySummary, error) {
	summary := &models.MonthlySummary{
		Month:             month,
		CategoryBreakdown: make(map[string]float64),
	}
	txns, _ := m.ListTransactions(context.Background(), start, end)
	for _, t := range txns {
		summary.TransactionCount++
		if t.Amount > 0 {
			summary.TotalSpend += t.Amount
			summary.CategoryBreakdown[t.Category] += t.Amount
		}
	}
	for _, r := range m.income {
		if !r.PeriodEnd.Before(start) && r.PeriodEnd.Before(end) {
			summary.TotalIncome += r.GrossPay
		}
	}
	return summary, nil
}

func (m *memStore) ReclassifyAll(_ context.Context, classify func(string) string) (int, error) {
	updated := 0
	for i := range m.transactions {
		if next := classify(m.transactions[i].Description); next != m.transactions[i].Category {
			m.transactions[i].Category = next
			updated++
		}
	}
	return updated, nil
}

func setupTestApp(store *memStore) *fiber.App {
	app := fiber.New()
	h := &Handler{
		Store:       store,
		Coordinator: ingest.NewCoordinator(store, zerolog.Nop()),
		Log:         zerolog.Nop(),
		Now:         func() time.Time { return dates.Date(2024, time.June, 15) },
	}
	h.RegisterRoutes(app)
	return app
}

func ingestFixture(t *testing.T, app *fiber.App) {
	t.Helper()
	body := &bytes.Buffer{}
	form := multipart.NewWriter(body)
	form.WriteField("text", citiStatement)
	form.WriteField("type", "citi")
	form.Close()

	req := httptest.NewRequest("POST", "/api/ingest", body)
	req.Header.Set("Content-Type", form.FormDataContentType())
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("ingest request failed: %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		raw, _ := io.ReadAll(resp.Body)
		t.Fatalf("ingest returned %d: %s", resp.StatusCode, raw)
	}
}

func TestHealthEndpoint(t *testing.T) {
	app := setupTestApp(newMemStore())

	resp, err := app.Test(httptest.NewRequest("GET", "/api/health", nil))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Errorf("expected 200, got %d", resp.StatusCode)
	}

	body, _ := io.ReadAll(resp.Body)
	var result map[string]string
	if err := json.Unmarshal(body, &result); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if result["status"] != "ok" {
		t.Errorf("expected status=ok, got %q", result["status"])
	}
	if result["engine"] != "fiber" {
		t.Errorf("expected engine=fiber, got %q", result["engine"])
	}
}

func TestIngestEndpointWithText(t *testing.T) {
	store := newMemStore()
	app := setupTestApp(store)

	body := &bytes.Buffer{}
	form := multipart.NewWriter(body)
	form.WriteField("text", citiStatement)
	form.Close()

	req := httptest.NewRequest("POST", "/api/ingest", body)
	req.Header.Set("Content-Type", form.FormDataContentType())
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		raw, _ := io.ReadAll(resp.Body)
		t.Fatalf("expected 200, got %d: %s", resp.StatusCode, raw)
	}

	var result models.ImportResult
	raw, _ := io.ReadAll(resp.Body)
	if err := json.Unmarshal(raw, &result); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if result.Type != models.DocCiti {
		t.Errorf("type = %q, want citi (auto-detected)", result.Type)
	}
	if result.Parsed != 3 || result.New != 3 {
		t.Errorf("parsed = %d, new = %d, want 3, 3", result.Parsed, result.New)
	}
	if len(store.transactions) != 3 {
		t.Errorf("stored = %d, want 3", len(store.transactions))
	}
}

func TestIngestEndpointRequiresInput(t *testing.T) {
	app := setupTestApp(newMemStore())

	body := &bytes.Buffer{}
	form := multipart.NewWriter(body)
	form.Close()

	req := httptest.NewRequest("POST", "/api/ingest", body)
	req.Header.Set("Content-Type", form.FormDataContentType())
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != fiber.StatusBadRequest {
		t.Errorf("expected 400, got %d", resp.StatusCode)
	}
}

func TestIngestEndpointRejectsUnknownType(t *testing.T) {
	app := setupTestApp(newMemStore())

	body := &bytes.Buffer{}
	form := multipart.NewWriter(body)
	form.WriteField("text", citiStatement)
	form.WriteField("type", "hsbc")
	form.Close()

	req := httptest.NewRequest("POST", "/api/ingest", body)
	req.Header.Set("Content-Type", form.FormDataContentType())
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != fiber.StatusBadRequest {
		t.Errorf("expected 400, got %d", resp.StatusCode)
	}
}

func TestListTransactionsByMonth(t *testing.T) {
	store := newMemStore()
	app := setupTestApp(store)
	ingestFixture(t, app)

	resp, err := app.Test(httptest.NewRequest("GET", "/api/transactions?month=2024-04", nil))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var result struct {
		Count        int                  `json:"count"`
		Transactions []models.Transaction `json:"transactions"`
	}
	raw, _ := io.ReadAll(resp.Body)
	if err := json.Unmarshal(raw, &result); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	// April 19 and April 23; May 3 excluded
	if result.Count != 2 {
		t.Errorf("count = %d, want 2: %s", result.Count, raw)
	}
}

func TestListTransactionsRequiresMonthOrTimeframe(t *testing.T) {
	app := setupTestApp(newMemStore())

	resp, _ := app.Test(httptest.NewRequest("GET", "/api/transactions", nil))
	if resp.StatusCode != fiber.StatusBadRequest {
		t.Errorf("expected 400 for missing params, got %d", resp.StatusCode)
	}

	resp, _ = app.Test(httptest.NewRequest("GET", "/api/transactions?month=2024-04&timeframe=lastmonth", nil))
	if resp.StatusCode != fiber.StatusBadRequest {
		t.Errorf("expected 400 for both params, got %d", resp.StatusCode)
	}
}

func TestListTransactionsByTimeframe(t *testing.T) {
	store := newMemStore()
	app := setupTestApp(store)
	ingestFixture(t, app)

	// Clock is pinned to June 2024; last3months covers Mar-May
	resp, err := app.Test(httptest.NewRequest("GET", "/api/transactions?timeframe=last3months", nil))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	var result struct {
		Months []string `json:"months"`
		Count  int      `json:"count"`
	}
	raw, _ := io.ReadAll(resp.Body)
	if err := json.Unmarshal(raw, &result); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	wantMonths := []string{"2024-03", "2024-04", "2024-05"}
	if fmt.Sprint(result.Months) != fmt.Sprint(wantMonths) {
		t.Errorf("months = %v, want %v", result.Months, wantMonths)
	}
	if result.Count != 3 {
		t.Errorf("count = %d, want 3", result.Count)
	}
}

func TestOverrideCategory(t *testing.T) {
	store := newMemStore()
	app := setupTestApp(store)
	ingestFixture(t, app)

	hash := store.transactions[0].ContentHash
	body := strings.NewReader(`{"category": "household"}`)
	req := httptest.NewRequest("PUT", "/api/transactions/"+hash+"/category", body)
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		raw, _ := io.ReadAll(resp.Body)
		t.Fatalf("expected 200, got %d: %s", resp.StatusCode, raw)
	}

	o := store.overrides[hash]
	if o == nil {
		t.Fatal("expected an override to be stored")
	}
	if o.OverrideCategory != "HOUSEHOLD" {
		t.Errorf("override category = %q, want HOUSEHOLD", o.OverrideCategory)
	}
	if o.OriginalCategory != "GROCERIES" {
		t.Errorf("original category = %q, want GROCERIES", o.OriginalCategory)
	}
}

func TestOverrideCategoryUnknownHash(t *testing.T) {
	app := setupTestApp(newMemStore())

	req := httptest.NewRequest("PUT", "/api/transactions/deadbeef/category",
		strings.NewReader(`{"category": "DINING"}`))
	req.Header.Set("Content-Type", "application/json")
	resp, _ := app.Test(req)
	if resp.StatusCode != fiber.StatusNotFound {
		t.Errorf("expected 404, got %d", resp.StatusCode)
	}
}

func TestSummaryEndpoint(t *testing.T) {
	store := newMemStore()
	app := setupTestApp(store)
	ingestFixture(t, app)

	resp, err := app.Test(httptest.NewRequest("GET", "/api/summary/2024-04", nil))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var summary models.MonthlySummary
	raw, _ := io.ReadAll(resp.Body)
	if err := json.Unmarshal(raw, &summary); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if summary.TransactionCount != 2 {
		t.Errorf("transaction count = %d, want 2", summary.TransactionCount)
	}
	wantSpend := 86.20 + 11.99
	if summary.TotalSpend < wantSpend-0.001 || summary.TotalSpend > wantSpend+0.001 {
		t.Errorf("total spend = %.2f, want %.2f", summary.TotalSpend, wantSpend)
	}
}

func TestSummaryEndpointBadMonth(t *testing.T) {
	app := setupTestApp(newMemStore())
	resp, _ := app.Test(httptest.NewRequest("GET", "/api/summary/april", nil))
	if resp.StatusCode != fiber.StatusBadRequest {
		t.Errorf("expected 400, got %d", resp.StatusCode)
	}
}

func TestRuleCRUDAndApply(t *testing.T) {
	store := newMemStore()
	app := setupTestApp(store)
	ingestFixture(t, app)

	// Out-of-band priority rejected
	req := httptest.NewRequest("POST", "/api/rules",
		strings.NewReader(`{"pattern": "BUNNINGS", "category": "HOME", "priority": 500, "enabled": true}`))
	req.Header.Set("Content-Type", "application/json")
	resp, _ := app.Test(req)
	if resp.StatusCode != fiber.StatusBadRequest {
		t.Fatalf("expected 400 for priority 500, got %d", resp.StatusCode)
	}

	req = httptest.NewRequest("POST", "/api/rules",
		strings.NewReader(`{"pattern": "BUNNINGS", "category": "HOME", "priority": 5, "enabled": true}`))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != fiber.StatusCreated {
		raw, _ := io.ReadAll(resp.Body)
		t.Fatalf("expected 201, got %d: %s", resp.StatusCode, raw)
	}

	// Re-run classification: the BUNNINGS transaction moves to HOME
	resp, err = app.Test(httptest.NewRequest("POST", "/api/rules/apply", nil))
	if err != nil {
		t.Fatalf("apply failed: %v", err)
	}
	var applied map[string]int
	raw, _ := io.ReadAll(resp.Body)
	if err := json.Unmarshal(raw, &applied); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if applied["updated"] != 1 {
		t.Errorf("updated = %d, want 1", applied["updated"])
	}
	for _, txn := range store.transactions {
		if strings.Contains(txn.Description, "BUNNINGS") && txn.Category != "HOME" {
			t.Errorf("BUNNINGS category = %q, want HOME", txn.Category)
		}
	}

	// Delete and confirm 404 on a second delete
	resp, _ = app.Test(httptest.NewRequest("DELETE", "/api/rules/1", nil))
	if resp.StatusCode != fiber.StatusNoContent {
		t.Errorf("expected 204, got %d", resp.StatusCode)
	}
	resp, _ = app.Test(httptest.NewRequest("DELETE", "/api/rules/1", nil))
	if resp.StatusCode != fiber.StatusNotFound {
		t.Errorf("expected 404, got %d", resp.StatusCode)
	}
}

func TestExportCSV(t *testing.T) {
	store := newMemStore()
	app := setupTestApp(store)
	ingestFixture(t, app)

	resp, err := app.Test(httptest.NewRequest("GET", "/api/export.csv?month=2024-04", nil))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); !strings.Contains(ct, "text/csv") {
		t.Errorf("content type = %q, want text/csv", ct)
	}
	raw, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(raw), "WOOLWORTHS 1234 SYDNEY") {
		t.Errorf("csv missing transaction row: %s", raw)
	}
}
