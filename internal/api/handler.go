package api

import (
	"bytes"
	"context"
	"io"
	"os"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/ledgerkit/statement-ingest/internal/category"
	"github.com/ledgerkit/statement-ingest/internal/dates"
	"github.com/ledgerkit/statement-ingest/internal/ingest"
	"github.com/ledgerkit/statement-ingest/internal/models"
	"github.com/ledgerkit/statement-ingest/internal/writer"
)

const version = "1.0.0"

// Store is the persistence surface the API needs. *storage.Store
// satisfies it.
type Store interface {
	ingest.Store
	ListTransactions(ctx context.Context, start, end time.Time) ([]models.Transaction, error)
	GetTransaction(ctx context.Context, contentHash string) (*models.Transaction, error)
	SetOverride(ctx context.Context, o *models.CategoryOverride) error
	CreateRule(ctx context.Context, rule *models.CategoryRule) (*models.CategoryRule, error)
	UpdateRule(ctx context.Context, rule *models.CategoryRule) (bool, error)
	DeleteRule(ctx context.Context, id int64) (bool, error)
	PutKeywords(ctx context.Context, category string, keywords []string) error
	MonthlySummary(ctx context.Context, month string, start, end time.Time) (*models.MonthlySummary, error)
	ReclassifyAll(ctx context.Context, classify func(description string) string) (int, error)
}

// Handler holds the HTTP handlers for the API.
type Handler struct {
	Store       Store
	Coordinator *ingest.Coordinator
	Log         zerolog.Logger
	Now         func() time.Time // injectable clock for timeframe queries
}

// RegisterRoutes sets up the API routes.
func (h *Handler) RegisterRoutes(app *fiber.App) {
	app.Get("/api/health", h.handleHealth)
	app.Post("/api/ingest", h.handleIngest)
	app.Get("/api/transactions", h.handleListTransactions)
	app.Put("/api/transactions/:hash/category", h.handleOverrideCategory)
	app.Get("/api/summary/:month", h.handleSummary)
	app.Get("/api/rules", h.handleListRules)
	app.Post("/api/rules", h.handleCreateRule)
	app.Put("/api/rules/:id", h.handleUpdateRule)
	app.Delete("/api/rules/:id", h.handleDeleteRule)
	app.Post("/api/rules/apply", h.handleApplyRules)
	app.Get("/api/keywords", h.handleListKeywords)
	app.Put("/api/keywords/:category", h.handlePutKeywords)
	app.Get("/api/export.csv", h.handleExportCSV)
}

func (h *Handler) now() time.Time {
	if h.Now != nil {
		return h.Now()
	}
	return time.Now()
}

func (h *Handler) handleHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":  "ok",
		"engine":  "fiber",
		"version": version,
	})
}

func (h *Handler) handleIngest(c *fiber.Ctx) error {
	docType := models.DocumentType(strings.ToLower(c.FormValue("type")))
	switch docType {
	case "", models.DocAmex, models.DocCiti, models.DocPayslip:
	default:
		return apiError(c, fiber.StatusBadRequest, "unknown document type; use amex, citi, or payslip")
	}

	// Pre-extracted text skips PDF handling entirely
	if text := c.FormValue("text"); text != "" {
		result, err := h.Coordinator.IngestText(c.Context(), text, docType)
		if err != nil {
			return apiError(c, fiber.StatusUnprocessableEntity, err.Error())
		}
		return c.JSON(result)
	}

	header, err := c.FormFile("file")
	if err != nil {
		return apiError(c, fiber.StatusBadRequest, "no file uploaded; use form field 'file' or 'text'")
	}
	file, err := header.Open()
	if err != nil {
		return apiError(c, fiber.StatusBadRequest, "could not open upload")
	}
	defer file.Close()

	pattern := "upload-*"
	if strings.HasSuffix(strings.ToLower(header.Filename), ".pdf") {
		pattern = "upload-*.pdf"
	}
	tmp, err := os.CreateTemp("", pattern)
	if err != nil {
		return apiError(c, fiber.StatusInternalServerError, "could not stage upload")
	}
	defer os.Remove(tmp.Name())
	if _, err := io.Copy(tmp, file); err != nil {
		tmp.Close()
		return apiError(c, fiber.StatusInternalServerError, "could not stage upload")
	}
	tmp.Close()

	result, err := h.Coordinator.IngestFile(c.Context(), tmp.Name(), docType)
	if err != nil {
		return apiError(c, fiber.StatusUnprocessableEntity, err.Error())
	}
	return c.JSON(result)
}

func (h *Handler) handleListTransactions(c *fiber.Ctx) error {
	months, err := h.requestedMonths(c)
	if err != nil {
		return apiError(c, fiber.StatusBadRequest, err.Error())
	}

	txns := []models.Transaction{}
	for _, month := range months {
		start, endExclusive, err := monthRange(month)
		if err != nil {
			return apiError(c, fiber.StatusBadRequest, err.Error())
		}
		batch, err := h.Store.ListTransactions(c.Context(), start, endExclusive)
		if err != nil {
			return apiError(c, fiber.StatusInternalServerError, err.Error())
		}
		txns = append(txns, batch...)
	}

	return c.JSON(fiber.Map{
		"months":       months,
		"count":        len(txns),
		"transactions": txns,
	})
}

type overrideRequest struct {
	Category string `json:"category"`
}

func (h *Handler) handleOverrideCategory(c *fiber.Ctx) error {
	var req overrideRequest
	if err := c.BodyParser(&req); err != nil || strings.TrimSpace(req.Category) == "" {
		return apiError(c, fiber.StatusBadRequest, "body must be {\"category\": \"...\"}")
	}

	hash := c.Params("hash")
	txn, err := h.Store.GetTransaction(c.Context(), hash)
	if err != nil {
		return apiError(c, fiber.StatusInternalServerError, err.Error())
	}
	if txn == nil {
		return apiError(c, fiber.StatusNotFound, "no transaction with that content hash")
	}

	override := &models.CategoryOverride{
		ContentHash:      hash,
		OriginalCategory: txn.Category,
		OverrideCategory: strings.ToUpper(strings.TrimSpace(req.Category)),
	}
	if err := h.Store.SetOverride(c.Context(), override); err != nil {
		return apiError(c, fiber.StatusInternalServerError, err.Error())
	}
	h.Store.InvalidateSummaries()
	return c.JSON(override)
}

func (h *Handler) handleSummary(c *fiber.Ctx) error {
	month := c.Params("month")
	start, endExclusive, err := monthRange(month)
	if err != nil {
		return apiError(c, fiber.StatusBadRequest, err.Error())
	}
	summary, err := h.Store.MonthlySummary(c.Context(), month, start, endExclusive)
	if err != nil {
		return apiError(c, fiber.StatusInternalServerError, err.Error())
	}
	return c.JSON(summary)
}

func (h *Handler) handleListRules(c *fiber.Ctx) error {
	rules, err := h.Store.ListRules(c.Context())
	if err != nil {
		return apiError(c, fiber.StatusInternalServerError, err.Error())
	}
	if rules == nil {
		rules = []models.CategoryRule{}
	}
	return c.JSON(rules)
}

func (h *Handler) handleCreateRule(c *fiber.Ctx) error {
	var rule models.CategoryRule
	if err := c.BodyParser(&rule); err != nil {
		return apiError(c, fiber.StatusBadRequest, "invalid rule body")
	}
	if strings.TrimSpace(rule.Pattern) == "" || strings.TrimSpace(rule.Category) == "" {
		return apiError(c, fiber.StatusBadRequest, "pattern and category are required")
	}
	if rule.Priority < 1 || rule.Priority > 99 {
		return apiError(c, fiber.StatusBadRequest, "priority must be between 1 and 99")
	}
	created, err := h.Store.CreateRule(c.Context(), &rule)
	if err != nil {
		return apiError(c, fiber.StatusInternalServerError, err.Error())
	}
	return c.Status(fiber.StatusCreated).JSON(created)
}

func (h *Handler) handleUpdateRule(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil {
		return apiError(c, fiber.StatusBadRequest, "invalid rule id")
	}
	var rule models.CategoryRule
	if err := c.BodyParser(&rule); err != nil {
		return apiError(c, fiber.StatusBadRequest, "invalid rule body")
	}
	rule.ID = int64(id)
	ok, err := h.Store.UpdateRule(c.Context(), &rule)
	if err != nil {
		return apiError(c, fiber.StatusInternalServerError, err.Error())
	}
	if !ok {
		return apiError(c, fiber.StatusNotFound, "no rule with that id")
	}
	return c.JSON(rule)
}

func (h *Handler) handleDeleteRule(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil {
		return apiError(c, fiber.StatusBadRequest, "invalid rule id")
	}
	ok, err := h.Store.DeleteRule(c.Context(), int64(id))
	if err != nil {
		return apiError(c, fiber.StatusInternalServerError, err.Error())
	}
	if !ok {
		return apiError(c, fiber.StatusNotFound, "no rule with that id")
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// handleApplyRules re-runs classification over every stored transaction
// with the current rule set. Overrides keep shadowing the result.
func (h *Handler) handleApplyRules(c *fiber.Ctx) error {
	rules, err := h.Store.ListRules(c.Context())
	if err != nil {
		return apiError(c, fiber.StatusInternalServerError, err.Error())
	}
	keywords, err := h.Store.ListKeywords(c.Context())
	if err != nil {
		return apiError(c, fiber.StatusInternalServerError, err.Error())
	}
	set := category.Assemble(rules, keywords)

	updated, err := h.Store.ReclassifyAll(c.Context(), set.Classify)
	if err != nil {
		return apiError(c, fiber.StatusInternalServerError, err.Error())
	}
	return c.JSON(fiber.Map{"updated": updated})
}

func (h *Handler) handleListKeywords(c *fiber.Ctx) error {
	keywords, err := h.Store.ListKeywords(c.Context())
	if err != nil {
		return apiError(c, fiber.StatusInternalServerError, err.Error())
	}
	return c.JSON(keywords)
}

type keywordsRequest struct {
	Keywords []string `json:"keywords"`
}

func (h *Handler) handlePutKeywords(c *fiber.Ctx) error {
	cat := strings.ToUpper(c.Params("category"))
	var req keywordsRequest
	if err := c.BodyParser(&req); err != nil {
		return apiError(c, fiber.StatusBadRequest, "body must be {\"keywords\": [...]}")
	}
	if err := h.Store.PutKeywords(c.Context(), cat, req.Keywords); err != nil {
		return apiError(c, fiber.StatusInternalServerError, err.Error())
	}
	return c.JSON(fiber.Map{"category": cat, "keywords": len(req.Keywords)})
}

func (h *Handler) handleExportCSV(c *fiber.Ctx) error {
	months, err := h.requestedMonths(c)
	if err != nil {
		return apiError(c, fiber.StatusBadRequest, err.Error())
	}

	var txns []models.Transaction
	for _, month := range months {
		start, endExclusive, err := monthRange(month)
		if err != nil {
			return apiError(c, fiber.StatusBadRequest, err.Error())
		}
		batch, err := h.Store.ListTransactions(c.Context(), start, endExclusive)
		if err != nil {
			return apiError(c, fiber.StatusInternalServerError, err.Error())
		}
		txns = append(txns, batch...)
	}

	var buf bytes.Buffer
	w := &writer.CSVWriter{IncludeHash: c.QueryBool("hash")}
	if err := w.Write(&buf, txns); err != nil {
		return apiError(c, fiber.StatusInternalServerError, err.Error())
	}
	c.Set(fiber.HeaderContentType, "text/csv")
	c.Set(fiber.HeaderContentDisposition, `attachment; filename="transactions.csv"`)
	return c.Send(buf.Bytes())
}

// requestedMonths resolves the month/timeframe query parameters into a
// chronological list of month tokens. Exactly one of the two must be
// given.
func (h *Handler) requestedMonths(c *fiber.Ctx) ([]string, error) {
	month := c.Query("month")
	timeframe := c.Query("timeframe")
	switch {
	case month != "" && timeframe != "":
		return nil, errBothParams
	case month != "":
		return []string{month}, nil
	case timeframe != "":
		return dates.MonthsForTimeframe(timeframe, h.now())
	default:
		return nil, errNoParams
	}
}

var (
	errBothParams = fiber.NewError(fiber.StatusBadRequest, "specify month or timeframe, not both")
	errNoParams   = fiber.NewError(fiber.StatusBadRequest, "specify a month (YYYY-MM) or timeframe query parameter")
)

// monthRange converts a month token into a half-open [start, end) range
// for database queries.
func monthRange(month string) (time.Time, time.Time, error) {
	start, last, err := dates.MonthBounds(month)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return start, last.AddDate(0, 0, 1), nil
}

func apiError(c *fiber.Ctx, status int, msg string) error {
	return c.Status(status).JSON(fiber.Map{
		"success": false,
		"error":   msg,
	})
}
