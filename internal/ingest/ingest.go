// Package ingest coordinates the document-to-ledger pipeline: extract
// text, detect the document type, parse, classify, hash, and persist
// with content-hash deduplication.
package ingest

import (
	"context"

	"github.com/ledgerkit/statement-ingest/internal/models"
)

// Store is the persistence surface the coordinator needs. *storage.Store
// satisfies it; tests substitute an in-memory implementation.
type Store interface {
	InsertTransaction(ctx context.Context, t *models.Transaction) (bool, error)
	InsertIncome(ctx context.Context, r *models.IncomeRecord) (bool, error)
	ListRules(ctx context.Context) ([]models.CategoryRule, error)
	ListKeywords(ctx context.Context) (map[string][]string, error)
	InvalidateSummaries()
}
