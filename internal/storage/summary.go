package storage

import (
	"context"
	"encoding/json"
	"time"

	"github.com/ledgerkit/statement-ingest/internal/models"
)

// MonthlySummary returns the aggregate for one month, recomputing it
// from the transaction and income tables. Results are cached until the
// next ingestion or reclassification invalidates them. start and end
// bound the month in the ledger timezone; month is its YYYY-MM token.
func (s *Store) MonthlySummary(ctx context.Context, month string, start, end time.Time) (*models.MonthlySummary, error) {
	cacheKey := "summary:" + month
	if v, ok := s.cache.Get(cacheKey); ok {
		if summary, ok := v.(*models.MonthlySummary); ok {
			return summary, nil
		}
	}

	summary, err := s.computeSummary(ctx, month, start, end)
	if err != nil {
		return nil, err
	}
	if err := s.storeSummary(ctx, summary); err != nil {
		return nil, err
	}

	s.cacheKeys.Lock()
	s.cacheKeys.m[cacheKey] = struct{}{}
	s.cacheKeys.Unlock()
	s.cache.Set(cacheKey, summary, 1)
	return summary, nil
}

// InvalidateSummaries drops every cached summary. Called after any
// write that changes transactions, income, or categories.
func (s *Store) InvalidateSummaries() {
	s.cacheKeys.Lock()
	for key := range s.cacheKeys.m {
		s.cache.Del(key)
	}
	s.cacheKeys.m = make(map[string]struct{})
	s.cacheKeys.Unlock()
}

func (s *Store) computeSummary(ctx context.Context, month string, start, end time.Time) (*models.MonthlySummary, error) {
	summary := &models.MonthlySummary{
		Month:             month,
		CategoryBreakdown: make(map[string]float64),
	}

	rows, err := s.pool.Query(ctx, `
		SELECT COALESCE(o.override_category, t.category), t.amount
		FROM transactions t
		LEFT JOIN category_overrides o ON o.content_hash = t.content_hash
		WHERE t.date >= $1 AND t.date < $2
	`, start, end)
	if err != nil {
		return nil, err
	}
	for rows.Next() {
		var category string
		var amount float64
		if err := rows.Scan(&category, &amount); err != nil {
			rows.Close()
			return nil, err
		}
		summary.TransactionCount++
		if amount > 0 {
			summary.TotalSpend += amount
			summary.CategoryBreakdown[category] += amount
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	err = s.pool.QueryRow(ctx, `
		SELECT COALESCE(SUM(gross_pay), 0)
		FROM income
		WHERE period_end >= $1 AND period_end < $2
	`, start, end).Scan(&summary.TotalIncome)
	if err != nil {
		return nil, err
	}
	return summary, nil
}

func (s *Store) storeSummary(ctx context.Context, summary *models.MonthlySummary) error {
	breakdown, err := json.Marshal(summary.CategoryBreakdown)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO monthly_summaries (month, total_spend, total_income, transaction_count, category_breakdown)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (month) DO UPDATE
		SET total_spend = EXCLUDED.total_spend,
		    total_income = EXCLUDED.total_income,
		    transaction_count = EXCLUDED.transaction_count,
		    category_breakdown = EXCLUDED.category_breakdown,
		    computed_at = NOW()
	`, summary.Month, summary.TotalSpend, summary.TotalIncome,
		summary.TransactionCount, breakdown)
	return err
}
