package storage

import (
	"context"
	"time"

	"github.com/ledgerkit/statement-ingest/internal/models"
)

// InsertIncome writes an income record unless one with the same
// (period start, period end, gross pay) already exists. Returns true
// when a row was inserted.
func (s *Store) InsertIncome(ctx context.Context, r *models.IncomeRecord) (bool, error) {
	query := `
		INSERT INTO income (period_start, period_end, gross_pay, net_pay, tax, superannuation)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (period_start, period_end, gross_pay) DO NOTHING
	`
	tag, err := s.pool.Exec(ctx, query,
		r.PeriodStart, r.PeriodEnd, r.GrossPay, r.NetPay, r.Tax, r.Superannuation)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// ListIncome returns income records whose period end falls in
// [start, end), ordered by period end.
func (s *Store) ListIncome(ctx context.Context, start, end time.Time) ([]models.IncomeRecord, error) {
	query := `
		SELECT period_start, period_end, gross_pay, net_pay, tax, superannuation
		FROM income
		WHERE period_end >= $1 AND period_end < $2
		ORDER BY period_end
	`
	rows, err := s.pool.Query(ctx, query, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []models.IncomeRecord
	for rows.Next() {
		var r models.IncomeRecord
		if err := rows.Scan(&r.PeriodStart, &r.PeriodEnd,
			&r.GrossPay, &r.NetPay, &r.Tax, &r.Superannuation); err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	return records, rows.Err()
}
