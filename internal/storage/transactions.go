package storage

import (
	"context"
	"time"

	"github.com/ledgerkit/statement-ingest/internal/models"
)

// InsertTransaction writes a transaction unless one with the same
// content hash already exists. Returns true when a row was inserted,
// false when the hash was already present.
func (s *Store) InsertTransaction(ctx context.Context, t *models.Transaction) (bool, error) {
	query := `
		INSERT INTO transactions (content_hash, date, description, amount, category, account_type, card_member)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (content_hash) DO NOTHING
	`
	tag, err := s.pool.Exec(ctx, query,
		t.ContentHash, t.Date, t.Description, t.Amount, t.Category, t.AccountType, t.CardMember)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// ListTransactions returns transactions with date in [start, end),
// ordered by date then id. The category reflects any override for the
// transaction's content hash.
func (s *Store) ListTransactions(ctx context.Context, start, end time.Time) ([]models.Transaction, error) {
	query := `
		SELECT t.date, t.description, t.amount,
		       COALESCE(o.override_category, t.category),
		       t.account_type, t.card_member, t.content_hash
		FROM transactions t
		LEFT JOIN category_overrides o ON o.content_hash = t.content_hash
		WHERE t.date >= $1 AND t.date < $2
		ORDER BY t.date, t.id
	`
	rows, err := s.pool.Query(ctx, query, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var txns []models.Transaction
	for rows.Next() {
		var t models.Transaction
		if err := rows.Scan(&t.Date, &t.Description, &t.Amount,
			&t.Category, &t.AccountType, &t.CardMember, &t.ContentHash); err != nil {
			return nil, err
		}
		txns = append(txns, t)
	}
	return txns, rows.Err()
}

// GetTransaction looks up a transaction by content hash. Returns nil
// when no transaction matches.
func (s *Store) GetTransaction(ctx context.Context, contentHash string) (*models.Transaction, error) {
	query := `
		SELECT t.date, t.description, t.amount,
		       COALESCE(o.override_category, t.category),
		       t.account_type, t.card_member, t.content_hash
		FROM transactions t
		LEFT JOIN category_overrides o ON o.content_hash = t.content_hash
		WHERE t.content_hash = $1
	`
	rows, err := s.pool.Query(ctx, query, contentHash)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	if !rows.Next() {
		return nil, rows.Err()
	}
	var t models.Transaction
	if err := rows.Scan(&t.Date, &t.Description, &t.Amount,
		&t.Category, &t.AccountType, &t.CardMember, &t.ContentHash); err != nil {
		return nil, err
	}
	return &t, nil
}

// SetOverride records a category correction for all transactions
// sharing a content hash. A second override for the same hash replaces
// the first but keeps the original category from the first write.
func (s *Store) SetOverride(ctx context.Context, o *models.CategoryOverride) error {
	query := `
		INSERT INTO category_overrides (content_hash, original_category, override_category)
		VALUES ($1, $2, $3)
		ON CONFLICT (content_hash) DO UPDATE
		SET override_category = EXCLUDED.override_category, updated_at = NOW()
	`
	_, err := s.pool.Exec(ctx, query, o.ContentHash, o.OriginalCategory, o.OverrideCategory)
	return err
}

// ReclassifyAll recomputes the stored category of every transaction
// with the supplied classifier and updates the rows whose category
// changed. Overrides are untouched; they continue to shadow the stored
// category. Returns the number of updated rows.
func (s *Store) ReclassifyAll(ctx context.Context, classify func(description string) string) (int, error) {
	rows, err := s.pool.Query(ctx, `SELECT id, description, category FROM transactions`)
	if err != nil {
		return 0, err
	}

	type change struct {
		id       int64
		category string
	}
	var changes []change
	for rows.Next() {
		var id int64
		var description, category string
		if err := rows.Scan(&id, &description, &category); err != nil {
			rows.Close()
			return 0, err
		}
		if next := classify(description); next != category {
			changes = append(changes, change{id: id, category: next})
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, err
	}

	for _, c := range changes {
		if _, err := s.pool.Exec(ctx,
			`UPDATE transactions SET category = $1 WHERE id = $2`, c.category, c.id); err != nil {
			return 0, err
		}
	}
	if len(changes) > 0 {
		s.InvalidateSummaries()
	}
	return len(changes), nil
}
