package storage

import (
	"context"

	"github.com/ledgerkit/statement-ingest/internal/models"
)

// ListRules returns every stored category rule ordered by priority
// then id, including disabled ones.
func (s *Store) ListRules(ctx context.Context) ([]models.CategoryRule, error) {
	query := `
		SELECT id, pattern, category, priority, enabled
		FROM category_rules
		ORDER BY priority, id
	`
	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rules []models.CategoryRule
	for rows.Next() {
		var r models.CategoryRule
		if err := rows.Scan(&r.ID, &r.Pattern, &r.Category, &r.Priority, &r.Enabled); err != nil {
			return nil, err
		}
		rules = append(rules, r)
	}
	return rules, rows.Err()
}

// CreateRule inserts a rule and returns it with its assigned id.
func (s *Store) CreateRule(ctx context.Context, rule *models.CategoryRule) (*models.CategoryRule, error) {
	query := `
		INSERT INTO category_rules (pattern, category, priority, enabled)
		VALUES ($1, $2, $3, $4)
		RETURNING id, pattern, category, priority, enabled
	`
	var r models.CategoryRule
	err := s.pool.QueryRow(ctx, query, rule.Pattern, rule.Category, rule.Priority, rule.Enabled).
		Scan(&r.ID, &r.Pattern, &r.Category, &r.Priority, &r.Enabled)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// UpdateRule replaces a rule's pattern, category, priority, and
// enabled flag. Returns false when no rule has the given id.
func (s *Store) UpdateRule(ctx context.Context, rule *models.CategoryRule) (bool, error) {
	query := `
		UPDATE category_rules
		SET pattern = $1, category = $2, priority = $3, enabled = $4
		WHERE id = $5
	`
	tag, err := s.pool.Exec(ctx, query, rule.Pattern, rule.Category, rule.Priority, rule.Enabled, rule.ID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// DeleteRule removes a rule. Returns false when no rule has the given id.
func (s *Store) DeleteRule(ctx context.Context, id int64) (bool, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM category_rules WHERE id = $1`, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// ListKeywords returns the persisted keyword lists grouped by category.
func (s *Store) ListKeywords(ctx context.Context) (map[string][]string, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT category, keyword FROM category_keywords ORDER BY category, keyword`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	keywords := make(map[string][]string)
	for rows.Next() {
		var category, keyword string
		if err := rows.Scan(&category, &keyword); err != nil {
			return nil, err
		}
		keywords[category] = append(keywords[category], keyword)
	}
	return keywords, rows.Err()
}

// PutKeywords replaces the keyword list for one category.
func (s *Store) PutKeywords(ctx context.Context, category string, keywords []string) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx,
		`DELETE FROM category_keywords WHERE category = $1`, category); err != nil {
		return err
	}
	for _, kw := range keywords {
		if _, err := tx.Exec(ctx,
			`INSERT INTO category_keywords (category, keyword) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
			category, kw); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}
