package storage

import (
	"context"
	"fmt"
	"sync"

	"github.com/dgraph-io/ristretto"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// Store is the PostgreSQL persistence layer for the ledger.
type Store struct {
	pool *pgxpool.Pool
	log  zerolog.Logger

	cache     *ristretto.Cache
	cacheKeys struct {
		sync.Mutex
		m map[string]struct{}
	}
}

// Connect opens a pgx connection pool and verifies it with a ping.
func Connect(ctx context.Context, url string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return pool, nil
}

// New wraps a connection pool in a Store with a summary cache.
func New(pool *pgxpool.Pool, log zerolog.Logger) (*Store, error) {
	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: 10000, // number of keys to track frequency of
		MaxCost:     10000,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("init summary cache: %w", err)
	}
	s := &Store{pool: pool, log: log, cache: cache}
	s.cacheKeys.m = make(map[string]struct{})
	return s, nil
}

// Close releases the pool and cache.
func (s *Store) Close() {
	s.cache.Close()
	s.pool.Close()
}

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS transactions (
		id BIGSERIAL PRIMARY KEY,
		content_hash TEXT NOT NULL UNIQUE,
		date TIMESTAMPTZ NOT NULL,
		description TEXT NOT NULL,
		amount NUMERIC(12,2) NOT NULL,
		category TEXT NOT NULL,
		account_type TEXT NOT NULL,
		card_member TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_transactions_date ON transactions (date)`,
	`CREATE TABLE IF NOT EXISTS income (
		id BIGSERIAL PRIMARY KEY,
		period_start TIMESTAMPTZ NOT NULL,
		period_end TIMESTAMPTZ NOT NULL,
		gross_pay NUMERIC(12,2) NOT NULL,
		net_pay NUMERIC(12,2) NOT NULL DEFAULT 0,
		tax NUMERIC(12,2) NOT NULL DEFAULT 0,
		superannuation NUMERIC(12,2) NOT NULL DEFAULT 0,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		UNIQUE (period_start, period_end, gross_pay)
	)`,
	`CREATE TABLE IF NOT EXISTS category_rules (
		id BIGSERIAL PRIMARY KEY,
		pattern TEXT NOT NULL,
		category TEXT NOT NULL,
		priority INT NOT NULL DEFAULT 50,
		enabled BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS category_keywords (
		category TEXT NOT NULL,
		keyword TEXT NOT NULL,
		PRIMARY KEY (category, keyword)
	)`,
	`CREATE TABLE IF NOT EXISTS category_overrides (
		content_hash TEXT PRIMARY KEY,
		original_category TEXT NOT NULL,
		override_category TEXT NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS monthly_summaries (
		month TEXT PRIMARY KEY,
		total_spend NUMERIC(14,2) NOT NULL,
		total_income NUMERIC(14,2) NOT NULL,
		transaction_count INT NOT NULL,
		category_breakdown JSONB NOT NULL,
		computed_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
}

// Migrate applies the schema. Every statement is idempotent, so Migrate
// is safe to run at every startup.
func (s *Store) Migrate(ctx context.Context) error {
	for _, stmt := range migrations {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	s.log.Debug().Int("statements", len(migrations)).Msg("schema migrated")
	return nil
}
