// Package history persists one row per completed search. The scrape
// path never depends on it: a nil *Store is valid and records nothing,
// so Postgres can be absent in development.
package history

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pricescout/pricescout/internal/config"
)

// Record is one completed search.
type Record struct {
	ID            uuid.UUID `json:"id"`
	Query         string    `json:"query"`
	Location      string    `json:"location"`
	SourcesHit    int       `json:"sources_hit"`
	ProductsFound int       `json:"products_found"`
	DurationMS    int64     `json:"duration_ms"`
	CreatedAt     time.Time `json:"created_at"`
}

type Store struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

const schema = `
CREATE TABLE IF NOT EXISTS search_history (
	id UUID PRIMARY KEY,
	query TEXT NOT NULL,
	location TEXT NOT NULL,
	sources_hit INT NOT NULL,
	products_found INT NOT NULL,
	duration_ms BIGINT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_search_history_created_at ON search_history (created_at DESC);
`

// New connects to Postgres and ensures the schema exists.
func New(ctx context.Context, cfg config.DatabaseConfig, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}

	dsn := fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.DBName, cfg.SSLMode)

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ensure schema: %w", err)
	}

	return &Store{pool: pool, logger: logger.With("component", "history")}, nil
}

// Record inserts one search row. Failures are logged and swallowed: a
// missed history row must never surface to the search caller.
func (s *Store) Record(ctx context.Context, query, location string, sourcesHit, productsFound int, took time.Duration) {
	if s == nil {
		return
	}

	_, err := s.pool.Exec(ctx,
		`INSERT INTO search_history (id, query, location, sources_hit, products_found, duration_ms)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		uuid.New(), query, location, sourcesHit, productsFound, took.Milliseconds(),
	)
	if err != nil {
		s.logger.Warn("failed to record search", "query", query, "error", err)
	}
}

// Recent returns the latest searches, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Record, error) {
	if s == nil {
		return nil, nil
	}
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.pool.Query(ctx,
		`SELECT id, query, location, sources_hit, products_found, duration_ms, created_at
		 FROM search_history ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying history: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var r Record
		if err := rows.Scan(&r.ID, &r.Query, &r.Location, &r.SourcesHit, &r.ProductsFound, &r.DurationMS, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning history row: %w", err)
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

func (s *Store) Close() {
	if s != nil && s.pool != nil {
		s.pool.Close()
	}
}
