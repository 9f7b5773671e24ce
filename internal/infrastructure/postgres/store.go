package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

// Store bundles the repositories backed by one connection pool.
type Store struct {
	db      *sqlx.DB
	Catalog *CatalogRepository
	Orders  *OrderRepository
	Buyers  *BuyerRepository
	Settler *Settler
}

func Open(ctx context.Context, dsn string) (*Store, error) {
	db, err := sqlx.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: open: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres: ping: %w", err)
	}
	if err := migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &Store{db: db}
	s.Catalog = &CatalogRepository{db: db}
	s.Orders = &OrderRepository{db: db}
	s.Buyers = &BuyerRepository{db: db}
	s.Settler = &Settler{db: db}
	return s, nil
}

func (s *Store) Close() error { return s.db.Close() }

var schema = []string{
	`CREATE TABLE IF NOT EXISTS products (
		id          BIGSERIAL PRIMARY KEY,
		name        TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		price       NUMERIC(12,2) NOT NULL,
		stock       TEXT NOT NULL DEFAULT '',
		kind        TEXT NOT NULL DEFAULT 'key',
		created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS orders (
		id           BIGSERIAL PRIMARY KEY,
		buyer_id     BIGINT NOT NULL,
		buyer_name   TEXT NOT NULL DEFAULT '',
		product_id   BIGINT NOT NULL,
		product_name TEXT NOT NULL,
		price        NUMERIC(12,2) NOT NULL,
		payment_ref  TEXT NOT NULL UNIQUE,
		status       TEXT NOT NULL DEFAULT 'pending',
		created_at   TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS buyers (
		id         BIGINT PRIMARY KEY,
		username   TEXT NOT NULL DEFAULT '',
		first_name TEXT NOT NULL DEFAULT '',
		last_name  TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
}

func migrate(ctx context.Context, db *sqlx.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("postgres: migrate: %w", err)
		}
	}
	return nil
}
