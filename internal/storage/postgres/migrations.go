package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// schema is applied statement by statement on startup.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
    id BIGINT PRIMARY KEY,
    seq BIGSERIAL,
    chat_id BIGINT NOT NULL,
    name TEXT NOT NULL,
    team_id TEXT NOT NULL,
    phone TEXT,
    payment_link TEXT,
    stage INTEGER NOT NULL DEFAULT 0,
    created_at BIGINT NOT NULL
)`,
	`CREATE TABLE IF NOT EXISTS products (
    id TEXT PRIMARY KEY,
    seq BIGSERIAL,
    name TEXT NOT NULL,
    quantity INTEGER NOT NULL CHECK (quantity > 0),
    unit_price DOUBLE PRECISION NOT NULL,
    total_price DOUBLE PRECISION NOT NULL CHECK (total_price > 0),
    team_id TEXT NOT NULL,
    receipt_id TEXT NOT NULL,
    buyer_id BIGINT NOT NULL,
    created_at BIGINT NOT NULL
)`,
	`CREATE TABLE IF NOT EXISTS claims (
    id TEXT PRIMARY KEY,
    seq BIGSERIAL,
    claimant_id BIGINT NOT NULL,
    product_id TEXT NOT NULL REFERENCES products(id) ON DELETE CASCADE,
    team_id TEXT NOT NULL,
    UNIQUE (claimant_id, product_id)
)`,
	`CREATE INDEX IF NOT EXISTS idx_users_team_id ON users(team_id)`,
	`CREATE INDEX IF NOT EXISTS idx_products_team_id ON products(team_id)`,
	`CREATE INDEX IF NOT EXISTS idx_claims_team_id ON claims(team_id)`,
	`CREATE INDEX IF NOT EXISTS idx_claims_product_id ON claims(product_id)`,
}

func runMigrations(ctx context.Context, pool *pgxpool.Pool) error {
	for _, stmt := range schema {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
