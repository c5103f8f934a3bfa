// Package postgres provides a PostgreSQL-backed implementation of the storage.Store interface.
package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mmynk/settlebot/internal/storage"
)

// Ensure Store implements storage.Store
var _ storage.Store = (*Store)(nil)

// Store implements storage.Store on a pgx connection pool.
//
// Operations that must not interleave per key (join vs dissolve of one team,
// toggles of one claim) take a transaction-scoped advisory lock.
type Store struct {
	pool *pgxpool.Pool
}

// New connects to the database and applies the schema.
func New(ctx context.Context, connString string) (*Store, error) {
	if connString == "" {
		return nil, fmt.Errorf("postgres: empty connection string")
	}

	cfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("postgres: parse config: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("postgres: create pool: %w", err)
	}

	if err := runMigrations(ctx, pool); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: run migrations: %w", err)
	}

	return &Store{pool: pool}, nil
}

// Close closes the pool.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

// DissolveTeam deletes the team's claims, products and users in one
// transaction, provided the team still has exactly the given roster. The
// team lock is the one JoinTeam takes, so no join commits in between.
func (s *Store) DissolveTeam(ctx context.Context, teamID string, roster []int64) (int, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("postgres: begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := lockKey(ctx, tx, "team:"+teamID); err != nil {
		return 0, err
	}

	rows, err := tx.Query(ctx, `SELECT id FROM users WHERE team_id = $1`, teamID)
	if err != nil {
		return 0, fmt.Errorf("postgres: list team members: %w", err)
	}
	current, err := pgx.CollectRows(rows, pgx.RowTo[int64])
	if err != nil {
		return 0, fmt.Errorf("postgres: scan team members: %w", err)
	}
	if len(current) == 0 {
		return 0, nil
	}
	if !storage.SameRoster(current, roster) {
		return 0, storage.ErrRosterChanged
	}

	if _, err := tx.Exec(ctx, `DELETE FROM claims WHERE team_id = $1`, teamID); err != nil {
		return 0, fmt.Errorf("postgres: delete claims: %w", err)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM products WHERE team_id = $1`, teamID); err != nil {
		return 0, fmt.Errorf("postgres: delete products: %w", err)
	}
	tag, err := tx.Exec(ctx, `DELETE FROM users WHERE team_id = $1`, teamID)
	if err != nil {
		return 0, fmt.Errorf("postgres: delete users: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("postgres: commit tx: %w", err)
	}

	return int(tag.RowsAffected()), nil
}

// lockKey takes an advisory lock released at the end of the transaction.
func lockKey(ctx context.Context, tx pgx.Tx, key string) error {
	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, key); err != nil {
		return fmt.Errorf("postgres: advisory lock: %w", err)
	}
	return nil
}
