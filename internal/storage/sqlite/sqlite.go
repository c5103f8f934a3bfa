// Package sqlite provides a SQLite-backed implementation of the storage.Store interface.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite" // Pure Go SQLite driver (no CGO)

	"github.com/mmynk/settlebot/internal/storage"
)

// Ensure SQLiteStore implements storage.Store
var _ storage.Store = (*SQLiteStore)(nil)

// SQLiteStore implements storage.Store using SQLite.
//
// SQLite allows a single writer at a time, so the pool is capped at one
// connection: transactions are serialized and a toggle or dissolve never
// observes a half-applied concurrent write. Methods must not issue a query
// on s.db while iterating rows from it.
type SQLiteStore struct {
	db *sql.DB
}

// New creates a new SQLiteStore with the given database path.
// It creates the parent directories and runs migrations automatically.
func New(dbPath string) (*SQLiteStore, error) {
	// Create parent directory if it doesn't exist
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	// Pragmas go in the DSN so they apply to every new connection.
	dsn := fmt.Sprintf("file:%s?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)", dbPath)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	// Run migrations
	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// DissolveTeam deletes the team's claims, products and users in one
// transaction, provided the team still has exactly the given roster.
func (s *SQLiteStore) DissolveTeam(ctx context.Context, teamID string, roster []int64) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	current, err := teamMemberIDs(ctx, tx, teamID)
	if err != nil {
		return 0, err
	}
	if len(current) == 0 {
		return 0, nil
	}
	if !storage.SameRoster(current, roster) {
		return 0, storage.ErrRosterChanged
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM claims WHERE team_id = ?", teamID); err != nil {
		return 0, fmt.Errorf("failed to delete claims: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM products WHERE team_id = ?", teamID); err != nil {
		return 0, fmt.Errorf("failed to delete products: %w", err)
	}
	res, err := tx.ExecContext(ctx, "DELETE FROM users WHERE team_id = ?", teamID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete users: %w", err)
	}
	removed, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count deleted users: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return int(removed), nil
}

func teamMemberIDs(ctx context.Context, tx *sql.Tx, teamID string) ([]int64, error) {
	rows, err := tx.QueryContext(ctx, "SELECT id FROM users WHERE team_id = ?", teamID)
	if err != nil {
		return nil, fmt.Errorf("failed to list team members: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan member id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate member ids: %w", err)
	}
	return ids, nil
}
