package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/mmynk/settlebot/internal/models"
	"github.com/mmynk/settlebot/internal/storage"
)

// ToggleClaim removes an existing claim or creates a missing one in a single transaction.
func (s *SQLiteStore) ToggleClaim(ctx context.Context, claim *models.Claim) (bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var teamID string
	err = tx.QueryRowContext(ctx, "SELECT team_id FROM products WHERE id = ?", claim.ProductID).Scan(&teamID)
	if errors.Is(err, sql.ErrNoRows) || (err == nil && teamID != claim.TeamID) {
		return false, storage.ErrUnknownProduct
	}
	if err != nil {
		return false, fmt.Errorf("failed to check product: %w", err)
	}

	res, err := tx.ExecContext(ctx,
		"DELETE FROM claims WHERE claimant_id = ? AND product_id = ?",
		claim.ClaimantID, claim.ProductID,
	)
	if err != nil {
		return false, fmt.Errorf("failed to delete claim: %w", err)
	}
	removed, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to check deleted claims: %w", err)
	}

	added := removed == 0
	if added {
		if claim.ID == "" {
			claim.ID = uuid.New().String()
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO claims (id, claimant_id, product_id, team_id) VALUES (?, ?, ?, ?)
			 ON CONFLICT (claimant_id, product_id) DO NOTHING`,
			claim.ID, claim.ClaimantID, claim.ProductID, claim.TeamID,
		)
		if err != nil {
			return false, fmt.Errorf("failed to insert claim: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return added, nil
}

// ListClaimedProducts returns the IDs of products claimed by a user in a team.
func (s *SQLiteStore) ListClaimedProducts(ctx context.Context, claimantID int64, teamID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT product_id FROM claims WHERE claimant_id = ? AND team_id = ? ORDER BY rowid",
		claimantID, teamID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list claims: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan claim: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate claims: %w", err)
	}

	return ids, nil
}

// CountClaims returns the number of distinct claimants of a product.
func (s *SQLiteStore) CountClaims(ctx context.Context, productID string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(DISTINCT claimant_id) FROM claims WHERE product_id = ?", productID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count claims: %w", err)
	}
	return count, nil
}

// ListClaimsByTeam returns every claim of a team.
func (s *SQLiteStore) ListClaimsByTeam(ctx context.Context, teamID string) ([]models.Claim, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, claimant_id, product_id, team_id FROM claims WHERE team_id = ? ORDER BY rowid",
		teamID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list claims by team: %w", err)
	}
	defer rows.Close()

	var claims []models.Claim
	for rows.Next() {
		var c models.Claim
		if err := rows.Scan(&c.ID, &c.ClaimantID, &c.ProductID, &c.TeamID); err != nil {
			return nil, fmt.Errorf("failed to scan claim: %w", err)
		}
		claims = append(claims, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate claims: %w", err)
	}

	return claims, nil
}

// DeleteClaimsByTeam removes every claim of a team.
func (s *SQLiteStore) DeleteClaimsByTeam(ctx context.Context, teamID string) (int64, error) {
	res, err := s.db.ExecContext(ctx, "DELETE FROM claims WHERE team_id = ?", teamID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete claims: %w", err)
	}
	return res.RowsAffected()
}
