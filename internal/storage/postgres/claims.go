package postgres

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/mmynk/settlebot/internal/models"
	"github.com/mmynk/settlebot/internal/storage"
)

// ToggleClaim removes an existing claim or creates a missing one.
// Toggles of the same (claimant, product) pair are serialized by an advisory lock.
func (s *Store) ToggleClaim(ctx context.Context, claim *models.Claim) (bool, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("postgres: begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := lockKey(ctx, tx, "claim:"+strconv.FormatInt(claim.ClaimantID, 10)+":"+claim.ProductID); err != nil {
		return false, err
	}

	var teamID string
	err = tx.QueryRow(ctx, `SELECT team_id FROM products WHERE id = $1`, claim.ProductID).Scan(&teamID)
	if errors.Is(err, pgx.ErrNoRows) || (err == nil && teamID != claim.TeamID) {
		return false, storage.ErrUnknownProduct
	}
	if err != nil {
		return false, fmt.Errorf("postgres: check product: %w", err)
	}

	tag, err := tx.Exec(ctx,
		`DELETE FROM claims WHERE claimant_id = $1 AND product_id = $2`,
		claim.ClaimantID, claim.ProductID)
	if err != nil {
		return false, fmt.Errorf("postgres: delete claim: %w", err)
	}

	added := tag.RowsAffected() == 0
	if added {
		if claim.ID == "" {
			claim.ID = uuid.New().String()
		}
		_, err = tx.Exec(ctx,
			`INSERT INTO claims (id, claimant_id, product_id, team_id) VALUES ($1, $2, $3, $4)
			 ON CONFLICT (claimant_id, product_id) DO NOTHING`,
			claim.ID, claim.ClaimantID, claim.ProductID, claim.TeamID)
		if err != nil {
			return false, fmt.Errorf("postgres: insert claim: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return false, fmt.Errorf("postgres: commit tx: %w", err)
	}
	return added, nil
}

// ListClaimedProducts returns the IDs of products claimed by a user in a team.
func (s *Store) ListClaimedProducts(ctx context.Context, claimantID int64, teamID string) ([]string, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT product_id FROM claims WHERE claimant_id = $1 AND team_id = $2 ORDER BY seq`,
		claimantID, teamID)
	if err != nil {
		return nil, fmt.Errorf("postgres: list claims: %w", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("postgres: collect claims: %w", err)
	}
	return ids, nil
}

// CountClaims returns the number of distinct claimants of a product.
func (s *Store) CountClaims(ctx context.Context, productID string) (int, error) {
	var count int
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(DISTINCT claimant_id) FROM claims WHERE product_id = $1`, productID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("postgres: count claims: %w", err)
	}
	return count, nil
}

// ListClaimsByTeam returns every claim of a team.
func (s *Store) ListClaimsByTeam(ctx context.Context, teamID string) ([]models.Claim, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, claimant_id, product_id, team_id FROM claims WHERE team_id = $1 ORDER BY seq`, teamID)
	if err != nil {
		return nil, fmt.Errorf("postgres: list claims by team: %w", err)
	}
	defer rows.Close()

	var claims []models.Claim
	for rows.Next() {
		var c models.Claim
		if err := rows.Scan(&c.ID, &c.ClaimantID, &c.ProductID, &c.TeamID); err != nil {
			return nil, fmt.Errorf("postgres: scan claim: %w", err)
		}
		claims = append(claims, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: iterate claims: %w", err)
	}
	return claims, nil
}

// DeleteClaimsByTeam removes every claim of a team.
func (s *Store) DeleteClaimsByTeam(ctx context.Context, teamID string) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM claims WHERE team_id = $1`, teamID)
	if err != nil {
		return 0, fmt.Errorf("postgres: delete claims: %w", err)
	}
	return tag.RowsAffected(), nil
}
