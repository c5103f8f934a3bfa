package service

import (
	"context"
	"log/slog"

	"github.com/mmynk/settlebot/internal/models"
	"github.com/mmynk/settlebot/internal/storage"
)

// ToggleResult tells whether a toggle created or removed a claim.
type ToggleResult int

const (
	// ClaimAdded means the user now shares the product's cost.
	ClaimAdded ToggleResult = iota
	// ClaimRemoved means the user no longer shares it.
	ClaimRemoved
)

// String returns "added" or "removed".
func (r ToggleResult) String() string {
	if r == ClaimAdded {
		return "added"
	}
	return "removed"
}

// Ledger owns who claims which product.
type Ledger struct {
	store storage.ClaimStore
}

// NewLedger creates a Ledger with the given storage backend.
func NewLedger(store storage.ClaimStore) *Ledger {
	return &Ledger{store: store}
}

// ToggleClaim creates the user's claim on a product, or removes it if it
// already exists. It is the only way claims change.
func (l *Ledger) ToggleClaim(ctx context.Context, claimantID int64, teamID, productID string) (ToggleResult, error) {
	added, err := l.store.ToggleClaim(ctx, &models.Claim{
		ClaimantID: claimantID,
		ProductID:  productID,
		TeamID:     teamID,
	})
	if err != nil {
		return ClaimRemoved, err
	}

	result := ClaimRemoved
	if added {
		result = ClaimAdded
	}
	slog.Debug("Claim toggled", "user_id", claimantID, "product_id", productID, "result", result.String())
	return result, nil
}

// ClaimsOf returns the IDs of products the user claimed in the team.
func (l *Ledger) ClaimsOf(ctx context.Context, claimantID int64, teamID string) ([]string, error) {
	return l.store.ListClaimedProducts(ctx, claimantID, teamID)
}

// ClaimCount returns the number of claimants sharing the product.
func (l *Ledger) ClaimCount(ctx context.Context, productID string) (int, error) {
	return l.store.CountClaims(ctx, productID)
}

// ListByTeam returns every claim of the team.
func (l *Ledger) ListByTeam(ctx context.Context, teamID string) ([]models.Claim, error) {
	return l.store.ListClaimsByTeam(ctx, teamID)
}

// DeleteAllForTeam removes every claim of the team.
func (l *Ledger) DeleteAllForTeam(ctx context.Context, teamID string) error {
	_, err := l.store.DeleteClaimsByTeam(ctx, teamID)
	return err
}
