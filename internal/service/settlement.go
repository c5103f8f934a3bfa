package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/mmynk/settlebot/internal/calculator"
	"github.com/mmynk/settlebot/internal/models"
)

// Settlement computes debts and closes settlement cycles.
type Settlement struct {
	registry *Registry
	catalog  *Catalog
	ledger   *Ledger
	teams    *keyedMutex
}

// NewSettlement creates a Settlement over the other three components.
func NewSettlement(registry *Registry, catalog *Catalog, ledger *Ledger) *Settlement {
	return &Settlement{
		registry: registry,
		catalog:  catalog,
		ledger:   ledger,
		teams:    newKeyedMutex(),
	}
}

// ComputeDebts returns, for every member, the amount owed to every buyer.
// It only reads, so repeated calls on unchanged data agree.
func (s *Settlement) ComputeDebts(ctx context.Context, teamID string) (calculator.Debts, error) {
	members, err := s.registry.ListMembers(ctx, teamID)
	if err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}
	return s.computeDebts(ctx, teamID, members)
}

func (s *Settlement) computeDebts(ctx context.Context, teamID string, members []models.User) (calculator.Debts, error) {
	products, err := s.catalog.ListByTeam(ctx, teamID)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	claims, err := s.ledger.ListByTeam(ctx, teamID)
	if err != nil {
		return nil, fmt.Errorf("failed to list claims: %w", err)
	}

	// Convert to calculator format
	memberIDs := make([]int64, len(members))
	for i, m := range members {
		memberIDs[i] = m.ID
	}
	calcProducts := make([]calculator.ProductForDebt, len(products))
	for i, p := range products {
		calcProducts[i] = calculator.ProductForDebt{
			ID:         p.ID,
			BuyerID:    p.BuyerID,
			TotalPrice: p.TotalPrice,
		}
	}
	calcClaims := make([]calculator.ClaimForDebt, len(claims))
	for i, c := range claims {
		calcClaims[i] = calculator.ClaimForDebt{
			ClaimantID: c.ClaimantID,
			ProductID:  c.ProductID,
		}
	}

	return calculator.ComputeDebts(memberIDs, calcProducts, calcClaims), nil
}

// Settle closes the team's cycle: it computes the debts, dissolves the team
// and returns the statement to deliver. Calls for one team are serialized;
// a trigger that arrives after the team is gone gets ErrAlreadySettled, so
// exactly one caller ever receives the statement. If someone joins between
// the roster read and the dissolve, nothing is deleted and
// ErrContactMissing is returned; the newcomer's contact settles later.
func (s *Settlement) Settle(ctx context.Context, teamID string) (*models.Statement, error) {
	unlock := s.teams.Lock(teamID)
	defer unlock()

	members, err := s.registry.ListMembers(ctx, teamID)
	if err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}
	if len(members) == 0 {
		return nil, ErrAlreadySettled
	}
	if !allHaveContact(members) {
		return nil, ErrContactMissing
	}

	debts, err := s.computeDebts(ctx, teamID, members)
	if err != nil {
		return nil, err
	}

	roster := make([]int64, len(members))
	for i, m := range members {
		roster[i] = m.ID
	}
	removed, err := s.registry.DissolveTeam(ctx, teamID, roster)
	if errors.Is(err, ErrRosterChanged) {
		slog.Info("Settlement postponed, roster changed", "team_id", teamID)
		return nil, ErrContactMissing
	}
	if err != nil {
		return nil, err
	}
	if removed == 0 {
		return nil, ErrAlreadySettled
	}

	slog.Info("Team settled",
		"team_id", teamID,
		"members_count", len(members),
		"debts_count", len(debts.Edges()),
	)

	return &models.Statement{
		TeamID:  teamID,
		Members: members,
		Debts:   debts,
	}, nil
}
