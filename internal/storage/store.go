// Package storage provides abstractions for persistent data storage.
package storage

import (
	"context"
	"errors"

	"github.com/mmynk/settlebot/internal/models"
)

var (
	// ErrUnknownTeam is returned when no user references a team token.
	ErrUnknownTeam = errors.New("unknown team")
	// ErrUnknownUser is returned when a user ID has no row.
	ErrUnknownUser = errors.New("unknown user")
	// ErrDuplicateMembership is returned when a user already belongs to a team.
	ErrDuplicateMembership = errors.New("user already belongs to a team")
	// ErrUnknownProduct is returned when a product ID has no row in the given team.
	ErrUnknownProduct = errors.New("unknown product")
	// ErrRosterChanged is returned when a team's members differ from the
	// roster a dissolve was computed for.
	ErrRosterChanged = errors.New("team roster changed")
)

// SameRoster reports whether current and roster hold the same user IDs.
func SameRoster(current, roster []int64) bool {
	if len(current) != len(roster) {
		return false
	}
	seen := make(map[int64]bool, len(roster))
	for _, id := range roster {
		seen[id] = true
	}
	for _, id := range current {
		if !seen[id] {
			return false
		}
	}
	return true
}

// UserStore persists users and, through them, the derived teams.
type UserStore interface {
	// CreateUser inserts a user that starts a new team.
	// Returns ErrDuplicateMembership if the user already has a row.
	CreateUser(ctx context.Context, user *models.User) error

	// JoinTeam inserts a user into an existing team. The existence check and
	// the insert run in one transaction so a join cannot race a dissolve.
	// Returns ErrUnknownTeam or ErrDuplicateMembership.
	JoinTeam(ctx context.Context, user *models.User) error

	// GetUser retrieves a user by ID. Returns ErrUnknownUser if missing.
	GetUser(ctx context.Context, userID int64) (*models.User, error)

	// ListMembers returns every user of a team, oldest first.
	// An unknown team yields an empty slice.
	ListMembers(ctx context.Context, teamID string) ([]models.User, error)

	// UpdateContact stores the user's contact info.
	UpdateContact(ctx context.Context, userID int64, phone string, paymentLink *string) error

	// UpdateStage moves the user to a new conversation stage.
	UpdateStage(ctx context.Context, userID int64, stage models.Stage) error
}

// ProductStore persists purchased items.
type ProductStore interface {
	// CreateProduct persists a product. ID and CreatedAt are filled in when empty.
	CreateProduct(ctx context.Context, product *models.Product) error

	// GetProduct retrieves a product by ID. Returns ErrUnknownProduct if missing.
	GetProduct(ctx context.Context, productID string) (*models.Product, error)

	// ListProductsByTeam returns the team catalog in insertion order.
	ListProductsByTeam(ctx context.Context, teamID string) ([]models.Product, error)

	// CountProductsByBuyer returns how many products a buyer recorded in a team.
	CountProductsByBuyer(ctx context.Context, buyerID int64, teamID string) (int, error)

	// DeleteProductsByTeam removes every product of a team.
	DeleteProductsByTeam(ctx context.Context, teamID string) (int64, error)
}

// ClaimStore persists product claims.
type ClaimStore interface {
	// ToggleClaim removes the claim for (ClaimantID, ProductID) if it exists
	// and creates it otherwise, atomically. It reports whether a claim was added.
	// Returns ErrUnknownProduct if the product is not in claim.TeamID.
	ToggleClaim(ctx context.Context, claim *models.Claim) (bool, error)

	// ListClaimedProducts returns the IDs of products claimed by a user in a team.
	ListClaimedProducts(ctx context.Context, claimantID int64, teamID string) ([]string, error)

	// CountClaims returns the number of distinct claimants of a product.
	CountClaims(ctx context.Context, productID string) (int, error)

	// ListClaimsByTeam returns every claim of a team.
	ListClaimsByTeam(ctx context.Context, teamID string) ([]models.Claim, error)

	// DeleteClaimsByTeam removes every claim of a team.
	DeleteClaimsByTeam(ctx context.Context, teamID string) (int64, error)
}

// Store defines the interface for all storage operations.
// This abstraction allows swapping storage backends (SQLite, PostgreSQL)
// without changing the service layer.
type Store interface {
	UserStore
	ProductStore
	ClaimStore

	// DissolveTeam deletes the team's claims, products and users in a single
	// transaction and returns the number of users removed. The members are
	// re-read inside the transaction; if they differ from roster nothing is
	// deleted and ErrRosterChanged is returned. Dissolving a team that no
	// longer exists removes nothing and is not an error.
	DissolveTeam(ctx context.Context, teamID string, roster []int64) (int, error)

	// Close releases any resources held by the store.
	Close() error
}
