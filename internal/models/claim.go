package models

// Claim represents a user's agreement to pay a share of a product.
// There is at most one claim per (ClaimantID, ProductID) pair.
type Claim struct {
	// ID is the unique identifier for the claim (UUID format).
	ID string

	// ClaimantID is the user who agreed to pay.
	ClaimantID int64

	// ProductID is the claimed product.
	ProductID string

	// TeamID is the team that owns the claim.
	TeamID string
}
