package models

// Product represents a purchased item recorded by its buyer.
// The buyer fronted the money; claimants split TotalPrice equally.
type Product struct {
	// ID is the unique identifier for the product (UUID format).
	ID string

	// Name is the item description (e.g., "Оранжевые апельсины").
	Name string

	// Quantity is the number of units bought. Always positive.
	Quantity int

	// UnitPrice is the price of a single unit.
	UnitPrice float64

	// TotalPrice is the amount actually split among claimants.
	// It may differ from Quantity × UnitPrice when entered as a lump sum.
	TotalPrice float64

	// TeamID is the team that owns the product.
	TeamID string

	// ReceiptID groups products recognized from the same receipt photo.
	// Products entered as free text get a receipt of their own.
	ReceiptID string

	// BuyerID is the user who paid for the product.
	BuyerID int64

	// CreatedAt is the Unix timestamp when the product was recorded.
	CreatedAt int64
}
