package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"

	"github.com/mmynk/settlebot/internal/models"
	"github.com/mmynk/settlebot/internal/storage"
)

// Catalog owns the purchased items of every team.
type Catalog struct {
	store storage.ProductStore
}

// NewCatalog creates a Catalog with the given storage backend.
func NewCatalog(store storage.ProductStore) *Catalog {
	return &Catalog{store: store}
}

// validateProduct checks quantity and total price are strictly positive.
func validateProduct(p *models.Product) error {
	if p.Quantity <= 0 {
		return fmt.Errorf("%w: quantity %d must be positive", ErrInvalidProduct, p.Quantity)
	}
	if p.TotalPrice <= 0 || math.IsNaN(p.TotalPrice) || math.IsInf(p.TotalPrice, 0) {
		return fmt.Errorf("%w: total price %v must be positive", ErrInvalidProduct, p.TotalPrice)
	}
	if p.TeamID == "" {
		return fmt.Errorf("%w: missing team", ErrInvalidProduct)
	}
	return nil
}

// AddProduct validates and stores a product, returning its ID.
// A zero unit price is derived from the total.
func (c *Catalog) AddProduct(ctx context.Context, product models.Product) (models.Product, error) {
	if err := validateProduct(&product); err != nil {
		return models.Product{}, err
	}
	if product.UnitPrice <= 0 {
		product.UnitPrice = product.TotalPrice / float64(product.Quantity)
	}

	if err := c.store.CreateProduct(ctx, &product); err != nil {
		return models.Product{}, err
	}

	slog.Info("Product added",
		"product_id", product.ID,
		"team_id", product.TeamID,
		"buyer_id", product.BuyerID,
		"total_price", product.TotalPrice,
	)
	return product, nil
}

// AddProducts stores every valid product of a batch. Items are independent:
// invalid ones are skipped and reported in the joined error while the rest
// are stored and returned in input order.
func (c *Catalog) AddProducts(ctx context.Context, batch []models.Product) ([]models.Product, error) {
	var (
		added []models.Product
		errs  []error
	)
	for i, p := range batch {
		stored, err := c.AddProduct(ctx, p)
		if err != nil {
			if !errors.Is(err, ErrInvalidProduct) {
				// Storage failures abort the batch.
				return added, err
			}
			errs = append(errs, fmt.Errorf("item %d (%q): %w", i, p.Name, err))
			continue
		}
		added = append(added, stored)
	}
	return added, errors.Join(errs...)
}

// ListByTeam returns the team catalog in insertion order.
func (c *Catalog) ListByTeam(ctx context.Context, teamID string) ([]models.Product, error) {
	return c.store.ListProductsByTeam(ctx, teamID)
}

// Get returns a product by ID.
func (c *Catalog) Get(ctx context.Context, productID string) (*models.Product, error) {
	return c.store.GetProduct(ctx, productID)
}

// GetTotalPrice returns the amount split among the product's claimants.
func (c *Catalog) GetTotalPrice(ctx context.Context, productID string) (float64, error) {
	p, err := c.store.GetProduct(ctx, productID)
	if err != nil {
		return 0, err
	}
	return p.TotalPrice, nil
}

// GetBuyer returns who paid for the product.
func (c *Catalog) GetBuyer(ctx context.Context, productID string) (int64, error) {
	p, err := c.store.GetProduct(ctx, productID)
	if err != nil {
		return 0, err
	}
	return p.BuyerID, nil
}

// CountBoughtBy returns how many products the buyer recorded in the team.
func (c *Catalog) CountBoughtBy(ctx context.Context, buyerID int64, teamID string) (int, error) {
	return c.store.CountProductsByBuyer(ctx, buyerID, teamID)
}

// DeleteAllForTeam removes every product of the team.
func (c *Catalog) DeleteAllForTeam(ctx context.Context, teamID string) error {
	n, err := c.store.DeleteProductsByTeam(ctx, teamID)
	if err != nil {
		return err
	}
	slog.Debug("Products deleted", "team_id", teamID, "count", n)
	return nil
}
