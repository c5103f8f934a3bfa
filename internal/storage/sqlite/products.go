package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mmynk/settlebot/internal/models"
	"github.com/mmynk/settlebot/internal/storage"
)

const productColumns = `id, name, quantity, unit_price, total_price, team_id, receipt_id, buyer_id, created_at`

// CreateProduct persists a new product to the database.
func (s *SQLiteStore) CreateProduct(ctx context.Context, product *models.Product) error {
	// Generate IDs if not set
	if product.ID == "" {
		product.ID = uuid.New().String()
	}
	if product.ReceiptID == "" {
		product.ReceiptID = uuid.New().String()
	}
	if product.CreatedAt == 0 {
		product.CreatedAt = time.Now().Unix()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO products (`+productColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		product.ID, product.Name, product.Quantity, product.UnitPrice, product.TotalPrice,
		product.TeamID, product.ReceiptID, product.BuyerID, product.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert product: %w", err)
	}

	return nil
}

// GetProduct retrieves a product by ID.
func (s *SQLiteStore) GetProduct(ctx context.Context, productID string) (*models.Product, error) {
	product := &models.Product{}
	err := s.db.QueryRowContext(ctx,
		`SELECT `+productColumns+` FROM products WHERE id = ?`, productID,
	).Scan(&product.ID, &product.Name, &product.Quantity, &product.UnitPrice, &product.TotalPrice,
		&product.TeamID, &product.ReceiptID, &product.BuyerID, &product.CreatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrUnknownProduct
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get product: %w", err)
	}

	return product, nil
}

// ListProductsByTeam retrieves the team catalog in insertion order.
func (s *SQLiteStore) ListProductsByTeam(ctx context.Context, teamID string) ([]models.Product, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+productColumns+` FROM products WHERE team_id = ? ORDER BY created_at, rowid`,
		teamID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list products by team: %w", err)
	}
	defer rows.Close()

	var products []models.Product
	for rows.Next() {
		var p models.Product
		if err := rows.Scan(&p.ID, &p.Name, &p.Quantity, &p.UnitPrice, &p.TotalPrice,
			&p.TeamID, &p.ReceiptID, &p.BuyerID, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate products: %w", err)
	}

	return products, nil
}

// CountProductsByBuyer returns how many products a buyer recorded in a team.
func (s *SQLiteStore) CountProductsByBuyer(ctx context.Context, buyerID int64, teamID string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM products WHERE buyer_id = ? AND team_id = ?",
		buyerID, teamID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count products: %w", err)
	}
	return count, nil
}

// DeleteProductsByTeam removes every product of a team.
// Claims on those products go with them through ON DELETE CASCADE.
func (s *SQLiteStore) DeleteProductsByTeam(ctx context.Context, teamID string) (int64, error) {
	res, err := s.db.ExecContext(ctx, "DELETE FROM products WHERE team_id = ?", teamID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete products: %w", err)
	}
	return res.RowsAffected()
}
