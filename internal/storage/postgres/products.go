package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/mmynk/settlebot/internal/models"
	"github.com/mmynk/settlebot/internal/storage"
)

const productColumns = `id, name, quantity, unit_price, total_price, team_id, receipt_id, buyer_id, created_at`

// CreateProduct persists a new product.
func (s *Store) CreateProduct(ctx context.Context, product *models.Product) error {
	if product.ID == "" {
		product.ID = uuid.New().String()
	}
	if product.ReceiptID == "" {
		product.ReceiptID = uuid.New().String()
	}
	if product.CreatedAt == 0 {
		product.CreatedAt = time.Now().Unix()
	}

	_, err := s.pool.Exec(ctx,
		`INSERT INTO products (`+productColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		product.ID, product.Name, product.Quantity, product.UnitPrice, product.TotalPrice,
		product.TeamID, product.ReceiptID, product.BuyerID, product.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: insert product: %w", err)
	}
	return nil
}

// GetProduct retrieves a product by ID.
func (s *Store) GetProduct(ctx context.Context, productID string) (*models.Product, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, productID)
	product, err := scanProduct(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, storage.ErrUnknownProduct
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: get product: %w", err)
	}
	return product, nil
}

// ListProductsByTeam returns the team catalog in insertion order.
func (s *Store) ListProductsByTeam(ctx context.Context, teamID string) ([]models.Product, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+productColumns+` FROM products WHERE team_id = $1 ORDER BY created_at, seq`, teamID)
	if err != nil {
		return nil, fmt.Errorf("postgres: list products: %w", err)
	}
	defer rows.Close()

	var products []models.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan product: %w", err)
		}
		products = append(products, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: iterate products: %w", err)
	}
	return products, nil
}

// CountProductsByBuyer returns how many products a buyer recorded in a team.
func (s *Store) CountProductsByBuyer(ctx context.Context, buyerID int64, teamID string) (int, error) {
	var count int
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM products WHERE buyer_id = $1 AND team_id = $2`, buyerID, teamID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("postgres: count products: %w", err)
	}
	return count, nil
}

// DeleteProductsByTeam removes every product of a team.
func (s *Store) DeleteProductsByTeam(ctx context.Context, teamID string) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM products WHERE team_id = $1`, teamID)
	if err != nil {
		return 0, fmt.Errorf("postgres: delete products: %w", err)
	}
	return tag.RowsAffected(), nil
}

func scanProduct(row pgx.Row) (*models.Product, error) {
	p := &models.Product{}
	err := row.Scan(&p.ID, &p.Name, &p.Quantity, &p.UnitPrice, &p.TotalPrice,
		&p.TeamID, &p.ReceiptID, &p.BuyerID, &p.CreatedAt)
	if err != nil {
		return nil, err
	}
	return p, nil
}
