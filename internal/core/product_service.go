package core

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// ProductService manages the product catalog.
type ProductService interface {
	CreateProduct(ctx context.Context, companyID int, input ProductInput) (*Product, error)
	GetProducts(ctx context.Context, companyID int) ([]Product, error)
	GetProduct(ctx context.Context, companyID, productID int) (*Product, error)
	GetProductByCode(ctx context.Context, companyID int, code string) (*Product, error)
	UpdateSellingPrice(ctx context.Context, companyID, productID int, price decimal.Decimal) (*Product, error)
	// Catalog returns a ProductCatalog reading live prices for companyID.
	Catalog(companyID int) ProductCatalog
}

type productService struct {
	pool *pgxpool.Pool
}

func NewProductService(pool *pgxpool.Pool) ProductService {
	return &productService{pool: pool}
}

func (s *productService) CreateProduct(ctx context.Context, companyID int, input ProductInput) (*Product, error) {
	input.Code = strings.TrimSpace(input.Code)
	input.Name = strings.TrimSpace(input.Name)
	if input.Code == "" || input.Name == "" {
		return nil, validationErrorf("product code and name are required")
	}
	if input.SellingPrice.IsNegative() {
		return nil, validationErrorf("selling price cannot be negative, got %s", input.SellingPrice.String())
	}
	if input.Unit == "" {
		input.Unit = "unit"
	}

	var p Product
	err := s.pool.QueryRow(ctx, `
		INSERT INTO products (company_id, code, name, unit, selling_price)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, company_id, code, name, unit, selling_price, is_active, created_at
	`, companyID, input.Code, input.Name, input.Unit, input.SellingPrice).Scan(
		&p.ID, &p.CompanyID, &p.Code, &p.Name, &p.Unit, &p.SellingPrice, &p.IsActive, &p.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, businessRuleErrorf("product code %s already exists", input.Code)
		}
		return nil, fmt.Errorf("failed to create product: %w", err)
	}
	return &p, nil
}

func (s *productService) GetProducts(ctx context.Context, companyID int) ([]Product, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, company_id, code, name, unit, selling_price, is_active, created_at
		FROM products
		WHERE company_id = $1 AND is_active = true
		ORDER BY code
	`, companyID)
	if err != nil {
		return nil, fmt.Errorf("failed to query products: %w", err)
	}
	defer rows.Close()

	var products []Product
	for rows.Next() {
		var p Product
		if err := rows.Scan(&p.ID, &p.CompanyID, &p.Code, &p.Name, &p.Unit, &p.SellingPrice,
			&p.IsActive, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

func (s *productService) GetProduct(ctx context.Context, companyID, productID int) (*Product, error) {
	return getProduct(ctx, s.pool, companyID, productID)
}

func (s *productService) GetProductByCode(ctx context.Context, companyID int, code string) (*Product, error) {
	var p Product
	err := s.pool.QueryRow(ctx, `
		SELECT id, company_id, code, name, unit, selling_price, is_active, created_at
		FROM products
		WHERE company_id = $1 AND code = $2
	`, companyID, strings.TrimSpace(code)).Scan(
		&p.ID, &p.CompanyID, &p.Code, &p.Name, &p.Unit, &p.SellingPrice, &p.IsActive, &p.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, notFoundErrorf("product %s", code)
		}
		return nil, fmt.Errorf("failed to fetch product %s: %w", code, err)
	}
	return &p, nil
}

func (s *productService) UpdateSellingPrice(ctx context.Context, companyID, productID int, price decimal.Decimal) (*Product, error) {
	if price.IsNegative() {
		return nil, validationErrorf("selling price cannot be negative, got %s", price.String())
	}
	tag, err := s.pool.Exec(ctx,
		"UPDATE products SET selling_price = $1 WHERE id = $2 AND company_id = $3",
		price, productID, companyID)
	if err != nil {
		return nil, fmt.Errorf("failed to update selling price: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, notFoundErrorf("product %d", productID)
	}
	return getProduct(ctx, s.pool, companyID, productID)
}

func (s *productService) Catalog(companyID int) ProductCatalog {
	return &productCatalog{q: s.pool, companyID: companyID}
}

func getProduct(ctx context.Context, q pgxQuerier, companyID, productID int) (*Product, error) {
	var p Product
	err := q.QueryRow(ctx, `
		SELECT id, company_id, code, name, unit, selling_price, is_active, created_at
		FROM products
		WHERE id = $1 AND company_id = $2
	`, productID, companyID).Scan(
		&p.ID, &p.CompanyID, &p.Code, &p.Name, &p.Unit, &p.SellingPrice, &p.IsActive, &p.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, notFoundErrorf("product %d", productID)
		}
		return nil, fmt.Errorf("failed to fetch product %d: %w", productID, err)
	}
	return &p, nil
}

// productCatalog reads active products through q, which may be the pool or an open transaction.
type productCatalog struct {
	q         pgxQuerier
	companyID int
}

func (c *productCatalog) SellingPrice(ctx context.Context, productID int) (decimal.Decimal, error) {
	p, err := c.activeProduct(ctx, productID)
	if err != nil {
		return decimal.Zero, err
	}
	return p.SellingPrice, nil
}

func (c *productCatalog) ProductName(ctx context.Context, productID int) (string, error) {
	p, err := getProduct(ctx, c.q, c.companyID, productID)
	if err != nil {
		return "", err
	}
	return p.Name, nil
}

func (c *productCatalog) activeProduct(ctx context.Context, productID int) (*Product, error) {
	p, err := getProduct(ctx, c.q, c.companyID, productID)
	if err != nil {
		return nil, err
	}
	if !p.IsActive {
		return nil, businessRuleErrorf("product %s is inactive", p.Code)
	}
	return p, nil
}

// isUniqueViolation reports a PostgreSQL unique_violation (23505).
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
