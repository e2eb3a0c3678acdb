package core

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// FormulaService manages formula master data. Formulas may be saved while their percentages
// are still off; ValidateFormula rejects them at order time.
type FormulaService interface {
	CreateFormula(ctx context.Context, companyID int, input FormulaInput) (*Formula, error)
	GetFormula(ctx context.Context, companyID, formulaID int) (*Formula, error)
	GetFormulas(ctx context.Context, companyID int) ([]Formula, error)
	SetFormulaActive(ctx context.Context, companyID, formulaID int, active bool) (*Formula, error)
	// Resolve previews the lines an order for customerID would get, using live prices.
	Resolve(ctx context.Context, companyID, formulaID, customerID int, totalQuantity decimal.Decimal) ([]ResolvedLine, error)
}

type formulaService struct {
	pool     *pgxpool.Pool
	products ProductService
}

func NewFormulaService(pool *pgxpool.Pool, products ProductService) FormulaService {
	return &formulaService{pool: pool, products: products}
}

func (s *formulaService) CreateFormula(ctx context.Context, companyID int, input FormulaInput) (*Formula, error) {
	input.Code = strings.TrimSpace(input.Code)
	input.Name = strings.TrimSpace(input.Name)
	if input.Code == "" || input.Name == "" {
		return nil, validationErrorf("formula code and name are required")
	}
	if len(input.Items) == 0 {
		return nil, validationErrorf("formula %s has no items", input.Code)
	}
	for i, item := range input.Items {
		if !item.Percentage.IsPositive() {
			return nil, validationErrorf("formula item %d: percentage must be positive, got %s", i+1, item.Percentage.String())
		}
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if input.CustomerID != nil {
		if _, err := getCustomer(ctx, tx, companyID, *input.CustomerID, false); err != nil {
			return nil, err
		}
	}

	var formulaID int
	err = tx.QueryRow(ctx, `
		INSERT INTO formulas (company_id, code, name, customer_id)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`, companyID, input.Code, input.Name, input.CustomerID).Scan(&formulaID)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, businessRuleErrorf("formula code %s already exists", input.Code)
		}
		return nil, fmt.Errorf("failed to create formula: %w", err)
	}

	for i, item := range input.Items {
		if _, err := getProduct(ctx, tx, companyID, item.ProductID); err != nil {
			return nil, fmt.Errorf("formula item %d: %w", i+1, err)
		}
		if _, err := tx.Exec(ctx, `
			INSERT INTO formula_items (formula_id, sequence, product_id, percentage)
			VALUES ($1, $2, $3, $4)
		`, formulaID, i+1, item.ProductID, item.Percentage); err != nil {
			return nil, fmt.Errorf("failed to insert formula item %d: %w", i+1, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit formula: %w", err)
	}
	return s.GetFormula(ctx, companyID, formulaID)
}

func (s *formulaService) GetFormula(ctx context.Context, companyID, formulaID int) (*Formula, error) {
	return getFormula(ctx, s.pool, companyID, formulaID)
}

func (s *formulaService) GetFormulas(ctx context.Context, companyID int) ([]Formula, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id FROM formulas WHERE company_id = $1 ORDER BY code
	`, companyID)
	if err != nil {
		return nil, fmt.Errorf("failed to query formulas: %w", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[int])
	if err != nil {
		return nil, fmt.Errorf("failed to scan formula ids: %w", err)
	}

	formulas := make([]Formula, 0, len(ids))
	for _, id := range ids {
		f, err := getFormula(ctx, s.pool, companyID, id)
		if err != nil {
			return nil, err
		}
		formulas = append(formulas, *f)
	}
	return formulas, nil
}

func (s *formulaService) SetFormulaActive(ctx context.Context, companyID, formulaID int, active bool) (*Formula, error) {
	tag, err := s.pool.Exec(ctx,
		"UPDATE formulas SET is_active = $1 WHERE id = $2 AND company_id = $3",
		active, formulaID, companyID)
	if err != nil {
		return nil, fmt.Errorf("failed to update formula: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, notFoundErrorf("formula %d", formulaID)
	}
	return getFormula(ctx, s.pool, companyID, formulaID)
}

func (s *formulaService) Resolve(ctx context.Context, companyID, formulaID, customerID int, totalQuantity decimal.Decimal) ([]ResolvedLine, error) {
	f, err := getFormula(ctx, s.pool, companyID, formulaID)
	if err != nil {
		return nil, err
	}
	return NewFormulaResolver(s.products.Catalog(companyID)).Resolve(ctx, *f, customerID, totalQuantity)
}

// getFormula loads a formula and its items in sequence order.
func getFormula(ctx context.Context, q pgxQuerier, companyID, formulaID int) (*Formula, error) {
	var f Formula
	err := q.QueryRow(ctx, `
		SELECT id, company_id, code, name, customer_id, is_active, usage_count, last_used_at, created_at
		FROM formulas
		WHERE id = $1 AND company_id = $2
	`, formulaID, companyID).Scan(
		&f.ID, &f.CompanyID, &f.Code, &f.Name, &f.CustomerID, &f.IsActive,
		&f.UsageCount, &f.LastUsedAt, &f.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, notFoundErrorf("formula %d", formulaID)
		}
		return nil, fmt.Errorf("failed to fetch formula %d: %w", formulaID, err)
	}

	rows, err := q.Query(ctx, `
		SELECT sequence, product_id, percentage
		FROM formula_items
		WHERE formula_id = $1
		ORDER BY sequence
	`, formulaID)
	if err != nil {
		return nil, fmt.Errorf("failed to query formula items: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var item FormulaItem
		if err := rows.Scan(&item.Sequence, &item.ProductID, &item.Percentage); err != nil {
			return nil, fmt.Errorf("failed to scan formula item: %w", err)
		}
		f.Items = append(f.Items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating formula items: %w", err)
	}
	return &f, nil
}

// recordFormulaUsage bumps usage statistics inside the order's transaction.
func recordFormulaUsage(ctx context.Context, tx pgx.Tx, formulaID int) error {
	if _, err := tx.Exec(ctx, `
		UPDATE formulas SET usage_count = usage_count + 1, last_used_at = NOW() WHERE id = $1
	`, formulaID); err != nil {
		return fmt.Errorf("failed to record formula usage: %w", err)
	}
	return nil
}
