package core

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	hundred          = decimal.NewFromInt(100)
	formulaTolerance = decimal.RequireFromString("0.01")
)

// ProductCatalog supplies current product data. Prices are read at call time and never cached.
type ProductCatalog interface {
	SellingPrice(ctx context.Context, productID int) (decimal.Decimal, error)
	ProductName(ctx context.Context, productID int) (string, error)
}

// ValidateFormula reports ErrFormulaInvalid unless f is active and its percentages sum to 100
// with an error strictly below 0.01. A sum of 99.99 or 100.01 is rejected.
func ValidateFormula(f Formula) error {
	if !f.IsActive {
		return fmt.Errorf("%w: formula %s is inactive", ErrFormulaInvalid, f.Code)
	}
	sum := decimal.Zero
	for _, item := range f.Items {
		sum = sum.Add(item.Percentage)
	}
	if !sum.Sub(hundred).Abs().LessThan(formulaTolerance) {
		return fmt.Errorf("%w: formula %s percentages sum to %s, want 100",
			ErrFormulaInvalid, f.Code, sum.String())
	}
	return nil
}

// FormulaResolver expands a formula into priced order lines.
type FormulaResolver struct {
	catalog ProductCatalog
}

func NewFormulaResolver(catalog ProductCatalog) *FormulaResolver {
	return &FormulaResolver{catalog: catalog}
}

// Resolve splits totalQuantity across the formula's products for customerID.
// Quantities are percentage/100 × totalQuantity, unrounded.
func (r *FormulaResolver) Resolve(ctx context.Context, f Formula, customerID int, totalQuantity decimal.Decimal) ([]ResolvedLine, error) {
	if f.CustomerID != nil && *f.CustomerID != customerID {
		return nil, fmt.Errorf("%w: formula %s belongs to customer %d",
			ErrFormulaNotAvailable, f.Code, *f.CustomerID)
	}
	if err := ValidateFormula(f); err != nil {
		return nil, err
	}
	if !totalQuantity.IsPositive() {
		return nil, validationErrorf("invalid quantity: total quantity must be positive, got %s", totalQuantity.String())
	}

	lines := make([]ResolvedLine, 0, len(f.Items))
	for _, item := range f.Items {
		price, err := r.catalog.SellingPrice(ctx, item.ProductID)
		if err != nil {
			return nil, fmt.Errorf("failed to price formula item %d: %w", item.Sequence, err)
		}
		lines = append(lines, ResolvedLine{
			ProductID: item.ProductID,
			Quantity:  item.Percentage.Div(hundred).Mul(totalQuantity),
			UnitPrice: price,
		})
	}
	return lines, nil
}
