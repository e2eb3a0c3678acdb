package core

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
)

// StockChecker reports sellable stock for a product (on hand minus reserved, over active warehouses).
// tracked is false for products with no inventory rows; those are service items and never run out.
type StockChecker interface {
	AvailableStock(ctx context.Context, productID int) (available decimal.Decimal, tracked bool, err error)
}

// IsAvailable reports whether qty of productID can be sold right now.
func IsAvailable(ctx context.Context, checker StockChecker, productID int, qty decimal.Decimal) (bool, error) {
	available, tracked, err := checker.AvailableStock(ctx, productID)
	if err != nil {
		return false, err
	}
	return !tracked || available.GreaterThanOrEqual(qty), nil
}

// CheckStock verifies every line against checker and stops at the first shortfall with an
// *InsufficientStockError. Lines repeating a product are checked against their running total.
func CheckStock(ctx context.Context, checker StockChecker, catalog ProductCatalog, lines []ResolvedLine) error {
	requested := make(map[int]decimal.Decimal, len(lines))
	for _, line := range lines {
		need := requested[line.ProductID].Add(line.Quantity)
		requested[line.ProductID] = need

		available, tracked, err := checker.AvailableStock(ctx, line.ProductID)
		if err != nil {
			return fmt.Errorf("failed to check stock for product %d: %w", line.ProductID, err)
		}
		if !tracked || available.GreaterThanOrEqual(need) {
			continue
		}
		name, err := catalog.ProductName(ctx, line.ProductID)
		if err != nil {
			return fmt.Errorf("failed to resolve product %d: %w", line.ProductID, err)
		}
		return &InsufficientStockError{
			ProductID:   line.ProductID,
			ProductName: name,
			Requested:   need,
			Available:   available,
		}
	}
	return nil
}
