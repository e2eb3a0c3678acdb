package core

import (
	"time"

	"github.com/shopspring/decimal"
)

// Formula is a named recipe splitting a total quantity across products by percentage.
// A formula with a CustomerID may only be ordered by that customer.
type Formula struct {
	ID         int           `json:"id"`
	CompanyID  int           `json:"company_id"`
	Code       string        `json:"code"`
	Name       string        `json:"name"`
	CustomerID *int          `json:"customer_id,omitempty"`
	IsActive   bool          `json:"is_active"`
	UsageCount int           `json:"usage_count"`
	LastUsedAt *time.Time    `json:"last_used_at,omitempty"`
	CreatedAt  time.Time     `json:"created_at"`
	Items      []FormulaItem `json:"items"`
}

// FormulaItem is one product share of a formula.
type FormulaItem struct {
	Sequence   int             `json:"sequence"`
	ProductID  int             `json:"product_id"`
	Percentage decimal.Decimal `json:"percentage"`
}

// FormulaInput is used when authoring a formula.
type FormulaInput struct {
	Code       string
	Name       string
	CustomerID *int
	Items      []FormulaItem
}

// ResolvedLine is a priced order line produced from a formula or a direct item.
type ResolvedLine struct {
	ProductID int             `json:"product_id"`
	Quantity  decimal.Decimal `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

// Amount returns Quantity × UnitPrice, unrounded.
func (l ResolvedLine) Amount() decimal.Decimal {
	return l.Quantity.Mul(l.UnitPrice)
}
