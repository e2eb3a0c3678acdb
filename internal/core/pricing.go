package core

import (
	"github.com/shopspring/decimal"
)

// Totals are the monetary header figures of an order.
type Totals struct {
	Subtotal       decimal.Decimal `json:"subtotal"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
	TaxRate        decimal.Decimal `json:"tax_rate"`
	TaxAmount      decimal.Decimal `json:"tax_amount"`
	TotalAmount    decimal.Decimal `json:"total_amount"`
}

// TaxRateScale is the number of decimal places a tax rate is stored with.
const TaxRateScale = 6

// PriceOrder computes order totals.
//
//	subtotal = round2(Σ quantity × unit price)
//	tax      = round2((subtotal − discount) × taxRate)
//	total    = subtotal − discount + tax
//
// Rounding is half away from zero, which is half-up for the non-negative amounts seen here.
func PriceOrder(lines []ResolvedLine, discount, taxRate decimal.Decimal) (Totals, error) {
	if discount.IsNegative() {
		return Totals{}, validationErrorf("discount cannot be negative, got %s", discount.String())
	}
	if taxRate.IsNegative() {
		return Totals{}, validationErrorf("tax rate cannot be negative, got %s", taxRate.String())
	}
	if !taxRate.Equal(taxRate.Truncate(TaxRateScale)) {
		return Totals{}, validationErrorf("tax rate %s has more than %d decimal places", taxRate.String(), TaxRateScale)
	}

	sum := decimal.Zero
	for _, line := range lines {
		sum = sum.Add(line.Amount())
	}
	subtotal := round2(sum)
	if discount.GreaterThan(subtotal) {
		return Totals{}, validationErrorf("discount %s exceeds subtotal %s",
			discount.StringFixed(2), subtotal.StringFixed(2))
	}

	discount = round2(discount)
	tax := round2(subtotal.Sub(discount).Mul(taxRate))
	return Totals{
		Subtotal:       subtotal,
		DiscountAmount: discount,
		TaxRate:        taxRate,
		TaxAmount:      tax,
		TotalAmount:    subtotal.Sub(discount).Add(tax),
	}, nil
}

func round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}
