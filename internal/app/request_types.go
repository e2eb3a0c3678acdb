package app

import (
	"github.com/shopspring/decimal"
)

// CreateOrderRequest is the input for creating a new sales order.
// Exactly one of FormulaID or Lines must be set.
type CreateOrderRequest struct {
	CompanyCode    string
	CustomerCode   string
	PaymentType    string
	FormulaID      *int
	TotalQuantity  decimal.Decimal // formula orders only
	Lines          []OrderLineInput
	DiscountAmount decimal.Decimal
	TaxRate        *decimal.Decimal // nil means the company default
	Notes          string
	PointOfSale    bool
	Actor          Actor
}

// OrderLineInput is a single line within a CreateOrderRequest.
type OrderLineInput struct {
	ProductCode string
	Quantity    decimal.Decimal
	UnitPrice   *decimal.Decimal // nil means "use product selling price"
}

// OrderActionRequest approves or rejects an order. Ref is a numeric ID or order number.
type OrderActionRequest struct {
	CompanyCode string
	Ref         string
	Reason      string
	Actor       Actor
}

// FulfillOrderRequest moves an approved order along its fulfillment path.
type FulfillOrderRequest struct {
	CompanyCode    string
	Ref            string
	Status         string
	TrackingNumber string
	Actor          Actor
}

// CreateCustomerRequest is the input for creating a new customer.
type CreateCustomerRequest struct {
	CompanyCode      string
	Code             string
	Name             string
	Email            string
	Phone            string
	CustomerType     string
	CreditLimit      decimal.Decimal
	PaymentTermsDays int
	Actor            Actor
}

// CreditLimitRequest changes a customer's credit limit.
type CreditLimitRequest struct {
	CompanyCode  string
	CustomerCode string
	Limit        decimal.Decimal
	Actor        Actor
}

// CreditBlockRequest blocks or unblocks a customer's credit.
type CreditBlockRequest struct {
	CompanyCode  string
	CustomerCode string
	Blocked      bool
	Actor        Actor
}

// CreateFormulaRequest is the input for authoring a formula.
// An empty CustomerCode makes the formula available to every customer.
type CreateFormulaRequest struct {
	CompanyCode  string
	Code         string
	Name         string
	CustomerCode string
	Items        []FormulaItemInput
	Actor        Actor
}

// FormulaItemInput is one product share within a CreateFormulaRequest.
type FormulaItemInput struct {
	ProductCode string
	Percentage  decimal.Decimal
}

// FormulaActiveRequest activates or deactivates a formula.
type FormulaActiveRequest struct {
	CompanyCode string
	FormulaID   int
	Active      bool
	Actor       Actor
}

// CreateProductRequest is the input for adding a product to the catalog.
type CreateProductRequest struct {
	CompanyCode  string
	Code         string
	Name         string
	Unit         string
	SellingPrice decimal.Decimal
	Actor        Actor
}

// ProductPriceRequest changes a product's selling price. Existing orders keep their prices.
type ProductPriceRequest struct {
	CompanyCode string
	ProductCode string
	Price       decimal.Decimal
	Actor       Actor
}

// PreviewFormulaRequest asks what a formula order would contain.
type PreviewFormulaRequest struct {
	CompanyCode   string
	FormulaID     int
	CustomerCode  string
	TotalQuantity decimal.Decimal
}

// ReceiveStockRequest is the input for recording a goods receipt into a warehouse.
type ReceiveStockRequest struct {
	CompanyCode   string
	ProductCode   string
	WarehouseCode string
	MovementDate  string
	Qty           decimal.Decimal
	Actor         Actor
}

// UpdateSettingsRequest replaces a company's order workflow settings.
type UpdateSettingsRequest struct {
	CompanyCode     string
	RequireApproval bool
	Threshold       decimal.Decimal
	DefaultTaxRate  decimal.Decimal
	Actor           Actor
}
