package core

import (
	"time"

	"github.com/shopspring/decimal"
)

// CustomerType classifies how a customer may pay.
type CustomerType string

const (
	CustomerTypeCash        CustomerType = "cash"
	CustomerTypeCredit      CustomerType = "credit"
	CustomerTypeBoth        CustomerType = "both"
	CustomerTypeWholesale   CustomerType = "wholesale"
	CustomerTypeRetail      CustomerType = "retail"
	CustomerTypeDistributor CustomerType = "distributor"
)

// Valid reports whether t is a known customer type.
func (t CustomerType) Valid() bool {
	switch t {
	case CustomerTypeCash, CustomerTypeCredit, CustomerTypeBoth,
		CustomerTypeWholesale, CustomerTypeRetail, CustomerTypeDistributor:
		return true
	}
	return false
}

// Customer represents a sales customer master record, scoped to a company.
// OutstandingBalance is owned by invoicing and payments; order operations only read it.
type Customer struct {
	ID                 int             `json:"id"`
	CompanyID          int             `json:"company_id"`
	Code               string          `json:"code"`
	Name               string          `json:"name"`
	Email              string          `json:"email"`
	Phone              string          `json:"phone"`
	CustomerType       CustomerType    `json:"customer_type"`
	CreditLimit        decimal.Decimal `json:"credit_limit"`
	OutstandingBalance decimal.Decimal `json:"outstanding_balance"`
	CreditBlocked      bool            `json:"credit_blocked"`
	PaymentTermsDays   int             `json:"payment_terms_days"`
	CreatedAt          time.Time       `json:"created_at"`
}

// CreditEnabled reports whether the customer type allows credit orders at all.
func (c Customer) CreditEnabled() bool {
	return c.CustomerType == CustomerTypeCredit || c.CustomerType == CustomerTypeBoth
}

// CustomerInput is used when creating a customer.
type CustomerInput struct {
	Code             string
	Name             string
	Email            string
	Phone            string
	CustomerType     CustomerType
	CreditLimit      decimal.Decimal
	PaymentTermsDays int
}

// Product represents a sellable item in the company catalog.
type Product struct {
	ID           int             `json:"id"`
	CompanyID    int             `json:"company_id"`
	Code         string          `json:"code"`
	Name         string          `json:"name"`
	Unit         string          `json:"unit"`
	SellingPrice decimal.Decimal `json:"selling_price"`
	IsActive     bool            `json:"is_active"`
	CreatedAt    time.Time       `json:"created_at"`
}

// ProductInput is used when creating a product.
type ProductInput struct {
	Code         string
	Name         string
	Unit         string
	SellingPrice decimal.Decimal
}

// PaymentType is how a sales order is settled.
type PaymentType string

const (
	PaymentTypeCash   PaymentType = "cash"
	PaymentTypeCredit PaymentType = "credit"
)

func (p PaymentType) Valid() bool {
	return p == PaymentTypeCash || p == PaymentTypeCredit
}

// OrderStatus is the commercial status of a sales order.
//
//	pending → approved → (delivered) completed
//	pending → cancelled
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusApproved  OrderStatus = "approved"
	OrderStatusCompleted OrderStatus = "completed"
	OrderStatusCancelled OrderStatus = "cancelled"
)

func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPending, OrderStatusApproved, OrderStatusCompleted, OrderStatusCancelled:
		return true
	}
	return false
}

// FulfillmentStatus tracks physical delivery of an approved order.
type FulfillmentStatus string

const (
	FulfillmentAwaiting   FulfillmentStatus = "awaiting"
	FulfillmentProcessing FulfillmentStatus = "processing"
	FulfillmentShipped    FulfillmentStatus = "shipped"
	FulfillmentDelivered  FulfillmentStatus = "delivered"
)

// rank orders fulfillment statuses; -1 means unknown.
func (f FulfillmentStatus) rank() int {
	switch f {
	case FulfillmentAwaiting:
		return 0
	case FulfillmentProcessing:
		return 1
	case FulfillmentShipped:
		return 2
	case FulfillmentDelivered:
		return 3
	}
	return -1
}

func (f FulfillmentStatus) Valid() bool { return f.rank() >= 0 }

// SalesOrder is a sales order header with its items.
// TotalAmount always equals Subtotal - DiscountAmount + TaxAmount.
type SalesOrder struct {
	ID                 int               `json:"id"`
	CompanyID          int               `json:"company_id"`
	OrderNumber        string            `json:"order_number"`
	CustomerID         int               `json:"customer_id"`
	CustomerCode       string            `json:"customer_code,omitempty"` // joined from customers
	CustomerName       string            `json:"customer_name,omitempty"` // joined from customers
	PaymentType        PaymentType       `json:"payment_type"`
	FormulaID          *int              `json:"formula_id,omitempty"`
	Status             OrderStatus       `json:"status"`
	FulfillmentStatus  FulfillmentStatus `json:"fulfillment_status"`
	Subtotal           decimal.Decimal   `json:"subtotal"`
	DiscountAmount     decimal.Decimal   `json:"discount_amount"`
	TaxRate            decimal.Decimal   `json:"tax_rate"`
	TaxAmount          decimal.Decimal   `json:"tax_amount"`
	TotalAmount        decimal.Decimal   `json:"total_amount"`
	CreditAvailable    *decimal.Decimal  `json:"credit_available,omitempty"` // snapshot at creation, credit orders only
	Notes              string            `json:"notes"`
	CreatedBy          *int              `json:"created_by,omitempty"`
	ApprovedBy         *int              `json:"approved_by,omitempty"`
	ApprovedAt         *time.Time        `json:"approved_at,omitempty"`
	ApprovalReason     string            `json:"approval_reason,omitempty"`
	CancelledBy        *int              `json:"cancelled_by,omitempty"`
	CancelledAt        *time.Time        `json:"cancelled_at,omitempty"`
	CancellationReason string            `json:"cancellation_reason,omitempty"`
	ShippedAt          *time.Time        `json:"shipped_at,omitempty"`
	DeliveredAt        *time.Time        `json:"delivered_at,omitempty"`
	StockCommitted     bool              `json:"stock_committed"`
	StockShipped       bool              `json:"stock_shipped"`
	CreatedAt          time.Time         `json:"created_at"`
	Items              []SalesOrderItem  `json:"items"`
}

// SalesOrderItem is one line of a sales order. Items are written with the order and never changed.
type SalesOrderItem struct {
	ID          int             `json:"id"`
	OrderID     int             `json:"order_id"`
	Sequence    int             `json:"sequence"`
	ProductID   int             `json:"product_id"`
	ProductCode string          `json:"product_code,omitempty"` // joined from products
	ProductName string          `json:"product_name,omitempty"` // joined from products
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	TotalAmount decimal.Decimal `json:"total_amount"`
}

// OrderItemInput is a caller-supplied line for a direct (non-formula) order.
// A nil UnitPrice means the product's current selling price.
type OrderItemInput struct {
	ProductID int
	Quantity  decimal.Decimal
	UnitPrice *decimal.Decimal
}

// CreateOrderInput carries everything needed to create a sales order.
// Exactly one of FormulaID or Items must be set.
type CreateOrderInput struct {
	CompanyID      int
	CustomerID     int
	PaymentType    PaymentType
	FormulaID      *int
	TotalQuantity  decimal.Decimal // formula orders only
	Items          []OrderItemInput
	DiscountAmount decimal.Decimal
	TaxRate        *decimal.Decimal // nil means the configured default
	Notes          string
	PointOfSale    bool
	CreatedBy      *int
}

// CreateResult is the outcome of a successful order creation.
// ApprovalRequired is set when the order is pending and its total reached the approval threshold.
type CreateResult struct {
	Order            *SalesOrder `json:"order"`
	ApprovalRequired bool        `json:"approval_required"`
}

// FulfillmentInput moves an approved order along its fulfillment path.
type FulfillmentInput struct {
	Status         FulfillmentStatus
	TrackingNumber string
	ActorID        *int
}
