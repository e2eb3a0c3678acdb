package app

import (
	"context"

	"order-engine/internal/core"

	"github.com/shopspring/decimal"
)

// ApplicationService is the single interface all UI adapters (CLI, Web) call.
// It decouples presentation from business logic. Implementations must contain
// no fmt.Println, no ANSI codes, and no display logic of any kind.
//
// Companies are addressed by code; customers and products by code; orders by numeric ID
// or order number. Mutating calls carry the acting user and are checked by the Authorizer.
type ApplicationService interface {
	// LoadDefaultCompany loads the active company. Uses COMPANY_CODE if configured;
	// otherwise expects exactly one company in the database.
	LoadDefaultCompany(ctx context.Context) (*core.Company, error)

	// ── Customers & credit ──────────────────────────────────────────────────

	ListCustomers(ctx context.Context, companyCode string) (*CustomerListResult, error)
	CreateCustomer(ctx context.Context, req CreateCustomerRequest) (*CustomerResult, error)
	// SetCreditLimit changes a customer's credit limit. Cash customers and limits below the
	// outstanding balance are refused.
	SetCreditLimit(ctx context.Context, req CreditLimitRequest) (*CustomerResult, error)
	SetCreditBlocked(ctx context.Context, req CreditBlockRequest) (*CustomerResult, error)
	// CheckCredit evaluates a customer against amount without changing anything.
	CheckCredit(ctx context.Context, companyCode, customerCode string, amount decimal.Decimal) (*CreditCheckResult, error)

	// ── Catalog & formulas ──────────────────────────────────────────────────

	ListProducts(ctx context.Context, companyCode string) (*ProductListResult, error)
	CreateProduct(ctx context.Context, req CreateProductRequest) (*ProductResult, error)
	// SetProductPrice changes the selling price used by orders created from now on.
	SetProductPrice(ctx context.Context, req ProductPriceRequest) (*ProductResult, error)
	ListFormulas(ctx context.Context, companyCode string) (*FormulaListResult, error)
	CreateFormula(ctx context.Context, req CreateFormulaRequest) (*FormulaResult, error)
	SetFormulaActive(ctx context.Context, req FormulaActiveRequest) (*FormulaResult, error)
	// PreviewFormula resolves a formula for a customer at live prices and prices the lines
	// with the company's default tax rate. Nothing is stored.
	PreviewFormula(ctx context.Context, req PreviewFormulaRequest) (*FormulaPreviewResult, error)

	// ── Sales orders ────────────────────────────────────────────────────────

	ListOrders(ctx context.Context, companyCode string, status *string) (*OrderListResult, error)
	// GetOrder returns a single sales order by numeric ID or order number string.
	GetOrder(ctx context.Context, ref, companyCode string) (*OrderResult, error)
	// CreateOrder runs the full creation pipeline with the company's stored workflow settings.
	CreateOrder(ctx context.Context, req CreateOrderRequest) (*CreateOrderResult, error)
	ApproveOrder(ctx context.Context, req OrderActionRequest) (*OrderResult, error)
	RejectOrder(ctx context.Context, req OrderActionRequest) (*OrderResult, error)
	FulfillOrder(ctx context.Context, req FulfillOrderRequest) (*OrderResult, error)

	// ── Inventory ───────────────────────────────────────────────────────────

	ListWarehouses(ctx context.Context, companyCode string) (*WarehouseListResult, error)
	GetStockLevels(ctx context.Context, companyCode string) (*StockResult, error)
	// ReceiveStock records a goods receipt. An empty warehouse code means the first active warehouse.
	ReceiveStock(ctx context.Context, req ReceiveStockRequest) error

	// ── Settings ────────────────────────────────────────────────────────────

	GetSettings(ctx context.Context, companyCode string) (*SettingsResult, error)
	UpdateSettings(ctx context.Context, req UpdateSettingsRequest) (*SettingsResult, error)

	// ── Users ───────────────────────────────────────────────────────────────

	// AuthenticateUser verifies credentials and returns a session on success.
	AuthenticateUser(ctx context.Context, username, password string) (*UserSession, error)
	// GetUser returns user profile by ID.
	GetUser(ctx context.Context, userID int) (*UserResult, error)
}
